package rnc

import (
	"bytes"
	"fmt"

	"github.com/free5gc/aper"
	"github.com/free5gc/ngap/ngapType"
)

// iurEnvelopeHeader is the APER-encoded part of an IurEnvelope on the link.
type iurEnvelopeHeader struct {
	UeId   int64 `aper:"valueLB:0,valueUB:4294967295"`
	CellId int64 `aper:"valueLB:0,valueUB:268435455"`
	PlmnId ngapType.PLMNIdentity
}

func EncodeIurEnvelopeHeader(envelope *IurEnvelope) ([]byte, error) {
	header := iurEnvelopeHeader{
		UeId:   int64(envelope.UeId),
		CellId: int64(envelope.CellId),
		PlmnId: envelope.PlmnId,
	}
	encoded, err := aper.Marshal(header)
	if err != nil {
		return nil, fmt.Errorf("Error encoding iur envelope header of UE %d: %v", envelope.UeId, err)
	}
	return encoded, nil
}

func DecodeIurEnvelopeHeader(encoded []byte, envelope *IurEnvelope) error {
	var header iurEnvelopeHeader
	if err := aper.Unmarshal(encoded, &header); err != nil {
		return fmt.Errorf("Error decoding iur envelope header: %v", err)
	}
	envelope.UeId = UeId(header.UeId)
	envelope.CellId = CellId(header.CellId)
	envelope.PlmnId = header.PlmnId
	return nil
}

func (r *Rnc) sendIur(dst RncId, ueId UeId, cellId CellId, transactionId uint32, payload any) {
	r.IurLog.Tracef("Iur %T to RNC %d for UE %d, cell %d", payload, dst, ueId, cellId)
	r.sendToRnc(dst, ueId, cellId, transactionId, &IurEnvelope{
		UeId:   ueId,
		CellId: cellId,
		PlmnId: r.plmnId,

		Payload: payload,
	})
}

func (r *Rnc) handleIurEnvelope(src RncId, transactionId uint32, envelope *IurEnvelope) {
	if !bytes.Equal(envelope.PlmnId.Value, r.plmnId.Value) {
		r.IurLog.Warnf("Iur envelope from RNC %d with foreign PLMN %x dropped", src, envelope.PlmnId.Value)
		return
	}

	switch payload := envelope.Payload.(type) {
	case *CellBearerSetupRequest, *CellBearerReleaseRequest, *CellJoinRequest, *CellLeaveRequest, *CellPrimaryDisable, *CellPrimaryEnable:
		r.handleCellRequest(src, envelope.UeId, envelope.CellId, transactionId, payload)
	case *CellBearerSetupResponse, *CellJoinResponse, *CellLeaveResponse:
		r.handleCellResponse(envelope.UeId, envelope.CellId, transactionId, payload)
	case *IurUplinkTransfer:
		if request, ok := payload.Rrc.(*RrcConnectionRequest); ok {
			r.handleForwardedConnectionRequest(src, envelope.UeId, envelope.CellId, request)
			return
		}
		r.handleRrc(envelope.UeId, envelope.CellId, payload.Rrc)
	case *IurConnectionRequest:
		if relayUe, exists := r.relayUes[envelope.UeId]; exists && relayUe.anchor == src {
			r.releaseRelayUe(src, envelope.UeId)
		}
		r.handleConnectionRequest(envelope.UeId, envelope.CellId, payload.Request)
	case *IurDownlinkTransfer:
		if _, local := r.cells[envelope.CellId]; !local {
			r.IurLog.Warnf("Downlink transfer for UE %d via foreign cell %d dropped", envelope.UeId, envelope.CellId)
			return
		}
		r.sendToUe(envelope.UeId, envelope.CellId, payload.Rrc)
	case *IurAnchorUpdate:
		if payload.Release {
			r.releaseRelayUe(src, envelope.UeId)
		}
	case *NbapRadioLinkFailureIndication:
		if ue, exists := r.ues[envelope.UeId]; exists {
			r.IurLog.Warnf("Radio link failure of UE %d in cell %d reported by RNC %d", envelope.UeId, envelope.CellId, src)
			r.releaseConnection(ue, CauseRadioLinkFailure, true)
		}
	default:
		r.IurLog.Warnf("Unknown Iur payload %T from RNC %d", envelope.Payload, src)
	}
}

// releaseRelayUe drops every local cell resource the anchor holds for the
// UE, together with the relay context.
func (r *Rnc) releaseRelayUe(anchor RncId, ueId UeId) {
	released := 0
	for _, cell := range r.cells {
		if owner, exists := cell.AnchorOf(ueId); exists && owner == anchor {
			r.releaseCellUe(cell, ueId)
			released++
		}
	}
	delete(r.relayUes, ueId)
	r.IurLog.Infof("Relay UE %d released by anchor RNC %d, %d cells freed", ueId, anchor, released)
}
