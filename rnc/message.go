package rnc

import (
	"github.com/free5gc/aper"
	"github.com/free5gc/ngap/ngapType"
)

type PeerKind int

const (
	PeerCore PeerKind = iota
	PeerNodeb
	PeerRnc
	PeerUe
)

func (k PeerKind) String() string {
	return enumName([]string{"CN", "NodeB", "RNC", "UE"}, "PeerKind", int(k))
}

type Peer struct {
	Kind PeerKind
	Id   uint32
}

// Message is the unit carried by the simulator between network elements.
// CellId is the cell the message is about, or the radio cell it travels
// through for UE-facing messages.
type Message struct {
	Src Peer
	Dst Peer

	UeId          UeId
	CellId        CellId
	TransactionId uint32

	Body any
}

// NBAP

type NbapCellInfo struct {
	CellId                CellId
	PrimaryScramblingCode uint16
}

type NbapCellSetupIndication struct {
	NodebId NodebId
	Cells   []NbapCellInfo
}

type NbapBearerInfo struct {
	RbId    uint8
	DlCodes []int
	Shared  bool
}

type NbapRadioLinkSetupRequest struct {
	Srb     NbapBearerInfo
	Bearers []NbapBearerInfo
	Primary bool
}

type NbapRadioLinkSetupResponse struct {
	Success bool
}

type NbapRadioLinkDeletionRequest struct{}

type NbapRadioBearerSetupRequest struct {
	Bearer NbapBearerInfo
}

type NbapRadioBearerSetupResponse struct {
	Success bool
}

type NbapRadioBearerReleaseRequest struct {
	RbId uint8
}

type NbapRadioLinkFailureIndication struct{}

type NbapPagingRequest struct {
	Domain CnDomain
}

// RANAP

type RanapRabAssignmentRequest struct {
	RabId  uint8
	Domain CnDomain
	Ul     QosParams
	Dl     QosParams
}

type RanapRabAssignmentResponse struct {
	RabId   uint8
	Success bool
	Cause   Cause
	Teid    aper.OctetString
}

type RanapRabReleaseRequest struct {
	RabId uint8
}

type RanapRabReleaseResponse struct {
	RabId   uint8
	Success bool
	Cause   Cause
}

type RanapIuReleaseCommand struct {
	Domain CnDomain
	Cause  Cause
}

type RanapIuReleaseComplete struct {
	Domain CnDomain
}

type RanapIuReleaseRequest struct {
	Cause Cause
}

type RanapInitialUeMessage struct {
	Domain CnDomain
	Nas    aper.OctetString
}

type RanapDirectTransfer struct {
	Domain CnDomain
	Nas    aper.OctetString
}

type RanapPaging struct {
	Domain CnDomain
}

type RanapCellLookupRequest struct {
	CellId CellId
}

type RanapCellLookupReply struct {
	CellId  CellId
	Found   bool
	NodebId NodebId
	RncId   RncId
}

type RanapCellEntry struct {
	CellId  CellId
	NodebId NodebId
}

type RanapCellRegistration struct {
	Cells []RanapCellEntry
}

// RRC

type RrcConnectionRequest struct {
	PrimaryScramblingCode uint16
}

type RrcConnectionSetup struct {
	SrbUlCodes []int
	SrbDlCodes []int
}

type RrcConnectionSetupComplete struct{}

type RrcConnectionReject struct {
	Cause Cause
}

type RrcConnectionRelease struct {
	Cause Cause
}

type RrcConnectionReleaseComplete struct{}

type RrcRadioBearerSetup struct {
	Plan    BearerPlan
	UlCodes []int
}

type RrcRadioBearerSetupComplete struct {
	RbId uint8
}

type RrcRadioBearerSetupFailure struct {
	RbId  uint8
	Cause Cause
}

type RrcRadioBearerRelease struct {
	RbId uint8
}

type RrcRadioBearerReleaseComplete struct {
	RbId uint8
}

type RrcActiveSetUpdate struct {
	Add     []CellId
	Remove  []CellId
	Primary CellId
}

type RrcActiveSetUpdateComplete struct{}

type RrcActiveSetUpdateFailure struct {
	Cause Cause
}

type CellMeasurement struct {
	CellId CellId
	Dbm    float64
}

type RrcMeasurementReport struct {
	Measurements []CellMeasurement
}

type RrcSignallingConnectionReleaseIndication struct {
	Domain CnDomain
}

type RrcStatus struct {
	Fatal bool
	Cause Cause
}

type RrcUplinkDirectTransfer struct {
	Domain CnDomain
	Nas    aper.OctetString
}

type RrcDownlinkDirectTransfer struct {
	Domain CnDomain
	Nas    aper.OctetString
}

type RrcPaging struct {
	Domain CnDomain
}

// Cell-level procedures, executed by the RNC hosting the cell either on a
// direct call or on an Iur envelope.

type CellBearerSetupRequest struct {
	Plan    BearerPlan
	Primary bool
}

type CellBearerSetupResponse struct {
	RabId    uint8
	Accepted bool
	Cause    Cause
}

type CellBearerReleaseRequest struct {
	RbId uint8
}

type CellJoinRequest struct {
	Bearers []BearerPlan
}

type CellJoinResponse struct {
	Accepted bool
	Cause    Cause
}

type CellLeaveRequest struct{}

type CellLeaveResponse struct{}

type CellPrimaryDisable struct{}

type CellPrimaryEnable struct{}

// Iur

type IurEnvelope struct {
	UeId   UeId
	CellId CellId
	PlmnId ngapType.PLMNIdentity

	Payload any
}

type IurUplinkTransfer struct {
	Rrc any
}

type IurDownlinkTransfer struct {
	Rrc any
}

type IurAnchorUpdate struct {
	Release bool
}

// IurConnectionRequest hands a connection request back to the RNC hosting
// the cell once the anchor dropped the stale context.
type IurConnectionRequest struct {
	Request *RrcConnectionRequest
}
