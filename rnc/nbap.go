package rnc

import "github.com/Alonza0314/free-rnc/constant"

func (r *Rnc) handleNbap(msg *Message) {
	switch body := msg.Body.(type) {
	case *NbapCellSetupIndication:
		r.handleCellSetupIndication(body)
	case *NbapRadioLinkSetupResponse:
		r.handleRadioLinkSetupResponse(msg.TransactionId, body)
	case *NbapRadioBearerSetupResponse:
		r.handleRadioBearerSetupResponse(msg.TransactionId, body)
	case *NbapRadioLinkFailureIndication:
		r.handleRadioLinkFailureIndication(msg.UeId, msg.CellId)
	default:
		r.NbapLog.Warnf("Unknown NBAP message %T from NodeB %d", msg.Body, msg.Src.Id)
	}
}

func (r *Rnc) handleCellSetupIndication(indication *NbapCellSetupIndication) {
	r.NbapLog.Infof("NodeB %d up with %d cells", indication.NodebId, len(indication.Cells))

	for _, info := range indication.Cells {
		if _, exists := r.cells[info.CellId]; exists {
			r.NbapLog.Warnf("Cell %d already set up, ignored", info.CellId)
			continue
		}
		r.cells[info.CellId] = NewCellContext(info.CellId, indication.NodebId, info.PrimaryScramblingCode, r.codePlan, r.scheduler.Now)
		r.nodebs[indication.NodebId] = append(r.nodebs[indication.NodebId], info.CellId)
		r.directory.Store(info.CellId, CellDirectoryEntry{NodebId: indication.NodebId, RncId: r.rncId})
		r.NbapLog.Debugf("Cell %d with primary scrambling code %d ready", info.CellId, info.PrimaryScramblingCode)
	}

	r.announceCells()
}

func (r *Rnc) takePendingNbap(transactionId uint32) *pendingNbap {
	pending, exists := r.pendingNbaps[transactionId]
	if !exists {
		return nil
	}
	delete(r.pendingNbaps, transactionId)
	r.transactionIdGenerator.ReleaseTransactionId(transactionId)
	return pending
}

func (r *Rnc) handleRadioLinkSetupResponse(transactionId uint32, response *NbapRadioLinkSetupResponse) {
	pending := r.takePendingNbap(transactionId)
	if pending == nil {
		r.NbapLog.Debugf("Stale radio link setup response, transaction %d", transactionId)
		return
	}

	switch pending.procedure {
	case nbapConnectionSetup:
		r.handleConnectionSetupAck(pending, response.Success)
	case nbapJoin:
		r.completeCellJoin(pending, response.Success)
	default:
		r.NbapLog.Warnf("Radio link setup response for procedure %d", pending.procedure)
	}
}

func (r *Rnc) completeCellJoin(pending *pendingNbap, success bool) {
	cell, exists := r.cells[pending.cellId]
	if !exists || !cell.HasUe(pending.ueId) {
		r.respondCell(pending.requester, pending.ueId, pending.cellId, pending.requestTransactionId, &CellJoinResponse{Accepted: false, Cause: CauseStaleState})
		return
	}

	if !success {
		cell.ReleaseUe(pending.ueId, r.admission)
		r.recordCellLoad(cell)
		r.NbapLog.Warnf("NodeB %d refused a radio link for UE %d in cell %d", cell.nodebId, pending.ueId, cell.cellId)
		r.respondCell(pending.requester, pending.ueId, pending.cellId, pending.requestTransactionId, &CellJoinResponse{Accepted: false, Cause: CauseNodebRejected})
		return
	}

	cell.Commit(pending.ueId)
	if pending.requester != r.rncId {
		r.relayJoin(pending.ueId, pending.requester)
	}
	r.respondCell(pending.requester, pending.ueId, pending.cellId, pending.requestTransactionId, &CellJoinResponse{Accepted: true})
}

func (r *Rnc) handleRadioBearerSetupResponse(transactionId uint32, response *NbapRadioBearerSetupResponse) {
	pending := r.takePendingNbap(transactionId)
	if pending == nil || pending.procedure != nbapBearerSetup {
		r.NbapLog.Debugf("Stale radio bearer setup response, transaction %d", transactionId)
		return
	}

	reply := &CellBearerSetupResponse{RabId: pending.rabId}
	cell, exists := r.cells[pending.cellId]
	switch {
	case !exists || !cell.HasBearer(pending.ueId, pending.rbId):
		reply.Cause = CauseStaleState
	case !response.Success:
		cell.ReleaseBearer(pending.ueId, pending.rbId, r.admission)
		r.recordCellLoad(cell)
		reply.Cause = CauseNodebRejected
	default:
		cell.Commit(pending.ueId)
		reply.Accepted = true
	}
	r.respondCell(pending.requester, pending.ueId, pending.cellId, pending.requestTransactionId, reply)
}

// handleRadioLinkFailureIndication releases the connection on the anchor.
// A relay hands the indication to the anchor.
func (r *Rnc) handleRadioLinkFailureIndication(ueId UeId, cellId CellId) {
	switch role := r.roleOf(ueId).(type) {
	case anchorRole:
		r.NbapLog.Warnf("Radio link failure of UE %d in cell %d", ueId, cellId)
		r.releaseConnection(role.ue, CauseRadioLinkFailure, true)
	case relayRole:
		r.sendIur(role.relayUe.anchor, ueId, cellId, 0, &NbapRadioLinkFailureIndication{})
	default:
		r.NbapLog.Debugf("Radio link failure for unknown UE %d", ueId)
	}
}

func buildNbapBearerInfo(cell *CellContext, ueId UeId, rbId uint8) NbapBearerInfo {
	info := NbapBearerInfo{
		RbId:    rbId,
		DlCodes: cell.DlCodes(ueId, rbId),
	}
	if ue, exists := cell.ues[ueId]; exists {
		if bearer, exists := ue.bearers[rbId]; exists {
			info.Shared = bearer.shared
		}
	}
	return info
}

// buildNbapRadioLinkSetupRequest describes every bearer the UE holds in the
// cell, the signalling bearer first.
func buildNbapRadioLinkSetupRequest(cell *CellContext, ueId UeId, primary bool) *NbapRadioLinkSetupRequest {
	request := &NbapRadioLinkSetupRequest{
		Srb:     buildNbapBearerInfo(cell, ueId, constant.SRB_RB_ID),
		Bearers: make([]NbapBearerInfo, 0),
		Primary: primary,
	}
	ue, exists := cell.ues[ueId]
	if !exists {
		return request
	}
	for rbId := constant.FIRST_RAB_RB_ID; rbId < constant.FIRST_RAB_RB_ID+constant.MAX_RAB; rbId++ {
		if _, exists := ue.bearers[rbId]; exists {
			request.Bearers = append(request.Bearers, buildNbapBearerInfo(cell, ueId, rbId))
		}
	}
	return request
}
