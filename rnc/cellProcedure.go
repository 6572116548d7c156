package rnc

// sendCellRequest runs a cell-level procedure on the RNC hosting the cell.
// It returns false when the owner of the cell is still unknown.
func (r *Rnc) sendCellRequest(ueId UeId, cellId CellId, transactionId uint32, body any) bool {
	owner, known := r.ownerOf(cellId)
	if !known {
		r.RncLog.Debugf("Owner of cell %d unknown, dropping %T for UE %d", cellId, body, ueId)
		return false
	}
	if owner == r.rncId {
		r.handleCellRequest(r.rncId, ueId, cellId, transactionId, body)
		return true
	}
	r.sendIur(owner, ueId, cellId, transactionId, body)
	return true
}

// respondCell answers a cell-level request. Local answers loop back through
// the transport so the requester never reenters itself.
func (r *Rnc) respondCell(requester RncId, ueId UeId, cellId CellId, transactionId uint32, body any) {
	if requester == r.rncId {
		r.sendToRnc(r.rncId, ueId, cellId, transactionId, body)
		return
	}
	r.sendIur(requester, ueId, cellId, transactionId, body)
}

func (r *Rnc) handleCellRequest(requester RncId, ueId UeId, cellId CellId, transactionId uint32, body any) {
	cell, exists := r.cells[cellId]
	if !exists {
		r.RncLog.Warnf("Cell %d requested by RNC %d is not hosted here", cellId, requester)
		switch request := body.(type) {
		case *CellBearerSetupRequest:
			r.respondCell(requester, ueId, cellId, transactionId, &CellBearerSetupResponse{RabId: request.Plan.RabId, Accepted: false, Cause: CauseStaleState})
		case *CellJoinRequest:
			r.respondCell(requester, ueId, cellId, transactionId, &CellJoinResponse{Accepted: false, Cause: CauseStaleState})
		case *CellLeaveRequest:
			r.respondCell(requester, ueId, cellId, transactionId, &CellLeaveResponse{})
		}
		return
	}

	switch request := body.(type) {
	case *CellBearerSetupRequest:
		r.handleCellBearerSetupRequest(requester, ueId, cell, transactionId, request)
	case *CellBearerReleaseRequest:
		cell.ReleaseBearer(ueId, request.RbId, r.admission)
		r.sendToNodeb(cell.nodebId, ueId, cellId, 0, &NbapRadioBearerReleaseRequest{RbId: request.RbId})
		r.recordCellLoad(cell)
	case *CellJoinRequest:
		r.handleCellJoinRequest(requester, ueId, cell, transactionId, request)
	case *CellLeaveRequest:
		joined := cell.Joined(ueId)
		r.releaseCellUe(cell, ueId)
		if requester != r.rncId && joined {
			r.relayLeave(ueId)
		}
		r.respondCell(requester, ueId, cellId, transactionId, &CellLeaveResponse{})
	case *CellPrimaryDisable:
		cell.DisableShared(ueId, r.admission)
		r.recordCellLoad(cell)
	case *CellPrimaryEnable:
		if err := cell.EnableShared(ueId, r.admission); err != nil {
			r.CodeLog.Warnf("Shared channel of UE %d not restored in cell %d: %v", ueId, cellId, err)
		}
		r.recordCellLoad(cell)
	default:
		r.RncLog.Warnf("Unknown cell request %T", body)
	}
}

func (r *Rnc) handleCellBearerSetupRequest(requester RncId, ueId UeId, cell *CellContext, transactionId uint32, request *CellBearerSetupRequest) {
	if err := cell.ReserveBearer(ueId, requester, request.Plan, request.Primary, r.admission, r.codePlan); err != nil {
		r.CodeLog.Infof("Cell %d rejects radio bearer %d of UE %d: %v", cell.cellId, request.Plan.RbId, ueId, err)
		r.respondCell(requester, ueId, cell.cellId, transactionId, &CellBearerSetupResponse{
			RabId:    request.Plan.RabId,
			Accepted: false,
			Cause:    causeOf(err),
		})
		return
	}

	nbapTransactionId := r.transactionIdGenerator.AllocateTransactionId()
	r.pendingNbaps[nbapTransactionId] = &pendingNbap{
		procedure: nbapBearerSetup,

		requester:            requester,
		requestTransactionId: transactionId,

		ueId:   ueId,
		cellId: cell.cellId,
		rabId:  request.Plan.RabId,
		rbId:   request.Plan.RbId,
	}
	r.sendToNodeb(cell.nodebId, ueId, cell.cellId, nbapTransactionId, &NbapRadioBearerSetupRequest{
		Bearer: buildNbapBearerInfo(cell, ueId, request.Plan.RbId),
	})
	r.recordCellLoad(cell)
}

func (r *Rnc) handleCellJoinRequest(requester RncId, ueId UeId, cell *CellContext, transactionId uint32, request *CellJoinRequest) {
	if cell.HasUe(ueId) {
		r.HoLog.Warnf("UE %d already holds resources in cell %d", ueId, cell.cellId)
		r.respondCell(requester, ueId, cell.cellId, transactionId, &CellJoinResponse{Accepted: false, Cause: CauseStaleState})
		return
	}

	err := cell.ReserveSrb(ueId, requester, false, r.admission, r.codePlan)
	for i := 0; err == nil && i < len(request.Bearers); i++ {
		err = cell.ReserveBearer(ueId, requester, request.Bearers[i], false, r.admission, r.codePlan)
	}
	if err != nil {
		cell.ReleaseUe(ueId, r.admission)
		r.HoLog.Infof("Cell %d rejects UE %d joining: %v", cell.cellId, ueId, err)
		r.respondCell(requester, ueId, cell.cellId, transactionId, &CellJoinResponse{Accepted: false, Cause: causeOf(err)})
		return
	}

	nbapTransactionId := r.transactionIdGenerator.AllocateTransactionId()
	r.pendingNbaps[nbapTransactionId] = &pendingNbap{
		procedure: nbapJoin,

		requester:            requester,
		requestTransactionId: transactionId,

		ueId:   ueId,
		cellId: cell.cellId,
	}
	r.sendToNodeb(cell.nodebId, ueId, cell.cellId, nbapTransactionId, buildNbapRadioLinkSetupRequest(cell, ueId, false))
	r.recordCellLoad(cell)
}

// releaseCellUe frees everything the UE holds in a local cell and tears the
// radio link down at the NodeB.
func (r *Rnc) releaseCellUe(cell *CellContext, ueId UeId) {
	if !cell.HasUe(ueId) {
		return
	}
	for transactionId, pending := range r.pendingNbaps {
		if pending.ueId == ueId && pending.cellId == cell.cellId {
			delete(r.pendingNbaps, transactionId)
			r.transactionIdGenerator.ReleaseTransactionId(transactionId)
		}
	}
	cell.ReleaseUe(ueId, r.admission)
	r.sendToNodeb(cell.nodebId, ueId, cell.cellId, 0, &NbapRadioLinkDeletionRequest{})
	r.recordCellLoad(cell)
}

func (r *Rnc) handleCellResponse(ueId UeId, cellId CellId, transactionId uint32, body any) {
	ue, exists := r.ues[ueId]
	if !exists {
		r.RncLog.Debugf("Cell response %T for released UE %d discarded", body, ueId)
		return
	}

	switch response := body.(type) {
	case *CellBearerSetupResponse:
		r.handleCellBearerSetupResponse(ue, cellId, transactionId, response)
	case *CellJoinResponse:
		r.handleCellJoinResponse(ue, cellId, transactionId, response)
	case *CellLeaveResponse:
		r.handleCellLeaveResponse(ue, cellId, transactionId)
	default:
		r.RncLog.Warnf("Unknown cell response %T", body)
	}
}
