package rnc

import (
	"math"

	"github.com/Alonza0314/free-rnc/constant"
)

// handleUplinkRrc takes an RRC message received in a local cell. A relay
// hands it to the anchor untouched.
func (r *Rnc) handleUplinkRrc(ueId UeId, cellId CellId, body any) {
	if role, ok := r.roleOf(ueId).(relayRole); ok {
		r.RrcLog.Tracef("UE %d anchored on RNC %d, forwarding %T", ueId, role.relayUe.anchor, body)
		r.sendIur(role.relayUe.anchor, ueId, cellId, 0, &IurUplinkTransfer{Rrc: body})
		return
	}
	r.handleRrc(ueId, cellId, body)
}

func (r *Rnc) handleRrc(ueId UeId, cellId CellId, body any) {
	if request, ok := body.(*RrcConnectionRequest); ok {
		r.handleConnectionRequest(ueId, cellId, request)
		return
	}

	ue, exists := r.ues[ueId]
	if !exists {
		r.RrcLog.Debugf("RRC %T from UE %d without context discarded", body, ueId)
		return
	}

	switch message := body.(type) {
	case *RrcConnectionSetupComplete:
		r.handleConnectionSetupComplete(ue)
	case *RrcConnectionReleaseComplete:
		r.RrcLog.Tracef("UE %d confirmed connection release", ueId)
	case *RrcRadioBearerSetupComplete:
		r.handleRadioBearerSetupComplete(ue, message)
	case *RrcRadioBearerSetupFailure:
		r.handleRadioBearerSetupFailure(ue, message)
	case *RrcRadioBearerReleaseComplete:
		r.handleRadioBearerReleaseComplete(ue, message)
	case *RrcActiveSetUpdateComplete:
		r.handleActiveSetUpdateComplete(ue)
	case *RrcActiveSetUpdateFailure:
		r.handleActiveSetUpdateFailure(ue, message)
	case *RrcMeasurementReport:
		r.handleMeasurementReport(ue, message)
	case *RrcSignallingConnectionReleaseIndication:
		r.handleSignallingConnectionReleaseIndication(ue, message)
	case *RrcStatus:
		if !message.Fatal {
			r.RrcLog.Warnf("UE %d reports %v", ueId, message.Cause)
			return
		}
		r.RrcLog.Errorf("UE %d reports a fatal error: %v", ueId, message.Cause)
		r.releaseConnection(ue, CauseLowerLayerError, true)
	case *RrcUplinkDirectTransfer:
		r.handleUplinkDirectTransfer(ue, message)
	default:
		r.RrcLog.Warnf("Unknown RRC message %T from UE %d", body, ueId)
	}
}

func (r *Rnc) handleConnectionRequest(ueId UeId, cellId CellId, request *RrcConnectionRequest) {
	if ue, exists := r.ues[ueId]; exists {
		if ue.setup != nil && ue.setup.cellId == cellId {
			r.RrcLog.Infof("Retransmitted connection request from UE %d in cell %d", ueId, cellId)
			if ue.setup.nodebAcked {
				r.sendConnectionSetup(ue)
			}
			r.startTimer(&ue.setupGuard, r.timer.ConnectionSetupGuard, TimerEvent{Kind: TimerConnectionSetupGuard, UeId: ueId})
			return
		}
		r.RrcLog.Warnf("Connection request from UE %d in cell %d conflicts with its context, releasing", ueId, cellId)
		r.releaseConnection(ue, CauseStaleState, true)
	}

	cell, local := r.cells[cellId]
	if !local {
		r.rejectConnection(ueId, cellId, CauseStaleState)
		return
	}

	ue := NewUeContext(ueId, request.PrimaryScramblingCode)
	if err := ue.channels.ReserveSrb(r.codePlan); err != nil {
		r.rejectConnection(ueId, cellId, causeOf(err))
		return
	}
	if err := cell.ReserveSrb(ueId, r.rncId, true, r.admission, r.codePlan); err != nil {
		ue.channels.ReleaseAll()
		r.rejectConnection(ueId, cellId, causeOf(err))
		return
	}
	r.recordCellLoad(cell)

	ue.srbRate = float64(constant.SRB_BIT_RATE)
	if codes := cell.DlCodes(ueId, constant.SRB_RB_ID); len(codes) > 0 {
		ue.srbSpreadingFactor = SpreadingFactorOf(codes[0])
	}
	ue.primaryCellId = cellId
	ue.setup = &connectionSetup{
		cellId:        cellId,
		transactionId: r.transactionIdGenerator.AllocateTransactionId(),
	}
	r.ues[ueId] = ue

	r.pendingNbaps[ue.setup.transactionId] = &pendingNbap{
		procedure: nbapConnectionSetup,

		requester: r.rncId,

		ueId:   ueId,
		cellId: cellId,
		rbId:   constant.SRB_RB_ID,
	}
	r.sendToNodeb(cell.nodebId, ueId, cellId, ue.setup.transactionId, buildNbapRadioLinkSetupRequest(cell, ueId, true))
	r.startTimer(&ue.setupGuard, r.timer.ConnectionSetupGuard, TimerEvent{Kind: TimerConnectionSetupGuard, UeId: ueId})

	r.RrcLog.Infof("UE %d connecting in cell %d, signalling bearer at SF%d", ueId, cellId, ue.srbSpreadingFactor)
}

// handleForwardedConnectionRequest drops the context of a UE that asks for a
// connection in a cell of a relay, then lets the relay set it up afresh.
func (r *Rnc) handleForwardedConnectionRequest(relay RncId, ueId UeId, cellId CellId, request *RrcConnectionRequest) {
	if ue, exists := r.ues[ueId]; exists {
		r.RrcLog.Warnf("UE %d requests a connection in cell %d of RNC %d, releasing its context", ueId, cellId, relay)
		r.releaseConnection(ue, CauseStaleState, true)
	}
	r.sendIur(relay, ueId, cellId, 0, &IurConnectionRequest{Request: request})
}

func (r *Rnc) rejectConnection(ueId UeId, cellId CellId, cause Cause) {
	r.RrcLog.Warnf("Connection of UE %d in cell %d rejected: %v", ueId, cellId, cause)
	r.sendToUe(ueId, cellId, &RrcConnectionReject{Cause: cause})
	r.recorder.RecordEvent(r.rncId, ueId, cellId, EventRrcRejected, cause)
}

func (r *Rnc) sendConnectionSetup(ue *UeContext) {
	setup := &RrcConnectionSetup{SrbUlCodes: ue.channels.UlCodes(constant.SRB_RB_ID)}
	if cell, exists := r.cells[ue.setup.cellId]; exists {
		setup.SrbDlCodes = cell.DlCodes(ue.ueId, constant.SRB_RB_ID)
	}
	r.sendToUe(ue.ueId, ue.setup.cellId, setup)
}

func (r *Rnc) handleConnectionSetupAck(pending *pendingNbap, success bool) {
	ue, exists := r.ues[pending.ueId]
	if !exists || ue.setup == nil || ue.setup.cellId != pending.cellId {
		r.RrcLog.Debugf("Radio link ack for abandoned setup of UE %d", pending.ueId)
		return
	}

	if !success {
		r.abandonSetup(ue)
		r.rejectConnection(ue.ueId, pending.cellId, CauseNodebRejected)
		return
	}

	if cell, exists := r.cells[pending.cellId]; exists {
		cell.Commit(ue.ueId)
	}
	ue.setup.nodebAcked = true
	r.sendConnectionSetup(ue)
}

func (r *Rnc) handleConnectionSetupComplete(ue *UeContext) {
	if ue.setup == nil || !ue.setup.nodebAcked {
		r.RrcLog.Warnf("Unexpected connection setup complete from UE %d", ue.ueId)
		return
	}

	r.cancelTimer(&ue.setupGuard)
	ue.channels.Commit(constant.SRB_RB_ID)

	ue.rrcState = RrcConnected
	ue.rrcSubstate = CellDch
	ue.primaryCellId = ue.setup.cellId
	ue.monitoredCells = append(ue.monitoredCells, &MonitoredCell{
		CellId:     ue.setup.cellId,
		Dbm:        math.Inf(-1),
		Membership: ActiveSet,
		Timestamp:  r.scheduler.Now(),
	})
	ue.setup = nil

	r.startTimer(&ue.livenessGuard, r.timer.MeasurementLiveness, TimerEvent{Kind: TimerMeasurementLiveness, UeId: ue.ueId})
	r.recorder.RecordEvent(r.rncId, ue.ueId, ue.primaryCellId, EventRrcConnected, CauseNone)
	r.RrcLog.Infof("UE %d connected in cell %d", ue.ueId, ue.primaryCellId)
}

func (r *Rnc) handleSetupGuardExpiry(ue *UeContext, payload any) {
	if guard, ok := payload.(rabGuard); ok {
		r.handleRabGuardExpiry(ue, guard)
		return
	}
	if ue.setup == nil {
		return
	}
	r.RrcLog.Warnf("Connection setup of UE %d in cell %d timed out", ue.ueId, ue.setup.cellId)
	cellId := ue.setup.cellId
	r.abandonSetup(ue)
	r.recorder.RecordEvent(r.rncId, ue.ueId, cellId, EventRrcGuardExpired, CauseGuardExpiry)
}

// abandonSetup drops a connection that never reached Connected.
func (r *Rnc) abandonSetup(ue *UeContext) {
	r.cancelTimer(&ue.setupGuard)
	if cell, exists := r.cells[ue.setup.cellId]; exists {
		r.releaseCellUe(cell, ue.ueId)
	}
	if pending, exists := r.pendingNbaps[ue.setup.transactionId]; exists && pending.ueId == ue.ueId {
		delete(r.pendingNbaps, ue.setup.transactionId)
		r.transactionIdGenerator.ReleaseTransactionId(ue.setup.transactionId)
	}
	ue.channels.ReleaseAll()
	ue.setup = nil
	delete(r.ues, ue.ueId)
}

// releaseConnection is the single teardown path of a UE context: it settles
// every RAB towards the core, frees the resources on every serving cell and
// drops the context.
func (r *Rnc) releaseConnection(ue *UeContext, cause Cause, notifyCore bool) {
	r.RrcLog.Infof("Releasing connection of UE %d: %v", ue.ueId, cause)

	r.cancelTimer(&ue.setupGuard)
	r.cancelTimer(&ue.livenessGuard)

	if ue.transition != nil {
		r.transactionIdGenerator.ReleaseTransactionId(ue.transition.transactionId())
		ue.transition = nil
	}
	ue.heldDownlink = nil

	r.queue.RemoveUe(ue.ueId)
	ue.parked = nil
	wasInService := r.inServiceFor(ue)

	for slot, rab := range ue.rab {
		if rab == nil {
			continue
		}
		switch rab.state {
		case RabEstablishRequestQueued, RabWaitForNodebSetup, RabWaitForUeSetup:
			if rab.pending != nil {
				r.transactionIdGenerator.ReleaseTransactionId(rab.pending.transactionId)
			}
			r.sendToCore(ue.ueId, ue.primaryCellId, buildRabAssignmentFailure(rab.rabId, cause))
		case RabReleaseRequestQueued, RabWaitForUeRelease:
			r.sendToCore(ue.ueId, ue.primaryCellId, &RanapRabReleaseResponse{RabId: rab.rabId, Success: true})
		}
		if len(rab.teid) != 0 {
			if err := r.teidGenerator.ReleaseTeid(rab.teid); err != nil {
				r.RabLog.Warnf("RAB %d of UE %d: %v", rab.rabId, ue.ueId, err)
			}
		}
		ue.rab[slot] = nil
	}

	if ue.rrcState == RrcConnected || (ue.setup != nil && ue.setup.nodebAcked) {
		r.sendRrc(ue, &RrcConnectionRelease{Cause: cause})
	}

	peers := make(map[RncId]CellId)
	for _, cellId := range ue.servingCells() {
		if cell, local := r.cells[cellId]; local {
			r.releaseCellUe(cell, ue.ueId)
			continue
		}
		if entry, known := r.directory.Lookup(cellId); known {
			peers[entry.RncId] = cellId
		}
	}
	for peer, cellId := range peers {
		r.sendIur(peer, ue.ueId, cellId, 0, &IurAnchorUpdate{Release: true})
	}
	if ue.setup != nil {
		if _, exists := r.pendingNbaps[ue.setup.transactionId]; exists {
			delete(r.pendingNbaps, ue.setup.transactionId)
			r.transactionIdGenerator.ReleaseTransactionId(ue.setup.transactionId)
		}
		ue.setup = nil
	}

	ue.channels.ReleaseAll()
	ue.rrcState = RrcIdle
	ue.rrcSubstate = CampedNormally
	if notifyCore {
		r.sendToCore(ue.ueId, ue.primaryCellId, buildIuReleaseRequest(cause))
	}
	delete(r.ues, ue.ueId)
	r.recorder.RecordEvent(r.rncId, ue.ueId, ue.primaryCellId, EventRrcReleased, cause)

	if wasInService {
		r.finishRequest()
		return
	}
	r.serviceNext()
}

func (r *Rnc) handleSignallingConnectionReleaseIndication(ue *UeContext, indication *RrcSignallingConnectionReleaseIndication) {
	r.RrcLog.Infof("UE %d releases its %v signalling connection", ue.ueId, indication.Domain)
	ue.signalConnByDomain[indication.Domain] = false
	if ue.signalConnByDomain[DomainCs] || ue.signalConnByDomain[DomainPs] {
		return
	}
	r.releaseConnection(ue, CauseNormalRelease, true)
}

func (r *Rnc) handleUplinkDirectTransfer(ue *UeContext, transfer *RrcUplinkDirectTransfer) {
	if !ue.signalConnByDomain[transfer.Domain] {
		ue.signalConnByDomain[transfer.Domain] = true
		r.RrcLog.Debugf("UE %d opens its %v signalling connection", ue.ueId, transfer.Domain)
		r.sendToCore(ue.ueId, ue.primaryCellId, buildInitialUeMessage(transfer))
		return
	}
	r.sendToCore(ue.ueId, ue.primaryCellId, buildUplinkDirectTransfer(transfer))
}

// sendRrc sends a downlink RRC message through the primary cell, or through
// the setup cell while the connection is being established. Direct
// transfers wait out a primary switch.
func (r *Rnc) sendRrc(ue *UeContext, body any) {
	if _, ok := body.(*RrcDownlinkDirectTransfer); ok && ue.PrimarySwitchInProgress() {
		ue.heldDownlink = append(ue.heldDownlink, body)
		return
	}
	cellId := ue.primaryCellId
	if ue.setup != nil {
		cellId = ue.setup.cellId
	}
	r.sendDownlinkRrc(ue.ueId, cellId, body)
}

func (r *Rnc) sendDownlinkRrc(ueId UeId, cellId CellId, body any) {
	owner, known := r.ownerOf(cellId)
	if !known {
		r.RrcLog.Warnf("Cell %d of UE %d unresolved, %T dropped", cellId, ueId, body)
		return
	}
	if owner == r.rncId {
		r.sendToUe(ueId, cellId, body)
		return
	}
	r.sendIur(owner, ueId, cellId, 0, &IurDownlinkTransfer{Rrc: body})
}
