package rnc

import (
	"sort"

	"github.com/Alonza0314/free-rnc/constant"
	"github.com/free5gc/aper"
)

type RabState int

const (
	RabNull RabState = iota
	RabEstablishRequestQueued
	RabWaitForNodebSetup
	RabWaitForUeSetup
	RabEstablished
	RabReleaseRequestQueued
	RabWaitForUeRelease
)

func (s RabState) String() string {
	return enumName([]string{
		"Null",
		"EstablishRequestQueued",
		"WaitForNodebSetup",
		"WaitForUeSetup",
		"Established",
		"ReleaseRequestQueued",
		"WaitForUeRelease",
	}, "RabState", int(s))
}

// pendingRab collects the per-cell answers of one bearer setup fan-out.
// CauseNone marks an accepting cell.
type pendingRab struct {
	transactionId uint32
	expected      int
	responses     map[CellId]Cause
}

type RabRecord struct {
	rabId  uint8
	rbId   uint8
	domain CnDomain

	ul QosParams
	dl QosParams

	state RabState
	plan  BearerPlan
	teid  aper.OctetString

	pending *pendingRab
}

func (r *RabRecord) GetRabId() uint8 {
	return r.rabId
}

func (r *RabRecord) GetRbId() uint8 {
	return r.rbId
}

func (r *RabRecord) State() RabState {
	return r.state
}

func (r *RabRecord) GetTeid() aper.OctetString {
	return r.teid
}

func (r *RabRecord) Plan() BearerPlan {
	return r.plan
}

// rabGuard is the setup guard payload of a radio bearer procedure.
type rabGuard struct {
	rabId uint8
}

func trafficClassOf(ul QosParams, dl QosParams) TrafficClass {
	if dl.MaxBitRate == 0 {
		return ul.TrafficClass
	}
	return dl.TrafficClass
}

func (r *Rnc) handleRabAssignmentRequest(ueId UeId, request *RanapRabAssignmentRequest) {
	ue, exists := r.ues[ueId]
	if !exists || ue.rrcState != RrcConnected {
		r.RabLog.Warnf("RAB %d assignment for unknown UE %d", request.RabId, ueId)
		r.refuseRab(ueId, 0, request.RabId, CauseUnknownUe)
		return
	}

	if _, rab := ue.rabById(request.RabId); rab != nil {
		r.RabLog.Warnf("RAB %d of UE %d already in state %v", request.RabId, ueId, rab.state)
		r.refuseRab(ueId, ue.primaryCellId, request.RabId, CauseStaleState)
		return
	}

	slot := ue.freeRabSlot()
	if slot < 0 {
		r.RabLog.Warnf("No free RAB slot for UE %d", ueId)
		r.refuseRab(ueId, ue.primaryCellId, request.RabId, CauseNoFreeSlot)
		return
	}

	ue.rab[slot] = &RabRecord{
		rabId:  request.RabId,
		rbId:   constant.FIRST_RAB_RB_ID + uint8(slot),
		domain: request.Domain,

		ul: request.Ul,
		dl: request.Dl,

		state: RabEstablishRequestQueued,
	}
	r.queue.Push(&QueuedRequest{
		Kind:         RequestSetup,
		UeId:         ueId,
		RabId:        request.RabId,
		Domain:       request.Domain,
		TrafficClass: trafficClassOf(request.Ul, request.Dl),
	})
	r.RabLog.Infof("RAB %d of UE %d queued, %d requests waiting", request.RabId, ueId, r.queue.Len())

	r.serviceNext()
}

func (r *Rnc) handleRabReleaseRequest(ueId UeId, request *RanapRabReleaseRequest) {
	ue, exists := r.ues[ueId]
	if !exists {
		r.sendToCore(ueId, 0, &RanapRabReleaseResponse{RabId: request.RabId, Success: false, Cause: CauseUnknownUe})
		return
	}

	slot, rab := ue.rabById(request.RabId)
	if rab == nil {
		r.sendToCore(ueId, ue.primaryCellId, &RanapRabReleaseResponse{RabId: request.RabId, Success: false, Cause: CauseStaleState})
		return
	}

	switch rab.state {
	case RabEstablished:
		rab.state = RabReleaseRequestQueued
		r.queue.Push(&QueuedRequest{
			Kind:         RequestRelease,
			UeId:         ueId,
			RabId:        rab.rabId,
			Domain:       rab.domain,
			TrafficClass: trafficClassOf(rab.ul, rab.dl),
		})
		r.RabLog.Infof("RAB %d release of UE %d queued", rab.rabId, ueId)
		r.serviceNext()
	case RabEstablishRequestQueued:
		if r.queue.RemoveRab(ueId, rab.rabId) == nil {
			ue.unpark(rab.rabId)
		}
		ue.rab[slot] = nil
		r.sendToCore(ueId, ue.primaryCellId, buildRabAssignmentFailure(rab.rabId, CauseNormalRelease))
		r.sendToCore(ueId, ue.primaryCellId, &RanapRabReleaseResponse{RabId: rab.rabId, Success: true})
		r.RabLog.Infof("Queued RAB %d of UE %d withdrawn", rab.rabId, ueId)
	case RabReleaseRequestQueued, RabWaitForUeRelease:
		r.RabLog.Debugf("Duplicate release of RAB %d of UE %d", rab.rabId, ueId)
	default:
		r.RabLog.Warnf("RAB %d of UE %d cannot be released in state %v", rab.rabId, ueId, rab.state)
		r.sendToCore(ueId, ue.primaryCellId, &RanapRabReleaseResponse{RabId: rab.rabId, Success: false, Cause: CauseStaleState})
	}
}

func (u *UeContext) unpark(rabId uint8) {
	for i, request := range u.parked {
		if request.RabId == rabId {
			u.parked = append(u.parked[:i], u.parked[i+1:]...)
			return
		}
	}
}

// serviceNext starts queued requests until one is left in flight. Requests
// of a UE in a handover transition are parked on the UE.
func (r *Rnc) serviceNext() {
	for r.inService == nil {
		request := r.queue.Pop()
		if request == nil {
			return
		}
		ue, exists := r.ues[request.UeId]
		if !exists {
			continue
		}
		if ue.transition != nil {
			r.RabLog.Debugf("UE %d in handover, parking %v request of RAB %d", ue.ueId, request.Kind, request.RabId)
			ue.parked = append(ue.parked, request)
			continue
		}

		r.inService = request
		var inFlight bool
		switch request.Kind {
		case RequestSetup:
			inFlight = r.startRabSetup(ue, request)
		case RequestRelease:
			inFlight = r.startRabRelease(ue, request)
		}
		if !inFlight {
			r.inService = nil
		}
	}
}

func (r *Rnc) finishRequest() {
	r.inService = nil
	r.serviceNext()
}

func (r *Rnc) inServiceFor(ue *UeContext) bool {
	return r.inService != nil && r.inService.UeId == ue.ueId
}

func (r *Rnc) startRabSetup(ue *UeContext, request *QueuedRequest) bool {
	slot, rab := ue.rabById(request.RabId)
	if rab == nil || rab.state != RabEstablishRequestQueued {
		return false
	}

	plan, err := MapQos(rab.rabId, rab.rbId, rab.domain, rab.ul, rab.dl, r.codePlan.HsdpaEnabled)
	if err != nil {
		r.RabLog.Warnf("RAB %d of UE %d: %v", rab.rabId, ue.ueId, err)
		r.rejectRab(ue, slot, CauseUnsupportedQos)
		return false
	}

	if !r.admission.AdmitUe(ue.channels.AllocatedUlRate(), plan.Ul.MaxBitRate) {
		r.RabLog.Warnf("RAB %d of UE %d exceeds the UE uplink capacity", rab.rabId, ue.ueId)
		r.rejectRab(ue, slot, CauseCapacity)
		return false
	}
	if err := ue.channels.ReserveBearer(plan, r.codePlan); err != nil {
		r.RabLog.Warnf("RAB %d of UE %d UE-side reservation failed: %v", rab.rabId, ue.ueId, err)
		r.rejectRab(ue, slot, causeOf(err))
		return false
	}
	rab.plan = plan

	active := ue.ActiveSet()
	rab.pending = &pendingRab{
		transactionId: r.transactionIdGenerator.AllocateTransactionId(),
		expected:      len(active),
		responses:     make(map[CellId]Cause),
	}
	rab.state = RabWaitForNodebSetup
	r.RabLog.Debugf("RAB %d of UE %d fanned out to %d cells", rab.rabId, ue.ueId, len(active))

	for _, cellId := range active {
		cellRequest := &CellBearerSetupRequest{Plan: plan, Primary: cellId == ue.primaryCellId}
		if !r.sendCellRequest(ue.ueId, cellId, rab.pending.transactionId, cellRequest) {
			r.sendToRnc(r.rncId, ue.ueId, cellId, rab.pending.transactionId, &CellBearerSetupResponse{
				RabId:    rab.rabId,
				Accepted: false,
				Cause:    CauseStaleState,
			})
		}
	}
	return true
}

func (r *Rnc) handleCellBearerSetupResponse(ue *UeContext, cellId CellId, transactionId uint32, response *CellBearerSetupResponse) {
	slot, rab := ue.rabById(response.RabId)
	if rab == nil || rab.state != RabWaitForNodebSetup || rab.pending == nil || rab.pending.transactionId != transactionId {
		r.RabLog.Debugf("Stale bearer setup response from cell %d for RAB %d of UE %d", cellId, response.RabId, ue.ueId)
		return
	}

	cause := CauseNone
	if !response.Accepted {
		cause = response.Cause
		if cause == CauseNone {
			cause = CauseCapacity
		}
	}
	rab.pending.responses[cellId] = cause
	r.RabLog.Tracef("RAB %d of UE %d: cell %d answered %v (%d/%d)", rab.rabId, ue.ueId, cellId, cause, len(rab.pending.responses), rab.pending.expected)

	if len(rab.pending.responses) < rab.pending.expected {
		return
	}
	r.resolveRabSetup(ue, slot, rab)
}

// resolveRabSetup applies the union of the cell answers once every active
// set cell has answered. Only a full acceptance that includes the primary
// proceeds.
func (r *Rnc) resolveRabSetup(ue *UeContext, slot int, rab *RabRecord) {
	pending := rab.pending
	rab.pending = nil
	r.transactionIdGenerator.ReleaseTransactionId(pending.transactionId)

	accepted := make([]CellId, 0, len(pending.responses))
	primaryAccepted := false
	rejectCause := CauseNone
	for cellId, cause := range pending.responses {
		if cause == CauseNone {
			accepted = append(accepted, cellId)
			if cellId == ue.primaryCellId {
				primaryAccepted = true
			}
			continue
		}
		if rejectCause == CauseNone || cellId == ue.primaryCellId {
			rejectCause = cause
		}
	}
	sort.Slice(accepted, func(i, j int) bool { return accepted[i] < accepted[j] })

	switch {
	case len(accepted) == 0:
		r.RabLog.Warnf("RAB %d of UE %d rejected by every cell", rab.rabId, ue.ueId)
	case !primaryAccepted:
		r.RabLog.Warnf("RAB %d of UE %d rejected by primary cell %d", rab.rabId, ue.ueId, ue.primaryCellId)
	case len(accepted) == pending.expected:
		rab.state = RabWaitForUeSetup
		r.startTimer(&ue.setupGuard, r.timer.ConnectionSetupGuard, TimerEvent{
			Kind:    TimerConnectionSetupGuard,
			UeId:    ue.ueId,
			Payload: rabGuard{rabId: rab.rabId},
		})
		r.sendRrc(ue, &RrcRadioBearerSetup{Plan: rab.plan, UlCodes: ue.channels.UlCodes(rab.rbId)})
		r.RabLog.Infof("RAB %d of UE %d accepted by %d cells, radio bearer %d setup sent", rab.rabId, ue.ueId, len(accepted), rab.rbId)
		return
	default:
		r.RabLog.Warnf("RAB %d of UE %d accepted by %d of %d cells", rab.rabId, ue.ueId, len(accepted), pending.expected)
	}

	r.releaseBearerAtCells(ue, accepted, rab.rbId)
	ue.channels.Release(rab.rbId)
	r.rejectRab(ue, slot, rejectCause)
	r.finishRequest()
}

func (r *Rnc) releaseBearerAtCells(ue *UeContext, cellIds []CellId, rbId uint8) {
	for _, cellId := range cellIds {
		if !r.sendCellRequest(ue.ueId, cellId, 0, &CellBearerReleaseRequest{RbId: rbId}) {
			r.RabLog.Warnf("Cannot release radio bearer %d of UE %d at unresolved cell %d", rbId, ue.ueId, cellId)
		}
	}
}

func (r *Rnc) rejectRab(ue *UeContext, slot int, cause Cause) {
	rab := ue.rab[slot]
	ue.rab[slot] = nil
	r.refuseRab(ue.ueId, ue.primaryCellId, rab.rabId, cause)
}

func (r *Rnc) refuseRab(ueId UeId, cellId CellId, rabId uint8, cause Cause) {
	r.sendToCore(ueId, cellId, buildRabAssignmentFailure(rabId, cause))
	r.recorder.RecordEvent(r.rncId, ueId, cellId, EventRabRejected, cause)
}

func (r *Rnc) handleRadioBearerSetupComplete(ue *UeContext, complete *RrcRadioBearerSetupComplete) {
	_, rab := ue.rabByRb(complete.RbId)
	if rab == nil || rab.state != RabWaitForUeSetup {
		r.RabLog.Warnf("Unexpected radio bearer %d setup complete from UE %d", complete.RbId, ue.ueId)
		return
	}

	r.cancelTimer(&ue.setupGuard)
	ue.channels.Commit(rab.rbId)
	rab.teid = r.teidGenerator.AllocateTeid()
	rab.state = RabEstablished

	r.sendToCore(ue.ueId, ue.primaryCellId, buildRabAssignmentSuccess(rab.rabId, rab.teid))
	r.recorder.RecordEvent(r.rncId, ue.ueId, ue.primaryCellId, EventRabEstablished, CauseNone)
	r.RabLog.Infof("RAB %d of UE %d established on radio bearer %d", rab.rabId, ue.ueId, rab.rbId)

	r.finishRequest()
}

func (r *Rnc) handleRadioBearerSetupFailure(ue *UeContext, failure *RrcRadioBearerSetupFailure) {
	slot, rab := ue.rabByRb(failure.RbId)
	if rab == nil || rab.state != RabWaitForUeSetup {
		r.RabLog.Warnf("Unexpected radio bearer %d setup failure from UE %d", failure.RbId, ue.ueId)
		return
	}
	r.cancelTimer(&ue.setupGuard)
	r.rollbackRab(ue, slot, CauseUeRejected)
}

// rollbackRab undoes a bearer that every cell accepted but the UE did not
// confirm.
func (r *Rnc) rollbackRab(ue *UeContext, slot int, cause Cause) {
	rab := ue.rab[slot]
	r.RabLog.Warnf("RAB %d of UE %d rolled back: %v", rab.rabId, ue.ueId, cause)
	r.releaseBearerAtCells(ue, ue.ActiveSet(), rab.rbId)
	ue.channels.Release(rab.rbId)
	r.rejectRab(ue, slot, cause)
	r.finishRequest()
}

func (r *Rnc) startRabRelease(ue *UeContext, request *QueuedRequest) bool {
	_, rab := ue.rabById(request.RabId)
	if rab == nil || rab.state != RabReleaseRequestQueued {
		return false
	}

	ue.channels.Release(rab.rbId)
	r.releaseBearerAtCells(ue, ue.ActiveSet(), rab.rbId)
	rab.state = RabWaitForUeRelease
	r.startTimer(&ue.setupGuard, r.timer.ConnectionSetupGuard, TimerEvent{
		Kind:    TimerConnectionSetupGuard,
		UeId:    ue.ueId,
		Payload: rabGuard{rabId: rab.rabId},
	})
	r.sendRrc(ue, &RrcRadioBearerRelease{RbId: rab.rbId})
	r.RabLog.Infof("RAB %d of UE %d released at the network, waiting for the UE", rab.rabId, ue.ueId)
	return true
}

func (r *Rnc) handleRadioBearerReleaseComplete(ue *UeContext, complete *RrcRadioBearerReleaseComplete) {
	slot, rab := ue.rabByRb(complete.RbId)
	if rab == nil || rab.state != RabWaitForUeRelease {
		r.RabLog.Warnf("Unexpected radio bearer %d release complete from UE %d", complete.RbId, ue.ueId)
		return
	}
	r.cancelTimer(&ue.setupGuard)
	r.completeRabRelease(ue, slot)
}

func (r *Rnc) completeRabRelease(ue *UeContext, slot int) {
	rab := ue.rab[slot]
	ue.rab[slot] = nil
	if len(rab.teid) != 0 {
		if err := r.teidGenerator.ReleaseTeid(rab.teid); err != nil {
			r.RabLog.Warnf("RAB %d of UE %d: %v", rab.rabId, ue.ueId, err)
		}
	}

	r.sendToCore(ue.ueId, ue.primaryCellId, &RanapRabReleaseResponse{RabId: rab.rabId, Success: true})
	r.recorder.RecordEvent(r.rncId, ue.ueId, ue.primaryCellId, EventRabReleased, CauseNormalRelease)
	r.RabLog.Infof("RAB %d of UE %d released", rab.rabId, ue.ueId)

	r.finishRequest()
}

// handleRabGuardExpiry treats a silent UE as a failed setup, or as a
// finished release since the network side is already gone.
func (r *Rnc) handleRabGuardExpiry(ue *UeContext, guard rabGuard) {
	slot, rab := ue.rabById(guard.rabId)
	if rab == nil {
		return
	}
	switch rab.state {
	case RabWaitForUeSetup:
		r.rollbackRab(ue, slot, CauseGuardExpiry)
	case RabWaitForUeRelease:
		r.RabLog.Warnf("UE %d did not confirm release of RAB %d", ue.ueId, rab.rabId)
		r.completeRabRelease(ue, slot)
	}
}

func buildRabAssignmentSuccess(rabId uint8, teid aper.OctetString) *RanapRabAssignmentResponse {
	return &RanapRabAssignmentResponse{
		RabId:   rabId,
		Success: true,
		Cause:   CauseNone,
		Teid:    teid,
	}
}

func buildRabAssignmentFailure(rabId uint8, cause Cause) *RanapRabAssignmentResponse {
	return &RanapRabAssignmentResponse{
		RabId:   rabId,
		Success: false,
		Cause:   cause,
	}
}
