package rnc

// handoverTransition is the single active-set change a UE may have in
// flight: activeSetAdd, activeSetRemove or primarySwitch.
type handoverTransition interface {
	transactionId() uint32
}

type addStep int

const (
	addAwaitingCell addStep = iota
	addAwaitingUe
)

type activeSetAdd struct {
	cellId CellId
	tx     uint32
	step   addStep
}

type removeStep int

const (
	removeAwaitingUe removeStep = iota
	removeAwaitingCell
)

// activeSetRemove with replace set chains into an activeSetAdd of
// replaceWith once the leave is confirmed.
type activeSetRemove struct {
	cellId CellId
	tx     uint32
	step   removeStep

	replaceWith CellId
	replace     bool
}

type primarySwitch struct {
	from CellId
	to   CellId
	tx   uint32
}

func (t *activeSetAdd) transactionId() uint32 {
	return t.tx
}

func (t *activeSetRemove) transactionId() uint32 {
	return t.tx
}

func (t *primarySwitch) transactionId() uint32 {
	return t.tx
}

func (r *Rnc) handleMeasurementReport(ue *UeContext, report *RrcMeasurementReport) {
	if ue.rrcState != RrcConnected {
		r.HoLog.Debugf("Measurement report from UE %d before connection, ignored", ue.ueId)
		return
	}
	r.startTimer(&ue.livenessGuard, r.timer.MeasurementLiveness, TimerEvent{Kind: TimerMeasurementLiveness, UeId: ue.ueId})

	now := r.scheduler.Now()
	for _, measurement := range report.Measurements {
		cell := ue.monitored(measurement.CellId)
		if cell == nil {
			cell = &MonitoredCell{CellId: measurement.CellId, Membership: Monitored}
			ue.monitoredCells = append(ue.monitoredCells, cell)
			r.ownerOf(measurement.CellId)
		}
		cell.Dbm = measurement.Dbm
		cell.Timestamp = now
	}
	ue.sortMonitored()

	if ue.transition != nil {
		return
	}
	r.evaluateHandover(ue)
}

func (r *Rnc) ownerKnown(cellId CellId) bool {
	if _, local := r.cells[cellId]; local {
		return true
	}
	_, known := r.directory.Lookup(cellId)
	return known
}

// evaluateHandover runs one pass of the soft handover decision over the
// sorted monitored cells and starts at most one transition.
func (r *Rnc) evaluateHandover(ue *UeContext) {
	var active []*MonitoredCell
	var candidate *MonitoredCell
	for _, cell := range ue.monitoredCells {
		switch {
		case cell.Membership == ActiveSet:
			active = append(active, cell)
		case cell.Membership == Monitored && candidate == nil && r.ownerKnown(cell.CellId):
			candidate = cell
		}
	}
	if len(active) == 0 {
		return
	}

	best, worst := active[0], active[len(active)-1]
	busy := ue.bearerInFlight() || r.inServiceFor(ue)
	threshold, hysteresis := r.handover.Threshold, r.handover.Hysteresis

	if len(active) > 1 && worst.Dbm < best.Dbm-(threshold+hysteresis) {
		if worst.CellId == ue.primaryCellId {
			r.startPrimarySwitch(ue, best.CellId)
			return
		}
		if !busy {
			r.startActiveSetRemove(ue, worst.CellId, 0, false)
		}
		return
	}

	if candidate == nil {
		return
	}

	if len(active) < r.handover.MaxActiveSet {
		if candidate.Dbm >= best.Dbm-(threshold-hysteresis) && !busy {
			r.startActiveSetAdd(ue, candidate.CellId)
		}
		return
	}

	if len(active) == r.handover.MaxActiveSet && candidate.Dbm > worst.Dbm+r.handover.ReplaceHysteresis {
		if worst.CellId == ue.primaryCellId {
			if best.CellId != worst.CellId {
				r.startPrimarySwitch(ue, best.CellId)
			}
			return
		}
		if !busy {
			r.startActiveSetRemove(ue, worst.CellId, candidate.CellId, true)
		}
	}
}

func (r *Rnc) startActiveSetAdd(ue *UeContext, cellId CellId) {
	cell := ue.monitored(cellId)
	if cell == nil || cell.Membership != Monitored {
		r.finishTransition(ue)
		return
	}

	cell.Membership = MonitoredToActive
	add := &activeSetAdd{cellId: cellId, tx: r.transactionIdGenerator.AllocateTransactionId(), step: addAwaitingCell}
	ue.transition = add
	r.HoLog.Infof("UE %d: adding cell %d to the active set", ue.ueId, cellId)

	if !r.sendCellRequest(ue.ueId, cellId, add.tx, &CellJoinRequest{Bearers: ue.establishedPlans()}) {
		cell.Membership = Monitored
		r.finishTransition(ue)
	}
}

func (r *Rnc) handleCellJoinResponse(ue *UeContext, cellId CellId, transactionId uint32, response *CellJoinResponse) {
	add, ok := ue.transition.(*activeSetAdd)
	if !ok || add.tx != transactionId || add.cellId != cellId || add.step != addAwaitingCell {
		r.HoLog.Debugf("Stale join response from cell %d for UE %d", cellId, ue.ueId)
		if response.Accepted {
			r.sendCellRequest(ue.ueId, cellId, 0, &CellLeaveRequest{})
		}
		return
	}

	if !response.Accepted {
		if cell := ue.monitored(cellId); cell != nil {
			cell.Membership = Monitored
		}
		r.HoLog.Infof("UE %d: cell %d refused to join: %v", ue.ueId, cellId, response.Cause)
		r.recorder.RecordEvent(r.rncId, ue.ueId, cellId, EventActiveSetAddRejected, response.Cause)
		r.finishTransition(ue)
		return
	}

	add.step = addAwaitingUe
	r.sendRrc(ue, &RrcActiveSetUpdate{Add: []CellId{cellId}, Primary: ue.primaryCellId})
}

func (r *Rnc) startActiveSetRemove(ue *UeContext, cellId CellId, replaceWith CellId, replace bool) {
	cell := ue.monitored(cellId)
	cell.Membership = ActiveToMonitored
	ue.transition = &activeSetRemove{
		cellId: cellId,
		tx:     r.transactionIdGenerator.AllocateTransactionId(),
		step:   removeAwaitingUe,

		replaceWith: replaceWith,
		replace:     replace,
	}
	if replace {
		r.HoLog.Infof("UE %d: replacing cell %d with cell %d", ue.ueId, cellId, replaceWith)
	} else {
		r.HoLog.Infof("UE %d: removing cell %d from the active set", ue.ueId, cellId)
	}
	r.sendRrc(ue, &RrcActiveSetUpdate{Remove: []CellId{cellId}, Primary: ue.primaryCellId})
}

func (r *Rnc) handleCellLeaveResponse(ue *UeContext, cellId CellId, transactionId uint32) {
	remove, ok := ue.transition.(*activeSetRemove)
	if !ok || remove.tx != transactionId || remove.cellId != cellId || remove.step != removeAwaitingCell {
		r.HoLog.Debugf("Stale leave response from cell %d for UE %d", cellId, ue.ueId)
		return
	}
	r.completeActiveSetRemove(ue, remove)
}

func (r *Rnc) completeActiveSetRemove(ue *UeContext, remove *activeSetRemove) {
	if cell := ue.monitored(remove.cellId); cell != nil {
		cell.Membership = Monitored
	}
	r.recorder.RecordEvent(r.rncId, ue.ueId, remove.cellId, EventActiveSetRemove, CauseNone)

	if !remove.replace {
		r.finishTransition(ue)
		return
	}
	r.transactionIdGenerator.ReleaseTransactionId(remove.tx)
	ue.transition = nil
	r.startActiveSetAdd(ue, remove.replaceWith)
}

func (r *Rnc) startPrimarySwitch(ue *UeContext, to CellId) {
	switching := &primarySwitch{
		from: ue.primaryCellId,
		to:   to,
		tx:   r.transactionIdGenerator.AllocateTransactionId(),
	}
	ue.transition = switching
	r.HoLog.Infof("UE %d: switching primary cell %d -> %d", ue.ueId, switching.from, to)

	r.sendCellRequest(ue.ueId, switching.from, switching.tx, &CellPrimaryDisable{})
	r.sendRrc(ue, &RrcActiveSetUpdate{Primary: to})
}

func (r *Rnc) handleActiveSetUpdateComplete(ue *UeContext) {
	switch transition := ue.transition.(type) {
	case *activeSetAdd:
		if transition.step != addAwaitingUe {
			break
		}
		if cell := ue.monitored(transition.cellId); cell != nil {
			cell.Membership = ActiveSet
		}
		r.recorder.RecordEvent(r.rncId, ue.ueId, transition.cellId, EventActiveSetAdd, CauseNone)
		r.finishTransition(ue)
		return
	case *activeSetRemove:
		if transition.step != removeAwaitingUe {
			break
		}
		transition.step = removeAwaitingCell
		if !r.sendCellRequest(ue.ueId, transition.cellId, transition.tx, &CellLeaveRequest{}) {
			r.completeActiveSetRemove(ue, transition)
		}
		return
	case *primarySwitch:
		ue.previousPrimaryCellId = transition.from
		ue.primaryCellId = transition.to
		r.sendCellRequest(ue.ueId, transition.to, transition.tx, &CellPrimaryEnable{})
		r.recorder.RecordEvent(r.rncId, ue.ueId, transition.to, EventPrimarySwitch, CauseNone)
		r.finishTransition(ue)
		return
	}
	r.HoLog.Warnf("Unexpected active set update complete from UE %d", ue.ueId)
}

// handleActiveSetUpdateFailure puts the UE back where it was before the
// transition started.
func (r *Rnc) handleActiveSetUpdateFailure(ue *UeContext, failure *RrcActiveSetUpdateFailure) {
	r.HoLog.Warnf("UE %d failed an active set update: %v", ue.ueId, failure.Cause)

	switch transition := ue.transition.(type) {
	case *activeSetAdd:
		if transition.step != addAwaitingUe {
			return
		}
		r.sendCellRequest(ue.ueId, transition.cellId, 0, &CellLeaveRequest{})
		if cell := ue.monitored(transition.cellId); cell != nil {
			cell.Membership = Monitored
		}
		r.recorder.RecordEvent(r.rncId, ue.ueId, transition.cellId, EventActiveSetAddRejected, CauseUeRejected)
	case *activeSetRemove:
		if transition.step != removeAwaitingUe {
			return
		}
		if cell := ue.monitored(transition.cellId); cell != nil {
			cell.Membership = ActiveSet
		}
	case *primarySwitch:
		r.sendCellRequest(ue.ueId, transition.from, 0, &CellPrimaryEnable{})
	default:
		return
	}
	r.finishTransition(ue)
}

// finishTransition clears the transition, flushes held downlink transfers,
// then services the requests parked meanwhile.
func (r *Rnc) finishTransition(ue *UeContext) {
	if ue.transition != nil {
		r.transactionIdGenerator.ReleaseTransactionId(ue.transition.transactionId())
		ue.transition = nil
	}

	held := ue.heldDownlink
	ue.heldDownlink = make([]any, 0)
	for _, body := range held {
		r.sendRrc(ue, body)
	}

	if !r.checkInvariants(ue) {
		return
	}

	for _, request := range ue.parked {
		r.queue.Push(request)
	}
	ue.parked = make([]*QueuedRequest, 0)
	r.serviceNext()
}

// checkInvariants releases the connection of a UE whose primary cell left
// the active set or whose active set overflowed.
func (r *Rnc) checkInvariants(ue *UeContext) bool {
	active := ue.ActiveSet()
	primary := ue.monitored(ue.primaryCellId)
	switch {
	case primary == nil || primary.Membership != ActiveSet:
		r.HoLog.Errorf("UE %d: primary cell %d outside the active set", ue.ueId, ue.primaryCellId)
	case len(active) > r.handover.MaxActiveSet:
		r.HoLog.Errorf("UE %d: active set of %d cells exceeds %d", ue.ueId, len(active), r.handover.MaxActiveSet)
	default:
		return true
	}
	r.releaseConnection(ue, CauseInvariantViolation, true)
	return false
}
