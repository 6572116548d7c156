package rnc

import (
	"sort"
	"time"

	"github.com/Alonza0314/free-rnc/constant"
)

type MonitoredCell struct {
	CellId     CellId
	Dbm        float64
	Membership Membership
	Timestamp  time.Duration
}

// connectionSetup is the in-flight RRC connection establishment.
type connectionSetup struct {
	cellId        CellId
	transactionId uint32
	nodebAcked    bool
}

// UeContext is the anchor-side state of one UE.
type UeContext struct {
	ueId                  UeId
	primaryScramblingCode uint16

	rrcState    RrcState
	rrcSubstate RrcSubstate

	primaryCellId         CellId
	previousPrimaryCellId CellId

	monitoredCells []*MonitoredCell

	rab      [constant.MAX_RAB]*RabRecord
	channels *UeChannelTable

	setupGuard    TimerHandle
	livenessGuard TimerHandle

	signalConnByDomain [2]bool

	srbRate            float64
	srbSpreadingFactor int

	setup        *connectionSetup
	transition   handoverTransition
	heldDownlink []any
	parked       []*QueuedRequest
}

func NewUeContext(ueId UeId, primaryScramblingCode uint16) *UeContext {
	return &UeContext{
		ueId:                  ueId,
		primaryScramblingCode: primaryScramblingCode,

		rrcState:    RrcIdle,
		rrcSubstate: CampedNormally,

		monitoredCells: make([]*MonitoredCell, 0),

		channels: NewUeChannelTable(),

		heldDownlink: make([]any, 0),
		parked:       make([]*QueuedRequest, 0),
	}
}

func (u *UeContext) GetUeId() UeId {
	return u.ueId
}

func (u *UeContext) RrcState() RrcState {
	return u.rrcState
}

func (u *UeContext) RrcSubstate() RrcSubstate {
	return u.rrcSubstate
}

func (u *UeContext) PrimaryCellId() CellId {
	return u.primaryCellId
}

func (u *UeContext) PreviousPrimaryCellId() CellId {
	return u.previousPrimaryCellId
}

func (u *UeContext) Channels() *UeChannelTable {
	return u.channels
}

func (u *UeContext) Rab(rabId uint8) (*RabRecord, bool) {
	_, rab := u.rabById(rabId)
	return rab, rab != nil
}

func (u *UeContext) SignalConnection(domain CnDomain) bool {
	return u.signalConnByDomain[domain]
}

func (u *UeContext) PrimarySwitchInProgress() bool {
	_, switching := u.transition.(*primarySwitch)
	return switching
}

func (u *UeContext) TransitionInFlight() bool {
	return u.transition != nil
}

func (u *UeContext) MonitoredCells() []MonitoredCell {
	cells := make([]MonitoredCell, 0, len(u.monitoredCells))
	for _, cell := range u.monitoredCells {
		cells = append(cells, *cell)
	}
	return cells
}

func (u *UeContext) monitored(cellId CellId) *MonitoredCell {
	for _, cell := range u.monitoredCells {
		if cell.CellId == cellId {
			return cell
		}
	}
	return nil
}

// ActiveSet lists the cells with ActiveSet membership, strongest first.
func (u *UeContext) ActiveSet() []CellId {
	active := make([]CellId, 0)
	for _, cell := range u.monitoredCells {
		if cell.Membership == ActiveSet {
			active = append(active, cell.CellId)
		}
	}
	return active
}

// servingCells lists every cell holding resources for the UE, including
// cells in the middle of joining or leaving.
func (u *UeContext) servingCells() []CellId {
	serving := make([]CellId, 0)
	for _, cell := range u.monitoredCells {
		if cell.Membership != Monitored {
			serving = append(serving, cell.CellId)
		}
	}
	if u.setup != nil && u.monitored(u.setup.cellId) == nil {
		serving = append(serving, u.setup.cellId)
	}
	return serving
}

func (u *UeContext) sortMonitored() {
	sort.SliceStable(u.monitoredCells, func(i, j int) bool {
		return u.monitoredCells[i].Dbm > u.monitoredCells[j].Dbm
	})
}

func (u *UeContext) rabById(rabId uint8) (int, *RabRecord) {
	for slot, rab := range u.rab {
		if rab != nil && rab.rabId == rabId {
			return slot, rab
		}
	}
	return -1, nil
}

func (u *UeContext) rabByRb(rbId uint8) (int, *RabRecord) {
	for slot, rab := range u.rab {
		if rab != nil && rab.rbId == rbId {
			return slot, rab
		}
	}
	return -1, nil
}

func (u *UeContext) freeRabSlot() int {
	for slot, rab := range u.rab {
		if rab == nil {
			return slot
		}
	}
	return -1
}

// bearerInFlight reports whether a RAB of the UE is between its queued and
// settled states.
func (u *UeContext) bearerInFlight() bool {
	for _, rab := range u.rab {
		if rab == nil {
			continue
		}
		switch rab.state {
		case RabWaitForNodebSetup, RabWaitForUeSetup, RabWaitForUeRelease:
			return true
		}
	}
	return false
}

func (u *UeContext) establishedPlans() []BearerPlan {
	plans := make([]BearerPlan, 0)
	for _, rab := range u.rab {
		if rab != nil && (rab.state == RabEstablished || rab.state == RabReleaseRequestQueued) {
			plans = append(plans, rab.plan)
		}
	}
	return plans
}
