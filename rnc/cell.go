package rnc

import (
	"errors"
	"fmt"
	"time"

	"github.com/Alonza0314/free-rnc/constant"
	"github.com/Alonza0314/free-rnc/model"
	"github.com/bits-and-blooms/bitset"
)

type cellBearer struct {
	rabId uint8
	rbId  uint8

	ulRate uint32
	dlRate uint32

	transportChannels [2][]uint
	dlCodes           []int

	shared       bool
	sharedActive bool

	committed bool
}

type cellUe struct {
	anchor  RncId
	primary bool

	bearers map[uint8]*cellBearer
}

// CellContext is the resource state of one cell hosted by this RNC.
type CellContext struct {
	cellId                CellId
	nodebId               NodebId
	primaryScramblingCode uint16

	codeTree          *CodeTree
	sharedPool        []int
	transportChannels [2]*bitset.BitSet

	allocated  [2]float64
	peak       [2]float64
	integral   [2]float64
	lastUpdate time.Duration

	sharedRate  float64
	sharedUsers int

	ues map[UeId]*cellUe

	now func() time.Duration
}

func NewCellContext(cellId CellId, nodebId NodebId, primaryScramblingCode uint16, codePlan model.CodePlanIE, now func() time.Duration) *CellContext {
	codeTree := NewCodeTree(constant.DL_MAX_SPREADING_FACTOR)
	codeTree.AllocateFixed(LevelOf(constant.COMMON_CHANNEL_SPREADING_FACTOR), constant.COMMON_CHANNEL_CODES)

	var sharedPool []int
	if codePlan.HsdpaEnabled {
		sharedPool = codeTree.ReserveSharedPool(LevelOf(constant.SHARED_CHANNEL_SPREADING_FACTOR), codePlan.SharedChannelCodes)
	}

	return &CellContext{
		cellId:                cellId,
		nodebId:               nodebId,
		primaryScramblingCode: primaryScramblingCode,

		codeTree:          codeTree,
		sharedPool:        sharedPool,
		transportChannels: [2]*bitset.BitSet{bitset.New(constant.MAX_CELL_TRANSPORT_CHANNEL), bitset.New(constant.MAX_CELL_TRANSPORT_CHANNEL)},

		lastUpdate: now(),

		ues: make(map[UeId]*cellUe),

		now: now,
	}
}

func (c *CellContext) GetCellId() CellId {
	return c.cellId
}

func (c *CellContext) GetNodebId() NodebId {
	return c.nodebId
}

func (c *CellContext) GetPrimaryScramblingCode() uint16 {
	return c.primaryScramblingCode
}

func (c *CellContext) CodeTree() *CodeTree {
	return c.codeTree
}

func (c *CellContext) AllocatedRate(direction Direction) float64 {
	return c.allocated[direction]
}

func (c *CellContext) PeakRate(direction Direction) float64 {
	return c.peak[direction]
}

func (c *CellContext) SharedRate() float64 {
	return c.sharedRate
}

func (c *CellContext) SharedUsers() int {
	return c.sharedUsers
}

// Utilization is the time-integrated allocated rate up to now, in bit.
func (c *CellContext) Utilization(direction Direction) float64 {
	c.advance()
	return c.integral[direction]
}

func (c *CellContext) advance() {
	now := c.now()
	elapsed := (now - c.lastUpdate).Seconds()
	if elapsed > 0 {
		c.integral[Uplink] += c.allocated[Uplink] * elapsed
		c.integral[Downlink] += c.allocated[Downlink] * elapsed
	}
	c.lastUpdate = now
}

func (c *CellContext) account(direction Direction, delta float64) {
	c.advance()
	c.allocated[direction] += delta
	if c.allocated[direction] < 0 {
		c.allocated[direction] = 0
	}
	if c.allocated[direction] > c.peak[direction] {
		c.peak[direction] = c.allocated[direction]
	}
}

func (c *CellContext) HasUe(ueId UeId) bool {
	_, exists := c.ues[ueId]
	return exists
}

func (c *CellContext) UeCount() int {
	return len(c.ues)
}

func (c *CellContext) AnchorOf(ueId UeId) (RncId, bool) {
	if ue, exists := c.ues[ueId]; exists {
		return ue.anchor, true
	}
	return 0, false
}

func (c *CellContext) UesOf(anchor RncId) []UeId {
	var ueIds []UeId
	for ueId, ue := range c.ues {
		if ue.anchor == anchor {
			ueIds = append(ueIds, ueId)
		}
	}
	return ueIds
}

func (c *CellContext) DlCodes(ueId UeId, rbId uint8) []int {
	ue, exists := c.ues[ueId]
	if !exists {
		return nil
	}
	if bearer, exists := ue.bearers[rbId]; exists {
		return bearer.dlCodes
	}
	return nil
}

// Joined reports whether the UE holds committed resources in the cell.
func (c *CellContext) Joined(ueId UeId) bool {
	ue, exists := c.ues[ueId]
	if !exists {
		return false
	}
	srb, exists := ue.bearers[constant.SRB_RB_ID]
	return exists && srb.committed
}

func (c *CellContext) HasBearer(ueId UeId, rbId uint8) bool {
	ue, exists := c.ues[ueId]
	if !exists {
		return false
	}
	_, exists = ue.bearers[rbId]
	return exists
}

func (c *CellContext) ueOf(ueId UeId, anchor RncId) *cellUe {
	ue, exists := c.ues[ueId]
	if !exists {
		ue = &cellUe{anchor: anchor, bearers: make(map[uint8]*cellBearer)}
		c.ues[ueId] = ue
	}
	return ue
}

func (c *CellContext) dropIfEmpty(ueId UeId) {
	if ue, exists := c.ues[ueId]; exists && len(ue.bearers) == 0 {
		delete(c.ues, ueId)
	}
}

func (c *CellContext) reserveSharedCodes(bearer *cellBearer, admission AdmissionControl) error {
	if !admission.AdmitShared(c, bearer.dlRate) {
		return ErrAdmissionRejected
	}
	codes := c.codeTree.Reserve(LevelOf(constant.SHARED_CHANNEL_SPREADING_FACTOR), 1, true)
	if len(codes) == 0 {
		return ErrInsufficientCapacity
	}
	bearer.dlCodes = codes
	bearer.sharedActive = true
	c.sharedRate += float64(bearer.dlRate) * admission.sharedOverhead
	c.sharedUsers++
	return nil
}

func (c *CellContext) releaseSharedCodes(bearer *cellBearer, admission AdmissionControl) {
	if !bearer.sharedActive {
		return
	}
	c.codeTree.Release(bearer.dlCodes)
	bearer.dlCodes = nil
	bearer.sharedActive = false
	c.sharedRate -= float64(bearer.dlRate) * admission.sharedOverhead
	if c.sharedRate < 0 {
		c.sharedRate = 0
	}
	c.sharedUsers--
}

func (c *CellContext) reserve(ueId UeId, anchor RncId, rabId uint8, rbId uint8, ulRate uint32, dlRate uint32, shared bool, primary bool, admission AdmissionControl, codePlan model.CodePlanIE) error {
	if c.HasBearer(ueId, rbId) {
		return ErrNoFreeSlot
	}
	if !admission.AdmitDedicated(c, Uplink, ulRate) {
		return ErrAdmissionRejected
	}
	if !shared && !admission.AdmitDedicated(c, Downlink, dlRate) {
		return ErrAdmissionRejected
	}

	bearer := &cellBearer{
		rabId: rabId,
		rbId:  rbId,

		ulRate: ulRate,
		dlRate: dlRate,

		shared: shared,
	}

	for _, direction := range []Direction{Uplink, Downlink} {
		slots, ok := takeSlots(c.transportChannels[direction], constant.MAX_CELL_TRANSPORT_CHANNEL, 1)
		if !ok {
			c.rollbackBearer(bearer, admission)
			return ErrNoFreeSlot
		}
		bearer.transportChannels[direction] = slots
	}

	if shared {
		if primary {
			if err := c.reserveSharedCodes(bearer, admission); err != nil {
				c.rollbackBearer(bearer, admission)
				return err
			}
		}
	} else if dlRate > 0 {
		codes, err := c.codeTree.ReserveRate(dlRate, codePlan.CodingMultiplier, constant.DL_BITS_PER_SYMBOL,
			constant.DL_MIN_SPREADING_FACTOR, constant.DL_MAX_SPREADING_FACTOR, codePlan.MaxCodesPerBearer)
		if err != nil {
			c.rollbackBearer(bearer, admission)
			return err
		}
		bearer.dlCodes = codes
	}

	c.account(Uplink, float64(ulRate))
	if !shared {
		c.account(Downlink, float64(dlRate))
	}

	ue := c.ueOf(ueId, anchor)
	if primary {
		ue.primary = true
	}
	ue.bearers[rbId] = bearer
	return nil
}

func (c *CellContext) rollbackBearer(bearer *cellBearer, admission AdmissionControl) {
	for _, direction := range []Direction{Uplink, Downlink} {
		freeSlots(c.transportChannels[direction], bearer.transportChannels[direction])
	}
	if bearer.shared {
		c.releaseSharedCodes(bearer, admission)
		return
	}
	c.codeTree.Release(bearer.dlCodes)
}

// ReserveSrb holds the signalling bearer resources of the UE in the cell.
func (c *CellContext) ReserveSrb(ueId UeId, anchor RncId, primary bool, admission AdmissionControl, codePlan model.CodePlanIE) error {
	return c.reserve(ueId, anchor, 0, constant.SRB_RB_ID, constant.SRB_BIT_RATE, constant.SRB_BIT_RATE, false, primary, admission, codePlan)
}

func (c *CellContext) ReserveBearer(ueId UeId, anchor RncId, plan BearerPlan, primary bool, admission AdmissionControl, codePlan model.CodePlanIE) error {
	return c.reserve(ueId, anchor, plan.RabId, plan.RbId, plan.Ul.MaxBitRate, plan.Dl.MaxBitRate, plan.Shared, primary, admission, codePlan)
}

// Commit turns every reserved bearer of the UE into an allocation.
func (c *CellContext) Commit(ueId UeId) {
	ue, exists := c.ues[ueId]
	if !exists {
		return
	}
	for _, bearer := range ue.bearers {
		if bearer.committed {
			continue
		}
		c.codeTree.Commit(bearer.dlCodes)
		bearer.committed = true
	}
}

func (c *CellContext) ReleaseBearer(ueId UeId, rbId uint8, admission AdmissionControl) {
	ue, exists := c.ues[ueId]
	if !exists {
		return
	}
	bearer, exists := ue.bearers[rbId]
	if !exists {
		return
	}
	c.rollbackBearer(bearer, admission)
	c.account(Uplink, -float64(bearer.ulRate))
	if !bearer.shared {
		c.account(Downlink, -float64(bearer.dlRate))
	}
	delete(ue.bearers, rbId)
	c.dropIfEmpty(ueId)
}

func (c *CellContext) ReleaseUe(ueId UeId, admission AdmissionControl) {
	ue, exists := c.ues[ueId]
	if !exists {
		return
	}
	for rbId := range ue.bearers {
		c.ReleaseBearer(ueId, rbId, admission)
	}
	delete(c.ues, ueId)
}

// DisableShared stops the shared channel of the UE when the cell loses the
// primary role.
func (c *CellContext) DisableShared(ueId UeId, admission AdmissionControl) {
	ue, exists := c.ues[ueId]
	if !exists {
		return
	}
	ue.primary = false
	for _, bearer := range ue.bearers {
		c.releaseSharedCodes(bearer, admission)
	}
}

// EnableShared restores the shared channel of every shared bearer of the UE
// once the cell is primary again. Bearers that cannot get a shared code stay
// without one; their errors are joined.
func (c *CellContext) EnableShared(ueId UeId, admission AdmissionControl) error {
	ue, exists := c.ues[ueId]
	if !exists {
		return nil
	}
	ue.primary = true

	var errs []error
	for rbId, bearer := range ue.bearers {
		if !bearer.shared || bearer.sharedActive {
			continue
		}
		if err := c.reserveSharedCodes(bearer, admission); err != nil {
			errs = append(errs, fmt.Errorf("radio bearer %d: %w", rbId, err))
			continue
		}
		c.codeTree.Commit(bearer.dlCodes)
	}
	return errors.Join(errs...)
}

func causeOf(err error) Cause {
	switch {
	case err == nil:
		return CauseNone
	case errors.Is(err, ErrUnsupportedQos):
		return CauseUnsupportedQos
	case errors.Is(err, ErrNoFreeSlot):
		return CauseNoFreeSlot
	default:
		return CauseCapacity
	}
}
