package rnc

import (
	"errors"
	"math"
	"time"

	"github.com/Alonza0314/free-rnc/constant"
	"github.com/Alonza0314/free-rnc/model"
	"github.com/bits-and-blooms/bitset"
)

var (
	ErrUnsupportedQos = errors.New("unsupported qos")
	ErrNoFreeSlot     = errors.New("no free channel slot")
)

type TransportFormat struct {
	Tti        time.Duration
	BlockSize  int
	BlockCount int
}

// BearerPlan is the concrete radio configuration of one RAB, shared by the UE
// table and every cell serving it.
type BearerPlan struct {
	RabId  uint8
	RbId   uint8
	Domain CnDomain

	RlcMode RlcMode

	Ul QosParams
	Dl QosParams

	UlFormat TransportFormat
	DlFormat TransportFormat

	// Shared bearers carry their downlink on the HS shared channel of the
	// primary cell only.
	Shared bool
}

func (p BearerPlan) Rate(direction Direction) uint32 {
	if direction == Uplink {
		return p.Ul.MaxBitRate
	}
	return p.Dl.MaxBitRate
}

func rlcModeOf(trafficClass TrafficClass) RlcMode {
	switch trafficClass {
	case Conversational:
		return RlcTransparent
	case Streaming:
		return RlcUnacknowledged
	default:
		return RlcAcknowledged
	}
}

func ttiOf(trafficClass TrafficClass) time.Duration {
	switch trafficClass {
	case Conversational:
		return 20 * time.Millisecond
	case Streaming:
		return 40 * time.Millisecond
	default:
		return 10 * time.Millisecond
	}
}

func transportFormatOf(rate uint32, mode RlcMode, tti time.Duration) TransportFormat {
	if rate == 0 {
		return TransportFormat{Tti: tti}
	}
	bitsPerTti := int(math.Ceil(float64(rate) * tti.Seconds()))
	if mode == RlcTransparent {
		return TransportFormat{Tti: tti, BlockSize: bitsPerTti, BlockCount: 1}
	}
	return TransportFormat{
		Tti:        tti,
		BlockSize:  constant.RLC_PDU_SIZE,
		BlockCount: int(math.Ceil(float64(bitsPerTti) / float64(constant.RLC_PDU_SIZE))),
	}
}

// MapQos turns the requested UL/DL QoS into a bearer plan.
func MapQos(rabId uint8, rbId uint8, domain CnDomain, ul QosParams, dl QosParams, hsdpaEnabled bool) (BearerPlan, error) {
	if ul.MaxBitRate == 0 && dl.MaxBitRate == 0 {
		return BearerPlan{}, ErrUnsupportedQos
	}
	if ul.MaxBitRate > constant.MAX_UL_BEARER_RATE || dl.MaxBitRate > constant.MAX_DL_BEARER_RATE {
		return BearerPlan{}, ErrUnsupportedQos
	}

	trafficClass := dl.TrafficClass
	if dl.MaxBitRate == 0 {
		trafficClass = ul.TrafficClass
	}
	mode := rlcModeOf(trafficClass)
	tti := ttiOf(trafficClass)

	return BearerPlan{
		RabId:  rabId,
		RbId:   rbId,
		Domain: domain,

		RlcMode: mode,

		Ul: ul,
		Dl: dl,

		UlFormat: transportFormatOf(ul.MaxBitRate, mode, tti),
		DlFormat: transportFormatOf(dl.MaxBitRate, mode, tti),

		Shared: hsdpaEnabled && domain == DomainPs && dl.MaxBitRate > 0 &&
			(trafficClass == Interactive || trafficClass == Background),
	}, nil
}

type ueBearer struct {
	rabId uint8
	rbId  uint8

	logicalChannels   [2][]uint
	transportChannels [2][]uint

	ulCodes []int
	ulRate  uint32

	committed bool
}

// UeChannelTable is the UE-side channel store: logical and transport channel
// slots per direction and the UL code tree.
type UeChannelTable struct {
	rbToRab map[uint8]uint8

	logicalChannels   [2]*bitset.BitSet
	transportChannels [2]*bitset.BitSet

	ulCodeTree *CodeTree

	bearers map[uint8]*ueBearer
}

func NewUeChannelTable() *UeChannelTable {
	return &UeChannelTable{
		rbToRab: make(map[uint8]uint8),

		logicalChannels:   [2]*bitset.BitSet{bitset.New(constant.MAX_LOGICAL_CHANNEL), bitset.New(constant.MAX_LOGICAL_CHANNEL)},
		transportChannels: [2]*bitset.BitSet{bitset.New(constant.MAX_TRANSPORT_CHANNEL), bitset.New(constant.MAX_TRANSPORT_CHANNEL)},

		ulCodeTree: NewCodeTree(constant.UL_MAX_SPREADING_FACTOR),

		bearers: make(map[uint8]*ueBearer),
	}
}

func takeSlots(slots *bitset.BitSet, limit uint, count int) ([]uint, bool) {
	taken := make([]uint, 0, count)
	for i := 0; i < count; i++ {
		slot, found := slots.NextClear(0)
		if !found || slot >= limit {
			for _, t := range taken {
				slots.Clear(t)
			}
			return nil, false
		}
		slots.Set(slot)
		taken = append(taken, slot)
	}
	return taken, true
}

func freeSlots(slots *bitset.BitSet, taken []uint) {
	for _, slot := range taken {
		slots.Clear(slot)
	}
}

func (u *UeChannelTable) reserve(rabId uint8, rbId uint8, logicalCount int, ulRate uint32, codePlan model.CodePlanIE) (*ueBearer, error) {
	if _, exists := u.bearers[rbId]; exists {
		return nil, ErrNoFreeSlot
	}

	bearer := &ueBearer{rabId: rabId, rbId: rbId, ulRate: ulRate}
	for _, direction := range []Direction{Uplink, Downlink} {
		logical, ok := takeSlots(u.logicalChannels[direction], constant.MAX_LOGICAL_CHANNEL, logicalCount)
		if !ok {
			u.rollback(bearer)
			return nil, ErrNoFreeSlot
		}
		bearer.logicalChannels[direction] = logical

		transport, ok := takeSlots(u.transportChannels[direction], constant.MAX_TRANSPORT_CHANNEL, 1)
		if !ok {
			u.rollback(bearer)
			return nil, ErrNoFreeSlot
		}
		bearer.transportChannels[direction] = transport
	}

	codes, err := u.ulCodeTree.ReserveRate(ulRate, codePlan.CodingMultiplier, constant.UL_BITS_PER_SYMBOL,
		constant.UL_MIN_SPREADING_FACTOR, constant.UL_MAX_SPREADING_FACTOR, codePlan.MaxCodesPerBearer)
	if err != nil {
		u.rollback(bearer)
		return nil, err
	}
	bearer.ulCodes = codes

	u.bearers[rbId] = bearer
	u.rbToRab[rbId] = rabId
	return bearer, nil
}

func (u *UeChannelTable) rollback(bearer *ueBearer) {
	for _, direction := range []Direction{Uplink, Downlink} {
		freeSlots(u.logicalChannels[direction], bearer.logicalChannels[direction])
		freeSlots(u.transportChannels[direction], bearer.transportChannels[direction])
	}
	u.ulCodeTree.Release(bearer.ulCodes)
}

func (u *UeChannelTable) ReserveSrb(codePlan model.CodePlanIE) error {
	_, err := u.reserve(0, constant.SRB_RB_ID, constant.SRB_LOGICAL_CHAN, constant.SRB_BIT_RATE, codePlan)
	return err
}

func (u *UeChannelTable) ReserveBearer(plan BearerPlan, codePlan model.CodePlanIE) error {
	_, err := u.reserve(plan.RabId, plan.RbId, 1, plan.Ul.MaxBitRate, codePlan)
	return err
}

func (u *UeChannelTable) Commit(rbId uint8) {
	bearer, exists := u.bearers[rbId]
	if !exists || bearer.committed {
		return
	}
	u.ulCodeTree.Commit(bearer.ulCodes)
	bearer.committed = true
}

func (u *UeChannelTable) Release(rbId uint8) {
	bearer, exists := u.bearers[rbId]
	if !exists {
		return
	}
	u.rollback(bearer)
	delete(u.bearers, rbId)
	delete(u.rbToRab, rbId)
}

func (u *UeChannelTable) ReleaseAll() {
	for rbId := range u.bearers {
		u.Release(rbId)
	}
}

func (u *UeChannelTable) UlCodes(rbId uint8) []int {
	if bearer, exists := u.bearers[rbId]; exists {
		return bearer.ulCodes
	}
	return nil
}

func (u *UeChannelTable) RabOf(rbId uint8) (uint8, bool) {
	rabId, exists := u.rbToRab[rbId]
	return rabId, exists
}

// AllocatedUlRate sums the UL rate of every bearer held by the table.
func (u *UeChannelTable) AllocatedUlRate() float64 {
	total := 0.0
	for _, bearer := range u.bearers {
		total += float64(bearer.ulRate)
	}
	return total
}

func (u *UeChannelTable) IsEmpty() bool {
	if len(u.bearers) != 0 || len(u.rbToRab) != 0 {
		return false
	}
	for _, direction := range []Direction{Uplink, Downlink} {
		if u.logicalChannels[direction].Any() || u.transportChannels[direction].Any() {
			return false
		}
	}
	for _, state := range u.ulCodeTree.Snapshot() {
		if state != CodeFree {
			return false
		}
	}
	return true
}
