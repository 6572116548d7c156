package rnc

import (
	"sort"
	"testing"
	"time"

	"github.com/Alonza0314/free-rnc/logger"
	"github.com/Alonza0314/free-rnc/model"
	loggergoUtil "github.com/Alonza0314/logger-go/v2/util"
)

type testTimer struct {
	at     time.Duration
	rncId  RncId
	handle TimerHandle
	event  TimerEvent
}

// testNetwork delivers messages in FIFO order with zero latency and answers
// on behalf of NodeBs, UEs and the core network.
type testNetwork struct {
	t *testing.T

	now        time.Duration
	rncs       map[RncId]*Rnc
	messages   []*Message
	timers     map[TimerHandle]*testTimer
	nextHandle TimerHandle

	cellOwner map[CellId]RncId

	toCore  []*Message
	toUe    []*Message
	toNodeb []*Message

	nodebAccept bool
	ueSilent    bool
	ueFailures  map[string]bool
}

type testTransport struct {
	network *testNetwork
}

func (x testTransport) Send(msg *Message) {
	x.network.messages = append(x.network.messages, msg)
}

type testScheduler struct {
	network *testNetwork
	rncId   RncId
}

func (s testScheduler) Now() time.Duration {
	return s.network.now
}

func (s testScheduler) StartTimer(delay time.Duration, event TimerEvent) TimerHandle {
	s.network.nextHandle++
	s.network.timers[s.network.nextHandle] = &testTimer{
		at:     s.network.now + delay,
		rncId:  s.rncId,
		handle: s.network.nextHandle,
		event:  event,
	}
	return s.network.nextHandle
}

func (s testScheduler) CancelTimer(handle TimerHandle) {
	delete(s.network.timers, handle)
}

type testRecorder struct {
	events []Event
}

func (x *testRecorder) RecordEvent(rncId RncId, ueId UeId, cellId CellId, event Event, cause Cause) {
	x.events = append(x.events, event)
}

func (x *testRecorder) RecordCellLoad(rncId RncId, cellId CellId, ulRate float64, dlRate float64, sharedRate float64) {
}

func (x *testRecorder) count(event Event) int {
	n := 0
	for _, e := range x.events {
		if e == event {
			n++
		}
	}
	return n
}

func newTestNetwork(t *testing.T) *testNetwork {
	return &testNetwork{
		t: t,

		rncs:   make(map[RncId]*Rnc),
		timers: make(map[TimerHandle]*testTimer),

		cellOwner: make(map[CellId]RncId),

		nodebAccept: true,
		ueFailures:  make(map[string]bool),
	}
}

func newTestRnc(config model.RncIE) *Rnc {
	rncLogger := logger.NewRncLogger(loggergoUtil.LEVEL_STRING_ERROR, "", true)
	return NewRnc(&config, &rncLogger)
}

func (n *testNetwork) addRnc(config model.RncIE, recorder Recorder) *Rnc {
	rnc := newTestRnc(config)
	if rnc == nil {
		n.t.Fatalf("Failed to create RNC %d", config.RncId)
	}
	if err := rnc.Start(testTransport{network: n}, testScheduler{network: n, rncId: rnc.GetRncId()}, recorder); err != nil {
		n.t.Fatalf("Failed to start RNC %d: %v", config.RncId, err)
	}
	n.rncs[rnc.GetRncId()] = rnc
	return rnc
}

func (n *testNetwork) addNodeb(rncId RncId, nodebId NodebId, cellIds ...CellId) {
	indication := &NbapCellSetupIndication{NodebId: nodebId}
	for _, cellId := range cellIds {
		indication.Cells = append(indication.Cells, NbapCellInfo{CellId: cellId, PrimaryScramblingCode: uint16(cellId)})
	}
	n.messages = append(n.messages, &Message{
		Src:  Peer{Kind: PeerNodeb, Id: uint32(nodebId)},
		Dst:  Peer{Kind: PeerRnc, Id: uint32(rncId)},
		Body: indication,
	})
	n.run()
}

func (n *testNetwork) fromUe(ueId UeId, cellId CellId, body any) {
	n.messages = append(n.messages, &Message{
		Src:    Peer{Kind: PeerUe, Id: uint32(ueId)},
		Dst:    Peer{Kind: PeerRnc, Id: uint32(n.cellOwner[cellId])},
		UeId:   ueId,
		CellId: cellId,
		Body:   body,
	})
}

func (n *testNetwork) fromCore(rncId RncId, ueId UeId, body any) {
	n.messages = append(n.messages, &Message{
		Src:  Peer{Kind: PeerCore},
		Dst:  Peer{Kind: PeerRnc, Id: uint32(rncId)},
		UeId: ueId,
		Body: body,
	})
}

func (n *testNetwork) connect(ueId UeId, cellId CellId) {
	n.fromUe(ueId, cellId, &RrcConnectionRequest{PrimaryScramblingCode: uint16(cellId)})
	n.run()
}

func (n *testNetwork) measure(ueId UeId, viaCellId CellId, measurements ...CellMeasurement) {
	n.fromUe(ueId, viaCellId, &RrcMeasurementReport{Measurements: measurements})
	n.run()
}

func (n *testNetwork) run() {
	for len(n.messages) > 0 {
		msg := n.messages[0]
		n.messages = n.messages[1:]
		n.deliver(msg)
	}
}

// advance fires every timer due within d, in expiry order.
func (n *testNetwork) advance(d time.Duration) {
	target := n.now + d
	for {
		var next *testTimer
		for _, timer := range n.timers {
			if timer.at <= target && (next == nil || timer.at < next.at || (timer.at == next.at && timer.handle < next.handle)) {
				next = timer
			}
		}
		if next == nil {
			break
		}
		delete(n.timers, next.handle)
		n.now = next.at
		n.rncs[next.rncId].HandleTimer(next.handle, next.event)
		n.run()
	}
	n.now = target
}

func (n *testNetwork) deliver(msg *Message) {
	switch msg.Dst.Kind {
	case PeerRnc:
		n.rncs[RncId(msg.Dst.Id)].HandleMessage(msg)
	case PeerNodeb:
		n.toNodeb = append(n.toNodeb, msg)
		n.answerNodeb(msg)
	case PeerUe:
		n.toUe = append(n.toUe, msg)
		n.answerUe(msg)
	case PeerCore:
		n.toCore = append(n.toCore, msg)
		n.answerCore(msg)
	}
}

func (n *testNetwork) answerNodeb(msg *Message) {
	var reply any
	switch msg.Body.(type) {
	case *NbapRadioLinkSetupRequest:
		reply = &NbapRadioLinkSetupResponse{Success: n.nodebAccept}
	case *NbapRadioBearerSetupRequest:
		reply = &NbapRadioBearerSetupResponse{Success: n.nodebAccept}
	default:
		return
	}
	n.messages = append(n.messages, &Message{
		Src:           msg.Dst,
		Dst:           msg.Src,
		UeId:          msg.UeId,
		CellId:        msg.CellId,
		TransactionId: msg.TransactionId,
		Body:          reply,
	})
}

func (n *testNetwork) answerUe(msg *Message) {
	if n.ueSilent {
		return
	}
	var reply any
	switch body := msg.Body.(type) {
	case *RrcConnectionSetup:
		reply = &RrcConnectionSetupComplete{}
	case *RrcRadioBearerSetup:
		if n.ueFailures["radioBearerSetup"] {
			reply = &RrcRadioBearerSetupFailure{RbId: body.Plan.RbId, Cause: CauseUeRejected}
		} else {
			reply = &RrcRadioBearerSetupComplete{RbId: body.Plan.RbId}
		}
	case *RrcRadioBearerRelease:
		reply = &RrcRadioBearerReleaseComplete{RbId: body.RbId}
	case *RrcActiveSetUpdate:
		if n.ueFailures["activeSetUpdate"] {
			reply = &RrcActiveSetUpdateFailure{Cause: CauseUeRejected}
		} else {
			reply = &RrcActiveSetUpdateComplete{}
		}
	case *RrcConnectionRelease:
		reply = &RrcConnectionReleaseComplete{}
	default:
		return
	}
	n.fromUe(msg.UeId, msg.CellId, reply)
}

func (n *testNetwork) answerCore(msg *Message) {
	switch body := msg.Body.(type) {
	case *RanapCellRegistration:
		for _, entry := range body.Cells {
			n.cellOwner[entry.CellId] = RncId(msg.Src.Id)
		}
	case *RanapCellLookupRequest:
		owner, found := n.cellOwner[body.CellId]
		n.fromCore(RncId(msg.Src.Id), 0, &RanapCellLookupReply{CellId: body.CellId, Found: found, RncId: owner})
	}
}

func (n *testNetwork) coreBodies(ueId UeId) []any {
	var bodies []any
	for _, msg := range n.toCore {
		if msg.UeId == ueId {
			bodies = append(bodies, msg.Body)
		}
	}
	return bodies
}

func (n *testNetwork) lastRabResponse(ueId UeId, rabId uint8) *RanapRabAssignmentResponse {
	var last *RanapRabAssignmentResponse
	for _, body := range n.coreBodies(ueId) {
		if response, ok := body.(*RanapRabAssignmentResponse); ok && response.RabId == rabId {
			last = response
		}
	}
	return last
}

func (n *testNetwork) ueBodies(ueId UeId) []any {
	var bodies []any
	for _, msg := range n.toUe {
		if msg.UeId == ueId {
			bodies = append(bodies, msg.Body)
		}
	}
	return bodies
}

func sortedCells(cellIds []CellId) []CellId {
	sorted := append([]CellId(nil), cellIds...)
	sort.Slice(sorted, func(i, j int) bool { return sorted[i] < sorted[j] })
	return sorted
}

func testRncConfig(rncId uint32) model.RncIE {
	return model.RncIE{
		RncId: rncId,
		Handover: model.HandoverIE{
			MaxActiveSet:      3,
			Threshold:         3,
			Hysteresis:        1,
			ReplaceHysteresis: 1,
		},
	}
}

func interactiveQos(rate uint32) QosParams {
	return QosParams{TrafficClass: Interactive, MaxBitRate: rate}
}

func conversationalQos(rate uint32) QosParams {
	return QosParams{TrafficClass: Conversational, MaxBitRate: rate, GuaranteedBitRate: rate}
}
