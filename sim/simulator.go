package sim

import (
	"fmt"
	"time"

	"github.com/Alonza0314/free-rnc/logger"
	"github.com/Alonza0314/free-rnc/model"
	"github.com/Alonza0314/free-rnc/rnc"
	"github.com/iti/evt/evtm"
	"github.com/iti/evt/vrtime"
)

type simTimer struct {
	rncId rnc.RncId
	event rnc.TimerEvent
}

// linkFrame is a message in flight. Iur envelopes travel with their header
// APER-encoded and are rebuilt on arrival.
type linkFrame struct {
	msg       *rnc.Message
	iurHeader []byte
}

// Simulator drives RNCs and their scripted collaborators on one virtual
// clock.
type Simulator struct {
	evtMgr  *evtm.EventManager
	latency model.LatencyIE

	rncs   map[rnc.RncId]*rnc.Rnc
	nodebs map[rnc.NodebId]*Nodeb
	core   *CoreNetwork
	ues    map[rnc.UeId]*Ue

	cellOwner map[rnc.CellId]rnc.RncId

	timers     map[rnc.TimerHandle]*simTimer
	nextHandle rnc.TimerHandle

	recorder rnc.Recorder

	*logger.SimLogger
}

// rncPort is the Scheduler and Transport handed to one RNC.
type rncPort struct {
	sim   *Simulator
	rncId rnc.RncId
}

func (p rncPort) Send(msg *rnc.Message) {
	p.sim.send(msg)
}

func (p rncPort) Now() time.Duration {
	return p.sim.Now()
}

func (p rncPort) StartTimer(delay time.Duration, event rnc.TimerEvent) rnc.TimerHandle {
	return p.sim.startTimer(p.rncId, delay, event)
}

func (p rncPort) CancelTimer(handle rnc.TimerHandle) {
	delete(p.sim.timers, handle)
}

func NewSimulator(config *model.ScenarioConfig, simLogger *logger.SimLogger, recorder rnc.Recorder) (*Simulator, error) {
	config.Logger.ApplyDefaults()
	if err := config.Logger.Validate(); err != nil {
		return nil, err
	}

	s := &Simulator{
		evtMgr:  evtm.New(),
		latency: config.Simulation.Latency,

		rncs:   make(map[rnc.RncId]*rnc.Rnc),
		nodebs: make(map[rnc.NodebId]*Nodeb),
		ues:    make(map[rnc.UeId]*Ue),

		cellOwner: make(map[rnc.CellId]rnc.RncId),

		timers: make(map[rnc.TimerHandle]*simTimer),

		recorder: recorder,

		SimLogger: simLogger,
	}

	for i := range config.Rncs {
		rncConfig := config.Rncs[i]
		rncLogger := logger.NewRncLogger(config.Logger.Level, config.Logger.FilePath, config.Logger.DebugMode)
		r := rnc.NewRnc(&rncConfig, &rncLogger)
		if r == nil {
			return nil, fmt.Errorf("Error creating RNC %d", rncConfig.RncId)
		}
		if _, exists := s.rncs[r.GetRncId()]; exists {
			return nil, fmt.Errorf("Error duplicate RNC id %d", rncConfig.RncId)
		}
		s.rncs[r.GetRncId()] = r
	}

	for _, nodebConfig := range config.Nodebs {
		rncId := rnc.RncId(nodebConfig.RncId)
		if _, exists := s.rncs[rncId]; !exists {
			return nil, fmt.Errorf("Error NodeB %d attached to unknown RNC %d", nodebConfig.NodebId, nodebConfig.RncId)
		}
		nodeb := NewNodeb(s, nodebConfig)
		s.nodebs[nodeb.nodebId] = nodeb
		for _, cell := range nodebConfig.Cells {
			if owner, exists := s.cellOwner[rnc.CellId(cell.CellId)]; exists {
				return nil, fmt.Errorf("Error cell %d configured on RNC %d and RNC %d", cell.CellId, owner, nodebConfig.RncId)
			}
			s.cellOwner[rnc.CellId(cell.CellId)] = rncId
		}
	}

	s.core = NewCoreNetwork(s)

	for _, ueConfig := range config.Ues {
		if _, exists := s.cellOwner[rnc.CellId(ueConfig.CampCellId)]; !exists {
			return nil, fmt.Errorf("Error UE %d camped on unknown cell %d", ueConfig.UeId, ueConfig.CampCellId)
		}
		ue, err := NewUe(s, ueConfig)
		if err != nil {
			return nil, err
		}
		s.ues[ue.ueId] = ue
		s.core.addScript(ueConfig)
	}

	return s, nil
}

// Start brings up every RNC, then lets NodeBs announce their cells and UEs
// follow their scripts.
func (s *Simulator) Start() error {
	for rncId, r := range s.rncs {
		port := rncPort{sim: s, rncId: rncId}
		if err := r.Start(port, port, s.recorder); err != nil {
			return fmt.Errorf("Error starting RNC %d: %v", rncId, err)
		}
	}
	for _, nodeb := range s.nodebs {
		nodeb.start()
	}
	for _, ue := range s.ues {
		ue.start()
	}
	s.core.start()
	s.SimLog.Infof("Simulation started with %d RNCs, %d NodeBs, %d UEs", len(s.rncs), len(s.nodebs), len(s.ues))
	return nil
}

// Run processes events until the virtual clock passes duration.
func (s *Simulator) Run(duration time.Duration) {
	s.evtMgr.Run(duration.Seconds())
	s.SimLog.Infof("Simulation stopped at %v", s.Now())
}

func (s *Simulator) Stop() {
	for _, r := range s.rncs {
		r.Stop()
	}
	s.timers = make(map[rnc.TimerHandle]*simTimer)
}

func (s *Simulator) Now() time.Duration {
	return time.Duration(s.evtMgr.CurrentSeconds() * float64(time.Second))
}

func (s *Simulator) Rnc(rncId rnc.RncId) (*rnc.Rnc, bool) {
	r, exists := s.rncs[rncId]
	return r, exists
}

func (s *Simulator) Ue(ueId rnc.UeId) (*Ue, bool) {
	ue, exists := s.ues[ueId]
	return ue, exists
}

func (s *Simulator) Core() *CoreNetwork {
	return s.core
}

func (s *Simulator) Nodeb(nodebId rnc.NodebId) (*Nodeb, bool) {
	nodeb, exists := s.nodebs[nodebId]
	return nodeb, exists
}

func (s *Simulator) nodebOf(cellId rnc.CellId) (*Nodeb, bool) {
	for _, nodeb := range s.nodebs {
		if _, hosted := nodeb.radioLinks[cellId]; hosted {
			return nodeb, true
		}
	}
	return nil, false
}

// after runs fn once delay has elapsed on the virtual clock.
func (s *Simulator) after(delay time.Duration, fn func()) {
	s.evtMgr.Schedule(s, fn, runCallback, vrtime.SecondsToTime(delay.Seconds()))
}

func runCallback(evtMgr *evtm.EventManager, context any, data any) any {
	data.(func())()
	return nil
}

func (s *Simulator) startTimer(rncId rnc.RncId, delay time.Duration, event rnc.TimerEvent) rnc.TimerHandle {
	s.nextHandle++
	handle := s.nextHandle
	s.timers[handle] = &simTimer{rncId: rncId, event: event}
	s.evtMgr.Schedule(s, handle, fireTimer, vrtime.SecondsToTime(delay.Seconds()))
	return handle
}

func fireTimer(evtMgr *evtm.EventManager, context any, data any) any {
	s := context.(*Simulator)
	handle := data.(rnc.TimerHandle)
	timer, exists := s.timers[handle]
	if !exists {
		return nil
	}
	delete(s.timers, handle)
	s.rncs[timer.rncId].HandleTimer(handle, timer.event)
	return nil
}

func (s *Simulator) linkLatency(msg *rnc.Message) time.Duration {
	kinds := [2]rnc.PeerKind{msg.Src.Kind, msg.Dst.Kind}
	for _, kind := range kinds {
		switch kind {
		case rnc.PeerNodeb:
			return s.latency.Iub
		case rnc.PeerCore:
			return s.latency.Iu
		case rnc.PeerUe:
			return s.latency.Uu
		}
	}
	if msg.Src == msg.Dst {
		return 0
	}
	return s.latency.Iur
}

func (s *Simulator) send(msg *rnc.Message) {
	frame := &linkFrame{msg: msg}
	if envelope, ok := msg.Body.(*rnc.IurEnvelope); ok {
		header, err := rnc.EncodeIurEnvelopeHeader(envelope)
		if err != nil {
			s.SimLog.Errorf("Iur frame from RNC %d dropped: %v", msg.Src.Id, err)
			return
		}
		frame.iurHeader = header
	}
	s.evtMgr.Schedule(s, frame, deliverFrame, vrtime.SecondsToTime(s.linkLatency(msg).Seconds()))
}

func deliverFrame(evtMgr *evtm.EventManager, context any, data any) any {
	s := context.(*Simulator)
	frame := data.(*linkFrame)
	msg := frame.msg

	if frame.iurHeader != nil {
		envelope := &rnc.IurEnvelope{Payload: msg.Body.(*rnc.IurEnvelope).Payload}
		if err := rnc.DecodeIurEnvelopeHeader(frame.iurHeader, envelope); err != nil {
			s.SimLog.Errorf("Iur frame to RNC %d dropped: %v", msg.Dst.Id, err)
			return nil
		}
		received := *msg
		received.Body = envelope
		msg = &received
	}

	switch msg.Dst.Kind {
	case rnc.PeerRnc:
		r, exists := s.rncs[rnc.RncId(msg.Dst.Id)]
		if !exists {
			s.SimLog.Warnf("Message %T to unknown RNC %d dropped", msg.Body, msg.Dst.Id)
			return nil
		}
		r.HandleMessage(msg)
	case rnc.PeerNodeb:
		nodeb, exists := s.nodebs[rnc.NodebId(msg.Dst.Id)]
		if !exists {
			s.SimLog.Warnf("Message %T to unknown NodeB %d dropped", msg.Body, msg.Dst.Id)
			return nil
		}
		nodeb.handleMessage(msg)
	case rnc.PeerCore:
		s.core.handleMessage(msg)
	case rnc.PeerUe:
		ue, exists := s.ues[msg.UeId]
		if !exists {
			s.SimLog.Warnf("Message %T to unknown UE %d dropped", msg.Body, msg.UeId)
			return nil
		}
		ue.handleMessage(msg)
	}
	return nil
}
