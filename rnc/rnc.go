package rnc

import (
	"fmt"
	"time"

	"github.com/Alonza0314/free-rnc/logger"
	"github.com/Alonza0314/free-rnc/model"
	"github.com/free5gc/ngap/ngapConvert"
	"github.com/free5gc/ngap/ngapType"
)

// Transport delivers messages to other network elements. Delivery is
// asynchronous: Send never calls back into the sender.
type Transport interface {
	Send(msg *Message)
}

type TimerHandle int

type TimerKind int

const (
	TimerConnectionSetupGuard TimerKind = iota
	TimerMeasurementLiveness
	TimerAnnounce
)

func (k TimerKind) String() string {
	return enumName([]string{"ConnectionSetupGuard", "MeasurementLiveness", "Announce"}, "TimerKind", int(k))
}

type TimerEvent struct {
	Kind    TimerKind
	UeId    UeId
	Payload any
}

// Scheduler is the simulated clock. Expired timers come back through
// Rnc.HandleTimer with the handle returned by StartTimer.
type Scheduler interface {
	Now() time.Duration
	StartTimer(delay time.Duration, event TimerEvent) TimerHandle
	CancelTimer(handle TimerHandle)
}

type nbapProcedure int

const (
	nbapConnectionSetup nbapProcedure = iota
	nbapBearerSetup
	nbapJoin
)

type pendingNbap struct {
	procedure nbapProcedure

	requester            RncId
	requestTransactionId uint32

	ueId   UeId
	cellId CellId
	rabId  uint8
	rbId   uint8
}

type Rnc struct {
	rncId  RncId
	plmnId ngapType.PLMNIdentity

	admission AdmissionControl
	handover  model.HandoverIE
	timer     model.TimerIE
	codePlan  model.CodePlanIE

	transport Transport
	scheduler Scheduler
	recorder  Recorder

	cells     map[CellId]*CellContext
	nodebs    map[NodebId][]CellId
	ues       map[UeId]*UeContext
	relayUes  map[UeId]*RelayUe
	directory *CellDirectory

	queue     *RequestQueue
	inService *QueuedRequest

	teidGenerator          *TeidGenerator
	transactionIdGenerator *TransactionIdGenerator
	pendingNbaps           map[uint32]*pendingNbap

	announceTimer TimerHandle

	*logger.RncLogger
}

func NewRnc(config *model.RncIE, rncLogger *logger.RncLogger) *Rnc {
	config.ApplyDefaults()

	plmnId := ngapConvert.PlmnIdToNgap(config.PlmnId.ToModels())
	if len(plmnId.Value) != 3 {
		rncLogger.CfgLog.Errorf("Error converting plmnId %+v to ngap", config.PlmnId)
		return nil
	}

	if config.Handover.MaxActiveSet < 1 {
		rncLogger.CfgLog.Errorf("Error max active set size %d, expected at least 1", config.Handover.MaxActiveSet)
		return nil
	}

	return &Rnc{
		rncId:  RncId(config.RncId),
		plmnId: plmnId,

		admission: NewAdmissionControl(config.Admission),
		handover:  config.Handover,
		timer:     config.Timer,
		codePlan:  config.CodePlan,

		recorder: nopRecorder{},

		cells:     make(map[CellId]*CellContext),
		nodebs:    make(map[NodebId][]CellId),
		ues:       make(map[UeId]*UeContext),
		relayUes:  make(map[UeId]*RelayUe),
		directory: NewCellDirectory(),

		queue: NewRequestQueue(),

		teidGenerator:          NewTeidGenerator(),
		transactionIdGenerator: NewTransactionIdGenerator(),
		pendingNbaps:           make(map[uint32]*pendingNbap),

		RncLogger: rncLogger,
	}
}

func (r *Rnc) Start(transport Transport, scheduler Scheduler, recorder Recorder) error {
	r.RncLog.Infof("Starting RNC %d", r.rncId)

	if transport == nil || scheduler == nil {
		return fmt.Errorf("Error starting RNC %d: transport and scheduler are required", r.rncId)
	}
	r.transport = transport
	r.scheduler = scheduler
	if recorder != nil {
		r.recorder = recorder
	}

	r.announceTimer = r.scheduler.StartTimer(r.timer.AnnouncePeriod, TimerEvent{Kind: TimerAnnounce})

	r.RncLog.Infof("RNC %d started", r.rncId)
	return nil
}

func (r *Rnc) Stop() {
	r.RncLog.Infof("Stopping RNC %d", r.rncId)

	r.cancelTimer(&r.announceTimer)
	for _, ue := range r.ues {
		r.cancelTimer(&ue.setupGuard)
		r.cancelTimer(&ue.livenessGuard)
	}

	r.RncLog.Infof("RNC %d stopped, %d UE contexts left", r.rncId, len(r.ues))
}

func (r *Rnc) GetRncId() RncId {
	return r.rncId
}

func (r *Rnc) Cell(cellId CellId) (*CellContext, bool) {
	cell, exists := r.cells[cellId]
	return cell, exists
}

func (r *Rnc) Ue(ueId UeId) (*UeContext, bool) {
	ue, exists := r.ues[ueId]
	return ue, exists
}

func (r *Rnc) RelayUe(ueId UeId) (*RelayUe, bool) {
	relayUe, exists := r.relayUes[ueId]
	return relayUe, exists
}

func (r *Rnc) Directory() *CellDirectory {
	return r.directory
}

func (r *Rnc) self() Peer {
	return Peer{Kind: PeerRnc, Id: uint32(r.rncId)}
}

// HandleMessage runs one inbound message to completion.
func (r *Rnc) HandleMessage(msg *Message) {
	switch msg.Src.Kind {
	case PeerNodeb:
		r.handleNbap(msg)
	case PeerCore:
		r.handleRanap(msg)
	case PeerUe:
		r.handleUplinkRrc(msg.UeId, msg.CellId, msg.Body)
	case PeerRnc:
		r.handleRncMessage(msg)
	default:
		r.RncLog.Warnf("Unknown message source kind %v", msg.Src.Kind)
	}
}

func (r *Rnc) handleRncMessage(msg *Message) {
	src := RncId(msg.Src.Id)
	if envelope, ok := msg.Body.(*IurEnvelope); ok {
		r.handleIurEnvelope(src, msg.TransactionId, envelope)
		return
	}
	r.handleCellResponse(msg.UeId, msg.CellId, msg.TransactionId, msg.Body)
}

func (r *Rnc) HandleTimer(handle TimerHandle, event TimerEvent) {
	switch event.Kind {
	case TimerAnnounce:
		if handle != r.announceTimer {
			return
		}
		r.announceCells()
		r.announceTimer = r.scheduler.StartTimer(r.timer.AnnouncePeriod, TimerEvent{Kind: TimerAnnounce})
	case TimerConnectionSetupGuard:
		ue, exists := r.ues[event.UeId]
		if !exists || ue.setupGuard != handle {
			r.RrcLog.Debugf("Stale setup guard for UE %d", event.UeId)
			return
		}
		ue.setupGuard = 0
		r.handleSetupGuardExpiry(ue, event.Payload)
	case TimerMeasurementLiveness:
		ue, exists := r.ues[event.UeId]
		if !exists || ue.livenessGuard != handle {
			r.RrcLog.Debugf("Stale liveness guard for UE %d", event.UeId)
			return
		}
		ue.livenessGuard = 0
		r.RrcLog.Warnf("UE %d measurement reports lost, inferring radio link failure", ue.ueId)
		r.releaseConnection(ue, CauseRadioLinkFailure, true)
	default:
		r.RncLog.Warnf("Unknown timer kind %v", event.Kind)
	}
}

func (r *Rnc) startTimer(handle *TimerHandle, delay time.Duration, event TimerEvent) {
	r.cancelTimer(handle)
	*handle = r.scheduler.StartTimer(delay, event)
}

func (r *Rnc) cancelTimer(handle *TimerHandle) {
	if *handle == 0 {
		return
	}
	r.scheduler.CancelTimer(*handle)
	*handle = 0
}

func (r *Rnc) sendToUe(ueId UeId, cellId CellId, body any) {
	r.transport.Send(&Message{
		Src:    r.self(),
		Dst:    Peer{Kind: PeerUe, Id: uint32(ueId)},
		UeId:   ueId,
		CellId: cellId,
		Body:   body,
	})
}

func (r *Rnc) sendToNodeb(nodebId NodebId, ueId UeId, cellId CellId, transactionId uint32, body any) {
	r.transport.Send(&Message{
		Src:           r.self(),
		Dst:           Peer{Kind: PeerNodeb, Id: uint32(nodebId)},
		UeId:          ueId,
		CellId:        cellId,
		TransactionId: transactionId,
		Body:          body,
	})
}

func (r *Rnc) sendToCore(ueId UeId, cellId CellId, body any) {
	r.transport.Send(&Message{
		Src:    r.self(),
		Dst:    Peer{Kind: PeerCore},
		UeId:   ueId,
		CellId: cellId,
		Body:   body,
	})
}

func (r *Rnc) sendToRnc(rncId RncId, ueId UeId, cellId CellId, transactionId uint32, body any) {
	r.transport.Send(&Message{
		Src:           r.self(),
		Dst:           Peer{Kind: PeerRnc, Id: uint32(rncId)},
		UeId:          ueId,
		CellId:        cellId,
		TransactionId: transactionId,
		Body:          body,
	})
}

func (r *Rnc) recordCellLoad(cell *CellContext) {
	r.recorder.RecordCellLoad(r.rncId, cell.cellId, cell.AllocatedRate(Uplink), cell.AllocatedRate(Downlink), cell.SharedRate())
}
