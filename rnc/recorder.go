package rnc

type Event string

const (
	EventRrcConnected    Event = "rrc_connected"
	EventRrcRejected     Event = "rrc_rejected"
	EventRrcGuardExpired Event = "rrc_guard_expired"
	EventRrcReleased     Event = "rrc_released"

	EventRabEstablished Event = "rab_established"
	EventRabRejected    Event = "rab_rejected"
	EventRabReleased    Event = "rab_released"

	EventActiveSetAdd         Event = "active_set_add"
	EventActiveSetAddRejected Event = "active_set_add_rejected"
	EventActiveSetRemove      Event = "active_set_remove"
	EventPrimarySwitch        Event = "primary_switch"
)

// Recorder is the statistics sink. Calls are fire-and-forget and nothing is
// read back.
type Recorder interface {
	RecordEvent(rncId RncId, ueId UeId, cellId CellId, event Event, cause Cause)
	RecordCellLoad(rncId RncId, cellId CellId, ulRate float64, dlRate float64, sharedRate float64)
}

type nopRecorder struct{}

func (nopRecorder) RecordEvent(RncId, UeId, CellId, Event, Cause) {}

func (nopRecorder) RecordCellLoad(RncId, CellId, float64, float64, float64) {}
