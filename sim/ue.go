package sim

import (
	"fmt"
	"sort"
	"time"

	"github.com/Alonza0314/free-rnc/constant"
	"github.com/Alonza0314/free-rnc/model"
	"github.com/Alonza0314/free-rnc/rnc"
)

// Ue follows a scripted signal track: it connects at its start time, answers
// every RRC procedure and reports the measured cells periodically.
type Ue struct {
	sim *Simulator

	ueId   rnc.UeId
	config model.UeIE
	tracks map[rnc.CellId][]model.SignalPointIE

	connected     bool
	connecting    bool
	primaryCellId rnc.CellId
	activeSet     []rnc.CellId
	bearers       map[uint8]rnc.BearerPlan

	// bumped on every connection so stale measurement loops stop
	generation int

	downlinkNas [][]byte
}

func NewUe(sim *Simulator, config model.UeIE) (*Ue, error) {
	ue := &Ue{
		sim: sim,

		ueId:   rnc.UeId(config.UeId),
		config: config,
		tracks: make(map[rnc.CellId][]model.SignalPointIE),

		bearers: make(map[uint8]rnc.BearerPlan),
	}
	if ue.config.MeasurementPeriod <= 0 {
		ue.config.MeasurementPeriod = constant.DEFAULT_MEASUREMENT_PERIOD * time.Millisecond
	}

	for _, track := range config.Tracks {
		cellId := rnc.CellId(track.CellId)
		if _, exists := sim.cellOwner[cellId]; !exists {
			return nil, fmt.Errorf("Error UE %d has a signal track for unknown cell %d", config.UeId, track.CellId)
		}
		if len(track.Points) == 0 {
			continue
		}
		points := append([]model.SignalPointIE(nil), track.Points...)
		sort.SliceStable(points, func(i, j int) bool { return points[i].At < points[j].At })
		ue.tracks[cellId] = points
	}
	return ue, nil
}

func (u *Ue) IsConnected() bool {
	return u.connected
}

func (u *Ue) PrimaryCellId() rnc.CellId {
	return u.primaryCellId
}

func (u *Ue) ActiveSet() []rnc.CellId {
	return append([]rnc.CellId(nil), u.activeSet...)
}

func (u *Ue) Bearers() int {
	return len(u.bearers)
}

func (u *Ue) DownlinkNas() [][]byte {
	return u.downlinkNas
}

func (u *Ue) start() {
	u.sim.after(u.config.StartAt, u.connect)
}

// signalAt interpolates the track linearly, holding the end points.
func signalAt(points []model.SignalPointIE, now time.Duration) float64 {
	if now <= points[0].At {
		return points[0].Dbm
	}
	for i := 1; i < len(points); i++ {
		if now <= points[i].At {
			previous, next := points[i-1], points[i]
			span := float64(next.At - previous.At)
			if span == 0 {
				return next.Dbm
			}
			return previous.Dbm + (next.Dbm-previous.Dbm)*float64(now-previous.At)/span
		}
	}
	return points[len(points)-1].Dbm
}

func (u *Ue) measurements() []rnc.CellMeasurement {
	now := u.sim.Now()
	measurements := make([]rnc.CellMeasurement, 0, len(u.tracks))
	for cellId, points := range u.tracks {
		measurements = append(measurements, rnc.CellMeasurement{CellId: cellId, Dbm: signalAt(points, now)})
	}
	sort.SliceStable(measurements, func(i, j int) bool { return measurements[i].CellId < measurements[j].CellId })
	return measurements
}

// campCell is the strongest tracked cell, or the configured one without
// tracks.
func (u *Ue) campCell() rnc.CellId {
	best, bestDbm := rnc.CellId(u.config.CampCellId), 0.0
	found := false
	for _, measurement := range u.measurements() {
		if !found || measurement.Dbm > bestDbm {
			best, bestDbm, found = measurement.CellId, measurement.Dbm, true
		}
	}
	return best
}

func (u *Ue) send(cellId rnc.CellId, body any) {
	owner, exists := u.sim.cellOwner[cellId]
	if !exists {
		u.sim.UeLog.Warnf("UE %d: no RNC for cell %d, %T dropped", u.ueId, cellId, body)
		return
	}
	u.sim.send(&rnc.Message{
		Src:    rnc.Peer{Kind: rnc.PeerUe, Id: uint32(u.ueId)},
		Dst:    rnc.Peer{Kind: rnc.PeerRnc, Id: uint32(owner)},
		UeId:   u.ueId,
		CellId: cellId,
		Body:   body,
	})
}

func (u *Ue) connect() {
	if u.connected || u.connecting {
		return
	}
	u.connecting = true
	cellId := u.campCell()
	u.sim.UeLog.Infof("UE %d: connection request in cell %d", u.ueId, cellId)
	u.send(cellId, &rnc.RrcConnectionRequest{PrimaryScramblingCode: uint16(u.ueId)})
}

func (u *Ue) page(cellId rnc.CellId, domain rnc.CnDomain) {
	u.sim.UeLog.Debugf("UE %d: paged for %v in cell %d", u.ueId, domain, cellId)
	u.connect()
}

func (u *Ue) toIdle() {
	u.connected = false
	u.connecting = false
	u.primaryCellId = 0
	u.activeSet = nil
	u.bearers = make(map[uint8]rnc.BearerPlan)
	u.generation++
}

func (u *Ue) handleMessage(msg *rnc.Message) {
	switch body := msg.Body.(type) {
	case *rnc.RrcConnectionSetup:
		u.send(msg.CellId, &rnc.RrcConnectionSetupComplete{})
		if u.connected {
			return
		}
		u.connected = true
		u.connecting = false
		u.primaryCellId = msg.CellId
		u.activeSet = []rnc.CellId{msg.CellId}
		u.generation++
		u.sim.UeLog.Infof("UE %d: connected in cell %d", u.ueId, msg.CellId)
		u.send(msg.CellId, &rnc.RrcUplinkDirectTransfer{Domain: rnc.DomainPs, Nas: []byte(constant.REGISTRATION_NAS_PDU)})
		generation := u.generation
		u.sim.after(u.config.MeasurementPeriod, func() { u.measure(generation) })
	case *rnc.RrcConnectionReject:
		u.connecting = false
		u.sim.UeLog.Warnf("UE %d: connection rejected, %v", u.ueId, body.Cause)
	case *rnc.RrcConnectionRelease:
		u.send(msg.CellId, &rnc.RrcConnectionReleaseComplete{})
		u.toIdle()
		u.sim.UeLog.Infof("UE %d: connection released, %v", u.ueId, body.Cause)
	case *rnc.RrcRadioBearerSetup:
		u.bearers[body.Plan.RbId] = body.Plan
		u.send(msg.CellId, &rnc.RrcRadioBearerSetupComplete{RbId: body.Plan.RbId})
	case *rnc.RrcRadioBearerRelease:
		delete(u.bearers, body.RbId)
		u.send(msg.CellId, &rnc.RrcRadioBearerReleaseComplete{RbId: body.RbId})
	case *rnc.RrcActiveSetUpdate:
		u.applyActiveSetUpdate(body)
		u.send(msg.CellId, &rnc.RrcActiveSetUpdateComplete{})
	case *rnc.RrcDownlinkDirectTransfer:
		u.downlinkNas = append(u.downlinkNas, []byte(body.Nas))
		u.sim.UeLog.Debugf("UE %d: downlink NAS %x on %v", u.ueId, []byte(body.Nas), body.Domain)
	case *rnc.RrcPaging:
		u.sim.UeLog.Debugf("UE %d: paged for %v while connected", u.ueId, body.Domain)
	default:
		u.sim.UeLog.Warnf("UE %d: unknown RRC message %T", u.ueId, msg.Body)
	}
}

func (u *Ue) applyActiveSetUpdate(update *rnc.RrcActiveSetUpdate) {
	u.activeSet = append(u.activeSet, update.Add...)
	for _, removed := range update.Remove {
		for i, cellId := range u.activeSet {
			if cellId == removed {
				u.activeSet = append(u.activeSet[:i], u.activeSet[i+1:]...)
				break
			}
		}
	}
	if update.Primary != 0 {
		u.primaryCellId = update.Primary
	}
	u.sim.UeLog.Debugf("UE %d: active set %v, primary %d", u.ueId, u.activeSet, u.primaryCellId)
}

func (u *Ue) measure(generation int) {
	if generation != u.generation || !u.connected {
		return
	}
	measurements := u.measurements()
	for _, measurement := range measurements {
		if measurement.CellId == u.primaryCellId && measurement.Dbm < constant.RADIO_LINK_FAILURE_DBM {
			if nodeb, exists := u.sim.nodebOf(u.primaryCellId); exists {
				nodeb.failRadioLink(u.ueId, u.primaryCellId)
			}
		}
	}
	if len(measurements) > 0 {
		u.send(u.primaryCellId, &rnc.RrcMeasurementReport{Measurements: measurements})
	}
	u.sim.after(u.config.MeasurementPeriod, func() { u.measure(generation) })
}
