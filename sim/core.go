package sim

import (
	"github.com/Alonza0314/free-rnc/constant"
	"github.com/Alonza0314/free-rnc/model"
	"github.com/Alonza0314/free-rnc/rnc"
)

type coreUe struct {
	rncId   rnc.RncId
	domains map[rnc.CnDomain]bool
	rabs    map[uint8]bool
}

// CoreNetwork keeps the cell directory for the RNCs and plays each UE's RAB
// script once the UE has registered.
type CoreNetwork struct {
	sim *Simulator

	cells   map[rnc.CellId]rnc.RanapCellEntry
	owners  map[rnc.CellId]rnc.RncId
	ues     map[rnc.UeId]*coreUe
	scripts []model.UeIE

	established int
	rejected    int
}

func NewCoreNetwork(sim *Simulator) *CoreNetwork {
	return &CoreNetwork{
		sim: sim,

		cells:  make(map[rnc.CellId]rnc.RanapCellEntry),
		owners: make(map[rnc.CellId]rnc.RncId),
		ues:    make(map[rnc.UeId]*coreUe),
	}
}

func (c *CoreNetwork) addScript(config model.UeIE) {
	c.scripts = append(c.scripts, config)
}

func (c *CoreNetwork) EstablishedRabs() int {
	return c.established
}

func (c *CoreNetwork) RejectedRabs() int {
	return c.rejected
}

func (c *CoreNetwork) ActiveRabs(ueId rnc.UeId) int {
	if ue, exists := c.ues[ueId]; exists {
		return len(ue.rabs)
	}
	return 0
}

func (c *CoreNetwork) start() {
	for _, script := range c.scripts {
		ueId := rnc.UeId(script.UeId)
		for _, rab := range script.Rabs {
			rab := rab
			c.sim.after(rab.At, func() { c.assignRab(ueId, rab) })
			if rab.ReleaseAt > 0 {
				c.sim.after(rab.ReleaseAt, func() { c.releaseRab(ueId, rab.RabId) })
			}
		}
		if script.ReleaseAt > 0 {
			c.sim.after(script.ReleaseAt, func() { c.releaseUe(ueId, rnc.CauseNormalRelease) })
		}
	}
}

func (c *CoreNetwork) send(rncId rnc.RncId, ueId rnc.UeId, body any) {
	c.sim.send(&rnc.Message{
		Src:  rnc.Peer{Kind: rnc.PeerCore},
		Dst:  rnc.Peer{Kind: rnc.PeerRnc, Id: uint32(rncId)},
		UeId: ueId,
		Body: body,
	})
}

func qosOf(trafficClass rnc.TrafficClass, rate uint32) rnc.QosParams {
	qos := rnc.QosParams{TrafficClass: trafficClass, MaxBitRate: rate}
	if trafficClass == rnc.Conversational || trafficClass == rnc.Streaming {
		qos.GuaranteedBitRate = rate
	}
	return qos
}

func (c *CoreNetwork) assignRab(ueId rnc.UeId, rab model.RabIE) {
	ue, exists := c.ues[ueId]
	if !exists {
		c.sim.CnLog.Warnf("RAB %d of UE %d skipped: UE not registered", rab.RabId, ueId)
		return
	}
	domain, err := rnc.ParseCnDomain(rab.Domain)
	if err != nil {
		c.sim.CnLog.Errorf("RAB %d of UE %d skipped: %v", rab.RabId, ueId, err)
		return
	}
	trafficClass, err := rnc.ParseTrafficClass(rab.TrafficClass)
	if err != nil {
		c.sim.CnLog.Errorf("RAB %d of UE %d skipped: %v", rab.RabId, ueId, err)
		return
	}

	c.sim.CnLog.Infof("RAB assignment: UE %d, RAB %d, %v %v, UL %d DL %d", ueId, rab.RabId, domain, trafficClass, rab.UlRate, rab.DlRate)
	c.send(ue.rncId, ueId, &rnc.RanapRabAssignmentRequest{
		RabId:  rab.RabId,
		Domain: domain,
		Ul:     qosOf(trafficClass, rab.UlRate),
		Dl:     qosOf(trafficClass, rab.DlRate),
	})
}

func (c *CoreNetwork) releaseRab(ueId rnc.UeId, rabId uint8) {
	ue, exists := c.ues[ueId]
	if !exists || !ue.rabs[rabId] {
		return
	}
	c.send(ue.rncId, ueId, &rnc.RanapRabReleaseRequest{RabId: rabId})
}

func (c *CoreNetwork) releaseUe(ueId rnc.UeId, cause rnc.Cause) {
	ue, exists := c.ues[ueId]
	if !exists {
		return
	}
	for _, domain := range []rnc.CnDomain{rnc.DomainCs, rnc.DomainPs} {
		if ue.domains[domain] {
			c.send(ue.rncId, ueId, &rnc.RanapIuReleaseCommand{Domain: domain, Cause: cause})
		}
	}
}

func (c *CoreNetwork) handleMessage(msg *rnc.Message) {
	rncId := rnc.RncId(msg.Src.Id)
	switch body := msg.Body.(type) {
	case *rnc.RanapCellRegistration:
		for _, entry := range body.Cells {
			c.cells[entry.CellId] = entry
			c.owners[entry.CellId] = rncId
		}
		c.sim.CnLog.Tracef("RNC %d registered %d cells", rncId, len(body.Cells))
	case *rnc.RanapCellLookupRequest:
		entry, found := c.cells[body.CellId]
		c.send(rncId, 0, &rnc.RanapCellLookupReply{
			CellId:  body.CellId,
			Found:   found,
			NodebId: entry.NodebId,
			RncId:   c.owners[body.CellId],
		})
	case *rnc.RanapInitialUeMessage:
		ue, exists := c.ues[msg.UeId]
		if !exists {
			ue = &coreUe{domains: make(map[rnc.CnDomain]bool), rabs: make(map[uint8]bool)}
			c.ues[msg.UeId] = ue
		}
		ue.rncId = rncId
		ue.domains[body.Domain] = true
		c.sim.CnLog.Infof("UE %d registered on %v via RNC %d", msg.UeId, body.Domain, rncId)
		c.send(rncId, msg.UeId, &rnc.RanapDirectTransfer{Domain: body.Domain, Nas: []byte(constant.REGISTRATION_ACCEPT_NAS_PDU)})
	case *rnc.RanapDirectTransfer:
		c.sim.CnLog.Debugf("Uplink NAS of UE %d on %v: %x", msg.UeId, body.Domain, []byte(body.Nas))
	case *rnc.RanapRabAssignmentResponse:
		if !body.Success {
			c.rejected++
			c.sim.CnLog.Warnf("RAB %d of UE %d rejected: %v", body.RabId, msg.UeId, body.Cause)
			return
		}
		c.established++
		if ue, exists := c.ues[msg.UeId]; exists {
			ue.rabs[body.RabId] = true
		}
		c.sim.CnLog.Infof("RAB %d of UE %d established, TEID %x", body.RabId, msg.UeId, []byte(body.Teid))
	case *rnc.RanapRabReleaseResponse:
		if ue, exists := c.ues[msg.UeId]; exists && body.Success {
			delete(ue.rabs, body.RabId)
		}
		c.sim.CnLog.Infof("RAB %d of UE %d release: success %v", body.RabId, msg.UeId, body.Success)
	case *rnc.RanapIuReleaseRequest:
		c.sim.CnLog.Infof("Iu release requested for UE %d: %v", msg.UeId, body.Cause)
		c.releaseUe(msg.UeId, body.Cause)
	case *rnc.RanapIuReleaseComplete:
		ue, exists := c.ues[msg.UeId]
		if !exists {
			return
		}
		delete(ue.domains, body.Domain)
		if len(ue.domains) == 0 {
			delete(c.ues, msg.UeId)
			c.sim.CnLog.Infof("UE %d deregistered", msg.UeId)
		}
	default:
		c.sim.CnLog.Warnf("Unknown RANAP message %T from RNC %d", msg.Body, rncId)
	}
}
