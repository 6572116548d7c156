package sim

import (
	"github.com/Alonza0314/free-rnc/model"
	"github.com/Alonza0314/free-rnc/rnc"
)

// Nodeb announces its cells to the controlling RNC and acknowledges every
// NBAP request. Radio links are tracked per cell for inspection only.
type Nodeb struct {
	sim *Simulator

	nodebId rnc.NodebId
	rncId   rnc.RncId
	cells   []model.CellIE

	radioLinks map[rnc.CellId]map[rnc.UeId]bool
}

func NewNodeb(sim *Simulator, config model.NodebIE) *Nodeb {
	nodeb := &Nodeb{
		sim: sim,

		nodebId: rnc.NodebId(config.NodebId),
		rncId:   rnc.RncId(config.RncId),
		cells:   config.Cells,

		radioLinks: make(map[rnc.CellId]map[rnc.UeId]bool),
	}
	for _, cell := range config.Cells {
		nodeb.radioLinks[rnc.CellId(cell.CellId)] = make(map[rnc.UeId]bool)
	}
	return nodeb
}

func (n *Nodeb) self() rnc.Peer {
	return rnc.Peer{Kind: rnc.PeerNodeb, Id: uint32(n.nodebId)}
}

func (n *Nodeb) controller() rnc.Peer {
	return rnc.Peer{Kind: rnc.PeerRnc, Id: uint32(n.rncId)}
}

func (n *Nodeb) start() {
	indication := &rnc.NbapCellSetupIndication{NodebId: n.nodebId}
	for _, cell := range n.cells {
		indication.Cells = append(indication.Cells, rnc.NbapCellInfo{
			CellId:                rnc.CellId(cell.CellId),
			PrimaryScramblingCode: cell.PrimaryScramblingCode,
		})
	}
	n.sim.NodebLog.Infof("NodeB %d announcing %d cells to RNC %d", n.nodebId, len(n.cells), n.rncId)
	n.sim.send(&rnc.Message{Src: n.self(), Dst: n.controller(), Body: indication})
}

// RadioLinks returns the UEs holding a radio link in the cell.
func (n *Nodeb) RadioLinks(cellId rnc.CellId) int {
	return len(n.radioLinks[cellId])
}

func (n *Nodeb) reply(msg *rnc.Message, body any) {
	n.sim.send(&rnc.Message{
		Src:           n.self(),
		Dst:           msg.Src,
		UeId:          msg.UeId,
		CellId:        msg.CellId,
		TransactionId: msg.TransactionId,
		Body:          body,
	})
}

func (n *Nodeb) handleMessage(msg *rnc.Message) {
	links, known := n.radioLinks[msg.CellId]
	if !known {
		n.sim.NodebLog.Warnf("NodeB %d: %T for foreign cell %d", n.nodebId, msg.Body, msg.CellId)
		if _, ok := msg.Body.(*rnc.NbapRadioLinkSetupRequest); ok {
			n.reply(msg, &rnc.NbapRadioLinkSetupResponse{Success: false})
		}
		return
	}

	switch body := msg.Body.(type) {
	case *rnc.NbapRadioLinkSetupRequest:
		links[msg.UeId] = true
		n.sim.NodebLog.Debugf("NodeB %d: radio link for UE %d in cell %d, %d bearers", n.nodebId, msg.UeId, msg.CellId, len(body.Bearers))
		n.reply(msg, &rnc.NbapRadioLinkSetupResponse{Success: true})
	case *rnc.NbapRadioBearerSetupRequest:
		n.sim.NodebLog.Debugf("NodeB %d: bearer %d for UE %d in cell %d", n.nodebId, body.Bearer.RbId, msg.UeId, msg.CellId)
		n.reply(msg, &rnc.NbapRadioBearerSetupResponse{Success: links[msg.UeId]})
	case *rnc.NbapRadioBearerReleaseRequest:
		n.sim.NodebLog.Debugf("NodeB %d: bearer %d of UE %d released in cell %d", n.nodebId, body.RbId, msg.UeId, msg.CellId)
	case *rnc.NbapRadioLinkDeletionRequest:
		delete(links, msg.UeId)
		n.sim.NodebLog.Debugf("NodeB %d: radio link of UE %d deleted in cell %d", n.nodebId, msg.UeId, msg.CellId)
	case *rnc.NbapPagingRequest:
		if ue, exists := n.sim.ues[msg.UeId]; exists {
			ue.page(msg.CellId, body.Domain)
		}
	default:
		n.sim.NodebLog.Warnf("NodeB %d: unknown NBAP message %T", n.nodebId, msg.Body)
	}
}

// failRadioLink reports the loss of the UE's radio link in the cell.
func (n *Nodeb) failRadioLink(ueId rnc.UeId, cellId rnc.CellId) {
	links, known := n.radioLinks[cellId]
	if !known || !links[ueId] {
		return
	}
	n.sim.NodebLog.Infof("NodeB %d: radio link failure of UE %d in cell %d", n.nodebId, ueId, cellId)
	n.sim.send(&rnc.Message{
		Src:    n.self(),
		Dst:    n.controller(),
		UeId:   ueId,
		CellId: cellId,
		Body:   &rnc.NbapRadioLinkFailureIndication{},
	})
}
