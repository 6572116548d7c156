package rnc

func (r *Rnc) handleRanap(msg *Message) {
	switch body := msg.Body.(type) {
	case *RanapRabAssignmentRequest:
		r.RanapLog.Infof("RAB assignment request: UE %d, RAB %d, %v", msg.UeId, body.RabId, body.Domain)
		r.handleRabAssignmentRequest(msg.UeId, body)
	case *RanapRabReleaseRequest:
		r.RanapLog.Infof("RAB release request: UE %d, RAB %d", msg.UeId, body.RabId)
		r.handleRabReleaseRequest(msg.UeId, body)
	case *RanapIuReleaseCommand:
		r.handleIuReleaseCommand(msg.UeId, body)
	case *RanapDirectTransfer:
		r.handleDownlinkDirectTransfer(msg.UeId, body)
	case *RanapPaging:
		r.handlePaging(msg.UeId, body)
	case *RanapCellLookupReply:
		r.handleCellLookupReply(body)
	default:
		r.RanapLog.Warnf("Unknown RANAP message %T", msg.Body)
	}
}

// handleIuReleaseCommand drops the signalling connection of one domain and
// releases the RRC connection once no domain is left. Completion is always
// confirmed.
func (r *Rnc) handleIuReleaseCommand(ueId UeId, command *RanapIuReleaseCommand) {
	defer r.sendToCore(ueId, 0, &RanapIuReleaseComplete{Domain: command.Domain})

	ue, exists := r.ues[ueId]
	if !exists {
		r.RanapLog.Debugf("Iu release command for unknown UE %d", ueId)
		return
	}
	r.RanapLog.Infof("Iu release command: UE %d, %v, %v", ueId, command.Domain, command.Cause)

	ue.signalConnByDomain[command.Domain] = false
	if ue.signalConnByDomain[DomainCs] || ue.signalConnByDomain[DomainPs] {
		return
	}
	cause := command.Cause
	if cause == CauseNone {
		cause = CauseNormalRelease
	}
	r.releaseConnection(ue, cause, false)
}

func (r *Rnc) handleDownlinkDirectTransfer(ueId UeId, transfer *RanapDirectTransfer) {
	ue, exists := r.ues[ueId]
	if !exists || ue.rrcState != RrcConnected {
		r.RanapLog.Warnf("Direct transfer for unconnected UE %d dropped", ueId)
		return
	}
	ue.signalConnByDomain[transfer.Domain] = true
	r.sendRrc(ue, &RrcDownlinkDirectTransfer{Domain: transfer.Domain, Nas: transfer.Nas})
}

func (r *Rnc) handlePaging(ueId UeId, paging *RanapPaging) {
	if ue, exists := r.ues[ueId]; exists && ue.rrcState == RrcConnected {
		r.RanapLog.Debugf("Paging UE %d over its connection", ueId)
		r.sendRrc(ue, &RrcPaging{Domain: paging.Domain})
		return
	}

	r.RanapLog.Debugf("Paging UE %d in %d NodeBs", ueId, len(r.nodebs))
	for nodebId, cellIds := range r.nodebs {
		for _, cellId := range cellIds {
			r.sendToNodeb(nodebId, ueId, cellId, 0, &NbapPagingRequest{Domain: paging.Domain})
		}
	}
}

func buildIuReleaseRequest(cause Cause) *RanapIuReleaseRequest {
	return &RanapIuReleaseRequest{Cause: cause}
}

func buildInitialUeMessage(transfer *RrcUplinkDirectTransfer) *RanapInitialUeMessage {
	return &RanapInitialUeMessage{Domain: transfer.Domain, Nas: transfer.Nas}
}

func buildUplinkDirectTransfer(transfer *RrcUplinkDirectTransfer) *RanapDirectTransfer {
	return &RanapDirectTransfer{Domain: transfer.Domain, Nas: transfer.Nas}
}
