package rnc

// RelayUe is kept by an RNC hosting active-set cells for a UE anchored on a
// peer RNC. refCount counts the joined cells.
type RelayUe struct {
	ueId   UeId
	anchor RncId

	refCount int
}

func NewRelayUe(ueId UeId, anchor RncId) *RelayUe {
	return &RelayUe{
		ueId:   ueId,
		anchor: anchor,

		refCount: 0,
	}
}

func (x *RelayUe) GetUeId() UeId {
	return x.ueId
}

func (x *RelayUe) GetAnchor() RncId {
	return x.anchor
}

func (x *RelayUe) GetRefCount() int {
	return x.refCount
}

func (r *Rnc) relayJoin(ueId UeId, anchor RncId) {
	relayUe, exists := r.relayUes[ueId]
	if exists && relayUe.anchor != anchor {
		r.IurLog.Warnf("Relay UE %d moves from anchor RNC %d to %d", ueId, relayUe.anchor, anchor)
		r.releaseRelayUe(relayUe.anchor, ueId)
		exists = false
	}
	if !exists {
		relayUe = NewRelayUe(ueId, anchor)
		r.relayUes[ueId] = relayUe
	}
	relayUe.refCount++
	r.IurLog.Debugf("Relay UE %d for anchor RNC %d, refCount %d", ueId, anchor, relayUe.refCount)
}

func (r *Rnc) relayLeave(ueId UeId) {
	relayUe, exists := r.relayUes[ueId]
	if !exists {
		return
	}
	relayUe.refCount--
	if relayUe.refCount <= 0 {
		delete(r.relayUes, ueId)
		r.IurLog.Debugf("Relay UE %d removed", ueId)
		return
	}
	r.IurLog.Debugf("Relay UE %d refCount %d", ueId, relayUe.refCount)
}

// ueRole is the part this RNC plays for a UE: anchorRole or relayRole.
type ueRole interface {
	isUeRole()
}

type anchorRole struct {
	ue *UeContext
}

type relayRole struct {
	relayUe *RelayUe
}

func (anchorRole) isUeRole() {}

func (relayRole) isUeRole() {}

// roleOf returns nil for a UE this RNC knows nothing about.
func (r *Rnc) roleOf(ueId UeId) ueRole {
	if ue, exists := r.ues[ueId]; exists {
		return anchorRole{ue: ue}
	}
	if relayUe, exists := r.relayUes[ueId]; exists {
		return relayRole{relayUe: relayUe}
	}
	return nil
}
