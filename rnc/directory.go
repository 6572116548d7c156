package rnc

type CellDirectoryEntry struct {
	NodebId NodebId
	RncId   RncId
}

// CellDirectory caches which RNC owns a cell. Misses are resolved by a
// lookup round trip to the core network, at most one in flight per cell.
type CellDirectory struct {
	entries map[CellId]CellDirectoryEntry
	pending map[CellId]struct{}
}

func NewCellDirectory() *CellDirectory {
	return &CellDirectory{
		entries: make(map[CellId]CellDirectoryEntry),
		pending: make(map[CellId]struct{}),
	}
}

func (d *CellDirectory) Lookup(cellId CellId) (CellDirectoryEntry, bool) {
	entry, exists := d.entries[cellId]
	return entry, exists
}

func (d *CellDirectory) Store(cellId CellId, entry CellDirectoryEntry) {
	d.entries[cellId] = entry
	delete(d.pending, cellId)
}

// MarkPending returns false when a lookup for the cell is already running.
func (d *CellDirectory) MarkPending(cellId CellId) bool {
	if _, exists := d.pending[cellId]; exists {
		return false
	}
	d.pending[cellId] = struct{}{}
	return true
}

func (d *CellDirectory) ClearPending(cellId CellId) {
	delete(d.pending, cellId)
}

func (d *CellDirectory) IsPending(cellId CellId) bool {
	_, exists := d.pending[cellId]
	return exists
}

func (d *CellDirectory) Len() int {
	return len(d.entries)
}

// ownerOf resolves the RNC hosting the cell. An unknown cell starts a lookup
// and reports false.
func (r *Rnc) ownerOf(cellId CellId) (RncId, bool) {
	if _, local := r.cells[cellId]; local {
		return r.rncId, true
	}
	if entry, exists := r.directory.Lookup(cellId); exists {
		return entry.RncId, true
	}
	r.lookupCell(cellId)
	return 0, false
}

func (r *Rnc) lookupCell(cellId CellId) {
	if !r.directory.MarkPending(cellId) {
		return
	}
	r.RncLog.Debugf("Looking up cell %d at the core network", cellId)
	r.sendToCore(0, cellId, &RanapCellLookupRequest{CellId: cellId})
}

func (r *Rnc) handleCellLookupReply(reply *RanapCellLookupReply) {
	if !reply.Found {
		r.RncLog.Warnf("Cell %d unknown to the core network", reply.CellId)
		r.directory.ClearPending(reply.CellId)
		return
	}
	r.directory.Store(reply.CellId, CellDirectoryEntry{NodebId: reply.NodebId, RncId: reply.RncId})
	r.RncLog.Debugf("Cell %d resolved to NodeB %d on RNC %d", reply.CellId, reply.NodebId, reply.RncId)
}

// announceCells registers every local cell with the core network.
func (r *Rnc) announceCells() {
	if len(r.cells) == 0 {
		return
	}
	registration := &RanapCellRegistration{Cells: make([]RanapCellEntry, 0, len(r.cells))}
	for nodebId, cellIds := range r.nodebs {
		for _, cellId := range cellIds {
			registration.Cells = append(registration.Cells, RanapCellEntry{CellId: cellId, NodebId: nodebId})
		}
	}
	r.sendToCore(0, 0, registration)
	r.RncLog.Tracef("Announced %d cells to the core network", len(registration.Cells))
}
