package rnc

import (
	"encoding/binary"
	"fmt"
	"sync"

	"github.com/Alonza0314/free-rnc/constant"
	"github.com/bits-and-blooms/bitset"
	"github.com/free5gc/aper"
)

// TeidGenerator hands out the Iu-PS tunnel endpoint ids correlating RABs with
// the core network.
type TeidGenerator struct {
	teids *bitset.BitSet
	mtx   sync.Mutex
}

func NewTeidGenerator() *TeidGenerator {
	return &TeidGenerator{
		teids: bitset.New(constant.MAX_TEID + 1),
		mtx:   sync.Mutex{},
	}
}

func (t *TeidGenerator) AllocateTeid() aper.OctetString {
	t.mtx.Lock()
	defer t.mtx.Unlock()

	value, found := t.teids.NextClear(1)
	if !found || value > constant.MAX_TEID {
		return aper.OctetString{}
	}
	t.teids.Set(value)

	teid := make([]byte, 4)
	binary.BigEndian.PutUint32(teid, uint32(value))
	return aper.OctetString(teid)
}

func (t *TeidGenerator) ReleaseTeid(teid aper.OctetString) error {
	t.mtx.Lock()
	defer t.mtx.Unlock()

	if len(teid) != 4 {
		return fmt.Errorf("Error release teid %x: invalid length %d", []byte(teid), len(teid))
	}

	value := uint(binary.BigEndian.Uint32(teid))
	if !t.teids.Test(value) {
		return fmt.Errorf("Error release teid %x: not allocated", []byte(teid))
	}
	t.teids.Clear(value)
	return nil
}

func (t *TeidGenerator) InUse() uint {
	t.mtx.Lock()
	defer t.mtx.Unlock()

	return t.teids.Count()
}
