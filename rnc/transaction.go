package rnc

import (
	"sync"

	"github.com/Alonza0314/free-rnc/constant"
	"github.com/bits-and-blooms/bitset"
)

// TransactionIdGenerator correlates NBAP, cell-level and Iur responses with
// the procedure that issued the request. Zero is never allocated.
type TransactionIdGenerator struct {
	used *bitset.BitSet
	next uint
	mtx  sync.Mutex
}

func NewTransactionIdGenerator() *TransactionIdGenerator {
	return &TransactionIdGenerator{
		used: bitset.New(constant.MAX_TRANSACTION_ID + 1),
		next: 1,
		mtx:  sync.Mutex{},
	}
}

func (g *TransactionIdGenerator) AllocateTransactionId() uint32 {
	g.mtx.Lock()
	defer g.mtx.Unlock()

	for i := 0; i < constant.MAX_TRANSACTION_ID; i++ {
		candidate := g.next
		g.next++
		if g.next > constant.MAX_TRANSACTION_ID {
			g.next = 1
		}
		if !g.used.Test(candidate) {
			g.used.Set(candidate)
			return uint32(candidate)
		}
	}

	return 0
}

func (g *TransactionIdGenerator) ReleaseTransactionId(transactionId uint32) {
	g.mtx.Lock()
	defer g.mtx.Unlock()

	g.used.Clear(uint(transactionId))
}

func (g *TransactionIdGenerator) InUse() uint {
	g.mtx.Lock()
	defer g.mtx.Unlock()

	return g.used.Count()
}
