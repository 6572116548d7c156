package rnc

import (
	"errors"
	"math"
	"math/bits"

	"github.com/Alonza0314/free-rnc/constant"
)

var ErrInsufficientCapacity = errors.New("insufficient code capacity")

type CodeState int

const (
	CodeFree CodeState = iota
	CodeAllocated
	CodeReserved
	CodeReservedForSharedChannel
)

func (s CodeState) String() string {
	return enumName([]string{"Free", "Allocated", "Reserved", "ReservedForSharedChannel"}, "CodeState", int(s))
}

// CodeTree is an OVSF code space stored as a perfect binary tree. Index 0 is
// SF1, level l holds the 2^l codes of SF 2^l and node i has children 2i+1 and
// 2i+2.
type CodeTree struct {
	maxSpreadingFactor int
	depth              int

	states     []CodeState
	sharedPool []bool
}

func NewCodeTree(maxSpreadingFactor int) *CodeTree {
	return &CodeTree{
		maxSpreadingFactor: maxSpreadingFactor,
		depth:              bits.TrailingZeros(uint(maxSpreadingFactor)),

		states:     make([]CodeState, 2*maxSpreadingFactor-1),
		sharedPool: make([]bool, 2*maxSpreadingFactor-1),
	}
}

func LevelOf(spreadingFactor int) int {
	return bits.TrailingZeros(uint(spreadingFactor))
}

func SpreadingFactorOf(code int) int {
	return 1 << codeLevel(code)
}

func codeLevel(code int) int {
	return bits.Len(uint(code+1)) - 1
}

func parentOf(code int) int {
	return (code - 1) / 2
}

func (c *CodeTree) MaxSpreadingFactor() int {
	return c.maxSpreadingFactor
}

func (c *CodeTree) State(code int) CodeState {
	return c.states[code]
}

func (c *CodeTree) Snapshot() []CodeState {
	snapshot := make([]CodeState, len(c.states))
	copy(snapshot, c.states)
	return snapshot
}

// IsAncestor reports whether a lies on the path from b to the root.
func IsAncestor(a, b int) bool {
	for b > a {
		b = parentOf(b)
		if b == a {
			return true
		}
	}
	return false
}

func (c *CodeTree) levelRange(level int) (int, int) {
	first := (1 << level) - 1
	return first, 2 * first
}

func (c *CodeTree) validLevel(level int) bool {
	return level >= 0 && level <= c.depth
}

func (c *CodeTree) markSubtree(code int, state CodeState) {
	first, last := code, code
	for first < len(c.states) {
		for i := first; i <= last; i++ {
			c.states[i] = state
		}
		first, last = 2*first+1, 2*last+2
	}
}

func (c *CodeTree) setSubtreeFrom(code int, from, to CodeState) {
	first, last := code, code
	for first < len(c.states) {
		for i := first; i <= last; i++ {
			if c.states[i] == from {
				c.states[i] = to
			}
		}
		first, last = 2*first+1, 2*last+2
	}
}

func (c *CodeTree) CountFree(level int) int {
	if !c.validLevel(level) {
		return 0
	}
	count := 0
	first, last := c.levelRange(level)
	for i := first; i <= last; i++ {
		if c.states[i] == CodeFree {
			count++
		}
	}
	return count
}

// Reserve returns up to count codes of the level. Partial results are the
// caller's to roll back.
func (c *CodeTree) Reserve(level int, count int, shared bool) []int {
	reserved := make([]int, 0, count)
	if !c.validLevel(level) || count <= 0 {
		return reserved
	}

	want := CodeFree
	if shared {
		want = CodeReservedForSharedChannel
	}

	first, last := c.levelRange(level)
	for i := first; i <= last && len(reserved) < count; i++ {
		if c.states[i] != want {
			continue
		}
		c.markSubtree(i, CodeReserved)
		for p := i; p > 0; {
			p = parentOf(p)
			if c.states[p] != CodeFree {
				break
			}
			c.states[p] = CodeReserved
		}
		reserved = append(reserved, i)
	}
	return reserved
}

func (c *CodeTree) Commit(codes []int) {
	for _, code := range codes {
		c.setSubtreeFrom(code, CodeReserved, CodeAllocated)
		for p := code; p > 0; {
			p = parentOf(p)
			if c.states[p] == CodeReserved {
				c.states[p] = CodeAllocated
			}
		}
	}
}

func (c *CodeTree) Rollback(codes []int) {
	c.Release(codes)
}

func (c *CodeTree) Release(codes []int) {
	for _, code := range codes {
		if c.sharedPool[code] {
			c.markSubtree(code, CodeReservedForSharedChannel)
			continue
		}
		c.markSubtree(code, CodeFree)
		for p := code; p > 0; {
			p = parentOf(p)
			if c.states[2*p+1] != CodeFree || c.states[2*p+2] != CodeFree {
				break
			}
			c.states[p] = CodeFree
		}
	}
}

// AllocateFixed marks count codes of the level Allocated at setup time, used
// for the common channels.
func (c *CodeTree) AllocateFixed(level int, count int) []int {
	codes := c.Reserve(level, count, false)
	c.Commit(codes)
	return codes
}

// ReserveSharedPool dedicates the last count codes of the level to the shared
// channel. Their ancestors are blocked for dedicated use.
func (c *CodeTree) ReserveSharedPool(level int, count int) []int {
	pool := make([]int, 0, count)
	if !c.validLevel(level) {
		return pool
	}
	first, last := c.levelRange(level)
	for i := last; i >= first && len(pool) < count; i-- {
		if c.states[i] != CodeFree {
			continue
		}
		c.markSubtree(i, CodeReservedForSharedChannel)
		c.sharedPool[i] = true
		for p := i; p > 0; {
			p = parentOf(p)
			if c.states[p] != CodeFree {
				break
			}
			c.states[p] = CodeAllocated
		}
		pool = append(pool, i)
	}
	return pool
}

// CodeCapacity is the usable bit rate of one code of the spreading factor.
func CodeCapacity(spreadingFactor int, bitsPerSymbol int, codingMultiplier float64) float64 {
	return float64(constant.CHIP_RATE) / float64(spreadingFactor) * float64(bitsPerSymbol) / codingMultiplier
}

// ReserveRate reserves at most maxCodes codes, between minSf and maxSf,
// whose capacities add up to the rate. The narrowest single width that fits
// the budget and still has enough free codes wins. Failing that, widths are
// combined: coarse codes carry the bulk of the rate and one finer code the
// rest. A failed attempt leaves the tree as it was.
func (c *CodeTree) ReserveRate(rate uint32, codingMultiplier float64, bitsPerSymbol int, minSf int, maxSf int, maxCodes int) ([]int, error) {
	if rate == 0 {
		return nil, nil
	}

	for sf := maxSf; sf >= minSf; sf /= 2 {
		need := int(math.Ceil(float64(rate) / CodeCapacity(sf, bitsPerSymbol, codingMultiplier)))
		if need <= maxCodes && c.CountFree(LevelOf(sf)) >= need {
			return c.Reserve(LevelOf(sf), need, false), nil
		}
	}

	codes := make([]int, 0, maxCodes)
	remaining := float64(rate)
	for sf := minSf; sf <= maxSf && remaining > 0 && len(codes) < maxCodes; sf *= 2 {
		capacity := CodeCapacity(sf, bitsPerSymbol, codingMultiplier)
		take := min(int(remaining/capacity), maxCodes-len(codes))
		if take == 0 {
			continue
		}
		reserved := c.Reserve(LevelOf(sf), take, false)
		codes = append(codes, reserved...)
		remaining -= float64(len(reserved)) * capacity
	}

	for sf := maxSf; sf >= minSf && remaining > 0 && len(codes) < maxCodes; sf /= 2 {
		if CodeCapacity(sf, bitsPerSymbol, codingMultiplier) < remaining {
			continue
		}
		if reserved := c.Reserve(LevelOf(sf), 1, false); len(reserved) == 1 {
			codes = append(codes, reserved...)
			remaining = 0
		}
	}

	if remaining > 0 {
		c.Rollback(codes)
		return nil, ErrInsufficientCapacity
	}
	return codes, nil
}
