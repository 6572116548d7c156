package rnc

import (
	"testing"

	"github.com/go-playground/assert/v2"
)

func newCellCodeTree() *CodeTree {
	tree := NewCodeTree(512)
	tree.AllocateFixed(LevelOf(256), 2)
	tree.ReserveSharedPool(LevelOf(16), 5)
	return tree
}

var testCodeTreeRoundTripCases = []struct {
	name   string
	level  int
	count  int
	commit bool
}{
	{name: "reserve-rollback-sf512", level: 9, count: 1, commit: false},
	{name: "reserve-rollback-sf128x3", level: 7, count: 3, commit: false},
	{name: "commit-release-sf4", level: 2, count: 1, commit: true},
	{name: "commit-release-sf16x3", level: 4, count: 3, commit: true},
	{name: "commit-release-sf256x3", level: 8, count: 3, commit: true},
}

func TestCodeTreeRoundTrip(t *testing.T) {
	for _, testCase := range testCodeTreeRoundTripCases {
		t.Run(testCase.name, func(t *testing.T) {
			tree := newCellCodeTree()
			before := tree.Snapshot()

			codes := tree.Reserve(testCase.level, testCase.count, false)
			assert.Equal(t, testCase.count, len(codes))
			for _, code := range codes {
				assert.Equal(t, CodeReserved, tree.State(code))
			}

			if testCase.commit {
				tree.Commit(codes)
				for _, code := range codes {
					assert.Equal(t, CodeAllocated, tree.State(code))
				}
				tree.Release(codes)
			} else {
				tree.Rollback(codes)
			}

			assert.Equal(t, before, tree.Snapshot())
		})
	}
}

func TestCodeTreeExhaustedLevel(t *testing.T) {
	tree := NewCodeTree(4)

	codes := tree.Reserve(LevelOf(4), 4, false)
	assert.Equal(t, 4, len(codes))
	tree.Commit(codes)

	assert.Equal(t, 0, len(tree.Reserve(LevelOf(4), 1, false)))
	assert.Equal(t, 0, len(tree.Reserve(LevelOf(2), 1, false)))
	assert.Equal(t, 0, tree.CountFree(LevelOf(4)))

	tree.Release(codes[:2])
	assert.Equal(t, CodeFree, tree.State(1))
	assert.Equal(t, CodeAllocated, tree.State(2))
	assert.Equal(t, CodeAllocated, tree.State(0))

	tree.Release(codes[2:])
	for code := 0; code < 7; code++ {
		assert.Equal(t, CodeFree, tree.State(code))
	}
}

func TestCodeTreePartialReservation(t *testing.T) {
	tree := NewCodeTree(8)
	before := tree.Snapshot()

	codes := tree.Reserve(LevelOf(2), 3, false)
	assert.Equal(t, 2, len(codes))

	tree.Rollback(codes)
	assert.Equal(t, before, tree.Snapshot())
}

func TestCodeTreeNoOverlappingAllocations(t *testing.T) {
	tree := newCellCodeTree()

	var committed []int
	steps := []struct {
		level   int
		count   int
		release bool
	}{
		{level: 7, count: 3},
		{level: 5, count: 1},
		{level: 9, count: 2},
		{level: 3, count: 2},
		{level: 7, count: 1, release: true},
		{level: 6, count: 3},
		{level: 8, count: 3},
		{level: 4, count: 2, release: true},
		{level: 2, count: 1},
	}

	for _, step := range steps {
		codes := tree.Reserve(step.level, step.count, false)
		tree.Commit(codes)
		if step.release {
			tree.Release(codes)
			continue
		}
		committed = append(committed, codes...)
	}

	for i := range committed {
		assert.Equal(t, CodeAllocated, tree.State(committed[i]))
		for j := range committed {
			if i == j {
				continue
			}
			assert.Equal(t, false, IsAncestor(committed[i], committed[j]))
		}
	}
}

func TestCodeTreeSharedPool(t *testing.T) {
	tree := NewCodeTree(512)
	pool := tree.ReserveSharedPool(LevelOf(16), 5)
	assert.Equal(t, []int{30, 29, 28, 27, 26}, pool)
	assert.Equal(t, CodeAllocated, tree.State(parentOf(30)))

	dedicated := tree.Reserve(LevelOf(16), 1, true)
	assert.Equal(t, []int{26}, dedicated)
	assert.Equal(t, CodeReserved, tree.State(26))
	tree.Commit(dedicated)

	tree.Release(dedicated)
	assert.Equal(t, CodeReservedForSharedChannel, tree.State(26))
	assert.Equal(t, CodeReservedForSharedChannel, tree.State(2*26+1))

	assert.Equal(t, 5, len(tree.Reserve(LevelOf(16), 6, true)))
}

var testCodeTreeCountFreeCases = []struct {
	name            string
	maxSf           int
	spreadingFactor int
	expected        int
}{
	{name: "sf1", maxSf: 8, spreadingFactor: 1, expected: 1},
	{name: "sf2", maxSf: 8, spreadingFactor: 2, expected: 2},
	{name: "sf8", maxSf: 8, spreadingFactor: 8, expected: 8},
	{name: "sf512", maxSf: 512, spreadingFactor: 512, expected: 512},
	{name: "beyond-depth", maxSf: 8, spreadingFactor: 16, expected: 0},
}

func TestCodeTreeCountFree(t *testing.T) {
	for _, testCase := range testCodeTreeCountFreeCases {
		t.Run(testCase.name, func(t *testing.T) {
			tree := NewCodeTree(testCase.maxSf)
			assert.Equal(t, testCase.expected, tree.CountFree(LevelOf(testCase.spreadingFactor)))
		})
	}
}

func TestCodeTreeDeepestLevelExhausted(t *testing.T) {
	tree := NewCodeTree(512)

	codes := tree.Reserve(LevelOf(512), 512, false)
	assert.Equal(t, 512, len(codes))
	assert.Equal(t, 511, codes[0])
	assert.Equal(t, 1022, codes[len(codes)-1])
	tree.Commit(codes)

	assert.Equal(t, 0, len(tree.Reserve(LevelOf(512), 1, false)))
	assert.Equal(t, 0, tree.CountFree(LevelOf(512)))

	_, err := tree.ReserveRate(3400, 2, 2, 4, 512, 3)
	assert.Equal(t, ErrInsufficientCapacity, err)
}

var testCodeTreeReserveRateCases = []struct {
	name          string
	rate          uint32
	bitsPerSymbol int
	maxSf         int
	level         int
	count         int
	expectedError error
}{
	{
		name:          "zero-rate",
		rate:          0,
		bitsPerSymbol: 2,
		maxSf:         512,
		count:         0,
		expectedError: nil,
	},
	{
		name:          "dl-srb",
		rate:          3400,
		bitsPerSymbol: 2,
		maxSf:         512,
		level:         9,
		count:         1,
		expectedError: nil,
	},
	{
		name:          "dl-64k",
		rate:          64000,
		bitsPerSymbol: 2,
		maxSf:         512,
		level:         7,
		count:         3,
		expectedError: nil,
	},
	{
		name:          "ul-64k",
		rate:          64000,
		bitsPerSymbol: 1,
		maxSf:         256,
		level:         6,
		count:         3,
		expectedError: nil,
	},
	{
		name:          "dl-over-capacity",
		rate:          5000000,
		bitsPerSymbol: 2,
		maxSf:         512,
		count:         0,
		expectedError: ErrInsufficientCapacity,
	},
}

func TestCodeTreeReserveRate(t *testing.T) {
	for _, testCase := range testCodeTreeReserveRateCases {
		t.Run(testCase.name, func(t *testing.T) {
			tree := NewCodeTree(testCase.maxSf)
			before := tree.Snapshot()

			codes, err := tree.ReserveRate(testCase.rate, 2, testCase.bitsPerSymbol, 4, testCase.maxSf, 3)
			assert.Equal(t, testCase.expectedError, err)
			assert.Equal(t, testCase.count, len(codes))
			for _, code := range codes {
				assert.Equal(t, testCase.level, codeLevel(code))
			}

			tree.Rollback(codes)
			assert.Equal(t, before, tree.Snapshot())
		})
	}
}

// fragmentedCodeTree leaves one free SF4 code (6) and three free SF8 codes
// (12, 13, 14) in an SF8 tree.
func fragmentedCodeTree() *CodeTree {
	tree := NewCodeTree(8)
	tree.Commit(tree.Reserve(LevelOf(4), 2, false))
	tree.Commit(tree.Reserve(LevelOf(8), 1, false))
	return tree
}

var testCodeTreeCombinedWidthsCases = []struct {
	name          string
	tree          func() *CodeTree
	rate          uint32
	maxCodes      int
	expected      []int
	expectedError error
}{
	{
		name:          "single-width-preferred",
		tree:          func() *CodeTree { return NewCodeTree(8) },
		rate:          1440000,
		maxCodes:      2,
		expected:      []int{3, 4},
		expectedError: nil,
	},
	{
		name:          "sf4-and-sf8",
		tree:          fragmentedCodeTree,
		rate:          1440000,
		maxCodes:      2,
		expected:      []int{6, 12},
		expectedError: nil,
	},
	{
		name:          "remainder-does-not-fit",
		tree:          fragmentedCodeTree,
		rate:          2400000,
		maxCodes:      4,
		expected:      nil,
		expectedError: ErrInsufficientCapacity,
	},
	{
		name:          "budget-too-small",
		tree:          fragmentedCodeTree,
		rate:          1440000,
		maxCodes:      1,
		expected:      nil,
		expectedError: ErrInsufficientCapacity,
	},
}

func TestCodeTreeCombinedWidths(t *testing.T) {
	for _, testCase := range testCodeTreeCombinedWidthsCases {
		t.Run(testCase.name, func(t *testing.T) {
			tree := testCase.tree()
			before := tree.Snapshot()

			codes, err := tree.ReserveRate(testCase.rate, 1, 1, 2, 8, testCase.maxCodes)
			assert.Equal(t, testCase.expectedError, err)
			assert.Equal(t, testCase.expected, codes)

			if err != nil {
				assert.Equal(t, before, tree.Snapshot())
				return
			}
			for _, code := range codes {
				assert.Equal(t, CodeReserved, tree.State(code))
			}
			tree.Rollback(codes)
			assert.Equal(t, before, tree.Snapshot())
		})
	}
}
