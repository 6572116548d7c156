package rnc

import (
	"errors"
	"testing"
	"time"

	"github.com/Alonza0314/free-rnc/constant"
	"github.com/Alonza0314/free-rnc/model"
	"github.com/go-playground/assert/v2"
)

var testCellEnableSharedCases = []struct {
	name        string
	poolCodes   int
	sharedUsers int
	failures    int
}{
	{
		name:        "pool-covers-every-bearer",
		poolCodes:   3,
		sharedUsers: 3,
		failures:    0,
	},
	{
		name:        "pool-of-one",
		poolCodes:   1,
		sharedUsers: 1,
		failures:    2,
	},
}

func TestCellEnableShared(t *testing.T) {
	for _, testCase := range testCellEnableSharedCases {
		t.Run(testCase.name, func(t *testing.T) {
			config := model.RncIE{CodePlan: model.CodePlanIE{HsdpaEnabled: true, SharedChannelCodes: testCase.poolCodes}}
			config.ApplyDefaults()
			admission := NewAdmissionControl(config.Admission)
			cell := NewCellContext(100, 10, 100, config.CodePlan, func() time.Duration { return 0 })

			for rabId := uint8(1); rabId <= 3; rabId++ {
				plan, err := MapQos(rabId, constant.FIRST_RAB_RB_ID+rabId-1, DomainPs, interactiveQos(64000), interactiveQos(64000), true)
				if err != nil {
					t.Fatalf("Failed to map QoS: %v", err)
				}
				if err := cell.ReserveBearer(1, 1, plan, false, admission, config.CodePlan); err != nil {
					t.Fatalf("Failed to reserve bearer: %v", err)
				}
			}
			assert.Equal(t, 0, cell.SharedUsers())

			err := cell.EnableShared(1, admission)
			assert.Equal(t, testCase.sharedUsers, cell.SharedUsers())
			if testCase.failures == 0 {
				assert.Equal(t, nil, err)
				return
			}
			assert.Equal(t, true, errors.Is(err, ErrInsufficientCapacity))
			joined, ok := err.(interface{ Unwrap() []error })
			assert.Equal(t, true, ok)
			assert.Equal(t, testCase.failures, len(joined.Unwrap()))
		})
	}
}

func TestCellBearerCombinesCodeWidths(t *testing.T) {
	config := model.RncIE{}
	config.ApplyDefaults()
	admission := NewAdmissionControl(config.Admission)
	cell := NewCellContext(100, 10, 100, config.CodePlan, func() time.Duration { return 0 })

	// one free SF64 code and one free SF512 code elsewhere
	tree := cell.CodeTree()
	tree.Commit(tree.Reserve(LevelOf(512), 1, false))
	tree.Commit(tree.Reserve(LevelOf(64), tree.CountFree(LevelOf(64))-1, false))
	assert.Equal(t, 1, tree.CountFree(LevelOf(64)))
	assert.Equal(t, 2, tree.CountFree(LevelOf(128)))

	plan, err := MapQos(1, constant.FIRST_RAB_RB_ID, DomainPs, interactiveQos(64000), interactiveQos(64000), false)
	if err != nil {
		t.Fatalf("Failed to map QoS: %v", err)
	}
	if err := cell.ReserveBearer(1, 1, plan, true, admission, config.CodePlan); err != nil {
		t.Fatalf("Failed to reserve bearer: %v", err)
	}

	codes := cell.DlCodes(1, constant.FIRST_RAB_RB_ID)
	assert.Equal(t, []int{126, 516}, codes)
	assert.Equal(t, 64, SpreadingFactorOf(codes[0]))
	assert.Equal(t, 512, SpreadingFactorOf(codes[1]))
}
