package rnc

import (
	"testing"
	"time"

	"github.com/Alonza0314/free-rnc/model"
	"github.com/go-playground/assert/v2"
)

var testAdmitDedicatedCases = []struct {
	name      string
	direction Direction
	rate      uint32
	admitted  bool
}{
	{
		name:      "zero-rate",
		direction: Uplink,
		rate:      0,
		admitted:  true,
	},
	{
		name:      "at-threshold",
		direction: Uplink,
		rate:      1500000,
		admitted:  true,
	},
	{
		name:      "above-threshold",
		direction: Downlink,
		rate:      1500001,
		admitted:  false,
	},
}

func TestAdmitDedicated(t *testing.T) {
	config := model.RncIE{}
	config.ApplyDefaults()
	admission := NewAdmissionControl(config.Admission)

	for _, testCase := range testAdmitDedicatedCases {
		t.Run(testCase.name, func(t *testing.T) {
			cell := NewCellContext(100, 10, 100, config.CodePlan, func() time.Duration { return 0 })
			assert.Equal(t, testCase.admitted, admission.AdmitDedicated(cell, testCase.direction, testCase.rate))
		})
	}
}

func TestAdmitShared(t *testing.T) {
	config := model.RncIE{}
	config.ApplyDefaults()
	admission := NewAdmissionControl(config.Admission)
	cell := NewCellContext(100, 10, 100, config.CodePlan, func() time.Duration { return 0 })

	assert.Equal(t, true, admission.AdmitShared(cell, 0))
	assert.Equal(t, true, admission.AdmitShared(cell, 2000000))
	assert.Equal(t, false, admission.AdmitShared(cell, 3100000))
}

func TestAdmitUe(t *testing.T) {
	config := model.RncIE{}
	config.ApplyDefaults()
	admission := NewAdmissionControl(config.Admission)

	assert.Equal(t, true, admission.AdmitUe(3400, 380600))
	assert.Equal(t, false, admission.AdmitUe(3400, 380601))
}
