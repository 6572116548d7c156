package rnc

import (
	"fmt"
	"testing"

	"github.com/go-playground/assert/v2"
)

var testEnumStringCases = []struct {
	name     string
	value    fmt.Stringer
	expected string
}{
	{
		name:     "timer-kind",
		value:    TimerAnnounce,
		expected: "Announce",
	},
	{
		name:     "timer-kind-out-of-range",
		value:    TimerKind(7),
		expected: "TimerKind(7)",
	},
	{
		name:     "cause",
		value:    CauseNone,
		expected: "None",
	},
	{
		name:     "cause-negative",
		value:    Cause(-1),
		expected: "Cause(-1)",
	},
	{
		name:     "code-state-out-of-range",
		value:    CodeState(9),
		expected: "CodeState(9)",
	},
	{
		name:     "rab-state-out-of-range",
		value:    RabState(42),
		expected: "RabState(42)",
	},
	{
		name:     "membership",
		value:    Membership(3),
		expected: "ActiveToMonitored",
	},
	{
		name:     "request-kind-out-of-range",
		value:    RequestKind(2),
		expected: "RequestKind(2)",
	},
}

func TestEnumString(t *testing.T) {
	for _, testCase := range testEnumStringCases {
		t.Run(testCase.name, func(t *testing.T) {
			assert.Equal(t, testCase.expected, testCase.value.String())
		})
	}
}
