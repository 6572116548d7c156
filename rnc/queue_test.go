package rnc

import (
	"testing"

	"github.com/go-playground/assert/v2"
)

var testRequestQueueOrderCases = []struct {
	name     string
	requests []QueuedRequest
	expected []UeId
}{
	{
		name: "conversational-before-background",
		requests: []QueuedRequest{
			{UeId: 1, Domain: DomainPs, TrafficClass: Background},
			{UeId: 2, Domain: DomainCs, TrafficClass: Conversational},
		},
		expected: []UeId{2, 1},
	},
	{
		name: "cs-before-ps",
		requests: []QueuedRequest{
			{UeId: 1, Domain: DomainPs, TrafficClass: Conversational},
			{UeId: 2, Domain: DomainCs, TrafficClass: Background},
		},
		expected: []UeId{2, 1},
	},
	{
		name: "class-order-within-domain",
		requests: []QueuedRequest{
			{UeId: 1, Domain: DomainPs, TrafficClass: Background},
			{UeId: 2, Domain: DomainPs, TrafficClass: Interactive},
			{UeId: 3, Domain: DomainPs, TrafficClass: Streaming},
			{UeId: 4, Domain: DomainPs, TrafficClass: Conversational},
		},
		expected: []UeId{4, 3, 2, 1},
	},
	{
		name: "stable-for-equal-priority",
		requests: []QueuedRequest{
			{UeId: 5, Domain: DomainPs, TrafficClass: Interactive},
			{UeId: 3, Domain: DomainPs, TrafficClass: Interactive},
			{UeId: 9, Domain: DomainCs, TrafficClass: Conversational},
			{UeId: 1, Domain: DomainPs, TrafficClass: Interactive},
		},
		expected: []UeId{9, 5, 3, 1},
	},
}

func TestRequestQueueOrder(t *testing.T) {
	for _, testCase := range testRequestQueueOrderCases {
		t.Run(testCase.name, func(t *testing.T) {
			queue := NewRequestQueue()
			for i := range testCase.requests {
				request := testCase.requests[i]
				queue.Push(&request)
			}

			served := make([]UeId, 0, len(testCase.expected))
			for request := queue.Pop(); request != nil; request = queue.Pop() {
				served = append(served, request.UeId)
			}
			assert.Equal(t, testCase.expected, served)
		})
	}
}

func TestRequestQueueRequeueKeepsArrivalOrder(t *testing.T) {
	queue := NewRequestQueue()
	first := &QueuedRequest{UeId: 1, Domain: DomainPs, TrafficClass: Background}
	second := &QueuedRequest{UeId: 2, Domain: DomainPs, TrafficClass: Background}
	queue.Push(first)
	queue.Push(second)

	parked := queue.Pop()
	assert.Equal(t, UeId(1), parked.UeId)

	queue.Push(parked)
	assert.Equal(t, UeId(1), queue.Pop().UeId)
	assert.Equal(t, UeId(2), queue.Pop().UeId)
	assert.Equal(t, 0, queue.Len())
}

func TestRequestQueueRemove(t *testing.T) {
	queue := NewRequestQueue()
	queue.Push(&QueuedRequest{UeId: 1, RabId: 1, Domain: DomainPs, TrafficClass: Background})
	queue.Push(&QueuedRequest{UeId: 2, RabId: 1, Domain: DomainPs, TrafficClass: Background})
	queue.Push(&QueuedRequest{UeId: 1, RabId: 2, Domain: DomainCs, TrafficClass: Conversational})

	removed := queue.RemoveRab(2, 1)
	assert.NotEqual(t, nil, removed)
	assert.Equal(t, 2, queue.Len())

	assert.Equal(t, 2, len(queue.RemoveUe(1)))
	assert.Equal(t, 0, queue.Len())
	assert.Equal(t, true, queue.RemoveRab(1, 1) == nil)
}
