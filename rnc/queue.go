package rnc

import "sort"

type RequestKind int

const (
	RequestSetup RequestKind = iota
	RequestRelease
)

func (k RequestKind) String() string {
	return enumName([]string{"Setup", "Release"}, "RequestKind", int(k))
}

type QueuedRequest struct {
	Kind         RequestKind
	UeId         UeId
	RabId        uint8
	Domain       CnDomain
	TrafficClass TrafficClass

	seq uint64
}

// RequestQueue orders bearer requests by domain then traffic class. Equal
// priorities keep arrival order, including requests that are pushed back
// after being parked.
type RequestQueue struct {
	items   []*QueuedRequest
	nextSeq uint64
}

func NewRequestQueue() *RequestQueue {
	return &RequestQueue{
		items:   make([]*QueuedRequest, 0),
		nextSeq: 1,
	}
}

func (q *RequestQueue) Push(request *QueuedRequest) {
	if request.seq == 0 {
		request.seq = q.nextSeq
		q.nextSeq++
	}
	q.items = append(q.items, request)
	sort.SliceStable(q.items, func(i, j int) bool {
		a, b := q.items[i], q.items[j]
		if a.Domain != b.Domain {
			return a.Domain < b.Domain
		}
		if a.TrafficClass != b.TrafficClass {
			return a.TrafficClass < b.TrafficClass
		}
		return a.seq < b.seq
	})
}

func (q *RequestQueue) Pop() *QueuedRequest {
	if len(q.items) == 0 {
		return nil
	}
	request := q.items[0]
	q.items = q.items[1:]
	return request
}

func (q *RequestQueue) Len() int {
	return len(q.items)
}

// RemoveUe drops and returns every request of the UE.
func (q *RequestQueue) RemoveUe(ueId UeId) []*QueuedRequest {
	var removed []*QueuedRequest
	kept := q.items[:0]
	for _, request := range q.items {
		if request.UeId == ueId {
			removed = append(removed, request)
			continue
		}
		kept = append(kept, request)
	}
	q.items = kept
	return removed
}

func (q *RequestQueue) RemoveRab(ueId UeId, rabId uint8) *QueuedRequest {
	for i, request := range q.items {
		if request.UeId == ueId && request.RabId == rabId {
			q.items = append(q.items[:i], q.items[i+1:]...)
			return request
		}
	}
	return nil
}
