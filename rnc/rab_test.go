package rnc

import (
	"testing"
	"time"

	"github.com/Alonza0314/free-rnc/constant"
	"github.com/go-playground/assert/v2"
)

func exhaustLevel(cell *CellContext, spreadingFactor int) []int {
	tree := cell.CodeTree()
	codes := tree.Reserve(LevelOf(spreadingFactor), tree.CountFree(LevelOf(spreadingFactor)), false)
	tree.Commit(codes)
	return codes
}

func assignRab(network *testNetwork, ueId UeId, rabId uint8, domain CnDomain, ul QosParams, dl QosParams) {
	network.fromCore(1, ueId, &RanapRabAssignmentRequest{RabId: rabId, Domain: domain, Ul: ul, Dl: dl})
}

var testRabAssignmentRejectedCases = []struct {
	name    string
	prepare func(network *testNetwork)
	ueId    UeId
	rabId   uint8
	ul      QosParams
	dl      QosParams
	cause   Cause
}{
	{
		name:  "unknown-ue",
		ueId:  2,
		rabId: 1,
		ul:    interactiveQos(64000),
		dl:    interactiveQos(64000),
		cause: CauseUnknownUe,
	},
	{
		name:  "zero-rates",
		ueId:  1,
		rabId: 1,
		ul:    interactiveQos(0),
		dl:    interactiveQos(0),
		cause: CauseUnsupportedQos,
	},
	{
		name:  "rate-above-maximum",
		ueId:  1,
		rabId: 1,
		ul:    interactiveQos(64000),
		dl:    interactiveQos(4000000),
		cause: CauseUnsupportedQos,
	},
	{
		name:  "ue-uplink-capacity",
		ueId:  1,
		rabId: 1,
		ul:    interactiveQos(384000),
		dl:    interactiveQos(64000),
		cause: CauseCapacity,
	},
	{
		name: "duplicate-rab",
		prepare: func(network *testNetwork) {
			assignRab(network, 1, 1, DomainPs, interactiveQos(64000), interactiveQos(64000))
		},
		ueId:  1,
		rabId: 1,
		ul:    interactiveQos(64000),
		dl:    interactiveQos(64000),
		cause: CauseStaleState,
	},
	{
		name: "no-free-slot",
		prepare: func(network *testNetwork) {
			for rabId := uint8(1); rabId <= constant.MAX_RAB; rabId++ {
				assignRab(network, 1, rabId, DomainCs, conversationalQos(8000), conversationalQos(8000))
			}
		},
		ueId:  1,
		rabId: 9,
		ul:    conversationalQos(8000),
		dl:    conversationalQos(8000),
		cause: CauseNoFreeSlot,
	},
	{
		name: "nodeb-rejects",
		prepare: func(network *testNetwork) {
			network.nodebAccept = false
		},
		ueId:  1,
		rabId: 1,
		ul:    interactiveQos(64000),
		dl:    interactiveQos(64000),
		cause: CauseNodebRejected,
	},
	{
		name: "ue-rejects",
		prepare: func(network *testNetwork) {
			network.ueFailures["radioBearerSetup"] = true
		},
		ueId:  1,
		rabId: 1,
		ul:    interactiveQos(64000),
		dl:    interactiveQos(64000),
		cause: CauseUeRejected,
	},
}

func TestRabAssignmentRejected(t *testing.T) {
	for _, testCase := range testRabAssignmentRejectedCases {
		t.Run(testCase.name, func(t *testing.T) {
			recorder := &testRecorder{}
			network, rnc := connectedNetwork(t, recorder)
			network.connect(1, 100)
			if testCase.prepare != nil {
				testCase.prepare(network)
				network.run()
			}

			assignRab(network, testCase.ueId, testCase.rabId, DomainPs, testCase.ul, testCase.dl)
			network.run()

			response := network.lastRabResponse(testCase.ueId, testCase.rabId)
			assert.Equal(t, false, response.Success)
			assert.Equal(t, testCase.cause, response.Cause)
			assert.Equal(t, 0, len(response.Teid))
			assert.Equal(t, true, recorder.count(EventRabRejected) >= 1)
			assert.Equal(t, true, rnc.inService == nil)
		})
	}
}

var testRabActiveSetResolutionCases = []struct {
	name      string
	exhausted []CellId
	success   bool
}{
	{
		name:    "every-cell-accepts",
		success: true,
	},
	{
		name:      "primary-rejects",
		exhausted: []CellId{100},
		success:   false,
	},
	{
		name:      "non-primary-rejects",
		exhausted: []CellId{101},
		success:   false,
	},
	{
		name:      "every-cell-rejects",
		exhausted: []CellId{100, 101},
		success:   false,
	},
}

func TestRabActiveSetResolution(t *testing.T) {
	for _, testCase := range testRabActiveSetResolutionCases {
		t.Run(testCase.name, func(t *testing.T) {
			network, rnc := connectedNetwork(t, nil)
			network.connect(1, 100)
			network.measure(1, 100, CellMeasurement{CellId: 100, Dbm: -80}, CellMeasurement{CellId: 101, Dbm: -81})

			ue, _ := rnc.Ue(1)
			assert.Equal(t, []CellId{100, 101}, sortedCells(ue.ActiveSet()))

			for _, cellId := range testCase.exhausted {
				cell, _ := rnc.Cell(cellId)
				exhaustLevel(cell, 128)
			}

			assignRab(network, 1, 1, DomainPs, interactiveQos(64000), interactiveQos(64000))
			network.run()

			response := network.lastRabResponse(1, 1)
			assert.Equal(t, testCase.success, response.Success)
			_, exists := ue.Rab(1)
			assert.Equal(t, testCase.success, exists)
			for _, cellId := range []CellId{100, 101} {
				cell, _ := rnc.Cell(cellId)
				assert.Equal(t, testCase.success, cell.HasBearer(1, constant.FIRST_RAB_RB_ID))
			}
			if !testCase.success {
				assert.Equal(t, CauseCapacity, response.Cause)
				assert.Equal(t, 0, len(ue.Channels().UlCodes(constant.FIRST_RAB_RB_ID)))
			}
			assert.Equal(t, uint(0), rnc.transactionIdGenerator.InUse())
		})
	}
}

func TestRabCapacityExhaustion(t *testing.T) {
	network, rnc := connectedNetwork(t, nil)
	network.connect(1, 100)
	cell, _ := rnc.Cell(100)
	ue, _ := rnc.Ue(1)

	codes := exhaustLevel(cell, 128)
	assert.Equal(t, 0, cell.CodeTree().CountFree(LevelOf(128)))

	assignRab(network, 1, 1, DomainPs, interactiveQos(64000), interactiveQos(64000))
	assignRab(network, 1, 2, DomainPs, interactiveQos(64000), interactiveQos(64000))
	network.run()

	for _, rabId := range []uint8{1, 2} {
		response := network.lastRabResponse(1, rabId)
		assert.Equal(t, false, response.Success)
		assert.Equal(t, CauseCapacity, response.Cause)
	}
	assert.Equal(t, float64(constant.SRB_BIT_RATE), ue.Channels().AllocatedUlRate())
	assert.Equal(t, true, rnc.inService == nil)
	assert.Equal(t, 0, rnc.queue.Len())

	cell.CodeTree().Release(codes)
	assignRab(network, 1, 3, DomainPs, interactiveQos(64000), interactiveQos(64000))
	network.run()

	response := network.lastRabResponse(1, 3)
	assert.Equal(t, true, response.Success)
	rab, _ := ue.Rab(3)
	assert.Equal(t, RabEstablished, rab.State())
	assert.Equal(t, 3, len(cell.DlCodes(1, rab.GetRbId())))
}

func TestRabRelease(t *testing.T) {
	recorder := &testRecorder{}
	network, rnc := connectedNetwork(t, recorder)
	network.connect(1, 100)
	cell, _ := rnc.Cell(100)
	ue, _ := rnc.Ue(1)

	assignRab(network, 1, 1, DomainPs, interactiveQos(64000), interactiveQos(64000))
	network.run()
	assert.Equal(t, uint(1), rnc.teidGenerator.InUse())

	network.fromCore(1, 1, &RanapRabReleaseRequest{RabId: 1})
	network.run()

	bodies := network.coreBodies(1)
	response, ok := bodies[len(bodies)-1].(*RanapRabReleaseResponse)
	assert.Equal(t, true, ok)
	assert.Equal(t, true, response.Success)
	_, exists := ue.Rab(1)
	assert.Equal(t, false, exists)
	assert.Equal(t, false, cell.HasBearer(1, constant.FIRST_RAB_RB_ID))
	assert.Equal(t, uint(0), rnc.teidGenerator.InUse())
	assert.Equal(t, float64(constant.SRB_BIT_RATE), cell.AllocatedRate(Downlink))
	assert.Equal(t, 1, recorder.count(EventRabReleased))
}

func TestRabReleaseWhileQueued(t *testing.T) {
	network := newTestNetwork(t)
	config := testRncConfig(1)
	config.Timer.MeasurementLiveness = time.Minute
	rnc := network.addRnc(config, nil)
	network.addNodeb(1, 10, 100)
	network.connect(1, 100)
	cell, _ := rnc.Cell(100)
	ue, _ := rnc.Ue(1)

	network.ueSilent = true
	assignRab(network, 1, 1, DomainPs, interactiveQos(64000), interactiveQos(64000))
	assignRab(network, 1, 2, DomainPs, interactiveQos(32000), interactiveQos(32000))
	network.run()

	first, _ := ue.Rab(1)
	second, _ := ue.Rab(2)
	assert.Equal(t, RabWaitForUeSetup, first.State())
	assert.Equal(t, RabEstablishRequestQueued, second.State())

	network.fromCore(1, 1, &RanapRabReleaseRequest{RabId: 2})
	network.fromCore(1, 1, &RanapRabReleaseRequest{RabId: 1})
	network.run()

	bodies := network.coreBodies(1)
	withdrawn, ok := bodies[len(bodies)-3].(*RanapRabAssignmentResponse)
	assert.Equal(t, true, ok)
	assert.Equal(t, uint8(2), withdrawn.RabId)
	assert.Equal(t, false, withdrawn.Success)
	released, ok := bodies[len(bodies)-2].(*RanapRabReleaseResponse)
	assert.Equal(t, true, ok)
	assert.Equal(t, true, released.Success)
	refused, ok := bodies[len(bodies)-1].(*RanapRabReleaseResponse)
	assert.Equal(t, true, ok)
	assert.Equal(t, uint8(1), refused.RabId)
	assert.Equal(t, CauseStaleState, refused.Cause)
	_, exists := ue.Rab(2)
	assert.Equal(t, false, exists)

	network.advance(6 * time.Second)
	response := network.lastRabResponse(1, 1)
	assert.Equal(t, false, response.Success)
	assert.Equal(t, CauseGuardExpiry, response.Cause)
	assert.Equal(t, false, cell.HasBearer(1, constant.FIRST_RAB_RB_ID))
	_, exists = rnc.Ue(1)
	assert.Equal(t, true, exists)
}

func TestRabSharedChannel(t *testing.T) {
	network := newTestNetwork(t)
	config := testRncConfig(1)
	config.CodePlan.HsdpaEnabled = true
	rnc := network.addRnc(config, nil)
	network.addNodeb(1, 10, 100)
	network.connect(1, 100)
	cell, _ := rnc.Cell(100)

	assignRab(network, 1, 1, DomainPs, interactiveQos(64000), interactiveQos(384000))
	network.run()

	response := network.lastRabResponse(1, 1)
	assert.Equal(t, true, response.Success)
	ue, _ := rnc.Ue(1)
	rab, _ := ue.Rab(1)
	assert.Equal(t, true, rab.Plan().Shared)
	assert.Equal(t, 1, cell.SharedUsers())
	assert.Equal(t, 384000*1.2, cell.SharedRate())
	assert.Equal(t, float64(constant.SRB_BIT_RATE), cell.AllocatedRate(Downlink))
	assert.Equal(t, 1, len(cell.DlCodes(1, rab.GetRbId())))
}
