package rnc

import (
	"testing"

	"github.com/go-playground/assert/v2"
)

func TestIuReleaseCommandUnknownUe(t *testing.T) {
	network, _ := connectedNetwork(t, nil)

	network.fromCore(1, 9, &RanapIuReleaseCommand{Domain: DomainCs, Cause: CauseNormalRelease})
	network.run()

	bodies := network.coreBodies(9)
	assert.Equal(t, 1, len(bodies))
	complete, ok := bodies[0].(*RanapIuReleaseComplete)
	assert.Equal(t, true, ok)
	assert.Equal(t, DomainCs, complete.Domain)
}

func TestIuReleaseCommandKeepsOtherDomain(t *testing.T) {
	network, rnc := connectedNetwork(t, nil)
	network.connect(1, 100)
	network.fromUe(1, 100, &RrcUplinkDirectTransfer{Domain: DomainCs, Nas: []byte{0x01}})
	network.fromUe(1, 100, &RrcUplinkDirectTransfer{Domain: DomainPs, Nas: []byte{0x02}})
	network.run()

	network.fromCore(1, 1, &RanapIuReleaseCommand{Domain: DomainCs, Cause: CauseNormalRelease})
	network.run()

	ue, exists := rnc.Ue(1)
	assert.Equal(t, true, exists)
	assert.Equal(t, false, ue.SignalConnection(DomainCs))
	assert.Equal(t, true, ue.SignalConnection(DomainPs))
	bodies := network.coreBodies(1)
	_, ok := bodies[len(bodies)-1].(*RanapIuReleaseComplete)
	assert.Equal(t, true, ok)
}

var testPagingCases = []struct {
	name      string
	connected bool
	nodebPage int
	uePage    int
}{
	{
		name:      "idle-ue",
		connected: false,
		nodebPage: 2,
		uePage:    0,
	},
	{
		name:      "connected-ue",
		connected: true,
		nodebPage: 0,
		uePage:    1,
	},
}

func TestPaging(t *testing.T) {
	for _, testCase := range testPagingCases {
		t.Run(testCase.name, func(t *testing.T) {
			network, _ := connectedNetwork(t, nil)
			if testCase.connected {
				network.connect(1, 100)
			}

			network.fromCore(1, 1, &RanapPaging{Domain: DomainPs})
			network.run()

			nodebPage := 0
			for _, msg := range network.toNodeb {
				if _, ok := msg.Body.(*NbapPagingRequest); ok && msg.UeId == 1 {
					nodebPage++
				}
			}
			uePage := 0
			for _, body := range network.ueBodies(1) {
				if _, ok := body.(*RrcPaging); ok {
					uePage++
				}
			}
			assert.Equal(t, testCase.nodebPage, nodebPage)
			assert.Equal(t, testCase.uePage, uePage)
		})
	}
}
