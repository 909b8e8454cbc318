package ice

import (
	"testing"

	"github.com/stretchr/testify/require"
)

func TestComputePriorityHostHighestTypePreference(t *testing.T) {
	host := ComputePriority(CandidateTypeHost, 65535, 1)
	srflx := ComputePriority(CandidateTypeServerReflexive, 65535, 1)
	relay := ComputePriority(CandidateTypeRelay, 65535, 1)
	require.Greater(t, host, srflx)
	require.Greater(t, srflx, relay)
}

func TestComputePriorityMatchesSpecVector(t *testing.T) {
	// scenario 2: PRIORITY=0x6E7F_FEFF is a peer-reflexive priority:
	// type preference 110, local preference 0x7FFE, component 1.
	p := ComputePriority(CandidateTypePeerReflexive, 0x7ffe, 1)
	require.Equal(t, uint32(0x6e7ffeff), p)
}

func TestComputePairPriorityTieBit(t *testing.T) {
	p1 := ComputePairPriority(100, 50) // controlling=100 > controlled=50
	p2 := ComputePairPriority(50, 100) // controlling=50 < controlled=100
	require.NotEqual(t, p1, p2)
	require.Equal(t, uint64(1), p1&1)
	require.Equal(t, uint64(0), p2&1)
}

func TestSameFamily(t *testing.T) {
	a := &Candidate{Address: "192.168.1.1"}
	b := &Candidate{Address: "10.0.0.1"}
	c := &Candidate{Address: "fe80::1"}
	require.True(t, sameFamily(a, b))
	require.False(t, sameFamily(a, c))
}
