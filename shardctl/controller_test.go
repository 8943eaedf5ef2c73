package shardctl

import (
	"testing"

	"github.com/stretchr/testify/require"
)

// S6: with three eligible nodes of equal memory and one already holding
// shard (idx, i), destinationFor's weighted sample never selects that
// node across N=1000 draws.
func TestDestinationForNeverPicksANodeAlreadyHoldingTheShard(t *testing.T) {
	c := &Cluster{
		Nodes: map[string]Node{
			"holder": {Name: "holder", Zone: "a", Memory: 100},
			"b":      {Name: "b", Zone: "a", Memory: 100},
			"c":      {Name: "c", Zone: "a", Memory: 100},
		},
		Zones: map[string]Zone{
			"a": {Name: "a", Memory: 300},
		},
		Shards: []Shard{
			{Index: "idx", Shard: 0, Primary: true, State: StateStarted, Node: "holder", Size: 1},
		},
	}
	p := Proposal{
		Allocation: Allocation{Index: "idx", Shard: 0, FromNode: "other"},
	}

	ctrl := &Controller{}
	for i := 0; i < 1000; i++ {
		dest := ctrl.destinationFor(c, p)
		require.NotEqual(t, "holder", dest)
	}
}
