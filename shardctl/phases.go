package shardctl

import (
	"math/rand"
	"sort"
)

// Phase names the six priority classes assign_shards walks in order;
// once a phase yields any proposals the controller does not fall
// through to later, lower-priority phases that iteration.
type Phase int

const (
	PhaseUnstarted Phase = iota + 1
	PhaseHighRisk
	PhaseOverAllocated
	PhaseDuplicateForSafety
	PhaseLowRiskFill
	PhaseRebalance
)

// Proposal is one phase's output: an Allocation plus which zones it may
// land in (never the zone it is leaving, when it is leaving one).
type Proposal struct {
	Phase      Phase
	Allocation Allocation
	AllowedZones []string // empty means "any zone"
}

// Plan walks the six phases in priority order against snapshot and
// returns the first non-empty phase's proposals, mirroring
// assign_shards' "stop at the first phase with work" control flow.
func Plan(snapshot *Cluster) []Proposal {
	phases := []func(*Cluster) []Proposal{
		unstartedPhase,
		highRiskPhase,
		overAllocatedPhase,
		duplicateForSafetyPhase,
		lowRiskFillPhase,
		rebalancePhase,
	}
	for _, phase := range phases {
		if proposals := phase(snapshot); len(proposals) > 0 {
			return proposals
		}
	}
	return nil
}

// unstartedPhase (priority 1): every UNASSIGNED shard must be placed
// before anything else is touched.
func unstartedPhase(c *Cluster) []Proposal {
	var out []Proposal
	for _, s := range c.Shards {
		if s.State != StateUnassigned {
			continue
		}
		out = append(out, Proposal{
			Phase: PhaseUnstarted,
			Allocation: Allocation{
				Index: s.Index, Shard: s.Shard, Primary: s.Primary,
			},
		})
	}
	return out
}

// highRiskPhase (priority 2): a started copy (primary or replica) in a
// risky zone with no started safe-zone copy is the most urgent
// data-loss exposure; move that copy to a safe zone.
func highRiskPhase(c *Cluster) []Proposal {
	var out []Proposal
	for _, s := range c.Shards {
		if s.State != StateStarted {
			continue
		}
		zone, ok := c.Zones[c.Nodes[s.Node].Zone]
		if !ok || !zone.Risky {
			continue
		}
		hasSafeCopy := false
		for _, sib := range c.SiblingsOf(s) {
			if sib.State != StateStarted {
				continue
			}
			if z, ok := c.Zones[c.Nodes[sib.Node].Zone]; ok && !z.Risky {
				hasSafeCopy = true
				break
			}
		}
		if !hasSafeCopy {
			out = append(out, Proposal{
				Phase: PhaseHighRisk,
				Allocation: Allocation{
					Index: s.Index, Shard: s.Shard, Primary: s.Primary, FromNode: s.Node,
				},
				AllowedZones: safeZoneNames(c),
			})
		}
	}
	return out
}

// overAllocatedPhase (priority 3): a node holding more copies of an
// index's shards than MaxAllowed permits must shed one, picked at
// random among that node's started shards of the index, weighted by
// shard size.
func overAllocatedPhase(c *Cluster) []Proposal {
	counts := ownedCounts(c)
	var out []Proposal
	for key, owned := range counts {
		node, ok := c.Nodes[key.node]
		if !ok {
			continue
		}
		zone, ok := c.Zones[node.Zone]
		if !ok {
			continue
		}
		maxAllowed := MaxAllowed(node, zone, zoneShardCount(c, zone.Name), numPrimaries(c, key.index))
		if owned.count <= maxAllowed {
			continue
		}
		candidates := shardsOf(c, key.index, key.node)
		if len(candidates) == 0 {
			continue
		}
		picked := weightedPickShard(candidates)
		out = append(out, Proposal{
			Phase: PhaseOverAllocated,
			Allocation: Allocation{
				Index: picked.Index, Shard: picked.Shard, Primary: picked.Primary, FromNode: picked.Node,
			},
		})
	}
	return out
}

// duplicateForSafetyPhase (priority 4): two copies of the same shard
// sitting in the same zone (keyed by zone name) waste redundancy; move
// one of them out of that zone.
func duplicateForSafetyPhase(c *Cluster) []Proposal {
	type key struct {
		index, zone string
		shard       int
	}
	byZone := map[key][]Shard{}
	for _, s := range c.Shards {
		if s.State != StateStarted {
			continue
		}
		zoneName := c.Nodes[s.Node].Zone
		k := key{s.Index, zoneName, s.Shard}
		byZone[k] = append(byZone[k], s)
	}
	var out []Proposal
	for k, shards := range byZone {
		if len(shards) < 2 {
			continue
		}
		move := shards[0]
		out = append(out, Proposal{
			Phase: PhaseDuplicateForSafety,
			Allocation: Allocation{
				Index: move.Index, Shard: move.Shard, Primary: move.Primary,
				FromNode: move.Node, ExcludeZone: k.zone,
			},
		})
	}
	return out
}

// lowRiskFillPhase (priority 5): a started replica in a risky zone
// whose shard has no copy in a safe zone is moved to a safe zone.
func lowRiskFillPhase(c *Cluster) []Proposal {
	var out []Proposal
	for _, s := range c.Shards {
		if s.State != StateStarted {
			continue
		}
		node := c.Nodes[s.Node]
		zone, ok := c.Zones[node.Zone]
		if !ok || !zone.Risky {
			continue
		}
		hasLowRiskSibling := false
		for _, sib := range c.SiblingsOf(s) {
			if z, ok := c.Zones[c.Nodes[sib.Node].Zone]; ok && !z.Risky {
				hasLowRiskSibling = true
			}
		}
		if !hasLowRiskSibling && !s.Primary {
			out = append(out, Proposal{
				Phase: PhaseLowRiskFill,
				Allocation: Allocation{
					Index: s.Index, Shard: s.Shard, Primary: s.Primary, FromNode: s.Node,
				},
				AllowedZones: safeZoneNames(c),
			})
		}
	}
	return out
}

// rebalancePhase (priority 6): nothing urgent remains; pick one
// randomly-selected replica per index and move it to a node drawn by
// weighted sample, the fallback that keeps memory usage converging
// toward even.
func rebalancePhase(c *Cluster) []Proposal {
	byIndex := map[string][]Shard{}
	for _, s := range c.Shards {
		if s.State == StateStarted && !s.Primary {
			byIndex[s.Index] = append(byIndex[s.Index], s)
		}
	}
	var out []Proposal
	indices := make([]string, 0, len(byIndex))
	for idx := range byIndex {
		indices = append(indices, idx)
	}
	sort.Strings(indices)
	for _, idx := range indices {
		replicas := byIndex[idx]
		picked := replicas[rand.Intn(len(replicas))]
		out = append(out, Proposal{
			Phase: PhaseRebalance,
			Allocation: Allocation{
				Index: picked.Index, Shard: picked.Shard, Primary: picked.Primary, FromNode: picked.Node,
			},
		})
	}
	return out
}

func safeZoneNames(c *Cluster) []string {
	var out []string
	for name, z := range c.Zones {
		if !z.Risky {
			out = append(out, name)
		}
	}
	sort.Strings(out)
	return out
}

type ownedKey struct {
	index, node string
}

type ownedInfo struct {
	count int
	size  int64
}

func ownedCounts(c *Cluster) map[ownedKey]ownedInfo {
	out := map[ownedKey]ownedInfo{}
	for _, s := range c.Shards {
		if s.State != StateStarted {
			continue
		}
		k := ownedKey{s.Index, s.Node}
		info := out[k]
		info.count++
		info.size += s.Size
		out[k] = info
	}
	return out
}

func zoneShardCount(c *Cluster, zoneName string) int {
	count := 0
	for _, n := range c.Nodes {
		if n.Zone == zoneName {
			count++
		}
	}
	return count
}

func numPrimaries(c *Cluster, index string) int {
	max := 0
	for _, s := range c.Shards {
		if s.Index == index && s.Shard+1 > max {
			max = s.Shard + 1
		}
	}
	return max
}

func shardsOf(c *Cluster, index, node string) []Shard {
	var out []Shard
	for _, s := range c.Shards {
		if s.Index == index && s.Node == node && s.State == StateStarted {
			out = append(out, s)
		}
	}
	return out
}

func weightedPickShard(shards []Shard) Shard {
	weights := make([]float64, len(shards))
	total := 0.0
	for i, s := range shards {
		weights[i] = float64(s.Size + 1)
		total += weights[i]
	}
	r := rand.Float64() * total
	for i, w := range weights {
		r -= w
		if r <= 0 {
			return shards[i]
		}
	}
	return shards[len(shards)-1]
}
