package shardctl

import (
	"math"
	"math/rand"
	"sort"
)

// BigShardSize is the size threshold (5 GiB) above which
// NetShardsToMove grants extra concurrency, ported verbatim from
// es_fix_unassigned_shards.py's BIG_SHARD_SIZE.
const BigShardSize = 5 * 1024 * 1024 * 1024

// BaseConcurrency is the floor the concurrency cap never drops below,
// ported from CONCURRENT.
const BaseConcurrency = 3

// NetShardsToMove computes how many additional shard moves may be
// issued this iteration: concurrent is extended by one for every shard
// in proposed (sorted by index size then shard size) while the
// cumulative moved size stays under BigShardSize, then the result is
// floored at BaseConcurrency and reduced by shards already relocating.
func NetShardsToMove(concurrent int, proposed []Shard, relocating []Shard) int {
	sorted := append([]Shard(nil), proposed...)
	sort.Slice(sorted, func(i, j int) bool {
		if sorted[i].IndexSize != sorted[j].IndexSize {
			return sorted[i].IndexSize < sorted[j].IndexSize
		}
		return sorted[i].Size < sorted[j].Size
	})

	total := int64(0)
	extended := concurrent
	for _, s := range sorted {
		if total >= BigShardSize {
			break
		}
		total += s.Size
		extended++
	}

	if extended < BaseConcurrency {
		extended = BaseConcurrency
	}

	net := extended - len(relocating)
	if net < 0 {
		return 0
	}
	return net
}

// MaxAllowed computes the maximum number of shards of one index a node
// may hold, ceil((node.memory/zone.memory) * (zone.shardCount *
// numPrimaries)), ported verbatim from assign_shards' max_allowed
// formula.
func MaxAllowed(node Node, zone Zone, zoneShardCount int, numPrimaries int) int {
	if zone.Memory == 0 {
		return 0
	}
	share := float64(node.Memory) / float64(zone.Memory)
	return int(math.Ceil(share * float64(zoneShardCount*numPrimaries)))
}

// NodeWeight computes a single node's destination weight for one
// index: node.memory * (1 - ownedSize/indexSize), then scaled down by
// 4^min(0, maxAllowed - ownedCount - 1), exactly the formula in
// allocate()'s node_weight construction.
func NodeWeight(node Node, ownedSize int64, indexSize int64, maxAllowed int, ownedCount int) float64 {
	if indexSize == 0 {
		indexSize = 1
	}
	w := float64(node.Memory) * (1 - float64(ownedSize)/float64(indexSize))
	exp := maxAllowed - ownedCount - 1
	if exp > 0 {
		exp = 0
	}
	w *= math.Pow(4, float64(exp))
	if w < 0 {
		w = 0
	}
	return w
}

// WeightedSample performs the Random.weight(list_node_weight) sampling
// the original uses to pick a destination node: one draw proportional
// to weight, skipping (returning "") when every candidate weight is
// zero.
func WeightedSample(weights map[string]float64) string {
	total := 0.0
	for _, w := range weights {
		total += w
	}
	if total <= 0 {
		return ""
	}

	names := make([]string, 0, len(weights))
	for n := range weights {
		names = append(names, n)
	}
	sort.Strings(names)

	r := rand.Float64() * total
	for _, n := range names {
		r -= weights[n]
		if r <= 0 {
			return n
		}
	}
	return names[len(names)-1]
}
