// Package shardctl implements the shard placement controller: a
// control loop that rebalances Elasticsearch shards across
// availability zones of heterogeneous reliability, ported from
// es_fix_unassigned_shards.py.
package shardctl

// ShardState mirrors the ES _cat/shards "state" column values this
// controller cares about.
type ShardState string

const (
	StateStarted     ShardState = "STARTED"
	StateRelocating  ShardState = "RELOCATING"
	StateInitializing ShardState = "INITIALIZING"
	StateUnassigned  ShardState = "UNASSIGNED"
)

// Zone is one availability zone: a canonical Name (always compared by
// string, never by identity — see DESIGN.md's Open Question decision),
// its total node memory, and whether it is Risky (more failure-prone,
// so the controller avoids concentrating primaries there).
type Zone struct {
	Name   string
	Memory int64
	Risky  bool
}

// Node is one Elasticsearch data node.
type Node struct {
	Name   string
	Zone   string // Zone.Name
	Memory int64
	DiskUsed int64
}

// Shard is one primary or replica shard, as reported by _cat/shards.
type Shard struct {
	Index     string
	Shard     int
	Primary   bool
	State     ShardState
	Node      string // Node.Name, empty when UNASSIGNED
	Size      int64
	IndexSize int64 // total size of the index this shard belongs to, used for net_shards_to_move sorting
}

// Allocation is a single proposed shard move, emitted by the priority
// phases before being turned into a reroute command by
// Controller.destinationFor and Client.Reroute.
type Allocation struct {
	Index       string
	Shard       int
	Primary     bool
	FromNode    string // empty for an "allocate" of an UNASSIGNED shard
	ExcludeZone string
}

// Cluster is one polled snapshot of cluster state: nodes, zones, and
// shards. The controller recomputes this fresh every loop iteration —
// no allocation state survives between iterations, which is what makes
// the loop idempotent.
type Cluster struct {
	Nodes      map[string]Node
	Zones      map[string]Zone
	Shards     []Shard
	Relocating []Shard
}

// SiblingsOf returns every shard copy (primary + replicas) belonging to
// the same index and shard number as s, excluding s itself.
func (c *Cluster) SiblingsOf(s Shard) []Shard {
	var out []Shard
	for _, other := range c.Shards {
		if other.Index == s.Index && other.Shard == s.Shard && !(other.Node == s.Node && other.Primary == s.Primary) {
			out = append(out, other)
		}
	}
	return out
}
