package shardctl

import (
	"context"
	"time"

	"github.com/rs/zerolog"
)

// Interval is the control-loop period, matching the original's 30
// second loop() cadence.
const Interval = 30 * time.Second

// Controller runs the control loop: poll a fresh Cluster snapshot,
// compute the highest-priority phase's proposals, resolve a
// destination for each via weighted sampling, and issue reroute
// commands — sequentially, one iteration at a time, exactly as
// es_fix_unassigned_shards.py's main loop does.
type Controller struct {
	client *Client
	log    zerolog.Logger
}

// NewController builds a Controller driving client.
func NewController(client *Client, log zerolog.Logger) *Controller {
	return &Controller{client: client, log: log}
}

// Run disables cluster shard allocation, then loops every Interval
// until ctx is canceled, restoring allocation on the way out — the
// settings bracket main() wraps its loop() call in.
func (c *Controller) Run(ctx context.Context) error {
	if err := c.client.SetAllocationEnabled(ctx, false); err != nil {
		return err
	}
	defer func() {
		restoreCtx, cancel := context.WithTimeout(context.Background(), 10*time.Second)
		defer cancel()
		if err := c.client.SetAllocationEnabled(restoreCtx, true); err != nil {
			c.log.Error().Err(err).Msg("failed to restore shard allocation settings")
		}
	}()

	ticker := time.NewTicker(Interval)
	defer ticker.Stop()

	for {
		if err := c.tick(ctx); err != nil {
			c.log.Error().Err(err).Msg("shard placement iteration failed")
		}

		select {
		case <-ctx.Done():
			return ctx.Err()
		case <-ticker.C:
		}
	}
}

// tick runs exactly one control-loop iteration: snapshot, plan, cap
// concurrency, issue reroutes. No state survives between calls, so a
// failed or partial iteration is corrected by the next snapshot.
func (c *Controller) tick(ctx context.Context) error {
	snapshot, err := c.client.Snapshot(ctx)
	if err != nil {
		return err
	}

	proposals := Plan(snapshot)
	if len(proposals) == 0 {
		return nil
	}

	proposed := make([]Shard, 0, len(proposals))
	for _, p := range proposals {
		proposed = append(proposed, Shard{
			Index: p.Allocation.Index, Shard: p.Allocation.Shard,
			IndexSize: indexSizeOf(snapshot, p.Allocation.Index),
		})
	}
	net := NetShardsToMove(BaseConcurrency, proposed, snapshot.Relocating)
	if net <= 0 {
		c.log.Debug().Msg("no spare concurrency this iteration")
		return nil
	}
	if net < len(proposals) {
		proposals = proposals[:net]
	}

	for _, p := range proposals {
		dest := c.destinationFor(snapshot, p)
		if dest == "" {
			c.log.Warn().Str("index", p.Allocation.Index).Int("shard", p.Allocation.Shard).Msg("no destination node found")
			continue
		}
		if err := c.client.Reroute(ctx, p.Allocation, dest); err != nil {
			c.log.Error().Err(err).Str("index", p.Allocation.Index).Int("shard", p.Allocation.Shard).Msg("reroute failed")
			continue
		}
		c.log.Info().
			Str("index", p.Allocation.Index).
			Int("shard", p.Allocation.Shard).
			Str("from", p.Allocation.FromNode).
			Str("to", dest).
			Int("phase", int(p.Phase)).
			Msg("shard reroute issued")
	}
	return nil
}

// destinationFor picks a landing node for p.Allocation using the
// weighted-random sampling built on NodeWeight, excluding the shard's
// current node and any zone not in p.AllowedZones (when set) or
// matching p.Allocation.ExcludeZone.
func (c *Controller) destinationFor(snapshot *Cluster, p Proposal) string {
	allowed := map[string]bool{}
	for _, z := range p.AllowedZones {
		allowed[z] = true
	}

	owned := ownedCounts(snapshot)
	indexSize := indexSizeOf(snapshot, p.Allocation.Index)

	weights := map[string]float64{}
	for name, node := range snapshot.Nodes {
		if name == p.Allocation.FromNode {
			continue
		}
		if node.Zone == p.Allocation.ExcludeZone {
			continue
		}
		if len(allowed) > 0 && !allowed[node.Zone] {
			continue
		}
		zone, ok := snapshot.Zones[node.Zone]
		if !ok {
			continue
		}
		info := owned[ownedKey{p.Allocation.Index, name}]
		if info.count > 0 {
			continue // already holds a copy of this shard's index on this node
		}
		maxAllowed := MaxAllowed(node, zone, zoneShardCount(snapshot, zone.Name), numPrimaries(snapshot, p.Allocation.Index))
		weights[name] = NodeWeight(node, info.size, indexSize, maxAllowed, info.count)
	}

	return WeightedSample(weights)
}

func indexSizeOf(c *Cluster, index string) int64 {
	for _, s := range c.Shards {
		if s.Index == index {
			return s.IndexSize
		}
	}
	return 0
}
