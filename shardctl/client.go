package shardctl

import (
	"context"
	"encoding/json"
	"fmt"
	"strconv"
	"strings"

	"github.com/elastic/go-elasticsearch/v8"

	"github.com/reveald/cube/model"
)

// Client is the ES cluster-admin surface the controller needs: cat
// nodes/shards for the snapshot, cluster settings to pause/resume
// allocation, and reroute to execute a move.
type Client struct {
	es    *elasticsearch.Client
	zones map[string]Zone // static zone table from config, memory/risk do not come from ES
}

// NewClient wraps es, resolving node-to-zone membership and zone risk
// classification from the provided static zone table (the zone/risk
// split is operator-declared config, not discoverable from ES itself).
func NewClient(es *elasticsearch.Client, zones map[string]Zone) *Client {
	return &Client{es: es, zones: zones}
}

// Snapshot polls _cat/nodes and _cat/shards and assembles a fresh
// Cluster, mirroring assign_shards' initial data collection.
func (c *Client) Snapshot(ctx context.Context) (*Cluster, error) {
	nodes, err := c.catNodes(ctx)
	if err != nil {
		return nil, fmt.Errorf("cat nodes: %w", err)
	}

	shards, indexSizes, err := c.catShards(ctx)
	if err != nil {
		return nil, fmt.Errorf("cat shards: %w", err)
	}
	for i := range shards {
		shards[i].IndexSize = indexSizes[shards[i].Index]
	}

	var relocating []Shard
	for _, s := range shards {
		if s.State == StateRelocating || s.State == StateInitializing {
			relocating = append(relocating, s)
		}
	}

	zones := make(map[string]Zone, len(c.zones))
	for name, z := range c.zones {
		z.Memory = 0
		zones[name] = z
	}
	for _, n := range nodes {
		if z, ok := zones[n.Zone]; ok {
			z.Memory += n.Memory
			zones[n.Zone] = z
		}
	}

	return &Cluster{
		Nodes:      nodes,
		Zones:      zones,
		Shards:     shards,
		Relocating: relocating,
	}, nil
}

// catNodes calls _cat/nodes?h=n,r,d,hm&format=json, the same column set
// es_fix_unassigned_shards.py requests (name, zone attribute, disk
// used, heap max).
func (c *Client) catNodes(ctx context.Context) (map[string]Node, error) {
	res, err := c.es.Cat.Nodes(
		c.es.Cat.Nodes.WithContext(ctx),
		c.es.Cat.Nodes.WithH("n,r,d,hm"),
		c.es.Cat.Nodes.WithFormat("json"),
		c.es.Cat.Nodes.WithBytes("b"),
	)
	if err != nil {
		return nil, err
	}
	defer res.Body.Close()
	if res.IsError() {
		return nil, fmt.Errorf("cat nodes returned %s", res.Status())
	}

	var rows []map[string]string
	if err := json.NewDecoder(res.Body).Decode(&rows); err != nil {
		return nil, err
	}

	nodes := make(map[string]Node, len(rows))
	for _, row := range rows {
		name := row["n"]
		node := Node{
			Name:     name,
			Zone:     row["r"],
			DiskUsed: parseInt(row["d"]),
			Memory:   parseInt(row["hm"]),
		}
		nodes[name] = node
	}
	return nodes, nil
}

// catShards calls _cat/shards?h=index,shard,prirep,state,node,store&format=json
// and additionally sums per-index total store size for net_shards_to_move's
// sort key.
func (c *Client) catShards(ctx context.Context) ([]Shard, map[string]int64, error) {
	res, err := c.es.Cat.Shards(
		c.es.Cat.Shards.WithContext(ctx),
		c.es.Cat.Shards.WithH("index,shard,prirep,state,node,store"),
		c.es.Cat.Shards.WithFormat("json"),
		c.es.Cat.Shards.WithBytes("b"),
	)
	if err != nil {
		return nil, nil, err
	}
	defer res.Body.Close()
	if res.IsError() {
		return nil, nil, fmt.Errorf("cat shards returned %s", res.Status())
	}

	var rows []map[string]string
	if err := json.NewDecoder(res.Body).Decode(&rows); err != nil {
		return nil, nil, err
	}

	shards := make([]Shard, 0, len(rows))
	indexSizes := map[string]int64{}
	for _, row := range rows {
		shardNum, _ := strconv.Atoi(row["shard"])
		size := parseInt(row["store"])
		s := Shard{
			Index:   row["index"],
			Shard:   shardNum,
			Primary: strings.EqualFold(row["prirep"], "p"),
			State:   ShardState(strings.ToUpper(row["state"])),
			Node:    row["node"],
			Size:    size,
		}
		shards = append(shards, s)
		indexSizes[s.Index] += size
	}
	return shards, indexSizes, nil
}

// SetAllocationEnabled toggles cluster.routing.allocation.enable,
// matching main()'s settings bracket around the control loop.
func (c *Client) SetAllocationEnabled(ctx context.Context, enabled bool) error {
	value := "all"
	if !enabled {
		value = "none"
	}
	body := strings.NewReader(fmt.Sprintf(`{"transient":{"cluster.routing.allocation.enable":%q}}`, value))
	res, err := c.es.Cluster.PutSettings(body, c.es.Cluster.PutSettings.WithContext(ctx))
	if err != nil {
		return err
	}
	defer res.Body.Close()
	if res.IsError() {
		return fmt.Errorf("put settings returned %s", res.Status())
	}
	return nil
}

// Reroute issues a single reroute command: "allocate_replica"/
// "allocate_empty_primary" for an UNASSIGNED shard, or "move" for a
// started one, matching allocate()'s command construction exactly.
func (c *Client) Reroute(ctx context.Context, a Allocation, toNode string) error {
	var command map[string]any
	if a.FromNode == "" {
		kind := "allocate_replica"
		if a.Primary {
			kind = "allocate_empty_primary"
		}
		command = map[string]any{
			kind: map[string]any{
				"index":           a.Index,
				"shard":           a.Shard,
				"node":            toNode,
				"accept_data_loss": a.Primary,
			},
		}
	} else {
		command = map[string]any{
			"move": map[string]any{
				"index":     a.Index,
				"shard":     a.Shard,
				"from_node": a.FromNode,
				"to_node":   toNode,
			},
		}
	}

	payload, err := json.Marshal(map[string]any{"commands": []any{command}})
	if err != nil {
		return err
	}

	res, err := c.es.Cluster.Reroute(
		c.es.Cluster.Reroute.WithContext(ctx),
		c.es.Cluster.Reroute.WithBody(strings.NewReader(string(payload))),
	)
	if err != nil {
		return err
	}
	defer res.Body.Close()

	var decoded map[string]any
	if err := json.NewDecoder(res.Body).Decode(&decoded); err != nil {
		return &model.UpstreamError{Template: "malformed reroute response", Cause: err}
	}

	if ack, _ := decoded["acknowledged"].(bool); !ack {
		reason := extractReason(decoded)
		return &model.UpstreamError{Template: "reroute not acknowledged: " + reason}
	}
	return nil
}

// extractReason pulls the human-readable reason out of a non-
// acknowledged reroute response, matching the original's
// strings.between(result.error, "[NO", "]") extraction.
func extractReason(decoded map[string]any) string {
	errStr := fmt.Sprintf("%v", decoded["error"])
	start := strings.Index(errStr, "[NO")
	if start < 0 {
		return errStr
	}
	end := strings.Index(errStr[start:], "]")
	if end < 0 {
		return errStr[start:]
	}
	return errStr[start+len("[NO") : start+end]
}

func parseInt(s string) int64 {
	v, _ := strconv.ParseInt(strings.TrimSpace(s), 10, 64)
	return v
}
