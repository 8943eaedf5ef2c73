// Package walk implements the ResultWalker: given a compiled query's
// ordered decoders and a raw Elasticsearch aggregation response, it
// drills through the _nested/_filter wrapper chain written by package
// plan and replays each decoder's "_match"/"_other"/"_missing"
// sub-structure to assemble a flat list of (coordinate, values) rows —
// the Go equivalent of jx_elasticsearch's drill/aggs_iterator/count_dim
// generator trio.
package walk

import (
	"sort"

	"github.com/reveald/cube/aggbuilder"
	"github.com/reveald/cube/decode"
)

// Row is one leaf of the walked aggregation tree: Coord holds one
// coordinate per decoder (in decoder order), Values holds one decoded
// value per select pull, and HitCount is the leaf bucket's doc_count.
type Row struct {
	Coord    []int
	Values   []any
	HitCount int64
}

// drill transparently descends through the _filter/_nested wrappers a
// compiled query may have placed around the next real aggregation
// level, returning the first map that is not itself one of those
// wrappers.
func drill(agg map[string]any) map[string]any {
	for {
		if filter, ok := agg["_filter"].(map[string]any); ok {
			agg = filter
			continue
		}
		if nested, ok := agg["_nested"].(map[string]any); ok {
			agg = nested
			continue
		}
		return agg
	}
}

// bucketsOf normalizes a "_match" aggregation's "buckets" field into a
// uniform list of bucket maps, whichever of Elasticsearch's two bucket
// response shapes it used: the unkeyed/array form (terms, range), each
// entry already carrying its own "key", or the keyed/object form
// (filters), a map from partition name to bucket with no "key" field of
// its own — synthesized here so every caller can read entry["key"]
// uniformly. Map-form keys are visited in sorted order: Go's map
// iteration order is randomized, and a decoder's GetIndex assigns
// first-seen coordinate indices, so an unsorted walk would assign a
// different coordinate to the same partition name from one call to the
// next.
func bucketsOf(agg map[string]any) []map[string]any {
	if arr, ok := agg["buckets"].([]any); ok {
		out := make([]map[string]any, 0, len(arr))
		for _, e := range arr {
			if b, ok := e.(map[string]any); ok {
				out = append(out, b)
			}
		}
		return out
	}
	m, ok := agg["buckets"].(map[string]any)
	if !ok {
		return nil
	}
	names := make([]string, 0, len(m))
	for k := range m {
		names = append(names, k)
	}
	sort.Strings(names)
	out := make([]map[string]any, 0, len(m))
	for _, name := range names {
		bucket, ok := m[name].(map[string]any)
		if !ok {
			continue
		}
		synthesized := make(map[string]any, len(bucket)+1)
		for k, v := range bucket {
			synthesized[k] = v
		}
		synthesized["key"] = name
		out = append(out, synthesized)
	}
	return out
}

// Walk drills through response using decoders in order and yields one
// Row per realized leaf combination, pulling select values according
// to pulls. response is the raw "aggregations" object of an ES search
// response decoded into generic maps.
//
// At each decoder level it dispatches on the literal sibling keys
// AppendAggregation wrote: "_match" enumerates the realized partitions,
// "_other" (when present) is the single out-of-domain bucket, and
// "_missing" (when present) is the single null/absent-value bucket —
// both visited with a nil key. DefaultDecoder and DimFieldListDecoder
// give that key a partition of its own; RangeDecoder and ObjectDecoder
// resolve it to -1, which the formatters skip or render as nil.
func Walk(decoders []decode.Decoder, pulls []aggbuilder.Pull, response map[string]any) []Row {
	if len(decoders) == 0 {
		return []Row{leafRow(nil, drill(response), pulls)}
	}
	var rows []Row
	var recurse func(i int, coord []int, agg map[string]any)
	visit := func(i int, coord []int, key any, bucket map[string]any) {
		if bucket == nil {
			return
		}
		d := decoders[i]
		idx := d.GetIndex(key)
		nextCoord := append(append([]int(nil), coord...), idx)
		if i == len(decoders)-1 {
			if docCount(bucket) > 0 {
				rows = append(rows, leafRow(nextCoord, bucket, pulls))
			}
			return
		}
		recurse(i+1, nextCoord, bucket)
	}
	recurse = func(i int, coord []int, agg map[string]any) {
		agg = drill(agg)
		if match, ok := agg["_match"].(map[string]any); ok {
			for _, entry := range bucketsOf(match) {
				visit(i, coord, entry["key"], entry)
			}
		}
		if other, ok := agg["_other"].(map[string]any); ok {
			visit(i, coord, nil, other)
		}
		if missing, ok := agg["_missing"].(map[string]any); ok {
			visit(i, coord, nil, missing)
		}
	}
	recurse(0, nil, response)
	return rows
}

func docCount(bucket map[string]any) int64 {
	if v, ok := bucket["doc_count"].(float64); ok {
		return int64(v)
	}
	return 0
}

func leafRow(coord []int, bucket map[string]any, pulls []aggbuilder.Pull) Row {
	values := make([]any, len(pulls))
	for i, p := range pulls {
		values[i] = pull(bucket, p)
	}
	return Row{Coord: coord, Values: values, HitCount: docCount(bucket)}
}

func pull(bucket map[string]any, p aggbuilder.Pull) any {
	if p.Name == "" {
		return float64(docCount(bucket))
	}
	aggVal, ok := bucket[p.Name].(map[string]any)
	if !ok {
		return p.Default
	}
	if p.SubField == "" {
		return aggVal
	}
	if p.SubField == "buckets" {
		return unionKeys(aggVal)
	}
	v, ok := esdocGet(aggVal, p.SubField)
	if !ok {
		return p.Default
	}
	return v
}

// unionKeys extracts the distinct terms a union select clause's terms
// aggregation returned, in bucket order.
func unionKeys(aggVal map[string]any) []any {
	buckets, ok := aggVal["buckets"].([]any)
	if !ok {
		return nil
	}
	keys := make([]any, 0, len(buckets))
	for _, b := range buckets {
		if m, ok := b.(map[string]any); ok {
			keys = append(keys, m["key"])
		}
	}
	return keys
}

// esdocGet reads a dotted path out of a generic map, treating a
// literal backslash-escaped dot (as aggbuilder uses for percentile
// keys like "values.50\.0") as part of the segment rather than a
// further path separator.
func esdocGet(m map[string]any, path string) (any, bool) {
	segments := splitEscaped(path)
	var cur any = m
	for _, seg := range segments {
		mm, ok := cur.(map[string]any)
		if !ok {
			return nil, false
		}
		v, ok := mm[seg]
		if !ok {
			return nil, false
		}
		cur = v
	}
	return cur, true
}

func splitEscaped(path string) []string {
	var segs []string
	var cur []byte
	for i := 0; i < len(path); i++ {
		if path[i] == '\\' && i+1 < len(path) && path[i+1] == '.' {
			cur = append(cur, '.')
			i++
			continue
		}
		if path[i] == '.' {
			segs = append(segs, string(cur))
			cur = nil
			continue
		}
		cur = append(cur, path[i])
	}
	segs = append(segs, string(cur))
	return segs
}
