// Package esdoc implements the dotted-path write-through tree the
// compiler assembles Elasticsearch query and aggregation bodies into.
// Many independent decoders and aggregation builders write into
// overlapping nested paths of the same document before it is marshaled
// once as JSON; Node is a thin map[string]any wrapper that makes those
// writes safe regardless of write order, generalizing the teacher's own
// map[string]any response-walking style (backend.go) to the write side.
package esdoc

import "strings"

// Node is one level of the write-through tree. nil map values along a
// Set/Merge path are created on demand (auto-vivified), matching the
// mo_dots behavior the original compiler relies on.
type Node map[string]any

// Set writes value at the dotted path, creating intermediate Nodes as
// needed. An existing non-Node value at an intermediate segment is
// overwritten, since two decoders are never expected to disagree about
// whether a path is a leaf or a branch.
func (n Node) Set(path string, value any) {
	segments := strings.Split(path, ".")
	cur := n
	for i, seg := range segments {
		if i == len(segments)-1 {
			cur[seg] = value
			return
		}
		next, ok := cur[seg].(Node)
		if !ok {
			next = Node{}
			cur[seg] = next
		}
		cur = next
	}
}

// Get reads the value at the dotted path, returning (nil, false) if any
// segment is absent.
func (n Node) Get(path string) (any, bool) {
	segments := strings.Split(path, ".")
	cur := any(n)
	for _, seg := range segments {
		m, ok := cur.(Node)
		if !ok {
			return nil, false
		}
		v, ok := m[seg]
		if !ok {
			return nil, false
		}
		cur = v
	}
	return cur, true
}

// Merge deep-merges other into n: Node values are merged recursively,
// every other value type is overwritten.
func (n Node) Merge(other Node) {
	for k, v := range other {
		if sub, ok := v.(Node); ok {
			existing, ok := n[k].(Node)
			if !ok {
				existing = Node{}
				n[k] = existing
			}
			existing.Merge(sub)
			continue
		}
		n[k] = v
	}
}

// Append appends value to the slice found at path (creating an empty
// one if absent), used to assemble must/should clause lists written by
// more than one caller.
func (n Node) Append(path string, value any) {
	existing, _ := n.Get(path)
	list, _ := existing.([]any)
	list = append(list, value)
	n.Set(path, list)
}
