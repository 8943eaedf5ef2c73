package esdoc

import "testing"

func TestSetCreatesIntermediateNodes(t *testing.T) {
	n := Node{}
	n.Set("a.b.c", 1)

	v, ok := n.Get("a.b.c")
	if !ok || v != 1 {
		t.Fatalf("expected 1, got %v (%v)", v, ok)
	}
}

func TestSetOverwritesLeaf(t *testing.T) {
	n := Node{}
	n.Set("a.b", "first")
	n.Set("a.b", "second")

	v, _ := n.Get("a.b")
	if v != "second" {
		t.Fatalf("expected second, got %v", v)
	}
}

func TestMergeDeepMerges(t *testing.T) {
	n := Node{"a": Node{"x": 1}}
	n.Merge(Node{"a": Node{"y": 2}, "b": 3})

	if v, _ := n.Get("a.x"); v != 1 {
		t.Fatalf("expected a.x == 1, got %v", v)
	}
	if v, _ := n.Get("a.y"); v != 2 {
		t.Fatalf("expected a.y == 2, got %v", v)
	}
	if v, _ := n.Get("b"); v != 3 {
		t.Fatalf("expected b == 3, got %v", v)
	}
}

func TestAppendBuildsList(t *testing.T) {
	n := Node{}
	n.Append("must", "a")
	n.Append("must", "b")

	v, _ := n.Get("must")
	list, ok := v.([]any)
	if !ok || len(list) != 2 {
		t.Fatalf("expected 2-element list, got %v", v)
	}
}

func TestGetMissingPath(t *testing.T) {
	n := Node{"a": Node{}}
	if _, ok := n.Get("a.missing.deeper"); ok {
		t.Fatal("expected missing path to report not found")
	}
}
