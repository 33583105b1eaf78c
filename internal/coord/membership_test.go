package coord

import (
	"testing"

	"github.com/cogmesh/atomspace/internal/cogerr"
)

func TestNodeTableAddDuplicateRejected(t *testing.T) {
	table := NewNodeTable()
	if err := table.Add(1, "a", 7000, 0); err != nil {
		t.Fatalf("Add: %v", err)
	}
	err := table.Add(1, "b", 7001, 0)
	if err == nil {
		t.Fatal("expected error adding duplicate node id")
	}
	if kind, _ := cogerr.KindOf(err); kind != cogerr.InvalidArgument {
		t.Errorf("expected InvalidArgument, got %v", kind)
	}
}

func TestNodeTableMarkActiveUnknownNode(t *testing.T) {
	table := NewNodeTable()
	err := table.MarkActive(99, 1000)
	if err == nil {
		t.Fatal("expected NotFound error")
	}
	if kind, _ := cogerr.KindOf(err); kind != cogerr.NotFound {
		t.Errorf("expected NotFound, got %v", kind)
	}
}

func TestNodeTableSnapshotOrdersByID(t *testing.T) {
	table := NewNodeTable()
	_ = table.Add(3, "c", 7000, 0)
	_ = table.Add(1, "a", 7001, 0)
	_ = table.Add(2, "b", 7002, 0)

	snap := table.Snapshot()
	if len(snap) != 3 {
		t.Fatalf("expected 3 entries, got %d", len(snap))
	}
	for i, want := range []uint32{1, 2, 3} {
		if snap[i].NodeID != want {
			t.Errorf("position %d: expected node %d, got %d", i, want, snap[i].NodeID)
		}
	}
}

func TestNodeTableRemove(t *testing.T) {
	table := NewNodeTable()
	_ = table.Add(1, "a", 7000, 0)
	if err := table.Remove(1); err != nil {
		t.Fatalf("Remove: %v", err)
	}
	if _, ok := table.LookupByID(1); ok {
		t.Error("expected node to be gone after Remove")
	}
	err := table.Remove(1)
	if err == nil {
		t.Fatal("expected NotFound removing an already-removed node")
	}
	if kind, _ := cogerr.KindOf(err); kind != cogerr.NotFound {
		t.Errorf("expected NotFound, got %v", kind)
	}
}

func TestNodeTableActiveCount(t *testing.T) {
	table := NewNodeTable()
	_ = table.Add(1, "a", 7000, 0)
	_ = table.Add(2, "b", 7000, 0)
	if got := table.ActiveCount(); got != 2 {
		t.Errorf("expected 2 active nodes, got %d", got)
	}
	table.Sweep(NodeTimeoutMs + 1)
	if got := table.ActiveCount(); got != 0 {
		t.Errorf("expected 0 active nodes after sweep, got %d", got)
	}
}
