package atomspace

import "testing"

func TestLookupIndexInsertLookupRemove(t *testing.T) {
	idx := newLookupIndex()
	h := &Handle{id: 42}

	if got := idx.lookup(42); got != nil {
		t.Fatalf("expected nil before insert, got %v", got)
	}

	idx.insert(42, h)
	if got := idx.lookup(42); got != h {
		t.Errorf("expected lookup to return inserted handle")
	}
	if got := idx.len(); got != 1 {
		t.Errorf("expected len 1, got %d", got)
	}

	idx.remove(42)
	if got := idx.lookup(42); got != nil {
		t.Errorf("expected nil after remove, got %v", got)
	}
	if got := idx.len(); got != 0 {
		t.Errorf("expected len 0, got %d", got)
	}
}

func TestLookupIndexRemoveUnknownIsNoop(t *testing.T) {
	idx := newLookupIndex()
	idx.remove(999) // must not panic
	if got := idx.len(); got != 0 {
		t.Errorf("expected len 0, got %d", got)
	}
}
