package atomspace

import "sync"

// lookupIndex is the concurrent id -> *Handle map backing O(1) atom
// lookup. A RWMutex gives many concurrent readers with exclusive writers;
// Go's built-in map handles its own growth and load factor.
type lookupIndex struct {
	mu sync.RWMutex
	m  map[uint64]*Handle
}

func newLookupIndex() *lookupIndex {
	return &lookupIndex{m: make(map[uint64]*Handle)}
}

// insert adds id -> h. A duplicate id is a programmer error and never
// happens given ids are sourced from IDAllocator.
func (idx *lookupIndex) insert(id uint64, h *Handle) {
	idx.mu.Lock()
	defer idx.mu.Unlock()
	idx.m[id] = h
}

// lookup returns the handle for id, or nil if absent.
func (idx *lookupIndex) lookup(id uint64) *Handle {
	idx.mu.RLock()
	defer idx.mu.RUnlock()
	return idx.m[id]
}

// remove deletes id from the index, if present.
func (idx *lookupIndex) remove(id uint64) {
	idx.mu.Lock()
	defer idx.mu.Unlock()
	delete(idx.m, id)
}

func (idx *lookupIndex) len() int {
	idx.mu.RLock()
	defer idx.mu.RUnlock()
	return len(idx.m)
}
