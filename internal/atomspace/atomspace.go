package atomspace

import (
	"sync"
	"time"

	"github.com/cogmesh/atomspace/internal/cogerr"
)

// AtomSpace is the per-process owner of a graph of atoms: a
// reference-counted hypergraph with bidirectional edges, concurrent
// lookup, and by-id/by-type/by-name/pattern query surfaces.
//
// Every mutation is guarded by a single sync.RWMutex covering the handle
// list and indices, held in a fixed order (AtomSpace lock before any
// handle-local state) to keep cascading releases deadlock-free.
type AtomSpace struct {
	NodeID uint32 // this process's cluster identity

	mu       sync.RWMutex
	handles  []*Handle // insertion order, enables linear type/name scans
	byType   map[Kind][]*Handle
	byName   map[string][]*Handle
	index    *lookupIndex
	ids      *IDAllocator

	totalCreated uint64
	totalDeleted uint64
}

// New creates an empty AtomSpace owned by the given cluster node id.
func New(nodeID uint32) *AtomSpace {
	return &AtomSpace{
		NodeID: nodeID,
		byType: make(map[Kind][]*Handle),
		byName: make(map[string][]*Handle),
		index:  newLookupIndex(),
		ids:    NewIDAllocator(),
	}
}

func (as *AtomSpace) newAtom(kind Kind, name string, hasName bool) *Atom {
	now := time.Now()
	return &Atom{
		ID:            as.ids.Next(),
		Kind:          kind,
		Name:          name,
		hasName:       hasName,
		truth:         defaultTruthValue,
		CreatedAt:     now,
		LastTouchedAt: now,
	}
}

// Create allocates a node atom (outgoing is always empty) and returns a
// handle with a refcount of 1. That single count is the caller's
// reference and also the one Destroy releases: the AtomSpace holds no
// separate count of its own, so releasing it reclaims the atom unless a
// link or a snapshot still retains it.
func (as *AtomSpace) Create(kind Kind, name string) (*Handle, error) {
	return as.createWithName(kind, name, name != "")
}

// CreateAnonymous allocates a node atom with no name at all, distinct from
// an empty-string name.
func (as *AtomSpace) CreateAnonymous(kind Kind) (*Handle, error) {
	return as.createWithName(kind, "", false)
}

func (as *AtomSpace) createWithName(kind Kind, name string, hasName bool) (*Handle, error) {
	atom := as.newAtom(kind, name, hasName)
	h := &Handle{id: atom.ID, atom: atom, refCount: 1}

	as.mu.Lock()
	defer as.mu.Unlock()

	as.handles = append(as.handles, h)
	as.byType[kind] = append(as.byType[kind], h)
	if hasName {
		as.byName[name] = append(as.byName[name], h)
	}
	as.index.insert(h.id, h)
	as.totalCreated++

	return h, nil
}

// CreateLink allocates a link atom over outgoing, in order. Every target
// must already belong to this AtomSpace and be live; the new handle is
// registered into each target's incoming multiset and each target is
// retained once per outgoing slot.
func (as *AtomSpace) CreateLink(kind Kind, outgoing []*Handle) (*Handle, error) {
	as.mu.Lock()
	defer as.mu.Unlock()

	for _, t := range outgoing {
		if t == nil || as.index.lookup(t.id) != t {
			return nil, cogerr.New(cogerr.InvalidArgument, "create_link: target atom %v is foreign or released", t)
		}
	}

	atom := as.newAtom(kind, "", false)
	atom.Outgoing = append([]*Handle(nil), outgoing...) // copy, order preserved

	h := &Handle{id: atom.ID, atom: atom, refCount: 1}

	// Both sides of the back-reference complete before this call returns,
	// i.e. before any other writer observes the new link.
	for _, t := range outgoing {
		t.retain()
		t.atom.addIncoming(h)
	}

	as.handles = append(as.handles, h)
	as.byType[kind] = append(as.byType[kind], h)
	as.index.insert(h.id, h)
	as.totalCreated++

	return h, nil
}

// Get looks up a handle by id; repeated calls return the same handle
// identity until deletion. The returned handle is NOT retained on the
// caller's behalf — a caller that wants to keep it past the current
// operation must Retain it explicitly.
func (as *AtomSpace) Get(id uint64) (*Handle, bool) {
	as.mu.RLock()
	defer as.mu.RUnlock()
	h := as.index.lookup(id)
	return h, h != nil
}

// ByType returns a newly retained snapshot of every live atom of the given
// kind, in insertion order.
func (as *AtomSpace) ByType(kind Kind) []*Handle {
	as.mu.RLock()
	defer as.mu.RUnlock()
	src := as.byType[kind]
	out := make([]*Handle, 0, len(src))
	for _, h := range src {
		if as.index.lookup(h.id) == h { // still live
			h.retain()
			out = append(out, h)
		}
	}
	return out
}

// ByName returns a newly retained snapshot of every live atom with the
// given name, in insertion order.
func (as *AtomSpace) ByName(name string) []*Handle {
	as.mu.RLock()
	defer as.mu.RUnlock()
	src := as.byName[name]
	out := make([]*Handle, 0, len(src))
	for _, h := range src {
		if as.index.lookup(h.id) == h {
			h.retain()
			out = append(out, h)
		}
	}
	return out
}

// Match performs a linear scan over the insertion-ordered handle list,
// applying predicate (which must be pure and side-effect-free), and
// returns a newly retained snapshot of matches in scan order. No indexing
// beyond id is assumed.
func (as *AtomSpace) Match(predicate func(*Handle) bool) []*Handle {
	as.mu.RLock()
	defer as.mu.RUnlock()
	var out []*Handle
	for _, h := range as.handles {
		if as.index.lookup(h.id) != h {
			continue
		}
		if predicate(h) {
			h.retain()
			out = append(out, h)
		}
	}
	return out
}

// Retain increments a handle's refcount.
func (as *AtomSpace) Retain(h *Handle) {
	h.retain()
}

// Release decrements a handle's refcount, reclaiming the atom when it
// reaches zero.
func (as *AtomSpace) Release(h *Handle) {
	as.mu.Lock()
	defer as.mu.Unlock()
	as.releaseLocked(h)
}

// releaseLocked assumes as.mu is already held for writing.
func (as *AtomSpace) releaseLocked(h *Handle) {
	if !h.release() {
		return
	}
	as.reclaim(h)
}

// reclaim performs the four-step atom teardown. Called with as.mu held.
func (as *AtomSpace) reclaim(h *Handle) {
	atom := h.atom

	// 1. For each outgoing target: remove this handle from its incoming
	// set, then release it (may cascade).
	for _, t := range atom.Outgoing {
		t.atom.removeIncoming(h)
		as.releaseLocked(t)
	}
	atom.Outgoing = nil

	// 2/3/4. Drop from every index and the insertion-ordered list, then
	// let GC reclaim storage (no manual free in Go, but we must not leave
	// a dangling entry reachable).
	as.index.remove(h.id)
	as.removeFromSlice(h)
	as.totalDeleted++
}

func (as *AtomSpace) removeFromSlice(h *Handle) {
	as.handles = removeHandle(as.handles, h)
	as.byType[h.atom.Kind] = removeHandle(as.byType[h.atom.Kind], h)
	if h.atom.hasName {
		list := removeHandle(as.byName[h.atom.Name], h)
		if len(list) == 0 {
			delete(as.byName, h.atom.Name)
		} else {
			as.byName[h.atom.Name] = list
		}
	}
}

func removeHandle(list []*Handle, h *Handle) []*Handle {
	for i, e := range list {
		if e == h {
			return append(list[:i:i], list[i+1:]...)
		}
	}
	return list
}

// Destroy releases the creation-time reference of every still-live
// handle, cascading reclamation of any atom held by nothing else.
func (as *AtomSpace) Destroy() {
	as.mu.Lock()
	defer as.mu.Unlock()
	owned := append([]*Handle(nil), as.handles...)
	for _, h := range owned {
		if as.index.lookup(h.id) == h {
			as.releaseLocked(h)
		}
	}
}

// Stats is an introspection snapshot for metrics export.
type Stats struct {
	TotalCreated uint64
	TotalDeleted uint64
	LiveCount    int
}

// Stats reports aggregate counters for introspection and metrics export.
func (as *AtomSpace) Stats() Stats {
	as.mu.RLock()
	defer as.mu.RUnlock()
	return Stats{
		TotalCreated: as.totalCreated,
		TotalDeleted: as.totalDeleted,
		LiveCount:    as.index.len(),
	}
}
