package atomspace

import (
	"sync"
	"sync/atomic"
	"time"
)

// Kind enumerates the fixed atom kinds. No type hierarchy beyond this set
// is in scope.
type Kind int

const (
	Concept Kind = iota
	Predicate
	Link
	Node
	Variable
	Evaluation
	Execution
	Custom
)

func (k Kind) String() string {
	switch k {
	case Concept:
		return "Concept"
	case Predicate:
		return "Predicate"
	case Link:
		return "Link"
	case Node:
		return "Node"
	case Variable:
		return "Variable"
	case Evaluation:
		return "Evaluation"
	case Execution:
		return "Execution"
	case Custom:
		return "Custom"
	default:
		return "Unknown"
	}
}

// TruthValue is a probabilistic truth assignment: strength and confidence,
// each clamped to [0,1] on assignment.
type TruthValue struct {
	Strength   float64
	Confidence float64
}

func clamp01(v float64) float64 {
	if v < 0 {
		return 0
	}
	if v > 1 {
		return 1
	}
	return v
}

// Clamp returns tv with both components clamped to [0,1].
func (tv TruthValue) Clamp() TruthValue {
	return TruthValue{Strength: clamp01(tv.Strength), Confidence: clamp01(tv.Confidence)}
}

// defaultTruthValue is the (1.0, 0.0) default assigned to new atoms.
var defaultTruthValue = TruthValue{Strength: 1.0, Confidence: 0.0}

// AttentionValue is the (sti, lti, vlti) importance triple, each a signed
// 16-bit integer defaulting to (0,0,0).
type AttentionValue struct {
	STI  int16
	LTI  int16
	VLTI int16
}

// Atom is a node or link in the hypergraph. Outgoing/incoming are only ever
// mutated under the owning AtomSpace's lock; truth and attention are
// guarded by the atom's own mutex so readers never block on AtomSpace-wide
// structural mutation.
type Atom struct {
	ID            uint64
	Kind          Kind
	Name          string // empty for pure links
	hasName       bool
	truth         TruthValue
	attention     AttentionValue
	Outgoing      []*Handle       // ordered, preserved; empty for nodes
	incoming      map[*Handle]int // weak multiset: handle -> occurrence count
	CreatedAt     time.Time
	LastTouchedAt time.Time

	mu sync.RWMutex
}

// Handle is the externally visible, refcounted reference to an Atom.
//
// incoming-set membership is a weak back-reference, not ownership: the
// AtomSpace alone holds the strong edge that keeps an atom alive. Only
// Retain/Release (and the AtomSpace's own internal bookkeeping) touch
// refCount.
type Handle struct {
	id       uint64
	atom     *Atom
	refCount int32
}

// ID reports the id of the atom this handle refers to.
func (h *Handle) ID() uint64 { return h.id }

// Atom returns the underlying atom record.
func (h *Handle) Atom() *Atom { return h.atom }

// GetTruthValue returns the atom's current truth value. Getters also touch
// last_touched_at.
func (h *Handle) GetTruthValue() TruthValue {
	a := h.atom
	a.mu.Lock()
	defer a.mu.Unlock()
	a.LastTouchedAt = time.Now()
	return a.truth
}

// SetTruthValue assigns a new truth value, clamping both components to
// [0,1].
func (h *Handle) SetTruthValue(tv TruthValue) {
	a := h.atom
	a.mu.Lock()
	defer a.mu.Unlock()
	a.truth = tv.Clamp()
	a.LastTouchedAt = time.Now()
}

// GetAttentionValue returns the atom's current attention value.
func (h *Handle) GetAttentionValue() AttentionValue {
	a := h.atom
	a.mu.Lock()
	defer a.mu.Unlock()
	a.LastTouchedAt = time.Now()
	return a.attention
}

// SetAttentionValue assigns a new attention value.
func (h *Handle) SetAttentionValue(av AttentionValue) {
	a := h.atom
	a.mu.Lock()
	defer a.mu.Unlock()
	a.attention = av
	a.LastTouchedAt = time.Now()
}

// Name returns the atom's name and whether one was set at creation.
func (h *Handle) Name() (string, bool) {
	return h.atom.Name, h.atom.hasName
}

// refCountValue reports the current refcount, for tests and introspection.
func (h *Handle) refCountValue() int32 {
	return atomic.LoadInt32(&h.refCount)
}

// retain atomically increments the refcount. Never fails.
func (h *Handle) retain() {
	atomic.AddInt32(&h.refCount, 1)
}

// release atomically decrements the refcount and reports whether it reached
// zero. Reclamation itself is the caller's responsibility (AtomSpace.release
// drives it, since only the AtomSpace knows when to also scrub the lookup
// index and insertion-ordered list).
func (h *Handle) release() bool {
	return atomic.AddInt32(&h.refCount, -1) == 0
}

// addIncoming records a weak back-reference from holder into this atom's
// incoming set. Must be called with the owning AtomSpace's lock held.
func (a *Atom) addIncoming(holder *Handle) {
	a.mu.Lock()
	defer a.mu.Unlock()
	if a.incoming == nil {
		a.incoming = make(map[*Handle]int)
	}
	a.incoming[holder]++
}

// removeIncoming undoes one occurrence of addIncoming. Must be called with
// the owning AtomSpace's lock held.
func (a *Atom) removeIncoming(holder *Handle) {
	a.mu.Lock()
	defer a.mu.Unlock()
	if a.incoming == nil {
		return
	}
	if n := a.incoming[holder]; n <= 1 {
		delete(a.incoming, holder)
	} else {
		a.incoming[holder] = n - 1
	}
}

// Incoming returns a snapshot of the atoms whose outgoing set references
// this one: for every t in L.outgoing, L is in t.incoming.
func (a *Atom) Incoming() []*Handle {
	a.mu.RLock()
	defer a.mu.RUnlock()
	out := make([]*Handle, 0, len(a.incoming))
	for h, n := range a.incoming {
		for i := 0; i < n; i++ {
			out = append(out, h)
		}
	}
	return out
}

func (a *Atom) incomingLen() int {
	a.mu.RLock()
	defer a.mu.RUnlock()
	return len(a.incoming)
}
