package atomspace

import "testing"

func TestTruthValueClamp(t *testing.T) {
	tv := TruthValue{Strength: 1.5, Confidence: -0.3}.Clamp()
	if tv.Strength != 1.0 {
		t.Errorf("expected strength clamped to 1.0, got %v", tv.Strength)
	}
	if tv.Confidence != 0.0 {
		t.Errorf("expected confidence clamped to 0.0, got %v", tv.Confidence)
	}
}

func TestHandleSetTruthValueClamps(t *testing.T) {
	atom := &Atom{truth: defaultTruthValue}
	h := &Handle{atom: atom, refCount: 1}

	h.SetTruthValue(TruthValue{Strength: 2.0, Confidence: 0.5})
	tv := h.GetTruthValue()
	if tv.Strength != 1.0 {
		t.Errorf("expected clamped strength 1.0, got %v", tv.Strength)
	}
	if tv.Confidence != 0.5 {
		t.Errorf("expected confidence 0.5, got %v", tv.Confidence)
	}
}

func TestHandleRetainRelease(t *testing.T) {
	h := &Handle{refCount: 1}
	h.retain()
	if got := h.refCountValue(); got != 2 {
		t.Errorf("expected refcount 2 after retain, got %d", got)
	}
	if h.release() {
		t.Error("release should not report zero after one retain/one release from 2")
	}
	if got := h.refCountValue(); got != 1 {
		t.Errorf("expected refcount 1, got %d", got)
	}
	if !h.release() {
		t.Error("expected release to report zero when refcount drops to 0")
	}
}

func TestAtomIncomingMultiset(t *testing.T) {
	atom := &Atom{}
	holder := &Handle{id: 1}

	atom.addIncoming(holder)
	atom.addIncoming(holder) // same holder twice (e.g. appears twice in one link's outgoing)

	if got := atom.incomingLen(); got != 1 {
		t.Errorf("expected 1 distinct incoming holder, got %d", got)
	}
	if got := len(atom.Incoming()); got != 2 {
		t.Errorf("expected Incoming() to report 2 occurrences, got %d", got)
	}

	atom.removeIncoming(holder)
	if got := len(atom.Incoming()); got != 1 {
		t.Errorf("expected 1 occurrence after one removal, got %d", got)
	}

	atom.removeIncoming(holder)
	if got := atom.incomingLen(); got != 0 {
		t.Errorf("expected 0 holders after removing all occurrences, got %d", got)
	}
}

func TestKindString(t *testing.T) {
	cases := map[Kind]string{
		Concept: "Concept",
		Link:    "Link",
		Kind(99): "Unknown",
	}
	for k, want := range cases {
		if got := k.String(); got != want {
			t.Errorf("Kind(%d).String() = %q, want %q", k, got, want)
		}
	}
}
