package coord

import (
	"testing"

	"github.com/cogmesh/atomspace/internal/cogerr"
)

func TestConsensusCommitsAtRequiredVotes(t *testing.T) {
	rec := NewConsensusRecord("p1", []byte("payload"), 2)
	if rec.CurrentPhase() != Propose {
		t.Fatalf("expected Propose, got %v", rec.CurrentPhase())
	}

	if err := rec.Vote(1, true); err != nil {
		t.Fatalf("Vote: %v", err)
	}
	if rec.CurrentPhase() != Accept {
		t.Errorf("expected Accept after 1 of 2 votes, got %v", rec.CurrentPhase())
	}

	if err := rec.Vote(2, true); err != nil {
		t.Fatalf("Vote: %v", err)
	}
	if !rec.IsCommitted() {
		t.Error("expected record to be committed after required votes reached")
	}
}

func TestConsensusSingleRejectIsVeto(t *testing.T) {
	rec := NewConsensusRecord("p1", nil, 3)
	_ = rec.Vote(1, true)
	_ = rec.Vote(2, true)
	if err := rec.Vote(3, false); err != nil {
		t.Fatalf("Vote: %v", err)
	}
	if !rec.IsRejected() {
		t.Error("expected a single reject to veto the proposal")
	}

	if err := rec.Vote(4, true); err == nil {
		t.Error("expected terminal record to reject further votes")
	} else if kind, _ := cogerr.KindOf(err); kind != cogerr.NotRunning {
		t.Errorf("expected NotRunning, got %v", kind)
	}
}

func TestConsensusIdempotentRepeatVote(t *testing.T) {
	rec := NewConsensusRecord("p1", nil, 2)
	if err := rec.Vote(1, true); err != nil {
		t.Fatalf("Vote: %v", err)
	}
	if err := rec.Vote(1, true); err != nil {
		t.Errorf("expected idempotent repeat vote to succeed, got %v", err)
	}
	if rec.VoteCount() != 1 {
		t.Errorf("expected repeat vote to not double-count, got %d voters", rec.VoteCount())
	}
}

func TestConsensusFlipFlopRejected(t *testing.T) {
	rec := NewConsensusRecord("p1", nil, 2)
	_ = rec.Vote(1, true)
	err := rec.Vote(1, false)
	if err == nil {
		t.Fatal("expected error when a node changes its vote")
	}
	if kind, _ := cogerr.KindOf(err); kind != cogerr.InvalidArgument {
		t.Errorf("expected InvalidArgument, got %v", kind)
	}
}
