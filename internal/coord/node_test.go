package coord

import (
	"context"
	"testing"

	"github.com/cogmesh/atomspace/internal/atomspace"
	"github.com/cogmesh/atomspace/internal/cogerr"
)

func TestNewNodeRegistersItself(t *testing.T) {
	n := NewNode(1, DefaultConfig(), nil)
	defer n.Close()

	entry, ok := n.Table.LookupByID(1)
	if !ok {
		t.Fatal("expected node to register itself in its own table")
	}
	if !entry.Active {
		t.Error("expected self entry to start active")
	}
}

func TestNodeStartStop(t *testing.T) {
	n := NewNode(1, DefaultConfig(), nil)
	defer n.Close()

	ctx, cancel := context.WithCancel(context.Background())
	defer cancel()

	if err := n.Start(ctx); err != nil {
		t.Fatalf("Start: %v", err)
	}
	if err := n.Runtime.Start(ctx); err == nil {
		t.Error("expected AlreadyRunning on second Start")
	} else if kind, _ := cogerr.KindOf(err); kind != cogerr.AlreadyRunning {
		t.Errorf("expected AlreadyRunning, got %v", kind)
	}

	if err := n.Runtime.Stop(); err != nil {
		t.Fatalf("Stop: %v", err)
	}
	if err := n.Runtime.Stop(); err == nil {
		t.Error("expected NotRunning on second Stop")
	}
}

func TestNodeProposeAndVote(t *testing.T) {
	cfg := DefaultConfig()
	cfg.RequiredVotes = 2
	n := NewNode(1, cfg, nil)
	defer n.Close()

	id := n.Propose([]byte("payload"))

	phase, err := n.ProposalPhase(id)
	if err != nil {
		t.Fatalf("ProposalPhase: %v", err)
	}
	if phase != Propose {
		t.Errorf("expected Propose phase, got %v", phase)
	}

	if err := n.Vote(id, 1, true); err != nil {
		t.Fatalf("Vote: %v", err)
	}
	if err := n.Vote(id, 2, true); err != nil {
		t.Fatalf("Vote: %v", err)
	}

	phase, _ = n.ProposalPhase(id)
	if phase != Commit {
		t.Errorf("expected Commit after %d accepting votes, got %v", cfg.RequiredVotes, phase)
	}
}

func TestNodeVoteUnknownProposal(t *testing.T) {
	n := NewNode(1, DefaultConfig(), nil)
	defer n.Close()

	err := n.Vote("does-not-exist", 1, true)
	if err == nil {
		t.Fatal("expected NotFound error")
	}
	if kind, _ := cogerr.KindOf(err); kind != cogerr.NotFound {
		t.Errorf("expected NotFound, got %v", kind)
	}
}

func TestNodeGetStats(t *testing.T) {
	n := NewNode(1, DefaultConfig(), nil)
	defer n.Close()

	h, err := n.Space.Create(atomspace.Concept, "Dog")
	if err != nil {
		t.Fatalf("Create: %v", err)
	}
	defer n.Space.Release(h)

	stats := n.GetStats()
	if stats.AtomSpace.LiveCount != 1 {
		t.Errorf("expected 1 live atom, got %d", stats.AtomSpace.LiveCount)
	}
	if stats.ActiveNodes != 1 {
		t.Errorf("expected 1 active node, got %d", stats.ActiveNodes)
	}
}

func TestRuntimeHeartbeatBroadcasts(t *testing.T) {
	n := NewNode(1, DefaultConfig(), nil)
	defer n.Close()

	ctx, cancel := context.WithCancel(context.Background())
	defer cancel()
	if err := n.Start(ctx); err != nil {
		t.Fatalf("Start: %v", err)
	}
	defer n.Runtime.Stop()

	msg, err := n.Queue.Receive(HeartbeatIntervalMs * 3)
	if err != nil {
		t.Fatalf("expected a heartbeat message within a few ticks: %v", err)
	}
	if msg.Kind != Heartbeat {
		t.Errorf("expected Heartbeat, got %v", msg.Kind)
	}
	if msg.Source != 1 {
		t.Errorf("expected source node 1, got %d", msg.Source)
	}
}

func TestNodeTableSweepMarksStale(t *testing.T) {
	table := NewNodeTable()
	if err := table.Add(1, "h1", 7000, 0); err != nil {
		t.Fatalf("Add: %v", err)
	}

	changed := table.Sweep(NodeTimeoutMs + 1)
	if len(changed) != 1 || changed[0] != 1 {
		t.Errorf("expected node 1 to be marked stale, got %v", changed)
	}

	entry, _ := table.LookupByID(1)
	if entry.Active {
		t.Error("expected entry to be inactive after sweep")
	}
}
