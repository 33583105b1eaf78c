package coord

import (
	"sync"

	"github.com/cogmesh/atomspace/internal/cogerr"
)

// Phase is a consensus record's position in the Propose -> Accept ->
// Commit state machine, with Reject as the terminal failure state.
type Phase int

const (
	Propose Phase = iota
	Accept
	Commit
	Reject
)

func (p Phase) String() string {
	switch p {
	case Propose:
		return "Propose"
	case Accept:
		return "Accept"
	case Commit:
		return "Commit"
	case Reject:
		return "Reject"
	default:
		return "Unknown"
	}
}

// ConsensusRecord tracks one proposal's votes through to commit or reject,
// collecting one accept/reject vote per node against a required quorum.
type ConsensusRecord struct {
	mu            sync.Mutex
	ProposalID    string
	Payload       []byte
	Phase         Phase
	RequiredVotes int
	votedNodes    map[uint32]bool // nodeID -> accept
}

// NewConsensusRecord creates a record in Propose phase awaiting requiredVotes
// accepting votes before it commits. A single Reject vote from any node is
// veto-style: it moves the record straight to Reject regardless of prior
// accepts, and rejection is not retractable or outvoted by later accepts.
func NewConsensusRecord(proposalID string, payload []byte, requiredVotes int) *ConsensusRecord {
	return &ConsensusRecord{
		ProposalID:    proposalID,
		Payload:       payload,
		Phase:         Propose,
		RequiredVotes: requiredVotes,
		votedNodes:    make(map[uint32]bool),
	}
}

// Vote records nodeID's vote. A record already in Commit or Reject is
// terminal: further votes are rejected with AlreadyRunning-style semantics
// (here cogerr.NotRunning, since there is nothing left running to vote on).
// Casting the same accept vote twice is idempotent; a node flip-flopping
// its vote is not allowed (its first vote sticks).
func (c *ConsensusRecord) Vote(nodeID uint32, accept bool) error {
	c.mu.Lock()
	defer c.mu.Unlock()

	if c.Phase == Commit || c.Phase == Reject {
		return cogerr.New(cogerr.NotRunning, "consensus record %s already in terminal phase %s", c.ProposalID, c.Phase)
	}

	if prior, voted := c.votedNodes[nodeID]; voted {
		if prior != accept {
			return cogerr.New(cogerr.InvalidArgument, "node %d cannot change its vote on proposal %s", nodeID, c.ProposalID)
		}
		return nil // idempotent repeat of the same vote
	}

	c.votedNodes[nodeID] = accept
	if !accept {
		c.Phase = Reject
		return nil
	}

	if c.Phase == Propose {
		c.Phase = Accept
	}

	accepted := 0
	for _, v := range c.votedNodes {
		if v {
			accepted++
		}
	}
	if accepted >= c.RequiredVotes {
		c.Phase = Commit
	}
	return nil
}

// IsCommitted reports whether the record reached Commit.
func (c *ConsensusRecord) IsCommitted() bool {
	c.mu.Lock()
	defer c.mu.Unlock()
	return c.Phase == Commit
}

// IsRejected reports whether the record reached Reject.
func (c *ConsensusRecord) IsRejected() bool {
	c.mu.Lock()
	defer c.mu.Unlock()
	return c.Phase == Reject
}

// VoteCount reports how many nodes have voted (accept or reject).
func (c *ConsensusRecord) VoteCount() int {
	c.mu.Lock()
	defer c.mu.Unlock()
	return len(c.votedNodes)
}

// CurrentPhase reports the record's phase under lock.
func (c *ConsensusRecord) CurrentPhase() Phase {
	c.mu.Lock()
	defer c.mu.Unlock()
	return c.Phase
}
