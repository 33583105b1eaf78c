package coord

import (
	"context"
	"sync"
	"time"

	"github.com/google/uuid"
	"go.uber.org/zap"

	"github.com/cogmesh/atomspace/internal/atomspace"
	"github.com/cogmesh/atomspace/internal/cogerr"
)

// Config holds the construction-time parameters for a Node.
type Config struct {
	Hostname       string
	Port           uint16
	QueueCapacity  int
	MaxMessageSize int
	RequiredVotes  int
}

// DefaultConfig returns sane single-node defaults.
func DefaultConfig() *Config {
	return &Config{
		Hostname:       "localhost",
		Port:           7070,
		QueueCapacity:  DefaultQueueCapacity,
		MaxMessageSize: DefaultMaxMessageSize,
		RequiredVotes:  1,
	}
}

// Node is the composition root tying together one cluster participant's
// AtomSpace, membership table, message queue, consensus bookkeeping and
// runtime workers behind a single Config/DefaultConfig/Close lifecycle.
type Node struct {
	NodeID uint32
	cfg    *Config
	log    *zap.Logger

	Space   *atomspace.AtomSpace
	Table   *NodeTable
	Queue   *Queue
	Runtime *Runtime

	mu        sync.Mutex
	proposals map[string]*ConsensusRecord
}

// NewNode constructs a Node and its Runtime, registering this node in its
// own membership table. cfg may be nil for DefaultConfig.
func NewNode(nodeID uint32, cfg *Config, log *zap.Logger) *Node {
	if cfg == nil {
		cfg = DefaultConfig()
	}
	if log == nil {
		log = zap.NewNop()
	}

	n := &Node{
		NodeID:    nodeID,
		cfg:       cfg,
		log:       log,
		Space:     atomspace.New(nodeID),
		Table:     NewNodeTable(),
		Queue:     NewQueue(cfg.QueueCapacity, cfg.MaxMessageSize),
		proposals: make(map[string]*ConsensusRecord),
	}

	nowMs := uint64(time.Now().UnixMilli())
	_ = n.Table.Add(nodeID, cfg.Hostname, cfg.Port, nowMs)

	n.Runtime = NewRuntime(nodeID, n.Table, n.Queue, Callbacks{
		OnNodeJoin:  n.handleNodeJoin,
		OnNodeLeave: n.handleNodeLeave,
		OnDefault:   n.handleApplicationMessage,
	}, log, nil)

	return n
}

func (n *Node) handleNodeJoin(msg Message) {
	nowMs := uint64(time.Now().UnixMilli())
	if err := n.Table.Add(msg.Source, "", 0, nowMs); err != nil {
		n.log.Debug("node_join ignored", zap.Uint32("node_id", msg.Source), zap.Error(err))
	}
}

func (n *Node) handleNodeLeave(msg Message) {
	if err := n.Table.Remove(msg.Source); err != nil {
		n.log.Debug("node_leave for unregistered node", zap.Uint32("node_id", msg.Source), zap.Error(err))
	}
}

// handleApplicationMessage is the fallback for AtomCreate/AtomUpdate/
// AtomDelete/AtomQuery/AtomResponse/SyncRequest/SyncResponse: this node has
// no wire-level remote AtomSpace protocol implemented yet, so inbound
// application messages are logged and dropped rather than silently ignored.
func (n *Node) handleApplicationMessage(msg Message) {
	n.log.Debug("application message received",
		zap.Uint32("kind", uint32(msg.Kind)),
		zap.Uint32("source", msg.Source))
}

// Start launches the node's runtime workers.
func (n *Node) Start(ctx context.Context) error {
	return n.Runtime.Start(ctx)
}

// Propose begins a new consensus round over payload, requiring cfg's
// configured vote threshold, and returns its generated proposal id.
func (n *Node) Propose(payload []byte) string {
	id := uuid.NewString()
	n.mu.Lock()
	n.proposals[id] = NewConsensusRecord(id, payload, n.cfg.RequiredVotes)
	n.mu.Unlock()
	return id
}

// Vote casts nodeID's vote on proposalID. Returns NotFound if unknown.
func (n *Node) Vote(proposalID string, nodeID uint32, accept bool) error {
	n.mu.Lock()
	rec, ok := n.proposals[proposalID]
	n.mu.Unlock()
	if !ok {
		return cogerr.New(cogerr.NotFound, "proposal %s not found", proposalID)
	}
	return rec.Vote(nodeID, accept)
}

// ProposalPhase reports a proposal's current phase.
func (n *Node) ProposalPhase(proposalID string) (Phase, error) {
	n.mu.Lock()
	rec, ok := n.proposals[proposalID]
	n.mu.Unlock()
	if !ok {
		return 0, cogerr.New(cogerr.NotFound, "proposal %s not found", proposalID)
	}
	return rec.CurrentPhase(), nil
}

// Stats aggregates introspection data across this node's subsystems.
type Stats struct {
	AtomSpace   atomspace.Stats
	ActiveNodes int
	QueueDepth  int
	Proposals   int
}

// GetStats returns a snapshot of aggregate node statistics.
func (n *Node) GetStats() Stats {
	n.mu.Lock()
	numProposals := len(n.proposals)
	n.mu.Unlock()

	return Stats{
		AtomSpace:   n.Space.Stats(),
		ActiveNodes: n.Table.ActiveCount(),
		QueueDepth:  n.Queue.Depth(),
		Proposals:   numProposals,
	}
}

// Close shuts down the node's runtime and releases its AtomSpace.
func (n *Node) Close() error {
	n.Runtime.Destroy()
	n.Space.Destroy()
	return nil
}
