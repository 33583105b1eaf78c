package coord

import (
	"sync"

	"github.com/cogmesh/atomspace/internal/cogerr"
)

// NodeTimeoutMs is the liveness window: a node with no heartbeat within
// this window is no longer considered Active.
const NodeTimeoutMs = 5000

// NodeEntry is one row of the cluster membership table.
type NodeEntry struct {
	NodeID          uint32
	Hostname        string
	Port            uint16
	Active          bool
	LastHeartbeatMs uint64
}

// NodeTable is the concurrent node registry backing cluster membership: one
// row per known node, flipping Active off a last-heartbeat timestamp.
type NodeTable struct {
	mu    sync.RWMutex
	nodes map[uint32]*NodeEntry
}

// NewNodeTable returns an empty node table.
func NewNodeTable() *NodeTable {
	return &NodeTable{nodes: make(map[uint32]*NodeEntry)}
}

// Add registers a new node. Re-adding an existing node id is rejected: the
// caller must Remove it first (duplicate ids are never silently merged).
func (t *NodeTable) Add(nodeID uint32, hostname string, port uint16, nowMs uint64) error {
	t.mu.Lock()
	defer t.mu.Unlock()
	if _, exists := t.nodes[nodeID]; exists {
		return cogerr.New(cogerr.InvalidArgument, "node %d already registered", nodeID)
	}
	t.nodes[nodeID] = &NodeEntry{
		NodeID:          nodeID,
		Hostname:        hostname,
		Port:            port,
		Active:          true,
		LastHeartbeatMs: nowMs,
	}
	return nil
}

// Remove drops a node from the table. Removing an unknown id returns
// NotFound.
func (t *NodeTable) Remove(nodeID uint32) error {
	t.mu.Lock()
	defer t.mu.Unlock()
	if _, exists := t.nodes[nodeID]; !exists {
		return cogerr.New(cogerr.NotFound, "node %d not registered", nodeID)
	}
	delete(t.nodes, nodeID)
	return nil
}

// LookupByID returns a copy of the node entry, or false if unknown.
func (t *NodeTable) LookupByID(nodeID uint32) (NodeEntry, bool) {
	t.mu.RLock()
	defer t.mu.RUnlock()
	e, ok := t.nodes[nodeID]
	if !ok {
		return NodeEntry{}, false
	}
	return *e, true
}

// MarkActive records a heartbeat from nodeID at nowMs, marking it active.
// Returns NotFound if the node was never Add-ed.
func (t *NodeTable) MarkActive(nodeID uint32, nowMs uint64) error {
	t.mu.Lock()
	defer t.mu.Unlock()
	e, ok := t.nodes[nodeID]
	if !ok {
		return cogerr.New(cogerr.NotFound, "node %d not registered", nodeID)
	}
	e.LastHeartbeatMs = nowMs
	e.Active = true
	return nil
}

// Sweep marks every node whose last heartbeat is older than NodeTimeoutMs
// relative to nowMs as inactive, and returns the ids that changed state.
func (t *NodeTable) Sweep(nowMs uint64) []uint32 {
	t.mu.Lock()
	defer t.mu.Unlock()
	var changed []uint32
	for id, e := range t.nodes {
		stale := nowMs-e.LastHeartbeatMs > NodeTimeoutMs
		if stale && e.Active {
			e.Active = false
			changed = append(changed, id)
		}
	}
	return changed
}

// Snapshot returns a copy of every entry, ordered by node id ascending.
func (t *NodeTable) Snapshot() []NodeEntry {
	t.mu.RLock()
	defer t.mu.RUnlock()
	out := make([]NodeEntry, 0, len(t.nodes))
	for _, e := range t.nodes {
		out = append(out, *e)
	}
	for i := 1; i < len(out); i++ {
		for j := i; j > 0 && out[j-1].NodeID > out[j].NodeID; j-- {
			out[j-1], out[j] = out[j], out[j-1]
		}
	}
	return out
}

// ActiveCount returns the number of nodes currently marked Active.
func (t *NodeTable) ActiveCount() int {
	t.mu.RLock()
	defer t.mu.RUnlock()
	n := 0
	for _, e := range t.nodes {
		if e.Active {
			n++
		}
	}
	return n
}
