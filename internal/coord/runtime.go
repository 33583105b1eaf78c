package coord

import (
	"context"
	"sync"
	"time"

	"go.uber.org/zap"
	"golang.org/x/sync/errgroup"

	"github.com/cogmesh/atomspace/internal/cogerr"
)

// HeartbeatIntervalMs is how often the runtime broadcasts its own liveness.
const HeartbeatIntervalMs = 1000

// HandlerReceiveTimeoutMs bounds how long the handler worker blocks on an
// empty queue before re-checking for shutdown.
const HandlerReceiveTimeoutMs = 100

// RuntimeState is the distributed runtime's lifecycle position.
type RuntimeState int

const (
	RuntimeCreated RuntimeState = iota
	RuntimeRunning
	RuntimeStopped
)

// Callbacks are invoked by the handler worker as messages are dequeued.
// OnDefault handles any kind with no dedicated callback (including
// application kinds like AtomCreate/AtomQuery). Fields left nil are
// skipped silently. A Heartbeat marks its source active in Table before
// OnHeartbeat (if any) runs; NodeJoin/NodeLeave do not touch Table
// themselves, so any membership change is up to OnNodeJoin/OnNodeLeave.
type Callbacks struct {
	OnHeartbeat func(Message)
	OnNodeJoin  func(Message)
	OnNodeLeave func(Message)
	OnDefault   func(Message)
}

// Runtime is the per-node distributed coordination loop: a heartbeat
// worker broadcasting liveness and sweeping stale peers, and a handler
// worker dispatching inbound messages, running under one errgroup so that
// either worker's failure tears the other down.
type Runtime struct {
	NodeID uint32
	Table  *NodeTable
	Queue  *Queue
	log    *zap.Logger

	callbacks Callbacks

	mu     sync.Mutex
	state  RuntimeState
	cancel context.CancelFunc
	eg     *errgroup.Group
	nowMs  func() uint64
}

// NewRuntime constructs a runtime for nodeID. nowMs supplies the current
// time in epoch milliseconds (injectable for tests); pass nil to use
// time.Now under the hood.
func NewRuntime(nodeID uint32, table *NodeTable, queue *Queue, cb Callbacks, log *zap.Logger, nowMs func() uint64) *Runtime {
	if log == nil {
		log = zap.NewNop()
	}
	if nowMs == nil {
		nowMs = func() uint64 { return uint64(time.Now().UnixMilli()) }
	}
	return &Runtime{
		NodeID:    nodeID,
		Table:     table,
		Queue:     queue,
		log:       log,
		callbacks: cb,
		state:     RuntimeCreated,
		nowMs:     nowMs,
	}
}

// Start transitions Created -> Running and launches the heartbeat and
// handler workers. Starting an already-running or already-stopped runtime
// is an error (AlreadyRunning / NotRunning respectively).
func (r *Runtime) Start(ctx context.Context) error {
	r.mu.Lock()
	defer r.mu.Unlock()

	switch r.state {
	case RuntimeRunning:
		return cogerr.New(cogerr.AlreadyRunning, "runtime for node %d already running", r.NodeID)
	case RuntimeStopped:
		return cogerr.New(cogerr.NotRunning, "runtime for node %d already stopped; not restartable", r.NodeID)
	}

	runCtx, cancel := context.WithCancel(ctx)
	eg, egCtx := errgroup.WithContext(runCtx)
	r.cancel = cancel
	r.eg = eg
	r.state = RuntimeRunning

	eg.Go(func() error { return r.heartbeatLoop(egCtx) })
	eg.Go(func() error { return r.handlerLoop(egCtx) })

	r.log.Info("runtime started", zap.Uint32("node_id", r.NodeID))
	return nil
}

// Stop cancels both workers and blocks until they exit, then transitions
// to Stopped. Safe to call once; calling on a non-running runtime returns
// NotRunning.
func (r *Runtime) Stop() error {
	r.mu.Lock()
	if r.state != RuntimeRunning {
		r.mu.Unlock()
		return cogerr.New(cogerr.NotRunning, "runtime for node %d is not running", r.NodeID)
	}
	cancel := r.cancel
	eg := r.eg
	r.mu.Unlock()

	cancel()
	err := eg.Wait()

	r.mu.Lock()
	r.state = RuntimeStopped
	r.mu.Unlock()

	r.log.Info("runtime stopped", zap.Uint32("node_id", r.NodeID))
	if err != nil && err != context.Canceled {
		return cogerr.Wrap(cogerr.OsResource, err, "runtime worker exited with error")
	}
	return nil
}

// Destroy stops the runtime if running and releases its resources. Safe to
// call on an already-stopped or never-started runtime.
func (r *Runtime) Destroy() {
	r.mu.Lock()
	state := r.state
	r.mu.Unlock()
	if state == RuntimeRunning {
		_ = r.Stop()
	}
}

func (r *Runtime) heartbeatLoop(ctx context.Context) error {
	ticker := time.NewTicker(HeartbeatIntervalMs * time.Millisecond)
	defer ticker.Stop()
	for {
		select {
		case <-ctx.Done():
			return nil
		case <-ticker.C:
			now := r.nowMs()
			msg := Message{
				Kind:        Heartbeat,
				Source:      r.NodeID,
				Dest:        0, // broadcast
				TimestampMs: now,
			}
			if err := r.Queue.Send(msg, 255); err != nil {
				r.log.Warn("heartbeat send dropped", zap.Error(err))
			}
			_ = r.Table.MarkActive(r.NodeID, now)
			if stale := r.Table.Sweep(now); len(stale) > 0 {
				r.log.Info("nodes marked inactive", zap.Uint32s("node_ids", stale))
			}
		}
	}
}

func (r *Runtime) handlerLoop(ctx context.Context) error {
	for {
		select {
		case <-ctx.Done():
			return nil
		default:
		}

		msg, err := r.Queue.Receive(HandlerReceiveTimeoutMs)
		if err != nil {
			if kind, ok := cogerr.KindOf(err); ok && kind == cogerr.TimedOut {
				continue
			}
			return err
		}
		r.dispatch(msg)
	}
}

func (r *Runtime) dispatch(msg Message) {
	switch msg.Kind {
	case Heartbeat:
		_ = r.Table.MarkActive(msg.Source, msg.TimestampMs)
		if r.callbacks.OnHeartbeat != nil {
			r.callbacks.OnHeartbeat(msg)
		}
	case NodeJoin:
		if r.callbacks.OnNodeJoin != nil {
			r.callbacks.OnNodeJoin(msg)
		}
	case NodeLeave:
		if r.callbacks.OnNodeLeave != nil {
			r.callbacks.OnNodeLeave(msg)
		}
	default:
		if r.callbacks.OnDefault != nil {
			r.callbacks.OnDefault(msg)
		}
	}
}

// State reports the runtime's current lifecycle state.
func (r *Runtime) State() RuntimeState {
	r.mu.Lock()
	defer r.mu.Unlock()
	return r.state
}
