package coord

import (
	"container/heap"
	"encoding/binary"
	"sync"
	"time"

	"github.com/cogmesh/atomspace/internal/cogerr"
)

// MessageKind enumerates the inter-node message types.
type MessageKind uint32

const (
	AtomCreate MessageKind = iota
	AtomUpdate
	AtomDelete
	AtomQuery
	AtomResponse
	SyncRequest
	SyncResponse
	Heartbeat
	NodeJoin
	NodeLeave
)

// Message is the unit of inter-node communication. Dest == 0 means
// broadcast.
type Message struct {
	Kind        MessageKind
	Source      uint32
	Dest        uint32
	TimestampMs uint64
	Payload     []byte
}

// wireHeaderSize is kind(4) + source(4) + dest(4) + timestamp_ms(8) +
// payload_len(4), all little-endian.
const wireHeaderSize = 4 + 4 + 4 + 8 + 4

// Encode serializes msg to the wire framing.
func Encode(msg Message) []byte {
	buf := make([]byte, wireHeaderSize+len(msg.Payload))
	binary.LittleEndian.PutUint32(buf[0:4], uint32(msg.Kind))
	binary.LittleEndian.PutUint32(buf[4:8], msg.Source)
	binary.LittleEndian.PutUint32(buf[8:12], msg.Dest)
	binary.LittleEndian.PutUint64(buf[12:20], msg.TimestampMs)
	binary.LittleEndian.PutUint32(buf[20:24], uint32(len(msg.Payload)))
	copy(buf[wireHeaderSize:], msg.Payload)
	return buf
}

// Decode parses the wire framing, allocating a fresh payload buffer owned
// by the caller.
func Decode(buf []byte) (Message, error) {
	if len(buf) < wireHeaderSize {
		return Message{}, cogerr.New(cogerr.InvalidArgument, "message buffer shorter than header (%d bytes)", len(buf))
	}
	msg := Message{
		Kind:        MessageKind(binary.LittleEndian.Uint32(buf[0:4])),
		Source:      binary.LittleEndian.Uint32(buf[4:8]),
		Dest:        binary.LittleEndian.Uint32(buf[8:12]),
		TimestampMs: binary.LittleEndian.Uint64(buf[12:20]),
	}
	payloadLen := binary.LittleEndian.Uint32(buf[20:24])
	if uint32(len(buf)-wireHeaderSize) < payloadLen {
		return Message{}, cogerr.New(cogerr.InvalidArgument, "message buffer truncated: want %d payload bytes, have %d", payloadLen, len(buf)-wireHeaderSize)
	}
	msg.Payload = make([]byte, payloadLen)
	copy(msg.Payload, buf[wireHeaderSize:wireHeaderSize+int(payloadLen)])
	return msg, nil
}

const (
	// DefaultQueueCapacity is the default max_messages.
	DefaultQueueCapacity = 100
	// DefaultMaxMessageSize is the default per-message size limit.
	DefaultMaxMessageSize = 65536
)

// queueItem is one pending message plus its priority and a monotonic
// sequence number, so that within a priority level delivery stays FIFO.
type queueItem struct {
	priority uint8
	seq      uint64
	msg      Message
}

type priorityHeap []*queueItem

func (h priorityHeap) Len() int { return len(h) }
func (h priorityHeap) Less(i, j int) bool {
	if h[i].priority != h[j].priority {
		return h[i].priority > h[j].priority // higher priority first
	}
	return h[i].seq < h[j].seq // FIFO within a priority
}
func (h priorityHeap) Swap(i, j int) { h[i], h[j] = h[j], h[i] }
func (h *priorityHeap) Push(x any)   { *h = append(*h, x.(*queueItem)) }
func (h *priorityHeap) Pop() any {
	old := *h
	n := len(old)
	item := old[n-1]
	*h = old[:n-1]
	return item
}

// Queue is the bounded, multi-producer/multi-consumer, priority-ordered
// message queue.
type Queue struct {
	mu            sync.Mutex
	items         priorityHeap
	capacity      int
	maxMessageSize int
	seq           uint64
	notify        chan struct{}
}

// NewQueue creates a queue with the given capacity (max_messages) and
// per-message size limit (max_message_size).
func NewQueue(capacity, maxMessageSize int) *Queue {
	if capacity <= 0 {
		capacity = DefaultQueueCapacity
	}
	if maxMessageSize <= 0 {
		maxMessageSize = DefaultMaxMessageSize
	}
	q := &Queue{
		capacity:       capacity,
		maxMessageSize: maxMessageSize,
		notify:         make(chan struct{}, 1),
	}
	heap.Init(&q.items)
	return q
}

// Send enqueues msg at the given priority (higher value = higher priority).
// Non-blocking: returns QueueFull immediately if the queue is saturated.
func (q *Queue) Send(msg Message, priority uint8) error {
	if len(msg.Payload) > q.maxMessageSize {
		return cogerr.New(cogerr.InvalidArgument, "message payload %d bytes exceeds max_message_size %d", len(msg.Payload), q.maxMessageSize)
	}

	q.mu.Lock()
	if len(q.items) >= q.capacity {
		q.mu.Unlock()
		return cogerr.New(cogerr.QueueFull, "queue at capacity %d", q.capacity)
	}
	q.seq++
	heap.Push(&q.items, &queueItem{priority: priority, seq: q.seq, msg: msg})
	q.mu.Unlock()

	select {
	case q.notify <- struct{}{}:
	default:
	}
	return nil
}

// Receive dequeues the highest-priority, earliest-enqueued pending
// message. timeoutMs == 0 means non-blocking (TimedOut if nothing is
// pending); timeoutMs > 0 blocks up to that long.
func (q *Queue) Receive(timeoutMs int) (Message, error) {
	if msg, ok := q.tryPop(); ok {
		return msg, nil
	}
	if timeoutMs <= 0 {
		return Message{}, cogerr.New(cogerr.TimedOut, "no message available")
	}

	timer := time.NewTimer(time.Duration(timeoutMs) * time.Millisecond)
	defer timer.Stop()
	for {
		select {
		case <-q.notify:
			if msg, ok := q.tryPop(); ok {
				return msg, nil
			}
			// spurious wakeup (another receiver won the race): keep waiting
		case <-timer.C:
			return Message{}, cogerr.New(cogerr.TimedOut, "no message within %dms", timeoutMs)
		}
	}
}

func (q *Queue) tryPop() (Message, bool) {
	q.mu.Lock()
	defer q.mu.Unlock()
	if len(q.items) == 0 {
		return Message{}, false
	}
	item := heap.Pop(&q.items).(*queueItem)
	return item.msg, true
}

// Depth reports the number of currently pending messages, for stats/metrics.
func (q *Queue) Depth() int {
	q.mu.Lock()
	defer q.mu.Unlock()
	return len(q.items)
}
