package coord

import (
	"bytes"
	"testing"

	"github.com/cogmesh/atomspace/internal/cogerr"
)

func TestEncodeDecodeRoundTrip(t *testing.T) {
	msg := Message{
		Kind:        AtomCreate,
		Source:      1,
		Dest:        2,
		TimestampMs: 1234567,
		Payload:     []byte("hello"),
	}
	buf := Encode(msg)
	got, err := Decode(buf)
	if err != nil {
		t.Fatalf("Decode: %v", err)
	}
	if got.Kind != msg.Kind || got.Source != msg.Source || got.Dest != msg.Dest || got.TimestampMs != msg.TimestampMs {
		t.Errorf("round trip mismatch: got %+v want %+v", got, msg)
	}
	if !bytes.Equal(got.Payload, msg.Payload) {
		t.Errorf("payload mismatch: got %q want %q", got.Payload, msg.Payload)
	}
}

func TestDecodeTruncatedHeader(t *testing.T) {
	_, err := Decode([]byte{1, 2, 3})
	if err == nil {
		t.Fatal("expected error on truncated header")
	}
	if kind, _ := cogerr.KindOf(err); kind != cogerr.InvalidArgument {
		t.Errorf("expected InvalidArgument, got %v", kind)
	}
}

func TestDecodeTruncatedPayload(t *testing.T) {
	msg := Message{Kind: Heartbeat, Payload: []byte("0123456789")}
	buf := Encode(msg)
	_, err := Decode(buf[:len(buf)-3])
	if err == nil {
		t.Fatal("expected error on truncated payload")
	}
}

func TestQueueSendReceiveFIFOWithinPriority(t *testing.T) {
	q := NewQueue(10, DefaultMaxMessageSize)
	for i := 0; i < 3; i++ {
		if err := q.Send(Message{Kind: AtomCreate, Source: uint32(i)}, 1); err != nil {
			t.Fatalf("Send %d: %v", i, err)
		}
	}
	for i := 0; i < 3; i++ {
		msg, err := q.Receive(0)
		if err != nil {
			t.Fatalf("Receive %d: %v", i, err)
		}
		if msg.Source != uint32(i) {
			t.Errorf("expected FIFO order, got source %d at position %d", msg.Source, i)
		}
	}
}

func TestQueuePriorityOrdering(t *testing.T) {
	q := NewQueue(10, DefaultMaxMessageSize)
	_ = q.Send(Message{Kind: AtomCreate, Source: 1}, 1)
	_ = q.Send(Message{Kind: AtomCreate, Source: 2}, 200)
	_ = q.Send(Message{Kind: AtomCreate, Source: 3}, 50)

	first, _ := q.Receive(0)
	if first.Source != 2 {
		t.Errorf("expected highest priority message first, got source %d", first.Source)
	}
	second, _ := q.Receive(0)
	if second.Source != 3 {
		t.Errorf("expected mid priority message second, got source %d", second.Source)
	}
}

func TestQueueSendReturnsQueueFullAtCapacity(t *testing.T) {
	q := NewQueue(2, DefaultMaxMessageSize)
	_ = q.Send(Message{Kind: Heartbeat}, 0)
	_ = q.Send(Message{Kind: Heartbeat}, 0)
	err := q.Send(Message{Kind: Heartbeat}, 0)
	if err == nil {
		t.Fatal("expected QueueFull error")
	}
	if kind, _ := cogerr.KindOf(err); kind != cogerr.QueueFull {
		t.Errorf("expected QueueFull, got %v", kind)
	}
}

func TestQueueReceiveTimesOutWhenEmpty(t *testing.T) {
	q := NewQueue(2, DefaultMaxMessageSize)
	_, err := q.Receive(10)
	if err == nil {
		t.Fatal("expected TimedOut error")
	}
	if kind, _ := cogerr.KindOf(err); kind != cogerr.TimedOut {
		t.Errorf("expected TimedOut, got %v", kind)
	}
}

func TestQueueSendRejectsOversizedPayload(t *testing.T) {
	q := NewQueue(2, 4)
	err := q.Send(Message{Kind: AtomCreate, Payload: []byte("too big")}, 0)
	if err == nil {
		t.Fatal("expected error for oversized payload")
	}
	if kind, _ := cogerr.KindOf(err); kind != cogerr.InvalidArgument {
		t.Errorf("expected InvalidArgument, got %v", kind)
	}
}
