// Package cogerr defines the closed set of error kinds surfaced by the
// atomspace and coord packages.
package cogerr

import (
	"errors"
	"fmt"
)

// Kind enumerates the error taxonomy of the distributed AtomSpace core.
type Kind int

const (
	// InvalidArgument covers malformed inputs: nil references where
	// non-nil is required, foreign atoms passed to CreateLink. Truth
	// values out of [0,1] are clamped by SetTruthValue, not reported.
	InvalidArgument Kind = iota
	// NotFound covers Get misses and RemoveNode of an unknown id.
	NotFound
	// QueueFull is returned by a non-blocking Send against a saturated queue.
	QueueFull
	// TimedOut is returned by Receive when no message arrives in time.
	TimedOut
	// AlreadyRunning is returned by Start against a running runtime.
	AlreadyRunning
	// NotRunning is returned by Stop against a non-running runtime.
	NotRunning
	// OsResource covers failures to obtain shared memory, queues, or threads.
	OsResource
	// OutOfMemory covers allocation failure on an allocating operation.
	OutOfMemory
)

func (k Kind) String() string {
	switch k {
	case InvalidArgument:
		return "invalid_argument"
	case NotFound:
		return "not_found"
	case QueueFull:
		return "queue_full"
	case TimedOut:
		return "timed_out"
	case AlreadyRunning:
		return "already_running"
	case NotRunning:
		return "not_running"
	case OsResource:
		return "os_resource"
	case OutOfMemory:
		return "out_of_memory"
	default:
		return "unknown"
	}
}

// Error is a Kind-tagged error. Wrap with fmt.Errorf("...: %w", err) freely;
// errors.Is/As still resolves Kind through the chain.
type Error struct {
	Kind Kind
	Msg  string
	Err  error
}

func (e *Error) Error() string {
	if e.Err != nil {
		return fmt.Sprintf("%s: %s: %v", e.Kind, e.Msg, e.Err)
	}
	return fmt.Sprintf("%s: %s", e.Kind, e.Msg)
}

func (e *Error) Unwrap() error { return e.Err }

// Is lets errors.Is(err, &cogerr.Error{Kind: cogerr.NotFound}) match any
// *Error of the same Kind, comparing Kind rather than identity.
func (e *Error) Is(target error) bool {
	t, ok := target.(*Error)
	if !ok {
		return false
	}
	return e.Kind == t.Kind
}

// New builds an *Error of the given kind with a formatted message.
func New(kind Kind, format string, args ...any) *Error {
	return &Error{Kind: kind, Msg: fmt.Sprintf(format, args...)}
}

// Wrap builds an *Error of the given kind wrapping an underlying cause.
func Wrap(kind Kind, cause error, format string, args ...any) *Error {
	return &Error{Kind: kind, Msg: fmt.Sprintf(format, args...), Err: cause}
}

// KindOf extracts the Kind from err if it (or something in its chain) is an
// *Error, reporting ok=false otherwise.
func KindOf(err error) (Kind, bool) {
	var e *Error
	if errors.As(err, &e) {
		return e.Kind, true
	}
	return 0, false
}
