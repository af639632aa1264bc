// Package kernelerr carries the kernel's single result-style error taxonomy
// (spec §7), backed by github.com/containerd/errdefs sentinels the same way
// the teacher's stdio.Manager wraps ErrNotFound/ErrFailedPrecondition.
//
// Operations at the control surface return a Kind verbatim to the caller
// along with a short human message. Operations inside the supervisor loop
// convert these into state transitions and log entries instead of
// propagating them; see internal/supervisor.
package kernelerr

import (
	"errors"
	"fmt"

	"github.com/containerd/errdefs"
)

// Kind classifies a kernel error. Obtain it with KindOf, or test an error
// with errors.Is against the errdefs sentinel its constructor wraps.
type Kind int

const (
	KindUnknown Kind = iota
	KindInvalidArg
	KindNotFound
	KindAlreadyExists
	KindSpawnFailed
	KindPipeFailed
	KindQueueFull
	KindTimeout
	KindIO
	KindParseFailed
)

func (k Kind) String() string {
	switch k {
	case KindInvalidArg:
		return "InvalidArg"
	case KindNotFound:
		return "NotFound"
	case KindAlreadyExists:
		return "AlreadyExists"
	case KindSpawnFailed:
		return "SpawnFailed"
	case KindPipeFailed:
		return "PipeFailed"
	case KindQueueFull:
		return "QueueFull"
	case KindTimeout:
		return "Timeout"
	case KindIO:
		return "Io"
	case KindParseFailed:
		return "ParseFailed"
	default:
		return "Unknown"
	}
}

// wrapped pairs a Kind with the errdefs sentinel it is reported through, so
// that errors.Is continues to work against the standard sentinels while
// callers that only care about the kernel's own taxonomy can use KindOf.
type wrapped struct {
	kind Kind
	msg  string
	err  error
}

func (w *wrapped) Error() string {
	if w.msg == "" {
		return w.err.Error()
	}
	return w.msg + ": " + w.err.Error()
}

func (w *wrapped) Unwrap() error { return w.err }

func newErr(kind Kind, sentinel error, msg string) error {
	return &wrapped{kind: kind, msg: msg, err: sentinel}
}

// InvalidArg reports that a caller violated a contract (null names, bad
// format). Never mutates kernel state.
func InvalidArg(format string, args ...any) error {
	return newErr(KindInvalidArg, errdefs.ErrInvalidArgument, fmt.Sprintf(format, args...))
}

// NotFound reports that the named tool is not registered.
func NotFound(name string) error {
	return newErr(KindNotFound, errdefs.ErrNotFound, fmt.Sprintf("tool %q not found", name))
}

// AlreadyExists reports a duplicate registration.
func AlreadyExists(name string) error {
	return newErr(KindAlreadyExists, errdefs.ErrAlreadyExists, fmt.Sprintf("tool %q already registered", name))
}

// SpawnFailed reports that the platform refused to create the child.
func SpawnFailed(name string, cause error) error {
	return newErr(KindSpawnFailed, errdefs.ErrUnavailable, fmt.Sprintf("spawn %q failed: %v", name, cause))
}

// PipeFailed reports that the platform refused to create pipes for a child.
func PipeFailed(name string, cause error) error {
	return newErr(KindPipeFailed, errdefs.ErrUnavailable, fmt.Sprintf("pipe setup for %q failed: %v", name, cause))
}

// QueueFull reports that the bus or an inbox rejected a message under a
// no-overflow policy.
func QueueFull(where string) error {
	return newErr(KindQueueFull, errdefs.ErrUnavailable, fmt.Sprintf("%s is full", where))
}

// Timeout reports that a graceful reap did not complete within its window.
func Timeout(op string) error {
	return newErr(KindTimeout, errdefs.ErrDeadlineExceeded, fmt.Sprintf("%s timed out", op))
}

// IO reports a pipe operation failure not explained by would-block or
// pipe-closed.
func IO(op string, cause error) error {
	return newErr(KindIO, errdefs.ErrUnknown, fmt.Sprintf("%s: %v", op, cause))
}

// ParseFailed reports a malformed event line from a child.
func ParseFailed(line string, cause error) error {
	return newErr(KindParseFailed, errdefs.ErrInvalidArgument, fmt.Sprintf("parse %q: %v", line, cause))
}

// KindOf extracts the Kind carried by err, walking the error chain. Errors
// that never passed through this package classify as KindUnknown.
func KindOf(err error) Kind {
	var w *wrapped
	if errors.As(err, &w) {
		return w.kind
	}
	return KindUnknown
}
