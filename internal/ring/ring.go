// Package ring implements the fixed-capacity FIFO of owned text lines used
// by every tool's inbox (spec §4.2). The event bus keeps its own
// channel-backed queue (internal/bus).
package ring

import (
	"strings"

	"github.com/nullbound/toolkernel/internal/kernelerr"
)

// Policy selects the behavior applied when Push is called on a full Ring.
type Policy int

const (
	// DropOldest evicts the front line to make room for the new one.
	DropOldest Policy = iota
	// DropNewest discards the incoming line, keeping the buffer unchanged.
	DropNewest
	// Block leaves the buffer unchanged and reports Full to the caller,
	// which must apply backpressure; the kernel never truly blocks on this.
	Block
)

// PushResult is the outcome of a single Push call.
type PushResult int

const (
	Ok PushResult = iota
	Dropped
	Full
)

// Ring is a fixed-capacity FIFO of strings with a pluggable overflow
// policy and lifetime delivery/drop counters.
type Ring struct {
	lines    []string
	cap      int
	policy   Policy
	dropped  uint64
	delivered uint64
}

// New creates a Ring with the given capacity and overflow policy.
// Capacity must be at least 1.
func New(capacity int, policy Policy) *Ring {
	if capacity < 1 {
		capacity = 1
	}
	return &Ring{
		lines:  make([]string, 0, capacity),
		cap:    capacity,
		policy: policy,
	}
}

// Push appends line, applying the overflow policy if the ring is full.
func (r *Ring) Push(line string) PushResult {
	if len(r.lines) < r.cap {
		r.lines = append(r.lines, line)
		return Ok
	}

	switch r.policy {
	case DropOldest:
		r.lines = append(r.lines[1:], line)
		r.dropped++
		return Ok
	case DropNewest:
		r.dropped++
		return Dropped
	default: // Block
		return Full
	}
}

// PeekFront returns the front line without removing it, or ("", false) if
// empty. Separated from PopFront so a caller (the supervisor's inbox
// flush) can retry a partial or would-block write without losing the line.
func (r *Ring) PeekFront() (string, bool) {
	if len(r.lines) == 0 {
		return "", false
	}
	return r.lines[0], true
}

// PopFront removes the front line, incrementing the delivered counter. It
// is a no-op on an empty ring.
func (r *Ring) PopFront() {
	if len(r.lines) == 0 {
		return
	}
	r.lines = r.lines[1:]
	r.delivered++
}

// Count returns the number of lines currently buffered.
func (r *Ring) Count() int { return len(r.lines) }

// Capacity returns the ring's fixed capacity.
func (r *Ring) Capacity() int { return r.cap }

// Clear discards all buffered lines without affecting lifetime counters.
func (r *Ring) Clear() { r.lines = r.lines[:0] }

// Dropped returns the lifetime count of lines dropped due to overflow.
func (r *Ring) Dropped() uint64 { return r.dropped }

// Delivered returns the lifetime count of lines popped by a consumer.
func (r *Ring) Delivered() uint64 { return r.delivered }

// Snapshot returns a copy of the currently buffered lines in FIFO order,
// without mutating the ring. The control surface's status verb reports
// counters only; Snapshot's callers are the tests.
func (r *Ring) Snapshot() []string {
	out := make([]string, len(r.lines))
	copy(out, r.lines)
	return out
}

// PolicyFromString maps a config string ("DropOldest", "DropNewest",
// "Block", case-insensitively) to a Policy.
func PolicyFromString(s string) (Policy, error) {
	switch strings.ToLower(s) {
	case "", "dropoldest", "drop_oldest":
		return DropOldest, nil
	case "dropnewest", "drop_newest":
		return DropNewest, nil
	case "block":
		return Block, nil
	default:
		return DropOldest, kernelerr.InvalidArg("unknown queue policy %q", s)
	}
}
