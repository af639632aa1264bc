// Package tuning defines the coordinated timing and sizing constants used
// across the kernel's cooperative scheduler, queues, and restart policy.
//
// These values interact: the loop cadence bounds how quickly a crashed tool
// is noticed, the backoff schedule bounds how fast it is retried, and the
// per-tool byte budget bounds how long a single iteration can take when a
// child is noisy. Changing one without considering the others can turn a
// single slow tool into a stall for every other tool sharing the loop.
package tuning

import "time"

const (
	// LoopCadence is the sleep between supervisor loop iterations (spec
	// suggests 50-100ms; we sit in the middle of that band).
	LoopCadence = 75 * time.Millisecond

	// PerToolByteBudget bounds how many bytes of stdout/stderr a single
	// iteration will read from one tool before moving to the next.
	PerToolByteBudget = 64 * 1024

	// MaxLineBytes is the absolute cap on a single reassembled line; content
	// beyond this is discarded with a warning rather than grown unbounded.
	MaxLineBytes = 8 * 1024

	// RestartBackoffBase and RestartBackoffCap bound the exponential backoff
	// applied between crash-restart attempts.
	RestartBackoffBase = 1 * time.Second
	RestartBackoffCap  = 60 * time.Second

	// StopGraceWindow is how long Stop waits for graceful exit before
	// force-terminating.
	StopGraceWindow = 1 * time.Second

	// ReapPollInterval bounds the Reap wait the health sweep performs on a
	// child it has already found not alive.
	ReapPollInterval = 20 * time.Millisecond

	// DefaultBusCapacity and DefaultInboxCapacity are the suggested FIFO
	// sizes from the spec; config may override the inbox size per tool.
	DefaultBusCapacity   = 1024
	DefaultInboxCapacity = 100

	// MaxTools and MaxSubscriptionsPerTool bound registry and subscription
	// set sizes.
	MaxTools                = 100
	MaxSubscriptionsPerTool = 50

	// MaxEventTypeBytes, MaxSenderBytes and MaxEventDataBytes are the wire
	// format's field limits.
	MaxEventTypeBytes = 64
	MaxSenderBytes    = 64
	MaxEventDataBytes = 4096
)
