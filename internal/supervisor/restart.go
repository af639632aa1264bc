package supervisor

import (
	"time"

	"github.com/containerd/log"

	"github.com/nullbound/toolkernel/internal/registry"
	"github.com/nullbound/toolkernel/internal/tuning"
)

// stepHealthSweep is step 4: probe every Running tool's liveness (spec
// §4.6 step 4). A dead child is reaped, its endpoints closed, and its
// state set to Crashed with a scheduled earliest-retry time.
func (k *Kernel) stepHealthSweep() {
	for _, tool := range k.Registry.Iterate() {
		if tool.State != registry.Running {
			continue
		}
		if tool.Child.IsAlive() {
			continue
		}
		// Already exited; this reaps it without the loop blocking, since
		// the exit channel is expected to already be signaled.
		tool.Child.Reap(tuning.ReapPollInterval)
		k.markCrashed(tool)
	}
}

// stepRestartPolicy is step 5: for every Crashed tool configured to
// restart on crash, honor its backoff window and attempt count (spec
// §4.6 step 5).
func (k *Kernel) stepRestartPolicy() {
	now := time.Now()
	for _, tool := range k.Registry.Iterate() {
		if tool.State != registry.Crashed {
			continue
		}
		if !tool.Config.RestartOnCrash {
			continue
		}
		if tool.RestartCount >= tool.Config.MaxRestarts {
			tool.State = registry.Error
			log.L.WithField("tool", tool.Name).Warn("restart attempts exhausted, tool is in Error state")
			continue
		}
		if now.Before(tool.NextRestartAt) {
			continue
		}
		tool.RestartCount++
		if !tool.Config.PreserveInboxOnRestart {
			tool.Inbox.Clear()
		}
		if err := k.startLocked(tool); err != nil {
			log.L.WithField("tool", tool.Name).WithError(err).Warn("crash-restart spawn failed")
		}
	}
}

// backoffDelay returns the delay before restart attempt number n
// (1-indexed), exponential from tuning.RestartBackoffBase and capped at
// tuning.RestartBackoffCap.
func backoffDelay(n int) time.Duration {
	if n < 1 {
		n = 1
	}
	d := tuning.RestartBackoffBase
	for i := 1; i < n; i++ {
		d *= 2
		if d >= tuning.RestartBackoffCap {
			return tuning.RestartBackoffCap
		}
	}
	return d
}
