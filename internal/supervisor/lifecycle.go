package supervisor

import (
	"time"

	"github.com/nullbound/toolkernel/internal/control"
	"github.com/nullbound/toolkernel/internal/kernelerr"
	"github.com/nullbound/toolkernel/internal/platform"
	"github.com/nullbound/toolkernel/internal/reassemble"
	"github.com/nullbound/toolkernel/internal/registry"
	"github.com/nullbound/toolkernel/internal/tuning"
)

// StartTool implements the "start" verb. Idempotent with respect to
// terminal state: starting an already-Running (or already-Starting) tool
// succeeds without re-spawning (spec §4.7).
func (k *Kernel) StartTool(name string) error {
	if name == "" {
		return errNameRequired
	}
	tool, ok := k.Registry.Find(name)
	if !ok {
		return kernelerr.NotFound(name)
	}
	if tool.State == registry.Running || tool.State == registry.Starting {
		return nil
	}
	return k.startLocked(tool)
}

// StopTool implements the "stop" verb. Idempotent: stopping an
// already-Stopped tool succeeds without signaling anything (spec §4.7).
func (k *Kernel) StopTool(name string) error {
	if name == "" {
		return errNameRequired
	}
	tool, ok := k.Registry.Find(name)
	if !ok {
		return kernelerr.NotFound(name)
	}
	if tool.State == registry.Stopped {
		return nil
	}
	k.stopSync(tool)
	return nil
}

// RestartTool implements the "restart" verb: stop (if needed) then start.
func (k *Kernel) RestartTool(name string) error {
	if err := k.StopTool(name); err != nil {
		return err
	}
	return k.StartTool(name)
}

// startLocked spawns tool's child and transitions it to Running, or to
// Error on a failed spawn (spec §4.6 state machine, §7). Called only from
// the loop's own goroutine.
func (k *Kernel) startLocked(tool *registry.Tool) error {
	child, err := platform.Spawn(tool.Config.Command)
	if err != nil {
		tool.State = registry.Error
		return err
	}
	tool.Child = child
	tool.StdoutAcc = reassemble.New(tool.Name)
	tool.StderrAcc = reassemble.New(tool.Name)
	tool.PendingOut = ""
	tool.State = registry.Running
	tool.StartedAt = time.Now()
	return nil
}

// stopSync requests graceful termination, waits up to the grace window,
// force-terminates if needed, then closes endpoints unconditionally (spec
// §5 "Cancellation and timeouts"). The Reap waits are the one suspension
// point spec §5 permits outside the loop's cadence sleep.
func (k *Kernel) stopSync(tool *registry.Tool) {
	if tool.Child == nil {
		tool.State = registry.Stopped
		return
	}
	tool.State = registry.Stopping
	tool.Child.Terminate(false)
	if tool.Child.Reap(tuning.StopGraceWindow) == platform.TimedOut {
		tool.Child.Terminate(true)
		tool.Child.Reap(tuning.StopGraceWindow)
	}
	tool.Child.Close()
	tool.Child = nil
	tool.PendingOut = ""
	if !tool.Config.PreserveInboxOnRestart {
		tool.Inbox.Clear()
	}
	tool.State = registry.Stopped
}

// shutdownSync implements spec §5's shutdown: issue terminate to every
// Running tool first, then perform a single bounded reap sweep, rather
// than serially stopping one tool at a time.
func (k *Kernel) shutdownSync() {
	var running []*registry.Tool
	for _, tool := range k.Registry.Iterate() {
		if tool.State == registry.Running {
			tool.State = registry.Stopping
			tool.Child.Terminate(false)
			running = append(running, tool)
		}
	}
	for _, tool := range running {
		if tool.Child.Reap(tuning.StopGraceWindow) == platform.TimedOut {
			tool.Child.Terminate(true)
			tool.Child.Reap(tuning.StopGraceWindow)
		}
		tool.Child.Close()
		tool.Child = nil
		tool.PendingOut = ""
		if !tool.Config.PreserveInboxOnRestart {
			tool.Inbox.Clear()
		}
		tool.State = registry.Stopped
	}
	k.running = false
}

// RequestShutdown implements the "shutdown" verb.
func (k *Kernel) RequestShutdown() {
	k.shutdownSync()
}

// ToolInfo implements the "status" verb's projection (spec §4.7).
func (k *Kernel) ToolInfo(name string) (control.ToolInfo, bool) {
	tool, ok := k.Registry.Find(name)
	if !ok {
		return control.ToolInfo{}, false
	}
	return toToolInfo(tool), true
}

// ListTools implements the "list" verb, in registration order.
func (k *Kernel) ListTools() []control.ToolInfo {
	tools := k.Registry.Iterate()
	out := make([]control.ToolInfo, 0, len(tools))
	for _, tool := range tools {
		out = append(out, toToolInfo(tool))
	}
	return out
}

// ToolExists implements the "exists" verb.
func (k *Kernel) ToolExists(name string) bool {
	_, ok := k.Registry.Find(name)
	return ok
}

// ToolCount implements the "count" verb.
func (k *Kernel) ToolCount() int { return k.Registry.Count() }

// Uptime implements the "uptime" verb.
func (k *Kernel) Uptime() time.Duration {
	if k.startedAt.IsZero() {
		return 0
	}
	return time.Since(k.startedAt)
}

// Version implements the "version" verb.
func (k *Kernel) Version() string { return Version }

func toToolInfo(tool *registry.Tool) control.ToolInfo {
	pid := 0
	if tool.Child != nil {
		pid = tool.Child.Pid()
	}
	return control.ToolInfo{
		Name:              tool.Name,
		Command:           tool.Config.Command,
		Description:       tool.Config.Description,
		State:             tool.State.String(),
		Pid:               pid,
		Autostart:         tool.Config.Autostart,
		RestartOnCrash:    tool.Config.RestartOnCrash,
		MaxRestarts:       tool.Config.MaxRestarts,
		RestartCount:      tool.RestartCount,
		EventsSent:        tool.EventsPublished,
		EventsReceived:    tool.Inbox.Delivered(),
		SubscriptionCount: len(tool.Subscriptions()),
	}
}
