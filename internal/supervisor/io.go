package supervisor

import (
	"time"

	"github.com/containerd/log"

	"github.com/nullbound/toolkernel/internal/event"
	"github.com/nullbound/toolkernel/internal/registry"
	"github.com/nullbound/toolkernel/internal/tuning"
)

// stepEventFanOut is step 2: drain the bus completely, fanning each event
// out to every matching subscriber's inbox (spec §4.6 step 2, §4.4).
func (k *Kernel) stepEventFanOut() {
	k.Bus.ProcessQueue(k.Registry, k)
}

// stepIODrain is step 3: for every Running tool, read its stdout/stderr up
// to a byte budget and flush its inbox toward its stdin (spec §4.6 step 3).
func (k *Kernel) stepIODrain() {
	for _, tool := range k.Registry.Iterate() {
		if tool.State != registry.Running {
			continue
		}
		k.drainOutput(tool)
		if tool.State == registry.Running {
			k.flushInbox(tool)
		}
	}
}

func (k *Kernel) drainOutput(tool *registry.Tool) {
	buf := make([]byte, 4096)
	read := 0
	for read < tuning.PerToolByteBudget {
		n, closed, err := tool.Child.Stdout.ReadAvail(buf)
		if err != nil {
			k.crash(tool, "stdout read error", err)
			return
		}
		if n > 0 {
			read += n
			for _, line := range tool.StdoutAcc.Feed(buf[:n]) {
				k.handleStdoutLine(tool, line)
			}
		}
		if closed {
			for _, line := range tool.StdoutAcc.Close() {
				k.handleStdoutLine(tool, line)
			}
			break
		}
		if n == 0 {
			break
		}
	}

	read = 0
	for read < tuning.PerToolByteBudget {
		n, closed, err := tool.Child.Stderr.ReadAvail(buf)
		if err != nil {
			k.crash(tool, "stderr read error", err)
			return
		}
		if n > 0 {
			read += n
			for _, line := range tool.StderrAcc.Feed(buf[:n]) {
				log.L.WithField("tool", tool.Name).Info(line)
			}
		}
		if closed {
			for _, line := range tool.StderrAcc.Close() {
				log.L.WithField("tool", tool.Name).Info(line)
			}
			break
		}
		if n == 0 {
			break
		}
	}
}

// handleStdoutLine parses one reassembled stdout line as an event (spec
// §4.5, §6). A well-formed parse publishes it verbatim, sender untouched
// (Open Question 1). A malformed line is logged WARN and dropped.
func (k *Kernel) handleStdoutLine(tool *registry.Tool, line string) {
	e, err := event.Parse(line)
	if err != nil {
		log.L.WithField("tool", tool.Name).WithField("line", line).Warn("discarding malformed event line")
		return
	}
	if err := k.Bus.Publish(e.Type, e.Sender, e.Data); err != nil {
		log.L.WithField("tool", tool.Name).Warn("bus full, dropping published event")
		return
	}
	tool.EventsPublished++
}

// flushInbox repeatedly peeks the tool's inbox front line and writes it to
// the child's stdin, per spec §4.6 step 3's peek/write/pop discipline.
func (k *Kernel) flushInbox(tool *registry.Tool) {
	written := 0
	for written < tuning.PerToolByteBudget {
		if tool.PendingOut == "" {
			line, ok := tool.Inbox.PeekFront()
			if !ok {
				return
			}
			tool.PendingOut = line
		}

		n, wouldBlock, err := tool.Child.Stdin.WriteSome([]byte(tool.PendingOut))
		if err != nil {
			k.crash(tool, "stdin write error", err)
			return
		}
		if wouldBlock {
			// Bytes written before the deadline are already in the pipe;
			// keep only the unwritten remainder for the next iteration.
			tool.PendingOut = tool.PendingOut[n:]
			return
		}
		written += n
		if n >= len(tool.PendingOut) {
			tool.PendingOut = ""
			tool.Inbox.PopFront()
			continue
		}
		// Partial write: keep the unwritten remainder at the front for the
		// next iteration.
		tool.PendingOut = tool.PendingOut[n:]
		return
	}
}

func (k *Kernel) crash(tool *registry.Tool, reason string, err error) {
	log.L.WithField("tool", tool.Name).WithError(err).Warn(reason)
	k.markCrashed(tool)
}

func (k *Kernel) markCrashed(tool *registry.Tool) {
	if tool.Child != nil {
		tool.Child.Close()
		tool.Child = nil
	}
	tool.PendingOut = ""
	tool.State = registry.Crashed
	attempt := tool.RestartCount + 1
	tool.NextRestartAt = time.Now().Add(backoffDelay(attempt))
}

// RequestStart implements bus.OnDemandStarter: called synchronously from
// within stepEventFanOut, on the loop's own goroutine, so it may mutate
// kernel state directly.
func (k *Kernel) RequestStart(tool *registry.Tool) {
	if err := k.startLocked(tool); err != nil {
		log.L.WithField("tool", tool.Name).WithError(err).Warn("on-demand start failed")
	}
}
