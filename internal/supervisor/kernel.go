// Package supervisor implements C6, the single cooperative scheduler that
// owns every kernel-state mutation outside command submission (spec §4.6,
// §5), and satisfies control.KernelOps so the control surface's three
// bindings share one verb dispatch path.
package supervisor

import (
	"context"
	"time"

	"github.com/containerd/log"

	"github.com/nullbound/toolkernel/internal/bus"
	"github.com/nullbound/toolkernel/internal/config"
	"github.com/nullbound/toolkernel/internal/control"
	"github.com/nullbound/toolkernel/internal/kernelerr"
	"github.com/nullbound/toolkernel/internal/registry"
	"github.com/nullbound/toolkernel/internal/tuning"
)

// Version is reported by the "version" control verb.
const Version = "toolkernel/0.1.0"

// Kernel is the process-wide state of spec §3's "Kernel state": the
// registry, the bus, a running flag, the start-of-run timestamp, and the
// control-surface command queue every binding shares. The log level is
// not held here; cmd/toolkerneld sets it on the global logger.
type Kernel struct {
	Registry *registry.Registry
	Bus      *bus.Bus
	Queue    *control.Queue

	// FileBinding is polled once per iteration in step 1 when set (spec
	// §4.7's file-pair transport); nil when the loopback TCP transport is
	// primary (Open Question 2).
	FileBinding FilePoller

	cadence   time.Duration
	startedAt time.Time
	running   bool
}

// FilePoller is implemented by internal/control/filetransport.Transport.
// Defined here (rather than imported) so the supervisor package does not
// need to depend on a specific binding implementation.
type FilePoller interface {
	Poll(ops control.KernelOps)
}

// New creates a Kernel from a parsed, validated Config. It registers
// every [tool:NAME] block but does not spawn anything; call Bootstrap
// before Run to autostart tools (Run does not call it).
func New(cfg *config.Config) (*Kernel, error) {
	reg := registry.New(cfg.Core.MaxTools)
	b := bus.New(cfg.Core.MessageQueueSize)

	for _, tc := range cfg.Tools {
		rc := registry.Config{
			Command:                tc.Command,
			Description:            tc.Description,
			Autostart:              tc.Autostart,
			RestartOnCrash:         tc.RestartOnCrash,
			MaxRestarts:            tc.MaxRestarts,
			RestartPolicy:          tc.RestartPolicy,
			InboxCapacity:          tc.MaxQueueSize,
			InboxPolicy:            tc.QueuePolicy,
			PreserveInboxOnRestart: tc.PreserveInboxOnRestart,
		}
		tool, err := reg.Register(tc.Name, rc)
		if err != nil {
			return nil, err
		}
		for _, pattern := range tc.SubscribeTo {
			if err := tool.Subscribe(pattern); err != nil {
				return nil, err
			}
		}
	}

	return &Kernel{
		Registry: reg,
		Bus:      b,
		Queue:    control.NewQueue(64),
		cadence:  tuning.LoopCadence,
	}, nil
}

// Bootstrap spawns every tool configured with autostart=true. Spawn
// failures are logged and leave the tool in Error state (spec §7); they
// do not prevent the kernel from starting.
func (k *Kernel) Bootstrap() {
	for _, tool := range k.Registry.Iterate() {
		if tool.Config.Autostart {
			if err := k.startLocked(tool); err != nil {
				log.L.WithField("tool", tool.Name).WithError(err).Warn("autostart failed")
			}
		}
	}
}

// Run executes the supervisor loop until ctx is cancelled or Shutdown is
// requested. It performs spec §4.6's six numbered steps every iteration.
func (k *Kernel) Run(ctx context.Context) error {
	k.startedAt = time.Now()
	k.running = true
	defer func() { k.running = false }()

	for k.running {
		select {
		case <-ctx.Done():
			k.shutdownSync()
			return ctx.Err()
		default:
		}

		k.stepControlPoll()
		k.stepEventFanOut()
		k.stepIODrain()
		k.stepHealthSweep()
		k.stepRestartPolicy()

		if !k.running {
			break
		}
		select {
		case <-ctx.Done():
			k.shutdownSync()
			return ctx.Err()
		case <-time.After(k.cadence):
		}
	}
	return nil
}

// stepControlPoll is step 1: drain every pending command and execute it
// synchronously (spec §4.6 step 1, §5).
func (k *Kernel) stepControlPoll() {
	for _, cmd := range k.Queue.Drain() {
		r := control.Execute(cmd, k)
		if cmd.Reply != nil {
			cmd.Reply <- r
		}
	}
	if k.FileBinding != nil {
		k.FileBinding.Poll(k)
	}
}

var errNameRequired = kernelerr.InvalidArg("tool name must not be empty")
