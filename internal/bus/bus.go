// Package bus implements the kernel's bounded publish queue and the
// fan-out step that matches each event against every tool's subscriptions
// (spec §4.4).
package bus

import (
	"time"

	"github.com/containerd/log"

	"github.com/nullbound/toolkernel/internal/event"
	"github.com/nullbound/toolkernel/internal/kernelerr"
	"github.com/nullbound/toolkernel/internal/registry"
	"github.com/nullbound/toolkernel/internal/ring"
	"github.com/nullbound/toolkernel/internal/tuning"
)

// Bus is a fixed-capacity FIFO of owned events, drained by the supervisor
// loop in arrival order. A buffered Go channel gives us the queue and its
// non-blocking full/not-full check for free.
type Bus struct {
	queue chan event.Event
}

// New creates a Bus with the given capacity (0 uses the tuning default).
func New(capacity int) *Bus {
	if capacity <= 0 {
		capacity = tuning.DefaultBusCapacity
	}
	return &Bus{queue: make(chan event.Event, capacity)}
}

// Publish copies type/sender/data into a freshly owned Event and enqueues
// it. Never blocks: a full queue returns QueueFull and the publish is
// dropped (logged WARN by the caller's convention, see supervisor).
func (b *Bus) Publish(typ, sender, data string) error {
	e, err := event.New(typ, sender, data, time.Now())
	if err != nil {
		return err
	}
	select {
	case b.queue <- e:
		return nil
	default:
		return kernelerr.QueueFull("bus")
	}
}

// Len reports how many events are currently queued.
func (b *Bus) Len() int { return len(b.queue) }

// OnDemandStarter is implemented by the supervisor to start a tool the
// first time a matching event arrives for an OnDemand subscriber.
type OnDemandStarter interface {
	RequestStart(tool *registry.Tool)
}

// ProcessQueue drains the queue in FIFO order. For each event it iterates
// the registry in registration order and, for every tool whose
// subscription set matches the event's type, serializes the event and
// pushes it into that tool's inbox under the tool's overflow policy. An
// OnDemand tool that is Stopped and not already starting is asked to
// start; its matching message stays queued in its inbox until it comes
// up.
func (b *Bus) ProcessQueue(reg *registry.Registry, starter OnDemandStarter) {
	for {
		var e event.Event
		select {
		case e = <-b.queue:
		default:
			return
		}
		b.fanOut(e, reg, starter)
	}
}

func (b *Bus) fanOut(e event.Event, reg *registry.Registry, starter OnDemandStarter) {
	line := e.Serialize()
	for _, tool := range reg.Iterate() {
		if !tool.MatchesType(e.Type) {
			continue
		}

		if r := tool.Inbox.Push(line); r == ring.Dropped || r == ring.Full {
			log.L.WithField("tool", tool.Name).WithField("event_type", e.Type).
				Debug("event not enqueued to tool inbox (overflow policy)")
		}

		if tool.Config.RestartPolicy == registry.OnDemand &&
			tool.State == registry.Stopped {
			tool.State = registry.Starting
			if starter != nil {
				starter.RequestStart(tool)
			}
		}
	}
}
