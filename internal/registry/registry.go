// Package registry is the in-memory table of configured tools (spec §4.3):
// an exclusively-owning map keyed by name, mutated by Register/Unregister
// and by the supervisor loop's state transitions.
package registry

import (
	"strings"
	"time"

	"github.com/nullbound/toolkernel/internal/kernelerr"
	"github.com/nullbound/toolkernel/internal/platform"
	"github.com/nullbound/toolkernel/internal/reassemble"
	"github.com/nullbound/toolkernel/internal/ring"
	"github.com/nullbound/toolkernel/internal/tuning"
)

// State is a tool's lifecycle state (spec §3, §4.6 state machine).
type State int

const (
	Stopped State = iota
	Starting
	Running
	Stopping
	Crashed
	Error
)

func (s State) String() string {
	switch s {
	case Stopped:
		return "Stopped"
	case Starting:
		return "Starting"
	case Running:
		return "Running"
	case Stopping:
		return "Stopping"
	case Crashed:
		return "Crashed"
	case Error:
		return "Error"
	default:
		return "Unknown"
	}
}

// RestartPolicy controls whether and when a tool is (re)started.
type RestartPolicy int

const (
	Never RestartPolicy = iota
	Always
	OnDemand
)

func RestartPolicyFromString(s string) (RestartPolicy, error) {
	switch strings.ToLower(strings.TrimSpace(s)) {
	case "", "never":
		return Never, nil
	case "always":
		return Always, nil
	case "on_demand", "ondemand":
		return OnDemand, nil
	default:
		return Never, kernelerr.InvalidArg("unknown restart_policy %q", s)
	}
}

// Config is the subset of a tool's configuration supplied at Register
// time; the rest of the Tool record is runtime state owned by the
// registry and the supervisor loop.
type Config struct {
	Command                string
	Description            string
	Autostart              bool
	RestartOnCrash         bool
	MaxRestarts            int
	RestartPolicy          RestartPolicy
	InboxCapacity          int
	InboxPolicy            ring.Policy
	PreserveInboxOnRestart bool // resolves Open Question 3, see DESIGN.md
}

// Tool is the registry's owned record for one configured tool (spec §3).
type Tool struct {
	Name   string
	Config Config

	State State

	subscriptions []string
	Inbox         *ring.Ring

	Child      *platform.Child
	StdoutAcc  *reassemble.Accumulator
	StderrAcc  *reassemble.Accumulator

	// EventsPublished counts events parsed from this tool's stdout and
	// accepted by the bus, whatever their Sender field says. EventsDelivered
	// is not duplicated here; it is Inbox.Delivered().
	EventsPublished uint64
	RestartCount    int
	StartedAt       time.Time
	LastHeartbeat   time.Time

	// NextRestartAt is the earliest time the restart-policy step (spec
	// §4.6 step 5) may attempt another spawn of a Crashed tool; set when
	// the crash is detected so the backoff delay never blocks the loop.
	NextRestartAt time.Time

	// PendingOut holds the unwritten remainder of the inbox's front line
	// after a partial WriteSome to the child's stdin, so the next
	// iteration resumes mid-line instead of re-peeking a fresh one.
	PendingOut string
}

// Subscribe adds a subscription pattern ("*" or an exact event type),
// trimmed of surrounding whitespace and matched quote characters, bounded
// at tuning.MaxSubscriptionsPerTool.
func (t *Tool) Subscribe(pattern string) error {
	pattern = strings.Trim(strings.TrimSpace(pattern), `"'`)
	if pattern == "" {
		return kernelerr.InvalidArg("subscription pattern must not be empty")
	}
	if len(t.subscriptions) >= tuning.MaxSubscriptionsPerTool {
		return kernelerr.InvalidArg("tool %q already has %d subscriptions", t.Name, tuning.MaxSubscriptionsPerTool)
	}
	for _, p := range t.subscriptions {
		if p == pattern {
			return nil
		}
	}
	t.subscriptions = append(t.subscriptions, pattern)
	return nil
}

// Subscriptions returns the tool's subscription patterns.
func (t *Tool) Subscriptions() []string {
	out := make([]string, len(t.subscriptions))
	copy(out, t.subscriptions)
	return out
}

// MatchesType reports whether typ is selected by any of the tool's
// subscription patterns: "*" matches every type, including the literal
// type "*".
func (t *Tool) MatchesType(typ string) bool {
	for _, p := range t.subscriptions {
		if p == "*" || p == typ {
			return true
		}
	}
	return false
}

// Registry is the exclusive owner of every registered Tool.
type Registry struct {
	tools   map[string]*Tool
	order   []string // registration order, for deterministic iteration/fan-out
	maxSize int
}

// New creates an empty Registry bounded at maxSize tools (0 uses the
// tuning default).
func New(maxSize int) *Registry {
	if maxSize <= 0 {
		maxSize = tuning.MaxTools
	}
	return &Registry{tools: make(map[string]*Tool), maxSize: maxSize}
}

// Register creates a new Tool record. Duplicate names are rejected.
func (r *Registry) Register(name string, cfg Config) (*Tool, error) {
	if name == "" {
		return nil, kernelerr.InvalidArg("tool name must not be empty")
	}
	if _, ok := r.tools[name]; ok {
		return nil, kernelerr.AlreadyExists(name)
	}
	if len(r.tools) >= r.maxSize {
		return nil, kernelerr.InvalidArg("registry is at its maximum of %d tools", r.maxSize)
	}
	if cfg.InboxCapacity <= 0 {
		cfg.InboxCapacity = tuning.DefaultInboxCapacity
	}

	t := &Tool{
		Name:   name,
		Config: cfg,
		State:  Stopped,
		Inbox:  ring.New(cfg.InboxCapacity, cfg.InboxPolicy),
	}
	r.tools[name] = t
	r.order = append(r.order, name)
	return t, nil
}

// Unregister removes a tool. The caller is responsible for terminating
// any still-running child before calling this; Unregister does not touch
// the tool's child or pipes.
func (r *Registry) Unregister(name string) error {
	if _, ok := r.tools[name]; !ok {
		return kernelerr.NotFound(name)
	}
	delete(r.tools, name)
	for i, n := range r.order {
		if n == name {
			r.order = append(r.order[:i], r.order[i+1:]...)
			break
		}
	}
	return nil
}

// Find looks up a tool by name.
func (r *Registry) Find(name string) (*Tool, bool) {
	t, ok := r.tools[name]
	return t, ok
}

// Iterate returns tools in registration order. The returned slice is a
// snapshot; it is safe to iterate while the registry is later mutated,
// unlike the source's pointer-cursor get_first/get_next (spec §9).
func (r *Registry) Iterate() []*Tool {
	out := make([]*Tool, 0, len(r.order))
	for _, name := range r.order {
		out = append(out, r.tools[name])
	}
	return out
}

// Count returns the number of registered tools.
func (r *Registry) Count() int { return len(r.tools) }
