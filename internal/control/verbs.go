package control

import (
	"time"

	"github.com/nullbound/toolkernel/internal/kernelerr"
)

// KernelOps is the supervisor-side surface Execute dispatches against. It
// is implemented by *supervisor.Kernel; keeping it here (rather than
// importing supervisor) lets every binding depend on control alone.
type KernelOps interface {
	StartTool(name string) error
	StopTool(name string) error
	RestartTool(name string) error
	ToolInfo(name string) (ToolInfo, bool)
	ListTools() []ToolInfo
	ToolExists(name string) bool
	ToolCount() int
	RequestShutdown()
	Uptime() time.Duration
	Version() string
}

// Execute runs cmd against ops and returns the Result. It never panics on
// a missing tool: NotFound is reported through Result.Err the same way
// every other kernel error is, per spec §7 ("operations at the control
// surface return the kind verbatim to the caller").
func Execute(cmd Command, ops KernelOps) Result {
	switch cmd.Verb {
	case VerbStart:
		if err := ops.StartTool(cmd.Name); err != nil {
			return Result{Err: err, Message: err.Error()}
		}
		return Result{OK: true, Message: "started " + cmd.Name}

	case VerbStop:
		if err := ops.StopTool(cmd.Name); err != nil {
			return Result{Err: err, Message: err.Error()}
		}
		return Result{OK: true, Message: "stopped " + cmd.Name}

	case VerbRestart:
		if err := ops.RestartTool(cmd.Name); err != nil {
			return Result{Err: err, Message: err.Error()}
		}
		return Result{OK: true, Message: "restarted " + cmd.Name}

	case VerbStatus:
		info, ok := ops.ToolInfo(cmd.Name)
		if !ok {
			err := kernelerr.NotFound(cmd.Name)
			return Result{Err: err, Message: "tool not found: " + cmd.Name}
		}
		return Result{OK: true, Info: info}

	case VerbList:
		return Result{OK: true, Infos: ops.ListTools()}

	case VerbShutdown:
		ops.RequestShutdown()
		return Result{OK: true, Message: "shutting down"}

	case VerbUptime:
		return Result{OK: true, Uptime: ops.Uptime()}

	case VerbVersion:
		return Result{OK: true, Version: ops.Version()}

	case VerbExists:
		return Result{OK: true, Exists: ops.ToolExists(cmd.Name)}

	case VerbCount:
		return Result{OK: true, Count: ops.ToolCount()}

	default:
		return Result{Err: kernelerr.InvalidArg("unknown verb %v", cmd.Verb), Message: "unknown verb"}
	}
}
