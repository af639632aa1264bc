package control

import (
	"fmt"
	"strings"
)

// ParseLine implements the control-line grammar of spec §6: case-insensitive
// first token, space-separated, exactly the verbs in §4.7.
func ParseLine(line string) (Verb, string, error) {
	fields := strings.Fields(line)
	if len(fields) == 0 {
		return 0, "", fmt.Errorf("empty command")
	}
	verb := strings.ToLower(fields[0])
	var name string
	if len(fields) > 1 {
		name = fields[1]
	}

	switch verb {
	case "start":
		return VerbStart, name, requireName(name, verb)
	case "stop":
		return VerbStop, name, requireName(name, verb)
	case "restart":
		return VerbRestart, name, requireName(name, verb)
	case "status":
		return VerbStatus, name, requireName(name, verb)
	case "exists":
		return VerbExists, name, requireName(name, verb)
	case "list":
		return VerbList, "", nil
	case "shutdown":
		return VerbShutdown, "", nil
	case "uptime":
		return VerbUptime, "", nil
	case "version":
		return VerbVersion, "", nil
	case "count":
		return VerbCount, "", nil
	default:
		return 0, "", fmt.Errorf("unknown verb %q", fields[0])
	}
}

func requireName(name, verb string) error {
	if name == "" {
		return fmt.Errorf("%s requires a tool name", verb)
	}
	return nil
}

// FormatResult renders a Result as the one-line-or-table human text of
// spec §6: the first word is "Success:", "Error:", or a table header.
func FormatResult(verb Verb, r Result) string {
	if r.Err != nil {
		return "Error: " + r.Err.Error()
	}

	switch verb {
	case VerbStatus:
		return "Success: " + formatToolInfo(r.Info)
	case VerbList:
		var b strings.Builder
		b.WriteString("Name\tState\tPid\tSubs\n")
		for _, info := range r.Infos {
			fmt.Fprintf(&b, "%s\t%s\t%d\t%d\n", info.Name, info.State, info.Pid, info.SubscriptionCount)
		}
		return b.String()
	case VerbUptime:
		return fmt.Sprintf("Success: %d", int64(r.Uptime.Seconds()))
	case VerbVersion:
		return "Success: " + r.Version
	case VerbExists:
		return fmt.Sprintf("Success: %t", r.Exists)
	case VerbCount:
		return fmt.Sprintf("Success: %d", r.Count)
	default:
		if r.Message != "" {
			return "Success: " + r.Message
		}
		return "Success"
	}
}

func formatToolInfo(info ToolInfo) string {
	return fmt.Sprintf("%s state=%s pid=%d command=%q autostart=%t restart_on_crash=%t max_restarts=%d restart_count=%d events_sent=%d events_received=%d subscriptions=%d",
		info.Name, info.State, info.Pid, info.Command, info.Autostart, info.RestartOnCrash,
		info.MaxRestarts, info.RestartCount, info.EventsSent, info.EventsReceived, info.SubscriptionCount)
}
