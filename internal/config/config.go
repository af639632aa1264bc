// Package config parses and validates the kernel's keyed text
// configuration surface: a [core] block and one [tool:NAME] block per
// tool (spec §6). The format and the path-canonicalizing validation style
// follow the teacher's internal/config package, adapted from qemubox's
// JSON schema to the spec's INI-like block format (no ecosystem INI
// library appears anywhere in the retrieved corpus; see DESIGN.md).
package config

import (
	"bufio"
	"fmt"
	"io"
	"os"
	"path/filepath"
	"strconv"
	"strings"
	"unicode/utf8"

	"github.com/nullbound/toolkernel/internal/kernelerr"
	"github.com/nullbound/toolkernel/internal/registry"
	"github.com/nullbound/toolkernel/internal/ring"
)

// LogLevel mirrors the TRACE..FATAL threshold named in spec §6.
type LogLevel string

const (
	LogTrace LogLevel = "TRACE"
	LogDebug LogLevel = "DEBUG"
	LogInfo  LogLevel = "INFO"
	LogWarn  LogLevel = "WARN"
	LogError LogLevel = "ERROR"
	LogFatal LogLevel = "FATAL"
)

// Core is the [core] block.
type Core struct {
	LogFile          string
	LogLevel         LogLevel
	PidFile          string
	MaxTools         int
	MessageQueueSize int
	EnableDebug      bool
	ControlPort      int // 0 means absent: the file-pair transport becomes primary.
}

// Tool is one [tool:NAME] block.
type Tool struct {
	Name                   string
	Command                string
	Description            string
	Autostart              bool
	RestartOnCrash         bool
	MaxRestarts            int
	RestartPolicy          registry.RestartPolicy
	SubscribeTo            []string
	MaxQueueSize           int
	QueuePolicy            ring.Policy
	PreserveInboxOnRestart bool
}

// Config is a fully parsed and validated configuration file.
type Config struct {
	Core  Core
	Tools []Tool
}

// Load reads and parses the configuration file at path, then validates
// it.
func Load(path string) (*Config, error) {
	f, err := os.Open(path)
	if err != nil {
		return nil, kernelerr.InvalidArg("open config %q: %v", path, err)
	}
	defer f.Close()

	cfg, err := Parse(f)
	if err != nil {
		return nil, err
	}
	if err := cfg.Validate(); err != nil {
		return nil, err
	}
	return cfg, nil
}

// rawSection is a parsed but unvalidated [section] block of key=value
// pairs in file order.
type rawSection struct {
	name string // "" for core, tool name for "tool:NAME"
	keys []rawKV
}

type rawKV struct {
	key, value string
}

// Parse reads the keyed text format from r without touching the
// filesystem; Load wraps this with file I/O and validation.
func Parse(r io.Reader) (*Config, error) {
	sections, err := scanSections(r)
	if err != nil {
		return nil, err
	}

	cfg := &Config{
		Core: Core{
			LogLevel:         LogInfo,
			MaxTools:         100,
			MessageQueueSize: 1024,
		},
	}

	seenTools := map[string]bool{}
	for _, sec := range sections {
		if sec.name == "" {
			if err := applyCore(&cfg.Core, sec.keys); err != nil {
				return nil, err
			}
			continue
		}
		if seenTools[sec.name] {
			return nil, kernelerr.InvalidArg("duplicate [tool:%s] block", sec.name)
		}
		seenTools[sec.name] = true

		tool, err := parseTool(sec.name, sec.keys)
		if err != nil {
			return nil, err
		}
		cfg.Tools = append(cfg.Tools, tool)
	}
	return cfg, nil
}

func scanSections(r io.Reader) ([]rawSection, error) {
	var sections []rawSection
	var cur *rawSection

	scanner := bufio.NewScanner(r)
	lineNo := 0
	for scanner.Scan() {
		lineNo++
		line := strings.TrimSpace(scanner.Text())
		if line == "" || strings.HasPrefix(line, "#") || strings.HasPrefix(line, ";") {
			continue
		}

		if strings.HasPrefix(line, "[") {
			if !strings.HasSuffix(line, "]") {
				return nil, kernelerr.InvalidArg("line %d: unterminated section header %q", lineNo, line)
			}
			header := strings.TrimSuffix(strings.TrimPrefix(line, "["), "]")
			name, err := sectionName(header, lineNo)
			if err != nil {
				return nil, err
			}
			sections = append(sections, rawSection{name: name})
			cur = &sections[len(sections)-1]
			continue
		}

		if cur == nil {
			return nil, kernelerr.InvalidArg("line %d: key outside of any section", lineNo)
		}

		eq := strings.IndexByte(line, '=')
		if eq < 0 {
			return nil, kernelerr.InvalidArg("line %d: expected key=value, got %q", lineNo, line)
		}
		key := strings.TrimSpace(line[:eq])
		value := strings.TrimSpace(line[eq+1:])
		cur.keys = append(cur.keys, rawKV{key: key, value: value})
	}
	if err := scanner.Err(); err != nil {
		return nil, kernelerr.InvalidArg("reading config: %v", err)
	}
	return sections, nil
}

func sectionName(header string, lineNo int) (string, error) {
	if header == "core" {
		return "", nil
	}
	if strings.HasPrefix(header, "tool:") {
		name := strings.TrimPrefix(header, "tool:")
		if name == "" {
			return "", kernelerr.InvalidArg("line %d: [tool:] requires a name", lineNo)
		}
		return name, nil
	}
	return "", kernelerr.InvalidArg("line %d: unknown section [%s]", lineNo, header)
}

func applyCore(c *Core, keys []rawKV) error {
	for _, kv := range keys {
		switch kv.key {
		case "log_file":
			c.LogFile = kv.value
		case "log_level":
			lvl := LogLevel(strings.ToUpper(kv.value))
			switch lvl {
			case LogTrace, LogDebug, LogInfo, LogWarn, LogError, LogFatal:
				c.LogLevel = lvl
			default:
				return kernelerr.InvalidArg("core.log_level: unrecognized level %q", kv.value)
			}
		case "pid_file":
			c.PidFile = kv.value
		case "max_tools":
			n, err := strconv.Atoi(kv.value)
			if err != nil {
				return kernelerr.InvalidArg("core.max_tools: %v", err)
			}
			c.MaxTools = n
		case "message_queue_size":
			n, err := strconv.Atoi(kv.value)
			if err != nil {
				return kernelerr.InvalidArg("core.message_queue_size: %v", err)
			}
			c.MessageQueueSize = n
		case "enable_debug":
			b, err := strconv.ParseBool(kv.value)
			if err != nil {
				return kernelerr.InvalidArg("core.enable_debug: %v", err)
			}
			c.EnableDebug = b
		case "control_port":
			n, err := strconv.Atoi(kv.value)
			if err != nil {
				return kernelerr.InvalidArg("core.control_port: %v", err)
			}
			c.ControlPort = n
		default:
			return kernelerr.InvalidArg("core: unknown key %q", kv.key)
		}
	}
	return nil
}

func parseTool(name string, keys []rawKV) (Tool, error) {
	t := Tool{
		Name:         name,
		MaxRestarts:  3,
		MaxQueueSize: 0, // 0 -> tuning default, applied by the registry
		QueuePolicy:  ring.DropOldest,
	}
	for _, kv := range keys {
		var err error
		switch kv.key {
		case "command":
			t.Command = kv.value
		case "description":
			t.Description = kv.value
		case "autostart":
			t.Autostart, err = strconv.ParseBool(kv.value)
		case "restart_on_crash":
			t.RestartOnCrash, err = strconv.ParseBool(kv.value)
		case "max_restarts":
			t.MaxRestarts, err = strconv.Atoi(kv.value)
		case "restart_policy":
			t.RestartPolicy, err = registry.RestartPolicyFromString(kv.value)
		case "subscribe_to":
			t.SubscribeTo = splitAndTrim(kv.value)
		case "max_queue_size":
			t.MaxQueueSize, err = strconv.Atoi(kv.value)
		case "queue_policy":
			t.QueuePolicy, err = ring.PolicyFromString(kv.value)
		case "preserve_inbox_on_restart":
			t.PreserveInboxOnRestart, err = strconv.ParseBool(kv.value)
		default:
			err = kernelerr.InvalidArg("tool:%s: unknown key %q", name, kv.key)
		}
		if err != nil {
			return Tool{}, fmt.Errorf("tool:%s.%s: %w", name, kv.key, err)
		}
	}
	if t.Command == "" {
		return Tool{}, kernelerr.InvalidArg("tool:%s: command is required", name)
	}
	return t, nil
}

func splitAndTrim(s string) []string {
	if s == "" {
		return nil
	}
	parts := strings.Split(s, ",")
	out := make([]string, 0, len(parts))
	for _, p := range parts {
		p = strings.TrimSpace(p)
		if p != "" {
			out = append(out, p)
		}
	}
	return out
}

// Validate checks cross-field and filesystem-facing constraints that
// Parse alone cannot: log/pid file directories must exist (resolved
// through symlinks, following the teacher's canonicalizePath pattern so
// error messages and logs show the real path), and tool names must be
// unique short UTF-8 identifiers.
func (c *Config) Validate() error {
	if c.Core.LogFile != "" {
		if err := validateParentWritable(c.Core.LogFile, "core.log_file"); err != nil {
			return err
		}
	}
	if c.Core.PidFile != "" {
		if err := validateParentWritable(c.Core.PidFile, "core.pid_file"); err != nil {
			return err
		}
	}
	if c.Core.MaxTools <= 0 {
		return kernelerr.InvalidArg("core.max_tools must be positive")
	}
	if c.Core.MessageQueueSize <= 0 {
		return kernelerr.InvalidArg("core.message_queue_size must be positive")
	}

	seen := map[string]bool{}
	for _, t := range c.Tools {
		if len(t.Name) > 64 {
			return kernelerr.InvalidArg("tool name %q exceeds 64 bytes", t.Name)
		}
		if !utf8.ValidString(t.Name) {
			return kernelerr.InvalidArg("tool name %q is not valid UTF-8", t.Name)
		}
		if seen[t.Name] {
			return kernelerr.InvalidArg("duplicate tool name %q", t.Name)
		}
		seen[t.Name] = true
	}
	return nil
}

// canonicalizePath resolves path (which may not yet exist) to an absolute,
// symlink-resolved form by walking up to the nearest existing ancestor.
func canonicalizePath(path string) (string, error) {
	abs, err := filepath.Abs(path)
	if err != nil {
		return "", err
	}
	if resolved, err := filepath.EvalSymlinks(abs); err == nil {
		return resolved, nil
	}

	parent, base := filepath.Split(abs)
	parent = filepath.Clean(parent)
	if parent == abs {
		return abs, nil
	}
	resolvedParent, err := canonicalizePath(parent)
	if err != nil {
		return "", err
	}
	return filepath.Join(resolvedParent, base), nil
}

func validateParentWritable(path, field string) error {
	canonical, err := canonicalizePath(filepath.Dir(path))
	if err != nil {
		return kernelerr.InvalidArg("%s: cannot resolve directory: %v", field, err)
	}
	info, err := os.Stat(canonical)
	if err != nil {
		return kernelerr.InvalidArg("%s: directory %q does not exist", field, canonical)
	}
	if !info.IsDir() {
		return kernelerr.InvalidArg("%s: %q is not a directory", field, canonical)
	}
	return nil
}
