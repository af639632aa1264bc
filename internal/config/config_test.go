package config

import (
	"os"
	"path/filepath"
	"strings"
	"testing"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"

	"github.com/nullbound/toolkernel/internal/registry"
	"github.com/nullbound/toolkernel/internal/ring"
)

const sample = `
# sample config
[core]
log_level = debug
max_tools = 50
message_queue_size = 2048
control_port = 9090

[tool:gen]
command = /usr/bin/gen --mode ping
description = generates pings
autostart = true
restart_policy = always

[tool:echo]
command = /usr/bin/echo-tool
subscribe_to = PING, PONG
max_queue_size = 3
queue_policy = DropOldest
restart_on_crash = true
max_restarts = 2
`

func TestParseSampleConfig(t *testing.T) {
	cfg, err := Parse(strings.NewReader(sample))
	require.NoError(t, err)

	assert.Equal(t, LogDebug, cfg.Core.LogLevel)
	assert.Equal(t, 50, cfg.Core.MaxTools)
	assert.Equal(t, 2048, cfg.Core.MessageQueueSize)
	assert.Equal(t, 9090, cfg.Core.ControlPort)

	require.Len(t, cfg.Tools, 2)
	assert.Equal(t, "gen", cfg.Tools[0].Name)
	assert.True(t, cfg.Tools[0].Autostart)
	assert.Equal(t, registry.Always, cfg.Tools[0].RestartPolicy)

	echo := cfg.Tools[1]
	assert.Equal(t, []string{"PING", "PONG"}, echo.SubscribeTo)
	assert.Equal(t, 3, echo.MaxQueueSize)
	assert.Equal(t, ring.DropOldest, echo.QueuePolicy)
	assert.True(t, echo.RestartOnCrash)
	assert.Equal(t, 2, echo.MaxRestarts)
}

func TestParseRejectsKeyOutsideSection(t *testing.T) {
	_, err := Parse(strings.NewReader("command = x\n"))
	require.Error(t, err)
}

func TestParseRejectsUnknownSection(t *testing.T) {
	_, err := Parse(strings.NewReader("[bogus]\nfoo = bar\n"))
	require.Error(t, err)
}

func TestParseRejectsDuplicateToolBlocks(t *testing.T) {
	_, err := Parse(strings.NewReader("[tool:a]\ncommand = x\n[tool:a]\ncommand = y\n"))
	require.Error(t, err)
}

func TestParseRequiresCommand(t *testing.T) {
	_, err := Parse(strings.NewReader("[tool:a]\ndescription = no command\n"))
	require.Error(t, err)
}

func TestLoadValidatesLogFileDirectory(t *testing.T) {
	dir := t.TempDir()
	path := filepath.Join(dir, "toolkernel.conf")
	content := "[core]\nlog_file = " + filepath.Join(dir, "does", "not", "exist", "t.log") + "\n"
	require.NoError(t, os.WriteFile(path, []byte(content), 0o644))

	_, err := Load(path)
	require.Error(t, err)
}

func TestLoadAcceptsExistingLogDirectory(t *testing.T) {
	dir := t.TempDir()
	path := filepath.Join(dir, "toolkernel.conf")
	content := "[core]\nlog_file = " + filepath.Join(dir, "t.log") + "\n"
	require.NoError(t, os.WriteFile(path, []byte(content), 0o644))

	cfg, err := Load(path)
	require.NoError(t, err)
	assert.Equal(t, filepath.Join(dir, "t.log"), cfg.Core.LogFile)
}
