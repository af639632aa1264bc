package bus

import (
	"testing"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"

	"github.com/nullbound/toolkernel/internal/registry"
	"github.com/nullbound/toolkernel/internal/ring"
)

type fakeStarter struct {
	started []*registry.Tool
}

func (f *fakeStarter) RequestStart(tool *registry.Tool) {
	f.started = append(f.started, tool)
}

func TestPublishRejectsEmptyTypeOrSender(t *testing.T) {
	b := New(4)
	require.Error(t, b.Publish("", "sender", "data"))
	require.Error(t, b.Publish("TYPE", "", "data"))
}

func TestPublishReturnsQueueFullWhenSaturated(t *testing.T) {
	b := New(1)
	require.NoError(t, b.Publish("T", "s", "1"))
	err := b.Publish("T", "s", "2")
	require.Error(t, err)
}

func TestFanOutDeliversToMatchingSubscribersOnly(t *testing.T) {
	reg := registry.New(10)
	sub, err := reg.Register("echo", registry.Config{Command: "true", InboxCapacity: 10})
	require.NoError(t, err)
	require.NoError(t, sub.Subscribe("PING"))

	other, err := reg.Register("other", registry.Config{Command: "true", InboxCapacity: 10})
	require.NoError(t, err)
	require.NoError(t, other.Subscribe("PONG"))

	b := New(10)
	require.NoError(t, b.Publish("PING", "gen", "p1"))
	b.ProcessQueue(reg, nil)

	assert.Equal(t, 1, sub.Inbox.Count())
	assert.Equal(t, 0, other.Inbox.Count())

	line, ok := sub.Inbox.PeekFront()
	require.True(t, ok)
	assert.Equal(t, "PING|gen|p1\n", line)
}

func TestFanOutWildcardMatchesAllPublishers(t *testing.T) {
	reg := registry.New(10)
	logger, err := reg.Register("L", registry.Config{Command: "true", InboxCapacity: 10})
	require.NoError(t, err)
	require.NoError(t, logger.Subscribe("*"))

	b := New(10)
	require.NoError(t, b.Publish("X", "A", "1"))
	require.NoError(t, b.Publish("Y", "B", "2"))
	b.ProcessQueue(reg, nil)

	assert.Equal(t, 2, logger.Inbox.Count())
}

func TestFanOutPreservesPerPublisherOrder(t *testing.T) {
	reg := registry.New(10)
	logger, err := reg.Register("L", registry.Config{Command: "true", InboxCapacity: 10})
	require.NoError(t, err)
	require.NoError(t, logger.Subscribe("*"))

	b := New(10)
	require.NoError(t, b.Publish("X", "A", "1"))
	require.NoError(t, b.Publish("X", "A", "2"))
	require.NoError(t, b.Publish("X", "A", "3"))
	b.ProcessQueue(reg, nil)

	snap := logger.Inbox.Snapshot()
	require.Len(t, snap, 3)
	assert.Equal(t, []string{"X|A|1\n", "X|A|2\n", "X|A|3\n"}, snap)
}

func TestFanOutTriggersOnDemandStart(t *testing.T) {
	reg := registry.New(10)
	tool, err := reg.Register("ondemand", registry.Config{
		Command:       "true",
		RestartPolicy: registry.OnDemand,
		InboxCapacity: 10,
		InboxPolicy:   ring.DropOldest,
	})
	require.NoError(t, err)
	require.NoError(t, tool.Subscribe("WAKE"))

	starter := &fakeStarter{}
	b := New(10)
	require.NoError(t, b.Publish("WAKE", "x", ""))
	b.ProcessQueue(reg, starter)

	assert.Equal(t, registry.Starting, tool.State)
	require.Len(t, starter.started, 1)
	assert.Equal(t, "ondemand", starter.started[0].Name)
	assert.Equal(t, 1, tool.Inbox.Count(), "message stays queued until tool comes up")
}
