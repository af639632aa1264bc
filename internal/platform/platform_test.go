package platform

import (
	"testing"
	"time"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
)

func TestSpawnEchoAndReap(t *testing.T) {
	c, err := Spawn("echo hello")
	require.NoError(t, err)
	defer c.Close()

	var got []byte
	buf := make([]byte, 256)
	deadline := time.Now().Add(2 * time.Second)
	for time.Now().Before(deadline) {
		n, closed, err := c.Stdout.ReadAvail(buf)
		require.NoError(t, err)
		got = append(got, buf[:n]...)
		if closed {
			break
		}
	}
	assert.Equal(t, "hello\n", string(got))

	outcome := c.Reap(2 * time.Second)
	assert.Equal(t, Exited, outcome)
	assert.Equal(t, 0, c.ExitStatus())
}

func TestSpawnNonZeroExit(t *testing.T) {
	c, err := Spawn("exit 7")
	require.NoError(t, err)
	defer c.Close()

	outcome := c.Reap(2 * time.Second)
	require.Equal(t, Exited, outcome)
	assert.Equal(t, 7, c.ExitStatus())
}

func TestIsAliveTransitionsToFalseOnExit(t *testing.T) {
	c, err := Spawn("sleep 0.2")
	require.NoError(t, err)
	defer c.Close()

	assert.True(t, c.IsAlive())
	c.Reap(2 * time.Second)
	assert.False(t, c.IsAlive())
}

func TestTerminateStopsLongRunningChild(t *testing.T) {
	c, err := Spawn("sleep 30")
	require.NoError(t, err)
	defer c.Close()

	require.NoError(t, c.Terminate(false))
	outcome := c.Reap(2 * time.Second)
	assert.Equal(t, Exited, outcome)
}

func TestReapTimesOutWhileChildRuns(t *testing.T) {
	c, err := Spawn("sleep 30")
	require.NoError(t, err)
	defer func() {
		c.Terminate(true)
		c.Reap(2 * time.Second)
	}()

	outcome := c.Reap(50 * time.Millisecond)
	assert.Equal(t, TimedOut, outcome)
}

func TestWriteToStdinIsReadableByChild(t *testing.T) {
	c, err := Spawn("cat")
	require.NoError(t, err)
	defer func() {
		c.Terminate(true)
		c.Reap(2 * time.Second)
		c.Close()
	}()

	n, wouldBlock, err := c.Stdin.WriteSome([]byte("echo-me\n"))
	require.NoError(t, err)
	require.False(t, wouldBlock)
	require.Equal(t, len("echo-me\n"), n)
	require.NoError(t, c.Stdin.Close())

	var got []byte
	buf := make([]byte, 256)
	deadline := time.Now().Add(2 * time.Second)
	for time.Now().Before(deadline) {
		n, closed, err := c.Stdout.ReadAvail(buf)
		require.NoError(t, err)
		got = append(got, buf[:n]...)
		if closed {
			break
		}
	}
	assert.Equal(t, "echo-me\n", string(got))
}

func TestReadAvailReportsClosedStickily(t *testing.T) {
	c, err := Spawn("echo done")
	require.NoError(t, err)
	defer c.Close()

	buf := make([]byte, 64)
	var closedOnce bool
	deadline := time.Now().Add(2 * time.Second)
	for time.Now().Before(deadline) {
		_, closed, err := c.Stdout.ReadAvail(buf)
		require.NoError(t, err)
		if closed {
			closedOnce = true
			break
		}
	}
	require.True(t, closedOnce)

	_, closed, err := c.Stdout.ReadAvail(buf)
	require.NoError(t, err)
	assert.True(t, closed, "closed must remain sticky")
}

