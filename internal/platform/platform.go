// Package platform is the kernel's only boundary with the operating
// system: spawning children, signaling and reaping them, and moving bytes
// across their pipes without blocking the single-threaded supervisor loop
// for more than a few milliseconds (spec §4.1, §5).
//
// Reaping is delegated to github.com/containerd/go-runc's ProcessMonitor,
// the same mechanism the teacher uses to reap runc-launched containers,
// generalized here to reap an arbitrary tool's shell-wrapped command.
package platform

import (
	"errors"
	"io"
	"os"
	"os/exec"
	"syscall"
	"time"

	runc "github.com/containerd/go-runc"

	"github.com/nullbound/toolkernel/internal/kernelerr"
)

// nonBlockDeadline bounds how long a single ReadAvail/WriteSome call may
// block the loop.
const nonBlockDeadline = 2 * time.Millisecond

// ReapOutcome is the result of waiting for a child to exit.
type ReapOutcome int

const (
	Exited ReapOutcome = iota
	TimedOut
)

// Child is the single owning value for a spawned tool's process and its
// three pipe endpoints, resolving the source's "child handle + three file
// descriptors tied together" pattern (spec §9) into one type.
type Child struct {
	cmd *exec.Cmd
	pid int

	Stdin  *WriteEnd
	Stdout *ReadEnd
	Stderr *ReadEnd

	exitCh chan runc.Exit
	status int
	reaped bool
}

// Spawn starts command via the host shell ("/bin/sh -c") with three fresh
// pipes wired to the child's stdin/stdout/stderr. On any failure every
// pipe endpoint opened so far is closed before returning.
func Spawn(command string) (*Child, error) {
	stdinR, stdinW, err := os.Pipe()
	if err != nil {
		return nil, kernelerr.PipeFailed(command, err)
	}
	stdoutR, stdoutW, err := os.Pipe()
	if err != nil {
		stdinR.Close()
		stdinW.Close()
		return nil, kernelerr.PipeFailed(command, err)
	}
	stderrR, stderrW, err := os.Pipe()
	if err != nil {
		stdinR.Close()
		stdinW.Close()
		stdoutR.Close()
		stdoutW.Close()
		return nil, kernelerr.PipeFailed(command, err)
	}

	cmd := exec.Command("/bin/sh", "-c", command)
	cmd.Stdin = stdinR
	cmd.Stdout = stdoutW
	cmd.Stderr = stderrW

	ec, err := runc.Monitor.Start(cmd)
	if err != nil {
		stdinR.Close()
		stdinW.Close()
		stdoutR.Close()
		stdoutW.Close()
		stderrR.Close()
		stderrW.Close()
		return nil, kernelerr.SpawnFailed(command, err)
	}

	// The child inherited its ends across fork/exec; the parent has no
	// further use for them.
	stdinR.Close()
	stdoutW.Close()
	stderrW.Close()

	return &Child{
		cmd:    cmd,
		pid:    cmd.Process.Pid,
		Stdin:  &WriteEnd{f: stdinW},
		Stdout: &ReadEnd{f: stdoutR},
		Stderr: &ReadEnd{f: stderrR},
		exitCh: ec,
	}, nil
}

// Pid returns the child's process id.
func (c *Child) Pid() int { return c.pid }

// IsAlive performs a non-blocking liveness probe. A process that has
// exited but not yet been reaped counts as not alive.
func (c *Child) IsAlive() bool {
	if c.reaped {
		return false
	}
	err := c.cmd.Process.Signal(syscall.Signal(0))
	return err == nil
}

// Terminate requests graceful exit (SIGTERM) or, if force is set,
// immediate exit (SIGKILL). It returns success if the signal was
// delivered or the process is already gone; it does not wait.
func (c *Child) Terminate(force bool) error {
	sig := syscall.SIGTERM
	if force {
		sig = syscall.SIGKILL
	}
	err := c.cmd.Process.Signal(sig)
	if err == nil || errors.Is(err, os.ErrProcessDone) || errors.Is(err, syscall.ESRCH) {
		return nil
	}
	return kernelerr.IO("terminate", err)
}

// Reap waits up to timeout for the child to exit and reaps its zombie.
// Must be called (eventually, possibly after a retry) before the Child is
// dropped.
func (c *Child) Reap(timeout time.Duration) ReapOutcome {
	if c.reaped {
		return Exited
	}
	select {
	case e := <-c.exitCh:
		c.status = e.Status
		c.reaped = true
		return Exited
	case <-time.After(timeout):
		return TimedOut
	}
}

// ExitStatus returns the reaped exit code; only meaningful after Reap has
// returned Exited.
func (c *Child) ExitStatus() int { return c.status }

// Close closes all three pipe endpoints. Safe to call multiple times.
func (c *Child) Close() {
	c.Stdin.Close()
	c.Stdout.Close()
	c.Stderr.Close()
}

// WriteEnd is the parent-side, non-blocking write half of a pipe (used for
// a child's stdin).
type WriteEnd struct {
	f      *os.File
	closed bool
}

// WriteSome writes as much of buf as possible without blocking longer
// than a few milliseconds. wouldBlock reports that the deadline passed
// before buf was fully written; n counts the bytes written before that
// (possibly zero), and the caller should retry later with buf[n:].
func (w *WriteEnd) WriteSome(buf []byte) (n int, wouldBlock bool, err error) {
	if w.closed {
		return 0, false, kernelerr.IO("write", os.ErrClosed)
	}
	_ = w.f.SetWriteDeadline(time.Now().Add(nonBlockDeadline))
	n, err = w.f.Write(buf)
	if err == nil {
		return n, false, nil
	}
	if errors.Is(err, os.ErrDeadlineExceeded) {
		return n, true, nil
	}
	w.closed = true
	return n, false, kernelerr.IO("write", err)
}

// Close closes the write end. Safe to call multiple times.
func (w *WriteEnd) Close() error {
	if w.closed {
		return nil
	}
	w.closed = true
	return w.f.Close()
}

// ReadEnd is the parent-side, non-blocking read half of a pipe (used for a
// child's stdout/stderr). "Closed" is sticky: once the source pipe has
// been observed closed, every subsequent ReadAvail reports it again.
type ReadEnd struct {
	f      *os.File
	closed bool
}

// ReadAvail reads whatever is immediately available into buf. It
// distinguishes "no data right now" (n=0, closed=false, err=nil) from
// "pipe closed" (closed=true).
func (r *ReadEnd) ReadAvail(buf []byte) (n int, closed bool, err error) {
	if r.closed {
		return 0, true, nil
	}
	_ = r.f.SetReadDeadline(time.Now().Add(nonBlockDeadline))
	n, err = r.f.Read(buf)
	if err == nil {
		return n, false, nil
	}
	if errors.Is(err, os.ErrDeadlineExceeded) {
		return n, false, nil
	}
	if errors.Is(err, io.EOF) {
		r.closed = true
		return n, true, nil
	}
	r.closed = true
	return n, true, kernelerr.IO("read", err)
}

// Close closes the read end. Safe to call multiple times.
func (r *ReadEnd) Close() error {
	if r.f == nil {
		return nil
	}
	r.closed = true
	f := r.f
	r.f = nil
	return f.Close()
}
