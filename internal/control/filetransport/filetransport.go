// Package filetransport implements the secondary file-pair control
// binding of spec §4.7: a command FIFO the kernel polls once per
// supervisor iteration, and a response file replaced atomically on each
// reply. Auto-enabled when config.Core.ControlPort is unset (Open
// Question 2).
package filetransport

import (
	"context"
	"strings"
	"syscall"

	"github.com/containerd/fifo"
	"github.com/containerd/log"
	"github.com/google/renameio/v2"

	"github.com/nullbound/toolkernel/internal/control"
	"github.com/nullbound/toolkernel/internal/reassemble"
)

// Transport owns the command FIFO's read end. The command FIFO is opened
// once and kept open: POSIX FIFO readers observe EOF only while no writer
// is attached, and resume delivering data transparently once a new writer
// opens the same path, so no reopen logic is needed between commands.
type Transport struct {
	cmdFifo  fifoReadCloser
	respPath string
	acc      *reassemble.Accumulator
}

type fifoReadCloser interface {
	Read(p []byte) (int, error)
	Close() error
}

// Open creates (if needed) the command FIFO at cmdPath and prepares
// respPath for atomic replacement on each reply.
func Open(ctx context.Context, cmdPath, respPath string) (*Transport, error) {
	f, err := fifo.OpenFifo(ctx, cmdPath, syscall.O_CREAT|syscall.O_RDONLY|syscall.O_NONBLOCK, 0o600)
	if err != nil {
		return nil, err
	}
	return &Transport{cmdFifo: f, respPath: respPath, acc: reassemble.New("filetransport")}, nil
}

// Close releases the command FIFO's read end.
func (t *Transport) Close() error { return t.cmdFifo.Close() }

// Poll performs one non-blocking read of the command FIFO and, if a full
// command line has accumulated, executes it synchronously against ops and
// replaces the response file. Called once per supervisor loop iteration
// from the same goroutine as the rest of the loop, so — unlike the
// interactive and TCP bindings — no command queue is needed here.
func (t *Transport) Poll(ops control.KernelOps) {
	buf := make([]byte, 4096)
	n, err := t.cmdFifo.Read(buf)
	if err != nil && n == 0 {
		return
	}
	if n == 0 {
		return
	}

	for _, line := range t.acc.Feed(buf[:n]) {
		t.dispatch(strings.TrimSpace(line), ops)
	}
}

func (t *Transport) dispatch(line string, ops control.KernelOps) {
	if line == "" {
		return
	}
	verb, name, err := control.ParseLine(line)
	var resp string
	if err != nil {
		resp = "Error: " + err.Error()
	} else {
		resp = control.FormatResult(verb, control.Execute(control.Command{Verb: verb, Name: name}, ops))
	}
	if err := renameio.WriteFile(t.respPath, []byte(resp+"\n"), 0o600); err != nil {
		log.L.WithError(err).WithField("path", t.respPath).Warn("filetransport: failed to replace response file")
	}
}
