// Package tcptransport implements the loopback-socket local transport
// chosen as primary in SPEC_FULL.md §2.8 (Open Question 2): a bound port
// that accepts one line per command and keeps the connection open across
// commands until the client closes it or sends "shutdown" (spec §4.7).
package tcptransport

import (
	"bufio"
	"context"
	"fmt"
	"net"

	"github.com/containerd/log"

	"github.com/nullbound/toolkernel/internal/control"
)

// Transport listens on loopback and serves the control grammar.
type Transport struct {
	queue    *control.Queue
	listener net.Listener
}

// Listen binds 127.0.0.1:port. port==0 lets the OS choose; Addr() reports
// the bound address afterward.
func Listen(queue *control.Queue, port int) (*Transport, error) {
	l, err := net.Listen("tcp", fmt.Sprintf("127.0.0.1:%d", port))
	if err != nil {
		return nil, err
	}
	return &Transport{queue: queue, listener: l}, nil
}

// Addr returns the bound address, e.g. "127.0.0.1:9090".
func (t *Transport) Addr() string { return t.listener.Addr().String() }

// Close stops accepting new connections.
func (t *Transport) Close() error { return t.listener.Close() }

// Serve accepts connections until ctx is cancelled or the listener
// closes. Each connection is handled on its own goroutine; every handler
// funnels commands through the same Queue the supervisor loop drains, so
// no additional kernel-state locking is required (spec §5).
func (t *Transport) Serve(ctx context.Context) {
	go func() {
		<-ctx.Done()
		t.listener.Close()
	}()

	for {
		conn, err := t.listener.Accept()
		if err != nil {
			if ctx.Err() != nil {
				return
			}
			log.L.WithError(err).Warn("control tcp transport: accept failed")
			return
		}
		go t.handle(ctx, conn)
	}
}

func (t *Transport) handle(ctx context.Context, conn net.Conn) {
	defer conn.Close()
	scanner := bufio.NewScanner(conn)
	for scanner.Scan() {
		line := scanner.Text()
		verb, name, err := control.ParseLine(line)
		if err != nil {
			fmt.Fprintln(conn, "Error: "+err.Error())
			continue
		}

		reply := make(chan control.Result, 1)
		if !t.queue.Submit(control.Command{Verb: verb, Name: name, Reply: reply}) {
			fmt.Fprintln(conn, "Error: command queue is full")
			continue
		}
		var r control.Result
		select {
		case r = <-reply:
		case <-ctx.Done():
			return
		}
		fmt.Fprintln(conn, control.FormatResult(verb, r))
		if verb == control.VerbShutdown {
			return
		}
	}
}
