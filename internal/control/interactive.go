package control

import (
	"bufio"
	"context"
	"fmt"
	"io"

	"github.com/containerd/log"
)

// Interactive is the terminal-reader binding of spec §4.7: a dedicated
// goroutine reads verbs from an operator's terminal and submits them
// through the shared Queue, never touching kernel state directly (spec
// §5, "runs on a dedicated reader thread and submits commands through a
// thread-safe queue that the loop drains in step 1").
type Interactive struct {
	queue *Queue
	in    io.Reader
	out   io.Writer
}

// NewInteractive binds in/out (typically os.Stdin/os.Stdout) to queue.
func NewInteractive(queue *Queue, in io.Reader, out io.Writer) *Interactive {
	return &Interactive{queue: queue, in: in, out: out}
}

// Serve reads lines from in until ctx is cancelled or in reaches EOF,
// printing one response per command to out.
func (ia *Interactive) Serve(ctx context.Context) {
	scanner := bufio.NewScanner(ia.in)
	for scanner.Scan() {
		if ctx.Err() != nil {
			return
		}
		line := scanner.Text()
		verb, name, err := ParseLine(line)
		if err != nil {
			fmt.Fprintln(ia.out, "Error: "+err.Error())
			continue
		}

		reply := make(chan Result, 1)
		if !ia.queue.Submit(Command{Verb: verb, Name: name, Reply: reply}) {
			fmt.Fprintln(ia.out, "Error: command queue is full")
			continue
		}
		select {
		case r := <-reply:
			fmt.Fprintln(ia.out, FormatResult(verb, r))
		case <-ctx.Done():
			return
		}
	}
	if err := scanner.Err(); err != nil {
		log.L.WithError(err).Warn("interactive control binding: reader error")
	}
}
