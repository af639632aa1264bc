package control

import "time"

// InProcess is the always-on binding for embedded callers (spec §4.7): it
// submits through the same Queue every other binding uses, then blocks
// the calling goroutine (never the loop) until the loop's next drain
// replies. This keeps a single command-execution path even though the
// caller experiences ordinary synchronous function calls.
type InProcess struct {
	queue *Queue
}

// NewInProcess wraps queue for direct, synchronous embedded calls.
func NewInProcess(queue *Queue) *InProcess {
	return &InProcess{queue: queue}
}

func (p *InProcess) call(verb Verb, name string) Result {
	reply := make(chan Result, 1)
	if !p.queue.Submit(Command{Verb: verb, Name: name, Reply: reply}) {
		return Result{Message: "command queue is full"}
	}
	return <-reply
}

func (p *InProcess) Start(name string) error   { return p.call(VerbStart, name).Err }
func (p *InProcess) Stop(name string) error    { return p.call(VerbStop, name).Err }
func (p *InProcess) Restart(name string) error { return p.call(VerbRestart, name).Err }

func (p *InProcess) Status(name string) (ToolInfo, error) {
	r := p.call(VerbStatus, name)
	return r.Info, r.Err
}

func (p *InProcess) List() []ToolInfo { return p.call(VerbList, "").Infos }
func (p *InProcess) Shutdown()        { p.call(VerbShutdown, "") }
func (p *InProcess) Uptime() time.Duration {
	return p.call(VerbUptime, "").Uptime
}
func (p *InProcess) Version() string    { return p.call(VerbVersion, "").Version }
func (p *InProcess) Exists(name string) bool {
	return p.call(VerbExists, name).Exists
}
func (p *InProcess) Count() int { return p.call(VerbCount, "").Count }
