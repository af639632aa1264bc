// Package event defines the kernel's sole payload type: a line-oriented
// text event exchanged between children and the bus (spec §3, §6).
//
// Events are never binary or typed; the wire format is exactly
// "TYPE|SENDER|DATA\n". Fields are separated by a single '|'; only the
// first two separators are significant, so DATA may itself contain '|'.
package event

import (
	"strings"
	"time"

	"github.com/containerd/log"

	"github.com/nullbound/toolkernel/internal/kernelerr"
	"github.com/nullbound/toolkernel/internal/tuning"
)

// Event is an owned, immutable record of one bus message.
type Event struct {
	Type     string
	Sender   string
	Data     string
	Captured time.Time
}

// New validates and constructs an Event, truncating Data at
// tuning.MaxEventDataBytes per spec §8's boundary behavior.
func New(typ, sender, data string, captured time.Time) (Event, error) {
	if typ == "" {
		return Event{}, kernelerr.InvalidArg("event type must not be empty")
	}
	if sender == "" {
		return Event{}, kernelerr.InvalidArg("event sender must not be empty")
	}
	if strings.ContainsAny(typ, "|\n") {
		return Event{}, kernelerr.InvalidArg("event type %q must not contain '|' or newline", typ)
	}
	if strings.ContainsAny(sender, "|\n") {
		return Event{}, kernelerr.InvalidArg("event sender %q must not contain '|' or newline", sender)
	}
	if len(typ) > tuning.MaxEventTypeBytes {
		return Event{}, kernelerr.InvalidArg("event type exceeds %d bytes", tuning.MaxEventTypeBytes)
	}
	if len(sender) > tuning.MaxSenderBytes {
		return Event{}, kernelerr.InvalidArg("event sender exceeds %d bytes", tuning.MaxSenderBytes)
	}
	if strings.ContainsRune(data, '\n') {
		return Event{}, kernelerr.InvalidArg("event data must not contain newline")
	}
	if len(data) > tuning.MaxEventDataBytes {
		log.L.WithField("type", typ).
			WithField("sender", sender).
			WithField("bytes", len(data)).
			Warn("event data exceeds cap, truncating")
		data = data[:tuning.MaxEventDataBytes]
	}
	return Event{Type: typ, Sender: sender, Data: data, Captured: captured}, nil
}

// Serialize renders the event in its exact wire form, "TYPE|SENDER|DATA\n".
func (e Event) Serialize() string {
	var b strings.Builder
	b.Grow(len(e.Type) + len(e.Sender) + len(e.Data) + 3)
	b.WriteString(e.Type)
	b.WriteByte('|')
	b.WriteString(e.Sender)
	b.WriteByte('|')
	b.WriteString(e.Data)
	b.WriteByte('\n')
	return b.String()
}

// Parse reads a single line (without its trailing newline) as
// "TYPE|SENDER|DATA". A line with fewer than two '|' separators is
// malformed and returned as a ParseFailed error.
func Parse(line string) (Event, error) {
	first := strings.IndexByte(line, '|')
	if first < 0 {
		return Event{}, kernelerr.ParseFailed(line, errMissingSeparator)
	}
	rest := line[first+1:]
	second := strings.IndexByte(rest, '|')
	if second < 0 {
		return Event{}, kernelerr.ParseFailed(line, errMissingSeparator)
	}
	typ := line[:first]
	sender := rest[:second]
	data := rest[second+1:]

	if typ == "" || sender == "" {
		return Event{}, kernelerr.ParseFailed(line, errEmptyField)
	}
	if len(data) > tuning.MaxEventDataBytes {
		log.L.WithField("type", typ).
			WithField("sender", sender).
			WithField("bytes", len(data)).
			Warn("event data exceeds cap, truncating")
		data = data[:tuning.MaxEventDataBytes]
	}
	return Event{Type: typ, Sender: sender, Data: data, Captured: time.Now()}, nil
}

var (
	errMissingSeparator = parseError("line does not contain two '|' separators")
	errEmptyField       = parseError("type or sender field is empty")
)

type parseError string

func (e parseError) Error() string { return string(e) }
