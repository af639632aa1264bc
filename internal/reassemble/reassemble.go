// Package reassemble centralizes the ad-hoc per-call buffering the source
// material scattered across every read site (spec §9 design note) into one
// type with an explicit Feed(bytes) -> []lines contract (spec §4.5).
package reassemble

import (
	"bytes"

	"github.com/containerd/log"

	"github.com/nullbound/toolkernel/internal/tuning"
)

// Accumulator turns an arbitrary stream of byte chunks from one child
// stream into whole lines. It is not safe for concurrent use; each tool
// stream (stdout, stderr) owns one.
type Accumulator struct {
	buf      []byte
	tag      string // tool name, used only for the overflow warning
	skipping bool   // true while discarding the tail of an oversized line
}

// New returns an Accumulator for the given tool, used only to annotate log
// lines when an oversized line is discarded.
func New(tag string) *Accumulator {
	return &Accumulator{tag: tag}
}

// Feed appends chunk to the internal buffer and returns every complete
// line found so far. Trailing '\r' is stripped, empty lines are skipped,
// and lines longer than tuning.MaxLineBytes are split at the cap: the
// head is emitted (a single truncated line), the tail up to the next '\n'
// is discarded with a warning, and the accumulator never buffers more than
// tuning.MaxLineBytes of a single unterminated line.
func (a *Accumulator) Feed(chunk []byte) []string {
	a.buf = append(a.buf, chunk...)

	var lines []string
	for {
		if a.skipping {
			idx := bytes.IndexByte(a.buf, '\n')
			if idx < 0 {
				// Overflow tail spans this whole chunk; discard it all and
				// wait for the terminator in a later chunk.
				a.buf = a.buf[:0]
				break
			}
			a.buf = a.buf[idx+1:]
			a.skipping = false
			continue
		}

		idx := bytes.IndexByte(a.buf, '\n')
		if idx < 0 {
			if len(a.buf) > tuning.MaxLineBytes {
				log.L.WithField("tool", a.tag).
					WithField("bytes", len(a.buf)).
					Warn("reassembled line exceeds cap, truncating")
				lines = append(lines, string(a.buf[:tuning.MaxLineBytes]))
				a.buf = a.buf[:0]
				a.skipping = true
				continue
			}
			break
		}

		raw := a.buf[:idx]
		a.buf = a.buf[idx+1:]

		if len(raw) > 0 && raw[len(raw)-1] == '\r' {
			raw = raw[:len(raw)-1]
		}
		if len(raw) == 0 {
			continue
		}
		if len(raw) > tuning.MaxLineBytes {
			log.L.WithField("tool", a.tag).
				WithField("bytes", len(raw)).
				Warn("reassembled line exceeds cap, truncating")
			raw = raw[:tuning.MaxLineBytes]
		}
		lines = append(lines, string(raw))
	}

	return lines
}

// Close flushes any trailing, non-newline-terminated content as a final
// line, which spec §4.5 requires when the source pipe has closed.
func (a *Accumulator) Close() []string {
	if a.skipping || len(a.buf) == 0 {
		a.buf = nil
		return nil
	}
	raw := a.buf
	a.buf = nil
	if len(raw) > tuning.MaxLineBytes {
		raw = raw[:tuning.MaxLineBytes]
	}
	return []string{string(raw)}
}
