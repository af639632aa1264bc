package reassemble

import (
	"strings"
	"testing"

	"github.com/stretchr/testify/assert"

	"github.com/nullbound/toolkernel/internal/tuning"
)

func TestFeedSplitsOnNewline(t *testing.T) {
	a := New("t")
	lines := a.Feed([]byte("PING|gen|p1\nPING|gen|p2\n"))
	assert.Equal(t, []string{"PING|gen|p1", "PING|gen|p2"}, lines)
}

func TestFeedAcrossChunkBoundaries(t *testing.T) {
	a := New("t")
	lines := a.Feed([]byte("PING|ge"))
	assert.Empty(t, lines)
	lines = a.Feed([]byte("n|p1\n"))
	assert.Equal(t, []string{"PING|gen|p1"}, lines)
}

func TestFeedStripsCRAndSkipsEmptyLines(t *testing.T) {
	a := New("t")
	lines := a.Feed([]byte("A|b|c\r\n\n\nD|e|f\n"))
	assert.Equal(t, []string{"A|b|c", "D|e|f"}, lines)
}

func TestFeedTruncatesOverlongLineAndDiscardsOverflow(t *testing.T) {
	a := New("t")
	over := strings.Repeat("x", tuning.MaxLineBytes+100)
	lines := a.Feed([]byte(over + "\nNEXT|s|ok\n"))
	if assert.Len(t, lines, 2) {
		assert.Len(t, lines[0], tuning.MaxLineBytes)
		assert.Equal(t, "NEXT|s|ok", lines[1])
	}
}

func TestFeedOverlongLineSpanningChunks(t *testing.T) {
	a := New("t")
	lines := a.Feed([]byte(strings.Repeat("x", tuning.MaxLineBytes+10)))
	if assert.Len(t, lines, 1) {
		assert.Len(t, lines[0], tuning.MaxLineBytes)
	}
	// Still skipping the overflow tail; more non-newline bytes must not
	// re-trigger another truncated emission or grow the buffer unbounded.
	lines = a.Feed([]byte(strings.Repeat("y", 5000)))
	assert.Empty(t, lines)
	lines = a.Feed([]byte("\nD|e|f\n"))
	assert.Equal(t, []string{"D|e|f"}, lines)
}

func TestCloseFlushesTrailingUnterminatedLine(t *testing.T) {
	a := New("t")
	lines := a.Feed([]byte("PARTIAL|no|newline"))
	assert.Empty(t, lines)

	tail := a.Close()
	assert.Equal(t, []string{"PARTIAL|no|newline"}, tail)
}

func TestCloseOnEmptyBufferReturnsNil(t *testing.T) {
	a := New("t")
	assert.Nil(t, a.Close())
}
