package event

import (
	"strings"
	"testing"
	"time"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"

	"github.com/nullbound/toolkernel/internal/tuning"
)

func TestSerializeParseRoundTrip(t *testing.T) {
	e, err := New("PING", "gen", "p1", time.Now())
	require.NoError(t, err)

	line := e.Serialize()
	require.Equal(t, "PING|gen|p1\n", line)

	parsed, err := Parse(strings.TrimSuffix(line, "\n"))
	require.NoError(t, err)
	assert.Equal(t, e.Type, parsed.Type)
	assert.Equal(t, e.Sender, parsed.Sender)
	assert.Equal(t, e.Data, parsed.Data)
}

func TestParseKeepsExtraPipesInData(t *testing.T) {
	parsed, err := Parse("TYPE|SENDER|a|b|c")
	require.NoError(t, err)
	assert.Equal(t, "a|b|c", parsed.Data)
}

func TestParseRejectsMissingSeparators(t *testing.T) {
	_, err := Parse("no-separators-here")
	require.Error(t, err)

	_, err = Parse("only-one|separator")
	require.Error(t, err)
}

func TestParseRejectsEmptyFields(t *testing.T) {
	_, err := Parse("|sender|data")
	require.Error(t, err)

	_, err = Parse("type||data")
	require.Error(t, err)
}

func TestNewRejectsControlCharacters(t *testing.T) {
	_, err := New("TY|PE", "sender", "data", time.Now())
	require.Error(t, err)

	_, err = New("TYPE", "sen|der", "data", time.Now())
	require.Error(t, err)

	_, err = New("TYPE", "sender", "line\nbreak", time.Now())
	require.Error(t, err)
}

func TestNewTruncatesOversizedData(t *testing.T) {
	exact := strings.Repeat("a", tuning.MaxEventDataBytes)
	e, err := New("TYPE", "sender", exact, time.Now())
	require.NoError(t, err)
	assert.Len(t, e.Data, tuning.MaxEventDataBytes)

	over := strings.Repeat("a", tuning.MaxEventDataBytes+1)
	e, err = New("TYPE", "sender", over, time.Now())
	require.NoError(t, err)
	assert.Len(t, e.Data, tuning.MaxEventDataBytes)
}
