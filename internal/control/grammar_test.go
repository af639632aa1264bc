package control

import (
	"testing"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
)

func TestParseLineCaseInsensitiveVerb(t *testing.T) {
	verb, name, err := ParseLine("STOP gen")
	require.NoError(t, err)
	assert.Equal(t, VerbStop, verb)
	assert.Equal(t, "gen", name)
}

func TestParseLineRequiresNameForTargetedVerbs(t *testing.T) {
	_, _, err := ParseLine("start")
	require.Error(t, err)
}

func TestParseLineNoArgVerbsIgnoreExtraWhitespace(t *testing.T) {
	verb, name, err := ParseLine("  list  ")
	require.NoError(t, err)
	assert.Equal(t, VerbList, verb)
	assert.Equal(t, "", name)
}

func TestParseLineUnknownVerb(t *testing.T) {
	_, _, err := ParseLine("frobnicate gen")
	require.Error(t, err)
}

func TestFormatResultErrorStartsWithError(t *testing.T) {
	out := FormatResult(VerbStart, Result{Err: assertErr{}})
	assert.Regexp(t, `^Error: `, out)
}

func TestFormatResultSuccessStartsWithSuccess(t *testing.T) {
	out := FormatResult(VerbStart, Result{OK: true, Message: "started gen"})
	assert.Equal(t, "Success: started gen", out)
}

func TestFormatResultListProducesTableHeader(t *testing.T) {
	out := FormatResult(VerbList, Result{OK: true, Infos: []ToolInfo{{Name: "a", State: "Running"}}})
	assert.Regexp(t, `^Name\tState\tPid\tSubs\n`, out)
}

type assertErr struct{}

func (assertErr) Error() string { return "boom" }
