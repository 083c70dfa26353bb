package report

import (
	"bytes"
	"errors"
	"fmt"
	"path/filepath"
	"testing"

	"github.com/sebdah/goldie/v2"
	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
)

var sample = filepath.Join("testdata", "sample.stz")

func newGoldie(t *testing.T) *goldie.Goldie {
	return goldie.New(t,
		goldie.WithFixtureDir("testdata/golden"),
		goldie.WithNameSuffix(".golden"),
	)
}

func TestWriteWarning_Contextual(t *testing.T) {
	var buf bytes.Buffer

	WriteWarning(&buf, Contextual, At(sample, 3, 9, 1), Shadowing, "x")

	newGoldie(t).Assert(t, "warning_contextual", buf.Bytes())
}

func TestWriteError_Regular(t *testing.T) {
	var buf bytes.Buffer

	ee := WriteError(&buf, Regular, At(sample, 4, 15, 1), UnboundIdentifier, "y")

	newGoldie(t).Assert(t, "error_regular", buf.Bytes())
	assert.Equal(t, "unbound-identifier", ee.Mnemonic)
	assert.Equal(t, 4, ee.Code.Exit)
}

func TestWrite_Minimal(t *testing.T) {
	var buf bytes.Buffer

	WriteWarning(&buf, Minimal, At(sample, 3, 9, 1), Shadowing, "x")
	WriteError(&buf, Minimal, Loc{}, ParseError, "oops")
	WriteSummary(&buf, Minimal, 10, 4)

	assert.Equal(t, "W:shadowing\nE:parse-error\nW:+4\n", buf.String())
}

func TestWriteSummary_Regular(t *testing.T) {
	var buf bytes.Buffer

	WriteSummary(&buf, Regular, 2, 3)

	assert.Equal(t, "Over the limit of 2 warnings, hid 3\n", buf.String())
}

func TestWrite_NoLocationNoTag(t *testing.T) {
	var buf bytes.Buffer

	WriteError(&buf, Contextual, Loc{}, Interrupted, nil)

	assert.Equal(t, "Error[interrupted]: user interrupt\n", buf.String())
}

func TestContext_DegradesToBareTag(t *testing.T) {
	tests := []struct {
		name string
		loc  Loc
	}{
		{"missing file", At(filepath.Join("testdata", "nope.stz"), 1, 1, 1)},
		{"span too long", Loc{File: sample, StartLine: 1, StartCol: 1, StopLine: 4, StopCol: 2}},
		{"line past end", At(sample, 40, 1, 1)},
	}
	for _, tt := range tests {
		t.Run(tt.name, func(t *testing.T) {
			var buf bytes.Buffer
			WriteWarning(&buf, Contextual, tt.loc, UnknownLogic, "QF_X")

			assert.Equal(t, fmt.Sprintf("%s:\nWarning[unknown-logic]: unknown logic \"QF_X\", continuing with no restriction\n", tt.loc), buf.String())
		})
	}
}

func TestContext_MultiLineSpanHasNoCaret(t *testing.T) {
	var buf bytes.Buffer

	WriteWarning(&buf, Contextual, Loc{File: sample, StartLine: 2, StartCol: 1, StopLine: 3, StopCol: 10}, Shadowing, "x")

	assert.Equal(t, `File "testdata/sample.stz", line 2, character 1 to line 3, character 10:
2 | declare x
3 | declare x
Warning[shadowing]: symbol "x" shadows an earlier declaration
Hint: the new declaration replaces the previous one
`, buf.String())
}

func TestLoc_String(t *testing.T) {
	assert.Equal(t, `File "a"`, Loc{File: "a"}.String())
	assert.Equal(t, `File "<unknown>", line 2, characters 3-4`, Loc{StartLine: 2, StartCol: 3, StopLine: 2, StopCol: 4}.String())
	assert.True(t, Loc{}.IsZero())
	assert.Equal(t, 2, At("f", 1, 1, 0).StopCol)
}

func TestConf_StatusDefaultsAndOverrides(t *testing.T) {
	c := NewConf()
	assert.Equal(t, Enabled, c.Status(Shadowing))
	assert.Equal(t, Disabled, c.Status(EmptyInclude))

	c2, err := c.Apply("shadowing=fatal")
	require.NoError(t, err)
	assert.Equal(t, Fatal, c2.Status(Shadowing))
	assert.Equal(t, Enabled, c.Status(Shadowing), "Apply must not mutate the receiver")
}

func TestConf_ApplyAll(t *testing.T) {
	c, err := NewConf().Apply("all=disabled")
	require.NoError(t, err)

	for _, name := range WarningMnemonics() {
		w, ok := LookupWarning(name)
		require.True(t, ok)
		assert.Equal(t, Disabled, c.Status(w), name)
	}
}

func TestConf_ApplyErrors(t *testing.T) {
	_, err := NewConf().Apply("shadowing")
	assert.ErrorContains(t, err, "expected name=severity")

	_, err = NewConf().Apply("nope=fatal")
	assert.ErrorContains(t, err, "unknown warning")

	_, err = NewConf().Apply("shadowing=loud")
	assert.ErrorContains(t, err, "invalid severity")
}

func TestParseSeverity(t *testing.T) {
	for in, want := range map[string]Severity{"off": Disabled, "Enabled": Enabled, " fatal ": Fatal, "error": Fatal} {
		got, err := ParseSeverity(in)
		require.NoError(t, err, in)
		assert.Equal(t, want, got, in)
	}
	assert.Equal(t, "fatal", Fatal.String())
	assert.Equal(t, "Severity(9)", Severity(9).String())
}

func TestParseStyle(t *testing.T) {
	s, err := ParseStyle("Contextual")
	require.NoError(t, err)
	assert.Equal(t, Contextual, s)
	assert.Equal(t, "minimal", Minimal.String())

	_, err = ParseStyle("fancy")
	assert.Error(t, err)
}

func TestExitCode(t *testing.T) {
	ee := &ExitError{Mnemonic: "time-limit", Code: CodeLimit, Message: "1s"}

	code, ok := ExitCode(fmt.Errorf("wrapped: %w", ee))
	assert.True(t, ok)
	assert.Equal(t, 5, code)
	assert.True(t, IsExit(ee))
	assert.Equal(t, "time-limit: 1s", ee.Error())

	_, ok = ExitCode(errors.New("plain"))
	assert.False(t, ok)
}

func TestWriteFatalWarning(t *testing.T) {
	var buf bytes.Buffer

	ee := WriteFatalWarning(&buf, Regular, Loc{}, Shadowing, "z")

	assert.Equal(t, "Error[shadowing]: symbol \"z\" shadows an earlier declaration\nHint: the new declaration replaces the previous one\n", buf.String())
	assert.Equal(t, CodeTyping, ee.Code)
}
