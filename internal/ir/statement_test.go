package ir

import (
	"bytes"
	"context"
	"errors"
	"strings"
	"sync"
	"testing"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"

	"github.com/roach88/stanza/internal/report"
)

func TestStatement_String(t *testing.T) {
	tests := []struct {
		st   Statement
		want string
	}{
		{Statement{Kind: KindSetLogic, Name: "QF_UF"}, "set-logic QF_UF"},
		{Statement{Kind: KindDeclare, Name: "x"}, "declare x"},
		{Statement{Kind: KindAssert, Term: "(and x y)"}, "assert (and x y)"},
		{Statement{Kind: KindInclude, Name: "lib.stz"}, `include "lib.stz"`},
		{Statement{Kind: KindCheck}, "check"},
		{Statement{Kind: KindHeader, Lits: []int64{3, 2}}, "p cnf 3 2"},
		{Statement{Kind: KindClause, Lits: []int64{1, -3}}, "1 -3 0"},
	}
	for _, tt := range tests {
		assert.Equal(t, tt.want, tt.st.String())
	}
}

func TestStatementID_IgnoresLocation(t *testing.T) {
	a := Statement{Kind: KindDeclare, Name: "x", Loc: report.At("a.stz", 1, 1, 9)}
	b := Statement{Kind: KindDeclare, Name: "x", Loc: report.At("b.stz", 7, 3, 9)}

	assert.Equal(t, MustStatementID(Stanza, a), MustStatementID(Stanza, b))
	assert.Len(t, MustStatementID(Stanza, a), 64, "SHA-256 hex is 64 characters")
}

func TestStatementID_ChangesWithInput(t *testing.T) {
	x := Statement{Kind: KindDeclare, Name: "x"}
	y := Statement{Kind: KindDeclare, Name: "y"}

	assert.NotEqual(t, MustStatementID(Stanza, x), MustStatementID(Stanza, y))
	assert.NotEqual(t, MustStatementID(Stanza, x), MustStatementID(Dimacs, x))
}

func TestSourceDigest(t *testing.T) {
	assert.Equal(t, SourceDigest([]byte("check\n")), SourceDigest([]byte("check\n")))
	assert.NotEqual(t, SourceDigest([]byte("check\n")), SourceDigest([]byte("check")))
}

func TestParseLanguage(t *testing.T) {
	l, err := ParseLanguage("DIMACS")
	require.NoError(t, err)
	assert.Equal(t, Dimacs, l)

	_, err = ParseLanguage("smt2")
	assert.ErrorContains(t, err, "unknown language")
}

func TestLogicFile_Dir(t *testing.T) {
	assert.Equal(t, ".", LogicFile{Path: "-"}.Dir())
	assert.Equal(t, "in/sub", LogicFile{Path: "in/sub/a.stz"}.Dir())
}

func TestResponseFile_Flush(t *testing.T) {
	var buf bytes.Buffer
	rf := NewResponseFile("-", &buf)

	require.NoError(t, rf.WriteLine(context.Background(), "ok"))
	assert.Empty(t, buf.String(), "writes are buffered")

	require.NoError(t, rf.Flush())
	assert.Equal(t, "ok\n", buf.String())
	assert.NoError(t, ResponseFile{}.Flush())
}

func TestResponseFile_WriteLineAfterCancelIsDropped(t *testing.T) {
	var buf bytes.Buffer
	rf := NewResponseFile("-", &buf)
	errLimit := errors.New("time limit")

	ctx, cancel := context.WithCancelCause(context.Background())
	require.NoError(t, rf.WriteLine(ctx, "ok"))
	cancel(errLimit)

	assert.ErrorIs(t, rf.WriteLine(ctx, "late"), errLimit)
	require.NoError(t, rf.Flush())
	assert.Equal(t, "ok\n", buf.String())

	assert.Error(t, ResponseFile{}.WriteLine(context.Background(), "x"))
}

func TestResponseFile_ConcurrentWriteAndFlush(t *testing.T) {
	var buf bytes.Buffer
	rf := NewResponseFile("-", &buf)

	var wg sync.WaitGroup
	for range 4 {
		wg.Add(2)
		go func() {
			defer wg.Done()
			for range 50 {
				assert.NoError(t, rf.WriteLine(context.Background(), "ok"))
			}
		}()
		go func() {
			defer wg.Done()
			for range 50 {
				assert.NoError(t, rf.Flush())
			}
		}()
	}
	wg.Wait()
	require.NoError(t, rf.Flush())

	assert.Equal(t, strings.Repeat("ok\n", 200), buf.String())
}
