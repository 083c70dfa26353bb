package querysql

import (
	"testing"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"

	"github.com/roach88/stanza/internal/ir"
	"github.com/roach88/stanza/internal/queryir"
)

func TestCompile_SimpleSelect(t *testing.T) {
	compiler := NewSQLCompiler()

	query := queryir.Select{
		From:    queryir.TableItems,
		Columns: []string{"seq", "status"},
		Filter:  queryir.Equals{Field: "run_id", Value: ir.String("run-1")},
	}

	sql, params, err := compiler.Compile(query)
	require.NoError(t, err)

	assert.Equal(t, "SELECT seq, status FROM items WHERE run_id = ? ORDER BY run_id COLLATE BINARY ASC, seq ASC", sql)
	assert.NotContains(t, sql, "run-1")
	assert.Equal(t, []any{"run-1"}, params)
}

func TestCompile_AllColumnsByDefault(t *testing.T) {
	sql, params, err := NewSQLCompiler().Compile(&queryir.Select{From: queryir.TableRuns})
	require.NoError(t, err)

	assert.Equal(t, "SELECT id, source, digest, language, started_seq FROM runs ORDER BY started_seq ASC, id COLLATE BINARY ASC", sql)
	assert.Empty(t, params)
}

func TestCompile_Conjunction(t *testing.T) {
	query := queryir.Select{
		From:    queryir.TableItems,
		Columns: []string{"seq"},
		Filter: queryir.And{Predicates: []queryir.Predicate{
			queryir.Equals{Field: "run_id", Value: ir.String("run-1")},
			queryir.In{Field: "kind", Values: queryir.Strings([]string{"include", "assert"})},
			&queryir.Equals{Field: "seq", Value: ir.Int(2)},
			queryir.And{Predicates: []queryir.Predicate{
				queryir.Equals{Field: "status", Value: ir.String("failed")},
				queryir.Equals{Field: "stage", Value: ir.String("expand-includes")},
			}},
		}},
	}

	sql, params, err := NewSQLCompiler().Compile(query)
	require.NoError(t, err)

	assert.Equal(t,
		"SELECT seq FROM items WHERE run_id = ? AND kind IN (?, ?) AND seq = ? AND (status = ? AND stage = ?) ORDER BY run_id COLLATE BINARY ASC, seq ASC",
		sql)
	assert.Equal(t, []any{"run-1", "include", "assert", int64(2), "failed", "expand-includes"}, params)
}

func TestCompile_EmptyAnd(t *testing.T) {
	sql, params, err := NewSQLCompiler().Compile(queryir.Select{From: queryir.TableItems, Columns: []string{"seq"}, Filter: queryir.And{}})
	require.NoError(t, err)

	assert.Contains(t, sql, "WHERE 1 = 1")
	assert.Empty(t, params)
}

func TestCompile_BoolParam(t *testing.T) {
	_, params, err := NewSQLCompiler().Compile(queryir.Select{
		From:   queryir.TableRuns,
		Filter: queryir.Equals{Field: "language", Value: ir.Bool(true)},
	})
	require.NoError(t, err)
	assert.Equal(t, []any{true}, params)
}

func TestCompile_RejectsInvalid(t *testing.T) {
	tests := []struct {
		name    string
		query   queryir.Query
		wantErr string
	}{
		{"nil", nil, "nil query"},
		{"unknown table", queryir.Select{From: "items; DROP TABLE runs"}, "unknown table"},
		{"unknown column", queryir.Select{From: queryir.TableItems, Columns: []string{"1; --"}}, "unknown column"},
		{"non-scalar", queryir.Select{From: queryir.TableItems, Filter: queryir.Equals{Field: "kind", Value: ir.Object{}}}, "only scalars"},
	}
	for _, tt := range tests {
		t.Run(tt.name, func(t *testing.T) {
			sql, params, err := NewSQLCompiler().Compile(tt.query)

			require.Error(t, err)
			assert.Contains(t, err.Error(), tt.wantErr)
			assert.Empty(t, sql)
			assert.Nil(t, params)
		})
	}
}

func TestCompile_Deterministic(t *testing.T) {
	query := queryir.Select{
		From:   queryir.TableItems,
		Filter: queryir.In{Field: "status", Values: queryir.Strings([]string{"ok", "failed"})},
	}
	first, _, err := NewSQLCompiler().Compile(query)
	require.NoError(t, err)
	for i := 0; i < 10; i++ {
		sql, _, err := NewSQLCompiler().Compile(query)
		require.NoError(t, err)
		assert.Equal(t, first, sql)
	}
}
