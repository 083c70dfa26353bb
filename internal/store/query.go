package store

import (
	"context"
	"fmt"

	"github.com/roach88/stanza/internal/queryir"
	"github.com/roach88/stanza/internal/querysql"
)

// QueryRuns returns the runs matching filter, oldest first. A nil filter
// matches every run.
func (s *Store) QueryRuns(ctx context.Context, filter queryir.Predicate) ([]Run, error) {
	query, params, err := querysql.NewSQLCompiler().Compile(queryir.Select{From: queryir.TableRuns, Filter: filter})
	if err != nil {
		return nil, err
	}
	rows, err := s.db.QueryContext(ctx, query, params...)
	if err != nil {
		return nil, fmt.Errorf("query runs: %w", err)
	}
	defer rows.Close()

	runs := []Run{}
	for rows.Next() {
		var r Run
		if err := rows.Scan(&r.ID, &r.Source, &r.Digest, &r.Language, &r.StartedSeq); err != nil {
			return nil, fmt.Errorf("scan run: %w", err)
		}
		runs = append(runs, r)
	}
	if err := rows.Err(); err != nil {
		return nil, fmt.Errorf("iterate runs: %w", err)
	}
	return runs, nil
}

// QueryItems returns the items matching filter, ordered by run and seq.
// A nil filter matches every item of the journal.
//
// Returns an empty slice (not nil) if nothing matches.
func (s *Store) QueryItems(ctx context.Context, filter queryir.Predicate) ([]Item, error) {
	query, params, err := querysql.NewSQLCompiler().Compile(queryir.Select{From: queryir.TableItems, Filter: filter})
	if err != nil {
		return nil, err
	}
	rows, err := s.db.QueryContext(ctx, query, params...)
	if err != nil {
		return nil, fmt.Errorf("query items: %w", err)
	}
	defer rows.Close()

	items := []Item{}
	for rows.Next() {
		item, err := scanItem(rows)
		if err != nil {
			return nil, err
		}
		items = append(items, item)
	}
	if err := rows.Err(); err != nil {
		return nil, fmt.Errorf("iterate items: %w", err)
	}
	return items, nil
}
