package store

import (
	"context"
	"database/sql"
	"fmt"
	"time"

	"github.com/roach88/stanza/internal/ir"
	"github.com/roach88/stanza/internal/queryir"
)

// ListRuns returns every run, oldest first.
// Ordering: started_seq ASC, id ASC COLLATE BINARY.
//
// Returns an empty slice (not nil) if the journal is empty.
func (s *Store) ListRuns(ctx context.Context) ([]Run, error) {
	return s.QueryRuns(ctx, nil)
}

// ReadRun retrieves a single run by ID.
// Returns sql.ErrNoRows if not found.
func (s *Store) ReadRun(ctx context.Context, id string) (Run, error) {
	var r Run
	err := s.db.QueryRowContext(ctx, `
		SELECT id, source, digest, language, started_seq
		FROM runs
		WHERE id = ?
	`, id).Scan(&r.ID, &r.Source, &r.Digest, &r.Language, &r.StartedSeq)
	if err != nil {
		return Run{}, fmt.Errorf("read run %s: %w", id, err)
	}
	return r, nil
}

// ListItems returns the items of a run in seq order.
//
// Returns an empty slice (not nil) if the run recorded no item.
func (s *Store) ListItems(ctx context.Context, runID string) ([]Item, error) {
	return s.QueryItems(ctx, queryir.Equals{Field: "run_id", Value: ir.String(runID)})
}

// LastSeq returns the highest seq recorded in the journal, 0 when empty. A
// new run continues numbering after it.
func (s *Store) LastSeq(ctx context.Context) (int64, error) {
	var seq sql.NullInt64
	err := s.db.QueryRowContext(ctx, `
		SELECT MAX(seq) FROM (
			SELECT seq FROM items
			UNION ALL
			SELECT started_seq - 1 FROM runs
		)
	`).Scan(&seq)
	if err != nil {
		return 0, fmt.Errorf("last seq: %w", err)
	}
	if !seq.Valid || seq.Int64 < 0 {
		return 0, nil
	}
	return seq.Int64, nil
}

// CountItems returns how many items of a run succeeded and failed.
func (s *Store) CountItems(ctx context.Context, runID string) (ok, failed int, err error) {
	err = s.db.QueryRowContext(ctx, `
		SELECT
			COUNT(CASE WHEN status = 'ok' THEN 1 END),
			COUNT(CASE WHEN status = 'failed' THEN 1 END)
		FROM items
		WHERE run_id = ?
	`, runID).Scan(&ok, &failed)
	if err != nil {
		return 0, 0, fmt.Errorf("count items: %w", err)
	}
	return ok, failed, nil
}

func scanItem(rows *sql.Rows) (Item, error) {
	var (
		item     Item
		status   string
		duration int64
	)
	err := rows.Scan(
		&item.RunID,
		&item.Seq,
		&item.StatementID,
		&item.Kind,
		&item.Text,
		&item.Statement,
		&status,
		&item.Stage,
		&item.Error,
		&duration,
	)
	if err != nil {
		return Item{}, fmt.Errorf("scan item: %w", err)
	}
	item.Status = Status(status)
	item.Duration = time.Duration(duration)
	return item, nil
}
