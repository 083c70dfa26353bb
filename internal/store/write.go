package store

import (
	"context"
	"fmt"
)

// BeginRun records the start of a run.
// Uses ON CONFLICT(id) DO NOTHING for idempotency - a duplicate run ID keeps
// the first row.
func (s *Store) BeginRun(ctx context.Context, run Run) error {
	_, err := s.db.ExecContext(ctx, `
		INSERT INTO runs (id, source, digest, language, started_seq)
		VALUES (?, ?, ?, ?, ?)
		ON CONFLICT(id) DO NOTHING
	`, run.ID, run.Source, run.Digest, run.Language, run.StartedSeq)
	if err != nil {
		return fmt.Errorf("begin run: %w", err)
	}
	return nil
}

// RecordItem appends an item outcome. Recording the same (run_id, seq)
// again is silently ignored.
//
// Note: the run referenced by RunID must exist (foreign key constraint).
func (s *Store) RecordItem(ctx context.Context, item Item) error {
	_, err := s.db.ExecContext(ctx, `
		INSERT INTO items
		(run_id, seq, statement_id, kind, text, statement, status, stage, error, duration_ns)
		VALUES (?, ?, ?, ?, ?, ?, ?, ?, ?, ?)
		ON CONFLICT DO NOTHING
	`,
		item.RunID,
		item.Seq,
		item.StatementID,
		item.Kind,
		item.Text,
		item.Statement,
		string(item.Status),
		item.Stage,
		item.Error,
		int64(item.Duration),
	)
	if err != nil {
		return fmt.Errorf("record item: %w", err)
	}
	return nil
}
