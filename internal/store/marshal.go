package store

import (
	"fmt"
	"time"

	"github.com/roach88/stanza/internal/ir"
)

// Status is the outcome of an item.
type Status string

const (
	StatusOK     Status = "ok"
	StatusFailed Status = "failed"
)

// Run is one invocation of the run loop over one source.
type Run struct {
	ID         string `json:"id"`
	Source     string `json:"source"`
	Digest     string `json:"digest"`
	Language   string `json:"language"`
	StartedSeq int64  `json:"started_seq"`
}

// Item is the recorded outcome of one top-level item.
type Item struct {
	RunID       string        `json:"run_id"`
	Seq         int64         `json:"seq"`
	StatementID string        `json:"statement_id,omitempty"`
	Kind        string        `json:"kind,omitempty"`
	Text        string        `json:"text,omitempty"`
	Statement   string        `json:"statement,omitempty"`
	Status      Status        `json:"status"`
	Stage       string        `json:"stage,omitempty"`
	Error       string        `json:"error,omitempty"`
	Duration    time.Duration `json:"duration_ns"`
}

// NewItem builds the journal row for a statement. A nil stmt records an
// item whose pull failed.
func NewItem(runID string, seq int64, lang ir.Language, stmt *ir.Statement, d time.Duration, failErr error, stage string) (Item, error) {
	item := Item{RunID: runID, Seq: seq, Status: StatusOK, Duration: d}
	if failErr != nil {
		item.Status = StatusFailed
		item.Stage = stage
		item.Error = failErr.Error()
	}
	if stmt == nil {
		return item, nil
	}

	id, err := ir.StatementID(lang, *stmt)
	if err != nil {
		return Item{}, fmt.Errorf("statement id: %w", err)
	}
	canonical, err := marshalStatement(*stmt)
	if err != nil {
		return Item{}, err
	}
	item.StatementID = id
	item.Kind = string(stmt.Kind)
	item.Text = stmt.String()
	item.Statement = canonical
	return item, nil
}

// marshalStatement converts a statement to canonical JSON TEXT for storage.
func marshalStatement(stmt ir.Statement) (string, error) {
	data, err := ir.MarshalCanonical(stmt.Canonical())
	if err != nil {
		return "", fmt.Errorf("marshal statement: %w", err)
	}
	return string(data), nil
}
