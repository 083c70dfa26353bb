package engine

import (
	"context"
	"log/slog"
	"time"
)

// logObserver traces every stage at debug level.
type logObserver struct {
	runID string
	seq   int64
}

func (o logObserver) BeforeStage(_ context.Context, stage string, depth int) {
	slog.Debug("stage starting", "run_id", o.runID, "seq", o.seq, "stage", stage, "depth", depth)
}

func (o logObserver) AfterStage(_ context.Context, stage string, depth int, err error, d time.Duration) {
	if err != nil {
		slog.Debug("stage failed", "run_id", o.runID, "seq", o.seq, "stage", stage, "depth", depth, "duration", d, "error", err)
		return
	}
	slog.Debug("stage done", "run_id", o.runID, "seq", o.seq, "stage", stage, "depth", depth, "duration", d)
}
