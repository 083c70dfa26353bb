package pipeline

import (
	"context"
	"time"
)

// Observer receives a callback around every stage application. depth is the
// fixpoint nesting level at which the stage runs (0 at top level).
type Observer interface {
	BeforeStage(ctx context.Context, stage string, depth int)
	AfterStage(ctx context.Context, stage string, depth int, err error, d time.Duration)
}

// Observers fans callbacks out to several observers in order. Nil entries
// are skipped.
func Observers(obs ...Observer) Observer {
	list := make(multiObserver, 0, len(obs))
	for _, o := range obs {
		if o != nil {
			list = append(list, o)
		}
	}
	return list
}

type multiObserver []Observer

func (m multiObserver) BeforeStage(ctx context.Context, stage string, depth int) {
	for _, o := range m {
		o.BeforeStage(ctx, stage, depth)
	}
}

func (m multiObserver) AfterStage(ctx context.Context, stage string, depth int, err error, d time.Duration) {
	for _, o := range m {
		o.AfterStage(ctx, stage, depth, err, d)
	}
}
