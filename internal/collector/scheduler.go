package collector

import (
	"context"
	"time"

	"github.com/rs/zerolog/log"
	"github.com/telemon/telemon/internal/alerting/model"
)

// Source produces one metric snapshot per evaluation cycle.
type Source interface {
	Snapshot(ctx context.Context) model.Snapshot
}

// Evaluator is the engine entry point the scheduler drives.
type Evaluator interface {
	Evaluate(ctx context.Context, snapshot model.Snapshot) []*model.Alert
}

// Deps holds the scheduler dependencies.
type Deps struct {
	Source   Source
	Engine   Evaluator
	Interval time.Duration
}

// StartScheduler runs the monitoring loop: every interval it collects a
// snapshot and hands it to the engine for one evaluation cycle. The engine
// itself stays schedule-free; this loop is its external driver. Blocks until
// ctx is cancelled.
func StartScheduler(ctx context.Context, deps Deps) {
	if deps.Interval <= 0 {
		deps.Interval = 30 * time.Second
	}
	log.Info().Dur("interval", deps.Interval).Msg("starting monitoring scheduler")

	t := time.NewTicker(deps.Interval)
	defer t.Stop()
	for {
		select {
		case <-ctx.Done():
			log.Info().Msg("monitoring scheduler stopped")
			return
		case <-t.C:
			snap := deps.Source.Snapshot(ctx)
			if len(snap) == 0 {
				log.Warn().Msg("empty metric snapshot, skipping evaluation cycle")
				continue
			}
			fired := deps.Engine.Evaluate(ctx, snap)
			if len(fired) > 0 {
				log.Info().Int("count", len(fired)).Msg("evaluation cycle fired alerts")
			}
		}
	}
}
