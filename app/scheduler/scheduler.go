package scheduler

import (
	"context"
	"errors"
	"log/slog"
	"sync"
	"time"

	"github.com/productsafe/recallwatch/app/pipeline"
)

// PipelineRunner abstracts the pipeline trigger for testing.
type PipelineRunner interface {
	Run(ctx context.Context) (*pipeline.RunSummary, error)
}

// Scheduler triggers full pipeline runs on a fixed interval. It is optional;
// the primary trigger is the HTTP sync endpoint, and a zero interval
// disables the internal timer entirely.
type Scheduler struct {
	runner   PipelineRunner
	interval time.Duration
	ctx      context.Context
	cancel   context.CancelFunc
	wg       sync.WaitGroup
}

func NewScheduler(runner PipelineRunner, interval time.Duration) *Scheduler {
	ctx, cancel := context.WithCancel(context.Background())

	return &Scheduler{
		runner:   runner,
		interval: interval,
		ctx:      ctx,
		cancel:   cancel,
	}
}

func (s *Scheduler) Start() {
	if s.interval <= 0 {
		slog.Info("Internal scheduler disabled, pipeline runs on external trigger only")
		return
	}

	s.wg.Add(1)
	go func() {
		defer s.wg.Done()

		ticker := time.NewTicker(s.interval)
		defer ticker.Stop()

		s.runOnce()

		for {
			select {
			case <-s.ctx.Done():
				return
			case <-ticker.C:
				s.runOnce()
			}
		}
	}()

	slog.Info("Internal scheduler started", "interval", s.interval)
}

func (s *Scheduler) Stop() {
	s.cancel()
	s.wg.Wait()
}

func (s *Scheduler) runOnce() {
	summary, err := s.runner.Run(s.ctx)
	if err != nil {
		if errors.Is(err, pipeline.ErrRunInProgress) {
			slog.Warn("Skipping scheduled run, previous run still in progress")
			return
		}
		if errors.Is(err, context.Canceled) {
			return
		}
		slog.Error("Scheduled pipeline run failed", "error", err)
		return
	}

	slog.Info("Scheduled pipeline run finished", "run_id", summary.RunID,
		"duration", summary.Duration, "new_matches", summary.NewMatches)
}
