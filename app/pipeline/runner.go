package pipeline

import (
	"context"
	"errors"
	"fmt"
	"log/slog"
	"sync"
	"time"

	"github.com/google/uuid"

	"github.com/productsafe/recallwatch/app/database"
	"github.com/productsafe/recallwatch/app/matching"
	"github.com/productsafe/recallwatch/app/notify"
	"github.com/productsafe/recallwatch/app/sources"
)

const (
	maxFetchRetries = 2
	maxRetryDelay   = 30 * time.Second
)

// ErrRunInProgress is returned when a run is triggered while another is
// still executing. Runs never overlap; the caller retries later.
var ErrRunInProgress = errors.New("pipeline run already in progress")

// Runner executes the full pipeline: concurrent source ingestion, the
// per-user matching sweep, then notification batching. Each stage is
// independently recoverable; only a fully unreachable store is fatal.
type Runner struct {
	adapters   []sources.Adapter
	recallRepo database.RecallRepository
	engine     *matching.Engine
	batcher    *notify.Batcher

	workerCount int
	runMu       sync.Mutex
}

func NewRunner(adapters []sources.Adapter, recallRepo database.RecallRepository,
	engine *matching.Engine, batcher *notify.Batcher, workerCount int) *Runner {
	return &Runner{
		adapters:    adapters,
		recallRepo:  recallRepo,
		engine:      engine,
		batcher:     batcher,
		workerCount: workerCount,
	}
}

func (r *Runner) Run(ctx context.Context) (*RunSummary, error) {
	if !r.runMu.TryLock() {
		return nil, ErrRunInProgress
	}
	defer r.runMu.Unlock()

	started := time.Now().UTC()
	summary := &RunSummary{
		RunID:     uuid.NewString(),
		StartedAt: started,
		Sources:   make(map[string]SourceResult, len(r.adapters)),
	}

	slog.Info("Pipeline run started", "run_id", summary.RunID, "sources", len(r.adapters))

	r.runIngestion(ctx, summary)

	if err := ctx.Err(); err != nil {
		summary.Duration = time.Since(started)
		return summary, err
	}

	sweep, err := r.engine.MatchAllUsers(ctx, r.workerCount)
	summary.UsersProcessed = sweep.UsersProcessed
	summary.UsersFailed = sweep.UsersFailed
	summary.NewMatches = sweep.NewMatches
	if err != nil {
		summary.Duration = time.Since(started)
		if errors.Is(err, context.Canceled) || errors.Is(err, context.DeadlineExceeded) {
			return summary, err
		}
		return summary, fmt.Errorf("matching sweep failed: %w", err)
	}

	notifyResult, err := r.batcher.SendPendingNotifications(ctx)
	summary.UsersNotified = notifyResult.UsersNotified
	summary.NotifyFailed = notifyResult.UsersFailed
	summary.NotificationsSent = notifyResult.NotificationsSent
	if err != nil {
		summary.Duration = time.Since(started)
		if errors.Is(err, context.Canceled) || errors.Is(err, context.DeadlineExceeded) {
			return summary, err
		}
		return summary, fmt.Errorf("notification batching failed: %w", err)
	}

	summary.Duration = time.Since(started)
	slog.Info("Pipeline run completed", "run_id", summary.RunID,
		"duration", summary.Duration, "users", summary.UsersProcessed,
		"new_matches", summary.NewMatches, "notified", summary.UsersNotified)

	return summary, nil
}

// runIngestion fetches all sources concurrently. Each source's failure is
// captured in the summary and never propagates; the other adapters keep
// running.
func (r *Runner) runIngestion(ctx context.Context, summary *RunSummary) {
	var mu sync.Mutex
	var wg sync.WaitGroup

	for _, adapter := range r.adapters {
		wg.Add(1)
		go func(adapter sources.Adapter) {
			defer wg.Done()

			count, err := r.syncSource(ctx, adapter)

			mu.Lock()
			defer mu.Unlock()
			if err != nil {
				slog.Error("Source sync failed", "source", adapter.Source(), "error", err)
				summary.Sources[adapter.Source()] = SourceResult{
					Success: false,
					Count:   0,
					Error:   err.Error(),
				}
				return
			}

			slog.Info("Source sync completed", "source", adapter.Source(), "count", count)
			summary.Sources[adapter.Source()] = SourceResult{Success: true, Count: count}
		}(adapter)
	}

	wg.Wait()
}

// syncSource fetches one source, retrying transient fetch failures with
// capped exponential backoff, then upserts every record. Store errors are
// not retried here; the next scheduled run picks up where this one left off
// since upserts are idempotent.
func (r *Runner) syncSource(ctx context.Context, adapter sources.Adapter) (int, error) {
	var lastErr error

	for attempt := 0; attempt <= maxFetchRetries; attempt++ {
		if attempt > 0 {
			delay := time.Duration(1<<uint(attempt-1)) * time.Second
			if delay > maxRetryDelay {
				delay = maxRetryDelay
			}
			select {
			case <-time.After(delay):
			case <-ctx.Done():
				return 0, ctx.Err()
			}
			slog.Debug("Retrying source fetch", "source", adapter.Source(), "attempt", attempt)
		}

		recalls, err := adapter.Fetch(ctx)
		if err != nil {
			lastErr = err
			continue
		}

		stored := 0
		for _, recall := range recalls {
			if err := r.recallRepo.UpsertRecall(recall); err != nil {
				return stored, fmt.Errorf("failed to store %s: %w", recall.ExternalID, err)
			}
			stored++
		}
		return stored, nil
	}

	return 0, lastErr
}
