package matching

import (
	"context"
	"fmt"
	"log/slog"
	"sync"
	"sync/atomic"
	"time"

	"github.com/productsafe/recallwatch/app/database"
)

// Engine correlates user inventories with the recall corpus. Matches are
// created exactly once per (product, recall) pair; re-running against an
// unchanged corpus is a no-op.
type Engine struct {
	recallRepo  database.RecallRepository
	productRepo database.ProductRepository
	matchRepo   database.MatchRepository
	windowDays  int
}

func NewEngine(recallRepo database.RecallRepository, productRepo database.ProductRepository,
	matchRepo database.MatchRepository, windowDays int) *Engine {
	return &Engine{
		recallRepo:  recallRepo,
		productRepo: productRepo,
		matchRepo:   matchRepo,
		windowDays:  windowDays,
	}
}

// FindMatches evaluates all of one user's products against the recent
// recall corpus and returns the number of newly created matches.
func (e *Engine) FindMatches(userID string) (int, error) {
	recalls, err := e.loadRecentRecalls()
	if err != nil {
		return 0, err
	}
	return e.findMatchesIn(userID, recalls)
}

// SweepResult summarizes one full matching pass over all users.
type SweepResult struct {
	UsersProcessed int
	UsersFailed    int
	NewMatches     int
}

// MatchAllUsers runs per-user matching across every user with products,
// bounded by workerCount concurrent workers. One user's failure is logged
// and counted; it never aborts the sweep. All workers evaluate against the
// same recall snapshot, loaded once up front.
func (e *Engine) MatchAllUsers(ctx context.Context, workerCount int) (SweepResult, error) {
	userIDs, err := e.productRepo.GetUserIDs()
	if err != nil {
		return SweepResult{}, fmt.Errorf("failed to list users: %w", err)
	}
	if len(userIDs) == 0 {
		return SweepResult{}, nil
	}

	recalls, err := e.loadRecentRecalls()
	if err != nil {
		return SweepResult{}, err
	}

	if workerCount < 1 {
		workerCount = 1
	}

	userChan := make(chan string)
	var processed, failed, created int64
	var wg sync.WaitGroup

	for i := 0; i < workerCount; i++ {
		wg.Add(1)
		go func() {
			defer wg.Done()
			for userID := range userChan {
				select {
				case <-ctx.Done():
					return
				default:
				}

				count, err := e.findMatchesIn(userID, recalls)
				if err != nil {
					slog.Error("Matching failed for user", "user_id", userID, "error", err)
					atomic.AddInt64(&failed, 1)
					continue
				}
				atomic.AddInt64(&processed, 1)
				atomic.AddInt64(&created, int64(count))
			}
		}()
	}

	for _, userID := range userIDs {
		select {
		case userChan <- userID:
		case <-ctx.Done():
			// Abandon the rest of the sweep; in-flight writes are atomic
			// single-row inserts so nothing is left half done.
		}
		if ctx.Err() != nil {
			break
		}
	}
	close(userChan)
	wg.Wait()

	return SweepResult{
		UsersProcessed: int(processed),
		UsersFailed:    int(failed),
		NewMatches:     int(created),
	}, ctx.Err()
}

func (e *Engine) loadRecentRecalls() ([]database.Recall, error) {
	since := time.Now().UTC().AddDate(0, 0, -e.windowDays)
	recalls, err := e.recallRepo.GetRecentRecalls(since)
	if err != nil {
		return nil, fmt.Errorf("failed to load recall corpus: %w", err)
	}
	return recalls, nil
}

func (e *Engine) findMatchesIn(userID string, recalls []database.Recall) (int, error) {
	products, err := e.productRepo.GetProductsByUser(userID)
	if err != nil {
		return 0, fmt.Errorf("failed to load products: %w", err)
	}

	created := 0
	for _, product := range products {
		signals := buildSignals(product)
		if signals.empty() {
			continue
		}

		for _, recall := range recalls {
			result := evaluate(signals, recall)
			if !result.matched {
				continue
			}

			inserted, err := e.matchRepo.InsertMatch(database.MatchedRecall{
				UserID:          userID,
				ProductID:       product.ID,
				RecallID:        recall.ID,
				MatchType:       result.matchType,
				ConfidenceScore: result.confidence,
			})
			if err != nil {
				return created, fmt.Errorf("failed to record match: %w", err)
			}
			if inserted {
				created++
				slog.Debug("Match created", "user_id", userID,
					"product_id", product.ID, "recall_id", recall.ID,
					"type", result.matchType, "confidence", result.confidence)
			}
		}
	}

	return created, nil
}
