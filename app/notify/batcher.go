package notify

import (
	"context"
	"fmt"
	"log/slog"
	"sort"
	"time"

	"github.com/productsafe/recallwatch/app/database"
)

// Batcher aggregates unnotified matches per user within a rolling window and
// hands each batch to the delivery sink exactly once. Notification records
// are written only after the sink reports success, so a failed user's batch
// is retried whole on the next run.
type Batcher struct {
	matchRepo        database.MatchRepository
	notificationRepo database.NotificationRepository
	sink             Sink
	windowHours      int
}

func NewBatcher(matchRepo database.MatchRepository, notificationRepo database.NotificationRepository,
	sink Sink, windowHours int) *Batcher {
	return &Batcher{
		matchRepo:        matchRepo,
		notificationRepo: notificationRepo,
		sink:             sink,
		windowHours:      windowHours,
	}
}

// Result summarizes one batching pass.
type Result struct {
	UsersNotified     int
	UsersFailed       int
	NotificationsSent int
}

// SendPendingNotifications finds matches created within the rolling window
// that have no notification record yet, groups them per user, delivers each
// batch sorted by severity then confidence, and marks the delivered pairs.
func (b *Batcher) SendPendingNotifications(ctx context.Context) (Result, error) {
	since := time.Now().UTC().Add(-time.Duration(b.windowHours) * time.Hour)

	pending, err := b.matchRepo.GetPendingNotifications(since, database.NotificationTypeRecallMatch)
	if err != nil {
		return Result{}, fmt.Errorf("failed to load pending notifications: %w", err)
	}
	if len(pending) == 0 {
		return Result{}, nil
	}

	byUser := make(map[string][]database.PendingMatch)
	userOrder := make([]string, 0)
	for _, match := range pending {
		if _, seen := byUser[match.UserID]; !seen {
			userOrder = append(userOrder, match.UserID)
		}
		byUser[match.UserID] = append(byUser[match.UserID], match)
	}

	var result Result
	for _, userID := range userOrder {
		select {
		case <-ctx.Done():
			return result, ctx.Err()
		default:
		}

		matches := byUser[userID]
		if err := b.notifyUser(ctx, userID, matches); err != nil {
			slog.Error("Notification delivery failed for user", "user_id", userID,
				"pending", len(matches), "error", err)
			result.UsersFailed++
			continue
		}

		result.UsersNotified++
		result.NotificationsSent += len(matches)
	}

	return result, nil
}

func (b *Batcher) notifyUser(ctx context.Context, userID string, matches []database.PendingMatch) error {
	// Highest-priority items first: severity, then confidence
	sort.SliceStable(matches, func(i, j int) bool {
		if matches[i].Severity.Rank() != matches[j].Severity.Rank() {
			return matches[i].Severity.Rank() > matches[j].Severity.Rank()
		}
		return matches[i].ConfidenceScore > matches[j].ConfidenceScore
	})

	items := make([]Item, 0, len(matches))
	for _, match := range matches {
		items = append(items, Item{
			ProductName:       match.ProductName,
			RecallTitle:       match.RecallTitle,
			RecallDescription: match.RecallDesc,
			Severity:          string(match.Severity),
			Confidence:        match.ConfidenceScore,
		})
	}

	if err := b.sink.Deliver(ctx, userID, items); err != nil {
		return err
	}

	// Mark each distinct (user, recall) pair; duplicates within the batch
	// collapse into one record, and conflicts from retries are ignored.
	marked := make(map[string]bool, len(matches))
	for _, match := range matches {
		if marked[match.RecallID] {
			continue
		}
		marked[match.RecallID] = true

		if err := b.notificationRepo.MarkNotified(userID, match.RecallID, database.NotificationTypeRecallMatch); err != nil {
			return fmt.Errorf("delivered but failed to mark notification: %w", err)
		}
	}

	slog.Info("Notification batch delivered", "user_id", userID, "items", len(items))
	return nil
}
