package notify

import (
	"context"
	"errors"
	"testing"
	"time"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"

	"github.com/productsafe/recallwatch/app/database"
)

type fakePendingRepo struct {
	pending []database.PendingMatch
}

func (f *fakePendingRepo) InsertMatch(database.MatchedRecall) (bool, error) { return false, nil }
func (f *fakePendingRepo) GetMatchCount() (int, error)                      { return 0, nil }
func (f *fakePendingRepo) GetMatchesByUser(string) ([]database.MatchedRecall, error) {
	return nil, nil
}

func (f *fakePendingRepo) GetPendingNotifications(since time.Time, notificationType string) ([]database.PendingMatch, error) {
	return f.pending, nil
}

type fakeNotificationRepo struct {
	marked map[string]bool
}

func newFakeNotificationRepo() *fakeNotificationRepo {
	return &fakeNotificationRepo{marked: make(map[string]bool)}
}

func (f *fakeNotificationRepo) MarkNotified(userID, recallID, notificationType string) error {
	f.marked[userID+"|"+recallID+"|"+notificationType] = true
	return nil
}

func (f *fakeNotificationRepo) GetNotificationCount() (int, error) {
	return len(f.marked), nil
}

type recordingSink struct {
	deliveries map[string][]Item
	calls      int
	failFor    string
}

func newRecordingSink() *recordingSink {
	return &recordingSink{deliveries: make(map[string][]Item)}
}

func (s *recordingSink) Deliver(_ context.Context, userID string, items []Item) error {
	s.calls++
	if userID == s.failFor {
		return errors.New("simulated delivery failure")
	}
	s.deliveries[userID] = items
	return nil
}

func pendingMatch(userID, recallID string, severity database.Severity, confidence float64) database.PendingMatch {
	return database.PendingMatch{
		UserID:          userID,
		RecallID:        recallID,
		ProductName:     "Product " + recallID,
		RecallTitle:     "Recall " + recallID,
		Severity:        severity,
		ConfidenceScore: confidence,
		MatchedAt:       time.Now().UTC(),
	}
}

func TestBatcher_DeliversPerUser(t *testing.T) {
	matchRepo := &fakePendingRepo{pending: []database.PendingMatch{
		pendingMatch("u1", "r1", database.SeverityLow, 0.65),
		pendingMatch("u1", "r2", database.SeverityHigh, 0.9),
		pendingMatch("u2", "r1", database.SeverityMedium, 0.7),
	}}
	notificationRepo := newFakeNotificationRepo()
	sink := newRecordingSink()

	batcher := NewBatcher(matchRepo, notificationRepo, sink, 24)

	result, err := batcher.SendPendingNotifications(context.Background())
	require.NoError(t, err)

	assert.Equal(t, 2, result.UsersNotified)
	assert.Equal(t, 0, result.UsersFailed)
	assert.Equal(t, 3, result.NotificationsSent)
	assert.Equal(t, 2, sink.calls)

	// Highest severity first for u1
	require.Len(t, sink.deliveries["u1"], 2)
	assert.Equal(t, "Recall r2", sink.deliveries["u1"][0].RecallTitle)
	assert.Equal(t, "Recall r1", sink.deliveries["u1"][1].RecallTitle)

	assert.True(t, notificationRepo.marked["u1|r1|recall_match"])
	assert.True(t, notificationRepo.marked["u1|r2|recall_match"])
	assert.True(t, notificationRepo.marked["u2|r1|recall_match"])
}

func TestBatcher_SortsByConfidenceWithinSeverity(t *testing.T) {
	matchRepo := &fakePendingRepo{pending: []database.PendingMatch{
		pendingMatch("u1", "r1", database.SeverityHigh, 0.65),
		pendingMatch("u1", "r2", database.SeverityHigh, 0.95),
		pendingMatch("u1", "r3", database.SeverityHigh, 0.80),
	}}
	sink := newRecordingSink()

	batcher := NewBatcher(matchRepo, newFakeNotificationRepo(), sink, 24)

	_, err := batcher.SendPendingNotifications(context.Background())
	require.NoError(t, err)

	items := sink.deliveries["u1"]
	require.Len(t, items, 3)
	assert.Equal(t, 0.95, items[0].Confidence)
	assert.Equal(t, 0.80, items[1].Confidence)
	assert.Equal(t, 0.65, items[2].Confidence)
}

func TestBatcher_FailedDeliveryNotMarked(t *testing.T) {
	matchRepo := &fakePendingRepo{pending: []database.PendingMatch{
		pendingMatch("u1", "r1", database.SeverityHigh, 0.9),
		pendingMatch("u2", "r1", database.SeverityHigh, 0.9),
	}}
	notificationRepo := newFakeNotificationRepo()
	sink := newRecordingSink()
	sink.failFor = "u1"

	batcher := NewBatcher(matchRepo, notificationRepo, sink, 24)

	result, err := batcher.SendPendingNotifications(context.Background())
	require.NoError(t, err)

	// u1's failure must not block u2 and must leave u1 unmarked for retry
	assert.Equal(t, 1, result.UsersNotified)
	assert.Equal(t, 1, result.UsersFailed)
	assert.False(t, notificationRepo.marked["u1|r1|recall_match"])
	assert.True(t, notificationRepo.marked["u2|r1|recall_match"])
}

func TestBatcher_NoPendingMeansNoDeliveries(t *testing.T) {
	sink := newRecordingSink()
	batcher := NewBatcher(&fakePendingRepo{}, newFakeNotificationRepo(), sink, 24)

	result, err := batcher.SendPendingNotifications(context.Background())
	require.NoError(t, err)

	assert.Zero(t, result.UsersNotified)
	assert.Zero(t, sink.calls)
}

func TestBatcher_MarksDistinctRecallsOnce(t *testing.T) {
	// Two products matching the same recall produce two items but one
	// notification record
	matchRepo := &fakePendingRepo{pending: []database.PendingMatch{
		pendingMatch("u1", "r1", database.SeverityHigh, 0.9),
		pendingMatch("u1", "r1", database.SeverityMedium, 0.7),
	}}
	notificationRepo := newFakeNotificationRepo()
	sink := newRecordingSink()

	batcher := NewBatcher(matchRepo, notificationRepo, sink, 24)

	result, err := batcher.SendPendingNotifications(context.Background())
	require.NoError(t, err)

	assert.Len(t, sink.deliveries["u1"], 2)
	assert.Equal(t, 2, result.NotificationsSent)

	count, _ := notificationRepo.GetNotificationCount()
	assert.Equal(t, 1, count)
}
