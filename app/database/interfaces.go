package database

import (
	"time"
)

type RecallRepository interface {
	UpsertRecall(recall Recall) error
	GetRecall(externalID string) (*Recall, error)
	GetRecentRecalls(since time.Time) ([]Recall, error)
	GetRecallCount() (int, error)
	GetRecallCountBySource() (map[string]int, error)
}

// ProductRepository reads the inventory owned by the external
// product-management component.
type ProductRepository interface {
	GetUserIDs() ([]string, error)
	GetProductsByUser(userID string) ([]Product, error)
	GetProductCount() (int, error)
}

type MatchRepository interface {
	// InsertMatch inserts a match unless the (product_id, recall_id) pair
	// already exists. Returns true when a new row was created.
	InsertMatch(match MatchedRecall) (bool, error)
	GetMatchCount() (int, error)
	GetMatchesByUser(userID string) ([]MatchedRecall, error)
	GetPendingNotifications(since time.Time, notificationType string) ([]PendingMatch, error)
}

type NotificationRepository interface {
	// MarkNotified records a notification, ignoring duplicates so a retried
	// batch never double-marks.
	MarkNotified(userID, recallID, notificationType string) error
	GetNotificationCount() (int, error)
}
