package database

import (
	"fmt"
	"time"

	"github.com/google/uuid"
)

type SQLNotificationRepository struct {
	db *DB
}

var _ NotificationRepository = (*SQLNotificationRepository)(nil)

func NewNotificationRepository(db *DB) *SQLNotificationRepository {
	return &SQLNotificationRepository{db: db}
}

// MarkNotified records that the user was informed of the recall. Conflicts
// on (user_id, recall_id, type) are ignored so retried batches never
// double-mark.
func (r *SQLNotificationRepository) MarkNotified(userID, recallID, notificationType string) error {
	_, err := r.db.Exec(`
		INSERT INTO notifications (id, user_id, recall_id, type, sent_at)
		VALUES (?, ?, ?, ?, ?)
		ON CONFLICT (user_id, recall_id, type) DO NOTHING
	`, uuid.NewString(), userID, recallID, notificationType, time.Now().UTC())

	if err != nil {
		return fmt.Errorf("failed to mark notification: %w", err)
	}

	return nil
}

func (r *SQLNotificationRepository) GetNotificationCount() (int, error) {
	var count int
	err := r.db.QueryRow("SELECT COUNT(*) FROM notifications").Scan(&count)
	if err != nil {
		return 0, fmt.Errorf("failed to get notification count: %w", err)
	}
	return count, nil
}
