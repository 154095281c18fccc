package database

import (
	"fmt"
	"time"

	sq "github.com/Masterminds/squirrel"
	"github.com/google/uuid"
)

type SQLMatchRepository struct {
	db *DB
}

var _ MatchRepository = (*SQLMatchRepository)(nil)

func NewMatchRepository(db *DB) *SQLMatchRepository {
	return &SQLMatchRepository{db: db}
}

// InsertMatch creates a matched recall unless the (product_id, recall_id)
// pair already exists. The unique constraint is the idempotence guard, so
// concurrent sweeps over the same corpus cannot double-insert. Returns true
// when a new row was created.
func (r *SQLMatchRepository) InsertMatch(match MatchedRecall) (bool, error) {
	result, err := r.db.Exec(`
		INSERT INTO matched_recalls (
			id, user_id, product_id, recall_id, match_type,
			confidence_score, created_at
		) VALUES (?, ?, ?, ?, ?, ?, ?)
		ON CONFLICT (product_id, recall_id) DO NOTHING
	`, uuid.NewString(), match.UserID, match.ProductID, match.RecallID,
		match.MatchType, match.ConfidenceScore, time.Now().UTC())

	if err != nil {
		return false, fmt.Errorf("failed to insert match: %w", err)
	}

	affected, err := result.RowsAffected()
	if err != nil {
		return false, fmt.Errorf("failed to read insert result: %w", err)
	}

	return affected > 0, nil
}

func (r *SQLMatchRepository) GetMatchCount() (int, error) {
	var count int
	err := r.db.QueryRow("SELECT COUNT(*) FROM matched_recalls").Scan(&count)
	if err != nil {
		return 0, fmt.Errorf("failed to get match count: %w", err)
	}
	return count, nil
}

func (r *SQLMatchRepository) GetMatchesByUser(userID string) ([]MatchedRecall, error) {
	rows, err := r.db.Query(`
		SELECT id, user_id, product_id, recall_id, match_type,
		       confidence_score, acknowledged_at, resolved_at, created_at
		FROM matched_recalls
		WHERE user_id = ?
		ORDER BY created_at DESC
	`, userID)
	if err != nil {
		return nil, fmt.Errorf("failed to get matches for user: %w", err)
	}
	defer rows.Close()

	var matches []MatchedRecall
	for rows.Next() {
		var match MatchedRecall
		err := rows.Scan(
			&match.ID, &match.UserID, &match.ProductID, &match.RecallID,
			&match.MatchType, &match.ConfidenceScore,
			&match.AcknowledgedAt, &match.ResolvedAt, &match.CreatedAt,
		)
		if err != nil {
			return nil, fmt.Errorf("failed to scan match row: %w", err)
		}
		matches = append(matches, match)
	}

	if err := rows.Err(); err != nil {
		return nil, fmt.Errorf("error iterating match rows: %w", err)
	}

	return matches, nil
}

// GetPendingNotifications returns matches created at or after the given time
// for which no notification of the given type has been recorded, joined with
// their product and recall context.
func (r *SQLMatchRepository) GetPendingNotifications(since time.Time, notificationType string) ([]PendingMatch, error) {
	query, args, err := sq.Select(
		"m.user_id", "m.recall_id", "p.name", "r.title", "r.description",
		"r.severity", "m.confidence_score", "m.created_at").
		From("matched_recalls m").
		Join("products p ON p.id = m.product_id").
		Join("recalls r ON r.id = m.recall_id").
		LeftJoin("notifications n ON n.user_id = m.user_id AND n.recall_id = m.recall_id AND n.type = ?", notificationType).
		Where(sq.GtOrEq{"m.created_at": since.UTC()}).
		Where(sq.Eq{"n.id": nil}).
		OrderBy("m.user_id", "m.created_at").
		ToSql()
	if err != nil {
		return nil, fmt.Errorf("failed to build pending notifications query: %w", err)
	}

	rows, err := r.db.Query(query, args...)
	if err != nil {
		return nil, fmt.Errorf("failed to get pending notifications: %w", err)
	}
	defer rows.Close()

	var pending []PendingMatch
	for rows.Next() {
		var p PendingMatch
		var severity string
		err := rows.Scan(
			&p.UserID, &p.RecallID, &p.ProductName, &p.RecallTitle,
			&p.RecallDesc, &severity, &p.ConfidenceScore, &p.MatchedAt,
		)
		if err != nil {
			return nil, fmt.Errorf("failed to scan pending notification row: %w", err)
		}
		p.Severity = Severity(severity)
		pending = append(pending, p)
	}

	if err := rows.Err(); err != nil {
		return nil, fmt.Errorf("error iterating pending notification rows: %w", err)
	}

	return pending, nil
}
