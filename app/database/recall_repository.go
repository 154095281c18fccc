package database

import (
	"database/sql"
	"encoding/json"
	"fmt"
	"time"

	sq "github.com/Masterminds/squirrel"
	"github.com/google/uuid"
)

var recallColumns = []string{
	"id", "external_id", "source", "title", "description", "severity",
	"recall_date", "published_date", "product_keywords", "brand_keywords",
	"upc_codes", "created_at", "updated_at",
}

type SQLRecallRepository struct {
	db *DB
}

var _ RecallRepository = (*SQLRecallRepository)(nil)

func NewRecallRepository(db *DB) *SQLRecallRepository {
	return &SQLRecallRepository{db: db}
}

// UpsertRecall inserts a recall or, when the external_id already exists,
// updates the mutable fields and bumps updated_at. The original created_at
// is never touched, so repeated syncs of the same announcement keep the
// first-seen timestamp.
func (r *SQLRecallRepository) UpsertRecall(recall Recall) error {
	productKeywords, err := marshalTokens(recall.ProductKeywords)
	if err != nil {
		return fmt.Errorf("failed to encode product keywords: %w", err)
	}
	brandKeywords, err := marshalTokens(recall.BrandKeywords)
	if err != nil {
		return fmt.Errorf("failed to encode brand keywords: %w", err)
	}
	upcCodes, err := marshalTokens(recall.UPCCodes)
	if err != nil {
		return fmt.Errorf("failed to encode upc codes: %w", err)
	}

	now := time.Now().UTC()

	_, err = r.db.Exec(`
		INSERT INTO recalls (
			id, external_id, source, title, description, severity,
			recall_date, published_date, product_keywords, brand_keywords,
			upc_codes, created_at, updated_at
		) VALUES (?, ?, ?, ?, ?, ?, ?, ?, ?, ?, ?, ?, ?)
		ON CONFLICT (external_id) DO UPDATE SET
			title = excluded.title,
			description = excluded.description,
			severity = excluded.severity,
			recall_date = excluded.recall_date,
			published_date = excluded.published_date,
			product_keywords = excluded.product_keywords,
			brand_keywords = excluded.brand_keywords,
			upc_codes = excluded.upc_codes,
			updated_at = excluded.updated_at
	`, uuid.NewString(), recall.ExternalID, recall.Source, recall.Title,
		recall.Description, string(recall.Severity), recall.RecallDate.UTC(),
		recall.PublishedDate.UTC(), productKeywords, brandKeywords, upcCodes,
		now, now)

	if err != nil {
		return fmt.Errorf("failed to upsert recall: %w", err)
	}

	return nil
}

// GetRecall retrieves a recall by its source-qualified external ID.
func (r *SQLRecallRepository) GetRecall(externalID string) (*Recall, error) {
	query, args, err := sq.Select(recallColumns...).
		From("recalls").
		Where(sq.Eq{"external_id": externalID}).
		ToSql()
	if err != nil {
		return nil, fmt.Errorf("failed to build recall query: %w", err)
	}

	row := r.db.QueryRow(query, args...)
	recall, err := scanRecall(row.Scan)
	if err == sql.ErrNoRows {
		return nil, nil
	}
	if err != nil {
		return nil, fmt.Errorf("failed to get recall: %w", err)
	}

	return recall, nil
}

// GetRecentRecalls returns all recalls published on or after the given time,
// newest first. The matching engine evaluates its conditions against this
// snapshot in process, so the window bounds both query and scoring cost.
func (r *SQLRecallRepository) GetRecentRecalls(since time.Time) ([]Recall, error) {
	query, args, err := sq.Select(recallColumns...).
		From("recalls").
		Where(sq.GtOrEq{"published_date": since.UTC()}).
		OrderBy("published_date DESC").
		ToSql()
	if err != nil {
		return nil, fmt.Errorf("failed to build recent recalls query: %w", err)
	}

	rows, err := r.db.Query(query, args...)
	if err != nil {
		return nil, fmt.Errorf("failed to get recent recalls: %w", err)
	}
	defer rows.Close()

	var recalls []Recall
	for rows.Next() {
		recall, err := scanRecall(rows.Scan)
		if err != nil {
			return nil, fmt.Errorf("failed to scan recall row: %w", err)
		}
		recalls = append(recalls, *recall)
	}

	if err := rows.Err(); err != nil {
		return nil, fmt.Errorf("error iterating recall rows: %w", err)
	}

	return recalls, nil
}

// GetRecallCount returns the total number of stored recalls.
func (r *SQLRecallRepository) GetRecallCount() (int, error) {
	var count int
	err := r.db.QueryRow("SELECT COUNT(*) FROM recalls").Scan(&count)
	if err != nil {
		return 0, fmt.Errorf("failed to get recall count: %w", err)
	}
	return count, nil
}

// GetRecallCountBySource returns stored recall counts keyed by source.
func (r *SQLRecallRepository) GetRecallCountBySource() (map[string]int, error) {
	rows, err := r.db.Query("SELECT source, COUNT(*) FROM recalls GROUP BY source")
	if err != nil {
		return nil, fmt.Errorf("failed to get recall counts by source: %w", err)
	}
	defer rows.Close()

	counts := make(map[string]int)
	for rows.Next() {
		var source string
		var count int
		if err := rows.Scan(&source, &count); err != nil {
			return nil, fmt.Errorf("failed to scan recall count row: %w", err)
		}
		counts[source] = count
	}

	if err := rows.Err(); err != nil {
		return nil, fmt.Errorf("error iterating recall count rows: %w", err)
	}

	return counts, nil
}

func scanRecall(scan func(dest ...any) error) (*Recall, error) {
	var recall Recall
	var severity string
	var productKeywords, brandKeywords, upcCodes string

	err := scan(
		&recall.ID, &recall.ExternalID, &recall.Source, &recall.Title,
		&recall.Description, &severity, &recall.RecallDate,
		&recall.PublishedDate, &productKeywords, &brandKeywords, &upcCodes,
		&recall.CreatedAt, &recall.UpdatedAt,
	)
	if err != nil {
		return nil, err
	}

	recall.Severity = Severity(severity)
	if recall.ProductKeywords, err = unmarshalTokens(productKeywords); err != nil {
		return nil, fmt.Errorf("failed to decode product keywords: %w", err)
	}
	if recall.BrandKeywords, err = unmarshalTokens(brandKeywords); err != nil {
		return nil, fmt.Errorf("failed to decode brand keywords: %w", err)
	}
	if recall.UPCCodes, err = unmarshalTokens(upcCodes); err != nil {
		return nil, fmt.Errorf("failed to decode upc codes: %w", err)
	}

	return &recall, nil
}

func marshalTokens(tokens []string) (string, error) {
	if tokens == nil {
		tokens = []string{}
	}
	data, err := json.Marshal(tokens)
	if err != nil {
		return "", err
	}
	return string(data), nil
}

func unmarshalTokens(data string) ([]string, error) {
	if data == "" {
		return []string{}, nil
	}
	var tokens []string
	if err := json.Unmarshal([]byte(data), &tokens); err != nil {
		return nil, err
	}
	return tokens, nil
}
