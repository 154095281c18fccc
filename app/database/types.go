package database

import (
	"time"
)

// Severity is the normalized recall severity ordering used to prioritize
// notification content. Derivation rules are source specific.
type Severity string

const (
	SeverityLow    Severity = "low"
	SeverityMedium Severity = "medium"
	SeverityHigh   Severity = "high"
)

// Rank maps a severity to a sortable weight. Unknown values sort lowest.
func (s Severity) Rank() int {
	switch s {
	case SeverityHigh:
		return 3
	case SeverityMedium:
		return 2
	case SeverityLow:
		return 1
	default:
		return 0
	}
}

type Recall struct {
	ID              string // Database UUID
	ExternalID      string // Source-qualified natural key, unique across syncs
	Source          string // Source identifier, e.g. "fda", "cpsc", "nhtsa"
	Title           string
	Description     string
	Severity        Severity
	RecallDate      time.Time
	PublishedDate   time.Time
	ProductKeywords []string
	BrandKeywords   []string
	UPCCodes        []string
	CreatedAt       time.Time
	UpdatedAt       time.Time
}

// Product rows are owned by the external product-management component and
// are read-only from this subsystem's perspective.
type Product struct {
	ID             string
	UserID         string
	Name           string
	Brand          string
	UPC            string
	NormalizedName string
	CreatedAt      time.Time
}

// MatchedRecall links one product to one recall for one user. Confidence is
// fixed at creation time; acknowledged/resolved timestamps are set by the
// external UI layer, never here.
type MatchedRecall struct {
	ID              string
	UserID          string
	ProductID       string
	RecallID        string
	MatchType       string // upc, brand, keyword or combined
	ConfidenceScore float64
	AcknowledgedAt  *time.Time
	ResolvedAt      *time.Time
	CreatedAt       time.Time
}

const NotificationTypeRecallMatch = "recall_match"

// Notification marks that a user has been informed of a specific recall.
// Created only after a successful delivery-sink invocation.
type Notification struct {
	ID       string
	UserID   string
	RecallID string
	Type     string
	SentAt   time.Time
}

// PendingMatch is one unnotified match joined with its product and recall
// context, ready for batch assembly.
type PendingMatch struct {
	UserID          string
	RecallID        string
	ProductName     string
	RecallTitle     string
	RecallDesc      string
	Severity        Severity
	ConfidenceScore float64
	MatchedAt       time.Time
}
