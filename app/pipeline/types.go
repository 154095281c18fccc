package pipeline

import (
	"time"
)

// SourceResult reports one adapter's outcome within a run. A failed source
// contributes zero records and an error message; it never fails the run.
type SourceResult struct {
	Success bool   `json:"success"`
	Count   int    `json:"count"`
	Error   string `json:"error,omitempty"`
}

// RunSummary is the structured result of one full pipeline run.
type RunSummary struct {
	RunID     string                  `json:"run_id"`
	StartedAt time.Time               `json:"started_at"`
	Duration  time.Duration           `json:"duration"`
	Sources   map[string]SourceResult `json:"sources"`

	UsersProcessed int `json:"users_processed"`
	UsersFailed    int `json:"users_failed"`
	NewMatches     int `json:"new_matches"`

	UsersNotified     int `json:"users_notified"`
	NotifyFailed      int `json:"notify_failed"`
	NotificationsSent int `json:"notifications_sent"`
}
