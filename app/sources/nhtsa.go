package sources

import (
	"context"
	"encoding/json"
	"fmt"
	"log/slog"
	"net/http"
	"strings"
	"time"

	"github.com/productsafe/recallwatch/app/database"
	"github.com/productsafe/recallwatch/app/normalize"
)

// NHTSAAdapter consumes the NHTSA recall campaigns API. The feed has no
// server-side date filter worth relying on, so the trailing window is
// applied client-side on the report date.
type NHTSAAdapter struct {
	config     *Config
	httpClient *http.Client
	userAgent  string
}

var _ Adapter = (*NHTSAAdapter)(nil)

func NewNHTSAAdapter(config *Config, httpClient *http.Client, userAgent string) *NHTSAAdapter {
	return &NHTSAAdapter{
		config:     config,
		httpClient: httpClient,
		userAgent:  userAgent,
	}
}

func (a *NHTSAAdapter) Source() string {
	return "nhtsa"
}

type nhtsaResponse struct {
	Results []nhtsaResult `json:"results"`
}

type nhtsaResult struct {
	CampaignNumber     string `json:"NHTSACampaignNumber"`
	Manufacturer       string `json:"Manufacturer"`
	Component          string `json:"Component"`
	Summary            string `json:"Summary"`
	Consequence        string `json:"Consequence"`
	ReportReceivedDate string `json:"ReportReceivedDate"`
}

func (a *NHTSAAdapter) Fetch(ctx context.Context) ([]database.Recall, error) {
	data, err := fetchURL(ctx, a.httpClient, a.config.URL, a.userAgent,
		time.Duration(a.config.Settings.Timeout)*time.Second)
	if err != nil {
		return nil, err
	}

	var response nhtsaResponse
	if err := json.Unmarshal(data, &response); err != nil {
		return nil, fmt.Errorf("failed to parse NHTSA response: %w", err)
	}

	cutoff := time.Now().UTC().AddDate(0, 0, -a.config.Settings.WindowDays)

	recalls := make([]database.Recall, 0, len(response.Results))
	for _, result := range response.Results {
		recall, err := a.mapResult(result)
		if err != nil {
			slog.Warn("Skipping malformed NHTSA record", "error", err)
			continue
		}
		if recall.PublishedDate.Before(cutoff) {
			continue
		}
		recalls = append(recalls, recall)
	}

	return recalls, nil
}

func (a *NHTSAAdapter) mapResult(result nhtsaResult) (database.Recall, error) {
	if result.CampaignNumber == "" {
		return database.Recall{}, fmt.Errorf("missing campaign number")
	}

	title := result.Component
	if result.Manufacturer != "" {
		title = strings.TrimSpace(result.Manufacturer + " " + result.Component)
	}

	now := time.Now().UTC()
	published := parseDateOr(result.ReportReceivedDate, now,
		"02/01/2006", "2006-01-02", "20060102")

	return database.Recall{
		ExternalID:      "nhtsa-" + result.CampaignNumber,
		Source:          a.Source(),
		Title:           title,
		Description:     strings.TrimSpace(result.Summary + " " + result.Consequence),
		Severity:        mapNHTSASeverity(result.Consequence),
		RecallDate:      published,
		PublishedDate:   published,
		ProductKeywords: normalize.ExtractKeywords(title+" "+result.Summary, normalize.DefaultMaxKeywords),
		BrandKeywords:   normalize.ExtractBrandKeywords(result.Manufacturer),
		UPCCodes:        []string{},
	}, nil
}

// mapNHTSASeverity derives severity from the free-text consequence field.
// The default here is low, not medium as with FDA. The asymmetry mirrors the
// data quality of the two feeds and is intentional; do not unify.
func mapNHTSASeverity(consequence string) database.Severity {
	lower := strings.ToLower(consequence)

	if strings.Contains(lower, "high") || strings.Contains(lower, "critical") {
		return database.SeverityHigh
	}
	if strings.Contains(lower, "medium") || strings.Contains(lower, "moderate") {
		return database.SeverityMedium
	}
	return database.SeverityLow
}
