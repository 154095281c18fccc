package sources

import (
	"context"
	"encoding/json"
	"fmt"
	"log/slog"
	"net/http"
	"net/url"
	"regexp"
	"strings"
	"time"

	"github.com/productsafe/recallwatch/app/database"
	"github.com/productsafe/recallwatch/app/normalize"
)

// FDAAdapter consumes the openFDA enforcement API. One JSON document per
// sync, windowed on report_date through the search query.
type FDAAdapter struct {
	config     *Config
	httpClient *http.Client
	userAgent  string
}

var _ Adapter = (*FDAAdapter)(nil)

func NewFDAAdapter(config *Config, httpClient *http.Client, userAgent string) *FDAAdapter {
	return &FDAAdapter{
		config:     config,
		httpClient: httpClient,
		userAgent:  userAgent,
	}
}

func (a *FDAAdapter) Source() string {
	return "fda"
}

type fdaResponse struct {
	Results []fdaResult `json:"results"`
}

type fdaResult struct {
	RecallNumber       string `json:"recall_number"`
	ProductDescription string `json:"product_description"`
	ReasonForRecall    string `json:"reason_for_recall"`
	Classification     string `json:"classification"`
	RecallingFirm      string `json:"recalling_firm"`
	ReportDate         string `json:"report_date"`
	RecallInitDate     string `json:"recall_initiation_date"`
	CodeInfo           string `json:"code_info"`
}

func (a *FDAAdapter) Fetch(ctx context.Context) ([]database.Recall, error) {
	data, err := fetchURL(ctx, a.httpClient, a.buildURL(), a.userAgent,
		time.Duration(a.config.Settings.Timeout)*time.Second)
	if err != nil {
		return nil, err
	}

	var response fdaResponse
	if err := json.Unmarshal(data, &response); err != nil {
		return nil, fmt.Errorf("failed to parse FDA response: %w", err)
	}

	recalls := make([]database.Recall, 0, len(response.Results))
	for _, result := range response.Results {
		recall, err := a.mapResult(result)
		if err != nil {
			slog.Warn("Skipping malformed FDA record", "error", err)
			continue
		}
		recalls = append(recalls, recall)
	}

	return recalls, nil
}

func (a *FDAAdapter) buildURL() string {
	end := time.Now().UTC()
	start := end.AddDate(0, 0, -a.config.Settings.WindowDays)

	search := fmt.Sprintf("report_date:[%s TO %s]",
		start.Format("20060102"), end.Format("20060102"))

	params := url.Values{}
	params.Set("search", search)
	params.Set("limit", "100")

	return a.config.URL + "?" + params.Encode()
}

func (a *FDAAdapter) mapResult(result fdaResult) (database.Recall, error) {
	if result.RecallNumber == "" {
		return database.Recall{}, fmt.Errorf("missing recall number")
	}

	now := time.Now().UTC()
	return database.Recall{
		ExternalID:      "fda-" + result.RecallNumber,
		Source:          a.Source(),
		Title:           result.ProductDescription,
		Description:     result.ReasonForRecall,
		Severity:        mapFDASeverity(result.Classification),
		RecallDate:      parseDateOr(result.RecallInitDate, now, "20060102"),
		PublishedDate:   parseDateOr(result.ReportDate, now, "20060102"),
		ProductKeywords: normalize.ExtractKeywords(result.ProductDescription, normalize.DefaultMaxKeywords),
		BrandKeywords:   normalize.ExtractBrandKeywords(result.RecallingFirm),
		UPCCodes:        extractUPCCodes(result.CodeInfo),
	}, nil
}

// mapFDASeverity derives severity from the FDA classification field.
// Unrecognized classifications default to medium, logged as unknown rather
// than treated as an error.
func mapFDASeverity(classification string) database.Severity {
	switch strings.ToLower(strings.TrimSpace(classification)) {
	case "class i":
		return database.SeverityHigh
	case "class ii":
		return database.SeverityMedium
	case "class iii":
		return database.SeverityLow
	default:
		slog.Debug("Unknown FDA classification, defaulting to medium", "classification", classification)
		return database.SeverityMedium
	}
}

var upcPattern = regexp.MustCompile(`\b\d{12,13}\b`)

// extractUPCCodes pulls barcode-length digit runs out of the free-text
// code_info field. Most announcements carry none.
func extractUPCCodes(codeInfo string) []string {
	codes := upcPattern.FindAllString(codeInfo, -1)

	seen := make(map[string]bool, len(codes))
	unique := make([]string, 0, len(codes))
	for _, code := range codes {
		if seen[code] {
			continue
		}
		seen[code] = true
		unique = append(unique, code)
	}

	return unique
}
