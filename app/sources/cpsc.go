package sources

import (
	"bytes"
	"context"
	"crypto/sha256"
	"encoding/hex"
	"fmt"
	"log/slog"
	"net/http"
	"strings"
	"time"

	"github.com/mmcdole/gofeed"

	"github.com/productsafe/recallwatch/app/database"
	"github.com/productsafe/recallwatch/app/normalize"
)

// CPSCAdapter consumes the CPSC recalls RSS feed through a structured feed
// parser. The CPSC publishes no machine-readable severity; it is derived by
// scanning title and description for injury vocabulary.
type CPSCAdapter struct {
	config       *Config
	httpClient   *http.Client
	userAgent    string
	gofeedParser *gofeed.Parser
}

var _ Adapter = (*CPSCAdapter)(nil)

func NewCPSCAdapter(config *Config, httpClient *http.Client, userAgent string) *CPSCAdapter {
	return &CPSCAdapter{
		config:       config,
		httpClient:   httpClient,
		userAgent:    userAgent,
		gofeedParser: gofeed.NewParser(),
	}
}

func (a *CPSCAdapter) Source() string {
	return "cpsc"
}

func (a *CPSCAdapter) Fetch(ctx context.Context) ([]database.Recall, error) {
	data, err := fetchURL(ctx, a.httpClient, a.config.URL, a.userAgent,
		time.Duration(a.config.Settings.Timeout)*time.Second)
	if err != nil {
		return nil, err
	}

	feed, err := a.gofeedParser.Parse(bytes.NewReader(data))
	if err != nil {
		return nil, fmt.Errorf("failed to parse CPSC feed: %w", err)
	}

	cutoff := time.Now().UTC().AddDate(0, 0, -a.config.Settings.WindowDays)

	recalls := make([]database.Recall, 0, len(feed.Items))
	for _, item := range feed.Items {
		if !strings.Contains(strings.ToLower(item.Title), "recall") {
			continue
		}

		recall, err := a.mapItem(item)
		if err != nil {
			slog.Warn("Skipping malformed CPSC record", "error", err)
			continue
		}
		if recall.PublishedDate.Before(cutoff) {
			continue
		}
		recalls = append(recalls, recall)
	}

	return recalls, nil
}

func (a *CPSCAdapter) mapItem(item *gofeed.Item) (database.Recall, error) {
	guid := item.GUID
	if guid == "" {
		guid = item.Link
	}
	if guid == "" {
		return database.Recall{}, fmt.Errorf("item has neither guid nor link")
	}

	// Feed GUIDs are full URLs; hash them into a stable compact key.
	digest := sha256.Sum256([]byte(guid))
	externalID := "cpsc-" + hex.EncodeToString(digest[:8])

	published := time.Now().UTC()
	if item.PublishedParsed != nil {
		published = item.PublishedParsed.UTC()
	} else {
		slog.Warn("CPSC item without publish date, substituting current time", "title", item.Title)
	}

	return database.Recall{
		ExternalID:      externalID,
		Source:          a.Source(),
		Title:           item.Title,
		Description:     item.Description,
		Severity:        deriveCPSCSeverity(item.Title + " " + item.Description),
		RecallDate:      published,
		PublishedDate:   published,
		ProductKeywords: normalize.ExtractKeywords(item.Title+" "+item.Description, normalize.DefaultMaxKeywords),
		BrandKeywords:   normalize.ExtractBrandKeywords(brandFromTitle(item.Title)),
		UPCCodes:        []string{},
	}, nil
}

var (
	cpscHighTerms   = []string{"death", "serious injury", "choking"}
	cpscMediumTerms = []string{"injury", "burn", "cut"}
)

// deriveCPSCSeverity tiers the announcement by injury vocabulary. The high
// tier is checked first since "serious injury" contains "injury".
func deriveCPSCSeverity(text string) database.Severity {
	lower := strings.ToLower(text)

	for _, term := range cpscHighTerms {
		if strings.Contains(lower, term) {
			return database.SeverityHigh
		}
	}
	for _, term := range cpscMediumTerms {
		if strings.Contains(lower, term) {
			return database.SeverityMedium
		}
	}
	return database.SeverityLow
}

// brandFromTitle extracts the recalling firm from CPSC headline convention,
// "Acme Industries Recalls Widget Toys Due to Choking Hazard".
func brandFromTitle(title string) string {
	lower := strings.ToLower(title)
	idx := strings.Index(lower, " recall")
	if idx <= 0 {
		return ""
	}
	return title[:idx]
}
