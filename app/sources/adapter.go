package sources

import (
	"context"
	"fmt"
	"io"
	"log/slog"
	"net/http"
	"time"

	"github.com/productsafe/recallwatch/app/database"
)

// Adapter fetches recent announcements from one external recall feed and
// maps them into canonical recall records. A failing adapter never affects
// the other sources; the pipeline isolates and reports its error per source.
type Adapter interface {
	Source() string
	Fetch(ctx context.Context) ([]database.Recall, error)
}

// NewAdapter builds the adapter for a source configuration. Unknown kinds
// are a configuration error, caught at startup rather than mid-sync.
func NewAdapter(config *Config, httpClient *http.Client, userAgent string) (Adapter, error) {
	switch config.Source {
	case "fda":
		return NewFDAAdapter(config, httpClient, userAgent), nil
	case "nhtsa":
		return NewNHTSAAdapter(config, httpClient, userAgent), nil
	case "cpsc":
		return NewCPSCAdapter(config, httpClient, userAgent), nil
	default:
		return nil, fmt.Errorf("unknown source kind: %s", config.Source)
	}
}

// BuildAdapters constructs adapters for all enabled source configurations.
func BuildAdapters(configCache *ConfigCache, httpClient *http.Client, userAgent string) ([]Adapter, error) {
	configs := configCache.GetEnabledConfigs()

	adapters := make([]Adapter, 0, len(configs))
	for _, config := range configs {
		adapter, err := NewAdapter(config, httpClient, userAgent)
		if err != nil {
			return nil, fmt.Errorf("failed to build adapter for %s: %w", config.Name, err)
		}
		adapters = append(adapters, adapter)
	}

	return adapters, nil
}

// fetchURL performs a GET bounded by the source's configured timeout.
func fetchURL(ctx context.Context, httpClient *http.Client, url, userAgent string, timeout time.Duration) ([]byte, error) {
	timeoutCtx, cancel := context.WithTimeout(ctx, timeout)
	defer cancel()

	req, err := http.NewRequestWithContext(timeoutCtx, "GET", url, nil)
	if err != nil {
		return nil, fmt.Errorf("failed to create request: %w", err)
	}

	req.Header.Set("User-Agent", userAgent)

	resp, err := httpClient.Do(req)
	if err != nil {
		return nil, fmt.Errorf("failed to fetch source: %w", err)
	}
	defer resp.Body.Close()

	if resp.StatusCode != http.StatusOK {
		return nil, fmt.Errorf("HTTP error: %d %s", resp.StatusCode, resp.Status)
	}

	data, err := io.ReadAll(resp.Body)
	if err != nil {
		return nil, fmt.Errorf("failed to read response body: %w", err)
	}

	return data, nil
}

// parseDateOr tries the given layouts in order and falls back to the
// provided time when none parse. Sources routinely ship missing or garbled
// dates; a bad date downgrades to "now" instead of dropping the record.
func parseDateOr(value string, fallback time.Time, layouts ...string) time.Time {
	if value == "" {
		return fallback
	}

	for _, layout := range layouts {
		if t, err := time.Parse(layout, value); err == nil {
			return t
		}
	}

	slog.Warn("Unparseable source date, substituting current time", "value", value)
	return fallback
}
