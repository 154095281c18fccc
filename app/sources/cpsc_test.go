package sources

import (
	"context"
	"net/http"
	"net/http/httptest"
	"testing"

	"github.com/productsafe/recallwatch/app/database"
)

func TestDeriveCPSCSeverity(t *testing.T) {
	tests := []struct {
		text string
		want database.Severity
	}{
		{"Toy recalled due to choking hazard", database.SeverityHigh},
		{"One death reported", database.SeverityHigh},
		{"Risk of serious injury to children", database.SeverityHigh},
		{"Heater recalled due to burn hazard", database.SeverityMedium},
		{"Blade poses laceration and cut risk", database.SeverityMedium},
		{"Injury reports received", database.SeverityMedium},
		{"Label misprint on packaging", database.SeverityLow},
		{"", database.SeverityLow},
	}

	for _, tt := range tests {
		if got := deriveCPSCSeverity(tt.text); got != tt.want {
			t.Errorf("deriveCPSCSeverity(%q) = %s, want %s", tt.text, got, tt.want)
		}
	}
}

func TestBrandFromTitle(t *testing.T) {
	tests := []struct {
		title string
		want  string
	}{
		{"Acme Industries Recalls Widget Toys Due to Choking Hazard", "Acme Industries"},
		{"Sunbeam Recall Announcement", "Sunbeam"},
		{"No marker word here", ""},
		{"", ""},
	}

	for _, tt := range tests {
		if got := brandFromTitle(tt.title); got != tt.want {
			t.Errorf("brandFromTitle(%q) = %q, want %q", tt.title, got, tt.want)
		}
	}
}

const cpscFeedSample = `<?xml version="1.0" encoding="UTF-8"?>
<rss version="2.0">
  <channel>
    <title>CPSC Recalls</title>
    <link>https://www.cpsc.gov</link>
    <item>
      <title>Acme Industries Recalls Space Heaters Due to Burn Hazard</title>
      <link>https://www.cpsc.gov/Recalls/2025/acme-space-heaters</link>
      <guid>https://www.cpsc.gov/Recalls/2025/acme-space-heaters</guid>
      <description>The heaters can overheat, posing a burn hazard to consumers.</description>
      <pubDate>Mon, 18 Aug 2025 10:00:00 GMT</pubDate>
    </item>
    <item>
      <title>Safety Tips for Pool Season</title>
      <link>https://www.cpsc.gov/Newsroom/pool-safety</link>
      <guid>https://www.cpsc.gov/Newsroom/pool-safety</guid>
      <description>General safety advisory, not a recall announcement.</description>
      <pubDate>Tue, 19 Aug 2025 10:00:00 GMT</pubDate>
    </item>
  </channel>
</rss>`

func TestCPSCAdapter_Fetch(t *testing.T) {
	server := httptest.NewServer(http.HandlerFunc(func(w http.ResponseWriter, r *http.Request) {
		w.Header().Set("Content-Type", "application/rss+xml")
		w.Write([]byte(cpscFeedSample))
	}))
	defer server.Close()

	config := testConfig("cpsc", server.URL)
	config.Settings.WindowDays = 36500 // keep the sample's pubDate inside the window
	adapter := NewCPSCAdapter(config, server.Client(), "test")

	recalls, err := adapter.Fetch(context.Background())
	if err != nil {
		t.Fatalf("Fetch returned error: %v", err)
	}

	// Only the item whose title mentions a recall survives the filter
	if len(recalls) != 1 {
		t.Fatalf("Expected 1 recall, got %d", len(recalls))
	}

	recall := recalls[0]
	if recall.Source != "cpsc" {
		t.Errorf("Expected source 'cpsc', got '%s'", recall.Source)
	}
	if recall.Title != "Acme Industries Recalls Space Heaters Due to Burn Hazard" {
		t.Errorf("Unexpected title: %s", recall.Title)
	}
	if recall.Severity != database.SeverityMedium {
		t.Errorf("Expected severity medium, got %s", recall.Severity)
	}
	if recall.PublishedDate.Format("2006-01-02") != "2025-08-18" {
		t.Errorf("Expected published date 2025-08-18, got %s", recall.PublishedDate)
	}
	if len(recall.BrandKeywords) == 0 {
		t.Error("Expected brand keywords derived from the headline")
	}
	if recall.ExternalID == "" || recall.ExternalID == "cpsc-" {
		t.Errorf("Expected a stable external ID, got '%s'", recall.ExternalID)
	}
}

func TestCPSCAdapter_Fetch_StableExternalID(t *testing.T) {
	handler := http.HandlerFunc(func(w http.ResponseWriter, r *http.Request) {
		w.Header().Set("Content-Type", "application/rss+xml")
		w.Write([]byte(cpscFeedSample))
	})
	server := httptest.NewServer(handler)
	defer server.Close()

	config := testConfig("cpsc", server.URL)
	config.Settings.WindowDays = 36500
	adapter := NewCPSCAdapter(config, server.Client(), "test")

	first, err := adapter.Fetch(context.Background())
	if err != nil {
		t.Fatalf("first Fetch returned error: %v", err)
	}
	second, err := adapter.Fetch(context.Background())
	if err != nil {
		t.Fatalf("second Fetch returned error: %v", err)
	}

	if first[0].ExternalID != second[0].ExternalID {
		t.Errorf("External ID not stable across fetches: %s vs %s",
			first[0].ExternalID, second[0].ExternalID)
	}
}

func TestCPSCAdapter_Fetch_Unreachable(t *testing.T) {
	server := httptest.NewServer(http.HandlerFunc(func(w http.ResponseWriter, r *http.Request) {
		w.WriteHeader(http.StatusBadGateway)
	}))
	defer server.Close()

	adapter := NewCPSCAdapter(testConfig("cpsc", server.URL), server.Client(), "test")

	if _, err := adapter.Fetch(context.Background()); err == nil {
		t.Error("Expected error when the feed is unreachable")
	}
}
