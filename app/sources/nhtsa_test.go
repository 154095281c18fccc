package sources

import (
	"context"
	"net/http"
	"net/http/httptest"
	"testing"

	"github.com/productsafe/recallwatch/app/database"
)

func TestMapNHTSASeverity(t *testing.T) {
	tests := []struct {
		consequence string
		want        database.Severity
	}{
		{"HIGH risk of crash without warning", database.SeverityHigh},
		{"This is a critical safety defect", database.SeverityHigh},
		{"Medium likelihood of stalling", database.SeverityMedium},
		{"Moderate fire risk", database.SeverityMedium},
		{"Reduced visibility in rain", database.SeverityLow},
		// The default is low, unlike FDA's medium. Asymmetric on purpose.
		{"", database.SeverityLow},
		{"unclassified defect", database.SeverityLow},
	}

	for _, tt := range tests {
		if got := mapNHTSASeverity(tt.consequence); got != tt.want {
			t.Errorf("mapNHTSASeverity(%q) = %s, want %s", tt.consequence, got, tt.want)
		}
	}
}

func TestNHTSAAdapter_MapResult(t *testing.T) {
	adapter := NewNHTSAAdapter(testConfig("nhtsa", "http://example.com"), http.DefaultClient, "test")

	recall, err := adapter.mapResult(nhtsaResult{
		CampaignNumber:     "25V123000",
		Manufacturer:       "Example Motors",
		Component:          "FUEL SYSTEM, GASOLINE",
		Summary:            "Fuel pump may fail causing engine stall",
		Consequence:        "An engine stall increases the risk of a crash",
		ReportReceivedDate: "2025-08-01",
	})
	if err != nil {
		t.Fatalf("mapResult returned error: %v", err)
	}

	if recall.ExternalID != "nhtsa-25V123000" {
		t.Errorf("Expected external ID 'nhtsa-25V123000', got '%s'", recall.ExternalID)
	}
	if recall.Source != "nhtsa" {
		t.Errorf("Expected source 'nhtsa', got '%s'", recall.Source)
	}
	if recall.Severity != database.SeverityLow {
		t.Errorf("Expected severity low, got %s", recall.Severity)
	}
	if recall.PublishedDate.Format("2006-01-02") != "2025-08-01" {
		t.Errorf("Expected published date 2025-08-01, got %s", recall.PublishedDate)
	}
	if len(recall.ProductKeywords) == 0 {
		t.Error("Expected product keywords to be extracted")
	}
}

func TestNHTSAAdapter_MapResult_MissingCampaignNumber(t *testing.T) {
	adapter := NewNHTSAAdapter(testConfig("nhtsa", "http://example.com"), http.DefaultClient, "test")

	if _, err := adapter.mapResult(nhtsaResult{Manufacturer: "Example Motors"}); err == nil {
		t.Error("Expected error for record without campaign number")
	}
}

func TestNHTSAAdapter_Fetch_WindowFiltersOldRecords(t *testing.T) {
	server := httptest.NewServer(http.HandlerFunc(func(w http.ResponseWriter, r *http.Request) {
		w.Header().Set("Content-Type", "application/json")
		w.Write([]byte(`{
			"results": [
				{
					"NHTSACampaignNumber": "15V000111",
					"Manufacturer": "Old Motors",
					"Component": "AIR BAGS",
					"Summary": "Inflator may rupture",
					"Consequence": "critical",
					"ReportReceivedDate": "2015-01-15"
				}
			]
		}`))
	}))
	defer server.Close()

	adapter := NewNHTSAAdapter(testConfig("nhtsa", server.URL), server.Client(), "test")

	recalls, err := adapter.Fetch(context.Background())
	if err != nil {
		t.Fatalf("Fetch returned error: %v", err)
	}

	if len(recalls) != 0 {
		t.Errorf("Expected records outside the trailing window to be dropped, got %d", len(recalls))
	}
}
