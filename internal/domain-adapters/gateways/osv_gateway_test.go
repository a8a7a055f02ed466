package gateways

import (
	"context"
	"encoding/json"
	"errors"
	"net/http"
	"net/http/httptest"
	"testing"
)

func TestNewOSVGateway(t *testing.T) {
	gateway := NewOSVGateway()

	if gateway.apiURL != "https://api.osv.dev/v1/vulns" {
		t.Errorf("API URL = %s, want https://api.osv.dev/v1/vulns", gateway.apiURL)
	}
}

func TestOSVGateway_LookupCVE(t *testing.T) {
	server := httptest.NewServer(http.HandlerFunc(func(w http.ResponseWriter, r *http.Request) {
		if r.Method != http.MethodGet {
			t.Errorf("Method = %s, want GET", r.Method)
		}
		if r.URL.Path != "/CVE-2020-24490" {
			t.Errorf("Path = %s, want /CVE-2020-24490", r.URL.Path)
		}

		_ = json.NewEncoder(w).Encode(OSVVulnerability{
			ID:      "CVE-2020-24490",
			Summary: "BleedingTooth heap overflow in extended advertising reports",
			Severity: []OSVSeverity{
				{Type: "CVSS_V3", Score: "CVSS:3.1/AV:A/AC:L/PR:N/UI:N/S:U/C:N/I:N/A:H"},
			},
			DatabaseSpecific: OSVDatabaseSpecific{Severity: "moderate"},
		})
	}))
	defer server.Close()

	gateway := NewOSVGateway()
	gateway.apiURL = server.URL

	details, err := gateway.LookupCVE(context.Background(), "CVE-2020-24490")
	if err != nil {
		t.Fatalf("LookupCVE() error = %v", err)
	}
	if details.Summary != "BleedingTooth heap overflow in extended advertising reports" {
		t.Errorf("Summary = %q", details.Summary)
	}
	if details.Severity != "MODERATE" {
		t.Errorf("Severity = %q, want MODERATE", details.Severity)
	}
}

func TestOSVGateway_LookupCVE_NotFound(t *testing.T) {
	server := httptest.NewServer(http.HandlerFunc(func(w http.ResponseWriter, _ *http.Request) {
		w.WriteHeader(http.StatusNotFound)
	}))
	defer server.Close()

	gateway := NewOSVGateway()
	gateway.apiURL = server.URL

	_, err := gateway.LookupCVE(context.Background(), "CVE-0000-0000")
	if !errors.Is(err, ErrCVENotFound) {
		t.Errorf("LookupCVE() error = %v, want ErrCVENotFound", err)
	}
}

func TestOSVGateway_LookupCVE_InvalidJSON(t *testing.T) {
	server := httptest.NewServer(http.HandlerFunc(func(w http.ResponseWriter, _ *http.Request) {
		_, _ = w.Write([]byte("{not json"))
	}))
	defer server.Close()

	gateway := NewOSVGateway()
	gateway.apiURL = server.URL

	if _, err := gateway.LookupCVE(context.Background(), "CVE-2017-0785"); err == nil {
		t.Error("LookupCVE() should fail on invalid JSON")
	}
}

func TestOSVGateway_LookupCVE_ContextCanceled(t *testing.T) {
	server := httptest.NewServer(http.HandlerFunc(func(w http.ResponseWriter, _ *http.Request) {
		w.WriteHeader(http.StatusOK)
	}))
	defer server.Close()

	gateway := NewOSVGateway()
	gateway.apiURL = server.URL

	ctx, cancel := context.WithCancel(context.Background())
	cancel()

	if _, err := gateway.LookupCVE(ctx, "CVE-2017-0785"); err == nil {
		t.Error("LookupCVE() should fail with a canceled context")
	}
}

func TestExtractSeverity(t *testing.T) {
	tests := []struct {
		name string
		vuln OSVVulnerability
		want string
	}{
		{name: "label", vuln: OSVVulnerability{DatabaseSpecific: OSVDatabaseSpecific{Severity: "high"}}, want: "HIGH"},
		{name: "vector only", vuln: OSVVulnerability{Severity: []OSVSeverity{{Type: "CVSS_V3", Score: "CVSS:3.1/AV:N"}}}, want: "CVSS:3.1/AV:N"},
		{name: "nothing", vuln: OSVVulnerability{}, want: "UNKNOWN"},
	}

	for _, tt := range tests {
		t.Run(tt.name, func(t *testing.T) {
			if got := extractSeverity(tt.vuln); got != tt.want {
				t.Errorf("extractSeverity() = %q, want %q", got, tt.want)
			}
		})
	}
}

func TestSummarize_FallsBackToDetails(t *testing.T) {
	got := summarize(OSVVulnerability{Details: "Out-of-bounds read in SDP.\nMore text."})
	if got != "Out-of-bounds read in SDP." {
		t.Errorf("summarize() = %q", got)
	}
}
