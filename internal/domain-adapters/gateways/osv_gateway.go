package gateways

import (
	"context"
	"encoding/json"
	"errors"
	"fmt"
	"net/http"
	"net/url"
	"strings"
	"time"

	"github.com/ochairo/sbleedy/internal/domain/entities"
)

// ErrCVENotFound is returned when OSV has no record for an identifier
var ErrCVENotFound = errors.New("CVE not found")

// osvGateway looks up advisories through the OSV vulnerability API
type osvGateway struct {
	apiURL     string
	httpClient *http.Client
}

// NewOSVGateway creates a new OSV gateway
//
//nolint:revive // unexported-return: Intentionally returns concrete type for testability
func NewOSVGateway() *osvGateway {
	return &osvGateway{
		apiURL: "https://api.osv.dev/v1/vulns",
		httpClient: &http.Client{
			Timeout: 30 * time.Second,
		},
	}
}

// LookupCVE fetches the OSV record for a CVE identifier
func (g *osvGateway) LookupCVE(ctx context.Context, id string) (*entities.CVEDetails, error) {
	id = strings.TrimSpace(id)
	if id == "" {
		return nil, fmt.Errorf("empty CVE identifier")
	}

	req, err := http.NewRequestWithContext(ctx, http.MethodGet, g.apiURL+"/"+url.PathEscape(id), nil)
	if err != nil {
		return nil, fmt.Errorf("failed to create request: %w", err)
	}
	req.Header.Set("Accept", "application/json")

	resp, err := g.httpClient.Do(req)
	if err != nil {
		return nil, fmt.Errorf("OSV API request failed: %w", err)
	}
	//nolint:errcheck // Defer close on HTTP response body
	defer resp.Body.Close()

	switch {
	case resp.StatusCode == http.StatusNotFound:
		return nil, fmt.Errorf("%w: %s", ErrCVENotFound, id)
	case resp.StatusCode != http.StatusOK:
		return nil, fmt.Errorf("OSV API returned status %d for %s", resp.StatusCode, id)
	}

	var vuln OSVVulnerability
	if err := json.NewDecoder(resp.Body).Decode(&vuln); err != nil {
		return nil, fmt.Errorf("failed to parse OSV response: %w", err)
	}

	return &entities.CVEDetails{
		ID:       id,
		Summary:  summarize(vuln),
		Severity: extractSeverity(vuln),
	}, nil
}

// summarize prefers the short summary and falls back to the first line of
// the details
func summarize(vuln OSVVulnerability) string {
	if s := strings.TrimSpace(vuln.Summary); s != "" {
		return s
	}
	details := strings.TrimSpace(vuln.Details)
	if i := strings.IndexByte(details, '\n'); i >= 0 {
		details = details[:i]
	}
	return details
}

// extractSeverity returns the advisory's severity label, or the first CVSS
// vector when no label is published
func extractSeverity(vuln OSVVulnerability) string {
	if label := strings.TrimSpace(vuln.DatabaseSpecific.Severity); label != "" {
		return strings.ToUpper(label)
	}
	if len(vuln.Severity) > 0 {
		return vuln.Severity[0].Score
	}
	return "UNKNOWN"
}

// OSV API response types

// OSVVulnerability represents a single vulnerability from the OSV database.
type OSVVulnerability struct {
	ID               string              `json:"id"`
	Summary          string              `json:"summary"`
	Details          string              `json:"details"`
	Aliases          []string            `json:"aliases,omitempty"`
	Severity         []OSVSeverity       `json:"severity,omitempty"`
	DatabaseSpecific OSVDatabaseSpecific `json:"database_specific"`
}

// OSVSeverity contains severity scoring information for a vulnerability.
type OSVSeverity struct {
	Type  string `json:"type"`
	Score string `json:"score"`
}

// OSVDatabaseSpecific holds fields a source database adds to its records.
type OSVDatabaseSpecific struct {
	Severity string `json:"severity"`
}
