package orchestrators

import (
	"context"
	"errors"
	"strings"
	"testing"

	"github.com/google/go-cmp/cmp"

	"github.com/ochairo/sbleedy/internal/domain/entities"
)

// fakeRecon returns fixed recon data
type fakeRecon struct {
	info *entities.ReconInfo
	err  error
}

func (f *fakeRecon) Info(_ string) (*entities.ReconInfo, error) {
	return f.info, f.err
}

// fakeCVE answers advisory lookups from a table
type fakeCVE struct {
	details map[string]*entities.CVEDetails
	calls   map[string]int
}

func (f *fakeCVE) LookupCVE(_ context.Context, id string) (*entities.CVEDetails, error) {
	if f.calls == nil {
		f.calls = make(map[string]int)
	}
	f.calls[id]++
	details, ok := f.details[id]
	if !ok {
		return nil, errors.New("not in advisory database")
	}
	return details, nil
}

func reportStore() *memoryStore {
	store := newMemoryStore()
	store.results["knob"] = entities.ExploitRecord{
		Code: entities.VerdictVulnerable,
		Data: strings.Repeat("x", 80),
		CVE:  "CVE-2019-9506",
	}
	store.results["badkarma"] = entities.ExploitRecord{Code: entities.VerdictNoSignal, Data: "exploit timed out", CVE: "CVE-2020-12351"}
	store.results["keyboah"] = entities.ExploitRecord{Code: entities.VerdictNotVulnerable, Data: "pairing refused", CVE: "CVE-2023-45866, CVE-2024-0230"}
	return store
}

func TestReportOrchestrator_Rows(t *testing.T) {
	orch := NewReportOrchestrator(&mockExploitRepo{exploits: assessmentCatalog()}, reportStore(), nil, nil, nil, nil)

	rows, err := orch.Rows(context.Background(), testTarget)
	if err != nil {
		t.Fatalf("Rows() error = %v", err)
	}

	want := []ReportRow{
		{Index: 1, Name: "badkarma", Verdict: entities.VerdictNoSignal, Data: "exploit timed out", CVE: "CVE-2020-12351"},
		{Index: 2, Name: "keyboah", Verdict: entities.VerdictNotVulnerable, Data: "pairing refused", CVE: "CVE-2023-45866, CVE-2024-0230"},
		{Index: 3, Name: "knob", Verdict: entities.VerdictVulnerable, Data: strings.Repeat("x", MaxReportDataLength), CVE: "CVE-2019-9506"},
		{Index: 4, Name: "btlejacking", Verdict: entities.VerdictNotTested},
	}
	if diff := cmp.Diff(want, rows); diff != "" {
		t.Errorf("Rows() mismatch (-want +got):\n%s", diff)
	}

	if !HasVulnerable(rows) {
		t.Error("HasVulnerable() = false, want true")
	}
	summary := ReportSummary(rows)
	if summary[entities.VerdictNotTested] != 1 || summary[entities.VerdictVulnerable] != 1 {
		t.Errorf("ReportSummary() = %v", summary)
	}
}

func TestReportOrchestrator_Rows_UnreadableRecord(t *testing.T) {
	store := &brokenResultStore{memoryStore: reportStore()}
	orch := NewReportOrchestrator(&mockExploitRepo{exploits: assessmentCatalog()}, store, nil, nil, nil, nil)

	rows, err := orch.Rows(context.Background(), testTarget)
	if err != nil {
		t.Fatalf("Rows() error = %v", err)
	}
	if rows[0].Verdict != entities.VerdictNoSignal || rows[0].Data != MessageUnreadableResult {
		t.Errorf("unreadable row = %+v", rows[0])
	}
}

// brokenResultStore fails to load any stored result
type brokenResultStore struct {
	*memoryStore
}

func (b *brokenResultStore) LoadResult(_, _ string) (*entities.ExploitRecord, error) {
	return nil, errors.New("unexpected end of JSON input")
}

func TestReportOrchestrator_MachineReport(t *testing.T) {
	store := reportStore()
	version := 5.1
	recon := &fakeRecon{info: &entities.ReconInfo{BTVersion: &version, Manufacturer: "Broadcom Corporation"}}
	cve := &fakeCVE{details: map[string]*entities.CVEDetails{
		"CVE-2019-9506":  {ID: "CVE-2019-9506", Summary: "KNOB attack", Severity: "HIGH"},
		"CVE-2023-45866": {ID: "CVE-2023-45866", Summary: "HID injection", Severity: "HIGH"},
	}}

	orch := NewReportOrchestrator(&mockExploitRepo{exploits: assessmentCatalog()}, store, store, recon, cve, nil)

	report, err := orch.MachineReport(context.Background(), testTarget, true)
	if err != nil {
		t.Fatalf("MachineReport() error = %v", err)
	}

	if store.report != report {
		t.Error("MachineReport() should save the report")
	}
	if report.MACAddress != testTarget || report.Manufacturer != "Broadcom Corporation" {
		t.Errorf("report header = %q, %q", report.MACAddress, report.Manufacturer)
	}
	if report.BTVersion == nil || *report.BTVersion != 5.1 {
		t.Errorf("report bt version = %v, want 5.1", report.BTVersion)
	}

	wantSkipped := []entities.ReportEntry{
		{Index: 4, Name: "btlejacking", Code: entities.VerdictNotTested, Data: "Not tested"},
	}
	if diff := cmp.Diff(wantSkipped, report.SkippedExploits); diff != "" {
		t.Errorf("skipped mismatch (-want +got):\n%s", diff)
	}
	if report.ManuallyAddedExploits == nil {
		t.Error("manually added exploits should encode as an empty list")
	}

	byName := make(map[string]entities.ReportEntry)
	for _, entry := range report.DoneExploits {
		byName[entry.Name] = entry
	}
	if got := byName["knob"]; got.Summary != "KNOB attack" || got.Severity != "HIGH" {
		t.Errorf("knob entry = %+v, want enriched", got)
	}
	if got := byName["keyboah"]; got.Summary != "HID injection" {
		t.Errorf("keyboah entry = %+v, want the first listed CVE enriched", got)
	}
	if got := byName["badkarma"]; got.Summary != "" {
		t.Errorf("badkarma entry = %+v, failed lookups leave the entry alone", got)
	}
	if len(byName["knob"].Data) != 80 {
		t.Error("machine report must not truncate data")
	}
}

func TestReportOrchestrator_MachineReport_NoEnrichment(t *testing.T) {
	store := reportStore()
	cve := &fakeCVE{}
	orch := NewReportOrchestrator(&mockExploitRepo{exploits: assessmentCatalog()}, store, store, &fakeRecon{err: errors.New("no recon")}, cve, nil)

	report, err := orch.MachineReport(context.Background(), testTarget, false)
	if err != nil {
		t.Fatalf("MachineReport() error = %v", err)
	}
	if len(cve.calls) != 0 {
		t.Errorf("CVE gateway called %v without enrichment", cve.calls)
	}
	if report.BTVersion != nil || report.Manufacturer != "" {
		t.Error("recon failure should leave the recon fields empty")
	}
}

func TestReportOrchestrator_CatalogError(t *testing.T) {
	orch := NewReportOrchestrator(&mockExploitRepo{err: errors.New("bad yaml")}, reportStore(), nil, nil, nil, nil)
	if _, err := orch.Rows(context.Background(), testTarget); err == nil {
		t.Error("Rows() should fail when the catalog cannot be loaded")
	}
}

func TestTruncate(t *testing.T) {
	tests := []struct {
		in   string
		n    int
		want string
	}{
		{in: "short", n: 10, want: "short"},
		{in: "exactly", n: 7, want: "exactly"},
		{in: "truncated", n: 5, want: "trunc"},
		{in: "żółw żółw", n: 4, want: "żółw"},
	}
	for _, tt := range tests {
		if got := truncate(tt.in, tt.n); got != tt.want {
			t.Errorf("truncate(%q, %d) = %q, want %q", tt.in, tt.n, got, tt.want)
		}
	}
}
