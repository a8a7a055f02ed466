package orchestrators

import (
	"context"
	"errors"
	"fmt"
	"regexp"

	"github.com/ochairo/sbleedy/internal/domain/entities"
	"github.com/ochairo/sbleedy/internal/domain/interfaces"
	"github.com/ochairo/sbleedy/internal/domain/interfaces/gateways"
	"github.com/ochairo/sbleedy/internal/domain/interfaces/repositories"
)

// MaxReportDataLength bounds the data column of terminal reports
const MaxReportDataLength = 60

// MessageUnreadableResult replaces data for records that fail to load
const MessageUnreadableResult = "Error during loading the report"

var cveIDPattern = regexp.MustCompile(`CVE-\d{4}-\d{4,}`)

// ReconSource supplies what recon learned about a target
type ReconSource interface {
	Info(target string) (*entities.ReconInfo, error)
}

// ReportRow is one line of the terminal report
type ReportRow struct {
	Index   int
	Name    string
	Verdict entities.Verdict
	Data    string
	CVE     string
}

// ReportOrchestrator assembles terminal and machine-readable reports from
// stored results
type ReportOrchestrator struct {
	exploitRepo repositories.ExploitRepository
	results     repositories.ResultRepository
	reports     repositories.ReportRepository
	recon       ReconSource
	cve         gateways.CVEGateway
	logger      interfaces.Logger
}

// NewReportOrchestrator creates a new report orchestrator. cve may be nil,
// which disables enrichment.
func NewReportOrchestrator(
	exploitRepo repositories.ExploitRepository,
	results repositories.ResultRepository,
	reports repositories.ReportRepository,
	recon ReconSource,
	cve gateways.CVEGateway,
	logger interfaces.Logger,
) *ReportOrchestrator {
	return &ReportOrchestrator{
		exploitRepo: exploitRepo,
		results:     results,
		reports:     reports,
		recon:       recon,
		cve:         cve,
		logger:      interfaces.OrNoOp(logger),
	}
}

// Rows returns the terminal report for target: recorded exploits first in
// name order, then catalog exploits that have no record
func (o *ReportOrchestrator) Rows(ctx context.Context, target string) ([]ReportRow, error) {
	done, skipped, err := o.collect(ctx, target)
	if err != nil {
		return nil, err
	}

	rows := make([]ReportRow, 0, len(done)+len(skipped))
	for _, entry := range done {
		rows = append(rows, ReportRow{
			Index:   entry.Index,
			Name:    entry.Name,
			Verdict: entry.Code,
			Data:    truncate(entry.Data, MaxReportDataLength),
			CVE:     entry.CVE,
		})
	}
	for _, entry := range skipped {
		rows = append(rows, ReportRow{Index: entry.Index, Name: entry.Name, Verdict: entry.Code})
	}
	return rows, nil
}

// MachineReport builds and saves the JSON report for target. With enrich
// set, CVE entries gain the public advisory summary and severity.
func (o *ReportOrchestrator) MachineReport(ctx context.Context, target string, enrich bool) (*entities.MachineReport, error) {
	done, skipped, err := o.collect(ctx, target)
	if err != nil {
		return nil, err
	}

	if enrich {
		o.enrich(ctx, done)
	}

	report := &entities.MachineReport{
		DoneExploits:          done,
		SkippedExploits:       skipped,
		ManuallyAddedExploits: []entities.ReportEntry{},
		MACAddress:            target,
	}

	if o.recon != nil {
		info, err := o.recon.Info(target)
		if err != nil {
			o.logger.Warn("Recon data unavailable for report",
				interfaces.F("target", target),
				interfaces.F("error", err))
		} else {
			report.BTVersion = info.BTVersion
			report.Manufacturer = info.Manufacturer
		}
	}

	if err := o.reports.SaveReport(target, report); err != nil {
		return nil, fmt.Errorf("failed to save report: %w", err)
	}

	o.logger.Info("Machine-readable report written",
		interfaces.F("target", target),
		interfaces.F("done", len(done)),
		interfaces.F("skipped", len(skipped)))

	return report, nil
}

// collect loads the stored records for target and lists the catalog
// exploits without one
func (o *ReportOrchestrator) collect(ctx context.Context, target string) ([]entities.ReportEntry, []entities.ReportEntry, error) {
	catalog, err := o.exploitRepo.ListExploits(ctx)
	if err != nil {
		return nil, nil, fmt.Errorf("failed to load exploit catalog: %w", err)
	}

	names, err := o.results.DoneExploits(target)
	if err != nil && !errors.Is(err, entities.ErrNotFound) {
		return nil, nil, fmt.Errorf("failed to list results: %w", err)
	}

	index := 1
	recorded := make(map[string]bool, len(names))
	done := make([]entities.ReportEntry, 0, len(names))
	for _, name := range names {
		recorded[name] = true
		entry := entities.ReportEntry{Index: index, Name: name}

		record, err := o.results.LoadResult(target, name)
		if err != nil {
			o.logger.Warn("Failed to load result",
				interfaces.F("exploit", name),
				interfaces.F("error", err))
			entry.Code = entities.VerdictNoSignal
			entry.Data = MessageUnreadableResult
		} else {
			entry.Code = record.Code
			entry.Data = record.Data
			entry.CVE = record.CVE
		}

		done = append(done, entry)
		index++
	}

	skipped := make([]entities.ReportEntry, 0)
	for _, exploit := range catalog {
		if recorded[exploit.Name] {
			continue
		}
		skipped = append(skipped, entities.ReportEntry{
			Index: index,
			Name:  exploit.Name,
			Code:  entities.VerdictNotTested,
			Data:  entities.VerdictNotTested.Label(),
		})
		index++
	}

	return done, skipped, nil
}

// enrich looks up each distinct CVE once; lookup failures leave the entry
// as it was
func (o *ReportOrchestrator) enrich(ctx context.Context, entries []entities.ReportEntry) {
	if o.cve == nil {
		return
	}

	cache := make(map[string]*entities.CVEDetails)
	for i := range entries {
		id := cveIDPattern.FindString(entries[i].CVE)
		if id == "" {
			continue
		}

		details, seen := cache[id]
		if !seen {
			var err error
			details, err = o.cve.LookupCVE(ctx, id)
			if err != nil {
				o.logger.Warn("CVE lookup failed",
					interfaces.F("cve", id),
					interfaces.F("error", err))
			}
			cache[id] = details
		}

		if details != nil {
			entries[i].Summary = details.Summary
			entries[i].Severity = details.Severity
		}
	}
}

func truncate(s string, n int) string {
	runes := []rune(s)
	if len(runes) <= n {
		return s
	}
	return string(runes[:n])
}

// ReportSummary counts rows per verdict
func ReportSummary(rows []ReportRow) map[entities.Verdict]int {
	counts := make(map[entities.Verdict]int)
	for _, row := range rows {
		counts[row.Verdict]++
	}
	return counts
}

// HasVulnerable reports whether any row is a confirmed vulnerability
func HasVulnerable(rows []ReportRow) bool {
	for _, row := range rows {
		if row.Verdict == entities.VerdictVulnerable {
			return true
		}
	}
	return false
}
