package main

import (
	"bytes"
	"fmt"
	"io"
	"strings"
	"text/tabwriter"

	"github.com/fatih/color"

	orchestrators "github.com/ochairo/sbleedy/internal/domain-orchestrators"
	"github.com/ochairo/sbleedy/internal/domain/entities"
)

var (
	headerColor   = color.New(color.Bold)
	verdictColors = map[entities.Verdict]*color.Color{
		entities.VerdictVulnerable:    color.New(color.FgRed),
		entities.VerdictNotVulnerable: color.New(color.FgGreen),
		entities.VerdictError:         color.New(color.FgYellow),
		entities.VerdictUndefined:     color.New(color.FgWhite),
		entities.VerdictNoSignal:      color.New(color.FgYellow),
		entities.VerdictNotTested:     color.New(color.FgWhite),
	}
)

func verdictColor(v entities.Verdict) *color.Color {
	if c, ok := verdictColors[v]; ok {
		return c
	}
	return color.New(color.FgYellow)
}

// resultLabel is the Result column text, marked when it needs attention
func resultLabel(v entities.Verdict) string {
	switch v {
	case entities.VerdictVulnerable:
		return v.Label() + " !"
	case entities.VerdictError, entities.VerdictNoSignal:
		return v.Label() + " ?"
	default:
		return v.Label()
	}
}

// table aligns rows with tabwriter and then colours whole lines, so escape
// codes never disturb the column widths
type table struct {
	header []string
	rows   [][]string
	colors []*color.Color
}

func (t *table) add(c *color.Color, cells ...string) {
	t.rows = append(t.rows, cells)
	t.colors = append(t.colors, c)
}

func (t *table) render(w io.Writer) error {
	var buf bytes.Buffer
	tw := tabwriter.NewWriter(&buf, 0, 0, 2, ' ', 0)
	fmt.Fprintln(tw, strings.Join(t.header, "\t"))
	for _, row := range t.rows {
		fmt.Fprintln(tw, strings.Join(row, "\t"))
	}
	if err := tw.Flush(); err != nil {
		return err
	}

	lines := strings.Split(strings.TrimRight(buf.String(), "\n"), "\n")
	for i, line := range lines {
		c := headerColor
		if i > 0 && t.colors[i-1] != nil {
			c = t.colors[i-1]
		} else if i > 0 {
			fmt.Fprintln(w, line)
			continue
		}
		if _, err := c.Fprintln(w, line); err != nil {
			return err
		}
	}
	return nil
}

// printReport renders the terminal report
func printReport(w io.Writer, target string, rows []orchestrators.ReportRow) error {
	headerColor.Fprintf(w, "Exploit report for %s\n\n", target)

	t := &table{header: []string{"Index", "Exploit", "Result", "Data", "CVE"}}
	for _, row := range rows {
		t.add(verdictColor(row.Verdict),
			fmt.Sprint(row.Index),
			row.Name,
			resultLabel(row.Verdict),
			oneLine(row.Data),
			row.CVE)
	}
	if err := t.render(w); err != nil {
		return err
	}

	summary := orchestrators.ReportSummary(rows)
	fmt.Fprintf(w, "\n%d vulnerable, %d not vulnerable, %d errors, %d not tested\n",
		summary[entities.VerdictVulnerable],
		summary[entities.VerdictNotVulnerable],
		summary[entities.VerdictError]+summary[entities.VerdictNoSignal],
		summary[entities.VerdictNotTested])
	return nil
}

// oneLine keeps multi-line exploit data from breaking the table
func oneLine(s string) string {
	return strings.Join(strings.Fields(s), " ")
}

func formatVersion(v float64) string {
	if v == 0 {
		return "-"
	}
	return fmt.Sprintf("%.1f", v)
}
