package main

import (
	"errors"
	"fmt"
	"io"
	"os"
	"time"

	"github.com/urfave/cli/v2"
	"golang.org/x/term"

	orchestrators "github.com/ochairo/sbleedy/internal/domain-orchestrators"
	"github.com/ochairo/sbleedy/internal/domain/entities"
	"github.com/ochairo/sbleedy/internal/domain/interfaces"
	"github.com/ochairo/sbleedy/internal/domain/interfaces/services"
)

func commandRun() *cli.Command {
	return &cli.Command{
		Name:      "run",
		Usage:     "Run exploits against a target",
		ArgsUsage: "<target> [name value ...]",
		Description: `Runs the selected exploits one at a time against the target and stores
each verdict under the results directory. Arguments after the target are
runtime parameters given as name/value pairs.

Examples:
  sbleedy run AA:BB:CC:DD:EE:FF
  sbleedy run --exploits knob,badkarma AA:BB:CC:DD:EE:FF
  sbleedy run --unattended --bt-version 5.1 AA:BB:CC:DD:EE:FF
  sbleedy run --resume AA:BB:CC:DD:EE:FF`,
		Flags: []cli.Flag{
			&cli.StringSliceFlag{Name: "exploits", Aliases: []string{"e"}, Usage: "Run only these exploits"},
			&cli.StringSliceFlag{Name: "exclude", Aliases: []string{"x"}, Usage: "Skip these exploits"},
			&cli.StringSliceFlag{Name: "hardware", Usage: "Run only exploits needing this hardware"},
			&cli.StringFlag{Name: "profile", Usage: "Run only exploits for this Bluetooth profile"},
			&cli.Float64Flag{Name: "bt-version", Usage: "Target Bluetooth version (defaults to recon data)"},
			&cli.BoolFlag{Name: "unattended", Aliases: []string{"u"}, Usage: "Skip exploits that need an operator"},
			&cli.StringSliceFlag{Name: "port", Usage: "Override a hardware port as `NAME=DEVICE`"},
			&cli.StringSliceFlag{Name: "keyring", Usage: "Verify module signatures against this keyring"},
			&cli.BoolFlag{Name: "resume", Aliases: []string{"r"}, Usage: "Continue the target's interrupted run"},
			&cli.BoolFlag{Name: "verbose", Aliases: []string{"v"}, Usage: "Echo exploit output while running"},
			&cli.BoolFlag{Name: "report", Value: true, Usage: "Print the report when the run ends"},
		},
		Action: runAssessment,
	}
}

func runAssessment(c *cli.Context) error {
	if c.NArg() < 1 {
		return cli.ShowSubcommandHelp(c)
	}
	target, err := normalizeTarget(c.Args().First())
	if err != nil {
		return err
	}
	ports, err := parsePorts(c.StringSlice("port"))
	if err != nil {
		return err
	}

	app, err := newApplication(c)
	if err != nil {
		return err
	}
	defer app.Close()

	orch, err := app.assessment(ports, c.StringSlice("keyring"))
	if err != nil {
		return err
	}

	selection := services.Selection{
		Exploits:   c.StringSlice("exploits"),
		Exclude:    c.StringSlice("exclude"),
		Hardware:   c.StringSlice("hardware"),
		Profile:    c.String("profile"),
		Unattended: c.Bool("unattended"),
	}
	if c.IsSet("bt-version") {
		version := c.Float64("bt-version")
		selection.BTVersion = &version
	} else if info, err := app.recon().Info(target); err == nil && info.BTVersion != nil {
		selection.BTVersion = info.BTVersion
		fmt.Fprintf(app.out, "Using Bluetooth version %.1f from recon\n", *info.BTVersion)
	}

	attended := !c.Bool("unattended") && term.IsTerminal(int(os.Stdin.Fd()))
	var echo io.Writer
	if c.Bool("verbose") {
		echo = app.out
	}

	observer := newProgressObserver(app.out, echo == nil && !attended)
	result, err := orch.RunAssessment(c.Context, orchestrators.RunRequest{
		Target:     target,
		Selection:  selection,
		Parameters: c.Args().Tail(),
		Resume:     c.Bool("resume"),
		Attended:   attended,
		Echo:       echo,
		Observer:   observer,
	})
	// an interrupted exploit never reports back
	observer.spinner.Stop()
	if errors.Is(err, entities.ErrInterrupted) {
		app.logger.Warn("Run interrupted", interfaces.F("target", target))
		if result != nil {
			fmt.Fprintf(app.out, "\nStopped after %d exploits\n", len(result.Outcomes))
		}
		return err
	}
	if err != nil {
		return err
	}

	fmt.Fprintf(app.out, "\nRun %s finished in %s\n", result.RunID, result.TotalDuration.Round(time.Second))
	if !c.Bool("report") {
		return nil
	}

	rows, err := app.reports(false).Rows(c.Context, target)
	if err != nil {
		return err
	}
	fmt.Fprintln(app.out)
	return printReport(app.out, target, rows)
}

// progressObserver prints one line per exploit and animates the running one
type progressObserver struct {
	out     io.Writer
	spinner *spinner
	animate bool
}

func newProgressObserver(out io.Writer, animate bool) *progressObserver {
	return &progressObserver{out: out, spinner: newSpinner(out), animate: animate}
}

func (p *progressObserver) ExploitStarted(exploit *entities.Exploit, index, total int) {
	msg := fmt.Sprintf("[%d/%d] %s", index, total, exploit.Name)
	if p.animate && p.spinner.enabled {
		p.spinner.Start(msg)
		return
	}
	fmt.Fprintln(p.out, msg)
}

func (p *progressObserver) ExploitFinished(outcome entities.Outcome) {
	p.spinner.Stop()

	line := fmt.Sprintf("  %-20s %s", outcome.Exploit, resultLabel(outcome.Verdict))
	if outcome.Message != "" {
		line += "  " + oneLine(truncateMessage(outcome.Message))
	}
	verdictColor(outcome.Verdict).Fprintln(p.out, line)
}

func truncateMessage(s string) string {
	const limit = orchestrators.MaxReportDataLength
	runes := []rune(s)
	if len(runes) <= limit {
		return s
	}
	return string(runes[:limit]) + "..."
}
