package main

import (
	"encoding/json"
	"fmt"

	"github.com/urfave/cli/v2"
)

func commandReport() *cli.Command {
	return &cli.Command{
		Name:      "report",
		Usage:     "Show the results recorded for a target",
		ArgsUsage: "<target>",
		Description: `Prints the report table for the target. With --json the machine-readable
report is written to the target's results directory and printed.

Examples:
  sbleedy report AA:BB:CC:DD:EE:FF
  sbleedy report --json --enrich AA:BB:CC:DD:EE:FF`,
		Flags: []cli.Flag{
			&cli.BoolFlag{Name: "json", Usage: "Write and print the machine-readable report"},
			&cli.BoolFlag{Name: "enrich", Usage: "Add advisory summaries from OSV to the JSON report"},
		},
		Action: showReport,
	}
}

func showReport(c *cli.Context) error {
	if c.NArg() != 1 {
		return cli.ShowSubcommandHelp(c)
	}
	target, err := normalizeTarget(c.Args().First())
	if err != nil {
		return err
	}

	app, err := newApplication(c)
	if err != nil {
		return err
	}
	defer app.Close()

	reports := app.reports(c.Bool("enrich"))
	if !c.Bool("json") {
		rows, err := reports.Rows(c.Context, target)
		if err != nil {
			return err
		}
		return printReport(app.out, target, rows)
	}

	report, err := reports.MachineReport(c.Context, target, c.Bool("enrich"))
	if err != nil {
		return err
	}
	data, err := json.MarshalIndent(report, "", "  ")
	if err != nil {
		return fmt.Errorf("failed to encode report: %w", err)
	}
	_, err = fmt.Fprintln(app.out, string(data))
	return err
}
