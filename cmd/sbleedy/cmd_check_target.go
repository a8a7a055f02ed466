package main

import (
	"errors"
	"fmt"

	"github.com/fatih/color"
	"github.com/urfave/cli/v2"
)

var errTargetUnavailable = errors.New("target did not answer")

func commandCheckTarget() *cli.Command {
	return &cli.Command{
		Name:      "check-target",
		Usage:     "Check that a target answers before a run",
		ArgsUsage: "<target>",
		Flags: []cli.Flag{
			&cli.IntFlag{Name: "attempts", Usage: "Number of probes before giving up (default from config)"},
		},
		Action: checkTarget,
	}
}

func checkTarget(c *cli.Context) error {
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

	attempts := app.cfg.CheckTargetAttempts
	if c.IsSet("attempts") {
		attempts = c.Int("attempts")
	}

	available, err := app.recon().CheckTarget(c.Context, target, attempts)
	if err != nil {
		return err
	}
	if !available {
		return fmt.Errorf("%s: %w after %d attempts", target, errTargetUnavailable, attempts)
	}

	color.New(color.FgGreen).Fprintf(app.out, "%s is available\n", target)
	return nil
}
