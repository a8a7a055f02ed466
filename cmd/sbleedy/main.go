package main

import (
	"context"
	"errors"
	"os"
	"os/signal"
	"syscall"

	"github.com/fatih/color"
	"github.com/urfave/cli/v2"

	"github.com/ochairo/sbleedy/internal/config"
	"github.com/ochairo/sbleedy/internal/domain/entities"
)

const appVersion = "0.4.0"

// exitInterrupted is the status for a run stopped by the operator after its
// checkpoint was written
const exitInterrupted = 130

func main() {
	ctx, stop := signal.NotifyContext(context.Background(), os.Interrupt, syscall.SIGTERM)
	defer stop()

	err := newApp().RunContext(ctx, os.Args)
	if errors.Is(err, entities.ErrInterrupted) {
		color.Yellow("Interrupted. Resume with: sbleedy run --resume <target>")
		os.Exit(exitInterrupted)
	}
	if err != nil {
		color.Red("Error: %v", err)
		os.Exit(1)
	}
}

func newApp() *cli.App {
	return &cli.App{
		Name:    "sbleedy",
		Usage:   "Bluetooth vulnerability assessment toolkit",
		Version: appVersion,
		Flags: []cli.Flag{
			&cli.StringFlag{
				Name:    "config",
				Aliases: []string{"c"},
				Value:   config.DefaultConfigFile,
				Usage:   "Load configuration from `FILE`",
				EnvVars: []string{"SBLEEDY_CONFIG"},
			},
			&cli.StringFlag{
				Name:    "log-level",
				Usage:   "Log level (debug, info, warn, error)",
				EnvVars: []string{"SBLEEDY_LOG_LEVEL"},
			},
			&cli.StringFlag{
				Name:    "exploits-dir",
				Usage:   "Directory holding exploit descriptors",
				EnvVars: []string{"SBLEEDY_EXPLOITS_DIR"},
			},
			&cli.StringFlag{
				Name:    "hardware-dir",
				Usage:   "Directory holding hardware profiles",
				EnvVars: []string{"SBLEEDY_HARDWARE_DIR"},
			},
			&cli.StringFlag{
				Name:    "modules-dir",
				Usage:   "Directory holding exploit programs",
				EnvVars: []string{"SBLEEDY_MODULES_DIR"},
			},
			&cli.StringFlag{
				Name:    "results-dir",
				Usage:   "Directory for results, checkpoints and reports",
				EnvVars: []string{"SBLEEDY_RESULTS_DIR"},
			},
			&cli.BoolFlag{
				Name:  "no-color",
				Usage: "Disable coloured output",
			},
		},
		Before: func(c *cli.Context) error {
			if c.Bool("no-color") {
				color.NoColor = true
			}
			return nil
		},
		Commands: []*cli.Command{
			commandRun(),
			commandList(),
			commandHardware(),
			commandRecon(),
			commandCheckTarget(),
			commandReport(),
			commandServe(),
		},
	}
}
