package main

import (
	"fmt"

	"github.com/fatih/color"
	"github.com/urfave/cli/v2"
)

func commandRecon() *cli.Command {
	return &cli.Command{
		Name:      "recon",
		Usage:     "Gather version and vendor information about a target",
		ArgsUsage: "<target>",
		Action:    runRecon,
	}
}

func runRecon(c *cli.Context) error {
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

	info, err := app.recon().Run(c.Context, target)
	if err != nil {
		return err
	}

	fmt.Fprintf(app.out, "Recon for %s\n", target)
	if info.BTVersion != nil {
		fmt.Fprintf(app.out, "  Bluetooth version: %.1f\n", *info.BTVersion)
	} else {
		color.New(color.FgYellow).Fprintln(app.out, "  Bluetooth version: unknown")
	}
	if info.Manufacturer != "" {
		fmt.Fprintf(app.out, "  Manufacturer:      %s\n", info.Manufacturer)
	} else {
		color.New(color.FgYellow).Fprintln(app.out, "  Manufacturer:      unknown")
	}
	return nil
}
