package main

import (
	"fmt"

	"github.com/fatih/color"
	"github.com/urfave/cli/v2"
)

func commandHardware() *cli.Command {
	return &cli.Command{
		Name:  "hardware",
		Usage: "Verify the configured hardware",
		Flags: []cli.Flag{
			&cli.StringSliceFlag{Name: "port", Usage: "Override a hardware port as `NAME=DEVICE`"},
		},
		Action: verifyHardware,
	}
}

func verifyHardware(c *cli.Context) error {
	ports, err := parsePorts(c.StringSlice("port"))
	if err != nil {
		return err
	}

	app, err := newApplication(c)
	if err != nil {
		return err
	}
	defer app.Close()

	statuses, err := app.registry(ports).VerifyAll(c.Context)
	if err != nil {
		return err
	}

	t := &table{header: []string{"Hardware", "Status", "Port", "Details"}}
	for _, status := range statuses {
		if status.Available {
			t.add(color.New(color.FgGreen), status.Name, "ready", status.Port, "")
			continue
		}
		port := status.Port
		if port == "" {
			port = "-"
		}
		t.add(color.New(color.FgRed), status.Name, "unavailable", port, status.Reason)
	}

	if len(statuses) == 0 {
		fmt.Fprintln(app.out, "No hardware profiles configured")
		return nil
	}
	return t.render(app.out)
}
