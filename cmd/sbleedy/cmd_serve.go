package main

import (
	"fmt"

	"github.com/urfave/cli/v2"

	"github.com/ochairo/sbleedy/internal/external-adapters/httpapi"
)

func commandServe() *cli.Command {
	return &cli.Command{
		Name:  "serve",
		Usage: "Serve the catalog and stored results over a read-only HTTP API",
		Flags: []cli.Flag{
			&cli.StringFlag{Name: "listen", Aliases: []string{"l"}, Usage: "Listen on `ADDR` (default from config)"},
		},
		Action: serveAPI,
	}
}

func serveAPI(c *cli.Context) error {
	app, err := newApplication(c)
	if err != nil {
		return err
	}
	defer app.Close()

	addr := app.cfg.ListenAddr
	if c.IsSet("listen") {
		addr = c.String("listen")
	}

	fmt.Fprintf(app.out, "Serving results from %s on http://%s\n", app.store.Root(), addr)
	return httpapi.NewServer(app.exploits, app.store, app.logger).Run(c.Context, addr)
}
