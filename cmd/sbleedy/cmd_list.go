package main

import (
	"fmt"
	"path/filepath"
	"sort"
	"strings"

	"github.com/fatih/color"
	"github.com/urfave/cli/v2"

	"github.com/ochairo/sbleedy/internal/domain-adapters/gateways"
	"github.com/ochairo/sbleedy/internal/domain/entities"
)

func commandList() *cli.Command {
	return &cli.Command{
		Name:  "list",
		Usage: "List the exploit catalog",
		Description: `Lists every exploit with the hardware it needs and whether that hardware
is currently usable. Exploits that can run are listed first.

Examples:
  sbleedy list
  sbleedy list --type DoS
  sbleedy list --checksums`,
		Flags: []cli.Flag{
			&cli.StringFlag{Name: "type", Usage: "Only list exploits of this type"},
			&cli.BoolFlag{Name: "checksums", Usage: "Show the sha256 of each exploit program"},
			&cli.StringSliceFlag{Name: "port", Usage: "Override a hardware port as `NAME=DEVICE`"},
		},
		Action: listExploits,
	}
}

func listExploits(c *cli.Context) error {
	ports, err := parsePorts(c.StringSlice("port"))
	if err != nil {
		return err
	}

	app, err := newApplication(c)
	if err != nil {
		return err
	}
	defer app.Close()

	catalog, err := app.exploits.ListExploits(c.Context)
	if err != nil {
		return fmt.Errorf("failed to load exploit catalog: %w", err)
	}
	if kind := c.String("type"); kind != "" {
		filtered := make([]*entities.Exploit, 0, len(catalog))
		for _, exploit := range catalog {
			if strings.EqualFold(exploit.Type, kind) {
				filtered = append(filtered, exploit)
			}
		}
		catalog = filtered
	}

	available := app.registry(ports).Available(c.Context, requiredHardware(catalog))
	runnable := func(e *entities.Exploit) bool {
		for _, name := range e.HardwareList() {
			if !available[name] {
				return false
			}
		}
		return true
	}

	sort.SliceStable(catalog, func(i, j int) bool {
		a, b := catalog[i], catalog[j]
		if runnable(a) != runnable(b) {
			return runnable(a)
		}
		if a.Hardware != b.Hardware {
			return a.Hardware < b.Hardware
		}
		return a.Type < b.Type
	})

	header := []string{"Index", "Exploit", "Type", "Hardware", "Available", "BT min", "BT max", "CVE"}
	if c.Bool("checksums") {
		header = append(header, "SHA256")
	}
	t := &table{header: header}
	checksums := gateways.NewChecksumVerifier()

	for i, exploit := range catalog {
		rowColor, mark := color.New(color.FgGreen), "yes"
		if !runnable(exploit) {
			rowColor, mark = color.New(color.FgRed), "no"
		}

		hardware := exploit.Hardware
		if hardware == "" {
			hardware = "-"
		}
		row := []string{
			fmt.Sprint(i + 1),
			exploit.Name,
			exploit.Type,
			hardware,
			mark,
			formatVersion(exploit.BTVersionMin),
			formatVersion(exploit.BTVersionMax),
			exploit.CVE,
		}
		if c.Bool("checksums") {
			path := filepath.Join(app.cfg.ModulesDir, exploit.Directory, exploit.Program())
			sum, err := checksums.CalculateChecksum(path)
			if err != nil {
				sum = "missing"
			}
			row = append(row, sum)
		}
		t.add(rowColor, row...)
	}

	fmt.Fprintf(app.out, "Exploits (%d total):\n\n", len(catalog))
	return t.render(app.out)
}

// requiredHardware lists every hardware name the catalog refers to
func requiredHardware(catalog []*entities.Exploit) []string {
	seen := make(map[string]bool)
	names := make([]string, 0)
	for _, exploit := range catalog {
		for _, name := range exploit.HardwareList() {
			if !seen[name] {
				seen[name] = true
				names = append(names, name)
			}
		}
	}
	sort.Strings(names)
	return names
}
