package orchestrators

import (
	"context"
	"errors"
	"fmt"
	"io/fs"
	"os"
	"path/filepath"
	"regexp"
	"strconv"
	"strings"
	"time"

	"github.com/ochairo/sbleedy/internal/domain/entities"
	"github.com/ochairo/sbleedy/internal/domain/interfaces"
	"github.com/ochairo/sbleedy/internal/domain/interfaces/gateways"
	"github.com/ochairo/sbleedy/internal/domain/interfaces/repositories"
)

// Recon output files, relative to the target's recon directory
const (
	ReconHCIToolInfo = "hcitool_info.txt"
	ReconLMPFeatures = "bluing_lmp_features.txt"
	ReconSDPServices = "bluing_sdp.txt"
)

const defaultReconTimeout = 60 * time.Second

var (
	lmpVersionPattern     = regexp.MustCompile(`Bluetooth Core Specification (\d+\.\d+)`)
	hciToolVersionPattern = regexp.MustCompile(`LMP Version: .*?\((0x[0-9a-fA-F]+)\)`)
	manufacturerPattern   = regexp.MustCompile(`Manufacturer:\s*(.+)`)
)

// lmpVersions maps LMP version numbers to Bluetooth Core versions
var lmpVersions = map[string]float64{
	"0x0": 1.0,
	"0x1": 1.1,
	"0x2": 1.2,
	"0x3": 2.0,
	"0x4": 2.1,
	"0x5": 3.0,
	"0x6": 4.0,
	"0x7": 4.1,
	"0x8": 4.2,
	"0x9": 5.0,
	"0xa": 5.1,
	"0xb": 5.2,
	"0xc": 5.3,
	"0xd": 5.4,
	"0xe": 6.0,
}

// reconCommand is one information-gathering tool run against the target
type reconCommand struct {
	file string
	argv []string
}

// ReconOrchestrator gathers version and vendor information about a target
// and checks that it is reachable
type ReconOrchestrator struct {
	supervisor gateways.Supervisor
	reports    repositories.ReportRepository
	probe      gateways.AvailabilityProbe
	elevation  []string
	timeout    time.Duration
	logger     interfaces.Logger
}

// ReconOrchestratorConfig holds configuration for the orchestrator
type ReconOrchestratorConfig struct {
	Elevation []string
	Timeout   time.Duration
}

// NewReconOrchestrator creates a new recon orchestrator
func NewReconOrchestrator(
	supervisor gateways.Supervisor,
	reports repositories.ReportRepository,
	probe gateways.AvailabilityProbe,
	config ReconOrchestratorConfig,
	logger interfaces.Logger,
) *ReconOrchestrator {
	timeout := config.Timeout
	if timeout == 0 {
		timeout = defaultReconTimeout
	}

	return &ReconOrchestrator{
		supervisor: supervisor,
		reports:    reports,
		probe:      probe,
		elevation:  config.Elevation,
		timeout:    timeout,
		logger:     interfaces.OrNoOp(logger),
	}
}

func (o *ReconOrchestrator) commands(target string) []reconCommand {
	return []reconCommand{
		{file: ReconHCIToolInfo, argv: o.elevated("hcitool", "info", target)},
		{file: ReconSDPServices, argv: o.elevated("bluing", "br", "--sdp", target)},
		{file: ReconLMPFeatures, argv: o.elevated("bluing", "br", "--lmp-features", target)},
	}
}

func (o *ReconOrchestrator) elevated(argv ...string) []string {
	return append(append([]string(nil), o.elevation...), argv...)
}

// Run executes every recon tool against target, saving each tool's output,
// and returns what could be learned. A failing tool is logged and skipped.
func (o *ReconOrchestrator) Run(ctx context.Context, target string) (*entities.ReconInfo, error) {
	dir, err := o.reports.ReconDir(target)
	if err != nil {
		return nil, fmt.Errorf("failed to prepare recon directory: %w", err)
	}

	for _, command := range o.commands(target) {
		if ctx.Err() != nil {
			return nil, entities.ErrInterrupted
		}

		o.logger.Info("Running recon command", interfaces.F("command", strings.Join(command.argv, " ")))

		result := o.supervisor.Execute(ctx, gateways.ExecuteConfig{
			Name:    "recon " + command.file,
			Argv:    command.argv,
			Timeout: o.timeout,
		})
		if !result.Succeeded || result.ExitCode != 0 {
			o.logger.Warn("Recon command failed",
				interfaces.F("command", command.argv[len(o.elevation)]),
				interfaces.F("exit_code", result.ExitCode),
				interfaces.F("output", strings.TrimSpace(string(result.Output))))
			continue
		}

		path := filepath.Join(dir, command.file)
		if err := os.WriteFile(path, result.Output, 0o600); err != nil {
			return nil, fmt.Errorf("failed to save recon output: %w", err)
		}
	}

	return o.Info(target)
}

// Info reads previously saved recon output for target. Missing files leave
// the corresponding fields empty.
func (o *ReconOrchestrator) Info(target string) (*entities.ReconInfo, error) {
	dir, err := o.reports.ReconDir(target)
	if err != nil {
		return nil, fmt.Errorf("failed to locate recon directory: %w", err)
	}

	lmp, err := readOptional(filepath.Join(dir, ReconLMPFeatures))
	if err != nil {
		return nil, err
	}
	info, err := readOptional(filepath.Join(dir, ReconHCIToolInfo))
	if err != nil {
		return nil, err
	}

	manufacturer := ParseManufacturer(lmp)
	if manufacturer == "" {
		manufacturer = ParseManufacturer(info)
	}

	return &entities.ReconInfo{
		BTVersion:    ParseBTVersion(lmp, info),
		Manufacturer: manufacturer,
	}, nil
}

// CheckTarget probes target up to attempts times and reports whether it
// answered
func (o *ReconOrchestrator) CheckTarget(ctx context.Context, target string, attempts int) (bool, error) {
	if o.probe == nil {
		return false, errors.New("no availability probe configured")
	}
	if attempts <= 0 {
		attempts = 1
	}

	for i := 0; i < attempts; i++ {
		available, err := o.probe.IsAvailable(ctx, target)
		if err != nil {
			return false, fmt.Errorf("availability probe failed: %w", err)
		}
		if available {
			o.logger.Info("Target is available",
				interfaces.F("target", target),
				interfaces.F("attempt", i+1))
			return true, nil
		}
		if ctx.Err() != nil {
			return false, entities.ErrInterrupted
		}
	}

	o.logger.Warn("Target not available", interfaces.F("target", target), interfaces.F("attempts", attempts))
	return false, nil
}

// ParseBTVersion extracts the target's Bluetooth Core version, preferring
// the LMP feature dump and falling back to the LMP version hcitool reports
func ParseBTVersion(lmpFeatures, hciToolInfo []byte) *float64 {
	if m := lmpVersionPattern.FindSubmatch(lmpFeatures); m != nil {
		if version, err := strconv.ParseFloat(string(m[1]), 64); err == nil {
			return &version
		}
	}

	if m := hciToolVersionPattern.FindSubmatch(hciToolInfo); m != nil {
		if version, ok := lmpVersions[strings.ToLower(string(m[1]))]; ok {
			return &version
		}
	}

	return nil
}

// ParseManufacturer extracts the manufacturer line of a recon dump
func ParseManufacturer(text []byte) string {
	m := manufacturerPattern.FindSubmatch(text)
	if m == nil {
		return ""
	}
	return strings.TrimSpace(string(m[1]))
}

func readOptional(path string) ([]byte, error) {
	//nolint:gosec // G304: path is inside the results directory
	data, err := os.ReadFile(path)
	if errors.Is(err, fs.ErrNotExist) {
		return nil, nil
	}
	if err != nil {
		return nil, fmt.Errorf("failed to read %s: %w", filepath.Base(path), err)
	}
	return data, nil
}
