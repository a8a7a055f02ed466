package main

import (
	"fmt"
	"io"
	"os"
	"path/filepath"
	"strings"

	"github.com/urfave/cli/v2"

	"github.com/ochairo/sbleedy/internal/config"
	"github.com/ochairo/sbleedy/internal/domain-adapters/gateways"
	orchestrators "github.com/ochairo/sbleedy/internal/domain-orchestrators"
	"github.com/ochairo/sbleedy/internal/domain/entities"
	"github.com/ochairo/sbleedy/internal/domain/interfaces"
	gatewayifaces "github.com/ochairo/sbleedy/internal/domain/interfaces/gateways"
	"github.com/ochairo/sbleedy/internal/domain/services"
	"github.com/ochairo/sbleedy/internal/external-adapters/bluetooth"
	"github.com/ochairo/sbleedy/internal/external-adapters/jsonstore"
	"github.com/ochairo/sbleedy/internal/external-adapters/logging"
	"github.com/ochairo/sbleedy/internal/external-adapters/yaml"
)

// application holds the components shared by every command
type application struct {
	cfg      config.Config
	logger   *logging.Logger
	closer   io.Closer
	out      io.Writer
	store    *jsonstore.Store
	exploits *yaml.ExploitRepository
	hardware *yaml.HardwareRepository
}

// newApplication loads configuration, applies global flag overrides and
// opens the application log
func newApplication(c *cli.Context) (*application, error) {
	cfg, err := config.LoadFile(c.String("config"))
	if err != nil {
		return nil, err
	}
	applyOverrides(&cfg, c)
	if err := cfg.Validate(); err != nil {
		return nil, err
	}

	logger, closer, err := logging.OpenFile(cfg.LogFile, cfg.LogLevel)
	if err != nil {
		return nil, err
	}
	logger.Debug("Configuration loaded",
		interfaces.F("exploits_dir", cfg.ExploitsDir),
		interfaces.F("modules_dir", cfg.ModulesDir),
		interfaces.F("results_dir", cfg.ResultsDir))

	parser := yaml.NewExploitParser(cfg.DefaultTimeout)

	return &application{
		cfg:      cfg,
		logger:   logger,
		closer:   closer,
		out:      os.Stdout,
		store:    jsonstore.NewStore(cfg.ResultsDir),
		exploits: yaml.NewExploitRepository(cfg.ExploitsDir, parser, logger),
		hardware: yaml.NewHardwareRepository(cfg.HardwareDir, logger),
	}, nil
}

func applyOverrides(cfg *config.Config, c *cli.Context) {
	overrides := []struct {
		flag  string
		field *string
	}{
		{"log-level", &cfg.LogLevel},
		{"exploits-dir", &cfg.ExploitsDir},
		{"hardware-dir", &cfg.HardwareDir},
		{"modules-dir", &cfg.ModulesDir},
		{"results-dir", &cfg.ResultsDir},
	}
	for _, o := range overrides {
		if c.IsSet(o.flag) {
			*o.field = c.String(o.flag)
		}
	}

	// the application log follows a relocated results directory unless the
	// config file placed it elsewhere
	if c.IsSet("results-dir") && cfg.LogFile == config.DefaultConfig().LogFile {
		cfg.LogFile = filepath.Join(cfg.ResultsDir, "application.log")
	}
}

// Close releases the application log
func (a *application) Close() error {
	return a.closer.Close()
}

func (a *application) supervisor() *gateways.ProcessSupervisor {
	return gateways.NewProcessSupervisor(a.logger).WithGracePeriod(a.cfg.GracePeriod)
}

func (a *application) probe() *bluetooth.Probe {
	return bluetooth.NewProbe(a.cfg.ProbeWindow, a.logger)
}

// registry builds the hardware registry with the closed verifier table
func (a *application) registry(ports map[string]string) *gateways.HardwareRegistry {
	runner := gateways.NewCommandRunner(0)
	verifier := gateways.NewKindVerifier(map[entities.HardwareKind]gatewayifaces.HardwareVerifier{
		entities.HardwareHCI:      gateways.NewHCIVerifier(runner, a.cfg.ResetHCI, a.cfg.Elevation, a.logger),
		entities.HardwareNRF52840: gateways.NewNRFVerifier(a.logger),
	})
	return gateways.NewHardwareRegistry(a.hardware, verifier, ports, a.logger)
}

func (a *application) integrity(keyrings []string) (gatewayifaces.IntegrityGateway, error) {
	gpg, err := gateways.NewGPGVerifier(a.logger, keyrings...)
	if err != nil {
		return nil, err
	}
	return gateways.NewIntegrityGateway(gateways.NewChecksumVerifier(), gpg), nil
}

func (a *application) assessment(ports map[string]string, keyrings []string) (*orchestrators.AssessmentOrchestrator, error) {
	integrity, err := a.integrity(keyrings)
	if err != nil {
		return nil, err
	}

	builder := services.NewCommandBuilder(services.BuilderConfig{
		ModulesDir:   a.cfg.ModulesDir,
		Python:       a.cfg.Python,
		LegacyPython: a.cfg.LegacyPython,
		Shell:        a.cfg.Shell,
		Elevation:    a.cfg.Elevation,
	}, gateways.NewNativeCompiler(a.cfg.Compiler, a.logger), a.logger)

	service := services.NewAssessmentService(a.probe(), services.DoSPolicy{
		Probes:      a.cfg.DoSProbes,
		MaxFailures: a.cfg.DoSMaxFailures,
	})

	return orchestrators.NewAssessmentOrchestrator(
		a.exploits,
		a.store,
		a.store,
		service,
		builder,
		a.supervisor(),
		a.registry(ports),
		integrity,
		orchestrators.AssessmentOrchestratorConfig{ModulesDir: a.cfg.ModulesDir},
		a.logger,
	), nil
}

func (a *application) recon() *orchestrators.ReconOrchestrator {
	return orchestrators.NewReconOrchestrator(
		a.supervisor(),
		a.store,
		a.probe(),
		orchestrators.ReconOrchestratorConfig{Elevation: a.cfg.Elevation, Timeout: a.cfg.ReconTimeout},
		a.logger,
	)
}

func (a *application) reports(enrich bool) *orchestrators.ReportOrchestrator {
	var cve gatewayifaces.CVEGateway
	if enrich {
		cve = gateways.NewOSVGateway()
	}
	return orchestrators.NewReportOrchestrator(a.exploits, a.store, a.store, a.recon(), cve, a.logger)
}

// parsePorts turns repeated name=device flags into a port override table
func parsePorts(values []string) (map[string]string, error) {
	ports := make(map[string]string, len(values))
	for _, v := range values {
		name, device, ok := strings.Cut(v, "=")
		name, device = strings.TrimSpace(name), strings.TrimSpace(device)
		if !ok || name == "" || device == "" {
			return nil, fmt.Errorf("invalid port %q, expected <hardware>=<device>", v)
		}
		ports[name] = device
	}
	return ports, nil
}

// normalizeTarget upper-cases a device address so results land in one
// directory regardless of how the address was typed
func normalizeTarget(target string) (string, error) {
	target = strings.ToUpper(strings.TrimSpace(target))
	if target == "" {
		return "", fmt.Errorf("a target address is required")
	}
	return target, nil
}
