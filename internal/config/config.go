// Package config holds the runtime configuration of the toolkit.
package config

import (
	"errors"
	"fmt"
	"io/fs"
	"os"
	"path/filepath"
	"time"

	"gopkg.in/yaml.v3"
)

// DefaultConfigFile is read from the working directory when no file is named
const DefaultConfigFile = "sbleedy.yaml"

// Config holds the toolkit configuration
type Config struct {
	ExploitsDir string `yaml:"exploits_dir"` // exploit descriptor YAML files
	HardwareDir string `yaml:"hardware_dir"` // hardware profile YAML files
	ModulesDir  string `yaml:"modules_dir"`  // exploit programs, one directory per check
	ResultsDir  string `yaml:"results_dir"`  // per-target results, checkpoints and reports
	LogFile     string `yaml:"log_file"`     // application log
	LogLevel    string `yaml:"log_level"`

	DefaultTimeout time.Duration `yaml:"default_timeout"` // for descriptors without max_timeout
	GracePeriod    time.Duration `yaml:"grace_period"`    // between SIGTERM and SIGKILL
	ReconTimeout   time.Duration `yaml:"recon_timeout"`

	Python       string   `yaml:"python"`
	LegacyPython string   `yaml:"legacy_python"`
	Shell        string   `yaml:"shell"`
	Compiler     string   `yaml:"compiler"`
	Elevation    []string `yaml:"elevation"` // prefix for commands that need root

	ResetHCI bool `yaml:"reset_hci"`

	DoSProbes           int           `yaml:"dos_probes"`
	DoSMaxFailures      int           `yaml:"dos_max_failures"`
	ProbeWindow         time.Duration `yaml:"probe_window"` // LE scan length per availability probe
	CheckTargetAttempts int           `yaml:"check_target_attempts"`

	Keyrings   []string `yaml:"keyrings"` // OpenPGP keyrings for module signatures
	ListenAddr string   `yaml:"listen_addr"`
}

// DefaultConfig returns a configuration with default values
func DefaultConfig() Config {
	return Config{
		ExploitsDir: "exploits",
		HardwareDir: "hardware",
		ModulesDir:  "modules",
		ResultsDir:  "results",
		LogFile:     filepath.Join("results", "application.log"),
		LogLevel:    "info",

		DefaultTimeout: 40 * time.Second,
		GracePeriod:    3 * time.Second,
		ReconTimeout:   60 * time.Second,

		Python:       "python3",
		LegacyPython: filepath.Join("venv2", "bin", "python"),
		Shell:        "bash",
		Compiler:     "gcc",
		Elevation:    []string{"sudo"},

		DoSProbes:           5,
		DoSMaxFailures:      3,
		ProbeWindow:         10 * time.Second,
		CheckTargetAttempts: 10,

		ListenAddr: "127.0.0.1:8080",
	}
}

// LoadFile loads configuration from a YAML file over the defaults. A missing
// file yields the defaults.
func LoadFile(path string) (Config, error) {
	cfg := DefaultConfig()

	//nolint:gosec // G304: configuration path is chosen by the operator
	data, err := os.ReadFile(path)
	if errors.Is(err, fs.ErrNotExist) {
		return cfg, nil
	}
	if err != nil {
		return cfg, fmt.Errorf("failed to read config file: %w", err)
	}

	if err := yaml.Unmarshal(data, &cfg); err != nil {
		return cfg, fmt.Errorf("failed to parse config file %s: %w", path, err)
	}

	return cfg, cfg.Validate()
}

// Validate checks the configuration for values the toolkit cannot run with
func (c Config) Validate() error {
	if c.ExploitsDir == "" || c.ModulesDir == "" || c.ResultsDir == "" {
		return fmt.Errorf("exploits_dir, modules_dir and results_dir must be set")
	}
	if c.DefaultTimeout <= 0 {
		return fmt.Errorf("default_timeout must be positive, got %s", c.DefaultTimeout)
	}
	if c.GracePeriod < 0 {
		return fmt.Errorf("grace_period must not be negative, got %s", c.GracePeriod)
	}
	if c.DoSProbes <= 0 {
		return fmt.Errorf("dos_probes must be positive, got %d", c.DoSProbes)
	}
	if c.DoSMaxFailures < 0 || c.DoSMaxFailures >= c.DoSProbes {
		return fmt.Errorf("dos_max_failures must be between 0 and %d, got %d", c.DoSProbes-1, c.DoSMaxFailures)
	}
	if c.ProbeWindow <= 0 {
		return fmt.Errorf("probe_window must be positive, got %s", c.ProbeWindow)
	}
	return nil
}
