package config

import (
	"os"
	"path/filepath"
	"strings"
	"testing"
	"time"

	"github.com/google/go-cmp/cmp"
)

func writeConfig(t *testing.T, content string) string {
	t.Helper()
	path := filepath.Join(t.TempDir(), "sbleedy.yaml")
	if err := os.WriteFile(path, []byte(content), 0o600); err != nil {
		t.Fatal(err)
	}
	return path
}

func TestDefaultConfig(t *testing.T) {
	cfg := DefaultConfig()
	if err := cfg.Validate(); err != nil {
		t.Fatalf("default config is invalid: %v", err)
	}
	if cfg.DefaultTimeout != 40*time.Second {
		t.Errorf("DefaultTimeout = %v, want 40s", cfg.DefaultTimeout)
	}
	if cfg.DoSProbes != 5 || cfg.DoSMaxFailures != 3 {
		t.Errorf("DoS policy = %d/%d, want 5/3", cfg.DoSProbes, cfg.DoSMaxFailures)
	}
}

func TestLoadFile(t *testing.T) {
	path := writeConfig(t, `
modules_dir: /opt/sbleedy/modules
default_timeout: 90s
probe_window: 5s
elevation: []
reset_hci: true
keyrings:
  - /etc/sbleedy/modules.asc
`)

	cfg, err := LoadFile(path)
	if err != nil {
		t.Fatalf("LoadFile() error = %v", err)
	}

	want := DefaultConfig()
	want.ModulesDir = "/opt/sbleedy/modules"
	want.DefaultTimeout = 90 * time.Second
	want.ProbeWindow = 5 * time.Second
	want.Elevation = []string{}
	want.ResetHCI = true
	want.Keyrings = []string{"/etc/sbleedy/modules.asc"}

	if diff := cmp.Diff(want, cfg); diff != "" {
		t.Errorf("LoadFile() mismatch (-want +got):\n%s", diff)
	}
}

func TestLoadFile_Missing(t *testing.T) {
	cfg, err := LoadFile(filepath.Join(t.TempDir(), "absent.yaml"))
	if err != nil {
		t.Fatalf("LoadFile() error = %v", err)
	}
	if diff := cmp.Diff(DefaultConfig(), cfg); diff != "" {
		t.Errorf("missing file should yield defaults (-want +got):\n%s", diff)
	}
}

func TestLoadFile_Invalid(t *testing.T) {
	tests := []struct {
		name    string
		content string
		wantErr string
	}{
		{name: "malformed yaml", content: "modules_dir: [", wantErr: "failed to parse"},
		{name: "zero timeout", content: "default_timeout: 0s", wantErr: "default_timeout"},
		{name: "no probes", content: "dos_probes: 0", wantErr: "dos_probes"},
		{name: "tolerance too high", content: "dos_probes: 3\ndos_max_failures: 3", wantErr: "dos_max_failures"},
		{name: "empty results dir", content: "results_dir: \"\"", wantErr: "results_dir"},
	}

	for _, tt := range tests {
		t.Run(tt.name, func(t *testing.T) {
			_, err := LoadFile(writeConfig(t, tt.content))
			if err == nil || !strings.Contains(err.Error(), tt.wantErr) {
				t.Errorf("LoadFile() error = %v, want containing %q", err, tt.wantErr)
			}
		})
	}
}
