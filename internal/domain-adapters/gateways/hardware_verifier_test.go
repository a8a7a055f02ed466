package gateways

import (
	"context"
	"errors"
	"os"
	"path/filepath"
	"strings"
	"testing"

	"github.com/google/go-cmp/cmp"

	"github.com/ochairo/sbleedy/internal/domain/entities"
	"github.com/ochairo/sbleedy/internal/domain/interfaces/gateways"
)

const hciconfigOutput = `hci1:	Type: Primary  Bus: UART
	BD Address: 00:1A:7D:DA:71:13  ACL MTU: 310:10  SCO MTU: 64:8
	UP RUNNING

hci0:	Type: Primary  Bus: USB
	BD Address: 00:1A:7D:DA:71:14  ACL MTU: 310:10  SCO MTU: 64:8
	UP RUNNING
`

// mockRunner returns canned output and records every invocation
type mockRunner struct {
	output []byte
	err    error
	calls  [][]string
}

func (m *mockRunner) Run(_ context.Context, name string, args ...string) ([]byte, error) {
	m.calls = append(m.calls, append([]string{name}, args...))
	if m.err != nil {
		return nil, m.err
	}
	return m.output, nil
}

func TestHCIVerifier_Verify(t *testing.T) {
	runner := &mockRunner{output: []byte(hciconfigOutput)}
	hw := &entities.HardwareProfile{Name: "hci", Kind: entities.HardwareHCI, NeedsSetupVerification: true}

	if err := NewHCIVerifier(runner, false, nil, nil).Verify(context.Background(), hw); err != nil {
		t.Fatalf("Verify() error = %v", err)
	}
	if hw.Port != "hci1" {
		t.Errorf("Verify() port = %q, want first listed interface hci1", hw.Port)
	}
}

func TestHCIVerifier_Verify_OperatorPort(t *testing.T) {
	runner := &mockRunner{output: []byte(hciconfigOutput)}

	hw := &entities.HardwareProfile{Name: "hci", Port: "hci0"}
	if err := NewHCIVerifier(runner, false, nil, nil).Verify(context.Background(), hw); err != nil {
		t.Fatalf("Verify() error = %v", err)
	}
	if hw.Port != "hci0" {
		t.Errorf("Verify() port = %q, want hci0", hw.Port)
	}

	missing := &entities.HardwareProfile{Name: "hci", Port: "hci7"}
	if err := NewHCIVerifier(runner, false, nil, nil).Verify(context.Background(), missing); err == nil {
		t.Error("Verify() should fail for an interface hciconfig does not list")
	}
}

func TestHCIVerifier_Verify_Reset(t *testing.T) {
	runner := &mockRunner{output: []byte(hciconfigOutput)}
	hw := &entities.HardwareProfile{Name: "hci"}

	err := NewHCIVerifier(runner, true, []string{"sudo"}, nil).Verify(context.Background(), hw)
	if err != nil {
		t.Fatalf("Verify() error = %v", err)
	}

	want := [][]string{
		{"hciconfig"},
		{"sudo", "hciconfig", "hci1", "down"},
		{"sudo", "hciconfig", "hci1", "up"},
	}
	if diff := cmp.Diff(want, runner.calls); diff != "" {
		t.Errorf("commands mismatch (-want +got):\n%s", diff)
	}
}

func TestHCIVerifier_Verify_Failures(t *testing.T) {
	tests := []struct {
		name   string
		runner *mockRunner
	}{
		{name: "hciconfig missing", runner: &mockRunner{err: errors.New("executable file not found")}},
		{name: "no interfaces", runner: &mockRunner{output: []byte("")}},
	}

	for _, tt := range tests {
		t.Run(tt.name, func(t *testing.T) {
			hw := &entities.HardwareProfile{Name: "hci"}
			if err := NewHCIVerifier(tt.runner, false, nil, nil).Verify(context.Background(), hw); err == nil {
				t.Error("Verify() should fail")
			}
			if hw.Port != "" {
				t.Errorf("Verify() set port %q on failure", hw.Port)
			}
		})
	}
}

// newTestNRFVerifier points the verifier at temporary device directories
func newTestNRFVerifier(t *testing.T, byID []string, ttys []string) *NRFVerifier {
	t.Helper()
	root := t.TempDir()
	byIDDir := filepath.Join(root, "by-id")
	devDir := filepath.Join(root, "dev")
	for _, dir := range []string{byIDDir, devDir} {
		if err := os.MkdirAll(dir, 0o750); err != nil {
			t.Fatal(err)
		}
	}
	for _, name := range byID {
		if err := os.WriteFile(filepath.Join(byIDDir, name), nil, 0o600); err != nil {
			t.Fatal(err)
		}
	}
	for _, name := range ttys {
		if err := os.WriteFile(filepath.Join(devDir, name), nil, 0o600); err != nil {
			t.Fatal(err)
		}
	}

	v := NewNRFVerifier(nil)
	v.byIDDir = byIDDir
	v.ttyGlob = filepath.Join(devDir, "ttyACM*")
	return v
}

func TestNRFVerifier_Verify(t *testing.T) {
	tests := []struct {
		name     string
		byID     []string
		ttys     []string
		wantPort string
		wantErr  string
	}{
		{
			name:     "serial by id",
			byID:     []string{"usb-FTDI_Serial-if00", "usb-ZEPHYR_nRF52840_Dongle_1234-if00"},
			ttys:     []string{"ttyACM0", "ttyACM1"},
			wantPort: "by-id/usb-ZEPHYR_nRF52840_Dongle_1234-if00",
		},
		{
			name:     "single tty",
			ttys:     []string{"ttyACM0"},
			wantPort: "dev/ttyACM0",
		},
		{
			name:    "ambiguous ttys",
			ttys:    []string{"ttyACM0", "ttyACM1"},
			wantErr: "--port nRF52840=",
		},
		{
			name:    "nothing attached",
			wantErr: "no nRF52840 found",
		},
	}

	for _, tt := range tests {
		t.Run(tt.name, func(t *testing.T) {
			v := newTestNRFVerifier(t, tt.byID, tt.ttys)
			hw := &entities.HardwareProfile{Name: "nRF52840", Kind: entities.HardwareNRF52840}

			err := v.Verify(context.Background(), hw)
			if tt.wantErr != "" {
				if err == nil || !strings.Contains(err.Error(), tt.wantErr) {
					t.Errorf("Verify() error = %v, want containing %q", err, tt.wantErr)
				}
				return
			}
			if err != nil {
				t.Fatalf("Verify() error = %v", err)
			}
			if !strings.HasSuffix(hw.Port, tt.wantPort) {
				t.Errorf("Verify() port = %q, want suffix %q", hw.Port, tt.wantPort)
			}
		})
	}
}

func TestNRFVerifier_Verify_OperatorPort(t *testing.T) {
	v := newTestNRFVerifier(t, nil, []string{"ttyACM0", "ttyACM1"})
	port := filepath.Join(filepath.Dir(v.ttyGlob), "ttyACM1")

	hw := &entities.HardwareProfile{Name: "nRF52840", Port: port}
	if err := v.Verify(context.Background(), hw); err != nil {
		t.Fatalf("Verify() error = %v", err)
	}
	if hw.Port != port {
		t.Errorf("Verify() port = %q, want %q", hw.Port, port)
	}

	hw = &entities.HardwareProfile{Name: "nRF52840", Port: "/nonexistent/ttyACM9"}
	if err := v.Verify(context.Background(), hw); err == nil {
		t.Error("Verify() should fail for a port that does not exist")
	}
}

// stubVerifier sets a fixed port or fails
type stubVerifier struct {
	port  string
	err   error
	calls int
}

func (s *stubVerifier) Verify(_ context.Context, hw *entities.HardwareProfile) error {
	s.calls++
	if s.err != nil {
		return s.err
	}
	hw.Port = s.port
	return nil
}

func TestKindVerifier_Verify(t *testing.T) {
	hci := &stubVerifier{port: "hci0"}
	kv := NewKindVerifier(map[entities.HardwareKind]gateways.HardwareVerifier{
		entities.HardwareHCI: hci,
	})

	hw := &entities.HardwareProfile{Name: "hci", Kind: entities.HardwareHCI, NeedsSetupVerification: true}
	if err := kv.Verify(context.Background(), hw); err != nil || hw.Port != "hci0" {
		t.Errorf("Verify() = %v, port %q", err, hw.Port)
	}

	plain := &entities.HardwareProfile{Name: "ubertooth", Kind: entities.HardwareUnknown}
	if err := kv.Verify(context.Background(), plain); err != nil {
		t.Errorf("Verify() error = %v for hardware without setup verification", err)
	}

	unknown := &entities.HardwareProfile{Name: "ubertooth", Kind: entities.HardwareUnknown, NeedsSetupVerification: true}
	if err := kv.Verify(context.Background(), unknown); err == nil {
		t.Error("Verify() should fail for an unknown kind that needs verification")
	}
}
