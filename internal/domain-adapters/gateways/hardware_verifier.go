package gateways

import (
	"context"
	"fmt"
	"os"
	"path/filepath"
	"regexp"
	"sort"
	"strings"

	"github.com/ochairo/sbleedy/internal/domain/entities"
	"github.com/ochairo/sbleedy/internal/domain/interfaces"
	"github.com/ochairo/sbleedy/internal/domain/interfaces/gateways"
)

var hciInterfacePattern = regexp.MustCompile(`(hci\d+):.*?Bus: (\w+)`)

// HCIVerifier finds a local HCI adapter through hciconfig
type HCIVerifier struct {
	runner    gateways.CommandRunner
	reset     bool
	elevation []string
	logger    interfaces.Logger
}

// NewHCIVerifier creates an HCI verifier. When reset is set the selected
// adapter is cycled down and up, prefixed by elevation.
func NewHCIVerifier(runner gateways.CommandRunner, reset bool, elevation []string, logger interfaces.Logger) *HCIVerifier {
	return &HCIVerifier{
		runner:    runner,
		reset:     reset,
		elevation: elevation,
		logger:    interfaces.OrNoOp(logger),
	}
}

// Verify selects an HCI interface and records it as the profile's port. A
// port already set by the operator must be among the listed interfaces.
func (v *HCIVerifier) Verify(ctx context.Context, hw *entities.HardwareProfile) error {
	out, err := v.runner.Run(ctx, "hciconfig")
	if err != nil {
		return fmt.Errorf("failed to list HCI interfaces: %w", err)
	}

	matches := hciInterfacePattern.FindAllSubmatch(out, -1)
	if len(matches) == 0 {
		return fmt.Errorf("no HCI interface found")
	}

	selected := ""
	for _, m := range matches {
		iface := string(m[1])
		if hw.Port == "" || hw.Port == iface {
			selected = iface
			v.logger.Debug("Found HCI interface",
				interfaces.F("interface", iface),
				interfaces.F("bus", string(m[2])))
			break
		}
	}
	if selected == "" {
		return fmt.Errorf("HCI interface %s not found", hw.Port)
	}

	if v.reset {
		if err := v.resetInterface(ctx, selected); err != nil {
			return err
		}
	}

	hw.Port = selected
	return nil
}

func (v *HCIVerifier) resetInterface(ctx context.Context, iface string) error {
	for _, state := range []string{"down", "up"} {
		argv := append(append([]string(nil), v.elevation...), "hciconfig", iface, state)
		if _, err := v.runner.Run(ctx, argv[0], argv[1:]...); err != nil {
			return fmt.Errorf("failed to bring %s %s: %w", iface, state, err)
		}
	}
	v.logger.Info("Reset HCI interface", interfaces.F("interface", iface))
	return nil
}

// NRFVerifier locates an nRF52840 dongle among the serial devices
type NRFVerifier struct {
	byIDDir string
	ttyGlob string
	logger  interfaces.Logger
}

// NewNRFVerifier creates a verifier scanning /dev/serial/by-id and
// /dev/ttyACM*
func NewNRFVerifier(logger interfaces.Logger) *NRFVerifier {
	return &NRFVerifier{
		byIDDir: "/dev/serial/by-id",
		ttyGlob: "/dev/ttyACM*",
		logger:  interfaces.OrNoOp(logger),
	}
}

// Verify records the dongle's serial device as the profile's port
func (v *NRFVerifier) Verify(_ context.Context, hw *entities.HardwareProfile) error {
	if hw.Port != "" {
		if _, err := os.Stat(hw.Port); err != nil {
			return fmt.Errorf("configured port for %s is unusable: %w", hw.Name, err)
		}
		return nil
	}

	if entries, err := os.ReadDir(v.byIDDir); err == nil {
		for _, entry := range entries {
			if strings.Contains(strings.ToLower(entry.Name()), "nrf") {
				hw.Port = filepath.Join(v.byIDDir, entry.Name())
				v.logger.Debug("Found nRF serial device", interfaces.F("port", hw.Port))
				return nil
			}
		}
	}

	candidates, err := filepath.Glob(v.ttyGlob)
	if err != nil {
		return fmt.Errorf("failed to list serial devices: %w", err)
	}
	sort.Strings(candidates)

	switch len(candidates) {
	case 0:
		return fmt.Errorf("no %s found", hw.Name)
	case 1:
		hw.Port = candidates[0]
		return nil
	default:
		return fmt.Errorf("cannot tell which serial device is the %s among %s; set it with --port %s=<device>",
			hw.Name, strings.Join(candidates, ", "), hw.Name)
	}
}

// KindVerifier dispatches verification by hardware kind
type KindVerifier struct {
	verifiers map[entities.HardwareKind]gateways.HardwareVerifier
}

// NewKindVerifier creates a dispatcher over a fixed verifier table
func NewKindVerifier(verifiers map[entities.HardwareKind]gateways.HardwareVerifier) *KindVerifier {
	return &KindVerifier{verifiers: verifiers}
}

// Verify checks hw with the verifier for its kind. Profiles that do not need
// setup verification always pass.
func (kv *KindVerifier) Verify(ctx context.Context, hw *entities.HardwareProfile) error {
	if !hw.NeedsSetupVerification {
		return nil
	}
	verifier, ok := kv.verifiers[hw.Kind]
	if !ok {
		return fmt.Errorf("no setup verification known for hardware %q", hw.Name)
	}
	return verifier.Verify(ctx, hw)
}
