package yaml

import (
	"fmt"
	"os"

	"gopkg.in/yaml.v3"

	"github.com/ochairo/sbleedy/internal/domain/entities"
)

// yamlHardware represents the raw YAML structure of a hardware profile
type yamlHardware struct {
	Name                   string   `yaml:"name"`
	Kind                   string   `yaml:"kind"`
	Port                   string   `yaml:"port"`
	NeedsSetupVerification bool     `yaml:"needs_setup_verification"`
	Firmware               []string `yaml:"firmware"`
}

// ParseHardwareFile parses a YAML hardware profile
func ParseHardwareFile(filePath string) (*entities.HardwareProfile, error) {
	//nolint:gosec // G304: filePath is a profile path from the hardware directory
	data, err := os.ReadFile(filePath)
	if err != nil {
		return nil, fmt.Errorf("failed to read file %s: %w", filePath, err)
	}
	return ParseHardware(data)
}

// ParseHardware parses YAML bytes into a HardwareProfile. The kind defaults
// to the one implied by the profile name.
func ParseHardware(data []byte) (*entities.HardwareProfile, error) {
	var raw yamlHardware
	if err := yaml.Unmarshal(data, &raw); err != nil {
		return nil, fmt.Errorf("failed to parse YAML: %w", err)
	}

	if raw.Name == "" {
		return nil, fmt.Errorf("hardware profile must have a name")
	}

	kindName := raw.Kind
	if kindName == "" {
		kindName = raw.Name
	}

	return &entities.HardwareProfile{
		Name:                   raw.Name,
		Kind:                   entities.ParseHardwareKind(kindName),
		Port:                   raw.Port,
		NeedsSetupVerification: raw.NeedsSetupVerification,
		Firmware:               raw.Firmware,
	}, nil
}
