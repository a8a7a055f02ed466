// Package yaml provides YAML-based exploit catalog and hardware repositories.
package yaml

import (
	"fmt"
	"math"
	"os"
	"strconv"
	"strings"
	"time"

	"gopkg.in/yaml.v3"

	"github.com/ochairo/sbleedy/internal/domain/entities"
)

// DefaultExploitTimeout applies when a descriptor omits max_timeout
const DefaultExploitTimeout = 40 * time.Second

// maxTimeoutSeconds keeps a numeric max_timeout within time.Duration range
const maxTimeoutSeconds = 365 * 24 * 60 * 60

// yamlExploit represents the raw YAML structure
type yamlExploit struct {
	Name         string          `yaml:"name"`
	Description  string          `yaml:"description"`
	Type         string          `yaml:"type"`
	CVE          string          `yaml:"cve"`
	Command      yamlCommand     `yaml:"command"`
	Directory    string          `yaml:"directory"`
	Parameters   []yamlParameter `yaml:"parameters"`
	Hardware     string          `yaml:"hardware"`
	BTVersionMin float64         `yaml:"bt_version_min"`
	BTVersionMax float64         `yaml:"bt_version_max"`
	Profile      string          `yaml:"profile"`
	MaxTimeout   yamlTimeout     `yaml:"max_timeout"`
	MassTesting  bool            `yaml:"mass_testing"`
	FileType     string          `yaml:"file_type"`
	CompileFlags []string        `yaml:"compile_flags"`
	SHA256       string          `yaml:"sha256"`
	Signature    string          `yaml:"signature"`
}

type yamlParameter struct {
	Name         string  `yaml:"name"`
	NameRequired bool    `yaml:"name_required"`
	Connector    *string `yaml:"parameter_connector"`
	Required     bool    `yaml:"required"`
	IsTarget     bool    `yaml:"is_target"`
}

// yamlCommand accepts a token list or a single whitespace separated string
type yamlCommand []string

func (c *yamlCommand) UnmarshalYAML(node *yaml.Node) error {
	switch node.Kind {
	case yaml.ScalarNode:
		*c = strings.Fields(node.Value)
		return nil
	case yaml.SequenceNode:
		var tokens []string
		if err := node.Decode(&tokens); err != nil {
			return err
		}
		*c = tokens
		return nil
	default:
		return fmt.Errorf("line %d: command must be a string or a list", node.Line)
	}
}

// yamlTimeout holds max_timeout as seconds, a duration string, or one of
// the unbounded spellings. Zero is rejected; an unbounded run must be asked
// for with none or a negative value.
type yamlTimeout struct {
	set   bool
	value time.Duration
}

func (t *yamlTimeout) UnmarshalYAML(node *yaml.Node) error {
	if node.Kind != yaml.ScalarNode {
		return fmt.Errorf("line %d: max_timeout must be a scalar", node.Line)
	}

	raw := strings.ToLower(strings.TrimSpace(node.Value))
	switch raw {
	case "", "~", "null":
		return nil
	case "none", "infinite", "inf", "-1":
		t.set, t.value = true, entities.NoTimeout
		return nil
	}

	if seconds, err := strconv.ParseFloat(raw, 64); err == nil {
		if math.IsNaN(seconds) || math.IsInf(seconds, 0) || seconds > maxTimeoutSeconds {
			return fmt.Errorf("line %d: invalid max_timeout %q", node.Line, node.Value)
		}
		if seconds < 0 {
			t.set, t.value = true, entities.NoTimeout
			return nil
		}
		d := time.Duration(seconds * float64(time.Second))
		if d == 0 {
			return zeroTimeoutError(node)
		}
		t.set, t.value = true, d
		return nil
	}

	d, err := time.ParseDuration(raw)
	if err != nil {
		return fmt.Errorf("line %d: invalid max_timeout %q", node.Line, node.Value)
	}
	switch {
	case d == 0:
		return zeroTimeoutError(node)
	case d < 0:
		t.set, t.value = true, entities.NoTimeout
	default:
		t.set, t.value = true, d
	}
	return nil
}

func zeroTimeoutError(node *yaml.Node) error {
	return fmt.Errorf("line %d: invalid max_timeout %q, use none to run without a limit", node.Line, node.Value)
}

// ExploitParser parses YAML exploit descriptors
type ExploitParser struct {
	defaultTimeout time.Duration
}

// NewExploitParser creates a new YAML parser. A zero defaultTimeout means
// DefaultExploitTimeout.
func NewExploitParser(defaultTimeout time.Duration) *ExploitParser {
	if defaultTimeout == 0 {
		defaultTimeout = DefaultExploitTimeout
	}
	return &ExploitParser{defaultTimeout: defaultTimeout}
}

// ParseFile parses a YAML descriptor file into an Exploit entity
func (p *ExploitParser) ParseFile(filePath string) (*entities.Exploit, error) {
	//nolint:gosec // G304: filePath is a descriptor path from the catalog directory
	data, err := os.ReadFile(filePath)
	if err != nil {
		return nil, fmt.Errorf("failed to read file %s: %w", filePath, err)
	}

	return p.Parse(data)
}

// Parse parses YAML bytes into an Exploit entity
func (p *ExploitParser) Parse(data []byte) (*entities.Exploit, error) {
	var raw yamlExploit
	if err := yaml.Unmarshal(data, &raw); err != nil {
		return nil, fmt.Errorf("failed to parse YAML: %w", err)
	}

	if raw.Name == "" {
		return nil, fmt.Errorf("exploit must have a name")
	}
	if len(raw.Command) == 0 {
		return nil, fmt.Errorf("exploit %s must have a command", raw.Name)
	}
	if raw.BTVersionMax > 0 && raw.BTVersionMin > raw.BTVersionMax {
		return nil, fmt.Errorf("exploit %s: bt_version_min %.1f is above bt_version_max %.1f",
			raw.Name, raw.BTVersionMin, raw.BTVersionMax)
	}

	fileType, err := convertFileType(raw.FileType)
	if err != nil {
		return nil, fmt.Errorf("exploit %s: %w", raw.Name, err)
	}

	timeout := p.defaultTimeout
	if raw.MaxTimeout.set {
		timeout = raw.MaxTimeout.value
	}

	return &entities.Exploit{
		Name:         raw.Name,
		Description:  raw.Description,
		Type:         raw.Type,
		CVE:          raw.CVE,
		Command:      raw.Command,
		Directory:    raw.Directory,
		Parameters:   convertParameters(raw.Parameters),
		Hardware:     raw.Hardware,
		BTVersionMin: raw.BTVersionMin,
		BTVersionMax: raw.BTVersionMax,
		Profile:      raw.Profile,
		MaxTimeout:   timeout,
		MassTesting:  raw.MassTesting,
		FileType:     fileType,
		CompileFlags: raw.CompileFlags,
		SHA256:       raw.SHA256,
		Signature:    raw.Signature,
	}, nil
}

func convertParameters(params []yamlParameter) []entities.Parameter {
	converted := make([]entities.Parameter, 0, len(params))
	for _, yp := range params {
		connector := " "
		if yp.Connector != nil {
			connector = *yp.Connector
		}
		converted = append(converted, entities.Parameter{
			Name:         yp.Name,
			NameRequired: yp.NameRequired,
			Connector:    connector,
			Required:     yp.Required,
			IsTarget:     yp.IsTarget,
		})
	}
	return converted
}

func convertFileType(raw string) (entities.FileType, error) {
	switch strings.ToLower(strings.TrimSpace(raw)) {
	case "", "executable", "binary":
		return entities.FileTypeExecutable, nil
	case "python", "python3":
		return entities.FileTypePython, nil
	case "python2":
		return entities.FileTypeLegacyPython, nil
	case "shell", "bash", "sh":
		return entities.FileTypeShell, nil
	case "native", "c":
		return entities.FileTypeNative, nil
	default:
		return "", fmt.Errorf("unknown file_type %q", raw)
	}
}
