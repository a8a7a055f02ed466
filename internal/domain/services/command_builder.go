// Package services implements domain business logic and use cases.
package services

import (
	"context"
	"errors"
	"fmt"
	"path/filepath"
	"strings"

	"github.com/ochairo/sbleedy/internal/domain/entities"
	"github.com/ochairo/sbleedy/internal/domain/interfaces"
	"github.com/ochairo/sbleedy/internal/domain/interfaces/gateways"
)

const portSlotPrefix = "port_"

// BuilderConfig holds the runtime prefixes used for each exploit file type
type BuilderConfig struct {
	ModulesDir   string
	Python       string
	LegacyPython string
	Shell        string
	Elevation    []string
}

// CommandBuilder renders exploit descriptors into argument vectors
type CommandBuilder struct {
	config   BuilderConfig
	compiler gateways.Compiler
	logger   interfaces.Logger
}

// NewCommandBuilder creates a new command builder. compiler may be nil, in
// which case native checks are expected to be prebuilt.
func NewCommandBuilder(config BuilderConfig, compiler gateways.Compiler, logger interfaces.Logger) *CommandBuilder {
	if config.Python == "" {
		config.Python = "python3"
	}
	if config.Shell == "" {
		config.Shell = "bash"
	}
	return &CommandBuilder{
		config:   config,
		compiler: compiler,
		logger:   interfaces.OrNoOp(logger),
	}
}

// Build renders the argument vector for one exploit run.
// ports maps hardware profile names to their discovered ports and params is
// the flat [key1, value1, key2, value2, ...] list supplied by the operator.
func (b *CommandBuilder) Build(
	ctx context.Context,
	target string,
	ports map[string]string,
	exploit *entities.Exploit,
	params []string,
) ([]string, error) {
	if len(exploit.Command) == 0 {
		return nil, &entities.ConfigurationError{Exploit: exploit.Name, Err: errors.New("empty command")}
	}

	values, keys, err := ParseRuntimeParameters(params)
	if err != nil {
		return nil, &entities.ConfigurationError{Exploit: exploit.Name, Err: err}
	}

	pending := make(map[string]bool, len(keys))
	for _, key := range keys {
		pending[key] = true
	}

	// Parameters are resolved before the prefix so a descriptor that cannot
	// run never triggers a native compile
	args := make([]string, 0, 2*len(exploit.Parameters))
	for _, param := range exploit.Parameters {
		switch {
		case pending[param.Name]:
			args = appendParameter(args, param, values[param.Name])
			delete(pending, param.Name)
		case isTargetSlot(param):
			args = appendParameter(args, param, target)
		case isPortSlot(param):
			port, ok := resolvePort(param.Name, exploit, ports)
			if ok {
				args = appendParameter(args, param, port)
			} else if param.Required {
				return nil, missingParameter(exploit, param)
			}
		case param.Required:
			return nil, missingParameter(exploit, param)
		}
	}

	argv := append(b.commandPrefix(ctx, exploit), args...)

	for _, key := range keys {
		if pending[key] {
			b.logger.Warn("runtime parameter not declared by exploit",
				interfaces.F("exploit", exploit.Name),
				interfaces.F("parameter", key))
		}
	}

	b.logger.Debug("built exploit command",
		interfaces.F("exploit", exploit.Name),
		interfaces.F("argv", strings.Join(argv, " ")))

	return argv, nil
}

// ParseRuntimeParameters splits a flat key/value list into a lookup map and
// the ordered key list. A dangling key is rejected rather than given an empty
// value.
func ParseRuntimeParameters(params []string) (map[string]string, []string, error) {
	if len(params)%2 != 0 {
		return nil, nil, fmt.Errorf("%w: key %q has no value", entities.ErrOddRuntimeParameters, params[len(params)-1])
	}

	values := make(map[string]string, len(params)/2)
	keys := make([]string, 0, len(params)/2)
	for i := 0; i < len(params); i += 2 {
		if _, seen := values[params[i]]; !seen {
			keys = append(keys, params[i])
		}
		values[params[i]] = params[i+1]
	}
	return values, keys, nil
}

// commandPrefix returns the command template with the runtime prefix that
// the exploit's file type needs
func (b *CommandBuilder) commandPrefix(ctx context.Context, exploit *entities.Exploit) []string {
	command := append([]string(nil), exploit.Command...)

	switch exploit.FileType {
	case entities.FileTypeLegacyPython:
		return append([]string{b.config.LegacyPython}, command...)
	case entities.FileTypePython:
		return append([]string{b.config.Python}, command...)
	case entities.FileTypeShell:
		return append([]string{b.config.Shell}, command...)
	case entities.FileTypeNative:
		b.compileNative(ctx, exploit)
		prefix := append([]string(nil), b.config.Elevation...)
		return append(prefix, command...)
	default:
		return command
	}
}

// compileNative builds <program>.c next to the program. Failure is logged
// only; the run that follows fails on its own.
func (b *CommandBuilder) compileNative(ctx context.Context, exploit *entities.Exploit) {
	if b.compiler == nil {
		return
	}

	artifact := exploit.Command[0]
	dir := filepath.Join(b.config.ModulesDir, exploit.Directory)
	source := artifact + ".c"

	if err := b.compiler.EnsureCompiled(ctx, dir, source, artifact, exploit.CompileFlags); err != nil {
		b.logger.Error("native compilation failed",
			interfaces.F("exploit", exploit.Name),
			interfaces.F("source", filepath.Join(dir, source)),
			interfaces.F("error", err))
	}
}

// appendParameter renders one parameter: a bare value, "name value" as two
// tokens, or "name<connector>value" as one token
func appendParameter(argv []string, param entities.Parameter, value string) []string {
	if !param.NameRequired {
		return append(argv, value)
	}
	if param.Connector == " " {
		return append(argv, param.Name, value)
	}
	return append(argv, param.Name+param.Connector+value)
}

func isTargetSlot(param entities.Parameter) bool {
	if param.IsTarget {
		return true
	}
	switch param.Name {
	case "target", "--target", "-t":
		return true
	}
	return false
}

func isPortSlot(param entities.Parameter) bool {
	return param.Name == "port" || strings.HasPrefix(param.Name, portSlotPrefix)
}

// resolvePort finds the port for a port slot. "port" alone refers to the
// first hardware the exploit declares.
func resolvePort(name string, exploit *entities.Exploit, ports map[string]string) (string, bool) {
	var device string
	if name == "port" {
		hardware := exploit.HardwareList()
		if len(hardware) == 0 {
			return "", false
		}
		device = hardware[0]
	} else {
		device = strings.TrimPrefix(name, portSlotPrefix)
	}

	device = sanitizeDeviceName(device)
	for hwName, port := range ports {
		if sanitizeDeviceName(hwName) == device && port != "" {
			return port, true
		}
	}
	return "", false
}

func sanitizeDeviceName(name string) string {
	var sb strings.Builder
	for _, r := range name {
		if (r >= 'a' && r <= 'z') || (r >= 'A' && r <= 'Z') || (r >= '0' && r <= '9') {
			sb.WriteRune(r)
		}
	}
	return sb.String()
}

func missingParameter(exploit *entities.Exploit, param entities.Parameter) error {
	return &entities.ConfigurationError{
		Exploit:   exploit.Name,
		Parameter: param.Name,
		Err:       entities.ErrMissingRequiredParameter,
	}
}
