// Package gateways defines interfaces for external service adapters.
package gateways

import (
	"context"
	"io"
	"time"

	"github.com/ochairo/sbleedy/internal/domain/entities"
)

// ExecuteConfig describes one supervised child process
type ExecuteConfig struct {
	Name        string
	Argv        []string
	WorkingDir  string
	Timeout     time.Duration // entities.NoTimeout (any value <= 0) disables the limit
	LogPath     string
	Echo        io.Writer // live copy of output, nil when not verbose
	Interactive bool      // run under a pseudo-terminal with operator stdin
}

// Supervisor runs a child process under a timeout with process-group cleanup.
// Failures are reported in the result, never as errors.
type Supervisor interface {
	Execute(ctx context.Context, config ExecuteConfig) *entities.ExecutionResult
}

// Compiler builds native checks ahead of time
type Compiler interface {
	// EnsureCompiled compiles source into artifact inside dir unless the
	// artifact already exists
	EnsureCompiled(ctx context.Context, dir, source, artifact string, flags []string) error
}

// CommandRunner runs short-lived helper commands and returns their stdout
type CommandRunner interface {
	Run(ctx context.Context, name string, args ...string) ([]byte, error)
}
