package gateways

import (
	"bytes"
	"context"
	"fmt"
	"os"
	"os/exec"
	"path/filepath"
	"strings"
	"time"

	"github.com/ochairo/sbleedy/internal/domain/interfaces"
)

// NativeCompiler builds C proof-of-concepts with the system compiler
type NativeCompiler struct {
	compiler string
	timeout  time.Duration
	logger   interfaces.Logger
}

// NewNativeCompiler creates a compiler that invokes cc, or gcc when cc is
// empty
func NewNativeCompiler(cc string, logger interfaces.Logger) *NativeCompiler {
	if cc == "" {
		cc = "gcc"
	}
	return &NativeCompiler{
		compiler: cc,
		timeout:  2 * time.Minute,
		logger:   interfaces.OrNoOp(logger),
	}
}

// EnsureCompiled compiles source into artifact inside dir. An existing
// artifact is left alone.
func (nc *NativeCompiler) EnsureCompiled(ctx context.Context, dir, source, artifact string, flags []string) error {
	artifactPath := filepath.Join(dir, artifact)
	if _, err := os.Stat(artifactPath); err == nil {
		return nil
	}

	sourcePath := filepath.Join(dir, source)
	if _, err := os.Stat(sourcePath); err != nil {
		return fmt.Errorf("source not found: %w", err)
	}

	execCtx, cancel := context.WithTimeout(ctx, nc.timeout)
	defer cancel()

	args := append([]string{source, "-o", artifact}, flags...)
	//nolint:gosec // G204: compiler and flags come from configuration and the exploit catalog
	cmd := exec.CommandContext(execCtx, nc.compiler, args...)
	cmd.Dir = dir

	var stderr bytes.Buffer
	cmd.Stderr = &stderr

	nc.logger.Info("Compiling native exploit",
		interfaces.F("source", sourcePath),
		interfaces.F("compiler", nc.compiler))

	if err := cmd.Run(); err != nil {
		return fmt.Errorf("%s %s failed: %w: %s", nc.compiler, strings.Join(args, " "), err, strings.TrimSpace(stderr.String()))
	}
	return nil
}
