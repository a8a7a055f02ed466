package gateways

import (
	"bytes"
	"context"
	"fmt"
	"os/exec"
	"strings"
	"time"
)

// CommandRunner runs short helper tools such as hciconfig and bluing
type CommandRunner struct {
	timeout time.Duration
}

// NewCommandRunner creates a runner that bounds every command by timeout,
// 30 seconds when timeout is zero
func NewCommandRunner(timeout time.Duration) *CommandRunner {
	if timeout <= 0 {
		timeout = 30 * time.Second
	}
	return &CommandRunner{timeout: timeout}
}

// Run executes name with args and returns its stdout
func (cr *CommandRunner) Run(ctx context.Context, name string, args ...string) ([]byte, error) {
	execCtx, cancel := context.WithTimeout(ctx, cr.timeout)
	defer cancel()

	//nolint:gosec // G204: helper tools are fixed by the caller
	cmd := exec.CommandContext(execCtx, name, args...)

	var stdout, stderr bytes.Buffer
	cmd.Stdout = &stdout
	cmd.Stderr = &stderr

	if err := cmd.Run(); err != nil {
		if execCtx.Err() == context.DeadlineExceeded {
			return stdout.Bytes(), fmt.Errorf("%s timed out after %v", name, cr.timeout)
		}
		msg := strings.TrimSpace(stderr.String())
		if msg == "" {
			return stdout.Bytes(), fmt.Errorf("%s failed: %w", name, err)
		}
		return stdout.Bytes(), fmt.Errorf("%s failed: %w: %s", name, err, msg)
	}
	return stdout.Bytes(), nil
}
