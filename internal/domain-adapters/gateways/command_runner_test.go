package gateways

import (
	"context"
	"strings"
	"testing"
	"time"
)

func TestCommandRunner_Run(t *testing.T) {
	out, err := NewCommandRunner(0).Run(context.Background(), "echo", "hci0")
	if err != nil {
		t.Fatalf("Run() error = %v", err)
	}
	if string(out) != "hci0\n" {
		t.Errorf("Run() = %q, want %q", out, "hci0\n")
	}
}

func TestCommandRunner_Run_Failure(t *testing.T) {
	_, err := NewCommandRunner(0).Run(context.Background(), "sh", "-c", "echo 'Device not found' >&2; exit 1")
	if err == nil || !strings.Contains(err.Error(), "Device not found") {
		t.Errorf("Run() error = %v, want stderr text", err)
	}
}

func TestCommandRunner_Run_Timeout(t *testing.T) {
	_, err := NewCommandRunner(100*time.Millisecond).Run(context.Background(), "sleep", "5")
	if err == nil || !strings.Contains(err.Error(), "timed out") {
		t.Errorf("Run() error = %v, want timeout", err)
	}
}
