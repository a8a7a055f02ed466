// Package bluetooth checks whether a target device is on the air.
package bluetooth

import (
	"context"
	"fmt"
	"strings"
	"sync"
	"time"

	"tinygo.org/x/bluetooth"

	"github.com/ochairo/sbleedy/internal/domain/interfaces"
)

// scanner is the slice of the adapter the probe needs
type scanner interface {
	Enable() error
	Scan(onAddress func(address string)) error
	StopScan() error
}

// adapterScanner adapts a tinygo adapter to scanner
type adapterScanner struct {
	adapter *bluetooth.Adapter
}

func (a adapterScanner) Enable() error {
	return a.adapter.Enable()
}

func (a adapterScanner) Scan(onAddress func(address string)) error {
	return a.adapter.Scan(func(_ *bluetooth.Adapter, result bluetooth.ScanResult) {
		onAddress(result.Address.String())
	})
}

func (a adapterScanner) StopScan() error {
	return a.adapter.StopScan()
}

// Probe reports a target as available when it is seen advertising during
// an LE scan window
type Probe struct {
	scanner scanner
	window  time.Duration
	logger  interfaces.Logger

	enableOnce sync.Once
	enableErr  error
}

// NewProbe creates a probe on the default adapter. A zero window means ten
// seconds.
func NewProbe(window time.Duration, logger interfaces.Logger) *Probe {
	return newProbe(adapterScanner{adapter: bluetooth.DefaultAdapter}, window, logger)
}

func newProbe(s scanner, window time.Duration, logger interfaces.Logger) *Probe {
	if window <= 0 {
		window = 10 * time.Second
	}
	return &Probe{scanner: s, window: window, logger: interfaces.OrNoOp(logger)}
}

// IsAvailable scans for one window and reports whether target advertised
func (p *Probe) IsAvailable(ctx context.Context, target string) (bool, error) {
	p.enableOnce.Do(func() { p.enableErr = p.scanner.Enable() })
	if p.enableErr != nil {
		return false, fmt.Errorf("failed to enable bluetooth adapter: %w", p.enableErr)
	}

	stop := func() { _ = p.scanner.StopScan() }
	timer := time.AfterFunc(p.window, stop)
	defer timer.Stop()
	stopOnCancel := context.AfterFunc(ctx, stop)
	defer stopOnCancel()

	var (
		mu    sync.Mutex
		found bool
	)
	err := p.scanner.Scan(func(address string) {
		if !strings.EqualFold(address, target) {
			return
		}
		mu.Lock()
		already := found
		found = true
		mu.Unlock()
		if !already {
			stop()
		}
	})
	if err != nil {
		return false, fmt.Errorf("LE scan failed: %w", err)
	}
	if ctx.Err() != nil {
		return false, ctx.Err()
	}

	mu.Lock()
	defer mu.Unlock()
	p.logger.Debug("Availability probe finished",
		interfaces.F("target", target),
		interfaces.F("available", found))
	return found, nil
}
