package gateways

import (
	"context"
	"fmt"
	"sync"

	"github.com/ochairo/sbleedy/internal/domain/entities"
	"github.com/ochairo/sbleedy/internal/domain/interfaces"
	"github.com/ochairo/sbleedy/internal/domain/interfaces/gateways"
	"github.com/ochairo/sbleedy/internal/domain/interfaces/repositories"
)

// HardwareRegistry holds the configured hardware profiles for the process.
// Profiles are loaded on first use and each one is verified at most once;
// a successful verification writes the discovered port into the profile.
type HardwareRegistry struct {
	repo      repositories.HardwareRepository
	verifier  gateways.HardwareVerifier
	overrides map[string]string
	logger    interfaces.Logger

	mu       sync.Mutex
	loaded   bool
	order    []string
	profiles map[string]*entities.HardwareProfile
	statuses map[string]entities.HardwareStatus
}

// NewHardwareRegistry creates a registry. overrides maps profile names to
// operator supplied ports.
func NewHardwareRegistry(
	repo repositories.HardwareRepository,
	verifier gateways.HardwareVerifier,
	overrides map[string]string,
	logger interfaces.Logger,
) *HardwareRegistry {
	return &HardwareRegistry{
		repo:      repo,
		verifier:  verifier,
		overrides: overrides,
		logger:    interfaces.OrNoOp(logger),
		profiles:  make(map[string]*entities.HardwareProfile),
		statuses:  make(map[string]entities.HardwareStatus),
	}
}

func (r *HardwareRegistry) load(ctx context.Context) error {
	if r.loaded {
		return nil
	}

	profiles, err := r.repo.ListHardware(ctx)
	if err != nil {
		return fmt.Errorf("failed to load hardware profiles: %w", err)
	}

	for _, hw := range profiles {
		if port, ok := r.overrides[hw.Name]; ok {
			hw.Port = port
		}
		r.profiles[hw.Name] = hw
		r.order = append(r.order, hw.Name)
	}
	for name := range r.overrides {
		if _, ok := r.profiles[name]; !ok {
			r.logger.Warn("Port given for unknown hardware", interfaces.F("hardware", name))
		}
	}

	r.loaded = true
	return nil
}

// Verify returns the cached status of one profile, verifying it first if
// needed
func (r *HardwareRegistry) Verify(ctx context.Context, name string) entities.HardwareStatus {
	r.mu.Lock()
	defer r.mu.Unlock()

	if err := r.load(ctx); err != nil {
		return entities.HardwareStatus{Name: name, Reason: err.Error()}
	}
	return r.verifyLocked(ctx, name)
}

func (r *HardwareRegistry) verifyLocked(ctx context.Context, name string) entities.HardwareStatus {
	if status, ok := r.statuses[name]; ok {
		return status
	}

	hw, ok := r.profiles[name]
	if !ok {
		status := entities.HardwareStatus{Name: name, Reason: "unknown hardware profile"}
		r.statuses[name] = status
		return status
	}

	status := entities.HardwareStatus{Name: name}
	if err := r.verifier.Verify(ctx, hw); err != nil {
		r.logger.Warn("Hardware verification failed",
			interfaces.F("hardware", name),
			interfaces.F("error", err))
		status.Reason = err.Error()
	} else {
		status.Available = true
		status.Port = hw.Port
		r.logger.Info("Hardware verified",
			interfaces.F("hardware", name),
			interfaces.F("port", hw.Port))
	}

	r.statuses[name] = status
	return status
}

// VerifyAll verifies every configured profile in configuration order
func (r *HardwareRegistry) VerifyAll(ctx context.Context) ([]entities.HardwareStatus, error) {
	r.mu.Lock()
	defer r.mu.Unlock()

	if err := r.load(ctx); err != nil {
		return nil, err
	}

	statuses := make([]entities.HardwareStatus, 0, len(r.order))
	for _, name := range r.order {
		statuses = append(statuses, r.verifyLocked(ctx, name))
	}
	return statuses, nil
}

// Available verifies the named profiles and reports which are usable
func (r *HardwareRegistry) Available(ctx context.Context, names []string) map[string]bool {
	available := make(map[string]bool, len(names))
	for _, name := range names {
		available[name] = r.Verify(ctx, name).Available
	}
	return available
}

// Ports returns the ports of every verified profile
func (r *HardwareRegistry) Ports() map[string]string {
	r.mu.Lock()
	defer r.mu.Unlock()

	ports := make(map[string]string)
	for name, status := range r.statuses {
		if status.Available && status.Port != "" {
			ports[name] = status.Port
		}
	}
	return ports
}
