package gateways

import (
	"context"

	"github.com/ochairo/sbleedy/internal/domain/entities"
)

// HardwareVerifier checks that a piece of hardware is attached and usable.
// On success it records the discovered port on the profile.
type HardwareVerifier interface {
	Verify(ctx context.Context, hw *entities.HardwareProfile) error
}

// AvailabilityProbe reports whether a target is currently reachable
type AvailabilityProbe interface {
	IsAvailable(ctx context.Context, target string) (bool, error)
}

// IntegrityGateway verifies exploit programs before they run
type IntegrityGateway interface {
	VerifyChecksum(ctx context.Context, filePath, expectedSum string) error
	VerifySignature(ctx context.Context, filePath, sigPath string) error
	HasKeyring() bool
}

// CVEGateway looks up public advisory data
type CVEGateway interface {
	LookupCVE(ctx context.Context, id string) (*entities.CVEDetails, error)
}
