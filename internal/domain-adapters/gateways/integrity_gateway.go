package gateways

import (
	"context"
	"errors"

	"github.com/ochairo/sbleedy/internal/domain/interfaces/gateways"
)

// integrityGateway implements the IntegrityGateway interface by composing
// the checksum and signature verifiers
type integrityGateway struct {
	checksumVerifier *checksumVerifier
	gpgVerifier      *gpgVerifier
}

// NewIntegrityGateway creates an integrity gateway. gpg may be nil when no
// keyring was configured.
func NewIntegrityGateway(checksum *checksumVerifier, gpg *gpgVerifier) gateways.IntegrityGateway {
	if checksum == nil {
		checksum = NewChecksumVerifier()
	}
	return &integrityGateway{
		checksumVerifier: checksum,
		gpgVerifier:      gpg,
	}
}

// VerifyChecksum verifies a program's SHA256 checksum
func (c *integrityGateway) VerifyChecksum(ctx context.Context, filePath, expectedSum string) error {
	return c.checksumVerifier.VerifyChecksum(ctx, filePath, expectedSum)
}

// VerifySignature verifies a program's detached signature
func (c *integrityGateway) VerifySignature(ctx context.Context, filePath, sigPath string) error {
	if c.gpgVerifier == nil {
		return errNoKeyring
	}
	return c.gpgVerifier.VerifySignature(ctx, filePath, sigPath)
}

// HasKeyring reports whether signatures can be checked
func (c *integrityGateway) HasKeyring() bool {
	return c.gpgVerifier != nil && c.gpgVerifier.HasKeyring()
}

var errNoKeyring = errors.New("no keyring configured")
