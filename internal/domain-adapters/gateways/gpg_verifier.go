package gateways

import (
	"context"
	"fmt"

	"github.com/ochairo/sbleedy/internal/domain/interfaces"
	"github.com/ochairo/sbleedy/internal/external-adapters/gpg"
)

// gpgVerifier wraps the external OpenPGP adapter for exploit signatures
type gpgVerifier struct {
	verifier *gpg.Verifier
	logger   interfaces.Logger
}

// NewGPGVerifier creates a signature verifier trusting the keys in each of
// keyringPaths
//
//nolint:revive // unexported-return: Intentionally returns concrete type for testability
func NewGPGVerifier(logger interfaces.Logger, keyringPaths ...string) (*gpgVerifier, error) {
	v := gpg.NewVerifier()
	for _, path := range keyringPaths {
		if path == "" {
			continue
		}
		if err := v.ImportKeyring(path); err != nil {
			return nil, fmt.Errorf("failed to import keyring %s: %w", path, err)
		}
	}
	return &gpgVerifier{verifier: v, logger: interfaces.OrNoOp(logger)}, nil
}

// VerifySignature verifies a detached signature from a local file
func (g *gpgVerifier) VerifySignature(_ context.Context, filePath, sigPath string) error {
	fingerprint, err := g.verifier.Verify(filePath, sigPath)
	if err != nil {
		return fmt.Errorf("GPG signature verification failed: %w", err)
	}
	g.logger.Debug("Signature verified",
		interfaces.F("program", filePath),
		interfaces.F("signer", fingerprint))
	return nil
}

// HasKeyring reports whether any trusted key is loaded
func (g *gpgVerifier) HasKeyring() bool {
	return g.verifier.KeyringSize() > 0
}
