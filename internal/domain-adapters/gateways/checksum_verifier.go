package gateways

import (
	"context"
	"crypto/sha256"
	"encoding/hex"
	"fmt"
	"io"
	"os"
	"strings"
)

// checksumVerifier pins exploit programs to a known SHA-256 digest
type checksumVerifier struct{}

// NewChecksumVerifier creates a new checksum verifier
//
//nolint:revive // unexported-return: Intentionally returns concrete type for testability
func NewChecksumVerifier() *checksumVerifier {
	return &checksumVerifier{}
}

// VerifyChecksum compares the program's digest with expectedSum. The
// expected value may carry a "sha256:" prefix and any letter case.
func (v *checksumVerifier) VerifyChecksum(_ context.Context, filePath, expectedSum string) error {
	actualSum, err := v.CalculateChecksum(filePath)
	if err != nil {
		return err
	}

	expected := strings.ToLower(strings.TrimSpace(expectedSum))
	expected = strings.TrimPrefix(expected, "sha256:")

	if actualSum != expected {
		return fmt.Errorf("checksum mismatch for %s: expected %s, got %s", filePath, expected, actualSum)
	}
	return nil
}

// CalculateChecksum returns the hex SHA-256 digest of a file
func (v *checksumVerifier) CalculateChecksum(filePath string) (string, error) {
	//nolint:gosec // G304: program path comes from the exploit catalog
	f, err := os.Open(filePath)
	if err != nil {
		return "", fmt.Errorf("failed to open program: %w", err)
	}
	//nolint:errcheck // Defer close on read-only file
	defer f.Close()

	h := sha256.New()
	if _, err := io.Copy(h, f); err != nil {
		return "", fmt.Errorf("failed to hash program: %w", err)
	}
	return hex.EncodeToString(h.Sum(nil)), nil
}
