package gateways

import (
	"context"
	"os"
	"path/filepath"
	"testing"
)

func TestIntegrityGateway_WithoutKeyring(t *testing.T) {
	gw := NewIntegrityGateway(nil, nil)

	if gw.HasKeyring() {
		t.Error("HasKeyring() = true without a keyring")
	}
	if err := gw.VerifySignature(context.Background(), "poc.py", "poc.py.asc"); err == nil {
		t.Error("VerifySignature() should fail without a keyring")
	}
}

func TestIntegrityGateway_VerifyChecksum(t *testing.T) {
	program := filepath.Join(t.TempDir(), "poc")
	if err := os.WriteFile(program, []byte("payload"), 0o600); err != nil {
		t.Fatal(err)
	}

	checksum := NewChecksumVerifier()
	sum, err := checksum.CalculateChecksum(program)
	if err != nil {
		t.Fatal(err)
	}

	gw := NewIntegrityGateway(checksum, nil)
	if err := gw.VerifyChecksum(context.Background(), program, sum); err != nil {
		t.Errorf("VerifyChecksum() error = %v", err)
	}
}

func TestNewGPGVerifier_BadKeyring(t *testing.T) {
	keyPath := filepath.Join(t.TempDir(), "keys.asc")
	if err := os.WriteFile(keyPath, []byte("garbage"), 0o600); err != nil {
		t.Fatal(err)
	}

	if _, err := NewGPGVerifier(nil, keyPath); err == nil {
		t.Error("NewGPGVerifier() should fail for an unreadable keyring")
	}

	v, err := NewGPGVerifier(nil)
	if err != nil {
		t.Fatalf("NewGPGVerifier() without keyrings error = %v", err)
	}
	if NewIntegrityGateway(nil, v).HasKeyring() {
		t.Error("HasKeyring() = true for an empty keyring")
	}
}
