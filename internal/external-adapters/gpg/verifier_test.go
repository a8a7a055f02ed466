package gpg

import (
	"bytes"
	"fmt"
	"os"
	"path/filepath"
	"strings"
	"testing"

	"github.com/ProtonMail/go-crypto/openpgp"
	"github.com/ProtonMail/go-crypto/openpgp/armor"
)

// newSigner creates a throwaway signing key and writes its public half to
// an armored keyring file
func newSigner(t *testing.T, dir, name string) (*openpgp.Entity, string) {
	t.Helper()

	entity, err := openpgp.NewEntity(name, "test", name+"@example.com", nil)
	if err != nil {
		t.Fatalf("failed to create key: %v", err)
	}

	var buf bytes.Buffer
	w, err := armor.Encode(&buf, openpgp.PublicKeyType, nil)
	if err != nil {
		t.Fatal(err)
	}
	if err := entity.Serialize(w); err != nil {
		t.Fatal(err)
	}
	if err := w.Close(); err != nil {
		t.Fatal(err)
	}

	keyPath := filepath.Join(dir, name+".asc")
	if err := os.WriteFile(keyPath, buf.Bytes(), 0o600); err != nil {
		t.Fatal(err)
	}
	return entity, keyPath
}

func writeProgram(t *testing.T, dir string) string {
	t.Helper()
	path := filepath.Join(dir, "poc.py")
	if err := os.WriteFile(path, []byte("print('SBLEEDY_GONZALES DATA: code=1, data=ok')\n"), 0o600); err != nil {
		t.Fatal(err)
	}
	return path
}

func sign(t *testing.T, signer *openpgp.Entity, program string, armored bool) string {
	t.Helper()
	data, err := os.ReadFile(program)
	if err != nil {
		t.Fatal(err)
	}

	var sig bytes.Buffer
	if armored {
		err = openpgp.ArmoredDetachSign(&sig, signer, bytes.NewReader(data), nil)
	} else {
		err = openpgp.DetachSign(&sig, signer, bytes.NewReader(data), nil)
	}
	if err != nil {
		t.Fatalf("failed to sign: %v", err)
	}

	sigPath := program + ".sig"
	if armored {
		sigPath = program + ".asc"
	}
	if err := os.WriteFile(sigPath, sig.Bytes(), 0o600); err != nil {
		t.Fatal(err)
	}
	return sigPath
}

func TestVerifier_Verify(t *testing.T) {
	for _, armored := range []bool{true, false} {
		t.Run(fmt.Sprintf("armored=%v", armored), func(t *testing.T) {
			dir := t.TempDir()
			signer, keyPath := newSigner(t, dir, "maintainer")
			program := writeProgram(t, dir)
			sigPath := sign(t, signer, program, armored)

			v := NewVerifier()
			if err := v.ImportKeyring(keyPath); err != nil {
				t.Fatalf("ImportKeyring() error = %v", err)
			}

			fingerprint, err := v.Verify(program, sigPath)
			if err != nil {
				t.Fatalf("Verify() error = %v", err)
			}
			if want := fmt.Sprintf("%X", signer.PrimaryKey.Fingerprint); fingerprint != want {
				t.Errorf("Verify() fingerprint = %s, want %s", fingerprint, want)
			}
		})
	}
}

func TestVerifier_Verify_TamperedProgram(t *testing.T) {
	dir := t.TempDir()
	signer, keyPath := newSigner(t, dir, "maintainer")
	program := writeProgram(t, dir)
	sigPath := sign(t, signer, program, true)

	if err := os.WriteFile(program, []byte("import os; os.system('id')\n"), 0o600); err != nil {
		t.Fatal(err)
	}

	v := NewVerifier()
	if err := v.ImportKeyring(keyPath); err != nil {
		t.Fatal(err)
	}
	if _, err := v.Verify(program, sigPath); err == nil {
		t.Error("Verify() should reject a modified program")
	}
}

func TestVerifier_Verify_UntrustedSigner(t *testing.T) {
	dir := t.TempDir()
	_, trustedKey := newSigner(t, dir, "maintainer")
	stranger, _ := newSigner(t, dir, "stranger")
	program := writeProgram(t, dir)
	sigPath := sign(t, stranger, program, true)

	v := NewVerifier()
	if err := v.ImportKeyring(trustedKey); err != nil {
		t.Fatal(err)
	}
	if _, err := v.Verify(program, sigPath); err == nil {
		t.Error("Verify() should reject a signature from a key outside the keyring")
	}
}

func TestVerifier_Verify_NoKeys(t *testing.T) {
	_, err := NewVerifier().Verify("poc.py", "poc.py.asc")
	if err == nil || !strings.Contains(err.Error(), "no keys imported") {
		t.Errorf("Verify() error = %v, want no keys imported", err)
	}
}

func TestVerifier_ImportKeyring_Invalid(t *testing.T) {
	dir := t.TempDir()
	keyPath := filepath.Join(dir, "bad.asc")
	if err := os.WriteFile(keyPath, []byte("not a gpg key"), 0o600); err != nil {
		t.Fatal(err)
	}

	v := NewVerifier()
	if err := v.ImportKeyring(keyPath); err == nil {
		t.Error("ImportKeyring() should fail for garbage input")
	}
	if err := v.ImportKeyring(filepath.Join(dir, "missing.asc")); err == nil {
		t.Error("ImportKeyring() should fail for a missing file")
	}
	if v.KeyringSize() != 0 {
		t.Errorf("KeyringSize() = %d, want 0", v.KeyringSize())
	}
}
