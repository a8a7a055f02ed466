// Package gpg verifies detached OpenPGP signatures over exploit programs.
package gpg

import (
	"bufio"
	"bytes"
	"fmt"
	"io"
	"os"

	"github.com/ProtonMail/go-crypto/openpgp"
)

const armorHeader = "-----BEGIN PGP SIGNATURE-----"

// maxSignatureSize bounds how much of a signature file is read
const maxSignatureSize = 64 * 1024

// Verifier checks detached signatures against a keyring of trusted
// catalog maintainers
type Verifier struct {
	keyring openpgp.EntityList
}

// NewVerifier creates a verifier with an empty keyring
func NewVerifier() *Verifier {
	return &Verifier{keyring: make(openpgp.EntityList, 0)}
}

// ImportKeyring adds every public key in keyPath to the keyring. Both
// armored and binary keyrings are accepted.
func (v *Verifier) ImportKeyring(keyPath string) error {
	//nolint:gosec // G304: keyring path is given by the operator
	data, err := os.ReadFile(keyPath)
	if err != nil {
		return fmt.Errorf("failed to open keyring: %w", err)
	}

	entities, err := openpgp.ReadArmoredKeyRing(bytes.NewReader(data))
	if err != nil {
		entities, err = openpgp.ReadKeyRing(bytes.NewReader(data))
		if err != nil {
			return fmt.Errorf("failed to read keyring: %w", err)
		}
	}

	if len(entities) == 0 {
		return fmt.Errorf("no keys found in %s", keyPath)
	}

	v.keyring = append(v.keyring, entities...)
	return nil
}

// Verify checks sigPath as a detached signature of filePath and returns the
// signer's primary key fingerprint
func (v *Verifier) Verify(filePath, sigPath string) (string, error) {
	if len(v.keyring) == 0 {
		return "", fmt.Errorf("no keys imported")
	}

	//nolint:gosec // G304: signature path comes from the exploit catalog
	sigFile, err := os.Open(sigPath)
	if err != nil {
		return "", fmt.Errorf("failed to open signature: %w", err)
	}
	//nolint:errcheck // Defer close on read-only file
	defer sigFile.Close()

	//nolint:gosec // G304: program path comes from the exploit catalog
	dataFile, err := os.Open(filePath)
	if err != nil {
		return "", fmt.Errorf("failed to open program: %w", err)
	}
	//nolint:errcheck // Defer close on read-only file
	defer dataFile.Close()

	sig := bufio.NewReader(io.LimitReader(sigFile, maxSignatureSize))
	head, _ := sig.Peek(len(armorHeader))

	var signer *openpgp.Entity
	if string(head) == armorHeader {
		signer, err = openpgp.CheckArmoredDetachedSignature(v.keyring, dataFile, sig, nil)
	} else {
		signer, err = openpgp.CheckDetachedSignature(v.keyring, dataFile, sig, nil)
	}
	if err != nil {
		return "", fmt.Errorf("signature verification failed: %w", err)
	}

	return fmt.Sprintf("%X", signer.PrimaryKey.Fingerprint), nil
}

// KeyringSize returns the number of imported keys
func (v *Verifier) KeyringSize() int {
	return len(v.keyring)
}
