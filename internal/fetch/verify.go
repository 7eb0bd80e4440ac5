package fetch

import (
	"bufio"
	"bytes"
	"crypto/sha256"
	"encoding/hex"
	"fmt"
	"io"
	"os"
	"path/filepath"
	"strings"

	"github.com/ProtonMail/go-crypto/openpgp" //nolint:staticcheck // Using ProtonMail's maintained fork
	"github.com/jedisct1/go-minisign"
)

// Verifier handles integrity and signature verification of downloaded
// binaries. All verification is opt-in and every failure surfaces as a
// *VerifyError.
type Verifier struct {
	logger Logger
}

// NewVerifier creates a verifier. A nil logger disables logging.
func NewVerifier(logger Logger) *Verifier {
	if logger == nil {
		logger = &noopLogger{}
	}
	return &Verifier{logger: logger}
}

// VerifyChecksum compares the SHA256 of the file at path against a pinned
// hex digest (case-insensitive).
func (v *Verifier) VerifyChecksum(path, expected string) error {
	actual, err := calculateSHA256(path)
	if err != nil {
		return &VerifyError{Path: path, Reason: "calculate checksum", Err: err}
	}

	if !strings.EqualFold(actual, expected) {
		return &VerifyError{
			Path:   path,
			Reason: fmt.Sprintf("checksum mismatch: actual %s, expected %s", actual, expected),
		}
	}

	v.logger.Debug("checksum verified", "path", path, "sha256", actual)
	return nil
}

// VerifyChecksumFile looks up the manifest entry named assetName in a
// "hash  filename" manifest and compares it against the file's SHA256.
// An empty assetName falls back to the file's basename. The cached binary
// is renamed from the release asset, so callers pass the asset name the
// manifest actually lists.
func (v *Verifier) VerifyChecksumFile(path, checksumsPath, assetName string) error {
	if assetName == "" {
		assetName = filepath.Base(path)
	}

	expected, err := findChecksum(checksumsPath, assetName)
	if err != nil {
		return &VerifyError{Path: path, Reason: "find checksum", Err: err}
	}

	return v.VerifyChecksum(path, expected)
}

// VerifySignature verifies a detached signature over the file at path.
// The signature format is sniffed from its content: minisign signatures
// start with an untrusted comment line, PGP signatures carry an armor
// header or are taken as binary packets. publicKeyPath must hold a key in
// the matching format.
func (v *Verifier) VerifySignature(path, signaturePath, publicKeyPath string) error {
	sigData, err := os.ReadFile(signaturePath)
	if err != nil {
		return &VerifyError{Path: path, Reason: "read signature", Err: err}
	}

	if bytes.HasPrefix(sigData, []byte("untrusted comment:")) {
		return v.verifyMinisign(path, signaturePath, publicKeyPath)
	}
	return v.verifyPGP(path, signaturePath, publicKeyPath)
}

// verifyMinisign verifies a minisign signature
func (v *Verifier) verifyMinisign(path, signaturePath, publicKeyPath string) error {
	pubKey, err := minisign.NewPublicKeyFromFile(publicKeyPath)
	if err != nil {
		return &VerifyError{Path: path, Reason: "read minisign public key", Err: err}
	}

	sig, err := minisign.NewSignatureFromFile(signaturePath)
	if err != nil {
		return &VerifyError{Path: path, Reason: "read minisign signature", Err: err}
	}

	data, err := os.ReadFile(path)
	if err != nil {
		return &VerifyError{Path: path, Reason: "read file", Err: err}
	}

	ok, err := pubKey.Verify(data, sig)
	if err != nil {
		return &VerifyError{Path: path, Reason: "minisign verification", Err: err}
	}
	if !ok {
		return &VerifyError{Path: path, Reason: "minisign signature does not match"}
	}

	v.logger.Debug("minisign signature verified", "path", path)
	return nil
}

// verifyPGP verifies a PGP signature (armored or binary)
func (v *Verifier) verifyPGP(path, signaturePath, publicKeyPath string) error {
	keyring, err := loadKeyring(publicKeyPath)
	if err != nil {
		return &VerifyError{Path: path, Reason: "load keyring", Err: err}
	}

	binaryFile, err := os.Open(path)
	if err != nil {
		return &VerifyError{Path: path, Reason: "open file", Err: err}
	}
	defer binaryFile.Close()

	sigFile, err := os.Open(signaturePath)
	if err != nil {
		return &VerifyError{Path: path, Reason: "open signature", Err: err}
	}
	defer sigFile.Close()

	// Verify signature (try armored first)
	_, err = openpgp.CheckArmoredDetachedSignature(keyring, binaryFile, sigFile, nil)
	if err != nil {
		// Try non-armored signature
		binaryFile.Seek(0, io.SeekStart)
		sigFile.Seek(0, io.SeekStart)
		_, err = openpgp.CheckDetachedSignature(keyring, binaryFile, sigFile, nil)
	}
	if err != nil {
		return &VerifyError{Path: path, Reason: "pgp verification", Err: err}
	}

	v.logger.Debug("pgp signature verified", "path", path)
	return nil
}

// loadKeyring loads a PGP keyring from a key file
func loadKeyring(publicKeyPath string) (openpgp.EntityList, error) {
	keyringFile, err := os.Open(publicKeyPath)
	if err != nil {
		return nil, fmt.Errorf("open keyring: %w", err)
	}
	defer keyringFile.Close()

	keyring, err := openpgp.ReadArmoredKeyRing(keyringFile)
	if err != nil {
		// Try reading as non-armored keyring
		keyringFile.Seek(0, io.SeekStart)
		keyring, err = openpgp.ReadKeyRing(keyringFile)
		if err != nil {
			return nil, fmt.Errorf("read keyring: %w", err)
		}
	}

	if len(keyring) == 0 {
		return nil, fmt.Errorf("keyring is empty")
	}

	return keyring, nil
}

// calculateSHA256 calculates the SHA256 checksum of a file
func calculateSHA256(filePath string) (string, error) {
	file, err := os.Open(filePath)
	if err != nil {
		return "", err
	}
	defer file.Close()

	hasher := sha256.New()
	if _, err := io.Copy(hasher, file); err != nil {
		return "", err
	}

	return hex.EncodeToString(hasher.Sum(nil)), nil
}

// findChecksum finds the checksum for a specific filename in a checksum file
// Format: "abc123def456  filename"
func findChecksum(checksumPath, filename string) (string, error) {
	file, err := os.Open(checksumPath)
	if err != nil {
		return "", fmt.Errorf("open checksum file: %w", err)
	}
	defer file.Close()

	scanner := bufio.NewScanner(file)
	for scanner.Scan() {
		line := scanner.Text()
		parts := strings.Fields(line)
		if len(parts) < 2 {
			continue
		}

		// Exact match first, then basename comparison for entries with paths
		checksumFilename := parts[1]
		if checksumFilename == filename {
			return parts[0], nil
		}

		if filepath.Base(checksumFilename) == filename {
			return parts[0], nil
		}
	}

	if err := scanner.Err(); err != nil {
		return "", fmt.Errorf("scan checksum file: %w", err)
	}

	return "", fmt.Errorf("checksum not found for %s", filename)
}
