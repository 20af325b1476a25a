package mods

import (
	"crypto/sha512"
	"encoding/hex"
	"fmt"
	"io"
	"os"
)

// SHA512File computes the lowercase hex SHA-512 digest of a file's
// contents, the primary key ModMetadata rows are keyed on.
func SHA512File(path string) (string, error) {
	f, err := os.Open(path)
	if err != nil {
		return "", fmt.Errorf("hashing %s: %w", path, err)
	}
	defer f.Close()

	h := sha512.New()
	if _, err := io.Copy(h, f); err != nil {
		return "", fmt.Errorf("hashing %s: %w", path, err)
	}
	return hex.EncodeToString(h.Sum(nil)), nil
}

// FileFingerprints reads a jar once and returns both its SHA-512 digest
// and its CurseForge Murmur2 fingerprint, since both keys are derived
// from the same bytes and a scan would otherwise read the file twice.
func FileFingerprints(path string) (sha512Hex string, murmur2 uint32, size int64, err error) {
	f, err := os.Open(path)
	if err != nil {
		return "", 0, 0, fmt.Errorf("hashing %s: %w", path, err)
	}
	defer f.Close()

	data, err := io.ReadAll(f)
	if err != nil {
		return "", 0, 0, fmt.Errorf("hashing %s: %w", path, err)
	}

	sum := sha512.Sum512(data)
	return hex.EncodeToString(sum[:]), Murmur2Fingerprint(data), int64(len(data)), nil
}
