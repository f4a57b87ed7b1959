package serialization

import (
	"crypto/sha256"
	"encoding/hex"
)

// checksumKey is the metadata entry holding the data section digest.
const checksumKey = "sha256"

// checksum returns the hex SHA-256 of data.
func checksum(data []byte) string {
	sum := sha256.Sum256(data)
	return hex.EncodeToString(sum[:])
}

// verifyChecksum compares data against the digest recorded in metadata.
// Files without a digest pass.
func verifyChecksum(data []byte, metadata map[string]string) error {
	stored, ok := metadata[checksumKey]
	if !ok {
		return nil
	}
	if checksum(data) != stored {
		return ErrChecksumMismatch
	}
	return nil
}
