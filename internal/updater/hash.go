package updater

import (
	"crypto/sha256"
	"encoding/hex"
	"strings"
)

// VerifySHA256 reports whether data hashes to the declared hex digest.
// Hex comparison is case-insensitive.
func VerifySHA256(data []byte, declared string) bool {
	return strings.EqualFold(computeSHA256(data), declared)
}

func computeSHA256(data []byte) string {
	sum := sha256.Sum256(data)
	return hex.EncodeToString(sum[:])
}
