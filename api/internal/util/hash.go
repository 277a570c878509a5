package util

import (
	"crypto/sha256"
	"encoding/hex"
)

// SHA256Hex — стабильный ключ кэша по произвольному содержимому.
func SHA256Hex(b []byte) string {
	sum := sha256.Sum256(b)
	return hex.EncodeToString(sum[:])
}
