package utils

import (
	"crypto/sha256"
	"encoding/hex"
)

// HashString returns a short stable digest, used to reference query text in
// logs without logging the text itself.
func HashString(input string) string {
	sum := sha256.Sum256([]byte(input))
	return hex.EncodeToString(sum[:8])
}
