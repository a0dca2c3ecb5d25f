package utils

import (
	"crypto/rand"
	"encoding/hex"
	"fmt"
	"strings"
)

// ShiftCodePrefix starts every public shift code
const ShiftCodePrefix = "SHIFT-"

// GenerateSecret returns bytes of cryptographically secure randomness, hex encoded
func GenerateSecret(bytes int) (string, error) {
	b := make([]byte, bytes)
	if _, err := rand.Read(b); err != nil {
		return "", fmt.Errorf("failed to generate random bytes: %w", err)
	}
	return hex.EncodeToString(b), nil
}

// NewShiftCode returns a candidate shift code: SHIFT- and 8 upper-case hex
// chars. Uniqueness is the caller's concern.
func NewShiftCode() (string, error) {
	suffix, err := GenerateSecret(4)
	if err != nil {
		return "", err
	}
	return ShiftCodePrefix + strings.ToUpper(suffix), nil
}
