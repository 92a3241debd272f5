package utils

import (
	"crypto/rand"
	"encoding/hex"
	"strings"
)

func GenerateCode(n int) (string, error) {
	// Make a slice of nBytes random bytes.
	byt := make([]byte, n)

	// Read into the slice.
	if _, err := rand.Read(byt); err != nil {
		return "", err
	}

	// Return the hexadecimal string.
	return strings.ToUpper(hex.EncodeToString(byt)), nil
}

// RequestID returns a random correlation id attached to every outbound
// backend call. Falls back to a fixed marker when the entropy source
// fails rather than failing the request.
func RequestID() string {
	id, err := GenerateCode(8)
	if err != nil {
		return "unavailable"
	}
	return strings.ToLower(id)
}
