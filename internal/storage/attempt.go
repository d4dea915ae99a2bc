package storage

import (
	"crypto/rand"
	"encoding/base32"
	"fmt"
	"strings"
)

// NewAttemptID returns a 26 character lowercase identifier built from
// UUIDv4 bytes, used to group the journal rows of one level attempt.
func NewAttemptID() (string, error) {
	var raw [16]byte
	if _, err := rand.Read(raw[:]); err != nil {
		return "", fmt.Errorf("read random bytes: %w", err)
	}
	raw[6] = (raw[6] & 0x0f) | 0x40
	raw[8] = (raw[8] & 0x3f) | 0x80

	encoded := base32.StdEncoding.WithPadding(base32.NoPadding).EncodeToString(raw[:])
	return strings.ToLower(encoded), nil
}
