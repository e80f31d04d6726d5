package svm

import (
	"crypto/rand"
	"fmt"
)

// NewSalt returns 32 bytes from the system CSPRNG. Each outgoing transfer
// needs its own salt since the outgoing message account is derived from it.
func NewSalt() ([]byte, error) {
	salt := make([]byte, saltLength)
	if _, err := rand.Read(salt); err != nil {
		return nil, fmt.Errorf("failed to read random salt: %w", err)
	}
	return salt, nil
}
