package crypto

import (
	"crypto/sha256"
	"fmt"

	"golang.org/x/crypto/pbkdf2"

	"github.com/ericfisherdev/passworder/internal/domain/model"
)

// KeyDeriver turns a master password and salt into a KeySize-byte key using
// PBKDF2-HMAC-SHA256. The same inputs always produce the same key.
type KeyDeriver struct {
	saltSize   int
	iterations int
}

// NewKeyDeriver creates a KeyDeriver from cfg. It fails when cfg is invalid.
func NewKeyDeriver(cfg Config) (*KeyDeriver, error) {
	if err := cfg.Validate(); err != nil {
		return nil, err
	}
	return &KeyDeriver{saltSize: cfg.SaltSize, iterations: cfg.Iterations}, nil
}

// SaltSize returns the salt length DeriveKey accepts.
func (d *KeyDeriver) SaltSize() int {
	return d.saltSize
}

// DeriveKey derives the encryption key for masterPassword (as UTF-8 bytes)
// and salt. The call is CPU bound and deliberately slow.
func (d *KeyDeriver) DeriveKey(masterPassword string, salt []byte) ([]byte, error) {
	if masterPassword == "" {
		return nil, fmt.Errorf("master password is empty: %w", model.ErrInvalidInput)
	}
	if len(salt) != d.saltSize {
		return nil, fmt.Errorf("salt is %d bytes, want %d: %w", len(salt), d.saltSize, model.ErrInvalidInput)
	}

	return pbkdf2.Key([]byte(masterPassword), salt, d.iterations, KeySize, sha256.New), nil
}
