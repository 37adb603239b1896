package model

import (
	"fmt"
	"time"
)

// SealedSecret is the output of an AEAD seal. Salt, Nonce and Ciphertext are
// only meaningful together; a triple missing any part cannot be opened.
type SealedSecret struct {
	Salt       []byte
	Nonce      []byte
	Ciphertext []byte // includes the 16-byte GCM tag
}

// Validate reports ErrInvalidInput when any part of the triple is missing or
// the salt and nonce lengths do not match the expected sizes.
func (s SealedSecret) Validate(saltSize, nonceSize int) error {
	if len(s.Salt) != saltSize {
		return fmt.Errorf("salt is %d bytes, want %d: %w", len(s.Salt), saltSize, ErrInvalidInput)
	}
	if len(s.Nonce) != nonceSize {
		return fmt.Errorf("nonce is %d bytes, want %d: %w", len(s.Nonce), nonceSize, ErrInvalidInput)
	}
	if len(s.Ciphertext) == 0 {
		return fmt.Errorf("ciphertext is empty: %w", ErrInvalidInput)
	}
	return nil
}

// CredentialEntry is one stored login for an external service, owned by
// exactly one Account.
type CredentialEntry struct {
	ID        int64
	AccountID int64
	Service   string
	Login     string
	Secret    SealedSecret
	CreatedAt time.Time
	UpdatedAt time.Time
}
