package model

import "time"

// Account is a registered user. PasswordHash is an opaque verifier produced by
// the password hasher; it is never the encryption key and never plaintext.
type Account struct {
	ID           int64
	Username     string
	PasswordHash []byte
	CreatedAt    time.Time
}
