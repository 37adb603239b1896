package crypto

import (
	"crypto/aes"
	"crypto/cipher"
	"crypto/rand"
	"fmt"
	"io"

	"github.com/ericfisherdev/passworder/internal/domain/model"
)

// Sealer encrypts and decrypts secrets under keys derived from a master
// password. Each Seal draws a fresh salt and nonce, so no key is ever reused.
type Sealer struct {
	deriver *KeyDeriver
	random  io.Reader
}

// NewSealer creates a Sealer from cfg using crypto/rand as its randomness source.
func NewSealer(cfg Config) (*Sealer, error) {
	deriver, err := NewKeyDeriver(cfg)
	if err != nil {
		return nil, err
	}
	return &Sealer{deriver: deriver, random: rand.Reader}, nil
}

// Seal encrypts plaintext under a key derived from masterPassword and a new
// random salt. The returned triple must be stored together.
func (s *Sealer) Seal(plaintext []byte, masterPassword string) (model.SealedSecret, error) {
	if masterPassword == "" {
		return model.SealedSecret{}, fmt.Errorf("master password is empty: %w", model.ErrInvalidInput)
	}

	salt, err := s.randomBytes(s.deriver.SaltSize())
	if err != nil {
		return model.SealedSecret{}, fmt.Errorf("generate salt: %w", err)
	}
	nonce, err := s.randomBytes(NonceSize)
	if err != nil {
		return model.SealedSecret{}, fmt.Errorf("generate nonce: %w", err)
	}

	key, err := s.deriver.DeriveKey(masterPassword, salt)
	if err != nil {
		return model.SealedSecret{}, err
	}
	defer clear(key)

	ciphertext, err := seal(key, nonce, plaintext)
	if err != nil {
		return model.SealedSecret{}, err
	}

	return model.SealedSecret{Salt: salt, Nonce: nonce, Ciphertext: ciphertext}, nil
}

// Open re-derives the key from masterPassword and the stored salt and
// decrypts the ciphertext. A wrong password, a modified byte anywhere in the
// triple and a corrupted row all yield model.ErrAuthenticationFailed.
func (s *Sealer) Open(secret model.SealedSecret, masterPassword string) ([]byte, error) {
	if err := secret.Validate(s.deriver.SaltSize(), NonceSize); err != nil {
		return nil, err
	}

	key, err := s.deriver.DeriveKey(masterPassword, secret.Salt)
	if err != nil {
		return nil, err
	}
	defer clear(key)

	return open(key, secret.Nonce, secret.Ciphertext)
}

func (s *Sealer) randomBytes(n int) ([]byte, error) {
	b := make([]byte, n)
	if _, err := io.ReadFull(s.random, b); err != nil {
		return nil, err
	}
	return b, nil
}

// seal encrypts plaintext with key and nonce, appending the GCM tag.
// Associated data is always empty.
func seal(key, nonce, plaintext []byte) ([]byte, error) {
	gcm, err := newGCM(key)
	if err != nil {
		return nil, err
	}
	if len(nonce) != gcm.NonceSize() {
		return nil, fmt.Errorf("nonce is %d bytes, want %d: %w", len(nonce), gcm.NonceSize(), model.ErrInvalidInput)
	}
	return gcm.Seal(nil, nonce, plaintext, nil), nil
}

// open verifies and decrypts ciphertext. The GCM error is dropped on purpose
// so callers cannot distinguish a wrong key from tampered data.
func open(key, nonce, ciphertext []byte) ([]byte, error) {
	gcm, err := newGCM(key)
	if err != nil {
		return nil, err
	}
	if len(nonce) != gcm.NonceSize() {
		return nil, fmt.Errorf("nonce is %d bytes, want %d: %w", len(nonce), gcm.NonceSize(), model.ErrInvalidInput)
	}

	plaintext, err := gcm.Open(nil, nonce, ciphertext, nil)
	if err != nil {
		return nil, model.ErrAuthenticationFailed
	}
	return plaintext, nil
}

func newGCM(key []byte) (cipher.AEAD, error) {
	if len(key) != KeySize {
		return nil, fmt.Errorf("key is %d bytes, want %d: %w", len(key), KeySize, model.ErrInvalidInput)
	}
	block, err := aes.NewCipher(key)
	if err != nil {
		return nil, fmt.Errorf("aes.NewCipher: %w", err)
	}
	gcm, err := cipher.NewGCM(block)
	if err != nil {
		return nil, fmt.Errorf("cipher.NewGCM: %w", err)
	}
	return gcm, nil
}
