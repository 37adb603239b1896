// Package crypto derives per-record keys from a master password and seals
// credential secrets with AES-256-GCM. Every function is stateless apart from
// its immutable configuration and is safe for concurrent use.
package crypto

import (
	"fmt"

	"github.com/ericfisherdev/passworder/internal/domain/model"
)

const (
	// KeySize is the derived key length in bytes (AES-256).
	KeySize = 32

	// NonceSize is the AES-GCM nonce length in bytes. Changing it breaks every stored row.
	NonceSize = 12

	// AlgorithmAESGCM is the only supported symmetric cipher identifier.
	AlgorithmAESGCM = "AESGCM"

	// DefaultSaltSize is the default KDF salt length in bytes.
	DefaultSaltSize = 16

	// DefaultIterations is the default PBKDF2 iteration count.
	DefaultIterations = 100_000

	minSaltSize = 8
)

// Config holds the tunable parameters of key derivation and encryption. It is
// passed explicitly to NewKeyDeriver and NewSealer.
type Config struct {
	SaltSize   int
	Iterations int
	Algorithm  string
}

// DefaultConfig returns a 16-byte salt, 100,000 PBKDF2 iterations and AES-GCM.
func DefaultConfig() Config {
	return Config{
		SaltSize:   DefaultSaltSize,
		Iterations: DefaultIterations,
		Algorithm:  AlgorithmAESGCM,
	}
}

// Validate returns an error wrapping model.ErrInvalidInput when a parameter is unusable.
func (c Config) Validate() error {
	if c.SaltSize < minSaltSize {
		return fmt.Errorf("salt size %d is below minimum %d: %w", c.SaltSize, minSaltSize, model.ErrInvalidInput)
	}
	if c.Iterations < 1 {
		return fmt.Errorf("iteration count %d must be positive: %w", c.Iterations, model.ErrInvalidInput)
	}
	if c.Algorithm != AlgorithmAESGCM {
		return fmt.Errorf("unsupported encryption algorithm %q: %w", c.Algorithm, model.ErrInvalidInput)
	}
	return nil
}
