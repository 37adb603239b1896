package crypto

import (
	"bytes"
	"crypto/rand"
	"crypto/subtle"
	"encoding/binary"
	"fmt"
	"io"

	"golang.org/x/crypto/argon2"

	"github.com/ericfisherdev/passworder/internal/domain/model"
)

const (
	verifierVersion  = 0x01
	verifierSaltSize = 16
	verifierHashSize = 32

	// version(1) | time(4) | memory(4) | threads(1) | salt | hash
	verifierLen = 1 + 4 + 4 + 1 + verifierSaltSize + verifierHashSize

	// Upper cost bounds for stored blobs, so a corrupted row cannot force a
	// huge argon2 allocation.
	maxVerifierTime    = 16
	maxVerifierMemory  = 1024 * 1024 // KiB
	maxVerifierThreads = 64
)

// VerifierParams are the argon2id cost parameters for account password verifiers.
type VerifierParams struct {
	Time    uint32
	Memory  uint32 // KiB
	Threads uint8
}

// DefaultVerifierParams returns argon2id parameters of 1 pass, 64 MiB, 2 lanes.
func DefaultVerifierParams() VerifierParams {
	return VerifierParams{Time: 1, Memory: 64 * 1024, Threads: 2}
}

func (p VerifierParams) valid() bool {
	return p.Time >= 1 && p.Time <= maxVerifierTime &&
		p.Memory >= 1 && p.Memory <= maxVerifierMemory &&
		p.Threads >= 1 && p.Threads <= maxVerifierThreads
}

// Verifier hashes master passwords into self-describing argon2id blobs used to
// authenticate an account. The blob is unrelated to any encryption key.
type Verifier struct {
	params VerifierParams
	random io.Reader
}

// NewVerifier creates a Verifier that hashes new passwords with params.
func NewVerifier(params VerifierParams) (*Verifier, error) {
	if !params.valid() {
		return nil, fmt.Errorf("argon2 parameters out of range: %w", model.ErrInvalidInput)
	}
	return &Verifier{params: params, random: rand.Reader}, nil
}

// Hash returns a new verifier blob for password with a random salt.
func (v *Verifier) Hash(password string) ([]byte, error) {
	if password == "" {
		return nil, fmt.Errorf("password is empty: %w", model.ErrInvalidInput)
	}

	salt := make([]byte, verifierSaltSize)
	if _, err := io.ReadFull(v.random, salt); err != nil {
		return nil, fmt.Errorf("generate verifier salt: %w", err)
	}

	hash := argon2.IDKey([]byte(password), salt, v.params.Time, v.params.Memory, v.params.Threads, verifierHashSize)

	buf := bytes.NewBuffer(make([]byte, 0, verifierLen))
	buf.WriteByte(verifierVersion)
	_ = binary.Write(buf, binary.BigEndian, v.params.Time)
	_ = binary.Write(buf, binary.BigEndian, v.params.Memory)
	buf.WriteByte(v.params.Threads)
	buf.Write(salt)
	buf.Write(hash)
	return buf.Bytes(), nil
}

// Verify checks password against a blob produced by Hash. The parameters
// stored in the blob are used, so blobs outlive changes to VerifierParams.
func (v *Verifier) Verify(verifier []byte, password string) error {
	if len(verifier) != verifierLen || verifier[0] != verifierVersion {
		return fmt.Errorf("malformed password verifier: %w", model.ErrInvalidInput)
	}

	params := VerifierParams{
		Time:    binary.BigEndian.Uint32(verifier[1:5]),
		Memory:  binary.BigEndian.Uint32(verifier[5:9]),
		Threads: verifier[9],
	}
	salt := verifier[10 : 10+verifierSaltSize]
	want := verifier[10+verifierSaltSize:]

	if !params.valid() {
		return fmt.Errorf("malformed password verifier: %w", model.ErrInvalidInput)
	}

	got := argon2.IDKey([]byte(password), salt, params.Time, params.Memory, params.Threads, verifierHashSize)
	if subtle.ConstantTimeCompare(got, want) != 1 {
		return model.ErrAuthenticationFailed
	}
	return nil
}
