package password

import (
	"crypto/rand"
	"crypto/sha512"
	"crypto/subtle"
	"errors"
	"io"

	"golang.org/x/crypto/pbkdf2"
)

const (
	minIterations = 10000
	minSaltLength = 16
	minKeyLength  = 32
)

// Config holds the PBKDF2 derivation parameters. All three fields are
// validated by [NewKDF]; the iteration count is the brute-force defense and
// must never be lowered for throughput.
type Config struct {
	Iterations int
	SaltLength int
	KeyLength  int
}

// KDF derives and verifies password hashes with a fixed parameter set.
// A KDF is immutable after construction and safe for concurrent use.
type KDF struct {
	config Config
}

// NewKDF validates cfg and returns a derivation instance bound to it.
func NewKDF(cfg Config) (*KDF, error) {
	if cfg.Iterations < minIterations {
		return nil, errors.New("password iterations must be >= 10000")
	}
	if cfg.SaltLength < minSaltLength {
		return nil, errors.New("password salt length must be >= 16")
	}
	if cfg.KeyLength < minKeyLength {
		return nil, errors.New("password key length must be >= 32")
	}

	return &KDF{config: cfg}, nil
}

// GenerateSalt draws a fresh random salt from crypto/rand. crypto/rand is
// safe for concurrent use, so no additional locking is needed here.
func (k *KDF) GenerateSalt() ([]byte, error) {
	salt := make([]byte, k.config.SaltLength)
	if _, err := io.ReadFull(rand.Reader, salt); err != nil {
		return nil, err
	}
	return salt, nil
}

// Derive computes the PBKDF2-HMAC-SHA512 key for password and salt.
// Deterministic: identical inputs always yield identical output.
func (k *KDF) Derive(password string, salt []byte) []byte {
	return pbkdf2.Key(
		[]byte(password),
		salt,
		k.config.Iterations,
		k.config.KeyLength,
		sha512.New,
	)
}

// Verify recomputes the derived key and compares it against expected in
// constant time.
func (k *KDF) Verify(password string, salt, expected []byte) bool {
	computed := k.Derive(password, salt)
	return subtle.ConstantTimeCompare(computed, expected) == 1
}
