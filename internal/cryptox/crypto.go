// Package cryptox implements the credential hasher: salted PBKDF2-HMAC-SHA256
// password hashes in a self-describing, stable text encoding, plus opaque
// random tokens used as bearer credentials.
//
// Stored hash format:
//
//	pbkdf2_sha256$<iterations>$<base64 salt>$<base64 derived key>
//
// The iteration count travels with every hash, so DefaultIterations can be
// raised without invalidating hashes that are already stored.
package cryptox

import (
	"crypto/rand"
	"crypto/sha256"
	"crypto/subtle"
	"encoding/base64"
	"errors"
	"fmt"
	"strconv"
	"strings"

	"golang.org/x/crypto/pbkdf2"
)

const (
	// Algorithm is the only tag VerifyPassword accepts.
	Algorithm = "pbkdf2_sha256"

	DefaultIterations = 100_000
	SaltSize          = 16
	KeySize           = 32
)

var ErrMalformedHash = errors.New("malformed stored hash")

// StoredHash is a parsed stored hash.
type StoredHash struct {
	Algorithm  string
	Iterations int
	Salt       []byte
	Key        []byte
}

// String encodes h back to its persisted form.
func (h *StoredHash) String() string {
	return fmt.Sprintf("%s$%d$%s$%s",
		h.Algorithm,
		h.Iterations,
		base64.StdEncoding.EncodeToString(h.Salt),
		base64.StdEncoding.EncodeToString(h.Key),
	)
}

func derive(password string, salt []byte, iterations int) []byte {
	return pbkdf2.Key([]byte(password), salt, iterations, KeySize, sha256.New)
}

// CreateStoredHash hashes password with a fresh random salt and
// DefaultIterations.
func CreateStoredHash(password string) (string, error) {
	return CreateStoredHashWithIterations(password, DefaultIterations)
}

// CreateStoredHashWithIterations is CreateStoredHash with an explicit
// iteration count.
func CreateStoredHashWithIterations(password string, iterations int) (string, error) {
	if iterations <= 0 {
		return "", fmt.Errorf("invalid iteration count %d", iterations)
	}

	salt := make([]byte, SaltSize)
	if _, err := rand.Read(salt); err != nil {
		return "", fmt.Errorf("salt generation error: %w", err)
	}

	h := &StoredHash{
		Algorithm:  Algorithm,
		Iterations: iterations,
		Salt:       salt,
		Key:        derive(password, salt, iterations),
	}
	return h.String(), nil
}

// ParseStoredHash splits and decodes a stored hash. Any structural problem
// yields ErrMalformedHash.
func ParseStoredHash(stored string) (*StoredHash, error) {
	parts := strings.Split(stored, "$")
	if len(parts) != 4 {
		return nil, ErrMalformedHash
	}

	if parts[0] != Algorithm {
		return nil, fmt.Errorf("%w: unknown algorithm %q", ErrMalformedHash, parts[0])
	}

	iterations, err := strconv.Atoi(parts[1])
	if err != nil || iterations <= 0 {
		return nil, fmt.Errorf("%w: bad iteration count", ErrMalformedHash)
	}

	salt, err := base64.StdEncoding.DecodeString(parts[2])
	if err != nil || len(salt) == 0 {
		return nil, fmt.Errorf("%w: bad salt", ErrMalformedHash)
	}

	key, err := base64.StdEncoding.DecodeString(parts[3])
	if err != nil || len(key) == 0 {
		return nil, fmt.Errorf("%w: bad key", ErrMalformedHash)
	}

	return &StoredHash{Algorithm: parts[0], Iterations: iterations, Salt: salt, Key: key}, nil
}

// VerifyPassword re-derives the key with the parameters embedded in stored
// and compares it in constant time. It never panics and returns false for
// anything it cannot parse.
func VerifyPassword(password, stored string) bool {
	h, err := ParseStoredHash(stored)
	if err != nil {
		return false
	}

	candidate := derive(password, h.Salt, h.Iterations)
	// ConstantTimeCompare returns 0 on length mismatch without leaking where.
	return subtle.ConstantTimeCompare(candidate, h.Key) == 1
}

// NewOpaqueToken returns size random bytes as unpadded base64url. Used for
// session ids and reset tokens; never derived from user input.
func NewOpaqueToken(size int) (string, error) {
	b := make([]byte, size)
	if _, err := rand.Read(b); err != nil {
		return "", err
	}
	return base64.RawURLEncoding.EncodeToString(b), nil
}
