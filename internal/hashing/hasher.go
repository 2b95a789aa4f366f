package hashing

import (
	"crypto/rand"
	"crypto/subtle"
	"encoding/base64"
	"errors"
	"fmt"
	"strings"

	"golang.org/x/crypto/argon2"

	"admin-service/internal/config"
)

var (
	ErrInvalidDigest       = errors.New("invalid digest format")
	ErrIncompatibleVersion = errors.New("incompatible argon2 version")
)

type Argon2Params struct {
	Memory      uint32
	Iterations  uint32
	Parallelism uint8
	SaltLength  uint32
	KeyLength   uint32
}

// Hasher produces and verifies one-way password digests. Every call to Hash
// draws a fresh salt, so two digests of the same plaintext differ while both
// verify. The digest is a single self-describing string:
//
//	$argon2id$v=19$m=65536,t=3,p=4$<salt-b64>$<key-b64>
//
// so verification recovers the parameters the digest was produced with.
type Hasher struct {
	params Argon2Params
}

func NewHasher(cfg *config.Config) *Hasher {
	return &Hasher{
		params: Argon2Params{
			Memory:      uint32(cfg.Hashing.Argon2MemoryKiB),
			Iterations:  uint32(cfg.Hashing.Argon2Iterations),
			Parallelism: uint8(cfg.Hashing.Argon2Parallelism),
			SaltLength:  16,
			KeyLength:   32,
		},
	}
}

// Hash derives a salted argon2id digest of the plaintext. Failure here must
// abort the enclosing save; a plaintext password is never persisted.
func (h *Hasher) Hash(plaintext string) (string, error) {
	salt := make([]byte, h.params.SaltLength)
	if _, err := rand.Read(salt); err != nil {
		return "", fmt.Errorf("failed to generate salt: %w", err)
	}

	key := argon2.IDKey(
		[]byte(plaintext),
		salt,
		h.params.Iterations,
		h.params.Memory,
		h.params.Parallelism,
		h.params.KeyLength,
	)

	return fmt.Sprintf("$argon2id$v=%d$m=%d,t=%d,p=%d$%s$%s",
		argon2.Version,
		h.params.Memory,
		h.params.Iterations,
		h.params.Parallelism,
		base64.RawStdEncoding.EncodeToString(salt),
		base64.RawStdEncoding.EncodeToString(key),
	), nil
}

// Verify checks a candidate plaintext against a stored digest. The comparison
// is constant time regardless of where the values diverge.
func (h *Hasher) Verify(plaintext, digest string) (bool, error) {
	params, salt, expectedKey, err := decodeDigest(digest)
	if err != nil {
		return false, err
	}

	computedKey := argon2.IDKey(
		[]byte(plaintext),
		salt,
		params.Iterations,
		params.Memory,
		params.Parallelism,
		uint32(len(expectedKey)),
	)

	return subtle.ConstantTimeCompare(computedKey, expectedKey) == 1, nil
}

func decodeDigest(digest string) (Argon2Params, []byte, []byte, error) {
	var params Argon2Params

	parts := strings.Split(digest, "$")
	if len(parts) != 6 || parts[1] != "argon2id" {
		return params, nil, nil, ErrInvalidDigest
	}

	var version int
	if _, err := fmt.Sscanf(parts[2], "v=%d", &version); err != nil {
		return params, nil, nil, ErrInvalidDigest
	}
	if version != argon2.Version {
		return params, nil, nil, ErrIncompatibleVersion
	}

	if _, err := fmt.Sscanf(parts[3], "m=%d,t=%d,p=%d",
		&params.Memory, &params.Iterations, &params.Parallelism); err != nil {
		return params, nil, nil, ErrInvalidDigest
	}

	salt, err := base64.RawStdEncoding.DecodeString(parts[4])
	if err != nil {
		return params, nil, nil, ErrInvalidDigest
	}

	key, err := base64.RawStdEncoding.DecodeString(parts[5])
	if err != nil {
		return params, nil, nil, ErrInvalidDigest
	}

	return params, salt, key, nil
}
