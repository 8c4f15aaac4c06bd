// Package cryptox hashes and verifies user passwords with Argon2id.
//
// Hashes are stored in PHC string form:
//
//	argon2id$v=19$m=65536,t=3,p=4$<salt_b64>$<hash_b64>
//
// The key length is fixed, so every stored hash has the same size for a
// given parameter set.
package cryptox

import (
	"crypto/subtle"
	"encoding/base64"
	"errors"
	"fmt"
	"strconv"
	"strings"

	"github.com/dmitrijs2005/filesmanager/internal/common"
	"golang.org/x/crypto/argon2"
)

var (
	ErrEmptyPassword     = errors.New("password is required")
	ErrInvalidHashFormat = errors.New("invalid password hash format")
)

// Params controls the Argon2id cost.
type Params struct {
	Memory      uint32
	Iterations  uint32
	Parallelism uint8
	SaltLen     uint32
	KeyLen      uint32
}

// DefaultParams returns the parameters used for new hashes.
func DefaultParams() Params {
	return Params{
		Memory:      64 * 1024,
		Iterations:  3,
		Parallelism: 4,
		SaltLen:     16,
		KeyLen:      32,
	}
}

// HashPassword derives a salted Argon2id hash of password.
func HashPassword(password string, p Params) (string, error) {
	if password == "" {
		return "", ErrEmptyPassword
	}

	salt := common.GenerateRandByteArray(int(p.SaltLen))
	if salt == nil {
		return "", errors.New("salt generation failed")
	}

	key := argon2.IDKey([]byte(password), salt, p.Iterations, p.Memory, p.Parallelism, p.KeyLen)
	enc := base64.RawStdEncoding

	return fmt.Sprintf("argon2id$v=%d$m=%d,t=%d,p=%d$%s$%s",
		argon2.Version, p.Memory, p.Iterations, p.Parallelism,
		enc.EncodeToString(salt), enc.EncodeToString(key)), nil
}

// VerifyPassword reports whether password matches the encoded hash.
// A malformed hash is an error; a mismatch is not.
func VerifyPassword(password, encoded string) (bool, error) {
	if password == "" || encoded == "" {
		return false, nil
	}

	p, salt, want, err := parseHash(encoded)
	if err != nil {
		return false, err
	}

	got := argon2.IDKey([]byte(password), salt, p.Iterations, p.Memory, p.Parallelism, uint32(len(want)))
	return subtle.ConstantTimeCompare(got, want) == 1, nil
}

func parseHash(s string) (Params, []byte, []byte, error) {
	parts := strings.Split(s, "$")
	if len(parts) != 5 || parts[0] != "argon2id" {
		return Params{}, nil, nil, ErrInvalidHashFormat
	}

	ver, err := strconv.Atoi(strings.TrimPrefix(parts[1], "v="))
	if err != nil || ver != argon2.Version {
		return Params{}, nil, nil, fmt.Errorf("unsupported argon2 version: %w", ErrInvalidHashFormat)
	}

	var p Params
	for _, kv := range strings.Split(parts[2], ",") {
		name, value, ok := strings.Cut(kv, "=")
		if !ok {
			return Params{}, nil, nil, ErrInvalidHashFormat
		}
		n, err := strconv.ParseUint(value, 10, 32)
		if err != nil {
			return Params{}, nil, nil, fmt.Errorf("argon2 parameter %s: %w", name, ErrInvalidHashFormat)
		}
		switch name {
		case "m":
			p.Memory = uint32(n)
		case "t":
			p.Iterations = uint32(n)
		case "p":
			if n > 255 {
				return Params{}, nil, nil, ErrInvalidHashFormat
			}
			p.Parallelism = uint8(n)
		default:
			return Params{}, nil, nil, ErrInvalidHashFormat
		}
	}

	if p.Iterations == 0 || p.Parallelism == 0 {
		return Params{}, nil, nil, fmt.Errorf("argon2 parameters t and p must be positive: %w", ErrInvalidHashFormat)
	}

	enc := base64.RawStdEncoding
	salt, err := enc.DecodeString(parts[3])
	if err != nil {
		return Params{}, nil, nil, fmt.Errorf("salt: %w", ErrInvalidHashFormat)
	}
	key, err := enc.DecodeString(parts[4])
	if err != nil || len(key) < 16 {
		return Params{}, nil, nil, fmt.Errorf("key: %w", ErrInvalidHashFormat)
	}

	return p, salt, key, nil
}
