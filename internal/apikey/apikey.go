// Package apikey generates, hashes and verifies opaque API keys.
//
// A key is a prefix identifying its kind followed by a base58 encoded
// random body, for example "sk_3yZe7d...". Only the SHA-256 digest of a key
// is ever stored, lookups are done by digest.
package apikey

import (
	"crypto/rand"
	"crypto/sha256"
	"crypto/subtle"
	"encoding/hex"
	"errors"
	"fmt"
	"strings"

	"github.com/mr-tron/base58"
)

// Prefix tags the kind of a key.
type Prefix string

const (
	// PrefixSecret is used for organization scoped keys.
	PrefixSecret Prefix = "sk"
	// PrefixAdmin is used for admin keys.
	PrefixAdmin Prefix = "ak"
)

const (
	// EntropyBytes is the number of random bytes in each key body (256 bits).
	EntropyBytes = 32

	separator = "_"
)

var ErrInvalidPrefix = errors.New("invalid key prefix")

// GenerateKey returns a new random key carrying the given prefix.
func GenerateKey(prefix Prefix) (string, error) {
	if prefix == "" || strings.Contains(string(prefix), separator) {
		return "", ErrInvalidPrefix
	}

	buf := make([]byte, EntropyBytes)
	if _, err := rand.Read(buf); err != nil {
		return "", fmt.Errorf("failed to read random bytes: %w", err)
	}

	return string(prefix) + separator + base58.Encode(buf), nil
}

// HashKey returns the hex encoded SHA-256 digest of the raw key.
func HashKey(rawKey string) string {
	sum := sha256.Sum256([]byte(rawKey))
	return hex.EncodeToString(sum[:])
}

// VerifyKey checks the raw key against a stored digest in constant time.
func VerifyKey(rawKey, storedDigest string) bool {
	computed := HashKey(rawKey)
	return subtle.ConstantTimeCompare([]byte(computed), []byte(storedDigest)) == 1
}

// CreateKey generates a key and its digest.
func CreateKey(prefix Prefix) (rawKey string, digest string, err error) {
	rawKey, err = GenerateKey(prefix)
	if err != nil {
		return "", "", err
	}

	return rawKey, HashKey(rawKey), nil
}

// HasPrefix reports whether the raw key carries the given prefix.
func HasPrefix(rawKey string, prefix Prefix) bool {
	return strings.HasPrefix(rawKey, string(prefix)+separator)
}
