package internal

import (
	"crypto/rand"
	"crypto/sha256"
	"encoding/base64"
	"errors"
	"fmt"
)

// RefreshSecretSize is the byte length of the random refresh credential.
const RefreshSecretSize = 48

var encodedSecretLen = base64.RawURLEncoding.EncodedLen(RefreshSecretSize)

// ErrBadRefreshEncoding is returned for credentials that are not a
// well-formed encoding of a refresh secret.
var ErrBadRefreshEncoding = errors.New("malformed refresh credential")

// NewRefreshSecret draws a fresh refresh secret from crypto/rand.
func NewRefreshSecret() ([RefreshSecretSize]byte, error) {
	var secret [RefreshSecretSize]byte
	if _, err := rand.Read(secret[:]); err != nil {
		return secret, fmt.Errorf("read refresh secret: %w", err)
	}
	return secret, nil
}

// HashRefreshSecret derives the storage key for a refresh secret. Only this
// hash is ever persisted.
func HashRefreshSecret(secret [RefreshSecretSize]byte) [32]byte {
	return sha256.Sum256(secret[:])
}

// EncodeRefreshToken renders the secret in the wire form handed to clients.
func EncodeRefreshToken(secret [RefreshSecretSize]byte) string {
	return base64.RawURLEncoding.EncodeToString(secret[:])
}

// DecodeRefreshToken parses the wire form back into a secret. The length is
// checked before decoding so oversized inputs are rejected cheaply.
func DecodeRefreshToken(token string) ([RefreshSecretSize]byte, error) {
	var secret [RefreshSecretSize]byte
	if len(token) != encodedSecretLen {
		return secret, ErrBadRefreshEncoding
	}
	raw, err := base64.RawURLEncoding.DecodeString(token)
	if err != nil || len(raw) != RefreshSecretSize {
		return secret, ErrBadRefreshEncoding
	}
	copy(secret[:], raw)
	return secret, nil
}
