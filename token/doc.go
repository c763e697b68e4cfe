// Package token is the pure signing layer: it turns a (subject, version,
// ttl, issuedAt) tuple into a compact HMAC-SHA256 signed string and back.
// It knows nothing about identities, storage, or revocation; callers layer
// those checks on top of the decoded claims.
package token
