// Package authkit implements the token lifecycle for services that
// authenticate users through a third-party OAuth identity provider: issuance
// of signed access/refresh token pairs, per-request validation, single-use
// refresh rotation with reuse detection, and revocation of one device or of
// every outstanding session at once.
//
// Access tokens are compact HMAC-SHA256 signed tokens carrying a fixed claim
// set (sub, ver, iat, exp). The ver claim is checked against a per-identity
// version counter owned by the identity store, so bumping that counter
// instantly invalidates every token issued before the bump, including tokens
// the server never persisted. Refresh tokens are opaque random credentials
// whose SHA-256 hashes are persisted in Redis, giving positive single-device
// revocation and rotation-replay detection on top of the version mechanism.
//
// Engine methods are safe for concurrent use after initialization through
// [Builder.Build].
package authkit
