// Package refresh stores refresh-credential records in Redis and enforces
// single-use rotation. Records are keyed by the SHA-256 hash of the opaque
// credential, indexed per identity, and consumed through Lua compare-and-set
// scripts so concurrent exchanges of the same credential have exactly one
// winner.
package refresh
