package authkit

import (
	"time"

	"github.com/youthy-app/authkit/identity"
)

// TokenPair is the result of Issue and Rotate: a short-lived signed access
// token and a longer-lived opaque refresh credential.
type TokenPair struct {
	Access  string
	Refresh string
}

// AuthResult is returned by [Engine.ValidateAccess] for a token that passed
// signature, expiry, and version checks. The embedded Identity is re-read
// from the identity store on every validation; nothing is cached between
// requests.
type AuthResult struct {
	Identity  identity.Identity
	IssuedAt  time.Time
	ExpiresAt time.Time
}

// SessionInfo describes one live refresh credential, for "devices signed in"
// listings. The credential itself is never recoverable from it.
type SessionInfo struct {
	RecordID  string
	UserAgent string
	ClientIP  string
	IssuedAt  time.Time
	ExpiresAt time.Time
}
