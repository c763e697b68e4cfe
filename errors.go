package authkit

import "errors"

var (
	// ErrTokenMalformed is returned when a token cannot be parsed at all.
	ErrTokenMalformed = errors.New("token malformed")
	// ErrTokenSignature is returned when a token is signed with the wrong
	// key or has been tampered with.
	ErrTokenSignature = errors.New("token signature invalid")
	// ErrTokenExpired is returned once the current time is at or past the
	// token's exp claim.
	ErrTokenExpired = errors.New("token expired")
	// ErrVersionMismatch is returned when a token's ver claim no longer
	// matches the identity's stored version, i.e. all sessions for that
	// identity were invalidated after the token was issued.
	ErrVersionMismatch = errors.New("token version mismatch")
	// ErrIdentityNotFound is returned when a token's subject no longer
	// resolves to an identity.
	ErrIdentityNotFound = errors.New("identity not found")

	// ErrRefreshInvalid is returned when a presented refresh credential is
	// not even shaped like one.
	ErrRefreshInvalid = errors.New("invalid refresh token")
	// ErrRefreshNotFound is returned when no record matches the presented
	// refresh credential.
	ErrRefreshNotFound = errors.New("refresh token not found")
	// ErrRefreshReuse is returned when a presented refresh credential was
	// already rotated or revoked. Treat this as a possible credential
	// theft signal.
	ErrRefreshReuse = errors.New("refresh token reuse detected")
	// ErrRefreshExpired is returned when the matching refresh record is
	// past its expiry.
	ErrRefreshExpired = errors.New("refresh token expired")

	// ErrEngineNotReady is returned by Engine methods on a nil engine.
	ErrEngineNotReady = errors.New("engine not initialized")
)

// RefreshReuseError is the concrete error behind [ErrRefreshReuse] when the
// spent credential could be attributed. It names the identity the
// credential belonged to so callers can run containment, typically
// [Engine.RevokeAll]. Matches both errors.Is(err, ErrRefreshReuse) and
// errors.As.
type RefreshReuseError struct {
	IdentityID string
}

func (e *RefreshReuseError) Error() string {
	return ErrRefreshReuse.Error()
}

func (e *RefreshReuseError) Unwrap() error {
	return ErrRefreshReuse
}

// FailureReason maps an Engine validation or rotation error to a stable
// machine-readable reason string for logs and diagnostics. The mapping is
// intentionally not exposed to external callers; transports should answer
// every failure with the same unauthenticated response.
func FailureReason(err error) string {
	switch {
	case err == nil:
		return ""
	case errors.Is(err, ErrTokenExpired):
		return "expired"
	case errors.Is(err, ErrTokenSignature):
		return "invalid-signature"
	case errors.Is(err, ErrVersionMismatch):
		return "version-mismatch"
	case errors.Is(err, ErrIdentityNotFound):
		return "identity-not-found"
	case errors.Is(err, ErrTokenMalformed):
		return "malformed"
	case errors.Is(err, ErrRefreshReuse):
		return "refresh-reuse"
	case errors.Is(err, ErrRefreshNotFound):
		return "refresh-not-found"
	case errors.Is(err, ErrRefreshExpired):
		return "refresh-expired"
	case errors.Is(err, ErrRefreshInvalid):
		return "refresh-invalid"
	default:
		return "internal"
	}
}
