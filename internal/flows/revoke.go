package flows

import (
	"context"

	"github.com/youthy-app/authkit/internal"
)

// RevokeFailureKind classifies revocation failures.
type RevokeFailureKind int

const (
	RevokeFailureNone RevokeFailureKind = iota
	// RevokeFailureDecode marks a malformed credential. Callers are
	// expected to swallow it: single-credential revocation never reveals
	// whether the input named a real record.
	RevokeFailureDecode
	RevokeFailureBump
	RevokeFailureStore
)

// RevokeOneResult reports the outcome of revoking one refresh credential.
type RevokeOneResult struct {
	Failure RevokeFailureKind
	Err     error
}

// RevokeOneStore is the slice of the refresh store single revocation needs.
type RevokeOneStore interface {
	MarkRevoked(ctx context.Context, hash [32]byte) error
}

// RevokeOneDeps captures single-revocation dependencies.
type RevokeOneDeps struct {
	DecodeRefreshToken func(string) ([internal.RefreshSecretSize]byte, error)
	HashRefreshSecret  func([internal.RefreshSecretSize]byte) [32]byte
	Store              RevokeOneStore
}

// RunRevokeOne marks the record behind refreshToken revoked. Missing and
// already-dead records are indistinguishable from success by design.
func RunRevokeOne(ctx context.Context, refreshToken string, deps RevokeOneDeps) RevokeOneResult {
	secret, err := deps.DecodeRefreshToken(refreshToken)
	if err != nil {
		return RevokeOneResult{Failure: RevokeFailureDecode, Err: err}
	}
	if err := deps.Store.MarkRevoked(ctx, deps.HashRefreshSecret(secret)); err != nil {
		return RevokeOneResult{Failure: RevokeFailureStore, Err: err}
	}
	return RevokeOneResult{}
}

// RevokeAllResult reports the outcome of an identity-wide revocation.
type RevokeAllResult struct {
	Failure    RevokeFailureKind
	Err        error
	Revoked    int
	NewVersion int64
}

// RevokeAllDeps captures identity-wide revocation dependencies.
type RevokeAllDeps struct {
	BumpVersion      func(ctx context.Context, identityID string) (int64, error)
	RevokeAllRecords func(ctx context.Context, identityID string) (int, error)
}

// RunRevokeAll bumps the identity's version first, so every outstanding
// access token dies immediately, then revokes the stored refresh records.
// If the second step fails the bump is not rolled back; records left live
// still fail rotation on the version check.
func RunRevokeAll(ctx context.Context, identityID string, deps RevokeAllDeps) RevokeAllResult {
	version, err := deps.BumpVersion(ctx, identityID)
	if err != nil {
		return RevokeAllResult{Failure: RevokeFailureBump, Err: err}
	}

	revoked, err := deps.RevokeAllRecords(ctx, identityID)
	if err != nil {
		return RevokeAllResult{Failure: RevokeFailureStore, Err: err, NewVersion: version}
	}

	return RevokeAllResult{Revoked: revoked, NewVersion: version}
}
