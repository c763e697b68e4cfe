package flows

import (
	"context"
	"errors"
	"time"

	"github.com/youthy-app/authkit/identity"
	"github.com/youthy-app/authkit/token"
)

// ValidateFailureKind classifies access validation failures.
type ValidateFailureKind int

const (
	ValidateFailureNone ValidateFailureKind = iota
	ValidateFailureDecode
	ValidateFailureIdentityNotFound
	ValidateFailureVersionMismatch
	ValidateFailureStore
)

// ValidateResult carries the resolved identity or failure metadata.
type ValidateResult struct {
	Failure   ValidateFailureKind
	Err       error
	Identity  identity.Identity
	Subject   string
	IssuedAt  time.Time
	ExpiresAt time.Time
}

// ValidateDeps captures validation flow dependencies.
type ValidateDeps struct {
	DecodeAccessToken func(string) (*token.Claims, error)
	GetIdentity       func(ctx context.Context, externalID string) (identity.Identity, error)
}

// RunValidate checks an access token's signature and expiry, then resolves
// the identity and compares the embedded version against the current one.
// Stateless checks come first so garbage never reaches the store.
func RunValidate(ctx context.Context, accessToken string, deps ValidateDeps) ValidateResult {
	claims, err := deps.DecodeAccessToken(accessToken)
	if err != nil {
		return ValidateResult{Failure: ValidateFailureDecode, Err: err}
	}

	ident, err := deps.GetIdentity(ctx, claims.Subject)
	if err != nil {
		if errors.Is(err, identity.ErrNotFound) {
			return ValidateResult{
				Failure: ValidateFailureIdentityNotFound,
				Err:     err,
				Subject: claims.Subject,
			}
		}
		return ValidateResult{Failure: ValidateFailureStore, Err: err, Subject: claims.Subject}
	}

	if claims.Version != ident.Version {
		return ValidateResult{
			Failure:  ValidateFailureVersionMismatch,
			Identity: ident,
			Subject:  claims.Subject,
		}
	}

	return ValidateResult{
		Identity:  ident,
		Subject:   claims.Subject,
		IssuedAt:  claims.IssuedAt.Time,
		ExpiresAt: claims.ExpiresAt.Time,
	}
}
