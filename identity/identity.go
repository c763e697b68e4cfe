package identity

import (
	"context"
	"errors"
)

// ErrNotFound is returned by Store implementations when no identity matches.
var ErrNotFound = errors.New("identity not found")

// Identity is an authenticated principal as seen by the token subsystem.
// The record itself is owned by the member-management side of the service;
// this package only ever reads ID and ExternalID and reads/increments
// Version.
type Identity struct {
	// ID is the server-assigned stable identifier.
	ID string
	// ExternalID is the identity-provider-assigned subject id. It is the
	// sub claim of every token issued for this identity.
	ExternalID string
	// Version starts at 0 and strictly increases. A token is valid only
	// while its ver claim equals this value.
	Version int64
}

// Store is implemented by the identity/member collaborator. IncrementVersion
// must be atomic at the storage layer: after N concurrent increments the
// counter must have advanced by exactly N.
type Store interface {
	GetByExternalID(ctx context.Context, externalID string) (Identity, error)
	CurrentVersion(ctx context.Context, identityID string) (int64, error)
	IncrementVersion(ctx context.Context, identityID string) (int64, error)
}

// Guard answers the authoritative question "is this token's embedded
// version still current" and owns the bump that invalidates every
// previously issued token for an identity. It holds no state of its own;
// every call reads through to the store.
type Guard struct {
	store Store
}

func NewGuard(store Store) *Guard {
	return &Guard{store: store}
}

func (g *Guard) CurrentVersion(ctx context.Context, identityID string) (int64, error) {
	return g.store.CurrentVersion(ctx, identityID)
}

func (g *Guard) IsCurrent(ctx context.Context, identityID string, tokenVersion int64) (bool, error) {
	current, err := g.store.CurrentVersion(ctx, identityID)
	if err != nil {
		return false, err
	}
	return current == tokenVersion, nil
}

// Bump atomically increments the identity's version and returns the new
// value. This is the only mechanism that invalidates tokens the server has
// no record of.
func (g *Guard) Bump(ctx context.Context, identityID string) (int64, error) {
	return g.store.IncrementVersion(ctx, identityID)
}
