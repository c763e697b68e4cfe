package flows

import (
	"context"
	"errors"
	"time"

	"github.com/youthy-app/authkit/internal"
	"github.com/youthy-app/authkit/refresh"
)

// RotateFailureKind classifies rotation failures for root-level mapping.
type RotateFailureKind int

const (
	RotateFailureNone RotateFailureKind = iota
	RotateFailureDecode
	RotateFailureNotFound
	RotateFailureReuse
	RotateFailureExpired
	RotateFailureVersionMismatch
	RotateFailureStore
	RotateFailureIssue
)

// RotateResult carries either the issued pair or failure metadata. On
// reuse the identity and record of the spent credential are populated so
// the caller can attribute the event.
type RotateResult struct {
	Failure         RotateFailureKind
	Err             error
	IdentityID      string
	Subject         string
	RecordID        string
	NewRecordID     string
	Version         int64
	AccessToken     string
	RefreshToken    string
	AccessIssuedAt  time.Time
	AccessExpiresAt time.Time
}

// RotateStore is the slice of the refresh store rotation needs.
type RotateStore interface {
	FindLiveByHash(ctx context.Context, hash [32]byte) (*refresh.Record, error)
	Consume(ctx context.Context, hash [32]byte) (*refresh.Record, error)
	Create(ctx context.Context, rec *refresh.Record, hash [32]byte, ttl time.Duration) error
}

// RotateDeps captures rotation flow dependencies.
type RotateDeps struct {
	DecodeRefreshToken   func(string) ([internal.RefreshSecretSize]byte, error)
	HashRefreshSecret    func([internal.RefreshSecretSize]byte) [32]byte
	NewRefreshSecret     func() ([internal.RefreshSecretSize]byte, error)
	EncodeRefreshToken   func([internal.RefreshSecretSize]byte) string
	CurrentVersion       func(ctx context.Context, identityID string) (int64, error)
	IssueAccessToken     func(subject string, version int64, issuedAt time.Time) (string, error)
	NewRecordID          func() string
	ClientIPFromContext  func(context.Context) string
	UserAgentFromContext func(context.Context) string
	Store                RotateStore
	Now                  func() time.Time
	AccessTTL            time.Duration
	RefreshTTL           time.Duration
}

// RunRotate exchanges a live refresh credential for a fresh token pair.
// The credential is peeked and version-checked before the consume, so a
// stale-version credential is rejected without being spent; the consume
// itself is the single-winner step, and losers surface as reuse.
func RunRotate(ctx context.Context, refreshToken string, deps RotateDeps) RotateResult {
	secret, err := deps.DecodeRefreshToken(refreshToken)
	if err != nil {
		return RotateResult{Failure: RotateFailureDecode, Err: err}
	}
	hash := deps.HashRefreshSecret(secret)

	rec, err := deps.Store.FindLiveByHash(ctx, hash)
	if err != nil {
		res := RotateResult{Err: err}
		if rec != nil {
			res.IdentityID = rec.IdentityID
			res.Subject = rec.Subject
			res.RecordID = rec.ID
		}
		switch {
		case errors.Is(err, refresh.ErrNotFound):
			res.Failure = RotateFailureNotFound
		case errors.Is(err, refresh.ErrConsumed):
			res.Failure = RotateFailureReuse
		case errors.Is(err, refresh.ErrExpired):
			res.Failure = RotateFailureExpired
		default:
			res.Failure = RotateFailureStore
		}
		return res
	}

	current, err := deps.CurrentVersion(ctx, rec.IdentityID)
	if err != nil {
		return RotateResult{
			Failure:    RotateFailureStore,
			Err:        err,
			IdentityID: rec.IdentityID,
			Subject:    rec.Subject,
			RecordID:   rec.ID,
		}
	}
	if current != rec.Version {
		return RotateResult{
			Failure:    RotateFailureVersionMismatch,
			IdentityID: rec.IdentityID,
			Subject:    rec.Subject,
			RecordID:   rec.ID,
			Version:    current,
		}
	}

	consumed, err := deps.Store.Consume(ctx, hash)
	if err != nil {
		res := RotateResult{
			Err:        err,
			IdentityID: rec.IdentityID,
			Subject:    rec.Subject,
			RecordID:   rec.ID,
		}
		switch {
		case errors.Is(err, refresh.ErrConsumed):
			res.Failure = RotateFailureReuse
		case errors.Is(err, refresh.ErrNotFound):
			res.Failure = RotateFailureNotFound
		case errors.Is(err, refresh.ErrExpired):
			res.Failure = RotateFailureExpired
		default:
			res.Failure = RotateFailureStore
		}
		return res
	}

	// A bump may have landed between the check above and the consume. The
	// credential is spent either way; re-check so no token is ever issued
	// at a superseded version.
	current, err = deps.CurrentVersion(ctx, consumed.IdentityID)
	if err != nil {
		return RotateResult{
			Failure:    RotateFailureStore,
			Err:        err,
			IdentityID: consumed.IdentityID,
			Subject:    consumed.Subject,
			RecordID:   consumed.ID,
		}
	}
	if current != consumed.Version {
		return RotateResult{
			Failure:    RotateFailureVersionMismatch,
			IdentityID: consumed.IdentityID,
			Subject:    consumed.Subject,
			RecordID:   consumed.ID,
			Version:    current,
		}
	}

	nextSecret, err := deps.NewRefreshSecret()
	if err != nil {
		return RotateResult{
			Failure:    RotateFailureIssue,
			Err:        err,
			IdentityID: consumed.IdentityID,
			Subject:    consumed.Subject,
			RecordID:   consumed.ID,
		}
	}

	issuedAt := deps.Now().Truncate(time.Second)
	accessToken, err := deps.IssueAccessToken(consumed.Subject, current, issuedAt)
	if err != nil {
		return RotateResult{
			Failure:    RotateFailureIssue,
			Err:        err,
			IdentityID: consumed.IdentityID,
			Subject:    consumed.Subject,
			RecordID:   consumed.ID,
		}
	}

	next := &refresh.Record{
		ID:         deps.NewRecordID(),
		IdentityID: consumed.IdentityID,
		Subject:    consumed.Subject,
		Version:    current,
		UserAgent:  deps.UserAgentFromContext(ctx),
		ClientIP:   deps.ClientIPFromContext(ctx),
		IssuedAt:   issuedAt.Unix(),
		ExpiresAt:  issuedAt.Add(deps.RefreshTTL).Unix(),
	}
	if err := deps.Store.Create(ctx, next, deps.HashRefreshSecret(nextSecret), deps.RefreshTTL); err != nil {
		return RotateResult{
			Failure:    RotateFailureStore,
			Err:        err,
			IdentityID: consumed.IdentityID,
			Subject:    consumed.Subject,
			RecordID:   consumed.ID,
		}
	}

	return RotateResult{
		IdentityID:      consumed.IdentityID,
		Subject:         consumed.Subject,
		RecordID:        consumed.ID,
		NewRecordID:     next.ID,
		Version:         current,
		AccessToken:     accessToken,
		RefreshToken:    deps.EncodeRefreshToken(nextSecret),
		AccessIssuedAt:  issuedAt,
		AccessExpiresAt: issuedAt.Add(deps.AccessTTL),
	}
}
