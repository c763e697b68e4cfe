package authkit

import (
	"context"
	"errors"
	"fmt"
	"time"

	"github.com/google/uuid"

	"github.com/youthy-app/authkit/identity"
	"github.com/youthy-app/authkit/internal"
	"github.com/youthy-app/authkit/internal/flows"
	"github.com/youthy-app/authkit/refresh"
	"github.com/youthy-app/authkit/token"
)

// Engine is the facade over the token lifecycle: issuing pairs, validating
// access tokens, rotating refresh credentials, and revoking. Build one with
// [New] and share it; all methods are safe for concurrent use.
type Engine struct {
	config       Config
	codec        *token.Codec
	guard        *identity.Guard
	identities   identity.Store
	refreshStore *refresh.Store
	audit        *auditDispatcher
	metrics      *Metrics
}

// Close stops the audit dispatcher after draining queued events. The engine
// must not be used afterwards.
func (e *Engine) Close() {
	if e == nil {
		return
	}
	if e.audit != nil {
		e.audit.Close()
	}
}

// AuditDropped reports how many audit events were discarded because the
// buffer was full.
func (e *Engine) AuditDropped() uint64 {
	if e == nil || e.audit == nil {
		return 0
	}
	return e.audit.Dropped()
}

// MetricsSnapshot returns a point-in-time copy of all counters and
// histograms.
func (e *Engine) MetricsSnapshot() MetricsSnapshot {
	if e == nil || e.metrics == nil {
		return MetricsSnapshot{
			Counters:   map[MetricID]uint64{},
			Histograms: map[MetricID][]uint64{},
		}
	}
	return e.metrics.Snapshot()
}

func (e *Engine) metricInc(id MetricID) {
	if e == nil || e.metrics == nil {
		return
	}
	e.metrics.Inc(id)
}

func (e *Engine) metricObserve(id MetricID, d time.Duration) {
	if e == nil || e.metrics == nil {
		return
	}
	e.metrics.Observe(id, d)
}

// Issue mints a token pair for an authenticated identity. The caller is
// responsible for having authenticated the identity; Issue only reads the
// current version and writes the refresh record. The refresh record is
// durable before the pair is returned.
func (e *Engine) Issue(ctx context.Context, ident identity.Identity) (*TokenPair, error) {
	if e == nil {
		return nil, ErrEngineNotReady
	}
	if ident.ID == "" || ident.ExternalID == "" {
		err := errors.New("identity missing id")
		e.metricInc(MetricIssueFailure)
		e.emitAudit(ctx, AuditIssueFailure, false, ident.ID, "", err, nil)
		return nil, err
	}

	version, err := e.guard.CurrentVersion(ctx, ident.ID)
	if err != nil {
		e.metricInc(MetricIssueFailure)
		e.emitAudit(ctx, AuditIssueFailure, false, ident.ID, "", err, nil)
		return nil, err
	}

	pair, recordID, err := e.issuePair(ctx, ident.ID, ident.ExternalID, version)
	if err != nil {
		e.metricInc(MetricIssueFailure)
		e.emitAudit(ctx, AuditIssueFailure, false, ident.ID, "", err, nil)
		return nil, err
	}

	e.metricInc(MetricIssueSuccess)
	e.emitAudit(ctx, AuditIssueSuccess, true, ident.ID, recordID, nil, nil)
	return pair, nil
}

func (e *Engine) issuePair(ctx context.Context, identityID, subject string, version int64) (*TokenPair, string, error) {
	issuedAt := time.Now().Truncate(time.Second)

	access, err := e.codec.Encode(subject, version, e.config.Token.AccessTTL, issuedAt)
	if err != nil {
		return nil, "", fmt.Errorf("encode access token: %w", err)
	}

	secret, err := internal.NewRefreshSecret()
	if err != nil {
		return nil, "", err
	}

	rec := &refresh.Record{
		ID:         uuid.NewString(),
		IdentityID: identityID,
		Subject:    subject,
		Version:    version,
		UserAgent:  userAgentFromContext(ctx),
		ClientIP:   clientIPFromContext(ctx),
		IssuedAt:   issuedAt.Unix(),
		ExpiresAt:  issuedAt.Add(e.config.Token.RefreshTTL).Unix(),
	}
	if err := e.refreshStore.Create(ctx, rec, internal.HashRefreshSecret(secret), e.config.Token.RefreshTTL); err != nil {
		return nil, "", err
	}

	return &TokenPair{
		Access:  access,
		Refresh: internal.EncodeRefreshToken(secret),
	}, rec.ID, nil
}

// Rotate exchanges a live refresh credential for a fresh pair. The spent
// credential is consumed atomically: of concurrent calls with the same
// credential exactly one succeeds and the rest fail with [ErrRefreshReuse].
// Reuse of an already-spent credential is audited and counted separately
// as a theft signal and surfaces as [RefreshReuseError], which names the
// affected identity; containment beyond rejecting the request is left to
// the caller, which typically responds with [Engine.RevokeAll].
func (e *Engine) Rotate(ctx context.Context, refreshToken string) (*TokenPair, error) {
	if e == nil {
		return nil, ErrEngineNotReady
	}

	result := flows.RunRotate(ctx, refreshToken, flows.RotateDeps{
		DecodeRefreshToken:   internal.DecodeRefreshToken,
		HashRefreshSecret:    internal.HashRefreshSecret,
		NewRefreshSecret:     internal.NewRefreshSecret,
		EncodeRefreshToken:   internal.EncodeRefreshToken,
		CurrentVersion:       e.guard.CurrentVersion,
		IssueAccessToken: func(subject string, version int64, issuedAt time.Time) (string, error) {
			return e.codec.Encode(subject, version, e.config.Token.AccessTTL, issuedAt)
		},
		NewRecordID:          uuid.NewString,
		ClientIPFromContext:  clientIPFromContext,
		UserAgentFromContext: userAgentFromContext,
		Store:                e.refreshStore,
		Now:                  time.Now,
		AccessTTL:            e.config.Token.AccessTTL,
		RefreshTTL:           e.config.Token.RefreshTTL,
	})

	switch result.Failure {
	case flows.RotateFailureNone:
		e.metricInc(MetricRotateSuccess)
		e.emitAudit(ctx, AuditRotateSuccess, true, result.IdentityID, result.RecordID, nil, func() map[string]string {
			return map[string]string{"new_record": result.NewRecordID}
		})
		return &TokenPair{Access: result.AccessToken, Refresh: result.RefreshToken}, nil

	case flows.RotateFailureReuse:
		e.metricInc(MetricRotateFailure)
		e.metricInc(MetricRefreshReuseDetected)
		reuseErr := &RefreshReuseError{IdentityID: result.IdentityID}
		e.emitAudit(ctx, AuditRotateReuse, false, result.IdentityID, result.RecordID, reuseErr, nil)
		return nil, reuseErr

	case flows.RotateFailureVersionMismatch:
		e.metricInc(MetricRotateFailure)
		e.metricInc(MetricVersionMismatch)
		e.emitAudit(ctx, AuditRotateInvalid, false, result.IdentityID, result.RecordID, ErrVersionMismatch, nil)
		return nil, ErrVersionMismatch

	case flows.RotateFailureDecode:
		e.metricInc(MetricRotateFailure)
		e.emitAudit(ctx, AuditRotateInvalid, false, "", "", ErrRefreshInvalid, nil)
		return nil, ErrRefreshInvalid

	case flows.RotateFailureNotFound:
		e.metricInc(MetricRotateFailure)
		e.emitAudit(ctx, AuditRotateInvalid, false, "", "", ErrRefreshNotFound, nil)
		return nil, ErrRefreshNotFound

	case flows.RotateFailureExpired:
		e.metricInc(MetricRotateFailure)
		e.emitAudit(ctx, AuditRotateInvalid, false, result.IdentityID, result.RecordID, ErrRefreshExpired, nil)
		return nil, ErrRefreshExpired

	default:
		e.metricInc(MetricRotateFailure)
		e.emitAudit(ctx, AuditRotateInvalid, false, result.IdentityID, result.RecordID, result.Err, nil)
		if result.Err != nil {
			return nil, result.Err
		}
		return nil, errors.New("rotate failed")
	}
}

// ValidateAccess verifies an access token end to end: signature, expiry,
// subject resolution, and version currency. Every call reads the identity
// store; there is no cache to invalidate.
func (e *Engine) ValidateAccess(ctx context.Context, accessToken string) (*AuthResult, error) {
	if e == nil {
		return nil, ErrEngineNotReady
	}

	start := time.Now()
	result := flows.RunValidate(ctx, accessToken, flows.ValidateDeps{
		DecodeAccessToken: e.codec.Decode,
		GetIdentity:       e.identities.GetByExternalID,
	})
	e.metricObserve(MetricValidateLatency, time.Since(start))

	switch result.Failure {
	case flows.ValidateFailureNone:
		e.metricInc(MetricValidateSuccess)
		return &AuthResult{
			Identity:  result.Identity,
			IssuedAt:  result.IssuedAt,
			ExpiresAt: result.ExpiresAt,
		}, nil

	case flows.ValidateFailureDecode:
		e.metricInc(MetricValidateFailure)
		err := mapTokenError(result.Err)
		e.emitAudit(ctx, AuditValidateFailed, false, "", "", err, nil)
		return nil, err

	case flows.ValidateFailureIdentityNotFound:
		e.metricInc(MetricValidateFailure)
		e.emitAudit(ctx, AuditValidateFailed, false, "", "", ErrIdentityNotFound, func() map[string]string {
			return map[string]string{"subject": result.Subject}
		})
		return nil, ErrIdentityNotFound

	case flows.ValidateFailureVersionMismatch:
		e.metricInc(MetricValidateFailure)
		e.metricInc(MetricVersionMismatch)
		e.emitAudit(ctx, AuditValidateFailed, false, result.Identity.ID, "", ErrVersionMismatch, nil)
		return nil, ErrVersionMismatch

	default:
		e.metricInc(MetricValidateFailure)
		e.emitAudit(ctx, AuditValidateFailed, false, "", "", result.Err, nil)
		if result.Err != nil {
			return nil, result.Err
		}
		return nil, errors.New("validate failed")
	}
}

// RevokeOne invalidates a single refresh credential. Malformed input and
// credentials that never existed return nil; callers cannot distinguish
// them from a real revocation. Outstanding access tokens stay valid until
// they expire.
func (e *Engine) RevokeOne(ctx context.Context, refreshToken string) error {
	if e == nil {
		return ErrEngineNotReady
	}

	result := flows.RunRevokeOne(ctx, refreshToken, flows.RevokeOneDeps{
		DecodeRefreshToken: internal.DecodeRefreshToken,
		HashRefreshSecret:  internal.HashRefreshSecret,
		Store:              e.refreshStore,
	})

	switch result.Failure {
	case flows.RevokeFailureNone:
		e.metricInc(MetricRevokeOne)
		e.emitAudit(ctx, AuditRevokeOne, true, "", "", nil, nil)
		return nil
	case flows.RevokeFailureDecode:
		// Swallowed: revocation never confirms whether a credential exists.
		return nil
	default:
		e.emitAudit(ctx, AuditRevokeOne, false, "", "", result.Err, nil)
		return result.Err
	}
}

// RevokeAll invalidates everything outstanding for an identity. The version
// bump lands first and immediately kills every access token regardless of
// expiry; the stored refresh records are revoked after. It returns the
// number of refresh credentials that were live.
func (e *Engine) RevokeAll(ctx context.Context, identityID string) (int, error) {
	if e == nil {
		return 0, ErrEngineNotReady
	}
	if identityID == "" {
		return 0, errors.New("empty identity id")
	}

	result := flows.RunRevokeAll(ctx, identityID, flows.RevokeAllDeps{
		BumpVersion:      e.guard.Bump,
		RevokeAllRecords: e.refreshStore.RevokeAllForIdentity,
	})
	if result.Failure != flows.RevokeFailureNone {
		e.emitAudit(ctx, AuditRevokeAll, false, identityID, "", result.Err, nil)
		return 0, result.Err
	}

	e.metricInc(MetricRevokeAll)
	e.emitAudit(ctx, AuditRevokeAll, true, identityID, "", nil, func() map[string]string {
		return map[string]string{
			"revoked":     fmt.Sprintf("%d", result.Revoked),
			"new_version": fmt.Sprintf("%d", result.NewVersion),
		}
	})
	return result.Revoked, nil
}

// Sessions lists the identity's live refresh credentials for device
// overviews. The credentials themselves are not recoverable.
func (e *Engine) Sessions(ctx context.Context, identityID string) ([]SessionInfo, error) {
	if e == nil {
		return nil, ErrEngineNotReady
	}

	records, err := e.refreshStore.ActiveForIdentity(ctx, identityID)
	if err != nil {
		return nil, err
	}

	sessions := make([]SessionInfo, 0, len(records))
	for _, rec := range records {
		sessions = append(sessions, SessionInfo{
			RecordID:  rec.ID,
			UserAgent: rec.UserAgent,
			ClientIP:  rec.ClientIP,
			IssuedAt:  time.Unix(rec.IssuedAt, 0),
			ExpiresAt: time.Unix(rec.ExpiresAt, 0),
		})
	}
	return sessions, nil
}

// Ping reports refresh store availability and round-trip latency, for
// health endpoints.
func (e *Engine) Ping(ctx context.Context) (time.Duration, error) {
	if e == nil {
		return 0, ErrEngineNotReady
	}
	return e.refreshStore.Ping(ctx)
}

func mapTokenError(err error) error {
	switch {
	case errors.Is(err, token.ErrExpired):
		return ErrTokenExpired
	case errors.Is(err, token.ErrInvalidSignature):
		return ErrTokenSignature
	case errors.Is(err, token.ErrMalformed):
		return ErrTokenMalformed
	default:
		return err
	}
}
