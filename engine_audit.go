package authkit

import (
	"context"
	"errors"
	"time"
)

func (e *Engine) emitAudit(
	ctx context.Context,
	eventType AuditEventType,
	success bool,
	identityID string,
	recordID string,
	err error,
	metadataBuilder func() map[string]string,
) {
	if e == nil || e.audit == nil {
		return
	}

	var metadata map[string]string
	if metadataBuilder != nil {
		metadata = metadataBuilder()
	}

	event := AuditEvent{
		Timestamp:  time.Now().UTC(),
		EventType:  eventType,
		IdentityID: identityID,
		RecordID:   recordID,
		IP:         clientIPFromContext(ctx),
		UserAgent:  userAgentFromContext(ctx),
		Success:    success,
		Metadata:   metadata,
	}
	if err != nil {
		event.Error = auditErrorCode(err)
	}

	e.audit.Emit(ctx, event)
}

// auditErrorCode keeps audit payloads to a small stable vocabulary instead
// of leaking raw error strings.
func auditErrorCode(err error) string {
	switch {
	case err == nil:
		return ""
	case errors.Is(err, ErrRefreshReuse):
		return "refresh_reuse"
	case errors.Is(err, ErrVersionMismatch):
		return "version_mismatch"
	case errors.Is(err, ErrIdentityNotFound):
		return "identity_not_found"
	case errors.Is(err, ErrTokenExpired), errors.Is(err, ErrRefreshExpired):
		return "expired"
	case errors.Is(err, ErrTokenSignature),
		errors.Is(err, ErrTokenMalformed),
		errors.Is(err, ErrRefreshInvalid),
		errors.Is(err, ErrRefreshNotFound):
		return "invalid_token"
	default:
		return "internal_error"
	}
}
