package authkit

import (
	"context"
	"errors"
	"testing"
	"time"

	"github.com/youthy-app/authkit/identity"
)

func TestIssueThenValidate(t *testing.T) {
	engine, store, _ := newTestEngine(t, testConfig())
	ident := seedIdentity(t, store, "member-1", "ext-1001")

	pair, err := engine.Issue(context.Background(), ident)
	if err != nil {
		t.Fatalf("Issue failed: %v", err)
	}
	if pair.Access == "" || pair.Refresh == "" {
		t.Fatalf("expected non-empty token pair, got %+v", pair)
	}

	res, err := engine.ValidateAccess(context.Background(), pair.Access)
	if err != nil {
		t.Fatalf("ValidateAccess failed: %v", err)
	}
	if res.Identity.ExternalID != "ext-1001" {
		t.Fatalf("unexpected subject identity: %+v", res.Identity)
	}
	if res.Identity.Version != 0 {
		t.Fatalf("expected version 0 on fresh identity, got %d", res.Identity.Version)
	}
	if !res.ExpiresAt.After(res.IssuedAt) {
		t.Fatalf("expiry %v not after issuance %v", res.ExpiresAt, res.IssuedAt)
	}
}

func TestIssueRejectsIncompleteIdentity(t *testing.T) {
	engine, _, _ := newTestEngine(t, testConfig())

	if _, err := engine.Issue(context.Background(), identity.Identity{}); err == nil {
		t.Fatal("expected error for identity without ids")
	}
	if _, err := engine.Issue(context.Background(), identity.Identity{ID: "member-1"}); err == nil {
		t.Fatal("expected error for identity without external id")
	}
}

func TestValidateRejectsGarbage(t *testing.T) {
	engine, _, _ := newTestEngine(t, testConfig())

	for _, input := range []string{"", "not-a-token", "a.b.c", "…"} {
		_, err := engine.ValidateAccess(context.Background(), input)
		if !errors.Is(err, ErrTokenMalformed) {
			t.Fatalf("input %q: expected ErrTokenMalformed, got %v", input, err)
		}
	}
}

func TestValidateFailsAfterVersionBump(t *testing.T) {
	engine, store, _ := newTestEngine(t, testConfig())
	ident := seedIdentity(t, store, "member-1", "ext-1001")

	pair, err := engine.Issue(context.Background(), ident)
	if err != nil {
		t.Fatalf("Issue failed: %v", err)
	}
	if _, err := engine.ValidateAccess(context.Background(), pair.Access); err != nil {
		t.Fatalf("ValidateAccess before bump failed: %v", err)
	}

	if _, err := store.IncrementVersion(context.Background(), ident.ID); err != nil {
		t.Fatalf("IncrementVersion failed: %v", err)
	}

	if _, err := engine.ValidateAccess(context.Background(), pair.Access); !errors.Is(err, ErrVersionMismatch) {
		t.Fatalf("expected ErrVersionMismatch after bump, got %v", err)
	}
	if _, err := engine.Rotate(context.Background(), pair.Refresh); !errors.Is(err, ErrVersionMismatch) {
		t.Fatalf("expected rotate ErrVersionMismatch after bump, got %v", err)
	}
}

func TestValidateFailsAtExpiry(t *testing.T) {
	engine, store, _ := newTestEngine(t, shortTTLConfig())
	ident := seedIdentity(t, store, "member-1", "ext-1001")

	pair, err := engine.Issue(context.Background(), ident)
	if err != nil {
		t.Fatalf("Issue failed: %v", err)
	}

	time.Sleep(2100 * time.Millisecond)

	if _, err := engine.ValidateAccess(context.Background(), pair.Access); !errors.Is(err, ErrTokenExpired) {
		t.Fatalf("expected ErrTokenExpired, got %v", err)
	}
}

func TestRotateChain(t *testing.T) {
	engine, store, _ := newTestEngine(t, testConfig())
	ident := seedIdentity(t, store, "member-1", "ext-1001")

	pair, err := engine.Issue(context.Background(), ident)
	if err != nil {
		t.Fatalf("Issue failed: %v", err)
	}

	next, err := engine.Rotate(context.Background(), pair.Refresh)
	if err != nil {
		t.Fatalf("Rotate failed: %v", err)
	}
	if next.Refresh == pair.Refresh {
		t.Fatal("rotation returned the same refresh credential")
	}
	if _, err := engine.ValidateAccess(context.Background(), next.Access); err != nil {
		t.Fatalf("new access token invalid: %v", err)
	}

	// The spent credential must now read as reuse, not as unknown.
	if _, err := engine.Rotate(context.Background(), pair.Refresh); !errors.Is(err, ErrRefreshReuse) {
		t.Fatalf("expected ErrRefreshReuse on spent credential, got %v", err)
	}

	// The replacement still works.
	if _, err := engine.Rotate(context.Background(), next.Refresh); err != nil {
		t.Fatalf("rotating replacement failed: %v", err)
	}
}

func TestReuseErrorNamesIdentity(t *testing.T) {
	engine, store, _ := newTestEngine(t, testConfig())
	ident := seedIdentity(t, store, "member-1", "ext-1001")

	pair, err := engine.Issue(context.Background(), ident)
	if err != nil {
		t.Fatalf("Issue failed: %v", err)
	}
	if _, err := engine.Rotate(context.Background(), pair.Refresh); err != nil {
		t.Fatalf("Rotate failed: %v", err)
	}

	_, err = engine.Rotate(context.Background(), pair.Refresh)
	if !errors.Is(err, ErrRefreshReuse) {
		t.Fatalf("expected ErrRefreshReuse, got %v", err)
	}

	var reuse *RefreshReuseError
	if !errors.As(err, &reuse) {
		t.Fatalf("expected RefreshReuseError, got %T", err)
	}
	if reuse.IdentityID != "member-1" {
		t.Fatalf("reuse attributed to %q, want member-1", reuse.IdentityID)
	}
}

func TestEnginePing(t *testing.T) {
	mr, client := newTestRedis(t)
	store := identity.NewRedisStore(client, "ak")

	engine, err := New().
		WithConfig(testConfig()).
		WithRedis(client).
		WithIdentityStore(store).
		Build()
	if err != nil {
		t.Fatalf("Build failed: %v", err)
	}
	t.Cleanup(engine.Close)

	if _, err := engine.Ping(context.Background()); err != nil {
		t.Fatalf("Ping against a healthy store failed: %v", err)
	}

	mr.Close()

	if _, err := engine.Ping(context.Background()); err == nil {
		t.Fatal("expected Ping to fail once the store is down")
	}
}

func TestRotateRejectsUnknownCredential(t *testing.T) {
	engine, store, _ := newTestEngine(t, testConfig())
	seedIdentity(t, store, "member-1", "ext-1001")

	if _, err := engine.Rotate(context.Background(), "garbage"); !errors.Is(err, ErrRefreshInvalid) {
		t.Fatalf("expected ErrRefreshInvalid for malformed input, got %v", err)
	}

	// Well-formed but never issued.
	if _, err := engine.Rotate(context.Background(), unissuedRefreshCredential(t)); !errors.Is(err, ErrRefreshNotFound) {
		t.Fatalf("expected ErrRefreshNotFound, got %v", err)
	}
}

func TestSessionsListsLiveRecords(t *testing.T) {
	engine, store, _ := newTestEngine(t, testConfig())
	ident := seedIdentity(t, store, "member-1", "ext-1001")

	ctx := WithUserAgent(WithClientIP(context.Background(), "203.0.113.9"), "cli/1.0")
	if _, err := engine.Issue(ctx, ident); err != nil {
		t.Fatalf("Issue failed: %v", err)
	}
	if _, err := engine.Issue(ctx, ident); err != nil {
		t.Fatalf("second Issue failed: %v", err)
	}

	sessions, err := engine.Sessions(context.Background(), ident.ID)
	if err != nil {
		t.Fatalf("Sessions failed: %v", err)
	}
	if len(sessions) != 2 {
		t.Fatalf("expected 2 live sessions, got %d", len(sessions))
	}
	for _, s := range sessions {
		if s.ClientIP != "203.0.113.9" || s.UserAgent != "cli/1.0" {
			t.Fatalf("session missing request metadata: %+v", s)
		}
	}
}
