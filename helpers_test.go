package authkit

import (
	"context"
	"testing"
	"time"

	"github.com/alicebob/miniredis/v2"
	"github.com/redis/go-redis/v9"

	"github.com/youthy-app/authkit/identity"
	"github.com/youthy-app/authkit/internal"
)

func newTestRedis(t *testing.T) (*miniredis.Miniredis, *redis.Client) {
	t.Helper()

	mr, err := miniredis.Run()
	if err != nil {
		t.Fatalf("miniredis.Run failed: %v", err)
	}
	t.Cleanup(mr.Close)

	client := redis.NewClient(&redis.Options{Addr: mr.Addr()})
	t.Cleanup(func() { _ = client.Close() })

	return mr, client
}

func testConfig() Config {
	cfg := defaultConfig()
	cfg.Token.SigningSecret = []byte("0123456789abcdef0123456789abcdef")
	return cfg
}

func newTestEngine(t *testing.T, cfg Config) (*Engine, *identity.RedisStore, *redis.Client) {
	t.Helper()

	_, client := newTestRedis(t)
	store := identity.NewRedisStore(client, cfg.Refresh.RedisPrefix)

	engine, err := New().
		WithConfig(cfg).
		WithRedis(client).
		WithIdentityStore(store).
		Build()
	if err != nil {
		t.Fatalf("Build failed: %v", err)
	}
	t.Cleanup(engine.Close)

	return engine, store, client
}

func seedIdentity(t *testing.T, store *identity.RedisStore, id, externalID string) identity.Identity {
	t.Helper()

	ident := identity.Identity{ID: id, ExternalID: externalID}
	if err := store.Put(context.Background(), ident); err != nil {
		t.Fatalf("seed identity: %v", err)
	}
	return ident
}

func shortTTLConfig() Config {
	cfg := testConfig()
	cfg.Token.AccessTTL = time.Second
	cfg.Token.RefreshTTL = time.Minute
	return cfg
}

func unissuedRefreshCredential(t *testing.T) string {
	t.Helper()

	secret, err := internal.NewRefreshSecret()
	if err != nil {
		t.Fatalf("NewRefreshSecret failed: %v", err)
	}
	return internal.EncodeRefreshToken(secret)
}
