package authkit

import (
	"strings"
	"testing"
	"time"
)

func TestConfigValidate(t *testing.T) {
	cases := []struct {
		name    string
		mutate  func(*Config)
		wantErr string
	}{
		{
			name:   "defaults with secret",
			mutate: func(c *Config) {},
		},
		{
			name:    "short secret",
			mutate:  func(c *Config) { c.Token.SigningSecret = []byte("short") },
			wantErr: "signing secret",
		},
		{
			name:    "sub-second access ttl",
			mutate:  func(c *Config) { c.Token.AccessTTL = 500 * time.Millisecond },
			wantErr: "access TTL",
		},
		{
			name: "refresh ttl not above access ttl",
			mutate: func(c *Config) {
				c.Token.AccessTTL = time.Hour
				c.Token.RefreshTTL = time.Hour
			},
			wantErr: "refresh TTL",
		},
		{
			name:    "blank prefix",
			mutate:  func(c *Config) { c.Refresh.RedisPrefix = "  " },
			wantErr: "prefix",
		},
		{
			name:    "prefix with whitespace",
			mutate:  func(c *Config) { c.Refresh.RedisPrefix = "a b" },
			wantErr: "prefix",
		},
	}

	for _, tc := range cases {
		t.Run(tc.name, func(t *testing.T) {
			cfg := testConfig()
			tc.mutate(&cfg)

			err := cfg.Validate()
			if tc.wantErr == "" {
				if err != nil {
					t.Fatalf("unexpected error: %v", err)
				}
				return
			}
			if err == nil || !strings.Contains(err.Error(), tc.wantErr) {
				t.Fatalf("expected error containing %q, got %v", tc.wantErr, err)
			}
		})
	}
}

func TestBuildCopiesConfig(t *testing.T) {
	_, client := newTestRedis(t)

	cfg := testConfig()
	engine, err := New().WithConfig(cfg).WithRedis(client).Build()
	if err != nil {
		t.Fatalf("Build failed: %v", err)
	}
	defer engine.Close()

	// Mutating the caller's secret must not reach the engine.
	cfg.Token.SigningSecret[0] ^= 0xff
	if engine.config.Token.SigningSecret[0] == cfg.Token.SigningSecret[0] {
		t.Fatal("engine shares the caller's secret slice")
	}
}

func TestBuilderSingleUse(t *testing.T) {
	_, client := newTestRedis(t)

	b := New().WithConfig(testConfig()).WithRedis(client)
	if _, err := b.Build(); err != nil {
		t.Fatalf("first Build failed: %v", err)
	}
	if _, err := b.Build(); err == nil {
		t.Fatal("expected second Build to fail")
	}
}

func TestBuildRequiresRedis(t *testing.T) {
	if _, err := New().WithConfig(testConfig()).Build(); err == nil {
		t.Fatal("expected Build without redis to fail")
	}
}
