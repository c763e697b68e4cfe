package authkit

import (
	"errors"
	"strings"
	"time"
)

// Config carries all tunables for an [Engine]. It is deep-copied during
// [Builder.Build]; mutating a Config after Build has no effect on the engine.
type Config struct {
	Token   TokenConfig
	Refresh RefreshConfig
	Audit   AuditConfig
	Metrics MetricsConfig
}

// TokenConfig is the token policy: lifetimes and the shared symmetric
// signing secret. The secret is process-wide and read-only after Build.
type TokenConfig struct {
	// AccessTTL bounds access tokens. Whole seconds; sub-second precision
	// is truncated at issuance.
	AccessTTL time.Duration
	// RefreshTTL bounds refresh credentials and their store records.
	RefreshTTL time.Duration
	// SigningSecret is the HMAC-SHA256 key shared by every verifier.
	SigningSecret []byte
}

// RefreshConfig controls the Redis-backed refresh record store.
type RefreshConfig struct {
	// RedisPrefix namespaces every key the store writes.
	RedisPrefix string
}

// AuditConfig controls the asynchronous audit event dispatcher.
type AuditConfig struct {
	Enabled    bool
	BufferSize int
	// DropIfFull drops events instead of blocking the caller when the
	// dispatch buffer is full. Dropped events are counted.
	DropIfFull bool
}

// MetricsConfig controls in-process counters and the validate latency
// histogram.
type MetricsConfig struct {
	Enabled                 bool
	EnableLatencyHistograms bool
}

const minSigningSecretLen = 32

func defaultConfig() Config {
	return Config{
		Token: TokenConfig{
			AccessTTL:  15 * time.Minute,
			RefreshTTL: 14 * 24 * time.Hour,
		},
		Refresh: RefreshConfig{
			RedisPrefix: "ak",
		},
		Audit: AuditConfig{
			Enabled:    false,
			BufferSize: 256,
			DropIfFull: true,
		},
		Metrics: MetricsConfig{
			Enabled: false,
		},
	}
}

// Validate reports the first configuration error, or nil.
func (c *Config) Validate() error {
	if len(c.Token.SigningSecret) < minSigningSecretLen {
		return errors.New("signing secret must be at least 32 bytes")
	}
	if c.Token.AccessTTL < time.Second {
		return errors.New("access TTL must be at least one second")
	}
	if c.Token.RefreshTTL <= c.Token.AccessTTL {
		return errors.New("refresh TTL must exceed access TTL")
	}
	prefix := strings.TrimSpace(c.Refresh.RedisPrefix)
	if prefix == "" || strings.ContainsAny(prefix, " \t\n") {
		return errors.New("refresh redis prefix must be a non-empty token")
	}
	if c.Audit.Enabled && c.Audit.BufferSize < 0 {
		return errors.New("audit buffer size must not be negative")
	}
	return nil
}

func cloneConfig(cfg Config) Config {
	out := cfg
	out.Token.SigningSecret = cloneBytes(cfg.Token.SigningSecret)
	return out
}

func cloneBytes(b []byte) []byte {
	if b == nil {
		return nil
	}
	return append([]byte(nil), b...)
}
