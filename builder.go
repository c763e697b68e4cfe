package authkit

import (
	"errors"

	"github.com/redis/go-redis/v9"

	"github.com/youthy-app/authkit/identity"
	"github.com/youthy-app/authkit/refresh"
	"github.com/youthy-app/authkit/token"
)

// Builder assembles an [Engine]. Configure it with the With* methods and
// call [Builder.Build] once; a builder is single-use.
type Builder struct {
	config Config
	redis  redis.UniversalClient

	identities identity.Store
	auditSink  AuditSink

	built bool
}

// New starts a builder with default configuration.
func New() *Builder {
	return &Builder{config: defaultConfig()}
}

// WithConfig replaces the whole configuration. The config is deep-copied.
func (b *Builder) WithConfig(cfg Config) *Builder {
	b.config = cloneConfig(cfg)
	return b
}

// WithRedis sets the Redis client backing the refresh record store and, if
// no identity store is supplied, the default identity store.
func (b *Builder) WithRedis(client redis.UniversalClient) *Builder {
	b.redis = client
	return b
}

// WithIdentityStore overrides the identity collaborator. Without it, Build
// wires an [identity.RedisStore] over the same Redis client and prefix as
// the refresh store.
func (b *Builder) WithIdentityStore(store identity.Store) *Builder {
	b.identities = store
	return b
}

// WithAuditSink enables auditing into sink.
func (b *Builder) WithAuditSink(sink AuditSink) *Builder {
	b.auditSink = sink
	b.config.Audit.Enabled = sink != nil
	return b
}

// WithMetricsEnabled toggles in-process counters.
func (b *Builder) WithMetricsEnabled(enabled bool) *Builder {
	b.config.Metrics.Enabled = enabled
	return b
}

// WithLatencyHistograms toggles the validate latency histogram. Implies
// metrics.
func (b *Builder) WithLatencyHistograms(enabled bool) *Builder {
	b.config.Metrics.EnableLatencyHistograms = enabled
	if enabled {
		b.config.Metrics.Enabled = true
	}
	return b
}

// Build validates the configuration and wires the engine. It may be called
// once per builder.
func (b *Builder) Build() (*Engine, error) {
	if b.built {
		return nil, errors.New("builder already used")
	}
	b.built = true

	if err := b.config.Validate(); err != nil {
		return nil, err
	}
	if b.redis == nil {
		return nil, errors.New("redis client is required")
	}

	codec, err := token.NewCodec(b.config.Token.SigningSecret)
	if err != nil {
		return nil, err
	}

	identities := b.identities
	if identities == nil {
		identities = identity.NewRedisStore(b.redis, b.config.Refresh.RedisPrefix)
	}

	engine := &Engine{
		config:       b.config,
		codec:        codec,
		guard:        identity.NewGuard(identities),
		identities:   identities,
		refreshStore: refresh.NewStore(b.redis, b.config.Refresh.RedisPrefix),
	}

	if b.config.Audit.Enabled && b.auditSink != nil {
		engine.audit = newAuditDispatcher(b.config.Audit, b.auditSink)
	}
	if b.config.Metrics.Enabled {
		engine.metrics = NewMetrics(b.config.Metrics)
	}

	return engine, nil
}
