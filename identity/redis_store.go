package identity

import (
	"context"
	"errors"
	"fmt"

	"github.com/redis/go-redis/v9"
)

// ErrRedisUnavailable wraps transport-level Redis failures.
var ErrRedisUnavailable = errors.New("identity redis unavailable")

// RedisStore is a reference [Store] backed by Redis. Identity records live
// in a hash keyed by external id; the version counter is a plain Redis
// counter keyed by identity id, so IncrementVersion is a single INCR and
// therefore linearizable per identity. Services that keep members in a
// relational database implement [Store] over that database instead; the
// semantics here are the contract.
type RedisStore struct {
	redis  redis.UniversalClient
	prefix string
}

func NewRedisStore(client redis.UniversalClient, prefix string) *RedisStore {
	if prefix == "" {
		prefix = "id"
	}
	return &RedisStore{redis: client, prefix: prefix}
}

func (s *RedisStore) recordKey(externalID string) string {
	return s.prefix + ":ix:" + externalID
}

func (s *RedisStore) versionKey(identityID string) string {
	return s.prefix + ":v:" + identityID
}

// Put registers an identity record. The version counter is left untouched,
// so a freshly registered identity reports version 0.
func (s *RedisStore) Put(ctx context.Context, ident Identity) error {
	if ident.ID == "" || ident.ExternalID == "" {
		return errors.New("identity id and external id are required")
	}

	err := s.redis.HSet(ctx, s.recordKey(ident.ExternalID),
		"id", ident.ID,
		"external_id", ident.ExternalID,
	).Err()
	if err != nil {
		return fmt.Errorf("%w: %v", ErrRedisUnavailable, err)
	}
	return nil
}

func (s *RedisStore) GetByExternalID(ctx context.Context, externalID string) (Identity, error) {
	fields, err := s.redis.HGetAll(ctx, s.recordKey(externalID)).Result()
	if err != nil {
		return Identity{}, fmt.Errorf("%w: %v", ErrRedisUnavailable, err)
	}
	if len(fields) == 0 {
		return Identity{}, ErrNotFound
	}

	ident := Identity{
		ID:         fields["id"],
		ExternalID: fields["external_id"],
	}
	if ident.ID == "" {
		return Identity{}, ErrNotFound
	}

	version, err := s.CurrentVersion(ctx, ident.ID)
	if err != nil {
		return Identity{}, err
	}
	ident.Version = version

	return ident, nil
}

func (s *RedisStore) CurrentVersion(ctx context.Context, identityID string) (int64, error) {
	version, err := s.redis.Get(ctx, s.versionKey(identityID)).Int64()
	if err != nil {
		if errors.Is(err, redis.Nil) {
			return 0, nil
		}
		return 0, fmt.Errorf("%w: %v", ErrRedisUnavailable, err)
	}
	return version, nil
}

func (s *RedisStore) IncrementVersion(ctx context.Context, identityID string) (int64, error) {
	version, err := s.redis.Incr(ctx, s.versionKey(identityID)).Result()
	if err != nil {
		return 0, fmt.Errorf("%w: %v", ErrRedisUnavailable, err)
	}
	return version, nil
}
