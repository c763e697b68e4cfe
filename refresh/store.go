package refresh

import (
	"context"
	"encoding/hex"
	"errors"
	"fmt"
	"time"

	"github.com/redis/go-redis/v9"
)

// ErrRedisUnavailable wraps transport-level Redis failures.
var ErrRedisUnavailable = errors.New("refresh redis unavailable")

// ErrNotFound is returned when no record exists for a credential hash.
var ErrNotFound = errors.New("refresh record not found")

// ErrConsumed is returned when the record exists but was already rotated or
// revoked. Presenting such a credential again is the reuse signal.
var ErrConsumed = errors.New("refresh record already consumed")

// ErrExpired is returned when the record exists but is past its expiry.
var ErrExpired = errors.New("refresh record expired")

const (
	consumeStatusNotFound int64 = 0
	consumeStatusExpired  int64 = 1
	consumeStatusDead     int64 = 2
	consumeStatusRotated  int64 = 3
)

const consumeScript = `
local key = KEYS[1]
local now = tonumber(ARGV[1])

if redis.call("EXISTS", key) == 0 then
  return {0}
end
local exp = tonumber(redis.call("HGET", key, "exp") or "0")
if exp <= now then
  return {1}
end
if redis.call("HGET", key, "revoked") == "1" or redis.call("HGET", key, "rotated") == "1" then
  return {2}
end

redis.call("HSET", key, "rotated", "1")

return {3,
  redis.call("HGET", key, "id"),
  redis.call("HGET", key, "identity"),
  redis.call("HGET", key, "subject"),
  redis.call("HGET", key, "ver"),
  redis.call("HGET", key, "ua"),
  redis.call("HGET", key, "ip"),
  redis.call("HGET", key, "iat"),
  redis.call("HGET", key, "exp")}
`

var consumeLua = redis.NewScript(consumeScript)

const revokeScript = `
local key = KEYS[1]
if redis.call("EXISTS", key) == 0 then
  return 0
end
if redis.call("HGET", key, "revoked") == "1" then
  return 0
end
redis.call("HSET", key, "revoked", "1")
return 1
`

var revokeLua = redis.NewScript(revokeScript)

const revokeAllScript = `
local idx = KEYS[1]
local prefix = ARGV[1]
local now = tonumber(ARGV[2])

local members = redis.call("SMEMBERS", idx)
local revoked = 0
for _, h in ipairs(members) do
  local key = prefix .. h
  if redis.call("EXISTS", key) == 1 then
    local exp = tonumber(redis.call("HGET", key, "exp") or "0")
    local dead = redis.call("HGET", key, "revoked") == "1"
      or redis.call("HGET", key, "rotated") == "1"
      or exp <= now
    if not dead then
      redis.call("HSET", key, "revoked", "1")
      revoked = revoked + 1
    end
  else
    redis.call("SREM", idx, h)
  end
end
return revoked
`

var revokeAllLua = redis.NewScript(revokeAllScript)

// Store keeps refresh records in Redis, keyed by the hex SHA-256 hash of
// the opaque credential. Every record carries a TTL equal to the refresh
// lifetime, so dead rows age out without a sweeper; liveness is still
// re-checked field-by-field on every read. Rotation and revocation run as
// Lua scripts so that concurrent exchanges of the same credential admit
// exactly one winner.
type Store struct {
	redis  redis.UniversalClient
	prefix string
}

func NewStore(client redis.UniversalClient, prefix string) *Store {
	if prefix == "" {
		prefix = "ak"
	}
	return &Store{redis: client, prefix: prefix}
}

func (s *Store) recordKeyPrefix() string {
	return s.prefix + ":rt:"
}

func (s *Store) recordKey(hash [32]byte) string {
	return s.recordKeyPrefix() + hex.EncodeToString(hash[:])
}

func (s *Store) identityKey(identityID string) string {
	return s.prefix + ":ri:" + identityID
}

// Create persists a record under the credential hash and indexes it by
// identity. The write completes before Create returns; callers must not
// hand the credential to a client until it does.
func (s *Store) Create(ctx context.Context, rec *Record, hash [32]byte, ttl time.Duration) error {
	if rec == nil {
		return errors.New("nil refresh record")
	}
	if ttl <= 0 {
		return errors.New("non-positive refresh ttl")
	}

	key := s.recordKey(hash)
	idxKey := s.identityKey(rec.IdentityID)

	_, err := s.redis.TxPipelined(ctx, func(pipe redis.Pipeliner) error {
		pipe.HSet(ctx, key, rec.fields()...)
		pipe.PExpire(ctx, key, ttl)
		pipe.SAdd(ctx, idxKey, hex.EncodeToString(hash[:]))
		pipe.Expire(ctx, idxKey, ttl)
		return nil
	})
	if err != nil {
		return fmt.Errorf("%w: %v", ErrRedisUnavailable, err)
	}

	return nil
}

// FindLiveByHash returns the record for hash. A nil error means the record
// is live right now. Consumed and expired records come back with the record
// still populated so callers can attribute the failure to an identity.
func (s *Store) FindLiveByHash(ctx context.Context, hash [32]byte) (*Record, error) {
	fields, err := s.redis.HGetAll(ctx, s.recordKey(hash)).Result()
	if err != nil {
		return nil, fmt.Errorf("%w: %v", ErrRedisUnavailable, err)
	}
	if len(fields) == 0 {
		return nil, ErrNotFound
	}

	rec, err := recordFromMap(fields)
	if err != nil {
		return nil, err
	}
	if rec.Revoked || rec.Rotated {
		return rec, ErrConsumed
	}
	if time.Now().Unix() >= rec.ExpiresAt {
		return rec, ErrExpired
	}

	return rec, nil
}

// Consume atomically flips the record to rotated and returns it. Of any
// number of concurrent Consume calls for the same hash exactly one gets the
// record; the rest observe the rotated flag and get [ErrConsumed].
func (s *Store) Consume(ctx context.Context, hash [32]byte) (*Record, error) {
	result, err := consumeLua.Run(
		ctx,
		s.redis,
		[]string{s.recordKey(hash)},
		time.Now().Unix(),
	).Result()
	if err != nil {
		return nil, fmt.Errorf("%w: %v", ErrRedisUnavailable, err)
	}

	parts, ok := result.([]interface{})
	if !ok || len(parts) == 0 {
		return nil, fmt.Errorf("%w: invalid consume script response", ErrRedisUnavailable)
	}

	status, ok := parts[0].(int64)
	if !ok {
		return nil, fmt.Errorf("%w: invalid consume script status", ErrRedisUnavailable)
	}

	switch status {
	case consumeStatusNotFound:
		return nil, ErrNotFound
	case consumeStatusExpired:
		return nil, ErrExpired
	case consumeStatusDead:
		return nil, ErrConsumed
	case consumeStatusRotated:
		if len(parts) < 9 {
			return nil, fmt.Errorf("%w: truncated consume script response", ErrRedisUnavailable)
		}
		rec, err := recordFromMap(map[string]string{
			"id":       scriptString(parts[1]),
			"identity": scriptString(parts[2]),
			"subject":  scriptString(parts[3]),
			"ver":      scriptString(parts[4]),
			"ua":       scriptString(parts[5]),
			"ip":       scriptString(parts[6]),
			"iat":      scriptString(parts[7]),
			"exp":      scriptString(parts[8]),
			"rotated":  "1",
			"revoked":  "0",
		})
		if err != nil {
			return nil, err
		}
		return rec, nil
	default:
		return nil, fmt.Errorf("%w: unknown consume script status", ErrRedisUnavailable)
	}
}

// MarkRevoked revokes the record for hash. Absent and already-dead records
// are a silent no-op so callers never learn whether a credential existed.
func (s *Store) MarkRevoked(ctx context.Context, hash [32]byte) error {
	if err := revokeLua.Run(ctx, s.redis, []string{s.recordKey(hash)}).Err(); err != nil {
		return fmt.Errorf("%w: %v", ErrRedisUnavailable, err)
	}
	return nil
}

// RevokeAllForIdentity revokes every currently-live record for the identity
// in one atomic script and returns how many were live. Stale index entries
// whose records already aged out are pruned on the way through.
func (s *Store) RevokeAllForIdentity(ctx context.Context, identityID string) (int, error) {
	revoked, err := revokeAllLua.Run(
		ctx,
		s.redis,
		[]string{s.identityKey(identityID)},
		s.recordKeyPrefix(),
		time.Now().Unix(),
	).Int()
	if err != nil {
		return 0, fmt.Errorf("%w: %v", ErrRedisUnavailable, err)
	}
	return revoked, nil
}

// ActiveForIdentity lists the identity's live records, for "devices signed
// in" views. Reads are pipelined and mutate nothing.
func (s *Store) ActiveForIdentity(ctx context.Context, identityID string) ([]*Record, error) {
	hashes, err := s.redis.SMembers(ctx, s.identityKey(identityID)).Result()
	if err != nil {
		if errors.Is(err, redis.Nil) {
			return []*Record{}, nil
		}
		return nil, fmt.Errorf("%w: %v", ErrRedisUnavailable, err)
	}
	if len(hashes) == 0 {
		return []*Record{}, nil
	}

	pipe := s.redis.Pipeline()
	cmds := make([]*redis.MapStringStringCmd, len(hashes))
	for i, h := range hashes {
		cmds[i] = pipe.HGetAll(ctx, s.recordKeyPrefix()+h)
	}
	if _, err := pipe.Exec(ctx); err != nil && !errors.Is(err, redis.Nil) {
		return nil, fmt.Errorf("%w: %v", ErrRedisUnavailable, err)
	}

	now := time.Now().Unix()
	records := make([]*Record, 0, len(hashes))
	for _, cmd := range cmds {
		fields, cmdErr := cmd.Result()
		if cmdErr != nil {
			if errors.Is(cmdErr, redis.Nil) {
				continue
			}
			return nil, fmt.Errorf("%w: %v", ErrRedisUnavailable, cmdErr)
		}
		if len(fields) == 0 {
			continue
		}

		rec, decErr := recordFromMap(fields)
		if decErr != nil {
			continue
		}
		if rec.Live(now) {
			records = append(records, rec)
		}
	}

	return records, nil
}

// Ping returns a point-in-time Redis availability check and latency.
func (s *Store) Ping(ctx context.Context) (time.Duration, error) {
	start := time.Now()
	if err := s.redis.Ping(ctx).Err(); err != nil {
		return time.Since(start), fmt.Errorf("%w: %v", ErrRedisUnavailable, err)
	}
	return time.Since(start), nil
}

func scriptString(v interface{}) string {
	switch s := v.(type) {
	case string:
		return s
	case []byte:
		return string(s)
	default:
		return ""
	}
}
