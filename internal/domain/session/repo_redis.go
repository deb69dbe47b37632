package session

import (
	"context"
	"encoding/json"
	"errors"
	"fmt"
	"time"

	"github.com/redis/go-redis/v9"

	"github.com/ehr/clinicaldash/internal/domain/extraction"
)

const (
	redisKeyPrefix  = "dashboard:session:"
	redisLockPrefix = "dashboard:lock:"
)

// releaseScript deletes the lock only while it still carries the caller's
// token, so a holder whose lock lapsed cannot drop its successor's.
var releaseScript = redis.NewScript(`
if redis.call("GET", KEYS[1]) == ARGV[1] then
	return redis.call("DEL", KEYS[1])
end
return 0
`)

// RedisStore keeps state in Redis as JSON. Every save refreshes the key's TTL
// so a session expires ttl after its last write.
type RedisStore struct {
	client *redis.Client
	ttl    time.Duration
}

func NewRedisStore(client *redis.Client, ttl time.Duration) *RedisStore {
	return &RedisStore{client: client, ttl: ttl}
}

func redisKey(id string) string {
	return redisKeyPrefix + id
}

func redisLockKey(id string) string {
	return redisLockPrefix + id
}

func (r *RedisStore) Get(ctx context.Context, id string) (*State, error) {
	raw, err := r.client.Get(ctx, redisKey(id)).Bytes()
	if errors.Is(err, redis.Nil) {
		return nil, ErrNotFound
	}
	if err != nil {
		return nil, fmt.Errorf("get session %s: %w", id, err)
	}
	return decodeState(raw)
}

func (r *RedisStore) Save(ctx context.Context, s *State) error {
	raw, err := encodeState(s)
	if err != nil {
		return err
	}
	if err := r.client.Set(ctx, redisKey(s.ID), raw, r.ttl).Err(); err != nil {
		return fmt.Errorf("save session %s: %w", s.ID, err)
	}
	return nil
}

func (r *RedisStore) Delete(ctx context.Context, id string) error {
	if err := r.client.Del(ctx, redisKey(id)).Err(); err != nil {
		return fmt.Errorf("delete session %s: %w", id, err)
	}
	return nil
}

// Acquire takes the run lock with SET NX PX.
func (r *RedisStore) Acquire(ctx context.Context, id, token string, ttl time.Duration) (bool, error) {
	ok, err := r.client.SetNX(ctx, redisLockKey(id), token, ttl).Result()
	if err != nil {
		return false, fmt.Errorf("lock session %s: %w", id, err)
	}
	return ok, nil
}

func (r *RedisStore) Release(ctx context.Context, id, token string) error {
	err := releaseScript.Run(ctx, r.client, []string{redisLockKey(id)}, token).Err()
	if err != nil && !errors.Is(err, redis.Nil) {
		return fmt.Errorf("unlock session %s: %w", id, err)
	}
	return nil
}

func encodeState(s *State) ([]byte, error) {
	raw, err := json.Marshal(s)
	if err != nil {
		return nil, fmt.Errorf("encode session %s: %w", s.ID, err)
	}
	return raw, nil
}

func decodeState(raw []byte) (*State, error) {
	var s State
	if err := json.Unmarshal(raw, &s); err != nil {
		return nil, fmt.Errorf("decode session: %w", err)
	}
	if s.Steps == nil {
		s.Steps = []extraction.ProcessStep{}
	}
	return &s, nil
}
