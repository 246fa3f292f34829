package status

import (
	"context"
	"encoding/json"
	"errors"

	"github.com/redis/go-redis/v9"
)

// DefaultRedisKey is the slot the status record is stored under when no
// custom key is configured.
const DefaultRedisKey = "entitlement:subscription_status"

// RedisStore persists the status record as a JSON document under a single
// fixed key. It exists for server-synchronized deployments where the
// entitlement engine runs next to an account service rather than on-device.
//
// The record has no optimistic-concurrency version: the last writer wins.
// That is acceptable for a single-user slot; a multi-writer deployment
// should add a version check before adopting this store.
type RedisStore struct {
	client *redis.Client
	key    string
}

// NewRedisStore returns a store writing to the given key, or
// DefaultRedisKey when key is empty. Panics if client is nil to fail fast
// during initialization.
func NewRedisStore(client *redis.Client, key string) *RedisStore {
	if client == nil {
		panic("status: redis client is required")
	}
	if key == "" {
		key = DefaultRedisKey
	}
	return &RedisStore{client: client, key: key}
}

func (r *RedisStore) Get(ctx context.Context) (*Status, error) {
	payload, err := r.client.Get(ctx, r.key).Bytes()
	if err != nil {
		if errors.Is(err, redis.Nil) {
			return nil, ErrStatusNotFound
		}
		return nil, errors.Join(ErrPersistence, err)
	}

	var s Status
	if err := json.Unmarshal(payload, &s); err != nil {
		return nil, errors.Join(ErrPersistence, err)
	}
	return &s, nil
}

func (r *RedisStore) Save(ctx context.Context, s *Status) error {
	if s == nil {
		return ErrNilStatus
	}

	payload, err := json.Marshal(s)
	if err != nil {
		return errors.Join(ErrPersistence, err)
	}

	if err := r.client.Set(ctx, r.key, payload, 0).Err(); err != nil {
		return errors.Join(ErrPersistence, err)
	}
	return nil
}

func (r *RedisStore) Delete(ctx context.Context) error {
	if err := r.client.Del(ctx, r.key).Err(); err != nil {
		return errors.Join(ErrPersistence, err)
	}
	return nil
}
