package store

import (
	"context"
	"errors"
	"fmt"
	"time"

	"github.com/redis/go-redis/v9"
)

const scanBatch = 256

// RedisStore persists values as plain Redis strings under prefix+key.
type RedisStore struct {
	redis  redis.UniversalClient
	prefix string
	ttl    time.Duration
}

// NewRedisStore returns a store over client. A positive ttl is applied to
// every write; zero keeps values until removed.
func NewRedisStore(client redis.UniversalClient, prefix string, ttl time.Duration) *RedisStore {
	return &RedisStore{
		redis:  client,
		prefix: normalizePrefix(prefix),
		ttl:    ttl,
	}
}

func (s *RedisStore) key(k string) string {
	return s.prefix + k
}

func (s *RedisStore) Get(ctx context.Context, key string) ([]byte, error) {
	raw, err := s.redis.Get(ctx, s.key(key)).Bytes()
	if err != nil {
		if errors.Is(err, redis.Nil) {
			return nil, ErrNotFound
		}
		return nil, &Error{Op: "get", Key: key, Err: fmt.Errorf("%w: %v", ErrUnavailable, err)}
	}
	return raw, nil
}

func (s *RedisStore) Set(ctx context.Context, key string, value []byte) error {
	if err := s.redis.Set(ctx, s.key(key), value, s.ttl).Err(); err != nil {
		return &Error{Op: "set", Key: key, Err: fmt.Errorf("%w: %v", ErrUnavailable, err)}
	}
	return nil
}

func (s *RedisStore) Remove(ctx context.Context, key string) error {
	if err := s.redis.Del(ctx, s.key(key)).Err(); err != nil {
		return &Error{Op: "remove", Key: key, Err: fmt.Errorf("%w: %v", ErrUnavailable, err)}
	}
	return nil
}

func (s *RedisStore) Clear(ctx context.Context, scope Scope) error {
	if scope == ScopeAll {
		if err := s.redis.FlushDB(ctx).Err(); err != nil {
			return &Error{Op: "clear", Err: fmt.Errorf("%w: %v", ErrUnavailable, err)}
		}
		return nil
	}

	iter := s.redis.Scan(ctx, 0, s.prefix+"*", scanBatch).Iterator()
	batch := make([]string, 0, scanBatch)
	for iter.Next(ctx) {
		batch = append(batch, iter.Val())
		if len(batch) == scanBatch {
			if err := s.redis.Del(ctx, batch...).Err(); err != nil {
				return &Error{Op: "clear", Err: fmt.Errorf("%w: %v", ErrUnavailable, err)}
			}
			batch = batch[:0]
		}
	}
	if err := iter.Err(); err != nil {
		return &Error{Op: "clear", Err: fmt.Errorf("%w: %v", ErrUnavailable, err)}
	}
	if len(batch) > 0 {
		if err := s.redis.Del(ctx, batch...).Err(); err != nil {
			return &Error{Op: "clear", Err: fmt.Errorf("%w: %v", ErrUnavailable, err)}
		}
	}
	return nil
}
