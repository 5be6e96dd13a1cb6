package lockout

import (
	"context"
	"fmt"
	"strconv"
	"time"

	"github.com/redis/go-redis/v9"
)

const (
	fieldCount = "count"
	fieldLast  = "last"
)

// RedisStore keeps one hash per identity with the failure count and the
// last attempt in unix milliseconds. Keys expire ttl after the last failure.
type RedisStore struct {
	redis  redis.UniversalClient
	prefix string
	ttl    time.Duration
}

func NewRedisStore(client redis.UniversalClient, prefix string, ttl time.Duration) *RedisStore {
	return &RedisStore{redis: client, prefix: prefix, ttl: ttl}
}

func (s *RedisStore) key(identity string) string {
	return s.prefix + "lockout:" + identity
}

func (s *RedisStore) Get(ctx context.Context, identity string) (Record, bool, error) {
	fields, err := s.redis.HGetAll(ctx, s.key(identity)).Result()
	if err != nil {
		return Record{}, false, fmt.Errorf("%w: %v", ErrUnavailable, err)
	}
	if len(fields) == 0 {
		return Record{}, false, nil
	}

	count, err := strconv.Atoi(fields[fieldCount])
	if err != nil {
		return Record{}, false, fmt.Errorf("%w: corrupt count: %v", ErrUnavailable, err)
	}
	last, err := strconv.ParseInt(fields[fieldLast], 10, 64)
	if err != nil {
		return Record{}, false, fmt.Errorf("%w: corrupt timestamp: %v", ErrUnavailable, err)
	}

	return Record{
		Identity:      identity,
		Count:         count,
		LastAttemptAt: time.UnixMilli(last),
	}, true, nil
}

func (s *RedisStore) Increment(ctx context.Context, identity string, at time.Time) (Record, error) {
	key := s.key(identity)

	var incr *redis.IntCmd
	_, err := s.redis.TxPipelined(ctx, func(pipe redis.Pipeliner) error {
		incr = pipe.HIncrBy(ctx, key, fieldCount, 1)
		pipe.HSet(ctx, key, fieldLast, at.UnixMilli())
		if s.ttl > 0 {
			pipe.PExpire(ctx, key, s.ttl)
		}
		return nil
	})
	if err != nil {
		return Record{}, fmt.Errorf("%w: %v", ErrUnavailable, err)
	}

	return Record{
		Identity:      identity,
		Count:         int(incr.Val()),
		LastAttemptAt: time.UnixMilli(at.UnixMilli()),
	}, nil
}

func (s *RedisStore) Delete(ctx context.Context, identity string) error {
	if err := s.redis.Del(ctx, s.key(identity)).Err(); err != nil {
		return fmt.Errorf("%w: %v", ErrUnavailable, err)
	}
	return nil
}
