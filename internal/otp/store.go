package otp

import (
	"context"
	"errors"
	"strconv"
	"time"

	"github.com/redis/go-redis/v9"
)

const (
	codeKeyPrefix     = "otp:code:"
	verifiedKeyPrefix = "otp:verified:"
)

// record is an outstanding code for a phone number. Only the hash is stored.
type record struct {
	ID       string
	Hash     string
	Attempts int
}

// RedisStore keeps pending codes and verified-phone markers in redis with TTLs.
type RedisStore struct {
	client *redis.Client
}

func NewRedisStore(client *redis.Client) *RedisStore {
	return &RedisStore{client: client}
}

// Save replaces any pending code for phone.
func (s *RedisStore) Save(ctx context.Context, phone string, rec record, ttl time.Duration) error {
	key := codeKeyPrefix + phone
	_, err := s.client.TxPipelined(ctx, func(pipe redis.Pipeliner) error {
		pipe.Del(ctx, key)
		pipe.HSet(ctx, key, "id", rec.ID, "hash", rec.Hash, "attempts", 0)
		pipe.Expire(ctx, key, ttl)
		return nil
	})
	return err
}

// Load returns the pending code for phone, or ok=false when none is stored or it expired.
func (s *RedisStore) Load(ctx context.Context, phone string) (rec record, ok bool, err error) {
	vals, err := s.client.HGetAll(ctx, codeKeyPrefix+phone).Result()
	if err != nil {
		return record{}, false, err
	}
	if len(vals) == 0 {
		return record{}, false, nil
	}
	attempts, _ := strconv.Atoi(vals["attempts"])
	return record{ID: vals["id"], Hash: vals["hash"], Attempts: attempts}, true, nil
}

// IncrAttempts bumps the attempt counter; the key keeps its original TTL.
func (s *RedisStore) IncrAttempts(ctx context.Context, phone string) (int, error) {
	n, err := s.client.HIncrBy(ctx, codeKeyPrefix+phone, "attempts", 1).Result()
	return int(n), err
}

func (s *RedisStore) Delete(ctx context.Context, phone string) error {
	return s.client.Del(ctx, codeKeyPrefix+phone).Err()
}

func (s *RedisStore) MarkVerified(ctx context.Context, phone string, ttl time.Duration) error {
	return s.client.Set(ctx, verifiedKeyPrefix+phone, "1", ttl).Err()
}

func (s *RedisStore) IsVerified(ctx context.Context, phone string) (bool, error) {
	_, err := s.client.Get(ctx, verifiedKeyPrefix+phone).Result()
	if errors.Is(err, redis.Nil) {
		return false, nil
	}
	if err != nil {
		return false, err
	}
	return true, nil
}
