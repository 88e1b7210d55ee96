package redis

import (
	"context"
	"fmt"
	"time"

	"github.com/redis/go-redis/v9"
)

// RedisRepo records consumed token ids. Refresh rotation and password
// reset both treat a token as single-use: the first caller to mark a jti
// wins, replays lose. Keys expire with the token itself so the set never
// grows past the live token population.
type RedisRepo struct {
	client *redis.Client
}

func New(ctx context.Context, addr, pass string, db int) (*RedisRepo, error) {
	const op = "storage.redis.New"

	client := redis.NewClient(&redis.Options{
		Addr:         addr,
		Password:     pass,
		DB:           db,
		MaxRetries:   3,
		DialTimeout:  5 * time.Second,
		ReadTimeout:  3 * time.Second,
		WriteTimeout: 3 * time.Second,
		PoolSize:     10,
		MinIdleConns: 2,
	})

	if err := client.Ping(ctx).Err(); err != nil {
		return nil, fmt.Errorf("%s: %w", op, err)
	}

	return &RedisRepo{
		client: client,
	}, nil
}

// MarkTokenUsed marks a token id as consumed, atomically via SETNX.
// Returns true on first use, false when the id was already consumed.
func (r *RedisRepo) MarkTokenUsed(ctx context.Context, jti string, ttl time.Duration) (bool, error) {
	const op = "storage.redis.MarkTokenUsed"

	if ttl <= 0 {
		ttl = time.Minute
	}

	key := fmt.Sprintf("token:used:%s", jti)

	first, err := r.client.SetNX(ctx, key, "used", ttl).Result()
	if err != nil {
		return false, fmt.Errorf("%s: %w", op, err)
	}

	return first, nil
}

func (r *RedisRepo) Close() {
	r.client.Close()
}
