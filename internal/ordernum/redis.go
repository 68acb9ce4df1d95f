package ordernum

import (
	"context"
	"fmt"
	"time"

	"github.com/redis/go-redis/v9"
)

const keyTTL = 48 * time.Hour

type incrementer interface {
	Incr(ctx context.Context, key string) *redis.IntCmd
	Expire(ctx context.Context, key string, expiration time.Duration) *redis.BoolCmd
}

// RedisSequence keeps the daily counter under <service>:order_seq:<yymmdd>.
type RedisSequence struct {
	client      incrementer
	serviceName string
	Now         func() time.Time
}

func NewRedisSequence(ctx context.Context, redisURL, serviceName string) (*RedisSequence, *redis.Client, error) {
	opts, err := redis.ParseURL(redisURL)
	if err != nil {
		return nil, nil, fmt.Errorf("failed to parse redis URL: %w", err)
	}

	client := redis.NewClient(opts)

	pingCtx, cancel := context.WithTimeout(ctx, 5*time.Second)
	defer cancel()

	if err := client.Ping(pingCtx).Err(); err != nil {
		_ = client.Close()
		return nil, nil, fmt.Errorf("failed to ping redis: %w", err)
	}

	return newRedisSequence(client, serviceName), client, nil
}

func newRedisSequence(client incrementer, serviceName string) *RedisSequence {
	return &RedisSequence{client: client, serviceName: serviceName, Now: time.Now}
}

func (s *RedisSequence) GenerateKey(operation, key string) string {
	return fmt.Sprintf("%s:%s:%s", s.serviceName, operation, key)
}

func (s *RedisSequence) Next(ctx context.Context) (string, error) {
	now := s.Now()
	key := s.GenerateKey("order_seq", DayKey(now))

	seq, err := s.client.Incr(ctx, key).Result()
	if err != nil {
		return "", fmt.Errorf("ordernum: incr %s: %w", key, err)
	}
	if seq == 1 {
		if err := s.client.Expire(ctx, key, keyTTL).Err(); err != nil {
			return "", fmt.Errorf("ordernum: expire %s: %w", key, err)
		}
	}
	return Format(now, seq), nil
}
