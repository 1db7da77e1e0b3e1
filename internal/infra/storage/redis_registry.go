package storage

import (
	"context"
	"time"

	"github.com/redis/go-redis/v9"
)

const bindingKeyPrefix = "checkout:binding:"

// RedisRegistry records which session each issued order id belongs to,
// so a capture request cannot name an order the relay never created.
// Entries expire with the TTL: an order the payer has not approved
// within that window is stale anyway.
type RedisRegistry struct {
	client *redis.Client
	ttl    time.Duration
}

func NewRedisRegistry(addr string, ttl time.Duration) (*RedisRegistry, error) {
	client := redis.NewClient(&redis.Options{
		Addr:            addr,
		PoolSize:        32,
		MinIdleConns:    4,
		ConnMaxIdleTime: 5 * time.Minute,
		DialTimeout:     500 * time.Millisecond,
		ReadTimeout:     300 * time.Millisecond,
		WriteTimeout:    300 * time.Millisecond,
		MaxRetries:      2,
	})

	if err := client.Ping(context.Background()).Err(); err != nil {
		return nil, err
	}

	return &RedisRegistry{client: client, ttl: ttl}, nil
}

func (r *RedisRegistry) Bind(ctx context.Context, sessionID, orderID string) error {
	return r.client.Set(ctx, bindingKeyPrefix+orderID, sessionID, r.ttl).Err()
}

func (r *RedisRegistry) IsBound(ctx context.Context, sessionID, orderID string) (bool, error) {
	owner, err := r.client.Get(ctx, bindingKeyPrefix+orderID).Result()
	if err == redis.Nil {
		return false, nil
	}
	if err != nil {
		return false, err
	}
	return owner == sessionID, nil
}

func (r *RedisRegistry) Close() error {
	return r.client.Close()
}
