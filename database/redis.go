package database

import (
	"context"
	"time"

	"github.com/redis/go-redis/v9"
)

// RedisClient wraps the redis connection used as the server-side
// session store. Session payloads are opaque JSON blobs keyed by the
// session identifier from the cookie.
type RedisClient struct {
	client *redis.Client
}

func GetRedisClient(addr, password string, db int) (*RedisClient, error) {
	client := redis.NewClient(&redis.Options{
		Addr:     addr,
		Password: password,
		DB:       db,
	})

	if err := client.Ping(context.Background()).Err(); err != nil {
		return nil, err
	}

	return &RedisClient{client: client}, nil
}

func (rc *RedisClient) SetSession(ctx context.Context, sessionID string, data []byte, ttl time.Duration) error {
	return rc.client.Set(ctx, sessionKey(sessionID), data, ttl).Err()
}

func (rc *RedisClient) GetSession(ctx context.Context, sessionID string) ([]byte, error) {
	return rc.client.Get(ctx, sessionKey(sessionID)).Bytes()
}

func (rc *RedisClient) DeleteSession(ctx context.Context, sessionID string) error {
	return rc.client.Del(ctx, sessionKey(sessionID)).Err()
}

func sessionKey(sessionID string) string {
	return "session:" + sessionID
}
