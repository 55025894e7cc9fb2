package auth

import (
	"context"
	"errors"
	"fmt"
	"strings"
	"time"

	"github.com/redis/go-redis/v9"
)

// RedisSessionStoreConfig carries the connection settings for a Redis-backed
// session store.
type RedisSessionStoreConfig struct {
	Addr      string
	Username  string
	Password  string
	DB        int
	KeyPrefix string
}

// RedisSessionStore persists sessions in Redis, letting API replicas share
// authentication state without a relational database. Expiry is delegated to
// Redis key TTLs.
type RedisSessionStore struct {
	client    redis.UniversalClient
	keyPrefix string
}

// NewRedisSessionStore connects to Redis and verifies the connection with a
// ping before returning the store.
func NewRedisSessionStore(cfg RedisSessionStoreConfig) (*RedisSessionStore, error) {
	addr := strings.TrimSpace(cfg.Addr)
	if addr == "" {
		return nil, fmt.Errorf("redis addr is required")
	}
	prefix := strings.TrimSpace(cfg.KeyPrefix)
	if prefix == "" {
		prefix = "gamebay:session:"
	}
	client := redis.NewUniversalClient(&redis.UniversalOptions{
		Addrs:      []string{addr},
		Username:   strings.TrimSpace(cfg.Username),
		Password:   cfg.Password,
		DB:         cfg.DB,
		MaxRetries: 2,
	})
	store := &RedisSessionStore{
		client:    client,
		keyPrefix: prefix,
	}
	ctx, cancel := context.WithTimeout(context.Background(), 5*time.Second)
	defer cancel()
	if err := client.Ping(ctx).Err(); err != nil {
		_ = client.Close()
		return nil, fmt.Errorf("ping redis: %w", err)
	}
	return store, nil
}

// Close releases the Redis client resources.
func (s *RedisSessionStore) Close() error {
	if s == nil || s.client == nil {
		return nil
	}
	return s.client.Close()
}

func (s *RedisSessionStore) key(token string) string {
	return s.keyPrefix + token
}

// Save stores the session with a TTL matching its expiry. Already-expired
// sessions are not written.
func (s *RedisSessionStore) Save(token, userID string, expiresAt time.Time) error {
	ttl := time.Until(expiresAt)
	if ttl <= 0 {
		return nil
	}
	payload := userID + "|" + expiresAt.UTC().Format(time.RFC3339Nano)
	return s.client.Set(context.Background(), s.key(token), payload, ttl).Err()
}

// Get fetches the session details for the provided token.
func (s *RedisSessionStore) Get(token string) (SessionRecord, bool, error) {
	payload, err := s.client.Get(context.Background(), s.key(token)).Result()
	if errors.Is(err, redis.Nil) {
		return SessionRecord{}, false, nil
	}
	if err != nil {
		return SessionRecord{}, false, fmt.Errorf("get session: %w", err)
	}
	userID, expiresRaw, found := strings.Cut(payload, "|")
	if !found {
		return SessionRecord{}, false, fmt.Errorf("malformed session payload")
	}
	expiresAt, err := time.Parse(time.RFC3339Nano, expiresRaw)
	if err != nil {
		return SessionRecord{}, false, fmt.Errorf("parse session expiry: %w", err)
	}
	return SessionRecord{Token: token, UserID: userID, ExpiresAt: expiresAt}, true, nil
}

// Delete removes the session token.
func (s *RedisSessionStore) Delete(token string) error {
	return s.client.Del(context.Background(), s.key(token)).Err()
}

// PurgeExpired is a no-op: Redis evicts sessions via key TTLs.
func (s *RedisSessionStore) PurgeExpired(time.Time) error {
	return nil
}

// Ping verifies the Redis connection.
func (s *RedisSessionStore) Ping(ctx context.Context) error {
	return s.client.Ping(ctx).Err()
}
