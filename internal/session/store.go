package session

import (
	"context"
	"encoding/json"
	"errors"
	"fmt"
	"time"

	"github.com/redis/go-redis/v9"

	"github.com/psds-microservice/delivery-service/internal/errs"
)

const (
	// KeyPrefix is the Redis key prefix for admin sessions.
	KeyPrefix  = "delivery:session:"
	DefaultTTL = 24 * time.Hour
)

type Store interface {
	Load(ctx context.Context, token string) (*Session, error)
	Save(ctx context.Context, s *Session) error
	Delete(ctx context.Context, token string) error
}

type RedisStore struct {
	client *redis.Client
	prefix string
	ttl    time.Duration
}

func NewRedisStore(client *redis.Client, ttl time.Duration) *RedisStore {
	if ttl <= 0 {
		ttl = DefaultTTL
	}
	return &RedisStore{client: client, prefix: KeyPrefix, ttl: ttl}
}

// Load returns errs.ErrSessionNotFound for unknown or expired tokens.
func (r *RedisStore) Load(ctx context.Context, token string) (*Session, error) {
	if token == "" {
		return nil, errs.ErrSessionNotFound
	}
	data, err := r.client.Get(ctx, r.key(token)).Bytes()
	if err != nil {
		if errors.Is(err, redis.Nil) {
			return nil, errs.ErrSessionNotFound
		}
		return nil, fmt.Errorf("failed to load session from Redis: %w", err)
	}
	var s Session
	if err := json.Unmarshal(data, &s); err != nil {
		return nil, fmt.Errorf("failed to unmarshal session: %w", err)
	}
	s.Token = token
	return &s, nil
}

// Save writes the session and restarts its TTL.
func (r *RedisStore) Save(ctx context.Context, s *Session) error {
	if s == nil || s.Token == "" {
		return errors.New("session token cannot be empty")
	}
	data, err := json.Marshal(s)
	if err != nil {
		return fmt.Errorf("failed to marshal session: %w", err)
	}
	if err := r.client.Set(ctx, r.key(s.Token), data, r.ttl).Err(); err != nil {
		return fmt.Errorf("failed to store session in Redis: %w", err)
	}
	return nil
}

func (r *RedisStore) Delete(ctx context.Context, token string) error {
	if err := r.client.Del(ctx, r.key(token)).Err(); err != nil {
		return fmt.Errorf("failed to delete session from Redis: %w", err)
	}
	return nil
}

func (r *RedisStore) Ping(ctx context.Context) error {
	return r.client.Ping(ctx).Err()
}

func (r *RedisStore) key(token string) string {
	return r.prefix + token
}
