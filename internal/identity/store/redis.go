// Package store backs the identity provider's short-lived secrets with
// Redis.
package store

import (
	"context"
	"errors"
	"fmt"
	"time"

	"github.com/bwmarrin/snowflake"
	"github.com/campusworks/acadia/internal/identity/domain"
	redis "github.com/redis/go-redis/v9"
)

const (
	keyOTP     = "auth:otp:%s"
	keyRefresh = "auth:refresh:%s"
	keyReset   = "auth:reset:%s"
)

type RedisSessionStore struct {
	client *redis.Client
}

func NewRedisSessionStore(client *redis.Client) *RedisSessionStore {
	return &RedisSessionStore{client: client}
}

func (s *RedisSessionStore) SaveOTP(ctx context.Context, email, code string, ttl time.Duration) error {
	return s.client.Set(ctx, fmt.Sprintf(keyOTP, email), code, ttl).Err()
}

func (s *RedisSessionStore) GetOTP(ctx context.Context, email string) (string, error) {
	code, err := s.client.Get(ctx, fmt.Sprintf(keyOTP, email)).Result()
	if errors.Is(err, redis.Nil) {
		return "", domain.ErrSessionMiss
	}
	return code, err
}

func (s *RedisSessionStore) DeleteOTP(ctx context.Context, email string) error {
	return s.client.Del(ctx, fmt.Sprintf(keyOTP, email)).Err()
}

func (s *RedisSessionStore) SaveRefresh(ctx context.Context, token string, userID snowflake.ID, ttl time.Duration) error {
	return s.client.Set(ctx, fmt.Sprintf(keyRefresh, token), userID.String(), ttl).Err()
}

func (s *RedisSessionStore) ConsumeRefresh(ctx context.Context, token string) (snowflake.ID, error) {
	return s.consume(ctx, fmt.Sprintf(keyRefresh, token))
}

func (s *RedisSessionStore) DeleteRefresh(ctx context.Context, token string) error {
	return s.client.Del(ctx, fmt.Sprintf(keyRefresh, token)).Err()
}

func (s *RedisSessionStore) SaveReset(ctx context.Context, token string, userID snowflake.ID, ttl time.Duration) error {
	return s.client.Set(ctx, fmt.Sprintf(keyReset, token), userID.String(), ttl).Err()
}

func (s *RedisSessionStore) ConsumeReset(ctx context.Context, token string) (snowflake.ID, error) {
	return s.consume(ctx, fmt.Sprintf(keyReset, token))
}

// consume atomically reads and deletes, so a token spends exactly once.
func (s *RedisSessionStore) consume(ctx context.Context, key string) (snowflake.ID, error) {
	raw, err := s.client.GetDel(ctx, key).Result()
	if errors.Is(err, redis.Nil) {
		return 0, domain.ErrSessionMiss
	}
	if err != nil {
		return 0, err
	}
	return snowflake.ParseString(raw)
}
