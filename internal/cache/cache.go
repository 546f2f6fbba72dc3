package cache

import (
	"context"
	"encoding/json"
	"errors"
	"time"

	"github.com/redis/go-redis/v9"
)

// ErrUnavailable marks a cache-store failure. It is never terminal: every
// caller treats it as a miss and proceeds without the cache.
var ErrUnavailable = errors.New("cache unavailable")

// Store is the shared key-value contract the limiter and quote cache depend on.
// GetJSON reports (false, nil) on a clean miss.
type Store interface {
	GetJSON(ctx context.Context, key string, dest any) (bool, error)
	SetJSON(ctx context.Context, key string, value any, ttl time.Duration) error
}

// Service is the Redis-backed Store shared by all server instances.
type Service struct {
	rdb *redis.Client
}

func NewService(rdb *redis.Client) *Service {
	return &Service{rdb: rdb}
}

var _ Store = (*Service)(nil)

// GetJSON reads key and unmarshals it into dest. A missing key is not an error.
func (s *Service) GetJSON(ctx context.Context, key string, dest any) (bool, error) {
	raw, err := s.rdb.Get(ctx, key).Bytes()
	if err == redis.Nil {
		return false, nil
	}
	if err != nil {
		return false, errors.Join(ErrUnavailable, err)
	}
	if err := json.Unmarshal(raw, dest); err != nil {
		// Corrupt entry behaves like a miss; the writer will overwrite it.
		return false, nil
	}
	return true, nil
}

// SetJSON marshals value and stores it under key with the given TTL.
func (s *Service) SetJSON(ctx context.Context, key string, value any, ttl time.Duration) error {
	raw, err := json.Marshal(value)
	if err != nil {
		return err
	}
	if err := s.rdb.Set(ctx, key, raw, ttl).Err(); err != nil {
		return errors.Join(ErrUnavailable, err)
	}
	return nil
}

// Acquire takes a short-lived advisory lock (SET NX). The TTL bounds how long
// a crashed holder can block others.
func (s *Service) Acquire(ctx context.Context, key string, ttl time.Duration) (bool, error) {
	ok, err := s.rdb.SetNX(ctx, key, 1, ttl).Result()
	if err != nil {
		return false, errors.Join(ErrUnavailable, err)
	}
	return ok, nil
}

// Release drops an advisory lock taken with Acquire.
func (s *Service) Release(ctx context.Context, key string) error {
	if err := s.rdb.Del(ctx, key).Err(); err != nil {
		return errors.Join(ErrUnavailable, err)
	}
	return nil
}
