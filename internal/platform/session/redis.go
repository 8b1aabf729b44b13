package session

import (
	"context"
	"errors"
	"fmt"
	"time"

	"github.com/goccy/go-json"
	"github.com/redis/go-redis/v9"
)

const keyPrefix = "recipehub:view:"

type redisStore struct {
	rdb *redis.Client
	ttl time.Duration
}

// ConnectRedis opens a client and verifies it with PING. Views expire after
// ttl, which should match the session token lifetime.
func ConnectRedis(ctx context.Context, addr, password string, db int, ttl time.Duration) (Store, error) {
	rdb := redis.NewClient(&redis.Options{
		Addr:     addr,
		Password: password,
		DB:       db,
	})

	if err := rdb.Ping(ctx).Err(); err != nil {
		rdb.Close()
		return nil, fmt.Errorf("could not connect to Redis at %s: %w", addr, err)
	}
	return NewRedisStore(rdb, ttl), nil
}

func NewRedisStore(rdb *redis.Client, ttl time.Duration) Store {
	return &redisStore{rdb: rdb, ttl: ttl}
}

func key(username string) string {
	return keyPrefix + username
}

func (s *redisStore) Get(ctx context.Context, username string) (View, error) {
	raw, err := s.rdb.Get(ctx, key(username)).Bytes()
	if err != nil {
		if errors.Is(err, redis.Nil) {
			return View{}, nil
		}
		return View{}, fmt.Errorf("redisStore.Get: %w", err)
	}

	var v View
	if err := json.Unmarshal(raw, &v); err != nil {
		return View{}, fmt.Errorf("redisStore.Get: decode view: %w", err)
	}
	return v, nil
}

func (s *redisStore) Save(ctx context.Context, username string, view View) error {
	raw, err := json.Marshal(view)
	if err != nil {
		return fmt.Errorf("redisStore.Save: encode view: %w", err)
	}
	if err := s.rdb.Set(ctx, key(username), raw, s.ttl).Err(); err != nil {
		return fmt.Errorf("redisStore.Save: %w", err)
	}
	return nil
}

func (s *redisStore) Clear(ctx context.Context, username string) error {
	if err := s.rdb.Del(ctx, key(username)).Err(); err != nil {
		return fmt.Errorf("redisStore.Clear: %w", err)
	}
	return nil
}

func (s *redisStore) Close() error {
	return s.rdb.Close()
}
