// Package redisstore provides a Redis-backed kv.Store for the persistent
// cache tier.
package redisstore

import (
	"context"
	"errors"
	"sort"
	"sync/atomic"

	"time"

	"github.com/fundexplorer/datakit/kv"
	"github.com/fundexplorer/datakit/logger"
	"github.com/redis/go-redis/v9"
	"go.uber.org/zap"
)

// Store is a Redis implementation of kv.Store.
type Store struct {
	logger logger.Logger
	client *redis.Client
	closed atomic.Bool
}

// New connects to Redis and verifies the connection.
func New(log logger.Logger, cfg *Config) (*Store, error) {
	if cfg == nil {
		cfg = DefaultConfig()
	} else {
		defaults := DefaultConfig()
		if cfg.DialTimeout == 0 {
			cfg.DialTimeout = defaults.DialTimeout
		}
		if cfg.ReadTimeout == 0 {
			cfg.ReadTimeout = defaults.ReadTimeout
		}
		if cfg.WriteTimeout == 0 {
			cfg.WriteTimeout = defaults.WriteTimeout
		}
	}

	if err := cfg.Validate(); err != nil {
		return nil, err
	}

	client := redis.NewClient(&redis.Options{
		Addr:         cfg.Addr,
		Password:     cfg.Password,
		DB:           cfg.DB,
		DialTimeout:  cfg.DialTimeout,
		ReadTimeout:  cfg.ReadTimeout,
		WriteTimeout: cfg.WriteTimeout,
	})

	pingCtx, cancel := context.WithTimeout(context.Background(), cfg.DialTimeout)
	defer cancel()
	if err := client.Ping(pingCtx).Err(); err != nil {
		_ = client.Close()
		return nil, ErrConnection(err)
	}

	log.Info("redis store connected",
		zap.String("addr", cfg.Addr),
		zap.Int("db", cfg.DB),
	)

	return &Store{logger: log, client: client}, nil
}

func (s *Store) Get(ctx context.Context, key string) ([]byte, error) {
	if s.closed.Load() {
		return nil, kv.ErrStoreClosed
	}
	val, err := s.client.Get(ctx, key).Bytes()
	if errors.Is(err, redis.Nil) {
		return nil, kv.ErrNotFound
	}
	if err != nil {
		return nil, kv.ErrBackend(err)
	}
	return val, nil
}

func (s *Store) Put(ctx context.Context, key string, value []byte, ttl time.Duration) error {
	if s.closed.Load() {
		return kv.ErrStoreClosed
	}
	if err := s.client.Set(ctx, key, value, ttl).Err(); err != nil {
		return kv.ErrBackend(err)
	}
	return nil
}

func (s *Store) Delete(ctx context.Context, key string) error {
	if s.closed.Load() {
		return kv.ErrStoreClosed
	}
	if err := s.client.Del(ctx, key).Err(); err != nil {
		return kv.ErrBackend(err)
	}
	return nil
}

func (s *Store) Keys(ctx context.Context, prefix string) ([]string, error) {
	if s.closed.Load() {
		return nil, kv.ErrStoreClosed
	}

	var keys []string
	iter := s.client.Scan(ctx, 0, prefix+"*", 0).Iterator()
	for iter.Next(ctx) {
		keys = append(keys, iter.Val())
	}
	if err := iter.Err(); err != nil {
		return nil, kv.ErrBackend(err)
	}
	// SCAN order is unspecified
	sort.Strings(keys)
	return keys, nil
}

func (s *Store) Close() error {
	if !s.closed.CompareAndSwap(false, true) {
		return nil
	}
	return s.client.Close()
}
