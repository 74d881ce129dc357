package store

import (
	"context"
	"encoding/json"
	"errors"
	"fmt"

	"github.com/redis/go-redis/v9"

	"github.com/hevlin/MediaGroup/internal/domain"
	"github.com/hevlin/MediaGroup/internal/redisx"
)

const groupKeyPrefix = "mediagroup:group:"

// RedisStore persists each group config as a JSON blob under its own key.
type RedisStore struct {
	rdb redisx.Client
}

func NewRedisStore(rdb redisx.Client) *RedisStore {
	return &RedisStore{rdb: rdb}
}

func groupKey(id domain.GroupID) string {
	return groupKeyPrefix + string(id)
}

func (s *RedisStore) Save(ctx context.Context, cfg *domain.GroupConfig) error {
	blob, err := json.Marshal(cfg)
	if err != nil {
		return fmt.Errorf("encode group config: %w", err)
	}
	return s.rdb.Set(ctx, groupKey(cfg.ID), blob, 0).Err()
}

func (s *RedisStore) Load(ctx context.Context, id domain.GroupID) (*domain.GroupConfig, error) {
	blob, err := s.rdb.Get(ctx, groupKey(id)).Bytes()
	if errors.Is(err, redis.Nil) {
		return nil, ErrNotFound
	}
	if err != nil {
		return nil, err
	}
	var cfg domain.GroupConfig
	if err := json.Unmarshal(blob, &cfg); err != nil {
		return nil, fmt.Errorf("decode group config: %w", err)
	}
	return &cfg, nil
}

func (s *RedisStore) Delete(ctx context.Context, id domain.GroupID) error {
	n, err := s.rdb.Del(ctx, groupKey(id)).Result()
	if err != nil {
		return err
	}
	if n == 0 {
		return ErrNotFound
	}
	return nil
}

func (s *RedisStore) List(ctx context.Context) ([]*domain.GroupConfig, error) {
	var out []*domain.GroupConfig
	var cursor uint64
	for {
		keys, next, err := s.rdb.Scan(ctx, cursor, groupKeyPrefix+"*", 100).Result()
		if err != nil {
			return nil, err
		}
		for _, key := range keys {
			cfg, err := s.Load(ctx, domain.GroupID(key[len(groupKeyPrefix):]))
			if errors.Is(err, ErrNotFound) {
				continue // deleted between scan and load
			}
			if err != nil {
				return nil, err
			}
			out = append(out, cfg)
		}
		cursor = next
		if cursor == 0 {
			return out, nil
		}
	}
}
