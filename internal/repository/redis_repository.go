package repository

import (
	"context"
	"encoding/json"
	"errors"

	"github.com/SergeiKhy/shortlink/internal/models"
	"github.com/redis/go-redis/v9"
)

type redisRepository struct {
	redis *RedisDB
}

// NewRedisRepository stores each mapping as a JSON value written with SETNX
// and keeps the access counter in a sibling key driven by INCR.
func NewRedisRepository(redis *RedisDB) MappingRepository {
	return &redisRepository{redis: redis}
}

func (r *redisRepository) Get(ctx context.Context, code string) (*models.URLMapping, error) {
	pipe := r.redis.Client.Pipeline()
	recordCmd := pipe.Get(ctx, r.key(code))
	counterCmd := pipe.Get(ctx, r.counterKey(code))

	if _, err := pipe.Exec(ctx); err != nil && !errors.Is(err, redis.Nil) {
		return nil, storageError("get mapping", err)
	}

	data, err := recordCmd.Bytes()
	if err != nil {
		if errors.Is(err, redis.Nil) {
			return nil, ErrMappingNotFound
		}
		return nil, storageError("get mapping", err)
	}

	var mapping models.URLMapping
	if err := json.Unmarshal(data, &mapping); err != nil {
		return nil, storageError("decode mapping", err)
	}

	count, err := counterCmd.Int64()
	if err != nil && !errors.Is(err, redis.Nil) {
		return nil, storageError("get access count", err)
	}
	mapping.AccessCount = count

	return &mapping, nil
}

func (r *redisRepository) Create(ctx context.Context, mapping *models.URLMapping) error {
	data, err := json.Marshal(mapping)
	if err != nil {
		return storageError("encode mapping", err)
	}

	created, err := r.redis.Client.SetNX(ctx, r.key(mapping.ShortCode), data, 0).Result()
	if err != nil {
		return storageError("create mapping", err)
	}
	if !created {
		return ErrCodeExists
	}

	return nil
}

func (r *redisRepository) IncrementAccessCount(ctx context.Context, code string) error {
	if err := r.redis.Client.Incr(ctx, r.counterKey(code)).Err(); err != nil {
		return storageError("increment access count", err)
	}
	return nil
}

func (r *redisRepository) key(code string) string {
	return "mapping:" + code
}

func (r *redisRepository) counterKey(code string) string {
	return "mapping:" + code + ":access_count"
}
