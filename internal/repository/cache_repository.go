package repository

import (
	"context"
	"encoding/json"
	"errors"
	"time"

	"github.com/SergeiKhy/shortlink/internal/models"
	"github.com/redis/go-redis/v9"
	"go.uber.org/zap"
)

// CachedRepository is a cache-aside layer over another MappingRepository.
// Mappings are immutable apart from AccessCount, so cached entries never go
// stale except for the counter, which is only advisory.
type CachedRepository struct {
	next   MappingRepository
	redis  *RedisDB
	ttl    time.Duration
	logger *zap.Logger
}

func NewCachedRepository(next MappingRepository, redis *RedisDB, ttl time.Duration, logger *zap.Logger) *CachedRepository {
	if logger == nil {
		logger = zap.NewNop()
	}
	return &CachedRepository{
		next:   next,
		redis:  redis,
		ttl:    ttl,
		logger: logger,
	}
}

func (r *CachedRepository) Get(ctx context.Context, code string) (*models.URLMapping, error) {
	if mapping, err := r.getCached(ctx, code); err == nil {
		return mapping, nil
	} else if !errors.Is(err, redis.Nil) {
		// Кэш недоступен, идём в основное хранилище
		r.logger.Warn("Cache read failed", zap.String("short_code", code), zap.Error(err))
	}

	mapping, err := r.next.Get(ctx, code)
	if err != nil {
		return nil, err
	}

	r.setCached(ctx, mapping)
	return mapping, nil
}

func (r *CachedRepository) Create(ctx context.Context, mapping *models.URLMapping) error {
	if err := r.next.Create(ctx, mapping); err != nil {
		return err
	}

	r.setCached(ctx, mapping)
	return nil
}

func (r *CachedRepository) IncrementAccessCount(ctx context.Context, code string) error {
	return r.next.IncrementAccessCount(ctx, code)
}

func (r *CachedRepository) getCached(ctx context.Context, code string) (*models.URLMapping, error) {
	data, err := r.redis.Client.Get(ctx, r.key(code)).Bytes()
	if err != nil {
		return nil, err
	}

	var mapping models.URLMapping
	if err := json.Unmarshal(data, &mapping); err != nil {
		return nil, err
	}

	return &mapping, nil
}

func (r *CachedRepository) setCached(ctx context.Context, mapping *models.URLMapping) {
	data, err := json.Marshal(mapping)
	if err != nil {
		return
	}

	if err := r.redis.Client.Set(ctx, r.key(mapping.ShortCode), data, r.ttl).Err(); err != nil {
		r.logger.Warn("Cache write failed", zap.String("short_code", mapping.ShortCode), zap.Error(err))
	}
}

func (r *CachedRepository) key(code string) string {
	return "cache:mapping:" + code
}
