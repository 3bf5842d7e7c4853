package repository

import (
	"context"
	"sync"

	"github.com/SergeiKhy/shortlink/internal/models"
)

// MemoryRepository keeps mappings in process memory. Used for local runs
// and tests; contents are lost on restart.
type MemoryRepository struct {
	mu       sync.RWMutex
	mappings map[string]models.URLMapping
}

func NewMemoryRepository() *MemoryRepository {
	return &MemoryRepository{
		mappings: make(map[string]models.URLMapping),
	}
}

func (r *MemoryRepository) Get(ctx context.Context, code string) (*models.URLMapping, error) {
	r.mu.RLock()
	defer r.mu.RUnlock()

	mapping, exists := r.mappings[code]
	if !exists {
		return nil, ErrMappingNotFound
	}
	return &mapping, nil
}

func (r *MemoryRepository) Create(ctx context.Context, mapping *models.URLMapping) error {
	r.mu.Lock()
	defer r.mu.Unlock()

	if _, exists := r.mappings[mapping.ShortCode]; exists {
		return ErrCodeExists
	}
	r.mappings[mapping.ShortCode] = *mapping
	return nil
}

func (r *MemoryRepository) IncrementAccessCount(ctx context.Context, code string) error {
	r.mu.Lock()
	defer r.mu.Unlock()

	if mapping, exists := r.mappings[code]; exists {
		mapping.AccessCount++
		r.mappings[code] = mapping
	}
	return nil
}

// Len returns the number of stored mappings.
func (r *MemoryRepository) Len() int {
	r.mu.RLock()
	defer r.mu.RUnlock()
	return len(r.mappings)
}

var (
	_ MappingRepository = (*MemoryRepository)(nil)
	_ MappingRepository = (*CachedRepository)(nil)
)
