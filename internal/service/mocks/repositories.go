package mocks

import (
	"context"
	"sync"

	"github.com/SergeiKhy/shortlink/internal/models"
	"github.com/SergeiKhy/shortlink/internal/repository"
)

// MockMappingRepository implements repository.MappingRepository for testing.
// Taken marks codes as occupied without storing them; the Err fields inject
// storage failures.
type MockMappingRepository struct {
	mu         sync.RWMutex
	mappings   map[string]*models.URLMapping
	getCalls   []string
	increments map[string]int

	Taken        func(code string) bool
	GetErr       error
	CreateErr    error
	IncrementErr error
}

func NewMockMappingRepository() *MockMappingRepository {
	return &MockMappingRepository{
		mappings:   make(map[string]*models.URLMapping),
		increments: make(map[string]int),
	}
}

func (m *MockMappingRepository) Get(ctx context.Context, code string) (*models.URLMapping, error) {
	m.mu.Lock()
	defer m.mu.Unlock()

	m.getCalls = append(m.getCalls, code)
	if m.GetErr != nil {
		return nil, m.GetErr
	}
	if m.Taken != nil && m.Taken(code) {
		return &models.URLMapping{ShortCode: code, LongURL: "https://taken.example"}, nil
	}

	mapping, exists := m.mappings[code]
	if !exists {
		return nil, repository.ErrMappingNotFound
	}
	copied := *mapping
	return &copied, nil
}

func (m *MockMappingRepository) Create(ctx context.Context, mapping *models.URLMapping) error {
	m.mu.Lock()
	defer m.mu.Unlock()

	if m.CreateErr != nil {
		return m.CreateErr
	}
	if _, exists := m.mappings[mapping.ShortCode]; exists {
		return repository.ErrCodeExists
	}

	copied := *mapping
	m.mappings[mapping.ShortCode] = &copied
	return nil
}

func (m *MockMappingRepository) IncrementAccessCount(ctx context.Context, code string) error {
	m.mu.Lock()
	defer m.mu.Unlock()

	if m.IncrementErr != nil {
		return m.IncrementErr
	}
	m.increments[code]++
	if mapping, exists := m.mappings[code]; exists {
		mapping.AccessCount++
	}
	return nil
}

// Put stores a mapping directly, bypassing the create-if-absent check.
func (m *MockMappingRepository) Put(mapping *models.URLMapping) {
	m.mu.Lock()
	defer m.mu.Unlock()
	copied := *mapping
	m.mappings[mapping.ShortCode] = &copied
}

// Mapping returns the stored mapping or nil.
func (m *MockMappingRepository) Mapping(code string) *models.URLMapping {
	m.mu.RLock()
	defer m.mu.RUnlock()
	mapping, exists := m.mappings[code]
	if !exists {
		return nil
	}
	copied := *mapping
	return &copied
}

// GetCalls returns the codes passed to Get, in order.
func (m *MockMappingRepository) GetCalls() []string {
	m.mu.RLock()
	defer m.mu.RUnlock()
	return append([]string(nil), m.getCalls...)
}

// Increments returns how many times the counter of code was incremented.
func (m *MockMappingRepository) Increments(code string) int {
	m.mu.RLock()
	defer m.mu.RUnlock()
	return m.increments[code]
}

func (m *MockMappingRepository) Reset() {
	m.mu.Lock()
	defer m.mu.Unlock()
	m.mappings = make(map[string]*models.URLMapping)
	m.increments = make(map[string]int)
	m.getCalls = nil
}

var _ repository.MappingRepository = (*MockMappingRepository)(nil)
