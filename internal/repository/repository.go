package repository

import (
	"context"
	"errors"
	"fmt"

	"github.com/SergeiKhy/shortlink/internal/models"
)

var (
	ErrMappingNotFound = errors.New("mapping not found")
	ErrCodeExists      = errors.New("short code already exists")
	// ErrStorage wraps every backend failure. The backend error is flattened
	// to text so that driver types never reach the caller.
	ErrStorage = errors.New("storage failure")
)

// MappingRepository is the storage contract of the shortener.
type MappingRepository interface {
	// Get returns the mapping stored at code, expired or not.
	// Returns ErrMappingNotFound if there is none. Never touches AccessCount.
	Get(ctx context.Context, code string) (*models.URLMapping, error)
	// Create stores the mapping only if the code is free, else ErrCodeExists.
	Create(ctx context.Context, mapping *models.URLMapping) error
	// IncrementAccessCount atomically adds one to the access counter.
	// A missing code is not an error.
	IncrementAccessCount(ctx context.Context, code string) error
}

func storageError(op string, err error) error {
	return fmt.Errorf("%w: %s: %v", ErrStorage, op, err)
}
