package repository

import (
	"context"
	"errors"

	"github.com/SergeiKhy/shortlink/internal/models"
	"github.com/jackc/pgx/v5"
)

type postgresRepository struct {
	db *PostgresDB
}

// NewPostgresRepository returns a MappingRepository backed by the url_mappings table.
func NewPostgresRepository(db *PostgresDB) MappingRepository {
	return &postgresRepository{db: db}
}

func (r *postgresRepository) Get(ctx context.Context, code string) (*models.URLMapping, error) {
	query := `
		SELECT short_code, long_url, created_at, expires_at, access_count
		FROM url_mappings
		WHERE short_code = $1
	`

	mapping := &models.URLMapping{}
	err := r.db.Pool.QueryRow(ctx, query, code).Scan(
		&mapping.ShortCode,
		&mapping.LongURL,
		&mapping.CreatedAt,
		&mapping.ExpiresAt,
		&mapping.AccessCount,
	)

	if err != nil {
		if errors.Is(err, pgx.ErrNoRows) {
			return nil, ErrMappingNotFound
		}
		return nil, storageError("get mapping", err)
	}

	return mapping, nil
}

func (r *postgresRepository) Create(ctx context.Context, mapping *models.URLMapping) error {
	query := `
		INSERT INTO url_mappings (short_code, long_url, created_at, expires_at, access_count)
		VALUES ($1, $2, $3, $4, $5)
		ON CONFLICT (short_code) DO NOTHING
	`

	tag, err := r.db.Pool.Exec(
		ctx,
		query,
		mapping.ShortCode,
		mapping.LongURL,
		mapping.CreatedAt,
		mapping.ExpiresAt,
		mapping.AccessCount,
	)
	if err != nil {
		return storageError("create mapping", err)
	}

	if tag.RowsAffected() == 0 {
		return ErrCodeExists
	}

	return nil
}

func (r *postgresRepository) IncrementAccessCount(ctx context.Context, code string) error {
	query := `UPDATE url_mappings SET access_count = access_count + 1 WHERE short_code = $1`

	if _, err := r.db.Pool.Exec(ctx, query, code); err != nil {
		return storageError("increment access count", err)
	}

	return nil
}
