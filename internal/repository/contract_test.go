package repository_test

import (
	"context"
	"strconv"
	"sync"
	"testing"
	"time"

	"github.com/SergeiKhy/shortlink/internal/models"
	"github.com/SergeiKhy/shortlink/internal/repository"
	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
)

// testRepositoryContract checks the behaviour every MappingRepository must share.
// Codes carry a unique prefix so one store can serve several runs.
func testRepositoryContract(t *testing.T, repo repository.MappingRepository) {
	t.Helper()
	prefix := strconv.FormatInt(time.Now().UnixNano(), 36)

	t.Run("get missing", func(t *testing.T) {
		_, err := repo.Get(context.Background(), prefix+"-missing")
		assert.ErrorIs(t, err, repository.ErrMappingNotFound)
	})

	t.Run("create and get", func(t *testing.T) {
		mapping := &models.URLMapping{
			ShortCode: prefix + "-one",
			LongURL:   "https://example.com/one",
			CreatedAt: 1_700_000_000,
			ExpiresAt: 1_700_001_800,
		}
		require.NoError(t, repo.Create(context.Background(), mapping))

		got, err := repo.Get(context.Background(), mapping.ShortCode)
		require.NoError(t, err)
		assert.Equal(t, *mapping, *got)
	})

	t.Run("create existing code", func(t *testing.T) {
		first := &models.URLMapping{ShortCode: prefix + "-dup", LongURL: "https://example.com/first", ExpiresAt: 1}
		second := &models.URLMapping{ShortCode: prefix + "-dup", LongURL: "https://example.com/second", ExpiresAt: 2}

		require.NoError(t, repo.Create(context.Background(), first))
		assert.ErrorIs(t, repo.Create(context.Background(), second), repository.ErrCodeExists)

		got, err := repo.Get(context.Background(), first.ShortCode)
		require.NoError(t, err)
		assert.Equal(t, first.LongURL, got.LongURL)
	})

	t.Run("concurrent increments", func(t *testing.T) {
		code := prefix + "-hits"
		require.NoError(t, repo.Create(context.Background(), &models.URLMapping{
			ShortCode: code,
			LongURL:   "https://example.com/hits",
			ExpiresAt: 1,
		}))

		const hits = 25
		var wg sync.WaitGroup
		for i := 0; i < hits; i++ {
			wg.Add(1)
			go func() {
				defer wg.Done()
				assert.NoError(t, repo.IncrementAccessCount(context.Background(), code))
			}()
		}
		wg.Wait()

		got, err := repo.Get(context.Background(), code)
		require.NoError(t, err)
		assert.Equal(t, int64(hits), got.AccessCount)
	})
}
