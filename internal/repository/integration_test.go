package repository_test

import (
	"bytes"
	"context"
	"encoding/json"
	"fmt"
	"net/http"
	"net/http/httptest"
	"sync/atomic"
	"testing"
	"time"

	"github.com/SergeiKhy/shortlink/internal/config"
	"github.com/SergeiKhy/shortlink/internal/handler"
	"github.com/SergeiKhy/shortlink/internal/middleware"
	"github.com/SergeiKhy/shortlink/internal/models"
	"github.com/SergeiKhy/shortlink/internal/repository"
	"github.com/SergeiKhy/shortlink/internal/service"
	"github.com/gin-gonic/gin"
	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
	"github.com/testcontainers/testcontainers-go"
	"github.com/testcontainers/testcontainers-go/modules/postgres"
	"github.com/testcontainers/testcontainers-go/modules/redis"
	"github.com/testcontainers/testcontainers-go/wait"
	"go.uber.org/zap"
)

// setupPostgres запускает контейнер PostgreSQL и применяет миграции
func setupPostgres(t *testing.T) *repository.PostgresDB {
	t.Helper()
	ctx := context.Background()

	container, err := postgres.Run(ctx,
		"postgres:15-alpine",
		postgres.WithDatabase("shortener"),
		postgres.WithUsername("user"),
		postgres.WithPassword("password"),
		testcontainers.WithWaitStrategy(
			wait.ForLog("database system is ready to accept connections").
				WithOccurrence(2).
				WithStartupTimeout(30*time.Second),
		),
	)
	require.NoError(t, err)
	t.Cleanup(func() { _ = container.Terminate(context.Background()) })

	host, err := container.Host(ctx)
	require.NoError(t, err)
	port, err := container.MappedPort(ctx, "5432")
	require.NoError(t, err)

	cfg := config.DBConfig{
		Host:     host,
		Port:     port.Port(),
		User:     "user",
		Password: "password",
		Name:     "shortener",
	}

	require.NoError(t, repository.RunMigrations(cfg.DSN()))
	// Повторный запуск не должен падать
	require.NoError(t, repository.RunMigrations(cfg.DSN()))

	db, err := repository.NewPostgresDB(cfg)
	require.NoError(t, err)
	t.Cleanup(db.Close)

	return db
}

// setupRedis запускает контейнер Redis
func setupRedis(t *testing.T) *repository.RedisDB {
	t.Helper()
	ctx := context.Background()

	container, err := redis.Run(ctx, "redis:7-alpine")
	require.NoError(t, err)
	t.Cleanup(func() { _ = container.Terminate(context.Background()) })

	host, err := container.Host(ctx)
	require.NoError(t, err)
	port, err := container.MappedPort(ctx, "6379")
	require.NoError(t, err)

	client, err := repository.NewRedisClient(config.RedisConfig{
		Host: host,
		Port: port.Port(),
	})
	require.NoError(t, err)
	t.Cleanup(func() { _ = client.Close() })

	return client
}

// setupDynamoDB запускает DynamoDB Local и создаёт таблицу
func setupDynamoDB(t *testing.T) repository.MappingRepository {
	t.Helper()
	ctx := context.Background()

	container, err := testcontainers.GenericContainer(ctx, testcontainers.GenericContainerRequest{
		ContainerRequest: testcontainers.ContainerRequest{
			Image:        "amazon/dynamodb-local:2.5.2",
			ExposedPorts: []string{"8000/tcp"},
			WaitingFor:   wait.ForListeningPort("8000/tcp").WithStartupTimeout(60 * time.Second),
		},
		Started: true,
	})
	require.NoError(t, err)
	t.Cleanup(func() { _ = container.Terminate(context.Background()) })

	endpoint, err := container.PortEndpoint(ctx, "8000/tcp", "http")
	require.NoError(t, err)

	cfg := config.DynamoDBConfig{
		Table:     "url_mappings",
		Region:    "us-east-1",
		Endpoint:  endpoint,
		AccessKey: "local",
		SecretKey: "local",
	}
	client, err := repository.NewDynamoDBClient(ctx, cfg)
	require.NoError(t, err)

	require.NoError(t, repository.EnsureDynamoDBTable(ctx, client, cfg.Table))
	// Таблица уже существует
	require.NoError(t, repository.EnsureDynamoDBTable(ctx, client, cfg.Table))

	return repository.NewDynamoDBRepository(client, cfg.Table)
}

func TestIntegration_PostgresRepository(t *testing.T) {
	if testing.Short() {
		t.Skip("Пропускаем интеграционный тест в коротком режиме")
	}

	db := setupPostgres(t)
	repo := repository.NewPostgresRepository(db)

	testRepositoryContract(t, repo)

	// Инкремент несуществующего кода ничего не создаёт
	require.NoError(t, repo.IncrementAccessCount(context.Background(), "ghost"))
	_, err := repo.Get(context.Background(), "ghost")
	assert.ErrorIs(t, err, repository.ErrMappingNotFound)
}

func TestIntegration_PostgresRepository_StorageError(t *testing.T) {
	if testing.Short() {
		t.Skip("Пропускаем интеграционный тест в коротком режиме")
	}

	db := setupPostgres(t)
	repo := repository.NewPostgresRepository(db)
	db.Close()

	_, err := repo.Get(context.Background(), "abcde")
	assert.ErrorIs(t, err, repository.ErrStorage)
}

func TestIntegration_RedisRepository(t *testing.T) {
	if testing.Short() {
		t.Skip("Пропускаем интеграционный тест в коротком режиме")
	}

	testRepositoryContract(t, repository.NewRedisRepository(setupRedis(t)))
}

func TestIntegration_DynamoDBRepository(t *testing.T) {
	if testing.Short() {
		t.Skip("Пропускаем интеграционный тест в коротком режиме")
	}

	testRepositoryContract(t, setupDynamoDB(t))
}

// countingRepository считает обращения к основному хранилищу
type countingRepository struct {
	repository.MappingRepository
	gets atomic.Int64
}

func (r *countingRepository) Get(ctx context.Context, code string) (*models.URLMapping, error) {
	r.gets.Add(1)
	return r.MappingRepository.Get(ctx, code)
}

func TestIntegration_CachedRepository(t *testing.T) {
	if testing.Short() {
		t.Skip("Пропускаем интеграционный тест в коротком режиме")
	}

	redisDB := setupRedis(t)
	next := &countingRepository{MappingRepository: repository.NewMemoryRepository()}
	repo := repository.NewCachedRepository(next, redisDB, time.Minute, zap.NewNop())
	ctx := context.Background()

	mapping := &models.URLMapping{
		ShortCode: "cached",
		LongURL:   "https://example.com/cached",
		CreatedAt: 100,
		ExpiresAt: 200,
	}
	require.NoError(t, repo.Create(ctx, mapping))

	// Create прогревает кэш, основное хранилище не читается
	got, err := repo.Get(ctx, "cached")
	require.NoError(t, err)
	assert.Equal(t, mapping.LongURL, got.LongURL)
	assert.Zero(t, next.gets.Load())

	// Промах кэша читает основное хранилище один раз
	require.NoError(t, next.MappingRepository.Create(ctx, &models.URLMapping{
		ShortCode: "direct",
		LongURL:   "https://example.com/direct",
		ExpiresAt: 200,
	}))
	for i := 0; i < 3; i++ {
		_, err = repo.Get(ctx, "direct")
		require.NoError(t, err)
	}
	assert.Equal(t, int64(1), next.gets.Load())

	// Отсутствие кода не кэшируется
	_, err = repo.Get(ctx, "missing")
	assert.ErrorIs(t, err, repository.ErrMappingNotFound)

	assert.ErrorIs(t, repo.Create(ctx, mapping), repository.ErrCodeExists)

	// Счётчик ведёт основное хранилище
	require.NoError(t, repo.IncrementAccessCount(ctx, "cached"))
	stored, err := next.MappingRepository.Get(ctx, "cached")
	require.NoError(t, err)
	assert.Equal(t, int64(1), stored.AccessCount)
}

func TestIntegration_CachedRepository_RedisDown(t *testing.T) {
	if testing.Short() {
		t.Skip("Пропускаем интеграционный тест в коротком режиме")
	}

	redisDB := setupRedis(t)
	next := repository.NewMemoryRepository()
	repo := repository.NewCachedRepository(next, redisDB, time.Minute, zap.NewNop())
	require.NoError(t, redisDB.Close())

	// Недоступный кэш не ломает чтение и запись
	mapping := &models.URLMapping{ShortCode: "nocache", LongURL: "https://example.com", ExpiresAt: 1}
	require.NoError(t, repo.Create(context.Background(), mapping))

	got, err := repo.Get(context.Background(), "nocache")
	require.NoError(t, err)
	assert.Equal(t, mapping.LongURL, got.LongURL)
}

// TestIntegration_API прогоняет HTTP сценарий на PostgreSQL с кэшем в Redis
func TestIntegration_API(t *testing.T) {
	if testing.Short() {
		t.Skip("Пропускаем интеграционный тест в коротком режиме")
	}
	gin.SetMode(gin.TestMode)

	db := setupPostgres(t)
	redisDB := setupRedis(t)

	repo := repository.NewCachedRepository(repository.NewPostgresRepository(db), redisDB, time.Minute, zap.NewNop())
	shortener := service.NewURLShortener(repo, zap.NewNop())

	rateLimiter := middleware.NewRateLimiter(middleware.RateLimiterConfig{
		RequestsPerSecond: 100, // Высокий лимит для тестов
		BurstSize:         200,
		CleanupInterval:   time.Minute,
	})
	t.Cleanup(rateLimiter.Stop)

	router := handler.NewRouter(shortener, rateLimiter,
		middleware.RequireAPIKey(map[string]string{"it-key": "integration"}), nil, zap.NewNop())

	shorten := func(body string) *httptest.ResponseRecorder {
		w := httptest.NewRecorder()
		req, _ := http.NewRequest(http.MethodPost, "/shorten", bytes.NewBufferString(body))
		req.Header.Set("Content-Type", "application/json")
		req.Header.Set("X-API-Key", "it-key")
		router.ServeHTTP(w, req)
		return w
	}

	w := shorten(`{"long_url":"https://example.com/integration-test"}`)
	require.Equal(t, http.StatusCreated, w.Code)

	var resp handler.ShortenResponse
	require.NoError(t, json.Unmarshal(w.Body.Bytes(), &resp))

	for i := 0; i < 5; i++ {
		w := httptest.NewRecorder()
		req, _ := http.NewRequest(http.MethodGet, "/"+resp.ShortCode, nil)
		req.Header.Set("X-Forwarded-For", fmt.Sprintf("192.168.1.%d", i))
		router.ServeHTTP(w, req)

		assert.Equal(t, http.StatusFound, w.Code)
		assert.Equal(t, "https://example.com/integration-test", w.Header().Get("Location"))
	}

	// Счётчик в PostgreSQL, в обход кэша
	stored, err := repository.NewPostgresRepository(db).Get(context.Background(), resp.ShortCode)
	require.NoError(t, err)
	assert.Equal(t, int64(5), stored.AccessCount)

	w = shorten(`{"long_url":"https://example.com","short_code":"taken"}`)
	require.Equal(t, http.StatusCreated, w.Code)
	w = shorten(`{"long_url":"https://example.com","short_code":"taken"}`)
	assert.Equal(t, http.StatusBadRequest, w.Code)

	w = httptest.NewRecorder()
	req, _ := http.NewRequest(http.MethodGet, "/nonexistent", nil)
	router.ServeHTTP(w, req)
	assert.Equal(t, http.StatusNotFound, w.Code)
}
