package service

import (
	"context"
	"errors"
	"io"
	"time"

	"github.com/SergeiKhy/shortlink/internal/models"
	"github.com/SergeiKhy/shortlink/internal/repository"
	"go.uber.org/zap"
)

// Константы сервиса
const (
	DefaultTTLMinutes = 30
	MaxTTLMinutes     = 525960 // Год в минутах
)

// URLShortener интерфейс сервиса коротких ссылок
type URLShortener interface {
	// Shorten сохраняет длинный URL и возвращает короткий код
	Shorten(ctx context.Context, input *models.ShortenInput) (string, error)
	// Resolve возвращает длинный URL по короткому коду.
	// Для истёкшей ссылки URL возвращается вместе с ErrLinkExpired
	// только для логирования, редиректить на него нельзя.
	Resolve(ctx context.Context, code string) (string, error)
}

// urlShortener не хранит состояния между вызовами, конкурентность
// обеспечивается хранилищем
type urlShortener struct {
	repo      repository.MappingRepository
	generator *CodeGenerator
	logger    *zap.Logger
	now       func() time.Time
	random    io.Reader
}

// Option настраивает сервис
type Option func(*urlShortener)

// WithClock подменяет источник текущего времени
func WithClock(now func() time.Time) Option {
	return func(s *urlShortener) {
		s.now = now
	}
}

// WithSaltSource подменяет источник соли генератора кодов
func WithSaltSource(random io.Reader) Option {
	return func(s *urlShortener) {
		s.random = random
	}
}

// NewURLShortener создаёт новый экземпляр сервиса
func NewURLShortener(repo repository.MappingRepository, logger *zap.Logger, opts ...Option) URLShortener {
	if logger == nil {
		logger = zap.NewNop()
	}

	s := &urlShortener{
		repo:   repo,
		logger: logger,
		now:    time.Now,
	}
	for _, opt := range opts {
		opt(s)
	}
	s.generator = NewCodeGenerator(repo, s.random)

	return s
}

func (s *urlShortener) Shorten(ctx context.Context, input *models.ShortenInput) (string, error) {
	ttl := DefaultTTLMinutes
	if input.TTLMinutes != nil && *input.TTLMinutes != 0 {
		ttl = *input.TTLMinutes
	}
	if ttl > MaxTTLMinutes {
		return "", ErrExpiryTooHigh
	}
	if ttl < 0 {
		return "", ErrInvalidExpiry
	}

	longURL, err := NormalizeLongURL(input.LongURL)
	if err != nil {
		return "", err
	}

	var code string
	if input.Alias != "" {
		code, err = s.reserveAlias(ctx, input.Alias)
	} else {
		code, err = s.generator.Generate(ctx, longURL)
	}
	if err != nil {
		return "", err
	}

	now := s.now().Unix()
	mapping := &models.URLMapping{
		ShortCode:   code,
		LongURL:     longURL,
		CreatedAt:   now,
		ExpiresAt:   now + int64(ttl)*60,
		AccessCount: 0,
	}

	if err := s.repo.Create(ctx, mapping); err != nil {
		if errors.Is(err, repository.ErrCodeExists) {
			// Кто-то занял код между проверкой и записью
			s.logger.Warn("Short code taken concurrently", zap.String("short_code", code))
			return "", ErrShortCodeAlreadyExists
		}
		return "", ErrDatabase.wrap(err)
	}

	s.logger.Info("Short link created",
		zap.String("short_code", code),
		zap.Bool("alias", input.Alias != ""),
		zap.Int64("expires_at", mapping.ExpiresAt),
	)

	return code, nil
}

// reserveAlias проверяет кастомный код и его незанятость
func (s *urlShortener) reserveAlias(ctx context.Context, alias string) (string, error) {
	code, err := SanitizeShortCode(alias)
	if err != nil {
		return "", err
	}

	_, err = s.repo.Get(ctx, code)
	switch {
	case err == nil:
		return "", ErrShortCodeAlreadyExists
	case errors.Is(err, repository.ErrMappingNotFound):
		return code, nil
	default:
		return "", ErrDatabase.wrap(err)
	}
}

func (s *urlShortener) Resolve(ctx context.Context, code string) (string, error) {
	code, err := SanitizeShortCode(code)
	if err != nil {
		return "", err
	}

	mapping, err := s.repo.Get(ctx, code)
	if err != nil {
		if errors.Is(err, repository.ErrMappingNotFound) {
			return "", ErrShortCodeNotFound
		}
		return "", ErrDatabase.wrap(err)
	}

	if mapping.ExpiredAt(s.now().Unix()) {
		return mapping.LongURL, ErrLinkExpired
	}

	if err := s.repo.IncrementAccessCount(ctx, code); err != nil {
		return "", ErrDatabase.wrap(err)
	}

	return mapping.LongURL, nil
}
