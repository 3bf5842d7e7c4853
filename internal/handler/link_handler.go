package handler

import (
	"errors"
	"net/http"
	"net/url"

	"github.com/SergeiKhy/shortlink/internal/models"
	"github.com/SergeiKhy/shortlink/internal/service"
	"github.com/gin-gonic/gin"
	"go.uber.org/zap"
)

type LinkHandler struct {
	shortener service.URLShortener
	logger    *zap.Logger
}

func NewLinkHandler(shortener service.URLShortener, logger *zap.Logger) *LinkHandler {
	return &LinkHandler{
		shortener: shortener,
		logger:    logger,
	}
}

type ShortenRequest struct {
	LongURL   string `json:"long_url" binding:"required"`
	ShortCode string `json:"short_code,omitempty"`
	ExpiresIn *int   `json:"expires_in,omitempty"` // минуты
}

type ShortenResponse struct {
	ShortCode string `json:"short_code"`
}

type ErrorResponse struct {
	Error   string `json:"error"`
	Message string `json:"message"`
}

// Shorten создаёт короткую ссылку.
// POST /shorten
func (h *LinkHandler) Shorten(c *gin.Context) {
	var req ShortenRequest
	if err := c.ShouldBindJSON(&req); err != nil {
		h.logger.Warn("Invalid request body", zap.Error(err))
		c.JSON(http.StatusBadRequest, ErrorResponse{
			Error:   "invalid_request",
			Message: "Request body must be JSON with a long_url field.",
		})
		return
	}

	code, err := h.shortener.Shorten(c.Request.Context(), &models.ShortenInput{
		LongURL:    req.LongURL,
		Alias:      req.ShortCode,
		TTLMinutes: req.ExpiresIn,
	})
	if err != nil {
		h.writeError(c, err, zap.String("long_url", req.LongURL), zap.String("alias", req.ShortCode))
		return
	}

	c.JSON(http.StatusCreated, ShortenResponse{ShortCode: code})
}

// Redirect перенаправляет на длинный URL.
// GET /:code
func (h *LinkHandler) Redirect(c *gin.Context) {
	code := c.Param("code")

	longURL, err := h.shortener.Resolve(c.Request.Context(), code)
	if err != nil {
		fields := []zap.Field{zap.String("short_code", code)}
		if errors.Is(err, service.ErrLinkExpired) {
			fields = append(fields, zap.String("long_url", longURL))
		}
		h.writeError(c, err, fields...)
		return
	}

	// Без схемы редирект считался бы относительным путём
	if parsed, err := url.Parse(longURL); err == nil && parsed.Scheme == "" {
		longURL = "https://" + longURL
	}

	c.Redirect(http.StatusFound, longURL)
}

// Ping проверка доступности сервиса.
// GET /ping
func (h *LinkHandler) Ping(c *gin.Context) {
	c.JSON(http.StatusOK, gin.H{"message": "pong"})
}

// writeError отдаёт клиенту сообщение и статус ошибки сервиса
func (h *LinkHandler) writeError(c *gin.Context, err error, fields ...zap.Field) {
	fields = append(fields, zap.Error(err))

	var svcErr *service.Error
	if !errors.As(err, &svcErr) {
		h.logger.Error("Unexpected error", fields...)
		c.JSON(http.StatusInternalServerError, ErrorResponse{
			Error:   "internal_error",
			Message: "Internal server error.",
		})
		return
	}

	if svcErr.Kind == service.KindDatabaseError {
		h.logger.Error("Storage failure", fields...)
	} else {
		h.logger.Info("Request rejected", append(fields, zap.String("kind", svcErr.Kind.String()))...)
	}

	c.JSON(svcErr.Code, ErrorResponse{
		Error:   svcErr.Kind.String(),
		Message: svcErr.Message,
	})
}
