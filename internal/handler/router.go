package handler

import (
	"github.com/SergeiKhy/shortlink/internal/middleware"
	"github.com/SergeiKhy/shortlink/internal/service"
	"github.com/gin-gonic/gin"
	"go.uber.org/zap"
)

func NewRouter(
	shortener service.URLShortener,
	rateLimiter *middleware.RateLimiter,
	apiKeyMiddleware gin.HandlerFunc,
	corsOrigins []string,
	logger *zap.Logger,
) *gin.Engine {
	if logger == nil {
		logger = zap.NewNop()
	}

	router := gin.New()
	router.Use(gin.Recovery())
	router.Use(middleware.RequestLogger(logger))
	router.Use(middleware.CORS(corsOrigins))

	linkHandler := NewLinkHandler(shortener, logger)

	router.GET("/ping", linkHandler.Ping)

	// Создание ссылок: API key и лимит на ключ
	shorten := router.Group("/")
	if apiKeyMiddleware != nil {
		shorten.Use(apiKeyMiddleware)
	}
	if rateLimiter != nil {
		shorten.Use(rateLimiter.MiddlewareWithKey(middleware.APIKeyName))
	}
	shorten.POST("/shorten", linkHandler.Shorten)

	// Редирект: без API key, лимит по IP
	redirect := router.Group("/")
	if rateLimiter != nil {
		redirect.Use(rateLimiter.Middleware())
	}
	redirect.GET("/:code", linkHandler.Redirect)

	return router
}
