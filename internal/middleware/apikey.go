package middleware

import (
	"crypto/subtle"
	"net/http"

	"github.com/gin-gonic/gin"
)

// DefaultAPIKeyHeader заголовок, в котором клиент передаёт API ключ
const DefaultAPIKeyHeader = "X-API-Key"

const apiKeyNameContextKey = "api_key_name"

// APIKeyConfig конфигурация для API key аутентификации
type APIKeyConfig struct {
	// ValidKeys карта валидных API ключей к их именам
	ValidKeys map[string]string
	// HeaderName имя заголовка для API ключа (по умолчанию: X-API-Key)
	HeaderName string
}

// APIKey middleware для аутентификации по API ключу
type APIKey struct {
	config APIKeyConfig
}

// NewAPIKey создаёт новый API key middleware
func NewAPIKey(config APIKeyConfig) *APIKey {
	if config.HeaderName == "" {
		config.HeaderName = DefaultAPIKeyHeader
	}
	return &APIKey{config: config}
}

// Middleware пропускает запрос только с валидным ключом в заголовке
func (ak *APIKey) Middleware() gin.HandlerFunc {
	return func(c *gin.Context) {
		apiKey := c.GetHeader(ak.config.HeaderName)
		if apiKey == "" {
			c.AbortWithStatusJSON(http.StatusUnauthorized, gin.H{
				"error":   "missing_api_key",
				"message": "API key is required in the " + ak.config.HeaderName + " header.",
			})
			return
		}

		name, ok := ak.lookup(apiKey)
		if !ok {
			c.AbortWithStatusJSON(http.StatusUnauthorized, gin.H{
				"error":   "invalid_api_key",
				"message": "Invalid API key.",
			})
			return
		}

		c.Set(apiKeyNameContextKey, name)
		c.Next()
	}
}

// lookup сравнивает ключ со всеми валидными за постоянное время
func (ak *APIKey) lookup(apiKey string) (string, bool) {
	var (
		found bool
		name  string
	)
	for validKey, keyName := range ak.config.ValidKeys {
		if subtle.ConstantTimeCompare([]byte(apiKey), []byte(validKey)) == 1 {
			found = true
			name = keyName
		}
	}
	return name, found
}

// RequireAPIKey хелпер для создания middleware с заголовком по умолчанию
func RequireAPIKey(validKeys map[string]string) gin.HandlerFunc {
	return NewAPIKey(APIKeyConfig{ValidKeys: validKeys}).Middleware()
}

// APIKeyName возвращает ключ для rate limiter: имя API ключа,
// если запрос прошёл аутентификацию
func APIKeyName(c *gin.Context) string {
	name, exists := c.Get(apiKeyNameContextKey)
	if !exists {
		return ""
	}
	return "api_key:" + name.(string)
}
