package config

import (
	"errors"
	"fmt"
	"io/fs"
	"strings"
	"time"

	"github.com/spf13/viper"
)

// ErrInvalidConfig is returned when a required setting is missing or malformed.
var ErrInvalidConfig = errors.New("configuration error")

// Storage backends
const (
	BackendMemory   = "memory"
	BackendPostgres = "postgres"
	BackendRedis    = "redis"
	BackendDynamoDB = "dynamodb"
)

const EnvProd = "prod"

type Config struct {
	App       AppConfig
	Log       LogConfig
	Storage   StorageConfig
	DB        DBConfig
	Redis     RedisConfig
	Cache     CacheConfig
	DynamoDB  DynamoDBConfig
	Auth      AuthConfig
	RateLimit RateLimitConfig
	CORS      CORSConfig
}

type AppConfig struct {
	Port string
	Env  string
}

type LogConfig struct {
	Level string
	Path  string
}

type StorageConfig struct {
	Backend string
}

type DBConfig struct {
	Host     string
	Port     string
	User     string
	Password string
	Name     string
	Migrate  bool
}

func (c DBConfig) DSN() string {
	return fmt.Sprintf(
		"postgres://%s:%s@%s:%s/%s?sslmode=disable",
		c.User,
		c.Password,
		c.Host,
		c.Port,
		c.Name,
	)
}

type RedisConfig struct {
	Host     string
	Port     string
	Password string
}

type CacheConfig struct {
	Enabled bool
	TTL     time.Duration
}

type DynamoDBConfig struct {
	Table       string
	Region      string
	Endpoint    string
	AccessKey   string
	SecretKey   string
	CreateTable bool
}

type AuthConfig struct {
	APIKeys map[string]string // API key -> name/description
}

type RateLimitConfig struct {
	RequestsPerSecond float64
	BurstSize         int
}

type CORSConfig struct {
	AllowOrigins []string
}

// Load reads the optional dotenv file at path and the process environment.
// Environment variables take precedence over the file.
func Load(path string) (*Config, error) {
	v := viper.New()
	v.SetConfigFile(path)
	v.SetConfigType("env")
	v.AutomaticEnv()
	setDefaults(v)

	if err := v.ReadInConfig(); err != nil {
		var notFound viper.ConfigFileNotFoundError
		if !errors.As(err, &notFound) && !errors.Is(err, fs.ErrNotExist) {
			return nil, fmt.Errorf("failed to read config file: %w", err)
		}
	}

	var cfg Config
	cfg.App.Port = v.GetString("APP_PORT")
	cfg.App.Env = v.GetString("APP_ENV")
	cfg.Log.Level = v.GetString("LOG_LEVEL")
	cfg.Log.Path = v.GetString("LOG_PATH")
	cfg.Storage.Backend = strings.ToLower(strings.TrimSpace(v.GetString("STORAGE_BACKEND")))

	cfg.DB.Host = v.GetString("DB_HOST")
	cfg.DB.Port = v.GetString("DB_PORT")
	cfg.DB.User = v.GetString("DB_USER")
	cfg.DB.Password = v.GetString("DB_PASSWORD")
	cfg.DB.Name = v.GetString("DB_NAME")
	cfg.DB.Migrate = v.GetBool("DB_MIGRATE")

	cfg.Redis.Host = v.GetString("REDIS_HOST")
	cfg.Redis.Port = v.GetString("REDIS_PORT")
	cfg.Redis.Password = v.GetString("REDIS_PASSWORD")

	cfg.Cache.Enabled = v.GetBool("CACHE_ENABLED")
	cfg.Cache.TTL = v.GetDuration("CACHE_TTL")

	cfg.DynamoDB.Table = v.GetString("DYNAMODB_TABLE")
	cfg.DynamoDB.Region = v.GetString("DYNAMODB_REGION")
	cfg.DynamoDB.Endpoint = v.GetString("DYNAMODB_ENDPOINT")
	cfg.DynamoDB.AccessKey = v.GetString("DYNAMODB_ACCESS_KEY")
	cfg.DynamoDB.SecretKey = v.GetString("DYNAMODB_SECRET_KEY")
	cfg.DynamoDB.CreateTable = v.GetBool("DYNAMODB_CREATE_TABLE")

	// Format: key1:name1,key2:name2 or just key1,key2
	cfg.Auth.APIKeys = parseAPIKeys(v.GetString("API_KEYS"))

	cfg.RateLimit.RequestsPerSecond = v.GetFloat64("RATE_LIMIT_RPS")
	cfg.RateLimit.BurstSize = v.GetInt("RATE_LIMIT_BURST")

	cfg.CORS.AllowOrigins = splitList(v.GetString("CORS_ORIGINS"))

	if err := cfg.Validate(); err != nil {
		return nil, err
	}

	return &cfg, nil
}

func setDefaults(v *viper.Viper) {
	v.SetDefault("APP_PORT", "8080")
	v.SetDefault("APP_ENV", "dev")
	v.SetDefault("LOG_LEVEL", "info")
	v.SetDefault("STORAGE_BACKEND", BackendMemory)
	v.SetDefault("DB_PORT", "5432")
	v.SetDefault("DB_MIGRATE", true)
	v.SetDefault("REDIS_PORT", "6379")
	v.SetDefault("CACHE_TTL", 10*time.Minute)
	v.SetDefault("RATE_LIMIT_RPS", 10)
	v.SetDefault("RATE_LIMIT_BURST", 20)
	v.SetDefault("CORS_ORIGINS", "*")
}

// Validate checks the settings required by the selected backend.
func (c *Config) Validate() error {
	var errs []error
	require := func(value, key string) {
		if strings.TrimSpace(value) == "" {
			errs = append(errs, fmt.Errorf("%w: %s is required", ErrInvalidConfig, key))
		}
	}

	require(c.App.Port, "APP_PORT")

	switch c.Storage.Backend {
	case BackendMemory:
	case BackendPostgres:
		require(c.DB.Host, "DB_HOST")
		require(c.DB.User, "DB_USER")
		require(c.DB.Name, "DB_NAME")
	case BackendRedis:
		require(c.Redis.Host, "REDIS_HOST")
	case BackendDynamoDB:
		require(c.DynamoDB.Table, "DYNAMODB_TABLE")
		require(c.DynamoDB.Region, "DYNAMODB_REGION")
		if c.App.Env == EnvProd {
			require(c.DynamoDB.AccessKey, "DYNAMODB_ACCESS_KEY")
			require(c.DynamoDB.SecretKey, "DYNAMODB_SECRET_KEY")
		} else {
			require(c.DynamoDB.Endpoint, "DYNAMODB_ENDPOINT")
		}
	default:
		errs = append(errs, fmt.Errorf("%w: unknown STORAGE_BACKEND %q", ErrInvalidConfig, c.Storage.Backend))
	}

	if c.Cache.Enabled {
		require(c.Redis.Host, "REDIS_HOST")
		if c.Cache.TTL <= 0 {
			errs = append(errs, fmt.Errorf("%w: CACHE_TTL must be positive", ErrInvalidConfig))
		}
	}

	if c.RateLimit.RequestsPerSecond <= 0 {
		errs = append(errs, fmt.Errorf("%w: RATE_LIMIT_RPS must be positive", ErrInvalidConfig))
	}
	if c.RateLimit.BurstSize <= 0 {
		errs = append(errs, fmt.Errorf("%w: RATE_LIMIT_BURST must be positive", ErrInvalidConfig))
	}

	return errors.Join(errs...)
}

// parseAPIKeys parses comma-separated API keys in format "key1:name1,key2:name2".
// A key without a name is named after its position.
func parseAPIKeys(raw string) map[string]string {
	keys := make(map[string]string)
	for i, pair := range splitList(raw) {
		parts := strings.SplitN(pair, ":", 2)
		key := strings.TrimSpace(parts[0])
		if key == "" {
			continue
		}
		name := fmt.Sprintf("key-%d", i+1)
		if len(parts) == 2 && strings.TrimSpace(parts[1]) != "" {
			name = strings.TrimSpace(parts[1])
		}
		keys[key] = name
	}

	return keys
}

func splitList(raw string) []string {
	var out []string
	for _, item := range strings.Split(raw, ",") {
		if item = strings.TrimSpace(item); item != "" {
			out = append(out, item)
		}
	}
	return out
}
