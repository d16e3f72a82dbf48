package config

import (
	"errors"
	"fmt"
	"io/fs"
	"strings"
	"time"

	"github.com/joho/godotenv"
	"github.com/spf13/viper"
)

// Config holds all configuration for the application
type Config struct {
	Server         ServerConfig
	Backend        BackendConfig
	Recommendation RecommendationConfig
	Geolocation    GeolocationConfig
	Cache          CacheConfig
	Database       DatabaseConfig
	RateLimit      RateLimitConfig
	Comparison     ComparisonConfig
	Log            LogConfig
}

// ServerConfig holds server-related configuration
type ServerConfig struct {
	Port            string        `mapstructure:"port"`
	Environment     string        `mapstructure:"environment"`
	AllowedOrigins  []string      `mapstructure:"allowed_origins"`
	ReadTimeout     time.Duration `mapstructure:"read_timeout"`
	WriteTimeout    time.Duration `mapstructure:"write_timeout"`
	ShutdownTimeout time.Duration `mapstructure:"shutdown_timeout"`
}

// BackendConfig points storefront-side clients at the recommendation and tracking backend
type BackendConfig struct {
	BaseURL string        `mapstructure:"base_url"`
	Timeout time.Duration `mapstructure:"timeout"`
}

// RecommendationConfig holds the Gemini recommender configuration
type RecommendationConfig struct {
	GeminiAPIKey  string        `mapstructure:"gemini_api_key"`
	Model         string        `mapstructure:"model"`
	Temperature   float32       `mapstructure:"temperature"`
	Timeout       time.Duration `mapstructure:"timeout"`
	MaxProducts   int           `mapstructure:"max_products"`
	MinConfidence float64       `mapstructure:"min_confidence"`
}

// GeolocationConfig holds ipapi.co configuration
type GeolocationConfig struct {
	Provider string        `mapstructure:"provider"` // "ipapi" or "mock"
	BaseURL  string        `mapstructure:"base_url"`
	Timeout  time.Duration `mapstructure:"timeout"`
	CacheTTL time.Duration `mapstructure:"cache_ttl"`
}

// CacheConfig holds cache-related configuration
type CacheConfig struct {
	Type     string        `mapstructure:"type"` // "memory" or "redis"
	RedisURL string        `mapstructure:"redis_url"`
	Prefix   string        `mapstructure:"prefix"`
	PoolSize int           `mapstructure:"pool_size"`
	TTL      time.Duration `mapstructure:"ttl"`
}

// DatabaseConfig holds the comparison event store configuration
type DatabaseConfig struct {
	Driver string `mapstructure:"driver"` // "sqlite" or "postgres"
	DSN    string `mapstructure:"dsn"`
}

// RateLimitConfig holds rate limiting configuration
type RateLimitConfig struct {
	PerIP       int `mapstructure:"per_ip"` // requests per minute
	Burst       int `mapstructure:"burst"`
	Recommender int `mapstructure:"recommender"` // outbound requests per minute
}

// ComparisonConfig holds comparison engine settings
type ComparisonConfig struct {
	Mode             string        `mapstructure:"mode"` // "two_column" or "multi_column"
	TrackingDebounce time.Duration `mapstructure:"tracking_debounce"`
	PolicyPath       string        `mapstructure:"policy_path"`
	RegionsPath      string        `mapstructure:"regions_path"`
	AlwaysMaximum    bool          `mapstructure:"always_maximum"`
	SessionCookie    string        `mapstructure:"session_cookie"`
}

// LogConfig holds logger configuration
type LogConfig struct {
	Level  string `mapstructure:"level"`
	Format string `mapstructure:"format"` // "json" or "console"
}

// Load loads configuration from environment variables and config files
func Load() (*Config, error) {
	if err := loadEnvFile(); err != nil {
		return nil, fmt.Errorf("error loading .env file: %w", err)
	}

	v := viper.New()

	// Set config name and paths
	v.SetConfigName("config")
	v.SetConfigType("yaml")
	v.AddConfigPath(".")
	v.AddConfigPath("./config")
	v.AddConfigPath("/etc/prodcompare/")

	// Environment variable settings: server.port -> PRODCOMPARE_SERVER_PORT
	v.SetEnvPrefix("PRODCOMPARE")
	v.SetEnvKeyReplacer(strings.NewReplacer(".", "_"))
	v.AutomaticEnv()

	// Set default values
	setDefaults(v)

	// Read config file (optional - will use env vars if file doesn't exist)
	if err := v.ReadInConfig(); err != nil {
		if _, ok := err.(viper.ConfigFileNotFoundError); !ok {
			return nil, fmt.Errorf("error reading config file: %w", err)
		}
		// Config file not found; using environment variables and defaults
	}

	var config Config
	if err := v.Unmarshal(&config); err != nil {
		return nil, fmt.Errorf("unable to decode config: %w", err)
	}

	// Validate configuration
	if err := validate(&config); err != nil {
		return nil, fmt.Errorf("invalid configuration: %w", err)
	}

	return &config, nil
}

// loadEnvFile loads ./.env when present. Variables already set in the
// environment win.
func loadEnvFile() error {
	err := godotenv.Load()
	if err == nil || errors.Is(err, fs.ErrNotExist) {
		return nil
	}
	return err
}

// setDefaults sets default configuration values. Every key needs a default
// so that AutomaticEnv can see it during Unmarshal.
func setDefaults(v *viper.Viper) {
	// Server defaults
	v.SetDefault("server.port", "8080")
	v.SetDefault("server.environment", "development")
	v.SetDefault("server.allowed_origins", []string{"https://*.myshopify.com", "http://localhost:*"})
	v.SetDefault("server.read_timeout", "15s")
	v.SetDefault("server.write_timeout", "60s")
	v.SetDefault("server.shutdown_timeout", "10s")

	// Backend defaults
	v.SetDefault("backend.base_url", "http://localhost:8080")
	v.SetDefault("backend.timeout", "30s")

	// Recommendation defaults
	v.SetDefault("recommendation.gemini_api_key", "")
	v.SetDefault("recommendation.model", "gemini-2.5-flash")
	v.SetDefault("recommendation.temperature", 0.2)
	v.SetDefault("recommendation.timeout", "30s")
	v.SetDefault("recommendation.max_products", 50)
	v.SetDefault("recommendation.min_confidence", 60)

	// Geolocation defaults
	v.SetDefault("geolocation.provider", "ipapi")
	v.SetDefault("geolocation.base_url", "https://ipapi.co")
	v.SetDefault("geolocation.timeout", "5s")
	v.SetDefault("geolocation.cache_ttl", "6h")

	// Cache defaults
	v.SetDefault("cache.type", "memory")
	v.SetDefault("cache.redis_url", "")
	v.SetDefault("cache.prefix", "prodcompare:")
	v.SetDefault("cache.pool_size", 10)
	v.SetDefault("cache.ttl", "24h")

	// Database defaults
	v.SetDefault("database.driver", "sqlite")
	v.SetDefault("database.dsn", "file:prodcompare.db?_pragma=busy_timeout(5000)")

	// Rate limit defaults
	v.SetDefault("ratelimit.per_ip", 100)
	v.SetDefault("ratelimit.burst", 20)
	v.SetDefault("ratelimit.recommender", 120)

	// Comparison defaults
	v.SetDefault("comparison.mode", "multi_column")
	v.SetDefault("comparison.tracking_debounce", "300ms")
	v.SetDefault("comparison.policy_path", "")
	v.SetDefault("comparison.regions_path", "")
	v.SetDefault("comparison.always_maximum", false)
	v.SetDefault("comparison.session_cookie", "_shopify_s")

	// Log defaults
	v.SetDefault("log.level", "info")
	v.SetDefault("log.format", "json")
}

// validate validates the configuration
func validate(config *Config) error {
	if config.Cache.Type != "memory" && config.Cache.Type != "redis" {
		return fmt.Errorf("cache type must be 'memory' or 'redis', got: %s", config.Cache.Type)
	}

	if config.Cache.Type == "redis" && config.Cache.RedisURL == "" {
		return fmt.Errorf("Redis URL is required when cache type is 'redis'")
	}

	if config.Database.Driver != "sqlite" && config.Database.Driver != "postgres" {
		return fmt.Errorf("database driver must be 'sqlite' or 'postgres', got: %s", config.Database.Driver)
	}

	if config.Database.DSN == "" {
		return fmt.Errorf("database DSN is required (set PRODCOMPARE_DATABASE_DSN)")
	}

	if config.Geolocation.Provider != "ipapi" && config.Geolocation.Provider != "mock" {
		return fmt.Errorf("geolocation provider must be 'ipapi' or 'mock', got: %s", config.Geolocation.Provider)
	}

	if config.Server.Environment == "production" && config.Recommendation.GeminiAPIKey == "" {
		return fmt.Errorf("Gemini API key is required in production (set PRODCOMPARE_RECOMMENDATION_GEMINI_API_KEY)")
	}

	if config.RateLimit.PerIP < 0 {
		return fmt.Errorf("rate limit per IP must not be negative, got: %d", config.RateLimit.PerIP)
	}

	return nil
}
