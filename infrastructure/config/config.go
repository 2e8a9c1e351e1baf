package config

import (
	"fmt"
	"os"
	"strconv"
	"strings"
	"time"
)

// Config holds all application configuration
type Config struct {
	// Server configuration
	ServerAddress string `yaml:"server_address"`
	Environment   string `yaml:"environment"`

	// AWS configuration
	AWSRegion        string `yaml:"aws_region"`
	DynamoDBEndpoint string `yaml:"dynamodb_endpoint"`

	// Tables
	TokenStatsTable    string `yaml:"token_stats_table"`
	TokensTable        string `yaml:"tokens_table"`
	ExchangeStatsTable string `yaml:"exchange_stats_table"`
	ExchangesTable     string `yaml:"exchanges_table"`
	SymbolIndex        string `yaml:"symbol_index"`

	// Global snapshot cache
	CacheTable        string        `yaml:"cache_table"`
	CacheKey          string        `yaml:"cache_key"`
	CacheTTL          time.Duration `yaml:"cache_ttl"` // zero keeps the environment default
	CacheFallbackPath string        `yaml:"cache_fallback_path"`

	// Upstream market data
	CMCAPIKey       string        `yaml:"cmc_api_key"`
	CMCBaseURL      string        `yaml:"cmc_base_url"`
	FearGreedURL    string        `yaml:"fear_greed_url"`
	ExternalTimeout time.Duration `yaml:"external_timeout"`
	StoreTimeout    time.Duration `yaml:"store_timeout"`

	// Lambda configuration
	IsLambda bool `yaml:"is_lambda"`

	// Logging
	LogLevel string `yaml:"log_level"`

	// Feature flags
	EnableMetrics  bool     `yaml:"enable_metrics"`
	EnableTracing  bool     `yaml:"enable_tracing"`
	OTLPEndpoint   string   `yaml:"otlp_endpoint"`
	EnableCORS     bool     `yaml:"enable_cors"`
	AllowedOrigins []string `yaml:"allowed_origins"`

	// ConfigFile is the YAML overlay the values were read from, if any
	ConfigFile string `yaml:"-"`
}

// DefaultConfig returns the built-in defaults
func DefaultConfig() *Config {
	return &Config{
		ServerAddress:      ":8080",
		Environment:        "development",
		AWSRegion:          "us-east-1",
		TokenStatsTable:    "liberandum-token-stats",
		TokensTable:        "liberandum-tokens",
		ExchangeStatsTable: "liberandum-exchange-stats",
		ExchangesTable:     "liberandum-exchanges",
		CacheTable:         "liberandum-cache",
		CacheKey:           "global_market_data",
		ExternalTimeout:    30 * time.Second,
		StoreTimeout:       30 * time.Second,
		LogLevel:           "info",
		EnableMetrics:      true,
		EnableCORS:         true,
	}
}

// LoadConfig loads configuration: defaults, then the YAML file named by
// CONFIG_FILE, then environment variables.
func LoadConfig() (*Config, error) {
	cfg := DefaultConfig()

	if path := os.Getenv("CONFIG_FILE"); path != "" {
		if err := LoadFile(path, cfg); err != nil {
			return nil, err
		}
	}

	applyEnv(cfg)

	if err := cfg.Validate(); err != nil {
		return nil, err
	}

	return cfg, nil
}

func applyEnv(cfg *Config) {
	cfg.ServerAddress = getEnv("SERVER_ADDRESS", cfg.ServerAddress)
	cfg.Environment = getEnv("ENVIRONMENT", cfg.Environment)
	cfg.AWSRegion = getEnv("AWS_REGION", cfg.AWSRegion)
	cfg.DynamoDBEndpoint = getEnv("DYNAMODB_ENDPOINT", cfg.DynamoDBEndpoint)

	cfg.TokenStatsTable = getEnv("TOKEN_STATS_TABLE", cfg.TokenStatsTable)
	cfg.TokensTable = getEnv("TOKENS_TABLE", cfg.TokensTable)
	cfg.ExchangeStatsTable = getEnv("EXCHANGE_STATS_TABLE", cfg.ExchangeStatsTable)
	cfg.ExchangesTable = getEnv("EXCHANGES_TABLE", cfg.ExchangesTable)
	cfg.SymbolIndex = getEnv("SYMBOL_INDEX", cfg.SymbolIndex)

	cfg.CacheTable = getEnv("CACHE_TABLE", cfg.CacheTable)
	cfg.CacheKey = getEnv("CACHE_KEY", cfg.CacheKey)
	cfg.CacheTTL = getEnvDuration("CACHE_TTL", cfg.CacheTTL)
	cfg.CacheFallbackPath = getEnv("CACHE_FALLBACK_PATH", cfg.CacheFallbackPath)

	cfg.CMCAPIKey = getEnv("CMC_API_KEY", cfg.CMCAPIKey)
	cfg.CMCBaseURL = getEnv("CMC_BASE_URL", cfg.CMCBaseURL)
	cfg.FearGreedURL = getEnv("FEAR_GREED_URL", cfg.FearGreedURL)
	cfg.ExternalTimeout = getEnvDuration("EXTERNAL_TIMEOUT", cfg.ExternalTimeout)
	cfg.StoreTimeout = getEnvDuration("STORE_TIMEOUT", cfg.StoreTimeout)

	cfg.IsLambda = getEnvBool("IS_LAMBDA", cfg.IsLambda)
	cfg.LogLevel = getEnv("LOG_LEVEL", cfg.LogLevel)
	cfg.EnableMetrics = getEnvBool("ENABLE_METRICS", cfg.EnableMetrics)
	cfg.EnableTracing = getEnvBool("ENABLE_TRACING", cfg.EnableTracing)
	cfg.OTLPEndpoint = getEnv("OTLP_ENDPOINT", cfg.OTLPEndpoint)
	cfg.EnableCORS = getEnvBool("ENABLE_CORS", cfg.EnableCORS)
	if origins := getEnv("ALLOWED_ORIGINS", ""); origins != "" {
		cfg.AllowedOrigins = strings.Split(origins, ",")
	}
}

// Validate checks if all required configuration is present
func (c *Config) Validate() error {
	if c.TokenStatsTable == "" || c.TokensTable == "" || c.ExchangeStatsTable == "" || c.ExchangesTable == "" {
		return fmt.Errorf("all four market tables must be named")
	}
	if c.CacheKey == "" {
		return fmt.Errorf("CACHE_KEY is required")
	}
	if c.CacheTTL < 0 {
		return fmt.Errorf("CACHE_TTL must not be negative, got %s", c.CacheTTL)
	}
	if c.ExternalTimeout <= 0 || c.StoreTimeout <= 0 {
		return fmt.Errorf("timeouts must be positive")
	}
	if c.EnableTracing && c.OTLPEndpoint == "" {
		return fmt.Errorf("OTLP_ENDPOINT is required when tracing is enabled")
	}
	if c.IsProduction() && c.CMCAPIKey == "" {
		return fmt.Errorf("CMC_API_KEY is required in production")
	}

	return nil
}

// IsDevelopment checks if running in development mode
func (c *Config) IsDevelopment() bool {
	return c.Environment == "development"
}

// IsProduction checks if running in production mode
func (c *Config) IsProduction() bool {
	return c.Environment == "production"
}

// getEnv gets an environment variable with a default value
func getEnv(key, defaultValue string) string {
	if value := os.Getenv(key); value != "" {
		return value
	}
	return defaultValue
}

// getEnvBool gets a boolean environment variable with a default value
func getEnvBool(key string, defaultValue bool) bool {
	value := os.Getenv(key)
	if value == "" {
		return defaultValue
	}
	return value == "true" || value == "1" || value == "yes"
}

// getEnvInt gets an integer environment variable with a default value
func getEnvInt(key string, defaultValue int) int {
	if value := os.Getenv(key); value != "" {
		if intVal, err := strconv.Atoi(value); err == nil {
			return intVal
		}
	}
	return defaultValue
}

// getEnvDuration accepts Go durations ("90s") or a bare number of seconds
func getEnvDuration(key string, defaultValue time.Duration) time.Duration {
	value := os.Getenv(key)
	if value == "" {
		return defaultValue
	}
	if d, err := time.ParseDuration(value); err == nil {
		return d
	}
	if seconds := getEnvInt(key, -1); seconds >= 0 {
		return time.Duration(seconds) * time.Second
	}
	return defaultValue
}
