package config

import (
	"fmt"
	"log"
	"os"
	"strconv"
	"strings"
	"time"

	"github.com/joho/godotenv"
)

// Config holds all configuration for the application
type Config struct {
	PostgreSQL PostgreSQLConfig
	Server     ServerConfig
	Index      IndexConfig
	Model      ModelConfig
	Match      MatchConfig
	Query      QueryConfig
	Logging    LoggingConfig
	OpenAI     OpenAIConfig
}

// PostgreSQLConfig holds listings database configuration.
// Driver "sqlite" treats DSN as a file path.
type PostgreSQLConfig struct {
	Driver             string
	DSN                string // full connection string, preferred over the parts below
	Host               string
	Port               int
	User               string
	Password           string
	Database           string
	SSLMode            string
	MaxConnections     int
	MaxIdleConnections int
}

// ServerConfig holds server configuration
type ServerConfig struct {
	Port           int
	Host           string
	GinMode        string
	AllowedOrigins string
	AllowedMethods string
	AllowedHeaders string
}

// IndexConfig holds embedding index settings
type IndexConfig struct {
	Path      string
	BatchSize int
	Workers   int
}

// ModelConfig holds two-tower model settings
type ModelConfig struct {
	Version      string // expected build version; empty accepts the loaded model's own
	WeightsPath  string
	Seed         int64
	Provider     string // openai | local | hashing
	LocalBaseURL string
	LocalModel   string
}

// MatchConfig holds matching service settings
type MatchConfig struct {
	DefaultTopK    int
	MaxQueryBytes  int
	Workers        int
	RequestTimeout time.Duration
}

// QueryConfig holds query processor settings
type QueryConfig struct {
	CacheEntries      int
	BoroughSource     string // none | db | file
	BoroughTablePath  string
	BoroughCacheTTL   time.Duration
	LocationTablePath string
	AIAssist          bool
}

// LoggingConfig holds logging configuration
type LoggingConfig struct {
	Level  string
	Format string
}

// OpenAIConfig holds OpenAI API configuration
type OpenAIConfig struct {
	APIKey              string
	APIBase             string
	ChatModel           string
	ChatTemperature     float64
	ChatMaxTokens       int
	EmbeddingModel      string
	EmbeddingDimensions int
	EmbeddingExtraBody  string // JSON string for extra_body (e.g., {"truncate":"NONE"})
	BatchSize           int
	RequestsPerSecond   float64
	Timeout             int
	Enabled             bool
}

// Load reads configuration from environment variables
func Load() (*Config, error) {
	// Try to load .env file (optional)
	_ = godotenv.Load()

	cfg := &Config{
		PostgreSQL: PostgreSQLConfig{
			Driver:             getEnv("DB_DRIVER", "postgres"),
			DSN:                getEnv("DATABASE_URL", getEnv("POSTGRESQL_URI", getEnv("PG_DSN", ""))),
			Host:               getEnv("PG_HOST", ""),
			Port:               getEnvAsInt("PG_PORT", 5432),
			User:               getEnv("PG_USER", "postgres"),
			Password:           getEnv("PG_PASSWORD", ""),
			Database:           getEnv("PG_DATABASE", ""),
			SSLMode:            getEnv("PG_SSLMODE", "disable"),
			MaxConnections:     getEnvAsInt("PG_MAX_CONNECTIONS", 10),
			MaxIdleConnections: getEnvAsInt("PG_MAX_IDLE_CONNECTIONS", 2),
		},
		Server: ServerConfig{
			Port:           getEnvAsInt("SERVER_PORT", 8080),
			Host:           getEnv("SERVER_HOST", "0.0.0.0"),
			GinMode:        getEnv("GIN_MODE", "release"),
			AllowedOrigins: getEnv("CORS_ALLOWED_ORIGINS", "*"),
			AllowedMethods: getEnv("CORS_ALLOWED_METHODS", "GET,POST,OPTIONS"),
			AllowedHeaders: getEnv("CORS_ALLOWED_HEADERS", "Content-Type,Authorization"),
		},
		Index: IndexConfig{
			Path:      getEnv("EMBEDDING_INDEX_PATH", ""),
			BatchSize: getEnvAsInt("INDEX_BATCH_SIZE", 32),
			Workers:   getEnvAsInt("INDEX_WORKERS", 4),
		},
		Model: ModelConfig{
			Version:      getEnv("MODEL_VERSION", ""),
			WeightsPath:  getEnv("MODEL_WEIGHTS_PATH", ""),
			Seed:         int64(getEnvAsInt("MODEL_SEED", 42)),
			Provider:     getEnv("TEXT_ENCODER_PROVIDER", "hashing"),
			LocalBaseURL: getEnv("LOCAL_EMBEDDING_BASE_URL", "http://localhost:11434/v1"),
			LocalModel:   getEnv("LOCAL_EMBEDDING_MODEL", "nomic-embed-text"),
		},
		Match: MatchConfig{
			DefaultTopK:    getEnvAsInt("MATCH_DEFAULT_TOP_K", 10),
			MaxQueryBytes:  getEnvAsInt("MATCH_MAX_QUERY_BYTES", 2048),
			Workers:        getEnvAsInt("MATCH_WORKERS", 8),
			RequestTimeout: time.Duration(getEnvAsInt("REQUEST_TIMEOUT_MS", 2000)) * time.Millisecond,
		},
		Query: QueryConfig{
			CacheEntries:      getEnvAsInt("QUERY_CACHE_ENTRIES", 10000),
			BoroughSource:     getEnv("BOROUGH_SOURCE", "none"),
			BoroughTablePath:  getEnv("BOROUGH_TABLE_PATH", ""),
			BoroughCacheTTL:   time.Duration(getEnvAsInt("BOROUGH_CACHE_TTL_SECONDS", 300)) * time.Second,
			LocationTablePath: getEnv("LOCATION_TABLE_PATH", ""),
			AIAssist:          getEnvAsBool("QUERY_AI_ASSIST", false),
		},
		Logging: LoggingConfig{
			Level:  getEnv("LOG_LEVEL", "info"),
			Format: getEnv("LOG_FORMAT", "json"),
		},
		OpenAI: OpenAIConfig{
			APIKey:              getEnv("OPENAI_API_KEY", ""),
			APIBase:             getEnv("OPENAI_API_BASE", "https://api.openai.com/v1"),
			ChatModel:           getEnv("OPENAI_CHAT_MODEL", "gpt-4o-mini"),
			ChatTemperature:     getEnvAsFloat("OPENAI_CHAT_TEMPERATURE", 0.2),
			ChatMaxTokens:       getEnvAsInt("OPENAI_CHAT_MAX_TOKENS", 256),
			EmbeddingModel:      getEnv("OPENAI_EMBEDDING_MODEL", "text-embedding-3-small"),
			EmbeddingDimensions: getEnvAsInt("OPENAI_EMBEDDING_DIMENSIONS", 512),
			EmbeddingExtraBody:  getEnv("OPENAI_EMBEDDING_EXTRA_BODY", ""),
			BatchSize:           getEnvAsInt("OPENAI_BATCH_SIZE", 100),
			RequestsPerSecond:   getEnvAsFloat("OPENAI_REQUESTS_PER_SECOND", 5),
			Timeout:             getEnvAsInt("OPENAI_TIMEOUT", 30),
			Enabled:             getEnv("OPENAI_API_KEY", "") != "",
		},
	}

	return cfg, nil
}

// Validate reports every missing or invalid setting in one error.
func (c *Config) Validate() error {
	var problems []string

	if c.PostgreSQL.DSN == "" && (c.PostgreSQL.Host == "" || c.PostgreSQL.Database == "") {
		problems = append(problems, "DATABASE_URL (or POSTGRESQL_URI, PG_DSN, or PG_HOST and PG_DATABASE) is required")
	}
	if c.PostgreSQL.Driver != "postgres" && c.PostgreSQL.Driver != "sqlite" {
		problems = append(problems, fmt.Sprintf("DB_DRIVER must be postgres or sqlite, got %q", c.PostgreSQL.Driver))
	}
	if c.Index.Path == "" {
		problems = append(problems, "EMBEDDING_INDEX_PATH is required")
	}
	if c.Index.BatchSize <= 0 {
		problems = append(problems, "INDEX_BATCH_SIZE must be positive")
	}
	if c.Index.Workers <= 0 {
		problems = append(problems, "INDEX_WORKERS must be positive")
	}
	switch c.Model.Provider {
	case "hashing", "local":
	case "openai":
		if !c.OpenAI.Enabled {
			problems = append(problems, "OPENAI_API_KEY is required when TEXT_ENCODER_PROVIDER=openai")
		}
	default:
		problems = append(problems, fmt.Sprintf("TEXT_ENCODER_PROVIDER must be openai, local or hashing, got %q", c.Model.Provider))
	}
	if c.Match.DefaultTopK <= 0 {
		problems = append(problems, "MATCH_DEFAULT_TOP_K must be positive")
	}
	if c.Match.MaxQueryBytes <= 0 {
		problems = append(problems, "MATCH_MAX_QUERY_BYTES must be positive")
	}
	if c.Match.Workers <= 0 {
		problems = append(problems, "MATCH_WORKERS must be positive")
	}
	if c.Match.RequestTimeout <= 0 {
		problems = append(problems, "REQUEST_TIMEOUT_MS must be positive")
	}
	switch c.Query.BoroughSource {
	case "none", "db":
	case "file":
		if c.Query.BoroughTablePath == "" {
			problems = append(problems, "BOROUGH_TABLE_PATH is required when BOROUGH_SOURCE=file")
		}
	default:
		problems = append(problems, fmt.Sprintf("BOROUGH_SOURCE must be none, db or file, got %q", c.Query.BoroughSource))
	}
	if c.Query.AIAssist && !c.OpenAI.Enabled {
		problems = append(problems, "OPENAI_API_KEY is required when QUERY_AI_ASSIST=true")
	}

	if len(problems) > 0 {
		return fmt.Errorf("invalid configuration:\n  - %s", strings.Join(problems, "\n  - "))
	}
	return nil
}

// GetPostgreSQLDSN returns the listings database connection string
func (c *Config) GetPostgreSQLDSN() string {
	if c.PostgreSQL.DSN != "" {
		return c.PostgreSQL.DSN
	}

	return fmt.Sprintf(
		"host=%s port=%d user=%s password=%s dbname=%s sslmode=%s",
		c.PostgreSQL.Host,
		c.PostgreSQL.Port,
		c.PostgreSQL.User,
		c.PostgreSQL.Password,
		c.PostgreSQL.Database,
		c.PostgreSQL.SSLMode,
	)
}

// Helper functions

func getEnv(key, defaultValue string) string {
	value := os.Getenv(key)
	if value == "" {
		return defaultValue
	}
	return value
}

func getEnvAsInt(key string, defaultValue int) int {
	valueStr := os.Getenv(key)
	if valueStr == "" {
		return defaultValue
	}
	value, err := strconv.Atoi(valueStr)
	if err != nil {
		log.Printf("Warning: Invalid integer value for %s, using default %d", key, defaultValue)
		return defaultValue
	}
	return value
}

func getEnvAsFloat(key string, defaultValue float64) float64 {
	valueStr := os.Getenv(key)
	if valueStr == "" {
		return defaultValue
	}
	value, err := strconv.ParseFloat(valueStr, 64)
	if err != nil {
		log.Printf("Warning: Invalid float value for %s, using default %f", key, defaultValue)
		return defaultValue
	}
	return value
}

func getEnvAsBool(key string, defaultValue bool) bool {
	valueStr := os.Getenv(key)
	if valueStr == "" {
		return defaultValue
	}
	value, err := strconv.ParseBool(valueStr)
	if err != nil {
		log.Printf("Warning: Invalid boolean value for %s, using default %t", key, defaultValue)
		return defaultValue
	}
	return value
}
