package config

import (
	"fmt"
	"log"
	"time"

	"github.com/joho/godotenv"
	"github.com/kelseyhightower/envconfig"
)

// Config holds application configuration
type Config struct {
	Server     ServerConfig
	Database   DatabaseConfig
	Redis      RedisConfig
	Storage    StorageConfig
	Extraction ExtractionConfig
	Embedding  EmbeddingConfig
	Recon      ReconConfig
	Review     ReviewConfig
	Ingest     IngestConfig
	JWT        JWTConfig
}

// ServerConfig holds server configuration
type ServerConfig struct {
	Port            string   `envconfig:"PORT" default:"8080"`
	Host            string   `envconfig:"HOST" default:"0.0.0.0"`
	Environment     string   `envconfig:"ENVIRONMENT" default:"development"`
	AllowedOrigins  []string `envconfig:"ALLOWED_ORIGINS" default:"http://localhost:3000"`
	ShutdownTimeout int      `envconfig:"SHUTDOWN_TIMEOUT" default:"10"`
}

// DatabaseConfig holds database configuration
type DatabaseConfig struct {
	Host        string `envconfig:"DB_HOST" default:"localhost"`
	Port        string `envconfig:"DB_PORT" default:"5432"`
	User        string `envconfig:"DB_USER" default:"postgres"`
	Password    string `envconfig:"DB_PASSWORD" default:"postgres"`
	Name        string `envconfig:"DB_NAME" default:"recap_engine"`
	SSLMode     string `envconfig:"DB_SSLMODE" default:"disable"`
	MaxConns    int    `envconfig:"DB_MAX_CONNS" default:"25"`
	MinConns    int    `envconfig:"DB_MIN_CONNS" default:"5"`
	AutoMigrate bool   `envconfig:"DB_AUTO_MIGRATE" default:"false"`
}

// RedisConfig holds Redis configuration
type RedisConfig struct {
	Host     string `envconfig:"REDIS_HOST" default:"localhost"`
	Port     string `envconfig:"REDIS_PORT" default:"6379"`
	Password string `envconfig:"REDIS_PASSWORD" default:""`
	DB       int    `envconfig:"REDIS_DB" default:"0"`
}

// StorageConfig holds transcript object storage configuration
type StorageConfig struct {
	Endpoint        string `envconfig:"STORAGE_ENDPOINT" default:"localhost:9000"`
	AccessKeyID     string `envconfig:"STORAGE_ACCESS_KEY" default:"minioadmin"`
	SecretAccessKey string `envconfig:"STORAGE_SECRET_KEY" default:"minioadmin"`
	BucketName      string `envconfig:"STORAGE_BUCKET" default:"meeting-transcripts"`
	UseSSL          bool   `envconfig:"STORAGE_USE_SSL" default:"false"`
}

// ExtractionConfig holds the LLM extraction provider configuration
type ExtractionConfig struct {
	APIKey  string `envconfig:"EXTRACTION_API_KEY"`
	BaseURL string `envconfig:"EXTRACTION_API_URL" default:"https://api.groq.com/openai"`
	Model   string `envconfig:"EXTRACTION_MODEL" default:"llama-3.1-70b-versatile"`
}

// EmbeddingConfig holds the embedding provider configuration. An empty API
// key leaves duplicate detection disabled.
type EmbeddingConfig struct {
	APIKey  string `envconfig:"EMBEDDING_API_KEY"`
	BaseURL string `envconfig:"EMBEDDING_API_URL" default:"https://api.openai.com"`
	Model   string `envconfig:"EMBEDDING_MODEL" default:"text-embedding-3-small"`
}

// ReconConfig holds reconciliation tunables
type ReconConfig struct {
	SimilarityThreshold float64 `envconfig:"SIMILARITY_THRESHOLD" default:"0.85"`
}

// ReviewConfig holds review lock tunables
type ReviewConfig struct {
	LockTTL time.Duration `envconfig:"REVIEW_LOCK_TTL" default:"30m"`
}

// IngestConfig holds batch ingestion tunables
type IngestConfig struct {
	ItemTimeout time.Duration `envconfig:"INGEST_ITEM_TIMEOUT" default:"5m"`
	DedupTTL    time.Duration `envconfig:"INGEST_DEDUP_TTL" default:"24h"`
}

// JWTConfig holds JWT configuration
type JWTConfig struct {
	Secret string        `envconfig:"JWT_SECRET" default:"change-me-in-production"`
	Expiry time.Duration `envconfig:"JWT_EXPIRY" default:"12h"`
}

// Load loads configuration from environment variables
func Load() (*Config, error) {
	// Load .env file if exists (ignore error if file doesn't exist)
	if err := godotenv.Load(); err != nil {
		log.Printf("Warning: .env file not found, using environment variables or defaults")
	}

	var cfg Config
	if err := envconfig.Process("", &cfg); err != nil {
		return nil, fmt.Errorf("failed to process environment: %w", err)
	}

	if err := cfg.Validate(); err != nil {
		return nil, err
	}

	return &cfg, nil
}

// Validate validates the configuration
func (c *Config) Validate() error {
	if c.Recon.SimilarityThreshold <= 0 || c.Recon.SimilarityThreshold > 1 {
		return fmt.Errorf("SIMILARITY_THRESHOLD must be in (0, 1]")
	}
	if c.Review.LockTTL <= 0 {
		return fmt.Errorf("REVIEW_LOCK_TTL must be positive")
	}
	if c.Server.Environment == "production" && c.JWT.Secret == "change-me-in-production" {
		return fmt.Errorf("JWT_SECRET must be set in production")
	}
	return nil
}

// GetDatabaseDSN returns the database connection string
func (c *Config) GetDatabaseDSN() string {
	return fmt.Sprintf(
		"host=%s port=%s user=%s password=%s dbname=%s sslmode=%s",
		c.Database.Host,
		c.Database.Port,
		c.Database.User,
		c.Database.Password,
		c.Database.Name,
		c.Database.SSLMode,
	)
}

// GetRedisAddr returns the Redis address
func (c *Config) GetRedisAddr() string {
	return fmt.Sprintf("%s:%s", c.Redis.Host, c.Redis.Port)
}
