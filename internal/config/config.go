/**
 * Configuration for Transcript Worker
 *
 * Loads configuration from environment variables. A .env file, when
 * present, is applied by the worker entrypoint before this runs.
 */

package config

import (
	"fmt"
	"os"
	"strconv"
	"time"
)

// Config holds worker configuration
type Config struct {
	// Redis configuration
	RedisURL string

	// QueueDriver selects the consumer implementation: "asynq" or "redis"
	// (plain BRPOP list consumer).
	QueueDriver string
	QueueName   string

	// PostgreSQL configuration
	DatabaseURL string

	// OCR configuration
	OCREngine     string // "tesseract" or "remote"
	RemoteOCRURL  string
	TesseractLang string
	MaxImageSide  int

	// Refinement (OpenAI-compatible endpoint)
	OpenAIAPIKey  string
	OpenAIBaseURL string
	OpenAIModel   string
	RefineTimeout time.Duration

	// Worker configuration
	WorkerConcurrency   int
	PipelineConcurrency int
	ProcessingTimeout   time.Duration
	MaxImages           int
	MaxImageBytes       int64

	// Optional operator-supplied noise patterns, one regexp per line
	NoisePatternsPath string

	// Node environment
	NodeEnv string
}

// LoadConfig loads configuration from environment variables
func LoadConfig() (*Config, error) {
	cfg := &Config{
		RedisURL:            getEnvOrDefault("REDIS_URL", "redis://localhost:6379"),
		QueueDriver:         getEnvOrDefault("QUEUE_DRIVER", "asynq"),
		QueueName:           getEnvOrDefault("QUEUE_NAME", "transcript-jobs"),
		DatabaseURL:         getEnvOrThrow("DATABASE_URL"),
		OCREngine:           getEnvOrDefault("OCR_ENGINE", "tesseract"),
		RemoteOCRURL:        getEnvOrDefault("REMOTE_OCR_URL", "http://localhost:8868"),
		TesseractLang:       getEnvOrDefault("TESSERACT_LANG", "chi_sim+eng"),
		MaxImageSide:        getEnvAsIntOrDefault("MAX_IMAGE_SIDE", 2000),
		OpenAIAPIKey:        getEnvOrDefault("OPENAI_API_KEY", ""),
		OpenAIBaseURL:       getEnvOrDefault("OPENAI_BASE_URL", ""),
		OpenAIModel:         getEnvOrDefault("OPENAI_MODEL", "gpt-4o-mini"),
		RefineTimeout:       getEnvAsDurationOrDefault("REFINE_TIMEOUT_MS", 60000),
		WorkerConcurrency:   getEnvAsIntOrDefault("WORKER_CONCURRENCY", 10),
		PipelineConcurrency: getEnvAsIntOrDefault("PIPELINE_CONCURRENCY", 4),
		ProcessingTimeout:   getEnvAsDurationOrDefault("PROCESSING_TIMEOUT_MS", 300000),
		MaxImages:           getEnvAsIntOrDefault("MAX_IMAGES", 10),
		MaxImageBytes:       getEnvAsInt64OrDefault("MAX_IMAGE_BYTES", 10485760), // 10MB
		NoisePatternsPath:   getEnvOrDefault("NOISE_PATTERNS_PATH", ""),
		NodeEnv:             getEnvOrDefault("NODE_ENV", "development"),
	}

	// Validate required fields
	if err := cfg.Validate(); err != nil {
		return nil, fmt.Errorf("configuration validation failed: %w", err)
	}

	return cfg, nil
}

// Validate checks if configuration is valid
func (c *Config) Validate() error {
	if c.RedisURL == "" {
		return fmt.Errorf("REDIS_URL is required")
	}

	if c.DatabaseURL == "" {
		return fmt.Errorf("DATABASE_URL is required")
	}

	if c.QueueDriver != "asynq" && c.QueueDriver != "redis" {
		return fmt.Errorf("QUEUE_DRIVER must be \"asynq\" or \"redis\", got %q", c.QueueDriver)
	}

	if c.OCREngine != "tesseract" && c.OCREngine != "remote" {
		return fmt.Errorf("OCR_ENGINE must be \"tesseract\" or \"remote\", got %q", c.OCREngine)
	}

	if c.OCREngine == "remote" && c.RemoteOCRURL == "" {
		return fmt.Errorf("REMOTE_OCR_URL is required when OCR_ENGINE=remote")
	}

	if c.WorkerConcurrency < 1 || c.WorkerConcurrency > 100 {
		return fmt.Errorf("WORKER_CONCURRENCY must be between 1 and 100, got %d", c.WorkerConcurrency)
	}

	if c.PipelineConcurrency < 1 || c.PipelineConcurrency > 32 {
		return fmt.Errorf("PIPELINE_CONCURRENCY must be between 1 and 32, got %d", c.PipelineConcurrency)
	}

	if c.MaxImages < 1 || c.MaxImages > 50 {
		return fmt.Errorf("MAX_IMAGES must be between 1 and 50, got %d", c.MaxImages)
	}

	if c.MaxImageBytes < 1024 || c.MaxImageBytes > 104857600 { // 1KB to 100MB
		return fmt.Errorf("MAX_IMAGE_BYTES must be between 1KB and 100MB, got %d", c.MaxImageBytes)
	}

	if c.MaxImageSide < 100 {
		return fmt.Errorf("MAX_IMAGE_SIDE must be at least 100, got %d", c.MaxImageSide)
	}

	return nil
}

// RefinementEnabled reports whether an API key for the refinement endpoint
// was configured.
func (c *Config) RefinementEnabled() bool {
	return c.OpenAIAPIKey != ""
}

// getEnvOrDefault gets environment variable or returns default
func getEnvOrDefault(key, defaultValue string) string {
	if value := os.Getenv(key); value != "" {
		return value
	}
	return defaultValue
}

// getEnvOrThrow gets environment variable or returns error
func getEnvOrThrow(key string) string {
	value := os.Getenv(key)
	if value == "" {
		panic(fmt.Sprintf("Required environment variable %s is not set", key))
	}
	return value
}

// getEnvAsIntOrDefault gets environment variable as int or returns default
func getEnvAsIntOrDefault(key string, defaultValue int) int {
	valueStr := os.Getenv(key)
	if valueStr == "" {
		return defaultValue
	}

	value, err := strconv.Atoi(valueStr)
	if err != nil {
		return defaultValue
	}

	return value
}

// getEnvAsInt64OrDefault gets environment variable as int64 or returns default
func getEnvAsInt64OrDefault(key string, defaultValue int64) int64 {
	valueStr := os.Getenv(key)
	if valueStr == "" {
		return defaultValue
	}

	value, err := strconv.ParseInt(valueStr, 10, 64)
	if err != nil {
		return defaultValue
	}

	return value
}

// getEnvAsDurationOrDefault reads a millisecond count from the environment.
func getEnvAsDurationOrDefault(key string, defaultMS int64) time.Duration {
	return time.Duration(getEnvAsInt64OrDefault(key, defaultMS)) * time.Millisecond
}
