package common

import (
	"log/slog"
	"os"
	"strconv"
	"time"

	"github.com/joho/godotenv"
)

// Config holds all application configuration. It is assembled once at startup
// and passed into components as an immutable value; pipeline components never
// read process state themselves.
type Config struct {
	OCR      OCRConfig
	LLM      LLMConfig
	Pipeline PipelineConfig
	LogLevel slog.Level
}

// OCRConfig holds OCR collaborator configuration.
type OCRConfig struct {
	Endpoint     string
	APIKey       string
	Region       string
	PollInterval time.Duration
}

// LLMConfig holds LLM collaborator configuration.
type LLMConfig struct {
	Model       string
	APIKey      string
	BaseURL     string
	Temperature float32
	Timeout     time.Duration
}

// PipelineConfig holds coordinator policy knobs.
type PipelineConfig struct {
	MaxRetries    int
	BackoffBase   time.Duration
	BackoffCap    time.Duration
	DocTimeout    time.Duration
	MaxConcurrent int64   // bounded pool of simultaneous collaborator calls
	Tolerance     float64 // epsilon for arithmetic consistency checks
	OutputDir     string
	SaveMarkdown  bool // persist the intermediate markdown artifact
	SaveOnFailure bool // persist partial artifacts when a run fails
}

// LoadConfig loads configuration from environment variables. A .env file in
// the working directory is applied first if present.
func LoadConfig() *Config {
	_ = godotenv.Load()

	return &Config{
		OCR: OCRConfig{
			Endpoint:     getEnv("AZURE_OCR_ENDPOINT", ""),
			APIKey:       getEnv("AZURE_OCR_KEY", ""),
			Region:       getEnv("AZURE_OCR_REGION", ""),
			PollInterval: getEnvAsDuration("AZURE_OCR_POLL_INTERVAL", 2*time.Second),
		},
		LLM: LLMConfig{
			Model:       getEnv("OPENAI_MODEL", "gpt-4o-mini"),
			APIKey:      getEnv("OPENAI_API_KEY", ""),
			BaseURL:     getEnv("OPENAI_BASE_URL", "https://api.openai.com/v1"),
			Temperature: getEnvAsFloat32("OPENAI_TEMPERATURE", 0.0),
			Timeout:     getEnvAsDuration("OPENAI_TIMEOUT", 45*time.Second),
		},
		Pipeline: PipelineConfig{
			MaxRetries:    getEnvAsInt("PIPELINE_MAX_RETRIES", 3),
			BackoffBase:   getEnvAsDuration("PIPELINE_BACKOFF_BASE", 500*time.Millisecond),
			BackoffCap:    getEnvAsDuration("PIPELINE_BACKOFF_CAP", 8*time.Second),
			DocTimeout:    getEnvAsDuration("PIPELINE_DOC_TIMEOUT", 2*time.Minute),
			MaxConcurrent: int64(getEnvAsInt("PIPELINE_MAX_CONCURRENT", 4)),
			Tolerance:     getEnvAsFloat64("PIPELINE_TOLERANCE", 0.01),
			OutputDir:     getEnv("PIPELINE_OUTPUT_DIR", "."),
			SaveMarkdown:  getEnvAsBool("PIPELINE_SAVE_MARKDOWN", false),
			SaveOnFailure: getEnvAsBool("PIPELINE_SAVE_ON_FAILURE", false),
		},
		LogLevel: ParseLogLevel(getEnv("LOG_LEVEL", "INFO")),
	}
}

// Validate validates the loaded configuration.
func (c *Config) Validate() error {
	if c.OCR.Endpoint == "" {
		return NewAppError("CONFIG_ERROR", "AZURE_OCR_ENDPOINT is required", nil)
	}
	if c.OCR.APIKey == "" {
		return NewAppError("CONFIG_ERROR", "AZURE_OCR_KEY is required", nil)
	}
	if c.LLM.APIKey == "" {
		return NewAppError("CONFIG_ERROR", "OPENAI_API_KEY is required", nil)
	}
	if c.Pipeline.MaxRetries < 0 {
		return NewAppError("CONFIG_ERROR", "PIPELINE_MAX_RETRIES must be >= 0", nil)
	}
	if c.Pipeline.MaxConcurrent <= 0 {
		return NewAppError("CONFIG_ERROR", "PIPELINE_MAX_CONCURRENT must be > 0", nil)
	}
	return nil
}

// ParseLogLevel maps a level name to its slog level, defaulting to INFO.
func ParseLogLevel(s string) slog.Level {
	switch s {
	case "DEBUG", "debug":
		return slog.LevelDebug
	case "WARN", "warn":
		return slog.LevelWarn
	case "ERROR", "error":
		return slog.LevelError
	default:
		return slog.LevelInfo
	}
}

// Helper functions for environment variable parsing
func getEnv(key, defaultValue string) string {
	if value := os.Getenv(key); value != "" {
		return value
	}
	return defaultValue
}

func getEnvAsInt(key string, defaultValue int) int {
	if value := os.Getenv(key); value != "" {
		if intVal, err := strconv.Atoi(value); err == nil {
			return intVal
		}
	}
	return defaultValue
}

func getEnvAsBool(key string, defaultValue bool) bool {
	if value := os.Getenv(key); value != "" {
		if b, err := strconv.ParseBool(value); err == nil {
			return b
		}
	}
	return defaultValue
}

func getEnvAsFloat32(key string, defaultValue float32) float32 {
	if value := os.Getenv(key); value != "" {
		if floatVal, err := strconv.ParseFloat(value, 32); err == nil {
			return float32(floatVal)
		}
	}
	return defaultValue
}

func getEnvAsFloat64(key string, defaultValue float64) float64 {
	if value := os.Getenv(key); value != "" {
		if floatVal, err := strconv.ParseFloat(value, 64); err == nil {
			return floatVal
		}
	}
	return defaultValue
}

func getEnvAsDuration(key string, defaultValue time.Duration) time.Duration {
	if value := os.Getenv(key); value != "" {
		if duration, err := time.ParseDuration(value); err == nil {
			return duration
		}
	}
	return defaultValue
}
