package common

import (
	"log/slog"
	"os"
	"strconv"
	"strings"
	"time"

	"github.com/joho/godotenv"
)

// Config holds all application configuration
type Config struct {
	LogLevel string
	Database DatabaseConfig
	Drive    DriveConfig
	Extract  ExtractConfig
	LLM      LLMConfig
	Embed    EmbedConfig
	Vector   VectorConfig
	Queue    QueueConfig
	Worker   WorkerConfig
}

// DatabaseConfig holds database-related configuration
type DatabaseConfig struct {
	DSN              string
	SQLitePath       string
	MaxConns         int32
	MinConns         int32
	MaxConnLifetime  time.Duration
	MaxConnIdleTime  time.Duration
	DialTimeout      time.Duration
	StatementTimeout time.Duration
}

// DriveConfig holds Google Drive credentials. Either the OAuth refresh-token
// triple or a service account key file is used.
type DriveConfig struct {
	ClientID           string
	ClientSecret       string
	RefreshToken       string
	ServiceAccountFile string
}

// ExtractConfig holds text extraction tooling configuration
type ExtractConfig struct {
	Pdftotext    string
	Pdftoppm     string
	Tesseract    string
	Soffice      string
	OCRLang      string
	OCRDPI       int
	MinTextChars int
	MaxPDFBytes  int64
	TempDir      string

	// CommandTimeout bounds each external tool invocation.
	CommandTimeout time.Duration
}

// LLMConfig holds model-invocation configuration (Groq's OpenAI-compatible API)
type LLMConfig struct {
	APIKey      string
	BaseURL     string
	Model       string
	Temperature float32
	Timeout     time.Duration
}

// EmbedConfig holds embedding model configuration
type EmbedConfig struct {
	Provider  string // "openai" | "hash"
	BaseURL   string
	APIKey    string
	Model     string
	Dimension int
	Prefixing bool
}

// VectorConfig holds Qdrant connection settings
type VectorConfig struct {
	Host       string
	Port       int
	APIKey     string
	UseTLS     bool
	Collection string
}

// QueueConfig holds NATS JetStream settings
type QueueConfig struct {
	URL     string
	Stream  string
	Subject string
	Durable string
}

// WorkerConfig holds task runner settings
type WorkerConfig struct {
	Concurrency int
	MaxRetries  int
	RetryDelay  time.Duration
	TaskTimeout time.Duration
}

// LoadConfig loads configuration from environment variables, after merging a
// .env file from the working directory when one exists.
func LoadConfig() *Config {
	if err := godotenv.Load(); err != nil && !os.IsNotExist(err) {
		slog.Warn("config.dotenv.load_failed", "error", err)
	}
	return &Config{
		LogLevel: getEnv("LOG_LEVEL", "info"),
		Database: DatabaseConfig{
			DSN:              getEnv("DB_URL", ""),
			SQLitePath:       getEnv("SQLITE_PATH", ""),
			MaxConns:         getEnvAsInt32("DB_MAX_CONNS", 20),
			MinConns:         getEnvAsInt32("DB_MIN_CONNS", 2),
			MaxConnLifetime:  getEnvAsDuration("DB_MAX_CONN_LIFETIME", 30*time.Minute),
			MaxConnIdleTime:  getEnvAsDuration("DB_MAX_CONN_IDLE_TIME", 5*time.Minute),
			DialTimeout:      getEnvAsDuration("DB_DIAL_TIMEOUT", 5*time.Second),
			StatementTimeout: getEnvAsDuration("DB_STATEMENT_TIMEOUT", 0),
		},
		Drive: DriveConfig{
			ClientID:           getEnv("GOOGLE_CLIENT_ID", ""),
			ClientSecret:       getEnv("GOOGLE_CLIENT_SECRET", ""),
			RefreshToken:       getEnv("GOOGLE_REFRESH_TOKEN", ""),
			ServiceAccountFile: getEnv("GOOGLE_SERVICE_ACCOUNT_FILE", ""),
		},
		Extract: ExtractConfig{
			Pdftotext:    getEnv("PDFTOTEXT_BIN", "pdftotext"),
			Pdftoppm:     getEnv("PDFTOPPM_BIN", "pdftoppm"),
			Tesseract:    getEnv("TESSERACT_BIN", "tesseract"),
			Soffice:      getEnv("SOFFICE_BIN", "soffice"),
			OCRLang:      getEnv("OCR_LANG", "eng"),
			OCRDPI:       getEnvAsInt("OCR_DPI", 200),
			MinTextChars: getEnvAsInt("MIN_TEXT_CHARS", 50),
			MaxPDFBytes:  int64(getEnvAsInt("MAX_PDF_MB", 15)) << 20,
			TempDir:      getEnv("EXTRACT_TMP_DIR", ""),

			CommandTimeout: getEnvAsDuration("EXTRACT_COMMAND_TIMEOUT", 2*time.Minute),
		},
		LLM: LLMConfig{
			APIKey:      getEnv("GROQ_API_KEY", ""),
			BaseURL:     getEnv("GROQ_BASE_URL", "https://api.groq.com/openai/v1"),
			Model:       getEnv("GROQ_MODEL", "llama-3.3-70b-versatile"),
			Temperature: getEnvAsFloat32("LLM_TEMPERATURE", 0.0),
			Timeout:     getEnvAsDuration("LLM_TIMEOUT", 60*time.Second),
		},
		Embed: EmbedConfig{
			Provider:  strings.ToLower(getEnv("EMBED_PROVIDER", "openai")),
			BaseURL:   getEnv("EMBED_BASE_URL", "http://localhost:8081/v1"),
			APIKey:    getEnv("EMBED_API_KEY", "none"),
			Model:     getEnv("EMBED_MODEL", "intfloat/e5-small-v2"),
			Dimension: getEnvAsInt("EMBED_DIM", 384),
			Prefixing: getEnvAsBool("EMBED_PREFIX", true),
		},
		Vector: VectorConfig{
			Host:       getEnv("QDRANT_HOST", ""),
			Port:       getEnvAsInt("QDRANT_PORT", 6334),
			APIKey:     getEnv("QDRANT_API_KEY", ""),
			UseTLS:     getEnvAsBool("QDRANT_TLS", false),
			Collection: getEnv("QDRANT_COLLECTION", "resumes"),
		},
		Queue: QueueConfig{
			URL:     getEnv("NATS_URL", "nats://127.0.0.1:4222"),
			Stream:  getEnv("NATS_STREAM", "INGEST"),
			Subject: getEnv("NATS_SUBJECT", "ingest.jobs"),
			Durable: getEnv("NATS_DURABLE", "ingest-worker"),
		},
		Worker: WorkerConfig{
			Concurrency: getEnvAsInt("WORKER_CONCURRENCY", 2),
			MaxRetries:  getEnvAsInt("TASK_MAX_RETRIES", 2),
			RetryDelay:  getEnvAsDuration("TASK_RETRY_DELAY", 10*time.Second),
			TaskTimeout: getEnvAsDuration("TASK_TIMEOUT", 30*time.Minute),
		},
	}
}

// SlogLevel maps LogLevel to a slog level, defaulting to info.
func (c *Config) SlogLevel() slog.Level {
	switch strings.ToLower(c.LogLevel) {
	case "debug":
		return slog.LevelDebug
	case "warn", "warning":
		return slog.LevelWarn
	case "error":
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

func getEnvAsInt32(key string, defaultValue int32) int32 {
	if value := os.Getenv(key); value != "" {
		if intVal, err := strconv.ParseInt(value, 10, 32); err == nil {
			return int32(intVal)
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

func getEnvAsBool(key string, defaultValue bool) bool {
	if value := os.Getenv(key); value != "" {
		if b, err := strconv.ParseBool(value); err == nil {
			return b
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

// Validate checks the settings every binary needs. Optional integrations
// (model, vector index, queue) are checked where they are wired.
func (c *Config) Validate() error {
	if c.Database.DSN == "" && c.Database.SQLitePath == "" {
		return NewAppError(CodeConfig, "DB_URL or SQLITE_PATH is required", ErrInvalidInput)
	}
	if c.Extract.MaxPDFBytes <= 0 {
		return NewAppError(CodeConfig, "MAX_PDF_MB must be positive", ErrInvalidInput)
	}
	if c.Worker.MaxRetries < 0 {
		return NewAppError(CodeConfig, "TASK_MAX_RETRIES must not be negative", ErrInvalidInput)
	}
	switch c.Embed.Provider {
	case "openai", "hash":
	default:
		return NewAppError(CodeConfig, "EMBED_PROVIDER must be openai or hash", ErrInvalidInput)
	}
	if c.Embed.Dimension <= 0 {
		return NewAppError(CodeConfig, "EMBED_DIM must be positive", ErrInvalidInput)
	}
	return nil
}

// DriveConfigured reports whether any Drive credential is present.
func (c *Config) DriveConfigured() bool {
	d := c.Drive
	return d.ServiceAccountFile != "" || (d.ClientID != "" && d.ClientSecret != "" && d.RefreshToken != "")
}
