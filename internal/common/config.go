package common

import (
	"fmt"
	"os"
	"strconv"
	"time"

	"gopkg.in/yaml.v3"
)

// Config holds all application configuration
type Config struct {
	Server   ServerConfig   `yaml:"server"`
	LLM      LLMConfig      `yaml:"llm"`
	Pipeline PipelineConfig `yaml:"pipeline"`
	Store    StoreConfig    `yaml:"store"`
	Export   ExportConfig   `yaml:"export"`
	Ingest   IngestConfig   `yaml:"ingest"`
}

// ServerConfig holds server-related configuration
type ServerConfig struct {
	GRPCAddr string `yaml:"grpc_addr"`
	HTTPAddr string `yaml:"http_addr"`
}

// LLMConfig holds completion-service configuration
type LLMConfig struct {
	Model       string        `yaml:"model"`
	APIKey      string        `yaml:"api_key"`
	BaseURL     string        `yaml:"base_url"`
	Temperature float32       `yaml:"temperature"`
	Timeout     time.Duration `yaml:"timeout"`
	RPS         float64       `yaml:"rps"`
}

// PipelineConfig holds drafting pipeline knobs
type PipelineConfig struct {
	ChunkSize        int           `yaml:"chunk_size"`
	ChunkConcurrency int           `yaml:"chunk_concurrency"`
	AuditTimeout     time.Duration `yaml:"audit_timeout"`
	DefaultCurrency  string        `yaml:"default_currency"`
}

// StoreConfig holds saved-invoice store configuration
type StoreConfig struct {
	Driver          string        `yaml:"driver"` // sqlite | postgres
	Path            string        `yaml:"path"`
	DSN             string        `yaml:"dsn"`
	MaxConns        int32         `yaml:"max_conns"`
	MinConns        int32         `yaml:"min_conns"`
	MaxConnLifetime time.Duration `yaml:"max_conn_lifetime"`
	MaxConnIdleTime time.Duration `yaml:"max_conn_idle_time"`
	DialTimeout     time.Duration `yaml:"dial_timeout"`
}

// ExportConfig holds export archive configuration
type ExportConfig struct {
	S3Bucket   string `yaml:"s3_bucket"`
	S3Region   string `yaml:"s3_region"`
	S3Prefix   string `yaml:"s3_prefix"`
	S3Endpoint string `yaml:"s3_endpoint"`
}

// IngestConfig holds inbox watcher configuration
type IngestConfig struct {
	InboxDir string        `yaml:"inbox_dir"`
	Workers  int           `yaml:"workers"`
	Timeout  time.Duration `yaml:"timeout"`
}

// LoadConfig loads configuration from environment variables, then applies the
// YAML file named by CONFIG_FILE (if any) on top.
func LoadConfig() (*Config, error) {
	cfg := &Config{
		Server: ServerConfig{
			GRPCAddr: getEnv("GRPC_ADDR", ":8080"),
			HTTPAddr: getEnv("HTTP_ADDR", ":8081"),
		},
		LLM: LLMConfig{
			Model:       getEnv("OPENAI_MODEL", "gpt-4o-mini"),
			APIKey:      getEnv("OPENAI_API_KEY", ""),
			BaseURL:     getEnv("OPENAI_BASE_URL", ""),
			Temperature: getEnvAsFloat32("OPENAI_TEMPERATURE", 0.0),
			Timeout:     getEnvAsDuration("OPENAI_TIMEOUT", 45*time.Second),
			RPS:         getEnvAsFloat64("OPENAI_RPS", 5),
		},
		Pipeline: PipelineConfig{
			ChunkSize:        getEnvAsInt("CHUNK_SIZE", 4000),
			ChunkConcurrency: getEnvAsInt("CHUNK_CONCURRENCY", 4),
			AuditTimeout:     getEnvAsDuration("AUDIT_TIMEOUT", 4500*time.Millisecond),
			DefaultCurrency:  getEnv("DEFAULT_CURRENCY", "USD"),
		},
		Store: StoreConfig{
			Driver:          getEnv("STORE_DRIVER", "sqlite"),
			Path:            getEnv("DB_PATH", "./data/invoices.db"),
			DSN:             getEnv("DB_URL", ""),
			MaxConns:        getEnvAsInt32("DB_MAX_CONNS", 10),
			MinConns:        getEnvAsInt32("DB_MIN_CONNS", 2),
			MaxConnLifetime: getEnvAsDuration("DB_MAX_CONN_LIFETIME", 30*time.Minute),
			MaxConnIdleTime: getEnvAsDuration("DB_MAX_CONN_IDLE_TIME", 5*time.Minute),
			DialTimeout:     getEnvAsDuration("DB_DIAL_TIMEOUT", 3*time.Second),
		},
		Export: ExportConfig{
			S3Bucket:   getEnv("S3_BUCKET", ""),
			S3Region:   getEnv("S3_REGION", "us-east-1"),
			S3Prefix:   getEnv("S3_PREFIX", "invoices/"),
			S3Endpoint: getEnv("S3_ENDPOINT", ""),
		},
		Ingest: IngestConfig{
			InboxDir: getEnv("INBOX_DIR", ""),
			Workers:  getEnvAsInt("INGEST_WORKERS", 2),
			Timeout:  getEnvAsDuration("INGEST_TIMEOUT", 3*time.Minute),
		},
	}

	if path := os.Getenv("CONFIG_FILE"); path != "" {
		if err := cfg.applyFile(path); err != nil {
			return nil, err
		}
	}
	return cfg, nil
}

// applyFile overlays non-zero values from a YAML file.
func (c *Config) applyFile(path string) error {
	data, err := os.ReadFile(path)
	if err != nil {
		return NewAppError(CodeConfig, "read config file", err)
	}
	if err := yaml.Unmarshal(data, c); err != nil {
		return NewAppError(CodeConfig, fmt.Sprintf("parse config file %s", path), err)
	}
	return nil
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

// Validate validates the loaded configuration
func (c *Config) Validate() error {
	if c.LLM.APIKey == "" {
		return NewAppError(CodeConfig, "OPENAI_API_KEY is required", ErrInvalidInput)
	}
	switch c.Store.Driver {
	case "sqlite":
		if c.Store.Path == "" {
			return NewAppError(CodeConfig, "DB_PATH is required for the sqlite store", ErrInvalidInput)
		}
	case "postgres":
		if c.Store.DSN == "" {
			return NewAppError(CodeConfig, "DB_URL is required for the postgres store", ErrInvalidInput)
		}
	default:
		return NewAppError(CodeConfig, fmt.Sprintf("unknown STORE_DRIVER %q", c.Store.Driver), ErrInvalidInput)
	}
	if c.Pipeline.ChunkSize <= 0 {
		return NewAppError(CodeConfig, "CHUNK_SIZE must be positive", ErrInvalidInput)
	}
	return nil
}
