package config

import (
	"bytes"
	"errors"
	"fmt"
	"io"
	"os"
	"path/filepath"
	"time"

	"gopkg.in/yaml.v3"
)

// Reasoning providers.
const (
	ProviderOpenAI = "openai"
	ProviderClaude = "claude"
	ProviderGemini = "gemini"
)

// Store backends.
const (
	BackendJSONL    = "jsonl"
	BackendMemory   = "memory"
	BackendRedis    = "redis"
	BackendMongo    = "mongo"
	BackendPostgres = "postgres"
)

// Config is the root configuration of the autopilot core. Every recognised
// field is listed here; Load rejects documents carrying any other key.
type Config struct {
	Reasoning  ReasoningConfig  `yaml:"reasoning"`
	Reflection ReflectionConfig `yaml:"reflection"`
	Planner    PlannerConfig    `yaml:"planner"`
	Graph      GraphConfig      `yaml:"graph"`
	Memory     StoreConfig      `yaml:"memory"`
	Outcomes   StoreConfig      `yaml:"outcomes"`
	Audit      StoreConfig      `yaml:"audit"`
	Logging    LoggingConfig    `yaml:"logging"`
	Telemetry  TelemetryConfig  `yaml:"telemetry"`
}

// ReasoningConfig selects and tunes the reasoning-service client.
type ReasoningConfig struct {
	Provider    string        `yaml:"provider"`
	Model       string        `yaml:"model"`
	APIKey      string        `yaml:"api_key"`
	BaseURL     string        `yaml:"base_url"`
	Temperature float64       `yaml:"temperature"`
	MaxTokens   int           `yaml:"max_tokens"`
	Timeout     time.Duration `yaml:"timeout"`
	// RateLimit is requests per second; 0 disables limiting.
	RateLimit float64 `yaml:"rate_limit"`
	Burst     int     `yaml:"burst"`
}

// ReflectionConfig tunes the reflection engine.
type ReflectionConfig struct {
	Timeout           time.Duration `yaml:"timeout"`
	MaxTokens         int           `yaml:"max_tokens"`
	Temperature       float64       `yaml:"temperature"`
	PromptTokenBudget int           `yaml:"prompt_token_budget"`
	Tokenizer         string        `yaml:"tokenizer"`
}

// PlannerConfig tunes instruction planning.
type PlannerConfig struct {
	Timeout         time.Duration `yaml:"timeout"`
	Temperature     float64       `yaml:"temperature"`
	MaxTokens       int           `yaml:"max_tokens"`
	DisableFallback bool          `yaml:"disable_fallback"`
}

// GraphConfig bounds the lookahead search.
type GraphConfig struct {
	MaxDepth            int     `yaml:"max_depth"`
	MaxBranchesPerLevel int     `yaml:"max_branches_per_level"`
	MinConfidence       float64 `yaml:"min_confidence"`
	MaxTotalPaths       int     `yaml:"max_total_paths"`
}

// StoreConfig selects an append-only log backend.
type StoreConfig struct {
	Backend  string         `yaml:"backend"`
	Path     string         `yaml:"path"`
	Redis    RedisConfig    `yaml:"redis"`
	Mongo    MongoConfig    `yaml:"mongo"`
	Postgres PostgresConfig `yaml:"postgres"`
}

// RedisConfig holds Redis connection settings.
type RedisConfig struct {
	Addr     string `yaml:"addr"`
	Password string `yaml:"password"`
	DB       int    `yaml:"db"`
	Key      string `yaml:"key"`
}

// MongoConfig holds MongoDB connection settings.
type MongoConfig struct {
	URI        string `yaml:"uri"`
	Database   string `yaml:"database"`
	Collection string `yaml:"collection"`
}

// PostgresConfig holds PostgreSQL connection settings.
type PostgresConfig struct {
	Host     string `yaml:"host"`
	Port     int    `yaml:"port"`
	User     string `yaml:"user"`
	Password string `yaml:"password"`
	DBName   string `yaml:"dbname"`
	SSLMode  string `yaml:"sslmode"`
	Table    string `yaml:"table"`
}

// DSN renders a lib/pq connection string.
func (p PostgresConfig) DSN() string {
	return fmt.Sprintf("host=%s port=%d user=%s password=%s dbname=%s sslmode=%s",
		p.Host, p.Port, p.User, p.Password, p.DBName, p.SSLMode)
}

// LoggingConfig mirrors pkg/logging options.
type LoggingConfig struct {
	Level  string `yaml:"level"`
	Format string `yaml:"format"`
	File   string `yaml:"file"`
}

// TelemetryConfig mirrors pkg/telemetry options.
type TelemetryConfig struct {
	Disable        bool   `yaml:"disable"`
	ServiceName    string `yaml:"service_name"`
	ServiceVersion string `yaml:"service_version"`
	Environment    string `yaml:"environment"`
	// Exporter is "otlp", "stdout" or empty for automatic selection.
	Exporter string `yaml:"exporter"`
	Endpoint string `yaml:"endpoint"`
}

// Default returns the configuration used when no file is supplied.
func Default() *Config {
	dataDir := ".autopilot"
	return &Config{
		Reasoning: ReasoningConfig{
			Provider:    ProviderOpenAI,
			Model:       "gpt-4o-mini",
			Temperature: 0.3,
			MaxTokens:   2000,
			Timeout:     30 * time.Second,
			Burst:       1,
		},
		Reflection: ReflectionConfig{
			Timeout:           20 * time.Second,
			MaxTokens:         800,
			Temperature:       0.3,
			PromptTokenBudget: 6000,
			Tokenizer:         "cl100k_base",
		},
		Planner: PlannerConfig{
			Timeout:     15 * time.Second,
			Temperature: 0.2,
			MaxTokens:   1500,
		},
		Graph: GraphConfig{
			MaxDepth:            2,
			MaxBranchesPerLevel: 2,
			MinConfidence:       0.3,
			MaxTotalPaths:       10,
		},
		Memory:   defaultStore(filepath.Join(dataDir, "episodes.jsonl"), "episodes"),
		Outcomes: defaultStore(filepath.Join(dataDir, "outcomes.jsonl"), "outcomes"),
		Audit:    defaultStore(filepath.Join(dataDir, "audit.jsonl"), "audit"),
		Logging: LoggingConfig{
			Level:  "info",
			Format: "json",
		},
		Telemetry: TelemetryConfig{
			Disable:     true,
			ServiceName: "ai-autopilot",
		},
	}
}

func defaultStore(path, name string) StoreConfig {
	return StoreConfig{
		Backend: BackendJSONL,
		Path:    path,
		Redis: RedisConfig{
			Addr: "localhost:6379",
			Key:  "ai-autopilot:" + name,
		},
		Mongo: MongoConfig{
			URI:        "mongodb://localhost:27017",
			Database:   "ai_autopilot",
			Collection: name,
		},
		Postgres: PostgresConfig{
			Host:    "localhost",
			Port:    5432,
			User:    "postgres",
			DBName:  "ai_autopilot",
			SSLMode: "disable",
			Table:   "autopilot_records",
		},
	}
}

// Load reads a YAML file on top of Default, applies environment overrides
// and validates the result. An empty path skips the file.
func Load(path string) (*Config, error) {
	cfg := Default()
	if path != "" {
		data, err := os.ReadFile(path)
		if err != nil {
			return nil, fmt.Errorf("read config %s: %w", path, err)
		}
		if err := Decode(bytes.NewReader(data), cfg); err != nil {
			return nil, fmt.Errorf("parse config %s: %w", path, err)
		}
	}
	ApplyEnv(cfg)
	if err := cfg.Validate(); err != nil {
		return nil, err
	}
	return cfg, nil
}

// Decode parses YAML into cfg, rejecting unknown fields.
func Decode(r io.Reader, cfg *Config) error {
	dec := yaml.NewDecoder(r)
	dec.KnownFields(true)
	if err := dec.Decode(cfg); err != nil && !errors.Is(err, io.EOF) {
		return err
	}
	return nil
}
