package config

import (
	"os"
	"strconv"
	"time"
)

// ApplyEnv overlays environment variables onto cfg. Explicit AUTOPILOT_*
// variables win over provider-specific API key variables.
func ApplyEnv(cfg *Config) {
	r := &cfg.Reasoning
	r.Provider = getEnv("AUTOPILOT_PROVIDER", r.Provider)
	r.Model = getEnv("AUTOPILOT_MODEL", r.Model)
	r.BaseURL = getEnv("AUTOPILOT_BASE_URL", r.BaseURL)
	r.Timeout = getEnvDuration("AUTOPILOT_TIMEOUT", r.Timeout)
	if r.APIKey == "" {
		switch r.Provider {
		case ProviderOpenAI:
			r.APIKey = os.Getenv("OPENAI_API_KEY")
		case ProviderClaude:
			r.APIKey = os.Getenv("ANTHROPIC_API_KEY")
		case ProviderGemini:
			r.APIKey = os.Getenv("GEMINI_API_KEY")
		}
	}
	r.APIKey = getEnv("AUTOPILOT_API_KEY", r.APIKey)

	cfg.Planner.Timeout = getEnvDuration("AUTOPILOT_PLANNER_TIMEOUT", cfg.Planner.Timeout)

	cfg.Logging.Level = getEnv("AUTOPILOT_LOG_LEVEL", cfg.Logging.Level)
	cfg.Logging.Format = getEnv("AUTOPILOT_LOG_FORMAT", cfg.Logging.Format)
	cfg.Logging.File = getEnv("AUTOPILOT_LOG_FILE", cfg.Logging.File)
	cfg.Telemetry.Exporter = getEnv("AUTOPILOT_TRACE_EXPORTER", cfg.Telemetry.Exporter)

	applyStoreEnv(&cfg.Memory)
	applyStoreEnv(&cfg.Outcomes)
	applyStoreEnv(&cfg.Audit)
}

func applyStoreEnv(s *StoreConfig) {
	s.Redis.Addr = getEnv("REDIS_ADDR", s.Redis.Addr)
	s.Redis.Password = getEnv("REDIS_PASSWORD", s.Redis.Password)
	s.Redis.DB = getEnvInt("REDIS_DB", s.Redis.DB)

	s.Mongo.URI = getEnv("MONGODB_URI", s.Mongo.URI)
	s.Mongo.Database = getEnv("MONGODB_DB", s.Mongo.Database)

	s.Postgres.Host = getEnv("POSTGRES_HOST", s.Postgres.Host)
	s.Postgres.Port = getEnvInt("POSTGRES_PORT", s.Postgres.Port)
	s.Postgres.User = getEnv("POSTGRES_USER", s.Postgres.User)
	s.Postgres.Password = getEnv("POSTGRES_PASSWORD", s.Postgres.Password)
	s.Postgres.DBName = getEnv("POSTGRES_DB", s.Postgres.DBName)
	s.Postgres.SSLMode = getEnv("POSTGRES_SSLMODE", s.Postgres.SSLMode)
}

func getEnv(key, defaultValue string) string {
	if value := os.Getenv(key); value != "" {
		return value
	}
	return defaultValue
}

func getEnvInt(key string, defaultValue int) int {
	if value := os.Getenv(key); value != "" {
		if intVal, err := strconv.Atoi(value); err == nil {
			return intVal
		}
	}
	return defaultValue
}

func getEnvDuration(key string, defaultValue time.Duration) time.Duration {
	if value := os.Getenv(key); value != "" {
		if duration, err := time.ParseDuration(value); err == nil {
			return duration
		}
	}
	return defaultValue
}
