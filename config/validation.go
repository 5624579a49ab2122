package config

import (
	"errors"
	"fmt"
	"strings"
	"time"
)

// ValidationError represents a configuration validation error
type ValidationError struct {
	Field   string
	Message string
}

func (e ValidationError) Error() string {
	return fmt.Sprintf("config validation failed for field %q: %s", e.Field, e.Message)
}

// Validator accumulates validation failures so that a caller sees every
// problem at once instead of fixing them one by one.
type Validator struct {
	errors []ValidationError
}

// NewValidator creates a new configuration validator
func NewValidator() *Validator {
	return &Validator{
		errors: []ValidationError{},
	}
}

func (v *Validator) fail(field, format string, args ...any) *Validator {
	v.errors = append(v.errors, ValidationError{Field: field, Message: fmt.Sprintf(format, args...)})
	return v
}

// RequireNonEmpty validates that a string field is not empty
func (v *Validator) RequireNonEmpty(field, value string) *Validator {
	if strings.TrimSpace(value) == "" {
		return v.fail(field, "value cannot be empty")
	}
	return v
}

// RequirePositive validates that an integer field is greater than 0
func (v *Validator) RequirePositive(field string, value int) *Validator {
	if value <= 0 {
		return v.fail(field, "value must be positive, got %d", value)
	}
	return v
}

// RequirePositiveDuration validates that a duration is greater than 0
func (v *Validator) RequirePositiveDuration(field string, value time.Duration) *Validator {
	if value <= 0 {
		return v.fail(field, "duration must be positive, got %s", value)
	}
	return v
}

// ValidateRange validates that an integer field is within a range [min, max]
func (v *Validator) ValidateRange(field string, value, min, max int) *Validator {
	if value < min || value > max {
		return v.fail(field, "value must be between %d and %d, got %d", min, max, value)
	}
	return v
}

// ValidateFloatRange validates that a float field is within a range [min, max]
func (v *Validator) ValidateFloatRange(field string, value, min, max float64) *Validator {
	if value < min || value > max {
		return v.fail(field, "value must be between %.2f and %.2f, got %.2f", min, max, value)
	}
	return v
}

// ValidatePort validates that a port number is valid (1-65535)
func (v *Validator) ValidatePort(field string, port int) *Validator {
	return v.ValidateRange(field, port, 1, 65535)
}

// ValidateDBNumber validates that a database number is valid (0-15 for Redis)
func (v *Validator) ValidateDBNumber(field string, db int) *Validator {
	return v.ValidateRange(field, db, 0, 15)
}

// ValidateOneOf validates that a string value is one of the allowed options
func (v *Validator) ValidateOneOf(field string, value string, allowed ...string) *Validator {
	for _, a := range allowed {
		if a == value {
			return v
		}
	}
	return v.fail(field, "value must be one of %v, got %q", allowed, value)
}

// HasErrors returns true if there are any validation errors
func (v *Validator) HasErrors() bool {
	return len(v.errors) > 0
}

// Error returns a combined error message or nil if no errors
func (v *Validator) Error() error {
	if !v.HasErrors() {
		return nil
	}

	var b strings.Builder
	b.WriteString("configuration validation failed:\n")
	for _, e := range v.errors {
		fmt.Fprintf(&b, "  - %s: %s\n", e.Field, e.Message)
	}
	return errors.New(b.String())
}

// Errors returns all validation errors
func (v *Validator) Errors() []ValidationError {
	return v.errors
}

// Validate checks the whole configuration tree.
func (c *Config) Validate() error {
	v := NewValidator()

	r := c.Reasoning
	v.ValidateOneOf("reasoning.provider", r.Provider, ProviderOpenAI, ProviderClaude, ProviderGemini)
	v.RequireNonEmpty("reasoning.model", r.Model)
	v.ValidateFloatRange("reasoning.temperature", r.Temperature, 0.0, 2.0)
	v.RequirePositive("reasoning.max_tokens", r.MaxTokens)
	v.RequirePositiveDuration("reasoning.timeout", r.Timeout)
	if r.RateLimit < 0 {
		v.fail("reasoning.rate_limit", "value cannot be negative, got %.2f", r.RateLimit)
	}

	v.RequirePositiveDuration("reflection.timeout", c.Reflection.Timeout)
	v.RequirePositive("reflection.max_tokens", c.Reflection.MaxTokens)
	v.RequirePositive("reflection.prompt_token_budget", c.Reflection.PromptTokenBudget)

	v.RequirePositiveDuration("planner.timeout", c.Planner.Timeout)
	v.ValidateFloatRange("planner.temperature", c.Planner.Temperature, 0.0, 2.0)
	v.RequirePositive("planner.max_tokens", c.Planner.MaxTokens)

	v.ValidateRange("graph.max_depth", c.Graph.MaxDepth, 1, 5)
	v.ValidateRange("graph.max_branches_per_level", c.Graph.MaxBranchesPerLevel, 1, 5)
	v.ValidateFloatRange("graph.min_confidence", c.Graph.MinConfidence, 0, 1)
	v.RequirePositive("graph.max_total_paths", c.Graph.MaxTotalPaths)

	validateStore(v, "memory", c.Memory)
	validateStore(v, "outcomes", c.Outcomes)
	validateStore(v, "audit", c.Audit)

	v.ValidateOneOf("logging.level", c.Logging.Level, "debug", "info", "warn", "error")
	v.ValidateOneOf("logging.format", c.Logging.Format, "json", "text")
	if !c.Telemetry.Disable {
		v.ValidateOneOf("telemetry.exporter", c.Telemetry.Exporter, "", "otlp", "stdout")
	}

	return v.Error()
}

func validateStore(v *Validator, prefix string, s StoreConfig) {
	v.ValidateOneOf(prefix+".backend", s.Backend, BackendJSONL, BackendMemory, BackendRedis, BackendMongo, BackendPostgres)
	switch s.Backend {
	case BackendJSONL:
		v.RequireNonEmpty(prefix+".path", s.Path)
	case BackendRedis:
		v.RequireNonEmpty(prefix+".redis.addr", s.Redis.Addr)
		v.ValidateDBNumber(prefix+".redis.db", s.Redis.DB)
		v.RequireNonEmpty(prefix+".redis.key", s.Redis.Key)
	case BackendMongo:
		v.RequireNonEmpty(prefix+".mongo.uri", s.Mongo.URI)
		v.RequireNonEmpty(prefix+".mongo.database", s.Mongo.Database)
		v.RequireNonEmpty(prefix+".mongo.collection", s.Mongo.Collection)
	case BackendPostgres:
		p := s.Postgres
		v.RequireNonEmpty(prefix+".postgres.host", p.Host)
		v.ValidatePort(prefix+".postgres.port", p.Port)
		v.RequireNonEmpty(prefix+".postgres.user", p.User)
		v.RequireNonEmpty(prefix+".postgres.dbname", p.DBName)
		v.ValidateOneOf(prefix+".postgres.sslmode", p.SSLMode, "disable", "require", "verify-ca", "verify-full")
		v.RequireNonEmpty(prefix+".postgres.table", p.Table)
	}
}
