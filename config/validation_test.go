package config

import (
	"testing"
	"time"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
)

func TestValidatorChecks(t *testing.T) {
	tests := []struct {
		name      string
		check     func(v *Validator)
		wantError bool
	}{
		{name: "non-empty value", check: func(v *Validator) { v.RequireNonEmpty("f", "valid") }},
		{name: "blank value", check: func(v *Validator) { v.RequireNonEmpty("f", "  ") }, wantError: true},
		{name: "positive int", check: func(v *Validator) { v.RequirePositive("f", 3) }},
		{name: "zero int", check: func(v *Validator) { v.RequirePositive("f", 0) }, wantError: true},
		{name: "positive duration", check: func(v *Validator) { v.RequirePositiveDuration("f", time.Second) }},
		{name: "zero duration", check: func(v *Validator) { v.RequirePositiveDuration("f", 0) }, wantError: true},
		{name: "in range", check: func(v *Validator) { v.ValidateRange("f", 5, 1, 10) }},
		{name: "above range", check: func(v *Validator) { v.ValidateRange("f", 11, 1, 10) }, wantError: true},
		{name: "float in range", check: func(v *Validator) { v.ValidateFloatRange("f", 0.5, 0, 1) }},
		{name: "float below range", check: func(v *Validator) { v.ValidateFloatRange("f", -0.1, 0, 1) }, wantError: true},
		{name: "valid port", check: func(v *Validator) { v.ValidatePort("f", 5432) }},
		{name: "invalid port", check: func(v *Validator) { v.ValidatePort("f", 70000) }, wantError: true},
		{name: "redis db", check: func(v *Validator) { v.ValidateDBNumber("f", 15) }},
		{name: "redis db too high", check: func(v *Validator) { v.ValidateDBNumber("f", 16) }, wantError: true},
		{name: "one of", check: func(v *Validator) { v.ValidateOneOf("f", "b", "a", "b") }},
		{name: "not one of", check: func(v *Validator) { v.ValidateOneOf("f", "c", "a", "b") }, wantError: true},
	}

	for _, tt := range tests {
		t.Run(tt.name, func(t *testing.T) {
			v := NewValidator()
			tt.check(v)
			assert.Equal(t, tt.wantError, v.HasErrors())
			if tt.wantError {
				assert.Error(t, v.Error())
			} else {
				assert.NoError(t, v.Error())
			}
		})
	}
}

func TestValidatorCollectsEveryError(t *testing.T) {
	v := NewValidator()
	v.RequireNonEmpty("a", "").RequirePositive("b", -1).ValidatePort("c", 0)

	require.Len(t, v.Errors(), 3)
	assert.Equal(t, "a", v.Errors()[0].Field)
	err := v.Error()
	require.Error(t, err)
	assert.Contains(t, err.Error(), "b:")
	assert.Contains(t, err.Error(), "c:")
}

func TestDefaultConfigIsValid(t *testing.T) {
	assert.NoError(t, Default().Validate())
}

func TestValidateRejectsBadGraphBounds(t *testing.T) {
	cfg := Default()
	cfg.Graph.MaxDepth = 0
	cfg.Graph.MinConfidence = 1.5

	err := cfg.Validate()
	require.Error(t, err)
	assert.Contains(t, err.Error(), "graph.max_depth")
	assert.Contains(t, err.Error(), "graph.min_confidence")
}

func TestValidateStoreBackends(t *testing.T) {
	cfg := Default()
	cfg.Memory.Backend = BackendPostgres
	cfg.Memory.Postgres.Host = ""
	cfg.Outcomes.Backend = "sqlite"

	err := cfg.Validate()
	require.Error(t, err)
	assert.Contains(t, err.Error(), "memory.postgres.host")
	assert.Contains(t, err.Error(), "outcomes.backend")
}
