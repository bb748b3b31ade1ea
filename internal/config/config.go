// Package config provides configuration loading and validation for the CLI.
package config

import (
	"encoding/json"
	"fmt"
	"os"
	"path/filepath"
	"time"

	"github.com/spf13/cast"

	"github.com/regdata/register-pipeline/internal/types"
)

// Config is the pipeline configuration. All fields are optional; missing
// values fall back to defaults, and environment variables override the file.
type Config struct {
	// Validation
	MaxExamples int  `json:"max_examples,omitempty"` // Issue example cap in reports
	Strict      bool `json:"strict,omitempty"`       // Treat warnings as blocking

	// Remediation
	APIKey            string              `json:"api_key,omitempty"`             // Gemini API key
	Models            []string            `json:"models,omitempty"`              // Ordered model fallback chain
	MaxTasks          int                 `json:"max_tasks,omitempty"`           // Task generation cap
	Concurrency       int                 `json:"concurrency,omitempty"`         // Provider call fan-out
	RequestsPerSecond float64             `json:"requests_per_second,omitempty"` // Shared provider budget
	TimeoutSeconds    int                 `json:"timeout_seconds,omitempty"`     // Per-call timeout
	ContextColumns    map[string][]string `json:"context_columns,omitempty"`     // Per-task-type context allowlists

	// Policy
	MinConfidence         float64 `json:"min_confidence,omitempty"`          // Rejection floor (0.0-1.0)
	AutoApplyConfidence   float64 `json:"auto_apply_confidence,omitempty"`   // Auto-apply bar (0.0-1.0)
	AutoApplyLowRisk      *bool   `json:"auto_apply_low_risk,omitempty"`     // Apply LOW risk without review
	RequireManualApproval bool    `json:"require_manual_approval,omitempty"` // Hold everything for review
}

// Default returns the operational defaults.
func Default() *Config {
	autoApply := true
	return &Config{
		MaxExamples:         5,
		Models:              []string{"gemini-2.0-flash", "gemini-1.5-flash"},
		MaxTasks:            200,
		Concurrency:         4,
		RequestsPerSecond:   2,
		TimeoutSeconds:      30,
		MinConfidence:       0.5,
		AutoApplyConfidence: 0.9,
		AutoApplyLowRisk:    &autoApply,
	}
}

// Load reads a JSON config file and layers environment overrides on top of
// the defaults. An empty path loads defaults plus environment only.
func Load(path string) (*Config, error) {
	cfg := Default()

	if path != "" {
		if !filepath.IsAbs(path) {
			cwd, err := os.Getwd()
			if err != nil {
				return nil, fmt.Errorf("failed to get current directory: %w", err)
			}
			path = filepath.Join(cwd, path)
		}
		data, err := os.ReadFile(path)
		if err != nil {
			return nil, fmt.Errorf("failed to read config file %s: %w", path, err)
		}
		if err := json.Unmarshal(data, cfg); err != nil {
			return nil, fmt.Errorf("failed to parse config JSON: %w", err)
		}
	}

	cfg.applyEnv()
	return cfg, cfg.Validate()
}

// applyEnv overlays REGISTER_PIPELINE_* environment variables. Values that
// fail to parse are ignored rather than fatal.
func (c *Config) applyEnv() {
	if v := os.Getenv("GEMINI_API_KEY"); v != "" {
		c.APIKey = v
	}
	if v := os.Getenv("REGISTER_PIPELINE_MAX_EXAMPLES"); v != "" {
		c.MaxExamples = cast.ToInt(v)
	}
	if v := os.Getenv("REGISTER_PIPELINE_STRICT"); v != "" {
		c.Strict = cast.ToBool(v)
	}
	if v := os.Getenv("REGISTER_PIPELINE_MAX_TASKS"); v != "" {
		c.MaxTasks = cast.ToInt(v)
	}
	if v := os.Getenv("REGISTER_PIPELINE_CONCURRENCY"); v != "" {
		c.Concurrency = cast.ToInt(v)
	}
	if v := os.Getenv("REGISTER_PIPELINE_RPS"); v != "" {
		c.RequestsPerSecond = cast.ToFloat64(v)
	}
	if v := os.Getenv("REGISTER_PIPELINE_TIMEOUT_SECONDS"); v != "" {
		c.TimeoutSeconds = cast.ToInt(v)
	}
	if v := os.Getenv("REGISTER_PIPELINE_MIN_CONFIDENCE"); v != "" {
		c.MinConfidence = cast.ToFloat64(v)
	}
	if v := os.Getenv("REGISTER_PIPELINE_AUTO_APPLY_CONFIDENCE"); v != "" {
		c.AutoApplyConfidence = cast.ToFloat64(v)
	}
	if v := os.Getenv("REGISTER_PIPELINE_AUTO_APPLY_LOW_RISK"); v != "" {
		b := cast.ToBool(v)
		c.AutoApplyLowRisk = &b
	}
	if v := os.Getenv("REGISTER_PIPELINE_REQUIRE_MANUAL_APPROVAL"); v != "" {
		c.RequireManualApproval = cast.ToBool(v)
	}
}

// Validate checks numeric ranges.
func (c *Config) Validate() error {
	if c.MinConfidence < 0 || c.MinConfidence > 1 {
		return fmt.Errorf("config error: 'min_confidence' must be in [0, 1]")
	}
	if c.AutoApplyConfidence < 0 || c.AutoApplyConfidence > 1 {
		return fmt.Errorf("config error: 'auto_apply_confidence' must be in [0, 1]")
	}
	if c.MaxTasks < 0 {
		return fmt.Errorf("config error: 'max_tasks' must be non-negative")
	}
	if c.Concurrency < 0 {
		return fmt.Errorf("config error: 'concurrency' must be non-negative")
	}
	if c.TimeoutSeconds < 0 {
		return fmt.Errorf("config error: 'timeout_seconds' must be non-negative")
	}
	for taskType := range c.ContextColumns {
		if !types.ValidTaskType(taskType) {
			return fmt.Errorf("config error: 'context_columns' names unknown task type %q", taskType)
		}
	}
	return nil
}

// Timeout returns the per-call timeout as a duration.
func (c *Config) Timeout() time.Duration {
	return time.Duration(c.TimeoutSeconds) * time.Second
}

// AutoApply reports whether LOW risk proposals may be applied unattended.
func (c *Config) AutoApply() bool {
	return c.AutoApplyLowRisk == nil || *c.AutoApplyLowRisk
}
