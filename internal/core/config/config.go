package config

import (
	"time"

	"github.com/bantoinese83/gemini-exec/pkg/batch"
	"github.com/bantoinese83/gemini-exec/pkg/retry"
)

// AppConfig represents the top-level configuration.
type AppConfig struct {
	Server  ServerConfig  `yaml:"server"`
	Logging LoggingConfig `yaml:"logging"`
	Retry   RetryConfig   `yaml:"retry"`
	Batch   BatchConfig   `yaml:"batch"`
	Probe   ProbeConfig   `yaml:"probe"`
}

// ServerConfig holds health/metrics HTTP server settings.
type ServerConfig struct {
	Port int `yaml:"port" validate:"gte=0,lte=65535"`
}

// LoggingConfig holds logging configuration.
type LoggingConfig struct {
	Level  string `yaml:"level"`  // debug, info, warn, error
	Format string `yaml:"format"` // json, text
}

// RetryConfig mirrors retry.Policy with YAML-friendly millisecond fields.
// Unset fields fall back to retry.DefaultPolicy values.
type RetryConfig struct {
	MaxRetries         *int    `yaml:"max_retries"`
	InitialDelayMs     int     `yaml:"initial_delay_ms"`
	MaxDelayMs         int     `yaml:"max_delay_ms"`
	BackoffMultiplier  float64 `yaml:"backoff_multiplier"`
	RetryOnRateLimit   *bool   `yaml:"retry_on_rate_limit"`
	RetryOnServerError *bool   `yaml:"retry_on_server_error"`
	MaxElapsedMs       int     `yaml:"max_elapsed_ms"`
}

// Policy materializes the section into a validated retry.Policy.
func (c RetryConfig) Policy() (retry.Policy, error) {
	p := retry.DefaultPolicy()
	if c.MaxRetries != nil {
		p.MaxRetries = *c.MaxRetries
	}
	if c.InitialDelayMs > 0 {
		p.InitialDelay = time.Duration(c.InitialDelayMs) * time.Millisecond
	}
	if c.MaxDelayMs > 0 {
		p.MaxDelay = time.Duration(c.MaxDelayMs) * time.Millisecond
	}
	if c.BackoffMultiplier > 0 {
		p.BackoffMultiplier = c.BackoffMultiplier
	}
	if c.RetryOnRateLimit != nil {
		p.RetryOnRateLimit = *c.RetryOnRateLimit
	}
	if c.RetryOnServerError != nil {
		p.RetryOnServerError = *c.RetryOnServerError
	}
	if c.MaxElapsedMs > 0 {
		p.MaxElapsed = time.Duration(c.MaxElapsedMs) * time.Millisecond
	}
	if err := p.Validate(); err != nil {
		return retry.Policy{}, err
	}
	return p, nil
}

// BatchConfig mirrors batch.Config.
type BatchConfig struct {
	Concurrency int   `yaml:"concurrency"`
	Retry       *bool `yaml:"retry"`
}

// Config materializes the section into a validated batch.Config.
func (c BatchConfig) Config() (batch.Config, error) {
	cfg := batch.DefaultConfig()
	if c.Concurrency > 0 {
		cfg.Concurrency = c.Concurrency
	}
	if c.Retry != nil {
		cfg.Retry = *c.Retry
	}
	if err := cfg.Validate(); err != nil {
		return batch.Config{}, err
	}
	return cfg, nil
}

// ProbeConfig holds settings for the probe loop.
type ProbeConfig struct {
	IntervalMs int            `yaml:"interval_ms" validate:"gte=0"`
	Targets    []TargetConfig `yaml:"targets"     validate:"min=1,dive"`
}

// Interval returns the probe interval as a duration.
func (c ProbeConfig) Interval() time.Duration {
	return time.Duration(c.IntervalMs) * time.Millisecond
}

// TargetConfig holds settings for a single probe target.
type TargetConfig struct {
	Name      string `yaml:"name"       validate:"required"`
	URL       string `yaml:"url"        validate:"required,url"`
	TimeoutMs int    `yaml:"timeout_ms" validate:"gte=0"`
}

// Timeout returns the per-request timeout as a duration.
func (c TargetConfig) Timeout() time.Duration {
	return time.Duration(c.TimeoutMs) * time.Millisecond
}
