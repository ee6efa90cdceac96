package model

import "time"

// RetryConfig defines backoff for sink deliveries
type RetryConfig struct {
	MaxAttempts       int           `json:"max_attempts" yaml:"max_attempts"`
	InitialDelay      time.Duration `json:"initial_delay" yaml:"initial_delay"`
	MaxDelay          time.Duration `json:"max_delay" yaml:"max_delay"`
	BackoffMultiplier float64       `json:"backoff_multiplier" yaml:"backoff_multiplier"`
	Jitter            bool          `json:"jitter" yaml:"jitter"`
}

// DefaultRetryConfig mirrors the export retry settings
var DefaultRetryConfig = RetryConfig{
	MaxAttempts:       3,
	InitialDelay:      2 * time.Second,
	MaxDelay:          60 * time.Second,
	BackoffMultiplier: 2.0,
	Jitter:            true,
}
