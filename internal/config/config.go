// Package config defines the service configuration and the loading ports.
package config

import "time"

// Config represents the top-level service configuration.
type Config struct {
	API       APIConfig       `yaml:"api" mapstructure:"api"`
	Stream    StreamConfig    `yaml:"stream" mapstructure:"stream"`
	RateLimit RateLimitConfig `yaml:"rate_limit" mapstructure:"rate_limit"`
	Backend   BackendConfig   `yaml:"backend" mapstructure:"backend"`
	Telemetry TelemetryConfig `yaml:"telemetry" mapstructure:"telemetry"`
}

// APIConfig holds the HTTP server settings.
type APIConfig struct {
	Host            string        `yaml:"host" mapstructure:"host"`
	Port            string        `yaml:"port" mapstructure:"port"`
	DebugHost       string        `yaml:"debug_host" mapstructure:"debug_host"`
	ReadTimeout     time.Duration `yaml:"read_timeout" mapstructure:"read_timeout"`
	IdleTimeout     time.Duration `yaml:"idle_timeout" mapstructure:"idle_timeout"`
	ShutdownTimeout time.Duration `yaml:"shutdown_timeout" mapstructure:"shutdown_timeout"`
}

// StreamConfig bounds individual analysis streams.
type StreamConfig struct {
	// HeartbeatInterval is the keepalive cadence on open streams.
	HeartbeatInterval time.Duration `yaml:"heartbeat_interval" mapstructure:"heartbeat_interval"`

	// RequestBudget is the hard wall-clock ceiling for one stream. The
	// heartbeat defeats idle teardown only; it never extends this budget.
	RequestBudget time.Duration `yaml:"request_budget" mapstructure:"request_budget"`

	// MaxBodyBytes caps the request body; larger bodies are rejected with
	// 413 before any stream opens.
	MaxBodyBytes int64 `yaml:"max_body_bytes" mapstructure:"max_body_bytes"`
}

// RateLimitConfig is the fixed-window request budget per client identity.
type RateLimitConfig struct {
	Requests int           `yaml:"requests" mapstructure:"requests"`
	Window   time.Duration `yaml:"window" mapstructure:"window"`
}

// BackendConfig selects and configures the Analysis Backend adapter.
type BackendConfig struct {
	// Mode is "http" or "scripted".
	Mode     string        `yaml:"mode" mapstructure:"mode"`
	Endpoint string        `yaml:"endpoint" mapstructure:"endpoint"`
	APIKey   string        `yaml:"api_key" mapstructure:"api_key"`
	Timeout  time.Duration `yaml:"timeout" mapstructure:"timeout"`
	RPS      float64       `yaml:"rps" mapstructure:"rps"`
	Burst    int           `yaml:"burst" mapstructure:"burst"`
}

// TelemetryConfig configures the OTLP exporters. An empty endpoint disables
// the exporters and the service runs with a no-op tracer.
type TelemetryConfig struct {
	ServiceName string  `yaml:"service_name" mapstructure:"service_name"`
	Endpoint    string  `yaml:"endpoint" mapstructure:"endpoint"`
	Probability float64 `yaml:"probability" mapstructure:"probability"`
}

// Default returns the configuration used when no file or overrides are
// provided.
func Default() *Config {
	return &Config{
		API: APIConfig{
			Host:            "0.0.0.0",
			Port:            "6000",
			DebugHost:       "0.0.0.0:6010",
			ReadTimeout:     5 * time.Second,
			IdleTimeout:     120 * time.Second,
			ShutdownTimeout: 20 * time.Second,
		},
		Stream: StreamConfig{
			HeartbeatInterval: 15 * time.Second,
			RequestBudget:     5 * time.Minute,
			MaxBodyBytes:      1 << 20,
		},
		RateLimit: RateLimitConfig{
			Requests: 10,
			Window:   time.Minute,
		},
		Backend: BackendConfig{
			Mode:    "scripted",
			Timeout: 2 * time.Minute,
			RPS:     2,
			Burst:   2,
		},
		Telemetry: TelemetryConfig{
			ServiceName: "insight-stream",
			Probability: 0.05,
		},
	}
}
