// Package fileloader loads service configuration from a YAML file with
// environment variable overrides.
package fileloader

import (
	"context"
	"errors"
	"fmt"
	"os"
	"strings"

	"github.com/spf13/viper"

	"github.com/ahrav/insight-stream/internal/config"
)

// Loader reads configuration from a file path, applying defaults for any
// values the file omits. Environment variables prefixed with INSIGHT_
// override both, e.g. INSIGHT_API_PORT=8080.
type Loader struct {
	path string
}

// NewLoader creates a file loader for the given path. An empty path loads
// defaults plus environment overrides only.
func NewLoader(path string) *Loader {
	return &Loader{path: path}
}

// Load implements config.Loader.
func (l *Loader) Load(ctx context.Context) (*config.Config, error) {
	v := viper.New()

	defaults := config.Default()
	v.SetDefault("api.host", defaults.API.Host)
	v.SetDefault("api.port", defaults.API.Port)
	v.SetDefault("api.debug_host", defaults.API.DebugHost)
	v.SetDefault("api.read_timeout", defaults.API.ReadTimeout)
	v.SetDefault("api.idle_timeout", defaults.API.IdleTimeout)
	v.SetDefault("api.shutdown_timeout", defaults.API.ShutdownTimeout)
	v.SetDefault("stream.heartbeat_interval", defaults.Stream.HeartbeatInterval)
	v.SetDefault("stream.request_budget", defaults.Stream.RequestBudget)
	v.SetDefault("stream.max_body_bytes", defaults.Stream.MaxBodyBytes)
	v.SetDefault("rate_limit.requests", defaults.RateLimit.Requests)
	v.SetDefault("rate_limit.window", defaults.RateLimit.Window)
	v.SetDefault("backend.mode", defaults.Backend.Mode)
	v.SetDefault("backend.endpoint", defaults.Backend.Endpoint)
	v.SetDefault("backend.api_key", defaults.Backend.APIKey)
	v.SetDefault("backend.timeout", defaults.Backend.Timeout)
	v.SetDefault("backend.rps", defaults.Backend.RPS)
	v.SetDefault("backend.burst", defaults.Backend.Burst)
	v.SetDefault("telemetry.service_name", defaults.Telemetry.ServiceName)
	v.SetDefault("telemetry.endpoint", defaults.Telemetry.Endpoint)
	v.SetDefault("telemetry.probability", defaults.Telemetry.Probability)

	v.SetEnvPrefix("INSIGHT")
	v.SetEnvKeyReplacer(strings.NewReplacer(".", "_"))
	v.AutomaticEnv()

	if l.path != "" {
		v.SetConfigFile(l.path)
		if err := v.ReadInConfig(); err != nil {
			if !errors.Is(err, os.ErrNotExist) {
				return nil, fmt.Errorf("reading config file %s: %w", l.path, err)
			}
		}
	}

	var cfg config.Config
	if err := v.Unmarshal(&cfg); err != nil {
		return nil, fmt.Errorf("unmarshaling config: %w", err)
	}

	return &cfg, nil
}
