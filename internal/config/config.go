// Package config holds the runtime configuration of eventscope and its defaults.
package config

import (
	"errors"
	"fmt"
	"time"

	"github.com/zeusync/eventscope/internal/core/observability/log"
)

// Config holds all configuration options. The CLI fills zero values from Defaults
// through viper.SetDefault; the core treats a zero Config as usable, with the
// default cooldown and field reflection enabled.
type Config struct {
	// Project is the project file (.yaml, .yml, .json or .toml).
	Project string `mapstructure:"project"`
	// Cooldown bounds index staleness between automatic rescans.
	Cooldown time.Duration `mapstructure:"cooldown"`
	// PollInterval is how often watch and serve drive the poll cycle.
	PollInterval time.Duration `mapstructure:"poll_interval"`
	LogLevel     string        `mapstructure:"log_level"`
	// DisableFieldReflection turns off the reflection fallback of field discovery;
	// only Describer units and registered descriptors are then inspected.
	DisableFieldReflection bool          `mapstructure:"disable_field_reflection"`
	Serve                  ServeConfig   `mapstructure:"serve"`
	Tracing                TracingConfig `mapstructure:"tracing"`
}

// ServeConfig configures the statistics feed server.
type ServeConfig struct {
	Addr        string `mapstructure:"addr"`
	FeedPath    string `mapstructure:"feed_path"`
	MetricsPath string `mapstructure:"metrics_path"`
}

// TracingConfig selects where scan spans go. Exporter is "none" or "stdout".
type TracingConfig struct {
	Exporter    string `mapstructure:"exporter"`
	ServiceName string `mapstructure:"service_name"`
}

func Defaults() Config {
	return Config{
		Cooldown:     4 * time.Second,
		PollInterval: 250 * time.Millisecond,
		LogLevel:     "info",
		Serve: ServeConfig{
			Addr:        "127.0.0.1:8740",
			FeedPath:    "/feed",
			MetricsPath: "/metrics",
		},
		Tracing: TracingConfig{
			Exporter:    "none",
			ServiceName: "eventscope",
		},
	}
}

var ErrInvalid = errors.New("config: invalid")

// Validate checks the values that cannot be defaulted silently.
func (c Config) Validate() error {
	var errs []error
	if c.Cooldown <= 0 {
		errs = append(errs, fmt.Errorf("%w: cooldown must be positive, got %s", ErrInvalid, c.Cooldown))
	}
	if c.PollInterval <= 0 {
		errs = append(errs, fmt.Errorf("%w: poll_interval must be positive, got %s", ErrInvalid, c.PollInterval))
	}
	switch c.Tracing.Exporter {
	case "", "none", "stdout":
	default:
		errs = append(errs, fmt.Errorf("%w: unsupported tracing exporter %q", ErrInvalid, c.Tracing.Exporter))
	}
	if _, err := log.ParseLevel(c.LogLevel); err != nil {
		errs = append(errs, fmt.Errorf("%w: %v", ErrInvalid, err))
	}
	if c.Serve.FeedPath != "" && c.Serve.FeedPath == c.Serve.MetricsPath {
		errs = append(errs, fmt.Errorf("%w: feed_path and metrics_path collide on %s", ErrInvalid, c.Serve.FeedPath))
	}
	return errors.Join(errs...)
}

// Level returns the parsed log level, info when unparsable.
func (c Config) Level() log.Level {
	level, _ := log.ParseLevel(c.LogLevel)
	return level
}
