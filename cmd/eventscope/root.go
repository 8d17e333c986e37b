package main

import (
	"errors"
	"fmt"
	"strings"

	"github.com/prometheus/client_golang/prometheus"
	"github.com/spf13/cobra"
	"github.com/spf13/viper"

	"github.com/zeusync/eventscope/internal/config"
	"github.com/zeusync/eventscope/internal/core/manager"
	"github.com/zeusync/eventscope/internal/core/project"
	"github.com/zeusync/eventscope/internal/injector"
)

var version = "dev"

// app carries the per-invocation configuration shared by every subcommand.
type app struct {
	v       *viper.Viper
	cfgFile string
	cfg     config.Config
}

func newRootCmd() *cobra.Command {
	a := &app{v: viper.New()}

	root := &cobra.Command{
		Use:          "eventscope",
		Short:        "Index events, listeners and event references across scene containers",
		Version:      version,
		SilenceUsage: true,
		PersistentPreRunE: func(cmd *cobra.Command, _ []string) error {
			return a.initConfig(cmd)
		},
	}

	flags := root.PersistentFlags()
	flags.StringVarP(&a.cfgFile, "config", "c", "", "config file (default: ./eventscope.yaml)")
	flags.StringP("project", "p", "", "project file (.yaml, .yml, .json or .toml)")
	flags.String("log-level", "", "log level: debug, info, warn, error or silent")
	flags.Duration("cooldown", 0, "minimum time between automatic rescans")
	flags.Bool("no-field-reflection", false, "only inspect declared fields, never reflect over units")
	flags.String("trace", "", "trace exporter: none or stdout (spans go to stderr)")

	_ = a.v.BindPFlag("project", flags.Lookup("project"))
	_ = a.v.BindPFlag("log_level", flags.Lookup("log-level"))
	_ = a.v.BindPFlag("cooldown", flags.Lookup("cooldown"))
	_ = a.v.BindPFlag("disable_field_reflection", flags.Lookup("no-field-reflection"))
	_ = a.v.BindPFlag("tracing.exporter", flags.Lookup("trace"))

	root.AddCommand(
		newStatsCmd(a),
		newEventsCmd(a),
		newListenersCmd(a),
		newRefsCmd(a),
		newFindCmd(a),
		newWatchCmd(a),
		newServeCmd(a),
	)
	return root
}

func (a *app) initConfig(_ *cobra.Command) error {
	defaults := config.Defaults()
	a.v.SetDefault("cooldown", defaults.Cooldown)
	a.v.SetDefault("poll_interval", defaults.PollInterval)
	a.v.SetDefault("log_level", defaults.LogLevel)
	a.v.SetDefault("disable_field_reflection", defaults.DisableFieldReflection)
	a.v.SetDefault("serve.addr", defaults.Serve.Addr)
	a.v.SetDefault("serve.feed_path", defaults.Serve.FeedPath)
	a.v.SetDefault("serve.metrics_path", defaults.Serve.MetricsPath)
	a.v.SetDefault("tracing.exporter", defaults.Tracing.Exporter)
	a.v.SetDefault("tracing.service_name", defaults.Tracing.ServiceName)

	a.v.SetEnvPrefix("EVENTSCOPE")
	a.v.SetEnvKeyReplacer(strings.NewReplacer(".", "_"))
	a.v.AutomaticEnv()

	if a.cfgFile != "" {
		a.v.SetConfigFile(a.cfgFile)
	} else {
		a.v.AddConfigPath(".")
		a.v.SetConfigName("eventscope")
	}
	if err := a.v.ReadInConfig(); err != nil {
		var notFound viper.ConfigFileNotFoundError
		if a.cfgFile != "" || !errors.As(err, &notFound) {
			return fmt.Errorf("reading config: %w", err)
		}
	}

	if err := a.v.Unmarshal(&a.cfg); err != nil {
		return fmt.Errorf("decoding config: %w", err)
	}
	return a.cfg.Validate()
}

// open loads the project and builds a manager with a fresh index.
func (a *app) open() (*manager.Manager, *prometheus.Registry, error) {
	if a.cfg.Project == "" {
		return nil, nil, errors.New("no project file: pass --project or set project in the config")
	}
	p, err := project.Load(a.cfg.Project, project.NewRegistry())
	if err != nil {
		return nil, nil, err
	}
	reg := prometheus.NewRegistry()
	m, err := injector.InitializeManager(p, a.cfg, reg)
	if err != nil {
		return nil, nil, err
	}
	m.Rescan()
	return m, reg, nil
}
