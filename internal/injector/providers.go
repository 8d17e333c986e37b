package injector

import (
	"os"

	"github.com/google/wire"
	"github.com/prometheus/client_golang/prometheus"

	"github.com/zeusync/eventscope/internal/config"
	"github.com/zeusync/eventscope/internal/core/fields"
	"github.com/zeusync/eventscope/internal/core/manager"
	"github.com/zeusync/eventscope/internal/core/notify"
	"github.com/zeusync/eventscope/internal/core/observability/log"
	"github.com/zeusync/eventscope/internal/core/observability/metrics"
	"github.com/zeusync/eventscope/internal/core/observability/tracing"
	"github.com/zeusync/eventscope/internal/core/project"
)

// ProviderSet wires a manager from a loaded project and the runtime config.
var ProviderSet = wire.NewSet(
	ProvideLogger,
	ProvideMetrics,
	ProvideBus,
	ProvideFields,
	ProvideTracing,
	ProvideManager,
)

func ProvideLogger(cfg config.Config) *log.Logger {
	return log.New(cfg.Level())
}

func ProvideMetrics(reg prometheus.Registerer) (*metrics.Prometheus, error) {
	return metrics.NewPrometheus(reg)
}

// ProvideBus returns a notice bus observed by the metrics recorder.
func ProvideBus(rec *metrics.Prometheus) notify.Bus {
	b := notify.New()
	b.AddObserver(rec)
	return b
}

func ProvideFields(cfg config.Config) *fields.Registry {
	return fields.NewRegistry(fields.WithReflection(!cfg.DisableFieldReflection))
}

// ProvideTracing writes spans to stderr when the stdout exporter is selected,
// keeping stdout for command output.
func ProvideTracing(cfg config.Config) (*tracing.Provider, error) {
	return tracing.NewProvider(cfg.Tracing, os.Stderr)
}

func ProvideManager(
	p *project.Project,
	cfg config.Config,
	logger *log.Logger,
	rec *metrics.Prometheus,
	bus notify.Bus,
	fr *fields.Registry,
	tp *tracing.Provider,
) *manager.Manager {
	return manager.New(p, cfg,
		manager.WithLogger(logger),
		manager.WithMetrics(rec),
		manager.WithBus(bus),
		manager.WithFields(fr),
		manager.WithTracer(tp.Tracer()),
	)
}
