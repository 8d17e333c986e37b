//go:build wireinject
// +build wireinject

// The build tag makes sure the stub is not built in the final build.

package injector

import (
	"github.com/google/wire"
	"github.com/prometheus/client_golang/prometheus"

	"github.com/zeusync/eventscope/internal/config"
	"github.com/zeusync/eventscope/internal/core/manager"
	"github.com/zeusync/eventscope/internal/core/project"
)

func InitializeManager(p *project.Project, cfg config.Config, reg prometheus.Registerer) (*manager.Manager, error) {
	wire.Build(ProviderSet)
	return nil, nil
}
