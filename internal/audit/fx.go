package audit

import (
	"github.com/campusworks/acadia/internal/audit/repository"
	"github.com/campusworks/acadia/internal/audit/service"
	"github.com/campusworks/acadia/internal/projection"
	"go.uber.org/fx"
)

var Module = fx.Module("audit.service",
	fx.Provide(repository.NewRepository),
	fx.Provide(provideDirectory),
	fx.Provide(service.NewService),
)

func provideDirectory(p *projection.Projector) service.UserDirectory {
	return p
}
