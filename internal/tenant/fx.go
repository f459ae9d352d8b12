package tenant

import (
	"github.com/campusworks/acadia/internal/tenant/repository"
	"github.com/campusworks/acadia/internal/tenant/service"
	"go.uber.org/fx"
)

var Module = fx.Module("tenant.service",
	fx.Provide(repository.NewRepository),
	fx.Provide(service.NewService),
)
