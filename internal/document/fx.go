package document

import (
	"github.com/campusworks/acadia/internal/document/repository"
	"github.com/campusworks/acadia/internal/document/service"
	"go.uber.org/fx"
)

var Module = fx.Module("document.service",
	fx.Provide(repository.NewRepository),
	fx.Provide(service.NewService),
)
