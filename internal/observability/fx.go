package observability

import (
	"strings"

	"github.com/campusworks/acadia/internal/config"
	"github.com/campusworks/acadia/internal/observability/metrics"
	pkglog "github.com/campusworks/acadia/pkg/log"
	"go.uber.org/fx"
)

var Module = fx.Module("observability",
	fx.Provide(
		provideLoggerConfig,
		pkglog.NewLogger,
		metrics.NewHTTPMetrics,
	),
)

func provideLoggerConfig(cfg config.Config) pkglog.Config {
	name := strings.TrimSpace(cfg.AppName)
	if name == "" {
		name = "acadia"
	}
	return pkglog.Config{
		ServiceName: name,
		Debug:       !cfg.IsProduction(),
	}
}
