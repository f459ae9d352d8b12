package projection

import (
	"github.com/campusworks/acadia/internal/config"
	"github.com/campusworks/acadia/internal/eventbus"
	"go.uber.org/fx"
	"go.uber.org/zap"
	"gorm.io/gorm"
)

// ModuleFor wires a replica for one service. The service name selects its
// user-replication predicate from the tenancy policy.
func ModuleFor(service string) fx.Option {
	return fx.Module("projection",
		fx.Provide(func(db *gorm.DB, log *zap.Logger, holder *config.TenancyPolicyHolder) (*Projector, error) {
			p := NewProjector(db, log, holder.Get().ReplicatedRolesFor(service))
			if err := p.Migrate(); err != nil {
				return nil, err
			}
			return p, nil
		}),
		fx.Provide(fx.Annotate(
			func(p *Projector) []eventbus.Subscription { return p.Subscriptions() },
			fx.ResultTags(`group:"eventbus.subscriptions,flatten"`),
		)),
	)
}
