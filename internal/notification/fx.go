package notification

import (
	"github.com/campusworks/acadia/internal/eventbus"
	"go.uber.org/fx"
	"go.uber.org/zap"
)

var Module = fx.Module("notification.service",
	fx.Provide(provideNotifier),
	fx.Provide(NewConsumer),
	fx.Provide(fx.Annotate(
		subscriptions,
		fx.ResultTags(`group:"eventbus.subscriptions,flatten"`),
	)),
)

func provideNotifier(log *zap.Logger) Notifier {
	return NewLogNotifier(log)
}

func subscriptions(c *Consumer) []eventbus.Subscription {
	return c.Subscriptions()
}
