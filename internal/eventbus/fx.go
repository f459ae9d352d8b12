package eventbus

import (
	"context"

	"github.com/campusworks/acadia/internal/config"
	"github.com/campusworks/acadia/pkg/backoff"
	"github.com/prometheus/client_golang/prometheus"
	"go.uber.org/fx"
	"go.uber.org/zap"
)

// Module wires the bus client into a service. Domain modules contribute
// subscriptions through the "eventbus.subscriptions" group; services without
// consumers simply contribute none.
var Module = fx.Module("eventbus",
	fx.Provide(
		provideMetrics,
		NewDeadLetterStore,
		providePublisher,
	),
	fx.Invoke(runConsumers),
)

func provideMetrics() (*Metrics, error) {
	m := NewMetrics()
	if err := m.Register(prometheus.DefaultRegisterer); err != nil {
		return nil, err
	}
	return m, nil
}

func providePublisher(lc fx.Lifecycle, cfg config.Config, log *zap.Logger, metrics *Metrics) Publisher {
	p := NewPublisher(cfg.KafkaBrokers, log.Named("eventbus.publisher"), metrics)

	lc.Append(fx.Hook{
		OnStart: func(ctx context.Context) error {
			return p.VerifyConnectivity(ctx, cfg.KafkaBrokers, backoff.Default())
		},
		OnStop: func(context.Context) error {
			return p.Close()
		},
	})

	return p
}

type consumerParams struct {
	fx.In

	Cfg           config.Config
	Log           *zap.Logger
	Metrics       *Metrics
	DeadLetters   *DeadLetterStore
	Subscriptions []Subscription `group:"eventbus.subscriptions"`
}

func runConsumers(lc fx.Lifecycle, p consumerParams) {
	if len(p.Subscriptions) == 0 {
		return
	}

	consumers := make([]*Consumer, 0, len(p.Subscriptions))
	for _, sub := range p.Subscriptions {
		consumers = append(consumers, NewConsumer(p.Cfg.KafkaBrokers, p.Cfg.KafkaGroupID, sub, p.DeadLetters, p.Log, p.Metrics))
	}

	runCtx, cancel := context.WithCancel(context.Background())
	lc.Append(fx.Hook{
		OnStart: func(context.Context) error {
			for _, c := range consumers {
				go c.Run(runCtx)
			}
			return nil
		},
		OnStop: func(context.Context) error {
			cancel()
			for _, c := range consumers {
				_ = c.Close()
			}
			return nil
		},
	})
}
