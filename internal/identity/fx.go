package identity

import (
	"context"
	"time"

	"github.com/campusworks/acadia/internal/config"
	"github.com/campusworks/acadia/internal/identity/domain"
	"github.com/campusworks/acadia/internal/identity/ratelimit"
	"github.com/campusworks/acadia/internal/identity/repository"
	"github.com/campusworks/acadia/internal/identity/sender"
	"github.com/campusworks/acadia/internal/identity/service"
	"github.com/campusworks/acadia/internal/identity/store"
	"github.com/campusworks/acadia/internal/identity/token"
	"github.com/campusworks/acadia/internal/projection"
	redis "github.com/redis/go-redis/v9"
	"go.uber.org/fx"
	"go.uber.org/zap"
)

var Module = fx.Module("identity.service",
	fx.Provide(NewRedisClient),
	fx.Provide(provideTokenManager),
	fx.Provide(provideSessionStore),
	fx.Provide(provideLoginLimiter),
	fx.Provide(provideSender),
	fx.Provide(provideDirectory),
	fx.Provide(repository.NewRepository),
	fx.Provide(service.NewService),
)

func NewRedisClient(lc fx.Lifecycle, cfg config.Config, log *zap.Logger) (*redis.Client, error) {
	opts, err := redis.ParseURL(cfg.RedisURL)
	if err != nil {
		return nil, err
	}
	client := redis.NewClient(opts)

	lc.Append(fx.Hook{
		OnStart: func(ctx context.Context) error {
			if err := client.Ping(ctx).Err(); err != nil {
				return err
			}
			log.Info("redis connected", zap.String("addr", opts.Addr))
			return nil
		},
		OnStop: func(context.Context) error {
			return client.Close()
		},
	})
	return client, nil
}

func provideTokenManager(cfg config.Config) *token.Manager {
	return token.NewManager(cfg.AccessTokenSecret, 15*time.Minute)
}

func provideSessionStore(client *redis.Client) domain.SessionStore {
	return store.NewRedisSessionStore(client)
}

func provideLoginLimiter(client *redis.Client) domain.LoginLimiter {
	return ratelimit.NewLoginLimiter(client, 5, 15*time.Minute)
}

func provideSender(cfg config.Config, log *zap.Logger) domain.CodeSender {
	return sender.NewLogSender(log, cfg.ClientURL)
}

func provideDirectory(p *projection.Projector) service.TenantDirectory {
	return p
}
