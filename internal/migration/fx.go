package migration

import (
	"go.uber.org/fx"
	"gorm.io/gorm"
)

// ModuleFor applies the service's schema before anything else touches the
// database.
func ModuleFor(service string) fx.Option {
	return fx.Module("migrations",
		fx.Invoke(func(conn *gorm.DB) error {
			sqlDB, err := conn.DB()
			if err != nil {
				return err
			}
			return RunMigrations(sqlDB, service)
		}),
	)
}
