package migration

import (
	"github.com/smallbiznis/praxis/internal/config"
	"github.com/smallbiznis/praxis/internal/seed"
	"go.uber.org/fx"
	"gorm.io/gorm"
)

var Module = fx.Module("migrations",
	fx.Invoke(func(conn *gorm.DB, cfg config.Config) error {
		// golang-migrate only ships a postgres driver here; other dialects
		// (the sqlite test setup) create their schema via AutoMigrate.
		if cfg.DBType == "postgres" {
			sqlDB, err := conn.DB()
			if err != nil {
				return err
			}
			if err := RunMigrations(sqlDB); err != nil {
				return err
			}
		}

		return seed.EnsureDefaults(conn)
	}),
)
