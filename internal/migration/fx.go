package migration

import (
	"github.com/kiranalabs/kirana/internal/config"
	"github.com/kiranalabs/kirana/internal/seed"
	"go.uber.org/fx"
	"gorm.io/gorm"
)

var Module = fx.Module("migrations",
	fx.Invoke(func(conn *gorm.DB, cfg config.Config) error {
		sqlDB, err := conn.DB()
		if err != nil {
			return err
		}

		if err := RunMigrations(sqlDB); err != nil {
			return err
		}

		return seed.EnsureAdmin(conn, cfg.AdminEmail, cfg.AdminToken)
	}),
)
