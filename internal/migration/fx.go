package migration

import (
	"github.com/smallsites/sitebill/internal/config"
	ledgerdomain "github.com/smallsites/sitebill/internal/ledger/domain"
	registrydomain "github.com/smallsites/sitebill/internal/registry/domain"
	"github.com/smallsites/sitebill/internal/seed"
	snapshotdomain "github.com/smallsites/sitebill/internal/snapshot/domain"
	"go.uber.org/fx"
	"gorm.io/gorm"
)

var Module = fx.Module("migrations",
	fx.Invoke(func(conn *gorm.DB, cfg config.Config) error {
		if cfg.DBType != "postgres" {
			// mysql/sqlite dev setups use gorm's schema sync; the versioned
			// SQL targets postgres.
			if err := conn.AutoMigrate(
				&registrydomain.Registration{},
				&ledgerdomain.PaymentEvent{},
				&snapshotdomain.AccountSnapshot{},
			); err != nil {
				return err
			}
		} else {
			sqlDB, err := conn.DB()
			if err != nil {
				return err
			}
			if err := RunMigrations(sqlDB); err != nil {
				return err
			}
		}

		if cfg.SeedDemoData {
			return seed.EnsureDemoRegistrations(conn)
		}
		return nil
	}),
)
