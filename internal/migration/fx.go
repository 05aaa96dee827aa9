package migration

import (
	accountdomain "github.com/draftforge/draftforge/internal/account/domain"
	"github.com/draftforge/draftforge/internal/config"
	generationdomain "github.com/draftforge/draftforge/internal/generation/domain"
	ledgerdomain "github.com/draftforge/draftforge/internal/ledger/domain"
	projectdomain "github.com/draftforge/draftforge/internal/project/domain"
	usagedomain "github.com/draftforge/draftforge/internal/usage/domain"
	"go.uber.org/fx"
	"gorm.io/gorm"
)

var Module = fx.Module("migrations",
	fx.Invoke(func(conn *gorm.DB, cfg config.Config) error {
		if cfg.DBType == "postgres" {
			sqlDB, err := conn.DB()
			if err != nil {
				return err
			}
			return RunMigrations(sqlDB)
		}

		// Versioned SQL is postgres-only; other dialects are for local
		// development and tests where AutoMigrate is enough.
		return conn.AutoMigrate(
			&accountdomain.Account{},
			&ledgerdomain.CreditTransaction{},
			&projectdomain.Project{},
			&generationdomain.GenerationRecord{},
			&usagedomain.UsageEvent{},
		)
	}),
)
