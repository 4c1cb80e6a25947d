package migration

import (
	aidomain "github.com/hostwise/nightly/internal/ai/domain"
	billingdomain "github.com/hostwise/nightly/internal/billing/domain"
	"github.com/hostwise/nightly/internal/config"
	groupdomain "github.com/hostwise/nightly/internal/group/domain"
	integrationdomain "github.com/hostwise/nightly/internal/integration/domain"
	signaldomain "github.com/hostwise/nightly/internal/marketsignal/domain"
	overridedomain "github.com/hostwise/nightly/internal/override/domain"
	ownerdomain "github.com/hostwise/nightly/internal/owner/domain"
	propertydomain "github.com/hostwise/nightly/internal/property/domain"
	reservationdomain "github.com/hostwise/nightly/internal/reservation/domain"
	"github.com/hostwise/nightly/internal/seed"
	trialdomain "github.com/hostwise/nightly/internal/trial/domain"
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
			if err := RunMigrations(sqlDB); err != nil {
				return err
			}
		} else {
			if err := autoMigrate(conn); err != nil {
				return err
			}
		}

		if cfg.SeedDemo && !cfg.IsCloud() {
			return seed.EnsureDemoOwner(conn)
		}
		return nil
	}),
)

func autoMigrate(conn *gorm.DB) error {
	return conn.AutoMigrate(
		&ownerdomain.Owner{},
		&propertydomain.Property{},
		&propertydomain.PropertyLog{},
		&groupdomain.Group{},
		&groupdomain.Membership{},
		&integrationdomain.Integration{},
		&reservationdomain.Reservation{},
		&overridedomain.PriceOverride{},
		&signaldomain.MarketSignal{},
		&aidomain.AIUsageCounter{},
		&billingdomain.Subscription{},
		&billingdomain.BillingEvent{},
		&trialdomain.ListingFingerprint{},
	)
}
