package billing

import (
	"github.com/hostwise/nightly/internal/billing/client"
	"github.com/hostwise/nightly/internal/billing/domain"
	"github.com/hostwise/nightly/internal/billing/repository"
	"github.com/hostwise/nightly/internal/billing/service"
	"github.com/hostwise/nightly/internal/config"
	"go.uber.org/fx"
	"go.uber.org/zap"
)

var Module = fx.Module("billing.service",
	fx.Provide(newProvider),
	fx.Provide(repository.Provide),
	fx.Provide(service.New),
	fx.Provide(service.NewReconciler),
)

func newProvider(cfg config.Config, log *zap.Logger) domain.Provider {
	return client.New(client.Config{
		BaseURL:   cfg.BillingAPIBase,
		SecretKey: cfg.BillingSecretKey,
	}, log)
}
