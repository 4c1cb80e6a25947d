package ai

import (
	"github.com/hostwise/nightly/internal/ai/client"
	"github.com/hostwise/nightly/internal/ai/fetcher"
	"github.com/hostwise/nightly/internal/ai/quota"
	"github.com/hostwise/nightly/internal/ai/service"
	"github.com/hostwise/nightly/internal/clock"
	"github.com/hostwise/nightly/internal/config"
	"go.uber.org/fx"
	"go.uber.org/zap"
	"gorm.io/gorm"
)

var Module = fx.Module("ai.service",
	fx.Provide(newClient),
	fx.Provide(newQuota),
	fx.Provide(fetcher.New),
	fx.Provide(service.New),
)

func newClient(cfg config.Config, log *zap.Logger) *client.Client {
	return client.New(client.Config{
		BaseURL: cfg.LLMAPIBase,
		APIKey:  cfg.LLMAPIKey,
		Model:   cfg.LLMModel,
	}, log)
}

func newQuota(db *gorm.DB, clk clock.Clock) *quota.Keeper {
	return quota.New(db, clk)
}
