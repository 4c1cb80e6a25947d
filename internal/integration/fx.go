package integration

import (
	"github.com/hostwise/nightly/internal/config"
	"github.com/hostwise/nightly/internal/integration/repository"
	"github.com/hostwise/nightly/internal/integration/secret"
	"github.com/hostwise/nightly/internal/integration/service"
	"go.uber.org/fx"
	"go.uber.org/zap"
)

var Module = fx.Module("integration.service",
	fx.Provide(newSealer),
	fx.Provide(repository.Provide),
	fx.Provide(service.New),
)

// devCredentialsKey keeps local setups working without CREDENTIALS_KEY.
// Production deployments must set their own key.
const devCredentialsKey = "nightly-dev-credentials-key-0000"

func newSealer(cfg config.Config, log *zap.Logger) (*secret.Sealer, error) {
	key := cfg.CredentialsKey
	if key == "" {
		log.Warn("integration.credentials_key_missing", zap.String("fallback", "dev key"))
		key = devCredentialsKey
	}
	return secret.NewSealer(key)
}
