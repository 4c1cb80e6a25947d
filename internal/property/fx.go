package property

import (
	"github.com/hostwise/nightly/internal/property/repository"
	"github.com/hostwise/nightly/internal/property/service"
	"go.uber.org/fx"
)

var Module = fx.Module("property.service",
	fx.Provide(repository.Provide),
	fx.Provide(repository.ProvideLogs),
	fx.Provide(service.New),
)
