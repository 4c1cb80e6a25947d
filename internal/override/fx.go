package override

import (
	"github.com/hostwise/nightly/internal/override/repository"
	"github.com/hostwise/nightly/internal/override/service"
	"go.uber.org/fx"
)

var Module = fx.Module("override.service",
	fx.Provide(repository.Provide),
	fx.Provide(service.New),
)
