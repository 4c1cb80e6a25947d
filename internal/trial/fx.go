package trial

import (
	"github.com/hostwise/nightly/internal/trial/repository"
	"github.com/hostwise/nightly/internal/trial/service"
	"go.uber.org/fx"
)

var Module = fx.Module("trial.service",
	fx.Provide(repository.Provide),
	fx.Provide(service.New),
)
