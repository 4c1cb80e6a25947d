package marketsignal

import (
	"github.com/hostwise/nightly/internal/marketsignal/repository"
	"github.com/hostwise/nightly/internal/marketsignal/service"
	"go.uber.org/fx"
)

var Module = fx.Module("marketsignal.service",
	fx.Provide(repository.Provide),
	fx.Provide(service.New),
)
