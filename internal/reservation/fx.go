package reservation

import (
	"github.com/hostwise/nightly/internal/reservation/repository"
	"github.com/hostwise/nightly/internal/reservation/service"
	"go.uber.org/fx"
)

var Module = fx.Module("reservation.service",
	fx.Provide(repository.Provide),
	fx.Provide(service.New),
)
