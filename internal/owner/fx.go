package owner

import (
	"github.com/hostwise/nightly/internal/owner/repository"
	"github.com/hostwise/nightly/internal/owner/service"
	"go.uber.org/fx"
)

var Module = fx.Module("owner.service",
	fx.Provide(repository.Provide),
	fx.Provide(service.New),
)
