package group

import (
	"github.com/hostwise/nightly/internal/group/repository"
	"github.com/hostwise/nightly/internal/group/service"
	"go.uber.org/fx"
)

var Module = fx.Module("group.service",
	fx.Provide(repository.Provide),
	fx.Provide(service.New),
)
