package pms

import (
	"github.com/hostwise/nightly/internal/pms/adapters"
	"go.uber.org/fx"
)

var Module = fx.Module("pms",
	fx.Provide(adapters.NewRegistry),
)
