package pricing

import (
	"github.com/hostwise/nightly/internal/pricing/engine"
	"go.uber.org/fx"
)

var Module = fx.Module("pricing.engine",
	fx.Provide(engine.New),
)
