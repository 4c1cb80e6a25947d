package grouprec

import (
	"github.com/hostwise/nightly/internal/grouprec/service"
	"go.uber.org/fx"
)

var Module = fx.Module("grouprec.service",
	fx.Provide(service.New),
)
