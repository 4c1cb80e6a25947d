package main

import (
	"github.com/bwmarrin/snowflake"
	"github.com/hostwise/nightly/internal/ai"
	"github.com/hostwise/nightly/internal/authorization"
	"github.com/hostwise/nightly/internal/billing"
	"github.com/hostwise/nightly/internal/clock"
	"github.com/hostwise/nightly/internal/cloudmetrics"
	"github.com/hostwise/nightly/internal/config"
	"github.com/hostwise/nightly/internal/group"
	"github.com/hostwise/nightly/internal/grouprec"
	"github.com/hostwise/nightly/internal/integration"
	"github.com/hostwise/nightly/internal/marketsignal"
	"github.com/hostwise/nightly/internal/migration"
	"github.com/hostwise/nightly/internal/observability"
	"github.com/hostwise/nightly/internal/override"
	"github.com/hostwise/nightly/internal/owner"
	"github.com/hostwise/nightly/internal/pms"
	"github.com/hostwise/nightly/internal/pricing"
	"github.com/hostwise/nightly/internal/property"
	"github.com/hostwise/nightly/internal/ratelimit"
	"github.com/hostwise/nightly/internal/reservation"
	"github.com/hostwise/nightly/internal/server"
	syncmodule "github.com/hostwise/nightly/internal/sync"
	"github.com/hostwise/nightly/internal/trial"
	"github.com/hostwise/nightly/pkg/db"
	"go.uber.org/fx"
)

// API-only binary. Pair it with apps/scheduler when splitting the deploy;
// scheduled pulls and pushes do not run here.
func main() {
	app := fx.New(
		config.Module,
		observability.Module,
		fx.Provide(RegisterSnowflake),
		db.Module,
		clock.Module,
		ratelimit.Module,
		migration.Module,

		owner.Module,
		property.Module,
		group.Module,
		reservation.Module,
		override.Module,
		marketsignal.Module,
		ai.Module,
		pms.Module,
		integration.Module,
		trial.Module,
		syncmodule.Module,
		billing.Module,
		pricing.Module,
		grouprec.Module,
		authorization.Module,

		cloudmetrics.Module,
		server.Module,
	)
	app.Run()
}

func RegisterSnowflake() *snowflake.Node {
	node, err := snowflake.NewNode(1)
	if err != nil {
		panic(err)
	}
	return node
}
