package cloudmetrics

import (
	"context"
	"time"

	"github.com/prometheus/client_golang/prometheus"
	"go.uber.org/fx"
	"go.uber.org/zap"
)

const pushInterval = 30 * time.Minute

var Module = fx.Module("cloud.metrics",
	fx.Provide(NewPusher),
	fx.Invoke(start),
)

func start(lc fx.Lifecycle, pusher Pusher, registry *prometheus.Registry, log *zap.Logger) {
	if pusher == nil {
		return
	}
	log = log.Named("cloudmetrics")

	ctx, cancel := context.WithCancel(context.Background())
	lc.Append(fx.Hook{
		OnStart: func(context.Context) error {
			go func() {
				ticker := time.NewTicker(pushInterval)
				defer ticker.Stop()

				if err := pusher.Push(ctx, registry); err != nil {
					log.Warn("initial metrics push failed", zap.Error(err))
				}
				for {
					select {
					case <-ticker.C:
						if err := pusher.Push(ctx, registry); err != nil {
							log.Warn("metrics push failed", zap.Error(err))
						}
					case <-ctx.Done():
						return
					}
				}
			}()
			return nil
		},
		OnStop: func(context.Context) error {
			cancel()
			return nil
		},
	})
}
