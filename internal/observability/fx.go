package observability

import (
	"github.com/hostwise/nightly/internal/observability/logger"
	"github.com/hostwise/nightly/internal/observability/metrics"
	"github.com/hostwise/nightly/internal/observability/tracing"
	"go.uber.org/fx"
)

// Module wires logging, tracing and metrics.
var Module = fx.Module("observability",
	fx.Provide(
		LoadConfig,
		newLoggerConfig,
		logger.New,
		newTracingConfig,
		tracing.NewProvider,
		newMetricsConfig,
		metrics.NewRegistry,
		metrics.NewMeterProvider,
		metrics.NewHTTPMetrics,
		metrics.NewDomainMetrics,
		metrics.NewSchedulerMetrics,
	),
)

func newLoggerConfig(cfg Config) logger.Config {
	return logger.Config{
		ServiceName:         cfg.ServiceName,
		Environment:         cfg.Environment,
		Version:             cfg.ServiceVersion,
		Level:               cfg.LogLevel,
		Format:              cfg.LogFormat,
		Debug:               cfg.Debug(),
		IncludeCaller:       true,
		IncludeStackOnError: true,
	}
}

func newTracingConfig(cfg Config) tracing.Config {
	return tracing.Config{
		Enabled:          cfg.TracingEnabled,
		ServiceName:      cfg.ServiceName,
		ServiceVersion:   cfg.ServiceVersion,
		Environment:      cfg.Environment,
		ExporterEndpoint: cfg.ExporterEndpoint,
		ExporterProtocol: cfg.ExporterProtocol,
		SamplingRatio:    cfg.SamplingRatio,
	}
}

func newMetricsConfig(cfg Config) metrics.Config {
	return metrics.Config{
		ServiceName:      cfg.ServiceName,
		ServiceVersion:   cfg.ServiceVersion,
		Environment:      cfg.Environment,
		ExporterEndpoint: cfg.ExporterEndpoint,
		ExporterProtocol: cfg.ExporterProtocol,
	}
}
