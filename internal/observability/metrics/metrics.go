package metrics

import (
	"context"
	"strings"
	"time"

	"github.com/prometheus/client_golang/prometheus"
	"go.opentelemetry.io/otel"
	"go.opentelemetry.io/otel/exporters/otlp/otlpmetric/otlpmetricgrpc"
	"go.opentelemetry.io/otel/exporters/otlp/otlpmetric/otlpmetrichttp"
	otelprom "go.opentelemetry.io/otel/exporters/prometheus"
	"go.opentelemetry.io/otel/sdk/metric"
	"go.opentelemetry.io/otel/sdk/resource"
	semconv "go.opentelemetry.io/otel/semconv/v1.26.0"
	"go.uber.org/fx"
)

// Config configures the metric provider.
type Config struct {
	ServiceName    string
	ServiceVersion string
	Environment    string

	// ExporterEndpoint enables OTLP push export alongside the /metrics pull
	// endpoint when set.
	ExporterEndpoint string
	ExporterProtocol string
}

// NewRegistry builds the prometheus registry all collectors attach to.
func NewRegistry() *prometheus.Registry {
	registry := prometheus.NewRegistry()
	registry.MustRegister(
		prometheus.NewGoCollector(),
		prometheus.NewProcessCollector(prometheus.ProcessCollectorOpts{}),
	)
	return registry
}

// NewMeterProvider wires an OTel meter provider backed by the registry.
func NewMeterProvider(lc fx.Lifecycle, cfg Config, registry *prometheus.Registry) (*metric.MeterProvider, error) {
	exporter, err := otelprom.New(otelprom.WithRegisterer(registry))
	if err != nil {
		return nil, err
	}

	res, err := resource.Merge(resource.Default(), resource.NewWithAttributes(
		semconv.SchemaURL,
		semconv.ServiceName(cfg.ServiceName),
		semconv.ServiceVersion(cfg.ServiceVersion),
		semconv.DeploymentEnvironment(cfg.Environment),
	))
	if err != nil {
		return nil, err
	}

	opts := []metric.Option{
		metric.WithReader(exporter),
		metric.WithResource(res),
	}
	if endpoint := strings.TrimSpace(cfg.ExporterEndpoint); endpoint != "" {
		otlpExporter, err := newOTLPExporter(cfg.ExporterProtocol, endpoint)
		if err != nil {
			return nil, err
		}
		opts = append(opts, metric.WithReader(
			metric.NewPeriodicReader(otlpExporter, metric.WithInterval(10*time.Second)),
		))
	}

	provider := metric.NewMeterProvider(opts...)
	otel.SetMeterProvider(provider)

	if lc != nil {
		lc.Append(fx.Hook{
			OnStop: func(ctx context.Context) error {
				return provider.Shutdown(ctx)
			},
		})
	}

	return provider, nil
}

func newOTLPExporter(protocol, endpoint string) (metric.Exporter, error) {
	if strings.EqualFold(protocol, "http") {
		return otlpmetrichttp.New(context.Background(),
			otlpmetrichttp.WithEndpoint(endpoint),
			otlpmetrichttp.WithInsecure(),
		)
	}
	return otlpmetricgrpc.New(context.Background(),
		otlpmetricgrpc.WithEndpoint(endpoint),
		otlpmetricgrpc.WithInsecure(),
	)
}
