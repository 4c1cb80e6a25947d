package observability

import (
	"os"
	"strings"

	"github.com/hostwise/nightly/internal/config"
)

// Config derives observability settings from the app configuration.
type Config struct {
	ServiceName    string
	ServiceVersion string
	Environment    string

	LogLevel  string
	LogFormat string

	TracingEnabled   bool
	ExporterEndpoint string
	ExporterProtocol string
	SamplingRatio    float64
}

// LoadConfig maps application configuration onto observability settings.
func LoadConfig(cfg config.Config) Config {
	return Config{
		ServiceName:      cfg.AppName,
		ServiceVersion:   cfg.AppVersion,
		Environment:      cfg.Environment,
		LogLevel:         getenv("LOG_LEVEL", "info"),
		LogFormat:        getenv("LOG_FORMAT", "json"),
		TracingEnabled:   strings.TrimSpace(cfg.OTLPEndpoint) != "",
		ExporterEndpoint: cfg.OTLPEndpoint,
		ExporterProtocol: getenv("OTLP_PROTOCOL", "grpc"),
		SamplingRatio:    1.0,
	}
}

// Debug reports whether verbose diagnostics are enabled.
func (c Config) Debug() bool {
	return strings.EqualFold(c.LogLevel, "debug")
}

func getenv(key, def string) string {
	if v := os.Getenv(key); v != "" {
		return v
	}
	return def
}
