package cloudmetrics

import (
	"context"
	"io"
	"net/http"
	"net/http/httptest"
	"testing"

	"github.com/golang/snappy"
	"github.com/hostwise/nightly/internal/config"
	"github.com/prometheus/client_golang/prometheus"
	"github.com/prometheus/prometheus/prompb"
	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
	"go.uber.org/zap"
	"google.golang.org/protobuf/proto"
	"google.golang.org/protobuf/protoadapt"
)

func testRegistry(t *testing.T) *prometheus.Registry {
	t.Helper()
	registry := prometheus.NewRegistry()

	counter := prometheus.NewCounterVec(prometheus.CounterOpts{
		Name: "nightly_pricing_runs_total",
		Help: "test counter",
	}, []string{"outcome"})
	counter.WithLabelValues("ok").Add(3)
	registry.MustRegister(counter)

	histogram := prometheus.NewHistogram(prometheus.HistogramOpts{
		Name: "nightly_pricing_run_duration_seconds",
		Help: "test histogram",
	})
	histogram.Observe(0.2)
	registry.MustRegister(histogram)

	return registry
}

func TestRemoteWritePushSendsSnappyProtobuf(t *testing.T) {
	var received prompb.WriteRequest

	server := httptest.NewServer(http.HandlerFunc(func(w http.ResponseWriter, r *http.Request) {
		assert.Equal(t, "snappy", r.Header.Get("Content-Encoding"))
		assert.Equal(t, "application/x-protobuf", r.Header.Get("Content-Type"))
		assert.Equal(t, "Bearer token-1", r.Header.Get("Authorization"))

		body, err := io.ReadAll(r.Body)
		require.NoError(t, err)
		raw, err := snappy.Decode(nil, body)
		require.NoError(t, err)
		require.NoError(t, proto.Unmarshal(raw, protoadapt.MessageV2Of(&received)))
		w.WriteHeader(http.StatusNoContent)
	}))
	defer server.Close()

	pusher := NewRemoteWritePusher(server.URL, "token-1")
	require.NoError(t, pusher.Push(context.Background(), testRegistry(t)))

	// Only the counter survives; histograms stay local.
	require.Len(t, received.Timeseries, 1)
	series := received.Timeseries[0]
	assert.Equal(t, "__name__", series.Labels[0].Name)
	assert.Equal(t, "nightly_pricing_runs_total", series.Labels[0].Value)
	require.Len(t, series.Samples, 1)
	assert.Equal(t, 3.0, series.Samples[0].Value)
}

func TestRemoteWritePushReportsServerError(t *testing.T) {
	server := httptest.NewServer(http.HandlerFunc(func(w http.ResponseWriter, _ *http.Request) {
		w.WriteHeader(http.StatusBadGateway)
	}))
	defer server.Close()

	pusher := NewRemoteWritePusher(server.URL, "")
	assert.Error(t, pusher.Push(context.Background(), testRegistry(t)))
}

func TestNewPusherDisabledOutsideCloudMode(t *testing.T) {
	cfg := config.Config{Mode: config.ModeOSS}
	cfg.Cloud.Metrics.Enabled = true
	cfg.Cloud.Metrics.Exporter = exporterRemoteWrite
	cfg.Cloud.Metrics.Endpoint = "https://metrics.example/api/v1/write"

	assert.Nil(t, NewPusher(cfg, zap.NewNop()))

	cfg.Mode = config.ModeCloud
	assert.NotNil(t, NewPusher(cfg, zap.NewNop()))

	cfg.Cloud.Metrics.Endpoint = ""
	assert.Nil(t, NewPusher(cfg, zap.NewNop()))
}
