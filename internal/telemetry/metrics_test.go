package telemetry

import (
	"context"
	"testing"

	"github.com/doctorsaathi/consult-service/internal/config"
	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
	sdkmetric "go.opentelemetry.io/otel/sdk/metric"
	"go.opentelemetry.io/otel/sdk/metric/metricdata"
)

func collect(t *testing.T, reader *sdkmetric.ManualReader) map[string]int64 {
	t.Helper()
	var rm metricdata.ResourceMetrics
	require.NoError(t, reader.Collect(context.Background(), &rm))

	sums := map[string]int64{}
	for _, sm := range rm.ScopeMetrics {
		for _, md := range sm.Metrics {
			if sum, ok := md.Data.(metricdata.Sum[int64]); ok {
				for _, dp := range sum.DataPoints {
					sums[md.Name] += dp.Value
				}
			}
		}
	}
	return sums
}

func TestMetrics_RecordsBusinessCounters(t *testing.T) {
	reader := sdkmetric.NewManualReader()
	provider := sdkmetric.NewMeterProvider(sdkmetric.WithReader(reader))

	m, err := NewMetrics(provider.Meter("test"))
	require.NoError(t, err)

	ctx := context.Background()
	m.RecordConsultTransition(ctx, "approved")
	m.RecordConsultTransition(ctx, "completed")
	m.RecordAcceptConflict(ctx)
	m.RecordProvisioningFailure(ctx)
	m.RecordExpired(ctx, 7)
	m.RecordAuthFailure(ctx, "invalid_token")
	m.RecordHTTPRequest(ctx, "GET", "/health", 200, 1.5)

	sums := collect(t, reader)
	assert.Equal(t, int64(2), sums["consult_transitions_total"])
	assert.Equal(t, int64(1), sums["consult_accept_conflicts_total"])
	assert.Equal(t, int64(1), sums["chat_provisioning_failures_total"])
	assert.Equal(t, int64(7), sums["consult_expired_purged_total"])
	assert.Equal(t, int64(1), sums["auth_failures_total"])
	assert.Equal(t, int64(1), sums["http_server_requests_total"])
}

func TestConfigFrom(t *testing.T) {
	cfg := &config.Config{
		ServiceName: "consult-service",
		Environment: "staging",
		Telemetry: config.TelemetryConfig{
			OTLPEndpoint:     "collector:4317",
			ServiceNamespace: "doctorsaathi",
			TracesSampler:    "traceidratio",
		},
	}

	got := ConfigFrom(cfg)
	assert.Equal(t, "consult-service", got.ServiceName)
	assert.Equal(t, "staging", got.Environment)
	assert.Equal(t, "collector:4317", got.OTLPEndpoint)
	assert.Equal(t, "traceidratio", got.TracesSampler)
}

func TestSampler(t *testing.T) {
	tests := []struct {
		setting string
		want    string
	}{
		{"always_on", "AlwaysOnSampler"},
		{"", "AlwaysOnSampler"},
		{"always_off", "AlwaysOffSampler"},
		{"traceidratio", "ParentBased{root:TraceIDRatioBased{0.1}"},
		{"traceidratio:0.25", "ParentBased{root:TraceIDRatioBased{0.25}"},
		{"traceidratio:7", "ParentBased{root:TraceIDRatioBased{0.1}"},
	}
	for _, tc := range tests {
		t.Run(tc.setting, func(t *testing.T) {
			assert.Contains(t, sampler(tc.setting).Description(), tc.want)
		})
	}
}

func TestInitProvider_ExportDisabled(t *testing.T) {
	p, err := InitProvider(context.Background(), Config{ServiceName: "consult-service", OTLPEndpoint: "none"})
	require.NoError(t, err)
	assert.Nil(t, p.TracerProvider)
	assert.Nil(t, p.MeterProvider)
	assert.NoError(t, p.Shutdown(context.Background()))

	var nilProvider *Provider
	assert.NoError(t, nilProvider.Shutdown(context.Background()))
}
