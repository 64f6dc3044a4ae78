package telemetry

import (
	"context"

	"github.com/rs/zerolog/log"
	"go.opentelemetry.io/otel"
	"go.opentelemetry.io/otel/attribute"
	"go.opentelemetry.io/otel/metric"
)

// Metrics holds all custom metrics for the service
type Metrics struct {
	// HTTP metrics
	HTTPRequestsTotal metric.Int64Counter
	HTTPDurationMs    metric.Float64Histogram

	// Business metrics
	ConsultTransitionsTotal   metric.Int64Counter
	AcceptConflictsTotal      metric.Int64Counter
	ProvisioningFailuresTotal metric.Int64Counter
	ConsultsExpiredTotal      metric.Int64Counter

	// Auth metrics
	AuthFailuresTotal       metric.Int64Counter
	PermissionCheckDuration metric.Float64Histogram
}

// InitMetrics initializes all custom metrics on the global meter provider
func InitMetrics() (*Metrics, error) {
	return NewMetrics(otel.Meter("github.com/doctorsaathi/consult-service"))
}

// NewMetrics creates the instruments on the given meter.
func NewMetrics(meter metric.Meter) (*Metrics, error) {
	m := &Metrics{}
	var err error

	if m.HTTPRequestsTotal, err = meter.Int64Counter(
		"http_server_requests_total",
		metric.WithDescription("Total number of HTTP requests"),
		metric.WithUnit("{request}"),
	); err != nil {
		return nil, err
	}

	if m.HTTPDurationMs, err = meter.Float64Histogram(
		"http_server_duration_milliseconds",
		metric.WithDescription("HTTP request duration in milliseconds"),
		metric.WithUnit("ms"),
	); err != nil {
		return nil, err
	}

	if m.ConsultTransitionsTotal, err = meter.Int64Counter(
		"consult_transitions_total",
		metric.WithDescription("Consultation lifecycle transitions by resulting status"),
		metric.WithUnit("{transition}"),
	); err != nil {
		return nil, err
	}

	if m.AcceptConflictsTotal, err = meter.Int64Counter(
		"consult_accept_conflicts_total",
		metric.WithDescription("Accept attempts that lost the race or hit an already handled consult"),
		metric.WithUnit("{attempt}"),
	); err != nil {
		return nil, err
	}

	if m.ProvisioningFailuresTotal, err = meter.Int64Counter(
		"chat_provisioning_failures_total",
		metric.WithDescription("Chat channel provisioning failures"),
		metric.WithUnit("{failure}"),
	); err != nil {
		return nil, err
	}

	if m.ConsultsExpiredTotal, err = meter.Int64Counter(
		"consult_expired_purged_total",
		metric.WithDescription("Completed consultations removed by the retention sweep"),
		metric.WithUnit("{record}"),
	); err != nil {
		return nil, err
	}

	if m.AuthFailuresTotal, err = meter.Int64Counter(
		"auth_failures_total",
		metric.WithDescription("Total number of authentication failures"),
		metric.WithUnit("{failure}"),
	); err != nil {
		return nil, err
	}

	if m.PermissionCheckDuration, err = meter.Float64Histogram(
		"permission_check_duration_ms",
		metric.WithDescription("Permission check duration in milliseconds"),
		metric.WithUnit("ms"),
	); err != nil {
		return nil, err
	}

	log.Info().Msg("✓ Custom metrics initialized")
	return m, nil
}

// RecordHTTPRequest records an HTTP request metric
func (m *Metrics) RecordHTTPRequest(ctx context.Context, method, route string, statusCode int, durationMs float64) {
	attrs := metric.WithAttributes(
		attribute.String("http_method", method),
		attribute.String("http_route", route),
		attribute.Int("http_status_code", statusCode),
	)

	m.HTTPRequestsTotal.Add(ctx, 1, attrs)
	m.HTTPDurationMs.Record(ctx, durationMs, attrs)
}

// RecordConsultTransition counts a consult reaching status (pending, approved, completed, cancelled).
func (m *Metrics) RecordConsultTransition(ctx context.Context, status string) {
	m.ConsultTransitionsTotal.Add(ctx, 1, metric.WithAttributes(
		attribute.String("status", status),
	))
}

func (m *Metrics) RecordAcceptConflict(ctx context.Context) {
	m.AcceptConflictsTotal.Add(ctx, 1)
}

func (m *Metrics) RecordProvisioningFailure(ctx context.Context) {
	m.ProvisioningFailuresTotal.Add(ctx, 1)
}

func (m *Metrics) RecordExpired(ctx context.Context, n int64) {
	m.ConsultsExpiredTotal.Add(ctx, n)
}

// RecordAuthFailure records an authentication failure metric
func (m *Metrics) RecordAuthFailure(ctx context.Context, reason string) {
	m.AuthFailuresTotal.Add(ctx, 1, metric.WithAttributes(
		attribute.String("reason", reason),
	))
}

// RecordPermissionCheck records a permission check duration metric
func (m *Metrics) RecordPermissionCheck(ctx context.Context, permission string, durationMs float64, allowed bool) {
	m.PermissionCheckDuration.Record(ctx, durationMs, metric.WithAttributes(
		attribute.String("permission", permission),
		attribute.Bool("allowed", allowed),
	))
}
