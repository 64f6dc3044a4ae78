package telemetry

import (
	"context"
	"errors"
	"fmt"
	"strconv"
	"strings"
	"time"

	"github.com/doctorsaathi/consult-service/internal/config"
	"github.com/rs/zerolog/log"
	"go.opentelemetry.io/otel"
	"go.opentelemetry.io/otel/exporters/otlp/otlpmetric/otlpmetricgrpc"
	"go.opentelemetry.io/otel/exporters/otlp/otlptrace/otlptracegrpc"
	"go.opentelemetry.io/otel/propagation"
	"go.opentelemetry.io/otel/sdk/metric"
	"go.opentelemetry.io/otel/sdk/resource"
	"go.opentelemetry.io/otel/sdk/trace"
	semconv "go.opentelemetry.io/otel/semconv/v1.21.0"
	"google.golang.org/grpc"
	"google.golang.org/grpc/credentials/insecure"
)

const (
	exportTimeout       = 5 * time.Second
	defaultSampleRatio  = 0.1
	samplerTraceIDRatio = "traceidratio"
)

// Config holds OpenTelemetry configuration
type Config struct {
	ServiceName      string
	ServiceNamespace string
	ServiceVersion   string
	Environment      string
	OTLPEndpoint     string // empty or "none" disables export
	TracesSampler    string // always_on, always_off, traceidratio[:ratio]
	MetricsInterval  time.Duration
}

// ConfigFrom maps the service configuration onto the OpenTelemetry settings.
func ConfigFrom(cfg *config.Config) Config {
	return Config{
		ServiceName:      cfg.ServiceName,
		ServiceNamespace: cfg.Telemetry.ServiceNamespace,
		ServiceVersion:   cfg.Telemetry.ServiceVersion,
		Environment:      cfg.Environment,
		OTLPEndpoint:     cfg.Telemetry.OTLPEndpoint,
		TracesSampler:    cfg.Telemetry.TracesSampler,
		MetricsInterval:  cfg.Telemetry.MetricsInterval,
	}
}

func (c Config) exportEnabled() bool {
	return c.OTLPEndpoint != "" && c.OTLPEndpoint != "none"
}

// Provider owns the SDK providers so they can be flushed on shutdown.
type Provider struct {
	TracerProvider *trace.TracerProvider
	MeterProvider  *metric.MeterProvider
}

// InitProvider installs the global propagator and, when an OTLP endpoint is
// configured, tracer and meter providers exporting to it. An exporter that
// cannot be created is logged and skipped; the service runs without it.
func InitProvider(ctx context.Context, cfg Config) (*Provider, error) {
	otel.SetTextMapPropagator(propagation.NewCompositeTextMapPropagator(
		propagation.TraceContext{},
		propagation.Baggage{},
	))

	if !cfg.exportEnabled() {
		log.Info().Msg("OpenTelemetry export disabled (no OTLP endpoint)")
		return &Provider{}, nil
	}
	log.Info().Str("endpoint", cfg.OTLPEndpoint).Msg("Initializing OpenTelemetry")

	res, err := resource.New(ctx,
		resource.WithAttributes(
			semconv.ServiceName(cfg.ServiceName),
			semconv.ServiceNamespace(cfg.ServiceNamespace),
			semconv.ServiceVersion(cfg.ServiceVersion),
			semconv.DeploymentEnvironment(cfg.Environment),
		),
	)
	if err != nil {
		return nil, fmt.Errorf("failed to create resource: %w", err)
	}

	p := &Provider{}
	dial := grpc.WithTransportCredentials(insecure.NewCredentials())

	if tp, err := newTracerProvider(ctx, cfg, res, dial); err != nil {
		log.Warn().Err(err).Msg("Warning: failed to initialize tracer provider, continuing without distributed tracing")
	} else {
		otel.SetTracerProvider(tp)
		p.TracerProvider = tp
		log.Info().Str("sampler", cfg.TracesSampler).Msg("✓ OpenTelemetry tracer provider initialized")
	}

	if mp, err := newMeterProvider(ctx, cfg, res, dial); err != nil {
		log.Warn().Err(err).Msg("Warning: failed to initialize meter provider, continuing without metrics export")
	} else {
		otel.SetMeterProvider(mp)
		p.MeterProvider = mp
		log.Info().Dur("interval", cfg.MetricsInterval).Msg("✓ OpenTelemetry meter provider initialized")
	}

	return p, nil
}

func newTracerProvider(ctx context.Context, cfg Config, res *resource.Resource, dial grpc.DialOption) (*trace.TracerProvider, error) {
	ctx, cancel := context.WithTimeout(ctx, exportTimeout)
	defer cancel()

	exporter, err := otlptracegrpc.New(ctx,
		otlptracegrpc.WithEndpoint(cfg.OTLPEndpoint),
		otlptracegrpc.WithDialOption(dial),
		otlptracegrpc.WithTimeout(exportTimeout),
	)
	if err != nil {
		return nil, fmt.Errorf("failed to create OTLP trace exporter: %w", err)
	}

	return trace.NewTracerProvider(
		trace.WithResource(res),
		trace.WithSampler(sampler(cfg.TracesSampler)),
		trace.WithBatcher(exporter,
			trace.WithBatchTimeout(exportTimeout),
			trace.WithMaxExportBatchSize(512),
		),
	), nil
}

func newMeterProvider(ctx context.Context, cfg Config, res *resource.Resource, dial grpc.DialOption) (*metric.MeterProvider, error) {
	ctx, cancel := context.WithTimeout(ctx, exportTimeout)
	defer cancel()

	exporter, err := otlpmetricgrpc.New(ctx,
		otlpmetricgrpc.WithEndpoint(cfg.OTLPEndpoint),
		otlpmetricgrpc.WithDialOption(dial),
		otlpmetricgrpc.WithTimeout(exportTimeout),
	)
	if err != nil {
		return nil, fmt.Errorf("failed to create OTLP metric exporter: %w", err)
	}

	var opts []metric.PeriodicReaderOption
	if cfg.MetricsInterval > 0 {
		opts = append(opts, metric.WithInterval(cfg.MetricsInterval))
	}
	return metric.NewMeterProvider(
		metric.WithResource(res),
		metric.WithReader(metric.NewPeriodicReader(exporter, opts...)),
	), nil
}

// sampler parses always_on, always_off or traceidratio with an optional
// ":ratio" suffix. Ratio sampling respects the parent's decision.
func sampler(setting string) trace.Sampler {
	name, arg, _ := strings.Cut(setting, ":")
	switch name {
	case "always_off":
		return trace.NeverSample()
	case samplerTraceIDRatio:
		ratio := defaultSampleRatio
		if r, err := strconv.ParseFloat(arg, 64); err == nil && r >= 0 && r <= 1 {
			ratio = r
		}
		return trace.ParentBased(trace.TraceIDRatioBased(ratio))
	default:
		return trace.AlwaysSample()
	}
}

// Shutdown flushes and stops both providers. Safe on a nil Provider.
func (p *Provider) Shutdown(ctx context.Context) error {
	if p == nil || (p.TracerProvider == nil && p.MeterProvider == nil) {
		return nil
	}
	log.Info().Msg("Shutting down OpenTelemetry providers...")

	var errs []error
	if p.TracerProvider != nil {
		if err := p.TracerProvider.Shutdown(ctx); err != nil {
			errs = append(errs, fmt.Errorf("tracer provider: %w", err))
		}
	}
	if p.MeterProvider != nil {
		if err := p.MeterProvider.Shutdown(ctx); err != nil {
			errs = append(errs, fmt.Errorf("meter provider: %w", err))
		}
	}
	if err := errors.Join(errs...); err != nil {
		return err
	}
	log.Info().Msg("✓ OpenTelemetry providers shut down")
	return nil
}
