package metrics

import (
	"context"
	"fmt"
	"strings"
	"time"

	"go.opentelemetry.io/otel"
	"go.opentelemetry.io/otel/attribute"
	"go.opentelemetry.io/otel/exporters/otlp/otlpmetric/otlpmetricgrpc"
	"go.opentelemetry.io/otel/exporters/otlp/otlpmetric/otlpmetrichttp"
	"go.opentelemetry.io/otel/metric"
	"go.opentelemetry.io/otel/metric/noop"
	sdkmetric "go.opentelemetry.io/otel/sdk/metric"
	"go.uber.org/fx"
	"go.uber.org/zap"
)

// Config configures the metrics provider.
type Config struct {
	Enabled          bool
	ExporterEndpoint string
	ExporterProtocol string
	ServiceName      string
	Environment      string
}

// Metrics exposes application-level instruments.
type Metrics struct {
	generations     metric.Int64Counter
	creditDebits    metric.Int64Counter
	creditRefunds   metric.Int64Counter
	usageEvents     metric.Int64Counter
	rateLimitDenied metric.Int64Counter
}

// NewProvider configures and registers the meter provider.
func NewProvider(lc fx.Lifecycle, cfg Config, log *zap.Logger) (metric.MeterProvider, error) {
	if !cfg.Enabled {
		provider := noop.NewMeterProvider()
		otel.SetMeterProvider(provider)
		return provider, nil
	}

	exporter, err := newExporter(cfg.ExporterProtocol, cfg.ExporterEndpoint)
	if err != nil {
		return nil, err
	}

	reader := sdkmetric.NewPeriodicReader(exporter, sdkmetric.WithInterval(10*time.Second))
	provider := sdkmetric.NewMeterProvider(sdkmetric.WithReader(reader))
	otel.SetMeterProvider(provider)

	if lc != nil {
		lc.Append(fx.Hook{
			OnStop: func(ctx context.Context) error {
				if log != nil {
					log.Info("shutting down meter provider")
				}
				return provider.Shutdown(ctx)
			},
		})
	}

	return provider, nil
}

// New configures the domain metrics instruments.
func New(cfg Config, provider metric.MeterProvider) (*Metrics, error) {
	name := strings.TrimSpace(cfg.ServiceName)
	if name == "" {
		name = "draftforge"
	}
	meter := provider.Meter(name)

	generations, err := meter.Int64Counter("draftforge_generations_total")
	if err != nil {
		return nil, err
	}
	creditDebits, err := meter.Int64Counter("draftforge_credit_debits_total")
	if err != nil {
		return nil, err
	}
	creditRefunds, err := meter.Int64Counter("draftforge_credit_refunds_total")
	if err != nil {
		return nil, err
	}
	usageEvents, err := meter.Int64Counter("draftforge_usage_events_total")
	if err != nil {
		return nil, err
	}
	rateLimitDenied, err := meter.Int64Counter("draftforge_rate_limit_denied_total")
	if err != nil {
		return nil, err
	}

	return &Metrics{
		generations:     generations,
		creditDebits:    creditDebits,
		creditRefunds:   creditRefunds,
		usageEvents:     usageEvents,
		rateLimitDenied: rateLimitDenied,
	}, nil
}

// RecordGeneration counts one generation attempt by outcome.
func (m *Metrics) RecordGeneration(ctx context.Context, modelID, outcome string) {
	if m == nil {
		return
	}
	attrs := FilterAttributes(
		attribute.String("model_id", strings.TrimSpace(modelID)),
		attribute.String("outcome", strings.TrimSpace(outcome)),
	)
	m.generations.Add(ctx, 1, metric.WithAttributes(attrs...))
}

// RecordCreditDebit counts one successful credit debit.
func (m *Metrics) RecordCreditDebit(ctx context.Context) {
	if m == nil {
		return
	}
	m.creditDebits.Add(ctx, 1)
}

// RecordCreditRefund counts one refund by reason.
func (m *Metrics) RecordCreditRefund(ctx context.Context, reason string) {
	if m == nil {
		return
	}
	attrs := FilterAttributes(attribute.String("reason", strings.TrimSpace(reason)))
	m.creditRefunds.Add(ctx, 1, metric.WithAttributes(attrs...))
}

// RecordUsageEvent counts one usage event append by content type.
func (m *Metrics) RecordUsageEvent(ctx context.Context, contentType string) {
	if m == nil {
		return
	}
	attrs := FilterAttributes(attribute.String("content_type", strings.TrimSpace(contentType)))
	m.usageEvents.Add(ctx, 1, metric.WithAttributes(attrs...))
}

// RecordRateLimitDenied counts rate limit deny decisions.
func (m *Metrics) RecordRateLimitDenied(ctx context.Context, endpoint string) {
	if m == nil {
		return
	}
	attrs := FilterAttributes(attribute.String("endpoint", strings.TrimSpace(endpoint)))
	m.rateLimitDenied.Add(ctx, 1, metric.WithAttributes(attrs...))
}

func newExporter(protocol, endpoint string) (sdkmetric.Exporter, error) {
	protocol = strings.ToLower(strings.TrimSpace(protocol))
	switch protocol {
	case "http", "http/protobuf":
		opts := []otlpmetrichttp.Option{}
		if endpoint != "" {
			opts = append(opts, otlpmetrichttp.WithEndpoint(endpoint))
		}
		return otlpmetrichttp.New(context.Background(), opts...)
	case "grpc", "grpc/protobuf", "":
		opts := []otlpmetricgrpc.Option{otlpmetricgrpc.WithInsecure()}
		if endpoint != "" {
			opts = append(opts, otlpmetricgrpc.WithEndpoint(endpoint))
		}
		return otlpmetricgrpc.New(context.Background(), opts...)
	default:
		return nil, fmt.Errorf("unsupported OTLP protocol %q", protocol)
	}
}

var allowedLabelKeys = map[attribute.Key]struct{}{
	"model_id":     {},
	"outcome":      {},
	"content_type": {},
	"endpoint":     {},
	"reason":       {},
	"status_code":  {},
}

// FilterAttributes strips disallowed labels to keep metrics low-cardinality.
func FilterAttributes(attrs ...attribute.KeyValue) []attribute.KeyValue {
	filtered := make([]attribute.KeyValue, 0, len(attrs))
	for _, attr := range attrs {
		if _, ok := allowedLabelKeys[attr.Key]; !ok {
			continue
		}
		filtered = append(filtered, attr)
	}
	return filtered
}
