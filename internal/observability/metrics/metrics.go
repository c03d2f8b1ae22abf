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
	credits             metric.Int64Counter
	debits              metric.Int64Counter
	insufficientBalance metric.Int64Counter
	offerRedemptions    metric.Int64Counter
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
		name = "perks"
	}
	meter := provider.Meter(name)

	credits, err := meter.Int64Counter("perks_points_credited_total")
	if err != nil {
		return nil, err
	}
	debits, err := meter.Int64Counter("perks_points_debited_total")
	if err != nil {
		return nil, err
	}
	insufficientBalance, err := meter.Int64Counter("perks_insufficient_balance_total")
	if err != nil {
		return nil, err
	}
	offerRedemptions, err := meter.Int64Counter("perks_offer_redemptions_total")
	if err != nil {
		return nil, err
	}

	return &Metrics{
		credits:             credits,
		debits:              debits,
		insufficientBalance: insufficientBalance,
		offerRedemptions:    offerRedemptions,
	}, nil
}

// RecordCredit counts committed credit mutations by source.
func (m *Metrics) RecordCredit(ctx context.Context, source string) {
	if m == nil {
		return
	}
	m.credits.Add(ctx, 1, metric.WithAttributes(attribute.String("source", source)))
}

// RecordDebit counts committed debit mutations by source.
func (m *Metrics) RecordDebit(ctx context.Context, source string) {
	if m == nil {
		return
	}
	m.debits.Add(ctx, 1, metric.WithAttributes(attribute.String("source", source)))
}

// RecordInsufficientBalance counts debits refused for lack of funds.
func (m *Metrics) RecordInsufficientBalance(ctx context.Context, source string) {
	if m == nil {
		return
	}
	m.insufficientBalance.Add(ctx, 1, metric.WithAttributes(attribute.String("source", source)))
}

// RecordOfferRedemption counts successful offer redemptions.
func (m *Metrics) RecordOfferRedemption(ctx context.Context, category string) {
	if m == nil {
		return
	}
	m.offerRedemptions.Add(ctx, 1, metric.WithAttributes(attribute.String("category", category)))
}

func newExporter(protocol, endpoint string) (sdkmetric.Exporter, error) {
	switch protocol {
	case "http", "http/protobuf":
		return otlpmetrichttp.New(context.Background(),
			otlpmetrichttp.WithEndpoint(endpoint),
			otlpmetrichttp.WithInsecure(),
		)
	case "", "grpc":
		return otlpmetricgrpc.New(context.Background(),
			otlpmetricgrpc.WithEndpoint(endpoint),
			otlpmetricgrpc.WithInsecure(),
		)
	default:
		return nil, fmt.Errorf("unsupported otlp protocol %q", protocol)
	}
}
