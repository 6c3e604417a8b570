package observability

import (
	"context"
	"fmt"
	"net/http"
	"time"

	"github.com/prometheus/client_golang/prometheus/promhttp"
	"go.opentelemetry.io/otel/attribute"
	"go.opentelemetry.io/otel/exporters/prometheus"
	"go.opentelemetry.io/otel/metric"
	sdkmetric "go.opentelemetry.io/otel/sdk/metric"
	"go.opentelemetry.io/otel/sdk/resource"
	semconv "go.opentelemetry.io/otel/semconv/v1.4.0"
)

// Metrics holds the engine's metric instruments.
type Metrics struct {
	meter metric.Meter

	// Quote metrics
	QuoteDuration metric.Float64Histogram
	QuoteCalls    metric.Int64Counter
	QuoterCalls   metric.Int64Counter
	FeeTierWins   metric.Int64Counter

	// Recompute lifecycle metrics
	RecomputesStarted metric.Int64Counter
	StaleDrops        metric.Int64Counter

	// Position sizing metrics
	SizingCalls metric.Int64Counter

	// Cache metrics
	CacheHits   metric.Int64Counter
	CacheMisses metric.Int64Counter

	// Chain read metrics
	ChainReadDuration metric.Float64Histogram

	// Error metrics
	Errors metric.Int64Counter

	exporter *prometheus.Exporter
}

// NewMetrics creates a Metrics instance. When disabled, all record
// methods are nil-safe no-ops.
func NewMetrics(serviceName string, enabled bool) (*Metrics, error) {
	if !enabled {
		return &Metrics{}, nil
	}

	res, err := resource.New(
		context.Background(),
		resource.WithAttributes(
			semconv.ServiceNameKey.String(serviceName),
			semconv.ServiceVersionKey.String("1.0.0"),
		),
	)
	if err != nil {
		return nil, fmt.Errorf("failed to create resource: %w", err)
	}

	exporter, err := prometheus.New()
	if err != nil {
		return nil, fmt.Errorf("failed to create Prometheus exporter: %w", err)
	}

	provider := sdkmetric.NewMeterProvider(
		sdkmetric.WithResource(res),
		sdkmetric.WithReader(exporter),
	)

	m := &Metrics{
		meter:    provider.Meter(serviceName),
		exporter: exporter,
	}

	if err := m.initInstruments(); err != nil {
		return nil, fmt.Errorf("failed to initialize metrics: %w", err)
	}

	return m, nil
}

func (m *Metrics) initInstruments() error {
	var err error

	m.QuoteDuration, err = m.meter.Float64Histogram(
		"quoter.quote.duration",
		metric.WithDescription("End-to-end quote duration in milliseconds"),
		metric.WithUnit("ms"),
	)
	if err != nil {
		return err
	}

	m.QuoteCalls, err = m.meter.Int64Counter(
		"quoter.quote.calls",
		metric.WithDescription("Total quote requests"),
	)
	if err != nil {
		return err
	}

	m.QuoterCalls, err = m.meter.Int64Counter(
		"quoter.chain_quoter.calls",
		metric.WithDescription("Total simulated quoter contract calls"),
	)
	if err != nil {
		return err
	}

	m.FeeTierWins, err = m.meter.Int64Counter(
		"quoter.fee_tier.selected",
		metric.WithDescription("Fee tier chosen by best-quote selection"),
	)
	if err != nil {
		return err
	}

	m.RecomputesStarted, err = m.meter.Int64Counter(
		"quoter.recompute.started",
		metric.WithDescription("Recompute cycles started after debounce"),
	)
	if err != nil {
		return err
	}

	m.StaleDrops, err = m.meter.Int64Counter(
		"quoter.recompute.stale_dropped",
		metric.WithDescription("Recompute results discarded for stale sequence numbers"),
	)
	if err != nil {
		return err
	}

	m.SizingCalls, err = m.meter.Int64Counter(
		"quoter.sizing.calls",
		metric.WithDescription("Position sizing requests"),
	)
	if err != nil {
		return err
	}

	m.CacheHits, err = m.meter.Int64Counter(
		"quoter.cache.hits",
		metric.WithDescription("Cache hits"),
	)
	if err != nil {
		return err
	}

	m.CacheMisses, err = m.meter.Int64Counter(
		"quoter.cache.misses",
		metric.WithDescription("Cache misses"),
	)
	if err != nil {
		return err
	}

	m.ChainReadDuration, err = m.meter.Float64Histogram(
		"quoter.chain.read.duration",
		metric.WithDescription("Chain read call duration in milliseconds"),
		metric.WithUnit("ms"),
	)
	if err != nil {
		return err
	}

	m.Errors, err = m.meter.Int64Counter(
		"quoter.errors",
		metric.WithDescription("Total errors encountered"),
	)
	return err
}

// RecordQuote records a completed quote request.
func (m *Metrics) RecordQuote(ctx context.Context, venue string, duration time.Duration, success bool) {
	if m == nil || m.QuoteCalls == nil {
		return
	}
	attrs := metric.WithAttributes(
		attribute.String("venue", venue),
		attribute.Bool("success", success),
	)
	m.QuoteCalls.Add(ctx, 1, attrs)
	m.QuoteDuration.Record(ctx, float64(duration.Milliseconds()), attrs)
}

// RecordQuoterCall records one simulated quoter call for a fee tier.
func (m *Metrics) RecordQuoterCall(ctx context.Context, feeTier uint32, status string, duration time.Duration) {
	if m == nil || m.QuoterCalls == nil {
		return
	}
	m.QuoterCalls.Add(ctx, 1, metric.WithAttributes(
		attribute.Int64("fee_tier", int64(feeTier)),
		attribute.String("status", status),
	))
	m.ChainReadDuration.Record(ctx, float64(duration.Milliseconds()), metric.WithAttributes(
		attribute.String("call", "simulate_quote"),
	))
}

// RecordFeeTierSelected records which tier won best-quote selection.
func (m *Metrics) RecordFeeTierSelected(ctx context.Context, feeTier uint32) {
	if m == nil || m.FeeTierWins == nil {
		return
	}
	m.FeeTierWins.Add(ctx, 1, metric.WithAttributes(attribute.Int64("fee_tier", int64(feeTier))))
}

// RecordRecomputeStarted records a recompute cycle leaving debounce.
func (m *Metrics) RecordRecomputeStarted(ctx context.Context) {
	if m == nil || m.RecomputesStarted == nil {
		return
	}
	m.RecomputesStarted.Add(ctx, 1)
}

// RecordStaleDrop records a result discarded for a stale sequence number.
func (m *Metrics) RecordStaleDrop(ctx context.Context) {
	if m == nil || m.StaleDrops == nil {
		return
	}
	m.StaleDrops.Add(ctx, 1)
}

// RecordSizing records a position sizing request.
func (m *Metrics) RecordSizing(ctx context.Context, oneSided bool) {
	if m == nil || m.SizingCalls == nil {
		return
	}
	m.SizingCalls.Add(ctx, 1, metric.WithAttributes(attribute.Bool("one_sided", oneSided)))
}

// RecordCacheHit records a cache hit for the given layer.
func (m *Metrics) RecordCacheHit(ctx context.Context, layer string) {
	if m == nil || m.CacheHits == nil {
		return
	}
	m.CacheHits.Add(ctx, 1, metric.WithAttributes(attribute.String("layer", layer)))
}

// RecordCacheMiss records a cache miss for the given layer.
func (m *Metrics) RecordCacheMiss(ctx context.Context, layer string) {
	if m == nil || m.CacheMisses == nil {
		return
	}
	m.CacheMisses.Add(ctx, 1, metric.WithAttributes(attribute.String("layer", layer)))
}

// RecordChainRead records a chain read call duration.
func (m *Metrics) RecordChainRead(ctx context.Context, call string, duration time.Duration) {
	if m == nil || m.ChainReadDuration == nil {
		return
	}
	m.ChainReadDuration.Record(ctx, float64(duration.Milliseconds()), metric.WithAttributes(
		attribute.String("call", call),
	))
}

// RecordError records an error by type.
func (m *Metrics) RecordError(ctx context.Context, errorType string) {
	if m == nil || m.Errors == nil {
		return
	}
	m.Errors.Add(ctx, 1, metric.WithAttributes(attribute.String("type", errorType)))
}

// Handler returns the HTTP handler serving Prometheus metrics.
func (m *Metrics) Handler() http.Handler {
	return promhttp.Handler()
}
