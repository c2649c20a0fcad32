// Package observability sets up OpenTelemetry metrics for the server.
package observability

import (
	"context"
	"fmt"
	"strconv"
	"time"

	"github.com/rs/zerolog"
	"go.opentelemetry.io/otel"
	"go.opentelemetry.io/otel/attribute"
	"go.opentelemetry.io/otel/exporters/stdout/stdoutmetric"
	"go.opentelemetry.io/otel/metric"
	"go.opentelemetry.io/otel/metric/noop"
	sdkmetric "go.opentelemetry.io/otel/sdk/metric"
	"go.opentelemetry.io/otel/sdk/resource"
)

const meterName = "rankedle"

// Config selects the exporter. Exporter is "console" or "none".
type Config struct {
	Exporter    string
	Interval    time.Duration
	ServiceName string
	Environment string
}

// Metrics owns the meter provider and every instrument the server records.
type Metrics struct {
	shutdown func(context.Context) error

	gamesCompleted metric.Int64Counter
	guesses        metric.Int64Counter
	ratingChange   metric.Int64Histogram
	httpRequests   metric.Int64Counter
}

// New builds Metrics for cfg. "none" (or empty) yields working no-op instruments.
func New(cfg Config, logger zerolog.Logger) (*Metrics, error) {
	switch cfg.Exporter {
	case "", "none":
		logger.Info().Msg("metrics export disabled")
		return newMetrics(noop.NewMeterProvider(), nil)

	case "console":
		exporter, err := stdoutmetric.New()
		if err != nil {
			return nil, fmt.Errorf("failed to create console exporter: %w", err)
		}
		interval := cfg.Interval
		if interval <= 0 {
			interval = time.Minute
		}
		mp := sdkmetric.NewMeterProvider(
			sdkmetric.WithResource(resource.NewSchemaless(
				attribute.String("service.name", cfg.ServiceName),
				attribute.String("environment", cfg.Environment),
			)),
			sdkmetric.WithReader(sdkmetric.NewPeriodicReader(exporter, sdkmetric.WithInterval(interval))),
		)
		otel.SetMeterProvider(mp)
		logger.Info().Dur("interval", interval).Msg("using console metric exporter")
		return newMetrics(mp, mp.Shutdown)

	default:
		return nil, fmt.Errorf("unknown metrics exporter: %s", cfg.Exporter)
	}
}

// NewWithReader wires instruments to an SDK provider reading through r.
func NewWithReader(r sdkmetric.Reader) (*Metrics, error) {
	mp := sdkmetric.NewMeterProvider(sdkmetric.WithReader(r))
	return newMetrics(mp, mp.Shutdown)
}

// Noop returns Metrics that record nothing.
func Noop() *Metrics {
	m, _ := newMetrics(noop.NewMeterProvider(), nil)
	return m
}

func newMetrics(mp metric.MeterProvider, shutdown func(context.Context) error) (*Metrics, error) {
	meter := mp.Meter(meterName)
	m := &Metrics{shutdown: shutdown}

	var err error
	if m.gamesCompleted, err = meter.Int64Counter(
		"rankedle.games.completed",
		metric.WithDescription("Daily games scored, by result and phase"),
	); err != nil {
		return nil, err
	}
	if m.guesses, err = meter.Int64Counter(
		"rankedle.guesses",
		metric.WithDescription("Guess submissions, by outcome"),
	); err != nil {
		return nil, err
	}
	if m.ratingChange, err = meter.Int64Histogram(
		"rankedle.rating.change",
		metric.WithDescription("Magnitude of the rating change applied per completed game"),
	); err != nil {
		return nil, err
	}
	if m.httpRequests, err = meter.Int64Counter(
		"rankedle.http.requests",
		metric.WithDescription("HTTP requests served, by route and status"),
	); err != nil {
		return nil, err
	}
	return m, nil
}

// GameCompleted records a scored game.
func (m *Metrics) GameCompleted(ctx context.Context, won bool, attempts, ratingChange int, placement bool) {
	result := "lost"
	if won {
		result = "won"
	}
	attrs := metric.WithAttributes(
		attribute.String("result", result),
		attribute.Int("attempts", attempts),
		attribute.Bool("placement", placement),
	)
	m.gamesCompleted.Add(ctx, 1, attrs)
	direction := "gain"
	if ratingChange < 0 {
		direction, ratingChange = "loss", -ratingChange
	}
	m.ratingChange.Record(ctx, int64(ratingChange), metric.WithAttributes(
		attribute.String("direction", direction),
		attribute.Bool("placement", placement),
	))
}

// GuessSubmitted records one guess; outcome is "accepted", "invalid" or "rejected".
func (m *Metrics) GuessSubmitted(ctx context.Context, outcome string) {
	m.guesses.Add(ctx, 1, metric.WithAttributes(attribute.String("outcome", outcome)))
}

// RequestServed records one HTTP response.
func (m *Metrics) RequestServed(ctx context.Context, route string, status int) {
	m.httpRequests.Add(ctx, 1, metric.WithAttributes(
		attribute.String("route", route),
		attribute.String("status", strconv.Itoa(status)),
	))
}

// Shutdown flushes and stops the provider, if any.
func (m *Metrics) Shutdown(ctx context.Context) error {
	if m.shutdown == nil {
		return nil
	}
	return m.shutdown(ctx)
}
