package otel

import (
	"context"
	"time"

	"go.opentelemetry.io/otel"
	"go.opentelemetry.io/otel/attribute"
	"go.opentelemetry.io/otel/metric"
)

const meterName = "studymate"

// Metrics holds all StudyMate metric instruments. A nil *Metrics is valid
// and records nothing.
type Metrics struct {
	Turns              metric.Int64Counter
	Intents            metric.Int64Counter
	GenerationFailures metric.Int64Counter
	Confirmations      metric.Int64Counter
	TurnDuration       metric.Float64Histogram
}

// NewMetrics creates all metric instruments on the global meter provider.
func NewMetrics() (*Metrics, error) {
	return newMetrics(otel.Meter(meterName))
}

func newMetrics(meter metric.Meter) (*Metrics, error) {
	m := &Metrics{}
	var err error

	m.Turns, err = meter.Int64Counter("studymate.turns",
		metric.WithDescription("Number of processed conversation turns"))
	if err != nil {
		return nil, err
	}

	m.Intents, err = meter.Int64Counter("studymate.intents",
		metric.WithDescription("Classified intents by type"))
	if err != nil {
		return nil, err
	}

	m.GenerationFailures, err = meter.Int64Counter("studymate.generation.failures",
		metric.WithDescription("Text generation failures by pipeline stage"))
	if err != nil {
		return nil, err
	}

	m.Confirmations, err = meter.Int64Counter("studymate.confirmations",
		metric.WithDescription("Resolved task confirmations by action and outcome"))
	if err != nil {
		return nil, err
	}

	m.TurnDuration, err = meter.Float64Histogram("studymate.turn.duration_seconds",
		metric.WithDescription("Turn processing duration in seconds"),
		metric.WithUnit("s"))
	if err != nil {
		return nil, err
	}

	return m, nil
}

// RecordTurn counts a finished turn with its intent and duration.
func (m *Metrics) RecordTurn(ctx context.Context, intent string, d time.Duration) {
	if m == nil {
		return
	}
	attrs := metric.WithAttributes(attribute.String("intent", intent))
	m.Turns.Add(ctx, 1, attrs)
	m.TurnDuration.Record(ctx, d.Seconds(), attrs)
}

// RecordIntent counts a classification result.
func (m *Metrics) RecordIntent(ctx context.Context, intent string) {
	if m == nil {
		return
	}
	m.Intents.Add(ctx, 1, metric.WithAttributes(attribute.String("intent", intent)))
}

// RecordGenerationFailure counts a failed generation call at stage.
func (m *Metrics) RecordGenerationFailure(ctx context.Context, stage string) {
	if m == nil {
		return
	}
	m.GenerationFailures.Add(ctx, 1, metric.WithAttributes(attribute.String("stage", stage)))
}

// RecordConfirmation counts a confirm or discard resolution.
func (m *Metrics) RecordConfirmation(ctx context.Context, action string, success bool) {
	if m == nil {
		return
	}
	m.Confirmations.Add(ctx, 1, metric.WithAttributes(
		attribute.String("action", action),
		attribute.Bool("success", success),
	))
}
