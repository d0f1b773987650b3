package otel

import (
	"go.opentelemetry.io/otel"
	"go.opentelemetry.io/otel/metric"
)

const meterName = "doclens"

// Metrics holds all DocLens metric instruments.
type Metrics struct {
	SessionsStarted   metric.Int64Counter
	SessionsCompleted metric.Int64Counter
	SessionsFailed    metric.Int64Counter
	ToolCalls         metric.Int64Counter
	ApprovalsResolved metric.Int64Counter
	SessionDuration   metric.Float64Histogram
	ModelTokens       metric.Int64Counter
}

// NewMetrics creates all metric instruments.
func NewMetrics() (*Metrics, error) {
	meter := otel.Meter(meterName)
	m := &Metrics{}
	var err error

	m.SessionsStarted, err = meter.Int64Counter("doclens.sessions.started",
		metric.WithDescription("Number of analysis sessions started"))
	if err != nil {
		return nil, err
	}

	m.SessionsCompleted, err = meter.Int64Counter("doclens.sessions.completed",
		metric.WithDescription("Number of analysis sessions completed"))
	if err != nil {
		return nil, err
	}

	m.SessionsFailed, err = meter.Int64Counter("doclens.sessions.failed",
		metric.WithDescription("Number of analysis sessions failed"))
	if err != nil {
		return nil, err
	}

	m.ToolCalls, err = meter.Int64Counter("doclens.toolcalls",
		metric.WithDescription("Number of tool calls"))
	if err != nil {
		return nil, err
	}

	m.ApprovalsResolved, err = meter.Int64Counter("doclens.approvals.resolved",
		metric.WithDescription("Number of approval requests resolved"))
	if err != nil {
		return nil, err
	}

	m.SessionDuration, err = meter.Float64Histogram("doclens.session.duration_seconds",
		metric.WithDescription("Analysis session duration in seconds"))
	if err != nil {
		return nil, err
	}

	m.ModelTokens, err = meter.Int64Counter("doclens.model.tokens",
		metric.WithDescription("Model tokens consumed"))
	if err != nil {
		return nil, err
	}

	return m, nil
}
