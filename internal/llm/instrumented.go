package llm

import (
	"context"
	"time"

	"go.opentelemetry.io/otel/attribute"
	"go.opentelemetry.io/otel/codes"
	"go.opentelemetry.io/otel/trace"
	"go.uber.org/zap"

	"github.com/capitalize-ai/event-assistant/pkg/logger"
	"github.com/capitalize-ai/event-assistant/pkg/metrics"
	"github.com/capitalize-ai/event-assistant/pkg/tracing"
)

// Instrumented wraps a Client with a per-call timeout, a span, Prometheus
// metrics and a debug log line.
type Instrumented struct {
	next    Client
	timeout time.Duration
	tracer  trace.Tracer
	log     *logger.Logger
}

// NewInstrumented wraps next. A zero timeout disables the deadline.
func NewInstrumented(next Client, timeout time.Duration, log *logger.Logger) *Instrumented {
	return &Instrumented{
		next:    next,
		timeout: timeout,
		tracer:  tracing.Tracer("llm"),
		log:     logger.OrNop(log),
	}
}

// Name returns the wrapped provider name.
func (c *Instrumented) Name() string {
	return c.next.Name()
}

// Complete forwards to the wrapped client.
func (c *Instrumented) Complete(ctx context.Context, req *CompletionRequest) (*CompletionResponse, error) {
	if c.timeout > 0 {
		var cancel context.CancelFunc
		ctx, cancel = context.WithTimeout(ctx, c.timeout)
		defer cancel()
	}

	ctx, span := c.tracer.Start(ctx, "llm.complete", trace.WithAttributes(
		attribute.String("llm.provider", c.next.Name()),
		attribute.String("llm.purpose", req.Purpose),
		attribute.Float64("llm.temperature", req.Temperature),
	))
	defer span.End()

	start := time.Now()
	resp, err := c.next.Complete(ctx, req)
	elapsed := time.Since(start)

	model := req.Model
	if resp != nil && resp.Model != "" {
		model = resp.Model
	}
	if model == "" {
		model = c.next.Name()
	}

	if err != nil {
		span.RecordError(err)
		span.SetStatus(codes.Error, err.Error())
		metrics.RecordLLMRequest(model, req.Purpose, "error", elapsed.Seconds(), 0, 0)
		c.log.Warn("llm completion failed",
			zap.String("provider", c.next.Name()),
			zap.String("purpose", req.Purpose),
			zap.Duration("elapsed", elapsed),
			zap.Error(err),
		)
		return nil, err
	}

	span.SetAttributes(
		attribute.String("llm.model", model),
		attribute.Int("llm.tokens_in", resp.TokensIn),
		attribute.Int("llm.tokens_out", resp.TokensOut),
	)
	metrics.RecordLLMRequest(model, req.Purpose, "ok", elapsed.Seconds(), resp.TokensIn, resp.TokensOut)
	c.log.Debug("llm completion",
		zap.String("model", model),
		zap.String("purpose", req.Purpose),
		zap.Duration("elapsed", elapsed),
		zap.Int("tokens_out", resp.TokensOut),
	)
	return resp, nil
}
