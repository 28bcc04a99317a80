package dice

import (
	"context"
	"time"

	"go.opentelemetry.io/otel"
	"go.opentelemetry.io/otel/attribute"
	"go.opentelemetry.io/otel/codes"
	"go.opentelemetry.io/otel/trace"
	"go.uber.org/zap"
)

const tracerName = "github.com/cory-johannsen/roll/internal/dice"

// LoggedEvaluator wraps an Evaluator to log every evaluation at debug level
// and record it as a span on the global tracer provider.
type LoggedEvaluator struct {
	eval   *Evaluator
	logger *zap.Logger
	tracer trace.Tracer
}

// NewLoggedEvaluator creates a LoggedEvaluator over eval.
//
// Precondition: eval and logger must be non-nil.
func NewLoggedEvaluator(eval *Evaluator, logger *zap.Logger) *LoggedEvaluator {
	return &LoggedEvaluator{
		eval:   eval,
		logger: logger,
		tracer: otel.Tracer(tracerName),
	}
}

// Evaluator returns the wrapped Evaluator.
func (l *LoggedEvaluator) Evaluator() *Evaluator {
	return l.eval
}

// Evaluate evaluates expression under mode and logs the outcome.
//
// Postcondition: the result and error are exactly those of Evaluator.Evaluate.
func (l *LoggedEvaluator) Evaluate(ctx context.Context, expression string, mode RollOption) (*Result, error) {
	_, span := l.tracer.Start(ctx, "dice.Evaluate", trace.WithAttributes(
		attribute.String("dice.expression", expression),
		attribute.String("dice.mode", mode.String()),
	))
	defer span.End()

	start := time.Now()
	res, err := l.eval.Evaluate(expression, mode)
	elapsed := time.Since(start)
	if err != nil {
		span.RecordError(err)
		span.SetStatus(codes.Error, err.Error())
		l.logger.Debug("dice evaluation failed",
			zap.String("expression", expression),
			zap.Stringer("mode", mode),
			zap.Duration("elapsed", elapsed),
			zap.Error(err),
		)
		return nil, err
	}

	span.SetAttributes(
		attribute.Float64("dice.total", res.Total),
		attribute.Int("dice.roll_groups", len(res.Rolls)),
	)
	l.logger.Debug("dice evaluation",
		zap.String("expression", expression),
		zap.Stringer("mode", mode),
		zap.Float64("total", res.Total),
		zap.Int("roll_groups", len(res.Rolls)),
		zap.Duration("elapsed", elapsed),
	)
	return res, nil
}

// Total evaluates expression and returns only the numeric total, logging the
// outcome like Evaluate.
func (l *LoggedEvaluator) Total(ctx context.Context, expression string, mode RollOption) (float64, error) {
	res, err := l.Evaluate(ctx, expression, mode)
	if err != nil {
		return 0, err
	}
	return res.Total, nil
}
