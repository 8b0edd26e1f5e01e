package checkout

import (
	"context"
	"errors"
	"time"

	"go.opentelemetry.io/otel/attribute"
	"go.opentelemetry.io/otel/metric"

	"github.com/joao-fontenele/storefront-checkout/internal/domain"
)

type metrics struct {
	outcomes        metric.Int64Counter
	partialFailures metric.Int64Counter
	writeDuration   metric.Float64Histogram
}

func newMetrics(meter metric.Meter) (*metrics, error) {
	outcomes, err := meter.Int64Counter("checkout.outcomes",
		metric.WithDescription("Checkout attempts by terminal state."),
	)
	if err != nil {
		return nil, err
	}

	partialFailures, err := meter.Int64Counter("checkout.partial_failures",
		metric.WithDescription("Checkouts whose order was recorded but whose transaction was not."),
	)
	if err != nil {
		return nil, err
	}

	writeDuration, err := meter.Float64Histogram("checkout.write.duration",
		metric.WithDescription("Duration of remote checkout writes."),
		metric.WithUnit("s"),
	)
	if err != nil {
		return nil, err
	}

	return &metrics{
		outcomes:        outcomes,
		partialFailures: partialFailures,
		writeDuration:   writeDuration,
	}, nil
}

func (m *metrics) recordOutcome(ctx context.Context, state domain.CheckoutState) {
	m.outcomes.Add(ctx, 1, metric.WithAttributes(attribute.String("checkout.state", state.String())))
	if state == domain.CheckoutStateTransactionFailed {
		m.partialFailures.Add(ctx, 1)
	}
}

func (m *metrics) recordWrite(ctx context.Context, step Step, elapsed time.Duration, err error) {
	result := "success"
	switch {
	case errors.Is(err, context.DeadlineExceeded):
		result = "timeout"
	case err != nil:
		result = "error"
	}

	m.writeDuration.Record(ctx, elapsed.Seconds(), metric.WithAttributes(
		attribute.String("checkout.step", string(step)),
		attribute.String("result", result),
	))
}
