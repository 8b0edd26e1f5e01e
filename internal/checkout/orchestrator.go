// Package checkout turns a cart into an order record and a transaction record
// on the content backend. The backend has no multi-resource transactions, so
// the two writes are issued strictly one after the other and a failure of the
// second leaves the first in place. Nothing here retries or compensates.
package checkout

import (
	"context"
	"fmt"
	"log/slog"
	"time"

	"github.com/google/uuid"
	"go.opentelemetry.io/otel"
	"go.opentelemetry.io/otel/attribute"
	"go.opentelemetry.io/otel/codes"
	"go.opentelemetry.io/otel/trace"

	"github.com/joao-fontenele/storefront-checkout/internal/cart"
	"github.com/joao-fontenele/storefront-checkout/internal/domain"
	"github.com/joao-fontenele/storefront-checkout/internal/identity"
)

const (
	DefaultWriteTimeout = 10 * time.Second

	// TransactionHistoryPath is where the shopper is sent after a committed
	// checkout.
	TransactionHistoryPath = "/transactions"
)

var tracer = otel.Tracer("checkout")

type Backend interface {
	CreateOrder(ctx context.Context, credential, idempotencyKey string, order domain.OrderRecord) (domain.Created, error)
	CreateTransaction(ctx context.Context, credential, idempotencyKey string, tx domain.TransactionRecord) (domain.Created, error)
}

type Publisher interface {
	Publish(ctx context.Context, key string, event any) error
}

type Result struct {
	CheckoutID  string
	State       domain.CheckoutState
	Request     Request
	Order       domain.Created
	Transaction domain.Created
	Redirect    string
}

type Orchestrator struct {
	backend      Backend
	publisher    Publisher
	logger       *slog.Logger
	metrics      *metrics
	writeTimeout time.Duration
	linkOrder    bool
	now          func() time.Time
	newID        func() string
}

type Option func(*Orchestrator)

func WithWriteTimeout(d time.Duration) Option {
	return func(o *Orchestrator) {
		if d > 0 {
			o.writeTimeout = d
		}
	}
}

// WithTransactionOrderLink carries the created order's reference into the
// transaction payload. The backend schema must define the relation.
func WithTransactionOrderLink(enabled bool) Option {
	return func(o *Orchestrator) {
		o.linkOrder = enabled
	}
}

func WithClock(now func() time.Time) Option {
	return func(o *Orchestrator) {
		o.now = now
	}
}

func WithIDGenerator(newID func() string) Option {
	return func(o *Orchestrator) {
		o.newID = newID
	}
}

// NewOrchestrator builds an Orchestrator. publisher may be nil.
func NewOrchestrator(backend Backend, publisher Publisher, logger *slog.Logger, opts ...Option) (*Orchestrator, error) {
	m, err := newMetrics(otel.Meter("checkout"))
	if err != nil {
		return nil, fmt.Errorf("create checkout metrics: %w", err)
	}

	o := &Orchestrator{
		backend:      backend,
		publisher:    publisher,
		logger:       logger,
		metrics:      m,
		writeTimeout: DefaultWriteTimeout,
		now:          time.Now,
		newID:        uuid.NewString,
	}
	for _, opt := range opts {
		opt(o)
	}

	return o, nil
}

// Checkout records the cart's contents as an order and then a transaction.
// The returned Result is never nil; its State is the terminal state reached.
// The cart is cleared only when both writes succeed.
func (o *Orchestrator) Checkout(ctx context.Context, c *cart.Cart, ident identity.Identity) (*Result, error) {
	result := &Result{State: domain.CheckoutStateIdle}

	if err := ident.Check(o.now()); err != nil {
		return result, fmt.Errorf("%w: %w", ErrUnauthenticated, err)
	}

	snap := c.Snapshot()
	if snap.IsEmpty() {
		return result, ErrEmptyCart
	}

	req := newRequest(o.newID(), snap, ident, o.now().UTC())
	result.CheckoutID = req.ID
	result.Request = req

	ctx, span := tracer.Start(ctx, "checkout",
		trace.WithAttributes(
			attribute.String("checkout.id", req.ID),
			attribute.String("user.id", req.UserID.String()),
			attribute.Int("checkout.total_quantity", req.TotalQuantity),
			attribute.String("checkout.total_price", req.TotalPrice.String()),
		),
	)
	defer span.End()

	logger := o.logger.With("checkout_id", req.ID, "user_id", req.UserID.String())

	result.State = domain.CheckoutStateSubmittingOrder
	order, err := o.write(ctx, StepOrder, func(ctx context.Context) (domain.Created, error) {
		return o.backend.CreateOrder(ctx, req.credential, req.ID, req.OrderRecord())
	})
	if err != nil {
		result.State = domain.CheckoutStateOrderFailed
		logger.Error("order write failed, cart retained", "error", err)
		o.finish(ctx, span, result, err)
		return result, err
	}
	result.Order = order

	var orderRef string
	if o.linkOrder {
		orderRef = order.Ref()
	}

	// The order is committed. From here only the write timeout may stop the
	// transaction write; a caller that goes away must not cause a partial
	// failure.
	txCtx := context.WithoutCancel(ctx)

	result.State = domain.CheckoutStateSubmittingTransaction
	tx, err := o.write(txCtx, StepTransaction, func(ctx context.Context) (domain.Created, error) {
		return o.backend.CreateTransaction(ctx, req.credential, req.ID, req.TransactionRecord(o.now().UTC(), orderRef))
	})
	if err != nil {
		result.State = domain.CheckoutStateTransactionFailed
		logger.Error("checkout partially committed: order recorded without transaction",
			"order_id", order.Ref(),
			"error", err,
		)
		o.finish(ctx, span, result, err)
		return result, err
	}
	result.Transaction = tx

	c.Clear()
	result.State = domain.CheckoutStateCommitted
	result.Redirect = TransactionHistoryPath

	logger.Info("checkout committed", "order_id", order.Ref(), "transaction_id", tx.Ref())
	o.finish(ctx, span, result, nil)
	return result, nil
}

func (o *Orchestrator) write(ctx context.Context, step Step, fn func(context.Context) (domain.Created, error)) (domain.Created, error) {
	ctx, span := tracer.Start(ctx, string(step)+" write", trace.WithSpanKind(trace.SpanKindClient))
	defer span.End()

	writeCtx, cancel := context.WithTimeout(ctx, o.writeTimeout)
	defer cancel()

	start := time.Now()
	created, err := fn(writeCtx)
	o.metrics.recordWrite(ctx, step, time.Since(start), err)

	if err != nil {
		werr := newWriteError(step, err)
		span.RecordError(werr)
		span.SetStatus(codes.Error, werr.Error())
		return domain.Created{}, werr
	}

	span.SetAttributes(attribute.String("record.ref", created.Ref()))
	return created, nil
}

func (o *Orchestrator) finish(ctx context.Context, span trace.Span, result *Result, err error) {
	span.SetAttributes(attribute.String("checkout.state", result.State.String()))
	if err != nil {
		span.RecordError(err)
		span.SetStatus(codes.Error, err.Error())
	}

	o.metrics.recordOutcome(ctx, result.State)

	if o.publisher == nil {
		return
	}

	event := domain.CheckoutOutcomeEvent{
		CheckoutID:    result.CheckoutID,
		UserID:        result.Request.UserID,
		State:         result.State,
		OrderID:       result.Order.Ref(),
		TransactionID: result.Transaction.Ref(),
		TotalQuantity: result.Request.TotalQuantity,
		TotalPrice:    result.Request.TotalPrice,
		Timestamp:     o.now().UTC(),
	}
	if err != nil {
		event.Error = err.Error()
	}

	if err := o.publisher.Publish(ctx, result.CheckoutID, event); err != nil {
		o.logger.Error("failed to publish checkout outcome", "error", err, "checkout_id", result.CheckoutID, "state", result.State)
	}
}
