//go:build integration

package test

import (
	"context"
	"encoding/json"
	"io"
	"log/slog"
	"net/http"
	"net/http/httptest"
	"strings"
	"sync"
	"testing"
	"time"

	"github.com/shopspring/decimal"

	"github.com/joao-fontenele/storefront-checkout/internal/backend"
	"github.com/joao-fontenele/storefront-checkout/internal/cart"
	"github.com/joao-fontenele/storefront-checkout/internal/checkout"
	"github.com/joao-fontenele/storefront-checkout/internal/domain"
	"github.com/joao-fontenele/storefront-checkout/internal/identity"
	"github.com/joao-fontenele/storefront-checkout/internal/journal"
	"github.com/joao-fontenele/storefront-checkout/internal/messaging"
)

func TestOutcomeRepository(t *testing.T) {
	ctx, cancel := context.WithTimeout(context.Background(), 2*time.Minute)
	defer cancel()

	repo := SetupJournalStore(ctx, t).Repo
	base := time.Date(2025, 3, 1, 12, 0, 0, 0, time.UTC)

	events := []domain.CheckoutOutcomeEvent{
		{CheckoutID: "c-1", UserID: "9", State: domain.CheckoutStateCommitted, OrderID: "ord-1", TransactionID: "tx-1", TotalQuantity: 3, TotalPrice: decimal.RequireFromString("12.00"), Timestamp: base},
		{CheckoutID: "c-2", UserID: "9", State: domain.CheckoutStateTransactionFailed, OrderID: "ord-2", Error: "Failed to create transaction", TotalQuantity: 1, TotalPrice: decimal.RequireFromString("5.00"), Timestamp: base.Add(time.Minute)},
	}
	for _, e := range events {
		if err := repo.Record(ctx, e); err != nil {
			t.Fatalf("failed to record outcome: %v", err)
		}
	}

	stale := events[1]
	stale.State = domain.CheckoutStateOrderFailed
	stale.Timestamp = base
	if err := repo.Record(ctx, stale); err != nil {
		t.Fatalf("failed to record stale outcome: %v", err)
	}

	got, err := repo.GetByID(ctx, "c-2")
	if err != nil {
		t.Fatalf("failed to get outcome: %v", err)
	}
	if got == nil {
		t.Fatal("outcome c-2 not found")
	}
	if got.State != domain.CheckoutStateTransactionFailed {
		t.Errorf("expected stale event to be ignored, got state %s", got.State)
	}
	if !got.TotalPrice.Equal(decimal.RequireFromString("5")) {
		t.Errorf("expected total price 5, got %s", got.TotalPrice)
	}

	all, err := repo.List(ctx)
	if err != nil {
		t.Fatalf("failed to list outcomes: %v", err)
	}
	if len(all) != 2 || all[0].CheckoutID != "c-2" {
		t.Fatalf("expected 2 outcomes newest first, got %+v", all)
	}

	partial, err := repo.List(ctx, domain.CheckoutStateTransactionFailed)
	if err != nil {
		t.Fatalf("failed to list filtered outcomes: %v", err)
	}
	if len(partial) != 1 || partial[0].OrderID != "ord-2" {
		t.Fatalf("expected only the partial failure, got %+v", partial)
	}

	missing, err := repo.GetByID(ctx, "nope")
	if err != nil {
		t.Fatalf("unexpected error: %v", err)
	}
	if missing != nil {
		t.Fatalf("expected nil for missing outcome, got %+v", missing)
	}
}

func TestOutcomeBusRoundTrip(t *testing.T) {
	ctx, cancel := context.WithTimeout(context.Background(), 2*time.Minute)
	defer cancel()

	bus := SetupOutcomeBus(ctx, t, "checkout.outcome.roundtrip")

	event := domain.CheckoutOutcomeEvent{CheckoutID: "c-9", UserID: "9", State: domain.CheckoutStateCommitted, Timestamp: time.Now().UTC()}
	if err := bus.Producer(t).Publish(ctx, event.CheckoutID, event); err != nil {
		t.Fatalf("failed to publish: %v", err)
	}

	consumer := bus.Consumer(t, "roundtrip-test")
	received := make(chan messaging.Message, 1)
	consumeCtx, stop := context.WithCancel(ctx)
	defer stop()
	go func() {
		_ = consumer.Consume(consumeCtx, func(_ context.Context, msg messaging.Message) error {
			received <- msg
			stop()
			return nil
		})
	}()

	select {
	case msg := <-received:
		if msg.Key != "c-9" {
			t.Errorf("expected key c-9, got %q", msg.Key)
		}
		var got domain.CheckoutOutcomeEvent
		if err := json.Unmarshal(msg.Value, &got); err != nil {
			t.Fatalf("failed to decode event: %v", err)
		}
		if got.State != domain.CheckoutStateCommitted {
			t.Errorf("expected committed, got %s", got.State)
		}
	case <-ctx.Done():
		t.Fatal("no message received")
	}
}

// contentBackend fakes the order and transaction collections of the
// content backend.
type contentBackend struct {
	mu             sync.Mutex
	failTransaction bool
	orders         []map[string]any
	transactions   []map[string]any
}

func (b *contentBackend) handler() http.Handler {
	mux := http.NewServeMux()
	mux.HandleFunc("POST /api/orders", func(w http.ResponseWriter, r *http.Request) {
		b.record(w, r, &b.orders, `{"data":{"id":31,"documentId":"ord-31"}}`, false)
	})
	mux.HandleFunc("POST /api/transactions", func(w http.ResponseWriter, r *http.Request) {
		b.record(w, r, &b.transactions, `{"data":{"id":5,"documentId":"tx-5"}}`, b.failTransaction)
	})
	return mux
}

func (b *contentBackend) record(w http.ResponseWriter, r *http.Request, into *[]map[string]any, created string, fail bool) {
	var body struct {
		Data map[string]any `json:"data"`
	}
	if err := json.NewDecoder(r.Body).Decode(&body); err != nil {
		http.Error(w, "invalid body", http.StatusBadRequest)
		return
	}

	w.Header().Set("Content-Type", "application/json")
	if fail {
		w.WriteHeader(http.StatusBadRequest)
		_, _ = io.WriteString(w, `{"data":null,"error":{"status":400,"name":"ValidationError","message":"Invalid key order"}}`)
		return
	}

	b.mu.Lock()
	*into = append(*into, body.Data)
	b.mu.Unlock()

	w.WriteHeader(http.StatusOK)
	_, _ = io.WriteString(w, created)
}

func TestCheckoutOutcomeJournal(t *testing.T) {
	ctx, cancel := context.WithTimeout(context.Background(), 3*time.Minute)
	defer cancel()

	store := SetupJournalStore(ctx, t)
	bus := SetupOutcomeBus(ctx, t, "checkout.outcome.test")

	logger := slog.New(slog.NewTextHandler(io.Discard, nil))

	content := &contentBackend{failTransaction: true}
	server := httptest.NewServer(content.handler())
	defer server.Close()

	orchestrator, err := checkout.NewOrchestrator(backend.NewClient(server.URL, server.Client()), bus.Producer(t), logger)
	if err != nil {
		t.Fatalf("failed to create orchestrator: %v", err)
	}

	c := cart.New()
	c.Add(domain.Product{ID: "1", Name: "Apple", Price: decimal.RequireFromString("3.50")})
	c.Add(domain.Product{ID: "1", Name: "Apple", Price: decimal.RequireFromString("3.50")})
	shopper := identity.Identity{UserID: "9", Credential: "jwt-token"}

	result, err := orchestrator.Checkout(ctx, c, shopper)
	if err == nil {
		t.Fatal("expected transaction write to fail")
	}
	if result.State != domain.CheckoutStateTransactionFailed {
		t.Fatalf("expected transaction_failed, got %s", result.State)
	}
	if !strings.Contains(checkout.UserMessage(err), "Invalid key order") {
		t.Errorf("expected backend message, got %q", checkout.UserMessage(err))
	}
	if c.IsEmpty() {
		t.Error("expected cart to be retained after partial failure")
	}

	eventHandler := journal.NewEventHandler(store.Repo, logger)
	consumer := bus.Consumer(t, "journal-test")

	consumeCtx, stopConsuming := context.WithCancel(ctx)
	defer stopConsuming()
	go func() { _ = consumer.Consume(consumeCtx, eventHandler.Handle) }()

	outcome := WaitForOutcome(ctx, t, store.Repo, result.CheckoutID, 60*time.Second)
	if outcome.State != domain.CheckoutStateTransactionFailed {
		t.Errorf("expected journal state transaction_failed, got %s", outcome.State)
	}
	if outcome.OrderID != "ord-31" {
		t.Errorf("expected order ord-31 in journal, got %q", outcome.OrderID)
	}
	if outcome.TotalQuantity != 2 {
		t.Errorf("expected total quantity 2, got %d", outcome.TotalQuantity)
	}

	content.mu.Lock()
	defer content.mu.Unlock()
	if len(content.orders) != 1 || len(content.transactions) != 0 {
		t.Errorf("expected one order and no transaction, got %d/%d", len(content.orders), len(content.transactions))
	}
}
