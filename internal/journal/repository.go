package journal

import (
	"context"
	"database/sql"
	"errors"
	"time"

	"github.com/lib/pq"

	"github.com/joao-fontenele/storefront-checkout/internal/domain"
)

// Outcome is one journal row: the last reported state of a checkout.
type Outcome struct {
	domain.CheckoutOutcomeEvent
	RecordedAt time.Time `json:"recorded_at"`
}

type OutcomeRepository struct {
	db *sql.DB
}

func NewOutcomeRepository(db *sql.DB) *OutcomeRepository {
	return &OutcomeRepository{db: db}
}

// Record upserts by checkout id. An older event never overwrites a newer one.
func (r *OutcomeRepository) Record(ctx context.Context, event domain.CheckoutOutcomeEvent) error {
	_, err := r.db.ExecContext(ctx, `
		INSERT INTO journal.checkout_outcomes
			(checkout_id, user_id, state, order_id, transaction_id, error, total_quantity, total_price, occurred_at)
		VALUES ($1, $2, $3, $4, $5, $6, $7, $8, $9)
		ON CONFLICT (checkout_id) DO UPDATE SET
			state = EXCLUDED.state,
			order_id = EXCLUDED.order_id,
			transaction_id = EXCLUDED.transaction_id,
			error = EXCLUDED.error,
			occurred_at = EXCLUDED.occurred_at,
			recorded_at = NOW()
		WHERE journal.checkout_outcomes.occurred_at <= EXCLUDED.occurred_at
	`, event.CheckoutID, event.UserID.String(), string(event.State), event.OrderID, event.TransactionID,
		event.Error, event.TotalQuantity, event.TotalPrice, event.Timestamp)
	return err
}

const selectOutcomes = `
	SELECT checkout_id, user_id, state, order_id, transaction_id, error,
		total_quantity, total_price, occurred_at, recorded_at
	FROM journal.checkout_outcomes
`

func (r *OutcomeRepository) GetByID(ctx context.Context, checkoutID string) (*Outcome, error) {
	row := r.db.QueryRowContext(ctx, selectOutcomes+` WHERE checkout_id = $1`, checkoutID)

	outcome, err := scanOutcome(row)
	if errors.Is(err, sql.ErrNoRows) {
		return nil, nil
	}
	if err != nil {
		return nil, err
	}
	return outcome, nil
}

// List returns outcomes newest first, limited to the given states when any
// are passed.
func (r *OutcomeRepository) List(ctx context.Context, states ...domain.CheckoutState) ([]Outcome, error) {
	var (
		rows *sql.Rows
		err  error
	)

	if len(states) == 0 {
		rows, err = r.db.QueryContext(ctx, selectOutcomes+` ORDER BY occurred_at DESC`)
	} else {
		filter := make([]string, len(states))
		for i, s := range states {
			filter[i] = string(s)
		}
		rows, err = r.db.QueryContext(ctx, selectOutcomes+` WHERE state = ANY($1) ORDER BY occurred_at DESC`, pq.Array(filter))
	}
	if err != nil {
		return nil, err
	}
	defer func() { _ = rows.Close() }()

	outcomes := []Outcome{}
	for rows.Next() {
		outcome, err := scanOutcome(rows)
		if err != nil {
			return nil, err
		}
		outcomes = append(outcomes, *outcome)
	}

	if err := rows.Err(); err != nil {
		return nil, err
	}

	return outcomes, nil
}

type scanner interface {
	Scan(dest ...any) error
}

func scanOutcome(s scanner) (*Outcome, error) {
	var (
		o      Outcome
		userID string
		state  string
	)

	err := s.Scan(&o.CheckoutID, &userID, &state, &o.OrderID, &o.TransactionID, &o.Error,
		&o.TotalQuantity, &o.TotalPrice, &o.Timestamp, &o.RecordedAt)
	if err != nil {
		return nil, err
	}

	o.UserID = domain.ID(userID)
	o.State = domain.CheckoutState(state)
	o.Timestamp = o.Timestamp.UTC()
	o.RecordedAt = o.RecordedAt.UTC()
	return &o, nil
}
