package checkout

import (
	"context"
	"errors"
	"fmt"

	"github.com/joao-fontenele/storefront-checkout/internal/backend"
)

var (
	ErrUnauthenticated        = errors.New("unauthenticated")
	ErrEmptyCart              = fmt.Errorf("%w: cart is empty", ErrUnauthenticated)
	ErrOrderWriteFailed       = errors.New("order write failed")
	ErrTransactionWriteFailed = errors.New("transaction write failed")
	ErrTransport              = errors.New("backend unreachable")
	ErrTimeout                = errors.New("backend write timed out")
)

type Step string

const (
	StepOrder       Step = "order"
	StepTransaction Step = "transaction"
)

func (s Step) fallbackMessage() string {
	if s == StepOrder {
		return "Failed to create order"
	}
	return "Failed to create transaction"
}

// WriteError is a failed remote write. It matches the step's sentinel, and
// ErrTimeout or ErrTransport when those caused it.
type WriteError struct {
	Step      Step
	Message   string
	Status    int
	Timeout   bool
	Transport bool
	Err       error
}

func newWriteError(step Step, err error) *WriteError {
	werr := &WriteError{
		Step:      step,
		Message:   step.fallbackMessage(),
		Timeout:   errors.Is(err, context.DeadlineExceeded),
		Transport: errors.Is(err, backend.ErrTransport),
		Err:       err,
	}

	var apiErr *backend.APIError
	if errors.As(err, &apiErr) {
		werr.Status = apiErr.Status
		if apiErr.Message != "" {
			werr.Message = apiErr.Message
		}
	}

	return werr
}

func (e *WriteError) Error() string {
	return fmt.Sprintf("%s write failed: %v", e.Step, e.Err)
}

func (e *WriteError) Unwrap() []error {
	errs := make([]error, 0, 4)
	if e.Step == StepOrder {
		errs = append(errs, ErrOrderWriteFailed)
	} else {
		errs = append(errs, ErrTransactionWriteFailed)
	}
	if e.Timeout {
		errs = append(errs, ErrTimeout)
	}
	if e.Transport {
		errs = append(errs, ErrTransport)
	}
	return append(errs, e.Err)
}

// UserMessage returns the text to show the shopper for a checkout error.
func UserMessage(err error) string {
	var werr *WriteError
	switch {
	case errors.As(err, &werr):
		return werr.Message
	case errors.Is(err, ErrEmptyCart):
		return "Your cart is empty"
	case errors.Is(err, ErrUnauthenticated):
		return "Please login first"
	case err != nil:
		return "Failed to create order"
	default:
		return ""
	}
}
