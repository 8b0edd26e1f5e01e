package backend

import (
	"errors"
	"fmt"
	"net/http"
)

// ErrTransport marks failures where no response was received from the
// backend at all.
var ErrTransport = errors.New("backend unreachable")

// APIError is a non-2xx response. Message is the backend's error message when
// it sent one, and a generic fallback otherwise.
type APIError struct {
	Status  int
	Name    string
	Message string
}

func (e *APIError) Error() string {
	return fmt.Sprintf("backend returned status %d: %s", e.Status, e.Message)
}

type errorBody struct {
	Error *struct {
		Status  int    `json:"status"`
		Name    string `json:"name"`
		Message string `json:"message"`
	} `json:"error"`
}

func newAPIError(status int, body errorBody, fallback string) *APIError {
	apiErr := &APIError{Status: status, Message: fallback}
	if body.Error != nil {
		apiErr.Name = body.Error.Name
		if body.Error.Message != "" {
			apiErr.Message = body.Error.Message
		}
	}
	if apiErr.Message == "" {
		apiErr.Message = http.StatusText(status)
	}
	return apiErr
}
