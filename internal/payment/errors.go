package payment

import (
	"context"
	"errors"
	"fmt"
)

// Precondition errors are detected before any network call and are never
// retried. Submission errors end the purchase attempt; retrying a charge
// without an idempotency guarantee from the backend is worse than asking
// the user to resubmit.
var (
	ErrInvalidPhone         = errors.New("invalid phone number")
	ErrInvalidPlan          = errors.New("invalid plan")
	ErrRouterNotReady       = errors.New("router identity not resolved")
	ErrSubmitTimeout        = errors.New("payment request timed out")
	ErrNetwork              = errors.New("network error")
	ErrMissingCorrelationID = errors.New("payment response missing correlation id")
)

// Rejected is a non-2xx answer from the billing backend, carrying the
// server-supplied message.
type Rejected struct {
	Message string
}

func (e *Rejected) Error() string {
	if e.Message == "" {
		return "payment rejected"
	}
	return "payment rejected: " + e.Message
}

// Kind maps an error to a stable identifier used in API responses and
// metric labels, so callers never have to string-match messages.
func Kind(err error) string {
	var rejected *Rejected

	switch {
	case err == nil:
		return ""
	case errors.Is(err, ErrInvalidPhone):
		return "invalid_phone"
	case errors.Is(err, ErrInvalidPlan):
		return "invalid_plan"
	case errors.Is(err, ErrRouterNotReady):
		return "router_not_ready"
	case errors.Is(err, ErrSubmitTimeout), errors.Is(err, context.DeadlineExceeded):
		return "timeout"
	case errors.Is(err, ErrNetwork):
		return "network"
	case errors.Is(err, ErrMissingCorrelationID):
		return "missing_correlation_id"
	case errors.As(err, &rejected):
		return "rejected"
	default:
		return "internal"
	}
}

// UserMessage returns the message shown on the portal page for a submission
// error. Every kind maps to exactly one distinguishable message.
func UserMessage(err error) string {
	var rejected *Rejected

	switch {
	case err == nil:
		return ""
	case errors.Is(err, ErrInvalidPhone):
		return "Please enter a valid phone number (10 digits starting with 07 or 01)."
	case errors.Is(err, ErrInvalidPlan):
		return "Please select a plan first."
	case errors.Is(err, ErrRouterNotReady):
		return "The hotspot is still starting up. Please try again in a moment."
	case errors.Is(err, ErrSubmitTimeout):
		return "Payment request timed out. Please check your connection and try again."
	case errors.Is(err, ErrNetwork):
		return "Network error. Please check your connection and try again."
	case errors.Is(err, ErrMissingCorrelationID):
		return "Payment could not be confirmed. Please contact support."
	case errors.As(err, &rejected) && rejected.Message != "":
		return rejected.Message
	default:
		return "Payment failed. Please try again."
	}
}

// wrapNetwork keeps the transport detail while making the error match
// ErrNetwork for Kind and errors.Is.
func wrapNetwork(err error) error {
	return fmt.Errorf("%w: %v", ErrNetwork, err)
}
