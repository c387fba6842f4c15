package services

import (
	"errors"
	"fmt"
	"strings"

	"golang-ordering-backend/internal/gateways"
)

var (
	// ErrInvalidQuantity rejects mutations that would store a quantity
	// below 1. Deleting a line is RemoveItem's job, never UpdateItem's.
	ErrInvalidQuantity = errors.New("quantity must be at least 1")

	// ErrAuthRequired guards operations that only make sense for an
	// authenticated session, such as the guest cart migration.
	ErrAuthRequired = errors.New("authenticated session required")

	// ErrRetryLimitExceeded routes the user to support instead of another
	// retry. Re-exported so handlers never import the gateway package.
	ErrRetryLimitExceeded = gateways.ErrRetryLimitExceeded

	// ErrDishNotFound reports a catalog lookup miss. Checkout treats it as
	// non-fatal and falls back to the cart line's own id.
	ErrDishNotFound = errors.New("dish not found in catalog")
)

// ValidationError aggregates every checkout precondition violation so the
// UI can render the full list, not just the first failure.
type ValidationError struct {
	Violations []string
}

func (e *ValidationError) Error() string {
	return "checkout validation failed: " + strings.Join(e.Violations, "; ")
}

// CartSyncError reports that a cart mutation could not be fully synced with
// its backend. The returned snapshot is still the best-known state; the UI
// shows a non-blocking warning rather than a failure.
type CartSyncError struct {
	Cause error
}

func (e *CartSyncError) Error() string {
	return fmt.Sprintf("cart sync degraded: %v", e.Cause)
}

func (e *CartSyncError) Unwrap() error {
	return e.Cause
}
