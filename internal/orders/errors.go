package orders

import (
	"errors"
	"fmt"

	"go.mongodb.org/mongo-driver/bson/primitive"

	"glitchstore/internal/models"
)

var (
	ErrNoItems              = errors.New("at least one item is required")
	ErrInvalidQuantity      = errors.New("quantity must be greater than zero")
	ErrGuestContactRequired = errors.New("guestEmail and guestName are required for guest checkout")
	ErrInvalidStatus        = errors.New("invalid order status")
	// ErrMissingPaymentID means the webhook payload carried no payment id to
	// look up; the notification cannot be reconciled and retrying won't help.
	ErrMissingPaymentID = errors.New("payment id missing from webhook notification")
)

// StockError fails a checkout when a product is missing, inactive, or short
// on stock. The whole checkout fails; no partial order is created.
type StockError struct {
	ProductID primitive.ObjectID
	Requested int
	Available int
	Missing   bool
}

func (e *StockError) Error() string {
	if e.Missing {
		return fmt.Sprintf("product %s not found or inactive", e.ProductID.Hex())
	}
	return fmt.Sprintf("insufficient stock for product %s: available %d, requested %d",
		e.ProductID.Hex(), e.Available, e.Requested)
}

type NotFoundError struct {
	Resource string
	ID       string
}

func (e *NotFoundError) Error() string {
	return fmt.Sprintf("%s %s not found", e.Resource, e.ID)
}

// StateConflictError rejects preference creation on an order that is no
// longer PENDING, preventing duplicate hosted checkout sessions.
type StateConflictError struct {
	OrderID primitive.ObjectID
	Status  models.OrderStatus
}

func (e *StateConflictError) Error() string {
	return fmt.Sprintf("order %s is not in a valid state for payment: %s", e.OrderID.Hex(), e.Status)
}

// ProviderError wraps a failed payment-provider call. The webhook handler
// reports it retriable so the provider redelivers.
type ProviderError struct {
	Op  string
	Err error
}

func (e *ProviderError) Error() string {
	return fmt.Sprintf("payment provider: %s: %v", e.Op, e.Err)
}

func (e *ProviderError) Unwrap() error { return e.Err }

// DataIntegrityError means a webhook referenced an external reference no
// order carries. Redelivery cannot fix it; it is logged as a permanent
// failure.
type DataIntegrityError struct {
	ExternalReference string
}

func (e *DataIntegrityError) Error() string {
	return fmt.Sprintf("no order found for external reference %q", e.ExternalReference)
}
