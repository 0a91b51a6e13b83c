package types

import (
	"errors"
	"fmt"
)

var (
	ErrProductExpired       = errors.New("product has expired")
	ErrDuplicateBooking     = errors.New("idempotency key was already used by a failed booking")
	ErrUnauthorizedAccess   = errors.New("access denied")
	ErrInvalidQuantity      = errors.New("quantity must be greater than zero")
	ErrInvalidQRCode        = errors.New("invalid qr code")
	ErrOrderNumberExhausted = errors.New("could not allocate a unique order number")
)

type InvalidStateTransitionError struct {
	Entity string
	From   string
	To     string
}

func (e *InvalidStateTransitionError) Error() string {
	return fmt.Sprintf("invalid %s state transition from %s to %s", e.Entity, e.From, e.To)
}

func NewInvalidStateTransition[S ~string, T ~string](entity string, from S, to T) *InvalidStateTransitionError {
	return &InvalidStateTransitionError{Entity: entity, From: string(from), To: string(to)}
}

type InsufficientStockError struct {
	Requested int
	Available int
}

func (e *InsufficientStockError) Error() string {
	return fmt.Sprintf("insufficient stock: requested %d, available %d", e.Requested, e.Available)
}

type PaymentFailedError struct {
	Reason      string
	BookingID   string
	OrderNumber string
}

func (e *PaymentFailedError) Error() string {
	return fmt.Sprintf("payment failed: %s", e.Reason)
}

type NotFoundError struct {
	Entity string
	ID     string
}

func (e *NotFoundError) Error() string {
	return fmt.Sprintf("%s [%s] not found", e.Entity, e.ID)
}
