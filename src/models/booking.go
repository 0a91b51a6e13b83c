package models

import (
	"slices"
	"time"

	"mazza/src/types"

	"github.com/google/uuid"
	"github.com/shopspring/decimal"
)

var bookingTransitions = map[types.BookingStatus][]types.BookingStatus{
	types.BOOKING_PENDING:   {types.BOOKING_CONFIRMED, types.BOOKING_FAILED, types.BOOKING_CANCELLED},
	types.BOOKING_CONFIRMED: {types.BOOKING_READY, types.BOOKING_COMPLETED, types.BOOKING_CANCELLED, types.BOOKING_EXPIRED},
	types.BOOKING_READY:     {types.BOOKING_COMPLETED, types.BOOKING_CANCELLED, types.BOOKING_EXPIRED},
}

// Booking rows are never deleted.
type Booking struct {
	ID                 uuid.UUID           `gorm:"primarykey;type:uuid" json:"id"`
	OrderNumber        string              `gorm:"size:32;not null;uniqueIndex:uq_bookings_order_number" json:"orderNumber"`
	UserID             uuid.UUID           `gorm:"type:uuid;index;not null" json:"userId"`
	ProductID          uuid.UUID           `gorm:"type:uuid;index;not null" json:"productId"`
	StoreID            uuid.UUID           `gorm:"type:uuid;index;not null" json:"storeId"`
	Quantity           int                 `gorm:"not null" json:"quantity"`
	UnitPrice          decimal.Decimal     `gorm:"type:numeric(10,2);not null" json:"unitPrice"`
	TotalPrice         decimal.Decimal     `gorm:"type:numeric(10,2);not null" json:"totalPrice"`
	Currency           string              `gorm:"size:3" json:"currency"`
	Status             types.BookingStatus `gorm:"size:16;index;not null" json:"status"`
	PickupStart        time.Time           `json:"pickupStart"`
	PickupEnd          time.Time           `gorm:"index" json:"pickupEnd"`
	IdempotencyKey     *string             `gorm:"size:192;uniqueIndex:uq_bookings_idempotency_key" json:"-"`
	QRCodeData         string              `json:"qrCodeData,omitempty"`
	CancellationReason string              `json:"cancellationReason,omitempty"`
	CancelledBy        *uuid.UUID          `gorm:"type:uuid" json:"cancelledBy,omitempty"`
	FailureReason      string              `json:"failureReason,omitempty"`
	ConfirmedAt        *time.Time          `json:"confirmedAt,omitempty"`
	ReadyAt            *time.Time          `json:"readyAt,omitempty"`
	CompletedAt        *time.Time          `json:"completedAt,omitempty"`
	CancelledAt        *time.Time          `json:"cancelledAt,omitempty"`
	ExpiredAt          *time.Time          `json:"expiredAt,omitempty"`
	FailedAt           *time.Time          `json:"failedAt,omitempty"`
	ReminderSentAt     *time.Time          `json:"-"`

	Payment *Payment `gorm:"foreignKey:BookingID" json:"payment,omitempty"`

	types.Timestamps
}

func NewBooking(userID uuid.UUID, product *Product, qty int, idempotencyKey string) *Booking {
	key := idempotencyKey
	return &Booking{
		ID:             uuid.New(),
		UserID:         userID,
		ProductID:      product.ID,
		StoreID:        product.StoreID,
		Quantity:       qty,
		UnitPrice:      product.DiscountedPrice,
		TotalPrice:     product.DiscountedPrice.Mul(decimal.NewFromInt(int64(qty))),
		Currency:       product.Currency,
		Status:         types.BOOKING_PENDING,
		PickupStart:    product.PickupStart,
		PickupEnd:      product.PickupEnd,
		IdempotencyKey: &key,
	}
}

func CanTransition(from, to types.BookingStatus) bool {
	return slices.Contains(bookingTransitions[from], to)
}

func (b *Booking) transition(to types.BookingStatus) error {
	if !CanTransition(b.Status, to) {
		return types.NewInvalidStateTransition("booking", b.Status, to)
	}
	b.Status = to
	return nil
}

func (b *Booking) requireStatus(to types.BookingStatus, allowed ...types.BookingStatus) error {
	if !slices.Contains(allowed, b.Status) {
		return types.NewInvalidStateTransition("booking", b.Status, to)
	}
	return nil
}

func stamp(field **time.Time, at time.Time) {
	if *field == nil {
		t := at
		*field = &t
	}
}

func (b *Booking) Confirm(at time.Time) error {
	if err := b.transition(types.BOOKING_CONFIRMED); err != nil {
		return err
	}
	stamp(&b.ConfirmedAt, at)
	return nil
}

func (b *Booking) Fail(reason string, at time.Time) error {
	if err := b.transition(types.BOOKING_FAILED); err != nil {
		return err
	}
	b.FailureReason = reason
	stamp(&b.FailedAt, at)
	return nil
}

func (b *Booking) MarkReady(at time.Time) error {
	if err := b.transition(types.BOOKING_READY); err != nil {
		return err
	}
	stamp(&b.ReadyAt, at)
	return nil
}

func (b *Booking) Cancel(reason string, by uuid.UUID, at time.Time) error {
	if err := b.requireStatus(types.BOOKING_CANCELLED, types.BOOKING_PENDING, types.BOOKING_CONFIRMED, types.BOOKING_READY); err != nil {
		return err
	}
	if err := b.transition(types.BOOKING_CANCELLED); err != nil {
		return err
	}
	b.CancellationReason = reason
	b.CancelledBy = &by
	stamp(&b.CancelledAt, at)
	return nil
}

func (b *Booking) Complete(at time.Time) error {
	if err := b.requireStatus(types.BOOKING_COMPLETED, types.BOOKING_CONFIRMED, types.BOOKING_READY); err != nil {
		return err
	}
	if err := b.transition(types.BOOKING_COMPLETED); err != nil {
		return err
	}
	stamp(&b.CompletedAt, at)
	return nil
}

func (b *Booking) MarkExpired(at time.Time) error {
	if err := b.requireStatus(types.BOOKING_EXPIRED, types.BOOKING_CONFIRMED, types.BOOKING_READY); err != nil {
		return err
	}
	if err := b.transition(types.BOOKING_EXPIRED); err != nil {
		return err
	}
	stamp(&b.ExpiredAt, at)
	return nil
}

// HoldsStock reports whether the booking still has units reserved on its product.
func (b *Booking) HoldsStock() bool {
	switch b.Status {
	case types.BOOKING_PENDING, types.BOOKING_CONFIRMED, types.BOOKING_READY:
		return true
	}
	return false
}
