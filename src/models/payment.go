package models

import (
	"time"

	"mazza/src/types"

	"github.com/google/uuid"
	"github.com/shopspring/decimal"
)

type Payment struct {
	ID             uuid.UUID           `gorm:"primarykey;type:uuid" json:"id"`
	BookingID      uuid.UUID           `gorm:"type:uuid;not null;uniqueIndex:uq_payments_booking_id" json:"bookingId"`
	Amount         decimal.Decimal     `gorm:"type:numeric(10,2);not null" json:"amount"`
	Currency       string              `gorm:"size:3;not null" json:"currency"`
	Status         types.PaymentStatus `gorm:"size:24;index;not null" json:"status"`
	PaymentMethod  string              `json:"-"`
	ProviderTxID   *string             `json:"providerTxId,omitempty"`
	IdempotencyKey string              `gorm:"size:200;not null;uniqueIndex:uq_payments_idempotency_key" json:"-"`
	RefundedAmount decimal.Decimal     `gorm:"type:numeric(10,2);not null;default:0" json:"refundedAmount"`
	RefundID       *string             `json:"refundId,omitempty"`
	CardLast4      string              `gorm:"size:4" json:"cardLast4,omitempty"`
	CardBrand      string              `json:"cardBrand,omitempty"`
	FailureReason  string              `json:"failureReason,omitempty"`
	CapturedAt     *time.Time          `json:"capturedAt,omitempty"`
	RefundedAt     *time.Time          `json:"refundedAt,omitempty"`
	FailedAt       *time.Time          `json:"failedAt,omitempty"`

	types.Timestamps
}

func NewPayment(booking *Booking, paymentMethod, idempotencyKey string) *Payment {
	return &Payment{
		ID:             uuid.New(),
		BookingID:      booking.ID,
		Amount:         booking.TotalPrice,
		Currency:       booking.Currency,
		Status:         types.PAYMENT_PENDING,
		PaymentMethod:  paymentMethod,
		IdempotencyKey: idempotencyKey,
		RefundedAmount: decimal.Zero,
	}
}

func (p *Payment) MarkCaptured(txID, last4, brand string, at time.Time) error {
	if p.Status != types.PAYMENT_PENDING {
		return types.NewInvalidStateTransition("payment", p.Status, types.PAYMENT_CAPTURED)
	}
	p.Status = types.PAYMENT_CAPTURED
	p.ProviderTxID = &txID
	p.CardLast4 = last4
	p.CardBrand = brand
	stamp(&p.CapturedAt, at)
	return nil
}

func (p *Payment) MarkFailed(reason string, at time.Time) error {
	if p.Status != types.PAYMENT_PENDING {
		return types.NewInvalidStateTransition("payment", p.Status, types.PAYMENT_FAILED)
	}
	p.Status = types.PAYMENT_FAILED
	p.FailureReason = reason
	stamp(&p.FailedAt, at)
	return nil
}

// Refundable is the captured amount not yet refunded.
func (p *Payment) Refundable() decimal.Decimal {
	return p.Amount.Sub(p.RefundedAmount)
}

func (p *Payment) MarkRefunded(amount decimal.Decimal, refundID string, at time.Time) error {
	if p.Status != types.PAYMENT_CAPTURED && p.Status != types.PAYMENT_PARTIALLY_REFUNDED {
		return types.NewInvalidStateTransition("payment", p.Status, types.PAYMENT_REFUNDED)
	}
	p.RefundedAmount = p.RefundedAmount.Add(amount)
	if p.RefundedAmount.GreaterThanOrEqual(p.Amount) {
		p.RefundedAmount = p.Amount
		p.Status = types.PAYMENT_REFUNDED
	} else {
		p.Status = types.PAYMENT_PARTIALLY_REFUNDED
	}
	if refundID != "" {
		p.RefundID = &refundID
	}
	t := at
	p.RefundedAt = &t
	return nil
}
