package models

import (
	"errors"
	"testing"
	"time"

	"mazza/src/types"

	"github.com/google/uuid"
	"github.com/shopspring/decimal"
	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
)

var allBookingStatuses = []types.BookingStatus{
	types.BOOKING_PENDING,
	types.BOOKING_CONFIRMED,
	types.BOOKING_READY,
	types.BOOKING_COMPLETED,
	types.BOOKING_CANCELLED,
	types.BOOKING_EXPIRED,
	types.BOOKING_FAILED,
}

func newPendingBooking() *Booking {
	p := newActiveProduct(5)
	return NewBooking(uuid.New(), p, 2, "key-"+uuid.NewString())
}

func TestNewBookingCopiesListing(t *testing.T) {
	p := newActiveProduct(5)
	p.PickupEnd = time.Now().Add(2 * time.Hour)
	b := NewBooking(uuid.New(), p, 3, "abc12345")

	assert.Equal(t, types.BOOKING_PENDING, b.Status)
	assert.Equal(t, p.StoreID, b.StoreID)
	assert.True(t, decimal.RequireFromString("13.50").Equal(b.TotalPrice))
	assert.Equal(t, p.PickupEnd, b.PickupEnd)
	require.NotNil(t, b.IdempotencyKey)
	assert.Equal(t, "abc12345", *b.IdempotencyKey)
}

func TestTransitionTable(t *testing.T) {
	legal := map[types.BookingStatus][]types.BookingStatus{
		types.BOOKING_PENDING:   {types.BOOKING_CONFIRMED, types.BOOKING_FAILED, types.BOOKING_CANCELLED},
		types.BOOKING_CONFIRMED: {types.BOOKING_READY, types.BOOKING_COMPLETED, types.BOOKING_CANCELLED, types.BOOKING_EXPIRED},
		types.BOOKING_READY:     {types.BOOKING_COMPLETED, types.BOOKING_CANCELLED, types.BOOKING_EXPIRED},
	}
	for _, from := range allBookingStatuses {
		for _, to := range allBookingStatuses {
			expected := false
			for _, s := range legal[from] {
				if s == to {
					expected = true
				}
			}
			assert.Equalf(t, expected, CanTransition(from, to), "%s -> %s", from, to)
		}
	}
}

func TestBookingHappyPath(t *testing.T) {
	b := newPendingBooking()
	now := time.Now()

	require.NoError(t, b.Confirm(now))
	require.NoError(t, b.MarkReady(now.Add(time.Minute)))
	require.NoError(t, b.Complete(now.Add(2*time.Minute)))

	assert.Equal(t, types.BOOKING_COMPLETED, b.Status)
	assert.Equal(t, now, *b.ConfirmedAt)
	assert.NotNil(t, b.ReadyAt)
	assert.NotNil(t, b.CompletedAt)
}

func TestConfirmedAtStampedOnce(t *testing.T) {
	b := newPendingBooking()
	first := time.Now()
	require.NoError(t, b.Confirm(first))

	err := b.Confirm(first.Add(time.Hour))
	var transitionErr *types.InvalidStateTransitionError
	require.True(t, errors.As(err, &transitionErr))
	assert.Equal(t, "booking", transitionErr.Entity)
	assert.Equal(t, string(types.BOOKING_CONFIRMED), transitionErr.From)
	assert.Equal(t, first, *b.ConfirmedAt)
}

func TestCancelGuards(t *testing.T) {
	actor := uuid.New()
	for _, from := range allBookingStatuses {
		b := newPendingBooking()
		b.Status = from
		err := b.Cancel("changed my mind", actor, time.Now())
		switch from {
		case types.BOOKING_PENDING, types.BOOKING_CONFIRMED, types.BOOKING_READY:
			require.NoErrorf(t, err, "from %s", from)
			assert.Equal(t, types.BOOKING_CANCELLED, b.Status)
			assert.Equal(t, actor, *b.CancelledBy)
			assert.NotNil(t, b.CancelledAt)
		default:
			var transitionErr *types.InvalidStateTransitionError
			assert.Truef(t, errors.As(err, &transitionErr), "from %s", from)
			assert.Equal(t, from, b.Status)
			assert.Nil(t, b.CancelledAt)
		}
	}
}

func TestCompleteAndExpireGuards(t *testing.T) {
	for _, from := range allBookingStatuses {
		allowed := from == types.BOOKING_CONFIRMED || from == types.BOOKING_READY

		b := newPendingBooking()
		b.Status = from
		assert.Equalf(t, allowed, b.Complete(time.Now()) == nil, "complete from %s", from)

		b = newPendingBooking()
		b.Status = from
		assert.Equalf(t, allowed, b.MarkExpired(time.Now()) == nil, "expire from %s", from)
	}
}

func TestFailRecordsReason(t *testing.T) {
	b := newPendingBooking()
	require.NoError(t, b.Fail("card_declined", time.Now()))
	assert.Equal(t, types.BOOKING_FAILED, b.Status)
	assert.Equal(t, "card_declined", b.FailureReason)
	assert.False(t, b.HoldsStock())
}

func TestPaymentLifecycle(t *testing.T) {
	b := newPendingBooking()
	p := NewPayment(b, "pm_card_visa", "booking:key")
	assert.Equal(t, types.PAYMENT_PENDING, p.Status)
	assert.True(t, b.TotalPrice.Equal(p.Amount))

	require.NoError(t, p.MarkCaptured("pi_123", "4242", "visa", time.Now()))
	assert.Equal(t, "pi_123", *p.ProviderTxID)
	assert.Error(t, p.MarkFailed("late", time.Now()))

	half := p.Amount.Div(decimal.NewFromInt(2))
	require.NoError(t, p.MarkRefunded(half, "re_1", time.Now()))
	assert.Equal(t, types.PAYMENT_PARTIALLY_REFUNDED, p.Status)
	require.NoError(t, p.MarkRefunded(half, "re_2", time.Now()))
	assert.Equal(t, types.PAYMENT_REFUNDED, p.Status)
	assert.True(t, p.Refundable().IsZero())
}

func TestImpactDelta(t *testing.T) {
	p := newActiveProduct(5)
	p.OriginalPrice = decimal.RequireFromString("10.00")
	b := NewBooking(uuid.New(), p, 2, "impact-key")

	d := NewImpactDelta(b, p)
	assert.Equal(t, int64(2), d.Meals)
	assert.True(t, decimal.RequireFromString("9.00").Equal(d.Revenue))
	assert.True(t, decimal.RequireFromString("11.00").Equal(d.Saved))
	assert.InDelta(t, 0.8, d.FoodKg, 0.0001)
}
