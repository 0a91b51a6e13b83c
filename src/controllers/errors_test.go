package controllers

import (
	"errors"
	"fmt"
	"net/http"
	"testing"

	"mazza/src/types"

	"github.com/stretchr/testify/assert"
)

func TestStatusFor(t *testing.T) {
	cases := []struct {
		err    error
		status int
		code   string
	}{
		{types.ErrInvalidQuantity, http.StatusBadRequest, "INVALID_QUANTITY"},
		{types.ErrInvalidQRCode, http.StatusBadRequest, "INVALID_QR_CODE"},
		{types.ErrUnauthorizedAccess, http.StatusForbidden, "FORBIDDEN"},
		{&types.NotFoundError{Entity: "booking", ID: "x"}, http.StatusNotFound, "NOT_FOUND"},
		{&types.InsufficientStockError{Requested: 3, Available: 1}, http.StatusConflict, "INSUFFICIENT_STOCK"},
		{types.NewInvalidStateTransition("booking", types.BOOKING_COMPLETED, types.BOOKING_CANCELLED), http.StatusConflict, "INVALID_STATE_TRANSITION"},
		{types.ErrProductExpired, http.StatusConflict, "PRODUCT_EXPIRED"},
		{fmt.Errorf("create: %w", types.ErrDuplicateBooking), http.StatusConflict, "DUPLICATE_BOOKING"},
		{&types.PaymentFailedError{Reason: "declined"}, http.StatusUnprocessableEntity, "PAYMENT_FAILED"},
		{errors.New("connection reset"), http.StatusInternalServerError, "INTERNAL"},
	}
	for _, tc := range cases {
		t.Run(tc.code, func(t *testing.T) {
			status := StatusFor(tc.err)
			assert.Equal(t, tc.status, status)
			assert.Equal(t, tc.code, ErrorBody(status, tc.err)["code"])
		})
	}
}

func TestErrorBodyDetails(t *testing.T) {
	body := ErrorBody(http.StatusConflict, &types.InsufficientStockError{Requested: 3, Available: 1})
	assert.Equal(t, 3, body["requested"])
	assert.Equal(t, 1, body["available"])

	body = ErrorBody(http.StatusInternalServerError, errors.New("pq: password authentication failed"))
	assert.Equal(t, "internal server error", body["error"])
}
