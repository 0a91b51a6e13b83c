package controllers

import (
	"errors"
	"log"
	"net/http"

	"mazza/src/types"

	"github.com/gin-gonic/gin"
)

// StatusFor maps a domain error to its HTTP status.
func StatusFor(err error) int {
	var (
		ist *types.InvalidStateTransitionError
		is  *types.InsufficientStockError
		pf  *types.PaymentFailedError
		nf  *types.NotFoundError
	)
	switch {
	case errors.Is(err, types.ErrInvalidQuantity), errors.Is(err, types.ErrInvalidQRCode):
		return http.StatusBadRequest
	case errors.Is(err, types.ErrUnauthorizedAccess):
		return http.StatusForbidden
	case errors.As(err, &nf):
		return http.StatusNotFound
	case errors.As(err, &is), errors.As(err, &ist),
		errors.Is(err, types.ErrProductExpired), errors.Is(err, types.ErrDuplicateBooking):
		return http.StatusConflict
	case errors.As(err, &pf):
		return http.StatusUnprocessableEntity
	}
	return http.StatusInternalServerError
}

// ErrorBody renders err as {"error", "code", ...details}. Internal errors are
// logged and replaced with a generic message.
func ErrorBody(status int, err error) gin.H {
	if status >= http.StatusInternalServerError {
		log.Printf("[API] internal error: %s\n", err.Error())
		return gin.H{"error": "internal server error", "code": "INTERNAL"}
	}

	var (
		ist *types.InvalidStateTransitionError
		is  *types.InsufficientStockError
		pf  *types.PaymentFailedError
		nf  *types.NotFoundError
	)
	body := gin.H{"error": err.Error()}
	switch {
	case errors.As(err, &is):
		body["code"] = "INSUFFICIENT_STOCK"
		body["requested"] = is.Requested
		body["available"] = is.Available
	case errors.As(err, &ist):
		body["code"] = "INVALID_STATE_TRANSITION"
		body["entity"] = ist.Entity
		body["from"] = ist.From
		body["to"] = ist.To
	case errors.As(err, &pf):
		body["code"] = "PAYMENT_FAILED"
		body["bookingId"] = pf.BookingID
		body["orderNumber"] = pf.OrderNumber
	case errors.As(err, &nf):
		body["code"] = "NOT_FOUND"
		body["entity"] = nf.Entity
	case errors.Is(err, types.ErrProductExpired):
		body["code"] = "PRODUCT_EXPIRED"
	case errors.Is(err, types.ErrDuplicateBooking):
		body["code"] = "DUPLICATE_BOOKING"
	case errors.Is(err, types.ErrUnauthorizedAccess):
		body["code"] = "FORBIDDEN"
	case errors.Is(err, types.ErrInvalidQRCode):
		body["code"] = "INVALID_QR_CODE"
	case errors.Is(err, types.ErrInvalidQuantity):
		body["code"] = "INVALID_QUANTITY"
	default:
		body["code"] = "INVALID_REQUEST"
	}
	return body
}
