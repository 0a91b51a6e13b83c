package types

import (
	"database/sql/driver"
	"encoding/json"
	"errors"
	"time"
)

type Timestamps struct {
	CreatedAt time.Time `gorm:"autoCreateTime:nano" json:"created_at,omitempty"`
	UpdatedAt time.Time `gorm:"autoUpdateTime:nano" json:"updated_at,omitempty"`
}

type JSONB map[string]any

func (a JSONB) Value() (driver.Value, error) {
	valueString, err := json.Marshal(a)
	return string(valueString), err
}

func (a *JSONB) Scan(value any) error {
	var b []byte
	switch v := value.(type) {
	case []byte:
		b = v
	case string:
		b = []byte(v)
	case nil:
		return nil
	default:
		return errors.New("type assertion to []byte failed")
	}
	if err := json.Unmarshal(b, &a); err != nil {
		return err
	}
	return nil
}

type ProductStatus string

const (
	PRODUCT_DRAFT       ProductStatus = "DRAFT"
	PRODUCT_ACTIVE      ProductStatus = "ACTIVE"
	PRODUCT_SOLD_OUT    ProductStatus = "SOLD_OUT"
	PRODUCT_EXPIRED     ProductStatus = "EXPIRED"
	PRODUCT_DEACTIVATED ProductStatus = "DEACTIVATED"
)

type BookingStatus string

const (
	BOOKING_PENDING   BookingStatus = "PENDING"
	BOOKING_CONFIRMED BookingStatus = "CONFIRMED"
	BOOKING_READY     BookingStatus = "READY"
	BOOKING_COMPLETED BookingStatus = "COMPLETED"
	BOOKING_CANCELLED BookingStatus = "CANCELLED"
	BOOKING_EXPIRED   BookingStatus = "EXPIRED"
	BOOKING_FAILED    BookingStatus = "FAILED"
)

type PaymentStatus string

const (
	PAYMENT_PENDING            PaymentStatus = "PENDING"
	PAYMENT_CAPTURED           PaymentStatus = "CAPTURED"
	PAYMENT_REFUNDED           PaymentStatus = "REFUNDED"
	PAYMENT_PARTIALLY_REFUNDED PaymentStatus = "PARTIALLY_REFUNDED"
	PAYMENT_FAILED             PaymentStatus = "FAILED"
)

type NotificationType string

const (
	NOTIFICATION_BOOKING_CONFIRMED NotificationType = "BOOKING_CONFIRMED"
	NOTIFICATION_BOOKING_CANCELLED NotificationType = "BOOKING_CANCELLED"
	NOTIFICATION_BOOKING_EXPIRED   NotificationType = "BOOKING_EXPIRED"
	NOTIFICATION_PAYMENT_FAILED    NotificationType = "PAYMENT_FAILED"
	NOTIFICATION_PICKUP_REMINDER   NotificationType = "PICKUP_REMINDER"
	NOTIFICATION_ORDER_READY       NotificationType = "ORDER_READY"
	NOTIFICATION_ORDER_COMPLETED   NotificationType = "ORDER_COMPLETED"
	NOTIFICATION_NEW_ORDER         NotificationType = "NEW_ORDER"
)

type BookingEventType string

const (
	EVENT_BOOKING_CONFIRMED BookingEventType = "booking.confirmed"
	EVENT_BOOKING_FAILED    BookingEventType = "booking.failed"
	EVENT_BOOKING_CANCELLED BookingEventType = "booking.cancelled"
	EVENT_BOOKING_READY     BookingEventType = "booking.ready"
	EVENT_BOOKING_COMPLETED BookingEventType = "booking.completed"
	EVENT_BOOKING_EXPIRED   BookingEventType = "booking.expired"
)

type SimpleRequestParams struct {
	ID string `uri:"id" binding:"required,uuid"`
}

type CreateBookingRequestBody struct {
	ProductID       string `json:"productId" binding:"required,uuid"`
	Quantity        int    `json:"quantity" binding:"required,gt=0"`
	PaymentMethodID string `json:"paymentMethodId" binding:"required"`
}

type IdempotencyHeaders struct {
	IdempotencyKey string `header:"Idempotency-Key" binding:"required,idempotencykey"`
}

type CancelBookingRequestBody struct {
	Reason string `json:"reason,omitempty" binding:"omitempty,max=500"`
}

type CompleteOrderRequestBody struct {
	QRCodeData string `json:"qrCodeData" binding:"required"`
}

type RestockRequestBody struct {
	Quantity int `json:"quantity" binding:"required,gt=0"`
}
