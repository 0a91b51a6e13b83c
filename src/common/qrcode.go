package common

import (
	"encoding/json"
	"strings"

	"mazza/src/types"

	"github.com/google/uuid"
	"github.com/tidwall/gjson"
)

const legacyQRPrefix = "MAZZA"

type QRPayload struct {
	OrderNumber string    `json:"orderNumber"`
	BookingID   uuid.UUID `json:"bookingId"`
}

func EncodeQRPayload(orderNumber string, bookingID uuid.UUID) string {
	b, _ := json.Marshal(QRPayload{OrderNumber: orderNumber, BookingID: bookingID})
	return string(b)
}

// ParseQRPayload accepts the JSON payload, the legacy MAZZA:<order>:<id> form
// and a bare booking id. OrderNumber is empty for the bare form.
func ParseQRPayload(raw string) (QRPayload, error) {
	raw = strings.TrimSpace(raw)
	if raw == "" {
		return QRPayload{}, types.ErrInvalidQRCode
	}
	if gjson.Valid(raw) {
		doc := gjson.Parse(raw)
		if !doc.IsObject() {
			return QRPayload{}, types.ErrInvalidQRCode
		}
		id, err := parseBookingID(doc.Get("bookingId").String())
		if err != nil {
			return QRPayload{}, types.ErrInvalidQRCode
		}
		orderNumber := doc.Get("orderNumber").String()
		if orderNumber == "" {
			return QRPayload{}, types.ErrInvalidQRCode
		}
		return QRPayload{OrderNumber: orderNumber, BookingID: id}, nil
	}
	if strings.HasPrefix(raw, legacyQRPrefix+":") {
		parts := strings.SplitN(raw, ":", 3)
		if len(parts) != 3 || parts[1] == "" {
			return QRPayload{}, types.ErrInvalidQRCode
		}
		id, err := parseBookingID(parts[2])
		if err != nil {
			return QRPayload{}, types.ErrInvalidQRCode
		}
		return QRPayload{OrderNumber: parts[1], BookingID: id}, nil
	}
	id, err := parseBookingID(raw)
	if err != nil {
		return QRPayload{}, types.ErrInvalidQRCode
	}
	return QRPayload{BookingID: id}, nil
}

// parseBookingID only takes the canonical 36 character form. uuid.Parse
// also accepts urn:uuid:, braced and undashed ids.
func parseBookingID(s string) (uuid.UUID, error) {
	if len(s) != 36 {
		return uuid.Nil, types.ErrInvalidQRCode
	}
	return uuid.Parse(s)
}
