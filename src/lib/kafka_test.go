package lib

import (
	"testing"
	"time"

	"mazza/src/types"

	"github.com/confluentinc/confluent-kafka-go/kafka"
	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
	"github.com/tidwall/gjson"
)

func TestNewKafkaMessageKeysByBooking(t *testing.T) {
	event := BookingEvent{
		Type:        types.EVENT_BOOKING_CONFIRMED,
		BookingID:   "7a1d6a0e-2f9b-4d8e-8a43-5d9c1d1f0e22",
		OrderNumber: "#00007",
		Status:      string(types.BOOKING_CONFIRMED),
		Quantity:    2,
		TotalPrice:  "7.98",
		Currency:    "eur",
		OccurredAt:  time.Date(2026, 10, 15, 9, 0, 0, 0, time.UTC),
	}

	msg, err := newKafkaMessage("bookings.lifecycle", event)
	require.NoError(t, err)
	assert.Equal(t, "bookings.lifecycle", *msg.TopicPartition.Topic)
	assert.Equal(t, kafka.PartitionAny, msg.TopicPartition.Partition)
	assert.Equal(t, event.BookingID, string(msg.Key))
	require.Len(t, msg.Headers, 1)
	assert.Equal(t, "booking.confirmed", string(msg.Headers[0].Value))

	body := string(msg.Value)
	assert.Equal(t, "#00007", gjson.Get(body, "orderNumber").String())
	assert.Equal(t, int64(2), gjson.Get(body, "quantity").Int())
	assert.False(t, gjson.Get(body, "reason").Exists())
}

func TestProducerConfig(t *testing.T) {
	cfg := GetKafkaProducerConfig("localhost:9092", "mazza-api")
	assert.Equal(t, "all", cfg["acks"])
	assert.Equal(t, "localhost:9092", cfg["bootstrap.servers"])
}
