package lib

import (
	"context"
	"encoding/json"
	"log"
	"time"

	"mazza/src/types"

	"github.com/confluentinc/confluent-kafka-go/kafka"
)

type BookingEvent struct {
	Type        types.BookingEventType `json:"type"`
	BookingID   string                 `json:"bookingId"`
	OrderNumber string                 `json:"orderNumber"`
	UserID      string                 `json:"userId"`
	StoreID     string                 `json:"storeId"`
	ProductID   string                 `json:"productId"`
	Status      string                 `json:"status"`
	Quantity    int                    `json:"quantity"`
	TotalPrice  string                 `json:"totalPrice"`
	Currency    string                 `json:"currency"`
	Reason      string                 `json:"reason,omitempty"`
	OccurredAt  time.Time              `json:"occurredAt"`
}

// EventPublisher emits booking lifecycle events for downstream consumers.
// Publishing is best effort.
type EventPublisher interface {
	Publish(ctx context.Context, event BookingEvent)
}

type NoopPublisher struct{}

func (NoopPublisher) Publish(context.Context, BookingEvent) {}

type KafkaPublisher struct {
	producer *kafka.Producer
	topic    string
}

func GetKafkaProducerConfig(broker, clientID string) kafka.ConfigMap {
	return kafka.ConfigMap{
		"bootstrap.servers": broker,
		"client.id":         clientID,
		"acks":              "all",
	}
}

func NewKafkaPublisher(broker, clientID, topic string) (*KafkaPublisher, error) {
	cfg := GetKafkaProducerConfig(broker, clientID)
	p, err := kafka.NewProducer(&cfg)
	if err != nil {
		log.Printf("[Kafka] Error on producer: %s\n", err.Error())
		return nil, err
	}
	go func() {
		for e := range p.Events() {
			switch ev := e.(type) {
			case *kafka.Message:
				if ev.TopicPartition.Error != nil {
					log.Printf("[Kafka] delivery failed for key %s: %s\n", string(ev.Key), ev.TopicPartition.Error.Error())
				}
			case kafka.Error:
				log.Printf("[Kafka] producer error: %s\n", ev.Error())
			}
		}
	}()
	return &KafkaPublisher{producer: p, topic: topic}, nil
}

func newKafkaMessage(topic string, event BookingEvent) (*kafka.Message, error) {
	value, err := json.Marshal(event)
	if err != nil {
		return nil, err
	}
	return &kafka.Message{
		TopicPartition: kafka.TopicPartition{Topic: &topic, Partition: kafka.PartitionAny},
		Key:            []byte(event.BookingID),
		Value:          value,
		Headers:        []kafka.Header{{Key: "type", Value: []byte(event.Type)}},
	}, nil
}

func (k *KafkaPublisher) Publish(_ context.Context, event BookingEvent) {
	msg, err := newKafkaMessage(k.topic, event)
	if err != nil {
		log.Printf("[Kafka] Error serializing %s: %s\n", event.Type, err.Error())
		return
	}
	if err := k.producer.Produce(msg, nil); err != nil {
		log.Printf("[Kafka] Error producing %s for %s: %s\n", event.Type, event.BookingID, err.Error())
	}
}

func (k *KafkaPublisher) Close() {
	if remaining := k.producer.Flush(5000); remaining > 0 {
		log.Printf("[Kafka] %d events were not delivered before shutdown\n", remaining)
	}
	k.producer.Close()
}
