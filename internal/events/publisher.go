// Package events publishes operational cart events for downstream
// visibility: silent purchasability repairs and rejected mutations.
package events

import (
	"context"
	"encoding/json"
	"time"

	"github.com/segmentio/kafka-go"
)

// Event types carried in the message header.
const (
	EventItemRepaired     = "cart.item_repaired"
	EventMutationRejected = "cart.mutation_rejected"
)

type Publisher interface {
	// ItemRepaired reports that a no longer purchasable line was forced to
	// quantity zero during a read.
	ItemRepaired(ctx context.Context, cartKey, lineKey string, productID int64, productName string) error

	// MutationRejected reports a validation chain failure.
	MutationRejected(ctx context.Context, cartKey string, productID int64, quantity float64, code string) error

	Close() error
}

type itemRepairedEvent struct {
	CartKey     string    `json:"cart_key"`
	LineKey     string    `json:"line_key"`
	ProductID   int64     `json:"product_id"`
	ProductName string    `json:"product_name"`
	OccurredAt  time.Time `json:"occurred_at"`
}

type mutationRejectedEvent struct {
	CartKey    string    `json:"cart_key"`
	ProductID  int64     `json:"product_id"`
	Quantity   float64   `json:"quantity"`
	Code       string    `json:"code"`
	OccurredAt time.Time `json:"occurred_at"`
}

type KafkaPublisher struct {
	writer *kafka.Writer
}

func NewKafkaPublisher(brokers ...string) *KafkaPublisher {
	w := &kafka.Writer{
		Addr:                   kafka.TCP(brokers...),
		Topic:                  "cart-events",
		Balancer:               &kafka.LeastBytes{},
		AllowAutoTopicCreation: true,
	}
	return &KafkaPublisher{writer: w}
}

func (p *KafkaPublisher) ItemRepaired(ctx context.Context, cartKey, lineKey string, productID int64, productName string) error {
	return p.publish(ctx, EventItemRepaired, cartKey, itemRepairedEvent{
		CartKey:     cartKey,
		LineKey:     lineKey,
		ProductID:   productID,
		ProductName: productName,
		OccurredAt:  time.Now(),
	})
}

func (p *KafkaPublisher) MutationRejected(ctx context.Context, cartKey string, productID int64, quantity float64, code string) error {
	return p.publish(ctx, EventMutationRejected, cartKey, mutationRejectedEvent{
		CartKey:    cartKey,
		ProductID:  productID,
		Quantity:   quantity,
		Code:       code,
		OccurredAt: time.Now(),
	})
}

func (p *KafkaPublisher) publish(ctx context.Context, eventType, cartKey string, payload interface{}) error {
	value, err := json.Marshal(payload)
	if err != nil {
		return err
	}

	msg := kafka.Message{
		Key:   []byte(cartKey), // cart key for ordering
		Value: value,
		Headers: []kafka.Header{
			{Key: "event_type", Value: []byte(eventType)},
		},
	}

	return p.writer.WriteMessages(ctx, msg)
}

func (p *KafkaPublisher) Close() error {
	return p.writer.Close()
}

// NopPublisher drops all events. Used in tests and when no broker is
// configured.
type NopPublisher struct{}

func (NopPublisher) ItemRepaired(context.Context, string, string, int64, string) error {
	return nil
}

func (NopPublisher) MutationRejected(context.Context, string, int64, float64, string) error {
	return nil
}

func (NopPublisher) Close() error { return nil }
