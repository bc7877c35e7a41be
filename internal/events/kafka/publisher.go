// Package kafka publishes expense lifecycle events and one-time code notifications to Kafka topics.
package kafka

import (
	"context"
	"encoding/json"
	"fmt"
	"time"

	"github.com/SscSPs/disbursement_ledger/internal/core/domain"
	"github.com/SscSPs/disbursement_ledger/internal/core/ports/events"
	"github.com/segmentio/kafka-go"
)

const DefaultTopic = "expense_status_changed"

type messageWriter interface {
	WriteMessages(ctx context.Context, msgs ...kafka.Message) error
	Close() error
}

type Publisher struct {
	writer messageWriter
}

var _ events.Publisher = (*Publisher)(nil)

// NewPublisher writes to topic on brokers. Messages are keyed by expense ID so one expense's events stay ordered.
func NewPublisher(brokers []string, topic string) *Publisher {
	if topic == "" {
		topic = DefaultTopic
	}
	return &Publisher{
		writer: &kafka.Writer{
			Addr:         kafka.TCP(brokers...),
			Topic:        topic,
			Balancer:     &kafka.Hash{},
			RequiredAcks: kafka.RequireAll,
			BatchTimeout: 10 * time.Millisecond,
		},
	}
}

func (p *Publisher) PublishExpenseStatusChanged(ctx context.Context, evt domain.ExpenseStatusChanged) error {
	data, err := json.Marshal(evt)
	if err != nil {
		return fmt.Errorf("failed to encode event %s: %w", evt.EventID, err)
	}
	err = p.writer.WriteMessages(ctx, kafka.Message{
		Key:   []byte(evt.ExpenseID),
		Value: data,
		Headers: []kafka.Header{
			{Key: "event_type", Value: []byte("expense_status_changed")},
			{Key: "mode", Value: []byte(evt.Mode)},
		},
	})
	if err != nil {
		return fmt.Errorf("failed to publish event %s: %w", evt.EventID, err)
	}
	return nil
}

// Close flushes pending messages.
func (p *Publisher) Close() error {
	return p.writer.Close()
}
