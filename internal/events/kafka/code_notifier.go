package kafka

import (
	"context"
	"encoding/json"
	"fmt"
	"time"

	"github.com/google/uuid"
	"github.com/segmentio/kafka-go"

	"github.com/SscSPs/disbursement_ledger/internal/core/domain"
	portssvc "github.com/SscSPs/disbursement_ledger/internal/core/ports/services"
)

const DefaultCodeTopic = "one_time_code_issued"

// CodeNotifier hands issued codes to the notification service, which mails or texts them.
// The topic carries plaintext codes and must only be readable by that service.
type CodeNotifier struct {
	writer messageWriter
	now    func() time.Time
}

var _ portssvc.CodeNotifier = (*CodeNotifier)(nil)

// NewCodeNotifier writes to topic on brokers. Messages are keyed by identifier.
func NewCodeNotifier(brokers []string, topic string) *CodeNotifier {
	if topic == "" {
		topic = DefaultCodeTopic
	}
	return &CodeNotifier{
		writer: &kafka.Writer{
			Addr:         kafka.TCP(brokers...),
			Topic:        topic,
			Balancer:     &kafka.Hash{},
			RequiredAcks: kafka.RequireAll,
			BatchTimeout: 10 * time.Millisecond,
		},
		now: time.Now,
	}
}

func (n *CodeNotifier) NotifyCode(ctx context.Context, identifier, code string, expiresAt time.Time) error {
	evt := domain.CodeIssued{
		EventID:    uuid.NewString(),
		Identifier: identifier,
		Code:       code,
		ExpiresAt:  expiresAt,
		OccurredAt: n.now().UTC(),
	}
	data, err := json.Marshal(evt)
	if err != nil {
		return fmt.Errorf("failed to encode code notification: %w", err)
	}
	err = n.writer.WriteMessages(ctx, kafka.Message{
		Key:   []byte(identifier),
		Value: data,
		Headers: []kafka.Header{
			{Key: "event_type", Value: []byte("one_time_code_issued")},
		},
	})
	if err != nil {
		return fmt.Errorf("failed to publish code notification: %w", err)
	}
	return nil
}

// Close flushes pending messages.
func (n *CodeNotifier) Close() error {
	return n.writer.Close()
}
