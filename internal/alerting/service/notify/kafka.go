package notify

import (
	"context"
	"encoding/json"
	"fmt"
	"time"

	"github.com/segmentio/kafka-go"
	"github.com/telemon/telemon/internal/alerting/model"
)

// kafkaEvent is the wire format published to the alert topic.
type kafkaEvent struct {
	State string       `json:"state"` // "firing" | "resolved"
	Alert *model.Alert `json:"alert"`
}

// KafkaNotifier publishes alert events to a Kafka topic so downstream
// consumers (dashboards, long-term stores) can subscribe independently of
// the chat channels.
type KafkaNotifier struct {
	writer *kafka.Writer
}

// NewKafkaNotifier creates a notifier writing to topic on the given brokers.
func NewKafkaNotifier(brokers []string, topic string) (*KafkaNotifier, error) {
	if len(brokers) == 0 {
		return nil, fmt.Errorf("at least one broker is required")
	}
	if topic == "" {
		return nil, fmt.Errorf("topic is required")
	}
	return &KafkaNotifier{
		writer: &kafka.Writer{
			Addr:         kafka.TCP(brokers...),
			Topic:        topic,
			Balancer:     &kafka.Hash{}, // partition by rule name
			WriteTimeout: 10 * time.Second,
			RequiredAcks: kafka.RequireOne,
			MaxAttempts:  3,
		},
	}, nil
}

func (k *KafkaNotifier) Name() string { return "kafka" }

func (k *KafkaNotifier) SendAlert(ctx context.Context, alert *model.Alert) error {
	return k.publish(ctx, alert, "firing")
}

func (k *KafkaNotifier) SendResolved(ctx context.Context, alert *model.Alert) error {
	return k.publish(ctx, alert, "resolved")
}

func (k *KafkaNotifier) publish(ctx context.Context, alert *model.Alert, state string) error {
	value, err := json.Marshal(kafkaEvent{State: state, Alert: alert})
	if err != nil {
		return fmt.Errorf("serialize alert event: %w", err)
	}
	msg := kafka.Message{
		Key:   []byte(alert.RuleName),
		Value: value,
		Time:  time.Now(),
	}
	if err := k.writer.WriteMessages(ctx, msg); err != nil {
		return fmt.Errorf("publish alert event: %w", err)
	}
	return nil
}

// Close flushes and closes the underlying writer.
func (k *KafkaNotifier) Close() error {
	return k.writer.Close()
}
