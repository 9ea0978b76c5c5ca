package kafka

import (
	"context"
	"encoding/json"
	"fmt"
	"time"

	"github.com/segmentio/kafka-go"

	"github.com/trogers1052/stock-signal-service/internal/models"
)

type messageWriter interface {
	WriteMessages(ctx context.Context, msgs ...kafka.Message) error
	Close() error
}

// Producer publishes snapshot and run events
type Producer struct {
	writer messageWriter
	topic  string
	now    func() time.Time
}

// NewProducer creates a new Kafka producer
func NewProducer(brokers []string, topic string) *Producer {
	writer := &kafka.Writer{
		Addr:         kafka.TCP(brokers...),
		Topic:        topic,
		Balancer:     &kafka.Hash{},
		BatchTimeout: 10 * time.Millisecond,
		RequiredAcks: kafka.RequireOne,
	}

	return &Producer{
		writer: writer,
		topic:  topic,
		now:    time.Now,
	}
}

// PublishSnapshotUpdated publishes a committed instrument snapshot, keyed by
// symbol so one symbol stays on one partition.
func (p *Producer) PublishSnapshotUpdated(ctx context.Context, inst *models.Instrument) error {
	event := models.StockEvent{
		EventType:  models.EventSnapshotUpdated,
		Instrument: inst,
		Symbol:     inst.Symbol,
		Timestamp:  p.now(),
	}
	return p.publish(ctx, inst.Symbol, event)
}

// PublishRunCompleted publishes the outcome of a finished update run
func (p *Producer) PublishRunCompleted(ctx context.Context, run *models.RunRecord) error {
	event := models.StockEvent{
		EventType: models.EventRunCompleted,
		Run:       run,
		Timestamp: p.now(),
	}
	return p.publish(ctx, "update-run", event)
}

func (p *Producer) publish(ctx context.Context, key string, event models.StockEvent) error {
	data, err := json.Marshal(event)
	if err != nil {
		return fmt.Errorf("failed to marshal event: %w", err)
	}

	msg := kafka.Message{
		Key:   []byte(key),
		Value: data,
	}

	if err := p.writer.WriteMessages(ctx, msg); err != nil {
		return fmt.Errorf("failed to write message to kafka: %w", err)
	}

	return nil
}

// Close closes the Kafka producer
func (p *Producer) Close() error {
	return p.writer.Close()
}
