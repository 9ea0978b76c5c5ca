package kafka

import (
	"context"
	"encoding/json"
	"fmt"
	"time"

	"github.com/rs/zerolog"
	"github.com/segmentio/kafka-go"

	"github.com/trogers1052/stock-signal-service/internal/models"
)

// CacheInvalidator drops every cached series of a symbol
type CacheInvalidator interface {
	Delete(ctx context.Context, symbol string) error
}

type messageReader interface {
	ReadMessage(ctx context.Context) (kafka.Message, error)
	Close() error
}

// Consumer reads stock lifecycle events and evicts cached series of removed
// stocks. Other event types are ignored.
type Consumer struct {
	reader messageReader
	cache  CacheInvalidator
	topic  string
	logger zerolog.Logger
}

// NewConsumer creates a new Kafka consumer for stock events
func NewConsumer(brokers []string, topic, groupID string, cache CacheInvalidator, logger zerolog.Logger) *Consumer {
	reader := kafka.NewReader(kafka.ReaderConfig{
		Brokers:        brokers,
		Topic:          topic,
		GroupID:        groupID,
		MinBytes:       1,
		MaxBytes:       10e6, // 10MB
		MaxWait:        1 * time.Second,
		StartOffset:    kafka.LastOffset,
		CommitInterval: time.Second,
	})

	return &Consumer{
		reader: reader,
		cache:  cache,
		topic:  topic,
		logger: logger.With().Str("component", "kafka_consumer").Str("topic", topic).Logger(),
	}
}

// Start consumes until ctx is cancelled
func (c *Consumer) Start(ctx context.Context) error {
	c.logger.Info().Msg("starting kafka consumer")

	for {
		msg, err := c.reader.ReadMessage(ctx)
		if err != nil {
			if ctx.Err() != nil {
				c.logger.Info().Msg("kafka consumer shutting down")
				return nil
			}
			c.logger.Error().Err(err).Msg("error reading message")
			select {
			case <-ctx.Done():
				return nil
			case <-time.After(time.Second):
			}
			continue
		}

		if err := c.processMessage(ctx, msg); err != nil {
			c.logger.Error().Err(err).
				Int("partition", msg.Partition).
				Int64("offset", msg.Offset).
				Msg("error processing message")
		}
	}
}

func (c *Consumer) processMessage(ctx context.Context, msg kafka.Message) error {
	var event models.StockEvent
	if err := json.Unmarshal(msg.Value, &event); err != nil {
		return fmt.Errorf("failed to unmarshal stock event: %w", err)
	}

	if event.EventType != models.EventStockRemoved {
		c.logger.Debug().Str("event_type", event.EventType).Msg("ignoring event")
		return nil
	}

	symbol := event.Symbol
	if symbol == "" && event.Instrument != nil {
		symbol = event.Instrument.Symbol
	}
	if symbol == "" {
		return fmt.Errorf("%s event without symbol", event.EventType)
	}

	if err := c.cache.Delete(ctx, symbol); err != nil {
		return fmt.Errorf("failed to invalidate cache for %s: %w", symbol, err)
	}
	c.logger.Info().Str("symbol", symbol).Msg("cached series invalidated for removed stock")
	return nil
}

// Close closes the Kafka consumer
func (c *Consumer) Close() error {
	return c.reader.Close()
}
