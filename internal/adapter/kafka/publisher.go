package kafka

import (
	"context"
	"encoding/json"
	"fmt"
	"log/slog"

	"github.com/couchcryptid/temperature-relay/internal/config"
	"github.com/couchcryptid/temperature-relay/internal/domain"
	kafkago "github.com/segmentio/kafka-go"
)

// Publisher produces stored readings to the change-feed topic.
// It implements storage.Publisher.
type Publisher struct {
	writer *kafkago.Writer
	logger *slog.Logger
}

// NewPublisher creates a Kafka producer for the configured topic.
func NewPublisher(cfg *config.Config, logger *slog.Logger) *Publisher {
	w := &kafkago.Writer{
		Addr:                   kafkago.TCP(cfg.KafkaBrokers...),
		Topic:                  cfg.KafkaTopic,
		Balancer:               &kafkago.Hash{},
		RequiredAcks:           kafkago.RequireAll,
		AllowAutoTopicCreation: true,
	}
	return &Publisher{writer: w, logger: logger}
}

// Publish writes one reading keyed by its id, so every change for a reading
// lands on the same partition.
func (p *Publisher) Publish(ctx context.Context, r domain.EnrichedReading) error {
	msg, err := serializeToMessage(r)
	if err != nil {
		return err
	}
	if err := p.writer.WriteMessages(ctx, msg); err != nil {
		p.logger.Warn("kafka write failed", "topic", p.writer.Topic, "id", r.ID, "error", err)
		return fmt.Errorf("publish reading %s: %w", r.ID, err)
	}
	p.logger.Debug("reading published", "topic", p.writer.Topic, "id", r.ID, "city", r.City)
	return nil
}

// Close flushes pending writes and closes the producer.
func (p *Publisher) Close() error {
	if err := p.writer.Close(); err != nil {
		p.logger.Error("kafka writer close failed", "topic", p.writer.Topic, "error", err)
		return err
	}
	p.logger.Info("kafka publisher closed", "topic", p.writer.Topic)
	return nil
}

// serializeToMessage marshals a reading into a Kafka message.
func serializeToMessage(r domain.EnrichedReading) (kafkago.Message, error) {
	data, err := json.Marshal(r)
	if err != nil {
		return kafkago.Message{}, fmt.Errorf("serialize reading: %w", err)
	}
	return kafkago.Message{
		Key:   []byte(r.ID),
		Value: data,
		Headers: []kafkago.Header{
			{Key: "city", Value: []byte(r.City)},
			{Key: "temperature_category", Value: []byte(r.TemperatureCategory)},
			{Key: "processed_at", Value: []byte(r.ProcessedAt)},
		},
	}, nil
}
