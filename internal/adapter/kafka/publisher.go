// Package kafka fans out persisted prediction records to downstream
// consumers.
package kafka

import (
	"context"
	"encoding/json"
	"fmt"
	"log/slog"
	"time"

	kafkago "github.com/segmentio/kafka-go"

	"github.com/cityflow/traffic-insight-service/internal/config"
	"github.com/cityflow/traffic-insight-service/internal/domain"
)

// Publisher produces prediction records to the sink topic. Fan-out is
// best-effort: the sqlite store remains the source of truth.
type Publisher struct {
	writer *kafkago.Writer
	logger *slog.Logger
}

// NewPublisher creates a Kafka producer for the configured sink topic.
func NewPublisher(cfg *config.Config, logger *slog.Logger) *Publisher {
	w := &kafkago.Writer{
		Addr:         kafkago.TCP(cfg.KafkaBrokers...),
		Topic:        cfg.KafkaSinkTopic,
		Balancer:     &kafkago.LeastBytes{},
		RequiredAcks: kafkago.RequireAll,
	}
	return &Publisher{writer: w, logger: logger}
}

// Publish serializes and writes one prediction record to the sink topic.
func (p *Publisher) Publish(ctx context.Context, record domain.PredictionRecord) error {
	msg, err := serializeToMessage(record)
	if err != nil {
		return err
	}
	return p.writer.WriteMessages(ctx, msg)
}

// Close flushes and closes the underlying writer.
func (p *Publisher) Close() error {
	return p.writer.Close()
}

// serializeToMessage marshals a PredictionRecord into a Kafka message keyed
// by location so records for the same place land on the same partition.
func serializeToMessage(record domain.PredictionRecord) (kafkago.Message, error) {
	data, err := json.Marshal(record)
	if err != nil {
		return kafkago.Message{}, fmt.Errorf("serialize prediction record: %w", err)
	}
	return kafkago.Message{
		Key:   []byte(record.Location),
		Value: data,
		Headers: []kafkago.Header{
			{Key: "status", Value: []byte(record.Status)},
			{Key: "created_at", Value: []byte(record.Timestamp.Format(time.RFC3339))},
		},
	}, nil
}
