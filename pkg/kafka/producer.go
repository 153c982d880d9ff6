package kafka

import (
	"context"
	"encoding/json"
	"strconv"
	"strings"
	"time"

	"github.com/Gobusters/ectologger"
	"github.com/segmentio/kafka-go"

	"github.com/Ramsey-B/wisteria/pkg/metrics"
	"github.com/Ramsey-B/wisteria/pkg/tracing"
)

// Producer handles Kafka event emission
type Producer struct {
	writer *kafka.Writer
	logger ectologger.Logger
	topic  string
}

// ProducerConfig holds Kafka producer configuration
type ProducerConfig struct {
	Brokers      []string
	Topic        string
	BatchSize    int
	BatchTimeout time.Duration
	RequiredAcks int
	Compression  string
}

// NewProducer creates a new Kafka producer
func NewProducer(cfg ProducerConfig, logger ectologger.Logger) *Producer {
	compression := kafka.Snappy
	switch cfg.Compression {
	case "gzip":
		compression = kafka.Gzip
	case "lz4":
		compression = kafka.Lz4
	case "zstd":
		compression = kafka.Zstd
	case "none":
		compression = 0
	}

	requiredAcks := kafka.RequiredAcks(cfg.RequiredAcks)

	writer := &kafka.Writer{
		Addr:                   kafka.TCP(cfg.Brokers...),
		Balancer:               &kafka.LeastBytes{},
		BatchSize:              cfg.BatchSize,
		BatchTimeout:           cfg.BatchTimeout,
		RequiredAcks:           requiredAcks,
		Compression:            compression,
		AllowAutoTopicCreation: true,
	}

	return &Producer{
		writer: writer,
		logger: logger,
		topic:  cfg.Topic,
	}
}

// Close closes the producer
func (p *Producer) Close() error {
	return p.writer.Close()
}

// MergeEvent describes a merge or revert applied to a building or property.
// EventType is one of building.merged, building.merge_reverted,
// property.merged, property.merge_reverted.
type MergeEvent struct {
	EventType    string    `json:"event_type"`
	HistoryID    int64     `json:"history_id"`
	PrimaryID    int64     `json:"primary_id"`
	SecondaryIDs []int64   `json:"secondary_ids,omitempty"`
	MovedCount   int       `json:"moved_count"`
	Actor        string    `json:"actor,omitempty"`
	Timestamp    time.Time `json:"timestamp"`
}

// PublishMergeEvent publishes a merge lifecycle event to Kafka. Messages are
// keyed by entity kind and primary id so events for the same record stay in
// partition order.
func (p *Producer) PublishMergeEvent(ctx context.Context, event *MergeEvent) error {
	ctx, span := tracing.StartSpan(ctx, "kafka.Producer.PublishMergeEvent")
	defer span.End()

	if event.Timestamp.IsZero() {
		event.Timestamp = time.Now().UTC()
	}

	data, err := json.Marshal(event)
	if err != nil {
		return err
	}

	entity := event.EventType
	if i := strings.IndexByte(entity, '.'); i > 0 {
		entity = entity[:i]
	}

	msg := kafka.Message{
		Topic: p.topic,
		Key:   []byte(entity + ":" + strconv.FormatInt(event.PrimaryID, 10)),
		Value: data,
		Headers: []kafka.Header{
			{Key: "event_type", Value: []byte(event.EventType)},
			{Key: "schema_version", Value: []byte("1.0")},
		},
	}
	if traceparent := tracing.GetTraceParent(ctx); traceparent != "" {
		msg.Headers = append(msg.Headers, kafka.Header{Key: "traceparent", Value: []byte(traceparent)})
	}

	start := time.Now()
	if err := p.writer.WriteMessages(ctx, msg); err != nil {
		metrics.RecordKafkaPublish(p.topic, "error", time.Since(start).Seconds())
		p.logger.WithContext(ctx).WithError(err).Error("Failed to publish merge event")
		return err
	}
	metrics.RecordKafkaPublish(p.topic, "success", time.Since(start).Seconds())

	p.logger.WithContext(ctx).WithFields(map[string]any{
		"event_type": event.EventType,
		"history_id": event.HistoryID,
		"primary_id": event.PrimaryID,
	}).Debug("Published merge event")

	return nil
}
