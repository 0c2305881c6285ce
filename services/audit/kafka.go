package audit

import (
	"context"
	"encoding/json"
	"fmt"
	"strings"
	"time"

	"github.com/Ashwin12159/Control-Plane/models"
	"github.com/segmentio/kafka-go"
)

type kafkaWriter interface {
	WriteMessages(ctx context.Context, msgs ...kafka.Message) error
	Close() error
}

// KafkaConfig configures the audit topic mirror
type KafkaConfig struct {
	Brokers []string
	Topic   string
}

// KafkaSink mirrors audit records to a Kafka topic as JSON keyed by request id
type KafkaSink struct {
	writer kafkaWriter
	topic  string
}

// NewKafkaSink creates a sink publishing to the configured topic
func NewKafkaSink(cfg KafkaConfig) (*KafkaSink, error) {
	brokers := make([]string, 0, len(cfg.Brokers))
	for _, b := range cfg.Brokers {
		trimmed := strings.TrimSpace(b)
		if trimmed != "" {
			brokers = append(brokers, trimmed)
		}
	}
	if len(brokers) == 0 {
		return nil, fmt.Errorf("kafka brokers required")
	}
	if strings.TrimSpace(cfg.Topic) == "" {
		return nil, fmt.Errorf("kafka topic required")
	}
	w := &kafka.Writer{
		Addr:         kafka.TCP(brokers...),
		Topic:        cfg.Topic,
		Balancer:     &kafka.Hash{},
		RequiredAcks: kafka.RequireOne,
		BatchTimeout: 50 * time.Millisecond,
	}
	return &KafkaSink{writer: w, topic: cfg.Topic}, nil
}

func (s *KafkaSink) Name() string { return "kafka:" + s.topic }

func (s *KafkaSink) Write(ctx context.Context, log *models.AuditLog) error {
	if s == nil || s.writer == nil {
		return fmt.Errorf("kafka sink not initialized")
	}
	value, err := json.Marshal(log)
	if err != nil {
		return fmt.Errorf("encode audit record: %w", err)
	}
	key := log.RequestID
	if key == "" {
		key = log.ID.String()
	}
	return s.writer.WriteMessages(ctx, kafka.Message{
		Key:   []byte(key),
		Value: value,
		Time:  log.CreatedAt,
	})
}

// Close flushes and closes the writer
func (s *KafkaSink) Close() error {
	if s == nil || s.writer == nil {
		return nil
	}
	return s.writer.Close()
}
