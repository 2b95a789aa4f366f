package client

import (
	"context"
	"time"

	"github.com/segmentio/kafka-go"

	"admin-service/internal/config"
	"admin-service/internal/util"
)

// KafkaProducer publishes administrator activity entries to the audit topic.
type KafkaProducer struct {
	Writer *kafka.Writer
	config *config.KafkaConfig
}

func NewKafkaProducer(cfg *config.Config) (*KafkaProducer, error) {
	kafkaConfig := cfg.Kafka

	writer := &kafka.Writer{
		Addr:         kafka.TCP(kafkaConfig.Brokers...),
		Topic:        kafkaConfig.ActivityTopic,
		Balancer:     &kafka.LeastBytes{},
		MaxAttempts:  3,
		BatchSize:    100,
		BatchTimeout: 10 * time.Millisecond,
		RequiredAcks: kafka.RequireOne,
		Async:        false,
		Completion: func(messages []kafka.Message, err error) {
			if err != nil {
				util.Error("failed to write kafka messages",
					util.ErrorField(err),
					util.Int("message_count", len(messages)))
			}
		},
	}

	util.Info("Kafka producer initialized",
		util.Any("brokers", kafkaConfig.Brokers),
		util.String("topic", kafkaConfig.ActivityTopic))

	return &KafkaProducer{Writer: writer, config: &kafkaConfig}, nil
}

// Publish writes one message keyed by partition key.
func (p *KafkaProducer) Publish(ctx context.Context, key, value []byte) error {
	return p.Writer.WriteMessages(ctx, kafka.Message{Key: key, Value: value})
}

func (p *KafkaProducer) Close() error {
	if p.Writer == nil {
		return nil
	}
	if err := p.Writer.Close(); err != nil {
		util.Error("failed to close kafka producer", util.ErrorField(err))
		return err
	}
	util.Info("Kafka producer closed")
	return nil
}
