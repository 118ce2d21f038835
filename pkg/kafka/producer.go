package kafka

import (
	"context"
	"encoding/json"
	"fmt"
	"time"

	"github.com/segmentio/kafka-go"
	"github.com/sirupsen/logrus"
)

type Producer interface {
	SendMessage(ctx context.Context, key string, message interface{}) error
	Close() error
}

type kafkaProducer struct {
	writer *kafka.Writer
	topic  string
}

// NewProducer writes JSON messages to topic. The topic is created when the
// first broker is reachable and it does not exist yet.
func NewProducer(ctx context.Context, brokers []string, topic string) (Producer, error) {
	if len(brokers) == 0 {
		return nil, fmt.Errorf("kafka: no brokers configured")
	}

	writer := &kafka.Writer{
		Addr:         kafka.TCP(brokers...),
		Topic:        topic,
		Balancer:     &kafka.Hash{},
		BatchTimeout: 10 * time.Millisecond,
		RequiredAcks: kafka.RequireOne,
	}

	dialCtx, cancel := context.WithTimeout(ctx, 10*time.Second)
	defer cancel()

	conn, err := kafka.DialContext(dialCtx, "tcp", brokers[0])
	if err != nil {
		writer.Close()
		return nil, fmt.Errorf("kafka connection failed: %w", err)
	}
	defer conn.Close()

	err = conn.CreateTopics(kafka.TopicConfig{
		Topic:             topic,
		NumPartitions:     1,
		ReplicationFactor: 1,
	})
	if err != nil {
		logrus.WithError(err).WithField("topic", topic).Debug("Could not create topic (might already exist)")
	}

	logrus.WithFields(logrus.Fields{"brokers": brokers, "topic": topic}).Info("Connected to Kafka")
	return &kafkaProducer{writer: writer, topic: topic}, nil
}

// SendMessage keys messages so that events of one record keep their order.
func (p *kafkaProducer) SendMessage(ctx context.Context, key string, message interface{}) error {
	value, err := json.Marshal(message)
	if err != nil {
		return fmt.Errorf("failed to marshal kafka message: %w", err)
	}

	err = p.writer.WriteMessages(ctx, kafka.Message{
		Key:   []byte(key),
		Value: value,
		Time:  time.Now(),
	})
	if err != nil {
		return fmt.Errorf("failed to write message to %s: %w", p.topic, err)
	}
	return nil
}

func (p *kafkaProducer) Close() error {
	return p.writer.Close()
}
