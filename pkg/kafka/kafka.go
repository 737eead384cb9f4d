package kafka

import (
	"context"
	"encoding/json"
	"errors"
	"time"

	"github.com/segmentio/kafka-go"
)

// ErrDisabled is returned when publishing without any configured broker.
var ErrDisabled = errors.New("kafka disabled")

// Client holds the broker list shared by every writer.
type Client struct {
	Brokers []string
}

func NewClient(brokers []string) *Client {
	return &Client{Brokers: brokers}
}

func (c *Client) Enabled() bool {
	return c != nil && len(c.Brokers) > 0
}

// NewWriter returns a writer keyed by message key, so events for one key stay ordered.
func (c *Client) NewWriter(topic string) *kafka.Writer {
	return &kafka.Writer{
		Addr:         kafka.TCP(c.Brokers...),
		Topic:        topic,
		Balancer:     &kafka.Hash{},
		RequiredAcks: kafka.RequireOne,
		BatchTimeout: 10 * time.Millisecond,
	}
}

// Producer publishes JSON payloads to one topic.
type Producer struct {
	writer *kafka.Writer
}

func NewProducer(c *Client, topic string) (*Producer, error) {
	if !c.Enabled() {
		return nil, ErrDisabled
	}
	return &Producer{writer: c.NewWriter(topic)}, nil
}

func (p *Producer) PublishJSON(ctx context.Context, key string, payload any) error {
	return PublishJSON(ctx, p.writer, key, payload)
}

func (p *Producer) Close() error {
	return p.writer.Close()
}

func PublishJSON(ctx context.Context, writer *kafka.Writer, key string, payload any) error {
	data, err := json.Marshal(payload)
	if err != nil {
		return err
	}
	return writer.WriteMessages(ctx, kafka.Message{Key: []byte(key), Value: data, Time: time.Now().UTC()})
}
