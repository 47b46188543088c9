package eventsink

import (
	"context"
	"time"

	"github.com/segmentio/kafka-go"
)

// messageWriter is the part of kafka.Writer the sink uses.
type messageWriter interface {
	WriteMessages(ctx context.Context, msgs ...kafka.Message) error
	Close() error
}

var _ messageWriter = (*kafka.Writer)(nil)

// KafkaSink publishes one message per event. Messages are keyed by order
// book, so the events of a book stay ordered within their partition.
type KafkaSink struct {
	writer messageWriter
}

var _ Sink = (*KafkaSink)(nil)

// NewKafkaSink returns a sink publishing to topic on brokers. Writes wait
// for all in-sync replicas.
func NewKafkaSink(brokers []string, topic string, batchTimeout time.Duration) *KafkaSink {
	return &KafkaSink{
		writer: &kafka.Writer{
			Addr:         kafka.TCP(brokers...),
			Topic:        topic,
			Balancer:     &kafka.Hash{},
			RequiredAcks: kafka.RequireAll,
			BatchTimeout: batchTimeout,
		},
	}
}

func (ks *KafkaSink) Write(ctx context.Context, block BlockEvents) error {
	if len(block.Events) == 0 {
		return nil
	}
	msgs := make([]kafka.Message, 0, len(block.Events))
	for _, r := range block.Records() {
		value, err := cdc.Marshal(r)
		if err != nil {
			return err
		}
		msgs = append(msgs, kafka.Message{
			Key:   []byte(r.Event.OrderBookID.String()),
			Value: value,
			Headers: []kafka.Header{
				{Key: "type", Value: []byte(r.Event.Type)},
			},
		})
	}
	return ks.writer.WriteMessages(ctx, msgs...)
}

func (ks *KafkaSink) Close() error {
	return ks.writer.Close()
}
