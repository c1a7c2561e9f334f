package broker

import (
	"context"
	"errors"
	"fmt"
	"sync"

	"github.com/twmb/franz-go/pkg/kgo"

	"travis-log-fetch/src/logger"
)

const clientID = "travis-log-fetch"

// RedpandaBroker publishes and consumes through Redpanda (or any Kafka
// compatible cluster) with franz-go.
type RedpandaBroker struct {
	producer *kgo.Client
	brokers  []string
	log      logger.Logger

	mu        sync.Mutex
	consumers map[string]*kgo.Client // keyed by topic and group
	closed    bool
}

// NewRedpandaBroker creates the producer for brokers (e.g. "localhost:19092").
// Topics are created on first use.
func NewRedpandaBroker(brokers []string, log logger.Logger) (*RedpandaBroker, error) {
	if len(brokers) == 0 {
		return nil, fmt.Errorf("at least one broker address is required")
	}

	b := &RedpandaBroker{
		brokers:   brokers,
		log:       log,
		consumers: make(map[string]*kgo.Client),
	}
	producer, err := kgo.NewClient(b.options(kgo.AllowAutoTopicCreation())...)
	if err != nil {
		return nil, fmt.Errorf("failed to create Redpanda producer: %w", err)
	}
	b.producer = producer
	return b, nil
}

func (b *RedpandaBroker) options(extra ...kgo.Opt) []kgo.Opt {
	opts := []kgo.Opt{
		kgo.SeedBrokers(b.brokers...),
		kgo.ClientID(clientID),
		kgo.WithLogger(kgoLogger{log: b.log}),
	}
	return append(opts, extra...)
}

// Publish produces one record and waits for it to be acknowledged.
func (b *RedpandaBroker) Publish(ctx context.Context, topic string, key string, value []byte) error {
	b.mu.Lock()
	closed := b.closed
	b.mu.Unlock()
	if closed {
		return ErrClosed
	}

	rec := &kgo.Record{Topic: topic, Key: []byte(key), Value: value}
	if err := b.producer.ProduceSync(ctx, rec).FirstErr(); err != nil {
		return fmt.Errorf("failed to produce to %s: %w", topic, err)
	}
	return nil
}

// Subscribe joins groupID on topic, reading from the start of the topic when
// the group has no committed offset. A topic and group pair may only be
// subscribed once per broker.
func (b *RedpandaBroker) Subscribe(ctx context.Context, topic string, groupID string) (<-chan Message, error) {
	b.mu.Lock()
	defer b.mu.Unlock()

	if b.closed {
		return nil, ErrClosed
	}

	key := topic + "/" + groupID
	if _, ok := b.consumers[key]; ok {
		return nil, fmt.Errorf("group %s already consumes %s", groupID, topic)
	}

	consumer, err := kgo.NewClient(b.options(
		kgo.ConsumerGroup(groupID),
		kgo.ConsumeTopics(topic),
		kgo.ConsumeResetOffset(kgo.NewOffset().AtStart()),
	)...)
	if err != nil {
		return nil, fmt.Errorf("failed to create consumer for %s: %w", topic, err)
	}
	b.consumers[key] = consumer

	out := make(chan Message, 100)
	go b.consume(ctx, consumer, out)
	return out, nil
}

func (b *RedpandaBroker) consume(ctx context.Context, consumer *kgo.Client, out chan<- Message) {
	defer close(out)

	for ctx.Err() == nil {
		fetches := consumer.PollFetches(ctx)
		if fetches.IsClientClosed() {
			return
		}
		fetches.EachError(func(topic string, partition int32, err error) {
			if !errors.Is(err, context.Canceled) {
				b.log.Warn("fetch error on %s/%d: %v", topic, partition, err)
			}
		})

		for iter := fetches.RecordIter(); !iter.Done(); {
			rec := iter.Next()
			msg := Message{
				Topic:     rec.Topic,
				Key:       string(rec.Key),
				Value:     rec.Value,
				Offset:    rec.Offset,
				Partition: rec.Partition,
				Timestamp: rec.Timestamp.UnixMilli(),
			}
			select {
			case out <- msg:
			case <-ctx.Done():
				return
			}
		}
	}
}

// Close shuts down the producer and every consumer.
func (b *RedpandaBroker) Close() error {
	b.mu.Lock()
	defer b.mu.Unlock()

	if b.closed {
		return nil
	}
	b.closed = true

	for key, consumer := range b.consumers {
		consumer.Close()
		delete(b.consumers, key)
	}
	b.producer.Close()
	return nil
}

// kgoLogger forwards franz-go client logs to a logger.Logger. Debug output
// of the client is dropped.
type kgoLogger struct {
	log logger.Logger
}

func (l kgoLogger) Level() kgo.LogLevel {
	return kgo.LogLevelInfo
}

func (l kgoLogger) Log(level kgo.LogLevel, msg string, keyvals ...any) {
	line := msg
	for i := 0; i+1 < len(keyvals); i += 2 {
		line += fmt.Sprintf(" %v=%v", keyvals[i], keyvals[i+1])
	}
	switch level {
	case kgo.LogLevelError:
		l.log.Error("redpanda: %s", line)
	case kgo.LogLevelWarn:
		l.log.Warn("redpanda: %s", line)
	case kgo.LogLevelInfo:
		l.log.Debug("redpanda: %s", line)
	}
}
