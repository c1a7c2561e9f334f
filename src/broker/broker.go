// Package broker publishes fetch events to an in-memory or Redpanda stream.
package broker

import (
	"context"
	"errors"
)

// ErrClosed is returned by a broker after Close.
var ErrClosed = errors.New("broker is closed")

// Broker abstracts message publishing and consumption.
type Broker interface {
	// Publish sends a message to a topic. Redpanda uses key for partition
	// assignment; the in-memory broker only carries it along.
	Publish(ctx context.Context, topic string, key string, value []byte) error

	// Subscribe returns a channel of messages published to topic. groupID
	// selects the Redpanda consumer group.
	Subscribe(ctx context.Context, topic string, groupID string) (<-chan Message, error)

	// Close shuts down the broker and closes every subscription channel.
	Close() error
}

// Message is a consumed message.
type Message struct {
	Topic     string
	Key       string
	Value     []byte
	Offset    int64
	Partition int32
	Timestamp int64
}
