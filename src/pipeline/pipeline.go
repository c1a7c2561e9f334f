// Package pipeline opens the fetch ledger and the event broker. With no
// Redpanda brokers configured everything stays in process; otherwise events
// go to Redpanda and, when a DSN is set, the ledger to Postgres.
package pipeline

import (
	"context"
	"fmt"

	"travis-log-fetch/src/broker"
	"travis-log-fetch/src/logger"
	"travis-log-fetch/src/store"
)

// Mode selects where runs are recorded and published.
type Mode int

const (
	// LocalMode keeps the ledger and events in memory.
	LocalMode Mode = iota
	// DistributedMode publishes events to Redpanda.
	DistributedMode
)

func (m Mode) String() string {
	if m == DistributedMode {
		return "distributed"
	}
	return "local"
}

// Config selects the backends.
type Config struct {
	RedpandaBrokers []string
	PostgresDSN     string
	Topic           string
}

// DetectMode picks the mode from the configured brokers.
func DetectMode(cfg *Config) Mode {
	if len(cfg.RedpandaBrokers) > 0 {
		return DistributedMode
	}
	return LocalMode
}

// Backends are the opened ledger and event stream.
type Backends struct {
	Mode   Mode
	Ledger store.Store
	Broker broker.Broker
	Events *broker.Publisher
}

// Open connects the backends selected by cfg. The ledger uses Postgres
// whenever a DSN is set, in either mode.
func Open(ctx context.Context, cfg *Config, log logger.Logger) (*Backends, error) {
	b := &Backends{Mode: DetectMode(cfg)}

	if b.Mode == DistributedMode {
		rp, err := broker.NewRedpandaBroker(cfg.RedpandaBrokers, log)
		if err != nil {
			return nil, fmt.Errorf("failed to create Redpanda broker: %w", err)
		}
		b.Broker = rp
	} else {
		b.Broker = broker.NewInMemoryBroker()
	}

	if cfg.PostgresDSN != "" {
		pg, err := store.NewPostgresStore(ctx, cfg.PostgresDSN)
		if err != nil {
			b.Broker.Close()
			return nil, fmt.Errorf("failed to create Postgres store: %w", err)
		}
		b.Ledger = pg
	} else {
		b.Ledger = store.NewMemoryStore()
	}

	b.Events = broker.NewPublisher(b.Broker, cfg.Topic)
	log.Debug("pipeline mode %s", b.Mode)
	return b, nil
}

// Close shuts down the broker and the ledger.
func (b *Backends) Close() error {
	if err := b.Broker.Close(); err != nil {
		b.Ledger.Close()
		return err
	}
	return b.Ledger.Close()
}
