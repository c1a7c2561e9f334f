package broker

import (
	"context"
	"encoding/json"
	"fmt"

	"travis-log-fetch/src/contracts"
)

// Publisher publishes fetch runs and records as JSON.
type Publisher struct {
	broker      Broker
	runsTopic   string
	recordTopic string
}

// NewPublisher publishes records to recordTopic and runs to
// contracts.TopicRuns. An empty recordTopic selects contracts.TopicLogsFetched.
func NewPublisher(b Broker, recordTopic string) *Publisher {
	if recordTopic == "" {
		recordTopic = contracts.TopicLogsFetched
	}
	return &Publisher{broker: b, runsTopic: contracts.TopicRuns, recordTopic: recordTopic}
}

// PublishRecord publishes a handled job log keyed by its repository slug.
func (p *Publisher) PublishRecord(ctx context.Context, record *contracts.FetchRecord) error {
	data, err := json.Marshal(record)
	if err != nil {
		return fmt.Errorf("failed to marshal record: %w", err)
	}
	return p.broker.Publish(ctx, p.recordTopic, record.Slug, data)
}

// PublishRun publishes a run update keyed by its run id.
func (p *Publisher) PublishRun(ctx context.Context, run *contracts.FetchRun) error {
	data, err := json.Marshal(run)
	if err != nil {
		return fmt.Errorf("failed to marshal run: %w", err)
	}
	return p.broker.Publish(ctx, p.runsTopic, run.RunID, data)
}

// Records subscribes to the record topic and decodes each message. Messages
// that are not records are dropped. The channel closes with the subscription.
func (p *Publisher) Records(ctx context.Context, groupID string) (<-chan contracts.FetchRecord, error) {
	msgs, err := p.broker.Subscribe(ctx, p.recordTopic, groupID)
	if err != nil {
		return nil, err
	}

	out := make(chan contracts.FetchRecord)
	go func() {
		defer close(out)
		for msg := range msgs {
			var record contracts.FetchRecord
			if err := json.Unmarshal(msg.Value, &record); err != nil {
				continue
			}
			select {
			case out <- record:
			case <-ctx.Done():
				return
			}
		}
	}()
	return out, nil
}
