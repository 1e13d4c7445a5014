package events

import (
	"context"
	"encoding/json"
	"errors"
	"fmt"

	"github.com/IBM/sarama"
	"go.uber.org/zap"

	"grantbot/types"
)

// Topics names the Kafka topics grantbot writes and reads
type Topics struct {
	Candidates string
	Changes    string
	Requests   string
}

// Publisher sends candidates, change records and run requests as JSON
// messages. Each message is keyed by the record id so one item always
// lands on the same partition.
type Publisher struct {
	producer sarama.SyncProducer
	topics   Topics
	logger   *zap.Logger
}

// NewProducerConfig returns the sarama config used for publishing
func NewProducerConfig() *sarama.Config {
	cfg := sarama.NewConfig()
	cfg.Version = sarama.V3_6_0_0
	cfg.Producer.RequiredAcks = sarama.WaitForAll
	cfg.Producer.Retry.Max = 3
	cfg.Producer.Return.Successes = true
	return cfg
}

// NewPublisher connects a sync producer to brokers
func NewPublisher(brokers []string, topics Topics, logger *zap.Logger) (*Publisher, error) {
	if len(brokers) == 0 {
		return nil, errors.New("kafka publisher needs at least one broker")
	}
	producer, err := sarama.NewSyncProducer(brokers, NewProducerConfig())
	if err != nil {
		return nil, fmt.Errorf("failed to create kafka producer: %w", err)
	}
	return NewPublisherWithProducer(producer, topics, logger), nil
}

// NewPublisherWithProducer wraps an existing producer
func NewPublisherWithProducer(producer sarama.SyncProducer, topics Topics, logger *zap.Logger) *Publisher {
	if logger == nil {
		logger = zap.NewNop()
	}
	return &Publisher{producer: producer, topics: topics, logger: logger}
}

// PublishCandidates sends one message per candidate
func (p *Publisher) PublishCandidates(_ context.Context, candidates []types.Candidate) error {
	if p.topics.Candidates == "" || len(candidates) == 0 {
		return nil
	}
	msgs := make([]*sarama.ProducerMessage, 0, len(candidates))
	for _, c := range candidates {
		m, err := message(p.topics.Candidates, c.ID, c)
		if err != nil {
			return err
		}
		msgs = append(msgs, m)
	}
	return p.send(msgs)
}

// PublishChanges sends one message per change record
func (p *Publisher) PublishChanges(_ context.Context, records []types.ChangeRecord) error {
	if p.topics.Changes == "" || len(records) == 0 {
		return nil
	}
	msgs := make([]*sarama.ProducerMessage, 0, len(records))
	for _, r := range records {
		m, err := message(p.topics.Changes, r.ItemID, r)
		if err != nil {
			return err
		}
		msgs = append(msgs, m)
	}
	return p.send(msgs)
}

// RequestRun enqueues a discovery request for a worker
func (p *Publisher) RequestRun(_ context.Context, req types.DiscoveryRequest) error {
	if p.topics.Requests == "" {
		return errors.New("no requests topic configured")
	}
	m, err := message(p.topics.Requests, req.RequestedBy, req)
	if err != nil {
		return err
	}
	return p.send([]*sarama.ProducerMessage{m})
}

// Close flushes and closes the producer
func (p *Publisher) Close() error {
	return p.producer.Close()
}

func (p *Publisher) send(msgs []*sarama.ProducerMessage) error {
	if err := p.producer.SendMessages(msgs); err != nil {
		return fmt.Errorf("failed to publish %d message(s) to %s: %w", len(msgs), msgs[0].Topic, err)
	}
	p.logger.Debug("📤 Published messages", zap.String("topic", msgs[0].Topic), zap.Int("count", len(msgs)))
	return nil
}

func message(topic, key string, v any) (*sarama.ProducerMessage, error) {
	body, err := json.Marshal(v)
	if err != nil {
		return nil, fmt.Errorf("failed to encode message for %s: %w", topic, err)
	}
	m := &sarama.ProducerMessage{Topic: topic, Value: sarama.ByteEncoder(body)}
	if key != "" {
		m.Key = sarama.StringEncoder(key)
	}
	return m, nil
}
