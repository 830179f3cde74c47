package kafka

import (
	"context"
	"encoding/json"
	"fmt"

	"github.com/twmb/franz-go/pkg/kgo"

	"parktrust/internal/audit"
)

const defaultTopic = "parktrust.audit"

// Store produces audit records to a Kafka topic, keyed by slot id so all
// transitions for one slot land in the same partition in order. The topic is
// provisioned externally.
type Store struct {
	client *kgo.Client
	topic  string
}

func New(brokers []string, topic string) (*Store, error) {
	if topic == "" {
		topic = defaultTopic
	}
	client, err := kgo.NewClient(
		kgo.SeedBrokers(brokers...),
		kgo.DefaultProduceTopic(topic),
	)
	if err != nil {
		return nil, fmt.Errorf("create kafka client: %w", err)
	}
	return &Store{client: client, topic: topic}, nil
}

func (s *Store) Append(ctx context.Context, rec audit.Record) error {
	payload, err := json.Marshal(rec)
	if err != nil {
		return fmt.Errorf("marshal audit record: %w", err)
	}
	record := &kgo.Record{
		Topic: s.topic,
		Key:   []byte(rec.SlotID),
		Value: payload,
	}
	if err := s.client.ProduceSync(ctx, record).FirstErr(); err != nil {
		return fmt.Errorf("produce audit record: %w", err)
	}
	return nil
}

func (s *Store) Close() {
	s.client.Close()
}
