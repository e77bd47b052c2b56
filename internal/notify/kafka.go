package notify

import (
	"context"
	"encoding/json"
	"fmt"

	"github.com/twmb/franz-go/pkg/kgo"
)

const (
	TopicDonorAlerts = "lifedrop.donor-alerts"
	TopicCooldowns   = "lifedrop.cooldown-complete"
)

// KafkaPublisher produces donor messages to Kafka topics. Records are keyed
// by donor so one donor's messages stay ordered within a partition.
type KafkaPublisher struct {
	client *kgo.Client
}

// NewKafkaPublisher builds a publisher over its own client.
func NewKafkaPublisher(brokers []string) (*KafkaPublisher, error) {
	client, err := kgo.NewClient(
		kgo.SeedBrokers(brokers...),
		kgo.ProducerBatchCompression(kgo.SnappyCompression()),
	)
	if err != nil {
		return nil, fmt.Errorf("create kafka client: %w", err)
	}
	return &KafkaPublisher{client: client}, nil
}

func (p *KafkaPublisher) DonorAlert(ctx context.Context, alert DonorAlert) error {
	return p.produce(ctx, TopicDonorAlerts, alert.DonorID.String(), alert)
}

func (p *KafkaPublisher) CooldownComplete(ctx context.Context, done CooldownComplete) error {
	return p.produce(ctx, TopicCooldowns, done.DonorID.String(), done)
}

func (p *KafkaPublisher) produce(ctx context.Context, topic, key string, payload any) error {
	value, err := json.Marshal(payload)
	if err != nil {
		return fmt.Errorf("encode %s message: %w", topic, err)
	}
	record := &kgo.Record{
		Topic: topic,
		Key:   []byte(key),
		Value: value,
	}
	if err := p.client.ProduceSync(ctx, record).FirstErr(); err != nil {
		return fmt.Errorf("produce to %s: %w", topic, err)
	}
	return nil
}

func (p *KafkaPublisher) Close() {
	p.client.Close()
}
