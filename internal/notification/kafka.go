package notification

import (
	"context"
	"errors"
	"fmt"
	"log/slog"

	"github.com/twmb/franz-go/pkg/kadm"
	"github.com/twmb/franz-go/pkg/kerr"
	"github.com/twmb/franz-go/pkg/kgo"

	"sglgb/internal/assessment/models"
	"sglgb/internal/platform/config"
)

// KafkaDispatcher produces one record per event, keyed by assessment id so
// every event of an assessment lands on one partition in order.
type KafkaDispatcher struct {
	client *kgo.Client
	cfg    config.Kafka
	logger *slog.Logger
}

// NewKafka creates a producer for cfg.Topic.
func NewKafka(cfg config.Kafka, logger *slog.Logger) (*KafkaDispatcher, error) {
	if len(cfg.Brokers) == 0 {
		return nil, errors.New("kafka brokers are required")
	}
	if cfg.Topic == "" {
		return nil, errors.New("kafka topic is required")
	}
	client, err := kgo.NewClient(
		kgo.SeedBrokers(cfg.Brokers...),
		kgo.DefaultProduceTopic(cfg.Topic),
		kgo.RequiredAcks(kgo.AllISRAcks()),
		kgo.ProducerBatchCompression(kgo.SnappyCompression(), kgo.NoCompression()),
	)
	if err != nil {
		return nil, fmt.Errorf("create kafka client: %w", err)
	}
	return &KafkaDispatcher{client: client, cfg: cfg, logger: logger}, nil
}

// EnsureTopic creates the topic when it does not exist yet.
func (d *KafkaDispatcher) EnsureTopic(ctx context.Context) error {
	adm := kadm.NewClient(d.client)
	resp, err := adm.CreateTopics(ctx, d.cfg.Partitions, d.cfg.ReplicationFactor, nil, d.cfg.Topic)
	if err != nil {
		return fmt.Errorf("create topic %s: %w", d.cfg.Topic, err)
	}
	for _, r := range resp {
		if r.Err != nil && !errors.Is(r.Err, kerr.TopicAlreadyExists) {
			return fmt.Errorf("create topic %s: %w", r.Topic, r.Err)
		}
	}
	d.logger.InfoContext(ctx, "notification topic ready", "topic", d.cfg.Topic)
	return nil
}

// Dispatch produces the batch synchronously and returns the first failure.
func (d *KafkaDispatcher) Dispatch(ctx context.Context, events []models.Event) error {
	records := make([]*kgo.Record, 0, len(events))
	for _, ev := range events {
		value, err := Encode(ev)
		if err != nil {
			return err
		}
		records = append(records, &kgo.Record{
			Key:   []byte(ev.AssessmentID),
			Value: value,
			Headers: []kgo.RecordHeader{
				{Key: "event_type", Value: []byte(ev.Type)},
			},
		})
	}
	if err := d.client.ProduceSync(ctx, records...).FirstErr(); err != nil {
		return fmt.Errorf("produce notifications: %w", err)
	}
	return nil
}

// Ping checks broker connectivity.
func (d *KafkaDispatcher) Ping(ctx context.Context) error {
	return d.client.Ping(ctx)
}

func (d *KafkaDispatcher) Close() {
	d.client.Close()
}
