// Package events publishes change notifications to Kafka, keyed by resource
// so realtime.KafkaSource can filter without decoding.
package events

import (
	"context"
	"encoding/json"
	"fmt"
	"sync/atomic"
	"time"

	"github.com/IBM/sarama"
	"github.com/PolandExportFlow/polandexportflow-git-sub001/pkg/models"
	"github.com/sirupsen/logrus"
)

const (
	DefaultChangeTopic = "order-changes"

	MaxRetries        = 3
	InitialRetryDelay = 200 * time.Millisecond
	MaxRetryDelay     = 5 * time.Second

	queueSize = 256
)

type Publisher struct {
	producer   sarama.SyncProducer
	topic      string
	queue      chan models.Change
	retryDelay time.Duration
	logger     *logrus.Logger

	published atomic.Int64
	failed    atomic.Int64
	dropped   atomic.Int64
}

func NewKafkaPublisher(brokers []string, topic string, logger *logrus.Logger) (*Publisher, error) {
	config := sarama.NewConfig()
	config.Producer.RequiredAcks = sarama.WaitForAll
	config.Producer.Retry.Max = 5
	config.Producer.Return.Successes = true
	config.Version = sarama.V2_6_0_0

	producer, err := sarama.NewSyncProducer(brokers, config)
	if err != nil {
		return nil, fmt.Errorf("failed to create kafka producer: %w", err)
	}
	return NewPublisher(producer, topic, logger), nil
}

func NewPublisher(producer sarama.SyncProducer, topic string, logger *logrus.Logger) *Publisher {
	if topic == "" {
		topic = DefaultChangeTopic
	}
	return &Publisher{
		producer:   producer,
		topic:      topic,
		queue:      make(chan models.Change, queueSize),
		retryDelay: InitialRetryDelay,
		logger:     logger,
	}
}

// Publish queues change for Run and never blocks. A full queue drops it;
// consumers recover on their next full refresh.
func (p *Publisher) Publish(change models.Change) {
	select {
	case p.queue <- change:
	default:
		p.dropped.Add(1)
		p.logger.WithField("resource", change.Resource).Warn("Change publish queue full, dropping change")
	}
}

// Run sends queued changes until ctx is done.
func (p *Publisher) Run(ctx context.Context) {
	for {
		select {
		case <-ctx.Done():
			return
		case change := <-p.queue:
			if err := p.Send(ctx, change); err != nil && ctx.Err() == nil {
				p.logger.WithError(err).WithField("resource", change.Resource).Error("Failed to publish change")
			}
		}
	}
}

// Send publishes one change, retrying with exponential backoff.
func (p *Publisher) Send(ctx context.Context, change models.Change) error {
	if change.At.IsZero() {
		change.At = time.Now()
	}
	data, err := json.Marshal(change)
	if err != nil {
		return fmt.Errorf("failed to marshal change: %w", err)
	}

	delay := p.retryDelay
	for attempt := 0; ; attempt++ {
		msg := &sarama.ProducerMessage{
			Topic: p.topic,
			Key:   sarama.StringEncoder(change.Resource),
			Value: sarama.ByteEncoder(data),
		}

		partition, offset, err := p.producer.SendMessage(msg)
		if err == nil {
			p.published.Add(1)
			p.logger.WithFields(logrus.Fields{
				"topic":     p.topic,
				"partition": partition,
				"offset":    offset,
				"resource":  change.Resource,
				"order_id":  change.OrderID,
			}).Debug("Change published to Kafka")
			return nil
		}

		if attempt >= MaxRetries {
			p.failed.Add(1)
			return fmt.Errorf("failed to publish change after %d attempts: %w", attempt+1, err)
		}

		p.logger.WithError(err).WithFields(logrus.Fields{
			"attempt":  attempt + 1,
			"retry_in": delay.String(),
		}).Warn("Kafka send failed, retrying")

		select {
		case <-ctx.Done():
			p.failed.Add(1)
			return ctx.Err()
		case <-time.After(delay):
		}
		delay *= 2
		if delay > MaxRetryDelay {
			delay = MaxRetryDelay
		}
	}
}

// Stats reports published, failed and dropped counts.
func (p *Publisher) Stats() (published, failed, dropped int64) {
	return p.published.Load(), p.failed.Load(), p.dropped.Load()
}

func (p *Publisher) Close() error {
	return p.producer.Close()
}
