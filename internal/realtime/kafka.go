package realtime

import (
	"context"
	"encoding/json"
	"fmt"
	"strings"
	"time"

	"github.com/IBM/sarama"
	"github.com/PolandExportFlow/polandexportflow-git-sub001/pkg/models"
	"github.com/sirupsen/logrus"
)

// KafkaSource consumes change events from a topic. The message key is the
// resource name; the value, when present, is a JSON models.Change.
type KafkaSource struct {
	Brokers string
	Topic   string
	GroupID string
	Logger  *logrus.Logger
}

func (s *KafkaSource) Run(ctx context.Context, resources []string, handle func(models.Change)) error {
	config := sarama.NewConfig()
	config.Consumer.Group.Rebalance.Strategy = sarama.BalanceStrategyRoundRobin
	// Only changes after subscribing matter.
	config.Consumer.Offsets.Initial = sarama.OffsetNewest
	config.Version = sarama.V2_6_0_0

	group, err := sarama.NewConsumerGroup(strings.Split(s.Brokers, ","), s.GroupID, config)
	if err != nil {
		return fmt.Errorf("failed to create consumer group: %w", err)
	}
	defer group.Close()

	handler := &changeGroupHandler{
		watched: toSet(resources),
		handle:  handle,
		logger:  s.Logger,
	}

	for {
		if err := group.Consume(ctx, []string{s.Topic}, handler); err != nil {
			if ctx.Err() != nil {
				return nil
			}
			return fmt.Errorf("error consuming change events: %w", err)
		}
		if ctx.Err() != nil {
			return nil
		}
	}
}

type changeGroupHandler struct {
	watched map[string]bool
	handle  func(models.Change)
	logger  *logrus.Logger
}

func (h *changeGroupHandler) Setup(sarama.ConsumerGroupSession) error {
	h.logger.Debug("Change consumer group session setup")
	return nil
}

func (h *changeGroupHandler) Cleanup(sarama.ConsumerGroupSession) error {
	h.logger.Debug("Change consumer group session cleanup")
	return nil
}

func (h *changeGroupHandler) ConsumeClaim(session sarama.ConsumerGroupSession, claim sarama.ConsumerGroupClaim) error {
	for {
		select {
		case message := <-claim.Messages():
			if message == nil {
				return nil
			}
			if change, ok := h.decode(message); ok && h.watched[change.Resource] {
				h.handle(change)
			}
			session.MarkMessage(message, "")

		case <-session.Context().Done():
			return nil
		}
	}
}

func (h *changeGroupHandler) decode(message *sarama.ConsumerMessage) (models.Change, bool) {
	change := models.Change{Resource: string(message.Key), At: message.Timestamp}
	if len(message.Value) > 0 {
		if err := json.Unmarshal(message.Value, &change); err != nil {
			h.logger.WithError(err).WithFields(logrus.Fields{
				"topic":     message.Topic,
				"partition": message.Partition,
				"offset":    message.Offset,
			}).Warn("Failed to unmarshal change event")
			return models.Change{}, false
		}
	}
	if change.Resource == "" {
		change.Resource = string(message.Key)
	}
	if change.At.IsZero() {
		change.At = time.Now()
	}
	return change, change.Resource != ""
}
