package realtime

import (
	"context"
	"encoding/json"
	"fmt"
	"strings"
	"time"

	"github.com/PolandExportFlow/polandexportflow-git-sub001/pkg/models"
	"github.com/redis/go-redis/v9"
	"github.com/sirupsen/logrus"
)

// RedisSource subscribes to one pub/sub channel per resource, named
// "<prefix>:<resource>". Payloads are optional JSON models.Change.
type RedisSource struct {
	Client *redis.Client
	Prefix string
	Logger *logrus.Logger
}

func (s *RedisSource) channel(resource string) string {
	if s.Prefix == "" {
		return resource
	}
	return s.Prefix + ":" + resource
}

func (s *RedisSource) Run(ctx context.Context, resources []string, handle func(models.Change)) error {
	channels := make([]string, 0, len(resources))
	byChannel := make(map[string]string, len(resources))
	for _, r := range resources {
		ch := s.channel(r)
		channels = append(channels, ch)
		byChannel[ch] = r
	}

	sub := s.Client.Subscribe(ctx, channels...)
	defer sub.Close()

	if _, err := sub.Receive(ctx); err != nil {
		if ctx.Err() != nil {
			return nil
		}
		return fmt.Errorf("failed to subscribe to change channels: %w", err)
	}
	s.Logger.WithField("channels", strings.Join(channels, ",")).Info("Subscribed to redis change channels")

	messages := sub.Channel()
	for {
		select {
		case <-ctx.Done():
			return nil
		case msg, ok := <-messages:
			if !ok {
				return fmt.Errorf("redis change subscription closed")
			}
			resource, watched := byChannel[msg.Channel]
			if !watched {
				continue
			}
			handle(s.decode(resource, msg.Payload))
		}
	}
}

func (s *RedisSource) decode(resource, payload string) models.Change {
	change := models.Change{Resource: resource, At: time.Now()}
	if payload == "" {
		return change
	}
	var hint models.Change
	if err := json.Unmarshal([]byte(payload), &hint); err != nil {
		s.Logger.WithError(err).WithField("resource", resource).Debug("Ignoring non-JSON change payload")
		return change
	}
	change.OrderID = hint.OrderID
	if !hint.At.IsZero() {
		change.At = hint.At
	}
	return change
}
