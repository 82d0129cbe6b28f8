package realtime

import (
	"bytes"
	"context"
	"encoding/json"
	"fmt"

	feed "github.com/PolandExportFlow/polandexportflow-git-sub001/internal/websocket"
	"github.com/PolandExportFlow/polandexportflow-git-sub001/pkg/models"
	"github.com/gorilla/websocket"
	"github.com/sirupsen/logrus"
)

// WebSocketSource reads change messages pushed by a change-feed hub.
type WebSocketSource struct {
	URL    string
	Dialer *websocket.Dialer
	Logger *logrus.Logger
}

func (s *WebSocketSource) Run(ctx context.Context, resources []string, handle func(models.Change)) error {
	dialer := s.Dialer
	if dialer == nil {
		dialer = websocket.DefaultDialer
	}

	conn, _, err := dialer.DialContext(ctx, s.URL, nil)
	if err != nil {
		return fmt.Errorf("failed to dial change feed: %w", err)
	}
	defer conn.Close()

	done := make(chan struct{})
	defer close(done)
	go func() {
		select {
		case <-ctx.Done():
			conn.Close()
		case <-done:
		}
	}()

	s.Logger.WithField("url", s.URL).Info("Connected to change feed")

	watched := toSet(resources)
	for {
		_, data, err := conn.ReadMessage()
		if err != nil {
			if ctx.Err() != nil {
				return nil
			}
			return fmt.Errorf("failed to read change feed: %w", err)
		}

		// The hub batches queued messages into one frame, newline separated.
		for _, line := range bytes.Split(data, []byte{'\n'}) {
			if len(bytes.TrimSpace(line)) == 0 {
				continue
			}
			change, ok := s.decode(line)
			if ok && watched[change.Resource] {
				handle(change)
			}
		}
	}
}

func (s *WebSocketSource) decode(line []byte) (models.Change, bool) {
	var msg struct {
		Type string          `json:"type"`
		Data json.RawMessage `json:"data"`
	}
	if err := json.Unmarshal(line, &msg); err != nil {
		s.Logger.WithError(err).Warn("Failed to unmarshal change feed message")
		return models.Change{}, false
	}
	if msg.Type != feed.MessageTypeChange {
		return models.Change{}, false
	}

	var change models.Change
	if err := json.Unmarshal(msg.Data, &change); err != nil {
		s.Logger.WithError(err).Warn("Failed to unmarshal change payload")
		return models.Change{}, false
	}
	return change, true
}
