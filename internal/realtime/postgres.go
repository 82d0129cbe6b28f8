package realtime

import (
	"context"
	"encoding/json"
	"fmt"
	"time"

	"github.com/PolandExportFlow/polandexportflow-git-sub001/pkg/models"
	"github.com/lib/pq"
	"github.com/sirupsen/logrus"
)

// PostgresSource LISTENs on one notification channel per resource. The
// store's triggers NOTIFY with the table name as channel and an optional JSON
// payload carrying the order id.
type PostgresSource struct {
	DSN    string
	Logger *logrus.Logger
}

func (s *PostgresSource) Run(ctx context.Context, resources []string, handle func(models.Change)) error {
	reportProblem := func(ev pq.ListenerEventType, err error) {
		if err != nil {
			s.Logger.WithError(err).WithField("event", int(ev)).Warn("Postgres listener problem")
		}
	}

	listener := pq.NewListener(s.DSN, 2*time.Second, time.Minute, reportProblem)
	defer listener.Close()

	for _, r := range resources {
		if err := listener.Listen(r); err != nil {
			return fmt.Errorf("failed to listen on %s: %w", r, err)
		}
	}
	s.Logger.WithField("channels", len(resources)).Info("Listening for postgres change notifications")

	for {
		select {
		case <-ctx.Done():
			return nil

		case n, ok := <-listener.Notify:
			if !ok {
				return fmt.Errorf("postgres listener closed")
			}
			if n == nil {
				// Reconnected; anything may have changed meanwhile.
				for _, r := range resources {
					handle(models.Change{Resource: r, At: time.Now()})
				}
				continue
			}
			handle(s.decode(n))

		case <-time.After(90 * time.Second):
			go listener.Ping()
		}
	}
}

func (s *PostgresSource) decode(n *pq.Notification) models.Change {
	change := models.Change{Resource: n.Channel, At: time.Now()}
	if n.Extra == "" {
		return change
	}
	var hint struct {
		OrderID string `json:"order_id"`
	}
	if err := json.Unmarshal([]byte(n.Extra), &hint); err == nil {
		change.OrderID = hint.OrderID
	}
	return change
}
