// Package realtime turns external "something changed" signals into silent
// refreshes of an order aggregate, at most one per window.
package realtime

import (
	"sync"
	"time"

	"github.com/PolandExportFlow/polandexportflow-git-sub001/pkg/models"
	"github.com/sirupsen/logrus"
)

const DefaultInterval = 2 * time.Second

type ThrottleOption func(*Throttle)

// WithClock replaces time.Now.
func WithClock(now func() time.Time) ThrottleOption {
	return func(t *Throttle) {
		t.now = now
	}
}

// WithOrderFilter ignores changes whose order id hint names another order.
func WithOrderFilter(orderID string) ThrottleOption {
	return func(t *Throttle) {
		t.orderID = orderID
	}
}

// Throttle coalesces change notifications for a set of watched resources
// into at most one refresh per interval. Notifications inside the window are
// dropped, not deferred.
type Throttle struct {
	interval time.Duration
	watched  map[string]bool
	refresh  func()
	orderID  string
	now      func() time.Time

	mutex   sync.Mutex
	last    time.Time
	fired   bool
	dropped int64

	logger *logrus.Logger
}

func NewThrottle(interval time.Duration, resources []string, refresh func(), logger *logrus.Logger, opts ...ThrottleOption) *Throttle {
	if interval <= 0 {
		interval = DefaultInterval
	}
	watched := make(map[string]bool, len(resources))
	for _, r := range resources {
		watched[r] = true
	}
	t := &Throttle{
		interval: interval,
		watched:  watched,
		refresh:  refresh,
		now:      time.Now,
		logger:   logger,
	}
	for _, opt := range opts {
		opt(t)
	}
	return t
}

func (t *Throttle) Watched() []string {
	out := make([]string, 0, len(t.watched))
	for r := range t.watched {
		out = append(out, r)
	}
	return out
}

// Notify reports whether the change triggered a refresh. The refresh runs on
// its own goroutine.
func (t *Throttle) Notify(change models.Change) bool {
	if !t.watched[change.Resource] {
		return false
	}
	if t.orderID != "" && change.OrderID != "" && change.OrderID != t.orderID {
		return false
	}

	t.mutex.Lock()
	now := t.now()
	if t.fired && now.Sub(t.last) <= t.interval {
		t.dropped++
		t.mutex.Unlock()
		t.logger.WithFields(logrus.Fields{
			"resource": change.Resource,
			"order_id": t.orderID,
		}).Debug("Change coalesced into current refresh window")
		return false
	}
	t.fired = true
	t.last = now
	t.mutex.Unlock()

	t.logger.WithFields(logrus.Fields{
		"resource": change.Resource,
		"order_id": t.orderID,
	}).Debug("Change triggered silent refresh")

	go t.refresh()
	return true
}

// Dropped is the number of coalesced notifications.
func (t *Throttle) Dropped() int64 {
	t.mutex.Lock()
	defer t.mutex.Unlock()
	return t.dropped
}
