package realtime

import (
	"context"
	"errors"
	"sync"
	"time"

	"github.com/PolandExportFlow/polandexportflow-git-sub001/pkg/models"
	"github.com/sirupsen/logrus"
)

const (
	initialRetryDelay = 1 * time.Second
	maxRetryDelay     = 30 * time.Second
)

// Source delivers change notifications for the given resources until ctx is
// done or the transport fails.
type Source interface {
	Run(ctx context.Context, resources []string, handle func(models.Change)) error
}

// Listen feeds src into t, reconnecting with exponential backoff whenever
// the transport returns, cleanly or not. It returns when ctx is done.
func Listen(ctx context.Context, src Source, t *Throttle, logger *logrus.Logger) {
	delay := initialRetryDelay
	for {
		err := src.Run(ctx, t.Watched(), func(c models.Change) { t.Notify(c) })
		if ctx.Err() != nil {
			return
		}

		entry := logger.WithField("retry_in", delay.String())
		if err != nil {
			entry.WithError(err).Warn("Change feed disconnected, reconnecting")
		} else {
			entry.Info("Change feed ended, reconnecting")
		}
		select {
		case <-ctx.Done():
			return
		case <-time.After(delay):
		}
		delay *= 2
		if delay > maxRetryDelay {
			delay = maxRetryDelay
		}
	}
}

// Feed is an in-process change channel. It is both a Source and the
// publisher side used by in-memory data services.
type Feed struct {
	mutex       sync.RWMutex
	subscribers map[int]chan models.Change
	nextID      int
	logger      *logrus.Logger
}

func NewFeed(logger *logrus.Logger) *Feed {
	return &Feed{
		subscribers: make(map[int]chan models.Change),
		logger:      logger,
	}
}

// Publish never blocks; a subscriber whose buffer is full misses the change.
func (f *Feed) Publish(change models.Change) {
	f.mutex.RLock()
	defer f.mutex.RUnlock()

	for _, ch := range f.subscribers {
		select {
		case ch <- change:
		default:
			f.logger.WithField("resource", change.Resource).Warn("Change feed subscriber full, dropping change")
		}
	}
}

func (f *Feed) Run(ctx context.Context, resources []string, handle func(models.Change)) error {
	ch := make(chan models.Change, 64)

	f.mutex.Lock()
	id := f.nextID
	f.nextID++
	f.subscribers[id] = ch
	f.mutex.Unlock()

	defer func() {
		f.mutex.Lock()
		delete(f.subscribers, id)
		f.mutex.Unlock()
	}()

	watched := toSet(resources)
	for {
		select {
		case <-ctx.Done():
			return nil
		case change := <-ch:
			if watched[change.Resource] {
				handle(change)
			}
		}
	}
}

// PollSource signals every watched resource on a fixed interval. It is the
// fallback when no push transport is available.
type PollSource struct {
	Interval time.Duration
}

func (p PollSource) Run(ctx context.Context, resources []string, handle func(models.Change)) error {
	if p.Interval <= 0 {
		return errors.New("poll interval must be positive")
	}
	ticker := time.NewTicker(p.Interval)
	defer ticker.Stop()

	for {
		select {
		case <-ctx.Done():
			return nil
		case now := <-ticker.C:
			for _, r := range resources {
				handle(models.Change{Resource: r, At: now})
			}
		}
	}
}

func toSet(values []string) map[string]bool {
	set := make(map[string]bool, len(values))
	for _, v := range values {
		set[v] = true
	}
	return set
}
