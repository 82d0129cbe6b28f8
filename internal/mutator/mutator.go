// Package mutator runs every user-initiated write through the same
// apply / submit / resolve protocol: the optimistic value is shown first, the
// write is sent to the data service, and the outcome either confirms the
// value or rolls it back with a failure notice.
package mutator

import (
	"context"
	"errors"
	"fmt"
	"time"

	"github.com/PolandExportFlow/polandexportflow-git-sub001/internal/store"
	"github.com/sirupsen/logrus"
)

var ErrClosed = errors.New("order aggregate closed")

// Mutation describes one write against one store. R is what the data service
// returns for it.
type Mutation[T any, R any] struct {
	Operation string
	Field     string
	Store     *store.Store[T]

	// Apply computes the optimistic value.
	Apply store.Patch[T]

	// Submit performs the write.
	Submit func(ctx context.Context) (R, error)

	// Reconcile builds the server-confirmed value from the committed one and
	// the write's result. When nil, Apply is replayed on the committed value.
	Reconcile func(committed T, result R) T

	// Refetch runs after a successful write whose response does not echo
	// the full record.
	Refetch func()
}

type Option func(*Mutator)

// WithLiveness suppresses all state writes once alive reports false.
func WithLiveness(alive func() bool) Option {
	return func(m *Mutator) {
		m.alive = alive
	}
}

// WithChangeHook is called after every visible state change.
func WithChangeHook(fn func()) Option {
	return func(m *Mutator) {
		m.changed = fn
	}
}

// Mutator carries what every mutation of one order shares.
type Mutator struct {
	orderID  string
	notifier Notifier
	logger   *logrus.Logger
	alive    func() bool
	changed  func()
	now      func() time.Time
}

func New(orderID string, notifier Notifier, logger *logrus.Logger, opts ...Option) *Mutator {
	if notifier == nil {
		notifier = NewLogNotifier(logger)
	}
	m := &Mutator{
		orderID:  orderID,
		notifier: notifier,
		logger:   logger,
		alive:    func() bool { return true },
		changed:  func() {},
		now:      time.Now,
	}
	for _, opt := range opts {
		opt(m)
	}
	return m
}

// Run executes mut. On failure the optimistic patch is rolled back, a notice
// is delivered and the error is returned; it never panics.
func Run[T any, R any](ctx context.Context, m *Mutator, mut Mutation[T, R]) (R, error) {
	var zero R
	if !m.alive() {
		return zero, ErrClosed
	}

	tok := mut.Store.SetOptimistic(mut.Field, mut.Apply)
	m.changed()

	fields := logrus.Fields{
		"order_id":  m.orderID,
		"operation": mut.Operation,
		"store":     mut.Store.Name(),
		"field":     mut.Field,
	}

	result, err := submit(ctx, mut.Submit)

	if !m.alive() {
		m.logger.WithFields(fields).Debug("Mutation resolved after close, result dropped")
		if err != nil {
			return zero, err
		}
		return result, nil
	}

	if err != nil {
		mut.Store.Rollback(tok)
		m.changed()
		m.logger.WithFields(fields).WithError(err).Warn("Mutation failed, optimistic change rolled back")
		m.notifier.Notify(Notice{
			OrderID:   m.orderID,
			Operation: mut.Operation,
			Field:     mut.Field,
			Err:       err,
			At:        m.now(),
		})
		return zero, fmt.Errorf("%s: %w", mut.Operation, err)
	}

	reconcile := func(committed T) T {
		if mut.Reconcile != nil {
			return mut.Reconcile(committed, result)
		}
		return mut.Apply(committed)
	}
	mut.Store.Confirm(tok, reconcile)
	m.changed()
	m.logger.WithFields(fields).Debug("Mutation confirmed")

	if mut.Refetch != nil {
		mut.Refetch()
	}
	return result, nil
}

func submit[R any](ctx context.Context, fn func(ctx context.Context) (R, error)) (result R, err error) {
	defer func() {
		if r := recover(); r != nil {
			err = fmt.Errorf("mutation panicked: %v", r)
		}
	}()
	return fn(ctx)
}
