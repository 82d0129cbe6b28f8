// Package store holds the per-entity replica of server state: the committed
// value last confirmed by the data service and the pending value shown to the
// user, which is the committed value with every outstanding optimistic patch
// applied in order.
package store

import (
	"sync"

	"github.com/sirupsen/logrus"
)

// Patch derives a new value from the current one. It must not modify its
// argument in place: slices and maps inside it are shared with the committed
// value.
type Patch[T any] func(T) T

// Token identifies one optimistic patch. The zero Token matches nothing.
type Token struct {
	id    uint64
	field string
}

func (t Token) Field() string { return t.field }

func (t Token) Valid() bool { return t.id != 0 }

type outstanding[T any] struct {
	id    uint64
	field string
	patch Patch[T]
}

type Store[T any] struct {
	name string

	mutex     sync.RWMutex
	committed T
	pending   T
	patches   []outstanding[T]
	lastID    uint64

	logger *logrus.Logger
}

func New[T any](name string, initial T, logger *logrus.Logger) *Store[T] {
	return &Store[T]{
		name:      name,
		committed: initial,
		pending:   initial,
		logger:    logger,
	}
}

func (s *Store[T]) Name() string { return s.name }

// Read returns the pending value.
func (s *Store[T]) Read() T {
	s.mutex.RLock()
	defer s.mutex.RUnlock()
	return s.pending
}

func (s *Store[T]) Committed() T {
	s.mutex.RLock()
	defer s.mutex.RUnlock()
	return s.committed
}

// Outstanding reports how many optimistic patches await resolution.
func (s *Store[T]) Outstanding() int {
	s.mutex.RLock()
	defer s.mutex.RUnlock()
	return len(s.patches)
}

// SetOptimistic applies patch to the pending value and returns the token
// that rolls it back. field names what the patch touches, for logs.
func (s *Store[T]) SetOptimistic(field string, patch Patch[T]) Token {
	s.mutex.Lock()
	defer s.mutex.Unlock()

	s.lastID++
	p := outstanding[T]{id: s.lastID, field: field, patch: patch}
	s.patches = append(s.patches, p)
	s.pending = patch(s.pending)

	s.logger.WithFields(logrus.Fields{
		"store":       s.name,
		"field":       field,
		"token":       p.id,
		"outstanding": len(s.patches),
	}).Debug("Optimistic patch applied")

	return Token{id: p.id, field: field}
}

// Commit replaces the committed value with the authoritative one. Patches
// still outstanding are replayed on top of it, so edits in flight stay
// visible and can still be confirmed or rolled back.
func (s *Store[T]) Commit(value T) {
	s.mutex.Lock()
	defer s.mutex.Unlock()

	s.committed = value
	s.rebuild()

	if len(s.patches) > 0 {
		s.logger.WithFields(logrus.Fields{
			"store":       s.name,
			"outstanding": len(s.patches),
		}).Debug("Commit replayed outstanding patches")
	}
}

// Confirm resolves the patch behind tok as accepted by the server. reconcile
// turns the committed value into the server-confirmed one; the remaining
// outstanding patches are then replayed on top of it. A token that is no
// longer outstanding is ignored and reconcile is not run.
func (s *Store[T]) Confirm(tok Token, reconcile Patch[T]) bool {
	s.mutex.Lock()
	defer s.mutex.Unlock()

	if !s.remove(tok) {
		s.logger.WithFields(logrus.Fields{
			"store": s.name,
			"field": tok.field,
			"token": tok.id,
		}).Debug("Confirm ignored, token no longer outstanding")
		return false
	}
	if reconcile != nil {
		s.committed = reconcile(s.committed)
	}
	s.rebuild()
	return true
}

// Rollback discards the patch behind tok. Pending is rebuilt from the
// committed value and the patches still outstanding, so a newer edit of the
// same field stays visible. A token that was already rolled back or
// confirmed is ignored.
func (s *Store[T]) Rollback(tok Token) bool {
	s.mutex.Lock()
	defer s.mutex.Unlock()

	if !s.remove(tok) {
		s.logger.WithFields(logrus.Fields{
			"store": s.name,
			"field": tok.field,
			"token": tok.id,
		}).Debug("Rollback ignored, token no longer outstanding")
		return false
	}
	s.rebuild()
	return true
}

func (s *Store[T]) remove(tok Token) bool {
	if !tok.Valid() {
		return false
	}
	for i, p := range s.patches {
		if p.id == tok.id {
			s.patches = append(s.patches[:i:i], s.patches[i+1:]...)
			return true
		}
	}
	return false
}

func (s *Store[T]) rebuild() {
	value := s.committed
	for _, p := range s.patches {
		value = p.patch(value)
	}
	s.pending = value
}
