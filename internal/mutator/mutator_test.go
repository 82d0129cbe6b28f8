package mutator

import (
	"context"
	"errors"
	"io"
	"sync/atomic"
	"testing"

	"github.com/PolandExportFlow/polandexportflow-git-sub001/internal/store"
	"github.com/sirupsen/logrus"
	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
)

type payment struct {
	Status string
	Fee    int
}

func testLogger() *logrus.Logger {
	logger := logrus.New()
	logger.SetOutput(io.Discard)
	return logger
}

func setFee(v int) store.Patch[payment] {
	return func(p payment) payment {
		p.Fee = v
		return p
	}
}

func TestRunConfirmsOnSuccess(t *testing.T) {
	s := store.New("payment", payment{Fee: 5}, testLogger())
	rec := NewRecorder(5)
	m := New("order-1", rec, testLogger())

	var sawOptimistic int
	result, err := Run(context.Background(), m, Mutation[payment, int]{
		Operation: "service fee",
		Field:     "service_fee_pct",
		Store:     s,
		Apply:     setFee(9),
		Submit: func(ctx context.Context) (int, error) {
			sawOptimistic = s.Read().Fee
			return 9, nil
		},
	})

	require.NoError(t, err)
	assert.Equal(t, 9, result)
	assert.Equal(t, 9, sawOptimistic, "optimistic value visible before the write is issued")
	assert.Equal(t, 9, s.Committed().Fee)
	assert.Equal(t, 9, s.Read().Fee)
	assert.Zero(t, s.Outstanding())
	assert.Empty(t, rec.Notices())
}

func TestRunUsesReconcileWhenProvided(t *testing.T) {
	s := store.New("payment", payment{Status: "unpaid"}, testLogger())
	m := New("order-1", nil, testLogger())

	_, err := Run(context.Background(), m, Mutation[payment, string]{
		Operation: "payment status",
		Field:     "payment_status",
		Store:     s,
		Apply: func(p payment) payment {
			p.Status = "paid"
			return p
		},
		Submit: func(ctx context.Context) (string, error) { return "paid_confirmed", nil },
		Reconcile: func(p payment, echoed string) payment {
			p.Status = echoed
			return p
		},
	})

	require.NoError(t, err)
	assert.Equal(t, "paid_confirmed", s.Read().Status)
}

func TestRunRollsBackAndNotifiesOnFailure(t *testing.T) {
	s := store.New("payment", payment{Fee: 5}, testLogger())
	rec := NewRecorder(5)
	var changes atomic.Int32
	m := New("order-1", rec, testLogger(), WithChangeHook(func() { changes.Add(1) }))

	boom := errors.New("server rejected fee")
	_, err := Run(context.Background(), m, Mutation[payment, struct{}]{
		Operation: "service fee",
		Field:     "service_fee_pct",
		Store:     s,
		Apply:     setFee(9),
		Submit: func(ctx context.Context) (struct{}, error) {
			return struct{}{}, boom
		},
	})

	require.Error(t, err)
	assert.ErrorIs(t, err, boom)
	assert.Equal(t, 5, s.Read().Fee)
	assert.Zero(t, s.Outstanding())
	assert.Equal(t, int32(2), changes.Load())

	notices := rec.Notices()
	require.Len(t, notices, 1)
	assert.Equal(t, "order-1", notices[0].OrderID)
	assert.Equal(t, "service fee", notices[0].Operation)
	assert.ErrorIs(t, notices[0].Err, boom)
	assert.Contains(t, notices[0].Message(), "service fee")
}

func TestRunRecoversPanickingSubmit(t *testing.T) {
	s := store.New("payment", payment{Fee: 5}, testLogger())
	rec := NewRecorder(5)
	m := New("order-1", rec, testLogger())

	_, err := Run(context.Background(), m, Mutation[payment, int]{
		Operation: "service fee",
		Store:     s,
		Apply:     setFee(9),
		Submit:    func(ctx context.Context) (int, error) { panic("nil map") },
	})

	require.Error(t, err)
	assert.Equal(t, 5, s.Read().Fee)
	assert.Len(t, rec.Notices(), 1)
}

func TestRunCallsRefetchAfterSuccessOnly(t *testing.T) {
	s := store.New("payment", payment{}, testLogger())
	m := New("order-1", nil, testLogger())
	refetches := 0

	mut := Mutation[payment, int]{
		Operation: "service fee",
		Store:     s,
		Apply:     setFee(1),
		Submit:    func(ctx context.Context) (int, error) { return 0, nil },
		Refetch:   func() { refetches++ },
	}
	_, err := Run(context.Background(), m, mut)
	require.NoError(t, err)

	mut.Submit = func(ctx context.Context) (int, error) { return 0, errors.New("down") }
	_, err = Run(context.Background(), m, mut)
	require.Error(t, err)

	assert.Equal(t, 1, refetches)
}

func TestRunAfterCloseTouchesNothing(t *testing.T) {
	s := store.New("payment", payment{Fee: 5}, testLogger())
	alive := atomic.Bool{}
	m := New("order-1", nil, testLogger(), WithLiveness(alive.Load))

	called := false
	_, err := Run(context.Background(), m, Mutation[payment, int]{
		Operation: "service fee",
		Store:     s,
		Apply:     setFee(9),
		Submit: func(ctx context.Context) (int, error) {
			called = true
			return 0, nil
		},
	})

	assert.ErrorIs(t, err, ErrClosed)
	assert.False(t, called)
	assert.Equal(t, 5, s.Read().Fee)
}

func TestRunClosedWhileInFlightLeavesStoreAlone(t *testing.T) {
	s := store.New("payment", payment{Fee: 5}, testLogger())
	alive := atomic.Bool{}
	alive.Store(true)
	rec := NewRecorder(5)
	m := New("order-1", rec, testLogger(), WithLiveness(alive.Load))

	_, err := Run(context.Background(), m, Mutation[payment, int]{
		Operation: "service fee",
		Store:     s,
		Apply:     setFee(9),
		Submit: func(ctx context.Context) (int, error) {
			alive.Store(false)
			return 0, errors.New("down")
		},
	})

	require.Error(t, err)
	assert.Equal(t, 1, s.Outstanding(), "no rollback after close")
	assert.Empty(t, rec.Notices())
}

func TestRecorderKeepsNewest(t *testing.T) {
	rec := NewRecorder(2)
	rec.Notify(Notice{Operation: "a"})
	rec.Notify(Notice{Operation: "b"})
	rec.Notify(Notice{Operation: "c"})

	notices := rec.Notices()
	require.Len(t, notices, 2)
	assert.Equal(t, "b", notices[0].Operation)
	assert.Equal(t, "c", notices[1].Operation)
}

func TestFanoutSkipsNil(t *testing.T) {
	rec := NewRecorder(1)
	count := 0
	Fanout{nil, rec, NotifierFunc(func(Notice) { count++ })}.Notify(Notice{Operation: "x"})

	assert.Len(t, rec.Notices(), 1)
	assert.Equal(t, 1, count)
}
