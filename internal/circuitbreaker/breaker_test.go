package circuitbreaker

import (
	"context"
	"errors"
	"sync"
	"sync/atomic"
	"testing"
	"time"

	"github.com/sirupsen/logrus"
)

var errBoom = errors.New("boom")
var errRejected = errors.New("rejected by validation")

func testLogger() *logrus.Logger {
	logger := logrus.New()
	logger.SetLevel(logrus.ErrorLevel)
	return logger
}

func fail(context.Context) error    { return errBoom }
func succeed(context.Context) error { return nil }

func TestStateTransitions(t *testing.T) {
	cb := New(Config{
		Name:        "payment",
		MaxFailures: 2,
		Timeout:     50 * time.Millisecond,
		MaxRequests: 1,
	}, testLogger())
	ctx := context.Background()

	if cb.State() != StateClosed {
		t.Fatalf("Expected closed, got %s", cb.State())
	}

	cb.Execute(ctx, fail)
	if cb.State() != StateClosed {
		t.Errorf("Expected closed after one failure, got %s", cb.State())
	}
	cb.Execute(ctx, fail)
	if cb.State() != StateOpen {
		t.Fatalf("Expected open after two failures, got %s", cb.State())
	}

	err := cb.Execute(ctx, succeed)
	if !errors.Is(err, ErrCircuitBreakerOpen) {
		t.Errorf("Expected ErrCircuitBreakerOpen, got %v", err)
	}

	time.Sleep(60 * time.Millisecond)

	if err := cb.Execute(ctx, succeed); err != nil {
		t.Fatalf("Expected half-open probe to pass, got %v", err)
	}
	if cb.State() != StateClosed {
		t.Errorf("Expected closed after successful probe, got %s", cb.State())
	}
}

func TestHalfOpenFailureReopens(t *testing.T) {
	cb := New(Config{Name: "quotes", MaxFailures: 1, Timeout: 20 * time.Millisecond}, testLogger())
	ctx := context.Background()

	cb.Execute(ctx, fail)
	time.Sleep(30 * time.Millisecond)

	if err := cb.Execute(ctx, fail); !errors.Is(err, errBoom) {
		t.Fatalf("Expected probe error, got %v", err)
	}
	if cb.State() != StateOpen {
		t.Errorf("Expected open after failed probe, got %s", cb.State())
	}
}

func TestHalfOpenLimitsProbes(t *testing.T) {
	cb := New(Config{Name: "rates", MaxFailures: 1, Timeout: 20 * time.Millisecond, MaxRequests: 1}, testLogger())
	ctx := context.Background()

	cb.Execute(ctx, fail)
	time.Sleep(30 * time.Millisecond)

	release := make(chan struct{})
	started := make(chan struct{})
	go cb.Execute(ctx, func(context.Context) error {
		close(started)
		<-release
		return nil
	})
	<-started

	if err := cb.Execute(ctx, succeed); !errors.Is(err, ErrCircuitBreakerOpen) {
		t.Errorf("Expected second probe to be rejected, got %v", err)
	}
	close(release)
}

func TestClassifierIgnoresNonFailures(t *testing.T) {
	cb := New(Config{
		Name:        "mutation",
		MaxFailures: 1,
		Timeout:     time.Minute,
		IsFailure:   func(err error) bool { return !errors.Is(err, errRejected) },
	}, testLogger())
	ctx := context.Background()

	for i := 0; i < 5; i++ {
		if err := cb.Execute(ctx, func(context.Context) error { return errRejected }); !errors.Is(err, errRejected) {
			t.Fatalf("Expected the call's own error back, got %v", err)
		}
	}
	if cb.State() != StateClosed {
		t.Errorf("Expected closed, validation errors are not outages; got %s", cb.State())
	}

	snap := cb.Snapshot()
	if snap.TotalFailures != 0 || snap.TotalSuccesses != 5 {
		t.Errorf("Expected 0 failures and 5 successes, got %d and %d", snap.TotalFailures, snap.TotalSuccesses)
	}
}

func TestCancelledContextIsNotAFailure(t *testing.T) {
	cb := New(Config{Name: "aggregate", MaxFailures: 1, Timeout: time.Minute}, testLogger())

	ctx, cancel := context.WithCancel(context.Background())
	cancel()
	if err := cb.Execute(ctx, succeed); !errors.Is(err, context.Canceled) {
		t.Errorf("Expected context.Canceled, got %v", err)
	}

	err := cb.Execute(context.Background(), func(context.Context) error { return context.Canceled })
	if !errors.Is(err, context.Canceled) {
		t.Errorf("Expected context.Canceled, got %v", err)
	}
	if cb.State() != StateClosed {
		t.Errorf("Expected closed, got %s", cb.State())
	}
}

func TestSnapshotCountsAreConsistent(t *testing.T) {
	cb := New(Config{Name: "payment", MaxFailures: 1000, Timeout: time.Minute}, testLogger())
	ctx := context.Background()

	var wg sync.WaitGroup
	var n atomic.Int64
	for i := 0; i < 50; i++ {
		wg.Add(1)
		go func() {
			defer wg.Done()
			for j := 0; j < 10; j++ {
				if n.Add(1)%3 == 0 {
					cb.Execute(ctx, fail)
				} else {
					cb.Execute(ctx, succeed)
				}
			}
		}()
	}
	wg.Wait()

	snap := cb.Snapshot()
	if snap.TotalRequests != 500 {
		t.Errorf("Expected 500 requests, got %d", snap.TotalRequests)
	}
	if snap.TotalRequests != snap.TotalFailures+snap.TotalSuccesses {
		t.Errorf("Inconsistent snapshot: requests=%d failures=%d successes=%d",
			snap.TotalRequests, snap.TotalFailures, snap.TotalSuccesses)
	}
}

func TestRejectedRequestsAreCountedSeparately(t *testing.T) {
	cb := New(Config{Name: "quotes", MaxFailures: 1, Timeout: time.Minute}, testLogger())
	ctx := context.Background()

	cb.Execute(ctx, fail)
	cb.Execute(ctx, succeed)
	cb.Execute(ctx, succeed)

	snap := cb.Snapshot()
	if snap.TotalRequests != 1 {
		t.Errorf("Expected 1 attempted request, got %d", snap.TotalRequests)
	}
	if snap.TotalRejected != 2 {
		t.Errorf("Expected 2 rejected requests, got %d", snap.TotalRejected)
	}
}

func TestStateChangeCallback(t *testing.T) {
	changes := make(chan State, 4)
	cb := New(Config{
		Name:          "rates",
		MaxFailures:   1,
		Timeout:       time.Minute,
		OnStateChange: func(name string, from, to State) { changes <- to },
	}, testLogger())

	cb.Execute(context.Background(), fail)

	select {
	case to := <-changes:
		if to != StateOpen {
			t.Errorf("Expected transition to open, got %s", to)
		}
	case <-time.After(time.Second):
		t.Fatal("Expected state change callback")
	}
}

func TestStateChangeCallbackPanic(t *testing.T) {
	cb := New(Config{
		Name:          "rates",
		MaxFailures:   1,
		Timeout:       time.Minute,
		OnStateChange: func(string, State, State) { panic("callback") },
	}, testLogger())

	cb.Execute(context.Background(), fail)
	time.Sleep(20 * time.Millisecond)

	if cb.State() != StateOpen {
		t.Errorf("Expected open, got %s", cb.State())
	}
}

func TestReset(t *testing.T) {
	cb := New(Config{Name: "payment", MaxFailures: 1, Timeout: time.Minute}, testLogger())
	cb.Execute(context.Background(), fail)

	cb.Reset()
	if cb.State() != StateClosed {
		t.Errorf("Expected closed after reset, got %s", cb.State())
	}
	if err := cb.Execute(context.Background(), succeed); err != nil {
		t.Errorf("Expected success after reset, got %v", err)
	}
}

func TestConfigDefaults(t *testing.T) {
	cb := New(Config{MaxFailures: -1, Timeout: 0, MaxRequests: 500}, testLogger())

	if cb.name != "unnamed" {
		t.Errorf("Expected unnamed, got %s", cb.name)
	}
	if cb.maxFailures != 5 {
		t.Errorf("Expected default MaxFailures 5, got %d", cb.maxFailures)
	}
	if cb.timeout != 30*time.Second {
		t.Errorf("Expected default Timeout 30s, got %v", cb.timeout)
	}
	if cb.maxRequests != 100 {
		t.Errorf("Expected MaxRequests capped at 100, got %d", cb.maxRequests)
	}
}
