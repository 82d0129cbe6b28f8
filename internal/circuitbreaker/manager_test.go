package circuitbreaker

import (
	"context"
	"sync"
	"testing"
	"time"
)

func TestManagerFor(t *testing.T) {
	m := NewManager(Config{MaxFailures: 1, Timeout: time.Minute}, testLogger())

	a := m.For("payment")
	if m.For("payment") != a {
		t.Error("Expected the same breaker for the same name")
	}
	if a.Name() != "payment" {
		t.Errorf("Expected name payment, got %s", a.Name())
	}
	if m.Get("quotes") != nil {
		t.Error("Expected no breaker before first use")
	}

	a.Execute(context.Background(), fail)
	if m.For("quotes").State() != StateClosed {
		t.Error("Expected breakers to be independent")
	}

	snaps := m.Snapshots()
	if len(snaps) != 2 || snaps[0].Name != "payment" || snaps[1].Name != "quotes" {
		t.Fatalf("Expected sorted snapshots for payment and quotes, got %+v", snaps)
	}
	if snaps[0].State != "open" {
		t.Errorf("Expected payment open, got %s", snaps[0].State)
	}

	if !m.Reset("payment") {
		t.Error("Expected reset to find payment")
	}
	if m.Reset("missing") {
		t.Error("Expected reset of unknown breaker to report false")
	}
	if a.State() != StateClosed {
		t.Errorf("Expected closed after reset, got %s", a.State())
	}
}

func TestManagerConcurrentFor(t *testing.T) {
	m := NewManager(Config{}, testLogger())

	var wg sync.WaitGroup
	got := make([]*CircuitBreaker, 50)
	for i := range got {
		wg.Add(1)
		go func(i int) {
			defer wg.Done()
			got[i] = m.For("aggregate")
		}(i)
	}
	wg.Wait()

	for i := range got {
		if got[i] != got[0] {
			t.Fatal("Expected a single breaker instance")
		}
	}

	m.ResetAll()
	if len(m.Snapshots()) != 1 {
		t.Errorf("Expected one breaker, got %d", len(m.Snapshots()))
	}
}
