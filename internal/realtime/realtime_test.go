package realtime

import (
	"context"
	"io"
	"net/http"
	"net/http/httptest"
	"strings"
	"sync"
	"sync/atomic"
	"testing"
	"time"

	feed "github.com/PolandExportFlow/polandexportflow-git-sub001/internal/websocket"
	"github.com/PolandExportFlow/polandexportflow-git-sub001/pkg/models"
	"github.com/sirupsen/logrus"
	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
)

func testLogger() *logrus.Logger {
	logger := logrus.New()
	logger.SetOutput(io.Discard)
	return logger
}

type manualClock struct {
	mu  sync.Mutex
	now time.Time
}

func (c *manualClock) Now() time.Time {
	c.mu.Lock()
	defer c.mu.Unlock()
	return c.now
}

func (c *manualClock) Advance(d time.Duration) {
	c.mu.Lock()
	defer c.mu.Unlock()
	c.now = c.now.Add(d)
}

func countingRefresh() (func(), *atomic.Int32) {
	var n atomic.Int32
	return func() { n.Add(1) }, &n
}

func TestThrottleCoalescesWithinWindow(t *testing.T) {
	clock := &manualClock{now: time.Date(2026, 1, 1, 12, 0, 0, 0, time.UTC)}
	refresh, count := countingRefresh()
	th := NewThrottle(2*time.Second, []string{models.ResourcePayments}, refresh, testLogger(), WithClock(clock.Now))

	assert.True(t, th.Notify(models.Change{Resource: models.ResourcePayments}))
	clock.Advance(500 * time.Millisecond)
	assert.False(t, th.Notify(models.Change{Resource: models.ResourcePayments}))
	clock.Advance(1499 * time.Millisecond)
	assert.False(t, th.Notify(models.Change{Resource: models.ResourcePayments}))
	clock.Advance(time.Millisecond)
	assert.False(t, th.Notify(models.Change{Resource: models.ResourcePayments}), "exactly one window later")
	clock.Advance(time.Millisecond)
	assert.True(t, th.Notify(models.Change{Resource: models.ResourcePayments}))

	require.Eventually(t, func() bool { return count.Load() == 2 }, time.Second, 5*time.Millisecond)
	assert.Equal(t, int64(3), th.Dropped())
}

func TestThrottleIgnoresUnwatchedResources(t *testing.T) {
	refresh, count := countingRefresh()
	th := NewThrottle(time.Second, []string{models.ResourceQuotes}, refresh, testLogger())

	assert.False(t, th.Notify(models.Change{Resource: "profiles"}))
	time.Sleep(20 * time.Millisecond)
	assert.Zero(t, count.Load())
	assert.Zero(t, th.Dropped())
}

func TestThrottleOrderFilter(t *testing.T) {
	refresh, _ := countingRefresh()
	th := NewThrottle(time.Second, []string{models.ResourceItems}, refresh, testLogger(), WithOrderFilter("order-1"))

	assert.False(t, th.Notify(models.Change{Resource: models.ResourceItems, OrderID: "order-2"}))
	assert.True(t, th.Notify(models.Change{Resource: models.ResourceItems, OrderID: "order-1"}))
}

func TestThrottleDefaultsInterval(t *testing.T) {
	th := NewThrottle(0, nil, func() {}, testLogger())
	assert.Equal(t, DefaultInterval, th.interval)
}

func TestFeedDeliversWatchedChanges(t *testing.T) {
	f := NewFeed(testLogger())
	ctx, cancel := context.WithCancel(context.Background())
	defer cancel()

	got := make(chan models.Change, 4)
	go f.Run(ctx, []string{models.ResourceQuotes}, func(c models.Change) { got <- c })

	require.Eventually(t, func() bool {
		f.mutex.RLock()
		defer f.mutex.RUnlock()
		return len(f.subscribers) == 1
	}, time.Second, 5*time.Millisecond)

	f.Publish(models.Change{Resource: models.ResourceItems})
	f.Publish(models.Change{Resource: models.ResourceQuotes, OrderID: "order-1"})

	select {
	case c := <-got:
		assert.Equal(t, models.ResourceQuotes, c.Resource)
		assert.Equal(t, "order-1", c.OrderID)
	case <-time.After(time.Second):
		t.Fatal("expected change")
	}
}

func TestListenFeedsThrottle(t *testing.T) {
	f := NewFeed(testLogger())
	refreshed := make(chan struct{}, 1)
	th := NewThrottle(time.Minute, []string{models.ResourcePayments}, func() { refreshed <- struct{}{} }, testLogger())

	ctx, cancel := context.WithCancel(context.Background())
	done := make(chan struct{})
	go func() {
		Listen(ctx, f, th, testLogger())
		close(done)
	}()

	require.Eventually(t, func() bool {
		f.Publish(models.Change{Resource: models.ResourcePayments})
		select {
		case <-refreshed:
			return true
		default:
			return false
		}
	}, time.Second, 10*time.Millisecond)

	cancel()
	select {
	case <-done:
	case <-time.After(time.Second):
		t.Fatal("Listen did not return after cancel")
	}
}

type endingSource struct {
	runs atomic.Int32
}

func (s *endingSource) Run(context.Context, []string, func(models.Change)) error {
	s.runs.Add(1)
	return nil
}

func TestListenBacksOffWhenSourceEnds(t *testing.T) {
	src := &endingSource{}
	th := NewThrottle(time.Minute, []string{models.ResourcePayments}, func() {}, testLogger())

	ctx, cancel := context.WithCancel(context.Background())
	done := make(chan struct{})
	go func() {
		Listen(ctx, src, th, testLogger())
		close(done)
	}()

	require.Eventually(t, func() bool { return src.runs.Load() >= 1 }, time.Second, 5*time.Millisecond)
	time.Sleep(100 * time.Millisecond)
	assert.Equal(t, int32(1), src.runs.Load())

	cancel()
	select {
	case <-done:
	case <-time.After(time.Second):
		t.Fatal("Listen did not return after cancel")
	}
}

func TestPollSourceSignalsEveryResource(t *testing.T) {
	ctx, cancel := context.WithCancel(context.Background())
	defer cancel()

	var mu sync.Mutex
	seen := map[string]int{}
	go PollSource{Interval: 10 * time.Millisecond}.Run(ctx, []string{"a", "b"}, func(c models.Change) {
		mu.Lock()
		seen[c.Resource]++
		mu.Unlock()
	})

	require.Eventually(t, func() bool {
		mu.Lock()
		defer mu.Unlock()
		return seen["a"] > 0 && seen["b"] > 0
	}, time.Second, 5*time.Millisecond)
}

func TestPollSourceRejectsZeroInterval(t *testing.T) {
	err := PollSource{}.Run(context.Background(), nil, func(models.Change) {})
	assert.Error(t, err)
}

func TestWebSocketSourceReceivesHubChanges(t *testing.T) {
	hub := feed.NewHub("test", testLogger())
	ctx, cancel := context.WithCancel(context.Background())
	defer cancel()
	go hub.Run(ctx)

	srv := httptest.NewServer(http.HandlerFunc(hub.HandleWebSocket))
	defer srv.Close()

	src := &WebSocketSource{
		URL:    "ws" + strings.TrimPrefix(srv.URL, "http"),
		Logger: testLogger(),
	}

	got := make(chan models.Change, 8)
	go src.Run(ctx, []string{models.ResourceTransactions}, func(c models.Change) { got <- c })

	require.Eventually(t, func() bool { return hub.ClientCount() == 1 }, 2*time.Second, 10*time.Millisecond)

	hub.Publish(models.Change{Resource: models.ResourceOrders})
	hub.Publish(models.Change{Resource: models.ResourceTransactions, OrderID: "order-9"})

	select {
	case c := <-got:
		assert.Equal(t, models.ResourceTransactions, c.Resource)
		assert.Equal(t, "order-9", c.OrderID)
	case <-time.After(2 * time.Second):
		t.Fatal("expected change from websocket feed")
	}
}

func TestRedisDecodePayload(t *testing.T) {
	s := &RedisSource{Logger: testLogger(), Prefix: "orderdesk"}

	assert.Equal(t, "orderdesk:order_quotes", s.channel(models.ResourceQuotes))

	c := s.decode(models.ResourceQuotes, `{"order_id":"order-3"}`)
	assert.Equal(t, models.ResourceQuotes, c.Resource)
	assert.Equal(t, "order-3", c.OrderID)

	c = s.decode(models.ResourceQuotes, "INSERT")
	assert.Equal(t, models.ResourceQuotes, c.Resource)
	assert.Empty(t, c.OrderID)
}
