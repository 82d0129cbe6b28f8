// Package aggregate is the control object behind one open order. It mirrors
// the order's entities, derives its money figures and routes every edit
// through the optimistic mutation protocol.
package aggregate

import (
	"context"
	"errors"
	"fmt"
	"strings"
	"sync"
	"sync/atomic"
	"time"

	"github.com/PolandExportFlow/polandexportflow-git-sub001/internal/dataservice"
	"github.com/PolandExportFlow/polandexportflow-git-sub001/internal/mutator"
	"github.com/PolandExportFlow/polandexportflow-git-sub001/internal/realtime"
	"github.com/PolandExportFlow/polandexportflow-git-sub001/internal/sequencer"
	"github.com/PolandExportFlow/polandexportflow-git-sub001/internal/store"
	"github.com/PolandExportFlow/polandexportflow-git-sub001/pkg/models"
	"github.com/sirupsen/logrus"
	"golang.org/x/sync/errgroup"
)

var (
	ErrOrderNotFound = errors.New("order not found")
	ErrNotLoaded     = errors.New("order aggregate not loaded")
	ErrLoading       = errors.New("order aggregate is still loading")
	ErrAlreadyLoaded = errors.New("order aggregate already loaded")
	ErrPendingRecord = errors.New("record is not saved yet")
	ErrUnknownItem   = errors.New("unknown item")
	ErrNoPayment     = errors.New("order has no payment record")
)

type Option func(*Controller)

// WithNotifier receives failure notices. The default logs them.
func WithNotifier(n mutator.Notifier) Option {
	return func(c *Controller) {
		c.notifier = n
	}
}

// WithThrottleInterval sets the silent refresh window.
func WithThrottleInterval(d time.Duration) Option {
	return func(c *Controller) {
		c.interval = d
	}
}

// WithResources replaces the watched resource names.
func WithResources(resources []string) Option {
	return func(c *Controller) {
		if len(resources) > 0 {
			c.resources = resources
		}
	}
}

func WithClock(now func() time.Time) Option {
	return func(c *Controller) {
		c.now = now
	}
}

// Snapshot is everything the UI renders for one order.
type Snapshot struct {
	OrderID     string               `json:"order_id"`
	Status      models.OrderStatus   `json:"status"`
	Notes       models.Notes         `json:"notes"`
	Payment     models.PaymentState  `json:"payment"`
	Quotes      []models.Quote       `json:"quotes"`
	Items       []models.Item        `json:"items"`
	Attachments []models.Attachment  `json:"attachments"`
	Rates       models.CurrencyRates `json:"rates"`
	Totals      Totals               `json:"totals"`
	Loading     bool                 `json:"loading"`
	Refreshing  bool                 `json:"refreshing"`
	Err         error                `json:"-"`
}

// Controller owns the replicas of one order. Values read from it are shared
// with its stores and must not be modified.
type Controller struct {
	service   dataservice.Service
	notifier  mutator.Notifier
	interval  time.Duration
	resources []string
	now       func() time.Time
	logger    *logrus.Logger

	ctx    context.Context
	cancel context.CancelFunc
	alive  atomic.Bool

	seq     *sequencer.Set
	applyMu sync.Mutex

	status      *store.Store[models.OrderStatus]
	notes       *store.Store[models.Notes]
	payment     *store.Store[models.PaymentState]
	quotes      *store.Store[[]models.Quote]
	items       *store.Store[[]models.Item]
	attachments *store.Store[[]models.Attachment]
	rates       *store.Store[models.CurrencyRates]

	mutex     sync.RWMutex
	orderID   string
	mut       *mutator.Mutator
	throttle  *realtime.Throttle
	loading   bool
	refreshes int
	err       error
	inflight  map[string]int
	listeners []func()
}

// New builds a controller around an injected data service. Call Load before
// anything else.
func New(service dataservice.Service, logger *logrus.Logger, opts ...Option) *Controller {
	ctx, cancel := context.WithCancel(context.Background())
	c := &Controller{
		service:     service,
		interval:    realtime.DefaultInterval,
		resources:   models.DefaultWatchedResources,
		now:         time.Now,
		logger:      logger,
		ctx:         ctx,
		cancel:      cancel,
		seq:         sequencer.NewSet(),
		status:      store.New(string(sequencer.ChannelStatus), models.OrderStatus{}, logger),
		notes:       store.New(string(sequencer.ChannelNotes), models.Notes{}, logger),
		payment:     store.New(string(sequencer.ChannelPayment), models.PaymentState{}, logger),
		quotes:      store.New[[]models.Quote](string(sequencer.ChannelQuotes), nil, logger),
		items:       store.New[[]models.Item](string(sequencer.ChannelItems), nil, logger),
		attachments: store.New[[]models.Attachment](string(sequencer.ChannelAttachments), nil, logger),
		rates:       store.New(string(sequencer.ChannelRates), models.CurrencyRates{}, logger),
		inflight:    make(map[string]int),
	}
	c.alive.Store(true)
	for _, opt := range opts {
		opt(c)
	}
	return c
}

// Load resolves lookup to an order id and fetches everything. A lookup that
// resolves to nothing leaves the controller in its error state with
// ErrOrderNotFound and no data.
func (c *Controller) Load(ctx context.Context, lookup string) error {
	if !c.alive.Load() {
		return mutator.ErrClosed
	}
	c.mutex.Lock()
	if c.orderID != "" || c.loading {
		c.mutex.Unlock()
		return ErrAlreadyLoaded
	}
	c.loading = true
	c.err = nil
	c.mutex.Unlock()
	c.changed()

	orderID, err := c.resolve(ctx, lookup)
	if err == nil {
		c.open(orderID)
		err = c.fetchAll(ctx)
	}

	c.mutex.Lock()
	c.loading = false
	c.err = err
	c.mutex.Unlock()

	fields := logrus.Fields{"lookup": lookup, "order_id": orderID}
	if err != nil {
		c.logger.WithFields(fields).WithError(err).Error("Failed to load order")
	} else {
		c.logger.WithFields(fields).Info("Order loaded")
	}
	c.changed()
	return err
}

func (c *Controller) resolve(ctx context.Context, lookup string) (string, error) {
	lookup = strings.TrimSpace(lookup)
	if lookup == "" {
		return "", fmt.Errorf("%w: empty lookup", ErrOrderNotFound)
	}
	id, err := c.service.ResolveOrderID(ctx, lookup)
	if err != nil {
		if errors.Is(err, dataservice.ErrNotFound) {
			return "", fmt.Errorf("%w: %s", ErrOrderNotFound, lookup)
		}
		return "", fmt.Errorf("failed to resolve order %q: %w", lookup, err)
	}
	if id == "" {
		return "", fmt.Errorf("%w: %s", ErrOrderNotFound, lookup)
	}
	return id, nil
}

func (c *Controller) open(orderID string) {
	c.mutex.Lock()
	defer c.mutex.Unlock()

	c.orderID = orderID
	c.mut = mutator.New(orderID, c.notifier, c.logger,
		mutator.WithLiveness(c.alive.Load),
		mutator.WithChangeHook(c.changed),
	)
	c.throttle = realtime.NewThrottle(c.interval, c.resources, c.silentRefresh, c.logger,
		realtime.WithOrderFilter(orderID),
		realtime.WithClock(c.now),
	)
}

// Refresh re-issues every fetch and returns when the slowest one completes.
// It is safe while mutations are in flight; superseded results are dropped.
func (c *Controller) Refresh(ctx context.Context) error {
	if _, _, err := c.session(); err != nil {
		return err
	}

	c.mutex.Lock()
	c.refreshes++
	c.mutex.Unlock()
	c.changed()

	err := c.fetchAll(ctx)

	c.mutex.Lock()
	c.refreshes--
	if err == nil {
		c.err = nil
	}
	c.mutex.Unlock()

	if err != nil {
		c.logger.WithField("order_id", c.OrderID()).WithError(err).Warn("Order refresh failed")
	}
	c.changed()
	return err
}

func (c *Controller) silentRefresh() {
	if !c.alive.Load() {
		return
	}
	_ = c.Refresh(c.ctx)
}

func (c *Controller) fetchAll(ctx context.Context) error {
	orderID := c.OrderID()

	var g errgroup.Group
	g.Go(func() error { return c.fetchAggregate(ctx, orderID) })
	g.Go(func() error { return c.fetchPayment(ctx, orderID) })
	g.Go(func() error { return c.fetchQuotes(ctx, orderID) })
	g.Go(func() error {
		if err := c.fetchRates(ctx); err != nil {
			c.logger.WithError(err).Warn("Failed to fetch currency rates, amounts shown unconverted")
		}
		return nil
	})
	return g.Wait()
}

// sink applies the part of a fetch result that feeds the store of ch.
type sink[R any] struct {
	ch    sequencer.Channel
	apply func(R)
}

// fetch applies get's result to every sink whose channel saw no newer fetch
// or confirmed write meanwhile. Stale parts are dropped, and so is an error
// no sink is still waiting for.
func fetch[R any](ctx context.Context, c *Controller, name string, get func(context.Context) (R, error), sinks ...sink[R]) error {
	seqs := make([]uint64, len(sinks))
	for i, s := range sinks {
		seqs[i] = c.seq.Begin(s.ch)
	}
	result, err := get(ctx)

	if !c.alive.Load() {
		return nil
	}

	var current []sink[R]
	var stale []string
	c.applyMu.Lock()
	for i, s := range sinks {
		if c.seq.IsCurrent(s.ch, seqs[i]) {
			current = append(current, s)
		} else {
			stale = append(stale, string(s.ch))
		}
	}
	if len(current) > 0 && err == nil {
		for _, s := range current {
			s.apply(result)
		}
	}
	c.applyMu.Unlock()

	if len(stale) > 0 {
		c.logger.WithFields(logrus.Fields{
			"order_id": c.OrderID(),
			"fetch":    name,
			"channels": strings.Join(stale, ","),
		}).Debug("Discarding superseded fetch result")
	}
	if len(current) == 0 {
		return nil
	}
	if err != nil {
		return fmt.Errorf("failed to fetch %s: %w", name, err)
	}
	c.changed()
	return nil
}

// invalidate makes every fetch on ch that is still in flight stale.
func (c *Controller) invalidate(ch sequencer.Channel) {
	c.applyMu.Lock()
	defer c.applyMu.Unlock()
	c.seq.Begin(ch)
}

func (c *Controller) fetchAggregate(ctx context.Context, orderID string) error {
	get := func(ctx context.Context) (*models.Aggregate, error) {
		agg, err := c.service.GetOrderAggregate(ctx, orderID)
		if errors.Is(err, dataservice.ErrNotFound) || (err == nil && agg == nil) {
			return nil, fmt.Errorf("%w: %s", ErrOrderNotFound, orderID)
		}
		return agg, err
	}
	return fetch(ctx, c, "aggregate", get,
		sink[*models.Aggregate]{sequencer.ChannelStatus, func(agg *models.Aggregate) { c.status.Commit(agg.Status) }},
		sink[*models.Aggregate]{sequencer.ChannelNotes, func(agg *models.Aggregate) { c.notes.Commit(agg.Notes()) }},
		sink[*models.Aggregate]{sequencer.ChannelItems, func(agg *models.Aggregate) { c.items.Commit(agg.Items) }},
		sink[*models.Aggregate]{sequencer.ChannelAttachments, func(agg *models.Aggregate) { c.attachments.Commit(agg.Attachments) }},
	)
}

func (c *Controller) fetchPayment(ctx context.Context, orderID string) error {
	get := func(ctx context.Context) (*models.PaymentState, error) {
		return c.service.GetPaymentData(ctx, orderID)
	}
	return fetch(ctx, c, "payment", get, sink[*models.PaymentState]{sequencer.ChannelPayment, func(state *models.PaymentState) {
		if state == nil {
			state = &models.PaymentState{}
		}
		c.payment.Commit(*state)
	}})
}

func (c *Controller) fetchQuotes(ctx context.Context, orderID string) error {
	get := func(ctx context.Context) ([]models.Quote, error) {
		return c.service.ListQuotes(ctx, orderID)
	}
	return fetch(ctx, c, "quotes", get, sink[[]models.Quote]{sequencer.ChannelQuotes, c.quotes.Commit})
}

func (c *Controller) fetchRates(ctx context.Context) error {
	return fetch(ctx, c, "rates", c.service.GetCurrencyRates,
		sink[models.CurrencyRates]{sequencer.ChannelRates, c.rates.Commit})
}

func (c *Controller) refetchPayment() {
	if err := c.fetchPayment(c.ctx, c.OrderID()); err != nil && c.ctx.Err() == nil {
		c.logger.WithField("order_id", c.OrderID()).WithError(err).Warn("Failed to refetch payment after write")
	}
}

func (c *Controller) refetchQuotes() {
	if err := c.fetchQuotes(c.ctx, c.OrderID()); err != nil && c.ctx.Err() == nil {
		c.logger.WithField("order_id", c.OrderID()).WithError(err).Warn("Failed to refetch quotes after write")
	}
}

// Listen feeds change notifications from src into the refresh throttle until
// Close.
func (c *Controller) Listen(src realtime.Source) error {
	c.mutex.RLock()
	t := c.throttle
	c.mutex.RUnlock()
	if t == nil {
		return ErrNotLoaded
	}
	go realtime.Listen(c.ctx, src, t, c.logger)
	return nil
}

// Notify hands one change notification to the refresh throttle and reports
// whether it triggered a refresh.
func (c *Controller) Notify(change models.Change) bool {
	c.mutex.RLock()
	t := c.throttle
	c.mutex.RUnlock()
	if t == nil || !c.alive.Load() {
		return false
	}
	return t.Notify(change)
}

// Close stops listeners and drops the results of every call still in flight.
func (c *Controller) Close() {
	if !c.alive.CompareAndSwap(true, false) {
		return
	}
	c.cancel()

	c.mutex.Lock()
	c.listeners = nil
	orderID := c.orderID
	c.mutex.Unlock()

	c.logger.WithField("order_id", orderID).Debug("Order aggregate closed")
}

// OnChange registers fn to run after every visible state change.
func (c *Controller) OnChange(fn func()) {
	c.mutex.Lock()
	defer c.mutex.Unlock()
	c.listeners = append(c.listeners, fn)
}

func (c *Controller) changed() {
	if !c.alive.Load() {
		return
	}
	c.mutex.RLock()
	listeners := append([]func(){}, c.listeners...)
	c.mutex.RUnlock()

	for _, fn := range listeners {
		fn()
	}
}

func (c *Controller) session() (string, *mutator.Mutator, error) {
	if !c.alive.Load() {
		return "", nil, mutator.ErrClosed
	}
	c.mutex.RLock()
	defer c.mutex.RUnlock()
	if c.loading {
		return "", nil, ErrLoading
	}
	if c.mut == nil {
		return "", nil, ErrNotLoaded
	}
	return c.orderID, c.mut, nil
}

func (c *Controller) track(field string, delta int) {
	c.mutex.Lock()
	defer c.mutex.Unlock()
	c.inflight[field] += delta
	if c.inflight[field] <= 0 {
		delete(c.inflight, field)
	}
}

// Busy reports whether a write to field is in flight. The UI keeps the
// control for field disabled meanwhile.
func (c *Controller) Busy(field string) bool {
	c.mutex.RLock()
	defer c.mutex.RUnlock()
	return c.inflight[field] > 0
}

func (c *Controller) OrderID() string {
	c.mutex.RLock()
	defer c.mutex.RUnlock()
	return c.orderID
}

func (c *Controller) Loading() bool {
	c.mutex.RLock()
	defer c.mutex.RUnlock()
	return c.loading
}

func (c *Controller) Refreshing() bool {
	c.mutex.RLock()
	defer c.mutex.RUnlock()
	return c.refreshes > 0
}

// Err is the load failure, if any.
func (c *Controller) Err() error {
	c.mutex.RLock()
	defer c.mutex.RUnlock()
	return c.err
}

func (c *Controller) Status() models.OrderStatus       { return c.status.Read() }
func (c *Controller) Notes() models.Notes              { return c.notes.Read() }
func (c *Controller) Payment() models.PaymentState     { return c.payment.Read() }
func (c *Controller) Quotes() []models.Quote           { return c.quotes.Read() }
func (c *Controller) Items() []models.Item             { return c.items.Read() }
func (c *Controller) Attachments() []models.Attachment { return c.attachments.Read() }
func (c *Controller) Rates() models.CurrencyRates      { return c.rates.Read() }

func (c *Controller) Totals() Totals {
	return ComputeTotals(c.payment.Read(), c.rates.Read())
}

func (c *Controller) Snapshot() Snapshot {
	c.mutex.RLock()
	s := Snapshot{
		OrderID:    c.orderID,
		Loading:    c.loading,
		Refreshing: c.refreshes > 0,
		Err:        c.err,
	}
	c.mutex.RUnlock()

	// A failed load shows no partial data.
	if s.Err != nil {
		return s
	}
	s.Status = c.status.Read()
	s.Notes = c.notes.Read()
	s.Payment = c.payment.Read()
	s.Quotes = c.quotes.Read()
	s.Items = c.items.Read()
	s.Attachments = c.attachments.Read()
	s.Rates = c.rates.Read()
	s.Totals = ComputeTotals(s.Payment, s.Rates)
	return s
}
