// Package memory is an in-process order data service. It backs the mock
// server and the aggregate tests, and publishes a change for every write.
package memory

import (
	"context"
	"fmt"
	"strings"
	"sync"
	"time"

	"github.com/PolandExportFlow/polandexportflow-git-sub001/internal/dataservice"
	"github.com/PolandExportFlow/polandexportflow-git-sub001/pkg/models"
	"github.com/google/uuid"
	"github.com/shopspring/decimal"
	"github.com/sirupsen/logrus"
)

// Publisher receives a change for every committed write.
type Publisher interface {
	Publish(change models.Change)
}

// Hook runs before every operation. A non-nil error fails the operation
// without touching state; a hook may also block to hold a call in flight.
type Hook func(ctx context.Context, op string) error

type order struct {
	status       models.OrderStatus
	notes        models.Notes
	attachments  []models.Attachment
	items        []models.Item
	payment      *models.Payment
	transactions []models.Transaction
	quotes       []models.Quote
}

type Service struct {
	mutex     sync.RWMutex
	orders    map[string]*order
	itemOrder map[string]string
	quoteOf   map[string]string
	paymentOf map[string]string
	rates     models.CurrencyRates

	hookMutex sync.RWMutex
	hook      Hook

	publishers []Publisher
	now        func() time.Time
	logger     *logrus.Logger
}

type Option func(*Service)

func WithPublisher(p Publisher) Option {
	return func(s *Service) { s.publishers = append(s.publishers, p) }
}

func WithClock(now func() time.Time) Option {
	return func(s *Service) { s.now = now }
}

func New(logger *logrus.Logger, opts ...Option) *Service {
	s := &Service{
		orders:    make(map[string]*order),
		itemOrder: make(map[string]string),
		quoteOf:   make(map[string]string),
		paymentOf: make(map[string]string),
		rates:     models.CurrencyRates{},
		now:       time.Now,
		logger:    logger,
	}
	for _, opt := range opts {
		opt(s)
	}
	return s
}

// SetHook replaces the pre-operation hook. Nil removes it.
func (s *Service) SetHook(h Hook) {
	s.hookMutex.Lock()
	defer s.hookMutex.Unlock()
	s.hook = h
}

func (s *Service) before(ctx context.Context, op string) error {
	s.hookMutex.RLock()
	h := s.hook
	s.hookMutex.RUnlock()
	if h != nil {
		if err := h(ctx, op); err != nil {
			return err
		}
	}
	return ctx.Err()
}

func (s *Service) publish(orderID string, resources ...string) {
	at := s.now()
	for _, r := range resources {
		s.logger.WithFields(logrus.Fields{
			"order_id": orderID,
			"resource": r,
		}).Debug("Publishing change")
		change := models.Change{Resource: r, OrderID: orderID, At: at}
		for _, p := range s.publishers {
			p.Publish(change)
		}
	}
}

func validation(format string, args ...interface{}) error {
	return fmt.Errorf("%w: %s", dataservice.ErrValidation, fmt.Sprintf(format, args...))
}

func notFound(kind, id string) error {
	return fmt.Errorf("%s %s: %w", kind, id, dataservice.ErrNotFound)
}

// Seed stores a whole order. Missing ids are generated; the order id is
// returned.
func (s *Service) Seed(agg models.Aggregate, quotes []models.Quote) string {
	s.mutex.Lock()
	defer s.mutex.Unlock()

	now := s.now()
	st := agg.Status
	if st.ID == "" {
		st.ID = uuid.New().String()
	}
	if st.Number == "" {
		st.Number = fmt.Sprintf("PEF-%05d", len(s.orders)+1)
	}
	if st.Status == "" {
		st.Status = models.StatusCreated
	}
	if st.CreatedAt.IsZero() {
		st.CreatedAt = now
	}
	st.UpdatedAt = now

	o := &order{
		status: st,
		notes:  agg.Notes(),
	}
	for _, a := range agg.Attachments {
		if a.ID == "" {
			a.ID = uuid.New().String()
		}
		a.OrderID = st.ID
		a.State = models.AttachmentStored
		o.attachments = append(o.attachments, a)
	}
	for _, it := range agg.Items {
		if it.ID == "" {
			it.ID = uuid.New().String()
		}
		it.OrderID = st.ID
		it.Images = cloneImages(it.Images)
		o.items = append(o.items, it)
		s.itemOrder[it.ID] = st.ID
	}
	if agg.Payment != nil {
		p := *agg.Payment
		if p.ID == "" {
			p.ID = uuid.New().String()
		}
		p.OrderID = st.ID
		if p.Status == "" {
			p.Status = models.PaymentUnpaid
		}
		o.payment = &p
		s.paymentOf[p.ID] = st.ID
		for _, tx := range agg.Transactions {
			if tx.ID == "" {
				tx.ID = uuid.New().String()
			}
			tx.PaymentID = p.ID
			o.transactions = append(o.transactions, tx)
		}
	}
	for _, q := range quotes {
		if q.ID == "" {
			q.ID = uuid.New().String()
		}
		q.OrderID = st.ID
		o.quotes = append(o.quotes, q)
		s.quoteOf[q.ID] = st.ID
	}

	s.orders[st.ID] = o
	return st.ID
}

func (s *Service) SetRates(rates models.CurrencyRates) {
	s.mutex.Lock()
	defer s.mutex.Unlock()
	s.rates = models.CurrencyRates{}
	for k, v := range rates {
		s.rates[k] = v
	}
}

// AcceptQuote marks one quote accepted and every other quote of the order
// proposed.
func (s *Service) AcceptQuote(quoteID string) error {
	s.mutex.Lock()
	orderID, ok := s.quoteOf[quoteID]
	if !ok {
		s.mutex.Unlock()
		return notFound("quote", quoteID)
	}
	o := s.orders[orderID]
	for i := range o.quotes {
		if o.quotes[i].ID == quoteID {
			o.quotes[i].Status = models.QuoteAccepted
		} else {
			o.quotes[i].Status = models.QuoteProposed
		}
	}
	s.mutex.Unlock()
	s.publish(orderID, models.ResourceQuotes)
	return nil
}

func (s *Service) lookup(orderID string) (*order, error) {
	o, ok := s.orders[orderID]
	if !ok {
		return nil, notFound("order", orderID)
	}
	return o, nil
}

func (s *Service) ResolveOrderID(ctx context.Context, lookup string) (string, error) {
	if err := s.before(ctx, "resolve_order_id"); err != nil {
		return "", err
	}
	s.mutex.RLock()
	defer s.mutex.RUnlock()

	lookup = strings.TrimSpace(lookup)
	if _, ok := s.orders[lookup]; ok {
		return lookup, nil
	}
	for id, o := range s.orders {
		if strings.EqualFold(o.status.Number, lookup) {
			return id, nil
		}
	}
	return "", nil
}

func (s *Service) GetOrderAggregate(ctx context.Context, orderID string) (*models.Aggregate, error) {
	if err := s.before(ctx, "get_order_aggregate"); err != nil {
		return nil, err
	}
	s.mutex.RLock()
	defer s.mutex.RUnlock()

	o, err := s.lookup(orderID)
	if err != nil {
		return nil, err
	}
	agg := &models.Aggregate{
		Status:       o.status,
		Attachments:  append([]models.Attachment{}, o.attachments...),
		Items:        cloneItems(o.items),
		OrderNote:    o.notes.OrderNote,
		AdminNote:    o.notes.AdminNote,
		Transactions: append([]models.Transaction{}, o.transactions...),
	}
	if o.payment != nil {
		p := *o.payment
		agg.Payment = &p
	}
	return agg, nil
}

func (s *Service) UpdateOrderStatus(ctx context.Context, orderID string, update models.StatusUpdate) (*models.OrderStatus, error) {
	if err := s.before(ctx, "update_order_status"); err != nil {
		return nil, err
	}
	if update.Status != nil && !update.Status.IsValid() {
		return nil, validation("unknown order status %q", *update.Status)
	}
	if update.Source != nil && !update.Source.IsValid() {
		return nil, validation("unknown service type %q", *update.Source)
	}

	s.mutex.Lock()
	o, err := s.lookup(orderID)
	if err != nil {
		s.mutex.Unlock()
		return nil, err
	}
	o.status = update.Apply(o.status)
	o.status.UpdatedAt = s.now()
	out := o.status
	s.mutex.Unlock()

	s.publish(orderID, models.ResourceOrders)
	return &out, nil
}

func (s *Service) UpdateOrderNote(ctx context.Context, orderID, text string) (string, error) {
	return s.updateNote(ctx, "update_order_note", orderID, text, func(n *models.Notes, v string) { n.OrderNote = v })
}

func (s *Service) UpdateAdminNote(ctx context.Context, orderID, text string) (string, error) {
	return s.updateNote(ctx, "update_admin_note", orderID, text, func(n *models.Notes, v string) { n.AdminNote = v })
}

// Notes are stored trimmed; the caller gets the stored text back.
func (s *Service) updateNote(ctx context.Context, op, orderID, text string, set func(*models.Notes, string)) (string, error) {
	if err := s.before(ctx, op); err != nil {
		return "", err
	}
	text = strings.TrimSpace(text)

	s.mutex.Lock()
	o, err := s.lookup(orderID)
	if err != nil {
		s.mutex.Unlock()
		return "", err
	}
	set(&o.notes, text)
	s.mutex.Unlock()

	s.publish(orderID, models.ResourceOrders)
	return text, nil
}

func (s *Service) AddAttachments(ctx context.Context, orderID string, files []models.FileUpload) ([]models.Attachment, error) {
	if err := s.before(ctx, "add_attachments"); err != nil {
		return nil, err
	}
	if err := validateFiles(files); err != nil {
		return nil, err
	}

	s.mutex.Lock()
	o, err := s.lookup(orderID)
	if err != nil {
		s.mutex.Unlock()
		return nil, err
	}
	now := s.now()
	out := make([]models.Attachment, 0, len(files))
	for _, f := range files {
		id := uuid.New().String()
		a := models.Attachment{
			ID:        id,
			OrderID:   orderID,
			Path:      fmt.Sprintf("orders/%s/%s-%s", orderID, id, f.Name),
			Name:      f.Name,
			MimeType:  f.MimeType,
			Size:      fileSize(f),
			State:     models.AttachmentStored,
			CreatedAt: now,
		}
		o.attachments = append(o.attachments, a)
		out = append(out, a)
	}
	s.mutex.Unlock()

	s.publish(orderID, models.ResourceAttachments)
	return out, nil
}

func (s *Service) DeleteAttachment(ctx context.Context, orderID, attachmentID string) error {
	if err := s.before(ctx, "delete_attachment"); err != nil {
		return err
	}

	s.mutex.Lock()
	o, err := s.lookup(orderID)
	if err != nil {
		s.mutex.Unlock()
		return err
	}
	idx := -1
	for i, a := range o.attachments {
		if a.ID == attachmentID {
			idx = i
			break
		}
	}
	if idx < 0 {
		s.mutex.Unlock()
		return notFound("attachment", attachmentID)
	}
	o.attachments = append(o.attachments[:idx:idx], o.attachments[idx+1:]...)
	s.mutex.Unlock()

	s.publish(orderID, models.ResourceAttachments)
	return nil
}

func (s *Service) CreateItem(ctx context.Context, orderID string, item models.Item) (*models.Item, error) {
	if err := s.before(ctx, "create_item"); err != nil {
		return nil, err
	}
	if strings.TrimSpace(item.Name) == "" {
		return nil, validation("item name is required")
	}
	if item.Quantity <= 0 {
		item.Quantity = 1
	}
	if item.Value.IsNegative() {
		return nil, validation("item value must not be negative")
	}

	s.mutex.Lock()
	o, err := s.lookup(orderID)
	if err != nil {
		s.mutex.Unlock()
		return nil, err
	}
	item.ID = uuid.New().String()
	item.OrderID = orderID
	item.CreatedAt = s.now()
	item.Images = nil
	o.items = append(o.items, item)
	s.itemOrder[item.ID] = orderID
	s.mutex.Unlock()

	s.publish(orderID, models.ResourceItems)
	return &item, nil
}

func (s *Service) itemIndex(itemID string) (*order, int, error) {
	orderID, ok := s.itemOrder[itemID]
	if !ok {
		return nil, -1, notFound("item", itemID)
	}
	o := s.orders[orderID]
	for i, it := range o.items {
		if it.ID == itemID {
			return o, i, nil
		}
	}
	return nil, -1, notFound("item", itemID)
}

func (s *Service) UpdateItem(ctx context.Context, itemID string, patch models.ItemPatch) (*models.Item, error) {
	if err := s.before(ctx, "update_item"); err != nil {
		return nil, err
	}
	if patch.Name != nil && strings.TrimSpace(*patch.Name) == "" {
		return nil, validation("item name is required")
	}
	if patch.Quantity != nil && *patch.Quantity <= 0 {
		return nil, validation("item quantity must be positive")
	}
	if patch.Value != nil && patch.Value.IsNegative() {
		return nil, validation("item value must not be negative")
	}

	s.mutex.Lock()
	o, i, err := s.itemIndex(itemID)
	if err != nil {
		s.mutex.Unlock()
		return nil, err
	}
	o.items[i] = patch.Apply(o.items[i])
	out := cloneItems(o.items[i : i+1])[0]
	orderID := o.status.ID
	s.mutex.Unlock()

	s.publish(orderID, models.ResourceItems)
	return &out, nil
}

func (s *Service) DeleteItem(ctx context.Context, itemID string) error {
	if err := s.before(ctx, "delete_item"); err != nil {
		return err
	}

	s.mutex.Lock()
	o, i, err := s.itemIndex(itemID)
	if err != nil {
		s.mutex.Unlock()
		return err
	}
	o.items = append(o.items[:i:i], o.items[i+1:]...)
	delete(s.itemOrder, itemID)
	orderID := o.status.ID
	s.mutex.Unlock()

	s.publish(orderID, models.ResourceItems, models.ResourceItemImages)
	return nil
}

func (s *Service) AddItemImages(ctx context.Context, itemID string, files []models.FileUpload) ([]models.Image, error) {
	if err := s.before(ctx, "add_item_images"); err != nil {
		return nil, err
	}
	if err := validateFiles(files); err != nil {
		return nil, err
	}

	s.mutex.Lock()
	o, i, err := s.itemIndex(itemID)
	if err != nil {
		s.mutex.Unlock()
		return nil, err
	}
	now := s.now()
	out := make([]models.Image, 0, len(files))
	images := cloneImages(o.items[i].Images)
	for _, f := range files {
		id := uuid.New().String()
		img := models.Image{
			ID:        id,
			ItemID:    itemID,
			Path:      fmt.Sprintf("items/%s/%s-%s", itemID, id, f.Name),
			Name:      f.Name,
			MimeType:  f.MimeType,
			Size:      fileSize(f),
			State:     models.AttachmentStored,
			CreatedAt: now,
		}
		images = append(images, img)
		out = append(out, img)
	}
	o.items[i].Images = images
	orderID := o.status.ID
	s.mutex.Unlock()

	s.publish(orderID, models.ResourceItemImages)
	return out, nil
}

// RemoveItemImages returns the ids that existed and were removed.
func (s *Service) RemoveItemImages(ctx context.Context, itemID string, imageIDs []string) ([]string, error) {
	if err := s.before(ctx, "remove_item_images"); err != nil {
		return nil, err
	}

	s.mutex.Lock()
	o, i, err := s.itemIndex(itemID)
	if err != nil {
		s.mutex.Unlock()
		return nil, err
	}
	drop := make(map[string]bool, len(imageIDs))
	for _, id := range imageIDs {
		drop[id] = true
	}
	deleted := []string{}
	kept := make([]models.Image, 0, len(o.items[i].Images))
	for _, img := range o.items[i].Images {
		if drop[img.ID] {
			deleted = append(deleted, img.ID)
			continue
		}
		kept = append(kept, img)
	}
	o.items[i].Images = kept
	orderID := o.status.ID
	s.mutex.Unlock()

	if len(deleted) > 0 {
		s.publish(orderID, models.ResourceItemImages)
	}
	return deleted, nil
}

func (s *Service) GetPaymentData(ctx context.Context, orderID string) (*models.PaymentState, error) {
	if err := s.before(ctx, "get_payment_data"); err != nil {
		return nil, err
	}
	s.mutex.RLock()
	defer s.mutex.RUnlock()

	o, err := s.lookup(orderID)
	if err != nil {
		return nil, err
	}
	state := &models.PaymentState{Transactions: append([]models.Transaction{}, o.transactions...)}
	if o.payment != nil {
		p := *o.payment
		state.Payment = &p
	}
	return state, nil
}

// updatePayment runs fn on the order's payment under the lock.
func (s *Service) updatePayment(ctx context.Context, op, orderID string, fn func(*models.Payment) error) error {
	if err := s.before(ctx, op); err != nil {
		return err
	}

	s.mutex.Lock()
	o, err := s.lookup(orderID)
	if err != nil {
		s.mutex.Unlock()
		return err
	}
	if o.payment == nil {
		s.mutex.Unlock()
		return notFound("payment for order", orderID)
	}
	p := *o.payment
	if err := fn(&p); err != nil {
		s.mutex.Unlock()
		return err
	}
	p.UpdatedAt = s.now()
	o.payment = &p
	s.mutex.Unlock()

	s.publish(orderID, models.ResourcePayments)
	return nil
}

func (s *Service) UpdatePaymentStatus(ctx context.Context, orderID string, status models.PaymentStatus) error {
	return s.updatePayment(ctx, "update_payment_status", orderID, func(p *models.Payment) error {
		if !status.IsValid() {
			return validation("unknown payment status %q", status)
		}
		p.Status = status
		return nil
	})
}

var hundred = decimal.NewFromInt(100)

func (s *Service) UpdateServiceFee(ctx context.Context, orderID string, pct decimal.Decimal) error {
	return s.updatePayment(ctx, "update_service_fee", orderID, func(p *models.Payment) error {
		if pct.IsNegative() || pct.GreaterThan(hundred) {
			return validation("service fee must be between 0 and 100, got %s", pct)
		}
		p.ServiceFeePct = pct
		return nil
	})
}

func (s *Service) UpdatePaymentNote(ctx context.Context, orderID, note string) error {
	return s.updatePayment(ctx, "update_payment_note", orderID, func(p *models.Payment) error {
		p.Note = strings.TrimSpace(note)
		return nil
	})
}

func (s *Service) UpdateAdminFinancials(ctx context.Context, orderID string, figures models.AdminFinancials) error {
	return s.updatePayment(ctx, "update_admin_financials", orderID, func(p *models.Payment) error {
		if figures.AmountReceived.IsNegative() || figures.AmountCosts.IsNegative() {
			return validation("admin figures must not be negative")
		}
		p.AmountReceived = figures.AmountReceived
		p.AmountCosts = figures.AmountCosts
		return nil
	})
}

func (s *Service) UpdateProductSplit(ctx context.Context, orderID string, split models.ProductSplit) error {
	return s.updatePayment(ctx, "update_product_split", orderID, func(p *models.Payment) error {
		if split.ItemsValue.IsNegative() || split.ShippingValue.IsNegative() {
			return validation("product split must not be negative")
		}
		p.ItemsValue = split.ItemsValue
		p.ShippingValue = split.ShippingValue
		return nil
	})
}

func (s *Service) paymentOrder(paymentID, orderID string) (*order, error) {
	owner, ok := s.paymentOf[paymentID]
	if !ok {
		return nil, notFound("payment", paymentID)
	}
	if owner != orderID {
		return nil, validation("payment %s does not belong to order %s", paymentID, orderID)
	}
	return s.orders[owner], nil
}

// AddTransaction appends a ledger entry and moves admin_amount_received by
// the same amount.
func (s *Service) AddTransaction(ctx context.Context, paymentID, orderID string, amount decimal.Decimal, note string) (*models.Transaction, error) {
	if err := s.before(ctx, "add_transaction"); err != nil {
		return nil, err
	}
	if amount.IsZero() {
		return nil, validation("transaction amount must not be zero")
	}

	s.mutex.Lock()
	o, err := s.paymentOrder(paymentID, orderID)
	if err != nil {
		s.mutex.Unlock()
		return nil, err
	}
	now := s.now()
	tx := models.Transaction{
		ID:        uuid.New().String(),
		PaymentID: paymentID,
		Amount:    amount.Round(2),
		Note:      strings.TrimSpace(note),
		CreatedAt: now,
	}
	o.transactions = append(o.transactions, tx)
	p := *o.payment
	p.AmountReceived = p.AmountReceived.Add(tx.Amount)
	p.UpdatedAt = now
	o.payment = &p
	s.mutex.Unlock()

	s.publish(orderID, models.ResourceTransactions, models.ResourcePayments)
	return &tx, nil
}

func (s *Service) DeleteTransaction(ctx context.Context, paymentID, orderID, transactionID string) error {
	if err := s.before(ctx, "delete_transaction"); err != nil {
		return err
	}

	s.mutex.Lock()
	o, err := s.paymentOrder(paymentID, orderID)
	if err != nil {
		s.mutex.Unlock()
		return err
	}
	idx := -1
	for i, tx := range o.transactions {
		if tx.ID == transactionID {
			idx = i
			break
		}
	}
	if idx < 0 {
		s.mutex.Unlock()
		return notFound("transaction", transactionID)
	}
	removed := o.transactions[idx]
	o.transactions = append(o.transactions[:idx:idx], o.transactions[idx+1:]...)
	p := *o.payment
	p.AmountReceived = p.AmountReceived.Sub(removed.Amount)
	p.UpdatedAt = s.now()
	o.payment = &p
	s.mutex.Unlock()

	s.publish(orderID, models.ResourceTransactions, models.ResourcePayments)
	return nil
}

func (s *Service) ListQuotes(ctx context.Context, orderID string) ([]models.Quote, error) {
	if err := s.before(ctx, "list_quotes"); err != nil {
		return nil, err
	}
	s.mutex.RLock()
	defer s.mutex.RUnlock()

	o, err := s.lookup(orderID)
	if err != nil {
		return nil, err
	}
	return append([]models.Quote{}, o.quotes...), nil
}

func (s *Service) CreateQuotes(ctx context.Context, orderID string, rows []models.QuoteDraft, validDays int) error {
	if err := s.before(ctx, "create_quotes"); err != nil {
		return err
	}
	if len(rows) == 0 {
		return validation("at least one quote row is required")
	}
	if validDays <= 0 {
		return validation("quote validity must be at least one day")
	}
	for _, r := range rows {
		if strings.TrimSpace(r.CarrierKey) == "" {
			return validation("carrier is required")
		}
		if r.Price.IsNegative() {
			return validation("quote price must not be negative")
		}
		if r.DaysMin < 0 || r.DaysMax < r.DaysMin {
			return validation("invalid delivery window %d-%d", r.DaysMin, r.DaysMax)
		}
	}

	s.mutex.Lock()
	o, err := s.lookup(orderID)
	if err != nil {
		s.mutex.Unlock()
		return err
	}
	now := s.now()
	for _, r := range rows {
		q := models.Quote{
			ID:           uuid.New().String(),
			OrderID:      orderID,
			CarrierKey:   r.CarrierKey,
			CarrierLabel: r.CarrierLabel,
			Price:        r.Price.Round(2),
			DaysMin:      r.DaysMin,
			DaysMax:      r.DaysMax,
			Note:         r.Note,
			Status:       models.QuoteProposed,
			ExpiresAt:    now.AddDate(0, 0, validDays),
			CreatedAt:    now,
		}
		o.quotes = append(o.quotes, q)
		s.quoteOf[q.ID] = orderID
	}
	s.mutex.Unlock()

	s.publish(orderID, models.ResourceQuotes)
	return nil
}

func (s *Service) DeleteQuote(ctx context.Context, quoteID string) error {
	if err := s.before(ctx, "delete_quote"); err != nil {
		return err
	}

	s.mutex.Lock()
	orderID, ok := s.quoteOf[quoteID]
	if !ok {
		s.mutex.Unlock()
		return notFound("quote", quoteID)
	}
	o := s.orders[orderID]
	for i, q := range o.quotes {
		if q.ID == quoteID {
			o.quotes = append(o.quotes[:i:i], o.quotes[i+1:]...)
			break
		}
	}
	delete(s.quoteOf, quoteID)
	s.mutex.Unlock()

	s.publish(orderID, models.ResourceQuotes)
	return nil
}

func (s *Service) GetCurrencyRates(ctx context.Context) (models.CurrencyRates, error) {
	if err := s.before(ctx, "get_currency_rates"); err != nil {
		return nil, err
	}
	s.mutex.RLock()
	defer s.mutex.RUnlock()

	out := make(models.CurrencyRates, len(s.rates))
	for k, v := range s.rates {
		out[k] = v
	}
	return out, nil
}

func validateFiles(files []models.FileUpload) error {
	if len(files) == 0 {
		return validation("at least one file is required")
	}
	for _, f := range files {
		if strings.TrimSpace(f.Name) == "" {
			return validation("file name is required")
		}
	}
	return nil
}

func fileSize(f models.FileUpload) int64 {
	if f.Size > 0 {
		return f.Size
	}
	return int64(len(f.Content))
}

func cloneImages(in []models.Image) []models.Image {
	if in == nil {
		return nil
	}
	return append([]models.Image{}, in...)
}

func cloneItems(in []models.Item) []models.Item {
	out := make([]models.Item, len(in))
	for i, it := range in {
		it.Images = cloneImages(it.Images)
		out[i] = it
	}
	return out
}

var _ dataservice.Service = (*Service)(nil)
