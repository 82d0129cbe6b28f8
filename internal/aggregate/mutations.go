package aggregate

import (
	"context"
	"fmt"
	"strings"

	"github.com/PolandExportFlow/polandexportflow-git-sub001/internal/dataservice"
	"github.com/PolandExportFlow/polandexportflow-git-sub001/internal/mutator"
	"github.com/PolandExportFlow/polandexportflow-git-sub001/internal/sequencer"
	"github.com/PolandExportFlow/polandexportflow-git-sub001/pkg/models"
	"github.com/shopspring/decimal"
)

// Field names passed to Busy and carried by failure notices.
const (
	FieldStatus          = "status"
	FieldSource          = "source"
	FieldOrderNote       = "order_note"
	FieldAdminNote       = "admin_note"
	FieldAttachments     = "attachments"
	FieldItems           = "items"
	FieldPaymentStatus   = "payment_status"
	FieldServiceFee      = "service_fee_pct"
	FieldPaymentNote     = "payment_note"
	FieldAdminFinancials = "admin_financials"
	FieldProductSplit    = "product_split"
	FieldTransactions    = "transactions"
	FieldQuotes          = "quotes"
)

// ItemField is the field name of one line item.
func ItemField(itemID string) string {
	return "item:" + itemID
}

// run sends mut through the mutator. Once the write resolves, fetches of the
// same store that are still in flight become stale so they cannot overwrite
// the confirmed value. Fetches resolving earlier still apply, and the store
// replays the pending edit on top of them.
func run[T any, R any](ctx context.Context, c *Controller, mut mutator.Mutation[T, R]) (R, error) {
	var zero R
	_, m, err := c.session()
	if err != nil {
		return zero, err
	}

	ch := sequencer.Channel(mut.Store.Name())
	submit := mut.Submit
	mut.Submit = func(ctx context.Context) (R, error) {
		defer c.invalidate(ch)
		return submit(ctx)
	}

	c.track(mut.Field, 1)
	defer c.track(mut.Field, -1)

	return mutator.Run(ctx, m, mut)
}

func void(fn func(ctx context.Context) error) func(ctx context.Context) (struct{}, error) {
	return func(ctx context.Context) (struct{}, error) {
		return struct{}{}, fn(ctx)
	}
}

func pending(kind, id string) error {
	return fmt.Errorf("%s %s: %w", kind, id, ErrPendingRecord)
}

func (c *Controller) SetStatus(ctx context.Context, status models.OrderStatusCode) (*models.OrderStatus, error) {
	return c.updateStatus(ctx, "change status", FieldStatus, models.StatusUpdate{Status: &status})
}

// SetSource changes the service type of the order.
func (c *Controller) SetSource(ctx context.Context, source models.ServiceType) (*models.OrderStatus, error) {
	return c.updateStatus(ctx, "change service type", FieldSource, models.StatusUpdate{Source: &source})
}

func (c *Controller) updateStatus(ctx context.Context, op, field string, update models.StatusUpdate) (*models.OrderStatus, error) {
	orderID := c.OrderID()
	return run(ctx, c, mutator.Mutation[models.OrderStatus, *models.OrderStatus]{
		Operation: op,
		Field:     field,
		Store:     c.status,
		Apply:     update.Apply,
		Submit: func(ctx context.Context) (*models.OrderStatus, error) {
			return c.service.UpdateOrderStatus(ctx, orderID, update)
		},
		Reconcile: func(committed models.OrderStatus, confirmed *models.OrderStatus) models.OrderStatus {
			if confirmed == nil {
				return update.Apply(committed)
			}
			return *confirmed
		},
	})
}

func (c *Controller) SaveOrderNote(ctx context.Context, text string) (string, error) {
	return c.saveNote(ctx, "save order note", FieldOrderNote, text, c.service.UpdateOrderNote,
		func(n models.Notes, s string) models.Notes {
			n.OrderNote = s
			return n
		})
}

func (c *Controller) SaveAdminNote(ctx context.Context, text string) (string, error) {
	return c.saveNote(ctx, "save admin note", FieldAdminNote, text, c.service.UpdateAdminNote,
		func(n models.Notes, s string) models.Notes {
			n.AdminNote = s
			return n
		})
}

func (c *Controller) saveNote(ctx context.Context, op, field, text string,
	save func(ctx context.Context, orderID, text string) (string, error),
	set func(models.Notes, string) models.Notes,
) (string, error) {
	orderID := c.OrderID()
	return run(ctx, c, mutator.Mutation[models.Notes, string]{
		Operation: op,
		Field:     field,
		Store:     c.notes,
		Apply:     func(n models.Notes) models.Notes { return set(n, text) },
		Submit: func(ctx context.Context) (string, error) {
			return save(ctx, orderID, text)
		},
		Reconcile: func(committed models.Notes, confirmed string) models.Notes {
			return set(committed, confirmed)
		},
	})
}

// AddAttachments shows the files as uploading until the data service
// returns their stored records.
func (c *Controller) AddAttachments(ctx context.Context, files []models.FileUpload) ([]models.Attachment, error) {
	if len(files) == 0 {
		return nil, fmt.Errorf("%w: no files to attach", dataservice.ErrValidation)
	}
	orderID := c.OrderID()
	now := c.now()
	uploading := make([]models.Attachment, len(files))
	for i, f := range files {
		uploading[i] = models.Attachment{
			ID:        models.NewTemporaryID(),
			OrderID:   orderID,
			Name:      f.Name,
			MimeType:  f.MimeType,
			Size:      uploadSize(f),
			State:     models.AttachmentUploading,
			CreatedAt: now,
		}
	}

	return run(ctx, c, mutator.Mutation[[]models.Attachment, []models.Attachment]{
		Operation: "add attachments",
		Field:     FieldAttachments,
		Store:     c.attachments,
		Apply: func(cur []models.Attachment) []models.Attachment {
			return appendCopy(cur, uploading...)
		},
		Submit: func(ctx context.Context) ([]models.Attachment, error) {
			return c.service.AddAttachments(ctx, orderID, files)
		},
		Reconcile: func(committed, stored []models.Attachment) []models.Attachment {
			return upsert(committed, attachmentKey, stored...)
		},
	})
}

func (c *Controller) DeleteAttachment(ctx context.Context, attachmentID string) error {
	if models.IsTemporaryID(attachmentID) {
		return pending("attachment", attachmentID)
	}
	orderID := c.OrderID()
	_, err := run(ctx, c, mutator.Mutation[[]models.Attachment, struct{}]{
		Operation: "delete attachment",
		Field:     FieldAttachments,
		Store:     c.attachments,
		Apply: func(cur []models.Attachment) []models.Attachment {
			return without(cur, func(a models.Attachment) bool { return a.ID == attachmentID })
		},
		Submit: void(func(ctx context.Context) error {
			return c.service.DeleteAttachment(ctx, orderID, attachmentID)
		}),
	})
	return err
}

// AddItem shows the item under a temporary id until the server assigns one.
func (c *Controller) AddItem(ctx context.Context, item models.Item) (*models.Item, error) {
	if strings.TrimSpace(item.Name) == "" {
		return nil, fmt.Errorf("%w: item name is required", dataservice.ErrValidation)
	}
	orderID := c.OrderID()
	draft := item
	draft.ID = models.NewTemporaryID()
	draft.OrderID = orderID
	draft.CreatedAt = c.now()
	if draft.Quantity == 0 {
		draft.Quantity = 1
	}

	return run(ctx, c, mutator.Mutation[[]models.Item, *models.Item]{
		Operation: "add item",
		Field:     FieldItems,
		Store:     c.items,
		Apply: func(cur []models.Item) []models.Item {
			return appendCopy(cur, draft)
		},
		Submit: func(ctx context.Context) (*models.Item, error) {
			return c.service.CreateItem(ctx, orderID, item)
		},
		Reconcile: func(committed []models.Item, created *models.Item) []models.Item {
			if created == nil {
				return committed
			}
			return upsert(committed, itemKey, *created)
		},
	})
}

// checkItem rejects writes against items the server does not know yet.
func (c *Controller) checkItem(itemID string) error {
	if models.IsTemporaryID(itemID) {
		return pending("item", itemID)
	}
	for _, it := range c.items.Read() {
		if it.ID == itemID {
			return nil
		}
	}
	return fmt.Errorf("%w: %s", ErrUnknownItem, itemID)
}

func (c *Controller) UpdateItem(ctx context.Context, itemID string, patch models.ItemPatch) (*models.Item, error) {
	if err := c.checkItem(itemID); err != nil {
		return nil, err
	}
	return run(ctx, c, mutator.Mutation[[]models.Item, *models.Item]{
		Operation: "update item",
		Field:     ItemField(itemID),
		Store:     c.items,
		Apply: func(cur []models.Item) []models.Item {
			return mapItem(cur, itemID, patch.Apply)
		},
		Submit: func(ctx context.Context) (*models.Item, error) {
			return c.service.UpdateItem(ctx, itemID, patch)
		},
		Reconcile: func(committed []models.Item, updated *models.Item) []models.Item {
			if updated == nil {
				return mapItem(committed, itemID, patch.Apply)
			}
			return mapItem(committed, itemID, func(models.Item) models.Item { return *updated })
		},
	})
}

func (c *Controller) DeleteItem(ctx context.Context, itemID string) error {
	if err := c.checkItem(itemID); err != nil {
		return err
	}
	_, err := run(ctx, c, mutator.Mutation[[]models.Item, struct{}]{
		Operation: "delete item",
		Field:     ItemField(itemID),
		Store:     c.items,
		Apply: func(cur []models.Item) []models.Item {
			return without(cur, func(it models.Item) bool { return it.ID == itemID })
		},
		Submit: void(func(ctx context.Context) error {
			return c.service.DeleteItem(ctx, itemID)
		}),
	})
	return err
}

func (c *Controller) AddItemImages(ctx context.Context, itemID string, files []models.FileUpload) ([]models.Image, error) {
	if err := c.checkItem(itemID); err != nil {
		return nil, err
	}
	if len(files) == 0 {
		return nil, fmt.Errorf("%w: no images to attach", dataservice.ErrValidation)
	}
	now := c.now()
	uploading := make([]models.Image, len(files))
	for i, f := range files {
		uploading[i] = models.Image{
			ID:        models.NewTemporaryID(),
			ItemID:    itemID,
			Name:      f.Name,
			MimeType:  f.MimeType,
			Size:      uploadSize(f),
			State:     models.AttachmentUploading,
			CreatedAt: now,
		}
	}

	return run(ctx, c, mutator.Mutation[[]models.Item, []models.Image]{
		Operation: "add item images",
		Field:     ItemField(itemID),
		Store:     c.items,
		Apply: func(cur []models.Item) []models.Item {
			return mapItem(cur, itemID, func(it models.Item) models.Item {
				it.Images = appendCopy(it.Images, uploading...)
				return it
			})
		},
		Submit: func(ctx context.Context) ([]models.Image, error) {
			return c.service.AddItemImages(ctx, itemID, files)
		},
		Reconcile: func(committed []models.Item, stored []models.Image) []models.Item {
			return mapItem(committed, itemID, func(it models.Item) models.Item {
				it.Images = upsert(it.Images, imageKey, stored...)
				return it
			})
		},
	})
}

// RemoveItemImages hides the images at once; only the ids the server reports
// as deleted stay removed.
func (c *Controller) RemoveItemImages(ctx context.Context, itemID string, imageIDs []string) ([]string, error) {
	if err := c.checkItem(itemID); err != nil {
		return nil, err
	}
	for _, id := range imageIDs {
		if models.IsTemporaryID(id) {
			return nil, pending("image", id)
		}
	}
	drop := idSet(imageIDs)
	removeImages := func(set map[string]bool) func(models.Item) models.Item {
		return func(it models.Item) models.Item {
			it.Images = without(it.Images, func(img models.Image) bool { return set[img.ID] })
			return it
		}
	}

	return run(ctx, c, mutator.Mutation[[]models.Item, []string]{
		Operation: "remove item images",
		Field:     ItemField(itemID),
		Store:     c.items,
		Apply: func(cur []models.Item) []models.Item {
			return mapItem(cur, itemID, removeImages(drop))
		},
		Submit: func(ctx context.Context) ([]string, error) {
			return c.service.RemoveItemImages(ctx, itemID, imageIDs)
		},
		Reconcile: func(committed []models.Item, deleted []string) []models.Item {
			return mapItem(committed, itemID, removeImages(idSet(deleted)))
		},
	})
}

// paymentRecord returns the payment shown for the order, failing before any
// optimistic change when there is none.
func (c *Controller) paymentRecord() (*models.Payment, error) {
	if _, _, err := c.session(); err != nil {
		return nil, err
	}
	p := c.payment.Read().Payment
	if p == nil {
		return nil, ErrNoPayment
	}
	return p, nil
}

func withPayment(s models.PaymentState, fn func(*models.Payment)) models.PaymentState {
	if s.Payment == nil {
		return s
	}
	p := *s.Payment
	fn(&p)
	s.Payment = &p
	return s
}

func (c *Controller) updatePayment(ctx context.Context, op, field string, change func(*models.Payment), submit func(ctx context.Context, orderID string) error) error {
	if _, err := c.paymentRecord(); err != nil {
		return err
	}
	orderID := c.OrderID()
	_, err := run(ctx, c, mutator.Mutation[models.PaymentState, struct{}]{
		Operation: op,
		Field:     field,
		Store:     c.payment,
		Apply: func(s models.PaymentState) models.PaymentState {
			return withPayment(s, change)
		},
		Submit: void(func(ctx context.Context) error {
			return submit(ctx, orderID)
		}),
	})
	return err
}

func (c *Controller) SetPaymentStatus(ctx context.Context, status models.PaymentStatus) error {
	return c.updatePayment(ctx, "set payment status", FieldPaymentStatus,
		func(p *models.Payment) { p.Status = status },
		func(ctx context.Context, orderID string) error {
			return c.service.UpdatePaymentStatus(ctx, orderID, status)
		})
}

func (c *Controller) SetServiceFee(ctx context.Context, pct decimal.Decimal) error {
	return c.updatePayment(ctx, "set service fee", FieldServiceFee,
		func(p *models.Payment) { p.ServiceFeePct = pct },
		func(ctx context.Context, orderID string) error {
			return c.service.UpdateServiceFee(ctx, orderID, pct)
		})
}

func (c *Controller) SetPaymentNote(ctx context.Context, note string) error {
	return c.updatePayment(ctx, "set payment note", FieldPaymentNote,
		func(p *models.Payment) { p.Note = note },
		func(ctx context.Context, orderID string) error {
			return c.service.UpdatePaymentNote(ctx, orderID, note)
		})
}

// SetAdminFinancials sets the admin-entered received and cost figures. The
// ledger is left alone.
func (c *Controller) SetAdminFinancials(ctx context.Context, figures models.AdminFinancials) error {
	return c.updatePayment(ctx, "set admin financials", FieldAdminFinancials,
		func(p *models.Payment) {
			p.AmountReceived = figures.AmountReceived
			p.AmountCosts = figures.AmountCosts
		},
		func(ctx context.Context, orderID string) error {
			return c.service.UpdateAdminFinancials(ctx, orderID, figures)
		})
}

func (c *Controller) SetProductSplit(ctx context.Context, split models.ProductSplit) error {
	return c.updatePayment(ctx, "set product split", FieldProductSplit,
		func(p *models.Payment) {
			p.ItemsValue = split.ItemsValue
			p.ShippingValue = split.ShippingValue
		},
		func(ctx context.Context, orderID string) error {
			return c.service.UpdateProductSplit(ctx, orderID, split)
		})
}

// AddTransaction appends a ledger entry. The payment is refetched after the
// write so the received figure is the one the server settled on.
func (c *Controller) AddTransaction(ctx context.Context, amount decimal.Decimal, note string) (*models.Transaction, error) {
	payment, err := c.paymentRecord()
	if err != nil {
		return nil, err
	}
	orderID := c.OrderID()
	paymentID := payment.ID
	draft := models.Transaction{
		ID:        models.NewTemporaryID(),
		PaymentID: paymentID,
		Amount:    amount,
		Note:      strings.TrimSpace(note),
		CreatedAt: c.now(),
	}

	return run(ctx, c, mutator.Mutation[models.PaymentState, *models.Transaction]{
		Operation: "add transaction",
		Field:     FieldTransactions,
		Store:     c.payment,
		Apply: func(s models.PaymentState) models.PaymentState {
			s.Transactions = appendCopy(s.Transactions, draft)
			return s
		},
		Submit: func(ctx context.Context) (*models.Transaction, error) {
			return c.service.AddTransaction(ctx, paymentID, orderID, amount, note)
		},
		Reconcile: func(committed models.PaymentState, tx *models.Transaction) models.PaymentState {
			if tx != nil {
				committed.Transactions = upsert(committed.Transactions, transactionKey, *tx)
			}
			return committed
		},
		Refetch: c.refetchPayment,
	})
}

func (c *Controller) DeleteTransaction(ctx context.Context, transactionID string) error {
	if models.IsTemporaryID(transactionID) {
		return pending("transaction", transactionID)
	}
	payment, err := c.paymentRecord()
	if err != nil {
		return err
	}
	orderID := c.OrderID()
	paymentID := payment.ID

	_, err = run(ctx, c, mutator.Mutation[models.PaymentState, struct{}]{
		Operation: "delete transaction",
		Field:     FieldTransactions,
		Store:     c.payment,
		Apply: func(s models.PaymentState) models.PaymentState {
			s.Transactions = without(s.Transactions, func(tx models.Transaction) bool { return tx.ID == transactionID })
			return s
		},
		Submit: void(func(ctx context.Context) error {
			return c.service.DeleteTransaction(ctx, paymentID, orderID, transactionID)
		}),
		Refetch: c.refetchPayment,
	})
	return err
}

// CreateQuotes shows the drafts as proposed quotes expiring validDays from
// now, then replaces them with the refetched list.
func (c *Controller) CreateQuotes(ctx context.Context, rows []models.QuoteDraft, validDays int) error {
	if len(rows) == 0 {
		return fmt.Errorf("%w: no quote rows", dataservice.ErrValidation)
	}
	orderID := c.OrderID()
	now := c.now()
	expires := now.AddDate(0, 0, validDays)
	drafts := make([]models.Quote, len(rows))
	for i, r := range rows {
		drafts[i] = models.Quote{
			ID:           models.NewTemporaryID(),
			OrderID:      orderID,
			CarrierKey:   r.CarrierKey,
			CarrierLabel: r.CarrierLabel,
			Price:        r.Price,
			DaysMin:      r.DaysMin,
			DaysMax:      r.DaysMax,
			Note:         r.Note,
			Status:       models.QuoteProposed,
			ExpiresAt:    expires,
			CreatedAt:    now,
		}
	}

	_, err := run(ctx, c, mutator.Mutation[[]models.Quote, struct{}]{
		Operation: "create quotes",
		Field:     FieldQuotes,
		Store:     c.quotes,
		Apply: func(cur []models.Quote) []models.Quote {
			return appendCopy(cur, drafts...)
		},
		Submit: void(func(ctx context.Context) error {
			return c.service.CreateQuotes(ctx, orderID, rows, validDays)
		}),
		Refetch: c.refetchQuotes,
	})
	return err
}

func (c *Controller) DeleteQuote(ctx context.Context, quoteID string) error {
	if models.IsTemporaryID(quoteID) {
		return pending("quote", quoteID)
	}
	_, err := run(ctx, c, mutator.Mutation[[]models.Quote, struct{}]{
		Operation: "delete quote",
		Field:     FieldQuotes,
		Store:     c.quotes,
		Apply: func(cur []models.Quote) []models.Quote {
			return without(cur, func(q models.Quote) bool { return q.ID == quoteID })
		},
		Submit: void(func(ctx context.Context) error {
			return c.service.DeleteQuote(ctx, quoteID)
		}),
	})
	return err
}
