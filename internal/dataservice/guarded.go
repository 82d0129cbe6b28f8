package dataservice

import (
	"context"

	"github.com/PolandExportFlow/polandexportflow-git-sub001/internal/circuitbreaker"
	"github.com/PolandExportFlow/polandexportflow-git-sub001/pkg/models"
	"github.com/shopspring/decimal"
	"github.com/sirupsen/logrus"
)

// Breaker names. Reads are split by the aggregate's fetch channels so an
// outage of one view does not hide the others; every write shares one.
const (
	BreakerAggregate = "aggregate"
	BreakerPayment   = "payment"
	BreakerQuotes    = "quotes"
	BreakerRates     = "rates"
	BreakerMutation  = "mutation"
)

// Guarded wraps a Service so that every call passes through the breaker of
// its channel.
type Guarded struct {
	next     Service
	breakers *circuitbreaker.Manager
}

// NewGuarded installs IsTransient as the failure classifier so that
// validation errors and missing rows never open a breaker.
func NewGuarded(next Service, template circuitbreaker.Config, logger *logrus.Logger) *Guarded {
	template.IsFailure = IsTransient
	return &Guarded{next: next, breakers: circuitbreaker.NewManager(template, logger)}
}

func (g *Guarded) Breakers() *circuitbreaker.Manager {
	return g.breakers
}

func guard[R any](ctx context.Context, g *Guarded, name string, fn func(context.Context) (R, error)) (R, error) {
	var out R
	err := g.breakers.For(name).Execute(ctx, func(ctx context.Context) error {
		var err error
		out, err = fn(ctx)
		return err
	})
	return out, err
}

func (g *Guarded) exec(ctx context.Context, name string, fn func(context.Context) error) error {
	return g.breakers.For(name).Execute(ctx, fn)
}

func (g *Guarded) ResolveOrderID(ctx context.Context, lookup string) (string, error) {
	return guard(ctx, g, BreakerAggregate, func(ctx context.Context) (string, error) {
		return g.next.ResolveOrderID(ctx, lookup)
	})
}

func (g *Guarded) GetOrderAggregate(ctx context.Context, orderID string) (*models.Aggregate, error) {
	return guard(ctx, g, BreakerAggregate, func(ctx context.Context) (*models.Aggregate, error) {
		return g.next.GetOrderAggregate(ctx, orderID)
	})
}

func (g *Guarded) UpdateOrderStatus(ctx context.Context, orderID string, update models.StatusUpdate) (*models.OrderStatus, error) {
	return guard(ctx, g, BreakerMutation, func(ctx context.Context) (*models.OrderStatus, error) {
		return g.next.UpdateOrderStatus(ctx, orderID, update)
	})
}

func (g *Guarded) UpdateOrderNote(ctx context.Context, orderID, text string) (string, error) {
	return guard(ctx, g, BreakerMutation, func(ctx context.Context) (string, error) {
		return g.next.UpdateOrderNote(ctx, orderID, text)
	})
}

func (g *Guarded) UpdateAdminNote(ctx context.Context, orderID, text string) (string, error) {
	return guard(ctx, g, BreakerMutation, func(ctx context.Context) (string, error) {
		return g.next.UpdateAdminNote(ctx, orderID, text)
	})
}

func (g *Guarded) AddAttachments(ctx context.Context, orderID string, files []models.FileUpload) ([]models.Attachment, error) {
	return guard(ctx, g, BreakerMutation, func(ctx context.Context) ([]models.Attachment, error) {
		return g.next.AddAttachments(ctx, orderID, files)
	})
}

func (g *Guarded) DeleteAttachment(ctx context.Context, orderID, attachmentID string) error {
	return g.exec(ctx, BreakerMutation, func(ctx context.Context) error {
		return g.next.DeleteAttachment(ctx, orderID, attachmentID)
	})
}

func (g *Guarded) CreateItem(ctx context.Context, orderID string, item models.Item) (*models.Item, error) {
	return guard(ctx, g, BreakerMutation, func(ctx context.Context) (*models.Item, error) {
		return g.next.CreateItem(ctx, orderID, item)
	})
}

func (g *Guarded) UpdateItem(ctx context.Context, itemID string, patch models.ItemPatch) (*models.Item, error) {
	return guard(ctx, g, BreakerMutation, func(ctx context.Context) (*models.Item, error) {
		return g.next.UpdateItem(ctx, itemID, patch)
	})
}

func (g *Guarded) DeleteItem(ctx context.Context, itemID string) error {
	return g.exec(ctx, BreakerMutation, func(ctx context.Context) error {
		return g.next.DeleteItem(ctx, itemID)
	})
}

func (g *Guarded) AddItemImages(ctx context.Context, itemID string, files []models.FileUpload) ([]models.Image, error) {
	return guard(ctx, g, BreakerMutation, func(ctx context.Context) ([]models.Image, error) {
		return g.next.AddItemImages(ctx, itemID, files)
	})
}

func (g *Guarded) RemoveItemImages(ctx context.Context, itemID string, imageIDs []string) ([]string, error) {
	return guard(ctx, g, BreakerMutation, func(ctx context.Context) ([]string, error) {
		return g.next.RemoveItemImages(ctx, itemID, imageIDs)
	})
}

func (g *Guarded) GetPaymentData(ctx context.Context, orderID string) (*models.PaymentState, error) {
	return guard(ctx, g, BreakerPayment, func(ctx context.Context) (*models.PaymentState, error) {
		return g.next.GetPaymentData(ctx, orderID)
	})
}

func (g *Guarded) UpdatePaymentStatus(ctx context.Context, orderID string, status models.PaymentStatus) error {
	return g.exec(ctx, BreakerMutation, func(ctx context.Context) error {
		return g.next.UpdatePaymentStatus(ctx, orderID, status)
	})
}

func (g *Guarded) UpdateServiceFee(ctx context.Context, orderID string, pct decimal.Decimal) error {
	return g.exec(ctx, BreakerMutation, func(ctx context.Context) error {
		return g.next.UpdateServiceFee(ctx, orderID, pct)
	})
}

func (g *Guarded) UpdatePaymentNote(ctx context.Context, orderID, note string) error {
	return g.exec(ctx, BreakerMutation, func(ctx context.Context) error {
		return g.next.UpdatePaymentNote(ctx, orderID, note)
	})
}

func (g *Guarded) UpdateAdminFinancials(ctx context.Context, orderID string, figures models.AdminFinancials) error {
	return g.exec(ctx, BreakerMutation, func(ctx context.Context) error {
		return g.next.UpdateAdminFinancials(ctx, orderID, figures)
	})
}

func (g *Guarded) UpdateProductSplit(ctx context.Context, orderID string, split models.ProductSplit) error {
	return g.exec(ctx, BreakerMutation, func(ctx context.Context) error {
		return g.next.UpdateProductSplit(ctx, orderID, split)
	})
}

func (g *Guarded) AddTransaction(ctx context.Context, paymentID, orderID string, amount decimal.Decimal, note string) (*models.Transaction, error) {
	return guard(ctx, g, BreakerMutation, func(ctx context.Context) (*models.Transaction, error) {
		return g.next.AddTransaction(ctx, paymentID, orderID, amount, note)
	})
}

func (g *Guarded) DeleteTransaction(ctx context.Context, paymentID, orderID, transactionID string) error {
	return g.exec(ctx, BreakerMutation, func(ctx context.Context) error {
		return g.next.DeleteTransaction(ctx, paymentID, orderID, transactionID)
	})
}

func (g *Guarded) ListQuotes(ctx context.Context, orderID string) ([]models.Quote, error) {
	return guard(ctx, g, BreakerQuotes, func(ctx context.Context) ([]models.Quote, error) {
		return g.next.ListQuotes(ctx, orderID)
	})
}

func (g *Guarded) CreateQuotes(ctx context.Context, orderID string, rows []models.QuoteDraft, validDays int) error {
	return g.exec(ctx, BreakerMutation, func(ctx context.Context) error {
		return g.next.CreateQuotes(ctx, orderID, rows, validDays)
	})
}

func (g *Guarded) DeleteQuote(ctx context.Context, quoteID string) error {
	return g.exec(ctx, BreakerMutation, func(ctx context.Context) error {
		return g.next.DeleteQuote(ctx, quoteID)
	})
}

func (g *Guarded) GetCurrencyRates(ctx context.Context) (models.CurrencyRates, error) {
	return guard(ctx, g, BreakerRates, func(ctx context.Context) (models.CurrencyRates, error) {
		return g.next.GetCurrencyRates(ctx)
	})
}

var _ Service = (*Guarded)(nil)
var _ Service = (*Client)(nil)
