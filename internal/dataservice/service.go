// Package dataservice defines the contract the order aggregate expects from
// the remote order data store, plus the transports that speak it.
package dataservice

import (
	"context"
	"errors"
	"fmt"
	"net/http"

	"github.com/PolandExportFlow/polandexportflow-git-sub001/pkg/models"
	"github.com/shopspring/decimal"
)

var (
	ErrNotFound   = errors.New("not found")
	ErrValidation = errors.New("validation failed")
)

// Service is the order data service. Create the client once per process and
// share it between aggregates; it holds no per-order state.
type Service interface {
	// ResolveOrderID maps an order number or id to the order id. An empty
	// id with a nil error means nothing matched.
	ResolveOrderID(ctx context.Context, lookup string) (string, error)
	GetOrderAggregate(ctx context.Context, orderID string) (*models.Aggregate, error)

	UpdateOrderStatus(ctx context.Context, orderID string, update models.StatusUpdate) (*models.OrderStatus, error)
	UpdateOrderNote(ctx context.Context, orderID, text string) (string, error)
	UpdateAdminNote(ctx context.Context, orderID, text string) (string, error)

	AddAttachments(ctx context.Context, orderID string, files []models.FileUpload) ([]models.Attachment, error)
	DeleteAttachment(ctx context.Context, orderID, attachmentID string) error

	CreateItem(ctx context.Context, orderID string, item models.Item) (*models.Item, error)
	UpdateItem(ctx context.Context, itemID string, patch models.ItemPatch) (*models.Item, error)
	DeleteItem(ctx context.Context, itemID string) error
	AddItemImages(ctx context.Context, itemID string, files []models.FileUpload) ([]models.Image, error)
	RemoveItemImages(ctx context.Context, itemID string, imageIDs []string) ([]string, error)

	GetPaymentData(ctx context.Context, orderID string) (*models.PaymentState, error)
	UpdatePaymentStatus(ctx context.Context, orderID string, status models.PaymentStatus) error
	UpdateServiceFee(ctx context.Context, orderID string, pct decimal.Decimal) error
	UpdatePaymentNote(ctx context.Context, orderID, note string) error
	UpdateAdminFinancials(ctx context.Context, orderID string, figures models.AdminFinancials) error
	UpdateProductSplit(ctx context.Context, orderID string, split models.ProductSplit) error
	AddTransaction(ctx context.Context, paymentID, orderID string, amount decimal.Decimal, note string) (*models.Transaction, error)
	DeleteTransaction(ctx context.Context, paymentID, orderID, transactionID string) error

	ListQuotes(ctx context.Context, orderID string) ([]models.Quote, error)
	CreateQuotes(ctx context.Context, orderID string, rows []models.QuoteDraft, validDays int) error
	DeleteQuote(ctx context.Context, quoteID string) error

	GetCurrencyRates(ctx context.Context) (models.CurrencyRates, error)
}

// StatusError is a non-2xx answer from the HTTP data service.
type StatusError struct {
	Op         string
	StatusCode int
	Message    string
}

func (e *StatusError) Error() string {
	if e.Message == "" {
		return fmt.Sprintf("%s: data service returned status %d", e.Op, e.StatusCode)
	}
	return fmt.Sprintf("%s: data service returned status %d: %s", e.Op, e.StatusCode, e.Message)
}

func (e *StatusError) Unwrap() error {
	switch e.StatusCode {
	case http.StatusNotFound:
		return ErrNotFound
	case http.StatusBadRequest, http.StatusUnprocessableEntity, http.StatusConflict:
		return ErrValidation
	}
	return nil
}

// IsTransient reports whether err says nothing about the request itself:
// network trouble, timeouts and 5xx answers.
func IsTransient(err error) bool {
	if err == nil {
		return false
	}
	if errors.Is(err, ErrNotFound) || errors.Is(err, ErrValidation) {
		return false
	}
	if errors.Is(err, context.Canceled) {
		return false
	}
	return true
}
