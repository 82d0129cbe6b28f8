// Package postgres implements the order data service on top of stored
// procedures. Every procedure takes positional arguments and returns one
// json value (or null).
package postgres

import (
	"context"
	"database/sql"
	"encoding/json"
	"errors"
	"fmt"
	"strings"
	"time"

	"github.com/PolandExportFlow/polandexportflow-git-sub001/internal/dataservice"
	"github.com/PolandExportFlow/polandexportflow-git-sub001/pkg/models"
	"github.com/lib/pq"
	"github.com/shopspring/decimal"
	"github.com/sirupsen/logrus"
)

// Procedure names.
const (
	procResolveOrderID     = "admin_resolve_order_id"
	procGetOrderAggregate  = "admin_get_order_aggregate"
	procUpdateOrderStatus  = "admin_update_order_status"
	procUpdateOrderNote    = "admin_update_order_note"
	procUpdateAdminNote    = "admin_update_admin_note"
	procAddAttachments     = "admin_add_attachments"
	procDeleteAttachment   = "admin_delete_attachment"
	procCreateItem         = "admin_create_item"
	procUpdateItem         = "admin_update_item"
	procDeleteItem         = "admin_delete_item"
	procAddItemImages      = "admin_add_item_images"
	procRemoveItemImages   = "admin_remove_item_images"
	procGetPaymentData     = "admin_get_payment_data"
	procUpdatePaymentState = "admin_update_payment_status"
	procUpdateServiceFee   = "admin_update_service_fee"
	procUpdatePaymentNote  = "admin_update_payment_note"
	procUpdateFinancials   = "admin_update_admin_financials"
	procUpdateProductSplit = "admin_update_product_split"
	procAddTransaction     = "admin_add_transaction"
	procDeleteTransaction  = "admin_delete_transaction"
	procListQuotes         = "admin_list_quotes"
	procCreateQuotes       = "admin_create_quotes"
	procDeleteQuote        = "admin_delete_quote"
	procGetCurrencyRates   = "admin_get_currency_rates"
)

type Service struct {
	db     *sql.DB
	logger *logrus.Logger
}

// Open connects with the postgres driver and waits up to wait for the
// database to answer.
func Open(ctx context.Context, dsn string, wait time.Duration, logger *logrus.Logger) (*Service, error) {
	db, err := sql.Open("postgres", dsn)
	if err != nil {
		return nil, fmt.Errorf("failed to open database: %w", err)
	}

	deadline := time.Now().Add(wait)
	for {
		err = db.PingContext(ctx)
		if err == nil {
			break
		}
		if time.Now().After(deadline) {
			db.Close()
			return nil, fmt.Errorf("failed to reach database: %w", err)
		}
		logger.Info("Waiting for database...")
		select {
		case <-ctx.Done():
			db.Close()
			return nil, ctx.Err()
		case <-time.After(2 * time.Second):
		}
	}

	logger.Info("Database connection established")
	return New(db, logger), nil
}

func New(db *sql.DB, logger *logrus.Logger) *Service {
	return &Service{db: db, logger: logger}
}

func (s *Service) Close() error {
	return s.db.Close()
}

// call runs SELECT proc($1..$n)::text and decodes the result into out. A
// null result leaves out untouched and reports found=false.
func (s *Service) call(ctx context.Context, proc string, out interface{}, args ...interface{}) (bool, error) {
	placeholders := make([]string, len(args))
	for i := range args {
		placeholders[i] = fmt.Sprintf("$%d", i+1)
	}
	query := fmt.Sprintf("SELECT %s(%s)::text", proc, strings.Join(placeholders, ", "))

	start := time.Now()
	var raw sql.NullString
	err := s.db.QueryRowContext(ctx, query, args...).Scan(&raw)

	s.logger.WithFields(logrus.Fields{
		"procedure": proc,
		"duration":  time.Since(start).Milliseconds(),
	}).Debug("Procedure executed")

	if err != nil {
		return false, fmt.Errorf("%s: %w", proc, translate(err))
	}
	if !raw.Valid || raw.String == "null" {
		return false, nil
	}
	if out == nil {
		return true, nil
	}
	if err := json.Unmarshal([]byte(raw.String), out); err != nil {
		return false, fmt.Errorf("%s: failed to decode result: %w", proc, err)
	}
	return true, nil
}

// translate maps server-side error codes onto the data service sentinels.
func translate(err error) error {
	if errors.Is(err, sql.ErrNoRows) {
		return dataservice.ErrNotFound
	}
	var pqErr *pq.Error
	if !errors.As(err, &pqErr) {
		return err
	}
	switch pqErr.Code {
	case "P0002", "23503":
		return fmt.Errorf("%s: %w", pqErr.Message, dataservice.ErrNotFound)
	case "P0001", "22023", "23514", "23505", "22P02":
		return fmt.Errorf("%s: %w", pqErr.Message, dataservice.ErrValidation)
	}
	return err
}

func jsonArg(v interface{}) (string, error) {
	data, err := json.Marshal(v)
	if err != nil {
		return "", fmt.Errorf("failed to marshal argument: %w", err)
	}
	return string(data), nil
}

func (s *Service) ResolveOrderID(ctx context.Context, lookup string) (string, error) {
	var id string
	if _, err := s.call(ctx, procResolveOrderID, &id, lookup); err != nil {
		return "", err
	}
	return id, nil
}

func (s *Service) GetOrderAggregate(ctx context.Context, orderID string) (*models.Aggregate, error) {
	var out models.Aggregate
	found, err := s.call(ctx, procGetOrderAggregate, &out, orderID)
	if err != nil {
		return nil, err
	}
	if !found {
		return nil, fmt.Errorf("order %s: %w", orderID, dataservice.ErrNotFound)
	}
	return &out, nil
}

func (s *Service) UpdateOrderStatus(ctx context.Context, orderID string, update models.StatusUpdate) (*models.OrderStatus, error) {
	arg, err := jsonArg(update)
	if err != nil {
		return nil, err
	}
	var out models.OrderStatus
	if _, err := s.call(ctx, procUpdateOrderStatus, &out, orderID, arg); err != nil {
		return nil, err
	}
	return &out, nil
}

func (s *Service) UpdateOrderNote(ctx context.Context, orderID, text string) (string, error) {
	var out string
	if _, err := s.call(ctx, procUpdateOrderNote, &out, orderID, text); err != nil {
		return "", err
	}
	return out, nil
}

func (s *Service) UpdateAdminNote(ctx context.Context, orderID, text string) (string, error) {
	var out string
	if _, err := s.call(ctx, procUpdateAdminNote, &out, orderID, text); err != nil {
		return "", err
	}
	return out, nil
}

func (s *Service) AddAttachments(ctx context.Context, orderID string, files []models.FileUpload) ([]models.Attachment, error) {
	arg, err := jsonArg(files)
	if err != nil {
		return nil, err
	}
	var out []models.Attachment
	if _, err := s.call(ctx, procAddAttachments, &out, orderID, arg); err != nil {
		return nil, err
	}
	return out, nil
}

func (s *Service) DeleteAttachment(ctx context.Context, orderID, attachmentID string) error {
	_, err := s.call(ctx, procDeleteAttachment, nil, orderID, attachmentID)
	return err
}

func (s *Service) CreateItem(ctx context.Context, orderID string, item models.Item) (*models.Item, error) {
	arg, err := jsonArg(item)
	if err != nil {
		return nil, err
	}
	var out models.Item
	if _, err := s.call(ctx, procCreateItem, &out, orderID, arg); err != nil {
		return nil, err
	}
	return &out, nil
}

func (s *Service) UpdateItem(ctx context.Context, itemID string, patch models.ItemPatch) (*models.Item, error) {
	arg, err := jsonArg(patch)
	if err != nil {
		return nil, err
	}
	var out models.Item
	if _, err := s.call(ctx, procUpdateItem, &out, itemID, arg); err != nil {
		return nil, err
	}
	return &out, nil
}

func (s *Service) DeleteItem(ctx context.Context, itemID string) error {
	_, err := s.call(ctx, procDeleteItem, nil, itemID)
	return err
}

func (s *Service) AddItemImages(ctx context.Context, itemID string, files []models.FileUpload) ([]models.Image, error) {
	arg, err := jsonArg(files)
	if err != nil {
		return nil, err
	}
	var out []models.Image
	if _, err := s.call(ctx, procAddItemImages, &out, itemID, arg); err != nil {
		return nil, err
	}
	return out, nil
}

func (s *Service) RemoveItemImages(ctx context.Context, itemID string, imageIDs []string) ([]string, error) {
	var out []string
	if _, err := s.call(ctx, procRemoveItemImages, &out, itemID, pq.Array(imageIDs)); err != nil {
		return nil, err
	}
	return out, nil
}

func (s *Service) GetPaymentData(ctx context.Context, orderID string) (*models.PaymentState, error) {
	var out models.PaymentState
	if _, err := s.call(ctx, procGetPaymentData, &out, orderID); err != nil {
		return nil, err
	}
	return &out, nil
}

func (s *Service) UpdatePaymentStatus(ctx context.Context, orderID string, status models.PaymentStatus) error {
	_, err := s.call(ctx, procUpdatePaymentState, nil, orderID, string(status))
	return err
}

func (s *Service) UpdateServiceFee(ctx context.Context, orderID string, pct decimal.Decimal) error {
	_, err := s.call(ctx, procUpdateServiceFee, nil, orderID, pct)
	return err
}

func (s *Service) UpdatePaymentNote(ctx context.Context, orderID, note string) error {
	_, err := s.call(ctx, procUpdatePaymentNote, nil, orderID, note)
	return err
}

func (s *Service) UpdateAdminFinancials(ctx context.Context, orderID string, figures models.AdminFinancials) error {
	_, err := s.call(ctx, procUpdateFinancials, nil, orderID, figures.AmountReceived, figures.AmountCosts)
	return err
}

func (s *Service) UpdateProductSplit(ctx context.Context, orderID string, split models.ProductSplit) error {
	_, err := s.call(ctx, procUpdateProductSplit, nil, orderID, split.ItemsValue, split.ShippingValue)
	return err
}

func (s *Service) AddTransaction(ctx context.Context, paymentID, orderID string, amount decimal.Decimal, note string) (*models.Transaction, error) {
	var out models.Transaction
	if _, err := s.call(ctx, procAddTransaction, &out, paymentID, orderID, amount, note); err != nil {
		return nil, err
	}
	return &out, nil
}

func (s *Service) DeleteTransaction(ctx context.Context, paymentID, orderID, transactionID string) error {
	_, err := s.call(ctx, procDeleteTransaction, nil, paymentID, orderID, transactionID)
	return err
}

func (s *Service) ListQuotes(ctx context.Context, orderID string) ([]models.Quote, error) {
	var out []models.Quote
	if _, err := s.call(ctx, procListQuotes, &out, orderID); err != nil {
		return nil, err
	}
	return out, nil
}

func (s *Service) CreateQuotes(ctx context.Context, orderID string, rows []models.QuoteDraft, validDays int) error {
	arg, err := jsonArg(rows)
	if err != nil {
		return err
	}
	_, err = s.call(ctx, procCreateQuotes, nil, orderID, arg, validDays)
	return err
}

func (s *Service) DeleteQuote(ctx context.Context, quoteID string) error {
	_, err := s.call(ctx, procDeleteQuote, nil, quoteID)
	return err
}

func (s *Service) GetCurrencyRates(ctx context.Context) (models.CurrencyRates, error) {
	out := models.CurrencyRates{}
	if _, err := s.call(ctx, procGetCurrencyRates, &out); err != nil {
		return nil, err
	}
	return out, nil
}

var _ dataservice.Service = (*Service)(nil)
