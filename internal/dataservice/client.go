package dataservice

import (
	"bytes"
	"context"
	"encoding/json"
	"errors"
	"fmt"
	"io"
	"net/http"
	"net/url"
	"time"

	"github.com/PolandExportFlow/polandexportflow-git-sub001/pkg/models"
	"github.com/shopspring/decimal"
	"github.com/sirupsen/logrus"
)

// Client speaks the data service's HTTP API.
type Client struct {
	baseURL    string
	httpClient *http.Client
	logger     *logrus.Logger
}

func NewClient(baseURL string, timeout time.Duration, logger *logrus.Logger) *Client {
	if timeout <= 0 {
		timeout = 10 * time.Second
	}
	return &Client{
		baseURL: baseURL,
		httpClient: &http.Client{
			Timeout: timeout,
		},
		logger: logger,
	}
}

type errorBody struct {
	Success bool   `json:"success"`
	Message string `json:"message"`
}

// do sends in as JSON and decodes the answer into out. Unknown response
// fields are rejected.
func (c *Client) do(ctx context.Context, op, method, path string, in, out interface{}) error {
	var body io.Reader
	if in != nil {
		data, err := json.Marshal(in)
		if err != nil {
			return fmt.Errorf("%s: failed to marshal request: %w", op, err)
		}
		body = bytes.NewReader(data)
	}

	req, err := http.NewRequestWithContext(ctx, method, c.baseURL+path, body)
	if err != nil {
		return fmt.Errorf("%s: failed to create request: %w", op, err)
	}
	if in != nil {
		req.Header.Set("Content-Type", "application/json")
	}
	req.Header.Set("Accept", "application/json")

	start := time.Now()
	resp, err := c.httpClient.Do(req)
	if err != nil {
		return fmt.Errorf("%s: failed to send request to data service: %w", op, err)
	}
	defer resp.Body.Close()

	c.logger.WithFields(logrus.Fields{
		"operation": op,
		"method":    method,
		"path":      path,
		"status":    resp.StatusCode,
		"duration":  time.Since(start).Milliseconds(),
	}).Debug("Data service responded")

	if resp.StatusCode < 200 || resp.StatusCode > 299 {
		var eb errorBody
		_ = json.NewDecoder(io.LimitReader(resp.Body, 64<<10)).Decode(&eb)
		return &StatusError{Op: op, StatusCode: resp.StatusCode, Message: eb.Message}
	}

	if out == nil {
		return nil
	}
	dec := json.NewDecoder(resp.Body)
	dec.DisallowUnknownFields()
	if err := dec.Decode(out); err != nil {
		return fmt.Errorf("%s: failed to decode data service response: %w", op, err)
	}
	return nil
}

func (c *Client) ResolveOrderID(ctx context.Context, lookup string) (string, error) {
	var out struct {
		OrderID string `json:"order_id"`
	}
	err := c.do(ctx, "resolve order id", http.MethodGet, "/orders/resolve?lookup="+url.QueryEscape(lookup), nil, &out)
	if errors.Is(err, ErrNotFound) {
		return "", nil
	}
	if err != nil {
		return "", err
	}
	return out.OrderID, nil
}

func (c *Client) GetOrderAggregate(ctx context.Context, orderID string) (*models.Aggregate, error) {
	var out models.Aggregate
	if err := c.do(ctx, "get order aggregate", http.MethodGet, "/orders/"+url.PathEscape(orderID), nil, &out); err != nil {
		return nil, err
	}
	return &out, nil
}

func (c *Client) UpdateOrderStatus(ctx context.Context, orderID string, update models.StatusUpdate) (*models.OrderStatus, error) {
	var out models.OrderStatus
	if err := c.do(ctx, "update order status", http.MethodPatch, "/orders/"+url.PathEscape(orderID)+"/status", update, &out); err != nil {
		return nil, err
	}
	return &out, nil
}

type textBody struct {
	Text string `json:"text"`
}

func (c *Client) UpdateOrderNote(ctx context.Context, orderID, text string) (string, error) {
	var out textBody
	if err := c.do(ctx, "update order note", http.MethodPut, "/orders/"+url.PathEscape(orderID)+"/note", textBody{Text: text}, &out); err != nil {
		return "", err
	}
	return out.Text, nil
}

func (c *Client) UpdateAdminNote(ctx context.Context, orderID, text string) (string, error) {
	var out textBody
	if err := c.do(ctx, "update admin note", http.MethodPut, "/orders/"+url.PathEscape(orderID)+"/admin-note", textBody{Text: text}, &out); err != nil {
		return "", err
	}
	return out.Text, nil
}

type filesBody struct {
	Files []models.FileUpload `json:"files"`
}

func (c *Client) AddAttachments(ctx context.Context, orderID string, files []models.FileUpload) ([]models.Attachment, error) {
	var out []models.Attachment
	if err := c.do(ctx, "add attachments", http.MethodPost, "/orders/"+url.PathEscape(orderID)+"/attachments", filesBody{Files: files}, &out); err != nil {
		return nil, err
	}
	return out, nil
}

func (c *Client) DeleteAttachment(ctx context.Context, orderID, attachmentID string) error {
	path := "/orders/" + url.PathEscape(orderID) + "/attachments/" + url.PathEscape(attachmentID)
	return c.do(ctx, "delete attachment", http.MethodDelete, path, nil, nil)
}

func (c *Client) CreateItem(ctx context.Context, orderID string, item models.Item) (*models.Item, error) {
	var out models.Item
	if err := c.do(ctx, "create item", http.MethodPost, "/orders/"+url.PathEscape(orderID)+"/items", item, &out); err != nil {
		return nil, err
	}
	return &out, nil
}

func (c *Client) UpdateItem(ctx context.Context, itemID string, patch models.ItemPatch) (*models.Item, error) {
	var out models.Item
	if err := c.do(ctx, "update item", http.MethodPatch, "/items/"+url.PathEscape(itemID), patch, &out); err != nil {
		return nil, err
	}
	return &out, nil
}

func (c *Client) DeleteItem(ctx context.Context, itemID string) error {
	return c.do(ctx, "delete item", http.MethodDelete, "/items/"+url.PathEscape(itemID), nil, nil)
}

func (c *Client) AddItemImages(ctx context.Context, itemID string, files []models.FileUpload) ([]models.Image, error) {
	var out []models.Image
	if err := c.do(ctx, "add item images", http.MethodPost, "/items/"+url.PathEscape(itemID)+"/images", filesBody{Files: files}, &out); err != nil {
		return nil, err
	}
	return out, nil
}

type imageIDsBody struct {
	ImageIDs []string `json:"image_ids"`
}

type deletedIDsBody struct {
	DeletedIDs []string `json:"deleted_ids"`
}

func (c *Client) RemoveItemImages(ctx context.Context, itemID string, imageIDs []string) ([]string, error) {
	var out deletedIDsBody
	if err := c.do(ctx, "remove item images", http.MethodPost, "/items/"+url.PathEscape(itemID)+"/images/remove", imageIDsBody{ImageIDs: imageIDs}, &out); err != nil {
		return nil, err
	}
	return out.DeletedIDs, nil
}

func (c *Client) GetPaymentData(ctx context.Context, orderID string) (*models.PaymentState, error) {
	var out models.PaymentState
	if err := c.do(ctx, "get payment data", http.MethodGet, "/orders/"+url.PathEscape(orderID)+"/payment", nil, &out); err != nil {
		return nil, err
	}
	return &out, nil
}

func (c *Client) paymentPath(orderID, suffix string) string {
	return "/orders/" + url.PathEscape(orderID) + "/payment/" + suffix
}

func (c *Client) UpdatePaymentStatus(ctx context.Context, orderID string, status models.PaymentStatus) error {
	body := struct {
		Status models.PaymentStatus `json:"payment_status"`
	}{status}
	return c.do(ctx, "update payment status", http.MethodPut, c.paymentPath(orderID, "status"), body, nil)
}

func (c *Client) UpdateServiceFee(ctx context.Context, orderID string, pct decimal.Decimal) error {
	body := struct {
		Pct decimal.Decimal `json:"service_fee_pct"`
	}{pct}
	return c.do(ctx, "update service fee", http.MethodPut, c.paymentPath(orderID, "service-fee"), body, nil)
}

func (c *Client) UpdatePaymentNote(ctx context.Context, orderID, note string) error {
	body := struct {
		Note string `json:"payment_note"`
	}{note}
	return c.do(ctx, "update payment note", http.MethodPut, c.paymentPath(orderID, "note"), body, nil)
}

func (c *Client) UpdateAdminFinancials(ctx context.Context, orderID string, figures models.AdminFinancials) error {
	return c.do(ctx, "update admin financials", http.MethodPut, c.paymentPath(orderID, "financials"), figures, nil)
}

func (c *Client) UpdateProductSplit(ctx context.Context, orderID string, split models.ProductSplit) error {
	return c.do(ctx, "update product split", http.MethodPut, c.paymentPath(orderID, "split"), split, nil)
}

// TransactionRequest is the body of an add-transaction call.
type TransactionRequest struct {
	OrderID string          `json:"order_id"`
	Amount  decimal.Decimal `json:"amount"`
	Note    string          `json:"note"`
}

func (c *Client) AddTransaction(ctx context.Context, paymentID, orderID string, amount decimal.Decimal, note string) (*models.Transaction, error) {
	var out models.Transaction
	body := TransactionRequest{OrderID: orderID, Amount: amount, Note: note}
	if err := c.do(ctx, "add transaction", http.MethodPost, "/payments/"+url.PathEscape(paymentID)+"/transactions", body, &out); err != nil {
		return nil, err
	}
	return &out, nil
}

func (c *Client) DeleteTransaction(ctx context.Context, paymentID, orderID, transactionID string) error {
	path := "/payments/" + url.PathEscape(paymentID) + "/transactions/" + url.PathEscape(transactionID) +
		"?order_id=" + url.QueryEscape(orderID)
	return c.do(ctx, "delete transaction", http.MethodDelete, path, nil, nil)
}

func (c *Client) ListQuotes(ctx context.Context, orderID string) ([]models.Quote, error) {
	var out []models.Quote
	if err := c.do(ctx, "list quotes", http.MethodGet, "/orders/"+url.PathEscape(orderID)+"/quotes", nil, &out); err != nil {
		return nil, err
	}
	return out, nil
}

// QuotesRequest is the body of a create-quotes call.
type QuotesRequest struct {
	Rows      []models.QuoteDraft `json:"rows"`
	ValidDays int                 `json:"valid_days"`
}

func (c *Client) CreateQuotes(ctx context.Context, orderID string, rows []models.QuoteDraft, validDays int) error {
	body := QuotesRequest{Rows: rows, ValidDays: validDays}
	return c.do(ctx, "create quotes", http.MethodPost, "/orders/"+url.PathEscape(orderID)+"/quotes", body, nil)
}

func (c *Client) DeleteQuote(ctx context.Context, quoteID string) error {
	return c.do(ctx, "delete quote", http.MethodDelete, "/quotes/"+url.PathEscape(quoteID), nil, nil)
}

func (c *Client) GetCurrencyRates(ctx context.Context) (models.CurrencyRates, error) {
	var out models.CurrencyRates
	if err := c.do(ctx, "get currency rates", http.MethodGet, "/currency-rates", nil, &out); err != nil {
		return nil, err
	}
	return out, nil
}
