package models

import "time"

// Resource names used by the change-notification channel.
const (
	ResourceOrders       = "orders"
	ResourcePayments     = "order_payments"
	ResourceTransactions = "order_payment_transactions"
	ResourceQuotes       = "order_quotes"
	ResourceItems        = "order_items"
	ResourceItemImages   = "order_item_images"
	ResourceAttachments  = "order_attachments"
)

// DefaultWatchedResources is what an order aggregate listens to.
var DefaultWatchedResources = []string{
	ResourceOrders,
	ResourcePayments,
	ResourceTransactions,
	ResourceQuotes,
	ResourceItems,
	ResourceItemImages,
	ResourceAttachments,
}

// Change says that something under Resource changed. OrderID is a hint and
// may be empty; consumers must not rely on it.
type Change struct {
	Resource string    `json:"resource"`
	OrderID  string    `json:"order_id,omitempty"`
	At       time.Time `json:"at"`
}
