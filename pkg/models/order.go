package models

import (
	"strings"
	"time"

	"github.com/google/uuid"
)

// TemporaryIDPrefix marks identifiers generated on the client for records the
// server has not persisted yet. Server-assigned ids never carry it.
const TemporaryIDPrefix = "tmp-"

func NewTemporaryID() string {
	return TemporaryIDPrefix + uuid.New().String()
}

func IsTemporaryID(id string) bool {
	return strings.HasPrefix(id, TemporaryIDPrefix)
}

type OrderStatusCode string

const (
	StatusCreated    OrderStatusCode = "created"
	StatusSubmitted  OrderStatusCode = "submitted"
	StatusQuoted     OrderStatusCode = "quote_ready"
	StatusAwaitPay   OrderStatusCode = "awaiting_payment"
	StatusPaid       OrderStatusCode = "paid"
	StatusProcessing OrderStatusCode = "processing"
	StatusShipped    OrderStatusCode = "shipped"
	StatusDelivered  OrderStatusCode = "delivered"
	StatusCancelled  OrderStatusCode = "cancelled"
)

func (s OrderStatusCode) IsValid() bool {
	switch s {
	case StatusCreated, StatusSubmitted, StatusQuoted, StatusAwaitPay, StatusPaid,
		StatusProcessing, StatusShipped, StatusDelivered, StatusCancelled:
		return true
	}
	return false
}

// ServiceType is the order source: which service the client ordered.
type ServiceType string

const (
	ServiceForwarding    ServiceType = "parcel_forwarding"
	ServicePurchase      ServiceType = "assisted_purchase"
	ServiceConsolidation ServiceType = "consolidation"
	ServiceExport        ServiceType = "export"
)

func (s ServiceType) IsValid() bool {
	switch s {
	case ServiceForwarding, ServicePurchase, ServiceConsolidation, ServiceExport:
		return true
	}
	return false
}

// OrderStatus is the identity and classification block of an order.
type OrderStatus struct {
	ID            string          `json:"id"`
	Number        string          `json:"order_number"`
	Status        OrderStatusCode `json:"status"`
	Source        ServiceType     `json:"source"`
	CustomerName  string          `json:"customer_name"`
	CustomerEmail string          `json:"customer_email"`
	CreatedAt     time.Time       `json:"created_at"`
	UpdatedAt     time.Time       `json:"updated_at"`
}

// Notes holds the client-visible order note and the internal admin note.
type Notes struct {
	OrderNote string `json:"order_note"`
	AdminNote string `json:"admin_note"`
}

// Aggregate is the full read model returned by the data service for one order.
type Aggregate struct {
	Status       OrderStatus   `json:"status"`
	Attachments  []Attachment  `json:"attachments"`
	Items        []Item        `json:"items"`
	OrderNote    string        `json:"order_note"`
	AdminNote    string        `json:"admin_note"`
	Payment      *Payment      `json:"payment"`
	Transactions []Transaction `json:"transactions"`
}

func (a Aggregate) Notes() Notes {
	return Notes{OrderNote: a.OrderNote, AdminNote: a.AdminNote}
}

// StatusUpdate is the partial change accepted by updateOrderStatus. Nil
// fields are left untouched by the server.
type StatusUpdate struct {
	Status *OrderStatusCode `json:"status,omitempty"`
	Source *ServiceType     `json:"source,omitempty"`
}

func (u StatusUpdate) Apply(s OrderStatus) OrderStatus {
	if u.Status != nil {
		s.Status = *u.Status
	}
	if u.Source != nil {
		s.Source = *u.Source
	}
	return s
}
