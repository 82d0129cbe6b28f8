package models

import (
	"time"

	"github.com/shopspring/decimal"
)

type PaymentStatus string

const (
	PaymentUnpaid   PaymentStatus = "unpaid"
	PaymentPending  PaymentStatus = "pending"
	PaymentPartial  PaymentStatus = "partially_paid"
	PaymentPaid     PaymentStatus = "paid"
	PaymentRefunded PaymentStatus = "refunded"
)

func (s PaymentStatus) IsValid() bool {
	switch s {
	case PaymentUnpaid, PaymentPending, PaymentPartial, PaymentPaid, PaymentRefunded:
		return true
	}
	return false
}

// Payment is the single payment record of an order. ItemsValue and
// ShippingValue are the subtotal inputs; AmountReceived and AmountCosts are
// the admin-entered rollups.
type Payment struct {
	ID             string          `json:"id"`
	OrderID        string          `json:"order_id"`
	Currency       string          `json:"currency"`
	MethodCode     string          `json:"payment_method_code"`
	Status         PaymentStatus   `json:"payment_status"`
	ServiceFeePct  decimal.Decimal `json:"service_fee_pct"`
	PaymentFeePct  decimal.Decimal `json:"payment_fee_pct"`
	ItemsValue     decimal.Decimal `json:"items_value"`
	ShippingValue  decimal.Decimal `json:"shipping_value"`
	AmountReceived decimal.Decimal `json:"admin_amount_received"`
	AmountCosts    decimal.Decimal `json:"admin_amount_costs"`
	Note           string          `json:"payment_note"`
	UpdatedAt      time.Time       `json:"updated_at"`
}

// Transaction is an append-only ledger entry under a payment.
type Transaction struct {
	ID        string          `json:"id"`
	PaymentID string          `json:"payment_id"`
	Amount    decimal.Decimal `json:"amount"`
	Note      string          `json:"note"`
	CreatedAt time.Time       `json:"created_at"`
}

// PaymentState is what getPaymentData returns and what the payment store holds.
type PaymentState struct {
	Payment      *Payment      `json:"payment"`
	Transactions []Transaction `json:"transactions"`
}

// AdminFinancials carries the two admin rollup figures.
type AdminFinancials struct {
	AmountReceived decimal.Decimal `json:"admin_amount_received"`
	AmountCosts    decimal.Decimal `json:"admin_amount_costs"`
}

// ProductSplit carries the items/shipping subtotal inputs.
type ProductSplit struct {
	ItemsValue    decimal.Decimal `json:"items_value"`
	ShippingValue decimal.Decimal `json:"shipping_value"`
}

// CurrencyRates maps a currency code to its price in PLN per unit.
type CurrencyRates map[string]decimal.Decimal
