package models

import (
	"time"

	"github.com/shopspring/decimal"
)

type QuoteStatus string

const (
	QuoteProposed QuoteStatus = "proposed"
	QuoteAccepted QuoteStatus = "accepted"
)

// Quote is a shipping offer for an order. The server keeps at most one
// accepted quote per order; the client only mirrors that.
type Quote struct {
	ID           string          `json:"id"`
	OrderID      string          `json:"order_id"`
	CarrierKey   string          `json:"carrier_key"`
	CarrierLabel string          `json:"carrier_label"`
	Price        decimal.Decimal `json:"price"`
	DaysMin      int             `json:"days_min"`
	DaysMax      int             `json:"days_max"`
	Note         string          `json:"note"`
	Status       QuoteStatus     `json:"status"`
	ExpiresAt    time.Time       `json:"expires_at"`
	CreatedAt    time.Time       `json:"created_at"`
}

// QuoteDraft is one row of a createQuotes request.
type QuoteDraft struct {
	CarrierKey   string          `json:"carrier_key"`
	CarrierLabel string          `json:"carrier_label"`
	Price        decimal.Decimal `json:"price"`
	DaysMin      int             `json:"days_min"`
	DaysMax      int             `json:"days_max"`
	Note         string          `json:"note"`
}

// AcceptedQuote returns the first accepted quote, if any.
func AcceptedQuote(quotes []Quote) (Quote, bool) {
	for _, q := range quotes {
		if q.Status == QuoteAccepted {
			return q, true
		}
	}
	return Quote{}, false
}
