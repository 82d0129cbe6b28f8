package aggregate

import (
	"github.com/PolandExportFlow/polandexportflow-git-sub001/internal/finance"
	"github.com/PolandExportFlow/polandexportflow-git-sub001/pkg/models"
	"github.com/shopspring/decimal"
)

// Totals are the money figures derived from the payment record. Amounts are
// in the base currency; Converted and the Converted* fields are in Currency.
type Totals struct {
	Currency  string            `json:"currency"`
	Breakdown finance.Breakdown `json:"breakdown"`
	Converted finance.Breakdown `json:"converted"`

	// LedgerTotal is the sum of ledger transactions. It is informational and
	// may differ from Received, which the admin edits independently.
	LedgerTotal      decimal.Decimal `json:"ledger_total"`
	Received         decimal.Decimal `json:"received"`
	Costs            decimal.Decimal `json:"costs"`
	Profit           decimal.Decimal `json:"profit"`
	BalanceDue       decimal.Decimal `json:"balance_due"`
	Overpayment      decimal.Decimal `json:"overpayment"`
	LedgerDivergence decimal.Decimal `json:"ledger_divergence"`

	ConvertedReceived   decimal.Decimal `json:"converted_received"`
	ConvertedBalanceDue decimal.Decimal `json:"converted_balance_due"`
}

// ComputeTotals derives Totals from a payment state. A missing payment record
// yields zero figures in the base currency.
func ComputeTotals(state models.PaymentState, rates models.CurrencyRates) Totals {
	t := Totals{Currency: finance.BaseCurrency}
	for _, tx := range state.Transactions {
		t.LedgerTotal = finance.Sum(t.LedgerTotal, tx.Amount)
	}

	p := state.Payment
	if p == nil {
		t.LedgerDivergence = t.LedgerTotal
		return t
	}
	if p.Currency != "" {
		t.Currency = p.Currency
	}

	t.Breakdown = finance.Compute(p.ItemsValue, p.ShippingValue, p.ServiceFeePct, p.PaymentFeePct)
	t.Converted = finance.ConvertBreakdown(t.Breakdown, rates, t.Currency)

	t.Received = finance.Round(p.AmountReceived)
	t.Costs = finance.Round(p.AmountCosts)
	t.Profit = finance.Profit(t.Received, t.Costs)
	t.BalanceDue = finance.BalanceDue(t.Breakdown.Total, t.Received)
	t.Overpayment = finance.Overpayment(t.Breakdown.Total, t.Received)
	t.LedgerDivergence = finance.Round(t.LedgerTotal.Sub(t.Received))

	t.ConvertedReceived = finance.Convert(t.Received, rates, t.Currency)
	t.ConvertedBalanceDue = finance.Convert(t.BalanceDue, rates, t.Currency)
	return t
}
