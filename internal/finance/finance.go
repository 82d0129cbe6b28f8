// Package finance derives the money figures shown for an order from the
// authoritative payment fields. Every amount is rounded to two decimal places
// after each step so results match the server's rounding.
package finance

import (
	"math"
	"strings"

	"github.com/shopspring/decimal"
)

const (
	BaseCurrency = "PLN"
	places       = 2
)

var hundred = decimal.NewFromInt(100)

// Breakdown is the receipt for an order's payment.
type Breakdown struct {
	ItemsValue    decimal.Decimal `json:"items_value"`
	ShippingValue decimal.Decimal `json:"shipping_value"`
	Subtotal      decimal.Decimal `json:"subtotal"`
	ServiceFeePct decimal.Decimal `json:"service_fee_pct"`
	ServiceFee    decimal.Decimal `json:"service_fee"`
	PaymentBase   decimal.Decimal `json:"payment_base"`
	PaymentFeePct decimal.Decimal `json:"payment_fee_pct"`
	PaymentFee    decimal.Decimal `json:"payment_fee"`
	Total         decimal.Decimal `json:"total"`
}

func Round(d decimal.Decimal) decimal.Decimal {
	return d.Round(places)
}

// FromFloat converts a float input, mapping NaN and infinities to zero.
func FromFloat(f float64) decimal.Decimal {
	if math.IsNaN(f) || math.IsInf(f, 0) {
		return decimal.Zero
	}
	return decimal.NewFromFloat(f)
}

// Percent returns amount*pct/100 rounded. Negative percentages count as zero.
func Percent(amount, pct decimal.Decimal) decimal.Decimal {
	if pct.IsNegative() {
		pct = decimal.Zero
	}
	return Round(amount.Mul(pct).Div(hundred))
}

func ServiceFee(subtotal, serviceFeePct decimal.Decimal) decimal.Decimal {
	return Percent(subtotal, serviceFeePct)
}

// PaymentFee is charged on subtotal plus service fee.
func PaymentFee(subtotal, serviceFee, paymentFeePct decimal.Decimal) decimal.Decimal {
	return Percent(Round(subtotal.Add(serviceFee)), paymentFeePct)
}

// Compute builds the full breakdown from the subtotal inputs and the two fee
// percentages.
func Compute(itemsValue, shippingValue, serviceFeePct, paymentFeePct decimal.Decimal) Breakdown {
	b := Breakdown{
		ItemsValue:    Round(itemsValue),
		ShippingValue: Round(shippingValue),
		ServiceFeePct: clampPct(serviceFeePct),
		PaymentFeePct: clampPct(paymentFeePct),
	}
	b.Subtotal = Round(b.ItemsValue.Add(b.ShippingValue))
	b.ServiceFee = ServiceFee(b.Subtotal, b.ServiceFeePct)
	b.PaymentBase = Round(b.Subtotal.Add(b.ServiceFee))
	b.PaymentFee = Percent(b.PaymentBase, b.PaymentFeePct)
	b.Total = Round(b.PaymentBase.Add(b.PaymentFee))
	return b
}

func Profit(received, costs decimal.Decimal) decimal.Decimal {
	return Round(received.Sub(costs))
}

// BalanceDue is never negative.
func BalanceDue(total, received decimal.Decimal) decimal.Decimal {
	return decimal.Max(decimal.Zero, Round(total.Sub(received)))
}

// Overpayment is what was received above the total, never negative.
func Overpayment(total, received decimal.Decimal) decimal.Decimal {
	return decimal.Max(decimal.Zero, Round(received.Sub(total)))
}

// Sum adds amounts rounding after each addition.
func Sum(amounts ...decimal.Decimal) decimal.Decimal {
	total := decimal.Zero
	for _, a := range amounts {
		total = Round(total.Add(a))
	}
	return total
}

func clampPct(pct decimal.Decimal) decimal.Decimal {
	if pct.IsNegative() {
		return decimal.Zero
	}
	return pct
}

func normalizeCode(code string) string {
	return strings.ToUpper(strings.TrimSpace(code))
}
