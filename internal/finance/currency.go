package finance

import (
	"fmt"

	"github.com/PolandExportFlow/polandexportflow-git-sub001/pkg/models"
	"github.com/shopspring/decimal"
)

// Rate returns the PLN price of one unit of code. The base currency, unknown
// codes and non-positive rates all resolve to 1.
func Rate(rates models.CurrencyRates, code string) decimal.Decimal {
	code = normalizeCode(code)
	if code == "" || code == BaseCurrency {
		return decimal.NewFromInt(1)
	}
	rate, ok := rates[code]
	if !ok || !rate.IsPositive() {
		return decimal.NewFromInt(1)
	}
	return rate
}

// Convert turns a base-currency amount into code.
func Convert(amount decimal.Decimal, rates models.CurrencyRates, code string) decimal.Decimal {
	return Round(amount.Div(Rate(rates, code)))
}

// ConvertBreakdown converts every monetary figure of b. Percentages are kept.
func ConvertBreakdown(b Breakdown, rates models.CurrencyRates, code string) Breakdown {
	conv := func(d decimal.Decimal) decimal.Decimal { return Convert(d, rates, code) }
	return Breakdown{
		ItemsValue:    conv(b.ItemsValue),
		ShippingValue: conv(b.ShippingValue),
		Subtotal:      conv(b.Subtotal),
		ServiceFeePct: b.ServiceFeePct,
		ServiceFee:    conv(b.ServiceFee),
		PaymentBase:   conv(b.PaymentBase),
		PaymentFeePct: b.PaymentFeePct,
		PaymentFee:    conv(b.PaymentFee),
		Total:         conv(b.Total),
	}
}

// Format renders a rounded amount with its currency.
func Format(amount decimal.Decimal, currency string) string {
	s := amount.StringFixed(places)
	switch code := normalizeCode(currency); code {
	case "EUR":
		return "€" + s
	case "USD":
		return "$" + s
	case "GBP":
		return "£" + s
	case "":
		return fmt.Sprintf("%s %s", s, BaseCurrency)
	default:
		return fmt.Sprintf("%s %s", s, code)
	}
}
