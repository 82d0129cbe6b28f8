package finance

import (
	"math"
	"testing"

	"github.com/PolandExportFlow/polandexportflow-git-sub001/pkg/models"
	"github.com/shopspring/decimal"
	"github.com/stretchr/testify/assert"
)

func d(s string) decimal.Decimal {
	return decimal.RequireFromString(s)
}

func assertAmount(t *testing.T, want string, got decimal.Decimal) {
	t.Helper()
	assert.Equal(t, want, got.StringFixed(2))
}

func TestComputeRoundsEachStep(t *testing.T) {
	b := Compute(d("1000"), decimal.Zero, d("7"), d("3.9"))

	assertAmount(t, "1000.00", b.Subtotal)
	assertAmount(t, "70.00", b.ServiceFee)
	assertAmount(t, "1070.00", b.PaymentBase)
	assertAmount(t, "41.73", b.PaymentFee)
	assertAmount(t, "1111.73", b.Total)
}

func TestComputeSplitsItemsAndShipping(t *testing.T) {
	b := Compute(d("333.335"), d("0.004"), d("10"), d("2.5"))

	// 333.34 + 0.00
	assertAmount(t, "333.34", b.Subtotal)
	assertAmount(t, "33.33", b.ServiceFee)
	assertAmount(t, "366.67", b.PaymentBase)
	assertAmount(t, "9.17", b.PaymentFee)
	assertAmount(t, "375.84", b.Total)
}

func TestComputeNegativePercentagesAreZero(t *testing.T) {
	b := Compute(d("200"), d("50"), d("-5"), d("-1"))

	assertAmount(t, "0.00", b.ServiceFee)
	assertAmount(t, "0.00", b.PaymentFee)
	assertAmount(t, "250.00", b.Total)
}

func TestServiceAndPaymentFee(t *testing.T) {
	fee := ServiceFee(d("1000"), d("7"))
	assertAmount(t, "70.00", fee)
	assertAmount(t, "41.73", PaymentFee(d("1000"), fee, d("3.9")))
}

func TestProfitAndBalance(t *testing.T) {
	tests := []struct {
		name        string
		total       string
		received    string
		costs       string
		wantProfit  string
		wantBalance string
		wantOver    string
	}{
		{"nothing received", "1111.73", "0", "0", "0.00", "1111.73", "0.00"},
		{"partially paid", "1111.73", "500", "320.50", "179.50", "611.73", "0.00"},
		{"overpaid", "100", "150.10", "80", "70.10", "0.00", "50.10"},
		{"costs exceed revenue", "100", "100", "120", "-20.00", "0.00", "0.00"},
	}

	for _, tt := range tests {
		t.Run(tt.name, func(t *testing.T) {
			assertAmount(t, tt.wantProfit, Profit(d(tt.received), d(tt.costs)))
			assertAmount(t, tt.wantBalance, BalanceDue(d(tt.total), d(tt.received)))
			assertAmount(t, tt.wantOver, Overpayment(d(tt.total), d(tt.received)))
		})
	}
}

func TestBalanceDueNeverNegative(t *testing.T) {
	for total := 0; total <= 500; total += 37 {
		for received := 0; received <= 500; received += 41 {
			got := BalanceDue(decimal.NewFromInt(int64(total)), decimal.NewFromInt(int64(received)))
			assert.False(t, got.IsNegative(), "total=%d received=%d", total, received)
		}
	}
}

func TestSum(t *testing.T) {
	assertAmount(t, "0.00", Sum())
	assertAmount(t, "300.30", Sum(d("200"), d("100.10"), d("0.2")))
}

func TestFromFloatClampsNonFinite(t *testing.T) {
	assert.True(t, FromFloat(math.NaN()).IsZero())
	assert.True(t, FromFloat(math.Inf(1)).IsZero())
	assert.True(t, FromFloat(math.Inf(-1)).IsZero())
	assertAmount(t, "12.50", FromFloat(12.5))
}

func TestConvert(t *testing.T) {
	rates := models.CurrencyRates{
		"PLN":  d("1"),
		"EUR":  d("4.30"),
		"ZERO": decimal.Zero,
		"NEG":  d("-2"),
	}

	tests := []struct {
		name string
		code string
		want string
	}{
		{"base currency", "PLN", "1111.73"},
		{"lower case code", "eur", "258.54"},
		{"unknown code falls back", "XYZ", "1111.73"},
		{"zero rate clamps", "ZERO", "1111.73"},
		{"negative rate clamps", "NEG", "1111.73"},
		{"empty code", "", "1111.73"},
	}

	for _, tt := range tests {
		t.Run(tt.name, func(t *testing.T) {
			assertAmount(t, tt.want, Convert(d("1111.73"), rates, tt.code))
		})
	}
}

func TestConvertUnknownCodeWithBaseOnlyTable(t *testing.T) {
	got := Convert(d("250.00"), models.CurrencyRates{"PLN": d("1")}, "XYZ")
	assertAmount(t, "250.00", got)
}

func TestConvertNilTable(t *testing.T) {
	assertAmount(t, "99.99", Convert(d("99.99"), nil, "EUR"))
}

func TestConvertBreakdownKeepsPercentages(t *testing.T) {
	b := Compute(d("1000"), decimal.Zero, d("7"), d("3.9"))
	eur := ConvertBreakdown(b, models.CurrencyRates{"EUR": d("4")}, "EUR")

	assertAmount(t, "250.00", eur.Subtotal)
	assertAmount(t, "17.50", eur.ServiceFee)
	assertAmount(t, "10.43", eur.PaymentFee)
	assertAmount(t, "277.93", eur.Total)
	assert.True(t, eur.ServiceFeePct.Equal(d("7")))
	assert.True(t, eur.PaymentFeePct.Equal(d("3.9")))
}

func TestFormat(t *testing.T) {
	assert.Equal(t, "€10.50", Format(d("10.5"), "eur"))
	assert.Equal(t, "$1.00", Format(d("1"), "USD"))
	assert.Equal(t, "£3.33", Format(d("3.333"), "GBP"))
	assert.Equal(t, "1111.73 PLN", Format(d("1111.73"), "PLN"))
	assert.Equal(t, "7.00 PLN", Format(d("7"), ""))
	assert.Equal(t, "2.00 CHF", Format(d("2"), "chf"))
}
