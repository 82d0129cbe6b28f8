package aggregate

import (
	"testing"

	"github.com/PolandExportFlow/polandexportflow-git-sub001/pkg/models"
	"github.com/stretchr/testify/assert"
)

func TestComputeTotals(t *testing.T) {
	rates := models.CurrencyRates{"EUR": d("4.30"), "USD": d("0")}

	tests := []struct {
		name        string
		payment     models.Payment
		ledger      []string
		total       string
		balanceDue  string
		overpayment string
		profit      string
		divergence  string
		converted   string
	}{
		{
			name:        "nothing received",
			payment:     models.Payment{Currency: "EUR", ItemsValue: d("1000"), ServiceFeePct: d("7"), PaymentFeePct: d("3.9")},
			total:       "1111.73",
			balanceDue:  "1111.73",
			overpayment: "0",
			profit:      "0",
			divergence:  "0",
			converted:   "258.54",
		},
		{
			name: "overpaid",
			payment: models.Payment{
				Currency:       "PLN",
				ItemsValue:     d("1000"),
				ServiceFeePct:  d("7"),
				PaymentFeePct:  d("3.9"),
				AmountReceived: d("1200"),
				AmountCosts:    d("950.50"),
			},
			ledger:      []string{"1000", "200"},
			total:       "1111.73",
			balanceDue:  "0",
			overpayment: "88.27",
			profit:      "249.50",
			divergence:  "0",
			converted:   "1111.73",
		},
		{
			name: "ledger diverges from received",
			payment: models.Payment{
				Currency:       "EUR",
				ItemsValue:     d("80"),
				ShippingValue:  d("20"),
				AmountReceived: d("50"),
			},
			ledger:      []string{"30.10", "45.25"},
			total:       "100",
			balanceDue:  "50",
			overpayment: "0",
			profit:      "50",
			divergence:  "25.35",
			converted:   "23.26",
		},
		{
			name:        "zero rate falls back to base",
			payment:     models.Payment{Currency: "USD", ItemsValue: d("99.99")},
			total:       "99.99",
			balanceDue:  "99.99",
			overpayment: "0",
			profit:      "0",
			divergence:  "0",
			converted:   "99.99",
		},
	}

	for _, tt := range tests {
		t.Run(tt.name, func(t *testing.T) {
			p := tt.payment
			state := models.PaymentState{Payment: &p}
			for _, amount := range tt.ledger {
				state.Transactions = append(state.Transactions, models.Transaction{Amount: d(amount)})
			}

			got := ComputeTotals(state, rates)
			assertAmount(t, tt.total, got.Breakdown.Total)
			assertAmount(t, tt.balanceDue, got.BalanceDue)
			assertAmount(t, tt.overpayment, got.Overpayment)
			assertAmount(t, tt.profit, got.Profit)
			assertAmount(t, tt.divergence, got.LedgerDivergence)
			assertAmount(t, tt.converted, got.Converted.Total)
			assert.Equal(t, p.Currency, got.Currency)
		})
	}
}

func TestComputeTotalsWithoutPayment(t *testing.T) {
	got := ComputeTotals(models.PaymentState{
		Transactions: []models.Transaction{{Amount: d("12.5")}},
	}, nil)

	assert.Equal(t, "PLN", got.Currency)
	assertAmount(t, "12.5", got.LedgerTotal)
	assertAmount(t, "12.5", got.LedgerDivergence)
	assert.True(t, got.Breakdown.Total.IsZero())
	assert.True(t, got.BalanceDue.IsZero())
}

func TestComputeTotalsConvertsReceivedAndBalance(t *testing.T) {
	got := ComputeTotals(models.PaymentState{Payment: &models.Payment{
		Currency:       "eur",
		ItemsValue:     d("430"),
		AmountReceived: d("215"),
	}}, models.CurrencyRates{"EUR": d("4.30")})

	assertAmount(t, "50", got.ConvertedReceived)
	assertAmount(t, "50", got.ConvertedBalanceDue)
}
