package services

import (
	"math"
	"testing"

	"github.com/example/oryxpos/internal/models"
)

func TestCanTransition(t *testing.T) {
	tests := []struct {
		name string
		from string
		to   string
		want bool
	}{
		{"created to kitchen", models.OrderStatusCreated, models.OrderStatusSentToKitchen, true},
		{"kitchen to served", models.OrderStatusSentToKitchen, models.OrderStatusServed, true},
		{"served to bill", models.OrderStatusServed, models.OrderStatusBillRequested, true},
		{"bill to paid", models.OrderStatusBillRequested, models.OrderStatusPaid, true},
		{"paid to closed", models.OrderStatusPaid, models.OrderStatusClosed, true},

		{"served back to kitchen", models.OrderStatusServed, models.OrderStatusSentToKitchen, true},
		{"bill back to kitchen", models.OrderStatusBillRequested, models.OrderStatusSentToKitchen, true},

		{"created skips to served", models.OrderStatusCreated, models.OrderStatusServed, false},
		{"created skips to paid", models.OrderStatusCreated, models.OrderStatusPaid, false},
		{"kitchen back to created", models.OrderStatusSentToKitchen, models.OrderStatusCreated, false},
		{"paid back to bill", models.OrderStatusPaid, models.OrderStatusBillRequested, false},
		{"paid back to kitchen", models.OrderStatusPaid, models.OrderStatusSentToKitchen, false},
		{"closed to anything", models.OrderStatusClosed, models.OrderStatusPaid, false},
		{"closed back to kitchen", models.OrderStatusClosed, models.OrderStatusSentToKitchen, false},
		{"unknown from", "LIMBO", models.OrderStatusPaid, false},
		{"unknown to", models.OrderStatusCreated, "LIMBO", false},
		{"self transition", models.OrderStatusServed, models.OrderStatusServed, false},
	}

	for _, tt := range tests {
		t.Run(tt.name, func(t *testing.T) {
			if got := canTransition(tt.from, tt.to); got != tt.want {
				t.Errorf("canTransition(%s, %s) = %v, want %v", tt.from, tt.to, got, tt.want)
			}
		})
	}
}

func TestComputeTotals(t *testing.T) {
	items := []models.OrderItem{
		{Quantity: 2, UnitPrice: 1.500, TotalPrice: 3.000},
		{Quantity: 1, UnitPrice: 3.000, TotalPrice: 3.000},
	}

	tests := []struct {
		name         string
		items        []models.OrderItem
		taxRate      float64
		discount     float64
		wantSubtotal float64
		wantTax      float64
		wantDiscount float64
		wantTotal    float64
	}{
		{
			name:         "no discount",
			items:        items,
			taxRate:      0.10,
			wantSubtotal: 6.000,
			wantTax:      0.600,
			wantTotal:    6.600,
		},
		{
			name:         "flat discount",
			items:        items,
			taxRate:      0.10,
			discount:     1.600,
			wantSubtotal: 6.000,
			wantTax:      0.600,
			wantDiscount: 1.600,
			wantTotal:    5.000,
		},
		{
			name:         "discount clamped to order value",
			items:        items,
			taxRate:      0.10,
			discount:     50.000,
			wantSubtotal: 6.000,
			wantTax:      0.600,
			wantDiscount: 6.600,
			wantTotal:    0,
		},
		{
			name:         "negative discount ignored",
			items:        items,
			taxRate:      0.10,
			discount:     -2,
			wantSubtotal: 6.000,
			wantTax:      0.600,
			wantTotal:    6.600,
		},
		{
			name:         "zero rate branch",
			items:        items,
			taxRate:      0,
			wantSubtotal: 6.000,
			wantTotal:    6.000,
		},
		{
			name:    "empty order",
			taxRate: 0.10,
		},
	}

	for _, tt := range tests {
		t.Run(tt.name, func(t *testing.T) {
			subtotal, tax, discount, total := computeTotals(tt.items, tt.taxRate, tt.discount)
			checkAmount(t, "subtotal", subtotal, tt.wantSubtotal)
			checkAmount(t, "tax", tax, tt.wantTax)
			checkAmount(t, "discount", discount, tt.wantDiscount)
			checkAmount(t, "total", total, tt.wantTotal)
		})
	}
}

func checkAmount(t *testing.T, field string, got, want float64) {
	t.Helper()
	if math.Abs(got-want) > 1e-9 {
		t.Errorf("%s = %.3f, want %.3f", field, got, want)
	}
}
