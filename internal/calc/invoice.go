// Package calc holds the pure invoice and dashboard arithmetic.
package calc

import (
	"fmt"
	"math/rand/v2"
	"time"

	"umrah-backoffice/internal/domain"
)

func ItemTotal(quantity, unitPrice float64) float64 {
	return quantity * unitPrice
}

func Subtotal(items []domain.InvoiceItem) float64 {
	var sum float64
	for _, it := range items {
		sum += it.Total
	}
	return sum
}

func Tax(subtotal, rate float64) float64 {
	return subtotal * rate
}

func Total(subtotal, tax float64) float64 {
	return subtotal + tax
}

// InvoiceTotals is the computed money block of an invoice.
type InvoiceTotals struct {
	Subtotal float64 `json:"subtotal"`
	Tax      float64 `json:"tax"`
	Total    float64 `json:"total"`
}

// Totals recomputes every line total in place and returns the invoice totals.
func Totals(items []domain.InvoiceItem, taxRate float64) InvoiceTotals {
	for i := range items {
		items[i].Total = ItemTotal(items[i].Quantity, items[i].UnitPrice)
	}
	sub := Subtotal(items)
	tax := Tax(sub, taxRate)
	return InvoiceTotals{Subtotal: sub, Tax: tax, Total: Total(sub, tax)}
}

// InvoiceNumber formats INV-YYYYMMDD-NNN using now's calendar date.
// rnd may be nil.
func InvoiceNumber(now time.Time, rnd *rand.Rand) string {
	var n int
	if rnd != nil {
		n = rnd.IntN(1000)
	} else {
		n = rand.IntN(1000)
	}
	return fmt.Sprintf("INV-%s-%03d", now.Format("20060102"), n)
}
