package calc

import (
	"sort"
	"strings"

	"umrah-backoffice/internal/domain"
)

type SortField string

const (
	SortByDate   SortField = "date"
	SortByAmount SortField = "amount"
	SortByClient SortField = "client"
)

// InvoiceFilter narrows and orders an invoice list. Zero values mean "all",
// newest first.
type InvoiceFilter struct {
	Search     string               `form:"search"`
	Status     domain.InvoiceStatus `form:"status"`
	VisaStatus domain.VisaStatus    `form:"visaStatus"`
	AgentID    string               `form:"agentId"`
	SortBy     SortField            `form:"sortBy"`
	Ascending  bool                 `form:"asc"`
}

// FilterInvoices applies f and returns a new slice; invoices is not modified.
func FilterInvoices(invoices []domain.Invoice, f InvoiceFilter) []domain.Invoice {
	term := strings.ToLower(strings.TrimSpace(f.Search))

	out := make([]domain.Invoice, 0, len(invoices))
	for _, inv := range invoices {
		if f.Status != "" && inv.Status != f.Status {
			continue
		}
		if f.VisaStatus != "" && inv.VisaStatus != f.VisaStatus {
			continue
		}
		if f.AgentID != "" && inv.AgentID != f.AgentID {
			continue
		}
		if term != "" && !matchesSearch(inv, term) {
			continue
		}
		out = append(out, inv)
	}

	less := compareBy(f.SortBy)
	sort.SliceStable(out, func(i, j int) bool {
		if f.Ascending {
			return less(out[i], out[j])
		}
		return less(out[j], out[i])
	})
	return out
}

func matchesSearch(inv domain.Invoice, term string) bool {
	var name, email string
	if inv.Client != nil {
		name, email = inv.Client.Name, inv.Client.Email
	}
	return strings.Contains(strings.ToLower(name), term) ||
		strings.Contains(strings.ToLower(inv.InvoiceNumber), term) ||
		strings.Contains(strings.ToLower(email), term)
}

func compareBy(field SortField) func(a, b domain.Invoice) bool {
	switch field {
	case SortByAmount:
		return func(a, b domain.Invoice) bool { return a.Total < b.Total }
	case SortByClient:
		return func(a, b domain.Invoice) bool {
			return strings.ToLower(clientName(a)) < strings.ToLower(clientName(b))
		}
	default:
		return func(a, b domain.Invoice) bool { return a.CreatedAt.Before(b.CreatedAt) }
	}
}

func clientName(inv domain.Invoice) string {
	if inv.Client == nil {
		return ""
	}
	return inv.Client.Name
}

// Summary totals a (usually filtered) invoice list.
type Summary struct {
	TotalInvoices int     `json:"totalInvoices"`
	TotalAmount   float64 `json:"totalAmount"`
	PaidAmount    float64 `json:"paidAmount"`
	PendingAmount float64 `json:"pendingAmount"`
}

func Summarize(invoices []domain.Invoice) Summary {
	s := Summary{TotalInvoices: len(invoices)}
	for _, inv := range invoices {
		s.TotalAmount += inv.Total
		switch inv.Status {
		case domain.StatusPaid:
			s.PaidAmount += inv.Total
		case domain.StatusSent:
			s.PendingAmount += inv.Total
		}
	}
	return s
}
