package calc

import (
	"math/rand/v2"
	"regexp"
	"testing"
	"time"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"

	"umrah-backoffice/internal/domain"
)

func TestTotals(t *testing.T) {
	items := []domain.InvoiceItem{
		{Description: "Umrah package", Quantity: 2, UnitPrice: 15000},
		{Description: "Visa", Quantity: 1, UnitPrice: 1200.5},
		{Description: "Transfer", Quantity: 3, UnitPrice: 0},
	}

	got := Totals(items, 0)
	assert.Equal(t, 30000.0, items[0].Total)
	assert.Equal(t, 1200.5, items[1].Total)
	assert.Equal(t, 31200.5, got.Subtotal)
	assert.Zero(t, got.Tax)
	assert.Equal(t, got.Subtotal+got.Tax, got.Total)

	withTax := Totals(items, 0.1)
	assert.InDelta(t, 3120.05, withTax.Tax, 1e-9)
	assert.InDelta(t, withTax.Subtotal+withTax.Tax, withTax.Total, 1e-9)
}

func TestTotals_Empty(t *testing.T) {
	got := Totals(nil, 0.2)
	assert.Equal(t, InvoiceTotals{}, got)
	assert.Zero(t, Subtotal(nil))
}

func TestInvoiceNumber(t *testing.T) {
	now := time.Date(2026, 3, 7, 10, 0, 0, 0, time.UTC)
	n := InvoiceNumber(now, rand.New(rand.NewPCG(1, 2)))
	assert.Regexp(t, regexp.MustCompile(`^INV-20260307-\d{3}$`), n)
}

func sampleInvoices(now time.Time) []domain.Invoice {
	yesterday := now.Add(-24 * time.Hour)
	return []domain.Invoice{
		{ID: "1", AgentID: "a1", Status: domain.StatusPaid, Total: 100, CreatedAt: now.Add(-time.Hour), InvoiceNumber: "INV-1", Client: &domain.Client{Name: "Ahmed Ali", Email: "ahmed@example.com"}},
		{ID: "2", AgentID: "a1", Status: domain.StatusSent, Total: 50, CreatedAt: yesterday, InvoiceNumber: "INV-2", Client: &domain.Client{Name: "Fatima Zahra"}, VisaStatus: domain.VisaIssued},
		{ID: "3", AgentID: "a2", Status: domain.StatusDraft, Total: 75, CreatedAt: now.Add(-2 * time.Hour), InvoiceNumber: "INV-3"},
		{ID: "4", AgentID: "a2", Status: domain.StatusOverdue, Total: 20, CreatedAt: yesterday.Add(-time.Hour), InvoiceNumber: "INV-4", Client: &domain.Client{Name: "brahim Idrissi"}},
		{ID: "5", AgentID: "a2", Status: domain.StatusPaid, Total: 300, CreatedAt: yesterday.Add(-2 * time.Hour), InvoiceNumber: "INV-5", Client: &domain.Client{Name: "Zineb"}},
	}
}

func TestStats(t *testing.T) {
	now := time.Date(2026, 5, 10, 15, 0, 0, 0, time.UTC)
	stats := Stats(sampleInvoices(now))

	assert.Equal(t, 5, stats.TotalInvoices)
	assert.Equal(t, 400.0, stats.TotalRevenue)
	assert.Equal(t, 2, stats.PaidInvoices)
	assert.Equal(t, 2, stats.PendingInvoices)
	assert.Equal(t, 1, stats.OverdueInvoices)
	require.Len(t, stats.RecentInvoices, 5)
	assert.Equal(t, "1", stats.RecentInvoices[0].ID)

	empty := Stats(nil)
	assert.Zero(t, empty.TotalRevenue)
	assert.Empty(t, empty.RecentInvoices)
}

func TestTodaysInvoices_UsesCreationDate(t *testing.T) {
	now := time.Date(2026, 5, 10, 15, 0, 0, 0, time.UTC)
	due := now
	invoices := sampleInvoices(now)
	invoices[1].DueDate = &due

	today := TodaysInvoices(invoices, now)
	ids := make([]string, 0, len(today))
	for _, inv := range today {
		ids = append(ids, inv.ID)
	}
	assert.ElementsMatch(t, []string{"1", "3"}, ids)
}

func TestAgentPerformance(t *testing.T) {
	now := time.Date(2026, 5, 10, 15, 0, 0, 0, time.UTC)
	agents := []domain.Agent{
		{ID: "d1", Role: domain.RoleDirector},
		{ID: "a1", Role: domain.RoleAgent},
		{ID: "a2", Role: domain.RoleAgent},
		{ID: "a3", Role: domain.RoleAgent},
	}

	rows := AgentPerformance(agents, sampleInvoices(now), now)
	require.Len(t, rows, 3)

	assert.Equal(t, "a1", rows[0].Agent.ID)
	assert.Equal(t, 2, rows[0].TotalInvoices)
	assert.Equal(t, 1, rows[0].TodayInvoices)
	assert.Equal(t, 100.0, rows[0].TotalRevenue)
	assert.Equal(t, 50, rows[0].SuccessRate)

	assert.Equal(t, 3, rows[1].TotalInvoices)
	assert.Equal(t, 33, rows[1].SuccessRate)

	assert.Zero(t, rows[2].TotalInvoices)
	assert.Zero(t, rows[2].SuccessRate)
}

func TestFilterInvoices(t *testing.T) {
	now := time.Date(2026, 5, 10, 15, 0, 0, 0, time.UTC)
	invoices := sampleInvoices(now)

	byName := FilterInvoices(invoices, InvoiceFilter{Search: "FATIMA"})
	require.Len(t, byName, 1)
	assert.Equal(t, "2", byName[0].ID)

	byEmail := FilterInvoices(invoices, InvoiceFilter{Search: "ahmed@"})
	require.Len(t, byEmail, 1)

	byNumber := FilterInvoices(invoices, InvoiceFilter{Search: "inv-3"})
	require.Len(t, byNumber, 1)

	paid := FilterInvoices(invoices, InvoiceFilter{Status: domain.StatusPaid, AgentID: "a2"})
	require.Len(t, paid, 1)
	assert.Equal(t, "5", paid[0].ID)

	visa := FilterInvoices(invoices, InvoiceFilter{VisaStatus: domain.VisaIssued})
	require.Len(t, visa, 1)

	newest := FilterInvoices(invoices, InvoiceFilter{})
	assert.Equal(t, "1", newest[0].ID)
	assert.Equal(t, "5", newest[len(newest)-1].ID)

	byAmount := FilterInvoices(invoices, InvoiceFilter{SortBy: SortByAmount, Ascending: true})
	assert.Equal(t, "4", byAmount[0].ID)
	assert.Equal(t, "5", byAmount[len(byAmount)-1].ID)

	byClient := FilterInvoices(invoices, InvoiceFilter{SortBy: SortByClient, Ascending: true})
	assert.Equal(t, "3", byClient[0].ID)
	assert.Equal(t, "5", byClient[len(byClient)-1].ID)
}

func TestSummarize(t *testing.T) {
	now := time.Date(2026, 5, 10, 15, 0, 0, 0, time.UTC)
	s := Summarize(sampleInvoices(now))
	assert.Equal(t, 5, s.TotalInvoices)
	assert.Equal(t, 545.0, s.TotalAmount)
	assert.Equal(t, 400.0, s.PaidAmount)
	assert.Equal(t, 50.0, s.PendingAmount)
}
