package calc

import (
	"math"
	"sort"
	"time"

	"umrah-backoffice/internal/domain"
)

const recentInvoiceCount = 5

// DashboardStats is recomputed from the invoice list on every fetch.
type DashboardStats struct {
	TotalInvoices   int              `json:"totalInvoices"`
	TotalRevenue    float64          `json:"totalRevenue"`
	PaidInvoices    int              `json:"paidInvoices"`
	PendingInvoices int              `json:"pendingInvoices"`
	OverdueInvoices int              `json:"overdueInvoices"`
	RecentInvoices  []domain.Invoice `json:"recentInvoices"`
}

// Stats partitions invoices by status. Pending counts both sent and draft.
func Stats(invoices []domain.Invoice) DashboardStats {
	stats := DashboardStats{TotalInvoices: len(invoices)}
	for _, inv := range invoices {
		switch inv.Status {
		case domain.StatusPaid:
			stats.PaidInvoices++
			stats.TotalRevenue += inv.Total
		case domain.StatusSent, domain.StatusDraft:
			stats.PendingInvoices++
		case domain.StatusOverdue:
			stats.OverdueInvoices++
		}
	}

	recent := newestFirst(invoices)
	if len(recent) > recentInvoiceCount {
		recent = recent[:recentInvoiceCount]
	}
	stats.RecentInvoices = recent
	return stats
}

// TodaysInvoices keeps invoices created on now's calendar date, in now's location.
func TodaysInvoices(invoices []domain.Invoice, now time.Time) []domain.Invoice {
	y, m, d := now.Date()
	out := make([]domain.Invoice, 0)
	for _, inv := range invoices {
		cy, cm, cd := inv.CreatedAt.In(now.Location()).Date()
		if cy == y && cm == m && cd == d {
			out = append(out, inv)
		}
	}
	return out
}

// AgentStats is one row of the director's performance table.
type AgentStats struct {
	Agent         domain.Agent `json:"agent"`
	TotalInvoices int          `json:"totalInvoices"`
	TodayInvoices int          `json:"todayInvoices"`
	TotalRevenue  float64      `json:"totalRevenue"`
	SuccessRate   int          `json:"successRate"`
}

// AgentPerformance aggregates invoices per agent. Directors are left out.
func AgentPerformance(agents []domain.Agent, invoices []domain.Invoice, now time.Time) []AgentStats {
	byAgent := make(map[string][]domain.Invoice)
	for _, inv := range invoices {
		byAgent[inv.AgentID] = append(byAgent[inv.AgentID], inv)
	}

	out := make([]AgentStats, 0, len(agents))
	for _, a := range agents {
		if a.IsDirector() {
			continue
		}
		own := byAgent[a.ID]
		row := AgentStats{
			Agent:         a,
			TotalInvoices: len(own),
			TodayInvoices: len(TodaysInvoices(own, now)),
		}
		paid := 0
		for _, inv := range own {
			if inv.Status == domain.StatusPaid {
				paid++
				row.TotalRevenue += inv.Total
			}
		}
		if len(own) > 0 {
			row.SuccessRate = int(math.Round(float64(paid) / float64(len(own)) * 100))
		}
		out = append(out, row)
	}
	return out
}

func newestFirst(invoices []domain.Invoice) []domain.Invoice {
	out := make([]domain.Invoice, len(invoices))
	copy(out, invoices)
	sort.SliceStable(out, func(i, j int) bool {
		return out[i].CreatedAt.After(out[j].CreatedAt)
	})
	return out
}
