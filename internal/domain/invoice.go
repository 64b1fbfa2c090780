package domain

import "time"

// InvoiceStatus is the billing state of an invoice.
type InvoiceStatus string

const (
	StatusDraft   InvoiceStatus = "draft"
	StatusSent    InvoiceStatus = "sent"
	StatusPaid    InvoiceStatus = "paid"
	StatusOverdue InvoiceStatus = "overdue"
)

func (s InvoiceStatus) Valid() bool {
	switch s {
	case StatusDraft, StatusSent, StatusPaid, StatusOverdue:
		return true
	}
	return false
}

// allowedTransitions is the whole status graph. Paid has no way out.
var allowedTransitions = map[InvoiceStatus][]InvoiceStatus{
	StatusDraft:   {StatusSent},
	StatusSent:    {StatusPaid, StatusOverdue},
	StatusOverdue: {StatusPaid},
}

// CanTransition reports whether an invoice may move from one status to another.
func CanTransition(from, to InvoiceStatus) bool {
	for _, next := range allowedTransitions[from] {
		if next == to {
			return true
		}
	}
	return false
}

type VisaStatus string

const (
	VisaPending VisaStatus = "Pending"
	VisaIssued  VisaStatus = "Issued"
)

func (v VisaStatus) Valid() bool {
	return v == "" || v == VisaPending || v == VisaIssued
}

// InvoiceItem is one billed line. Total is always Quantity * UnitPrice.
type InvoiceItem struct {
	ID          string  `json:"id"`
	InvoiceID   string  `json:"invoiceId"`
	Description string  `json:"description"`
	Quantity    float64 `json:"quantity"`
	UnitPrice   float64 `json:"unitPrice"`
	Total       float64 `json:"total"`
}

// Invoice is an Umrah package bill issued by an agent.
type Invoice struct {
	ID            string        `json:"id"`
	InvoiceNumber string        `json:"invoiceNumber"`
	ClientID      string        `json:"clientId"`
	Client        *Client       `json:"client,omitempty"`
	AgentID       string        `json:"agentId"`
	AgentName     string        `json:"agentName,omitempty"`
	Items         []InvoiceItem `json:"items"`
	Subtotal      float64       `json:"subtotal"`
	Tax           float64       `json:"tax"`
	Total         float64       `json:"total"`
	Status        InvoiceStatus `json:"status"`
	CreatedAt     time.Time     `json:"createdAt"`
	UpdatedAt     time.Time     `json:"updatedAt"`
	DueDate       *time.Time    `json:"dueDate,omitempty"`
	Notes         string        `json:"notes,omitempty"`

	PassportNumber string     `json:"passportNumber,omitempty"`
	Gender         Gender     `json:"gender,omitempty"`
	FlightNumber   string     `json:"flightNumber,omitempty"`
	RoomType       RoomType   `json:"roomType,omitempty"`
	VisaStatus     VisaStatus `json:"visaStatus,omitempty"`
	DepartureDate  *time.Time `json:"departureDate,omitempty"`
	DateOfBirth    string     `json:"dateOfBirth,omitempty"`
}

// ClientName falls back to "Unknown" like the rooming and invoice lists expect.
func (i Invoice) ClientName() string {
	if i.Client == nil || i.Client.Name == "" {
		return "Unknown"
	}
	return i.Client.Name
}

func (i Invoice) ClientEmail() string {
	if i.Client == nil {
		return ""
	}
	return i.Client.Email
}

// InvoicePatch carries a partial invoice update. Items, when non-nil,
// replace the whole item list.
type InvoicePatch struct {
	Status         *InvoiceStatus `json:"status,omitempty"`
	DueDate        *time.Time     `json:"dueDate,omitempty"`
	Notes          *string        `json:"notes,omitempty"`
	PassportNumber *string        `json:"passportNumber,omitempty"`
	Gender         *Gender        `json:"gender,omitempty"`
	FlightNumber   *string        `json:"flightNumber,omitempty"`
	RoomType       *RoomType      `json:"roomType,omitempty"`
	VisaStatus     *VisaStatus    `json:"visaStatus,omitempty"`
	DepartureDate  *time.Time     `json:"departureDate,omitempty"`
	DateOfBirth    *string        `json:"dateOfBirth,omitempty"`
	Items          []InvoiceItem  `json:"items,omitempty"`

	// Subtotal, Tax and Total are filled by the service when Items change.
	Subtotal *float64 `json:"-"`
	Tax      *float64 `json:"-"`
	Total    *float64 `json:"-"`

	// ExpectStatus, when set, makes the write conditional on the stored
	// status still being this value. A mismatch is ErrInvalidTransition.
	ExpectStatus *InvoiceStatus `json:"-"`
}

// Apply returns a copy of inv with the non-nil patch fields set.
func (p InvoicePatch) Apply(inv Invoice) Invoice {
	if p.Status != nil {
		inv.Status = *p.Status
	}
	if p.DueDate != nil {
		inv.DueDate = p.DueDate
	}
	if p.Notes != nil {
		inv.Notes = *p.Notes
	}
	if p.PassportNumber != nil {
		inv.PassportNumber = *p.PassportNumber
	}
	if p.Gender != nil {
		inv.Gender = *p.Gender
	}
	if p.FlightNumber != nil {
		inv.FlightNumber = *p.FlightNumber
	}
	if p.RoomType != nil {
		inv.RoomType = *p.RoomType
	}
	if p.VisaStatus != nil {
		inv.VisaStatus = *p.VisaStatus
	}
	if p.DepartureDate != nil {
		inv.DepartureDate = p.DepartureDate
	}
	if p.DateOfBirth != nil {
		inv.DateOfBirth = *p.DateOfBirth
	}
	if p.Items != nil {
		inv.Items = p.Items
	}
	if p.Subtotal != nil {
		inv.Subtotal = *p.Subtotal
	}
	if p.Tax != nil {
		inv.Tax = *p.Tax
	}
	if p.Total != nil {
		inv.Total = *p.Total
	}
	return inv
}
