package domain

import (
	"time"

	"github.com/bwmarrin/snowflake"
	wipdomain "github.com/smallbiznis/praxis/internal/wip/domain"
	"gorm.io/datatypes"
)

type Status string

const (
	StatusDraft    Status = "DRAFT"
	StatusApproved Status = "APPROVED"
	StatusSent     Status = "SENT"
	StatusPaid     Status = "PAID"
)

func (s Status) Valid() bool {
	switch s {
	case StatusDraft, StatusApproved, StatusSent, StatusPaid:
		return true
	default:
		return false
	}
}

type Invoice struct {
	ID            snowflake.ID                      `gorm:"primaryKey" json:"id"`
	ClientID      snowflake.ID                      `gorm:"not null;index" json:"client_id"`
	Number        string                            `gorm:"not null;uniqueIndex" json:"number"`
	Status        Status                            `gorm:"not null;default:DRAFT;index" json:"status"`
	ProjectIDs    datatypes.JSONSlice[snowflake.ID] `gorm:"not null" json:"project_ids"`
	SubtotalCents int64                             `gorm:"not null;default:0" json:"subtotal_cents"`
	TaxRateBps    int64                             `gorm:"not null;default:0" json:"tax_rate_bps"`
	TaxCents      int64                             `gorm:"not null;default:0" json:"tax_cents"`
	TotalCents    int64                             `gorm:"not null;default:0" json:"total_cents"`
	IssuedAt      *time.Time                        `json:"issued_at,omitempty"`
	DueAt         *time.Time                        `json:"due_at,omitempty"`
	PaidAt        *time.Time                        `json:"paid_at,omitempty"`
	Notes         string                            `json:"notes,omitempty"`
	CreatedAt     time.Time                         `gorm:"not null;default:CURRENT_TIMESTAMP" json:"created_at"`
	UpdatedAt     time.Time                         `gorm:"not null;default:CURRENT_TIMESTAMP" json:"updated_at"`
}

func (Invoice) TableName() string { return "invoices" }

type InvoiceLineItem struct {
	ID            snowflake.ID  `gorm:"primaryKey" json:"id"`
	InvoiceID     snowflake.ID  `gorm:"not null;index" json:"invoice_id"`
	ProjectID     snowflake.ID  `gorm:"index" json:"project_id,omitempty"`
	TaskID        *snowflake.ID `gorm:"index" json:"task_id,omitempty"`
	Description   string        `gorm:"not null" json:"description"`
	Minutes       int64         `gorm:"not null;default:0" json:"minutes"`
	RateCents     int64         `gorm:"not null;default:0" json:"rate_cents"`
	AmountCents   int64         `gorm:"not null" json:"amount_cents"`
	OriginalCents int64         `gorm:"not null" json:"original_cents"`
	Position      int           `gorm:"not null;default:0" json:"position"`
	CreatedAt     time.Time     `gorm:"not null;default:CURRENT_TIMESTAMP" json:"created_at"`
}

func (InvoiceLineItem) TableName() string { return "invoice_line_items" }

// WriteOffEntry is the persisted form of a wip.Adjustment, keyed uniquely by
// invoice and time entry so merged sessions never duplicate a record.
type WriteOffEntry struct {
	ID              snowflake.ID         `gorm:"primaryKey" json:"id"`
	InvoiceID       snowflake.ID         `gorm:"not null;uniqueIndex:ux_write_off_invoice_entry" json:"invoice_id"`
	TimeEntryID     snowflake.ID         `gorm:"not null;uniqueIndex:ux_write_off_invoice_entry" json:"time_entry_id"`
	TaskID          snowflake.ID         `gorm:"index" json:"task_id,omitempty"`
	UserID          string               `json:"user_id,omitempty"`
	Date            time.Time            `json:"date"`
	Description     string               `json:"description,omitempty"`
	OriginalCents   int64                `gorm:"not null" json:"original_cents"`
	AdjustmentCents int64                `gorm:"not null" json:"adjustment_cents"`
	ReasonCode      wipdomain.ReasonCode `gorm:"not null" json:"reason_code"`
	Comments        string               `gorm:"not null" json:"comments"`
	CreatedAt       time.Time            `gorm:"not null;default:CURRENT_TIMESTAMP" json:"created_at"`
	UpdatedAt       time.Time            `gorm:"not null;default:CURRENT_TIMESTAMP" json:"updated_at"`
}

func (WriteOffEntry) TableName() string { return "write_off_entries" }

// InvoiceSequence backs invoice numbering. A single row is seeded at
// startup so numbers survive invoice deletion without reuse.
type InvoiceSequence struct {
	ID         int64     `gorm:"primaryKey" json:"id"`
	NextNumber int64     `gorm:"not null;default:1" json:"next_number"`
	UpdatedAt  time.Time `gorm:"not null;default:CURRENT_TIMESTAMP" json:"updated_at"`
}

func (InvoiceSequence) TableName() string { return "invoice_sequences" }

// CostLineItem is a non-time charge supplied with a save request. Costs are
// never prorated.
type CostLineItem struct {
	Name            string `json:"name"`
	Quantity        int64  `json:"quantity"`
	RateCents       int64  `json:"rate_cents"`
	FixedPriceCents *int64 `json:"fixed_price_cents,omitempty"`
	Billable        bool   `json:"billable"`
}

func (c CostLineItem) AmountCents() int64 {
	if c.FixedPriceCents != nil {
		return *c.FixedPriceCents
	}
	return c.Quantity * c.RateCents
}
