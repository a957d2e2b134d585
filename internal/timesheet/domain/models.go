package domain

import (
	"time"

	"github.com/bwmarrin/snowflake"
)

// Status tracks whether a time entry has been billed yet.
type Status string

const (
	StatusUninvoiced Status = "UNINVOICED"
	StatusInvoiced   Status = "INVOICED"
	StatusWrittenOff Status = "WRITTEN_OFF"
)

func (s Status) Valid() bool {
	switch s {
	case StatusUninvoiced, StatusInvoiced, StatusWrittenOff:
		return true
	default:
		return false
	}
}

type TimeEntry struct {
	ID              snowflake.ID  `gorm:"primaryKey" json:"id"`
	ProjectID       snowflake.ID  `gorm:"not null;index" json:"project_id"`
	TaskID          *snowflake.ID `gorm:"index" json:"task_id,omitempty"`
	UserID          string        `gorm:"not null" json:"user_id"`
	Date            time.Time     `gorm:"not null" json:"date"`
	DurationMinutes int64         `gorm:"not null" json:"duration_minutes"`
	Billable        bool          `gorm:"not null;default:true" json:"billable"`
	RateCents       int64         `gorm:"not null;default:0" json:"rate_cents"`
	BillableCents   *int64        `json:"billable_cents,omitempty"`
	InvoicedCents   *int64        `json:"invoiced_cents,omitempty"`
	Status          Status        `gorm:"not null;default:UNINVOICED;index" json:"status"`
	WriteOffReason  *string       `json:"write_off_reason,omitempty"`
	InvoiceID       *snowflake.ID `gorm:"index" json:"invoice_id,omitempty"`
	Description     string        `json:"description,omitempty"`
	CreatedAt       time.Time     `gorm:"not null;default:CURRENT_TIMESTAMP" json:"created_at"`
	UpdatedAt       time.Time     `gorm:"not null;default:CURRENT_TIMESTAMP" json:"updated_at"`
}

func (TimeEntry) TableName() string { return "time_entries" }

// OriginalCents is the time-derived value of the entry. A stored billable
// amount wins; otherwise duration times the effective rate, rounded half up
// to the nearest cent.
func (e TimeEntry) OriginalCents(defaultRateCents int64) int64 {
	if e.BillableCents != nil {
		if *e.BillableCents < 0 {
			return 0
		}
		return *e.BillableCents
	}
	rate := e.RateCents
	if rate <= 0 {
		rate = defaultRateCents
	}
	if rate <= 0 || e.DurationMinutes <= 0 {
		return 0
	}
	return (e.DurationMinutes*rate + 30) / 60
}
