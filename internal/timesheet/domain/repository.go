package domain

import (
	"context"
	"time"

	"github.com/bwmarrin/snowflake"
	"gorm.io/gorm"
)

type ListFilter struct {
	ProjectID snowflake.ID
	TaskID    snowflake.ID
	Status    Status
	DateFrom  *time.Time
	DateTo    *time.Time
}

// InvoiceApplication is the per-entry write emitted when an invoice is saved.
type InvoiceApplication struct {
	EntryID        snowflake.ID
	Status         Status
	InvoicedCents  int64
	WriteOffReason *string
}

type Repository interface {
	Insert(ctx context.Context, db *gorm.DB, entry *TimeEntry) error
	FindByID(ctx context.Context, db *gorm.DB, id snowflake.ID) (*TimeEntry, error)
	List(ctx context.Context, db *gorm.DB, filter ListFilter) ([]*TimeEntry, error)
	ListUnbilled(ctx context.Context, db *gorm.DB, projectIDs []snowflake.ID) ([]*TimeEntry, error)
	Update(ctx context.Context, db *gorm.DB, entry *TimeEntry) error
	Delete(ctx context.Context, db *gorm.DB, id snowflake.ID) error
	ApplyInvoice(ctx context.Context, db *gorm.DB, invoiceID snowflake.ID, updates []InvoiceApplication) error
	ReleaseInvoice(ctx context.Context, db *gorm.DB, invoiceID snowflake.ID) error
}
