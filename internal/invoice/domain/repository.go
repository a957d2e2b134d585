package domain

import (
	"context"

	"github.com/bwmarrin/snowflake"
	"github.com/smallbiznis/praxis/pkg/db/pagination"
	"gorm.io/gorm"
)

type ListFilter struct {
	ClientID snowflake.ID
	Status   Status
}

type Repository interface {
	Insert(ctx context.Context, db *gorm.DB, invoice *Invoice) error
	Update(ctx context.Context, db *gorm.DB, invoice *Invoice) error
	FindByID(ctx context.Context, db *gorm.DB, id snowflake.ID) (*Invoice, error)
	List(ctx context.Context, db *gorm.DB, filter ListFilter, page pagination.Pagination) ([]*Invoice, error)
	NextSequence(ctx context.Context, db *gorm.DB) (int64, error)
	ReplaceLineItems(ctx context.Context, db *gorm.DB, invoiceID snowflake.ID, items []InvoiceLineItem) error
	ListLineItems(ctx context.Context, db *gorm.DB, invoiceID snowflake.ID) ([]InvoiceLineItem, error)
	ReplaceWriteOffs(ctx context.Context, db *gorm.DB, invoiceID snowflake.ID, entries []WriteOffEntry) error
	ListWriteOffs(ctx context.Context, db *gorm.DB, invoiceID snowflake.ID) ([]WriteOffEntry, error)
}
