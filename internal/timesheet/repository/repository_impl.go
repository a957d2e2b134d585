package repository

import (
	"context"
	"time"

	"github.com/bwmarrin/snowflake"
	"github.com/smallbiznis/praxis/internal/timesheet/domain"
	"gorm.io/gorm"
)

type repo struct{}

func Provide() domain.Repository {
	return &repo{}
}

func (r *repo) Insert(ctx context.Context, db *gorm.DB, entry *domain.TimeEntry) error {
	return db.WithContext(ctx).Create(entry).Error
}

func (r *repo) FindByID(ctx context.Context, db *gorm.DB, id snowflake.ID) (*domain.TimeEntry, error) {
	var entry domain.TimeEntry
	err := db.WithContext(ctx).
		Where("id = ?", id).
		Take(&entry).Error
	if err != nil {
		if err == gorm.ErrRecordNotFound {
			return nil, nil
		}
		return nil, err
	}
	return &entry, nil
}

func (r *repo) List(ctx context.Context, db *gorm.DB, filter domain.ListFilter) ([]*domain.TimeEntry, error) {
	var entries []*domain.TimeEntry
	stmt := db.WithContext(ctx).Model(&domain.TimeEntry{})
	if filter.ProjectID != 0 {
		stmt = stmt.Where("project_id = ?", filter.ProjectID)
	}
	if filter.TaskID != 0 {
		stmt = stmt.Where("task_id = ?", filter.TaskID)
	}
	if filter.Status != "" {
		stmt = stmt.Where("status = ?", filter.Status)
	}
	if filter.DateFrom != nil {
		stmt = stmt.Where("date >= ?", *filter.DateFrom)
	}
	if filter.DateTo != nil {
		stmt = stmt.Where("date <= ?", *filter.DateTo)
	}
	err := stmt.Order("date asc, id asc").Find(&entries).Error
	if err != nil {
		return nil, err
	}
	return entries, nil
}

func (r *repo) ListUnbilled(ctx context.Context, db *gorm.DB, projectIDs []snowflake.ID) ([]*domain.TimeEntry, error) {
	var entries []*domain.TimeEntry
	stmt := db.WithContext(ctx).
		Model(&domain.TimeEntry{}).
		Where("billable = ?", true).
		Where("status = ?", domain.StatusUninvoiced)
	if len(projectIDs) > 0 {
		stmt = stmt.Where("project_id IN ?", projectIDs)
	}
	err := stmt.Order("project_id asc, task_id asc, id asc").Find(&entries).Error
	if err != nil {
		return nil, err
	}
	return entries, nil
}

func (r *repo) Update(ctx context.Context, db *gorm.DB, entry *domain.TimeEntry) error {
	return db.WithContext(ctx).Save(entry).Error
}

func (r *repo) Delete(ctx context.Context, db *gorm.DB, id snowflake.ID) error {
	return db.WithContext(ctx).
		Where("id = ?", id).
		Delete(&domain.TimeEntry{}).Error
}

// ApplyInvoice writes per-entry invoiced amounts and statuses inside the
// caller's transaction.
func (r *repo) ApplyInvoice(ctx context.Context, db *gorm.DB, invoiceID snowflake.ID, updates []domain.InvoiceApplication) error {
	now := time.Now().UTC()
	for _, update := range updates {
		err := db.WithContext(ctx).
			Model(&domain.TimeEntry{}).
			Where("id = ?", update.EntryID).
			Updates(map[string]any{
				"status":           update.Status,
				"invoiced_cents":   update.InvoicedCents,
				"write_off_reason": update.WriteOffReason,
				"invoice_id":       invoiceID,
				"updated_at":       now,
			}).Error
		if err != nil {
			return err
		}
	}
	return nil
}

// ReleaseInvoice returns entries previously claimed by an invoice to the
// uninvoiced pool, used when a draft's composition changes.
func (r *repo) ReleaseInvoice(ctx context.Context, db *gorm.DB, invoiceID snowflake.ID) error {
	now := time.Now().UTC()
	return db.WithContext(ctx).
		Model(&domain.TimeEntry{}).
		Where("invoice_id = ?", invoiceID).
		Updates(map[string]any{
			"status":           domain.StatusUninvoiced,
			"invoiced_cents":   nil,
			"write_off_reason": nil,
			"invoice_id":       nil,
			"updated_at":       now,
		}).Error
}
