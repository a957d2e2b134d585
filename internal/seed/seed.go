package seed

import (
	"context"
	"errors"
	"time"

	invoicedomain "github.com/smallbiznis/praxis/internal/invoice/domain"
	"gorm.io/gorm"
)

// EnsureDefaults makes a fresh self-hosted install usable out of the box.
func EnsureDefaults(db *gorm.DB) error {
	if db == nil {
		return errors.New("seed database handle is required")
	}

	ctx := context.Background()
	return db.WithContext(ctx).Transaction(func(tx *gorm.DB) error {
		return ensureInvoiceSequenceTx(ctx, tx)
	})
}

func ensureInvoiceSequenceTx(ctx context.Context, tx *gorm.DB) error {
	var seq invoicedomain.InvoiceSequence
	err := tx.WithContext(ctx).Where("id = ?", 1).First(&seq).Error
	if err == nil {
		return nil
	}
	if !errors.Is(err, gorm.ErrRecordNotFound) {
		return err
	}

	seq = invoicedomain.InvoiceSequence{
		ID:         1,
		NextNumber: 1,
		UpdatedAt:  time.Now().UTC(),
	}
	return tx.WithContext(ctx).Create(&seq).Error
}
