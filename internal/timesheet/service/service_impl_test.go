package service

import (
	"context"
	"testing"

	"github.com/bwmarrin/snowflake"
	"github.com/glebarez/sqlite"
	"github.com/smallbiznis/praxis/internal/timesheet/domain"
	"github.com/smallbiznis/praxis/internal/timesheet/repository"
	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
	"go.uber.org/zap"
	"gorm.io/gorm"
)

func setupTimesheetTest(t *testing.T) (*gorm.DB, domain.Service, *snowflake.Node) {
	t.Helper()

	db, err := gorm.Open(sqlite.Open("file::memory:"), &gorm.Config{})
	require.NoError(t, err)
	require.NoError(t, db.AutoMigrate(&domain.TimeEntry{}))

	node, err := snowflake.NewNode(1)
	require.NoError(t, err)

	svc := New(Params{
		DB:    db,
		Log:   zap.NewNop(),
		GenID: node,
		Repo:  repository.Provide(),
	})
	return db, svc, node
}

func TestCreateAndList(t *testing.T) {
	_, svc, node := setupTimesheetTest(t)
	ctx := context.Background()
	projectID := node.Generate()

	entry, err := svc.Create(ctx, domain.CreateTimeEntryRequest{
		ProjectID:       projectID.String(),
		UserID:          "staff-1",
		DurationMinutes: 90,
		RateCents:       20000,
		Description:     "Inventory counts",
	})
	require.NoError(t, err)
	assert.Equal(t, domain.StatusUninvoiced, entry.Status)
	assert.True(t, entry.Billable)

	entries, err := svc.List(ctx, domain.ListTimeEntryRequest{
		ProjectID: projectID.String(),
		Status:    "uninvoiced",
	})
	require.NoError(t, err)
	require.Len(t, entries, 1)
	assert.Equal(t, entry.ID, entries[0].ID)
}

func TestCreate_Validation(t *testing.T) {
	_, svc, node := setupTimesheetTest(t)
	ctx := context.Background()
	projectID := node.Generate().String()

	_, err := svc.Create(ctx, domain.CreateTimeEntryRequest{
		ProjectID: "not-a-snowflake", UserID: "staff-1", DurationMinutes: 60,
	})
	assert.ErrorIs(t, err, domain.ErrInvalidProject)

	_, err = svc.Create(ctx, domain.CreateTimeEntryRequest{
		ProjectID: projectID, DurationMinutes: 60,
	})
	assert.ErrorIs(t, err, domain.ErrInvalidUser)

	_, err = svc.Create(ctx, domain.CreateTimeEntryRequest{
		ProjectID: projectID, UserID: "staff-1", DurationMinutes: 0,
	})
	assert.ErrorIs(t, err, domain.ErrInvalidDuration)

	negative := int64(-1)
	_, err = svc.Create(ctx, domain.CreateTimeEntryRequest{
		ProjectID: projectID, UserID: "staff-1", DurationMinutes: 60, BillableCents: &negative,
	})
	assert.ErrorIs(t, err, domain.ErrInvalidAmount)
}

func TestUpdate_LockedOnceInvoiced(t *testing.T) {
	db, svc, node := setupTimesheetTest(t)
	ctx := context.Background()

	entry, err := svc.Create(ctx, domain.CreateTimeEntryRequest{
		ProjectID:       node.Generate().String(),
		UserID:          "staff-1",
		DurationMinutes: 60,
		RateCents:       20000,
	})
	require.NoError(t, err)

	minutes := int64(75)
	updated, err := svc.Update(ctx, domain.UpdateTimeEntryRequest{
		ID:              entry.ID.String(),
		DurationMinutes: &minutes,
	})
	require.NoError(t, err)
	assert.Equal(t, int64(75), updated.DurationMinutes)

	invoiceID := node.Generate()
	invoiced := int64(25000)
	require.NoError(t, db.Model(&domain.TimeEntry{}).Where("id = ?", entry.ID).
		Updates(map[string]any{
			"status":         domain.StatusInvoiced,
			"invoice_id":     invoiceID,
			"invoiced_cents": invoiced,
		}).Error)

	_, err = svc.Update(ctx, domain.UpdateTimeEntryRequest{
		ID:              entry.ID.String(),
		DurationMinutes: &minutes,
	})
	assert.ErrorIs(t, err, domain.ErrEntryLocked)

	err = svc.Delete(ctx, domain.DeleteTimeEntryRequest{ID: entry.ID.String()})
	assert.ErrorIs(t, err, domain.ErrEntryLocked)
}

func TestDelete(t *testing.T) {
	db, svc, node := setupTimesheetTest(t)
	ctx := context.Background()

	entry, err := svc.Create(ctx, domain.CreateTimeEntryRequest{
		ProjectID:       node.Generate().String(),
		UserID:          "staff-1",
		DurationMinutes: 60,
	})
	require.NoError(t, err)

	require.NoError(t, svc.Delete(ctx, domain.DeleteTimeEntryRequest{ID: entry.ID.String()}))

	var count int64
	require.NoError(t, db.Model(&domain.TimeEntry{}).Count(&count).Error)
	assert.Zero(t, count)

	err = svc.Delete(ctx, domain.DeleteTimeEntryRequest{ID: entry.ID.String()})
	assert.ErrorIs(t, err, domain.ErrNotFound)
}

func TestListUnbilled_SkipsNonBillableAndInvoiced(t *testing.T) {
	db, svc, node := setupTimesheetTest(t)
	ctx := context.Background()
	projectID := node.Generate()

	billable := true
	nonBillable := false

	open, err := svc.Create(ctx, domain.CreateTimeEntryRequest{
		ProjectID:       projectID.String(),
		UserID:          "staff-1",
		DurationMinutes: 60,
		Billable:        &billable,
	})
	require.NoError(t, err)

	_, err = svc.Create(ctx, domain.CreateTimeEntryRequest{
		ProjectID:       projectID.String(),
		UserID:          "staff-1",
		DurationMinutes: 30,
		Billable:        &nonBillable,
	})
	require.NoError(t, err)

	claimed, err := svc.Create(ctx, domain.CreateTimeEntryRequest{
		ProjectID:       projectID.String(),
		UserID:          "staff-2",
		DurationMinutes: 45,
		Billable:        &billable,
	})
	require.NoError(t, err)
	require.NoError(t, db.Model(&domain.TimeEntry{}).Where("id = ?", claimed.ID).
		Update("status", domain.StatusInvoiced).Error)

	entries, err := svc.ListUnbilled(ctx, []string{projectID.String()})
	require.NoError(t, err)
	require.Len(t, entries, 1)
	assert.Equal(t, open.ID, entries[0].ID)
}
