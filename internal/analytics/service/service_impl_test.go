package service

import (
	"context"
	"testing"
	"time"

	"github.com/bwmarrin/snowflake"
	"github.com/glebarez/sqlite"
	"github.com/smallbiznis/praxis/internal/analytics/domain"
	"github.com/smallbiznis/praxis/internal/config"
	invoicedomain "github.com/smallbiznis/praxis/internal/invoice/domain"
	projectdomain "github.com/smallbiznis/praxis/internal/project/domain"
	timesheetdomain "github.com/smallbiznis/praxis/internal/timesheet/domain"
	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
	"go.uber.org/zap"
	"gorm.io/gorm"
)

func setupAnalyticsTest(t *testing.T) (*gorm.DB, domain.Service, *snowflake.Node) {
	t.Helper()

	db, err := gorm.Open(sqlite.Open("file::memory:"), &gorm.Config{})
	require.NoError(t, err)
	require.NoError(t, db.AutoMigrate(
		&projectdomain.Project{},
		&timesheetdomain.TimeEntry{},
		&invoicedomain.Invoice{},
	))

	node, err := snowflake.NewNode(1)
	require.NoError(t, err)

	svc := New(Params{
		DB:      db,
		Log:     zap.NewNop(),
		Billing: config.NewStaticBillingConfigHolder(config.DefaultBillingConfig()),
	})
	return db, svc, node
}

func TestWIPBalances(t *testing.T) {
	db, svc, node := setupAnalyticsTest(t)
	now := time.Now().UTC()
	clientID := node.Generate()

	rate := int64(20000)
	projectID := node.Generate()
	require.NoError(t, db.Create(&projectdomain.Project{
		ID: projectID, ClientID: clientID, Name: "FY26 Audit",
		HourlyRateCents: &rate, Active: true, CreatedAt: now, UpdatedAt: now,
	}).Error)

	// 60 min at the project rate plus a stored 5000 amount.
	stored := int64(5000)
	require.NoError(t, db.Create(&timesheetdomain.TimeEntry{
		ID: node.Generate(), ProjectID: projectID, UserID: "staff-1",
		Date: now, DurationMinutes: 60, Billable: true,
		Status: timesheetdomain.StatusUninvoiced, CreatedAt: now, UpdatedAt: now,
	}).Error)
	require.NoError(t, db.Create(&timesheetdomain.TimeEntry{
		ID: node.Generate(), ProjectID: projectID, UserID: "staff-1",
		Date: now, DurationMinutes: 15, Billable: true, BillableCents: &stored,
		Status: timesheetdomain.StatusUninvoiced, CreatedAt: now, UpdatedAt: now,
	}).Error)

	// Invoiced work never counts toward WIP.
	invoiced := int64(9000)
	require.NoError(t, db.Create(&timesheetdomain.TimeEntry{
		ID: node.Generate(), ProjectID: projectID, UserID: "staff-2",
		Date: now, DurationMinutes: 30, Billable: true, InvoicedCents: &invoiced,
		Status: timesheetdomain.StatusInvoiced, CreatedAt: now, UpdatedAt: now,
	}).Error)

	balances, err := svc.WIPBalances(context.Background(), domain.WIPBalanceRequest{})
	require.NoError(t, err)
	require.Len(t, balances, 1)
	assert.Equal(t, projectID, balances[0].ProjectID)
	assert.Equal(t, "FY26 Audit", balances[0].ProjectName)
	assert.Equal(t, clientID, balances[0].ClientID)
	assert.Equal(t, int64(2), balances[0].EntryCount)
	assert.Equal(t, int64(25000), balances[0].BalanceCents)

	_, err = svc.WIPBalances(context.Background(), domain.WIPBalanceRequest{ClientID: "bogus"})
	assert.ErrorIs(t, err, domain.ErrInvalidClient)
}

func TestRealizationRates(t *testing.T) {
	db, svc, node := setupAnalyticsTest(t)
	now := time.Now().UTC()

	projectID := node.Generate()
	require.NoError(t, db.Create(&projectdomain.Project{
		ID: projectID, ClientID: node.Generate(), Name: "Tax Return",
		Active: true, CreatedAt: now, UpdatedAt: now,
	}).Error)

	// 40000 calculated, 36000 collected after a write-off.
	original := int64(30000)
	collectedA := int64(27000)
	require.NoError(t, db.Create(&timesheetdomain.TimeEntry{
		ID: node.Generate(), ProjectID: projectID, UserID: "staff-1",
		Date: now, DurationMinutes: 120, Billable: true,
		BillableCents: &original, InvoicedCents: &collectedA,
		Status: timesheetdomain.StatusInvoiced, CreatedAt: now, UpdatedAt: now,
	}).Error)
	originalB := int64(10000)
	collectedB := int64(9000)
	require.NoError(t, db.Create(&timesheetdomain.TimeEntry{
		ID: node.Generate(), ProjectID: projectID, UserID: "staff-2",
		Date: now, DurationMinutes: 30, Billable: true,
		BillableCents: &originalB, InvoicedCents: &collectedB,
		Status: timesheetdomain.StatusInvoiced, CreatedAt: now, UpdatedAt: now,
	}).Error)

	realizations, err := svc.RealizationRates(context.Background(), domain.RealizationRequest{})
	require.NoError(t, err)
	require.Len(t, realizations, 1)
	assert.Equal(t, int64(40000), realizations[0].CalculatedCents)
	assert.Equal(t, int64(36000), realizations[0].InvoicedCents)
	assert.InDelta(t, 0.9, realizations[0].Rate, 0.0001)
}

func TestInvoiceAging(t *testing.T) {
	db, svc, node := setupAnalyticsTest(t)
	now := time.Now().UTC()
	clientID := node.Generate()

	mkInvoice := func(ageDays int, total int64, status invoicedomain.Status) {
		issued := now.AddDate(0, 0, -ageDays)
		require.NoError(t, db.Create(&invoicedomain.Invoice{
			ID: node.Generate(), ClientID: clientID,
			Number: "INV-2026-" + node.Generate().String(),
			Status: status, IssuedAt: &issued, TotalCents: total,
			CreatedAt: issued, UpdatedAt: issued,
		}).Error)
	}

	mkInvoice(5, 10000, invoicedomain.StatusSent)
	mkInvoice(45, 20000, invoicedomain.StatusSent)
	mkInvoice(90, 40000, invoicedomain.StatusSent)
	// Paid and draft invoices never age.
	mkInvoice(90, 80000, invoicedomain.StatusPaid)
	mkInvoice(10, 5000, invoicedomain.StatusDraft)

	buckets, err := svc.InvoiceAging(context.Background())
	require.NoError(t, err)
	require.Len(t, buckets, 3)

	assert.Equal(t, "0-30", buckets[0].Label)
	assert.Equal(t, int64(1), buckets[0].InvoiceCount)
	assert.Equal(t, int64(10000), buckets[0].TotalCents)

	assert.Equal(t, "31-60", buckets[1].Label)
	assert.Equal(t, int64(1), buckets[1].InvoiceCount)
	assert.Equal(t, int64(20000), buckets[1].TotalCents)

	assert.Equal(t, "60+", buckets[2].Label)
	assert.Equal(t, int64(1), buckets[2].InvoiceCount)
	assert.Equal(t, int64(40000), buckets[2].TotalCents)
}
