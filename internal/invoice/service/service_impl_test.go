package service

import (
	"context"
	"testing"
	"time"

	"github.com/bwmarrin/snowflake"
	"github.com/glebarez/sqlite"
	auditdomain "github.com/smallbiznis/praxis/internal/audit/domain"
	auditservice "github.com/smallbiznis/praxis/internal/audit/service"
	clientdomain "github.com/smallbiznis/praxis/internal/client/domain"
	"github.com/smallbiznis/praxis/internal/config"
	"github.com/smallbiznis/praxis/internal/invoice/domain"
	invoicerepository "github.com/smallbiznis/praxis/internal/invoice/repository"
	projectdomain "github.com/smallbiznis/praxis/internal/project/domain"
	timesheetdomain "github.com/smallbiznis/praxis/internal/timesheet/domain"
	timesheetrepository "github.com/smallbiznis/praxis/internal/timesheet/repository"
	"github.com/smallbiznis/praxis/pkg/repository"
	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
	"go.uber.org/zap"
	"gorm.io/gorm"
)

type testEnv struct {
	db   *gorm.DB
	svc  domain.Service
	node *snowflake.Node

	clientID  snowflake.ID
	projectID snowflake.ID
	taskID    snowflake.ID
	entryA    snowflake.ID
	entryB    snowflake.ID
}

func setupInvoiceTest(t *testing.T) *testEnv {
	t.Helper()

	db, err := gorm.Open(sqlite.Open("file::memory:"), &gorm.Config{})
	require.NoError(t, err)

	require.NoError(t, db.AutoMigrate(
		&clientdomain.Client{},
		&projectdomain.Project{},
		&projectdomain.Task{},
		&timesheetdomain.TimeEntry{},
		&domain.Invoice{},
		&domain.InvoiceLineItem{},
		&domain.WriteOffEntry{},
		&domain.InvoiceSequence{},
		&auditdomain.AuditLog{},
	))

	node, err := snowflake.NewNode(1)
	require.NoError(t, err)

	holder := config.NewStaticBillingConfigHolder(config.BillingConfig{
		TaxRateBps:               1500,
		AdjustmentToleranceCents: 1,
		DefaultHourlyRateCents:   15000,
	})

	audit := auditservice.New(auditservice.Params{
		DB:    db,
		Log:   zap.NewNop(),
		GenID: node,
	})

	svc := New(Params{
		DB:       db,
		Log:      zap.NewNop(),
		GenID:    node,
		Billing:  holder,
		Repo:     invoicerepository.Provide(),
		Entries:  timesheetrepository.Provide(),
		Clients:  repository.ProvideStore[clientdomain.Client](db),
		Projects: repository.ProvideStore[projectdomain.Project](db),
		Tasks:    repository.ProvideStore[projectdomain.Task](db),
		Audit:    audit,
		Metrics:  nil,
	})

	env := &testEnv{db: db, svc: svc, node: node}
	env.seed(t)
	return env
}

// seed creates one client, one project with an "Audit fieldwork" task and two
// billable entries worth 30000 and 10000 cents (40000 total).
func (e *testEnv) seed(t *testing.T) {
	t.Helper()
	now := time.Now().UTC()

	e.clientID = e.node.Generate()
	require.NoError(t, e.db.Create(&clientdomain.Client{
		ID:        e.clientID,
		Name:      "Meridian Holdings",
		Email:     "accounts@meridian.example",
		Active:    true,
		CreatedAt: now,
		UpdatedAt: now,
	}).Error)

	e.projectID = e.node.Generate()
	require.NoError(t, e.db.Create(&projectdomain.Project{
		ID:        e.projectID,
		ClientID:  e.clientID,
		Name:      "FY26 Audit",
		Active:    true,
		CreatedAt: now,
		UpdatedAt: now,
	}).Error)

	e.taskID = e.node.Generate()
	require.NoError(t, e.db.Create(&projectdomain.Task{
		ID:        e.taskID,
		ProjectID: e.projectID,
		Name:      "Audit fieldwork",
		Active:    true,
		CreatedAt: now,
		UpdatedAt: now,
	}).Error)

	stored := int64(30000)
	e.entryA = e.node.Generate()
	require.NoError(t, e.db.Create(&timesheetdomain.TimeEntry{
		ID:              e.entryA,
		ProjectID:       e.projectID,
		TaskID:          &e.taskID,
		UserID:          "staff-1",
		Date:            now.AddDate(0, 0, -3),
		DurationMinutes: 120,
		Billable:        true,
		BillableCents:   &stored,
		Status:          timesheetdomain.StatusUninvoiced,
		Description:     "Walkthroughs",
		CreatedAt:       now,
		UpdatedAt:       now,
	}).Error)

	e.entryB = e.node.Generate()
	require.NoError(t, e.db.Create(&timesheetdomain.TimeEntry{
		ID:              e.entryB,
		ProjectID:       e.projectID,
		TaskID:          &e.taskID,
		UserID:          "staff-2",
		Date:            now.AddDate(0, 0, -2),
		DurationMinutes: 30,
		Billable:        true,
		RateCents:       20000,
		Status:          timesheetdomain.StatusUninvoiced,
		Description:     "Sampling",
		CreatedAt:       now,
		UpdatedAt:       now,
	}).Error)
}

func TestSave_NoOverride(t *testing.T) {
	env := setupInvoiceTest(t)
	ctx := context.Background()

	detail, err := env.svc.Save(ctx, domain.SaveInvoiceRequest{
		ClientID:   env.clientID.String(),
		ProjectIDs: []string{env.projectID.String()},
		Actor:      "partner-1",
	})
	require.NoError(t, err)

	assert.Equal(t, domain.StatusDraft, detail.Invoice.Status)
	assert.Equal(t, int64(40000), detail.Invoice.SubtotalCents)
	assert.Equal(t, int64(6000), detail.Invoice.TaxCents)
	assert.Equal(t, int64(46000), detail.Invoice.TotalCents)
	assert.Regexp(t, `^INV-\d{4}-00001$`, detail.Invoice.Number)
	assert.Empty(t, detail.WriteOffs)
	require.Len(t, detail.LineItems, 1)
	assert.Equal(t, int64(40000), detail.LineItems[0].AmountCents)

	var entryA timesheetdomain.TimeEntry
	require.NoError(t, env.db.First(&entryA, "id = ?", env.entryA).Error)
	assert.Equal(t, timesheetdomain.StatusInvoiced, entryA.Status)
	require.NotNil(t, entryA.InvoicedCents)
	assert.Equal(t, int64(30000), *entryA.InvoicedCents)
	require.NotNil(t, entryA.InvoiceID)
	assert.Equal(t, detail.Invoice.ID, *entryA.InvoiceID)

	var audits int64
	require.NoError(t, env.db.Model(&auditdomain.AuditLog{}).
		Where("action = ?", "invoice.saved").Count(&audits).Error)
	assert.Equal(t, int64(1), audits)
}

func TestSave_MissingReasonAbortsEverything(t *testing.T) {
	env := setupInvoiceTest(t)
	ctx := context.Background()

	_, err := env.svc.Save(ctx, domain.SaveInvoiceRequest{
		ClientID:   env.clientID.String(),
		ProjectIDs: []string{env.projectID.String()},
		Overrides: []domain.BucketOverride{{
			ProjectID:   env.projectID.String(),
			TaskID:      env.taskID.String(),
			BilledCents: 36000,
		}},
	})

	var vErrs domain.ValidationErrors
	require.ErrorAs(t, err, &vErrs)
	require.Len(t, vErrs, 1)
	assert.Equal(t, "missing_adjustment_reason", vErrs[0].Code)

	// Nothing may be half-written.
	var invoices int64
	require.NoError(t, env.db.Model(&domain.Invoice{}).Count(&invoices).Error)
	assert.Zero(t, invoices)

	var entryA timesheetdomain.TimeEntry
	require.NoError(t, env.db.First(&entryA, "id = ?", env.entryA).Error)
	assert.Equal(t, timesheetdomain.StatusUninvoiced, entryA.Status)
	assert.Nil(t, entryA.InvoicedCents)
}

func TestSave_WriteOffProration(t *testing.T) {
	env := setupInvoiceTest(t)
	ctx := context.Background()

	detail, err := env.svc.Save(ctx, domain.SaveInvoiceRequest{
		ClientID:   env.clientID.String(),
		ProjectIDs: []string{env.projectID.String()},
		Overrides: []domain.BucketOverride{{
			ProjectID:   env.projectID.String(),
			TaskID:      env.taskID.String(),
			BilledCents: 36000,
		}},
		Reasons: []domain.ReasonInput{{
			ProjectID:  env.projectID.String(),
			TaskID:     env.taskID.String(),
			ReasonCode: "CLIENT_GOODWILL",
			Comments:   "Agreed cap for first-year audit",
		}},
	})
	require.NoError(t, err)

	assert.Equal(t, int64(36000), detail.Invoice.SubtotalCents)
	assert.Equal(t, int64(5400), detail.Invoice.TaxCents)
	assert.Equal(t, int64(41400), detail.Invoice.TotalCents)

	require.Len(t, detail.WriteOffs, 2)
	byEntry := map[snowflake.ID]domain.WriteOffEntry{}
	for _, row := range detail.WriteOffs {
		byEntry[row.TimeEntryID] = row
	}
	assert.Equal(t, int64(3000), byEntry[env.entryA].AdjustmentCents)
	assert.Equal(t, int64(1000), byEntry[env.entryB].AdjustmentCents)

	var entryA, entryB timesheetdomain.TimeEntry
	require.NoError(t, env.db.First(&entryA, "id = ?", env.entryA).Error)
	require.NoError(t, env.db.First(&entryB, "id = ?", env.entryB).Error)
	require.NotNil(t, entryA.InvoicedCents)
	require.NotNil(t, entryB.InvoicedCents)
	assert.Equal(t, int64(27000), *entryA.InvoicedCents)
	assert.Equal(t, int64(9000), *entryB.InvoicedCents)

	// Invoiced amounts reconcile exactly to the billed override.
	assert.Equal(t, int64(36000), *entryA.InvoicedCents+*entryB.InvoicedCents)
}

func TestSave_EditDraftReplacesComposition(t *testing.T) {
	env := setupInvoiceTest(t)
	ctx := context.Background()

	first, err := env.svc.Save(ctx, domain.SaveInvoiceRequest{
		ClientID:   env.clientID.String(),
		ProjectIDs: []string{env.projectID.String()},
		Overrides: []domain.BucketOverride{{
			ProjectID:   env.projectID.String(),
			TaskID:      env.taskID.String(),
			BilledCents: 36000,
		}},
		Reasons: []domain.ReasonInput{{
			ProjectID:  env.projectID.String(),
			TaskID:     env.taskID.String(),
			ReasonCode: "CLIENT_GOODWILL",
			Comments:   "Agreed cap",
		}},
	})
	require.NoError(t, err)

	second, err := env.svc.Save(ctx, domain.SaveInvoiceRequest{
		ID:         first.Invoice.ID.String(),
		ClientID:   env.clientID.String(),
		ProjectIDs: []string{env.projectID.String()},
		Overrides: []domain.BucketOverride{{
			ProjectID:   env.projectID.String(),
			TaskID:      env.taskID.String(),
			BilledCents: 38000,
		}},
		Reasons: []domain.ReasonInput{{
			ProjectID:  env.projectID.String(),
			TaskID:     env.taskID.String(),
			ReasonCode: "SCOPE_CHANGE",
			Comments:   "Revised after scope discussion",
		}},
	})
	require.NoError(t, err)

	assert.Equal(t, first.Invoice.ID, second.Invoice.ID)
	assert.Equal(t, first.Invoice.Number, second.Invoice.Number)
	assert.Equal(t, int64(38000), second.Invoice.SubtotalCents)

	// Latest session wins; no duplicate rows per entry.
	var rows []domain.WriteOffEntry
	require.NoError(t, env.db.Where("invoice_id = ?", first.Invoice.ID).Find(&rows).Error)
	require.Len(t, rows, 2)
	total := int64(0)
	for _, row := range rows {
		assert.Equal(t, "SCOPE_CHANGE", string(row.ReasonCode))
		total += row.AdjustmentCents
	}
	assert.Equal(t, int64(2000), total)

	var invoices int64
	require.NoError(t, env.db.Model(&domain.Invoice{}).Count(&invoices).Error)
	assert.Equal(t, int64(1), invoices)
}

func TestSave_NonDraftRejected(t *testing.T) {
	env := setupInvoiceTest(t)
	ctx := context.Background()

	detail, err := env.svc.Save(ctx, domain.SaveInvoiceRequest{
		ClientID:   env.clientID.String(),
		ProjectIDs: []string{env.projectID.String()},
	})
	require.NoError(t, err)

	_, err = env.svc.Approve(ctx, domain.TransitionRequest{ID: detail.Invoice.ID.String()})
	require.NoError(t, err)

	_, err = env.svc.Save(ctx, domain.SaveInvoiceRequest{
		ID:         detail.Invoice.ID.String(),
		ClientID:   env.clientID.String(),
		ProjectIDs: []string{env.projectID.String()},
	})
	assert.ErrorIs(t, err, domain.ErrNotDraft)
}

func TestLifecycleTransitions(t *testing.T) {
	env := setupInvoiceTest(t)
	ctx := context.Background()

	detail, err := env.svc.Save(ctx, domain.SaveInvoiceRequest{
		ClientID:   env.clientID.String(),
		ProjectIDs: []string{env.projectID.String()},
	})
	require.NoError(t, err)
	id := detail.Invoice.ID.String()

	// Out of order transitions are rejected.
	_, err = env.svc.Send(ctx, domain.TransitionRequest{ID: id})
	assert.ErrorIs(t, err, domain.ErrInvalidTransition)
	_, err = env.svc.MarkPaid(ctx, domain.TransitionRequest{ID: id})
	assert.ErrorIs(t, err, domain.ErrInvalidTransition)

	approved, err := env.svc.Approve(ctx, domain.TransitionRequest{ID: id})
	require.NoError(t, err)
	assert.Equal(t, domain.StatusApproved, approved.Status)
	require.NotNil(t, approved.IssuedAt)
	require.NotNil(t, approved.DueAt)

	sent, err := env.svc.Send(ctx, domain.TransitionRequest{ID: id})
	require.NoError(t, err)
	assert.Equal(t, domain.StatusSent, sent.Status)

	paid, err := env.svc.MarkPaid(ctx, domain.TransitionRequest{ID: id})
	require.NoError(t, err)
	assert.Equal(t, domain.StatusPaid, paid.Status)
	require.NotNil(t, paid.PaidAt)

	_, err = env.svc.Approve(ctx, domain.TransitionRequest{ID: id})
	assert.ErrorIs(t, err, domain.ErrInvalidTransition)
}

func TestReconcile_DryRunWritesNothing(t *testing.T) {
	env := setupInvoiceTest(t)
	ctx := context.Background()

	preview, err := env.svc.Reconcile(ctx, domain.ReconcileRequest{
		ClientID:   env.clientID.String(),
		ProjectIDs: []string{env.projectID.String()},
		Overrides: []domain.BucketOverride{{
			ProjectID:   env.projectID.String(),
			TaskID:      env.taskID.String(),
			BilledCents: 36000,
		}},
		Reasons: []domain.ReasonInput{{
			ProjectID:  env.projectID.String(),
			TaskID:     env.taskID.String(),
			ReasonCode: "EFFICIENCY_GAIN",
			Comments:   "New team ramped quickly",
		}},
	})
	require.NoError(t, err)

	assert.Equal(t, int64(36000), preview.SubtotalCents)
	assert.Equal(t, 2, preview.WriteOffs)
	assert.Equal(t, 2, preview.EntryUpdates)

	var invoices int64
	require.NoError(t, env.db.Model(&domain.Invoice{}).Count(&invoices).Error)
	assert.Zero(t, invoices)

	var entryA timesheetdomain.TimeEntry
	require.NoError(t, env.db.First(&entryA, "id = ?", env.entryA).Error)
	assert.Equal(t, timesheetdomain.StatusUninvoiced, entryA.Status)
}

func TestSave_EditRemovingOverrideClearsWriteOffs(t *testing.T) {
	env := setupInvoiceTest(t)
	ctx := context.Background()

	first, err := env.svc.Save(ctx, domain.SaveInvoiceRequest{
		ClientID:   env.clientID.String(),
		ProjectIDs: []string{env.projectID.String()},
		Overrides: []domain.BucketOverride{{
			ProjectID:   env.projectID.String(),
			TaskID:      env.taskID.String(),
			BilledCents: 36000,
		}},
		Reasons: []domain.ReasonInput{{
			ProjectID:  env.projectID.String(),
			TaskID:     env.taskID.String(),
			ReasonCode: "CLIENT_GOODWILL",
			Comments:   "Agreed cap",
		}},
	})
	require.NoError(t, err)

	var rows int64
	require.NoError(t, env.db.Model(&domain.WriteOffEntry{}).
		Where("invoice_id = ?", first.Invoice.ID).Count(&rows).Error)
	require.Equal(t, int64(2), rows)

	// Re-save the draft fully billed. The write-off rows must go with the
	// override, not linger against fully invoiced entries.
	second, err := env.svc.Save(ctx, domain.SaveInvoiceRequest{
		ID:         first.Invoice.ID.String(),
		ClientID:   env.clientID.String(),
		ProjectIDs: []string{env.projectID.String()},
	})
	require.NoError(t, err)

	assert.Equal(t, int64(40000), second.Invoice.SubtotalCents)
	assert.Empty(t, second.WriteOffs)

	require.NoError(t, env.db.Model(&domain.WriteOffEntry{}).
		Where("invoice_id = ?", first.Invoice.ID).Count(&rows).Error)
	assert.Zero(t, rows)

	var entryA, entryB timesheetdomain.TimeEntry
	require.NoError(t, env.db.First(&entryA, "id = ?", env.entryA).Error)
	require.NoError(t, env.db.First(&entryB, "id = ?", env.entryB).Error)
	require.NotNil(t, entryA.InvoicedCents)
	require.NotNil(t, entryB.InvoicedCents)
	assert.Equal(t, int64(30000), *entryA.InvoicedCents)
	assert.Equal(t, int64(10000), *entryB.InvoicedCents)
	assert.Nil(t, entryA.WriteOffReason)
	assert.Nil(t, entryB.WriteOffReason)
}

func TestSave_NegativeOverrideRejected(t *testing.T) {
	env := setupInvoiceTest(t)
	ctx := context.Background()

	_, err := env.svc.Save(ctx, domain.SaveInvoiceRequest{
		ClientID:   env.clientID.String(),
		ProjectIDs: []string{env.projectID.String()},
		Overrides: []domain.BucketOverride{{
			ProjectID:   env.projectID.String(),
			TaskID:      env.taskID.String(),
			BilledCents: -500,
		}},
		Reasons: []domain.ReasonInput{{
			ProjectID:  env.projectID.String(),
			TaskID:     env.taskID.String(),
			ReasonCode: "OTHER",
			Comments:   "Bad input",
		}},
	})

	var vErrs domain.ValidationErrors
	require.ErrorAs(t, err, &vErrs)
	require.Len(t, vErrs, 1)
	assert.Equal(t, "negative_billed_amount", vErrs[0].Code)

	var invoices int64
	require.NoError(t, env.db.Model(&domain.Invoice{}).Count(&invoices).Error)
	assert.Zero(t, invoices)
}
