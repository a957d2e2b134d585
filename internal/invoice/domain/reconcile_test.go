package domain

import (
	"testing"

	"github.com/bwmarrin/snowflake"
	timesheetdomain "github.com/smallbiznis/praxis/internal/timesheet/domain"
	wipdomain "github.com/smallbiznis/praxis/internal/wip/domain"
	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
)

func adjustedBucket(taskID snowflake.ID, billed int64) wipdomain.TaskBucket {
	bucket := wipdomain.TaskBucket{
		ProjectID:       10,
		TaskID:          taskID,
		Name:            "Audit",
		Billable:        true,
		TotalMinutes:    120,
		CalculatedCents: 40000,
		BilledCents:     40000,
		Entries: []wipdomain.BucketEntry{
			{EntryID: 1, UserID: "alice", OriginalCents: 30000, InvoicedCents: 30000},
			{EntryID: 2, UserID: "bob", OriginalCents: 10000, InvoicedCents: 10000},
		},
	}
	return wipdomain.AdjustBucket(bucket, billed, wipdomain.DefaultToleranceCents)
}

func TestReconcileUnadjustedBucket(t *testing.T) {
	result, err := Reconcile(ReconcileInput{
		Buckets:        []wipdomain.TaskBucket{adjustedBucket(100, 40000)},
		TaxRateBps:     1500,
		ToleranceCents: 1,
	})
	require.NoError(t, err)

	require.Len(t, result.LineItems, 1)
	assert.Equal(t, int64(40000), result.LineItems[0].AmountCents)
	assert.Equal(t, int64(40000), result.LineItems[0].OriginalCents)
	assert.Equal(t, int64(40000), result.SubtotalCents)
	assert.Equal(t, int64(6000), result.TaxCents)
	assert.Equal(t, int64(46000), result.TotalCents)
	assert.Empty(t, result.WriteOffs)

	require.Len(t, result.EntryUpdates, 2)
	for _, update := range result.EntryUpdates {
		assert.Equal(t, timesheetdomain.StatusInvoiced, update.Status)
		assert.Nil(t, update.WriteOffReason)
	}
}

func TestReconcileValidationGate(t *testing.T) {
	result, err := Reconcile(ReconcileInput{
		Buckets:        []wipdomain.TaskBucket{adjustedBucket(100, 36000)},
		TaxRateBps:     1500,
		ToleranceCents: 1,
	})

	var validation ValidationErrors
	require.ErrorAs(t, err, &validation)
	require.Len(t, validation, 1)
	assert.Equal(t, "missing_adjustment_reason", validation[0].Code)
	assert.Contains(t, validation[0].Field, "Audit")

	// Zero record updates on validation failure.
	assert.Empty(t, result.EntryUpdates)
	assert.Empty(t, result.LineItems)
}

func TestReconcileValidationGateEmptyComments(t *testing.T) {
	_, err := Reconcile(ReconcileInput{
		Buckets: []wipdomain.TaskBucket{adjustedBucket(100, 36000)},
		Reasons: map[BucketKey]AdjustmentReason{
			{ProjectID: 10, TaskID: 100}: {ReasonCode: wipdomain.ReasonClientGoodwill, Comments: "   "},
		},
		TaxRateBps:     1500,
		ToleranceCents: 1,
	})

	var validation ValidationErrors
	require.ErrorAs(t, err, &validation)
}

func TestReconcileWriteOffEmission(t *testing.T) {
	result, err := Reconcile(ReconcileInput{
		Buckets: []wipdomain.TaskBucket{adjustedBucket(100, 36000)},
		Reasons: map[BucketKey]AdjustmentReason{
			{ProjectID: 10, TaskID: 100}: {ReasonCode: wipdomain.ReasonClientGoodwill, Comments: "agreed discount"},
		},
		TaxRateBps:     1500,
		ToleranceCents: 1,
	})
	require.NoError(t, err)

	require.Len(t, result.WriteOffs, 2)
	assert.Equal(t, int64(3000), result.WriteOffs[0].AdjustmentCents)
	assert.Equal(t, int64(1000), result.WriteOffs[1].AdjustmentCents)
	for _, writeOff := range result.WriteOffs {
		assert.Equal(t, wipdomain.ReasonClientGoodwill, writeOff.ReasonCode)
		assert.Equal(t, "agreed discount", writeOff.Comments)
	}

	require.Len(t, result.EntryUpdates, 2)
	assert.Equal(t, int64(27000), result.EntryUpdates[0].InvoicedCents)
	assert.Equal(t, int64(9000), result.EntryUpdates[1].InvoicedCents)
	require.NotNil(t, result.EntryUpdates[0].WriteOffReason)
	assert.Equal(t, string(wipdomain.ReasonClientGoodwill), *result.EntryUpdates[0].WriteOffReason)

	assert.Equal(t, int64(36000), result.SubtotalCents)
	assert.Equal(t, int64(5400), result.TaxCents)
	assert.Equal(t, int64(41400), result.TotalCents)
}

func TestReconcileFullWriteOffMarksEntriesWrittenOff(t *testing.T) {
	result, err := Reconcile(ReconcileInput{
		Buckets: []wipdomain.TaskBucket{adjustedBucket(100, 0)},
		Costs: []CostLineItem{
			{Name: "Filing fee", Quantity: 1, RateCents: 5000, Billable: true},
		},
		Reasons: map[BucketKey]AdjustmentReason{
			{ProjectID: 10, TaskID: 100}: {ReasonCode: wipdomain.ReasonErrorCorrection, Comments: "engagement scrapped"},
		},
		TaxRateBps:     1500,
		ToleranceCents: 1,
	})
	require.NoError(t, err)

	require.Len(t, result.EntryUpdates, 2)
	for _, update := range result.EntryUpdates {
		assert.Equal(t, timesheetdomain.StatusWrittenOff, update.Status)
		assert.Equal(t, int64(0), update.InvoicedCents)
	}
}

func TestReconcileMergePrecedence(t *testing.T) {
	existing := []wipdomain.Adjustment{
		{EntryID: 2, TaskID: 100, OriginalCents: 10000, AdjustmentCents: 500, ReasonCode: wipdomain.ReasonOther, Comments: "old session"},
		{EntryID: 77, TaskID: 200, OriginalCents: 8000, AdjustmentCents: 800, ReasonCode: wipdomain.ReasonScopeChange, Comments: "untouched"},
	}

	result, err := Reconcile(ReconcileInput{
		Buckets: []wipdomain.TaskBucket{adjustedBucket(100, 36000)},
		Reasons: map[BucketKey]AdjustmentReason{
			{ProjectID: 10, TaskID: 100}: {ReasonCode: wipdomain.ReasonClientGoodwill, Comments: "new session"},
		},
		ExistingWriteOffs: existing,
		TaxRateBps:        1500,
		ToleranceCents:    1,
	})
	require.NoError(t, err)

	// Entries 1 and 2 from this session, 77 retained; exactly one row per entry.
	require.Len(t, result.WriteOffs, 3)
	byEntry := map[snowflake.ID]wipdomain.Adjustment{}
	for _, writeOff := range result.WriteOffs {
		_, duplicate := byEntry[writeOff.EntryID]
		require.False(t, duplicate)
		byEntry[writeOff.EntryID] = writeOff
	}
	assert.Equal(t, "new session", byEntry[2].Comments)
	assert.Equal(t, int64(1000), byEntry[2].AdjustmentCents)
	assert.Equal(t, "untouched", byEntry[77].Comments)
	assert.Equal(t, int64(800), byEntry[77].AdjustmentCents)
}

func TestReconcileSupersededWriteOffsDropped(t *testing.T) {
	// Rows from an earlier session for entries that are re-composed without
	// an adjustment must not survive the merge.
	existing := []wipdomain.Adjustment{
		{EntryID: 1, TaskID: 100, OriginalCents: 30000, AdjustmentCents: 3000, ReasonCode: wipdomain.ReasonClientGoodwill},
		{EntryID: 2, TaskID: 100, OriginalCents: 10000, AdjustmentCents: 1000, ReasonCode: wipdomain.ReasonClientGoodwill},
	}

	result, err := Reconcile(ReconcileInput{
		Buckets:           []wipdomain.TaskBucket{adjustedBucket(100, 40000)},
		ExistingWriteOffs: existing,
		TaxRateBps:        1500,
		ToleranceCents:    1,
	})
	require.NoError(t, err)

	assert.Empty(t, result.WriteOffs)
	assert.Equal(t, int64(40000), result.SubtotalCents)
	for _, update := range result.EntryUpdates {
		assert.Nil(t, update.WriteOffReason)
	}
}

func noTaskBucket(projectID, entryID snowflake.ID, billed int64) wipdomain.TaskBucket {
	bucket := wipdomain.TaskBucket{
		ProjectID:       projectID,
		Name:            "No task",
		Billable:        true,
		TotalMinutes:    60,
		CalculatedCents: 20000,
		BilledCents:     20000,
		Entries: []wipdomain.BucketEntry{
			{EntryID: entryID, OriginalCents: 20000, InvoicedCents: 20000},
		},
	}
	return wipdomain.AdjustBucket(bucket, billed, wipdomain.DefaultToleranceCents)
}

func TestReconcileReasonScopedToProject(t *testing.T) {
	buckets := []wipdomain.TaskBucket{
		noTaskBucket(10, 1, 18000),
		noTaskBucket(20, 2, 15000),
	}

	// A reason for project 10's no-task bucket must not cover project 20's.
	_, err := Reconcile(ReconcileInput{
		Buckets: buckets,
		Reasons: map[BucketKey]AdjustmentReason{
			{ProjectID: 10}: {ReasonCode: wipdomain.ReasonClientGoodwill, Comments: "agreed"},
		},
		TaxRateBps:     1500,
		ToleranceCents: 1,
	})
	var validation ValidationErrors
	require.ErrorAs(t, err, &validation)
	require.Len(t, validation, 1)

	result, err := Reconcile(ReconcileInput{
		Buckets: buckets,
		Reasons: map[BucketKey]AdjustmentReason{
			{ProjectID: 10}: {ReasonCode: wipdomain.ReasonClientGoodwill, Comments: "agreed"},
			{ProjectID: 20}: {ReasonCode: wipdomain.ReasonScopeChange, Comments: "descoped"},
		},
		TaxRateBps:     1500,
		ToleranceCents: 1,
	})
	require.NoError(t, err)

	require.Len(t, result.WriteOffs, 2)
	byEntry := map[snowflake.ID]wipdomain.Adjustment{}
	for _, writeOff := range result.WriteOffs {
		byEntry[writeOff.EntryID] = writeOff
	}
	assert.Equal(t, wipdomain.ReasonClientGoodwill, byEntry[1].ReasonCode)
	assert.Equal(t, wipdomain.ReasonScopeChange, byEntry[2].ReasonCode)
}

func TestReconcileEmptyInvoice(t *testing.T) {
	_, err := Reconcile(ReconcileInput{TaxRateBps: 1500, ToleranceCents: 1})

	var validation ValidationErrors
	require.ErrorAs(t, err, &validation)
	assert.Equal(t, "empty_invoice", validation[0].Code)
}

func TestReconcileMismatchAssertion(t *testing.T) {
	bucket := adjustedBucket(100, 36000)
	bucket.Entries[0].InvoicedCents += 500 // corrupt the mirror

	_, err := Reconcile(ReconcileInput{
		Buckets: []wipdomain.TaskBucket{bucket},
		Reasons: map[BucketKey]AdjustmentReason{
			{ProjectID: 10, TaskID: 100}: {ReasonCode: wipdomain.ReasonClientGoodwill, Comments: "agreed"},
		},
		TaxRateBps:     1500,
		ToleranceCents: 1,
	})
	assert.ErrorIs(t, err, ErrReconciliationMismatch)
}

func TestReconcileSkipsNonBillableCosts(t *testing.T) {
	result, err := Reconcile(ReconcileInput{
		Buckets: []wipdomain.TaskBucket{adjustedBucket(100, 40000)},
		Costs: []CostLineItem{
			{Name: "Travel", Quantity: 2, RateCents: 2500, Billable: true},
			{Name: "Internal lunch", Quantity: 1, RateCents: 9900, Billable: false},
		},
		TaxRateBps:     0,
		ToleranceCents: 1,
	})
	require.NoError(t, err)

	require.Len(t, result.LineItems, 2)
	assert.Equal(t, "Travel", result.LineItems[1].Description)
	assert.Equal(t, int64(5000), result.LineItems[1].AmountCents)
	assert.Equal(t, int64(45000), result.SubtotalCents)
	assert.Equal(t, int64(0), result.TaxCents)
}

func TestCostLineItemFixedPriceWins(t *testing.T) {
	fixed := int64(12345)
	cost := CostLineItem{Name: "License", Quantity: 3, RateCents: 1000, FixedPriceCents: &fixed}
	assert.Equal(t, int64(12345), cost.AmountCents())
}

func TestTaxRounding(t *testing.T) {
	// 15% of 33.33 is 4.9995, rounds half up to 5.00.
	assert.Equal(t, int64(500), taxCents(3333, 1500))
	assert.Equal(t, int64(0), taxCents(0, 1500))
	assert.Equal(t, int64(0), taxCents(10000, 0))
	assert.Equal(t, int64(1500), taxCents(10000, 1500))
}
