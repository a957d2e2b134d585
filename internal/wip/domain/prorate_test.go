package domain

import (
	"math/rand"
	"testing"
	"time"

	"github.com/bwmarrin/snowflake"
	timesheetdomain "github.com/smallbiznis/praxis/internal/timesheet/domain"
	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
)

func taskIDPtr(id snowflake.ID) *snowflake.ID { return &id }

func entry(id snowflake.ID, original int64) BucketEntry {
	return BucketEntry{
		EntryID:       id,
		UserID:        "staff-1",
		OriginalCents: original,
		InvoicedCents: original,
	}
}

func TestAggregateGroupsByProjectAndTask(t *testing.T) {
	billable := int64(30000)
	entries := []timesheetdomain.TimeEntry{
		{ID: 1, ProjectID: 10, TaskID: taskIDPtr(100), UserID: "alice", Billable: true, Status: timesheetdomain.StatusUninvoiced, DurationMinutes: 60, BillableCents: &billable},
		{ID: 2, ProjectID: 10, TaskID: taskIDPtr(100), UserID: "bob", Billable: true, Status: timesheetdomain.StatusUninvoiced, DurationMinutes: 30, RateCents: 20000},
		{ID: 3, ProjectID: 10, TaskID: nil, UserID: "alice", Billable: true, Status: timesheetdomain.StatusUninvoiced, DurationMinutes: 90, RateCents: 10000},
		{ID: 4, ProjectID: 20, TaskID: taskIDPtr(200), UserID: "carol", Billable: true, Status: timesheetdomain.StatusUninvoiced, DurationMinutes: 15, RateCents: 12000},
		{ID: 5, ProjectID: 10, TaskID: taskIDPtr(100), UserID: "dan", Billable: false, Status: timesheetdomain.StatusUninvoiced, DurationMinutes: 600, RateCents: 50000},
		{ID: 6, ProjectID: 10, TaskID: taskIDPtr(100), UserID: "erin", Billable: true, Status: timesheetdomain.StatusInvoiced, DurationMinutes: 600, RateCents: 50000},
	}
	names := NameIndex{
		Projects: map[snowflake.ID]string{10: "Alpha", 20: "Beta"},
		Tasks:    map[snowflake.ID]string{100: "Audit", 200: "Advisory"},
	}

	buckets := Aggregate(entries, names, 15000)
	require.Len(t, buckets, 3)

	audit := buckets[0]
	assert.Equal(t, snowflake.ID(10), audit.ProjectID)
	assert.Equal(t, snowflake.ID(100), audit.TaskID)
	assert.Equal(t, "Audit", audit.Name)
	assert.Equal(t, "Alpha", audit.ProjectName)
	assert.Equal(t, int64(90), audit.TotalMinutes)
	// 30000 stored billable + 30min at 20000/h.
	assert.Equal(t, int64(40000), audit.CalculatedCents)
	assert.Equal(t, audit.CalculatedCents, audit.BilledCents)
	require.Len(t, audit.Entries, 2)

	noTask := buckets[1]
	assert.Equal(t, snowflake.ID(0), noTask.TaskID)
	assert.Equal(t, "No task", noTask.Name)
	assert.Equal(t, int64(15000), noTask.CalculatedCents)

	advisory := buckets[2]
	assert.Equal(t, snowflake.ID(20), advisory.ProjectID)
	assert.Equal(t, int64(3000), advisory.CalculatedCents)

	// Input must be untouched.
	assert.Equal(t, snowflake.ID(1), entries[0].ID)
	assert.Nil(t, entries[2].InvoicedCents)
}

func TestAggregateEmptyInput(t *testing.T) {
	buckets := Aggregate(nil, NameIndex{}, 15000)
	assert.Empty(t, buckets)
}

func TestAggregateDefaultRateFallback(t *testing.T) {
	entries := []timesheetdomain.TimeEntry{
		{ID: 1, ProjectID: 10, UserID: "alice", Billable: true, Status: timesheetdomain.StatusUninvoiced, DurationMinutes: 60},
	}

	buckets := Aggregate(entries, NameIndex{}, 15000)
	require.Len(t, buckets, 1)
	assert.Equal(t, int64(15000), buckets[0].CalculatedCents)
}

func TestAdjustBucketWithinToleranceResets(t *testing.T) {
	bucket := TaskBucket{
		TaskID:          100,
		CalculatedCents: 40000,
		BilledCents:     40000,
		Entries:         []BucketEntry{entry(1, 30000), entry(2, 10000)},
	}

	// Pre-dirty the invoiced mirrors to prove the reset.
	bucket.Entries[0].InvoicedCents = 1
	bucket.Entries[1].InvoicedCents = 2

	adjusted := AdjustBucket(bucket, 40001, DefaultToleranceCents)
	assert.Empty(t, adjusted.Adjustments)
	assert.Equal(t, int64(40000), adjusted.BilledCents)
	assert.Equal(t, int64(30000), adjusted.Entries[0].InvoicedCents)
	assert.Equal(t, int64(10000), adjusted.Entries[1].InvoicedCents)

	// Original bucket untouched.
	assert.Equal(t, int64(1), bucket.Entries[0].InvoicedCents)
}

func TestAdjustBucketExampleScenario(t *testing.T) {
	bucket := TaskBucket{
		TaskID:          100,
		CalculatedCents: 40000,
		BilledCents:     40000,
		Entries:         []BucketEntry{entry(1, 30000), entry(2, 10000)},
	}

	adjusted := AdjustBucket(bucket, 36000, DefaultToleranceCents)
	require.Len(t, adjusted.Adjustments, 2)
	assert.Equal(t, int64(27000), adjusted.Entries[0].InvoicedCents)
	assert.Equal(t, int64(9000), adjusted.Entries[1].InvoicedCents)
	assert.Equal(t, int64(3000), adjusted.Adjustments[0].AdjustmentCents)
	assert.Equal(t, int64(1000), adjusted.Adjustments[1].AdjustmentCents)
	assert.Equal(t, snowflake.ID(100), adjusted.Adjustments[0].TaskID)

	var invoiced int64
	for _, e := range adjusted.Entries {
		invoiced += e.InvoicedCents
	}
	assert.Equal(t, adjusted.BilledCents, invoiced)
}

func TestAdjustBucketWriteOn(t *testing.T) {
	bucket := TaskBucket{
		CalculatedCents: 40000,
		BilledCents:     40000,
		Entries:         []BucketEntry{entry(1, 30000), entry(2, 10000)},
	}

	adjusted := AdjustBucket(bucket, 44000, DefaultToleranceCents)
	require.Len(t, adjusted.Adjustments, 2)
	assert.Equal(t, int64(33000), adjusted.Entries[0].InvoicedCents)
	assert.Equal(t, int64(11000), adjusted.Entries[1].InvoicedCents)
	assert.Equal(t, int64(-3000), adjusted.Adjustments[0].AdjustmentCents)
	assert.Equal(t, int64(-1000), adjusted.Adjustments[1].AdjustmentCents)
}

func TestProrateRemainderTieGoesToLowerID(t *testing.T) {
	entries := []BucketEntry{entry(7, 5000), entry(3, 5000)}

	out, adjustments := Prorate(entries, 1)
	require.Len(t, adjustments, 1)
	assert.Equal(t, snowflake.ID(3), adjustments[0].EntryID)

	var invoiced int64
	for _, e := range out {
		invoiced += e.InvoicedCents
	}
	assert.Equal(t, int64(9999), invoiced)
}

func TestProrateZeroTotalOriginal(t *testing.T) {
	entries := []BucketEntry{entry(9, 0), entry(4, 0), entry(6, 0)}

	out, adjustments := Prorate(entries, 2500)
	require.Len(t, adjustments, 1)
	assert.Equal(t, snowflake.ID(4), adjustments[0].EntryID)
	assert.Equal(t, int64(2500), adjustments[0].AdjustmentCents)
	for _, e := range out {
		if e.EntryID == 4 {
			assert.Equal(t, int64(-2500), e.InvoicedCents)
		} else {
			assert.Equal(t, int64(0), e.InvoicedCents)
		}
	}
}

func TestProrateNoEntries(t *testing.T) {
	out, adjustments := Prorate(nil, 5000)
	assert.Empty(t, out)
	assert.Empty(t, adjustments)
}

func TestProrateReconciliationInvariantFuzz(t *testing.T) {
	rng := rand.New(rand.NewSource(time.Now().UnixNano()))

	for iter := 0; iter < 2000; iter++ {
		n := rng.Intn(9)
		entries := make([]BucketEntry, 0, n)
		var totalOriginal int64
		for i := 0; i < n; i++ {
			original := rng.Int63n(500000)
			totalOriginal += original
			entries = append(entries, entry(snowflake.ID(i+1), original))
		}

		billed := rng.Int63n(600000)
		if rng.Intn(4) == 0 {
			billed = totalOriginal
		}
		delta := totalOriginal - billed

		out, adjustments := Prorate(entries, delta)
		require.Len(t, out, n)

		if n == 0 {
			assert.Empty(t, adjustments)
			continue
		}

		var invoiced, adjusted int64
		for _, e := range out {
			invoiced += e.InvoicedCents
		}
		for _, a := range adjustments {
			adjusted += a.AdjustmentCents
		}

		require.Equalf(t, billed, invoiced, "iter %d: invoiced sum must equal billed", iter)
		require.Equalf(t, delta, adjusted, "iter %d: adjustment sum must equal delta", iter)

		// Proportionality within one cent of the exact share.
		if totalOriginal > 0 {
			for i, e := range out {
				share := delta * entries[i].OriginalCents
				got := (entries[i].OriginalCents - e.InvoicedCents) * totalOriginal
				diff := got - share
				if diff < 0 {
					diff = -diff
				}
				require.LessOrEqualf(t, diff, totalOriginal, "iter %d entry %d: share off by more than a cent", iter, i)
			}
		}
	}
}

func TestProrateIdempotentNoOp(t *testing.T) {
	entries := []BucketEntry{entry(1, 30000), entry(2, 10000)}

	out, adjustments := Prorate(entries, 0)
	assert.Empty(t, adjustments)
	for i, e := range out {
		assert.Equal(t, entries[i].OriginalCents, e.InvoicedCents)
	}
}
