package domain

import (
	"sort"

	"github.com/bwmarrin/snowflake"
	timesheetdomain "github.com/smallbiznis/praxis/internal/timesheet/domain"
)

// DefaultToleranceCents is the band inside which a billed-amount override is
// treated as unadjusted.
const DefaultToleranceCents int64 = 1

// NameIndex resolves display names for bucket headers.
type NameIndex struct {
	Projects map[snowflake.ID]string
	Tasks    map[snowflake.ID]string
}

type bucketKey struct {
	projectID snowflake.ID
	taskID    snowflake.ID
}

// Aggregate groups billable uninvoiced entries into one bucket per
// (project, task) pair. Entries without a task fall into a zero-keyed bucket
// named "No task". The input is not mutated and each entry is visited once.
func Aggregate(entries []timesheetdomain.TimeEntry, names NameIndex, defaultRateCents int64) []TaskBucket {
	buckets := make(map[bucketKey]*TaskBucket)
	order := make([]bucketKey, 0)

	for _, entry := range entries {
		if !entry.Billable || entry.Status != timesheetdomain.StatusUninvoiced {
			continue
		}

		key := bucketKey{projectID: entry.ProjectID}
		if entry.TaskID != nil {
			key.taskID = *entry.TaskID
		}

		bucket, ok := buckets[key]
		if !ok {
			bucket = &TaskBucket{
				ProjectID:   key.projectID,
				TaskID:      key.taskID,
				Name:        taskName(names, key.taskID),
				ProjectName: names.Projects[key.projectID],
				Billable:    true,
			}
			buckets[key] = bucket
			order = append(order, key)
		}

		original := entry.OriginalCents(defaultRateCents)
		bucket.TotalMinutes += entry.DurationMinutes
		bucket.CalculatedCents += original
		bucket.Entries = append(bucket.Entries, BucketEntry{
			EntryID:       entry.ID,
			UserID:        entry.UserID,
			Date:          entry.Date,
			Description:   entry.Description,
			OriginalCents: original,
			InvoicedCents: original,
		})
	}

	result := make([]TaskBucket, 0, len(order))
	for _, key := range order {
		bucket := buckets[key]
		bucket.BilledCents = bucket.CalculatedCents
		result = append(result, *bucket)
	}
	return result
}

func taskName(names NameIndex, taskID snowflake.ID) string {
	if taskID == 0 {
		return "No task"
	}
	if name, ok := names.Tasks[taskID]; ok && name != "" {
		return name
	}
	return taskID.String()
}

// AdjustBucket applies a billed-amount override to a bucket and returns the
// recomputed bucket. Within tolerance the bucket is considered unadjusted:
// adjustments are cleared and every entry's invoiced amount resets to its
// original. Beyond tolerance the delta is prorated across the entries.
func AdjustBucket(bucket TaskBucket, billedCents, toleranceCents int64) TaskBucket {
	out := bucket
	out.Entries = make([]BucketEntry, len(bucket.Entries))
	copy(out.Entries, bucket.Entries)
	out.Adjustments = nil
	out.BilledCents = billedCents

	delta := bucket.CalculatedCents - billedCents
	if abs(delta) <= toleranceCents {
		out.BilledCents = bucket.CalculatedCents
		for i := range out.Entries {
			out.Entries[i].InvoicedCents = out.Entries[i].OriginalCents
		}
		return out
	}

	entries, adjustments := Prorate(out.Entries, delta)
	for i := range adjustments {
		adjustments[i].TaskID = bucket.TaskID
	}
	out.Entries = entries
	out.Adjustments = adjustments
	return out
}

// Prorate distributes deltaCents across the entries in proportion to each
// entry's share of the total original amount, in exact integer cents. The
// fractional remainders are settled largest first, ties broken by lower entry
// ID, so the invoiced amounts always sum to original minus delta exactly.
//
// When the total original amount is zero the whole delta lands on the entry
// with the lowest ID; with no entries at all the delta surfaces only at the
// line-item level and no record adjustments are produced.
func Prorate(entries []BucketEntry, deltaCents int64) ([]BucketEntry, []Adjustment) {
	out := make([]BucketEntry, len(entries))
	copy(out, entries)
	if len(out) == 0 {
		return out, nil
	}

	var totalOriginal int64
	for _, entry := range out {
		totalOriginal += entry.OriginalCents
	}

	deltas := make([]int64, len(out))
	switch {
	case totalOriginal == 0:
		lowest := 0
		for i := range out {
			if out[i].EntryID < out[lowest].EntryID {
				lowest = i
			}
		}
		deltas[lowest] = deltaCents
	default:
		sign := int64(1)
		magnitude := deltaCents
		if magnitude < 0 {
			sign = -1
			magnitude = -magnitude
		}

		type fraction struct {
			index     int
			remainder int64
		}
		fractions := make([]fraction, len(out))
		var assigned int64
		for i, entry := range out {
			base := magnitude * entry.OriginalCents / totalOriginal
			deltas[i] = base
			assigned += base
			fractions[i] = fraction{index: i, remainder: magnitude * entry.OriginalCents % totalOriginal}
		}

		sort.Slice(fractions, func(a, b int) bool {
			if fractions[a].remainder != fractions[b].remainder {
				return fractions[a].remainder > fractions[b].remainder
			}
			return out[fractions[a].index].EntryID < out[fractions[b].index].EntryID
		})
		for i := int64(0); i < magnitude-assigned; i++ {
			deltas[fractions[i].index]++
		}

		for i := range deltas {
			deltas[i] *= sign
		}
	}

	adjustments := make([]Adjustment, 0, len(out))
	for i := range out {
		out[i].InvoicedCents = out[i].OriginalCents - deltas[i]
		if deltas[i] == 0 {
			continue
		}
		adjustments = append(adjustments, Adjustment{
			EntryID:         out[i].EntryID,
			UserID:          out[i].UserID,
			Date:            out[i].Date,
			Description:     out[i].Description,
			OriginalCents:   out[i].OriginalCents,
			AdjustmentCents: deltas[i],
		})
	}

	return out, adjustments
}

func abs(v int64) int64 {
	if v < 0 {
		return -v
	}
	return v
}
