package domain

import (
	"fmt"
	"sort"
	"strings"

	"github.com/bwmarrin/snowflake"
	timesheetdomain "github.com/smallbiznis/praxis/internal/timesheet/domain"
	wipdomain "github.com/smallbiznis/praxis/internal/wip/domain"
)

// AdjustmentReason is the reason supplied for one bucket's net adjustment.
type AdjustmentReason struct {
	ReasonCode wipdomain.ReasonCode
	Comments   string
}

// BucketKey addresses one (project, task) bucket. Two "No task" buckets from
// different projects must not share a reason, so the task ID alone is not
// enough.
type BucketKey struct {
	ProjectID snowflake.ID
	TaskID    snowflake.ID
}

type ReconcileInput struct {
	Buckets           []wipdomain.TaskBucket
	Costs             []CostLineItem
	ExistingWriteOffs []wipdomain.Adjustment
	Reasons           map[BucketKey]AdjustmentReason
	TaxRateBps        int64
	ToleranceCents    int64
}

// TimeEntryUpdate is the per-record write emitted by a reconciliation.
type TimeEntryUpdate struct {
	EntryID        snowflake.ID
	Status         timesheetdomain.Status
	InvoicedCents  int64
	WriteOffReason *string
}

type ReconcileResult struct {
	LineItems     []InvoiceLineItem
	SubtotalCents int64
	TaxCents      int64
	TotalCents    int64
	WriteOffs     []wipdomain.Adjustment
	EntryUpdates  []TimeEntryUpdate
}

// Reconcile validates the adjusted buckets, merges their adjustments with any
// previously stored write-offs and emits the complete write set for an
// invoice save. It is pure; persistence is the caller's concern. Validation
// failures return ValidationErrors and no write set at all.
func Reconcile(input ReconcileInput) (ReconcileResult, error) {
	tolerance := input.ToleranceCents
	if tolerance < 0 {
		tolerance = 0
	}

	var validation ValidationErrors
	for _, bucket := range input.Buckets {
		net := bucket.NetAdjustmentCents()
		if absCents(net) <= tolerance {
			continue
		}
		reason, ok := input.Reasons[BucketKey{ProjectID: bucket.ProjectID, TaskID: bucket.TaskID}]
		if !ok || !reason.ReasonCode.Valid() || strings.TrimSpace(reason.Comments) == "" {
			validation = append(validation, ValidationError{
				Field:   "task:" + bucketLabel(bucket),
				Code:    "missing_adjustment_reason",
				Message: fmt.Sprintf("task %q has a %s of %d cents and requires a reason code and comments", bucketLabel(bucket), direction(net), absCents(net)),
			})
		}
	}
	if len(validation) > 0 {
		return ReconcileResult{}, validation
	}

	result := ReconcileResult{}
	position := 0
	newWriteOffs := make([]wipdomain.Adjustment, 0)

	composition := make(map[snowflake.ID]struct{})
	for _, bucket := range input.Buckets {
		for _, entry := range bucket.Entries {
			composition[entry.EntryID] = struct{}{}
		}
	}

	for _, bucket := range input.Buckets {
		if !bucket.Billable {
			continue
		}

		var invoiced int64
		for _, entry := range bucket.Entries {
			invoiced += entry.InvoicedCents
		}
		if len(bucket.Entries) > 0 && absCents(invoiced-bucket.BilledCents) > tolerance {
			return ReconcileResult{}, ErrReconciliationMismatch
		}

		result.LineItems = append(result.LineItems, InvoiceLineItem{
			ProjectID:     bucket.ProjectID,
			TaskID:        taskIDRef(bucket.TaskID),
			Description:   bucketLabel(bucket),
			Minutes:       bucket.TotalMinutes,
			RateCents:     effectiveRateCents(bucket.BilledCents, bucket.TotalMinutes),
			AmountCents:   bucket.BilledCents,
			OriginalCents: bucket.CalculatedCents,
			Position:      position,
		})
		position++

		reason := input.Reasons[BucketKey{ProjectID: bucket.ProjectID, TaskID: bucket.TaskID}]
		reasonByEntry := make(map[snowflake.ID]wipdomain.ReasonCode, len(bucket.Adjustments))
		for _, adjustment := range bucket.Adjustments {
			adjustment.ReasonCode = reason.ReasonCode
			adjustment.Comments = strings.TrimSpace(reason.Comments)
			newWriteOffs = append(newWriteOffs, adjustment)
			reasonByEntry[adjustment.EntryID] = adjustment.ReasonCode
		}

		for _, entry := range bucket.Entries {
			update := TimeEntryUpdate{
				EntryID:       entry.EntryID,
				Status:        timesheetdomain.StatusInvoiced,
				InvoicedCents: entry.InvoicedCents,
			}
			if entry.InvoicedCents <= 0 {
				update.Status = timesheetdomain.StatusWrittenOff
				update.InvoicedCents = maxCents(entry.InvoicedCents, 0)
			}
			if code, ok := reasonByEntry[entry.EntryID]; ok {
				value := string(code)
				update.WriteOffReason = &value
			}
			result.EntryUpdates = append(result.EntryUpdates, update)
		}
	}

	for _, cost := range input.Costs {
		if !cost.Billable {
			continue
		}
		amount := cost.AmountCents()
		result.LineItems = append(result.LineItems, InvoiceLineItem{
			Description:   cost.Name,
			RateCents:     cost.RateCents,
			AmountCents:   amount,
			OriginalCents: amount,
			Position:      position,
		})
		position++
	}

	if len(result.LineItems) == 0 {
		return ReconcileResult{}, ValidationErrors{{
			Field:   "line_items",
			Code:    "empty_invoice",
			Message: "an invoice requires at least one billable line item",
		}}
	}

	for _, item := range result.LineItems {
		result.SubtotalCents += item.AmountCents
	}
	result.TaxCents = taxCents(result.SubtotalCents, input.TaxRateBps)
	result.TotalCents = result.SubtotalCents + result.TaxCents
	result.WriteOffs = mergeWriteOffs(input.ExistingWriteOffs, newWriteOffs, composition)

	return result, nil
}

// mergeWriteOffs consolidates stored and freshly emitted adjustments to one
// record per time entry. Entries in this reconciliation's composition were
// fully re-derived, so their stored rows are superseded: they carry only what
// the session produced, which may be nothing. Stored rows for entries outside
// the composition are retained.
func mergeWriteOffs(existing, updates []wipdomain.Adjustment, composition map[snowflake.ID]struct{}) []wipdomain.Adjustment {
	merged := make(map[snowflake.ID]wipdomain.Adjustment, len(existing)+len(updates))
	for _, adjustment := range existing {
		if _, ok := composition[adjustment.EntryID]; ok {
			continue
		}
		merged[adjustment.EntryID] = adjustment
	}
	for _, adjustment := range updates {
		merged[adjustment.EntryID] = adjustment
	}

	result := make([]wipdomain.Adjustment, 0, len(merged))
	for _, adjustment := range merged {
		result = append(result, adjustment)
	}
	sort.Slice(result, func(a, b int) bool {
		return result[a].EntryID < result[b].EntryID
	})
	return result
}

func taxCents(subtotalCents, rateBps int64) int64 {
	if rateBps <= 0 || subtotalCents <= 0 {
		return 0
	}
	return (subtotalCents*rateBps + 5000) / 10000
}

func effectiveRateCents(amountCents, minutes int64) int64 {
	if minutes <= 0 {
		return 0
	}
	return (amountCents*60 + minutes/2) / minutes
}

func bucketLabel(bucket wipdomain.TaskBucket) string {
	if strings.TrimSpace(bucket.Name) != "" {
		return bucket.Name
	}
	if bucket.TaskID != 0 {
		return bucket.TaskID.String()
	}
	return "No task"
}

func taskIDRef(id snowflake.ID) *snowflake.ID {
	if id == 0 {
		return nil
	}
	return &id
}

func direction(net int64) string {
	if net >= 0 {
		return "write-off"
	}
	return "write-on"
}

func absCents(v int64) int64 {
	if v < 0 {
		return -v
	}
	return v
}

func maxCents(a, b int64) int64 {
	if a > b {
		return a
	}
	return b
}
