package domain

import (
	"time"

	"github.com/bwmarrin/snowflake"
)

// ReasonCode classifies why billed value diverged from calculated value.
type ReasonCode string

const (
	ReasonClientGoodwill  ReasonCode = "CLIENT_GOODWILL"
	ReasonScopeChange     ReasonCode = "SCOPE_CHANGE"
	ReasonEfficiencyGain  ReasonCode = "EFFICIENCY_GAIN"
	ReasonErrorCorrection ReasonCode = "ERROR_CORRECTION"
	ReasonPremiumValue    ReasonCode = "PREMIUM_VALUE"
	ReasonOther           ReasonCode = "OTHER"
)

func (r ReasonCode) Valid() bool {
	switch r {
	case ReasonClientGoodwill, ReasonScopeChange, ReasonEfficiencyGain,
		ReasonErrorCorrection, ReasonPremiumValue, ReasonOther:
		return true
	default:
		return false
	}
}

// BucketEntry mirrors one time entry inside a bucket. InvoicedCents starts at
// OriginalCents and moves as the bucket's billed amount is adjusted.
type BucketEntry struct {
	EntryID       snowflake.ID `json:"entry_id"`
	UserID        string       `json:"user_id"`
	Date          time.Time    `json:"date"`
	Description   string       `json:"description,omitempty"`
	OriginalCents int64        `json:"original_cents"`
	InvoicedCents int64        `json:"invoiced_cents"`
}

// Adjustment records the slice of a write-off or write-on carried by a single
// time entry. Positive AdjustmentCents reduce the billed value (write-off),
// negative increase it (write-on).
type Adjustment struct {
	EntryID         snowflake.ID `json:"entry_id"`
	TaskID          snowflake.ID `json:"task_id"`
	UserID          string       `json:"user_id"`
	Date            time.Time    `json:"date"`
	Description     string       `json:"description,omitempty"`
	OriginalCents   int64        `json:"original_cents"`
	AdjustmentCents int64        `json:"adjustment_cents"`
	ReasonCode      ReasonCode   `json:"reason_code,omitempty"`
	Comments        string       `json:"comments,omitempty"`
}

// TaskBucket groups the uninvoiced billable entries of one (project, task)
// pair. Buckets are ephemeral; only their net effect is ever persisted.
type TaskBucket struct {
	ProjectID       snowflake.ID  `json:"project_id"`
	TaskID          snowflake.ID  `json:"task_id"`
	Name            string        `json:"name"`
	ProjectName     string        `json:"project_name,omitempty"`
	TotalMinutes    int64         `json:"total_minutes"`
	CalculatedCents int64         `json:"calculated_cents"`
	BilledCents     int64         `json:"billed_cents"`
	Billable        bool          `json:"billable"`
	Entries         []BucketEntry `json:"entries"`
	Adjustments     []Adjustment  `json:"adjustments,omitempty"`
}

// NetAdjustmentCents is calculated minus billed for the whole bucket.
func (b TaskBucket) NetAdjustmentCents() int64 {
	return b.CalculatedCents - b.BilledCents
}
