package domain

import (
	"context"
	"errors"
	"fmt"
	"strings"
	"time"

	"github.com/smallbiznis/praxis/pkg/db/pagination"
)

// ValidationError names a single field-level problem with a save request.
type ValidationError struct {
	Field   string `json:"field"`
	Code    string `json:"code"`
	Message string `json:"message"`
}

type ValidationErrors []ValidationError

func (v ValidationErrors) Error() string {
	if len(v) == 0 {
		return "validation failed"
	}
	parts := make([]string, 0, len(v))
	for _, item := range v {
		parts = append(parts, fmt.Sprintf("%s: %s", item.Field, item.Message))
	}
	return "validation failed: " + strings.Join(parts, "; ")
}

type BucketOverride struct {
	ProjectID   string `json:"project_id"`
	TaskID      string `json:"task_id,omitempty"`
	BilledCents int64  `json:"billed_cents"`
}

type ReasonInput struct {
	ProjectID  string `json:"project_id"`
	TaskID     string `json:"task_id,omitempty"`
	ReasonCode string `json:"reason_code"`
	Comments   string `json:"comments"`
}

type CostInput struct {
	Name            string `json:"name"`
	Quantity        int64  `json:"quantity"`
	RateCents       int64  `json:"rate_cents"`
	FixedPriceCents *int64 `json:"fixed_price_cents,omitempty"`
	Billable        bool   `json:"billable"`
}

// SaveInvoiceRequest creates a draft invoice, or replaces the composition of
// an existing draft when ID is set.
type SaveInvoiceRequest struct {
	ID         string
	ClientID   string
	ProjectIDs []string
	Overrides  []BucketOverride
	Costs      []CostInput
	Reasons    []ReasonInput
	DueAt      *time.Time
	Notes      string
	Actor      string
}

type ReconcileRequest struct {
	ClientID   string
	ProjectIDs []string
	Overrides  []BucketOverride
	Costs      []CostInput
	Reasons    []ReasonInput
}

// ReconcilePreview is a dry-run reconciliation; nothing is persisted.
type ReconcilePreview struct {
	LineItems     []InvoiceLineItem `json:"line_items"`
	SubtotalCents int64             `json:"subtotal_cents"`
	TaxRateBps    int64             `json:"tax_rate_bps"`
	TaxCents      int64             `json:"tax_cents"`
	TotalCents    int64             `json:"total_cents"`
	WriteOffs     int               `json:"write_off_count"`
	EntryUpdates  int               `json:"entry_update_count"`
}

type ListInvoiceRequest struct {
	PageToken string
	PageSize  int32
	ClientID  string
	Status    string
}

type ListInvoiceResponse struct {
	pagination.PageInfo
	Invoices []Invoice `json:"invoices"`
}

type GetInvoiceRequest struct {
	ID string
}

type InvoiceDetail struct {
	Invoice   Invoice           `json:"invoice"`
	LineItems []InvoiceLineItem `json:"line_items"`
	WriteOffs []WriteOffEntry   `json:"write_offs"`
}

type TransitionRequest struct {
	ID    string
	Actor string
}

type Service interface {
	Save(context.Context, SaveInvoiceRequest) (InvoiceDetail, error)
	Reconcile(context.Context, ReconcileRequest) (ReconcilePreview, error)
	List(context.Context, ListInvoiceRequest) (ListInvoiceResponse, error)
	GetByID(context.Context, GetInvoiceRequest) (InvoiceDetail, error)
	Approve(context.Context, TransitionRequest) (Invoice, error)
	Send(context.Context, TransitionRequest) (Invoice, error)
	MarkPaid(context.Context, TransitionRequest) (Invoice, error)
}

var (
	ErrInvalidClient          = errors.New("invalid_client")
	ErrInvalidProject         = errors.New("invalid_project")
	ErrInvalidID              = errors.New("invalid_id")
	ErrInvalidStatus          = errors.New("invalid_status")
	ErrNotFound               = errors.New("not_found")
	ErrNotDraft               = errors.New("invoice_not_draft")
	ErrInvalidTransition      = errors.New("invalid_status_transition")
	ErrReconciliationMismatch = errors.New("reconciliation_mismatch")
)
