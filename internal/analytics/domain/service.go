package domain

import (
	"context"
	"errors"

	"github.com/bwmarrin/snowflake"
)

// WIPBalance is the uninvoiced value sitting against one project.
type WIPBalance struct {
	ProjectID    snowflake.ID `json:"project_id"`
	ProjectName  string       `json:"project_name"`
	ClientID     snowflake.ID `json:"client_id"`
	EntryCount   int64        `json:"entry_count"`
	BalanceCents int64        `json:"balance_cents"`
}

// Realization compares what was billed against what the clock said.
type Realization struct {
	ProjectID       snowflake.ID `json:"project_id"`
	ProjectName     string       `json:"project_name"`
	CalculatedCents int64        `json:"calculated_cents"`
	InvoicedCents   int64        `json:"invoiced_cents"`
	// Rate is invoiced over calculated, 1.0 when nothing was calculated.
	Rate float64 `json:"rate"`
}

type AgingBucket struct {
	Label        string `json:"label"`
	InvoiceCount int64  `json:"invoice_count"`
	TotalCents   int64  `json:"total_cents"`
}

type WIPBalanceRequest struct {
	ClientID string `form:"client_id"`
}

type RealizationRequest struct {
	ClientID string `form:"client_id"`
}

type Service interface {
	WIPBalances(ctx context.Context, req WIPBalanceRequest) ([]WIPBalance, error)
	RealizationRates(ctx context.Context, req RealizationRequest) ([]Realization, error)
	InvoiceAging(ctx context.Context) ([]AgingBucket, error)
}

var ErrInvalidClient = errors.New("invalid_client_id")
