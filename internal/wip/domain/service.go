package domain

import (
	"context"
	"errors"
)

type GetWIPRequest struct {
	ProjectIDs []string
}

type GetWIPResponse struct {
	Buckets              []TaskBucket `json:"buckets"`
	TotalCalculatedCents int64        `json:"total_calculated_cents"`
}

// AdjustRequest previews a billed-amount override against the live bucket
// for one (project, task) pair.
type AdjustRequest struct {
	ProjectID   string
	TaskID      string
	BilledCents int64
	ReasonCode  string
	Comments    string
}

type AdjustResponse struct {
	Bucket TaskBucket `json:"bucket"`
}

type Service interface {
	GetWIP(context.Context, GetWIPRequest) (GetWIPResponse, error)
	Adjust(context.Context, AdjustRequest) (AdjustResponse, error)
}

var (
	ErrInvalidProject = errors.New("invalid_project")
	ErrInvalidTask    = errors.New("invalid_task")
	ErrInvalidReason  = errors.New("invalid_reason")
	ErrBucketNotFound = errors.New("bucket_not_found")
)
