package domain

import (
	"context"
	"errors"
	"time"
)

type CreateTimeEntryRequest struct {
	ProjectID       string
	TaskID          string
	UserID          string
	Date            time.Time
	DurationMinutes int64
	Billable        *bool
	RateCents       int64
	BillableCents   *int64
	Description     string
}

type UpdateTimeEntryRequest struct {
	ID              string
	TaskID          *string
	Date            *time.Time
	DurationMinutes *int64
	Billable        *bool
	RateCents       *int64
	BillableCents   *int64
	Description     *string
}

type ListTimeEntryRequest struct {
	ProjectID string
	TaskID    string
	Status    string
	DateFrom  *time.Time
	DateTo    *time.Time
}

type DeleteTimeEntryRequest struct {
	ID string
}

type Service interface {
	Create(context.Context, CreateTimeEntryRequest) (TimeEntry, error)
	List(context.Context, ListTimeEntryRequest) ([]TimeEntry, error)
	Update(context.Context, UpdateTimeEntryRequest) (TimeEntry, error)
	Delete(context.Context, DeleteTimeEntryRequest) error
	ListUnbilled(ctx context.Context, projectIDs []string) ([]TimeEntry, error)
}

var (
	ErrInvalidProject  = errors.New("invalid_project")
	ErrInvalidTask     = errors.New("invalid_task")
	ErrInvalidUser     = errors.New("invalid_user")
	ErrInvalidDuration = errors.New("invalid_duration")
	ErrInvalidAmount   = errors.New("invalid_amount")
	ErrInvalidStatus   = errors.New("invalid_status")
	ErrInvalidID       = errors.New("invalid_id")
	ErrNotFound        = errors.New("not_found")
	ErrEntryLocked     = errors.New("entry_locked")
)
