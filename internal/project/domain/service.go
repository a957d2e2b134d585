package domain

import (
	"context"
	"errors"

	"github.com/smallbiznis/praxis/pkg/db/pagination"
)

type ListProjectRequest struct {
	PageToken string
	PageSize  int32
	ClientID  string
	Active    *bool
}

type ListProjectResponse struct {
	pagination.PageInfo
	Projects []Project `json:"projects"`
}

type CreateProjectRequest struct {
	ClientID        string
	Name            string
	Code            string
	HourlyRateCents *int64
}

type UpdateProjectRequest struct {
	ID              string
	Name            *string
	Code            *string
	HourlyRateCents *int64
	Active          *bool
}

type GetProjectRequest struct {
	ID string
}

type CreateTaskRequest struct {
	ProjectID string
	Name      string
}

type ListTaskRequest struct {
	ProjectID string
	Active    *bool
}

type UpdateTaskRequest struct {
	ID     string
	Name   *string
	Active *bool
}

type Service interface {
	Create(context.Context, CreateProjectRequest) (Project, error)
	List(context.Context, ListProjectRequest) (ListProjectResponse, error)
	GetByID(context.Context, GetProjectRequest) (Project, error)
	Update(context.Context, UpdateProjectRequest) (Project, error)

	CreateTask(context.Context, CreateTaskRequest) (Task, error)
	ListTasks(context.Context, ListTaskRequest) ([]Task, error)
	UpdateTask(context.Context, UpdateTaskRequest) (Task, error)
}

var (
	ErrInvalidClient = errors.New("invalid_client")
	ErrInvalidName   = errors.New("invalid_name")
	ErrInvalidRate   = errors.New("invalid_rate")
	ErrInvalidID     = errors.New("invalid_id")
	ErrNotFound      = errors.New("not_found")
	ErrTaskNotFound  = errors.New("task_not_found")
)
