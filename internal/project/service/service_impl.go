package service

import (
	"context"
	"strings"
	"time"

	"github.com/bwmarrin/snowflake"
	clientdomain "github.com/smallbiznis/praxis/internal/client/domain"
	"github.com/smallbiznis/praxis/internal/project/domain"
	"github.com/smallbiznis/praxis/pkg/db/option"
	"github.com/smallbiznis/praxis/pkg/db/pagination"
	"github.com/smallbiznis/praxis/pkg/repository"
	"go.uber.org/fx"
	"go.uber.org/zap"
	"gorm.io/gorm"
)

type Params struct {
	fx.In

	DB       *gorm.DB
	Log      *zap.Logger
	GenID    *snowflake.Node
	Projects repository.Repository[domain.Project]
	Tasks    repository.Repository[domain.Task]
	Clients  repository.Repository[clientdomain.Client]
}

type Service struct {
	db       *gorm.DB
	log      *zap.Logger
	genID    *snowflake.Node
	projects repository.Repository[domain.Project]
	tasks    repository.Repository[domain.Task]
	clients  repository.Repository[clientdomain.Client]
}

func New(p Params) domain.Service {
	return &Service{
		db:       p.DB,
		log:      p.Log.Named("project.service"),
		genID:    p.GenID,
		projects: p.Projects,
		tasks:    p.Tasks,
		clients:  p.Clients,
	}
}

func (s *Service) Create(ctx context.Context, req domain.CreateProjectRequest) (domain.Project, error) {
	clientID, err := snowflake.ParseString(strings.TrimSpace(req.ClientID))
	if err != nil || clientID == 0 {
		return domain.Project{}, domain.ErrInvalidClient
	}

	owner, err := s.clients.FindOne(ctx, &clientdomain.Client{ID: clientID})
	if err != nil {
		return domain.Project{}, err
	}
	if owner == nil {
		return domain.Project{}, domain.ErrInvalidClient
	}

	name := strings.TrimSpace(req.Name)
	if name == "" {
		return domain.Project{}, domain.ErrInvalidName
	}
	if req.HourlyRateCents != nil && *req.HourlyRateCents < 0 {
		return domain.Project{}, domain.ErrInvalidRate
	}

	now := time.Now().UTC()
	project := domain.Project{
		ID:              s.genID.Generate(),
		ClientID:        clientID,
		Name:            name,
		Code:            strings.TrimSpace(req.Code),
		HourlyRateCents: req.HourlyRateCents,
		Active:          true,
		CreatedAt:       now,
		UpdatedAt:       now,
	}

	if err := s.projects.Create(ctx, &project); err != nil {
		return domain.Project{}, err
	}

	return project, nil
}

func (s *Service) List(ctx context.Context, req domain.ListProjectRequest) (domain.ListProjectResponse, error) {
	pageSize := req.PageSize
	if pageSize <= 0 {
		pageSize = 50
	}

	query := domain.Project{}
	if clientID := strings.TrimSpace(req.ClientID); clientID != "" {
		id, err := snowflake.ParseString(clientID)
		if err != nil || id == 0 {
			return domain.ListProjectResponse{}, domain.ErrInvalidClient
		}
		query.ClientID = id
	}

	opts := []option.QueryOption{
		option.ApplyPagination(pagination.Pagination{
			PageToken: req.PageToken,
			PageSize:  int(pageSize),
		}),
		option.WithSortBy(option.QuerySortBy{Field: "created_at", Desc: true}),
	}
	if req.Active != nil {
		opts = append(opts, option.ApplyOperator(option.Condition{
			Field:    "active",
			Operator: option.EQ,
			Value:    *req.Active,
		}))
	}

	items, err := s.projects.Find(ctx, &query, opts...)
	if err != nil {
		return domain.ListProjectResponse{}, err
	}

	pageInfo := pagination.BuildCursorPageInfo(items, pageSize, func(project *domain.Project) string {
		token, err := pagination.EncodeCursor(pagination.Cursor{
			ID:        project.ID.String(),
			CreatedAt: project.CreatedAt.Format(time.RFC3339),
		})
		if err != nil {
			return ""
		}
		return token
	})
	if pageInfo != nil && pageInfo.HasMore && len(items) > int(pageSize) {
		items = items[:pageSize]
	}

	projects := make([]domain.Project, 0, len(items))
	for _, item := range items {
		if item == nil {
			continue
		}
		projects = append(projects, *item)
	}

	resp := domain.ListProjectResponse{Projects: projects}
	if pageInfo != nil {
		resp.PageInfo = *pageInfo
	}

	return resp, nil
}

func (s *Service) GetByID(ctx context.Context, req domain.GetProjectRequest) (domain.Project, error) {
	id, err := parseID(req.ID)
	if err != nil {
		return domain.Project{}, err
	}

	item, err := s.projects.FindOne(ctx, &domain.Project{ID: id})
	if err != nil {
		return domain.Project{}, err
	}
	if item == nil {
		return domain.Project{}, domain.ErrNotFound
	}

	return *item, nil
}

func (s *Service) Update(ctx context.Context, req domain.UpdateProjectRequest) (domain.Project, error) {
	id, err := parseID(req.ID)
	if err != nil {
		return domain.Project{}, err
	}

	item, err := s.projects.FindOne(ctx, &domain.Project{ID: id})
	if err != nil {
		return domain.Project{}, err
	}
	if item == nil {
		return domain.Project{}, domain.ErrNotFound
	}

	updates := map[string]any{}
	if req.Name != nil {
		name := strings.TrimSpace(*req.Name)
		if name == "" {
			return domain.Project{}, domain.ErrInvalidName
		}
		item.Name = name
		updates["name"] = name
	}
	if req.Code != nil {
		item.Code = strings.TrimSpace(*req.Code)
		updates["code"] = item.Code
	}
	if req.HourlyRateCents != nil {
		if *req.HourlyRateCents < 0 {
			return domain.Project{}, domain.ErrInvalidRate
		}
		item.HourlyRateCents = req.HourlyRateCents
		updates["hourly_rate_cents"] = *req.HourlyRateCents
	}
	if req.Active != nil {
		item.Active = *req.Active
		updates["active"] = item.Active
	}
	if len(updates) == 0 {
		return *item, nil
	}

	item.UpdatedAt = time.Now().UTC()
	updates["updated_at"] = item.UpdatedAt

	if err := s.projects.Update(ctx, item.ID.String(), updates); err != nil {
		return domain.Project{}, err
	}

	return *item, nil
}

func (s *Service) CreateTask(ctx context.Context, req domain.CreateTaskRequest) (domain.Task, error) {
	projectID, err := snowflake.ParseString(strings.TrimSpace(req.ProjectID))
	if err != nil || projectID == 0 {
		return domain.Task{}, domain.ErrInvalidID
	}

	parent, err := s.projects.FindOne(ctx, &domain.Project{ID: projectID})
	if err != nil {
		return domain.Task{}, err
	}
	if parent == nil {
		return domain.Task{}, domain.ErrNotFound
	}

	name := strings.TrimSpace(req.Name)
	if name == "" {
		return domain.Task{}, domain.ErrInvalidName
	}

	now := time.Now().UTC()
	task := domain.Task{
		ID:        s.genID.Generate(),
		ProjectID: projectID,
		Name:      name,
		Active:    true,
		CreatedAt: now,
		UpdatedAt: now,
	}

	if err := s.tasks.Create(ctx, &task); err != nil {
		return domain.Task{}, err
	}

	return task, nil
}

func (s *Service) ListTasks(ctx context.Context, req domain.ListTaskRequest) ([]domain.Task, error) {
	query := domain.Task{}
	if projectID := strings.TrimSpace(req.ProjectID); projectID != "" {
		id, err := snowflake.ParseString(projectID)
		if err != nil || id == 0 {
			return nil, domain.ErrInvalidID
		}
		query.ProjectID = id
	}

	opts := []option.QueryOption{
		option.WithSortBy(option.QuerySortBy{Field: "created_at", Desc: false}),
	}
	if req.Active != nil {
		opts = append(opts, option.ApplyOperator(option.Condition{
			Field:    "active",
			Operator: option.EQ,
			Value:    *req.Active,
		}))
	}

	items, err := s.tasks.Find(ctx, &query, opts...)
	if err != nil {
		return nil, err
	}

	tasks := make([]domain.Task, 0, len(items))
	for _, item := range items {
		if item == nil {
			continue
		}
		tasks = append(tasks, *item)
	}

	return tasks, nil
}

func (s *Service) UpdateTask(ctx context.Context, req domain.UpdateTaskRequest) (domain.Task, error) {
	id, err := parseID(req.ID)
	if err != nil {
		return domain.Task{}, err
	}

	item, err := s.tasks.FindOne(ctx, &domain.Task{ID: id})
	if err != nil {
		return domain.Task{}, err
	}
	if item == nil {
		return domain.Task{}, domain.ErrTaskNotFound
	}

	updates := map[string]any{}
	if req.Name != nil {
		name := strings.TrimSpace(*req.Name)
		if name == "" {
			return domain.Task{}, domain.ErrInvalidName
		}
		item.Name = name
		updates["name"] = name
	}
	if req.Active != nil {
		item.Active = *req.Active
		updates["active"] = item.Active
	}
	if len(updates) == 0 {
		return *item, nil
	}

	item.UpdatedAt = time.Now().UTC()
	updates["updated_at"] = item.UpdatedAt

	if err := s.tasks.Update(ctx, item.ID.String(), updates); err != nil {
		return domain.Task{}, err
	}

	return *item, nil
}

func parseID(value string) (snowflake.ID, error) {
	id, err := snowflake.ParseString(strings.TrimSpace(value))
	if err != nil || id == 0 {
		return 0, domain.ErrInvalidID
	}
	return id, nil
}
