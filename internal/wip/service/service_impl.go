package service

import (
	"context"
	"strings"

	"github.com/bwmarrin/snowflake"
	"github.com/smallbiznis/praxis/internal/config"
	projectdomain "github.com/smallbiznis/praxis/internal/project/domain"
	timesheetdomain "github.com/smallbiznis/praxis/internal/timesheet/domain"
	"github.com/smallbiznis/praxis/internal/wip/domain"
	"github.com/smallbiznis/praxis/pkg/repository"
	"go.uber.org/fx"
	"go.uber.org/zap"
	"gorm.io/gorm"
)

type Params struct {
	fx.In

	DB       *gorm.DB
	Log      *zap.Logger
	Billing  *config.BillingConfigHolder
	Entries  timesheetdomain.Repository
	Projects repository.Repository[projectdomain.Project]
	Tasks    repository.Repository[projectdomain.Task]
}

type Service struct {
	db       *gorm.DB
	log      *zap.Logger
	billing  *config.BillingConfigHolder
	entries  timesheetdomain.Repository
	projects repository.Repository[projectdomain.Project]
	tasks    repository.Repository[projectdomain.Task]
}

func New(p Params) domain.Service {
	return &Service{
		db:       p.DB,
		log:      p.Log.Named("wip.service"),
		billing:  p.Billing,
		entries:  p.Entries,
		projects: p.Projects,
		tasks:    p.Tasks,
	}
}

func (s *Service) GetWIP(ctx context.Context, req domain.GetWIPRequest) (domain.GetWIPResponse, error) {
	projectIDs, err := parseProjectIDs(req.ProjectIDs)
	if err != nil {
		return domain.GetWIPResponse{}, err
	}

	buckets, err := s.aggregate(ctx, projectIDs)
	if err != nil {
		return domain.GetWIPResponse{}, err
	}

	var total int64
	for _, bucket := range buckets {
		total += bucket.CalculatedCents
	}

	return domain.GetWIPResponse{
		Buckets:              buckets,
		TotalCalculatedCents: total,
	}, nil
}

func (s *Service) Adjust(ctx context.Context, req domain.AdjustRequest) (domain.AdjustResponse, error) {
	projectID, err := snowflake.ParseString(strings.TrimSpace(req.ProjectID))
	if err != nil || projectID == 0 {
		return domain.AdjustResponse{}, domain.ErrInvalidProject
	}

	var taskID snowflake.ID
	if value := strings.TrimSpace(req.TaskID); value != "" {
		taskID, err = snowflake.ParseString(value)
		if err != nil || taskID == 0 {
			return domain.AdjustResponse{}, domain.ErrInvalidTask
		}
	}

	reasonCode := domain.ReasonCode(strings.ToUpper(strings.TrimSpace(req.ReasonCode)))
	if reasonCode != "" && !reasonCode.Valid() {
		return domain.AdjustResponse{}, domain.ErrInvalidReason
	}

	buckets, err := s.aggregate(ctx, []snowflake.ID{projectID})
	if err != nil {
		return domain.AdjustResponse{}, err
	}

	for _, bucket := range buckets {
		if bucket.ProjectID != projectID || bucket.TaskID != taskID {
			continue
		}

		tolerance := s.billing.Current().AdjustmentToleranceCents
		adjusted := domain.AdjustBucket(bucket, req.BilledCents, tolerance)
		comments := strings.TrimSpace(req.Comments)
		for i := range adjusted.Adjustments {
			adjusted.Adjustments[i].ReasonCode = reasonCode
			adjusted.Adjustments[i].Comments = comments
		}
		return domain.AdjustResponse{Bucket: adjusted}, nil
	}

	return domain.AdjustResponse{}, domain.ErrBucketNotFound
}

func (s *Service) aggregate(ctx context.Context, projectIDs []snowflake.ID) ([]domain.TaskBucket, error) {
	items, err := s.entries.ListUnbilled(ctx, s.db, projectIDs)
	if err != nil {
		return nil, err
	}

	entries := make([]timesheetdomain.TimeEntry, 0, len(items))
	for _, item := range items {
		if item == nil {
			continue
		}
		entries = append(entries, *item)
	}

	names, err := s.buildNameIndex(ctx, entries)
	if err != nil {
		return nil, err
	}

	cfg := s.billing.Current()
	return domain.Aggregate(entries, names, cfg.DefaultHourlyRateCents), nil
}

func (s *Service) buildNameIndex(ctx context.Context, entries []timesheetdomain.TimeEntry) (domain.NameIndex, error) {
	names := domain.NameIndex{
		Projects: map[snowflake.ID]string{},
		Tasks:    map[snowflake.ID]string{},
	}

	for _, entry := range entries {
		if _, ok := names.Projects[entry.ProjectID]; !ok {
			project, err := s.projects.FindOne(ctx, &projectdomain.Project{ID: entry.ProjectID})
			if err != nil {
				return domain.NameIndex{}, err
			}
			if project != nil {
				names.Projects[entry.ProjectID] = project.Name
			} else {
				names.Projects[entry.ProjectID] = ""
			}
		}
		if entry.TaskID == nil {
			continue
		}
		if _, ok := names.Tasks[*entry.TaskID]; !ok {
			task, err := s.tasks.FindOne(ctx, &projectdomain.Task{ID: *entry.TaskID})
			if err != nil {
				return domain.NameIndex{}, err
			}
			if task != nil {
				names.Tasks[*entry.TaskID] = task.Name
			} else {
				names.Tasks[*entry.TaskID] = ""
			}
		}
	}

	return names, nil
}

func parseProjectIDs(values []string) ([]snowflake.ID, error) {
	ids := make([]snowflake.ID, 0, len(values))
	for _, value := range values {
		value = strings.TrimSpace(value)
		if value == "" {
			continue
		}
		id, err := snowflake.ParseString(value)
		if err != nil || id == 0 {
			return nil, domain.ErrInvalidProject
		}
		ids = append(ids, id)
	}
	return ids, nil
}
