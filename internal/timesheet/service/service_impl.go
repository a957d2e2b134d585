package service

import (
	"context"
	"strings"
	"time"

	"github.com/bwmarrin/snowflake"
	"github.com/smallbiznis/praxis/internal/timesheet/domain"
	"go.uber.org/fx"
	"go.uber.org/zap"
	"gorm.io/gorm"
)

type Params struct {
	fx.In

	DB    *gorm.DB
	Log   *zap.Logger
	GenID *snowflake.Node
	Repo  domain.Repository
}

type Service struct {
	db    *gorm.DB
	log   *zap.Logger
	genID *snowflake.Node
	repo  domain.Repository
}

func New(p Params) domain.Service {
	return &Service{
		db:    p.DB,
		log:   p.Log.Named("timesheet.service"),
		genID: p.GenID,
		repo:  p.Repo,
	}
}

func (s *Service) Create(ctx context.Context, req domain.CreateTimeEntryRequest) (domain.TimeEntry, error) {
	projectID, err := snowflake.ParseString(strings.TrimSpace(req.ProjectID))
	if err != nil || projectID == 0 {
		return domain.TimeEntry{}, domain.ErrInvalidProject
	}

	var taskID *snowflake.ID
	if value := strings.TrimSpace(req.TaskID); value != "" {
		parsed, err := snowflake.ParseString(value)
		if err != nil || parsed == 0 {
			return domain.TimeEntry{}, domain.ErrInvalidTask
		}
		taskID = &parsed
	}

	userID := strings.TrimSpace(req.UserID)
	if userID == "" {
		return domain.TimeEntry{}, domain.ErrInvalidUser
	}
	if req.DurationMinutes <= 0 {
		return domain.TimeEntry{}, domain.ErrInvalidDuration
	}
	if req.RateCents < 0 {
		return domain.TimeEntry{}, domain.ErrInvalidAmount
	}
	if req.BillableCents != nil && *req.BillableCents < 0 {
		return domain.TimeEntry{}, domain.ErrInvalidAmount
	}

	date := req.Date
	if date.IsZero() {
		date = time.Now().UTC()
	}

	billable := true
	if req.Billable != nil {
		billable = *req.Billable
	}

	now := time.Now().UTC()
	entry := domain.TimeEntry{
		ID:              s.genID.Generate(),
		ProjectID:       projectID,
		TaskID:          taskID,
		UserID:          userID,
		Date:            date,
		DurationMinutes: req.DurationMinutes,
		Billable:        billable,
		RateCents:       req.RateCents,
		BillableCents:   req.BillableCents,
		Status:          domain.StatusUninvoiced,
		Description:     strings.TrimSpace(req.Description),
		CreatedAt:       now,
		UpdatedAt:       now,
	}

	if err := s.repo.Insert(ctx, s.db, &entry); err != nil {
		return domain.TimeEntry{}, err
	}

	return entry, nil
}

func (s *Service) List(ctx context.Context, req domain.ListTimeEntryRequest) ([]domain.TimeEntry, error) {
	filter := domain.ListFilter{
		DateFrom: req.DateFrom,
		DateTo:   req.DateTo,
	}

	if value := strings.TrimSpace(req.ProjectID); value != "" {
		id, err := snowflake.ParseString(value)
		if err != nil || id == 0 {
			return nil, domain.ErrInvalidProject
		}
		filter.ProjectID = id
	}
	if value := strings.TrimSpace(req.TaskID); value != "" {
		id, err := snowflake.ParseString(value)
		if err != nil || id == 0 {
			return nil, domain.ErrInvalidTask
		}
		filter.TaskID = id
	}
	if value := strings.TrimSpace(req.Status); value != "" {
		status := domain.Status(strings.ToUpper(value))
		if !status.Valid() {
			return nil, domain.ErrInvalidStatus
		}
		filter.Status = status
	}

	items, err := s.repo.List(ctx, s.db, filter)
	if err != nil {
		return nil, err
	}

	entries := make([]domain.TimeEntry, 0, len(items))
	for _, item := range items {
		if item == nil {
			continue
		}
		entries = append(entries, *item)
	}

	return entries, nil
}

func (s *Service) Update(ctx context.Context, req domain.UpdateTimeEntryRequest) (domain.TimeEntry, error) {
	id, err := parseID(req.ID)
	if err != nil {
		return domain.TimeEntry{}, err
	}

	entry, err := s.repo.FindByID(ctx, s.db, id)
	if err != nil {
		return domain.TimeEntry{}, err
	}
	if entry == nil {
		return domain.TimeEntry{}, domain.ErrNotFound
	}
	if entry.Status != domain.StatusUninvoiced {
		return domain.TimeEntry{}, domain.ErrEntryLocked
	}

	if req.TaskID != nil {
		if value := strings.TrimSpace(*req.TaskID); value == "" {
			entry.TaskID = nil
		} else {
			parsed, err := snowflake.ParseString(value)
			if err != nil || parsed == 0 {
				return domain.TimeEntry{}, domain.ErrInvalidTask
			}
			entry.TaskID = &parsed
		}
	}
	if req.Date != nil && !req.Date.IsZero() {
		entry.Date = *req.Date
	}
	if req.DurationMinutes != nil {
		if *req.DurationMinutes <= 0 {
			return domain.TimeEntry{}, domain.ErrInvalidDuration
		}
		entry.DurationMinutes = *req.DurationMinutes
	}
	if req.Billable != nil {
		entry.Billable = *req.Billable
	}
	if req.RateCents != nil {
		if *req.RateCents < 0 {
			return domain.TimeEntry{}, domain.ErrInvalidAmount
		}
		entry.RateCents = *req.RateCents
	}
	if req.BillableCents != nil {
		if *req.BillableCents < 0 {
			return domain.TimeEntry{}, domain.ErrInvalidAmount
		}
		entry.BillableCents = req.BillableCents
	}
	if req.Description != nil {
		entry.Description = strings.TrimSpace(*req.Description)
	}
	entry.UpdatedAt = time.Now().UTC()

	if err := s.repo.Update(ctx, s.db, entry); err != nil {
		return domain.TimeEntry{}, err
	}

	return *entry, nil
}

func (s *Service) Delete(ctx context.Context, req domain.DeleteTimeEntryRequest) error {
	id, err := parseID(req.ID)
	if err != nil {
		return err
	}

	entry, err := s.repo.FindByID(ctx, s.db, id)
	if err != nil {
		return err
	}
	if entry == nil {
		return domain.ErrNotFound
	}
	if entry.Status != domain.StatusUninvoiced {
		return domain.ErrEntryLocked
	}

	return s.repo.Delete(ctx, s.db, id)
}

func (s *Service) ListUnbilled(ctx context.Context, projectIDs []string) ([]domain.TimeEntry, error) {
	ids := make([]snowflake.ID, 0, len(projectIDs))
	for _, value := range projectIDs {
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

	items, err := s.repo.ListUnbilled(ctx, s.db, ids)
	if err != nil {
		return nil, err
	}

	entries := make([]domain.TimeEntry, 0, len(items))
	for _, item := range items {
		if item == nil {
			continue
		}
		entries = append(entries, *item)
	}

	return entries, nil
}

func parseID(value string) (snowflake.ID, error) {
	id, err := snowflake.ParseString(strings.TrimSpace(value))
	if err != nil || id == 0 {
		return 0, domain.ErrInvalidID
	}
	return id, nil
}
