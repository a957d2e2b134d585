package service

import (
	"context"
	"strings"
	"time"

	"github.com/bwmarrin/snowflake"
	"github.com/smallbiznis/praxis/internal/audit/domain"
	"go.uber.org/fx"
	"go.uber.org/zap"
	"gorm.io/datatypes"
	"gorm.io/gorm"
)

type Params struct {
	fx.In

	DB    *gorm.DB
	Log   *zap.Logger
	GenID *snowflake.Node
}

type Service struct {
	db    *gorm.DB
	log   *zap.Logger
	genID *snowflake.Node
}

func New(p Params) domain.Recorder {
	return &Service{
		db:    p.DB,
		log:   p.Log.Named("audit.service"),
		genID: p.GenID,
	}
}

func (s *Service) Record(ctx context.Context, db *gorm.DB, event domain.Event) error {
	if db == nil {
		db = s.db
	}

	metadata := datatypes.JSONMap{}
	for key, value := range event.Metadata {
		metadata[key] = value
	}

	actor := strings.TrimSpace(event.Actor)
	if actor == "" {
		actor = "system"
	}

	row := domain.AuditLog{
		ID:        s.genID.Generate(),
		Actor:     actor,
		Action:    event.Action,
		Target:    event.Target,
		Metadata:  metadata,
		CreatedAt: time.Now().UTC(),
	}

	return db.WithContext(ctx).Create(&row).Error
}

func (s *Service) List(ctx context.Context, req domain.ListRequest) ([]domain.AuditLog, error) {
	limit := req.Limit
	if limit <= 0 || limit > 250 {
		limit = 100
	}

	stmt := s.db.WithContext(ctx).Model(&domain.AuditLog{})
	if target := strings.TrimSpace(req.Target); target != "" {
		stmt = stmt.Where("target = ?", target)
	}
	if action := strings.TrimSpace(req.Action); action != "" {
		stmt = stmt.Where("action = ?", action)
	}

	var rows []domain.AuditLog
	err := stmt.Order("created_at desc, id desc").Limit(limit).Find(&rows).Error
	if err != nil {
		return nil, err
	}
	return rows, nil
}
