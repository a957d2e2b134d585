package service

import (
	"context"
	"io"
	"strings"
	"time"

	"github.com/bwmarrin/snowflake"
	clientdomain "github.com/smallbiznis/praxis/internal/client/domain"
	"github.com/smallbiznis/praxis/internal/engagement/domain"
	projectdomain "github.com/smallbiznis/praxis/internal/project/domain"
	"github.com/smallbiznis/praxis/pkg/db/option"
	"github.com/smallbiznis/praxis/pkg/repository"
	"go.uber.org/fx"
	"go.uber.org/zap"
	"gorm.io/datatypes"
	"gorm.io/gorm"
)

type Params struct {
	fx.In

	DB       *gorm.DB
	Log      *zap.Logger
	GenID    *snowflake.Node
	Repo     repository.Repository[domain.Document]
	Clients  repository.Repository[clientdomain.Client]
	Projects repository.Repository[projectdomain.Project]
	Renderer domain.Renderer
}

type Service struct {
	db       *gorm.DB
	log      *zap.Logger
	genID    *snowflake.Node
	repo     repository.Repository[domain.Document]
	clients  repository.Repository[clientdomain.Client]
	projects repository.Repository[projectdomain.Project]
	renderer domain.Renderer
}

func New(p Params) domain.Service {
	return &Service{
		db:       p.DB,
		log:      p.Log.Named("engagement.service"),
		genID:    p.GenID,
		repo:     p.Repo,
		clients:  p.Clients,
		projects: p.Projects,
		renderer: p.Renderer,
	}
}

func (s *Service) Create(ctx context.Context, req domain.CreateDocumentRequest) (domain.Document, error) {
	clientID, err := snowflake.ParseString(strings.TrimSpace(req.ClientID))
	if err != nil || clientID == 0 {
		return domain.Document{}, domain.ErrInvalidClient
	}
	projectID, err := snowflake.ParseString(strings.TrimSpace(req.ProjectID))
	if err != nil || projectID == 0 {
		return domain.Document{}, domain.ErrInvalidProject
	}

	owner, err := s.clients.FindOne(ctx, &clientdomain.Client{ID: clientID})
	if err != nil {
		return domain.Document{}, err
	}
	if owner == nil {
		return domain.Document{}, domain.ErrInvalidClient
	}
	project, err := s.projects.FindOne(ctx, &projectdomain.Project{ID: projectID})
	if err != nil {
		return domain.Document{}, err
	}
	if project == nil {
		return domain.Document{}, domain.ErrInvalidProject
	}

	title := strings.TrimSpace(req.Title)
	if title == "" {
		return domain.Document{}, domain.ErrInvalidTitle
	}
	scope := strings.TrimSpace(req.ScopeText)
	if scope == "" {
		return domain.Document{}, domain.ErrInvalidScope
	}

	now := time.Now().UTC()
	document := domain.Document{
		ID:             s.genID.Generate(),
		ClientID:       clientID,
		ProjectID:      projectID,
		Title:          title,
		ScopeText:      scope,
		FeeLines:       datatypes.NewJSONSlice(req.FeeLines),
		SignatureNames: datatypes.NewJSONSlice(req.SignatureNames),
		IssuedAt:       now,
		CreatedAt:      now,
		UpdatedAt:      now,
	}

	if err := s.repo.Create(ctx, &document); err != nil {
		return domain.Document{}, err
	}

	return document, nil
}

func (s *Service) List(ctx context.Context, req domain.ListDocumentRequest) ([]domain.Document, error) {
	query := domain.Document{}
	if value := strings.TrimSpace(req.ProjectID); value != "" {
		id, err := snowflake.ParseString(value)
		if err != nil || id == 0 {
			return nil, domain.ErrInvalidProject
		}
		query.ProjectID = id
	}
	if value := strings.TrimSpace(req.ClientID); value != "" {
		id, err := snowflake.ParseString(value)
		if err != nil || id == 0 {
			return nil, domain.ErrInvalidClient
		}
		query.ClientID = id
	}

	items, err := s.repo.Find(ctx, &query,
		option.WithSortBy(option.QuerySortBy{Field: "created_at", Desc: true}),
	)
	if err != nil {
		return nil, err
	}

	documents := make([]domain.Document, 0, len(items))
	for _, item := range items {
		if item == nil {
			continue
		}
		documents = append(documents, *item)
	}

	return documents, nil
}

func (s *Service) GetByID(ctx context.Context, req domain.GetDocumentRequest) (domain.Document, error) {
	id, err := snowflake.ParseString(strings.TrimSpace(req.ID))
	if err != nil || id == 0 {
		return domain.Document{}, domain.ErrInvalidID
	}

	item, err := s.repo.FindOne(ctx, &domain.Document{ID: id})
	if err != nil {
		return domain.Document{}, err
	}
	if item == nil {
		return domain.Document{}, domain.ErrNotFound
	}

	return *item, nil
}

func (s *Service) RenderPDF(ctx context.Context, req domain.GetDocumentRequest) (io.Reader, error) {
	document, err := s.GetByID(ctx, req)
	if err != nil {
		return nil, err
	}

	clientName := ""
	if owner, err := s.clients.FindOne(ctx, &clientdomain.Client{ID: document.ClientID}); err == nil && owner != nil {
		clientName = owner.Name
	}
	projectName := ""
	if project, err := s.projects.FindOne(ctx, &projectdomain.Project{ID: document.ProjectID}); err == nil && project != nil {
		projectName = project.Name
	}

	return s.renderer.Render(ctx, domain.RenderData{
		Title:          document.Title,
		ClientName:     clientName,
		ProjectName:    projectName,
		IssuedAt:       document.IssuedAt,
		ScopeText:      document.ScopeText,
		FeeLines:       document.FeeLines,
		SignatureNames: document.SignatureNames,
	})
}
