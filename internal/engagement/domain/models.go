package domain

import (
	"context"
	"errors"
	"io"
	"time"

	"github.com/bwmarrin/snowflake"
	"gorm.io/datatypes"
)

type FeeLine struct {
	Description string `json:"description"`
	AmountCents int64  `json:"amount_cents"`
}

// Document is an issued Terms of Engagement letter.
type Document struct {
	ID             snowflake.ID                 `gorm:"primaryKey" json:"id"`
	ClientID       snowflake.ID                 `gorm:"not null;index" json:"client_id"`
	ProjectID      snowflake.ID                 `gorm:"not null;index" json:"project_id"`
	Title          string                       `gorm:"not null" json:"title"`
	ScopeText      string                       `gorm:"not null" json:"scope_text"`
	FeeLines       datatypes.JSONSlice[FeeLine] `json:"fee_lines"`
	SignatureNames datatypes.JSONSlice[string]  `json:"signature_names"`
	IssuedAt       time.Time                    `gorm:"not null" json:"issued_at"`
	CreatedAt      time.Time                    `gorm:"not null;default:CURRENT_TIMESTAMP" json:"created_at"`
	UpdatedAt      time.Time                    `gorm:"not null;default:CURRENT_TIMESTAMP" json:"updated_at"`
}

func (Document) TableName() string { return "engagement_documents" }

type CreateDocumentRequest struct {
	ClientID       string
	ProjectID      string
	Title          string
	ScopeText      string
	FeeLines       []FeeLine
	SignatureNames []string
}

type ListDocumentRequest struct {
	ProjectID string
	ClientID  string
}

type GetDocumentRequest struct {
	ID string
}

// RenderData is the payload handed to the PDF renderer.
type RenderData struct {
	Title          string
	ClientName     string
	ProjectName    string
	IssuedAt       time.Time
	ScopeText      string
	FeeLines       []FeeLine
	SignatureNames []string
}

type Renderer interface {
	Render(ctx context.Context, data RenderData) (io.Reader, error)
}

type Service interface {
	Create(context.Context, CreateDocumentRequest) (Document, error)
	List(context.Context, ListDocumentRequest) ([]Document, error)
	GetByID(context.Context, GetDocumentRequest) (Document, error)
	RenderPDF(context.Context, GetDocumentRequest) (io.Reader, error)
}

var (
	ErrInvalidClient  = errors.New("invalid_client")
	ErrInvalidProject = errors.New("invalid_project")
	ErrInvalidTitle   = errors.New("invalid_title")
	ErrInvalidScope   = errors.New("invalid_scope")
	ErrInvalidID      = errors.New("invalid_id")
	ErrNotFound       = errors.New("not_found")
)
