package domain

import (
	"context"
	"time"

	"github.com/bwmarrin/snowflake"
	"gorm.io/datatypes"
	"gorm.io/gorm"
)

type AuditLog struct {
	ID        snowflake.ID      `gorm:"primaryKey" json:"id"`
	Actor     string            `gorm:"not null" json:"actor"`
	Action    string            `gorm:"not null;index" json:"action"`
	Target    string            `gorm:"not null;index" json:"target"`
	Metadata  datatypes.JSONMap `gorm:"type:jsonb;not null;default:'{}'" json:"metadata,omitempty"`
	CreatedAt time.Time         `gorm:"not null;default:CURRENT_TIMESTAMP" json:"created_at"`
}

func (AuditLog) TableName() string { return "audit_logs" }

type Event struct {
	Actor    string
	Action   string
	Target   string
	Metadata map[string]any
}

type ListRequest struct {
	Target string
	Action string
	Limit  int
}

// Recorder appends audit events. Record must accept the caller's transaction
// so an event commits or rolls back with the mutation it describes.
type Recorder interface {
	Record(ctx context.Context, db *gorm.DB, event Event) error
	List(ctx context.Context, req ListRequest) ([]AuditLog, error)
}
