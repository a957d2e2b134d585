package domain

import (
	"time"

	"github.com/bwmarrin/snowflake"
)

type Project struct {
	ID              snowflake.ID `gorm:"primaryKey" json:"id"`
	ClientID        snowflake.ID `gorm:"not null;index" json:"client_id"`
	Name            string       `gorm:"not null" json:"name"`
	Code            string       `gorm:"index" json:"code,omitempty"`
	HourlyRateCents *int64       `json:"hourly_rate_cents,omitempty"`
	Active          bool         `gorm:"not null;default:true" json:"active"`
	CreatedAt       time.Time    `gorm:"not null;default:CURRENT_TIMESTAMP" json:"created_at"`
	UpdatedAt       time.Time    `gorm:"not null;default:CURRENT_TIMESTAMP" json:"updated_at"`
}

func (Project) TableName() string { return "projects" }

// EffectiveRateCents is the rate applied to entries that carry none of
// their own, before the firm-wide default.
func (p Project) EffectiveRateCents(defaultRateCents int64) int64 {
	if p.HourlyRateCents != nil && *p.HourlyRateCents > 0 {
		return *p.HourlyRateCents
	}
	return defaultRateCents
}

type Task struct {
	ID        snowflake.ID `gorm:"primaryKey" json:"id"`
	ProjectID snowflake.ID `gorm:"not null;index" json:"project_id"`
	Name      string       `gorm:"not null" json:"name"`
	Active    bool         `gorm:"not null;default:true" json:"active"`
	CreatedAt time.Time    `gorm:"not null;default:CURRENT_TIMESTAMP" json:"created_at"`
	UpdatedAt time.Time    `gorm:"not null;default:CURRENT_TIMESTAMP" json:"updated_at"`
}

func (Task) TableName() string { return "tasks" }
