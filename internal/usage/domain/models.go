// Package domain contains the append-only usage event log read by analytics.
package domain

import (
	"time"

	"github.com/bwmarrin/snowflake"
	projectdomain "github.com/draftforge/draftforge/internal/project/domain"
	"gorm.io/datatypes"
)

// UsageEvent is the immutable record of one billable, completed generation.
// At most one event exists per charged generation record; the unique index on
// GenerationRecordID enforces that at the database level. Engagement fields
// start at zero and are updated later by external instrumentation — those
// updates never touch the billing-relevant columns.
type UsageEvent struct {
	ID                 snowflake.ID            `gorm:"primaryKey" json:"id"`
	GenerationRecordID snowflake.ID            `gorm:"not null;uniqueIndex" json:"generation_record_id"`
	OwnerID            snowflake.ID            `gorm:"not null;index:idx_usage_events_owner_created" json:"owner_id"`
	ProjectID          snowflake.ID            `gorm:"not null;index" json:"project_id"`
	ContentType        projectdomain.ContentType `gorm:"type:text;not null" json:"content_type"`
	TokensUsed         int64                   `gorm:"not null;default:0" json:"tokens_used"`
	WordCountEstimate  int64                   `gorm:"not null;default:0" json:"word_count_estimate"`
	Views              int64                   `gorm:"not null;default:0" json:"views"`
	Shares             int64                   `gorm:"not null;default:0" json:"shares"`
	Comments           int64                   `gorm:"not null;default:0" json:"comments"`
	Likes              int64                   `gorm:"not null;default:0" json:"likes"`
	TimeOnPage         float64                 `gorm:"not null;default:0" json:"time_on_page"`
	BounceRate         float64                 `gorm:"not null;default:0" json:"bounce_rate"`
	ClickThroughRate   float64                 `gorm:"not null;default:0" json:"click_through_rate"`
	Metadata           datatypes.JSONMap       `gorm:"type:jsonb" json:"metadata,omitempty"`
	CreatedAt          time.Time               `gorm:"not null;index:idx_usage_events_owner_created" json:"created_at"`
	UpdatedAt          time.Time               `gorm:"not null" json:"updated_at"`
}

// EngagementScore is the composite signal used by analytics ranking:
// shares + comments + likes. Views are weighted separately by the scorer.
func (e UsageEvent) EngagementScore() float64 {
	return float64(e.Shares + e.Comments + e.Likes)
}

// TableName sets the database table name.
func (UsageEvent) TableName() string { return "usage_events" }
