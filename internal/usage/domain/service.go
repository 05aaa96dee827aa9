package domain

import (
	"context"
	"errors"
	"time"

	"github.com/bwmarrin/snowflake"
	projectdomain "github.com/draftforge/draftforge/internal/project/domain"
	"github.com/draftforge/draftforge/pkg/db/pagination"
	"gorm.io/datatypes"
)

// AppendRequest records the billable snapshot of a charged generation.
type AppendRequest struct {
	GenerationRecordID snowflake.ID
	OwnerID            snowflake.ID
	ProjectID          snowflake.ID
	ContentType        projectdomain.ContentType
	TokensUsed         int64
	WordCountEstimate  int64
	Metadata           datatypes.JSONMap
}

// EngagementUpdate carries instrumentation counters for one event. All
// fields are absolute values, not deltas.
type EngagementUpdate struct {
	Views            int64   `json:"views"`
	Shares           int64   `json:"shares"`
	Comments         int64   `json:"comments"`
	Likes            int64   `json:"likes"`
	TimeOnPage       float64 `json:"time_on_page"`
	BounceRate       float64 `json:"bounce_rate"`
	ClickThroughRate float64 `json:"click_through_rate"`
}

type ListEventsRequest struct {
	OwnerID   string `form:"owner_id"`
	PageToken string `form:"page_token"`
	PageSize  int32  `form:"page_size"`
}

type ListEventsResponse struct {
	pagination.PageInfo
	Events []UsageEvent `json:"events"`
}

// Service is the append-only event log. Append is idempotent per
// generation record: a duplicate append is swallowed, never doubled.
type Service interface {
	Append(ctx context.Context, req AppendRequest) (*UsageEvent, error)
	UpdateEngagement(ctx context.Context, generationRecordID snowflake.ID, update EngagementUpdate) (*UsageEvent, error)
	ListWindow(ctx context.Context, ownerID snowflake.ID, start, end time.Time) ([]UsageEvent, error)
	List(ctx context.Context, req ListEventsRequest) (ListEventsResponse, error)
}

var (
	ErrInvalidEvent  = errors.New("invalid_event")
	ErrEventNotFound = errors.New("event_not_found")
)
