package service

import (
	"context"
	"strings"
	"time"

	"github.com/bwmarrin/snowflake"
	"github.com/draftforge/draftforge/internal/clock"
	"github.com/draftforge/draftforge/internal/observability/metrics"
	usagedomain "github.com/draftforge/draftforge/internal/usage/domain"
	"github.com/draftforge/draftforge/pkg/db/option"
	"github.com/draftforge/draftforge/pkg/db/pagination"
	"github.com/draftforge/draftforge/pkg/repository"
	"go.uber.org/fx"
	"go.uber.org/zap"
	"gorm.io/gorm"
	"gorm.io/gorm/clause"
)

type Params struct {
	fx.In

	DB      *gorm.DB
	Log     *zap.Logger
	GenID   *snowflake.Node
	Clock   clock.Clock
	Metrics *metrics.Metrics `optional:"true"`
}

type Service struct {
	db        *gorm.DB
	log       *zap.Logger
	genID     *snowflake.Node
	clock     clock.Clock
	metrics   *metrics.Metrics
	eventrepo repository.Repository[usagedomain.UsageEvent]
}

func NewService(p Params) usagedomain.Service {
	return &Service{
		db:        p.DB,
		log:       p.Log.Named("usage.service"),
		genID:     p.GenID,
		clock:     p.Clock,
		metrics:   p.Metrics,
		eventrepo: repository.ProvideStore[usagedomain.UsageEvent](p.DB),
	}
}

// Append writes the one billable snapshot for a charged generation record.
// The unique index on generation_record_id makes retries idempotent: a
// conflicting insert is dropped and the existing row returned instead.
func (s *Service) Append(ctx context.Context, req usagedomain.AppendRequest) (*usagedomain.UsageEvent, error) {
	if req.GenerationRecordID == 0 || req.OwnerID == 0 || req.ProjectID == 0 {
		return nil, usagedomain.ErrInvalidEvent
	}
	if !req.ContentType.Valid() {
		return nil, usagedomain.ErrInvalidEvent
	}

	now := s.clock.Now()
	event := &usagedomain.UsageEvent{
		ID:                 s.genID.Generate(),
		GenerationRecordID: req.GenerationRecordID,
		OwnerID:            req.OwnerID,
		ProjectID:          req.ProjectID,
		ContentType:        req.ContentType,
		TokensUsed:         req.TokensUsed,
		WordCountEstimate:  req.WordCountEstimate,
		Metadata:           req.Metadata,
		CreatedAt:          now,
		UpdatedAt:          now,
	}

	result := s.db.WithContext(ctx).
		Clauses(clause.OnConflict{
			Columns:   []clause.Column{{Name: "generation_record_id"}},
			DoNothing: true,
		}).
		Create(event)
	if result.Error != nil {
		return nil, result.Error
	}
	if result.RowsAffected == 0 {
		s.log.Debug("usage event already recorded",
			zap.String("generation_record_id", req.GenerationRecordID.String()),
		)
		return s.findByRecordID(ctx, req.GenerationRecordID)
	}

	s.metrics.RecordUsageEvent(ctx, string(req.ContentType))
	return event, nil
}

func (s *Service) UpdateEngagement(ctx context.Context, generationRecordID snowflake.ID, update usagedomain.EngagementUpdate) (*usagedomain.UsageEvent, error) {
	if generationRecordID == 0 {
		return nil, usagedomain.ErrEventNotFound
	}
	if update.Views < 0 || update.Shares < 0 || update.Comments < 0 || update.Likes < 0 {
		return nil, usagedomain.ErrInvalidEvent
	}

	result := s.db.WithContext(ctx).
		Model(&usagedomain.UsageEvent{}).
		Where("generation_record_id = ?", generationRecordID).
		Updates(map[string]any{
			"views":              update.Views,
			"shares":             update.Shares,
			"comments":           update.Comments,
			"likes":              update.Likes,
			"time_on_page":       update.TimeOnPage,
			"bounce_rate":        update.BounceRate,
			"click_through_rate": update.ClickThroughRate,
			"updated_at":         s.clock.Now(),
		})
	if result.Error != nil {
		return nil, result.Error
	}
	if result.RowsAffected == 0 {
		return nil, usagedomain.ErrEventNotFound
	}

	return s.findByRecordID(ctx, generationRecordID)
}

// ListWindow loads events with createdAt in the half-open interval
// [start, end) for one owner. The analytics aggregator is the only caller.
func (s *Service) ListWindow(ctx context.Context, ownerID snowflake.ID, start, end time.Time) ([]usagedomain.UsageEvent, error) {
	if ownerID == 0 {
		return nil, usagedomain.ErrInvalidEvent
	}

	items, err := s.eventrepo.Find(ctx, &usagedomain.UsageEvent{OwnerID: ownerID},
		option.WithWindow("created_at", start, end),
		option.WithOrder("created_at ASC, id ASC"),
	)
	if err != nil {
		return nil, err
	}

	events := make([]usagedomain.UsageEvent, 0, len(items))
	for _, item := range items {
		if item == nil {
			continue
		}
		events = append(events, *item)
	}
	return events, nil
}

func (s *Service) List(ctx context.Context, req usagedomain.ListEventsRequest) (usagedomain.ListEventsResponse, error) {
	ownerID, err := snowflake.ParseString(strings.TrimSpace(req.OwnerID))
	if err != nil || ownerID == 0 {
		return usagedomain.ListEventsResponse{}, usagedomain.ErrInvalidEvent
	}

	pageSize := req.PageSize
	if pageSize <= 0 {
		pageSize = 50
	}

	items, err := s.eventrepo.Find(ctx, &usagedomain.UsageEvent{OwnerID: ownerID},
		option.ApplyPagination(pagination.Pagination{
			PageToken: req.PageToken,
			PageSize:  int(pageSize),
		}),
		option.WithOrder("created_at DESC, id DESC"),
	)
	if err != nil {
		return usagedomain.ListEventsResponse{}, err
	}

	pageInfo := pagination.BuildCursorPageInfo(items, pageSize, func(e *usagedomain.UsageEvent) string {
		token, err := pagination.EncodeCursor(pagination.Cursor{
			ID:        e.ID.String(),
			CreatedAt: e.CreatedAt.Format(time.RFC3339),
		})
		if err != nil {
			return ""
		}
		return token
	})
	if pageInfo != nil && pageInfo.HasMore && len(items) > int(pageSize) {
		items = items[:pageSize]
	}

	events := make([]usagedomain.UsageEvent, 0, len(items))
	for _, item := range items {
		if item == nil {
			continue
		}
		events = append(events, *item)
	}

	resp := usagedomain.ListEventsResponse{Events: events}
	if pageInfo != nil {
		resp.PageInfo = *pageInfo
	}
	return resp, nil
}

func (s *Service) findByRecordID(ctx context.Context, generationRecordID snowflake.ID) (*usagedomain.UsageEvent, error) {
	event, err := s.eventrepo.FindOne(ctx, &usagedomain.UsageEvent{GenerationRecordID: generationRecordID})
	if err != nil {
		return nil, err
	}
	if event == nil {
		return nil, usagedomain.ErrEventNotFound
	}
	return event, nil
}
