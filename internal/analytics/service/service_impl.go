package service

import (
	"context"

	"github.com/bwmarrin/snowflake"
	analyticsdomain "github.com/draftforge/draftforge/internal/analytics/domain"
	"github.com/draftforge/draftforge/internal/analytics/snapshot"
	"github.com/draftforge/draftforge/internal/clock"
	ledgerdomain "github.com/draftforge/draftforge/internal/ledger/domain"
	usagedomain "github.com/draftforge/draftforge/internal/usage/domain"
	"go.uber.org/fx"
	"go.uber.org/zap"
)

type Params struct {
	fx.In

	Log   *zap.Logger
	Clock clock.Clock
	Usage usagedomain.Service
}

type Service struct {
	log   *zap.Logger
	clock clock.Clock
	usage usagedomain.Service
}

func NewService(p Params) analyticsdomain.Service {
	return &Service{
		log:   p.Log.Named("analytics.service"),
		clock: p.Clock,
		usage: p.Usage,
	}
}

// Summarize loads the current and immediately preceding equal-length
// windows of the account's usage events and reduces them to a snapshot.
// All aggregation is pure; this method only supplies the data and clock.
func (s *Service) Summarize(ctx context.Context, accountID snowflake.ID, horizon analyticsdomain.Horizon) (*analyticsdomain.DashboardSnapshot, error) {
	if accountID == 0 {
		return nil, ledgerdomain.ErrInvalidAccount
	}
	if !horizon.Valid() {
		return nil, analyticsdomain.ErrInvalidHorizon
	}

	window := snapshot.WindowForHorizon(s.clock.Now(), horizon)
	previous := window.Previous()

	// One range read covers both windows; the pure filter splits them.
	events, err := s.usage.ListWindow(ctx, accountID, previous.Start, window.End)
	if err != nil {
		return nil, err
	}

	result := snapshot.Build(
		snapshot.FilterWindow(events, window),
		snapshot.FilterWindow(events, previous),
		window,
		horizon.Days(),
	)
	return &result, nil
}
