package service

import (
	"context"
	"testing"
	"time"

	"github.com/bwmarrin/snowflake"
	analyticsdomain "github.com/draftforge/draftforge/internal/analytics/domain"
	"github.com/draftforge/draftforge/internal/clock"
	projectdomain "github.com/draftforge/draftforge/internal/project/domain"
	usagedomain "github.com/draftforge/draftforge/internal/usage/domain"
	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/mock"
	"github.com/stretchr/testify/require"
	"go.uber.org/zap"
)

type mockUsageService struct {
	mock.Mock
}

func (m *mockUsageService) Append(ctx context.Context, req usagedomain.AppendRequest) (*usagedomain.UsageEvent, error) {
	args := m.Called(ctx, req)
	if args.Get(0) == nil {
		return nil, args.Error(1)
	}
	return args.Get(0).(*usagedomain.UsageEvent), args.Error(1)
}

func (m *mockUsageService) UpdateEngagement(ctx context.Context, generationRecordID snowflake.ID, update usagedomain.EngagementUpdate) (*usagedomain.UsageEvent, error) {
	args := m.Called(ctx, generationRecordID, update)
	if args.Get(0) == nil {
		return nil, args.Error(1)
	}
	return args.Get(0).(*usagedomain.UsageEvent), args.Error(1)
}

func (m *mockUsageService) ListWindow(ctx context.Context, ownerID snowflake.ID, start, end time.Time) ([]usagedomain.UsageEvent, error) {
	args := m.Called(ctx, ownerID, start, end)
	if args.Get(0) == nil {
		return nil, args.Error(1)
	}
	return args.Get(0).([]usagedomain.UsageEvent), args.Error(1)
}

func (m *mockUsageService) List(ctx context.Context, req usagedomain.ListEventsRequest) (usagedomain.ListEventsResponse, error) {
	args := m.Called(ctx, req)
	return args.Get(0).(usagedomain.ListEventsResponse), args.Error(1)
}

func newAnalyticsService(usage usagedomain.Service, now time.Time) analyticsdomain.Service {
	return NewService(Params{
		Log:   zap.NewNop(),
		Clock: clock.NewFakeClock(now),
		Usage: usage,
	})
}

func TestSummarizeInvalidHorizon(t *testing.T) {
	svc := newAnalyticsService(&mockUsageService{}, time.Now())

	_, err := svc.Summarize(context.Background(), snowflake.ID(1), "14d")
	assert.ErrorIs(t, err, analyticsdomain.ErrInvalidHorizon)
}

func TestSummarizeLoadsBothWindowsInOneRead(t *testing.T) {
	now := time.Date(2026, 8, 28, 10, 0, 0, 0, time.UTC)
	owner := snowflake.ID(7)

	usage := &mockUsageService{}
	// 7d current window plus the 7d before it: one 14-day range read.
	usage.On("ListWindow", mock.Anything, owner,
		time.Date(2026, 8, 15, 0, 0, 0, 0, time.UTC),
		time.Date(2026, 8, 29, 0, 0, 0, 0, time.UTC)).
		Return([]usagedomain.UsageEvent{}, nil)

	svc := newAnalyticsService(usage, now)
	result, err := svc.Summarize(context.Background(), owner, analyticsdomain.Horizon7d)
	require.NoError(t, err)

	assert.Len(t, result.DailySeries, 7)
	assert.Equal(t, analyticsdomain.OverviewStats{}, result.Overview)
	usage.AssertExpectations(t)
}

func TestSummarizeIsDeterministic(t *testing.T) {
	now := time.Date(2026, 8, 28, 10, 0, 0, 0, time.UTC)
	owner := snowflake.ID(7)

	events := []usagedomain.UsageEvent{
		{
			ID:                1,
			ProjectID:         11,
			OwnerID:           owner,
			ContentType:       projectdomain.ContentTypeBlog,
			WordCountEstimate: 120,
			Views:             300,
			Shares:            2,
			CreatedAt:         time.Date(2026, 8, 27, 9, 0, 0, 0, time.UTC),
		},
		{
			ID:          2,
			ProjectID:   12,
			OwnerID:     owner,
			ContentType: projectdomain.ContentTypeEmail,
			// Previous window: only feeds the growth rate.
			CreatedAt: time.Date(2026, 8, 20, 9, 0, 0, 0, time.UTC),
		},
	}

	usage := &mockUsageService{}
	usage.On("ListWindow", mock.Anything, owner, mock.Anything, mock.Anything).
		Return(events, nil)

	svc := newAnalyticsService(usage, now)
	first, err := svc.Summarize(context.Background(), owner, analyticsdomain.Horizon7d)
	require.NoError(t, err)
	second, err := svc.Summarize(context.Background(), owner, analyticsdomain.Horizon7d)
	require.NoError(t, err)

	assert.Equal(t, first, second)
	assert.Equal(t, int64(1), first.Overview.TotalContent)
	assert.Equal(t, float64(0), first.Overview.GrowthRate)
}
