package snapshot

import (
	"testing"
	"time"

	"github.com/bwmarrin/snowflake"
	analyticsdomain "github.com/draftforge/draftforge/internal/analytics/domain"
	projectdomain "github.com/draftforge/draftforge/internal/project/domain"
	usagedomain "github.com/draftforge/draftforge/internal/usage/domain"
	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
)

var windowStart = time.Date(2026, 8, 1, 0, 0, 0, 0, time.UTC)

func window(days int) analyticsdomain.TimeWindow {
	return analyticsdomain.TimeWindow{
		Start: windowStart,
		End:   windowStart.AddDate(0, 0, days),
	}
}

func event(project int64, contentType projectdomain.ContentType, createdAt time.Time) usagedomain.UsageEvent {
	return usagedomain.UsageEvent{
		ID:          snowflake.ID(createdAt.UnixNano()),
		ProjectID:   snowflake.ID(project),
		ContentType: contentType,
		CreatedAt:   createdAt,
	}
}

func TestOverviewGrowthRateZeroWhenPreviousEmpty(t *testing.T) {
	current := make([]usagedomain.UsageEvent, 5)
	for i := range current {
		current[i] = event(1, projectdomain.ContentTypeBlog, windowStart.Add(time.Duration(i)*time.Hour))
	}

	stats := Overview(current, nil)
	assert.Equal(t, int64(5), stats.TotalContent)
	assert.Equal(t, float64(0), stats.GrowthRate)
}

func TestOverviewGrowthRate(t *testing.T) {
	current := make([]usagedomain.UsageEvent, 6)
	previous := make([]usagedomain.UsageEvent, 4)

	stats := Overview(current, previous)
	assert.InDelta(t, 50.0, stats.GrowthRate, 1e-9)

	shrunk := Overview(previous, current)
	assert.InDelta(t, -33.333333, shrunk.GrowthRate, 1e-5)
}

func TestOverviewAggregates(t *testing.T) {
	e1 := event(1, projectdomain.ContentTypeBlog, windowStart)
	e1.WordCountEstimate = 100
	e1.Shares, e1.Comments, e1.Likes = 2, 1, 3 // engagement 6
	e2 := event(2, projectdomain.ContentTypeEmail, windowStart.Add(time.Hour))
	e2.WordCountEstimate = 50
	e2.Likes = 4 // engagement 4

	stats := Overview([]usagedomain.UsageEvent{e1, e2}, nil)
	assert.Equal(t, int64(2), stats.TotalProjects)
	assert.Equal(t, int64(2), stats.TotalContent)
	assert.Equal(t, int64(150), stats.TotalWords)
	assert.InDelta(t, 5.0, stats.AvgEngagement, 1e-9)
}

func TestOverviewEmptyWindow(t *testing.T) {
	stats := Overview(nil, nil)
	assert.Equal(t, analyticsdomain.OverviewStats{}, stats)
}

func TestDailySeriesAlwaysFullLength(t *testing.T) {
	// Events on days 1, 2 and 5 only; day 3 (index 2) stays empty.
	events := []usagedomain.UsageEvent{
		event(1, projectdomain.ContentTypeBlog, windowStart.Add(2*time.Hour)),
		event(1, projectdomain.ContentTypeBlog, windowStart.AddDate(0, 0, 1)),
		event(2, projectdomain.ContentTypeBlog, windowStart.AddDate(0, 0, 4).Add(5*time.Hour)),
	}

	series := DailySeries(events, window(7), 7)
	require.Len(t, series, 7)

	assert.Equal(t, "2026-08-01", series[0].Date)
	assert.Equal(t, int64(1), series[0].ContentCount)
	assert.Equal(t, int64(0), series[2].ContentCount)
	assert.Equal(t, int64(0), series[2].DistinctProjects)
	assert.Equal(t, float64(0), series[2].AvgEngagement)
	assert.Equal(t, "2026-08-05", series[4].Date)
	assert.Equal(t, int64(1), series[4].ContentCount)
}

func TestDailySeriesSingleDayHorizon(t *testing.T) {
	series := DailySeries(nil, window(1), 1)
	require.Len(t, series, 1)
	assert.Equal(t, "2026-08-01", series[0].Date)
}

func TestCategoryDistributionPercentages(t *testing.T) {
	events := []usagedomain.UsageEvent{
		event(1, projectdomain.ContentTypeBlog, windowStart),
		event(1, projectdomain.ContentTypeBlog, windowStart),
		event(1, projectdomain.ContentTypeBlog, windowStart),
		event(2, projectdomain.ContentTypeEmail, windowStart),
	}

	shares := CategoryDistribution(events)
	require.Len(t, shares, 2)
	assert.Equal(t, projectdomain.ContentTypeBlog, shares[0].ContentType)
	assert.Equal(t, int64(3), shares[0].Count)
	assert.Equal(t, 75.0, shares[0].Percentage)
	assert.Equal(t, projectdomain.ContentTypeEmail, shares[1].ContentType)
	assert.Equal(t, int64(1), shares[1].Count)
	assert.Equal(t, 25.0, shares[1].Percentage)
}

func TestCategoryDistributionRoundsToOneDecimal(t *testing.T) {
	events := []usagedomain.UsageEvent{
		event(1, projectdomain.ContentTypeBlog, windowStart),
		event(1, projectdomain.ContentTypeEmail, windowStart),
		event(1, projectdomain.ContentTypeSocial, windowStart),
	}

	shares := CategoryDistribution(events)
	require.Len(t, shares, 3)
	for _, share := range shares {
		assert.Equal(t, 33.3, share.Percentage)
	}
	// Independently rounded percentages need not sum to 100.
}

func TestCategoryDistributionEmpty(t *testing.T) {
	assert.Empty(t, CategoryDistribution(nil))
}

func TestTopProjectsCapAndOrder(t *testing.T) {
	var events []usagedomain.UsageEvent
	// Eight projects with increasing content counts, so scores are
	// distinct and project 8 ranks first.
	for p := int64(1); p <= 8; p++ {
		for i := int64(0); i < p; i++ {
			events = append(events, event(p, projectdomain.ContentTypeBlog, windowStart))
		}
	}

	ranks := TopProjects(events)
	require.Len(t, ranks, 5)
	for i := 1; i < len(ranks); i++ {
		assert.GreaterOrEqual(t, ranks[i-1].PerformanceScore, ranks[i].PerformanceScore)
	}
	assert.Equal(t, snowflake.ID(8), ranks[0].ProjectID)
	for _, rank := range ranks {
		assert.LessOrEqual(t, rank.PerformanceScore, 100.0)
	}
}

func TestTopProjectsScoreIsCappedAt100(t *testing.T) {
	e := event(1, projectdomain.ContentTypeBlog, windowStart)
	e.Views = 1_000_000

	ranks := TopProjects([]usagedomain.UsageEvent{e})
	require.Len(t, ranks, 1)
	assert.Equal(t, 100.0, ranks[0].PerformanceScore)
}

func TestTopProjectsScoreWeights(t *testing.T) {
	e := event(1, projectdomain.ContentTypeBlog, windowStart)
	e.Views = 1000
	e.Shares, e.Comments, e.Likes = 5, 5, 10 // engagement 20

	ranks := TopProjects([]usagedomain.UsageEvent{e})
	require.Len(t, ranks, 1)
	// views*0.004 + count*5*0.3 + avgEngagement*0.3 = 4 + 1.5 + 6
	assert.InDelta(t, 11.5, ranks[0].PerformanceScore, 1e-9)
}

func TestTopProjectsTieBreaks(t *testing.T) {
	// Two projects with identical zero scores: lower id wins.
	a := event(2, projectdomain.ContentTypeBlog, windowStart)
	b := event(1, projectdomain.ContentTypeBlog, windowStart)

	ranks := TopProjects([]usagedomain.UsageEvent{a, b})
	require.Len(t, ranks, 2)
	assert.Equal(t, snowflake.ID(1), ranks[0].ProjectID)
	assert.Equal(t, snowflake.ID(2), ranks[1].ProjectID)
}

func TestEngagementSummary(t *testing.T) {
	e1 := event(1, projectdomain.ContentTypeBlog, windowStart)
	e1.Shares, e1.Comments, e1.Likes = 2, 3, 4
	e1.TimeOnPage, e1.BounceRate, e1.ClickThroughRate = 60, 0.5, 0.1
	e2 := event(1, projectdomain.ContentTypeBlog, windowStart)
	e2.Shares = 4
	e2.TimeOnPage, e2.BounceRate, e2.ClickThroughRate = 30, 0.3, 0.2

	summary := Engagement([]usagedomain.UsageEvent{e1, e2})
	assert.Equal(t, int64(6), summary.TotalShares)
	assert.Equal(t, int64(3), summary.TotalComments)
	assert.Equal(t, int64(4), summary.TotalLikes)
	assert.InDelta(t, 45.0, summary.AvgTimeOnPage, 1e-9)
	assert.InDelta(t, 0.4, summary.AvgBounceRate, 1e-9)
	assert.InDelta(t, 0.15, summary.AvgClickThroughRate, 1e-9)
}

func TestEngagementSummaryEmptyIsZeroValue(t *testing.T) {
	assert.Equal(t, analyticsdomain.EngagementSummary{}, Engagement(nil))
}

func TestFilterWindowIsHalfOpen(t *testing.T) {
	w := window(1)
	events := []usagedomain.UsageEvent{
		event(1, projectdomain.ContentTypeBlog, w.Start.Add(-time.Nanosecond)),
		event(1, projectdomain.ContentTypeBlog, w.Start),
		event(1, projectdomain.ContentTypeBlog, w.End.Add(-time.Nanosecond)),
		event(1, projectdomain.ContentTypeBlog, w.End),
	}

	filtered := FilterWindow(events, w)
	assert.Len(t, filtered, 2)
}

func TestBuildIsDeterministic(t *testing.T) {
	var events []usagedomain.UsageEvent
	for p := int64(1); p <= 6; p++ {
		e := event(p, projectdomain.ContentTypeSocial, windowStart.Add(time.Duration(p)*time.Hour))
		e.Views = p * 100
		e.Shares = p
		e.WordCountEstimate = p * 10
		events = append(events, e)
	}

	first := Build(events, nil, window(7), 7)
	second := Build(events, nil, window(7), 7)
	assert.Equal(t, first, second)
}

func TestWindowForHorizonCoversWholeDays(t *testing.T) {
	now := time.Date(2026, 8, 28, 15, 30, 0, 0, time.UTC)

	w := WindowForHorizon(now, analyticsdomain.Horizon7d)
	assert.Equal(t, time.Date(2026, 8, 29, 0, 0, 0, 0, time.UTC), w.End)
	assert.Equal(t, time.Date(2026, 8, 22, 0, 0, 0, 0, time.UTC), w.Start)

	previous := w.Previous()
	assert.Equal(t, w.Start, previous.End)
	assert.Equal(t, w.End.Sub(w.Start), previous.End.Sub(previous.Start))
}
