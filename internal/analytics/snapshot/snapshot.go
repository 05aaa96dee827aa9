// Package snapshot computes dashboard snapshots from usage events. Every
// function here is pure: equal inputs yield equal outputs, with no clock,
// store, or randomness involved.
package snapshot

import (
	"math"
	"sort"
	"time"

	"github.com/bwmarrin/snowflake"
	analyticsdomain "github.com/draftforge/draftforge/internal/analytics/domain"
	projectdomain "github.com/draftforge/draftforge/internal/project/domain"
	usagedomain "github.com/draftforge/draftforge/internal/usage/domain"
)

// Build assembles the full snapshot for one window. current and previous
// must already be filtered to their windows; days is the horizon's day
// count and fixes the daily series length.
func Build(current, previous []usagedomain.UsageEvent, window analyticsdomain.TimeWindow, days int) analyticsdomain.DashboardSnapshot {
	return analyticsdomain.DashboardSnapshot{
		Window:               window,
		Overview:             Overview(current, previous),
		DailySeries:          DailySeries(current, window, days),
		CategoryDistribution: CategoryDistribution(current),
		TopProjects:          TopProjects(current),
		Engagement:           Engagement(current),
	}
}

// FilterWindow keeps events whose createdAt falls inside the half-open
// window [start, end).
func FilterWindow(events []usagedomain.UsageEvent, window analyticsdomain.TimeWindow) []usagedomain.UsageEvent {
	filtered := make([]usagedomain.UsageEvent, 0, len(events))
	for _, event := range events {
		if window.Contains(event.CreatedAt) {
			filtered = append(filtered, event)
		}
	}
	return filtered
}

// Overview computes the headline stats. GrowthRate compares current and
// previous event counts as a percentage and is defined as 0 when the
// previous window is empty, so callers never see NaN or Inf.
func Overview(current, previous []usagedomain.UsageEvent) analyticsdomain.OverviewStats {
	stats := analyticsdomain.OverviewStats{
		TotalContent: int64(len(current)),
	}

	projects := make(map[snowflake.ID]struct{})
	var engagementSum float64
	for _, event := range current {
		projects[event.ProjectID] = struct{}{}
		stats.TotalWords += event.WordCountEstimate
		engagementSum += event.EngagementScore()
	}
	stats.TotalProjects = int64(len(projects))
	if len(current) > 0 {
		stats.AvgEngagement = engagementSum / float64(len(current))
	}
	if len(previous) > 0 {
		stats.GrowthRate = float64(len(current)-len(previous)) / float64(len(previous)) * 100
	}
	return stats
}

// DailySeries buckets events by UTC calendar day. The result always has
// exactly days entries; days with no events report zeros.
func DailySeries(current []usagedomain.UsageEvent, window analyticsdomain.TimeWindow, days int) []analyticsdomain.DailyBucket {
	type dayAgg struct {
		projects      map[snowflake.ID]struct{}
		count         int64
		engagementSum float64
	}

	byDay := make(map[string]*dayAgg)
	for _, event := range current {
		key := event.CreatedAt.UTC().Format("2006-01-02")
		agg, ok := byDay[key]
		if !ok {
			agg = &dayAgg{projects: make(map[snowflake.ID]struct{})}
			byDay[key] = agg
		}
		agg.projects[event.ProjectID] = struct{}{}
		agg.count++
		agg.engagementSum += event.EngagementScore()
	}

	series := make([]analyticsdomain.DailyBucket, 0, days)
	start := window.Start.UTC()
	for i := 0; i < days; i++ {
		key := start.AddDate(0, 0, i).Format("2006-01-02")
		bucket := analyticsdomain.DailyBucket{Date: key}
		if agg, ok := byDay[key]; ok {
			bucket.DistinctProjects = int64(len(agg.projects))
			bucket.ContentCount = agg.count
			bucket.AvgEngagement = agg.engagementSum / float64(agg.count)
		}
		series = append(series, bucket)
	}
	return series
}

// CategoryDistribution groups the window by content type. Percentages are
// rounded to one decimal independently, so they need not sum to exactly
// 100. Sorted by count descending, content type ascending on ties.
func CategoryDistribution(current []usagedomain.UsageEvent) []analyticsdomain.CategoryShare {
	if len(current) == 0 {
		return []analyticsdomain.CategoryShare{}
	}

	counts := make(map[projectdomain.ContentType]int64)
	for _, event := range current {
		counts[event.ContentType]++
	}

	total := float64(len(current))
	shares := make([]analyticsdomain.CategoryShare, 0, len(counts))
	for contentType, count := range counts {
		shares = append(shares, analyticsdomain.CategoryShare{
			ContentType: contentType,
			Count:       count,
			Percentage:  round1(float64(count) / total * 100),
		})
	}

	sort.Slice(shares, func(i, j int) bool {
		if shares[i].Count != shares[j].Count {
			return shares[i].Count > shares[j].Count
		}
		return shares[i].ContentType < shares[j].ContentType
	})
	return shares
}

// TopProjects ranks projects by performance score and keeps the top 5.
//
// The score is a fixed, documented weighting, not a learned one:
// 40% normalized views (views * 0.004), 30% content volume
// (contentCount * 5 * 0.3), 30% engagement (avgEngagement * 0.3),
// hard-capped at 100. Ties break by content count descending, then
// project id ascending so equal inputs always rank identically.
func TopProjects(current []usagedomain.UsageEvent) []analyticsdomain.ProjectRank {
	type projAgg struct {
		count         int64
		views         int64
		engagementSum float64
	}

	byProject := make(map[snowflake.ID]*projAgg)
	for _, event := range current {
		agg, ok := byProject[event.ProjectID]
		if !ok {
			agg = &projAgg{}
			byProject[event.ProjectID] = agg
		}
		agg.count++
		agg.views += event.Views
		agg.engagementSum += event.EngagementScore()
	}

	ranks := make([]analyticsdomain.ProjectRank, 0, len(byProject))
	for projectID, agg := range byProject {
		avgEngagement := agg.engagementSum / float64(agg.count)
		score := float64(agg.views)*0.004 +
			float64(agg.count)*5*0.3 +
			avgEngagement*0.3
		ranks = append(ranks, analyticsdomain.ProjectRank{
			ProjectID:        projectID,
			ContentCount:     agg.count,
			Views:            agg.views,
			AvgEngagement:    avgEngagement,
			PerformanceScore: math.Min(100, score),
		})
	}

	sort.Slice(ranks, func(i, j int) bool {
		if ranks[i].PerformanceScore != ranks[j].PerformanceScore {
			return ranks[i].PerformanceScore > ranks[j].PerformanceScore
		}
		if ranks[i].ContentCount != ranks[j].ContentCount {
			return ranks[i].ContentCount > ranks[j].ContentCount
		}
		return ranks[i].ProjectID < ranks[j].ProjectID
	})

	if len(ranks) > 5 {
		ranks = ranks[:5]
	}
	return ranks
}

// Engagement sums and averages the instrumentation fields. An empty
// window yields the zero-value summary.
func Engagement(current []usagedomain.UsageEvent) analyticsdomain.EngagementSummary {
	summary := analyticsdomain.EngagementSummary{}
	if len(current) == 0 {
		return summary
	}

	var timeOnPage, bounceRate, clickThroughRate float64
	for _, event := range current {
		summary.TotalShares += event.Shares
		summary.TotalComments += event.Comments
		summary.TotalLikes += event.Likes
		timeOnPage += event.TimeOnPage
		bounceRate += event.BounceRate
		clickThroughRate += event.ClickThroughRate
	}

	n := float64(len(current))
	summary.AvgTimeOnPage = timeOnPage / n
	summary.AvgBounceRate = bounceRate / n
	summary.AvgClickThroughRate = clickThroughRate / n
	return summary
}

// WindowForHorizon anchors the window to UTC calendar days ending with
// the day containing now: the series buckets then line up one-to-one
// with the horizon's day count.
func WindowForHorizon(now time.Time, horizon analyticsdomain.Horizon) analyticsdomain.TimeWindow {
	end := now.UTC().Truncate(24 * time.Hour).AddDate(0, 0, 1)
	start := end.AddDate(0, 0, -horizon.Days())
	return analyticsdomain.TimeWindow{Start: start, End: end}
}

func round1(v float64) float64 {
	return math.Round(v*10) / 10
}
