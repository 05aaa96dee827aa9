// Package domain contains the dashboard snapshot value objects. Snapshots
// are computed, never persisted.
package domain

import (
	"errors"
	"time"

	"github.com/bwmarrin/snowflake"
	projectdomain "github.com/draftforge/draftforge/internal/project/domain"
)

// Horizon is the caller-supplied reporting range tag.
type Horizon string

const (
	Horizon24h Horizon = "24h"
	Horizon7d  Horizon = "7d"
	Horizon30d Horizon = "30d"
	Horizon90d Horizon = "90d"
)

// Days returns the calendar day count the horizon spans.
func (h Horizon) Days() int {
	switch h {
	case Horizon24h:
		return 1
	case Horizon7d:
		return 7
	case Horizon30d:
		return 30
	case Horizon90d:
		return 90
	default:
		return 0
	}
}

// Valid reports whether the horizon is one of the supported tags.
func (h Horizon) Valid() bool { return h.Days() > 0 }

// TimeWindow is a half-open interval [Start, End).
type TimeWindow struct {
	Start time.Time `json:"start"`
	End   time.Time `json:"end"`
}

// Contains reports whether t falls inside the window.
func (w TimeWindow) Contains(t time.Time) bool {
	return !t.Before(w.Start) && t.Before(w.End)
}

// Previous returns the equal-length window immediately before w.
func (w TimeWindow) Previous() TimeWindow {
	length := w.End.Sub(w.Start)
	return TimeWindow{Start: w.Start.Add(-length), End: w.Start}
}

// OverviewStats summarizes the current window against the previous one.
// GrowthRate is a percentage and reads 0 when the previous window was
// empty rather than propagating a division by zero.
type OverviewStats struct {
	TotalProjects int64   `json:"total_projects"`
	TotalContent  int64   `json:"total_content"`
	TotalWords    int64   `json:"total_words"`
	AvgEngagement float64 `json:"avg_engagement"`
	GrowthRate    float64 `json:"growth_rate"`
}

// DailyBucket is one calendar day of the series. Empty days report zeros;
// they are never omitted, so the series length always equals the
// horizon's day count.
type DailyBucket struct {
	Date             string  `json:"date"` // YYYY-MM-DD, UTC
	DistinctProjects int64   `json:"distinct_projects"`
	ContentCount     int64   `json:"content_count"`
	AvgEngagement    float64 `json:"avg_engagement"`
}

// CategoryShare is one content type's slice of the current window.
// Percentages are rounded to one decimal independently and need not sum
// to exactly 100.
type CategoryShare struct {
	ContentType projectdomain.ContentType `json:"content_type"`
	Count       int64                     `json:"count"`
	Percentage  float64                   `json:"percentage"`
}

// ProjectRank is one entry of the top-projects table. PerformanceScore is
// a fixed-weight policy: 40% normalized views, 30% content volume, 30%
// engagement, hard-capped at 100.
type ProjectRank struct {
	ProjectID        snowflake.ID `json:"project_id"`
	ContentCount     int64        `json:"content_count"`
	Views            int64        `json:"views"`
	AvgEngagement    float64      `json:"avg_engagement"`
	PerformanceScore float64      `json:"performance_score"`
}

// EngagementSummary sums and averages engagement fields over the current
// window. An empty window yields the zero value, not an error.
type EngagementSummary struct {
	TotalShares         int64   `json:"total_shares"`
	TotalComments       int64   `json:"total_comments"`
	TotalLikes          int64   `json:"total_likes"`
	AvgTimeOnPage       float64 `json:"avg_time_on_page"`
	AvgBounceRate       float64 `json:"avg_bounce_rate"`
	AvgClickThroughRate float64 `json:"avg_click_through_rate"`
}

// DashboardSnapshot is the full computed dashboard for one account and
// window. Equal inputs always produce equal snapshots.
type DashboardSnapshot struct {
	Window               TimeWindow        `json:"window"`
	Overview             OverviewStats     `json:"overview"`
	DailySeries          []DailyBucket     `json:"daily_series"`
	CategoryDistribution []CategoryShare   `json:"category_distribution"`
	TopProjects          []ProjectRank     `json:"top_projects"`
	Engagement           EngagementSummary `json:"engagement"`
}

var ErrInvalidHorizon = errors.New("invalid_horizon")
