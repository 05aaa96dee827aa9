package domain

import (
	"context"

	"github.com/bwmarrin/snowflake"
)

// Service computes dashboard snapshots on demand.
type Service interface {
	Summarize(ctx context.Context, accountID snowflake.ID, horizon Horizon) (*DashboardSnapshot, error)
}
