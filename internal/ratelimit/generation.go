package ratelimit

import (
	"context"
	"errors"
	"fmt"
	"strings"
	"time"

	"github.com/bwmarrin/snowflake"
	"github.com/draftforge/draftforge/internal/config"
	redis "github.com/redis/go-redis/v9"
)

const keyGenerationAccount = "generation:start:account:%s"

// GenerationLimiter throttles charged generation starts per account. A nil
// limiter (rate limiting disabled) allows everything.
type GenerationLimiter struct {
	enabled bool

	bucket *TokenBucket

	accountRate  float64
	accountBurst int
}

func NewGenerationLimiter(cfg config.Config) (*GenerationLimiter, error) {
	limitCfg := cfg.RateLimit
	if !limitCfg.Enabled {
		return nil, nil
	}

	addr := strings.TrimSpace(limitCfg.RedisAddr)
	if addr == "" {
		return nil, errors.New("rate limit redis addr is required")
	}
	if limitCfg.AccountRate <= 0 || limitCfg.AccountBurst <= 0 {
		return nil, errors.New("account rate limit must be positive")
	}

	client := redis.NewClient(&redis.Options{
		Addr:         addr,
		Password:     strings.TrimSpace(limitCfg.RedisPassword),
		DB:           limitCfg.RedisDB,
		DialTimeout:  2 * time.Second,
		ReadTimeout:  2 * time.Second,
		WriteTimeout: 2 * time.Second,
	})

	return &GenerationLimiter{
		enabled:      true,
		bucket:       NewTokenBucket(client),
		accountRate:  limitCfg.AccountRate,
		accountBurst: limitCfg.AccountBurst,
	}, nil
}

func (l *GenerationLimiter) Enabled() bool {
	return l != nil && l.enabled
}

func (l *GenerationLimiter) AllowAccount(ctx context.Context, accountID snowflake.ID) (bool, error) {
	if !l.Enabled() {
		return true, nil
	}
	return l.bucket.Allow(ctx, fmt.Sprintf(keyGenerationAccount, accountID.String()), l.accountRate, l.accountBurst)
}
