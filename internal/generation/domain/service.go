package domain

import (
	"context"
	"errors"

	"github.com/bwmarrin/snowflake"
)

// StartRequest begins a charged generation: one credit buys one model
// invocation that reaches presented.
type StartRequest struct {
	AccountID snowflake.ID
	ProjectID snowflake.ID
	Prompt    string
	ModelID   string
}

// RegenerateRequest retries a rejected generation for free. The prompt,
// model and project are taken from the source record.
type RegenerateRequest struct {
	AccountID      snowflake.ID
	SourceRecordID snowflake.ID
}

type ListActiveRequest struct {
	ProjectID snowflake.ID
}

// Service drives the generation lifecycle.
//
// Start debits before producing and refunds when production fails, so a
// charged-but-orphaned outcome is unreachable. Accept is idempotent.
// Reject never refunds: the compute was consumed, rejection only unlocks
// a free Regenerate.
type Service interface {
	Start(ctx context.Context, req StartRequest) (*GenerationRecord, error)
	Accept(ctx context.Context, id snowflake.ID) (*GenerationRecord, error)
	Reject(ctx context.Context, id snowflake.ID) (*GenerationRecord, error)
	Regenerate(ctx context.Context, req RegenerateRequest) (*GenerationRecord, error)
	Get(ctx context.Context, id snowflake.ID) (*GenerationRecord, error)
	ListActive(ctx context.Context, req ListActiveRequest) ([]GenerationRecord, error)
}

var (
	ErrInvalidPrompt      = errors.New("invalid_prompt")
	ErrInsufficientCredit = errors.New("insufficient_credit")
	ErrGenerationFailed   = errors.New("generation_failed")
	ErrRecordNotFound     = errors.New("record_not_found")
	ErrInvalidTransition  = errors.New("invalid_state_transition")
	ErrNotRejected        = errors.New("source_record_not_rejected")
	ErrRateLimited        = errors.New("rate_limited")
)
