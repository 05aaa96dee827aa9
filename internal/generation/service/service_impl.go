package service

import (
	"context"
	"errors"
	"fmt"
	"math"
	"strings"

	"github.com/bwmarrin/snowflake"
	"github.com/draftforge/draftforge/internal/clock"
	generationdomain "github.com/draftforge/draftforge/internal/generation/domain"
	"github.com/draftforge/draftforge/internal/generator"
	ledgerdomain "github.com/draftforge/draftforge/internal/ledger/domain"
	"github.com/draftforge/draftforge/internal/observability/logger"
	"github.com/draftforge/draftforge/internal/observability/metrics"
	projectdomain "github.com/draftforge/draftforge/internal/project/domain"
	"github.com/draftforge/draftforge/internal/ratelimit"
	usagedomain "github.com/draftforge/draftforge/internal/usage/domain"
	"github.com/draftforge/draftforge/pkg/repository"
	"go.uber.org/fx"
	"go.uber.org/zap"
	"gorm.io/gorm"
)

// One credit pays for exactly one model invocation that reaches presented.
const creditCostPerGeneration = 1

type Params struct {
	fx.In

	DB        *gorm.DB
	Log       *zap.Logger
	GenID     *snowflake.Node
	Clock     clock.Clock
	Ledger    ledgerdomain.Service
	Projects  projectdomain.Service
	Usage     usagedomain.Service
	Generator generator.Generator
	Limiter   *ratelimit.GenerationLimiter `optional:"true"`
	Metrics   *metrics.Metrics             `optional:"true"`
}

type Service struct {
	db         *gorm.DB
	log        *zap.Logger
	genID      *snowflake.Node
	clock      clock.Clock
	ledger     ledgerdomain.Service
	projects   projectdomain.Service
	usage      usagedomain.Service
	generator  generator.Generator
	limiter    *ratelimit.GenerationLimiter
	metrics    *metrics.Metrics
	recordrepo repository.Repository[generationdomain.GenerationRecord]
}

func NewService(p Params) generationdomain.Service {
	return &Service{
		db:         p.DB,
		log:        p.Log.Named("generation.service"),
		genID:      p.GenID,
		clock:      p.Clock,
		ledger:     p.Ledger,
		projects:   p.Projects,
		usage:      p.Usage,
		generator:  p.Generator,
		limiter:    p.Limiter,
		metrics:    p.Metrics,
		recordrepo: repository.ProvideStore[generationdomain.GenerationRecord](p.DB),
	}
}

// Start runs the charged path: debit one credit, invoke the model, persist
// the presented record, append its usage event. The debit happens before
// the model call; every failure branch after it refunds, so a charged but
// unresolved outcome is unreachable.
func (s *Service) Start(ctx context.Context, req generationdomain.StartRequest) (*generationdomain.GenerationRecord, error) {
	log := logger.WithContext(ctx, s.log)

	prompt := strings.TrimSpace(req.Prompt)
	if prompt == "" {
		return nil, generationdomain.ErrInvalidPrompt
	}

	project, err := s.projects.Get(ctx, req.ProjectID)
	if err != nil {
		return nil, err
	}
	if project.OwnerID != req.AccountID {
		return nil, projectdomain.ErrProjectNotFound
	}

	if s.limiter.Enabled() {
		allowed, err := s.limiter.AllowAccount(ctx, req.AccountID)
		if err != nil {
			// Redis being down must not block paying users.
			log.Warn("rate limiter unavailable, allowing request", zap.Error(err))
		} else if !allowed {
			s.metrics.RecordRateLimitDenied(ctx, "generation_start")
			return nil, generationdomain.ErrRateLimited
		}
	}

	ok, _, err := s.ledger.TryDebit(ctx, req.AccountID, creditCostPerGeneration)
	if err != nil {
		return nil, err
	}
	if !ok {
		s.metrics.RecordGeneration(ctx, req.ModelID, "insufficient_credit")
		return nil, generationdomain.ErrInsufficientCredit
	}

	now := s.clock.Now()
	record := &generationdomain.GenerationRecord{
		ID:            s.genID.Generate(),
		ProjectID:     project.ID,
		OwnerID:       req.AccountID,
		Prompt:        prompt,
		ModelID:       req.ModelID,
		State:         generationdomain.StateProducing,
		ChargedCredit: true,
		CreatedAt:     now,
		UpdatedAt:     now,
	}
	if err := s.recordrepo.Create(ctx, record); err != nil {
		s.refund(ctx, req.AccountID, record.ID, "persist_failed")
		return nil, err
	}

	result, err := s.generator.Produce(ctx, prompt, req.ModelID)
	if err != nil {
		s.refund(ctx, req.AccountID, record.ID, refundReason(err))
		s.discardRecord(ctx, record.ID)
		s.metrics.RecordGeneration(ctx, req.ModelID, "failed")
		log.Warn("generation failed, credit refunded",
			zap.String("record_id", record.ID.String()),
			zap.Error(err),
		)
		if errors.Is(err, context.Canceled) || errors.Is(err, context.DeadlineExceeded) {
			return nil, err
		}
		return nil, fmt.Errorf("%w: %v", generationdomain.ErrGenerationFailed, err)
	}

	record.Output = &result.Output
	record.TokensUsed = result.TokensUsed
	record.WordCount = countWords(result.Output)
	record.ModelID = result.ModelID
	record.State = generationdomain.StatePresented
	record.UpdatedAt = s.clock.Now()

	if err := s.db.WithContext(ctx).
		Model(&generationdomain.GenerationRecord{}).
		Where("id = ?", record.ID).
		Updates(map[string]any{
			"output":      record.Output,
			"tokens_used": record.TokensUsed,
			"word_count":  record.WordCount,
			"model_id":    record.ModelID,
			"state":       record.State,
			"updated_at":  record.UpdatedAt,
		}).Error; err != nil {
		return nil, err
	}

	if _, err := s.usage.Append(ctx, usagedomain.AppendRequest{
		GenerationRecordID: record.ID,
		OwnerID:            record.OwnerID,
		ProjectID:          record.ProjectID,
		ContentType:        project.ContentType,
		TokensUsed:         record.TokensUsed,
		WordCountEstimate:  wordCountEstimate(record.WordCount, record.TokensUsed),
	}); err != nil {
		// The record is presented and charged; the append is idempotent,
		// so surfacing the error lets the caller retry without double
		// counting.
		return nil, err
	}

	s.metrics.RecordGeneration(ctx, record.ModelID, "presented")
	return record, nil
}

// Accept marks a presented record as kept. Accepting an already accepted
// record is a no-op.
func (s *Service) Accept(ctx context.Context, id snowflake.ID) (*generationdomain.GenerationRecord, error) {
	record, err := s.Get(ctx, id)
	if err != nil {
		return nil, err
	}

	switch record.State {
	case generationdomain.StateAccepted:
		return record, nil
	case generationdomain.StatePresented:
		return s.transition(ctx, record, generationdomain.StateAccepted)
	default:
		return nil, generationdomain.ErrInvalidTransition
	}
}

// Reject marks a presented record as discarded. The credit is not
// refunded: the compute was consumed. Rejection unlocks a free
// Regenerate against the record.
func (s *Service) Reject(ctx context.Context, id snowflake.ID) (*generationdomain.GenerationRecord, error) {
	record, err := s.Get(ctx, id)
	if err != nil {
		return nil, err
	}

	switch record.State {
	case generationdomain.StateRejected:
		return record, nil
	case generationdomain.StatePresented:
		return s.transition(ctx, record, generationdomain.StateRejected)
	default:
		return nil, generationdomain.ErrInvalidTransition
	}
}

// Regenerate retries a rejected generation without touching the ledger.
// The new record carries ChargedCredit=false and no usage event, so free
// retries never distort billing or analytics.
func (s *Service) Regenerate(ctx context.Context, req generationdomain.RegenerateRequest) (*generationdomain.GenerationRecord, error) {
	log := logger.WithContext(ctx, s.log)

	source, err := s.Get(ctx, req.SourceRecordID)
	if err != nil {
		return nil, err
	}
	if source.OwnerID != req.AccountID {
		return nil, generationdomain.ErrRecordNotFound
	}
	if source.State != generationdomain.StateRejected {
		return nil, generationdomain.ErrNotRejected
	}

	result, err := s.generator.Produce(ctx, source.Prompt, source.ModelID)
	if err != nil {
		s.metrics.RecordGeneration(ctx, source.ModelID, "regenerate_failed")
		log.Warn("regeneration failed",
			zap.String("source_record_id", source.ID.String()),
			zap.Error(err),
		)
		if errors.Is(err, context.Canceled) || errors.Is(err, context.DeadlineExceeded) {
			return nil, err
		}
		return nil, fmt.Errorf("%w: %v", generationdomain.ErrGenerationFailed, err)
	}

	now := s.clock.Now()
	sourceID := source.ID
	record := &generationdomain.GenerationRecord{
		ID:             s.genID.Generate(),
		ProjectID:      source.ProjectID,
		OwnerID:        source.OwnerID,
		Prompt:         source.Prompt,
		ModelID:        result.ModelID,
		Output:         &result.Output,
		TokensUsed:     result.TokensUsed,
		WordCount:      countWords(result.Output),
		State:          generationdomain.StatePresented,
		ChargedCredit:  false,
		SourceRecordID: &sourceID,
		CreatedAt:      now,
		UpdatedAt:      now,
	}
	if err := s.recordrepo.Create(ctx, record); err != nil {
		return nil, err
	}

	s.metrics.RecordGeneration(ctx, record.ModelID, "regenerated")
	return record, nil
}

func (s *Service) Get(ctx context.Context, id snowflake.ID) (*generationdomain.GenerationRecord, error) {
	if id == 0 {
		return nil, generationdomain.ErrRecordNotFound
	}
	record, err := s.recordrepo.FindOne(ctx, &generationdomain.GenerationRecord{ID: id})
	if err != nil {
		return nil, err
	}
	if record == nil {
		return nil, generationdomain.ErrRecordNotFound
	}
	return record, nil
}

// ListActive returns the project's presented records awaiting a decision.
func (s *Service) ListActive(ctx context.Context, req generationdomain.ListActiveRequest) ([]generationdomain.GenerationRecord, error) {
	if req.ProjectID == 0 {
		return nil, projectdomain.ErrProjectNotFound
	}

	var records []generationdomain.GenerationRecord
	err := s.db.WithContext(ctx).
		Where("project_id = ? AND state = ?", req.ProjectID, generationdomain.StatePresented).
		Order("created_at ASC, id ASC").
		Find(&records).Error
	if err != nil {
		return nil, err
	}
	return records, nil
}

func (s *Service) transition(ctx context.Context, record *generationdomain.GenerationRecord, to generationdomain.State) (*generationdomain.GenerationRecord, error) {
	now := s.clock.Now()
	result := s.db.WithContext(ctx).
		Model(&generationdomain.GenerationRecord{}).
		Where("id = ? AND state = ?", record.ID, record.State).
		Updates(map[string]any{"state": to, "updated_at": now})
	if result.Error != nil {
		return nil, result.Error
	}
	if result.RowsAffected == 0 {
		// Lost a race with another transition; reread and let the caller
		// see the winning state.
		return s.Get(ctx, record.ID)
	}

	record.State = to
	record.UpdatedAt = now
	return record, nil
}

// refund returns the debited credit. It must not fail silently: a refund
// that cannot be written is the one state the workflow promises to avoid.
func (s *Service) refund(ctx context.Context, accountID, recordID snowflake.ID, reason string) {
	// Use a detached context so a caller cancellation cannot also cancel
	// the refund.
	refundCtx := context.WithoutCancel(ctx)
	if _, err := s.ledger.Credit(refundCtx, ledgerdomain.CreditRequest{
		AccountID:      accountID,
		Amount:         creditCostPerGeneration,
		Kind:           ledgerdomain.TransactionKindRefund,
		SourceRecordID: &recordID,
	}); err != nil {
		s.log.Error("refund failed, account balance is short one credit",
			zap.String("account_id", accountID.String()),
			zap.String("record_id", recordID.String()),
			zap.String("reason", reason),
			zap.Error(err),
		)
	}
}

func (s *Service) discardRecord(ctx context.Context, id snowflake.ID) {
	cleanupCtx := context.WithoutCancel(ctx)
	if err := s.db.WithContext(cleanupCtx).
		Where("id = ?", id).
		Delete(&generationdomain.GenerationRecord{}).Error; err != nil {
		s.log.Error("failed to discard unproduced record",
			zap.String("record_id", id.String()),
			zap.Error(err),
		)
	}
}

func refundReason(err error) string {
	switch {
	case errors.Is(err, context.Canceled):
		return "canceled"
	case errors.Is(err, context.DeadlineExceeded):
		return "timeout"
	default:
		return "generator_error"
	}
}

func countWords(output string) int64 {
	return int64(len(strings.Fields(output)))
}

// wordCountEstimate prefers the measured count; when absent it estimates
// words as tokens * 0.75. Surfaces that show it must label it an estimate.
func wordCountEstimate(wordCount, tokensUsed int64) int64 {
	if wordCount > 0 {
		return wordCount
	}
	return int64(math.Round(float64(tokensUsed) * 0.75))
}
