package agent

import (
	"context"
	"time"

	"github.com/google/uuid"
	"go.uber.org/zap"

	"cs-support/internal/config"
	"cs-support/internal/domain"
)

// stage is the orchestrator's position in the pipeline state machine.
// Transitions are strictly sequential; failed is terminal and reachable
// from any stage.
type stage int

const (
	stageReformulating stage = iota
	stageRetrieving
	stageAnswering
	stageValidating
	stageDone
	stageFailed
)

func (s stage) String() string {
	switch s {
	case stageReformulating:
		return "reformulating"
	case stageRetrieving:
		return "retrieving"
	case stageAnswering:
		return "answering"
	case stageValidating:
		return "validating"
	case stageDone:
		return "done"
	default:
		return "failed"
	}
}

// Pipeline sequences the three agent stages around retrieval and packages
// the final result. Callers are shielded from stage-internal failures:
// Run always returns a displayable PipelineResult.
type Pipeline struct {
	reformulator *Reformulator
	retriever    domain.Retriever
	answerer     *Answerer
	validator    *Validator

	topK          int
	minSimilarity float64
	stageTimeout  time.Duration
	confidence    config.ConfidenceConfig
	log           *zap.Logger
}

// PipelineConfig carries the retrieval and confidence settings the
// orchestrator needs per run.
type PipelineConfig struct {
	TopK          int
	MinSimilarity float64
	StageTimeout  time.Duration
	Confidence    config.ConfidenceConfig
}

// NewPipeline wires the stages into an orchestrator.
func NewPipeline(generator domain.Generator, retriever domain.Retriever, cfg PipelineConfig, log *zap.Logger) *Pipeline {
	if log == nil {
		log = zap.NewNop()
	}
	if cfg.TopK <= 0 {
		cfg.TopK = 3
	}
	if cfg.StageTimeout <= 0 {
		cfg.StageTimeout = 2 * time.Minute
	}
	return &Pipeline{
		reformulator:  NewReformulator(generator),
		retriever:     retriever,
		answerer:      NewAnswerer(generator),
		validator:     NewValidator(generator),
		topK:          cfg.TopK,
		minSimilarity: cfg.MinSimilarity,
		stageTimeout:  cfg.StageTimeout,
		confidence:    cfg.Confidence,
		log:           log,
	}
}

// Run processes one question through the full pipeline. On an
// unrecoverable stage failure it returns a best-effort result built from
// whatever partial data is available instead of raising to the caller.
func (p *Pipeline) Run(ctx context.Context, question string) domain.PipelineResult {
	result := domain.PipelineResult{
		ID:               uuid.NewString(),
		OriginalQuestion: question,
		CreatedAt:        time.Now().UTC(),
	}
	totalStart := time.Now()
	state := stageReformulating

	// Stage 1: reformulation, degrades internally to the raw question.
	reformStart := time.Now()
	reform := p.runReformulate(ctx, question)
	result.Timings.ReformulationMs = time.Since(reformStart).Milliseconds()
	result.ReformulatedQuery = reform.ReformulatedQuery
	result.DetectedIntent = reform.DetectedIntent
	if reform.UsedFallback {
		p.log.Warn("reformulation degraded to raw question", zap.String("id", result.ID))
	}

	// Stage 2: retrieval.
	state = stageRetrieving
	retrieveStart := time.Now()
	retrieval, err := p.runRetrieve(ctx, reform.ReformulatedQuery)
	result.Timings.RetrievalMs = time.Since(retrieveStart).Milliseconds()
	if err != nil {
		return p.fail(result, state, totalStart, err)
	}
	result.Passages = retrieval.Chunks

	// Stage 3: answering.
	state = stageAnswering
	answerStart := time.Now()
	answer, err := p.runAnswer(ctx, reform.ReformulatedQuery, retrieval)
	result.Timings.AnswerMs = time.Since(answerStart).Milliseconds()
	if err != nil {
		return p.fail(result, state, totalStart, err)
	}
	result.Answer = answer.Text
	result.SourceDocument = answer.SourceDocument

	// Stage 4: validation.
	state = stageValidating
	validateStart := time.Now()
	validation, err := p.runValidate(ctx, question, answer.Text, retrieval)
	result.Timings.ValidationMs = time.Since(validateStart).Milliseconds()
	if err != nil {
		return p.fail(result, state, totalStart, err)
	}
	result.ConfidenceScore = validation.ConfidenceScore
	result.ConfidenceLevel = p.confidence.Level(validation.ConfidenceScore)

	state = stageDone
	result.Timings.TotalMs = time.Since(totalStart).Milliseconds()
	p.log.Info("pipeline finished",
		zap.String("id", result.ID),
		zap.String("state", state.String()),
		zap.String("intent", result.DetectedIntent),
		zap.String("source", result.SourceDocument),
		zap.Int("confidence", result.ConfidenceScore),
		zap.Int64("total_ms", result.Timings.TotalMs),
	)
	return result
}

// fail terminates the pipeline in the failed state, synthesizing a
// low-confidence explanatory result from the partial data gathered so far.
func (p *Pipeline) fail(result domain.PipelineResult, at stage, totalStart time.Time, err error) domain.PipelineResult {
	p.log.Error("pipeline stage failed",
		zap.String("id", result.ID),
		zap.String("stage", at.String()),
		zap.Error(err),
	)
	if result.Answer == "" {
		result.Answer = degradedAnswer
	}
	if result.SourceDocument == "" {
		result.SourceDocument = domain.NoSourceDocument
	}
	result.ConfidenceScore = 0
	result.ConfidenceLevel = domain.ConfidenceLow
	result.Timings.TotalMs = time.Since(totalStart).Milliseconds()
	return result
}

func (p *Pipeline) runReformulate(ctx context.Context, question string) domain.Reformulation {
	ctx, cancel := context.WithTimeout(ctx, p.stageTimeout)
	defer cancel()
	return p.reformulator.Reformulate(ctx, question)
}

func (p *Pipeline) runRetrieve(ctx context.Context, query string) (domain.RetrievalResult, error) {
	ctx, cancel := context.WithTimeout(ctx, p.stageTimeout)
	defer cancel()
	return p.retriever.Retrieve(ctx, query, p.topK, p.minSimilarity)
}

func (p *Pipeline) runAnswer(ctx context.Context, query string, retrieval domain.RetrievalResult) (domain.Answer, error) {
	ctx, cancel := context.WithTimeout(ctx, p.stageTimeout)
	defer cancel()
	return p.answerer.Answer(ctx, query, retrieval)
}

func (p *Pipeline) runValidate(ctx context.Context, question, answer string, retrieval domain.RetrievalResult) (domain.Validation, error) {
	ctx, cancel := context.WithTimeout(ctx, p.stageTimeout)
	defer cancel()
	return p.validator.Validate(ctx, question, answer, retrieval)
}
