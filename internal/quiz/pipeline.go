package quiz

import (
	"context"
	"fmt"
	"log/slog"
	"time"

	"github.com/quizethic/quizethic-ai/internal/platform/metrics"
)

const defaultMaxAttempts = 2

// Attempt stages reported to metrics.
const (
	stageSyllabus = "syllabus"
	stageGenerate = "generate"
	stageFilter   = "filter"
	stageOK       = "ok"
)

// PipelineConfig holds dependencies for the quiz pipeline.
type PipelineConfig struct {
	Generator   *Generator
	Filter      *Filter // default rules when nil
	MaxAttempts int     // total attempts, default 2
}

// Pipeline runs syllabus inference, generation and filtering with a bounded
// number of attempts.
type Pipeline struct {
	gen         *Generator
	filter      *Filter
	maxAttempts int
}

// NewPipeline creates a new quiz pipeline.
func NewPipeline(cfg PipelineConfig) *Pipeline {
	filter := cfg.Filter
	if filter == nil {
		filter = NewFilter()
	}
	maxAttempts := cfg.MaxAttempts
	if maxAttempts <= 0 {
		maxAttempts = defaultMaxAttempts
	}
	return &Pipeline{
		gen:         cfg.Generator,
		filter:      filter,
		maxAttempts: maxAttempts,
	}
}

// MaxAttempts returns the configured attempt budget.
func (p *Pipeline) MaxAttempts() int {
	return p.maxAttempts
}

// Generate produces a validated quiz. A failed phase or a filter rejection
// consumes one attempt; a syllabus that was inferred successfully is reused by
// later attempts. When every attempt fails the error wraps ErrGenerationFailed
// and the last cause.
func (p *Pipeline) Generate(ctx context.Context, req Request) (Quiz, error) {
	if err := req.Normalize(); err != nil {
		return Quiz{}, err
	}

	var (
		syllabus *Syllabus
		lastErr  error
	)
	for attempt := 1; attempt <= p.maxAttempts; attempt++ {
		if err := ctx.Err(); err != nil {
			return Quiz{}, fmt.Errorf("generate quiz: %w", err)
		}

		q, stage, err := p.attempt(ctx, req, &syllabus)
		metrics.ObserveAttempt(stage)
		if err == nil {
			q.UserID = req.UserID
			q.Attempts = attempt
			q.CreatedAt = time.Now().UTC()
			slog.Info("quiz generated",
				"user_id", req.UserID,
				"topic", req.Topic,
				"difficulty", string(req.Difficulty),
				"count", req.Count,
				"attempt", attempt,
				"model", q.Model,
			)
			return q, nil
		}

		// Only the caller's context ends the loop. A provider's own HTTP
		// timeout also matches context.DeadlineExceeded and still gets a retry.
		if ctxErr := ctx.Err(); ctxErr != nil {
			return Quiz{}, fmt.Errorf("generate quiz: %w", ctxErr)
		}

		lastErr = err
		slog.Warn("quiz attempt failed",
			"user_id", req.UserID,
			"topic", req.Topic,
			"attempt", attempt,
			"max_attempts", p.maxAttempts,
			"stage", stage,
			"error", err,
		)
	}

	return Quiz{}, fmt.Errorf("%w after %d attempts: %w", ErrGenerationFailed, p.maxAttempts, lastErr)
}

func (p *Pipeline) attempt(ctx context.Context, req Request, syllabus **Syllabus) (Quiz, string, error) {
	if *syllabus == nil {
		s, err := p.gen.InferSyllabus(ctx, req.Topic)
		if err != nil {
			return Quiz{}, stageSyllabus, err
		}
		*syllabus = &s
	}

	q, err := p.gen.GenerateQuestions(ctx, **syllabus, req.Difficulty, req.Count)
	if err != nil {
		return Quiz{}, stageGenerate, err
	}

	if err := p.filter.Check(q.Questions); err != nil {
		return Quiz{}, stageFilter, err
	}
	return q, stageOK, nil
}
