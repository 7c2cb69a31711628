package quiz

import (
	"context"
	"errors"
	"fmt"
	"log/slog"

	"github.com/quizethic/quizethic-ai/internal/platform/metrics"
	"github.com/quizethic/quizethic-ai/internal/usage"
)

// Quota gates generation per user. *usage.Gate implements it.
type Quota interface {
	Check(ctx context.Context, userID string) error
	Record(ctx context.Context, userID string) error
}

// ServiceConfig holds dependencies for the quiz service.
type ServiceConfig struct {
	Pipeline *Pipeline
	Store    Store       // in-memory when nil
	Quota    Quota       // unlimited when nil
	Events   EventLogger // no-op when nil
}

// Service ties the pipeline to quota enforcement, history and analytics.
type Service struct {
	pipeline *Pipeline
	store    Store
	quota    Quota
	events   EventLogger
}

// NewService creates a new quiz service.
func NewService(cfg ServiceConfig) *Service {
	store := cfg.Store
	if store == nil {
		store = NewMemoryStore()
	}
	events := cfg.Events
	if events == nil {
		events = NopEventLogger{}
	}
	return &Service{
		pipeline: cfg.Pipeline,
		store:    store,
		quota:    cfg.Quota,
		events:   events,
	}
}

// Create checks the user's quota, runs the pipeline, saves the quiz and only
// then counts it against the quota.
func (s *Service) Create(ctx context.Context, req Request) (Quiz, error) {
	if req.UserID == "" {
		return Quiz{}, fmt.Errorf("%w: user_id is required", ErrInvalidRequest)
	}
	if err := req.Normalize(); err != nil {
		metrics.ObserveGeneration("invalid")
		return Quiz{}, err
	}

	if s.quota != nil {
		if err := s.quota.Check(ctx, req.UserID); err != nil {
			if errors.Is(err, usage.ErrQuotaExceeded) {
				metrics.ObserveGeneration("quota")
				s.logEvent(Event{
					UserID:    req.UserID,
					EventType: EventQuotaExceeded,
					Data:      map[string]any{"topic": req.Topic},
				})
			}
			return Quiz{}, err
		}
	}

	q, err := s.pipeline.Generate(ctx, req)
	if err != nil {
		metrics.ObserveGeneration("failed")
		s.logEvent(Event{
			UserID:    req.UserID,
			EventType: EventQuizRejected,
			Data: map[string]any{
				"topic":      req.Topic,
				"difficulty": string(req.Difficulty),
				"count":      req.Count,
				"error":      err.Error(),
			},
		})
		return Quiz{}, err
	}

	if err := s.store.SaveQuiz(ctx, &q); err != nil {
		metrics.ObserveGeneration("failed")
		return Quiz{}, fmt.Errorf("save quiz: %w", err)
	}

	if s.quota != nil {
		if err := s.quota.Record(ctx, req.UserID); err != nil {
			slog.Error("failed to record usage", "user_id", req.UserID, "quiz_id", q.ID, "error", err)
		}
	}

	metrics.ObserveGeneration("ok")
	s.logEvent(Event{
		QuizID:    q.ID,
		UserID:    q.UserID,
		EventType: EventQuizGenerated,
		Data: map[string]any{
			"topic":      q.Topic,
			"difficulty": string(q.Difficulty),
			"count":      len(q.Questions),
			"attempts":   q.Attempts,
			"model":      q.Model,
		},
	})
	return q, nil
}

// Get returns a quiz owned by userID. Other users' quizzes are reported as
// ErrNotFound.
func (s *Service) Get(ctx context.Context, userID, id string) (Quiz, error) {
	q, err := s.store.GetQuiz(ctx, id)
	if err != nil {
		return Quiz{}, err
	}
	if q.UserID != userID {
		return Quiz{}, fmt.Errorf("%w: %s", ErrNotFound, id)
	}
	return q, nil
}

// List returns the user's quizzes, newest first.
func (s *Service) List(ctx context.Context, userID string, limit int) ([]Quiz, error) {
	return s.store.ListQuizzes(ctx, userID, limit)
}

// RecordAttempt stores a score for one of the user's quizzes.
func (s *Service) RecordAttempt(ctx context.Context, userID, quizID string, score int) (Attempt, error) {
	q, err := s.Get(ctx, userID, quizID)
	if err != nil {
		return Attempt{}, err
	}
	total := len(q.Questions)
	if score < 0 || score > total {
		return Attempt{}, fmt.Errorf("%w: score must be between 0 and %d, got %d", ErrInvalidScore, total, score)
	}

	a, err := s.store.RecordAttempt(ctx, Attempt{
		QuizID: q.ID,
		UserID: userID,
		Score:  score,
		Total:  total,
	})
	if err != nil {
		return Attempt{}, err
	}

	s.logEvent(Event{
		QuizID:    q.ID,
		UserID:    userID,
		EventType: EventAttemptRecorded,
		Data:      map[string]any{"score": score, "total": total},
	})
	return a, nil
}

func (s *Service) logEvent(e Event) {
	if err := s.events.LogEvent(e); err != nil {
		slog.Warn("failed to log event", "type", e.EventType, "user_id", e.UserID, "error", err)
	}
}
