package quiz

import (
	"context"
	"fmt"
	"sort"
	"sync"
	"time"

	"github.com/google/uuid"
)

const defaultListLimit = 50

// Store persists generated quizzes and attempt scores.
type Store interface {
	// SaveQuiz assigns an ID (if empty) and CreatedAt (if zero) and stores q.
	SaveQuiz(ctx context.Context, q *Quiz) error
	GetQuiz(ctx context.Context, id string) (Quiz, error)
	// ListQuizzes returns a user's quizzes, newest first.
	ListQuizzes(ctx context.Context, userID string, limit int) ([]Quiz, error)
	RecordAttempt(ctx context.Context, a Attempt) (Attempt, error)
}

// MemoryStore is an in-memory implementation of Store.
type MemoryStore struct {
	quizzes  map[string]Quiz
	attempts map[string][]Attempt
	nextID   int64
	mu       sync.RWMutex
}

// NewMemoryStore creates a new in-memory quiz store.
func NewMemoryStore() *MemoryStore {
	return &MemoryStore{
		quizzes:  make(map[string]Quiz),
		attempts: make(map[string][]Attempt),
	}
}

func (s *MemoryStore) SaveQuiz(_ context.Context, q *Quiz) error {
	if q.UserID == "" {
		return fmt.Errorf("user_id is required")
	}
	if q.ID == "" {
		q.ID = uuid.NewString()
	}
	if q.CreatedAt.IsZero() {
		q.CreatedAt = time.Now().UTC()
	}

	s.mu.Lock()
	defer s.mu.Unlock()
	s.quizzes[q.ID] = cloneQuiz(*q)
	return nil
}

func (s *MemoryStore) GetQuiz(_ context.Context, id string) (Quiz, error) {
	s.mu.RLock()
	defer s.mu.RUnlock()

	q, ok := s.quizzes[id]
	if !ok {
		return Quiz{}, fmt.Errorf("%w: %s", ErrNotFound, id)
	}
	return cloneQuiz(q), nil
}

func (s *MemoryStore) ListQuizzes(_ context.Context, userID string, limit int) ([]Quiz, error) {
	if limit <= 0 {
		limit = defaultListLimit
	}

	s.mu.RLock()
	out := []Quiz{}
	for _, q := range s.quizzes {
		if q.UserID == userID {
			out = append(out, cloneQuiz(q))
		}
	}
	s.mu.RUnlock()

	sort.Slice(out, func(i, j int) bool {
		return out[i].CreatedAt.After(out[j].CreatedAt)
	})
	if len(out) > limit {
		out = out[:limit]
	}
	return out, nil
}

func (s *MemoryStore) RecordAttempt(_ context.Context, a Attempt) (Attempt, error) {
	s.mu.Lock()
	defer s.mu.Unlock()

	if _, ok := s.quizzes[a.QuizID]; !ok {
		return Attempt{}, fmt.Errorf("%w: %s", ErrNotFound, a.QuizID)
	}
	s.nextID++
	a.ID = s.nextID
	if a.CreatedAt.IsZero() {
		a.CreatedAt = time.Now().UTC()
	}
	s.attempts[a.QuizID] = append(s.attempts[a.QuizID], a)
	return a, nil
}

// Attempts returns the recorded attempts for a quiz.
func (s *MemoryStore) Attempts(quizID string) []Attempt {
	s.mu.RLock()
	defer s.mu.RUnlock()
	return append([]Attempt(nil), s.attempts[quizID]...)
}

func cloneQuiz(q Quiz) Quiz {
	q.Subjects = append([]string(nil), q.Subjects...)
	questions := make([]Question, len(q.Questions))
	for i, qq := range q.Questions {
		qq.Options = append([]string(nil), qq.Options...)
		questions[i] = qq
	}
	q.Questions = questions
	return q
}
