package quiz

import (
	"context"
	"encoding/json"
	"errors"
	"fmt"
	"time"

	"github.com/google/uuid"
	"github.com/jackc/pgx/v5"
	"github.com/jackc/pgx/v5/pgxpool"
)

const dbTimeout = 5 * time.Second

// PostgresStore is a PostgreSQL-backed Store implementation.
type PostgresStore struct {
	pool *pgxpool.Pool
}

// NewPostgresStore creates a PostgreSQL-backed quiz store.
func NewPostgresStore(pool *pgxpool.Pool) (*PostgresStore, error) {
	if pool == nil {
		return nil, fmt.Errorf("pool is nil")
	}
	return &PostgresStore{pool: pool}, nil
}

func (s *PostgresStore) SaveQuiz(ctx context.Context, q *Quiz) error {
	if q.UserID == "" {
		return fmt.Errorf("user_id is required")
	}
	if q.ID == "" {
		q.ID = uuid.NewString()
	}
	if q.CreatedAt.IsZero() {
		q.CreatedAt = time.Now().UTC()
	}

	subjects, err := json.Marshal(nonNil(q.Subjects))
	if err != nil {
		return fmt.Errorf("marshal subjects: %w", err)
	}
	questions, err := json.Marshal(q.Questions)
	if err != nil {
		return fmt.Errorf("marshal questions: %w", err)
	}

	ctx, cancel := context.WithTimeout(ctx, dbTimeout)
	defer cancel()

	_, err = s.pool.Exec(ctx,
		`INSERT INTO quizzes (id, user_id, topic, identified_as, subjects, difficulty, title, questions, model, attempts, created_at)
		 VALUES ($1::uuid, $2, $3, $4, $5::jsonb, $6, $7, $8::jsonb, $9, $10, $11)`,
		q.ID,
		q.UserID,
		q.Topic,
		q.IdentifiedAs,
		string(subjects),
		string(q.Difficulty),
		q.Title,
		string(questions),
		nullIfEmpty(q.Model),
		q.Attempts,
		q.CreatedAt,
	)
	if err != nil {
		return fmt.Errorf("insert quiz: %w", err)
	}
	return nil
}

const selectQuiz = `SELECT id::text, user_id, topic, identified_as, subjects, difficulty, title, questions,
	COALESCE(model, ''), attempts, created_at
	FROM quizzes`

func (s *PostgresStore) GetQuiz(ctx context.Context, id string) (Quiz, error) {
	if _, err := uuid.Parse(id); err != nil {
		return Quiz{}, fmt.Errorf("%w: %s", ErrNotFound, id)
	}

	ctx, cancel := context.WithTimeout(ctx, dbTimeout)
	defer cancel()

	q, err := scanQuiz(s.pool.QueryRow(ctx, selectQuiz+` WHERE id = $1::uuid`, id))
	if errors.Is(err, pgx.ErrNoRows) {
		return Quiz{}, fmt.Errorf("%w: %s", ErrNotFound, id)
	}
	if err != nil {
		return Quiz{}, fmt.Errorf("get quiz: %w", err)
	}
	return q, nil
}

func (s *PostgresStore) ListQuizzes(ctx context.Context, userID string, limit int) ([]Quiz, error) {
	if limit <= 0 {
		limit = defaultListLimit
	}

	ctx, cancel := context.WithTimeout(ctx, dbTimeout)
	defer cancel()

	rows, err := s.pool.Query(ctx,
		selectQuiz+` WHERE user_id = $1 ORDER BY created_at DESC LIMIT $2`,
		userID, limit,
	)
	if err != nil {
		return nil, fmt.Errorf("list quizzes: %w", err)
	}
	defer rows.Close()

	out := []Quiz{}
	for rows.Next() {
		q, err := scanQuiz(rows)
		if err != nil {
			return nil, fmt.Errorf("scan quiz: %w", err)
		}
		out = append(out, q)
	}
	if err := rows.Err(); err != nil {
		return nil, fmt.Errorf("iterate quizzes: %w", err)
	}
	return out, nil
}

func (s *PostgresStore) RecordAttempt(ctx context.Context, a Attempt) (Attempt, error) {
	if _, err := uuid.Parse(a.QuizID); err != nil {
		return Attempt{}, fmt.Errorf("%w: %s", ErrNotFound, a.QuizID)
	}
	if a.CreatedAt.IsZero() {
		a.CreatedAt = time.Now().UTC()
	}

	ctx, cancel := context.WithTimeout(ctx, dbTimeout)
	defer cancel()

	err := s.pool.QueryRow(ctx,
		`INSERT INTO quiz_attempts (quiz_id, user_id, score, total, created_at)
		 SELECT q.id, $2, $3, $4, $5
		 FROM quizzes q
		 WHERE q.id = $1::uuid
		 RETURNING id`,
		a.QuizID, a.UserID, a.Score, a.Total, a.CreatedAt,
	).Scan(&a.ID)
	if errors.Is(err, pgx.ErrNoRows) {
		return Attempt{}, fmt.Errorf("%w: %s", ErrNotFound, a.QuizID)
	}
	if err != nil {
		return Attempt{}, fmt.Errorf("record attempt: %w", err)
	}
	return a, nil
}

func scanQuiz(row pgx.Row) (Quiz, error) {
	var (
		q          Quiz
		difficulty string
		subjects   []byte
		questions  []byte
	)
	if err := row.Scan(
		&q.ID,
		&q.UserID,
		&q.Topic,
		&q.IdentifiedAs,
		&subjects,
		&difficulty,
		&q.Title,
		&questions,
		&q.Model,
		&q.Attempts,
		&q.CreatedAt,
	); err != nil {
		return Quiz{}, err
	}
	q.Difficulty = Difficulty(difficulty)
	if err := json.Unmarshal(subjects, &q.Subjects); err != nil {
		return Quiz{}, fmt.Errorf("decode subjects: %w", err)
	}
	if err := json.Unmarshal(questions, &q.Questions); err != nil {
		return Quiz{}, fmt.Errorf("decode questions: %w", err)
	}
	return q, nil
}

func nullIfEmpty(s string) any {
	if s == "" {
		return nil
	}
	return s
}

func nonNil(s []string) []string {
	if s == nil {
		return []string{}
	}
	return s
}
