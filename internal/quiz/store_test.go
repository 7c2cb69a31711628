package quiz_test

import (
	"context"
	"errors"
	"testing"
	"time"

	"github.com/google/go-cmp/cmp"
	"github.com/google/go-cmp/cmp/cmpopts"

	"github.com/quizethic/quizethic-ai/internal/platform/database/dbtest"
	"github.com/quizethic/quizethic-ai/internal/quiz"
)

func sampleQuiz(userID string, createdAt time.Time) quiz.Quiz {
	return quiz.Quiz{
		UserID:       userID,
		Title:        "Plant Biology",
		Topic:        "Photosynthesis",
		IdentifiedAs: "biology topic",
		Subjects:     []string{"Plant Biology"},
		Difficulty:   quiz.DifficultyEasy,
		Questions:    sampleQuestions(2),
		Model:        "openai/gpt-4o-mini",
		Attempts:     1,
		CreatedAt:    createdAt,
	}
}

// testStore exercises the Store contract against any backend.
func testStore(t *testing.T, store quiz.Store) {
	ctx := context.Background()
	base := time.Date(2025, 3, 14, 9, 0, 0, 0, time.UTC)

	older := sampleQuiz("u1", base)
	newer := sampleQuiz("u1", base.Add(time.Hour))
	other := sampleQuiz("u2", base.Add(2*time.Hour))
	for _, q := range []*quiz.Quiz{&older, &newer, &other} {
		if err := store.SaveQuiz(ctx, q); err != nil {
			t.Fatalf("SaveQuiz() error = %v", err)
		}
		if q.ID == "" {
			t.Fatal("SaveQuiz() should assign an ID")
		}
	}

	got, err := store.GetQuiz(ctx, newer.ID)
	if err != nil {
		t.Fatalf("GetQuiz() error = %v", err)
	}
	if diff := cmp.Diff(newer, got, cmpopts.EquateApproxTime(time.Millisecond)); diff != "" {
		t.Errorf("GetQuiz() mismatch (-want +got):\n%s", diff)
	}

	list, err := store.ListQuizzes(ctx, "u1", 10)
	if err != nil {
		t.Fatalf("ListQuizzes() error = %v", err)
	}
	if len(list) != 2 || list[0].ID != newer.ID || list[1].ID != older.ID {
		t.Errorf("ListQuizzes() should return u1's quizzes newest first, got %d", len(list))
	}

	empty, err := store.ListQuizzes(ctx, "nobody", 10)
	if err != nil {
		t.Fatalf("ListQuizzes() error = %v", err)
	}
	if empty == nil || len(empty) != 0 {
		t.Errorf("ListQuizzes() for unknown user = %v, want empty slice", empty)
	}

	a, err := store.RecordAttempt(ctx, quiz.Attempt{QuizID: newer.ID, UserID: "u1", Score: 1, Total: 2})
	if err != nil {
		t.Fatalf("RecordAttempt() error = %v", err)
	}
	if a.ID == 0 || a.CreatedAt.IsZero() {
		t.Errorf("RecordAttempt() = %+v, want ID and CreatedAt set", a)
	}

	if _, err := store.GetQuiz(ctx, "00000000-0000-0000-0000-000000000000"); !errors.Is(err, quiz.ErrNotFound) {
		t.Errorf("GetQuiz(missing) error = %v, want ErrNotFound", err)
	}
	if _, err := store.GetQuiz(ctx, "not-a-uuid"); !errors.Is(err, quiz.ErrNotFound) {
		t.Errorf("GetQuiz(malformed) error = %v, want ErrNotFound", err)
	}
	if _, err := store.RecordAttempt(ctx, quiz.Attempt{QuizID: "00000000-0000-0000-0000-000000000000", UserID: "u1"}); !errors.Is(err, quiz.ErrNotFound) {
		t.Errorf("RecordAttempt(missing) error = %v, want ErrNotFound", err)
	}

	if err := store.SaveQuiz(ctx, &quiz.Quiz{Topic: "x"}); err == nil {
		t.Error("SaveQuiz() without user should fail")
	}
}

func TestMemoryStore(t *testing.T) {
	testStore(t, quiz.NewMemoryStore())
}

func TestMemoryStore_ReturnsCopies(t *testing.T) {
	store := quiz.NewMemoryStore()
	ctx := context.Background()

	q := sampleQuiz("u1", time.Now())
	if err := store.SaveQuiz(ctx, &q); err != nil {
		t.Fatalf("SaveQuiz() error = %v", err)
	}
	got, _ := store.GetQuiz(ctx, q.ID)
	got.Questions[0].Options[0] = "mutated"

	again, _ := store.GetQuiz(ctx, q.ID)
	if again.Questions[0].Options[0] == "mutated" {
		t.Error("GetQuiz() should not expose stored slices")
	}
}

func TestPostgresStore(t *testing.T) {
	pool := dbtest.NewPool(t)
	store, err := quiz.NewPostgresStore(pool)
	if err != nil {
		t.Fatalf("NewPostgresStore() error = %v", err)
	}
	testStore(t, store)
}

func TestNewPostgresStore_NilPool(t *testing.T) {
	if _, err := quiz.NewPostgresStore(nil); err == nil {
		t.Fatal("expected error for nil pool")
	}
}
