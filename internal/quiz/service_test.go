package quiz_test

import (
	"context"
	"errors"
	"testing"
	"time"

	"github.com/quizethic/quizethic-ai/internal/ai"
	"github.com/quizethic/quizethic-ai/internal/quiz"
	"github.com/quizethic/quizethic-ai/internal/usage"
)

type serviceFixture struct {
	svc    *quiz.Service
	llm    *ai.MockProvider
	store  *quiz.MemoryStore
	events *quiz.MemoryEventLogger
	gate   *usage.Gate
	tiers  *usage.MemoryTierStore
}

func newServiceFixture(syllabus, quizDoc string) *serviceFixture {
	f := &serviceFixture{
		llm: ai.NewTaskProvider(map[ai.TaskType]string{
			ai.TaskSyllabus: syllabus,
			ai.TaskQuiz:     quizDoc,
		}),
		store:  quiz.NewMemoryStore(),
		events: quiz.NewMemoryEventLogger(),
		tiers:  usage.NewMemoryTierStore(),
	}
	f.gate = usage.NewGate(usage.GateConfig{
		Tiers:    f.tiers,
		Counters: usage.NewMemoryCounter(),
		Now:      func() time.Time { return time.Date(2025, 3, 14, 12, 0, 0, 0, time.UTC) },
	})
	f.svc = quiz.NewService(quiz.ServiceConfig{
		Pipeline: newPipeline(f.llm),
		Store:    f.store,
		Quota:    f.gate,
		Events:   f.events,
	})
	return f
}

func (f *serviceFixture) eventTypes() []string {
	var out []string
	for _, e := range f.events.Events() {
		out = append(out, e.EventType)
	}
	return out
}

func TestService_Create(t *testing.T) {
	f := newServiceFixture(syllabusJSON("Photosynthesis", "Plant Biology"), quizJSON(2))
	ctx := context.Background()

	q, err := f.svc.Create(ctx, quiz.Request{UserID: "u1", Topic: "Photosynthesis", Count: 2})
	if err != nil {
		t.Fatalf("Create() error = %v", err)
	}
	if q.ID == "" {
		t.Error("Create() should assign an ID")
	}

	saved, err := f.store.GetQuiz(ctx, q.ID)
	if err != nil {
		t.Fatalf("GetQuiz() error = %v", err)
	}
	if len(saved.Questions) != 2 {
		t.Errorf("saved questions = %d, want 2", len(saved.Questions))
	}

	st, err := f.gate.Status(ctx, "u1")
	if err != nil {
		t.Fatalf("Status() error = %v", err)
	}
	if st.Used != 1 {
		t.Errorf("Used = %d, want 1", st.Used)
	}

	if types := f.eventTypes(); len(types) != 1 || types[0] != quiz.EventQuizGenerated {
		t.Errorf("events = %v, want [quiz_generated]", types)
	}
}

func TestService_Create_FailureDoesNotCountAgainstQuota(t *testing.T) {
	f := newServiceFixture(syllabusJSON("NEET", "Biology"), forbiddenQuizJSON(1))
	ctx := context.Background()

	_, err := f.svc.Create(ctx, quiz.Request{UserID: "u1", Topic: "NEET", Count: 1})
	if !errors.Is(err, quiz.ErrGenerationFailed) {
		t.Fatalf("Create() error = %v, want ErrGenerationFailed", err)
	}

	st, _ := f.gate.Status(ctx, "u1")
	if st.Used != 0 {
		t.Errorf("Used = %d, want 0 after a failed generation", st.Used)
	}
	if list, _ := f.store.ListQuizzes(ctx, "u1", 0); len(list) != 0 {
		t.Errorf("stored quizzes = %d, want 0", len(list))
	}
	if types := f.eventTypes(); len(types) != 1 || types[0] != quiz.EventQuizRejected {
		t.Errorf("events = %v, want [quiz_rejected]", types)
	}
}

func TestService_Create_QuotaExceeded(t *testing.T) {
	f := newServiceFixture(syllabusJSON("Go", "Concurrency"), quizJSON(1))
	ctx := context.Background()

	for i := 0; i < 5; i++ {
		if _, err := f.svc.Create(ctx, quiz.Request{UserID: "u1", Topic: "Go", Count: 1}); err != nil {
			t.Fatalf("Create() #%d error = %v", i+1, err)
		}
	}
	calls := f.llm.Calls()

	_, err := f.svc.Create(ctx, quiz.Request{UserID: "u1", Topic: "Go", Count: 1})
	if !errors.Is(err, usage.ErrQuotaExceeded) {
		t.Fatalf("Create() error = %v, want ErrQuotaExceeded", err)
	}
	if f.llm.Calls() != calls {
		t.Error("the LLM should not be called once the quota is used up")
	}

	types := f.eventTypes()
	if types[len(types)-1] != quiz.EventQuotaExceeded {
		t.Errorf("last event = %q, want quota_exceeded", types[len(types)-1])
	}

	// Upgrading lifts the cap.
	if err := f.tiers.SetTier(ctx, "u1", usage.TierPro); err != nil {
		t.Fatalf("SetTier() error = %v", err)
	}
	if _, err := f.svc.Create(ctx, quiz.Request{UserID: "u1", Topic: "Go", Count: 1}); err != nil {
		t.Fatalf("Create() after upgrade error = %v", err)
	}
}

func TestService_Create_InvalidRequest(t *testing.T) {
	f := newServiceFixture("", "")

	tests := []quiz.Request{
		{Topic: "Go"},
		{UserID: "u1"},
		{UserID: "u1", Topic: "Go", Count: 99},
	}
	for _, req := range tests {
		if _, err := f.svc.Create(context.Background(), req); !errors.Is(err, quiz.ErrInvalidRequest) {
			t.Errorf("Create(%+v) error = %v, want ErrInvalidRequest", req, err)
		}
	}
	if f.llm.Calls() != 0 {
		t.Errorf("LLM calls = %d, want 0", f.llm.Calls())
	}
}

func TestService_Get_OwnerOnly(t *testing.T) {
	f := newServiceFixture(syllabusJSON("Go", "Concurrency"), quizJSON(1))
	ctx := context.Background()

	q, err := f.svc.Create(ctx, quiz.Request{UserID: "owner", Topic: "Go", Count: 1})
	if err != nil {
		t.Fatalf("Create() error = %v", err)
	}

	if _, err := f.svc.Get(ctx, "owner", q.ID); err != nil {
		t.Errorf("Get() by owner error = %v", err)
	}
	if _, err := f.svc.Get(ctx, "intruder", q.ID); !errors.Is(err, quiz.ErrNotFound) {
		t.Errorf("Get() by other user error = %v, want ErrNotFound", err)
	}
	if _, err := f.svc.Get(ctx, "owner", "missing"); !errors.Is(err, quiz.ErrNotFound) {
		t.Errorf("Get() missing error = %v, want ErrNotFound", err)
	}
}

func TestService_RecordAttempt(t *testing.T) {
	f := newServiceFixture(syllabusJSON("Go", "Concurrency"), quizJSON(3))
	ctx := context.Background()

	q, err := f.svc.Create(ctx, quiz.Request{UserID: "u1", Topic: "Go", Count: 3})
	if err != nil {
		t.Fatalf("Create() error = %v", err)
	}

	tests := []struct {
		name    string
		userID  string
		score   int
		wantErr error
	}{
		{"full marks", "u1", 3, nil},
		{"zero", "u1", 0, nil},
		{"negative", "u1", -1, quiz.ErrInvalidScore},
		{"above total", "u1", 4, quiz.ErrInvalidScore},
		{"other user", "u2", 1, quiz.ErrNotFound},
	}
	for _, tt := range tests {
		t.Run(tt.name, func(t *testing.T) {
			a, err := f.svc.RecordAttempt(ctx, tt.userID, q.ID, tt.score)
			if tt.wantErr != nil {
				if !errors.Is(err, tt.wantErr) {
					t.Fatalf("RecordAttempt() error = %v, want %v", err, tt.wantErr)
				}
				return
			}
			if err != nil {
				t.Fatalf("RecordAttempt() error = %v", err)
			}
			if a.Total != 3 || a.Score != tt.score || a.ID == 0 {
				t.Errorf("attempt = %+v", a)
			}
		})
	}

	if got := len(f.store.Attempts(q.ID)); got != 2 {
		t.Errorf("stored attempts = %d, want 2", got)
	}
}

func TestService_List(t *testing.T) {
	f := newServiceFixture(syllabusJSON("Go", "Concurrency"), quizJSON(1))
	ctx := context.Background()

	for i := 0; i < 3; i++ {
		if _, err := f.svc.Create(ctx, quiz.Request{UserID: "u1", Topic: "Go", Count: 1}); err != nil {
			t.Fatalf("Create() error = %v", err)
		}
	}
	list, err := f.svc.List(ctx, "u1", 2)
	if err != nil {
		t.Fatalf("List() error = %v", err)
	}
	if len(list) != 2 {
		t.Errorf("List() = %d quizzes, want 2", len(list))
	}
}
