package quiz_test

import (
	"errors"
	"strings"
	"testing"

	"github.com/quizethic/quizethic-ai/internal/quiz"
)

func TestParseDifficulty(t *testing.T) {
	tests := []struct {
		in      string
		want    quiz.Difficulty
		wantErr bool
	}{
		{"", quiz.DifficultyMedium, false},
		{"easy", quiz.DifficultyEasy, false},
		{" Hard ", quiz.DifficultyHard, false},
		{"MEDIUM", quiz.DifficultyMedium, false},
		{"impossible", "", true},
	}
	for _, tt := range tests {
		t.Run(tt.in, func(t *testing.T) {
			got, err := quiz.ParseDifficulty(tt.in)
			if (err != nil) != tt.wantErr {
				t.Fatalf("ParseDifficulty(%q) error = %v, wantErr %v", tt.in, err, tt.wantErr)
			}
			if err != nil && !errors.Is(err, quiz.ErrInvalidRequest) {
				t.Errorf("error = %v, want ErrInvalidRequest", err)
			}
			if got != tt.want {
				t.Errorf("ParseDifficulty(%q) = %q, want %q", tt.in, got, tt.want)
			}
		})
	}
}

func TestRequest_Normalize(t *testing.T) {
	tests := []struct {
		name      string
		req       quiz.Request
		wantErr   bool
		wantCount int
		wantDiff  quiz.Difficulty
	}{
		{"defaults", quiz.Request{Topic: "  Photosynthesis "}, false, quiz.DefaultCount, quiz.DifficultyMedium},
		{"explicit", quiz.Request{Topic: "GATE CSE", Difficulty: "hard", Count: 20}, false, 20, quiz.DifficultyHard},
		{"empty topic", quiz.Request{Topic: "   "}, true, 0, ""},
		{"long topic", quiz.Request{Topic: strings.Repeat("a", 201)}, true, 0, ""},
		{"count too high", quiz.Request{Topic: "x", Count: 21}, true, 0, ""},
		{"negative count", quiz.Request{Topic: "x", Count: -1}, true, 0, ""},
		{"bad difficulty", quiz.Request{Topic: "x", Difficulty: "brutal"}, true, 0, ""},
	}
	for _, tt := range tests {
		t.Run(tt.name, func(t *testing.T) {
			req := tt.req
			err := req.Normalize()
			if (err != nil) != tt.wantErr {
				t.Fatalf("Normalize() error = %v, wantErr %v", err, tt.wantErr)
			}
			if err != nil {
				if !errors.Is(err, quiz.ErrInvalidRequest) {
					t.Errorf("error = %v, want ErrInvalidRequest", err)
				}
				return
			}
			if req.Count != tt.wantCount {
				t.Errorf("Count = %d, want %d", req.Count, tt.wantCount)
			}
			if req.Difficulty != tt.wantDiff {
				t.Errorf("Difficulty = %q, want %q", req.Difficulty, tt.wantDiff)
			}
			if req.Topic != strings.TrimSpace(tt.req.Topic) {
				t.Errorf("Topic = %q, want trimmed", req.Topic)
			}
		})
	}
}
