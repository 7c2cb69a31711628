// Package quiz implements the two-phase quiz pipeline: syllabus inference,
// question generation, content filtering and bounded retries, plus quiz history.
package quiz

import (
	"errors"
	"fmt"
	"strings"
	"time"
)

const (
	DefaultCount = 5
	MaxCount     = 20
	maxTopicLen  = 200
)

var (
	ErrInvalidRequest   = errors.New("invalid quiz request")
	ErrInvalidJSON      = errors.New("model response is not valid JSON")
	ErrNoSubjects       = errors.New("syllabus has no subjects")
	ErrInvalidQuiz      = errors.New("quiz does not match schema")
	ErrQuestionCount    = errors.New("question count mismatch")
	ErrForbiddenContent = errors.New("quiz contains forbidden content")
	ErrGenerationFailed = errors.New("quiz generation failed")
	ErrNotFound         = errors.New("quiz not found")
	ErrInvalidScore     = errors.New("invalid attempt score")
)

// Difficulty is the requested question difficulty.
type Difficulty string

const (
	DifficultyEasy   Difficulty = "easy"
	DifficultyMedium Difficulty = "medium"
	DifficultyHard   Difficulty = "hard"
)

// ParseDifficulty maps user input to a Difficulty. Empty input means medium.
func ParseDifficulty(s string) (Difficulty, error) {
	switch d := Difficulty(strings.ToLower(strings.TrimSpace(s))); d {
	case "":
		return DifficultyMedium, nil
	case DifficultyEasy, DifficultyMedium, DifficultyHard:
		return d, nil
	default:
		return "", fmt.Errorf("%w: difficulty must be easy, medium or hard, got %q", ErrInvalidRequest, s)
	}
}

// Syllabus is the result of the first LLM phase.
type Syllabus struct {
	Topic        string   `json:"topic"`
	IdentifiedAs string   `json:"identifiedAs"`
	Subjects     []string `json:"subjects"`
}

// Question is a single multiple-choice question. CorrectAnswer indexes Options.
type Question struct {
	Question      string   `json:"question"`
	Options       []string `json:"options"`
	CorrectAnswer int      `json:"correctAnswer"`
	Explanation   string   `json:"explanation"`
	Subject       string   `json:"subject,omitempty"`
}

// Quiz is a generated quiz as stored and served.
type Quiz struct {
	ID           string     `json:"id"`
	UserID       string     `json:"userId"`
	Title        string     `json:"title"`
	Topic        string     `json:"topic"`
	IdentifiedAs string     `json:"identifiedAs"`
	Subjects     []string   `json:"subjects"`
	Difficulty   Difficulty `json:"difficulty"`
	Questions    []Question `json:"questions"`
	Model        string     `json:"model,omitempty"`
	Attempts     int        `json:"attempts"`
	CreatedAt    time.Time  `json:"createdAt"`
}

// Attempt is a scored run through a quiz.
type Attempt struct {
	ID        int64     `json:"id"`
	QuizID    string    `json:"quizId"`
	UserID    string    `json:"userId"`
	Score     int       `json:"score"`
	Total     int       `json:"total"`
	CreatedAt time.Time `json:"createdAt"`
}

// Request asks for a new quiz.
type Request struct {
	UserID     string
	Topic      string
	Difficulty Difficulty
	Count      int
}

// Normalize trims the topic and fills defaults. It fails with ErrInvalidRequest
// when the request cannot be served.
func (r *Request) Normalize() error {
	r.Topic = strings.TrimSpace(r.Topic)
	if r.Topic == "" {
		return fmt.Errorf("%w: topic is required", ErrInvalidRequest)
	}
	if len([]rune(r.Topic)) > maxTopicLen {
		return fmt.Errorf("%w: topic exceeds %d characters", ErrInvalidRequest, maxTopicLen)
	}

	d, err := ParseDifficulty(string(r.Difficulty))
	if err != nil {
		return err
	}
	r.Difficulty = d

	if r.Count == 0 {
		r.Count = DefaultCount
	}
	if r.Count < 1 || r.Count > MaxCount {
		return fmt.Errorf("%w: count must be between 1 and %d, got %d", ErrInvalidRequest, MaxCount, r.Count)
	}
	return nil
}
