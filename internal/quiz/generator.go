package quiz

import (
	"context"
	"encoding/json"
	"fmt"
	"strings"
	"time"

	"github.com/xeipuuv/gojsonschema"
	"golang.org/x/text/cases"

	"github.com/quizethic/quizethic-ai/internal/ai"
	"github.com/quizethic/quizethic-ai/internal/platform/metrics"
)

const (
	defaultTemperature  = 0.7
	syllabusMaxTokens   = 512
	tokensPerQuestion   = 350
	quizTokenSlack      = 256
	maxSyllabusSubjects = 8
)

const quizSchemaJSON = `{
  "type": "object",
  "required": ["questions"],
  "properties": {
    "title": {"type": "string"},
    "questions": {
      "type": "array",
      "minItems": 1,
      "items": {
        "type": "object",
        "required": ["question", "options", "correctAnswer", "explanation"],
        "properties": {
          "question": {"type": "string", "minLength": 1},
          "options": {
            "type": "array",
            "minItems": 4,
            "maxItems": 4,
            "items": {"type": "string", "minLength": 1}
          },
          "correctAnswer": {"type": "integer", "minimum": 0, "maximum": 3},
          "explanation": {"type": "string"},
          "subject": {"type": "string"}
        }
      }
    }
  }
}`

var quizSchema = mustSchema(quizSchemaJSON)

func mustSchema(src string) *gojsonschema.Schema {
	s, err := gojsonschema.NewSchema(gojsonschema.NewStringLoader(src))
	if err != nil {
		panic(fmt.Sprintf("compile quiz schema: %v", err))
	}
	return s
}

// Generator runs the two LLM phases.
type Generator struct {
	llm         ai.Completer
	model       string
	temperature float64
}

// GeneratorOption configures a Generator.
type GeneratorOption func(*Generator)

// WithModel pins the model slug sent with every request.
func WithModel(model string) GeneratorOption {
	return func(g *Generator) {
		g.model = model
	}
}

// WithTemperature overrides the sampling temperature.
func WithTemperature(t float64) GeneratorOption {
	return func(g *Generator) {
		g.temperature = t
	}
}

// NewGenerator creates a Generator backed by llm, usually an *ai.Router.
func NewGenerator(llm ai.Completer, opts ...GeneratorOption) *Generator {
	g := &Generator{llm: llm, temperature: defaultTemperature}
	for _, opt := range opts {
		opt(g)
	}
	return g
}

// InferSyllabus asks the model which subjects a topic covers.
func (g *Generator) InferSyllabus(ctx context.Context, topic string) (Syllabus, error) {
	resp, err := g.complete(ctx, ai.TaskSyllabus, syllabusSystemPrompt, syllabusPrompt(topic), syllabusMaxTokens)
	if err != nil {
		return Syllabus{}, fmt.Errorf("infer syllabus: %w", err)
	}

	raw, err := extractJSON(resp.Content)
	if err != nil {
		return Syllabus{}, err
	}

	var s Syllabus
	if err := json.Unmarshal([]byte(raw), &s); err != nil {
		return Syllabus{}, fmt.Errorf("%w: %v", ErrInvalidJSON, err)
	}

	s.Subjects = cleanSubjects(s.Subjects)
	if len(s.Subjects) == 0 {
		return Syllabus{}, ErrNoSubjects
	}
	s.Topic = strings.TrimSpace(s.Topic)
	if s.Topic == "" {
		s.Topic = topic
	}
	s.IdentifiedAs = strings.TrimSpace(s.IdentifiedAs)
	return s, nil
}

// GenerateQuestions asks the model for count questions drawn from the syllabus.
func (g *Generator) GenerateQuestions(ctx context.Context, s Syllabus, difficulty Difficulty, count int) (Quiz, error) {
	maxTokens := count*tokensPerQuestion + quizTokenSlack
	resp, err := g.complete(ctx, ai.TaskQuiz, quizSystemPrompt, quizPrompt(s, difficulty, count), maxTokens)
	if err != nil {
		return Quiz{}, fmt.Errorf("generate questions: %w", err)
	}

	raw, err := extractJSON(resp.Content)
	if err != nil {
		return Quiz{}, err
	}

	result, err := quizSchema.Validate(gojsonschema.NewStringLoader(raw))
	if err != nil {
		return Quiz{}, fmt.Errorf("%w: %v", ErrInvalidJSON, err)
	}
	if !result.Valid() {
		msgs := make([]string, 0, len(result.Errors()))
		for _, e := range result.Errors() {
			msgs = append(msgs, e.String())
		}
		return Quiz{}, fmt.Errorf("%w: %s", ErrInvalidQuiz, strings.Join(msgs, "; "))
	}

	var doc struct {
		Title     string     `json:"title"`
		Questions []Question `json:"questions"`
	}
	if err := json.Unmarshal([]byte(raw), &doc); err != nil {
		return Quiz{}, fmt.Errorf("%w: %v", ErrInvalidJSON, err)
	}
	if len(doc.Questions) != count {
		return Quiz{}, fmt.Errorf("%w: asked for %d, got %d", ErrQuestionCount, count, len(doc.Questions))
	}

	title := strings.TrimSpace(doc.Title)
	if title == "" {
		title = s.Topic + " quiz"
	}
	return Quiz{
		Title:        title,
		Topic:        s.Topic,
		IdentifiedAs: s.IdentifiedAs,
		Subjects:     s.Subjects,
		Difficulty:   difficulty,
		Questions:    doc.Questions,
		Model:        resp.Model,
	}, nil
}

func (g *Generator) complete(ctx context.Context, task ai.TaskType, system, user string, maxTokens int) (ai.CompletionResponse, error) {
	start := time.Now()
	resp, err := g.llm.Complete(ctx, ai.CompletionRequest{
		Messages:    ai.Prompt(system, user),
		Model:       g.model,
		MaxTokens:   maxTokens,
		Temperature: g.temperature,
		Task:        task,
		JSONMode:    true,
	})
	metrics.ObserveLLMCall(task.String(), time.Since(start))
	return resp, err
}

// cleanSubjects trims entries, drops blanks and removes case-insensitive duplicates.
func cleanSubjects(in []string) []string {
	fold := cases.Fold()
	seen := make(map[string]bool, len(in))
	out := make([]string, 0, len(in))
	for _, s := range in {
		s = strings.TrimSpace(s)
		if s == "" {
			continue
		}
		key := fold.String(s)
		if seen[key] {
			continue
		}
		seen[key] = true
		out = append(out, s)
		if len(out) == maxSyllabusSubjects {
			break
		}
	}
	return out
}
