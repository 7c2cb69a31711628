package quiz_test

import (
	"encoding/json"
	"fmt"

	"github.com/quizethic/quizethic-ai/internal/quiz"
)

func syllabusJSON(topic string, subjects ...string) string {
	b, _ := json.Marshal(quiz.Syllabus{
		Topic:        topic,
		IdentifiedAs: "field of study",
		Subjects:     subjects,
	})
	return string(b)
}

func sampleQuestions(n int) []quiz.Question {
	qs := make([]quiz.Question, n)
	for i := range qs {
		qs[i] = quiz.Question{
			Question:      fmt.Sprintf("Which process converts light energy into chemical energy? (%d)", i+1),
			Options:       []string{"Respiration", "Photosynthesis", "Transpiration", "Digestion"},
			CorrectAnswer: 1,
			Explanation:   "Photosynthesis stores light energy as glucose.",
			Subject:       "Biology",
		}
	}
	return qs
}

func quizJSON(n int) string {
	return quizJSONWith(sampleQuestions(n))
}

func quizJSONWith(qs []quiz.Question) string {
	b, _ := json.Marshal(map[string]any{
		"title":     "Plant Biology",
		"questions": qs,
	})
	return string(b)
}

func forbiddenQuizJSON(n int) string {
	qs := sampleQuestions(n)
	qs[0].Question = "What does NEET stand for?"
	return quizJSONWith(qs)
}
