package quiz

import (
	"fmt"
	"strings"
)

const syllabusSystemPrompt = `You are a curriculum analyst for a quiz service.
You map a learner's free-text topic to the academic subjects it covers.
Reply with a single JSON object and nothing else.`

const quizSystemPrompt = `You are an expert examiner who writes multiple-choice questions.
Every question tests understanding of subject matter, never facts about an exam itself.
Reply with a single JSON object and nothing else.`

func syllabusPrompt(topic string) string {
	return fmt.Sprintf(`Identify the academic subjects a quiz about the following topic should cover.

Topic: %q

Respond with JSON of exactly this form:
{"topic": "<the topic as given>", "identifiedAs": "<what the topic is, e.g. a competitive exam, a school course, a field of study>", "subjects": ["<subject>", "..."]}

Rules:
- List between 1 and 8 subjects.
- If the topic names an exam or certification, list the subjects it examines, not facts about the exam.
- Use short subject names such as "Organic Chemistry" or "Indian Polity".`, topic)
}

func quizPrompt(s Syllabus, difficulty Difficulty, count int) string {
	var b strings.Builder
	fmt.Fprintf(&b, "Write exactly %d multiple-choice questions at %s difficulty for: %s", count, difficulty, s.Topic)
	if s.IdentifiedAs != "" {
		fmt.Fprintf(&b, " (%s)", s.IdentifiedAs)
	}
	b.WriteString(".\n\nDraw the questions only from these subjects:\n")
	for _, subject := range s.Subjects {
		fmt.Fprintf(&b, "- %s\n", subject)
	}
	b.WriteString(`
Respond with JSON of exactly this form:
{"title": "<short quiz title>", "questions": [{"question": "<text>", "options": ["<a>", "<b>", "<c>", "<d>"], "correctAnswer": <index 0-3>, "explanation": "<why the answer is correct>", "subject": "<one of the subjects above>"}]}

Rules:
- Exactly 4 options per question and exactly one correct option.
- correctAnswer is the zero-based index of the correct option.
- Do not ask what an acronym stands for or for the full form of an abbreviation.
- Do not ask about exam dates, schedules, cut-off marks, fees, eligibility, negative marking or the conducting body.
`)
	fmt.Fprintf(&b, "- Return exactly %d questions.", count)
	return b.String()
}
