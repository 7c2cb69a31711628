package quiz_test

import (
	"errors"
	"testing"

	"github.com/quizethic/quizethic-ai/internal/quiz"
)

func TestFilter_Check(t *testing.T) {
	tests := []struct {
		question string
		wantRule string // empty means allowed
	}{
		{"What does NASA stand for?", "acronym_expansion"},
		{"What does the acronym 'UPSC' stand for?", "acronym_expansion"},
		{"The abbreviation DNA stands for which molecule?", "acronym_expansion"},
		{"What is the full form of ISRO?", "full_form"},
		{"What is the full-form of RBI?", "full_form"},
		{"What is the exam date for JEE Main 2025?", "exam_date"},
		{"When is the NEET UG exam held?", "exam_date"},
		{"What was the cut-off mark for general category last year?", "cut_off"},
		{"What is the cutoff score for GATE CSE?", "cut_off"},
		{"What are the qualifying marks for CTET?", "cut_off"},
		{"How much is the registration fee for CAT?", "fees"},
		{"What are the eligibility criteria for UPSC CSE?", "eligibility"},
		{"What is the upper age limit for SSC CGL?", "eligibility"},
		{"Is there negative marking in JEE Advanced?", "negative_marking"},
		{"Which body conducts the GATE examination?", "conducting_body"},
		{"Which organisation conducts NEET?", "conducting_body"},
		{"How many questions are there in the CAT exam?", "exam_pattern"},
		{"ＷＨＡＴ ＤＯＥＳ ＮＡＳＡ ＳＴＡＮＤ ＦＯＲ?", "acronym_expansion"},
		{"What is the full form of ATP?", "full_form"},
		{"What does the term GDP stand for?", "acronym_expansion"},
		{"What does the initialism HTML stand for?", "acronym_expansion"},
		{"What is the expansion of UNESCO?", "acronym_expansion"},
		{"Give the expanded form of SEBI.", "acronym_expansion"},
		{"IUPAC is an abbreviation of which organisation's name?", "acronym_expansion"},
		{"ISRO is the acronym for which agency?", "acronym_expansion"},
		{"LASER is short for what phrase?", "acronym_expansion"},

		{"Which organelle is the site of photosynthesis?", ""},
		{"What is the derivative of sin(x)?", ""},
		{"Which article of the Constitution abolishes untouchability?", ""},
		{"A low-pass filter's cutoff frequency is determined by which components?", ""},
		{"What is the standard enthalpy of formation of water?", ""},
		{"In which year did the Battle of Plassey take place?", ""},
		{"Hubble's law links a galaxy's distance to which property of cosmic expansion?", ""},
		{"What is the binomial expansion of (1 + x)^2?", ""},
		{"Which term describes a word formed from the initial letters of other words?", ""},
	}

	f := quiz.NewFilter()
	for _, tt := range tests {
		t.Run(tt.question, func(t *testing.T) {
			qs := sampleQuestions(2)
			qs[1].Question = tt.question

			err := f.Check(qs)
			if tt.wantRule == "" {
				if err != nil {
					t.Fatalf("Check() error = %v, want nil", err)
				}
				return
			}

			if !errors.Is(err, quiz.ErrForbiddenContent) {
				t.Fatalf("Check() error = %v, want ErrForbiddenContent", err)
			}
			var v *quiz.Violation
			if !errors.As(err, &v) {
				t.Fatalf("Check() error = %T, want *Violation", err)
			}
			if v.Rule != tt.wantRule {
				t.Errorf("Rule = %q, want %q", v.Rule, tt.wantRule)
			}
			if v.Index != 1 {
				t.Errorf("Index = %d, want 1", v.Index)
			}
			if v.Question != tt.question {
				t.Errorf("Question = %q, want the original text", v.Question)
			}
		})
	}
}

func TestFilter_ExtraRules(t *testing.T) {
	rule, err := quiz.CompileRule("syllabus_meta", `\bsyllabus\s+of\b`)
	if err != nil {
		t.Fatalf("CompileRule() error = %v", err)
	}
	f := quiz.NewFilter(rule)

	if got := len(f.Rules()); got != len(quiz.DefaultRules())+1 {
		t.Errorf("Rules() = %d, want defaults plus one", got)
	}

	qs := sampleQuestions(1)
	qs[0].Question = "What is included in the SYLLABUS of CLAT?"
	var v *quiz.Violation
	if err := f.Check(qs); !errors.As(err, &v) || v.Rule != "syllabus_meta" {
		t.Errorf("Check() error = %v, want syllabus_meta violation", err)
	}
}

func TestCompileRule_Invalid(t *testing.T) {
	if _, err := quiz.CompileRule("broken", `(unclosed`); err == nil {
		t.Fatal("CompileRule() should reject an invalid expression")
	}
}

func TestFilter_OptionsAreNotScanned(t *testing.T) {
	qs := sampleQuestions(1)
	qs[0].Options = []string{"Exam date", "Cut-off marks", "Negative marking", "Full form"}
	if err := quiz.NewFilter().Check(qs); err != nil {
		t.Errorf("Check() error = %v, want nil", err)
	}
}
