package quiz

import (
	"fmt"
	"regexp"
	"strings"

	"golang.org/x/text/unicode/norm"
)

// Rule is a named forbidden-content pattern.
type Rule struct {
	Name    string
	Pattern *regexp.Regexp
}

// CompileRule builds a case-insensitive Rule from a regular expression.
func CompileRule(name, expr string) (Rule, error) {
	re, err := regexp.Compile("(?i)" + expr)
	if err != nil {
		return Rule{}, fmt.Errorf("compile rule %q: %w", name, err)
	}
	return Rule{Name: name, Pattern: re}, nil
}

func mustRule(name, expr string) Rule {
	r, err := CompileRule(name, expr)
	if err != nil {
		panic(err)
	}
	return r
}

var defaultRules = []Rule{
	mustRule("acronym_expansion", `\bwhat\s+(does|do|is)\s+(the\s+)?((acronym|abbreviation|initialism|term)\s+)?["'“‘]?[\w.&-]+["'”’]?\s+stands?\s+for\b`),
	mustRule("acronym_expansion", `\b(abbreviation|acronym|initialism)\s+["'“‘]?[\w.&-]+["'”’]?\s+stands?\s+for\b`),
	mustRule("acronym_expansion", `\b(what\s+is|give|state)\s+the\s+(expansion|expanded\s+form|long\s+form)\s+of\b`),
	mustRule("acronym_expansion", `\b(is|was)\s+(an?\s+|the\s+)?(abbreviation|acronym|initialism|short\s+form)\s+(of|for)\b`),
	mustRule("acronym_expansion", `\b(is|was)\s+short\s+for\s+(what|which)\b`),
	mustRule("full_form", `\bfull[\s-]+form\b`),
	mustRule("exam_date", `\bexam(ination)?\s+(date|dates|schedule|calendar|timetable)\b`),
	mustRule("exam_date", `\bwhen\s+(is|will)\s+(the\s+)?[\w\s-]{0,40}\bexam(ination)?\b`),
	mustRule("cut_off", `\bcut[\s-]?off\s+(marks?|scores?|percentiles?|ranks?)\b`),
	mustRule("cut_off", `\b(qualifying|passing)\s+marks?\b`),
	mustRule("fees", `\b(registration|application|exam(ination)?)\s+fees?\b`),
	mustRule("eligibility", `\beligibility\s+(criteria|criterion|requirements?|conditions?)\b`),
	mustRule("eligibility", `\bwho\s+is\s+eligible\s+(to|for)\b`),
	mustRule("eligibility", `\b(upper|lower|maximum|minimum)?\s*age\s+limit\b`),
	mustRule("negative_marking", `\bnegative\s+mark(ing|s)?\b`),
	mustRule("conducting_body", `\b(which|what)\s+(body|organi[sz]ation|authority|agency|board|institution)\s+(conducts|administers|organi[sz]es)\b`),
	mustRule("conducting_body", `\bconduct(ing|ed)\s+(body|authority|agency)\b`),
	mustRule("exam_pattern", `\bhow\s+many\s+(questions|marks|sections|papers)\s+(are\s+)?(there\s+)?in\s+(the\s+)?[\w\s-]{0,40}\bexam(ination)?\b`),
}

// DefaultRules returns the built-in forbidden-content rules.
func DefaultRules() []Rule {
	return append([]Rule(nil), defaultRules...)
}

// Violation reports the first rule a quiz broke.
type Violation struct {
	Rule     string
	Index    int
	Question string
}

func (v *Violation) Error() string {
	return fmt.Sprintf("%s: question %d matched %s: %q", ErrForbiddenContent, v.Index+1, v.Rule, v.Question)
}

func (v *Violation) Unwrap() error {
	return ErrForbiddenContent
}

// Filter rejects quizzes whose questions look like exam-metadata trivia.
type Filter struct {
	rules []Rule
}

// NewFilter creates a Filter with the default rules plus extra.
func NewFilter(extra ...Rule) *Filter {
	return &Filter{rules: append(DefaultRules(), extra...)}
}

// Rules returns the active rules.
func (f *Filter) Rules() []Rule {
	return append([]Rule(nil), f.rules...)
}

// Check scans every question text. Any match rejects the whole quiz with a
// *Violation wrapping ErrForbiddenContent.
func (f *Filter) Check(questions []Question) error {
	for i, q := range questions {
		text := normalizeText(q.Question)
		for _, r := range f.rules {
			if r.Pattern.MatchString(text) {
				return &Violation{Rule: r.Name, Index: i, Question: q.Question}
			}
		}
	}
	return nil
}

// normalizeText folds compatibility characters (full-width letters, ligatures,
// non-breaking spaces) so the patterns see plain text.
func normalizeText(s string) string {
	return strings.Join(strings.Fields(norm.NFKC.String(s)), " ")
}
