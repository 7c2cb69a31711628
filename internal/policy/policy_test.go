package policy_test

import (
	"errors"
	"os"
	"path/filepath"
	"testing"

	"go.uber.org/goleak"

	"github.com/quizethic/quizethic-ai/internal/policy"
	"github.com/quizethic/quizethic-ai/internal/quiz"
	"github.com/quizethic/quizethic-ai/internal/usage"
)

func TestMain(m *testing.M) {
	goleak.VerifyTestMain(m)
}

func writeFile(t *testing.T, dir, name, content string) {
	t.Helper()
	path := filepath.Join(dir, name)
	if err := os.MkdirAll(filepath.Dir(path), 0o755); err != nil {
		t.Fatal(err)
	}
	if err := os.WriteFile(path, []byte(content), 0o644); err != nil {
		t.Fatal(err)
	}
}

func TestLoad_EmptyPath(t *testing.T) {
	p, err := policy.Load("")
	if err != nil {
		t.Fatalf("Load() error = %v", err)
	}
	if p.Limits.For(usage.TierFree) != 5 {
		t.Errorf("free limit = %d, want 5", p.Limits.For(usage.TierFree))
	}
	if len(p.Rules) != 0 {
		t.Errorf("Rules = %d, want 0", len(p.Rules))
	}
}

func TestLoad_MissingDir(t *testing.T) {
	p, err := policy.Load(filepath.Join(t.TempDir(), "nope"))
	if err != nil {
		t.Fatalf("Load() error = %v", err)
	}
	if p.Limits.For(usage.TierPro) != usage.Unlimited {
		t.Errorf("pro limit = %d, want unlimited", p.Limits.For(usage.TierPro))
	}
}

func TestLoad_MergesFiles(t *testing.T) {
	dir := t.TempDir()
	writeFile(t, dir, "10-limits.yaml", `
limits:
  free: 3
  pro: 50
`)
	writeFile(t, dir, "20-override.yml", `
limits:
  pro: -1
forbidden_patterns:
  - name: syllabus_meta
    pattern: '\bsyllabus\s+of\b'
`)
	writeFile(t, dir, "nested/30-more.yaml", `
forbidden_patterns:
  - pattern: '\bprevious\s+year\s+papers?\b'
`)
	writeFile(t, dir, "README.md", "not a policy file")

	p, err := policy.Load(dir)
	if err != nil {
		t.Fatalf("Load() error = %v", err)
	}

	tests := []struct {
		tier usage.Tier
		want int
	}{
		{usage.TierFree, 3},
		{usage.TierPro, usage.Unlimited},
		{usage.TierEnterprise, usage.Unlimited},
	}
	for _, tt := range tests {
		if got := p.Limits.For(tt.tier); got != tt.want {
			t.Errorf("limit(%s) = %d, want %d", tt.tier, got, tt.want)
		}
	}

	if len(p.Files) != 3 {
		t.Errorf("Files = %v, want 3 YAML files", p.Files)
	}
	if len(p.Rules) != 2 {
		t.Fatalf("Rules = %d, want 2", len(p.Rules))
	}
	if p.Rules[0].Name != "syllabus_meta" {
		t.Errorf("Rules[0].Name = %q, want syllabus_meta", p.Rules[0].Name)
	}
	if p.Rules[1].Name != "30-more.yaml#0" {
		t.Errorf("Rules[1].Name = %q, want generated name", p.Rules[1].Name)
	}

	qs := []quiz.Question{{
		Question:      "Where can you download Previous Year Papers for JEE?",
		Options:       []string{"a", "b", "c", "d"},
		CorrectAnswer: 0,
	}}
	if err := p.Filter().Check(qs); !errors.Is(err, quiz.ErrForbiddenContent) {
		t.Errorf("Filter().Check() error = %v, want ErrForbiddenContent", err)
	}
}

func TestLoad_Errors(t *testing.T) {
	tests := []struct {
		name    string
		content string
	}{
		{"invalid regex", "forbidden_patterns:\n  - name: bad\n    pattern: '(unclosed'\n"},
		{"empty pattern", "forbidden_patterns:\n  - name: blank\n    pattern: ''\n"},
		{"unknown tier", "limits:\n  gold: 10\n"},
		{"negative limit", "limits:\n  free: -5\n"},
		{"invalid yaml", "limits: [free\n"},
	}
	for _, tt := range tests {
		t.Run(tt.name, func(t *testing.T) {
			dir := t.TempDir()
			writeFile(t, dir, "policy.yaml", tt.content)
			if _, err := policy.Load(dir); err == nil {
				t.Fatal("Load() should fail")
			}
		})
	}
}
