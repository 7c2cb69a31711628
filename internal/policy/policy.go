// Package policy loads operator overrides for tier limits and forbidden
// content from a directory of YAML files.
package policy

import (
	"errors"
	"fmt"
	"io/fs"
	"log/slog"
	"os"
	"path/filepath"
	"sort"
	"strings"

	"gopkg.in/yaml.v3"

	"github.com/quizethic/quizethic-ai/internal/quiz"
	"github.com/quizethic/quizethic-ai/internal/usage"
)

// File is the YAML shape of one policy file.
//
//	limits:
//	  free: 3
//	  pro: -1
//	forbidden_patterns:
//	  - name: syllabus_meta
//	    pattern: '\bsyllabus\s+of\b'
type File struct {
	Limits            map[string]int `yaml:"limits"`
	ForbiddenPatterns []Pattern      `yaml:"forbidden_patterns"`
}

// Pattern is an extra forbidden-content rule.
type Pattern struct {
	Name    string `yaml:"name"`
	Pattern string `yaml:"pattern"`
}

// Policy is the merged result of every policy file.
type Policy struct {
	Limits usage.Limits
	Rules  []quiz.Rule
	Files  []string
}

// Default returns the built-in limits with no extra rules.
func Default() *Policy {
	return &Policy{Limits: usage.DefaultLimits()}
}

// Load reads every .yaml/.yml file under dir in lexical order. Later files
// override earlier limits; patterns accumulate. An empty or missing dir yields
// Default.
func Load(dir string) (*Policy, error) {
	p := Default()
	if dir == "" {
		return p, nil
	}
	if _, err := os.Stat(dir); errors.Is(err, fs.ErrNotExist) {
		slog.Warn("policy directory not found, using defaults", "path", dir)
		return p, nil
	}

	var paths []string
	err := filepath.WalkDir(dir, func(path string, d fs.DirEntry, err error) error {
		if err != nil {
			return err
		}
		if d.IsDir() {
			return nil
		}
		if strings.HasSuffix(path, ".yaml") || strings.HasSuffix(path, ".yml") {
			paths = append(paths, path)
		}
		return nil
	})
	if err != nil {
		return nil, fmt.Errorf("walk policy dir: %w", err)
	}
	sort.Strings(paths)

	for _, path := range paths {
		if err := p.loadFile(path); err != nil {
			return nil, err
		}
	}

	slog.Info("policy loaded",
		"files", len(p.Files),
		"extra_rules", len(p.Rules),
		"free_limit", p.Limits.For(usage.TierFree),
	)
	return p, nil
}

func (p *Policy) loadFile(path string) error {
	data, err := os.ReadFile(path)
	if err != nil {
		return fmt.Errorf("read %s: %w", path, err)
	}

	var f File
	if err := yaml.Unmarshal(data, &f); err != nil {
		return fmt.Errorf("parse %s: %w", path, err)
	}

	for name, limit := range f.Limits {
		tier, err := usage.ParseTier(name)
		if err != nil {
			return fmt.Errorf("%s: %w", path, err)
		}
		if limit < usage.Unlimited {
			return fmt.Errorf("%s: limit for %s must be -1 (unlimited) or >= 0, got %d", path, tier, limit)
		}
		p.Limits[tier] = limit
	}

	for i, pat := range f.ForbiddenPatterns {
		if strings.TrimSpace(pat.Pattern) == "" {
			return fmt.Errorf("%s: forbidden_patterns[%d]: pattern is empty", path, i)
		}
		name := pat.Name
		if name == "" {
			name = fmt.Sprintf("%s#%d", filepath.Base(path), i)
		}
		rule, err := quiz.CompileRule(name, pat.Pattern)
		if err != nil {
			return fmt.Errorf("%s: %w", path, err)
		}
		p.Rules = append(p.Rules, rule)
	}

	p.Files = append(p.Files, path)
	return nil
}

// Filter builds a content filter with the default rules plus the policy's.
func (p *Policy) Filter() *quiz.Filter {
	return quiz.NewFilter(p.Rules...)
}
