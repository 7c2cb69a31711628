package quiz

import (
	"errors"
	"testing"
)

func TestExtractJSON(t *testing.T) {
	tests := []struct {
		name    string
		in      string
		want    string
		wantErr bool
	}{
		{"plain", `{"a":1}`, `{"a":1}`, false},
		{"json fence", "```json\n{\"a\":1}\n```", `{"a":1}`, false},
		{"bare fence", "```\n{\"a\":1}\n```", `{"a":1}`, false},
		{"single line fence", "```json {\"a\":1}```", `{"a":1}`, false},
		{"prose around fence", "Here you go:\n```json\n{\"a\":{\"b\":2}}\n```\nEnjoy!", `{"a":{"b":2}}`, false},
		{"prose no fence", "Sure! {\"a\":1} hope that helps", `{"a":1}`, false},
		{"unterminated fence", "```json\n{\"a\":1}", `{"a":1}`, false},
		{"no object", "I cannot help with that.", "", true},
		{"empty", "", "", true},
	}
	for _, tt := range tests {
		t.Run(tt.name, func(t *testing.T) {
			got, err := extractJSON(tt.in)
			if (err != nil) != tt.wantErr {
				t.Fatalf("extractJSON() error = %v, wantErr %v", err, tt.wantErr)
			}
			if err != nil && !errors.Is(err, ErrInvalidJSON) {
				t.Errorf("error = %v, want ErrInvalidJSON", err)
			}
			if got != tt.want {
				t.Errorf("extractJSON() = %q, want %q", got, tt.want)
			}
		})
	}
}

func TestCleanSubjects(t *testing.T) {
	got := cleanSubjects([]string{" Physics ", "", "physics", "Chemistry", "  ", "Modern History", "MODERN HISTORY"})
	want := []string{"Physics", "Chemistry", "Modern History"}
	if len(got) != len(want) {
		t.Fatalf("cleanSubjects() = %v, want %v", got, want)
	}
	for i := range want {
		if got[i] != want[i] {
			t.Errorf("cleanSubjects()[%d] = %q, want %q", i, got[i], want[i])
		}
	}
}
