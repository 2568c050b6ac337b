package progress

import (
	"strings"
	"testing"

	"github.com/p-n-ai/pai-kids/internal/domain"
)

func TestDefaultCatalog(t *testing.T) {
	c := DefaultCatalog()

	if c.Len() != 14 {
		t.Fatalf("Len() = %d, want 14", c.Len())
	}

	characters := 0
	for _, b := range c.Badges() {
		if b.Category == domain.CategoryCharacter {
			characters++
		}
		if b.Name == "" || b.Icon == "" || b.Description == "" {
			t.Errorf("badge %q has empty display fields", b.ID)
		}
	}
	if characters != 7 {
		t.Errorf("characters = %d, want 7", characters)
	}

	b, ok := c.Badge("math_whiz")
	if !ok {
		t.Fatal("Badge(math_whiz) not found")
	}
	if b.Name != "Math Whiz" {
		t.Errorf("math_whiz name = %q, want Math Whiz", b.Name)
	}
}

func TestLoadCatalog_Invalid(t *testing.T) {
	tests := []struct {
		name string
		yaml string
	}{
		{"empty", "badges: []"},
		{"missing id", `badges: [{name: x, category: character, rule: {kind: streak, threshold: 1}}]`},
		{"duplicate id", `badges:
  - {id: a, category: character, rule: {kind: streak, threshold: 1}}
  - {id: a, category: character, rule: {kind: streak, threshold: 2}}`},
		{"bad category", `badges: [{id: a, category: hat, rule: {kind: streak, threshold: 1}}]`},
		{"bad kind", `badges: [{id: a, category: character, rule: {kind: luck, threshold: 1}}]`},
		{"zero threshold", `badges: [{id: a, category: character, rule: {kind: streak, threshold: 0}}]`},
		{"bad subject", `badges: [{id: a, category: achievement, rule: {kind: subject_correct, subject: ART, threshold: 5}}]`},
		{"not yaml", "badges: ["},
	}

	for _, tt := range tests {
		t.Run(tt.name, func(t *testing.T) {
			if _, err := LoadCatalog(strings.NewReader(tt.yaml)); err == nil {
				t.Fatal("LoadCatalog() should return error")
			}
		})
	}
}
