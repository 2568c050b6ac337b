package progress

import "github.com/p-n-ai/pai-kids/internal/domain"

// Input is the cumulative state the engine evaluates. It must already include
// the answer being scored.
type Input struct {
	History  []domain.Answer
	Streak   int
	Unlocked []string
}

// Engine evaluates catalog rules. It holds no mutable state.
type Engine struct {
	catalog *Catalog
}

// NewEngine creates an engine over the given catalog.
func NewEngine(catalog *Catalog) *Engine {
	return &Engine{catalog: catalog}
}

// Catalog returns the catalog the engine evaluates.
func (e *Engine) Catalog() *Catalog {
	return e.catalog
}

// Evaluate returns the ids of badges that qualify and are not yet unlocked, in
// catalog order. Subject rules only apply to the subject of the latest answer.
func (e *Engine) Evaluate(in Input, subject domain.Subject) []string {
	unlocked := make(map[string]bool, len(in.Unlocked))
	for _, id := range in.Unlocked {
		unlocked[id] = true
	}

	stats := summarize(in.History)

	var newly []string
	for _, entry := range e.catalog.entries {
		if unlocked[entry.Badge.ID] {
			continue
		}
		if entry.Rule.satisfied(stats, in.Streak, subject) {
			newly = append(newly, entry.Badge.ID)
		}
	}
	return newly
}

type historyStats struct {
	totalCorrect   int
	subjectCorrect map[domain.Subject]int
}

func summarize(history []domain.Answer) historyStats {
	s := historyStats{subjectCorrect: make(map[domain.Subject]int)}
	for _, a := range history {
		if !a.Correct {
			continue
		}
		s.totalCorrect++
		s.subjectCorrect[a.Subject]++
	}
	return s
}

func (r Rule) satisfied(s historyStats, streak int, subject domain.Subject) bool {
	switch r.Kind {
	case RuleTotalCorrect:
		return s.totalCorrect >= r.Threshold
	case RuleStreak:
		return streak >= r.Threshold
	case RuleSubjectCorrect:
		return r.Subject == subject && s.subjectCorrect[subject] >= r.Threshold
	}
	return false
}
