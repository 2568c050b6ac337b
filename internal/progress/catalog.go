// Package progress decides which badges a player earns. The badge catalog is a
// static table of (badge, rule) pairs loaded once at startup; the Engine
// evaluates every rule the same way against a player's answer history.
package progress

import (
	"bytes"
	_ "embed"
	"fmt"
	"io"

	"gopkg.in/yaml.v3"

	"github.com/p-n-ai/pai-kids/internal/domain"
)

//go:embed catalog.yaml
var defaultCatalogYAML []byte

// RuleKind names the statistic a rule compares against its threshold.
type RuleKind string

const (
	RuleTotalCorrect   RuleKind = "total_correct"
	RuleStreak         RuleKind = "streak"
	RuleSubjectCorrect RuleKind = "subject_correct"
)

// Rule is the unlock condition of a badge.
type Rule struct {
	Kind      RuleKind       `yaml:"kind"`
	Threshold int            `yaml:"threshold"`
	Subject   domain.Subject `yaml:"subject,omitempty"`
}

// Entry pairs a badge with its unlock rule.
type Entry struct {
	Badge domain.Badge
	Rule  Rule
}

// Catalog is an immutable, ordered badge table.
type Catalog struct {
	entries []Entry
	index   map[string]int
}

type catalogFile struct {
	Badges []struct {
		domain.Badge `yaml:",inline"`
		Rule         Rule `yaml:"rule"`
	} `yaml:"badges"`
}

// DefaultCatalog returns the built-in 14 badge catalog.
func DefaultCatalog() *Catalog {
	c, err := LoadCatalog(bytes.NewReader(defaultCatalogYAML))
	if err != nil {
		panic(fmt.Sprintf("embedded badge catalog is invalid: %v", err))
	}
	return c
}

// LoadCatalog parses and validates a YAML badge catalog.
func LoadCatalog(r io.Reader) (*Catalog, error) {
	var file catalogFile
	if err := yaml.NewDecoder(r).Decode(&file); err != nil {
		return nil, fmt.Errorf("decode catalog: %w", err)
	}
	if len(file.Badges) == 0 {
		return nil, fmt.Errorf("catalog has no badges")
	}

	c := &Catalog{
		entries: make([]Entry, 0, len(file.Badges)),
		index:   make(map[string]int, len(file.Badges)),
	}
	for i, b := range file.Badges {
		if b.ID == "" {
			return nil, fmt.Errorf("badge %d: id is required", i)
		}
		if _, dup := c.index[b.ID]; dup {
			return nil, fmt.Errorf("badge %q: duplicate id", b.ID)
		}
		if b.Category != domain.CategoryAchievement && b.Category != domain.CategoryCharacter {
			return nil, fmt.Errorf("badge %q: unknown category %q", b.ID, b.Category)
		}
		if err := b.Rule.validate(); err != nil {
			return nil, fmt.Errorf("badge %q: %w", b.ID, err)
		}
		c.index[b.ID] = len(c.entries)
		c.entries = append(c.entries, Entry{Badge: b.Badge, Rule: b.Rule})
	}
	return c, nil
}

func (r Rule) validate() error {
	if r.Threshold <= 0 {
		return fmt.Errorf("threshold must be positive, got %d", r.Threshold)
	}
	switch r.Kind {
	case RuleTotalCorrect, RuleStreak:
		return nil
	case RuleSubjectCorrect:
		if !r.Subject.Valid() {
			return fmt.Errorf("unknown subject %q", r.Subject)
		}
		return nil
	default:
		return fmt.Errorf("unknown rule kind %q", r.Kind)
	}
}

// Entries returns the catalog in declaration order.
func (c *Catalog) Entries() []Entry {
	return append([]Entry(nil), c.entries...)
}

// Badges returns every badge in declaration order.
func (c *Catalog) Badges() []domain.Badge {
	badges := make([]domain.Badge, len(c.entries))
	for i, e := range c.entries {
		badges[i] = e.Badge
	}
	return badges
}

// Badge looks up a badge by id.
func (c *Catalog) Badge(id string) (domain.Badge, bool) {
	i, ok := c.index[id]
	if !ok {
		return domain.Badge{}, false
	}
	return c.entries[i].Badge, true
}

// Len returns the number of badges.
func (c *Catalog) Len() int {
	return len(c.entries)
}
