package scraper

import (
	"math/rand/v2"
	"strings"
)

// CategoryRule maps a lowercase keyword found anywhere in a game name to a genre.
type CategoryRule struct {
	Keyword  string
	Category string
}

// DefaultCategoryRules is evaluated top to bottom; the first keyword contained
// in the name decides the category, so more specific keywords come first.
var DefaultCategoryRules = []CategoryRule{
	{"dr. mario", "Puzzle"},
	{"mario kart", "Racing"},
	{"kart", "Racing"},
	{"racing", "Racing"},
	{"f-zero", "Racing"},
	{"street fighter", "Fighting"},
	{"mortal kombat", "Fighting"},
	{"tekken", "Fighting"},
	{"fighter", "Fighting"},
	{"final fantasy", "RPG"},
	{"dragon quest", "RPG"},
	{"pokemon", "RPG"},
	{"chrono", "RPG"},
	{"zelda", "Adventure"},
	{"metroid", "Action"},
	{"castlevania", "Action"},
	{"mega man", "Action"},
	{"contra", "Shooter"},
	{"doom", "Shooter"},
	{"gradius", "Shooter"},
	{"mario", "Platformer"},
	{"sonic", "Platformer"},
	{"kirby", "Platformer"},
	{"donkey kong", "Platformer"},
	{"tetris", "Puzzle"},
	{"puzzle", "Puzzle"},
	{"soccer", "Sports"},
	{"fifa", "Sports"},
	{"nba", "Sports"},
	{"golf", "Sports"},
	{"tennis", "Sports"},
	{"baseball", "Sports"},
}

// DefaultFallbackCategories is the pool used when no rule matches.
var DefaultFallbackCategories = []string{"Action", "Adventure", "Arcade", "Platformer", "Puzzle"}

// Categorizer assigns a genre to a game name.
//
// Names that match no rule get a uniformly random category from the fallback
// pool. That is a placeholder categorization: the same unmatched name may get a
// different category on every call.
type Categorizer struct {
	rules    []CategoryRule
	fallback []string
	pick     func(n int) int
}

// NewCategorizer copies rules and fallback so later mutation by the caller has no effect.
func NewCategorizer(rules []CategoryRule, fallback []string) *Categorizer {
	c := &Categorizer{
		rules:    make([]CategoryRule, 0, len(rules)),
		fallback: append([]string(nil), fallback...),
		pick:     rand.IntN,
	}
	for _, r := range rules {
		kw := strings.ToLower(strings.TrimSpace(r.Keyword))
		if kw == "" || r.Category == "" {
			continue
		}
		c.rules = append(c.rules, CategoryRule{Keyword: kw, Category: r.Category})
	}
	return c
}

// DefaultCategorizer uses DefaultCategoryRules and DefaultFallbackCategories.
func DefaultCategorizer() *Categorizer {
	return NewCategorizer(DefaultCategoryRules, DefaultFallbackCategories)
}

// WithPicker replaces the random source used for the fallback pool.
// pick(n) must return a value in [0, n).
func (c *Categorizer) WithPicker(pick func(n int) int) *Categorizer {
	cp := *c
	cp.pick = pick
	return &cp
}

// Infer returns the category of the first rule whose keyword is contained in
// the lowercased name, else a random fallback category.
func (c *Categorizer) Infer(name string) string {
	lower := strings.ToLower(name)
	for _, r := range c.rules {
		if strings.Contains(lower, r.Keyword) {
			return r.Category
		}
	}
	if len(c.fallback) == 0 {
		return "Other"
	}
	return c.fallback[c.pick(len(c.fallback))]
}
