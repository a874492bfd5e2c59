// Package categorize suggests a category for a free-text description.
package categorize

import "strings"

const (
	// Fallback is returned when no keyword matches.
	Fallback = "Outros"
	// Confidence is reported for every suggestion, matched or not.
	Confidence = 0.85
)

// Rule maps a lowercase keyword to a category.
type Rule struct {
	Keyword  string
	Category string
}

// DefaultRules is scanned in order; the first contained keyword wins.
var DefaultRules = []Rule{
	{"supermercado", "Alimentação"},
	{"restaurante", "Alimentação"},
	{"cinema", "Entretenimento"},
	{"netflix", "Entretenimento"},
	{"uber", "Transporte"},
	{"gasolina", "Transporte"},
	{"farmácia", "Saúde"},
	{"academia", "Saúde"},
	{"salário", "Trabalho"},
	{"freelance", "Trabalho"},
}

type Suggestion struct {
	SuggestedCategory string  `json:"suggestedCategory"`
	Confidence        float64 `json:"confidence"`
}

type Categorizer struct {
	rules []Rule
}

// New returns a Categorizer over rules, or DefaultRules when rules is empty.
// Keywords are lowercased once here.
func New(rules []Rule) *Categorizer {
	if len(rules) == 0 {
		rules = DefaultRules
	}
	c := &Categorizer{rules: make([]Rule, 0, len(rules))}
	for _, r := range rules {
		kw := strings.ToLower(strings.TrimSpace(r.Keyword))
		if kw == "" {
			continue
		}
		c.rules = append(c.rules, Rule{Keyword: kw, Category: r.Category})
	}
	return c
}

func (c *Categorizer) Suggest(description string) Suggestion {
	desc := strings.ToLower(description)
	for _, r := range c.rules {
		if strings.Contains(desc, r.Keyword) {
			return Suggestion{SuggestedCategory: r.Category, Confidence: Confidence}
		}
	}
	return Suggestion{SuggestedCategory: Fallback, Confidence: Confidence}
}
