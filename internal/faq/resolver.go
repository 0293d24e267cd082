package faq

import (
	"strings"

	"github.com/hrline/taishokubot/internal/models"
	"github.com/hrline/taishokubot/internal/validate"
)

// Resolver matches free text against the loaded FAQ table. Matching is
// substring based and first-match: no tokenization, no ranking, no word
// boundaries. Overlapping keys resolve to whichever entry sits earlier in
// the table.
type Resolver struct {
	entries []models.FAQEntry
}

func NewResolver(entries []models.FAQEntry) *Resolver {
	return &Resolver{entries: entries}
}

func (r *Resolver) Len() int {
	return len(r.entries)
}

// Resolve returns the answer in the detected language, or false when no
// entry matches. Keys are tried across the whole table first; only when no
// key matches anywhere does question-text containment get a pass.
func (r *Resolver) Resolve(text string) (string, bool) {
	lang := validate.DetectLanguage(text)
	folded := validate.Fold(text)

	if folded == "" {
		return "", false
	}

	for _, entry := range r.entries {
		for _, key := range entry.Keys {
			if strings.Contains(folded, key) {
				return entry.Answer(lang), true
			}
		}
	}

	for _, entry := range r.entries {
		question := validate.Fold(entry.Question(lang))
		if question != "" && strings.Contains(folded, question) {
			return entry.Answer(lang), true
		}
	}

	return "", false
}
