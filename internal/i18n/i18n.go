// Package i18n localizes labels and messages shown to learners.
package i18n

import (
	"embed"
	"encoding/json"
	"fmt"
	"strings"

	"github.com/nicksnyder/go-i18n/v2/i18n"
	"golang.org/x/text/language"

	"github.com/okian/phonoecho/internal/domain/scoring"
)

//go:embed locales/*.json
var locales embed.FS

var categoryIDs = map[scoring.Category]string{
	scoring.Omission:         "category_omission",
	scoring.Insertion:        "category_insertion",
	scoring.Mispronunciation: "category_mispronunciation",
	scoring.UnexpectedBreak:  "category_unexpected_break",
	scoring.MissingBreak:     "category_missing_break",
	scoring.Monotone:         "category_monotone",
}

var suggestionIDs = []string{"suggestion_slow", "suggestion_pause", "suggestion_rhythm"}

// Translator resolves message IDs for one language.
type Translator struct {
	tag       language.Tag
	localizer *i18n.Localizer
}

// New loads the embedded catalogues and returns a Translator for lang
// ("ja" or "en"). Unknown languages fall back to Japanese.
func New(lang string) (*Translator, error) {
	bundle := i18n.NewBundle(language.Japanese)
	bundle.RegisterUnmarshalFunc("json", json.Unmarshal)
	for _, name := range []string{"locales/ja.json", "locales/en.json"} {
		if _, err := bundle.LoadMessageFileFS(locales, name); err != nil {
			return nil, fmt.Errorf("load %s: %w", name, err)
		}
	}

	tag := language.Japanese
	if lang == "en" {
		tag = language.English
	}
	return &Translator{tag: tag, localizer: i18n.NewLocalizer(bundle, tag.String())}, nil
}

// Tag returns the translator's language.
func (t *Translator) Tag() language.Tag { return t.tag }

// T localizes id with optional template data. Missing IDs come back as-is.
func (t *Translator) T(id string, data map[string]any) string {
	msg, err := t.localizer.Localize(&i18n.LocalizeConfig{MessageID: id, TemplateData: data})
	if err != nil {
		return id
	}
	return msg
}

// Category returns the display label for c.
func (t *Translator) Category(c scoring.Category) string {
	id, ok := categoryIDs[c]
	if !ok {
		return c.String()
	}
	return t.T(id, nil)
}

// LessonName returns the display name of the zero-based lesson index.
func (t *Translator) LessonName(index int) string {
	return t.T("lesson_name", map[string]any{"Number": index + 1})
}

// ErrorDetail renders the per-category error breakdown shown under the charts.
func (t *Translator) ErrorDetail(b scoring.Buckets) string {
	var lines []string
	for _, c := range scoring.All() {
		bucket := b.Get(c)
		if bucket.Count == 0 {
			continue
		}
		lines = append(lines, t.T("error_detail_line", map[string]any{
			"Label": t.Category(c),
			"Count": bucket.Count,
			"Words": strings.Join(bucket.Words, ", "),
		}))
	}
	if len(lines) == 0 {
		return t.T("no_errors", nil)
	}
	return t.T("error_detail_header", nil) + "\n" + strings.Join(lines, "\n")
}

// Suggestions returns the fixed practice tips.
func (t *Translator) Suggestions() []string {
	out := make([]string, len(suggestionIDs))
	for i, id := range suggestionIDs {
		out[i] = t.T(id, nil)
	}
	return out
}
