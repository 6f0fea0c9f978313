// Package scoring classifies assessment results into the six pronunciation
// error categories and accumulates per-lesson score and error history.
package scoring

import (
	"fmt"
	"strings"
)

// Category is one of the six fixed pronunciation error types.
type Category int

// Categories in display order.
const (
	Omission Category = iota
	Insertion
	Mispronunciation
	UnexpectedBreak
	MissingBreak
	Monotone

	numCategories = 6
)

var categoryTags = [numCategories]string{
	"Omission",
	"Insertion",
	"Mispronunciation",
	"UnexpectedBreak",
	"MissingBreak",
	"Monotone",
}

// All returns the categories in display order.
func All() []Category {
	return []Category{Omission, Insertion, Mispronunciation, UnexpectedBreak, MissingBreak, Monotone}
}

// String returns the service ErrorType tag.
func (c Category) String() string {
	if !c.Valid() {
		return fmt.Sprintf("Category(%d)", int(c))
	}
	return categoryTags[c]
}

// Valid reports whether c is one of the six categories.
func (c Category) Valid() bool { return c >= 0 && c < numCategories }

// ParseCategory maps an ErrorType tag onto a category. "None", empty and
// unknown tags are not categories.
func ParseCategory(tag string) (Category, bool) {
	for i, t := range categoryTags {
		if t == tag {
			return Category(i), true
		}
	}
	return 0, false
}

// MarshalText encodes the category as its tag, so it can key JSON objects.
func (c Category) MarshalText() ([]byte, error) {
	if !c.Valid() {
		return nil, fmt.Errorf("%w: %d", ErrUnknownCategory, int(c))
	}
	return []byte(categoryTags[c]), nil
}

// UnmarshalText decodes a category tag. Labelled keys such as
// "発音ミス (Mispronunciation)" are accepted by their parenthesised tag.
func (c *Category) UnmarshalText(b []byte) error {
	key := string(b)
	parsed, ok := ParseCategory(key)
	if !ok {
		if open, end := strings.LastIndex(key, "("), strings.LastIndex(key, ")"); open >= 0 && end > open {
			parsed, ok = ParseCategory(strings.TrimSpace(key[open+1 : end]))
		}
	}
	if !ok {
		return fmt.Errorf("%w: %q", ErrUnknownCategory, string(b))
	}
	*c = parsed
	return nil
}
