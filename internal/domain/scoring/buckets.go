package scoring

import (
	"encoding/json"
	"fmt"

	"github.com/okian/phonoecho/internal/domain/assessment"
)

// Bucket is the count and offending words of one category.
// Count always equals len(Words).
type Bucket struct {
	Count int      `json:"count"`
	Words []string `json:"words"`
}

// Buckets holds all six categories, zero-filled when absent.
type Buckets [numCategories]Bucket

// NewBuckets returns six empty buckets.
func NewBuckets() Buckets {
	var b Buckets
	for i := range b {
		b[i].Words = []string{}
	}
	return b
}

// Get returns the bucket of c.
func (b Buckets) Get(c Category) Bucket {
	if !c.Valid() {
		return Bucket{Words: []string{}}
	}
	return b[c]
}

func (b *Buckets) add(c Category, word string) {
	b[c].Count++
	b[c].Words = append(b[c].Words, word)
}

// Merge adds other's counts and concatenates its words. Words are not deduplicated.
func (b *Buckets) Merge(other Buckets) {
	for i := range b {
		b[i].Count += other[i].Count
		b[i].Words = append(b[i].Words, other[i].Words...)
		if b[i].Words == nil {
			b[i].Words = []string{}
		}
	}
}

// Clone returns a deep copy.
func (b Buckets) Clone() Buckets {
	out := NewBuckets()
	for i := range b {
		out[i].Count = b[i].Count
		out[i].Words = append(out[i].Words, b[i].Words...)
	}
	return out
}

// Stats returns the counts of categories with at least one error.
func (b Buckets) Stats() map[Category]int {
	out := make(map[Category]int)
	for i, bucket := range b {
		if bucket.Count > 0 {
			out[Category(i)] = bucket.Count
		}
	}
	return out
}

// Total is the number of flagged words across categories.
func (b Buckets) Total() int {
	n := 0
	for _, bucket := range b {
		n += bucket.Count
	}
	return n
}

// MarshalJSON writes the six buckets as an object keyed by category tag.
func (b Buckets) MarshalJSON() ([]byte, error) {
	m := make(map[Category]Bucket, numCategories)
	for i, bucket := range b {
		if bucket.Words == nil {
			bucket.Words = []string{}
		}
		m[Category(i)] = bucket
	}
	return json.Marshal(m)
}

// UnmarshalJSON reads an object keyed by category tag. Missing categories
// are zero-filled; unknown keys are rejected.
func (b *Buckets) UnmarshalJSON(data []byte) error {
	var m map[Category]Bucket
	if err := json.Unmarshal(data, &m); err != nil {
		return err
	}
	*b = NewBuckets()
	for c, bucket := range m {
		if bucket.Words == nil {
			bucket.Words = []string{}
		}
		if bucket.Count != len(bucket.Words) {
			return fmt.Errorf("%s: count %d does not match %d words", c, bucket.Count, len(bucket.Words))
		}
		b[c] = bucket
	}
	return nil
}

// Classify buckets every word of the best hypothesis by its ErrorType tag.
// Words without a recognized tag are skipped. A result without NBest or
// Words fails with assessment.ErrMalformedResult.
func Classify(res *assessment.Result) (Buckets, error) {
	best, err := res.Best()
	if err != nil {
		return Buckets{}, err
	}
	out := NewBuckets()
	for _, w := range best.Words {
		c, ok := ParseCategory(w.PronunciationAssessment.ErrorType)
		if !ok {
			continue
		}
		out.add(c, w.Word)
	}
	return out, nil
}
