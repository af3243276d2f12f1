// Package merge combines partial aggregates into the final result.
package merge

import (
	"unicode/utf8"

	"github.com/miku/brcchunk/internal/brc"
)

// Merge folds partials in the given order and derives the mean per key.
func Merge(partials []brc.Partial) (brc.Result, error) {
	return Finish(Fold(partials))
}

// Fold combines partials into a single global aggregate. The partials are
// not modified. Folding in a fixed order gives bit identical sums across
// runs; other orders may differ in the last bits of Sum.
func Fold(partials []brc.Partial) brc.Partial {
	var size int
	for _, p := range partials {
		size = max(size, len(p))
	}
	data := make(brc.Partial, size)
	for _, p := range partials {
		for k, v := range p {
			if m, ok := data[k]; ok {
				m.Merge(v)
			} else {
				c := *v
				data[k] = &c
			}
		}
	}
	return data
}

// Finish computes mean = sum / count once per key and validates that every
// key is valid UTF-8.
func Finish(global brc.Partial) (brc.Result, error) {
	result := make(brc.Result, len(global))
	for k, m := range global {
		if !utf8.ValidString(k) {
			return nil, &brc.EncodingError{Key: []byte(k)}
		}
		result[k] = brc.Summary{Min: m.Min, Max: m.Max, Mean: m.Mean()}
	}
	return result, nil
}
