// Package report renders a result for humans.
package report

import (
	"bufio"
	"fmt"
	"io"
	"sort"

	"github.com/shopspring/decimal"
	"golang.org/x/exp/maps"

	"github.com/miku/brcchunk/internal/brc"
)

// Write prints one line per key, sorted by key, in the form
// "key<TAB>min/max/mean". Values are rounded half away from zero to digits
// fractional digits, starting from the shortest decimal that represents the
// float, so 2.25 prints as 2.3 with one digit.
func Write(w io.Writer, result brc.Result, digits int) error {
	keys := maps.Keys(result)
	sort.Strings(keys)
	bw := bufio.NewWriter(w)
	for _, k := range keys {
		s := result[k]
		if _, err := fmt.Fprintf(bw, "%s\t%s/%s/%s\n", k,
			Format(s.Min, digits), Format(s.Max, digits), Format(s.Mean, digits)); err != nil {
			return err
		}
	}
	return bw.Flush()
}

// Format renders v with exactly digits fractional digits.
func Format(v float64, digits int) string {
	return decimal.NewFromFloat(v).StringFixed(int32(digits))
}
