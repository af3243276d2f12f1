// Package brc holds the data model shared by the planner, the range
// aggregator, the merger and the orchestrator: byte ranges, per key
// measurements and the final result.
package brc

import "fmt"

// Delimiter separates key and value within a record.
const Delimiter = ';'

// Newline terminates a record.
const Newline = '\n'

// Range is a half-open, line aligned byte span [Start, End) of the source
// file. Ranges are created by the planner and never modified.
type Range struct {
	Start int64
	End   int64
}

// Len returns the number of bytes covered by the range.
func (r Range) Len() int64 { return r.End - r.Start }

func (r Range) String() string { return fmt.Sprintf("[%d,%d)", r.Start, r.End) }

// Measurements, as there is no need to keep all numbers around, we can compute
// them on the fly.
type Measurements struct {
	Min   float64
	Max   float64
	Sum   float64
	Count uint64
}

// NewMeasurements returns the state for a key seen for the first time.
func NewMeasurements(v float64) *Measurements {
	return &Measurements{Min: v, Max: v, Sum: v, Count: 1}
}

// Add accounts for a single value.
func (m *Measurements) Add(v float64) {
	m.Min = min(m.Min, v)
	m.Max = max(m.Max, v)
	m.Sum = m.Sum + v
	m.Count++
}

// Merge folds o into m. Merge is commutative and associative, up to
// floating point rounding of Sum.
func (m *Measurements) Merge(o *Measurements) {
	m.Min = min(m.Min, o.Min)
	m.Max = max(m.Max, o.Max)
	m.Sum = m.Sum + o.Sum
	m.Count = m.Count + o.Count
}

// Mean returns Sum / Count. Count is at least one for every stored key.
func (m *Measurements) Mean() float64 {
	return m.Sum / float64(m.Count)
}

// Partial maps raw key bytes to measurements. The string type is used as an
// immutable byte container; keys are not checked for valid text until the
// result is built.
type Partial map[string]*Measurements

// Summary is the final per key statistic.
type Summary struct {
	Min  float64
	Max  float64
	Mean float64
}

// Result maps decoded keys to their summary. Key order is unspecified.
type Result map[string]Summary
