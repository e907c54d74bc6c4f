// Package binschema defines how numeric client facets are partitioned into
// labelled, half-open intervals for charting and filtering.
package binschema

import (
	"errors"
	"fmt"
	"math"
	"sort"
	"strconv"

	"portfolio-engine/internal/model"
)

// Bin is the half-open interval [Lower, Upper). Upper may be +Inf.
type Bin struct {
	Lower float64 `json:"lower"`
	Upper float64 `json:"upper"`
	Label string  `json:"label"`
}

// LabelFunc renders the display label of [lower, upper).
type LabelFunc func(lower, upper float64) string

// Schema is an immutable, ordered sequence of contiguous bins.
type Schema struct {
	facet model.Facet
	bins  []Bin
	index map[string]int
}

var (
	ErrTooFewEdges      = errors.New("bin schema needs at least two edges")
	ErrEdgesNotSorted   = errors.New("bin edges must be strictly increasing")
	ErrDuplicateLabel   = errors.New("bin labels must be unique")
	ErrLabelCount       = errors.New("label count must match bin count")
	ErrNonFiniteLowEdge = errors.New("bin edges must be finite except the last")
)

// New builds a schema from len(edges)-1 intervals. Labels are taken from
// labels when given, otherwise derived from the edges with label.
func New(facet model.Facet, edges []float64, label LabelFunc, labels ...string) (Schema, error) {
	if len(edges) < 2 {
		return Schema{}, ErrTooFewEdges
	}
	for i, e := range edges {
		if math.IsNaN(e) || (math.IsInf(e, 0) && i != len(edges)-1) {
			return Schema{}, ErrNonFiniteLowEdge
		}
		if i > 0 && e <= edges[i-1] {
			return Schema{}, fmt.Errorf("%w: %v after %v", ErrEdgesNotSorted, e, edges[i-1])
		}
	}
	if len(labels) > 0 && len(labels) != len(edges)-1 {
		return Schema{}, fmt.Errorf("%w: %d labels for %d bins", ErrLabelCount, len(labels), len(edges)-1)
	}

	s := Schema{
		facet: facet,
		bins:  make([]Bin, 0, len(edges)-1),
		index: make(map[string]int, len(edges)-1),
	}
	for i := 0; i < len(edges)-1; i++ {
		b := Bin{Lower: edges[i], Upper: edges[i+1]}
		if len(labels) > 0 {
			b.Label = labels[i]
		} else {
			b.Label = label(b.Lower, b.Upper)
		}
		if _, dup := s.index[b.Label]; dup {
			return Schema{}, fmt.Errorf("%w: %q", ErrDuplicateLabel, b.Label)
		}
		s.index[b.Label] = i
		s.bins = append(s.bins, b)
	}
	return s, nil
}

func (s Schema) Facet() model.Facet { return s.facet }

func (s Schema) Len() int { return len(s.bins) }

// Bins returns a copy of the bins in order.
func (s Schema) Bins() []Bin {
	return append([]Bin(nil), s.bins...)
}

func (s Schema) Labels() []string {
	out := make([]string, len(s.bins))
	for i, b := range s.bins {
		out[i] = b.Label
	}
	return out
}

// IndexOf returns the bin holding v. A value on a boundary belongs to the
// bin it is the lower edge of. Non-finite values, values below the first
// edge and values at or above a bounded last edge have no bin.
func (s Schema) IndexOf(v float64) (int, bool) {
	if len(s.bins) == 0 || math.IsNaN(v) || math.IsInf(v, 0) || v < s.bins[0].Lower {
		return 0, false
	}
	i := sort.Search(len(s.bins), func(i int) bool { return v < s.bins[i].Upper })
	if i == len(s.bins) {
		return 0, false
	}
	return i, true
}

func (s Schema) LabelOf(v float64) (string, bool) {
	i, ok := s.IndexOf(v)
	if !ok {
		return "", false
	}
	return s.bins[i].Label, true
}

func (s Schema) IndexOfLabel(label string) (int, bool) {
	i, ok := s.index[label]
	return i, ok
}

// OpenEndedLabel renders "lower-upper", with "+" for an unbounded upper edge.
func OpenEndedLabel(lower, upper float64) string {
	hi := "+"
	if !math.IsInf(upper, 1) {
		hi = formatEdge(upper)
	}
	return formatEdge(lower) + "-" + hi
}

// InclusiveLabel renders "lower - upper" where upper is shown as the last
// two-decimal value inside the bin, e.g. [0.21, 0.41) is "0.21 - 0.40".
// Whole-number uppers are shown without decimals.
func InclusiveLabel(lower, upper float64) string {
	if math.IsInf(upper, 1) {
		return formatEdge(lower) + " +"
	}
	hi := math.Round((upper-0.01)*100) / 100
	text := strconv.FormatFloat(hi, 'f', 2, 64)
	if hi == math.Trunc(hi) {
		text = strconv.FormatFloat(hi, 'f', 0, 64)
	}
	return formatEdge(lower) + " - " + text
}

func formatEdge(v float64) string {
	return strconv.FormatFloat(v, 'f', -1, 64)
}
