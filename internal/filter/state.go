// Package filter holds the dashboard filter state and the evaluator that
// applies it to a client collection.
package filter

import (
	"sort"
	"strconv"
	"strings"

	"github.com/cespare/xxhash/v2"

	"portfolio-engine/internal/model"
)

// AgeRange is an inclusive [Min, Max] bound on client age.
type AgeRange struct {
	Min int `json:"min"`
	Max int `json:"max"`
}

func (r AgeRange) Contains(age int) bool {
	return age >= r.Min && age <= r.Max
}

// State is the complete set of active selections. It is a value: every
// mutating method returns a new State and leaves the receiver untouched.
// Selections are kept sorted so equal sets have equal representations.
//
// An empty selection means the facet imposes no restriction. A nil Age
// means no clients have been loaded yet; once set, it always restricts.
type State struct {
	Age               *AgeRange `json:"age_range,omitempty"`
	Professions       []string  `json:"professions,omitempty"`
	IncomeBins        []string  `json:"income_bins,omitempty"`
	PropensityLife    []string  `json:"propensity_life_bins,omitempty"`
	PropensityNonLife []string  `json:"propensity_non_life_bins,omitempty"`
}

// Selected returns the selection for a toggleable facet.
func (s State) Selected(f model.Facet) []string {
	switch f {
	case model.FacetProfession:
		return s.Professions
	case model.FacetIncome:
		return s.IncomeBins
	case model.FacetPropensityLife:
		return s.PropensityLife
	case model.FacetPropensityNonLife:
		return s.PropensityNonLife
	}
	return nil
}

func (s State) IsSelected(f model.Facet, value string) bool {
	sel := s.Selected(f)
	i := sort.SearchStrings(sel, value)
	return i < len(sel) && sel[i] == value
}

// Toggle adds value to the facet's selection if absent and removes it if
// present. Facets that are not toggleable are returned unchanged.
func (s State) Toggle(f model.Facet, value string) State {
	if !f.Selectable() {
		return s
	}
	sel := s.Selected(f)
	i := sort.SearchStrings(sel, value)

	next := make([]string, 0, len(sel)+1)
	if i < len(sel) && sel[i] == value {
		next = append(next, sel[:i]...)
		next = append(next, sel[i+1:]...)
	} else {
		next = append(next, sel[:i]...)
		next = append(next, value)
		next = append(next, sel[i:]...)
	}
	return s.withSelection(f, next)
}

// WithAge returns a copy of s restricted to r.
func (s State) WithAge(r AgeRange) State {
	out := s.Clone()
	out.Age = &r
	return out
}

func (s State) withSelection(f model.Facet, sel []string) State {
	out := s.Clone()
	if len(sel) == 0 {
		sel = nil
	}
	switch f {
	case model.FacetProfession:
		out.Professions = sel
	case model.FacetIncome:
		out.IncomeBins = sel
	case model.FacetPropensityLife:
		out.PropensityLife = sel
	case model.FacetPropensityNonLife:
		out.PropensityNonLife = sel
	}
	return out
}

func (s State) Clone() State {
	out := State{
		Professions:       cloneStrings(s.Professions),
		IncomeBins:        cloneStrings(s.IncomeBins),
		PropensityLife:    cloneStrings(s.PropensityLife),
		PropensityNonLife: cloneStrings(s.PropensityNonLife),
	}
	if s.Age != nil {
		r := *s.Age
		out.Age = &r
	}
	return out
}

// Equal reports whether both states select exactly the same clients for
// every collection.
func (s State) Equal(o State) bool {
	return s.canonical() == o.canonical()
}

// HasSelections reports whether any categorical or binned facet restricts.
func (s State) HasSelections() bool {
	return len(s.Professions)+len(s.IncomeBins)+len(s.PropensityLife)+len(s.PropensityNonLife) > 0
}

// Key is a short stable identifier of the state, used to memoize renders.
func (s State) Key() string {
	return strconv.FormatUint(xxhash.Sum64String(s.canonical()), 16)
}

func (s State) canonical() string {
	var b strings.Builder
	if s.Age != nil {
		b.WriteString("age=")
		b.WriteString(strconv.Itoa(s.Age.Min))
		b.WriteByte(':')
		b.WriteString(strconv.Itoa(s.Age.Max))
	}
	for _, f := range []model.Facet{model.FacetProfession, model.FacetIncome, model.FacetPropensityLife, model.FacetPropensityNonLife} {
		b.WriteByte('|')
		b.WriteString(string(f))
		b.WriteByte('=')
		for i, v := range s.Selected(f) {
			if i > 0 {
				b.WriteByte(0)
			}
			b.WriteString(v)
		}
	}
	return b.String()
}

// ObservedAgeRange returns the min and max whole-year age among clients.
// ok is false when no client has a defined age.
func ObservedAgeRange(clients []model.Client) (AgeRange, bool) {
	var r AgeRange
	found := false
	for _, c := range clients {
		age, ok := c.Years()
		if !ok {
			continue
		}
		if !found {
			r = AgeRange{Min: age, Max: age}
			found = true
			continue
		}
		if age < r.Min {
			r.Min = age
		}
		if age > r.Max {
			r.Max = age
		}
	}
	return r, found
}

// Initial returns the reset state for clients: no selections and the full
// observed age range.
func Initial(clients []model.Client) State {
	var s State
	if r, ok := ObservedAgeRange(clients); ok {
		s.Age = &r
	}
	return s
}

func cloneStrings(in []string) []string {
	if len(in) == 0 {
		return nil
	}
	return append([]string(nil), in...)
}
