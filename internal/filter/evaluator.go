package filter

import (
	"portfolio-engine/internal/binschema"
	"portfolio-engine/internal/model"
)

// binTest accepts a client when its facet value falls in one of the
// selected bins.
type binTest struct {
	facet  model.Facet
	schema binschema.Schema
	bins   map[int]struct{}
}

func (t binTest) match(c model.Client) bool {
	v := c.Value(t.facet)
	if !v.Valid() {
		return false
	}
	i, ok := t.schema.IndexOf(v.Float())
	if !ok {
		return false
	}
	_, ok = t.bins[i]
	return ok
}

// Evaluate returns the clients satisfying every facet of s, in input order.
// Facets combine with AND; values selected within a facet combine with OR.
// Neither clients nor s is modified.
//
// Selected bin labels unknown to reg match no client. Clients without a
// valid age pass the age range.
func Evaluate(clients []model.Client, s State, reg *binschema.Registry) []model.Client {
	var professions map[string]struct{}
	if len(s.Professions) > 0 {
		professions = make(map[string]struct{}, len(s.Professions))
		for _, p := range s.Professions {
			professions[p] = struct{}{}
		}
	}

	var tests []binTest
	for _, f := range model.BinnedFacets {
		sel := s.Selected(f)
		if len(sel) == 0 {
			continue
		}
		schema, _ := reg.Get(f)
		t := binTest{facet: f, schema: schema, bins: make(map[int]struct{}, len(sel))}
		for _, label := range sel {
			if i, ok := schema.IndexOfLabel(label); ok {
				t.bins[i] = struct{}{}
			}
		}
		tests = append(tests, t)
	}

	out := make([]model.Client, 0, len(clients))
	for _, c := range clients {
		if s.Age != nil {
			// a client without a whole-year age is only left out of the age chart
			if age, ok := c.Years(); ok && !s.Age.Contains(age) {
				continue
			}
		}
		if professions != nil {
			if _, ok := professions[c.Profession]; !ok {
				continue
			}
		}
		if !matchAll(tests, c) {
			continue
		}
		out = append(out, c)
	}
	return out
}

func matchAll(tests []binTest, c model.Client) bool {
	for _, t := range tests {
		if !t.match(c) {
			return false
		}
	}
	return true
}
