// Package aggregate turns a client subset into chart-ready frequency series.
package aggregate

import (
	"sort"
	"strings"

	"portfolio-engine/internal/binschema"
	"portfolio-engine/internal/model"
)

// Ages counts clients per whole-year age, ascending. Only observed ages
// are reported; clients without a valid age are skipped.
func Ages(clients []model.Client) []model.AgeBucket {
	counts := make(map[int]int)
	for _, c := range clients {
		if age, ok := c.Years(); ok {
			counts[age]++
		}
	}

	out := make([]model.AgeBucket, 0, len(counts))
	for age, n := range counts {
		out = append(out, model.AgeBucket{Age: age, Count: n})
	}
	sort.Slice(out, func(i, j int) bool { return out[i].Age < out[j].Age })
	return out
}

// Professions counts clients per profession in first-seen order, skipping
// blank professions.
func Professions(clients []model.Client) []model.Bucket {
	var c Counter
	for _, cl := range clients {
		c.Add(cl.Profession)
	}
	return c.Buckets()
}

// Binned counts clients per bin of schema. The result always has one
// bucket per bin, in schema order; values outside every bin are skipped.
func Binned(clients []model.Client, schema binschema.Schema) []model.Bucket {
	out := make([]model.Bucket, schema.Len())
	for i, l := range schema.Labels() {
		out[i].Label = l
	}
	for _, c := range clients {
		v := c.Value(schema.Facet())
		if !v.Valid() {
			continue
		}
		if i, ok := schema.IndexOf(v.Float()); ok {
			out[i].Count++
		}
	}
	return out
}

// Charts computes every facet series for clients.
func Charts(clients []model.Client, reg *binschema.Registry) model.Charts {
	ch := model.Charts{
		Age:        Ages(clients),
		Profession: Professions(clients),
	}
	for _, f := range reg.Facets() {
		schema, _ := reg.Get(f)
		series := Binned(clients, schema)
		switch f {
		case model.FacetIncome:
			ch.Income = series
		case model.FacetPropensityLife:
			ch.PropensityLife = series
		case model.FacetPropensityNonLife:
			ch.PropensityNonLife = series
		}
	}
	return ch
}

// Options describes the filter panel for the whole collection: observed
// age bounds, distinct professions in first-seen order and bin labels.
func Options(all []model.Client, reg *binschema.Registry) model.FacetOptions {
	var opts model.FacetOptions

	first := true
	for _, c := range all {
		age, ok := c.Years()
		if !ok {
			continue
		}
		if first {
			lo, hi := age, age
			opts.AgeMin, opts.AgeMax = &lo, &hi
			first = false
			continue
		}
		if age < *opts.AgeMin {
			*opts.AgeMin = age
		}
		if age > *opts.AgeMax {
			*opts.AgeMax = age
		}
	}

	opts.Professions = []string{}
	for _, b := range Professions(all) {
		opts.Professions = append(opts.Professions, b.Label)
	}

	labels := func(f model.Facet) []string {
		if s, ok := reg.Get(f); ok {
			return s.Labels()
		}
		return []string{}
	}
	opts.IncomeLabels = labels(model.FacetIncome)
	opts.PropensityLife = labels(model.FacetPropensityLife)
	opts.PropensityNonLife = labels(model.FacetPropensityNonLife)
	return opts
}

// Counter counts string categories, remembering first-seen order. Blank
// categories are ignored. The zero value is ready to use.
type Counter struct {
	index   map[string]int
	buckets []model.Bucket
}

func (c *Counter) Add(category string) {
	if strings.TrimSpace(category) == "" {
		return
	}
	if c.index == nil {
		c.index = make(map[string]int)
	}
	i, ok := c.index[category]
	if !ok {
		i = len(c.buckets)
		c.index[category] = i
		c.buckets = append(c.buckets, model.Bucket{Label: category})
	}
	c.buckets[i].Count++
}

// Buckets returns the counts in first-seen order. It never returns nil.
func (c *Counter) Buckets() []model.Bucket {
	if len(c.buckets) == 0 {
		return []model.Bucket{}
	}
	return append([]model.Bucket(nil), c.buckets...)
}

// Total returns the sum of all bucket counts.
func Total(buckets []model.Bucket) int {
	n := 0
	for _, b := range buckets {
		n += b.Count
	}
	return n
}
