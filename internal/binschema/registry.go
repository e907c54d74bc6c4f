package binschema

import (
	"fmt"
	"io"
	"math"
	"os"

	"gopkg.in/yaml.v3"

	"portfolio-engine/internal/model"
)

var (
	IncomeEdges     = []float64{0, 20000, 40000, 60000, 80000, 100000, 120000, math.Inf(1)}
	PropensityEdges = []float64{0, 0.21, 0.41, 0.61, 0.81, 1.01}
)

var defaultLabels = map[model.Facet]LabelFunc{
	model.FacetIncome:            OpenEndedLabel,
	model.FacetPropensityLife:    InclusiveLabel,
	model.FacetPropensityNonLife: InclusiveLabel,
}

// Registry maps every binned facet to its schema. A Registry is read-only
// once built and safe for concurrent use.
type Registry struct {
	schemas map[model.Facet]Schema
}

// Default returns the registry with the built-in income and propensity bins.
func Default() *Registry {
	r := &Registry{schemas: make(map[model.Facet]Schema, len(model.BinnedFacets))}
	r.schemas[model.FacetIncome] = mustNew(model.FacetIncome, IncomeEdges)
	r.schemas[model.FacetPropensityLife] = mustNew(model.FacetPropensityLife, PropensityEdges)
	r.schemas[model.FacetPropensityNonLife] = mustNew(model.FacetPropensityNonLife, PropensityEdges)
	return r
}

func mustNew(f model.Facet, edges []float64) Schema {
	s, err := New(f, edges, defaultLabels[f])
	if err != nil {
		panic(fmt.Sprintf("binschema: built-in schema %s: %v", f, err))
	}
	return s
}

func (r *Registry) Get(f model.Facet) (Schema, bool) {
	s, ok := r.schemas[f]
	return s, ok
}

// Facets returns the binned facets in display order.
func (r *Registry) Facets() []model.Facet {
	out := make([]model.Facet, 0, len(r.schemas))
	for _, f := range model.BinnedFacets {
		if _, ok := r.schemas[f]; ok {
			out = append(out, f)
		}
	}
	return out
}

type overrideFile struct {
	Facets map[model.Facet]struct {
		Edges  []float64 `yaml:"edges"`
		Open   bool      `yaml:"open_ended"`
		Labels []string  `yaml:"labels"`
	} `yaml:"facets"`
}

// LoadYAML returns a copy of base with the schemas described in r replacing
// the built-in ones, e.g.
//
//	facets:
//	  income:
//	    edges: [0, 30000, 60000, 90000]
//	    open_ended: true
func LoadYAML(r io.Reader, base *Registry) (*Registry, error) {
	var file overrideFile
	if err := yaml.NewDecoder(r).Decode(&file); err != nil && err != io.EOF {
		return nil, fmt.Errorf("decode bin schema overrides: %w", err)
	}

	out := &Registry{schemas: make(map[model.Facet]Schema, len(base.schemas))}
	for f, s := range base.schemas {
		out.schemas[f] = s
	}

	for f, o := range file.Facets {
		label, known := defaultLabels[f]
		if !known {
			return nil, fmt.Errorf("bin schema override: facet %q is not binned", f)
		}
		edges := append([]float64(nil), o.Edges...)
		if o.Open {
			edges = append(edges, math.Inf(1))
		}
		s, err := New(f, edges, label, o.Labels...)
		if err != nil {
			return nil, fmt.Errorf("bin schema override %s: %w", f, err)
		}
		out.schemas[f] = s
	}
	return out, nil
}

// LoadFile applies the overrides in path on top of the default registry.
// An empty path yields the default registry.
func LoadFile(path string) (*Registry, error) {
	if path == "" {
		return Default(), nil
	}
	f, err := os.Open(path)
	if err != nil {
		return nil, fmt.Errorf("open bin schema file: %w", err)
	}
	defer f.Close()
	return LoadYAML(f, Default())
}
