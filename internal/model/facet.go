package model

// Facet names one independently filterable dimension of a client.
type Facet string

const (
	FacetAge               Facet = "age"
	FacetProfession        Facet = "profession"
	FacetIncome            Facet = "income"
	FacetPropensityLife    Facet = "propensity_life"
	FacetPropensityNonLife Facet = "propensity_non_life"
)

// BinnedFacets lists the numeric facets bucketed by a bin schema, in display order.
var BinnedFacets = []Facet{FacetIncome, FacetPropensityLife, FacetPropensityNonLife}

// Selectable reports whether values of f are toggled individually.
func (f Facet) Selectable() bool {
	switch f {
	case FacetProfession, FacetIncome, FacetPropensityLife, FacetPropensityNonLife:
		return true
	}
	return false
}
