package filter

import (
	"testing"

	json "github.com/goccy/go-json"
	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"

	"portfolio-engine/internal/binschema"
	"portfolio-engine/internal/model"
)

func sampleClients() []model.Client {
	return []model.Client{
		{Code: 1, Age: 30, Profession: "Eng", Income: 15000, PropensityLife: 0.10, PropensityNonLife: 0.90},
		{Code: 2, Age: 45, Profession: "Doc", Income: 25000, PropensityLife: 0.35, PropensityNonLife: 0.50},
		{Code: 3, Age: 52, Profession: "Eng", Income: 130000, PropensityLife: model.Undefined(), PropensityNonLife: 0.21},
		{Code: 4, Age: 61, Profession: "", Income: 60000, PropensityLife: 0.81, PropensityNonLife: model.Undefined()},
	}
}

func codes(cs []model.Client) []int {
	out := make([]int, 0, len(cs))
	for _, c := range cs {
		out = append(out, c.Code)
	}
	return out
}

func TestEvaluateNoFiltersKeepsEverything(t *testing.T) {
	clients := sampleClients()
	got := Evaluate(clients, State{}, binschema.Default())
	assert.Equal(t, []int{1, 2, 3, 4}, codes(got))
}

func TestEvaluateAgeRangeInclusive(t *testing.T) {
	got := Evaluate(sampleClients(), State{}.WithAge(AgeRange{Min: 45, Max: 52}), binschema.Default())
	assert.Equal(t, []int{2, 3}, codes(got))
}

func TestEvaluateAgeRangeKeepsMalformedAges(t *testing.T) {
	clients := append(sampleClients(),
		model.Client{Code: 5, Age: model.Undefined(), Profession: "Eng"},
		model.Client{Code: 6, Age: -1, Profession: "Doc"},
		model.Client{Code: 7, Age: 40.5, Profession: "Law"},
	)
	assert.Len(t, Evaluate(clients, State{}, binschema.Default()), 7)
	assert.Equal(t, []int{1, 2, 3, 4, 5, 6, 7}, codes(Evaluate(clients, Initial(clients), binschema.Default())))
	assert.Equal(t, []int{2, 5, 6, 7}, codes(Evaluate(clients, State{}.WithAge(AgeRange{Min: 40, Max: 50}), binschema.Default())))
}

func TestEvaluateOrWithinAndAcross(t *testing.T) {
	reg := binschema.Default()
	s := State{}.
		Toggle(model.FacetProfession, "Eng").
		Toggle(model.FacetProfession, "Doc")
	assert.Equal(t, []int{1, 2, 3}, codes(Evaluate(sampleClients(), s, reg)))

	s = s.Toggle(model.FacetIncome, "0-20000").Toggle(model.FacetIncome, "120000-+")
	assert.Equal(t, []int{1, 3}, codes(Evaluate(sampleClients(), s, reg)))

	s = s.Toggle(model.FacetPropensityNonLife, "0.21 - 0.40")
	assert.Equal(t, []int{3}, codes(Evaluate(sampleClients(), s, reg)))
}

func TestEvaluateUndefinedPropensity(t *testing.T) {
	reg := binschema.Default()
	clients := sampleClients()

	// no selection: client 3 (undefined life propensity) passes
	assert.Contains(t, codes(Evaluate(clients, State{}, reg)), 3)

	// any selection on the facet excludes it, even selecting every bin
	s := State{}
	life, _ := reg.Get(model.FacetPropensityLife)
	for _, l := range life.Labels() {
		s = s.Toggle(model.FacetPropensityLife, l)
	}
	assert.Equal(t, []int{1, 2, 4}, codes(Evaluate(clients, s, reg)))
}

func TestEvaluateUnknownLabelMatchesNothing(t *testing.T) {
	s := State{}.Toggle(model.FacetIncome, "1-2")
	assert.Empty(t, Evaluate(sampleClients(), s, binschema.Default()))
}

func TestEvaluateEmptyCollection(t *testing.T) {
	s := State{}.Toggle(model.FacetProfession, "Eng").WithAge(AgeRange{Min: 1, Max: 2})
	got := Evaluate(nil, s, binschema.Default())
	assert.NotNil(t, got)
	assert.Empty(t, got)
}

func TestEvaluateIsSubsetAndDoesNotMutate(t *testing.T) {
	clients := sampleClients()
	before, err := json.Marshal(clients)
	require.NoError(t, err)

	s := State{}.Toggle(model.FacetProfession, "Eng").WithAge(AgeRange{Min: 20, Max: 60})
	stateBefore := s.Clone()

	got := Evaluate(clients, s, binschema.Default())
	byCode := map[int]model.Client{}
	for _, c := range clients {
		byCode[c.Code] = c
	}
	for _, c := range got {
		orig, ok := byCode[c.Code]
		require.True(t, ok)
		assert.Equal(t, orig.Code, c.Code)
	}

	after, err := json.Marshal(clients)
	require.NoError(t, err)
	assert.JSONEq(t, string(before), string(after))
	assert.Equal(t, stateBefore, s)
}

func TestToggleIsIdempotentPair(t *testing.T) {
	s := State{}.Toggle(model.FacetProfession, "Doc").WithAge(AgeRange{Min: 30, Max: 50})
	twice := s.Toggle(model.FacetIncome, "0-20000").Toggle(model.FacetIncome, "0-20000")
	assert.Equal(t, s, twice)
	assert.Equal(t, s.Key(), twice.Key())

	removed := s.Toggle(model.FacetProfession, "Doc")
	assert.False(t, removed.IsSelected(model.FacetProfession, "Doc"))
	assert.True(t, s.IsSelected(model.FacetProfession, "Doc"))
}

func TestToggleIgnoresAgeFacet(t *testing.T) {
	s := State{}
	assert.Equal(t, s, s.Toggle(model.FacetAge, "30"))
}

func TestKeyIgnoresInsertionOrder(t *testing.T) {
	a := State{}.Toggle(model.FacetProfession, "Eng").Toggle(model.FacetProfession, "Doc")
	b := State{}.Toggle(model.FacetProfession, "Doc").Toggle(model.FacetProfession, "Eng")
	assert.Equal(t, a.Key(), b.Key())
	assert.True(t, a.Equal(b))

	c := a.Toggle(model.FacetIncome, "0-20000")
	assert.NotEqual(t, a.Key(), c.Key())

	// the same value on different facets is a different state
	d := State{}.Toggle(model.FacetPropensityLife, "0 - 0.20")
	e := State{}.Toggle(model.FacetPropensityNonLife, "0 - 0.20")
	assert.NotEqual(t, d.Key(), e.Key())
}

func TestInitialState(t *testing.T) {
	s := Initial(sampleClients())
	require.NotNil(t, s.Age)
	assert.Equal(t, AgeRange{Min: 30, Max: 61}, *s.Age)
	assert.False(t, s.HasSelections())

	assert.Nil(t, Initial(nil).Age)
}

func TestStateJSON(t *testing.T) {
	s := State{}.Toggle(model.FacetIncome, "0-20000").WithAge(AgeRange{Min: 18, Max: 70})
	b, err := json.Marshal(s)
	require.NoError(t, err)
	assert.JSONEq(t, `{"age_range":{"min":18,"max":70},"income_bins":["0-20000"]}`, string(b))

	var back State
	require.NoError(t, json.Unmarshal(b, &back))
	assert.True(t, s.Equal(back))
}
