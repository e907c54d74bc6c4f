package main

import (
	"testing"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"

	"portfolio-engine/internal/model"
)

func setReportFlags(t *testing.T, professions, income []string, ageMin, ageMax int) {
	t.Helper()
	reportProfessions, reportIncome = professions, income
	reportPropensityLife, reportPropensityNonLife = nil, nil
	reportAgeMin, reportAgeMax = ageMin, ageMax
	t.Cleanup(func() {
		reportProfessions, reportIncome = nil, nil
		reportAgeMin, reportAgeMax = -1, -1
	})
}

func TestReportEventsFromFlags(t *testing.T) {
	setReportFlags(t, []string{"Eng", "Doc"}, []string{"0-20000"}, -1, -1)

	events, err := reportEvents(nil)
	require.NoError(t, err)
	require.Len(t, events, 3)
	assert.Equal(t, model.Event{Type: model.EventToggle, Facet: model.FacetProfession, Value: "Doc"}, events[1])
	assert.Equal(t, model.FacetIncome, events[2].Facet)
}

func TestReportEventsFillsMissingAgeBound(t *testing.T) {
	setReportFlags(t, nil, nil, 40, -1)
	clients := []model.Client{{Code: 1, Age: 25}, {Code: 2, Age: 70}}

	events, err := reportEvents(clients)
	require.NoError(t, err)
	require.Len(t, events, 1)
	assert.Equal(t, model.EventSetAgeRange, events[0].Type)
	assert.Equal(t, 40, *events[0].Min)
	assert.Equal(t, 70, *events[0].Max)
}

func TestReportEventsNeedsAgesForOpenBound(t *testing.T) {
	setReportFlags(t, nil, nil, -1, 50)
	_, err := reportEvents(nil)
	assert.Error(t, err)
}

func TestReportProfessionFlagKeepsCommas(t *testing.T) {
	setReportFlags(t, nil, nil, -1, -1)
	require.NoError(t, reportCmd.ParseFlags([]string{
		"--profession", "Impiegato, tecnico",
		"--profession", "Medico",
		"--propensity-life", "0.81 - 1",
	}))
	t.Cleanup(func() { reportPropensityLife = nil })

	assert.Equal(t, []string{"Impiegato, tecnico", "Medico"}, reportProfessions)
	events, err := reportEvents(nil)
	require.NoError(t, err)
	require.Len(t, events, 3)
	assert.Equal(t, "Impiegato, tecnico", events[0].Value)
	assert.Equal(t, model.FacetPropensityLife, events[2].Facet)
}
