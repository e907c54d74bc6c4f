// Package interaction applies dashboard events to a filter state: chart
// segment toggles, age slider moves and resets.
package interaction

import (
	"portfolio-engine/internal/binschema"
	"portfolio-engine/internal/filter"
	"portfolio-engine/internal/model"
)

// Scope is what an event handler reads and mutates. Observed is the age
// range of the loaded clients, nil when none are loaded.
type Scope struct {
	State    filter.State
	Registry *binschema.Registry
	Observed *filter.AgeRange
}

// Handler defines the contract for every event type. Validate must not
// change the scope; Apply is only called when Validate reported nothing
// critical.
type Handler interface {
	Validate(scope *Scope, ev *model.Event) []model.Message
	Apply(scope *Scope, ev *model.Event) []model.Message
}

var registry = map[string]Handler{
	model.EventToggle:      &ToggleHandler{},
	model.EventSetAgeRange: &SetAgeRangeHandler{},
	model.EventReset:       &ResetHandler{},
}

func Get(eventType string) (Handler, bool) {
	h, ok := registry[eventType]
	return h, ok
}
