package interaction

import (
	"fmt"
	"strings"

	"portfolio-engine/internal/model"
)

// ToggleHandler adds a value to a facet selection, or removes it when it
// is already selected.
type ToggleHandler struct{}

func (h *ToggleHandler) Validate(scope *Scope, ev *model.Event) []model.Message {
	if !ev.Facet.Selectable() {
		return []model.Message{{
			Level:   model.LevelCritical,
			Code:    "UNKNOWN_FACET",
			Message: fmt.Sprintf("Facet %q cannot be toggled", ev.Facet),
		}}
	}

	if ev.Facet == model.FacetProfession {
		if strings.TrimSpace(ev.Value) == "" {
			return []model.Message{{
				Level:   model.LevelCritical,
				Code:    "BLANK_PROFESSION",
				Message: "Profession must not be blank",
			}}
		}
		return nil
	}

	schema, ok := scope.Registry.Get(ev.Facet)
	if !ok {
		return []model.Message{{
			Level:   model.LevelCritical,
			Code:    "UNKNOWN_FACET",
			Message: fmt.Sprintf("No bin schema for facet %q", ev.Facet),
		}}
	}
	if _, ok := schema.IndexOfLabel(ev.Value); !ok {
		return []model.Message{{
			Level:   model.LevelCritical,
			Code:    "UNKNOWN_BIN",
			Message: fmt.Sprintf("Facet %q has no bin labelled %q", ev.Facet, ev.Value),
		}}
	}
	return nil
}

func (h *ToggleHandler) Apply(scope *Scope, ev *model.Event) []model.Message {
	scope.State = scope.State.Toggle(ev.Facet, ev.Value)
	return nil
}
