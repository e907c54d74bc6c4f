package interaction

import (
	"portfolio-engine/internal/filter"
	"portfolio-engine/internal/model"
)

// ResetHandler empties every selection and restores the full observed
// age range.
type ResetHandler struct{}

func (h *ResetHandler) Validate(*Scope, *model.Event) []model.Message {
	return nil
}

func (h *ResetHandler) Apply(scope *Scope, _ *model.Event) []model.Message {
	var st filter.State
	if scope.Observed != nil {
		r := *scope.Observed
		st.Age = &r
	}
	scope.State = st
	return nil
}
