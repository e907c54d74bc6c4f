package interaction

import (
	"fmt"

	"portfolio-engine/internal/filter"
	"portfolio-engine/internal/model"
)

// SetAgeRangeHandler moves the age slider to an inclusive [min, max].
type SetAgeRangeHandler struct{}

func (h *SetAgeRangeHandler) Validate(scope *Scope, ev *model.Event) []model.Message {
	if ev.Min == nil || ev.Max == nil {
		return []model.Message{{
			Level:   model.LevelCritical,
			Code:    "MISSING_AGE_BOUND",
			Message: "Both min and max are required",
		}}
	}
	lo, hi := *ev.Min, *ev.Max
	if lo < 0 {
		return []model.Message{{
			Level:   model.LevelCritical,
			Code:    "INVALID_AGE_RANGE",
			Message: fmt.Sprintf("Age range minimum %d is negative", lo),
		}}
	}
	if lo > hi {
		return []model.Message{{
			Level:   model.LevelCritical,
			Code:    "INVALID_AGE_RANGE",
			Message: fmt.Sprintf("Age range minimum %d is greater than maximum %d", lo, hi),
		}}
	}

	if obs := scope.Observed; obs != nil && (lo < obs.Min || hi > obs.Max) {
		return []model.Message{{
			Level:   model.LevelWarning,
			Code:    "AGE_RANGE_OUTSIDE_OBSERVED",
			Message: fmt.Sprintf("Age range %d-%d exceeds the observed range %d-%d", lo, hi, obs.Min, obs.Max),
		}}
	}
	return nil
}

func (h *SetAgeRangeHandler) Apply(scope *Scope, ev *model.Event) []model.Message {
	scope.State = scope.State.WithAge(filter.AgeRange{Min: *ev.Min, Max: *ev.Max})
	return nil
}
