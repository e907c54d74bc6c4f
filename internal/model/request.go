package model

const (
	EventToggle      = "toggle"
	EventSetAgeRange = "set_age_range"
	EventReset       = "reset"
)

type EventRequest struct {
	Events []Event `json:"events"`
}

// Event is a single interaction with the dashboard: a chart segment or
// checkbox click (toggle), a slider drag (set_age_range) or a reset.
type Event struct {
	Type  string `json:"type" validate:"required,oneof=toggle set_age_range reset"`
	Facet Facet  `json:"facet,omitempty" validate:"required_if=Type toggle"`
	Value string `json:"value,omitempty"`
	Min   *int   `json:"min,omitempty" validate:"required_if=Type set_age_range"`
	Max   *int   `json:"max,omitempty" validate:"required_if=Type set_age_range"`
}
