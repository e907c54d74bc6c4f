package model

import json "github.com/goccy/go-json"

type Bucket struct {
	Label string `json:"label"`
	Count int    `json:"count"`
}

type AgeBucket struct {
	Age   int `json:"age"`
	Count int `json:"count"`
}

// Charts holds one frequency series per facet. Binned series are aligned
// with the labels of their bin schema and include empty bins.
type Charts struct {
	Age               []AgeBucket `json:"age"`
	Profession        []Bucket    `json:"profession"`
	Income            []Bucket    `json:"income"`
	PropensityLife    []Bucket    `json:"propensity_life"`
	PropensityNonLife []Bucket    `json:"propensity_non_life"`
}

// Dependents summarises the policies, claims and complaints owned by the
// filtered clients.
type Dependents struct {
	Policies            int      `json:"policies"`
	Claims              int      `json:"claims"`
	Complaints          int      `json:"complaints"`
	PoliciesByProduct   []Bucket `json:"policies_by_product"`
	PoliciesByNeedArea  []Bucket `json:"policies_by_need_area"`
	ClaimsByProduct     []Bucket `json:"claims_by_product"`
	ComplaintsByProduct []Bucket `json:"complaints_by_product"`
}

// FacetOptions describes what the filter panel can offer, computed over
// the whole client collection.
type FacetOptions struct {
	AgeMin            *int     `json:"age_min"`
	AgeMax            *int     `json:"age_max"`
	Professions       []string `json:"professions"`
	IncomeLabels      []string `json:"income_labels"`
	PropensityLife    []string `json:"propensity_life_labels"`
	PropensityNonLife []string `json:"propensity_non_life_labels"`
}

type Dashboard struct {
	StoreVersion    uint64       `json:"store_version"`
	StateKey        string       `json:"state_key"`
	TotalClients    int          `json:"total_clients"`
	FilteredClients int          `json:"filtered_clients"`
	Charts          Charts       `json:"charts"`
	Dependents      Dependents   `json:"dependents"`
	Options         FacetOptions `json:"options"`
}

type CalculationMetadata struct {
	CalculationID          string `json:"calculation_id"`
	SessionID              string `json:"session_id,omitempty"`
	CalculationStartedAt   string `json:"calculation_started_at"`
	CalculationCompletedAt string `json:"calculation_completed_at"`
	CalculationDurationMs  int64  `json:"calculation_duration_ms"`
	CalculationOutcome     string `json:"calculation_outcome"`
}

type ProcessedEvent struct {
	Event          Event `json:"event"`
	MessageIndexes []int `json:"message_indexes,omitempty"`
}

// SessionResponse is returned by every session endpoint. State is kept as
// raw JSON so the model package does not depend on the filter package.
type SessionResponse struct {
	Metadata  CalculationMetadata `json:"calculation_metadata"`
	Messages  []Message           `json:"messages"`
	Events    []ProcessedEvent    `json:"events"`
	State     json.RawMessage     `json:"state"`
	Dashboard *Dashboard          `json:"dashboard"`
	Patch     json.RawMessage     `json:"patch,omitempty"`
}

type ClientDetails struct {
	Client     Client      `json:"client"`
	Policies   []Policy    `json:"policies"`
	Claims     []Claim     `json:"claims"`
	Complaints []Complaint `json:"complaints"`
}

type ErrorResponse struct {
	Status  int    `json:"status"`
	Message string `json:"message"`
}

const (
	OutcomeSuccess = "SUCCESS"
	OutcomeFailure = "FAILURE"
)

type HealthResponse struct {
	Status         string `json:"status"`
	StoreVersion   uint64 `json:"store_version"`
	Clients        int    `json:"clients"`
	ActiveSessions int    `json:"active_sessions"`
}

type ReloadResponse struct {
	StoreVersion    uint64 `json:"store_version"`
	ClientsError    string `json:"clients_error,omitempty"`
	DependentsError string `json:"dependents_error,omitempty"`
}
