package model

import (
	"math"
	"strings"
)

type Client struct {
	Code              int    `json:"code"`
	FirstName         string `json:"first_name"`
	LastName          string `json:"last_name"`
	Age               Number `json:"age"`
	BirthPlace        string `json:"birth_place"`
	Residence         string `json:"residence"`
	Profession        string `json:"profession"`
	Income            Number `json:"income"`
	HouseholdIncome   Number `json:"household_income"`
	Children          Number `json:"children"`
	MaritalStatus     string `json:"marital_status"`
	PropensityLife    Number `json:"propensity_life"`
	PropensityNonLife Number `json:"propensity_non_life"`
	Zone              string `json:"zone"`
	Agency            string `json:"agency"`
}

// Years returns the client's age as whole years. Undefined, negative and
// fractional ages are reported as not ok.
func (c Client) Years() (int, bool) {
	if !c.Age.Valid() {
		return 0, false
	}
	a := c.Age.Float()
	if a < 0 || a != math.Trunc(a) {
		return 0, false
	}
	return int(a), true
}

// HasProfession reports whether the profession is present and non-blank.
func (c Client) HasProfession() bool {
	return strings.TrimSpace(c.Profession) != ""
}

// Value returns the numeric attribute behind a binned facet.
func (c Client) Value(f Facet) Number {
	switch f {
	case FacetAge:
		return c.Age
	case FacetIncome:
		return c.Income
	case FacetPropensityLife:
		return c.PropensityLife
	case FacetPropensityNonLife:
		return c.PropensityNonLife
	}
	return Undefined()
}

type Policy struct {
	ID               int    `json:"id"`
	ClientCode       int    `json:"client_code"`
	Product          string `json:"product"`
	NeedArea         string `json:"need_area"`
	IssuedOn         string `json:"issued_on,omitempty"`
	RecurringPremium Number `json:"recurring_premium"`
	SinglePremium    Number `json:"single_premium"`
	RevaluedCapital  Number `json:"revalued_capital"`
	Ceiling          Number `json:"ceiling"`
}

type Claim struct {
	ID          int    `json:"id"`
	ClientCode  int    `json:"client_code"`
	Product     string `json:"product"`
	NeedArea    string `json:"need_area"`
	Description string `json:"description"`
}

type Complaint struct {
	ID         int    `json:"id"`
	ClientCode int    `json:"client_code"`
	Product    string `json:"product"`
	NeedArea   string `json:"need_area"`
	Text       string `json:"text"`
}

type Note struct {
	ClientCode int      `json:"client_code"`
	FirstName  string   `json:"first_name"`
	LastName   string   `json:"last_name"`
	Lines      []string `json:"notes"`
}

func (p Policy) ClientKey() int    { return p.ClientCode }
func (c Claim) ClientKey() int     { return c.ClientCode }
func (c Complaint) ClientKey() int { return c.ClientCode }

func (p Policy) Category() (string, string)    { return p.Product, p.NeedArea }
func (c Claim) Category() (string, string)     { return c.Product, c.NeedArea }
func (c Complaint) Category() (string, string) { return c.Product, c.NeedArea }
