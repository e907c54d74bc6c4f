package remote

import "portfolio-engine/internal/model"

// The remote API speaks the back office's field names. Optional numeric
// fields are pointers so an absent field decodes as undefined rather
// than zero.

type apiClient struct {
	Code              int           `json:"codice_cliente"`
	FirstName         string        `json:"nome"`
	LastName          string        `json:"cognome"`
	Age               *model.Number `json:"eta"`
	BirthPlace        string        `json:"luogo_di_nascita"`
	Residence         string        `json:"luogo_di_residenza"`
	Profession        string        `json:"professione"`
	Income            *model.Number `json:"reddito"`
	HouseholdIncome   *model.Number `json:"reddito_familiare"`
	Children          *model.Number `json:"numero_figli"`
	MaritalStatus     string        `json:"stato_civile"`
	PropensityLife    *model.Number `json:"propensione_acquisto_prodotti_vita"`
	PropensityNonLife *model.Number `json:"propensione_acquisto_prodotti_danni"`
	Zone              string        `json:"zona_di_residenza"`
	Agency            string        `json:"agenzia"`
}

type apiPolicy struct {
	ID               int           `json:"id"`
	ClientCode       int           `json:"codice_cliente"`
	Product          string        `json:"prodotto"`
	NeedArea         string        `json:"area_di_bisogno"`
	IssuedOn         string        `json:"data_di_emissione"`
	RecurringPremium *model.Number `json:"premio_ricorrente"`
	SinglePremium    *model.Number `json:"premio_unico"`
	RevaluedCapital  *model.Number `json:"capitale_rivalutato"`
	Ceiling          *model.Number `json:"massimale"`
}

type apiClaim struct {
	ID          int    `json:"id"`
	ClientCode  int    `json:"codice_cliente"`
	Product     string `json:"prodotto"`
	NeedArea    string `json:"area_di_bisogno"`
	Description string `json:"sinistro"`
}

type apiComplaint struct {
	ID         int    `json:"id"`
	ClientCode int    `json:"codice_cliente"`
	Product    string `json:"prodotto"`
	NeedArea   string `json:"area_di_bisogno"`
	Text       string `json:"reclami_e_info"`
}

type apiNote struct {
	ClientCode int      `json:"codice_cliente"`
	FirstName  string   `json:"nome"`
	LastName   string   `json:"cognome"`
	Notes      []string `json:"note"`
}

func num(n *model.Number) model.Number {
	if n == nil {
		return model.Undefined()
	}
	return *n
}

func (c apiClient) toModel() model.Client {
	return model.Client{
		Code:              c.Code,
		FirstName:         c.FirstName,
		LastName:          c.LastName,
		Age:               num(c.Age),
		BirthPlace:        c.BirthPlace,
		Residence:         c.Residence,
		Profession:        c.Profession,
		Income:            num(c.Income),
		HouseholdIncome:   num(c.HouseholdIncome),
		Children:          num(c.Children),
		MaritalStatus:     c.MaritalStatus,
		PropensityLife:    num(c.PropensityLife),
		PropensityNonLife: num(c.PropensityNonLife),
		Zone:              c.Zone,
		Agency:            c.Agency,
	}
}

func (p apiPolicy) toModel() model.Policy {
	return model.Policy{
		ID:               p.ID,
		ClientCode:       p.ClientCode,
		Product:          p.Product,
		NeedArea:         p.NeedArea,
		IssuedOn:         p.IssuedOn,
		RecurringPremium: num(p.RecurringPremium),
		SinglePremium:    num(p.SinglePremium),
		RevaluedCapital:  num(p.RevaluedCapital),
		Ceiling:          num(p.Ceiling),
	}
}

func (c apiClaim) toModel() model.Claim {
	return model.Claim{ID: c.ID, ClientCode: c.ClientCode, Product: c.Product, NeedArea: c.NeedArea, Description: c.Description}
}

func (c apiComplaint) toModel() model.Complaint {
	return model.Complaint{ID: c.ID, ClientCode: c.ClientCode, Product: c.Product, NeedArea: c.NeedArea, Text: c.Text}
}

func (n apiNote) toModel() model.Note {
	return model.Note{ClientCode: n.ClientCode, FirstName: n.FirstName, LastName: n.LastName, Lines: n.Notes}
}
