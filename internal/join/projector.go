// Package join projects a filtered client subset onto the collections that
// reference clients by client code.
package join

import (
	"portfolio-engine/internal/aggregate"
	"portfolio-engine/internal/model"
)

// Linked is a record owned by a client.
type Linked interface {
	ClientKey() int
	Category() (product, needArea string)
}

// Keys returns the set of client codes in clients.
func Keys(clients []model.Client) map[int]struct{} {
	keys := make(map[int]struct{}, len(clients))
	for _, c := range clients {
		keys[c.Code] = struct{}{}
	}
	return keys
}

// Project keeps the items whose client key is in keys, in input order.
// Items pointing at unknown clients are dropped.
func Project[T Linked](keys map[int]struct{}, items []T) []T {
	out := make([]T, 0, len(items))
	for _, it := range items {
		if _, ok := keys[it.ClientKey()]; ok {
			out = append(out, it)
		}
	}
	return out
}

// Result holds the dependent records of a client subset.
type Result struct {
	Policies   []model.Policy
	Claims     []model.Claim
	Complaints []model.Complaint
}

// Apply projects policies, claims and complaints onto clients.
func Apply(clients []model.Client, policies []model.Policy, claims []model.Claim, complaints []model.Complaint) Result {
	keys := Keys(clients)
	return Result{
		Policies:   Project(keys, policies),
		Claims:     Project(keys, claims),
		Complaints: Project(keys, complaints),
	}
}

// ForClient projects the records of a single client.
func ForClient(code int, policies []model.Policy, claims []model.Claim, complaints []model.Complaint) Result {
	keys := map[int]struct{}{code: {}}
	return Result{
		Policies:   Project(keys, policies),
		Claims:     Project(keys, claims),
		Complaints: Project(keys, complaints),
	}
}

// ByProduct counts items per product, skipping blank products.
func ByProduct[T Linked](items []T) []model.Bucket {
	var c aggregate.Counter
	for _, it := range items {
		product, _ := it.Category()
		c.Add(product)
	}
	return c.Buckets()
}

// ByNeedArea counts items per need area, skipping blank need areas.
func ByNeedArea[T Linked](items []T) []model.Bucket {
	var c aggregate.Counter
	for _, it := range items {
		_, area := it.Category()
		c.Add(area)
	}
	return c.Buckets()
}

// Summary derives the secondary charts of r.
func (r Result) Summary() model.Dependents {
	return model.Dependents{
		Policies:            len(r.Policies),
		Claims:              len(r.Claims),
		Complaints:          len(r.Complaints),
		PoliciesByProduct:   ByProduct(r.Policies),
		PoliciesByNeedArea:  ByNeedArea(r.Policies),
		ClaimsByProduct:     ByProduct(r.Claims),
		ComplaintsByProduct: ByProduct(r.Complaints),
	}
}
