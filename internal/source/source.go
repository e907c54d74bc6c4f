// Package source defines where the entity collections come from.
package source

import (
	"context"
	"fmt"

	"portfolio-engine/internal/model"
)

// Source lists the raw collections. Implementations return whole
// collections; filtering happens in memory.
type Source interface {
	ListClients(ctx context.Context) ([]model.Client, error)
	ListPolicies(ctx context.Context) ([]model.Policy, error)
	ListClaims(ctx context.Context) ([]model.Claim, error)
	ListComplaints(ctx context.Context) ([]model.Complaint, error)
	ListNotes(ctx context.Context, clientCode int) ([]model.Note, error)
}

// Data is a full copy of every collection, used for snapshots.
type Data struct {
	Clients    []model.Client
	Policies   []model.Policy
	Claims     []model.Claim
	Complaints []model.Complaint
	Notes      []model.Note
}

// Collect reads every collection from src, including the notes of every
// client, so the result can be written as a snapshot.
func Collect(ctx context.Context, src Source) (Data, error) {
	var (
		d   Data
		err error
	)
	if d.Clients, err = src.ListClients(ctx); err != nil {
		return Data{}, fmt.Errorf("list clients: %w", err)
	}
	if d.Policies, err = src.ListPolicies(ctx); err != nil {
		return Data{}, fmt.Errorf("list policies: %w", err)
	}
	if d.Claims, err = src.ListClaims(ctx); err != nil {
		return Data{}, fmt.Errorf("list claims: %w", err)
	}
	if d.Complaints, err = src.ListComplaints(ctx); err != nil {
		return Data{}, fmt.Errorf("list complaints: %w", err)
	}
	for _, c := range d.Clients {
		notes, err := src.ListNotes(ctx, c.Code)
		if err != nil {
			return Data{}, fmt.Errorf("list notes for client %d: %w", c.Code, err)
		}
		d.Notes = append(d.Notes, notes...)
	}
	return d, nil
}

// Static serves a fixed data set. Err, when set, is returned by every call.
type Static struct {
	Data Data
	Err  error
}

func (s Static) ListClients(context.Context) ([]model.Client, error) {
	return s.Data.Clients, s.Err
}

func (s Static) ListPolicies(context.Context) ([]model.Policy, error) {
	return s.Data.Policies, s.Err
}

func (s Static) ListClaims(context.Context) ([]model.Claim, error) {
	return s.Data.Claims, s.Err
}

func (s Static) ListComplaints(context.Context) ([]model.Complaint, error) {
	return s.Data.Complaints, s.Err
}

func (s Static) ListNotes(_ context.Context, clientCode int) ([]model.Note, error) {
	if s.Err != nil {
		return nil, s.Err
	}
	out := []model.Note{}
	for _, n := range s.Data.Notes {
		if n.ClientCode == clientCode {
			out = append(out, n)
		}
	}
	return out, nil
}
