// Package store keeps the raw entity collections in memory and replaces
// them atomically as loads complete.
package store

import (
	"context"
	"errors"
	"log/slog"
	"sync"

	"portfolio-engine/internal/model"
	"portfolio-engine/internal/observability"
	"portfolio-engine/internal/source"
)

var ErrClientNotFound = errors.New("client not found")

// Snapshot is an immutable view of the store at one version. Callers must
// not modify the slices.
type Snapshot struct {
	Version          uint64
	Clients          []model.Client
	Policies         []model.Policy
	Claims           []model.Claim
	Complaints       []model.Complaint
	ClientsLoaded    bool
	DependentsLoaded bool
}

type Store struct {
	mu      sync.RWMutex
	snap    Snapshot
	metrics *observability.Metrics
}

func New(metrics *observability.Metrics) *Store {
	return &Store{
		snap: Snapshot{
			Clients:    []model.Client{},
			Policies:   []model.Policy{},
			Claims:     []model.Claim{},
			Complaints: []model.Complaint{},
		},
		metrics: metrics,
	}
}

func (s *Store) Snapshot() Snapshot {
	s.mu.RLock()
	defer s.mu.RUnlock()
	return s.snap
}

func (s *Store) Version() uint64 {
	s.mu.RLock()
	defer s.mu.RUnlock()
	return s.snap.Version
}

// SetClients replaces the client collection and bumps the version.
func (s *Store) SetClients(clients []model.Client) uint64 {
	if clients == nil {
		clients = []model.Client{}
	}
	s.mu.Lock()
	defer s.mu.Unlock()
	s.snap.Clients = clients
	s.snap.ClientsLoaded = true
	return s.bump()
}

// SetDependents replaces policies, claims and complaints together.
func (s *Store) SetDependents(policies []model.Policy, claims []model.Claim, complaints []model.Complaint) uint64 {
	if policies == nil {
		policies = []model.Policy{}
	}
	if claims == nil {
		claims = []model.Claim{}
	}
	if complaints == nil {
		complaints = []model.Complaint{}
	}
	s.mu.Lock()
	defer s.mu.Unlock()
	s.snap.Policies = policies
	s.snap.Claims = claims
	s.snap.Complaints = complaints
	s.snap.DependentsLoaded = true
	return s.bump()
}

// bump must be called with mu held.
func (s *Store) bump() uint64 {
	s.snap.Version++
	s.metrics.SetStoreVersion(s.snap.Version)
	return s.snap.Version
}

func (s *Store) Client(code int) (model.Client, error) {
	s.mu.RLock()
	defer s.mu.RUnlock()
	for _, c := range s.snap.Clients {
		if c.Code == code {
			return c, nil
		}
	}
	return model.Client{}, ErrClientNotFound
}

// LoadReport tells which of the two independent loads failed.
type LoadReport struct {
	ClientsErr    error
	DependentsErr error
}

func (r LoadReport) Err() error {
	return errors.Join(r.ClientsErr, r.DependentsErr)
}

// Load fetches clients and dependents from src concurrently. Each side is
// applied as soon as it completes; a failed side leaves its collections as
// they were.
func (s *Store) Load(ctx context.Context, src source.Source) LoadReport {
	var (
		wg     sync.WaitGroup
		report LoadReport
	)

	wg.Add(2)
	go func() {
		defer wg.Done()
		clients, err := src.ListClients(ctx)
		if err != nil {
			report.ClientsErr = err
			s.metrics.LoadFailed("clients")
			slog.Error("client load failed", "error", err)
			return
		}
		v := s.SetClients(clients)
		slog.Info("clients loaded", "count", len(clients), "store_version", v)
	}()
	go func() {
		defer wg.Done()
		if err := s.loadDependents(ctx, src); err != nil {
			report.DependentsErr = err
			s.metrics.LoadFailed("dependents")
			slog.Error("dependent load failed", "error", err)
		}
	}()
	wg.Wait()
	return report
}

func (s *Store) loadDependents(ctx context.Context, src source.Source) error {
	policies, err := src.ListPolicies(ctx)
	if err != nil {
		return err
	}
	claims, err := src.ListClaims(ctx)
	if err != nil {
		return err
	}
	complaints, err := src.ListComplaints(ctx)
	if err != nil {
		return err
	}
	v := s.SetDependents(policies, claims, complaints)
	slog.Info("dependents loaded",
		"policies", len(policies), "claims", len(claims), "complaints", len(complaints), "store_version", v)
	return nil
}
