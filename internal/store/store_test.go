package store

import (
	"context"
	"errors"
	"testing"

	"github.com/prometheus/client_golang/prometheus"
	"github.com/prometheus/client_golang/prometheus/testutil"
	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"

	"portfolio-engine/internal/model"
	"portfolio-engine/internal/observability"
	"portfolio-engine/internal/source"
)

// splitSource fails the client side or the dependent side independently.
type splitSource struct {
	source.Static
	clientsErr  error
	policiesErr error
}

func (s splitSource) ListClients(ctx context.Context) ([]model.Client, error) {
	if s.clientsErr != nil {
		return nil, s.clientsErr
	}
	return s.Static.ListClients(ctx)
}

func (s splitSource) ListPolicies(ctx context.Context) ([]model.Policy, error) {
	if s.policiesErr != nil {
		return nil, s.policiesErr
	}
	return s.Static.ListPolicies(ctx)
}

var data = source.Data{
	Clients:    []model.Client{{Code: 1, Age: 30}, {Code: 2, Age: 40}},
	Policies:   []model.Policy{{ID: 1, ClientCode: 1}},
	Claims:     []model.Claim{{ID: 2, ClientCode: 2}},
	Complaints: []model.Complaint{},
}

func TestNewStoreIsEmpty(t *testing.T) {
	s := New(nil)
	snap := s.Snapshot()
	assert.Zero(t, snap.Version)
	assert.NotNil(t, snap.Clients)
	assert.Empty(t, snap.Clients)
	assert.False(t, snap.ClientsLoaded)
}

func TestLoadBothSides(t *testing.T) {
	m := observability.NewMetrics(prometheus.NewRegistry())
	s := New(m)

	report := s.Load(context.Background(), source.Static{Data: data})
	require.NoError(t, report.Err())

	snap := s.Snapshot()
	assert.Equal(t, uint64(2), snap.Version)
	assert.Len(t, snap.Clients, 2)
	assert.Len(t, snap.Policies, 1)
	assert.True(t, snap.ClientsLoaded)
	assert.True(t, snap.DependentsLoaded)
	assert.Equal(t, 2.0, testutil.ToFloat64(m.StoreVersion))
}

func TestFailedClientLoadKeepsPreviousClients(t *testing.T) {
	m := observability.NewMetrics(prometheus.NewRegistry())
	s := New(m)
	s.SetClients([]model.Client{{Code: 99}})

	boom := errors.New("api down")
	report := s.Load(context.Background(), splitSource{Static: source.Static{Data: data}, clientsErr: boom})

	assert.ErrorIs(t, report.ClientsErr, boom)
	assert.NoError(t, report.DependentsErr)

	snap := s.Snapshot()
	require.Len(t, snap.Clients, 1)
	assert.Equal(t, 99, snap.Clients[0].Code)
	assert.Len(t, snap.Policies, 1)
	assert.Equal(t, 1.0, testutil.ToFloat64(m.LoadFailures.WithLabelValues("clients")))
}

func TestFailedDependentLoadLeavesDependentsEmpty(t *testing.T) {
	s := New(nil)
	boom := errors.New("timeout")
	report := s.Load(context.Background(), splitSource{Static: source.Static{Data: data}, policiesErr: boom})

	assert.ErrorIs(t, report.Err(), boom)
	snap := s.Snapshot()
	assert.Len(t, snap.Clients, 2)
	assert.Empty(t, snap.Policies)
	assert.Empty(t, snap.Claims, "claims are not applied when policies fail")
	assert.False(t, snap.DependentsLoaded)
}

func TestClientLookup(t *testing.T) {
	s := New(nil)
	s.SetClients(data.Clients)

	c, err := s.Client(2)
	require.NoError(t, err)
	assert.Equal(t, 2, c.Code)

	_, err = s.Client(3)
	assert.ErrorIs(t, err, ErrClientNotFound)
}

func TestSnapshotIsStableAcrossReplacement(t *testing.T) {
	s := New(nil)
	s.SetClients(data.Clients)
	before := s.Snapshot()

	s.SetClients([]model.Client{{Code: 5}})
	assert.Len(t, before.Clients, 2)
	assert.Equal(t, uint64(1), before.Version)
	assert.Equal(t, uint64(2), s.Version())
}
