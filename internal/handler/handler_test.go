package handler

import (
	"context"
	"errors"
	"testing"
	"time"

	json "github.com/goccy/go-json"
	"github.com/prometheus/client_golang/prometheus"
	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
	"github.com/valyala/fasthttp"

	"portfolio-engine/internal/binschema"
	"portfolio-engine/internal/engine"
	"portfolio-engine/internal/interaction"
	"portfolio-engine/internal/jsonpatch"
	"portfolio-engine/internal/model"
	"portfolio-engine/internal/observability"
	"portfolio-engine/internal/session"
	"portfolio-engine/internal/source"
	"portfolio-engine/internal/store"
)

var testData = source.Data{
	Clients: []model.Client{
		{Code: 1, FirstName: "Anna", Age: 30, Income: 15000, Profession: "Eng", PropensityLife: 0.3, PropensityNonLife: 0.2},
		{Code: 2, FirstName: "Luca", Age: 45, Income: 25000, Profession: "Doc", PropensityLife: 0.8, PropensityNonLife: model.Undefined()},
	},
	Policies:   []model.Policy{{ID: 10, ClientCode: 1, Product: "Vita", SinglePremium: model.Undefined()}, {ID: 11, ClientCode: 2, Product: "Casa"}},
	Claims:     []model.Claim{{ID: 20, ClientCode: 2, Product: "Casa"}},
	Complaints: []model.Complaint{},
	Notes:      []model.Note{{ClientCode: 1, Lines: []string{"call back"}}},
}

type fixture struct {
	h     *Handler
	store *store.Store
}

func newFixture(t *testing.T, notes source.Source) fixture {
	t.Helper()
	m := observability.NewMetrics(prometheus.NewRegistry())
	st := store.New(m)
	src := source.Static{Data: testData}
	require.NoError(t, st.Load(context.Background(), src).Err())

	ctrl := interaction.NewController(engine.New(binschema.Default(), nil, m))
	mgr := session.NewManager(st, ctrl, time.Minute, m)
	t.Cleanup(mgr.Stop)

	h := New(Options{
		Sessions: mgr,
		Store:    st,
		Notes:    notes,
		Metrics:  m,
		Reload: func(ctx context.Context) store.LoadReport {
			return st.Load(ctx, src)
		},
	})
	return fixture{h: h, store: st}
}

func do(h *Handler, method, uri, body string) *fasthttp.RequestCtx {
	var ctx fasthttp.RequestCtx
	ctx.Request.Header.SetMethod(method)
	ctx.Request.SetRequestURI(uri)
	if body != "" {
		ctx.Request.SetBodyString(body)
	}
	h.Handle(&ctx)
	return &ctx
}

func decode[T any](t *testing.T, ctx *fasthttp.RequestCtx) T {
	t.Helper()
	var v T
	require.NoError(t, json.Unmarshal(ctx.Response.Body(), &v), string(ctx.Response.Body()))
	return v
}

func createSession(t *testing.T, h *Handler) model.SessionResponse {
	t.Helper()
	ctx := do(h, fasthttp.MethodPost, "/sessions", "")
	require.Equal(t, fasthttp.StatusCreated, ctx.Response.StatusCode())
	return decode[model.SessionResponse](t, ctx)
}

func TestHealth(t *testing.T) {
	f := newFixture(t, nil)
	ctx := do(f.h, fasthttp.MethodGet, "/health", "")
	require.Equal(t, fasthttp.StatusOK, ctx.Response.StatusCode())
	resp := decode[model.HealthResponse](t, ctx)
	assert.Equal(t, "ok", resp.Status)
	assert.Equal(t, 2, resp.Clients)
}

func TestCreateSession(t *testing.T) {
	f := newFixture(t, nil)
	resp := createSession(t, f.h)

	assert.NotEmpty(t, resp.Metadata.SessionID)
	assert.NotEmpty(t, resp.Metadata.CalculationID)
	assert.Equal(t, model.OutcomeSuccess, resp.Metadata.CalculationOutcome)
	require.NotNil(t, resp.Dashboard)
	assert.Equal(t, 2, resp.Dashboard.FilteredClients)
	assert.JSONEq(t, `{"age_range": {"min": 30, "max": 45}}`, string(resp.State))
	assert.Empty(t, resp.Patch)
}

func TestEventsAndDiff(t *testing.T) {
	f := newFixture(t, nil)
	id := createSession(t, f.h).Metadata.SessionID

	ctx := do(f.h, fasthttp.MethodPost, "/sessions/"+id+"/events?diff=true",
		`{"events": [{"type": "toggle", "facet": "profession", "value": "Eng"}]}`)
	require.Equal(t, fasthttp.StatusOK, ctx.Response.StatusCode(), string(ctx.Response.Body()))
	resp := decode[model.SessionResponse](t, ctx)

	assert.Equal(t, 1, resp.Dashboard.FilteredClients)
	require.Len(t, resp.Events, 1)

	var ops []map[string]any
	require.NoError(t, json.Unmarshal(resp.Patch, &ops))
	assert.Contains(t, ops, map[string]any{"op": jsonpatch.OpReplace, "path": "/filtered_clients", "value": float64(1)})

	ctx = do(f.h, fasthttp.MethodGet, "/sessions/"+id, "")
	require.Equal(t, fasthttp.StatusOK, ctx.Response.StatusCode())
	resp = decode[model.SessionResponse](t, ctx)
	assert.JSONEq(t, `{"age_range": {"min": 30, "max": 45}, "professions": ["Eng"]}`, string(resp.State))
}

func TestEventFailureIsReportedInBody(t *testing.T) {
	f := newFixture(t, nil)
	id := createSession(t, f.h).Metadata.SessionID

	ctx := do(f.h, fasthttp.MethodPost, "/sessions/"+id+"/events",
		`{"events": [{"type": "toggle", "facet": "income", "value": "lots"}]}`)
	require.Equal(t, fasthttp.StatusOK, ctx.Response.StatusCode())
	resp := decode[model.SessionResponse](t, ctx)
	assert.Equal(t, model.OutcomeFailure, resp.Metadata.CalculationOutcome)
	require.Len(t, resp.Messages, 1)
	assert.Equal(t, "UNKNOWN_BIN", resp.Messages[0].Code)
}

func TestResetSession(t *testing.T) {
	f := newFixture(t, nil)
	id := createSession(t, f.h).Metadata.SessionID
	do(f.h, fasthttp.MethodPost, "/sessions/"+id+"/events",
		`{"events": [{"type": "set_age_range", "min": 40, "max": 50}]}`)

	ctx := do(f.h, fasthttp.MethodPost, "/sessions/"+id+"/reset", "")
	require.Equal(t, fasthttp.StatusOK, ctx.Response.StatusCode())
	resp := decode[model.SessionResponse](t, ctx)
	assert.Equal(t, 2, resp.Dashboard.FilteredClients)
}

func TestBadRequests(t *testing.T) {
	f := newFixture(t, nil)
	id := createSession(t, f.h).Metadata.SessionID

	tests := []struct {
		name   string
		method string
		uri    string
		body   string
		status int
	}{
		{"malformed body", fasthttp.MethodPost, "/sessions/" + id + "/events", `{"events":`, fasthttp.StatusBadRequest},
		{"no events", fasthttp.MethodPost, "/sessions/" + id + "/events", `{"events": []}`, fasthttp.StatusBadRequest},
		{"unknown session", fasthttp.MethodGet, "/sessions/nope", "", fasthttp.StatusNotFound},
		{"unknown session events", fasthttp.MethodPost, "/sessions/nope/events", `{"events": [{"type": "reset"}]}`, fasthttp.StatusNotFound},
		{"wrong method", fasthttp.MethodGet, "/sessions", "", fasthttp.StatusMethodNotAllowed},
		{"wrong method on session", fasthttp.MethodPut, "/sessions/" + id, "", fasthttp.StatusMethodNotAllowed},
		{"bad client code", fasthttp.MethodGet, "/clients/abc", "", fasthttp.StatusBadRequest},
		{"unknown client", fasthttp.MethodGet, "/clients/99", "", fasthttp.StatusNotFound},
		{"unknown path", fasthttp.MethodGet, "/nowhere", "", fasthttp.StatusNotFound},
	}
	for _, tt := range tests {
		t.Run(tt.name, func(t *testing.T) {
			ctx := do(f.h, tt.method, tt.uri, tt.body)
			assert.Equal(t, tt.status, ctx.Response.StatusCode())
			resp := decode[model.ErrorResponse](t, ctx)
			assert.Equal(t, tt.status, resp.Status)
			assert.NotEmpty(t, resp.Message)
		})
	}
}

func TestDeleteSession(t *testing.T) {
	f := newFixture(t, nil)
	id := createSession(t, f.h).Metadata.SessionID

	ctx := do(f.h, fasthttp.MethodDelete, "/sessions/"+id, "")
	assert.Equal(t, fasthttp.StatusNoContent, ctx.Response.StatusCode())
	ctx = do(f.h, fasthttp.MethodDelete, "/sessions/"+id, "")
	assert.Equal(t, fasthttp.StatusNotFound, ctx.Response.StatusCode())
}

func TestClientDetails(t *testing.T) {
	f := newFixture(t, nil)
	ctx := do(f.h, fasthttp.MethodGet, "/clients/2", "")
	require.Equal(t, fasthttp.StatusOK, ctx.Response.StatusCode())

	d := decode[model.ClientDetails](t, ctx)
	assert.Equal(t, "Luca", d.Client.FirstName)
	assert.False(t, d.Client.PropensityNonLife.Valid())
	require.Len(t, d.Policies, 1)
	assert.Equal(t, 11, d.Policies[0].ID)
	assert.Len(t, d.Claims, 1)
	assert.Empty(t, d.Complaints)
}

func TestClientNotes(t *testing.T) {
	f := newFixture(t, source.Static{Data: testData})
	ctx := do(f.h, fasthttp.MethodGet, "/clients/1/notes", "")
	require.Equal(t, fasthttp.StatusOK, ctx.Response.StatusCode())
	notes := decode[[]model.Note](t, ctx)
	require.Len(t, notes, 1)
	assert.Equal(t, []string{"call back"}, notes[0].Lines)
}

func TestClientNotesRelayFailure(t *testing.T) {
	f := newFixture(t, source.Static{Err: errors.New("upstream down")})
	ctx := do(f.h, fasthttp.MethodGet, "/clients/1/notes", "")
	assert.Equal(t, fasthttp.StatusBadGateway, ctx.Response.StatusCode())
}

func TestReload(t *testing.T) {
	f := newFixture(t, nil)
	before := f.store.Version()

	ctx := do(f.h, fasthttp.MethodPost, "/admin/reload", "")
	require.Equal(t, fasthttp.StatusOK, ctx.Response.StatusCode())
	resp := decode[model.ReloadResponse](t, ctx)
	assert.Equal(t, before+2, resp.StoreVersion)
	assert.Empty(t, resp.ClientsError)
}

func TestMetricsEndpoint(t *testing.T) {
	f := newFixture(t, nil)
	createSession(t, f.h)
	ctx := do(f.h, fasthttp.MethodGet, "/metrics", "")
	require.Equal(t, fasthttp.StatusOK, ctx.Response.StatusCode())
	assert.Contains(t, string(ctx.Response.Body()), "portfolio_sessions_active")
}
