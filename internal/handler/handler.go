// Package handler serves the dashboard API over fasthttp.
package handler

import (
	"context"
	"errors"
	"log/slog"
	"strconv"
	"strings"
	"time"

	json "github.com/goccy/go-json"
	"github.com/google/uuid"
	"github.com/valyala/fasthttp"

	"portfolio-engine/internal/join"
	"portfolio-engine/internal/jsonpatch"
	"portfolio-engine/internal/model"
	"portfolio-engine/internal/observability"
	"portfolio-engine/internal/session"
	"portfolio-engine/internal/source"
	"portfolio-engine/internal/store"
)

type Handler struct {
	sessions *session.Manager
	store    *store.Store
	notes    source.Source
	metrics  *observability.Metrics
	reload   func(context.Context) store.LoadReport
}

type Options struct {
	Sessions *session.Manager
	Store    *store.Store
	// Notes serves the per-client notes relay.
	Notes   source.Source
	Metrics *observability.Metrics
	Reload  func(context.Context) store.LoadReport
}

func New(opts Options) *Handler {
	return &Handler{
		sessions: opts.Sessions,
		store:    opts.Store,
		notes:    opts.Notes,
		metrics:  opts.Metrics,
		reload:   opts.Reload,
	}
}

// Handle routes a request. Paths:
//
//	GET    /health
//	GET    /metrics
//	POST   /sessions
//	GET    /sessions/{id}
//	DELETE /sessions/{id}
//	POST   /sessions/{id}/events[?diff=true]
//	POST   /sessions/{id}/reset[?diff=true]
//	GET    /clients/{code}
//	GET    /clients/{code}/notes
//	POST   /admin/reload
func (h *Handler) Handle(ctx *fasthttp.RequestCtx) {
	parts := strings.Split(strings.Trim(string(ctx.Path()), "/"), "/")
	method := string(ctx.Method())

	switch {
	case len(parts) == 1 && parts[0] == "health":
		if allow(ctx, method, fasthttp.MethodGet) {
			h.health(ctx)
		}
	case len(parts) == 1 && parts[0] == "metrics":
		if !allow(ctx, method, fasthttp.MethodGet) {
			return
		}
		if h.metrics == nil {
			writeError(ctx, fasthttp.StatusNotFound, "Metrics are disabled")
			return
		}
		h.metrics.Handler()(ctx)
	case len(parts) == 1 && parts[0] == "sessions":
		if allow(ctx, method, fasthttp.MethodPost) {
			h.createSession(ctx)
		}
	case len(parts) == 2 && parts[0] == "sessions":
		switch method {
		case fasthttp.MethodGet:
			h.getSession(ctx, parts[1])
		case fasthttp.MethodDelete:
			h.deleteSession(ctx, parts[1])
		default:
			allow(ctx, method, fasthttp.MethodGet, fasthttp.MethodDelete)
		}
	case len(parts) == 3 && parts[0] == "sessions" && parts[2] == "events":
		if allow(ctx, method, fasthttp.MethodPost) {
			h.applyEvents(ctx, parts[1])
		}
	case len(parts) == 3 && parts[0] == "sessions" && parts[2] == "reset":
		if allow(ctx, method, fasthttp.MethodPost) {
			h.resetSession(ctx, parts[1])
		}
	case len(parts) == 2 && parts[0] == "clients":
		if allow(ctx, method, fasthttp.MethodGet) {
			h.clientDetails(ctx, parts[1])
		}
	case len(parts) == 3 && parts[0] == "clients" && parts[2] == "notes":
		if allow(ctx, method, fasthttp.MethodGet) {
			h.clientNotes(ctx, parts[1])
		}
	case len(parts) == 2 && parts[0] == "admin" && parts[1] == "reload":
		if allow(ctx, method, fasthttp.MethodPost) {
			h.reloadStore(ctx)
		}
	default:
		writeError(ctx, fasthttp.StatusNotFound, "Not found")
	}
}

func (h *Handler) health(ctx *fasthttp.RequestCtx) {
	snap := h.store.Snapshot()
	writeJSON(ctx, fasthttp.StatusOK, model.HealthResponse{
		Status:         "ok",
		StoreVersion:   snap.Version,
		Clients:        len(snap.Clients),
		ActiveSessions: h.sessions.Len(),
	})
}

func (h *Handler) createSession(ctx *fasthttp.RequestCtx) {
	v := h.sessions.Create(ctx)
	h.writeView(ctx, fasthttp.StatusCreated, v)
}

func (h *Handler) getSession(ctx *fasthttp.RequestCtx, id string) {
	v, err := h.sessions.Get(ctx, id)
	if err != nil {
		writeSessionError(ctx, err)
		return
	}
	h.writeView(ctx, fasthttp.StatusOK, v)
}

func (h *Handler) deleteSession(ctx *fasthttp.RequestCtx, id string) {
	if err := h.sessions.Delete(id); err != nil {
		writeSessionError(ctx, err)
		return
	}
	ctx.SetStatusCode(fasthttp.StatusNoContent)
}

func (h *Handler) applyEvents(ctx *fasthttp.RequestCtx, id string) {
	var req model.EventRequest
	if err := json.Unmarshal(ctx.PostBody(), &req); err != nil {
		writeError(ctx, fasthttp.StatusBadRequest, "Invalid request body: "+err.Error())
		return
	}
	if len(req.Events) == 0 {
		writeError(ctx, fasthttp.StatusBadRequest, "At least one event is required")
		return
	}

	v, err := h.sessions.Apply(ctx, id, req.Events)
	if err != nil {
		writeSessionError(ctx, err)
		return
	}
	h.writeView(ctx, fasthttp.StatusOK, v)
}

func (h *Handler) resetSession(ctx *fasthttp.RequestCtx, id string) {
	v, err := h.sessions.Reset(ctx, id)
	if err != nil {
		writeSessionError(ctx, err)
		return
	}
	h.writeView(ctx, fasthttp.StatusOK, v)
}

func (h *Handler) clientDetails(ctx *fasthttp.RequestCtx, rawCode string) {
	code, ok := parseCode(ctx, rawCode)
	if !ok {
		return
	}
	c, err := h.store.Client(code)
	if err != nil {
		writeError(ctx, fasthttp.StatusNotFound, "Client "+rawCode+" not found")
		return
	}

	snap := h.store.Snapshot()
	deps := join.ForClient(code, snap.Policies, snap.Claims, snap.Complaints)
	writeJSON(ctx, fasthttp.StatusOK, model.ClientDetails{
		Client:     c,
		Policies:   deps.Policies,
		Claims:     deps.Claims,
		Complaints: deps.Complaints,
	})
}

func (h *Handler) clientNotes(ctx *fasthttp.RequestCtx, rawCode string) {
	code, ok := parseCode(ctx, rawCode)
	if !ok {
		return
	}
	if h.notes == nil {
		writeError(ctx, fasthttp.StatusBadGateway, "No notes source configured")
		return
	}
	notes, err := h.notes.ListNotes(ctx, code)
	if err != nil {
		slog.Error("notes relay failed", "client_code", code, "error", err)
		writeError(ctx, fasthttp.StatusBadGateway, "Notes are unavailable: "+err.Error())
		return
	}
	if notes == nil {
		notes = []model.Note{}
	}
	writeJSON(ctx, fasthttp.StatusOK, notes)
}

func (h *Handler) reloadStore(ctx *fasthttp.RequestCtx) {
	if h.reload == nil {
		writeError(ctx, fasthttp.StatusNotFound, "Reload is not configured")
		return
	}
	report := h.reload(ctx)

	resp := model.ReloadResponse{StoreVersion: h.store.Version()}
	if report.ClientsErr != nil {
		resp.ClientsError = report.ClientsErr.Error()
	}
	if report.DependentsErr != nil {
		resp.DependentsError = report.DependentsErr.Error()
	}

	status := fasthttp.StatusOK
	if report.ClientsErr != nil && report.DependentsErr != nil {
		status = fasthttp.StatusBadGateway
	}
	writeJSON(ctx, status, resp)
}

func (h *Handler) writeView(ctx *fasthttp.RequestCtx, status int, v session.View) {
	res := v.Result
	now := time.Now().UTC()

	state, err := json.Marshal(res.State)
	if err != nil {
		writeError(ctx, fasthttp.StatusInternalServerError, "Encode state: "+err.Error())
		return
	}

	resp := model.SessionResponse{
		Metadata: model.CalculationMetadata{
			CalculationID:          uuid.New().String(),
			SessionID:              v.SessionID,
			CalculationStartedAt:   now.Add(-res.Duration).Format(time.RFC3339),
			CalculationCompletedAt: now.Format(time.RFC3339),
			CalculationDurationMs:  res.Duration.Milliseconds(),
			CalculationOutcome:     res.Outcome,
		},
		Messages:  res.Messages,
		Events:    res.Processed,
		State:     state,
		Dashboard: &res.Dashboard,
	}

	if ctx.QueryArgs().GetBool("diff") {
		var prev any
		if v.Previous != nil {
			prev = *v.Previous
		}
		ops, err := jsonpatch.Between(prev, res.Dashboard)
		if err != nil {
			writeError(ctx, fasthttp.StatusInternalServerError, "Diff dashboards: "+err.Error())
			return
		}
		if resp.Patch, err = json.Marshal(ops); err != nil {
			writeError(ctx, fasthttp.StatusInternalServerError, "Encode patch: "+err.Error())
			return
		}
	}

	writeJSON(ctx, status, resp)
}

func parseCode(ctx *fasthttp.RequestCtx, raw string) (int, bool) {
	code, err := strconv.Atoi(raw)
	if err != nil {
		writeError(ctx, fasthttp.StatusBadRequest, "Invalid client code: "+raw)
		return 0, false
	}
	return code, true
}

func allow(ctx *fasthttp.RequestCtx, method string, allowed ...string) bool {
	for _, m := range allowed {
		if method == m {
			return true
		}
	}
	ctx.Response.Header.Set(fasthttp.HeaderAllow, strings.Join(allowed, ", "))
	writeError(ctx, fasthttp.StatusMethodNotAllowed, "Method not allowed")
	return false
}

func writeSessionError(ctx *fasthttp.RequestCtx, err error) {
	if errors.Is(err, session.ErrNotFound) {
		writeError(ctx, fasthttp.StatusNotFound, "Session not found")
		return
	}
	writeError(ctx, fasthttp.StatusInternalServerError, err.Error())
}

func writeJSON(ctx *fasthttp.RequestCtx, status int, v any) {
	body, err := json.Marshal(v)
	if err != nil {
		writeError(ctx, fasthttp.StatusInternalServerError, "Encode response: "+err.Error())
		return
	}
	ctx.SetContentType("application/json")
	ctx.SetStatusCode(status)
	ctx.SetBody(body)
}

func writeError(ctx *fasthttp.RequestCtx, status int, message string) {
	body, _ := json.Marshal(model.ErrorResponse{
		Status:  status,
		Message: message,
	})
	ctx.SetContentType("application/json")
	ctx.SetStatusCode(status)
	ctx.SetBody(body)
}
