// Package engine turns a store snapshot and a filter state into a
// rendered dashboard and memoizes the result.
package engine

import (
	"context"
	"log/slog"
	"strconv"
	"time"

	json "github.com/goccy/go-json"
	"github.com/google/uuid"
	"go.opentelemetry.io/otel"
	"go.opentelemetry.io/otel/attribute"
	"go.opentelemetry.io/otel/trace"

	"portfolio-engine/internal/aggregate"
	"portfolio-engine/internal/binschema"
	"portfolio-engine/internal/cache"
	"portfolio-engine/internal/filter"
	"portfolio-engine/internal/join"
	"portfolio-engine/internal/model"
	"portfolio-engine/internal/observability"
	"portfolio-engine/internal/store"
)

var tracer = otel.Tracer("portfolio.engine")

// Recompute triggers, used as the metrics label.
const (
	TriggerRender = "render"
	TriggerEvent  = "event"
	TriggerReset  = "reset"
)

// Compute runs the evaluator, the aggregator and the join projector in
// that order. It never fails: empty collections yield zero counts.
func Compute(ctx context.Context, snap store.Snapshot, st filter.State, reg *binschema.Registry) model.Dashboard {
	_, span := tracer.Start(ctx, "filter.Evaluate",
		trace.WithAttributes(attribute.Int("clients.total", len(snap.Clients))))
	filtered := filter.Evaluate(snap.Clients, st, reg)
	span.SetAttributes(attribute.Int("clients.filtered", len(filtered)))
	span.End()

	_, span = tracer.Start(ctx, "aggregate.Charts")
	charts := aggregate.Charts(filtered, reg)
	options := aggregate.Options(snap.Clients, reg)
	span.End()

	_, span = tracer.Start(ctx, "join.Apply")
	deps := join.Apply(filtered, snap.Policies, snap.Claims, snap.Complaints).Summary()
	span.SetAttributes(
		attribute.Int("policies", deps.Policies),
		attribute.Int("claims", deps.Claims),
		attribute.Int("complaints", deps.Complaints),
	)
	span.End()

	return model.Dashboard{
		StoreVersion:    snap.Version,
		StateKey:        st.Key(),
		TotalClients:    len(snap.Clients),
		FilteredClients: len(filtered),
		Charts:          charts,
		Dependents:      deps,
		Options:         options,
	}
}

// Engine renders dashboards through a memo keyed by store version and
// filter state key. The same inputs always give the same dashboard, so a
// hit is indistinguishable from a recomputation.
type Engine struct {
	registry *binschema.Registry
	memo     cache.Cache
	metrics  *observability.Metrics
	// store versions are per process; the epoch keeps instances sharing a
	// Redis memo from reading each other's entries
	epoch string
}

func New(reg *binschema.Registry, memo cache.Cache, metrics *observability.Metrics) *Engine {
	if reg == nil {
		reg = binschema.Default()
	}
	if memo == nil {
		memo = cache.NewMemory(0)
	}
	return &Engine{
		registry: reg,
		memo:     memo,
		metrics:  metrics,
		epoch:    uuid.NewString()[:8],
	}
}

func (e *Engine) Registry() *binschema.Registry {
	return e.registry
}

// Render returns the dashboard for st over snap, from the memo when
// possible. Memo failures are logged and fall back to recomputation.
func (e *Engine) Render(ctx context.Context, snap store.Snapshot, st filter.State, trigger string) model.Dashboard {
	ctx, span := tracer.Start(ctx, "engine.Render",
		trace.WithAttributes(
			attribute.String("trigger", trigger),
			attribute.Int64("store.version", int64(snap.Version)),
		),
	)
	defer span.End()

	key := e.memoKey(snap.Version, st.Key())
	if raw, ok := e.memo.Get(ctx, key); ok {
		var d model.Dashboard
		err := json.Unmarshal(raw, &d)
		if err == nil {
			e.metrics.MemoLookup(true)
			span.SetAttributes(attribute.Bool("memo.hit", true))
			return d
		}
		slog.Warn("discarding undecodable memo entry", "key", key, "error", err)
	}
	e.metrics.MemoLookup(false)
	span.SetAttributes(attribute.Bool("memo.hit", false))

	start := time.Now()
	d := Compute(ctx, snap, st, e.registry)
	e.metrics.ObserveRecompute(trigger, time.Since(start))

	raw, err := json.Marshal(d)
	if err != nil {
		slog.Warn("dashboard not memoized", "key", key, "error", err)
		return d
	}
	if err := e.memo.Set(ctx, key, raw); err != nil {
		slog.Warn("dashboard not memoized", "key", key, "error", err)
	}
	return d
}

func (e *Engine) memoKey(version uint64, stateKey string) string {
	return "dashboard:" + e.epoch + ":" + strconv.FormatUint(version, 10) + ":" + stateKey
}
