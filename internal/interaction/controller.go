package interaction

import (
	"context"
	"errors"
	"fmt"
	"strings"
	"time"

	"github.com/go-playground/validator/v10"

	"portfolio-engine/internal/engine"
	"portfolio-engine/internal/filter"
	"portfolio-engine/internal/model"
	"portfolio-engine/internal/store"
)

var eventValidate = validator.New()

// Result is the outcome of one batch of events.
type Result struct {
	State     filter.State
	Messages  []model.Message
	Processed []model.ProcessedEvent
	Outcome   string
	Dashboard model.Dashboard
	Duration  time.Duration
}

// Controller runs event batches against a filter state and re-renders the
// dashboard once per batch.
type Controller struct {
	engine *engine.Engine
}

func NewController(e *engine.Engine) *Controller {
	return &Controller{engine: e}
}

// Process validates and applies events in order. The first critical
// message stops the batch; the returned state is the one produced by the
// last event applied before it.
func (c *Controller) Process(ctx context.Context, snap store.Snapshot, st filter.State, events []model.Event) Result {
	start := time.Now()

	scope := &Scope{State: st, Registry: c.engine.Registry()}
	if r, ok := filter.ObservedAgeRange(snap.Clients); ok {
		scope.Observed = &r
	}

	var allMessages []model.Message
	var processed []model.ProcessedEvent
	outcome := model.OutcomeSuccess
	trigger := engine.TriggerEvent

	for i := range events {
		ev := &events[i]
		var msgIndexes []int
		hasCritical := false

		record := func(msgs []model.Message) {
			for _, m := range msgs {
				m.ID = len(allMessages)
				allMessages = append(allMessages, m)
				msgIndexes = append(msgIndexes, m.ID)
				if m.Level == model.LevelCritical {
					hasCritical = true
				}
			}
		}

		handler, ok := Get(ev.Type)
		if !ok {
			record([]model.Message{{
				Level:   model.LevelCritical,
				Code:    "UNKNOWN_EVENT",
				Message: fmt.Sprintf("Unknown event type: %q", ev.Type),
			}})
		} else if err := eventValidate.Struct(ev); err != nil {
			record([]model.Message{invalidEvent(err)})
		} else {
			record(handler.Validate(scope, ev))
			if !hasCritical {
				record(handler.Apply(scope, ev))
			}
		}

		processed = append(processed, model.ProcessedEvent{
			Event:          *ev,
			MessageIndexes: msgIndexes,
		})

		if hasCritical {
			outcome = model.OutcomeFailure
			break
		}
		if ev.Type == model.EventReset {
			trigger = engine.TriggerReset
		} else {
			trigger = engine.TriggerEvent
		}
	}

	if allMessages == nil {
		allMessages = []model.Message{}
	}
	if processed == nil {
		processed = []model.ProcessedEvent{}
	}

	return Result{
		State:     scope.State,
		Messages:  allMessages,
		Processed: processed,
		Outcome:   outcome,
		Dashboard: c.engine.Render(ctx, snap, scope.State, trigger),
		Duration:  time.Since(start),
	}
}

// Render re-renders st without applying any event.
func (c *Controller) Render(ctx context.Context, snap store.Snapshot, st filter.State) Result {
	start := time.Now()
	return Result{
		State:     st,
		Messages:  []model.Message{},
		Processed: []model.ProcessedEvent{},
		Outcome:   model.OutcomeSuccess,
		Dashboard: c.engine.Render(ctx, snap, st, engine.TriggerRender),
		Duration:  time.Since(start),
	}
}

// Toggle is a single toggle event.
func (c *Controller) Toggle(ctx context.Context, snap store.Snapshot, st filter.State, f model.Facet, value string) Result {
	return c.Process(ctx, snap, st, []model.Event{{Type: model.EventToggle, Facet: f, Value: value}})
}

// Reset is a single reset event.
func (c *Controller) Reset(ctx context.Context, snap store.Snapshot, st filter.State) Result {
	return c.Process(ctx, snap, st, []model.Event{{Type: model.EventReset}})
}

func invalidEvent(err error) model.Message {
	msg := err.Error()
	var verrs validator.ValidationErrors
	if errors.As(err, &verrs) {
		fields := make([]string, 0, len(verrs))
		for _, fe := range verrs {
			fields = append(fields, fmt.Sprintf("%s (%s)", strings.ToLower(fe.Field()), fe.Tag()))
		}
		msg = "Invalid event fields: " + strings.Join(fields, ", ")
	}
	return model.Message{
		Level:   model.LevelCritical,
		Code:    "INVALID_EVENT",
		Message: msg,
	}
}
