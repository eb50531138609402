package diff

import (
	"fmt"
	"sort"

	"github.com/penwyp/go-fleet-replay/internal/core/entity"
	"github.com/penwyp/go-fleet-replay/internal/core/model"
	"github.com/penwyp/go-fleet-replay/internal/util"
)

// DeltaObserver is notified after every delta has been written to the store
type DeltaObserver interface {
	DeltaApplied(e *entity.Entity, delta *model.Delta, forward bool)
}

// EventObserver is notified after all deltas of an event have been written
type EventObserver interface {
	EventApplied(event *model.Event, forward bool)
}

// Engine applies recorded events to an entity store in either direction
type Engine struct {
	store  *entity.Store
	deltas []DeltaObserver
	events []EventObserver
}

// Option configures an Engine
type Option func(*Engine)

// WithDeltaObserver registers a DeltaObserver
func WithDeltaObserver(o DeltaObserver) Option {
	return func(e *Engine) {
		e.deltas = append(e.deltas, o)
	}
}

// WithEventObserver registers an EventObserver
func WithEventObserver(o EventObserver) Option {
	return func(e *Engine) {
		e.events = append(e.events, o)
	}
}

// New creates an engine over store
func New(store *entity.Store, opts ...Option) *Engine {
	e := &Engine{store: store}
	for _, opt := range opts {
		opt(e)
	}
	return e
}

// assignment is one resolved attribute write
type assignment struct {
	name  string
	value interface{}
}

// resolvedDelta is a delta whose values have all been resolved
type resolvedDelta struct {
	target  *entity.Entity
	delta   *model.Delta
	assigns []assignment
}

type resolvedEvent struct {
	event  *model.Event
	deltas []resolvedDelta
}

// ApplyForward writes the new values of event
func (e *Engine) ApplyForward(event *model.Event) error {
	return e.apply([]*model.Event{event}, true)
}

// ApplyBackward writes the old values of event, undoing ApplyForward
func (e *Engine) ApplyBackward(event *model.Event) error {
	return e.apply([]*model.Event{event}, false)
}

// ApplyEntry applies every event of entry, in reverse order when going
// backward. Either the whole entry is applied or nothing is.
func (e *Engine) ApplyEntry(entry *model.ChangeEntry, forward bool) error {
	events := make([]*model.Event, len(entry.Events))
	for i := range entry.Events {
		events[i] = &entry.Events[i]
	}
	if err := e.apply(events, forward); err != nil {
		return fmt.Errorf("entry at %v: %w", entry.Time, err)
	}
	return nil
}

func (e *Engine) apply(events []*model.Event, forward bool) error {
	if !forward {
		events = reversed(events)
	}

	// Resolve everything before the first write so a bad reference leaves
	// the store untouched.
	plan := make([]resolvedEvent, 0, len(events))
	for _, event := range events {
		re, err := e.resolve(event, forward)
		if err != nil {
			util.LogErrorf("Event %q cannot be applied: %v", event.Name, err)
			return fmt.Errorf("event %q: %w", event.Name, err)
		}
		plan = append(plan, re)
	}

	for _, re := range plan {
		for i := range re.deltas {
			rd := &re.deltas[i]
			for _, a := range rd.assigns {
				if err := e.store.ApplyAttribute(rd.target.Type, rd.target.ID, a.name, a.value); err != nil {
					return err
				}
			}
			for _, o := range e.deltas {
				o.DeltaApplied(rd.target, rd.delta, forward)
			}
		}
		for _, o := range e.events {
			o.EventApplied(re.event, forward)
		}
	}
	return nil
}

func (e *Engine) resolve(event *model.Event, forward bool) (resolvedEvent, error) {
	re := resolvedEvent{event: event}
	types := e.order(event)
	if !forward {
		types = reversed(types)
	}

	for _, typ := range types {
		deltas := event.Changes[typ]
		for k := range deltas {
			i := k
			if !forward {
				i = len(deltas) - 1 - k
			}
			delta := &deltas[i]
			target, err := e.store.Get(typ, delta.ID)
			if err != nil {
				return re, err
			}

			rd := resolvedDelta{target: target, delta: delta, assigns: make([]assignment, len(delta.Attributes))}
			for j := range delta.Attributes {
				ac := delta.Attributes[j]
				if !forward {
					ac = delta.Attributes[len(delta.Attributes)-1-j]
				}
				value, err := e.store.Resolve(typ, ac.Name, ac.Value(forward))
				if err != nil {
					return re, fmt.Errorf("%s.%s: %w", target.Key(), ac.Name, err)
				}
				rd.assigns[j] = assignment{name: ac.Name, value: value}
			}
			re.deltas = append(re.deltas, rd)
		}
	}
	return re, nil
}

// order lists the changed types in schema order, then unknown types sorted
func (e *Engine) order(event *model.Event) []string {
	types := make([]string, 0, len(event.Changes))
	for _, name := range e.store.Schema().Names() {
		if _, ok := event.Changes[name]; ok {
			types = append(types, name)
		}
	}
	var rest []string
	for name := range event.Changes {
		if _, known := e.store.Schema().Type(name); !known {
			rest = append(rest, name)
		}
	}
	sort.Strings(rest)
	return append(types, rest...)
}

func reversed[T any](in []T) []T {
	out := make([]T, len(in))
	for i, v := range in {
		out[len(in)-1-i] = v
	}
	return out
}
