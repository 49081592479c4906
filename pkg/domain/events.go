package domain

import (
	"context"
	"time"
)

// EventType names the operation that produced an event.
type EventType string

const (
	EventSetCell    EventType = "set_cell"
	EventStep       EventType = "step"
	EventReset      EventType = "reset"
	EventResize     EventType = "resize"
	EventSeed       EventType = "seed"
	EventThresholds EventType = "thresholds"
	EventImport     EventType = "import"
)

// LabEvent describes the state right after a successful mutation.
type LabEvent struct {
	Timestamp  time.Time  `json:"timestamp"`
	Type       EventType  `json:"type"`
	Step       int        `json:"step"`
	Size       int        `json:"size"`
	Counts     Counts     `json:"counts"`
	Entropy    float64    `json:"entropy"`
	Thresholds Thresholds `json:"thresholds"`

	// Diff lists the cells changed by the operation.
	Diff *GridDiff `json:"diff,omitempty"`

	// Duration is only set for step events.
	Duration time.Duration `json:"-"`
}

// LifecycleHooks defines callbacks for lab observability.
// Hooks run after the lab lock is released, in mutation order. They may read the lab
// but must not call back into mutations synchronously.
type LifecycleHooks struct {
	// OnMutation fires once per successful mutating operation.
	OnMutation func(context.Context, *LabEvent)
	// OnStep fires once per individual step, including each step of a multi-step call.
	OnStep func(context.Context, *LabEvent)
}

// ComposeHooks fans each callback out to every non-nil hook in order.
func ComposeHooks(hooks ...LifecycleHooks) LifecycleHooks {
	var mutation, step []func(context.Context, *LabEvent)
	for _, h := range hooks {
		if h.OnMutation != nil {
			mutation = append(mutation, h.OnMutation)
		}
		if h.OnStep != nil {
			step = append(step, h.OnStep)
		}
	}
	fan := func(fns []func(context.Context, *LabEvent)) func(context.Context, *LabEvent) {
		if len(fns) == 0 {
			return nil
		}
		return func(ctx context.Context, e *LabEvent) {
			for _, fn := range fns {
				fn(ctx, e)
			}
		}
	}
	return LifecycleHooks{OnMutation: fan(mutation), OnStep: fan(step)}
}
