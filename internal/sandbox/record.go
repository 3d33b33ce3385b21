package sandbox

import (
	"context"
	"time"

	"civsandbox/internal/sim"
)

// RunRecord is one completed run as kept in history.
type RunRecord struct {
	ID         string         `json:"id"`
	Parameters sim.Parameters `json:"parameters"`
	Result     sim.Result     `json:"result"`
	Timestamp  time.Time      `json:"timestamp"`
}

func (r RunRecord) clone() RunRecord {
	r.Result = r.Result.Clone()
	return r
}

type EventType string

const (
	EventRunStarted   EventType = "run.started"
	EventRunCompleted EventType = "run.completed"
	EventRunReplayed  EventType = "run.replayed"
)

// Event is published to observers. Started events carry only the
// parameters; completed and replayed events carry the record.
type Event struct {
	Type       EventType       `json:"type"`
	Time       time.Time       `json:"time"`
	Parameters *sim.Parameters `json:"parameters,omitempty"`
	Record     *RunRecord      `json:"record,omitempty"`
}

// Observer receives run lifecycle events. Observers are called in order on
// the goroutine executing the run; an error is logged and does not affect
// the run.
type Observer interface {
	Observe(ctx context.Context, ev Event) error
}

type ObserverFunc func(ctx context.Context, ev Event) error

func (f ObserverFunc) Observe(ctx context.Context, ev Event) error {
	return f(ctx, ev)
}

// Completion is delivered once on the channel returned by Submit.
type Completion struct {
	Record *RunRecord
}
