// Package sandbox runs simulations one at a time and keeps the bounded
// history of completed runs.
package sandbox

import (
	"context"
	"errors"
	"log/slog"
	"sync"
	"time"

	"github.com/google/uuid"

	"civsandbox/internal/sim"
)

const (
	DefaultProcessingDelay = 2 * time.Second
	// DefaultObserverTimeout bounds each observer call so a stalled
	// observer cannot hold the run gate.
	DefaultObserverTimeout = 10 * time.Second
)

var (
	ErrRunInProgress = errors.New("a simulation run is already in progress")
	ErrRunNotFound   = errors.New("run not found in history")
)

type Options struct {
	// ProcessingDelay is waited between accepting a run and simulating it.
	ProcessingDelay time.Duration
	// ObserverTimeout bounds the context handed to each observer. Zero means
	// DefaultObserverTimeout.
	ObserverTimeout time.Duration
	Clock           func() time.Time
	NewID           func() string
	Logger          *slog.Logger
	Observers       []Observer
}

type Orchestrator struct {
	history         *History
	delay           time.Duration
	observerTimeout time.Duration
	clock           func() time.Time
	newID           func() string
	logger          *slog.Logger

	observersMu sync.Mutex
	observers   []Observer

	mu      sync.Mutex
	running bool
	current *RunRecord
}

func New(history *History, opts Options) *Orchestrator {
	if history == nil {
		history = NewHistory(DefaultHistoryLimit)
	}
	o := &Orchestrator{
		history:         history,
		delay:           max(opts.ProcessingDelay, 0),
		observerTimeout: opts.ObserverTimeout,
		clock:           opts.Clock,
		newID:           opts.NewID,
		logger:          opts.Logger,
		observers:       append([]Observer(nil), opts.Observers...),
	}
	if o.observerTimeout <= 0 {
		o.observerTimeout = DefaultObserverTimeout
	}
	if o.clock == nil {
		o.clock = time.Now
	}
	if o.newID == nil {
		o.newID = uuid.NewString
	}
	if o.logger == nil {
		o.logger = slog.New(slog.DiscardHandler)
	}
	return o
}

// AddObserver registers an observer for runs started after the call.
func (o *Orchestrator) AddObserver(obs Observer) {
	o.observersMu.Lock()
	defer o.observersMu.Unlock()
	o.observers = append(o.observers, obs)
}

// Run validates p, waits the processing delay, simulates and records the
// run. It fails fast with ErrRunInProgress while another run is pending.
// ctx is only consulted before the run is accepted.
func (o *Orchestrator) Run(ctx context.Context, p sim.Parameters) (*RunRecord, error) {
	if err := o.accept(ctx, p); err != nil {
		return nil, err
	}
	defer o.release()
	return o.execute(context.WithoutCancel(ctx), p), nil
}

// Submit is the asynchronous form of Run. The returned channel receives
// exactly one Completion and is then closed.
func (o *Orchestrator) Submit(ctx context.Context, p sim.Parameters) (<-chan Completion, error) {
	if err := o.accept(ctx, p); err != nil {
		return nil, err
	}
	done := make(chan Completion, 1)
	go func() {
		rec := o.execute(context.WithoutCancel(ctx), p)
		o.release()
		done <- Completion{Record: rec}
		close(done)
	}()
	return done, nil
}

func (o *Orchestrator) InProgress() bool {
	o.mu.Lock()
	defer o.mu.Unlock()
	return o.running
}

func (o *Orchestrator) History() []RunRecord {
	return o.history.Snapshot()
}

// Current returns the record on display: the latest run, or the last one
// replayed.
func (o *Orchestrator) Current() (RunRecord, bool) {
	o.mu.Lock()
	defer o.mu.Unlock()
	if o.current == nil {
		return RunRecord{}, false
	}
	return o.current.clone(), true
}

// Status is a consistent view of the gate, the history size and the run on
// display.
type Status struct {
	InProgress  bool       `json:"in_progress"`
	HistorySize int        `json:"history_size"`
	Current     *RunRecord `json:"current"`
}

func (o *Orchestrator) Status() Status {
	o.mu.Lock()
	defer o.mu.Unlock()
	st := Status{InProgress: o.running, HistorySize: o.history.Len()}
	if o.current != nil {
		shown := o.current.clone()
		st.Current = &shown
	}
	return st
}

// Replay puts a stored run back on display without re-simulating it.
func (o *Orchestrator) Replay(id string) (RunRecord, error) {
	rec, ok := o.history.Get(id)
	if !ok {
		return RunRecord{}, ErrRunNotFound
	}
	o.mu.Lock()
	shown := rec.clone()
	o.current = &shown
	o.mu.Unlock()

	o.logger.Info("run replayed", "run_id", rec.ID)
	o.notify(context.Background(), Event{Type: EventRunReplayed, Time: o.clock().UTC(), Record: &rec})
	return rec.clone(), nil
}

// Reproduce simulates the stored parameters again and reports whether the
// stored result is reproduced exactly.
func (o *Orchestrator) Reproduce(rec RunRecord) (sim.Result, bool) {
	res := sim.Simulate(rec.Parameters)
	return res, res.Equal(rec.Result)
}

func (o *Orchestrator) accept(ctx context.Context, p sim.Parameters) error {
	if err := ctx.Err(); err != nil {
		return err
	}
	if err := p.Validate(); err != nil {
		return err
	}
	o.mu.Lock()
	defer o.mu.Unlock()
	if o.running {
		return ErrRunInProgress
	}
	o.running = true
	return nil
}

func (o *Orchestrator) release() {
	o.mu.Lock()
	o.running = false
	o.mu.Unlock()
}

func (o *Orchestrator) execute(ctx context.Context, p sim.Parameters) *RunRecord {
	o.logger.Debug("run started", "directive", p.Directive, "horizon", p.Horizon, "steps", p.StepCount)
	params := p
	o.notify(ctx, Event{Type: EventRunStarted, Time: o.clock().UTC(), Parameters: &params})

	if o.delay > 0 {
		time.Sleep(o.delay)
	}

	rec := RunRecord{
		ID:         o.newID(),
		Parameters: p,
		Result:     sim.Simulate(p),
		Timestamp:  o.clock().UTC(),
	}
	o.mu.Lock()
	o.history.Push(rec)
	shown := rec.clone()
	o.current = &shown
	o.mu.Unlock()

	o.logger.Info("run completed",
		"run_id", rec.ID,
		"status", rec.Result.FinalStatus,
		"risks", len(rec.Result.RisksDetected),
		"points", len(rec.Result.Timeline),
	)
	o.notify(ctx, Event{Type: EventRunCompleted, Time: rec.Timestamp, Record: &rec})
	return &rec
}

func (o *Orchestrator) notify(ctx context.Context, ev Event) {
	o.observersMu.Lock()
	observers := append([]Observer(nil), o.observers...)
	o.observersMu.Unlock()

	for _, obs := range observers {
		obsCtx, cancel := context.WithTimeout(ctx, o.observerTimeout)
		err := obs.Observe(obsCtx, ev)
		cancel()
		if err != nil {
			o.logger.Warn("observer failed", "event", ev.Type, "error", err)
		}
	}
}
