package archive

import (
	"context"
	"fmt"

	"civsandbox/internal/sandbox"
)

// Recorder saves every completed run to a Store.
type Recorder struct {
	store Store
}

func NewRecorder(store Store) *Recorder {
	return &Recorder{store: store}
}

func (r *Recorder) Observe(ctx context.Context, ev sandbox.Event) error {
	if ev.Type != sandbox.EventRunCompleted || ev.Record == nil {
		return nil
	}
	if err := r.store.SaveRun(ctx, *ev.Record); err != nil {
		return fmt.Errorf("archiving run %s: %w", ev.Record.ID, err)
	}
	return nil
}

var _ sandbox.Observer = (*Recorder)(nil)
