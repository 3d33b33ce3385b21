package archive

import (
	"context"
	"errors"
	"testing"

	"civsandbox/internal/sandbox"
	"civsandbox/internal/sim"
)

type mockStore struct {
	saved   []sandbox.RunRecord
	saveErr error
}

func (m *mockStore) Close(ctx context.Context) error { return nil }

func (m *mockStore) EnsureSchema(ctx context.Context) error { return nil }

func (m *mockStore) SaveRun(ctx context.Context, rec sandbox.RunRecord) error {
	if m.saveErr != nil {
		return m.saveErr
	}
	m.saved = append(m.saved, rec)
	return nil
}

func (m *mockStore) GetRun(ctx context.Context, id string) (*sandbox.RunRecord, error) {
	return nil, ErrNotFound
}

func (m *mockStore) ListRuns(ctx context.Context, filter ListFilter) ([]RunSummary, error) {
	return nil, nil
}

func TestRecorder(t *testing.T) {
	store := &mockStore{}
	orch := sandbox.New(nil, sandbox.Options{Observers: []sandbox.Observer{NewRecorder(store)}})

	rec, err := orch.Run(context.Background(), sim.DefaultParameters())
	if err != nil {
		t.Fatalf("run: %v", err)
	}
	if _, err := orch.Replay(rec.ID); err != nil {
		t.Fatalf("replay: %v", err)
	}

	if len(store.saved) != 1 {
		t.Fatalf("expected one archived run, got %d", len(store.saved))
	}
	if store.saved[0].ID != rec.ID {
		t.Fatalf("expected %s, got %s", rec.ID, store.saved[0].ID)
	}
}

func TestRecorder_WrapsStoreError(t *testing.T) {
	boom := errors.New("connection reset")
	r := NewRecorder(&mockStore{saveErr: boom})
	rec := sandbox.RunRecord{ID: "run-1"}

	err := r.Observe(context.Background(), sandbox.Event{Type: sandbox.EventRunCompleted, Record: &rec})
	if !errors.Is(err, boom) {
		t.Fatalf("expected wrapped store error, got %v", err)
	}
}

func TestDecodeResult(t *testing.T) {
	res := sim.Simulate(sim.DefaultParameters())
	data, err := EncodeResult(res)
	if err != nil {
		t.Fatalf("encode: %v", err)
	}
	decoded, err := DecodeResult(data)
	if err != nil {
		t.Fatalf("decode: %v", err)
	}
	if !decoded.Equal(res) {
		t.Fatalf("decoded result differs")
	}

	empty, err := DecodeResult([]byte(`{"timeline":[],"final_status":"SAFE","risks_detected":null}`))
	if err != nil {
		t.Fatalf("decode: %v", err)
	}
	if empty.RisksDetected == nil {
		t.Fatalf("expected empty, non-nil risks")
	}
}
