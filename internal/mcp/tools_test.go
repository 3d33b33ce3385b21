package mcp

import (
	"context"
	"errors"
	"strings"
	"testing"
	"time"

	"civsandbox/internal/archive"
	"civsandbox/internal/sandbox"
	"civsandbox/internal/sim"
)

type mockArchive struct {
	runs       map[string]sandbox.RunRecord
	summaries  []archive.RunSummary
	listErr    error
	lastFilter archive.ListFilter
}

func (m *mockArchive) Close(ctx context.Context) error { return nil }

func (m *mockArchive) EnsureSchema(ctx context.Context) error { return nil }

func (m *mockArchive) SaveRun(ctx context.Context, rec sandbox.RunRecord) error { return nil }

func (m *mockArchive) GetRun(ctx context.Context, id string) (*sandbox.RunRecord, error) {
	rec, ok := m.runs[id]
	if !ok {
		return nil, archive.ErrNotFound
	}
	return &rec, nil
}

func (m *mockArchive) ListRuns(ctx context.Context, filter archive.ListFilter) ([]archive.RunSummary, error) {
	m.lastFilter = filter
	return m.summaries, m.listErr
}

func intPtr(v int) *int { return &v }

func strPtr(v string) *string { return &v }

func newTestServer(store archive.Store) (*Server, *sandbox.Orchestrator) {
	orch := sandbox.New(nil, sandbox.Options{})
	return NewServer(orch, sim.DefaultParameters(), store, "test"), orch
}

func TestRunSimulation(t *testing.T) {
	server, orch := newTestServer(nil)

	_, output, err := server.handleRunSimulation(context.Background(), nil, RunSimulationInput{
		Directive:     strPtr("Automate courts"),
		Horizon:       strPtr("long"),
		AutonomyLevel: intPtr(90),
		RiskTolerance: intPtr(90),
	})
	if err != nil {
		t.Fatalf("unexpected error: %v", err)
	}
	if output.Directive != "Automate courts" || output.Horizon != "LONG" || output.StepCount != 50 {
		t.Fatalf("unexpected run output: %+v", output)
	}
	if output.FinalStatus != "AT_RISK" || len(output.RisksDetected) != 3 {
		t.Fatalf("unexpected outcome: %+v", output)
	}
	if !strings.HasPrefix(output.Narrative, "[INFO] SIMULATION INITIALIZED: Automate courts") {
		t.Fatalf("unexpected narrative %q", output.Narrative)
	}
	if len(orch.History()) != 1 {
		t.Fatalf("expected run in history")
	}
}

func TestRunSimulation_ZeroIsNotDefault(t *testing.T) {
	server, _ := newTestServer(nil)

	_, output, err := server.handleRunSimulation(context.Background(), nil, RunSimulationInput{
		AutonomyLevel: intPtr(0),
		RiskTolerance: intPtr(0),
		StepCount:     intPtr(0),
	})
	if err != nil {
		t.Fatalf("unexpected error: %v", err)
	}
	if output.AutonomyLevel != 0 || output.Points != 1 || output.FinalStatus != "SAFE" {
		t.Fatalf("unexpected run output: %+v", output)
	}
}

func TestRunSimulation_Invalid(t *testing.T) {
	server, orch := newTestServer(nil)

	_, _, err := server.handleRunSimulation(context.Background(), nil, RunSimulationInput{RiskTolerance: intPtr(101)})
	var verr *sim.ValidationError
	if !errors.As(err, &verr) || verr.Field != "risk_tolerance" {
		t.Fatalf("expected risk_tolerance validation error, got %v", err)
	}
	if len(orch.History()) != 0 {
		t.Fatalf("rejected run must not touch history")
	}
}

func TestListHistory(t *testing.T) {
	store := &mockArchive{
		summaries: []archive.RunSummary{{ID: "old", RecordedAt: time.Date(2025, 1, 1, 0, 0, 0, 0, time.UTC), Status: sim.StatusSafe}},
	}
	server, orch := newTestServer(store)
	for _, p := range []sim.Parameters{sim.DefaultParameters(), {Directive: "calm", Horizon: sim.HorizonShort}} {
		if _, err := orch.Run(context.Background(), p); err != nil {
			t.Fatalf("run: %v", err)
		}
	}

	_, output, err := server.handleListHistory(context.Background(), nil, ListHistoryInput{})
	if err != nil {
		t.Fatalf("unexpected error: %v", err)
	}
	if output.Source != "session" || len(output.Runs) != 2 || output.Runs[0].Directive != "calm" {
		t.Fatalf("unexpected session listing: %+v", output)
	}

	_, output, err = server.handleListHistory(context.Background(), nil, ListHistoryInput{Status: "AT_RISK"})
	if err != nil {
		t.Fatalf("unexpected error: %v", err)
	}
	if len(output.Runs) != 1 || output.Runs[0].FinalStatus != "AT_RISK" {
		t.Fatalf("unexpected filtered listing: %+v", output)
	}

	_, output, err = server.handleListHistory(context.Background(), nil, ListHistoryInput{Source: "archive", Status: "SAFE", Limit: 5})
	if err != nil {
		t.Fatalf("unexpected error: %v", err)
	}
	if len(output.Runs) != 1 || output.Runs[0].ID != "old" {
		t.Fatalf("unexpected archive listing: %+v", output)
	}
	if store.lastFilter.Status != sim.StatusSafe || store.lastFilter.Limit != 5 {
		t.Fatalf("unexpected archive filter %+v", store.lastFilter)
	}

	if _, _, err := server.handleListHistory(context.Background(), nil, ListHistoryInput{Status: "DOOMED"}); err == nil {
		t.Fatalf("expected error for unknown status")
	}
}

func TestListHistory_NoArchive(t *testing.T) {
	server, _ := newTestServer(nil)
	if _, _, err := server.handleListHistory(context.Background(), nil, ListHistoryInput{Source: "archive"}); err == nil {
		t.Fatalf("expected error")
	}
}

func TestReplayRun(t *testing.T) {
	p := sim.Parameters{Directive: "archived", Horizon: sim.HorizonShort, StepCount: 4}
	store := &mockArchive{runs: map[string]sandbox.RunRecord{
		"archived-1": {ID: "archived-1", Parameters: p, Result: sim.Simulate(p)},
	}}
	server, orch := newTestServer(store)
	rec, err := orch.Run(context.Background(), sim.DefaultParameters())
	if err != nil {
		t.Fatalf("run: %v", err)
	}

	_, output, err := server.handleReplayRun(context.Background(), nil, ReplayRunInput{ID: rec.ID})
	if err != nil {
		t.Fatalf("unexpected error: %v", err)
	}
	if output.Source != "session" || output.Run.ID != rec.ID || !output.Reproduced {
		t.Fatalf("unexpected replay output: %+v", output)
	}

	_, output, err = server.handleReplayRun(context.Background(), nil, ReplayRunInput{ID: "archived-1"})
	if err != nil {
		t.Fatalf("unexpected error: %v", err)
	}
	if output.Source != "archive" || !output.Reproduced {
		t.Fatalf("unexpected archive replay: %+v", output)
	}

	if _, _, err := server.handleReplayRun(context.Background(), nil, ReplayRunInput{ID: "missing"}); !errors.Is(err, sandbox.ErrRunNotFound) {
		t.Fatalf("expected ErrRunNotFound, got %v", err)
	}
	if _, _, err := server.handleReplayRun(context.Background(), nil, ReplayRunInput{}); err == nil {
		t.Fatalf("expected error for empty id")
	}
}

func TestExportRun(t *testing.T) {
	server, orch := newTestServer(nil)
	rec, err := orch.Run(context.Background(), sim.DefaultParameters())
	if err != nil {
		t.Fatalf("run: %v", err)
	}

	_, output, err := server.handleExportRun(context.Background(), nil, ExportRunInput{ID: rec.ID, Format: "csv"})
	if err != nil {
		t.Fatalf("unexpected error: %v", err)
	}
	if output.Format != "csv" || !strings.HasSuffix(output.FileName, ".csv") {
		t.Fatalf("unexpected export output: %+v", output)
	}
	if !strings.HasPrefix(output.Content, "Year,Social Trust,Inequality,Economy\n") {
		t.Fatalf("unexpected content %q", output.Content)
	}

	if _, _, err := server.handleExportRun(context.Background(), nil, ExportRunInput{ID: rec.ID, Format: "pdf"}); err == nil {
		t.Fatalf("expected error for unsupported format")
	}
	if _, _, err := server.handleExportRun(context.Background(), nil, ExportRunInput{ID: "missing"}); !errors.Is(err, sandbox.ErrRunNotFound) {
		t.Fatalf("expected ErrRunNotFound, got %v", err)
	}
}

func TestGetParameterSchema(t *testing.T) {
	server, _ := newTestServer(nil)

	_, output, err := server.handleGetParameterSchema(context.Background(), nil, GetParameterSchemaInput{})
	if err != nil {
		t.Fatalf("unexpected error: %v", err)
	}
	if !strings.Contains(output.Schema, `"autonomy_level"`) {
		t.Fatalf("unexpected schema %q", output.Schema)
	}
	if output.Defaults.Directive != "Implement Universal Basic Compute" || output.Defaults.Horizon != "MEDIUM" {
		t.Fatalf("unexpected defaults: %+v", output.Defaults)
	}
}
