package api

import (
	"context"
	"encoding/json"
	"net/http"
	"net/http/httptest"
	"strings"
	"testing"

	"github.com/gin-gonic/gin"

	"civsandbox/internal/sandbox"
	"civsandbox/internal/sim"
)

func init() {
	gin.SetMode(gin.TestMode)
}

func newTestRouter(t *testing.T, opts sandbox.Options) (*gin.Engine, *sandbox.Orchestrator) {
	t.Helper()
	orch := sandbox.New(sandbox.NewHistory(10), opts)
	return NewRouter(orch, Options{Defaults: sim.DefaultParameters(), System: "Test Sandbox"}), orch
}

func do(r http.Handler, method, path, body string) *httptest.ResponseRecorder {
	req := httptest.NewRequest(method, path, strings.NewReader(body))
	req.Header.Set("Content-Type", "application/json")
	w := httptest.NewRecorder()
	r.ServeHTTP(w, req)
	return w
}

func TestBanner(t *testing.T) {
	r, _ := newTestRouter(t, sandbox.Options{})
	w := do(r, http.MethodGet, "/", "")
	if w.Code != http.StatusOK {
		t.Fatalf("expected 200, got %d", w.Code)
	}
	var body map[string]string
	if err := json.Unmarshal(w.Body.Bytes(), &body); err != nil {
		t.Fatalf("decode: %v", err)
	}
	if body["status"] != "OPERATIONAL" || body["system"] != "Test Sandbox" {
		t.Fatalf("unexpected banner %v", body)
	}
}

func TestRunSimulation(t *testing.T) {
	r, orch := newTestRouter(t, sandbox.Options{})

	w := do(r, http.MethodPost, "/api/simulation/run", `{"decision":"Ban automation","duration_steps":10,"autonomy":90,"risk":90,"horizon":"10k"}`)
	if w.Code != http.StatusOK {
		t.Fatalf("expected 200, got %d: %s", w.Code, w.Body.String())
	}
	var rec sandbox.RunRecord
	if err := json.Unmarshal(w.Body.Bytes(), &rec); err != nil {
		t.Fatalf("decode: %v", err)
	}
	if rec.Parameters.Directive != "Ban automation" || rec.Parameters.Horizon != sim.HorizonLong {
		t.Fatalf("unexpected parameters %+v", rec.Parameters)
	}
	if rec.Result.FinalStatus != sim.StatusAtRisk || len(rec.Result.Timeline) != 11 {
		t.Fatalf("unexpected result %+v", rec.Result)
	}
	if len(orch.History()) != 1 {
		t.Fatalf("expected one record in history")
	}
}

func TestRunSimulation_EmptyBodyUsesDefaults(t *testing.T) {
	r, _ := newTestRouter(t, sandbox.Options{})
	w := do(r, http.MethodPost, "/api/simulation/run", "")
	if w.Code != http.StatusOK {
		t.Fatalf("expected 200, got %d: %s", w.Code, w.Body.String())
	}
	var rec sandbox.RunRecord
	_ = json.Unmarshal(w.Body.Bytes(), &rec)
	if rec.Parameters != sim.DefaultParameters() {
		t.Fatalf("expected default parameters, got %+v", rec.Parameters)
	}
}

func TestRunSimulation_ValidationError(t *testing.T) {
	r, orch := newTestRouter(t, sandbox.Options{})
	w := do(r, http.MethodPost, "/api/simulation/run", `{"autonomy":150}`)
	if w.Code != http.StatusBadRequest {
		t.Fatalf("expected 400, got %d", w.Code)
	}
	var body map[string]string
	_ = json.Unmarshal(w.Body.Bytes(), &body)
	if body["field"] != "autonomy_level" {
		t.Fatalf("expected autonomy_level field, got %v", body)
	}
	if len(orch.History()) != 0 {
		t.Fatalf("rejected run must not touch history")
	}
}

func TestRunSimulation_InProgress(t *testing.T) {
	entered := make(chan struct{})
	unblock := make(chan struct{})
	blocker := sandbox.ObserverFunc(func(ctx context.Context, ev sandbox.Event) error {
		if ev.Type == sandbox.EventRunStarted {
			close(entered)
			<-unblock
		}
		return nil
	})
	r, orch := newTestRouter(t, sandbox.Options{Observers: []sandbox.Observer{blocker}})

	done, err := orch.Submit(context.Background(), sim.DefaultParameters())
	if err != nil {
		t.Fatalf("submit: %v", err)
	}
	<-entered

	w := do(r, http.MethodPost, "/api/simulation/run", `{}`)
	if w.Code != http.StatusConflict {
		t.Fatalf("expected 409, got %d", w.Code)
	}
	status := do(r, http.MethodGet, "/api/simulation/status", "")
	if !strings.Contains(status.Body.String(), `"in_progress":true`) {
		t.Fatalf("expected in_progress, got %s", status.Body.String())
	}

	close(unblock)
	<-done
}

func TestHistoryRoutes(t *testing.T) {
	r, orch := newTestRouter(t, sandbox.Options{})
	first, err := orch.Run(context.Background(), sim.DefaultParameters())
	if err != nil {
		t.Fatalf("run: %v", err)
	}
	if _, err := orch.Run(context.Background(), sim.Parameters{Directive: "calm", Horizon: sim.HorizonShort, StepCount: 1}); err != nil {
		t.Fatalf("run: %v", err)
	}

	t.Run("list", func(t *testing.T) {
		w := do(r, http.MethodGet, "/api/simulation/history", "")
		var body struct {
			Runs []sandbox.RunRecord `json:"runs"`
		}
		if err := json.Unmarshal(w.Body.Bytes(), &body); err != nil {
			t.Fatalf("decode: %v", err)
		}
		if len(body.Runs) != 2 || body.Runs[1].ID != first.ID {
			t.Fatalf("expected newest first, got %d runs", len(body.Runs))
		}
	})

	t.Run("get", func(t *testing.T) {
		if w := do(r, http.MethodGet, "/api/simulation/history/"+first.ID, ""); w.Code != http.StatusOK {
			t.Fatalf("expected 200, got %d", w.Code)
		}
		if w := do(r, http.MethodGet, "/api/simulation/history/nope", ""); w.Code != http.StatusNotFound {
			t.Fatalf("expected 404, got %d", w.Code)
		}
	})

	t.Run("replay", func(t *testing.T) {
		w := do(r, http.MethodPost, "/api/simulation/history/"+first.ID+"/replay", "")
		if w.Code != http.StatusOK {
			t.Fatalf("expected 200, got %d", w.Code)
		}
		var body struct {
			Record     sandbox.RunRecord `json:"record"`
			Reproduced bool              `json:"reproduced"`
		}
		if err := json.Unmarshal(w.Body.Bytes(), &body); err != nil {
			t.Fatalf("decode: %v", err)
		}
		if body.Record.ID != first.ID || !body.Reproduced {
			t.Fatalf("unexpected replay response %s", w.Body.String())
		}
		current, _ := orch.Current()
		if current.ID != first.ID {
			t.Fatalf("expected replayed run on display")
		}
		if w := do(r, http.MethodPost, "/api/simulation/history/nope/replay", ""); w.Code != http.StatusNotFound {
			t.Fatalf("expected 404, got %d", w.Code)
		}
	})

	t.Run("export csv", func(t *testing.T) {
		w := do(r, http.MethodGet, "/api/simulation/history/"+first.ID+"/export?format=csv", "")
		if w.Code != http.StatusOK {
			t.Fatalf("expected 200, got %d", w.Code)
		}
		if ct := w.Header().Get("Content-Type"); ct != "text/csv" {
			t.Fatalf("unexpected content type %q", ct)
		}
		if !strings.HasPrefix(w.Body.String(), "Year,Social Trust,Inequality,Economy\n0,0.45,0.633,0.6") {
			t.Fatalf("unexpected csv %q", w.Body.String())
		}
		if cd := w.Header().Get("Content-Disposition"); !strings.Contains(cd, "simulation_") || !strings.Contains(cd, ".csv") {
			t.Fatalf("unexpected disposition %q", cd)
		}
	})

	t.Run("export default json", func(t *testing.T) {
		w := do(r, http.MethodGet, "/api/simulation/history/"+first.ID+"/export", "")
		if w.Code != http.StatusOK || !strings.Contains(w.Body.String(), `"final_status": "AT_RISK"`) {
			t.Fatalf("unexpected json export %d %s", w.Code, w.Body.String())
		}
	})

	t.Run("export unsupported format", func(t *testing.T) {
		w := do(r, http.MethodGet, "/api/simulation/history/"+first.ID+"/export?format=xml", "")
		if w.Code != http.StatusUnprocessableEntity {
			t.Fatalf("expected 422, got %d", w.Code)
		}
	})
}

func TestCORSPreflight(t *testing.T) {
	r, _ := newTestRouter(t, sandbox.Options{})
	w := do(r, http.MethodOptions, "/api/simulation/run", "")
	if w.Code != http.StatusNoContent {
		t.Fatalf("expected 204, got %d", w.Code)
	}
	if w.Header().Get("Access-Control-Allow-Origin") != "*" {
		t.Fatalf("missing CORS header")
	}
}
