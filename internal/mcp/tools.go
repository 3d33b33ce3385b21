package mcp

import (
	"context"
	"encoding/json"
	"errors"
	"fmt"
	"time"

	sdk "github.com/modelcontextprotocol/go-sdk/mcp"

	"civsandbox/internal/archive"
	"civsandbox/internal/export"
	"civsandbox/internal/request"
	"civsandbox/internal/sandbox"
	"civsandbox/internal/sim"
)

const (
	sourceSession = "session"
	sourceArchive = "archive"
)

type RunSimulationInput struct {
	Directive     *string `json:"directive,omitempty" jsonschema:"policy directive under test"`
	Horizon       *string `json:"horizon,omitempty" jsonschema:"SHORT, MEDIUM or LONG (100y, 1k, 10k also accepted)"`
	StepCount     *int    `json:"step_count,omitempty" jsonschema:"number of sampled intervals, capped at 100"`
	AutonomyLevel *int    `json:"autonomy_level,omitempty" jsonschema:"AI autonomy, 0 to 100"`
	RiskTolerance *int    `json:"risk_tolerance,omitempty" jsonschema:"risk tolerance, 0 to 100"`
}

type ListHistoryInput struct {
	Source string `json:"source,omitempty" jsonschema:"session (default) or archive"`
	Status string `json:"status,omitempty" jsonschema:"SAFE or AT_RISK filter"`
	Limit  int    `json:"limit,omitempty" jsonschema:"maximum number of runs"`
}

type ReplayRunInput struct {
	ID string `json:"id" jsonschema:"run id"`
}

type ExportRunInput struct {
	ID     string `json:"id" jsonschema:"run id"`
	Format string `json:"format,omitempty" jsonschema:"json (default) or csv"`
}

type GetParameterSchemaInput struct{}

type WorldStateOutput struct {
	Year        int     `json:"year"`
	SocialTrust float64 `json:"social_trust"`
	Inequality  float64 `json:"inequality"`
	Economy     float64 `json:"economy"`
}

type RunOutput struct {
	ID            string           `json:"id"`
	Timestamp     string           `json:"timestamp"`
	Directive     string           `json:"directive"`
	Horizon       string           `json:"horizon"`
	StepCount     int              `json:"step_count"`
	AutonomyLevel int              `json:"autonomy_level"`
	RiskTolerance int              `json:"risk_tolerance"`
	FinalStatus   string           `json:"final_status"`
	RisksDetected []string         `json:"risks_detected"`
	FinalState    WorldStateOutput `json:"final_state"`
	Points        int              `json:"points"`
	Narrative     string           `json:"narrative"`
}

type RunSummaryOutput struct {
	ID          string `json:"id"`
	Timestamp   string `json:"timestamp"`
	Directive   string `json:"directive"`
	Horizon     string `json:"horizon"`
	FinalStatus string `json:"final_status"`
	RiskCount   int    `json:"risk_count"`
}

type ListHistoryOutput struct {
	Source string             `json:"source"`
	Runs   []RunSummaryOutput `json:"runs"`
}

type ReplayRunOutput struct {
	Source     string    `json:"source"`
	Run        RunOutput `json:"run"`
	Reproduced bool      `json:"reproduced"`
}

type ExportRunOutput struct {
	FileName string `json:"file_name"`
	Format   string `json:"format"`
	Content  string `json:"content"`
}

type ParameterSchemaOutput struct {
	Schema   string    `json:"schema"`
	Defaults RunOutput `json:"defaults"`
}

func (s *Server) registerTools() {
	sdk.AddTool(s.mcp, &sdk.Tool{
		Name:        "run_simulation",
		Description: "Run a civilization outcome simulation; omitted parameters take the configured defaults",
	}, s.handleRunSimulation)

	sdk.AddTool(s.mcp, &sdk.Tool{
		Name:        "list_history",
		Description: "List recent runs from the session history or the archive",
	}, s.handleListHistory)

	sdk.AddTool(s.mcp, &sdk.Tool{
		Name:        "replay_run",
		Description: "Show a stored run again and check that it reproduces exactly",
	}, s.handleReplayRun)

	sdk.AddTool(s.mcp, &sdk.Tool{
		Name:        "export_run",
		Description: "Render a stored run as JSON or CSV",
	}, s.handleExportRun)

	sdk.AddTool(s.mcp, &sdk.Tool{
		Name:        "get_parameter_schema",
		Description: "Return the JSON Schema for simulation requests and the default parameters",
	}, s.handleGetParameterSchema)
}

func (s *Server) handleRunSimulation(ctx context.Context, req *sdk.CallToolRequest, input RunSimulationInput) (*sdk.CallToolResult, RunOutput, error) {
	raw, err := json.Marshal(input)
	if err != nil {
		return nil, RunOutput{}, err
	}
	p, err := request.Decode(raw, s.defaults)
	if err != nil {
		return nil, RunOutput{}, err
	}
	rec, err := s.orch.Run(ctx, p)
	if err != nil {
		return nil, RunOutput{}, err
	}
	return nil, runOutputFromRecord(*rec), nil
}

func (s *Server) handleListHistory(ctx context.Context, req *sdk.CallToolRequest, input ListHistoryInput) (*sdk.CallToolResult, ListHistoryOutput, error) {
	var status sim.Status
	switch input.Status {
	case "", string(sim.StatusSafe), string(sim.StatusAtRisk):
		status = sim.Status(input.Status)
	default:
		return nil, ListHistoryOutput{}, fmt.Errorf("unknown status %q", input.Status)
	}

	switch input.Source {
	case "", sourceSession:
		runs := make([]RunSummaryOutput, 0)
		for _, rec := range s.orch.History() {
			if status != "" && rec.Result.FinalStatus != status {
				continue
			}
			if input.Limit > 0 && len(runs) == input.Limit {
				break
			}
			runs = append(runs, summaryOutputFromRecord(rec))
		}
		return nil, ListHistoryOutput{Source: sourceSession, Runs: runs}, nil
	case sourceArchive:
		if s.archive == nil {
			return nil, ListHistoryOutput{}, fmt.Errorf("no archive configured")
		}
		items, err := s.archive.ListRuns(ctx, archive.ListFilter{Status: status, Limit: input.Limit})
		if err != nil {
			return nil, ListHistoryOutput{}, err
		}
		runs := make([]RunSummaryOutput, 0, len(items))
		for _, item := range items {
			runs = append(runs, summaryOutputFromArchive(item))
		}
		return nil, ListHistoryOutput{Source: sourceArchive, Runs: runs}, nil
	}
	return nil, ListHistoryOutput{}, fmt.Errorf("unknown source %q", input.Source)
}

// handleReplayRun prefers the session history, which also puts the run back
// on display. Archived runs are only checked for reproduction.
func (s *Server) handleReplayRun(ctx context.Context, req *sdk.CallToolRequest, input ReplayRunInput) (*sdk.CallToolResult, ReplayRunOutput, error) {
	if input.ID == "" {
		return nil, ReplayRunOutput{}, fmt.Errorf("id is required")
	}
	rec, source, err := s.lookup(ctx, input.ID, true)
	if err != nil {
		return nil, ReplayRunOutput{}, err
	}
	_, reproduced := s.orch.Reproduce(rec)
	return nil, ReplayRunOutput{
		Source:     source,
		Run:        runOutputFromRecord(rec),
		Reproduced: reproduced,
	}, nil
}

func (s *Server) handleExportRun(ctx context.Context, req *sdk.CallToolRequest, input ExportRunInput) (*sdk.CallToolResult, ExportRunOutput, error) {
	if input.ID == "" {
		return nil, ExportRunOutput{}, fmt.Errorf("id is required")
	}
	format := export.FormatJSON
	if input.Format != "" {
		f, err := export.ParseFormat(input.Format)
		if err != nil {
			return nil, ExportRunOutput{}, err
		}
		format = f
	}
	rec, _, err := s.lookup(ctx, input.ID, false)
	if err != nil {
		return nil, ExportRunOutput{}, err
	}
	data, err := export.Render(format, &rec.Result)
	if err != nil {
		return nil, ExportRunOutput{}, err
	}
	return nil, ExportRunOutput{
		FileName: export.FileName(format, time.Now()),
		Format:   string(format),
		Content:  string(data),
	}, nil
}

func (s *Server) handleGetParameterSchema(ctx context.Context, req *sdk.CallToolRequest, input GetParameterSchemaInput) (*sdk.CallToolResult, ParameterSchemaOutput, error) {
	d := s.defaults
	return nil, ParameterSchemaOutput{
		Schema: request.Schema(),
		Defaults: RunOutput{
			Directive:     d.Directive,
			Horizon:       string(d.Horizon),
			StepCount:     d.StepCount,
			AutonomyLevel: d.AutonomyLevel,
			RiskTolerance: d.RiskTolerance,
			RisksDetected: []string{},
		},
	}, nil
}

func (s *Server) lookup(ctx context.Context, id string, replay bool) (sandbox.RunRecord, string, error) {
	var (
		rec sandbox.RunRecord
		err error
	)
	if replay {
		rec, err = s.orch.Replay(id)
	} else {
		err = sandbox.ErrRunNotFound
		for _, r := range s.orch.History() {
			if r.ID == id {
				rec, err = r, nil
				break
			}
		}
	}
	if err == nil {
		return rec, sourceSession, nil
	}
	if !errors.Is(err, sandbox.ErrRunNotFound) || s.archive == nil {
		return sandbox.RunRecord{}, "", err
	}

	archived, err := s.archive.GetRun(ctx, id)
	if errors.Is(err, archive.ErrNotFound) {
		return sandbox.RunRecord{}, "", sandbox.ErrRunNotFound
	}
	if err != nil {
		return sandbox.RunRecord{}, "", err
	}
	return *archived, sourceArchive, nil
}

func runOutputFromRecord(rec sandbox.RunRecord) RunOutput {
	final := rec.Result.Final()
	return RunOutput{
		ID:            rec.ID,
		Timestamp:     rec.Timestamp.UTC().Format(time.RFC3339Nano),
		Directive:     rec.Parameters.Directive,
		Horizon:       string(rec.Parameters.Horizon),
		StepCount:     rec.Parameters.StepCount,
		AutonomyLevel: rec.Parameters.AutonomyLevel,
		RiskTolerance: rec.Parameters.RiskTolerance,
		FinalStatus:   string(rec.Result.FinalStatus),
		RisksDetected: append([]string{}, rec.Result.RisksDetected...),
		FinalState: WorldStateOutput{
			Year:        final.Year,
			SocialTrust: final.SocialTrust,
			Inequality:  final.Inequality,
			Economy:     final.Economy,
		},
		Points:    len(rec.Result.Timeline),
		Narrative: rec.Result.NarrativeText(),
	}
}

func summaryOutputFromRecord(rec sandbox.RunRecord) RunSummaryOutput {
	return RunSummaryOutput{
		ID:          rec.ID,
		Timestamp:   rec.Timestamp.UTC().Format(time.RFC3339Nano),
		Directive:   rec.Parameters.Directive,
		Horizon:     string(rec.Parameters.Horizon),
		FinalStatus: string(rec.Result.FinalStatus),
		RiskCount:   len(rec.Result.RisksDetected),
	}
}

func summaryOutputFromArchive(s archive.RunSummary) RunSummaryOutput {
	return RunSummaryOutput{
		ID:          s.ID,
		Timestamp:   s.RecordedAt.UTC().Format(time.RFC3339Nano),
		Directive:   s.Directive,
		Horizon:     string(s.Horizon),
		FinalStatus: string(s.Status),
		RiskCount:   s.RiskCount,
	}
}
