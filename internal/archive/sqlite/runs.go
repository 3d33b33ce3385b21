package sqlite

import (
	"context"
	"database/sql"
	"errors"
	"fmt"
	"time"

	"civsandbox/internal/archive"
	"civsandbox/internal/sandbox"
	"civsandbox/internal/sim"
)

// timeLayout is fixed-width so recorded_at sorts lexically.
const timeLayout = "2006-01-02T15:04:05.000000000Z"

func (c *Client) SaveRun(ctx context.Context, rec sandbox.RunRecord) error {
	result, err := archive.EncodeResult(rec.Result)
	if err != nil {
		return err
	}

	query := `
	INSERT INTO runs (id, recorded_at, directive, horizon, step_count, autonomy_level, risk_tolerance, final_status, risk_count, result)
	VALUES (?, ?, ?, ?, ?, ?, ?, ?, ?, ?)
	ON CONFLICT (id) DO NOTHING
	`
	_, err = c.db.ExecContext(ctx, query,
		rec.ID,
		rec.Timestamp.UTC().Format(timeLayout),
		rec.Parameters.Directive,
		string(rec.Parameters.Horizon),
		rec.Parameters.StepCount,
		rec.Parameters.AutonomyLevel,
		rec.Parameters.RiskTolerance,
		string(rec.Result.FinalStatus),
		len(rec.Result.RisksDetected),
		string(result),
	)
	if err != nil {
		return fmt.Errorf("saving run: %w", err)
	}
	return nil
}

func (c *Client) GetRun(ctx context.Context, id string) (*sandbox.RunRecord, error) {
	query := `
	SELECT id, recorded_at, directive, horizon, step_count, autonomy_level, risk_tolerance, result
	FROM runs
	WHERE id = ?
	`
	var (
		rec        sandbox.RunRecord
		recordedAt string
		horizon    string
		result     string
	)
	err := c.db.QueryRowContext(ctx, query, id).Scan(
		&rec.ID,
		&recordedAt,
		&rec.Parameters.Directive,
		&horizon,
		&rec.Parameters.StepCount,
		&rec.Parameters.AutonomyLevel,
		&rec.Parameters.RiskTolerance,
		&result,
	)
	if errors.Is(err, sql.ErrNoRows) {
		return nil, archive.ErrNotFound
	}
	if err != nil {
		return nil, fmt.Errorf("getting run: %w", err)
	}

	rec.Parameters.Horizon = sim.Horizon(horizon)
	if rec.Timestamp, err = time.Parse(timeLayout, recordedAt); err != nil {
		return nil, fmt.Errorf("parsing recorded_at: %w", err)
	}
	if rec.Result, err = archive.DecodeResult([]byte(result)); err != nil {
		return nil, err
	}
	return &rec, nil
}

func (c *Client) ListRuns(ctx context.Context, filter archive.ListFilter) ([]archive.RunSummary, error) {
	query := `
	SELECT id, recorded_at, directive, horizon, final_status, risk_count
	FROM runs
	WHERE (? = '' OR final_status = ?)
	ORDER BY recorded_at DESC, id DESC
	LIMIT ?
	`
	status := string(filter.Status)
	rows, err := c.db.QueryContext(ctx, query, status, status, filter.EffectiveLimit())
	if err != nil {
		return nil, fmt.Errorf("listing runs: %w", err)
	}
	defer rows.Close()

	var runs []archive.RunSummary
	for rows.Next() {
		var (
			s          archive.RunSummary
			recordedAt string
			horizon    string
			status     string
		)
		if err := rows.Scan(&s.ID, &recordedAt, &s.Directive, &horizon, &status, &s.RiskCount); err != nil {
			return nil, fmt.Errorf("scanning run: %w", err)
		}
		if s.RecordedAt, err = time.Parse(timeLayout, recordedAt); err != nil {
			return nil, fmt.Errorf("parsing recorded_at: %w", err)
		}
		s.Horizon = sim.Horizon(horizon)
		s.Status = sim.Status(status)
		runs = append(runs, s)
	}
	if err := rows.Err(); err != nil {
		return nil, fmt.Errorf("iterating runs: %w", err)
	}
	return runs, nil
}
