package postgres

import (
	"context"
	"errors"
	"fmt"

	"github.com/jackc/pgx/v5"

	"civsandbox/internal/archive"
	"civsandbox/internal/sandbox"
	"civsandbox/internal/sim"
)

func (c *Client) SaveRun(ctx context.Context, rec sandbox.RunRecord) error {
	result, err := archive.EncodeResult(rec.Result)
	if err != nil {
		return err
	}

	query := `
INSERT INTO runs (id, recorded_at, directive, horizon, step_count, autonomy_level, risk_tolerance, final_status, risk_count, result)
VALUES ($1, $2, $3, $4, $5, $6, $7, $8, $9, $10)
ON CONFLICT (id) DO NOTHING
`
	_, err = c.pool.Exec(ctx, query,
		rec.ID,
		rec.Timestamp.UTC(),
		rec.Parameters.Directive,
		string(rec.Parameters.Horizon),
		rec.Parameters.StepCount,
		rec.Parameters.AutonomyLevel,
		rec.Parameters.RiskTolerance,
		string(rec.Result.FinalStatus),
		len(rec.Result.RisksDetected),
		result,
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
WHERE id = $1
`
	var (
		rec     sandbox.RunRecord
		horizon string
		result  []byte
	)
	err := c.pool.QueryRow(ctx, query, id).Scan(
		&rec.ID,
		&rec.Timestamp,
		&rec.Parameters.Directive,
		&horizon,
		&rec.Parameters.StepCount,
		&rec.Parameters.AutonomyLevel,
		&rec.Parameters.RiskTolerance,
		&result,
	)
	if errors.Is(err, pgx.ErrNoRows) {
		return nil, archive.ErrNotFound
	}
	if err != nil {
		return nil, fmt.Errorf("getting run: %w", err)
	}

	rec.Timestamp = rec.Timestamp.UTC()
	rec.Parameters.Horizon = sim.Horizon(horizon)
	if rec.Result, err = archive.DecodeResult(result); err != nil {
		return nil, err
	}
	return &rec, nil
}

func (c *Client) ListRuns(ctx context.Context, filter archive.ListFilter) ([]archive.RunSummary, error) {
	query := `
SELECT id, recorded_at, directive, horizon, final_status, risk_count
FROM runs
WHERE ($1 = '' OR final_status = $1)
ORDER BY recorded_at DESC, id DESC
LIMIT $2
`
	rows, err := c.pool.Query(ctx, query, string(filter.Status), filter.EffectiveLimit())
	if err != nil {
		return nil, fmt.Errorf("listing runs: %w", err)
	}
	defer rows.Close()

	var runs []archive.RunSummary
	for rows.Next() {
		var (
			s       archive.RunSummary
			horizon string
			status  string
		)
		if err := rows.Scan(&s.ID, &s.RecordedAt, &s.Directive, &horizon, &status, &s.RiskCount); err != nil {
			return nil, fmt.Errorf("scanning run: %w", err)
		}
		s.RecordedAt = s.RecordedAt.UTC()
		s.Horizon = sim.Horizon(horizon)
		s.Status = sim.Status(status)
		runs = append(runs, s)
	}
	if err := rows.Err(); err != nil {
		return nil, fmt.Errorf("iterating runs: %w", err)
	}
	return runs, nil
}
