package postgres

import (
	"context"
	"fmt"
)

func (c *Client) EnsureSchema(ctx context.Context) error {
	ddl := `
CREATE TABLE IF NOT EXISTS runs (
    id             TEXT PRIMARY KEY,
    recorded_at    TIMESTAMPTZ NOT NULL,
    directive      TEXT NOT NULL DEFAULT '',
    horizon        TEXT NOT NULL,
    step_count     INTEGER NOT NULL,
    autonomy_level SMALLINT NOT NULL CHECK (autonomy_level BETWEEN 0 AND 100),
    risk_tolerance SMALLINT NOT NULL CHECK (risk_tolerance BETWEEN 0 AND 100),
    final_status   TEXT NOT NULL,
    risk_count     INTEGER NOT NULL DEFAULT 0,
    result         JSONB NOT NULL
);

CREATE INDEX IF NOT EXISTS idx_runs_recorded_at ON runs (recorded_at DESC);
CREATE INDEX IF NOT EXISTS idx_runs_status ON runs (final_status, recorded_at DESC);
`
	if _, err := c.pool.Exec(ctx, ddl); err != nil {
		return fmt.Errorf("ensuring schema: %w", err)
	}
	return nil
}
