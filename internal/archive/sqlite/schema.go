package sqlite

import (
	"context"
	"fmt"
)

func (c *Client) EnsureSchema(ctx context.Context) error {
	ddl := `
	CREATE TABLE IF NOT EXISTS runs (
		id             TEXT PRIMARY KEY,
		recorded_at    TEXT NOT NULL,
		directive      TEXT NOT NULL DEFAULT '',
		horizon        TEXT NOT NULL,
		step_count     INTEGER NOT NULL,
		autonomy_level INTEGER NOT NULL,
		risk_tolerance INTEGER NOT NULL,
		final_status   TEXT NOT NULL,
		risk_count     INTEGER NOT NULL DEFAULT 0,
		result         TEXT NOT NULL
	);

	CREATE INDEX IF NOT EXISTS idx_runs_recorded_at ON runs (recorded_at);
	CREATE INDEX IF NOT EXISTS idx_runs_status ON runs (final_status, recorded_at);
	`
	if _, err := c.db.ExecContext(ctx, ddl); err != nil {
		return fmt.Errorf("ensuring schema: %w", err)
	}
	return nil
}
