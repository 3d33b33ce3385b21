package validate

import (
	"context"

	"civsandbox/internal/archive"
	"civsandbox/internal/sandbox"
)

// RunSource is the read side of an archive.
type RunSource interface {
	ListRuns(ctx context.Context, filter archive.ListFilter) ([]archive.RunSummary, error)
	GetRun(ctx context.Context, id string) (*sandbox.RunRecord, error)
}
