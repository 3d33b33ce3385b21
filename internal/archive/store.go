// Package archive persists completed runs beyond the in-memory history.
package archive

import (
	"context"
	"encoding/json"
	"errors"
	"fmt"
	"time"

	"civsandbox/internal/sandbox"
	"civsandbox/internal/sim"
)

var ErrNotFound = errors.New("run not found in archive")

type Store interface {
	Close(ctx context.Context) error
	EnsureSchema(ctx context.Context) error

	SaveRun(ctx context.Context, rec sandbox.RunRecord) error
	GetRun(ctx context.Context, id string) (*sandbox.RunRecord, error)
	ListRuns(ctx context.Context, filter ListFilter) ([]RunSummary, error)
}

type ListFilter struct {
	Status sim.Status
	// Limit caps the result, newest first. Zero means DefaultListLimit.
	Limit int
}

const DefaultListLimit = 50

func (f ListFilter) EffectiveLimit() int {
	if f.Limit <= 0 {
		return DefaultListLimit
	}
	return f.Limit
}

type RunSummary struct {
	ID         string
	RecordedAt time.Time
	Directive  string
	Horizon    sim.Horizon
	Status     sim.Status
	RiskCount  int
}

// EncodeResult is the column encoding shared by every backend.
func EncodeResult(r sim.Result) ([]byte, error) {
	data, err := json.Marshal(r)
	if err != nil {
		return nil, fmt.Errorf("encoding result: %w", err)
	}
	return data, nil
}

func DecodeResult(data []byte) (sim.Result, error) {
	var r sim.Result
	if err := json.Unmarshal(data, &r); err != nil {
		return sim.Result{}, fmt.Errorf("decoding result: %w", err)
	}
	if r.RisksDetected == nil {
		r.RisksDetected = []string{}
	}
	return r, nil
}
