package mysql

import (
	"context"
	"errors"
	"fmt"
	"time"

	"gorm.io/gorm"
	"gorm.io/gorm/clause"

	"civsandbox/internal/archive"
	"civsandbox/internal/sandbox"
	"civsandbox/internal/sim"
)

type runRow struct {
	ID            string    `gorm:"type:varchar(64);primaryKey"`
	RecordedAt    time.Time `gorm:"type:datetime(6);not null;index:idx_runs_recorded_at;index:idx_runs_status,priority:2"`
	Directive     string    `gorm:"type:text;not null"`
	Horizon       string    `gorm:"type:varchar(16);not null"`
	StepCount     int       `gorm:"not null"`
	AutonomyLevel int       `gorm:"not null"`
	RiskTolerance int       `gorm:"not null"`
	FinalStatus   string    `gorm:"type:varchar(16);not null;index:idx_runs_status,priority:1"`
	RiskCount     int       `gorm:"not null;default:0"`
	Result        string    `gorm:"type:longtext;not null"`
}

func (runRow) TableName() string { return "runs" }

func (c *Client) SaveRun(ctx context.Context, rec sandbox.RunRecord) error {
	result, err := archive.EncodeResult(rec.Result)
	if err != nil {
		return err
	}
	row := runRow{
		ID:            rec.ID,
		RecordedAt:    rec.Timestamp.UTC(),
		Directive:     rec.Parameters.Directive,
		Horizon:       string(rec.Parameters.Horizon),
		StepCount:     rec.Parameters.StepCount,
		AutonomyLevel: rec.Parameters.AutonomyLevel,
		RiskTolerance: rec.Parameters.RiskTolerance,
		FinalStatus:   string(rec.Result.FinalStatus),
		RiskCount:     len(rec.Result.RisksDetected),
		Result:        string(result),
	}
	err = c.db.WithContext(ctx).Clauses(clause.OnConflict{DoNothing: true}).Create(&row).Error
	if err != nil {
		return fmt.Errorf("saving run: %w", err)
	}
	return nil
}

func (c *Client) GetRun(ctx context.Context, id string) (*sandbox.RunRecord, error) {
	var row runRow
	err := c.db.WithContext(ctx).Where("id = ?", id).Take(&row).Error
	if errors.Is(err, gorm.ErrRecordNotFound) {
		return nil, archive.ErrNotFound
	}
	if err != nil {
		return nil, fmt.Errorf("getting run: %w", err)
	}

	result, err := archive.DecodeResult([]byte(row.Result))
	if err != nil {
		return nil, err
	}
	return &sandbox.RunRecord{
		ID: row.ID,
		Parameters: sim.Parameters{
			Directive:     row.Directive,
			Horizon:       sim.Horizon(row.Horizon),
			StepCount:     row.StepCount,
			AutonomyLevel: row.AutonomyLevel,
			RiskTolerance: row.RiskTolerance,
		},
		Result:    result,
		Timestamp: row.RecordedAt.UTC(),
	}, nil
}

func (c *Client) ListRuns(ctx context.Context, filter archive.ListFilter) ([]archive.RunSummary, error) {
	q := c.db.WithContext(ctx).
		Select("id", "recorded_at", "directive", "horizon", "final_status", "risk_count").
		Order("recorded_at DESC").
		Order("id DESC").
		Limit(filter.EffectiveLimit())
	if filter.Status != "" {
		q = q.Where("final_status = ?", string(filter.Status))
	}

	var rows []runRow
	if err := q.Find(&rows).Error; err != nil {
		return nil, fmt.Errorf("listing runs: %w", err)
	}

	runs := make([]archive.RunSummary, 0, len(rows))
	for _, row := range rows {
		runs = append(runs, archive.RunSummary{
			ID:         row.ID,
			RecordedAt: row.RecordedAt.UTC(),
			Directive:  row.Directive,
			Horizon:    sim.Horizon(row.Horizon),
			Status:     sim.Status(row.FinalStatus),
			RiskCount:  row.RiskCount,
		})
	}
	return runs, nil
}
