// Package validate audits stored runs: every record must still satisfy the
// model's invariants and reproduce exactly from its parameters.
package validate

import (
	"context"
	"fmt"

	"civsandbox/internal/archive"
	"civsandbox/internal/sandbox"
	"civsandbox/internal/sim"
)

type Severity string

const (
	SeverityError Severity = "error"
	SeverityWarn  Severity = "warning"
)

const (
	codeInvalidParameters  = "invalid_parameters"
	codeTimelineLength     = "timeline_length"
	codeTimelineStart      = "timeline_start"
	codeYearOrder          = "year_order"
	codeIndicatorRange     = "indicator_range"
	codeStatusInconsistent = "status_inconsistent"
	codeResultDrift        = "result_drift"
	codeSummaryMismatch    = "summary_mismatch"
)

type Issue struct {
	Severity Severity
	Code     string
	Message  string
	RunID    string
}

type Report struct {
	Checked int
	Issues  []Issue
}

func (r *Report) HasErrors() bool {
	for _, issue := range r.Issues {
		if issue.Severity == SeverityError {
			return true
		}
	}
	return false
}

// Run audits up to limit archived runs, newest first.
func Run(ctx context.Context, source RunSource, limit int) (*Report, error) {
	if source == nil {
		return nil, fmt.Errorf("run source is required")
	}

	summaries, err := source.ListRuns(ctx, archive.ListFilter{Limit: limit})
	if err != nil {
		return nil, fmt.Errorf("list runs: %w", err)
	}

	report := &Report{Issues: make([]Issue, 0)}
	for _, summary := range summaries {
		rec, err := source.GetRun(ctx, summary.ID)
		if err != nil {
			return nil, fmt.Errorf("get run %s: %w", summary.ID, err)
		}
		report.Checked++
		if rec.Result.FinalStatus != summary.Status {
			report.Issues = append(report.Issues, Issue{
				Severity: SeverityWarn,
				Code:     codeSummaryMismatch,
				Message:  fmt.Sprintf("indexed status %s, stored result says %s", summary.Status, rec.Result.FinalStatus),
				RunID:    rec.ID,
			})
		}
		report.Issues = append(report.Issues, Record(*rec)...)
	}
	return report, nil
}

// Record checks a single run.
func Record(rec sandbox.RunRecord) []Issue {
	var issues []Issue
	add := func(code, format string, args ...any) {
		issues = append(issues, Issue{
			Severity: SeverityError,
			Code:     code,
			Message:  fmt.Sprintf(format, args...),
			RunID:    rec.ID,
		})
	}

	if err := rec.Parameters.Validate(); err != nil {
		add(codeInvalidParameters, "%v", err)
	}

	timeline := rec.Result.Timeline
	if want := rec.Parameters.EffectiveSteps() + 1; len(timeline) != want {
		add(codeTimelineLength, "timeline has %d points, expected %d", len(timeline), want)
	}
	if len(timeline) > 0 && timeline[0].Year != 0 {
		add(codeTimelineStart, "timeline starts at year %d", timeline[0].Year)
	}
	for i := 1; i < len(timeline); i++ {
		if timeline[i].Year < timeline[i-1].Year {
			add(codeYearOrder, "year decreases at point %d (%d after %d)", i, timeline[i].Year, timeline[i-1].Year)
			break
		}
	}
	for i, pt := range timeline {
		if !inUnit(pt.SocialTrust) || !inUnit(pt.Inequality) || !inUnit(pt.Economy) {
			add(codeIndicatorRange, "indicator out of [0,1] at point %d", i)
			break
		}
	}

	if len(timeline) > 0 {
		safe := sim.IsSafe(rec.Result.RisksDetected, rec.Result.Final())
		if safe != (rec.Result.FinalStatus == sim.StatusSafe) {
			add(codeStatusInconsistent, "status %s disagrees with %d risks and final trust %v",
				rec.Result.FinalStatus, len(rec.Result.RisksDetected), rec.Result.Final().SocialTrust)
		}
	}

	if !sim.Simulate(rec.Parameters).Equal(rec.Result) {
		add(codeResultDrift, "stored result does not reproduce from its parameters")
	}
	return issues
}

func inUnit(v float64) bool {
	return v >= 0 && v <= 1
}
