package sim

import (
	"fmt"
	"slices"
	"strings"
)

type Horizon string

const (
	HorizonShort  Horizon = "SHORT"
	HorizonMedium Horizon = "MEDIUM"
	HorizonLong   Horizon = "LONG"
)

// Years returns the simulated span for the horizon class. Unknown classes
// fall back to the longest span, as the dashboard selector did.
func (h Horizon) Years() int {
	switch h {
	case HorizonShort:
		return 100
	case HorizonMedium:
		return 1000
	default:
		return 10000
	}
}

func (h Horizon) Valid() bool {
	switch h {
	case HorizonShort, HorizonMedium, HorizonLong:
		return true
	}
	return false
}

func ParseHorizon(value string) (Horizon, error) {
	switch strings.ToLower(strings.TrimSpace(value)) {
	case "short", "100y":
		return HorizonShort, nil
	case "medium", "1k":
		return HorizonMedium, nil
	case "long", "10k":
		return HorizonLong, nil
	}
	return "", &ValidationError{Field: "horizon", Reason: fmt.Sprintf("unknown horizon class %q", value)}
}

type Status string

const (
	StatusSafe   Status = "SAFE"
	StatusAtRisk Status = "AT_RISK"
)

type Severity string

const (
	SeverityInfo     Severity = "info"
	SeverityWarning  Severity = "warning"
	SeverityCritical Severity = "critical"
)

// Token is the marker prepended to a rendered narrative line.
func (s Severity) Token() string {
	switch s {
	case SeverityWarning:
		return "[WARN]"
	case SeverityCritical:
		return "[CRIT]"
	default:
		return "[INFO]"
	}
}

type Parameters struct {
	Directive     string  `json:"directive" yaml:"directive"`
	Horizon       Horizon `json:"horizon" yaml:"horizon"`
	StepCount     int     `json:"step_count" yaml:"step_count"`
	AutonomyLevel int     `json:"autonomy_level" yaml:"autonomy_level"`
	RiskTolerance int     `json:"risk_tolerance" yaml:"risk_tolerance"`
}

type WorldState struct {
	Year        int     `json:"year"`
	SocialTrust float64 `json:"social_trust"`
	Inequality  float64 `json:"inequality"`
	Economy     float64 `json:"economy"`
}

type NarrativeLine struct {
	Severity Severity `json:"severity"`
	Text     string   `json:"text"`
}

type Result struct {
	Timeline      []WorldState    `json:"timeline"`
	FinalStatus   Status          `json:"final_status"`
	RisksDetected []string        `json:"risks_detected"`
	Narrative     []NarrativeLine `json:"narrative"`
}

// Final returns the last timeline point. A Result produced by Simulate always
// has at least one point.
func (r Result) Final() WorldState {
	if len(r.Timeline) == 0 {
		return WorldState{}
	}
	return r.Timeline[len(r.Timeline)-1]
}

// Clone returns a deep copy so callers can hand results out without sharing
// the backing slices.
func (r Result) Clone() Result {
	out := Result{
		FinalStatus:   r.FinalStatus,
		Timeline:      append([]WorldState(nil), r.Timeline...),
		RisksDetected: append([]string{}, r.RisksDetected...),
		Narrative:     append([]NarrativeLine(nil), r.Narrative...),
	}
	return out
}

// Equal reports whether two results carry the same timeline, status, risks
// and narrative. Nil and empty slices compare equal.
func (r Result) Equal(other Result) bool {
	return r.FinalStatus == other.FinalStatus &&
		slices.Equal(r.Timeline, other.Timeline) &&
		slices.Equal(r.RisksDetected, other.RisksDetected) &&
		slices.Equal(r.Narrative, other.Narrative)
}

// NarrativeText renders the narrative as one line per entry, each carrying
// its severity token.
func (r *Result) NarrativeText() string {
	if r == nil {
		return ""
	}
	lines := make([]string, 0, len(r.Narrative))
	for _, line := range r.Narrative {
		lines = append(lines, line.Severity.Token()+" "+line.Text)
	}
	return strings.Join(lines, "\n")
}
