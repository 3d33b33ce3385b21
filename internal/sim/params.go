package sim

import (
	"fmt"
	"strings"
)

const (
	MaxSteps     = 100
	MaxLevel     = 100
	maxDirective = 2000
)

// ValidationError reports a parameter rejected at the boundary, before it
// reaches the core.
type ValidationError struct {
	Field  string
	Reason string
}

func (e *ValidationError) Error() string {
	return fmt.Sprintf("invalid %s: %s", e.Field, e.Reason)
}

// DefaultParameters mirrors the initial values of the sandbox form.
func DefaultParameters() Parameters {
	return Parameters{
		Directive:     "Implement Universal Basic Compute",
		Horizon:       HorizonMedium,
		StepCount:     50,
		AutonomyLevel: 50,
		RiskTolerance: 20,
	}
}

func NewParameters(directive string, horizon Horizon, stepCount, autonomy, risk int) (Parameters, error) {
	p := Parameters{
		Directive:     directive,
		Horizon:       horizon,
		StepCount:     stepCount,
		AutonomyLevel: autonomy,
		RiskTolerance: risk,
	}
	if err := p.Validate(); err != nil {
		return Parameters{}, err
	}
	return p, nil
}

func (p Parameters) Validate() error {
	if len(p.Directive) > maxDirective {
		return &ValidationError{Field: "directive", Reason: fmt.Sprintf("longer than %d bytes", maxDirective)}
	}
	if strings.ContainsRune(p.Directive, 0) {
		return &ValidationError{Field: "directive", Reason: "contains a NUL byte"}
	}
	if !p.Horizon.Valid() {
		return &ValidationError{Field: "horizon", Reason: fmt.Sprintf("unknown horizon class %q", p.Horizon)}
	}
	if p.StepCount < 0 {
		return &ValidationError{Field: "step_count", Reason: fmt.Sprintf("must be non-negative, got %d", p.StepCount)}
	}
	if p.AutonomyLevel < 0 || p.AutonomyLevel > MaxLevel {
		return &ValidationError{Field: "autonomy_level", Reason: fmt.Sprintf("must be between 0 and %d, got %d", MaxLevel, p.AutonomyLevel)}
	}
	if p.RiskTolerance < 0 || p.RiskTolerance > MaxLevel {
		return &ValidationError{Field: "risk_tolerance", Reason: fmt.Sprintf("must be between 0 and %d, got %d", MaxLevel, p.RiskTolerance)}
	}
	return nil
}

// EffectiveSteps is the number of intervals actually sampled.
func (p Parameters) EffectiveSteps() int {
	if p.StepCount <= 0 {
		return 0
	}
	if p.StepCount > MaxSteps {
		return MaxSteps
	}
	return p.StepCount
}
