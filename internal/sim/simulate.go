package sim

import (
	"math"
	"math/big"
)

const (
	RiskTrustErosion        = "Critical erosion of social trust detected"
	RiskWealthConcentration = "Severe wealth concentration threatening stability"
	RiskLossOfControl       = "High autonomy + high risk = potential loss of control"
)

// Simulate runs the fixed parametric model. It never fails: out-of-range
// inputs are absorbed by the clamping of every indicator into [0,1].
func Simulate(p Parameters) Result {
	steps := p.EffectiveSteps()
	span := float64(p.Horizon.Years())
	autonomy := float64(p.AutonomyLevel)
	risk := float64(p.RiskTolerance)

	timeline := make([]WorldState, 0, steps+1)
	for i := 0; i <= steps; i++ {
		progress := 0.0
		if steps > 0 {
			progress = float64(i) / float64(steps)
		}
		timeline = append(timeline, stateAt(progress, span, autonomy, risk))
	}

	final := timeline[len(timeline)-1]
	risks := detectRisks(final, p.AutonomyLevel, p.RiskTolerance)

	status := StatusAtRisk
	if IsSafe(risks, final) {
		status = StatusSafe
	}

	return Result{
		Timeline:      timeline,
		FinalStatus:   status,
		RisksDetected: risks,
		Narrative:     synthesizeNarrative(p, timeline, risks),
	}
}

func stateAt(progress, span, autonomy, risk float64) WorldState {
	trustBase := 0.7 - autonomy/200
	trust := clamp01(trustBase - progress*(risk/100)*0.3)

	inequalityBase := 0.3 + autonomy/150
	inequality := clamp01(inequalityBase + progress*(risk/200))

	economy := clamp01(0.6 + math.Sin(progress*math.Pi*2)*(risk/100)*0.3)

	return WorldState{
		Year:        int(math.Floor(progress * span)),
		SocialTrust: round3(trust),
		Inequality:  round3(inequality),
		Economy:     round3(economy),
	}
}

// IsSafe is the single predicate behind both FinalStatus and the closing
// narrative line.
func IsSafe(risks []string, final WorldState) bool {
	return len(risks) == 0 && final.SocialTrust > 0.4
}

// detectRisks evaluates the final point only. Findings keep this order.
func detectRisks(final WorldState, autonomy, risk int) []string {
	risks := make([]string, 0, 3)
	if final.SocialTrust < 0.3 {
		risks = append(risks, RiskTrustErosion)
	}
	if final.Inequality > 0.7 {
		risks = append(risks, RiskWealthConcentration)
	}
	if autonomy > 80 && risk > 60 {
		risks = append(risks, RiskLossOfControl)
	}
	return risks
}

func clamp01(x float64) float64 {
	return math.Max(0, math.Min(1, x))
}

// round3 rounds a non-negative value to three decimals, half up on the exact
// binary value (0.0625 becomes 0.063). This matches toFixed(3) in the
// dashboard, which strconv's round-half-even does not on exact ties.
func round3(x float64) float64 {
	if x <= 0 {
		return 0
	}
	v := new(big.Float).SetPrec(256).SetFloat64(x)
	v.Mul(v, big.NewFloat(1000))
	v.Add(v, big.NewFloat(0.5))
	n, _ := v.Int64()
	return float64(n) / 1000
}
