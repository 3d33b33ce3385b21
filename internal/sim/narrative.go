package sim

import "fmt"

// synthesizeNarrative builds the fixed report. Checkpoint labels use the
// timeline length, not a year from the timeline; every direction call is
// made against the final state.
func synthesizeNarrative(p Parameters, timeline []WorldState, risks []string) []NarrativeLine {
	final := timeline[len(timeline)-1]
	n := len(timeline)

	lines := []NarrativeLine{
		info("SIMULATION INITIALIZED: %s", p.Directive),
		info("Horizon: %s | Autonomy: %d%% | Risk: %d%%", p.Horizon, p.AutonomyLevel, p.RiskTolerance),
		info("Year 0: Policy implementation begins"),
	}
	if p.AutonomyLevel > 60 {
		lines = append(lines, warning("High autonomy detected - oversight mechanisms activated"))
	}
	if p.RiskTolerance > 50 {
		lines = append(lines, warning("Elevated risk tolerance - monitoring critical thresholds"))
	}

	lines = append(lines, info("Year %d: Early indicators", n/3))
	if final.SocialTrust > 0.5 {
		lines = append(lines, info("Social trust stabilizing"))
	} else {
		lines = append(lines, critical("Social trust declining"))
	}
	if final.Economy > 0.5 {
		lines = append(lines, info("Economic power growing"))
	} else {
		lines = append(lines, info("Economic power volatile"))
	}

	lines = append(lines, info("Year %d: Mid-term assessment", n*2/3))
	if final.Inequality < 0.5 {
		lines = append(lines, info("Inequality controlled"))
	} else {
		lines = append(lines, critical("Inequality rising dangerously"))
	}

	lines = append(lines, info("Year %d: Final state reached", final.Year))
	if IsSafe(risks, final) {
		lines = append(lines, info("Simulation completed within safe parameters"))
	} else {
		lines = append(lines, critical("CRITICAL: Unacceptable outcome detected"))
	}
	return lines
}

func info(format string, args ...any) NarrativeLine {
	return NarrativeLine{Severity: SeverityInfo, Text: fmt.Sprintf(format, args...)}
}

func warning(format string, args ...any) NarrativeLine {
	return NarrativeLine{Severity: SeverityWarning, Text: fmt.Sprintf(format, args...)}
}

func critical(format string, args ...any) NarrativeLine {
	return NarrativeLine{Severity: SeverityCritical, Text: fmt.Sprintf(format, args...)}
}
