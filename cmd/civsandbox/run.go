package main

import (
	"context"
	"fmt"
	"io"
	"os"
	"strings"
	"time"

	"github.com/spf13/cobra"

	"civsandbox/internal/config"
	"civsandbox/internal/export"
	"civsandbox/internal/request"
	"civsandbox/internal/sandbox"
	"civsandbox/internal/sim"
)

type runFlags struct {
	paramsFile string
	directive  string
	horizon    string
	steps      int
	autonomy   int
	risk       int
	delay      time.Duration
	exportAs   string
	jsonOut    bool
}

func runCmd() *cobra.Command {
	var f runFlags
	cmd := &cobra.Command{
		Use:   "run",
		Short: "Run one simulation and print its narrative",
		Args:  cobra.NoArgs,
		RunE: func(cmd *cobra.Command, args []string) error {
			return runRun(f, cmd.Flags().Changed)
		},
	}
	cmd.Flags().StringVar(&f.paramsFile, "params", "", "JSON request file with simulation parameters")
	cmd.Flags().StringVar(&f.directive, "directive", "", "Policy directive text")
	cmd.Flags().StringVar(&f.horizon, "horizon", "", "Horizon class: short|medium|long (or 100y|1k|10k)")
	cmd.Flags().IntVar(&f.steps, "steps", 0, "Step count (capped at 100)")
	cmd.Flags().IntVar(&f.autonomy, "autonomy", 0, "Autonomy level 0-100")
	cmd.Flags().IntVar(&f.risk, "risk", 0, "Risk tolerance 0-100")
	cmd.Flags().DurationVar(&f.delay, "delay", 0, "Processing delay before the run (overrides config)")
	cmd.Flags().StringVar(&f.exportAs, "export", "", "Also write the result to the export dir as json or csv")
	cmd.Flags().BoolVar(&f.jsonOut, "json", false, "Print the full result as JSON instead of the narrative")
	return cmd
}

func runRun(f runFlags, changed func(string) bool) error {
	ctx := context.Background()

	var format export.Format
	if f.exportAs != "" {
		var err error
		if format, err = export.ParseFormat(f.exportAs); err != nil {
			return err
		}
	}

	a, err := newApp(ctx, func(cfg *config.ProjectConfig) {
		if changed("delay") {
			cfg.Orchestrator.ProcessingDelay = f.delay
		}
	})
	if err != nil {
		return err
	}
	defer a.Close(ctx)

	p, err := resolveParameters(f, changed, a.defaults)
	if err != nil {
		return err
	}

	rec, err := a.orch.Run(ctx, p)
	if err != nil {
		return err
	}

	if f.jsonOut {
		data, err := export.JSON(&rec.Result)
		if err != nil {
			return err
		}
		fmt.Fprintln(os.Stdout, string(data))
	} else {
		printRun(os.Stdout, *rec)
	}

	if f.exportAs != "" {
		path, err := export.WriteFile(a.cfg.Export.Dir, format, &rec.Result, export.WriteOptions{Compress: a.cfg.Export.Compress})
		if err != nil {
			return err
		}
		fmt.Fprintf(os.Stdout, "\nExported %s\n", path)
	}
	return nil
}

// resolveParameters layers the request file over the config defaults and
// explicit flags over both.
func resolveParameters(f runFlags, changed func(string) bool, defaults sim.Parameters) (sim.Parameters, error) {
	p := defaults
	if f.paramsFile != "" {
		raw, err := os.ReadFile(f.paramsFile)
		if err != nil {
			return sim.Parameters{}, fmt.Errorf("reading %s: %w", f.paramsFile, err)
		}
		if p, err = request.Decode(raw, defaults); err != nil {
			return sim.Parameters{}, err
		}
	}

	if changed("directive") {
		p.Directive = f.directive
	}
	if changed("horizon") {
		h, err := sim.ParseHorizon(f.horizon)
		if err != nil {
			return sim.Parameters{}, err
		}
		p.Horizon = h
	}
	if changed("steps") {
		p.StepCount = f.steps
	}
	if changed("autonomy") {
		p.AutonomyLevel = f.autonomy
	}
	if changed("risk") {
		p.RiskTolerance = f.risk
	}

	if err := p.Validate(); err != nil {
		return sim.Parameters{}, err
	}
	return p, nil
}

func printRun(out io.Writer, rec sandbox.RunRecord) {
	fmt.Fprintf(out, "Run %s (%s)\n\n", rec.ID, rec.Timestamp.UTC().Format(time.RFC3339))
	fmt.Fprintln(out, rec.Result.NarrativeText())
	fmt.Fprintln(out, "")

	final := rec.Result.Final()
	fmt.Fprintf(out, "Final status: %s\n", rec.Result.FinalStatus)
	fmt.Fprintf(out, "Final state:  year %d, trust %g, inequality %g, economy %g\n",
		final.Year, final.SocialTrust, final.Inequality, final.Economy)
	if len(rec.Result.RisksDetected) == 0 {
		fmt.Fprintln(out, "Risks:        none")
		return
	}
	fmt.Fprintf(out, "Risks (%d):\n", len(rec.Result.RisksDetected))
	for _, risk := range rec.Result.RisksDetected {
		fmt.Fprintf(out, "  - %s\n", risk)
	}
}

func directiveSnippet(directive string) string {
	runes := []rune(strings.Join(strings.Fields(directive), " "))
	if len(runes) <= 48 {
		return string(runes)
	}
	return string(runes[:45]) + "..."
}
