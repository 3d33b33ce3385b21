package main

import (
	"context"
	"fmt"
	"os"
	"strings"
	"time"

	"github.com/spf13/cobra"

	"civsandbox/internal/archive"
	"civsandbox/internal/sim"
)

func historyCmd() *cobra.Command {
	var status string
	var limit int
	cmd := &cobra.Command{
		Use:   "history",
		Short: "List archived runs, newest first",
		Args:  cobra.NoArgs,
		RunE: func(cmd *cobra.Command, args []string) error {
			return runHistory(status, limit)
		},
	}
	cmd.Flags().StringVar(&status, "status", "", "Filter by final status (SAFE or AT_RISK)")
	cmd.Flags().IntVar(&limit, "limit", archive.DefaultListLimit, "Maximum runs to list")
	return cmd
}

func runHistory(status string, limit int) error {
	ctx := context.Background()

	filter := archive.ListFilter{Limit: limit}
	if status != "" {
		filter.Status = sim.Status(strings.ToUpper(status))
		if filter.Status != sim.StatusSafe && filter.Status != sim.StatusAtRisk {
			return fmt.Errorf("unknown status %q (valid: SAFE, AT_RISK)", status)
		}
	}

	a, err := newApp(ctx)
	if err != nil {
		return err
	}
	defer a.Close(ctx)

	store, err := a.archive()
	if err != nil {
		return err
	}
	runs, err := store.ListRuns(ctx, filter)
	if err != nil {
		return err
	}
	if len(runs) == 0 {
		fmt.Fprintln(os.Stdout, "No runs found.")
		return nil
	}

	for _, run := range runs {
		fmt.Fprintf(os.Stdout, "%s  %s  %-7s  %-6s  risks=%d  %s\n",
			run.ID, run.RecordedAt.UTC().Format(time.RFC3339), run.Status, run.Horizon, run.RiskCount, directiveSnippet(run.Directive))
	}
	return nil
}
