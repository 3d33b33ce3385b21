package main

import (
	"context"
	"fmt"
	"os"

	"github.com/spf13/cobra"
)

func replayCmd() *cobra.Command {
	return &cobra.Command{
		Use:   "replay <run-id>",
		Short: "Show an archived run and check that it still reproduces",
		Args:  cobra.ExactArgs(1),
		RunE: func(cmd *cobra.Command, args []string) error {
			return runReplay(args[0])
		},
	}
}

func runReplay(id string) error {
	ctx := context.Background()

	a, err := newApp(ctx)
	if err != nil {
		return err
	}
	defer a.Close(ctx)

	store, err := a.archive()
	if err != nil {
		return err
	}
	rec, err := store.GetRun(ctx, id)
	if err != nil {
		return err
	}

	printRun(os.Stdout, *rec)

	if _, ok := a.orch.Reproduce(*rec); !ok {
		fmt.Fprintln(os.Stdout, "\nReproduced: no")
		return fmt.Errorf("run %s no longer reproduces from its parameters", rec.ID)
	}
	fmt.Fprintln(os.Stdout, "\nReproduced: yes")
	return nil
}
