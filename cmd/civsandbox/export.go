package main

import (
	"context"
	"fmt"
	"os"

	"github.com/spf13/cobra"

	"civsandbox/internal/export"
)

func exportCmd() *cobra.Command {
	var formatName string
	var write bool
	cmd := &cobra.Command{
		Use:   "export <run-id>",
		Short: "Export an archived run as JSON or CSV",
		Args:  cobra.ExactArgs(1),
		RunE: func(cmd *cobra.Command, args []string) error {
			return runExport(args[0], formatName, write)
		},
	}
	cmd.Flags().StringVar(&formatName, "format", "json", "Export format: json or csv")
	cmd.Flags().BoolVar(&write, "write", false, "Write into the configured export dir instead of stdout")
	return cmd
}

func runExport(id, formatName string, write bool) error {
	ctx := context.Background()

	format, err := export.ParseFormat(formatName)
	if err != nil {
		return err
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
	rec, err := store.GetRun(ctx, id)
	if err != nil {
		return err
	}

	if write {
		path, err := export.WriteFile(a.cfg.Export.Dir, format, &rec.Result, export.WriteOptions{Compress: a.cfg.Export.Compress})
		if err != nil {
			return err
		}
		fmt.Fprintf(os.Stdout, "Exported %s\n", path)
		return nil
	}

	data, err := export.Render(format, &rec.Result)
	if err != nil {
		return err
	}
	fmt.Fprintln(os.Stdout, string(data))
	return nil
}
