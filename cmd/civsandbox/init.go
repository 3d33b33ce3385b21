package main

import (
	"fmt"
	"os"
	"strings"

	"github.com/spf13/cobra"

	"civsandbox/internal/config"
)

func initCmd() *cobra.Command {
	var projectName string
	cmd := &cobra.Command{
		Use:   "init",
		Short: "Write a starter civsandbox.yaml",
		RunE: func(cmd *cobra.Command, args []string) error {
			if strings.TrimSpace(projectName) == "" {
				return fmt.Errorf("--name is required")
			}
			return runInit(configPath, projectName)
		},
	}
	cmd.Flags().StringVar(&projectName, "name", "civsandbox", "Project name")
	return cmd
}

func runInit(path, projectName string) error {
	if _, err := os.Stat(path); err == nil {
		return fmt.Errorf("%s already exists", path)
	}
	if err := os.WriteFile(path, []byte(config.Template(projectName)), 0o600); err != nil {
		return fmt.Errorf("writing %s: %w", path, err)
	}
	fmt.Fprintf(os.Stdout, "Wrote %s\n", path)
	return nil
}
