package main

import (
	"os"

	"github.com/spf13/cobra"

	"civsandbox/internal/config"
)

var configPath string

func main() {
	root := &cobra.Command{
		Use:   "civsandbox",
		Short: "Civilization outcome simulation sandbox",
	}
	root.Version = version
	root.SetVersionTemplate("{{.Version}}\n")
	root.PersistentFlags().StringVar(&configPath, "config", config.DefaultPath, "Path to the project config file")
	root.AddCommand(initCmd())
	root.AddCommand(runCmd())
	root.AddCommand(exportCmd())
	root.AddCommand(serveCmd())
	root.AddCommand(mcpCmd())
	root.AddCommand(historyCmd())
	root.AddCommand(replayCmd())
	root.AddCommand(validateCmd())
	root.AddCommand(schemaCmd())
	root.AddCommand(versionCmd())
	if err := root.Execute(); err != nil {
		os.Exit(1)
	}
}
