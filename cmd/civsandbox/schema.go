package main

import (
	"fmt"
	"os"

	"github.com/spf13/cobra"

	"civsandbox/internal/request"
)

func schemaCmd() *cobra.Command {
	return &cobra.Command{
		Use:   "schema",
		Short: "Print the JSON schema for run requests",
		Args:  cobra.NoArgs,
		Run: func(cmd *cobra.Command, args []string) {
			fmt.Fprint(os.Stdout, request.Schema())
		},
	}
}
