package main

import (
	"context"

	"github.com/spf13/cobra"

	"civsandbox/internal/mcp"

	sdk "github.com/modelcontextprotocol/go-sdk/mcp"
)

func mcpCmd() *cobra.Command {
	cmd := &cobra.Command{
		Use:   "mcp",
		Short: "Start the MCP server over stdio",
		Args:  cobra.NoArgs,
		RunE:  runMCP,
	}
	return cmd
}

func runMCP(cmd *cobra.Command, args []string) error {
	ctx := context.Background()

	a, err := newApp(ctx)
	if err != nil {
		return err
	}
	defer a.Close(ctx)

	server := mcp.NewServer(a.orch, a.defaults, a.store, version)
	return server.Run(ctx, &sdk.StdioTransport{})
}
