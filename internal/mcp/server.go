package mcp

import (
	"context"

	sdk "github.com/modelcontextprotocol/go-sdk/mcp"

	"civsandbox/internal/archive"
	"civsandbox/internal/sandbox"
	"civsandbox/internal/sim"
)

type Server struct {
	orch     *sandbox.Orchestrator
	defaults sim.Parameters
	// archive is optional; without it only the session history is visible.
	archive archive.Store
	mcp     *sdk.Server
}

func NewServer(orch *sandbox.Orchestrator, defaults sim.Parameters, store archive.Store, version string) *Server {
	s := &Server{
		orch:     orch,
		defaults: defaults,
		archive:  store,
		mcp: sdk.NewServer(&sdk.Implementation{
			Name:    "civsandbox",
			Version: version,
		}, nil),
	}
	s.registerTools()
	return s
}

func (s *Server) Run(ctx context.Context, transport sdk.Transport) error {
	return s.mcp.Run(ctx, transport)
}
