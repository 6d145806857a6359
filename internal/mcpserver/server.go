package mcpserver

import (
	"context"
	"time"

	"github.com/modelcontextprotocol/go-sdk/mcp"

	"github.com/b0ase/path402/apps/oreminer/internal/db"
	"github.com/b0ase/path402/apps/oreminer/internal/toolbar"
)

// DaemonInfo provides daemon state and the toolbar entry points to MCP tools.
type DaemonInfo interface {
	NodeID() string
	Uptime() time.Duration
	Toolbar() toolbar.View
	OpenToolbar(ctx context.Context) error
	CloseToolbar()
	ProvisionAccount(ctx context.Context) error
	StartMining(ctx context.Context) error
	StopMining() error
	WalletStatus() map[string]interface{}
	History(limit int) ([]db.MetricSample, error)
}

// MCPServer wraps the MCP protocol server with oreminer tools.
type MCPServer struct {
	server *mcp.Server
	daemon DaemonInfo
}

// New creates an MCP server with all oreminer tools registered.
func New(version string, daemon DaemonInfo) *MCPServer {
	s := &MCPServer{
		daemon: daemon,
		server: mcp.NewServer(
			&mcp.Implementation{
				Name:    "oreminer",
				Version: version,
			},
			&mcp.ServerOptions{
				Instructions: "ORE mining toolbar. Provides tools to inspect the toolbar and mining metrics, provision the mining account, and start or stop mining.",
			},
		),
	}
	s.registerTools()
	return s
}

// Run starts the MCP server on stdio, blocking until the client disconnects.
func (s *MCPServer) Run(ctx context.Context) error {
	return s.server.Run(ctx, &mcp.StdioTransport{})
}
