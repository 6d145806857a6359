package mcpserver

import (
	"context"
	"fmt"
	"sort"
	"strings"
	"time"

	"github.com/modelcontextprotocol/go-sdk/mcp"

	"github.com/b0ase/path402/apps/oreminer/internal/toolbar"
)

// --- Input types ---

type emptyInput struct{}

type historyInput struct {
	Limit int `json:"limit" jsonschema:"max number of samples to return (0 = 20)"`
}

const defaultHistoryLimit = 20

// registerTools adds all oreminer MCP tools to the server.
func (s *MCPServer) registerTools() {
	// Read-only tools

	mcp.AddTool(s.server, &mcp.Tool{
		Name:        "oreminer_toolbar",
		Description: "Toolbar status: state, phase, wallet, signature progress and mining metrics",
	}, s.handleToolbar)

	mcp.AddTool(s.server, &mcp.Tool{
		Name:        "oreminer_history",
		Description: "Recent mining metric samples, newest first",
	}, s.handleHistory)

	// Write tools

	mcp.AddTool(s.server, &mcp.Tool{
		Name:        "oreminer_open_toolbar",
		Description: "Expand the toolbar; without a mining account this opens the provisioning prompt",
	}, s.handleOpen)

	mcp.AddTool(s.server, &mcp.Tool{
		Name:        "oreminer_close_toolbar",
		Description: "Collapse the toolbar",
	}, s.handleClose)

	mcp.AddTool(s.server, &mcp.Tool{
		Name:        "oreminer_provision_account",
		Description: "Request the wallet signature that opens the ORE mining account",
	}, s.handleProvision)

	mcp.AddTool(s.server, &mcp.Tool{
		Name:        "oreminer_start_mining",
		Description: "Confirm the mining account and start polling chain state",
	}, s.handleStart)

	mcp.AddTool(s.server, &mcp.Tool{
		Name:        "oreminer_stop_mining",
		Description: "Stop the mining session and return to idle",
	}, s.handleStop)
}

// --- Handlers ---

func (s *MCPServer) handleToolbar(_ context.Context, _ *mcp.CallToolRequest, _ emptyInput) (*mcp.CallToolResult, any, error) {
	var b strings.Builder
	fmt.Fprintf(&b, "# ORE Miner\n\n")
	fmt.Fprintf(&b, "**Node ID:** `%s`\n", s.daemon.NodeID())
	fmt.Fprintf(&b, "**Uptime:** %s\n\n", s.daemon.Uptime().Round(time.Second))
	writeView(&b, s.daemon.Toolbar())

	wallet := s.daemon.WalletStatus()
	fmt.Fprintf(&b, "\n## Wallet\n")
	keys := make([]string, 0, len(wallet))
	for k := range wallet {
		keys = append(keys, k)
	}
	sort.Strings(keys)
	for _, k := range keys {
		fmt.Fprintf(&b, "- %s: %v\n", k, wallet[k])
	}

	return textResult(b.String()), nil, nil
}

func (s *MCPServer) handleHistory(_ context.Context, _ *mcp.CallToolRequest, input historyInput) (*mcp.CallToolResult, any, error) {
	limit := input.Limit
	if limit <= 0 {
		limit = defaultHistoryLimit
	}
	samples, err := s.daemon.History(limit)
	if err != nil {
		return errResult(fmt.Sprintf("failed to get history: %v", err)), nil, nil
	}

	var b strings.Builder
	fmt.Fprintf(&b, "# Mining History (%d)\n\n", len(samples))
	if len(samples) == 0 {
		fmt.Fprintf(&b, "No samples recorded yet.\n")
		return textResult(b.String()), nil, nil
	}
	fmt.Fprintf(&b, "| Time | Reward Rate | Claimable | Circulating | Timer |\n")
	fmt.Fprintf(&b, "|------|-------------|-----------|-------------|-------|\n")
	for _, sm := range samples {
		fmt.Fprintf(&b, "| %s | %.4f | %.4f | %.2f | %ds |\n",
			time.Unix(sm.SampledAt, 0).UTC().Format(time.RFC3339),
			sm.RewardRate, sm.ClaimableRewards, sm.CirculatingSupply, sm.SessionTimer)
	}
	return textResult(b.String()), nil, nil
}

func (s *MCPServer) handleOpen(ctx context.Context, _ *mcp.CallToolRequest, _ emptyInput) (*mcp.CallToolResult, any, error) {
	if err := s.daemon.OpenToolbar(ctx); err != nil {
		return errResult(fmt.Sprintf("open failed: %v", err)), nil, nil
	}
	return s.viewResult("Toolbar opened."), nil, nil
}

func (s *MCPServer) handleClose(_ context.Context, _ *mcp.CallToolRequest, _ emptyInput) (*mcp.CallToolResult, any, error) {
	s.daemon.CloseToolbar()
	return s.viewResult("Toolbar closed."), nil, nil
}

func (s *MCPServer) handleProvision(ctx context.Context, _ *mcp.CallToolRequest, _ emptyInput) (*mcp.CallToolResult, any, error) {
	if err := s.daemon.ProvisionAccount(ctx); err != nil {
		return errResult(fmt.Sprintf("provisioning failed: %v", err)), nil, nil
	}
	return s.viewResult("Signature requested. Mining starts once the account is confirmed."), nil, nil
}

func (s *MCPServer) handleStart(ctx context.Context, _ *mcp.CallToolRequest, _ emptyInput) (*mcp.CallToolResult, any, error) {
	if err := s.daemon.StartMining(ctx); err != nil {
		return errResult(fmt.Sprintf("start failed: %v", err)), nil, nil
	}
	return s.viewResult("Mining started."), nil, nil
}

func (s *MCPServer) handleStop(_ context.Context, _ *mcp.CallToolRequest, _ emptyInput) (*mcp.CallToolResult, any, error) {
	if err := s.daemon.StopMining(); err != nil {
		return errResult(fmt.Sprintf("stop failed: %v", err)), nil, nil
	}
	return s.viewResult("Mining stopped."), nil, nil
}

// --- Helpers ---

func (s *MCPServer) viewResult(headline string) *mcp.CallToolResult {
	var b strings.Builder
	fmt.Fprintf(&b, "%s\n\n", headline)
	writeView(&b, s.daemon.Toolbar())
	return textResult(b.String())
}

func writeView(b *strings.Builder, v toolbar.View) {
	fmt.Fprintf(b, "## Toolbar\n")
	fmt.Fprintf(b, "- State: %s\n", v.State)
	fmt.Fprintf(b, "- Phase: %s\n", v.Phase)
	if v.Address != "" {
		fmt.Fprintf(b, "- Address: `%s`\n", v.Address)
	}
	if v.Signature != nil {
		fmt.Fprintf(b, "- Signature: %s", v.Signature.State)
		if v.Signature.Signature != "" {
			fmt.Fprintf(b, " `%s`", v.Signature.Signature)
		}
		if v.Signature.Error != "" {
			fmt.Fprintf(b, " (%s: %s)", v.Signature.ErrorKind, v.Signature.Error)
		}
		fmt.Fprintf(b, "\n")
	}
	if v.LastError != "" {
		fmt.Fprintf(b, "- Last error: %s\n", v.LastError)
	}

	m := v.Metrics
	fmt.Fprintf(b, "\n## Metrics\n")
	fmt.Fprintf(b, "- Reward rate: %.4f ORE\n", m.RewardRate)
	fmt.Fprintf(b, "- Claimable: %.4f ORE\n", m.ClaimableRewards)
	fmt.Fprintf(b, "- Circulating supply: %.2f ORE\n", m.CirculatingSupply)
	fmt.Fprintf(b, "- Total supply: %s\n", m.TotalSupply)
	fmt.Fprintf(b, "- Hash: %s\n", m.Hash)
	fmt.Fprintf(b, "- Session timer: %ds\n", m.SessionTimer)
}

func textResult(text string) *mcp.CallToolResult {
	return &mcp.CallToolResult{
		Content: []mcp.Content{&mcp.TextContent{Text: text}},
	}
}

func errResult(msg string) *mcp.CallToolResult {
	return &mcp.CallToolResult{
		Content: []mcp.Content{&mcp.TextContent{Text: msg}},
		IsError: true,
	}
}
