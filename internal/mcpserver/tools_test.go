package mcpserver

import (
	"context"
	"errors"
	"testing"
	"time"

	"github.com/modelcontextprotocol/go-sdk/mcp"
	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"

	"github.com/b0ase/path402/apps/oreminer/internal/db"
	"github.com/b0ase/path402/apps/oreminer/internal/mining"
	"github.com/b0ase/path402/apps/oreminer/internal/toolbar"
	"github.com/b0ase/path402/apps/oreminer/internal/wallet"
)

type fakeDaemon struct {
	view     toolbar.View
	startErr error
	stopped  bool
	limit    int
	samples  []db.MetricSample
}

func (f *fakeDaemon) NodeID() string                          { return "node-1" }
func (f *fakeDaemon) Uptime() time.Duration                   { return 90 * time.Second }
func (f *fakeDaemon) Toolbar() toolbar.View                   { return f.view }
func (f *fakeDaemon) OpenToolbar(context.Context) error       { return wallet.ErrNotConnected }
func (f *fakeDaemon) CloseToolbar()                           {}
func (f *fakeDaemon) ProvisionAccount(context.Context) error  { return nil }
func (f *fakeDaemon) StartMining(context.Context) error       { return f.startErr }
func (f *fakeDaemon) StopMining() error                       { f.stopped = true; return nil }
func (f *fakeDaemon) WalletStatus() map[string]interface{}    { return map[string]interface{}{"connected": true} }
func (f *fakeDaemon) History(limit int) ([]db.MetricSample, error) {
	f.limit = limit
	return f.samples, nil
}

func text(t *testing.T, r *mcp.CallToolResult) string {
	t.Helper()
	require.Len(t, r.Content, 1)
	tc, ok := r.Content[0].(*mcp.TextContent)
	require.True(t, ok)
	return tc.Text
}

func activeView() toolbar.View {
	return toolbar.View{
		State:   "active",
		Phase:   toolbar.PhaseActiveOpen,
		Address: "Addr111",
		Signature: &wallet.InvocationSnapshot{
			ID:        "inv-1",
			State:     "done",
			Signature: "Sig111",
		},
		Metrics: mining.Metrics{
			RewardRate:   0.5,
			TotalSupply:  "21M",
			Hash:         "0123456789abcdef",
			SessionTimer: 7,
		},
	}
}

func TestToolbarTool(t *testing.T) {
	s := New("test", &fakeDaemon{view: activeView()})

	r, _, err := s.handleToolbar(context.Background(), nil, emptyInput{})
	require.NoError(t, err)
	assert.False(t, r.IsError)

	out := text(t, r)
	assert.Contains(t, out, "`node-1`")
	assert.Contains(t, out, "1m30s")
	assert.Contains(t, out, "- Phase: active_open")
	assert.Contains(t, out, "- Signature: done `Sig111`")
	assert.Contains(t, out, "- Reward rate: 0.5000 ORE")
	assert.Contains(t, out, "- Session timer: 7s")
	assert.Contains(t, out, "- connected: true")
}

func TestWriteToolErrors(t *testing.T) {
	f := &fakeDaemon{startErr: errors.New("not confirmed")}
	s := New("test", f)

	r, _, err := s.handleOpen(context.Background(), nil, emptyInput{})
	require.NoError(t, err)
	assert.True(t, r.IsError)
	assert.Contains(t, text(t, r), "wallet not connected")

	r, _, _ = s.handleStart(context.Background(), nil, emptyInput{})
	assert.True(t, r.IsError)
	assert.Contains(t, text(t, r), "start failed: not confirmed")

	r, _, _ = s.handleStop(context.Background(), nil, emptyInput{})
	assert.False(t, r.IsError)
	assert.True(t, f.stopped)
	assert.Contains(t, text(t, r), "Mining stopped.")

	r, _, _ = s.handleProvision(context.Background(), nil, emptyInput{})
	assert.False(t, r.IsError)
}

func TestHistoryTool(t *testing.T) {
	f := &fakeDaemon{}
	s := New("test", f)

	r, _, err := s.handleHistory(context.Background(), nil, historyInput{})
	require.NoError(t, err)
	assert.Equal(t, defaultHistoryLimit, f.limit)
	assert.Contains(t, text(t, r), "No samples recorded yet.")

	f.samples = []db.MetricSample{{RewardRate: 1.25, SessionTimer: 3, SampledAt: 0}}
	r, _, _ = s.handleHistory(context.Background(), nil, historyInput{Limit: 5})
	assert.Equal(t, 5, f.limit)
	out := text(t, r)
	assert.Contains(t, out, "# Mining History (1)")
	assert.Contains(t, out, "| 1970-01-01T00:00:00Z | 1.2500 |")
}
