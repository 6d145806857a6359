package chain

import (
	"context"
	"encoding/base64"
	"encoding/binary"
	"encoding/json"
	"errors"
	"net/http"
	"net/http/httptest"
	"testing"
	"time"

	"github.com/gagliardetto/solana-go"
	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"

	"github.com/b0ase/path402/apps/oreminer/internal/ore"
)

type rpcRequest struct {
	ID     json.RawMessage `json:"id"`
	Method string          `json:"method"`
}

// mockRPC serves canned JSON-RPC results keyed by method name.
// A nil entry answers with a null account value.
func mockRPC(t *testing.T, results map[string]any) *httptest.Server {
	t.Helper()
	return httptest.NewServer(http.HandlerFunc(func(w http.ResponseWriter, r *http.Request) {
		var req rpcRequest
		if err := json.NewDecoder(r.Body).Decode(&req); err != nil {
			w.WriteHeader(400)
			return
		}
		result, ok := results[req.Method]
		if !ok {
			w.WriteHeader(500)
			return
		}
		w.Header().Set("Content-Type", "application/json")
		json.NewEncoder(w).Encode(map[string]any{
			"jsonrpc": "2.0",
			"id":      req.ID,
			"result":  result,
		})
	}))
}

func accountResult(data []byte) map[string]any {
	return map[string]any{
		"context": map[string]any{"slot": 1},
		"value": map[string]any{
			"data":       []string{base64.StdEncoding.EncodeToString(data), "base64"},
			"executable": false,
			"lamports":   1000000,
			"owner":      ore.ProgramID.String(),
			"rentEpoch":  0,
		},
	}
}

func treasuryData(rewardRate, claimed uint64) []byte {
	b := make([]byte, 8+8+32+32+8+8+8)
	b[0] = ore.DiscriminatorTreasury
	binary.LittleEndian.PutUint64(b[8+8+32+32+8:], rewardRate)
	binary.LittleEndian.PutUint64(b[8+8+32+32+8+8:], claimed)
	return b
}

func TestRPCClient_FetchTreasury(t *testing.T) {
	srv := mockRPC(t, map[string]any{
		"getAccountInfo": accountResult(treasuryData(2_000_000_000, 10)),
	})
	defer srv.Close()

	c := NewRPCClient(RPCConfig{URL: srv.URL, Timeout: 2 * time.Second})
	tr, err := c.FetchTreasury(context.Background())
	require.NoError(t, err)
	assert.Equal(t, uint64(2_000_000_000), tr.RewardRate)
	assert.Equal(t, uint64(10), tr.TotalClaimedRewards)
}

func TestRPCClient_FetchProof_NotFound(t *testing.T) {
	srv := mockRPC(t, map[string]any{
		"getAccountInfo": map[string]any{
			"context": map[string]any{"slot": 1},
			"value":   nil,
		},
	})
	defer srv.Close()

	c := NewRPCClient(RPCConfig{URL: srv.URL})
	_, err := c.FetchProof(context.Background(), solana.NewWallet().PublicKey())
	require.Error(t, err)
	assert.ErrorIs(t, err, ErrAccountNotFound)

	var fe *FetchError
	require.True(t, errors.As(err, &fe))
	assert.Equal(t, SourceProof, fe.Source)
}

func TestRPCClient_FetchTreasury_DecodeError(t *testing.T) {
	srv := mockRPC(t, map[string]any{
		"getAccountInfo": accountResult([]byte{1, 2, 3}),
	})
	defer srv.Close()

	c := NewRPCClient(RPCConfig{URL: srv.URL})
	_, err := c.FetchTreasury(context.Background())
	var fe *FetchError
	require.True(t, errors.As(err, &fe))
	assert.Equal(t, SourceTreasury, fe.Source)
}

func TestRPCClient_FetchTokenSupply(t *testing.T) {
	srv := mockRPC(t, map[string]any{
		"getTokenSupply": map[string]any{
			"context": map[string]any{"slot": 1},
			"value": map[string]any{
				"amount":         "21000000000000",
				"decimals":       9,
				"uiAmount":       21000.0,
				"uiAmountString": "21000",
			},
		},
	})
	defer srv.Close()

	c := NewRPCClient(RPCConfig{URL: srv.URL})
	s, err := c.FetchTokenSupply(context.Background(), ore.MintAddress)
	require.NoError(t, err)
	require.NotNil(t, s.UIAmount)
	assert.Equal(t, 21000.0, *s.UIAmount)
	assert.Equal(t, uint8(9), s.Decimals)
	assert.Equal(t, "21000", s.UIAmountString)
}

func TestRPCClient_ServerDown(t *testing.T) {
	srv := mockRPC(t, map[string]any{})
	defer srv.Close()

	c := NewRPCClient(RPCConfig{URL: srv.URL})
	_, err := c.FetchTokenSupply(context.Background(), ore.MintAddress)
	var fe *FetchError
	require.True(t, errors.As(err, &fe))
	assert.Equal(t, SourceTokenSupply, fe.Source)
}
