package chain

import (
	"context"
	"errors"
	"fmt"
	"time"

	"github.com/gagliardetto/solana-go"
	"github.com/gagliardetto/solana-go/rpc"

	"github.com/b0ase/path402/apps/oreminer/internal/ore"
)

// RPCConfig configures the Solana JSON-RPC client.
type RPCConfig struct {
	URL        string
	Commitment string
	Timeout    time.Duration
}

// RPCClient reads ORE accounts and submits transactions over Solana JSON-RPC.
type RPCClient struct {
	rpc        *rpc.Client
	commitment rpc.CommitmentType
	timeout    time.Duration
}

// NewRPCClient creates a client for the given endpoint.
func NewRPCClient(cfg RPCConfig) *RPCClient {
	if cfg.URL == "" {
		cfg.URL = rpc.MainNetBeta_RPC
	}
	if cfg.Timeout == 0 {
		cfg.Timeout = 10 * time.Second
	}
	commitment := rpc.CommitmentConfirmed
	switch cfg.Commitment {
	case "processed":
		commitment = rpc.CommitmentProcessed
	case "finalized":
		commitment = rpc.CommitmentFinalized
	}
	return &RPCClient{
		rpc:        rpc.New(cfg.URL),
		commitment: commitment,
		timeout:    cfg.Timeout,
	}
}

// FetchTreasury reads and decodes the global treasury account.
func (c *RPCClient) FetchTreasury(ctx context.Context) (*ore.Treasury, error) {
	addr, _, err := ore.TreasuryAddress()
	if err != nil {
		return nil, fetchErr(SourceTreasury, err)
	}
	data, err := c.accountData(ctx, addr)
	if err != nil {
		return nil, fetchErr(SourceTreasury, err)
	}
	t, err := ore.DecodeTreasury(data)
	if err != nil {
		return nil, fetchErr(SourceTreasury, err)
	}
	return t, nil
}

// FetchProof reads and decodes the proof account owned by authority.
// A missing account yields a FetchError wrapping ErrAccountNotFound.
func (c *RPCClient) FetchProof(ctx context.Context, authority solana.PublicKey) (*ore.Proof, error) {
	addr, _, err := ore.ProofAddress(authority)
	if err != nil {
		return nil, fetchErr(SourceProof, err)
	}
	data, err := c.accountData(ctx, addr)
	if err != nil {
		return nil, fetchErr(SourceProof, err)
	}
	p, err := ore.DecodeProof(data)
	if err != nil {
		return nil, fetchErr(SourceProof, err)
	}
	return p, nil
}

// FetchTokenSupply reads the supply of mint.
func (c *RPCClient) FetchTokenSupply(ctx context.Context, mint solana.PublicKey) (*TokenSupply, error) {
	ctx, cancel := context.WithTimeout(ctx, c.timeout)
	defer cancel()

	out, err := c.rpc.GetTokenSupply(ctx, mint, c.commitment)
	if err != nil {
		return nil, fetchErr(SourceTokenSupply, err)
	}
	if out == nil || out.Value == nil {
		return nil, fetchErr(SourceTokenSupply, errors.New("empty response"))
	}
	return &TokenSupply{
		Amount:         out.Value.Amount,
		Decimals:       out.Value.Decimals,
		UIAmount:       out.Value.UiAmount,
		UIAmountString: out.Value.UiAmountString,
	}, nil
}

// LatestBlockhash returns a recent blockhash for transaction construction.
func (c *RPCClient) LatestBlockhash(ctx context.Context) (solana.Hash, error) {
	ctx, cancel := context.WithTimeout(ctx, c.timeout)
	defer cancel()

	out, err := c.rpc.GetLatestBlockhash(ctx, c.commitment)
	if err != nil {
		return solana.Hash{}, fetchErr(SourceBlockhash, err)
	}
	if out == nil || out.Value == nil {
		return solana.Hash{}, fetchErr(SourceBlockhash, errors.New("empty response"))
	}
	return out.Value.Blockhash, nil
}

// SendTransaction submits a signed transaction.
func (c *RPCClient) SendTransaction(ctx context.Context, tx *solana.Transaction) (solana.Signature, error) {
	ctx, cancel := context.WithTimeout(ctx, c.timeout)
	defer cancel()

	sig, err := c.rpc.SendTransactionWithOpts(ctx, tx, rpc.TransactionOpts{
		PreflightCommitment: c.commitment,
	})
	if err != nil {
		return solana.Signature{}, fmt.Errorf("send transaction: %w", err)
	}
	return sig, nil
}

func (c *RPCClient) accountData(ctx context.Context, addr solana.PublicKey) ([]byte, error) {
	ctx, cancel := context.WithTimeout(ctx, c.timeout)
	defer cancel()

	out, err := c.rpc.GetAccountInfoWithOpts(ctx, addr, &rpc.GetAccountInfoOpts{
		Commitment: c.commitment,
		Encoding:   solana.EncodingBase64,
	})
	if err != nil {
		if errors.Is(err, rpc.ErrNotFound) {
			return nil, ErrAccountNotFound
		}
		return nil, err
	}
	if out == nil || out.Value == nil || out.Value.Data == nil {
		return nil, ErrAccountNotFound
	}
	return out.Value.Data.GetBinary(), nil
}
