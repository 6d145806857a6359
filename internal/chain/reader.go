package chain

import (
	"context"

	"github.com/gagliardetto/solana-go"

	"github.com/b0ase/path402/apps/oreminer/internal/ore"
)

// TokenSupply is the mint supply as reported by the token-account decoder.
type TokenSupply struct {
	Amount         string   `json:"amount"`
	Decimals       uint8    `json:"decimals"`
	UIAmount       *float64 `json:"ui_amount"`
	UIAmountString string   `json:"ui_amount_string"`
}

// Reader fetches the on-chain snapshots the miner toolbar displays.
type Reader interface {
	FetchTreasury(ctx context.Context) (*ore.Treasury, error)
	FetchProof(ctx context.Context, authority solana.PublicKey) (*ore.Proof, error)
	FetchTokenSupply(ctx context.Context, mint solana.PublicKey) (*TokenSupply, error)
}

// BlockhashSource provides a recent blockhash for transaction construction.
type BlockhashSource interface {
	LatestBlockhash(ctx context.Context) (solana.Hash, error)
}

// Sender submits a signed transaction and returns its signature.
type Sender interface {
	SendTransaction(ctx context.Context, tx *solana.Transaction) (solana.Signature, error)
}
