package toolbar

import (
	"context"
	"errors"
	"sync"

	"github.com/gagliardetto/solana-go"
	"github.com/rs/zerolog"

	"github.com/b0ase/path402/apps/oreminer/internal/chain"
	"github.com/b0ase/path402/apps/oreminer/internal/ore"
	"github.com/b0ase/path402/apps/oreminer/internal/wallet"
)

// ErrProvisionInFlight is returned while an open-account signature is pending.
var ErrProvisionInFlight = errors.New("account provisioning already in flight")

// Provisioner builds the open-account transaction and drives it through the
// wallet's signature protocol. At most one invocation is pending at a time.
type Provisioner struct {
	conn      wallet.Connection
	signer    wallet.Signer
	blockhash chain.BlockhashSource
	log       zerolog.Logger

	mu      sync.Mutex
	current *wallet.Invocation
}

func NewProvisioner(conn wallet.Connection, signer wallet.Signer, blockhash chain.BlockhashSource, logger zerolog.Logger) *Provisioner {
	return &Provisioner{
		conn:      conn,
		signer:    signer,
		blockhash: blockhash,
		log:       logger.With().Str("component", "provisioner").Logger(),
	}
}

// BuildOpenTransaction constructs the register transaction for the connected
// wallet. It does not touch chain state beyond reading a recent blockhash.
func (p *Provisioner) BuildOpenTransaction(ctx context.Context) (*solana.Transaction, error) {
	pub, ok := p.conn.PublicKey()
	if !ok || !p.conn.IsConnected() {
		return nil, &wallet.BuildError{Err: wallet.ErrNotConnected}
	}
	recent, err := p.blockhash.LatestBlockhash(ctx)
	if err != nil {
		return nil, &wallet.BuildError{Err: err}
	}
	tx, err := ore.OpenAccountTransaction(pub, recent)
	if err != nil {
		return nil, &wallet.BuildError{Err: err}
	}
	return tx, nil
}

// Provision issues a fresh invocation unless one is already pending.
func (p *Provisioner) Provision(ctx context.Context) (*wallet.Invocation, error) {
	p.mu.Lock()
	defer p.mu.Unlock()

	if p.current != nil && p.current.Pending() {
		return nil, ErrProvisionInFlight
	}
	inv := wallet.NewInvocation()
	if err := inv.Invoke(ctx, p.BuildOpenTransaction, p.signer); err != nil {
		return nil, err
	}
	p.current = inv
	p.log.Info().Str("invocation", inv.ID()).Msg("Open-account signature requested")
	return inv, nil
}

// Current returns the most recent invocation, or nil.
func (p *Provisioner) Current() *wallet.Invocation {
	p.mu.Lock()
	defer p.mu.Unlock()
	return p.current
}

// Reset abandons the current invocation and forgets it.
func (p *Provisioner) Reset() {
	p.mu.Lock()
	defer p.mu.Unlock()
	if p.current != nil {
		p.current.Abandon()
		p.current = nil
	}
}
