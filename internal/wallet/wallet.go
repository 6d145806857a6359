package wallet

import (
	"context"
	"fmt"
	"sync"

	"github.com/gagliardetto/solana-go"
	"github.com/rs/zerolog"

	"github.com/b0ase/path402/apps/oreminer/internal/chain"
)

// Connection exposes the connected wallet's identity. It is read-only for
// the toolbar; connecting and disconnecting belong to the wallet itself.
type Connection interface {
	IsConnected() bool
	PublicKey() (solana.PublicKey, bool)
}

// Signer signs a transaction and submits it, returning the signature.
type Signer interface {
	RequestSignature(ctx context.Context, tx *solana.Transaction) (solana.Signature, error)
}

// Keypair holds an ed25519 private key and its derived address.
type Keypair struct {
	PrivateKey solana.PrivateKey
	PublicKey  solana.PublicKey
	Address    string // base58 public key
}

// Load creates a keypair from a base58-encoded private key.
func Load(encoded string) (*Keypair, error) {
	if encoded == "" {
		return nil, fmt.Errorf("no wallet key provided")
	}
	key, err := solana.PrivateKeyFromBase58(encoded)
	if err != nil {
		return nil, fmt.Errorf("decode private key: %w", err)
	}
	return newKeypair(key), nil
}

// LoadFile reads a keypair written by solana-keygen (a JSON byte array).
func LoadFile(path string) (*Keypair, error) {
	key, err := solana.PrivateKeyFromSolanaKeygenFile(path)
	if err != nil {
		return nil, fmt.Errorf("read keygen file: %w", err)
	}
	return newKeypair(key), nil
}

// Generate creates a new random keypair.
func Generate() (*Keypair, error) {
	key, err := solana.NewRandomPrivateKey()
	if err != nil {
		return nil, fmt.Errorf("generate key: %w", err)
	}
	return newKeypair(key), nil
}

func newKeypair(key solana.PrivateKey) *Keypair {
	pub := key.PublicKey()
	return &Keypair{PrivateKey: key, PublicKey: pub, Address: pub.String()}
}

// Local is a wallet backed by an in-process keypair. It signs transactions
// and submits them through sender.
type Local struct {
	mu          sync.RWMutex
	keypair     *Keypair
	sender      chain.Sender
	autoApprove bool
	log         zerolog.Logger
}

// NewLocal creates a local wallet. kp may be nil for a disconnected wallet.
// When autoApprove is false every signature request is rejected.
func NewLocal(kp *Keypair, sender chain.Sender, autoApprove bool, logger zerolog.Logger) *Local {
	return &Local{
		keypair:     kp,
		sender:      sender,
		autoApprove: autoApprove,
		log:         logger.With().Str("component", "wallet").Logger(),
	}
}

// Connect swaps in a keypair.
func (w *Local) Connect(kp *Keypair) {
	w.mu.Lock()
	w.keypair = kp
	w.mu.Unlock()
	w.log.Info().Str("address", kp.Address).Msg("Wallet connected")
}

// Disconnect drops the keypair.
func (w *Local) Disconnect() {
	w.mu.Lock()
	w.keypair = nil
	w.mu.Unlock()
	w.log.Info().Msg("Wallet disconnected")
}

func (w *Local) IsConnected() bool {
	w.mu.RLock()
	defer w.mu.RUnlock()
	return w.keypair != nil
}

func (w *Local) PublicKey() (solana.PublicKey, bool) {
	w.mu.RLock()
	defer w.mu.RUnlock()
	if w.keypair == nil {
		return solana.PublicKey{}, false
	}
	return w.keypair.PublicKey, true
}

// Address returns the base58 address, or "" when disconnected.
func (w *Local) Address() string {
	w.mu.RLock()
	defer w.mu.RUnlock()
	if w.keypair == nil {
		return ""
	}
	return w.keypair.Address
}

// RequestSignature signs tx with the local key and submits it.
func (w *Local) RequestSignature(ctx context.Context, tx *solana.Transaction) (solana.Signature, error) {
	w.mu.RLock()
	kp := w.keypair
	w.mu.RUnlock()

	if kp == nil {
		return solana.Signature{}, &SignError{Kind: SignBackendFailed, Err: ErrNotConnected}
	}
	if !w.autoApprove {
		w.log.Info().Msg("Signature request rejected (auto_approve disabled)")
		return solana.Signature{}, &SignError{Kind: SignRejected}
	}

	_, err := tx.Sign(func(key solana.PublicKey) *solana.PrivateKey {
		if key.Equals(kp.PublicKey) {
			return &kp.PrivateKey
		}
		return nil
	})
	if err != nil {
		return solana.Signature{}, &SignError{Kind: SignBackendFailed, Err: err}
	}

	sig, err := w.sender.SendTransaction(ctx, tx)
	if err != nil {
		return solana.Signature{}, &SignError{Kind: SignNetworkFailed, Err: err}
	}
	w.log.Info().Str("signature", sig.String()).Msg("Transaction submitted")
	return sig, nil
}
