package toolbar

import (
	"context"
	"errors"
	"fmt"
	"sync"
	"time"

	"github.com/gagliardetto/solana-go"
	"github.com/rs/zerolog"
	"golang.org/x/sync/singleflight"

	"github.com/b0ase/path402/apps/oreminer/internal/chain"
	"github.com/b0ase/path402/apps/oreminer/internal/mining"
	"github.com/b0ase/path402/apps/oreminer/internal/wallet"
)

var (
	// ErrAccountNotConfirmed means the proof account did not resolve on
	// chain within the confirmation window. Provisioning can be retried.
	ErrAccountNotConfirmed = errors.New("mining account not confirmed on chain")

	// ErrAccountExists is returned when provisioning is requested for a
	// wallet that already has a mining account.
	ErrAccountExists = errors.New("mining account already exists")
)

// Session is a running mining poll loop.
type Session interface {
	Start()
	Stop()
	Snapshot() mining.Snapshot
}

// SessionFactory creates a session for the given proof authority.
type SessionFactory func(authority solana.PublicKey) Session

// Config tunes account confirmation after a provisioning signature.
type Config struct {
	ConfirmAttempts int
	ConfirmInterval time.Duration
}

// InvocationHook observes provisioning invocations when issued and when
// they complete.
type InvocationHook func(wallet.InvocationSnapshot)

// View is the read model handed to the presentation layer.
type View struct {
	State     string                     `json:"state"`
	Phase     Phase                      `json:"phase"`
	Open      bool                       `json:"open"`
	Connected bool                       `json:"connected"`
	Address   string                     `json:"address,omitempty"`
	Signature *wallet.InvocationSnapshot `json:"signature,omitempty"`
	Metrics   mining.Metrics             `json:"metrics"`
	Snapshot  mining.Snapshot            `json:"snapshot"`
	LastError string                     `json:"last_error,omitempty"`
}

// Orchestrator is the toolbar state machine. It owns the visibility flag,
// the mining state and the active session.
type Orchestrator struct {
	cfg        Config
	conn       wallet.Connection
	reader     chain.Reader
	prov       *Provisioner
	newSession SessionFactory
	onInvoke   InvocationHook
	log        zerolog.Logger

	starts singleflight.Group

	mu       sync.RWMutex
	state    State
	open     bool
	session  Session
	lastErr  error
	watchers sync.WaitGroup

	ctx    context.Context
	cancel context.CancelFunc
}

// New creates an orchestrator in InsufficientFunds. Call Init to resolve the
// initial state from chain.
func New(cfg Config, conn wallet.Connection, reader chain.Reader, prov *Provisioner, sessions SessionFactory, logger zerolog.Logger) *Orchestrator {
	if cfg.ConfirmAttempts < 1 {
		cfg.ConfirmAttempts = 1
	}
	ctx, cancel := context.WithCancel(context.Background())
	return &Orchestrator{
		cfg:        cfg,
		conn:       conn,
		reader:     reader,
		prov:       prov,
		newSession: sessions,
		log:        logger.With().Str("component", "toolbar").Logger(),
		ctx:        ctx,
		cancel:     cancel,
	}
}

// OnInvocation registers a hook for provisioning invocation updates.
func (o *Orchestrator) OnInvocation(hook InvocationHook) {
	o.onInvoke = hook
}

// Init looks up the connected wallet's proof account. A found account moves
// the machine to Idle; anything else leaves it in InsufficientFunds. Lookup
// failures other than not-found are returned.
func (o *Orchestrator) Init(ctx context.Context) error {
	pub, ok := o.conn.PublicKey()
	if !ok {
		o.setState(StateInsufficientFunds)
		return nil
	}
	_, err := o.reader.FetchProof(ctx, pub)
	switch {
	case err == nil:
		o.setState(StateIdle)
		return nil
	case errors.Is(err, chain.ErrAccountNotFound):
		o.setState(StateInsufficientFunds)
		return nil
	default:
		o.setState(StateInsufficientFunds)
		return fmt.Errorf("initial proof lookup: %w", err)
	}
}

// OpenToolbar expands the toolbar. Without an account this enters
// Provisioning. A disconnected wallet is refused.
func (o *Orchestrator) OpenToolbar(ctx context.Context) error {
	if !o.conn.IsConnected() {
		return wallet.ErrNotConnected
	}
	o.mu.Lock()
	o.open = true
	from := o.state
	if o.state == StateInsufficientFunds {
		o.state = StateProvisioning
	}
	to := o.state
	o.mu.Unlock()
	o.logTransition(from, to)
	return nil
}

// CloseToolbar collapses the toolbar. Provisioning with no pending signature
// falls back to InsufficientFunds.
func (o *Orchestrator) CloseToolbar() {
	inv := o.prov.Current()
	pending := inv != nil && inv.Pending()

	o.mu.Lock()
	o.open = false
	from := o.state
	if o.state == StateProvisioning && !pending {
		o.state = StateInsufficientFunds
	}
	to := o.state
	o.mu.Unlock()
	o.logTransition(from, to)
}

// RequestAccountProvisioning issues the open-account signature request.
// Completion is observed in the background; a Done signature triggers
// StartMining.
func (o *Orchestrator) RequestAccountProvisioning(ctx context.Context) error {
	if !o.conn.IsConnected() {
		return wallet.ErrNotConnected
	}

	o.mu.Lock()
	switch o.state {
	case StateIdle, StateActive:
		o.mu.Unlock()
		return ErrAccountExists
	case StateInsufficientFunds:
		o.state = StateProvisioning
		o.open = true
		o.mu.Unlock()
		o.logTransition(StateInsufficientFunds, StateProvisioning)
	default:
		o.mu.Unlock()
	}

	inv, err := o.prov.Provision(ctx)
	if err != nil {
		return err
	}
	o.notify(inv)

	o.watchers.Add(1)
	go o.watch(inv)
	return nil
}

func (o *Orchestrator) watch(inv *wallet.Invocation) {
	defer o.watchers.Done()

	select {
	case <-inv.Done():
	case <-o.ctx.Done():
		inv.Abandon()
		return
	}
	o.notify(inv)

	sig, ok := inv.Take()
	if !ok {
		if err := inv.Err(); err != nil {
			o.setLastErr(err)
			o.log.Warn().Err(err).Str("kind", string(wallet.SignErrorKind(err))).Msg("Provisioning signature failed")
		}
		return
	}
	o.log.Info().Str("signature", sig.String()).Msg("Open-account transaction submitted")

	if err := o.StartMining(o.ctx); err != nil {
		o.log.Warn().Err(err).Msg("Start mining after provisioning failed")
	}
}

// StartMining confirms the proof account and starts a mining session.
// Concurrent calls share one attempt; at most one session is started. The
// attempt runs for the orchestrator's lifetime, so a caller whose ctx ends
// returns early without cancelling it for the others.
func (o *Orchestrator) StartMining(ctx context.Context) error {
	ch := o.starts.DoChan("start", func() (any, error) {
		return nil, o.startMining(o.ctx)
	})
	select {
	case res := <-ch:
		return res.Err
	case <-ctx.Done():
		return ctx.Err()
	}
}

func (o *Orchestrator) startMining(ctx context.Context) error {
	if o.State() == StateActive {
		return nil
	}
	if !o.conn.IsConnected() {
		return wallet.ErrNotConnected
	}
	pub, ok := o.conn.PublicKey()
	if !ok {
		return wallet.ErrNotConnected
	}

	if err := o.confirmAccount(ctx, pub); err != nil {
		err = fmt.Errorf("%w: %w", ErrAccountNotConfirmed, err)
		o.setLastErr(err)
		return err
	}

	session := o.newSession(pub)
	session.Start()

	o.mu.Lock()
	if err := o.ctx.Err(); err != nil {
		o.mu.Unlock()
		session.Stop()
		return err
	}
	o.session = session
	from := o.state
	o.state = StateActive
	o.lastErr = nil
	o.mu.Unlock()
	o.logTransition(from, StateActive)
	return nil
}

// confirmAccount polls for the proof account until it resolves or the
// attempts run out.
func (o *Orchestrator) confirmAccount(ctx context.Context, pub solana.PublicKey) error {
	var lastErr error
	for i := 0; i < o.cfg.ConfirmAttempts; i++ {
		if i > 0 {
			select {
			case <-ctx.Done():
				return ctx.Err()
			case <-time.After(o.cfg.ConfirmInterval):
			}
		}
		_, err := o.reader.FetchProof(ctx, pub)
		if err == nil {
			return nil
		}
		lastErr = err
		o.log.Debug().Err(err).Int("attempt", i+1).Msg("Proof account not resolved yet")
	}
	return lastErr
}

// StopMining stops the active session and returns to Idle. It is a no-op
// when mining is not active.
func (o *Orchestrator) StopMining() error {
	o.mu.Lock()
	if o.state != StateActive {
		o.mu.Unlock()
		return nil
	}
	session := o.session
	o.session = nil
	o.state = StateIdle
	o.mu.Unlock()

	if session != nil {
		session.Stop()
	}
	o.logTransition(StateActive, StateIdle)
	return nil
}

// State returns the current mining state.
func (o *Orchestrator) State() State {
	o.mu.RLock()
	defer o.mu.RUnlock()
	return o.state
}

// View assembles the presentation read model.
func (o *Orchestrator) View() View {
	o.mu.RLock()
	state, open, session, lastErr := o.state, o.open, o.session, o.lastErr
	o.mu.RUnlock()

	v := View{
		State:     state.String(),
		Phase:     DerivePhase(state, open),
		Open:      open,
		Connected: o.conn.IsConnected(),
	}
	if pub, ok := o.conn.PublicKey(); ok {
		v.Address = pub.String()
	}
	if inv := o.prov.Current(); inv != nil {
		s := inv.Snapshot()
		v.Signature = &s
	}
	if session != nil {
		v.Snapshot = session.Snapshot()
	}
	v.Metrics = mining.Derive(v.Snapshot)
	if lastErr != nil {
		v.LastError = lastErr.Error()
	}
	return v
}

// Close stops any session, abandons pending invocations and waits for
// background watchers to exit.
func (o *Orchestrator) Close() {
	o.cancel()
	o.watchers.Wait()
	_ = o.StopMining()
	o.prov.Reset()
}

func (o *Orchestrator) setState(s State) {
	o.mu.Lock()
	from := o.state
	o.state = s
	o.mu.Unlock()
	o.logTransition(from, s)
}

func (o *Orchestrator) setLastErr(err error) {
	o.mu.Lock()
	o.lastErr = err
	o.mu.Unlock()
}

func (o *Orchestrator) notify(inv *wallet.Invocation) {
	if o.onInvoke != nil {
		o.onInvoke(inv.Snapshot())
	}
}

func (o *Orchestrator) logTransition(from, to State) {
	if from == to {
		return
	}
	o.log.Info().Str("from", from.String()).Str("to", to.String()).Msg("Toolbar state changed")
}
