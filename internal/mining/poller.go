package mining

import (
	"context"
	"sync"
	"time"

	"github.com/gagliardetto/solana-go"
	"github.com/rs/zerolog"
	"golang.org/x/sync/errgroup"

	"github.com/b0ase/path402/apps/oreminer/internal/chain"
	"github.com/b0ase/path402/apps/oreminer/internal/ore"
)

// PollerConfig configures a mining session poller.
type PollerConfig struct {
	Authority    solana.PublicKey
	Mint         solana.PublicKey
	TickInterval time.Duration
	FetchTimeout time.Duration

	// Ticks overrides the internal ticker when set.
	Ticks <-chan time.Time
}

// FetchHook observes the outcome of every fetch. err is nil on success.
type FetchHook func(source string, err error)

// Snapshot is the latest state published by the poller.
type Snapshot struct {
	Treasury chain.AsyncResult[ore.Treasury]      `json:"treasury"`
	Proof    chain.AsyncResult[ore.Proof]         `json:"proof"`
	Supply   chain.AsyncResult[chain.TokenSupply] `json:"supply"`
	Timer    uint64                               `json:"session_timer"`
	Ticks    uint64                               `json:"ticks"`
}

type slot int

const (
	slotTreasury slot = iota
	slotProof
	slotSupply
	slotCount
)

// Poller keeps treasury, proof and supply snapshots fresh while a mining
// session is active and counts the seconds since the proof hash last changed.
type Poller struct {
	cfg     PollerConfig
	reader  chain.Reader
	onFetch FetchHook
	log     zerolog.Logger

	mu       sync.RWMutex
	snap     Snapshot
	lastHash solana.Hash
	seenHash bool
	busy     [slotCount]bool
	fetches  errgroup.Group

	startOnce sync.Once
	stopOnce  sync.Once
	started   bool
	ctx       context.Context
	cancel    context.CancelFunc
	done      chan struct{}
}

// NewPoller creates a poller. All slots start Loading.
func NewPoller(cfg PollerConfig, reader chain.Reader, logger zerolog.Logger) *Poller {
	if cfg.TickInterval == 0 {
		cfg.TickInterval = time.Second
	}
	if cfg.FetchTimeout == 0 {
		cfg.FetchTimeout = 5 * time.Second
	}
	if cfg.Mint.IsZero() {
		cfg.Mint = ore.MintAddress
	}
	ctx, cancel := context.WithCancel(context.Background())
	return &Poller{
		cfg:    cfg,
		reader: reader,
		log:    logger.With().Str("component", "poller").Logger(),
		ctx:    ctx,
		cancel: cancel,
		done:   make(chan struct{}),
	}
}

// OnFetch registers a hook called after every fetch.
func (p *Poller) OnFetch(hook FetchHook) {
	p.onFetch = hook
}

// Start runs an initial fetch and then the tick loop in the background.
func (p *Poller) Start() {
	p.startOnce.Do(func() {
		p.mu.Lock()
		p.started = true
		p.mu.Unlock()
		p.log.Info().Str("authority", p.cfg.Authority.String()).Dur("interval", p.cfg.TickInterval).Msg("Mining session started")
		go p.run()
	})
}

// Stop cancels the tick loop and waits for it and any in-flight fetch to
// exit. In-flight fetches are cancelled and their results discarded.
func (p *Poller) Stop() {
	p.stopOnce.Do(func() {
		p.cancel()
		p.mu.RLock()
		started := p.started
		p.mu.RUnlock()
		if started {
			<-p.done
		}
		p.log.Info().Msg("Mining session stopped")
	})
}

// Snapshot returns a copy of the current state.
func (p *Poller) Snapshot() Snapshot {
	p.mu.RLock()
	defer p.mu.RUnlock()
	return p.snap
}

func (p *Poller) run() {
	defer close(p.done)
	defer p.wait()

	p.refresh(p.ctx)

	ticks := p.cfg.Ticks
	if ticks == nil {
		ticker := time.NewTicker(p.cfg.TickInterval)
		defer ticker.Stop()
		ticks = ticker.C
	}

	for {
		select {
		case <-p.ctx.Done():
			return
		case <-ticks:
			p.tick(p.ctx)
		}
	}
}

// tick advances the session timer and starts a refetch of every idle slot.
// It never waits on I/O; a proof hash change observed by a later fetch
// resets the timer when that fetch completes.
func (p *Poller) tick(ctx context.Context) {
	p.mu.Lock()
	p.snap.Timer++
	p.snap.Ticks++
	p.mu.Unlock()

	p.refresh(ctx)
}

// refresh starts one fetch per slot. A slot whose previous fetch is still
// running is skipped, so a hung read delays only its own slot.
func (p *Poller) refresh(ctx context.Context) {
	for s := slot(0); s < slotCount; s++ {
		p.launch(ctx, s)
	}
}

// wait blocks until every in-flight fetch has completed.
func (p *Poller) wait() {
	_ = p.fetches.Wait()
}

func (p *Poller) launch(ctx context.Context, s slot) {
	p.mu.Lock()
	if p.busy[s] {
		p.mu.Unlock()
		return
	}
	p.busy[s] = true
	p.mu.Unlock()

	p.fetches.Go(func() error {
		p.fetchSlot(ctx, s)
		p.mu.Lock()
		p.busy[s] = false
		p.mu.Unlock()
		return nil
	})
}

func (p *Poller) fetchSlot(ctx context.Context, s slot) {
	switch s {
	case slotTreasury:
		v, err := fetch(ctx, p.cfg.FetchTimeout, p.reader.FetchTreasury)
		res := chain.FromFetch(v, err)
		if !p.observe(ctx, chain.SourceTreasury, res.Err()) {
			return
		}
		p.mu.Lock()
		p.snap.Treasury = res
		p.mu.Unlock()

	case slotProof:
		v, err := fetch(ctx, p.cfg.FetchTimeout, func(ctx context.Context) (*ore.Proof, error) {
			return p.reader.FetchProof(ctx, p.cfg.Authority)
		})
		res := chain.FromFetch(v, err)
		if !p.observe(ctx, chain.SourceProof, res.Err()) {
			return
		}
		p.mu.Lock()
		p.snap.Proof = res
		if proof, ok := res.Value(); ok {
			if p.seenHash && proof.Hash != p.lastHash {
				p.snap.Timer = 0
			}
			p.lastHash = proof.Hash
			p.seenHash = true
		}
		p.mu.Unlock()

	case slotSupply:
		v, err := fetch(ctx, p.cfg.FetchTimeout, func(ctx context.Context) (*chain.TokenSupply, error) {
			return p.reader.FetchTokenSupply(ctx, p.cfg.Mint)
		})
		res := chain.FromFetch(v, err)
		if !p.observe(ctx, chain.SourceTokenSupply, res.Err()) {
			return
		}
		p.mu.Lock()
		p.snap.Supply = res
		p.mu.Unlock()
	}
}

// observe logs and reports a fetch outcome. It returns false when the
// session was cancelled and the result must be discarded.
func (p *Poller) observe(ctx context.Context, source string, err error) bool {
	if ctx.Err() != nil {
		return false
	}
	if err != nil {
		p.log.Warn().Err(err).Str("source", source).Msg("Fetch failed")
	}
	if p.onFetch != nil {
		p.onFetch(source, err)
	}
	return true
}

func fetch[T any](ctx context.Context, timeout time.Duration, fn func(context.Context) (*T, error)) (*T, error) {
	ctx, cancel := context.WithTimeout(ctx, timeout)
	defer cancel()
	return fn(ctx)
}
