package mining

import (
	"context"
	"errors"
	"sync"
	"sync/atomic"
	"testing"
	"time"

	"github.com/gagliardetto/solana-go"
	"github.com/rs/zerolog"
	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"

	"github.com/b0ase/path402/apps/oreminer/internal/chain"
	"github.com/b0ase/path402/apps/oreminer/internal/ore"
)

// scriptedReader returns whatever its fields hold at call time.
type scriptedReader struct {
	mu          sync.Mutex
	treasury    *ore.Treasury
	treasuryErr error
	proof       *ore.Proof
	proofErr    error
	supply      *chain.TokenSupply
	supplyErr   error
	proofCalls  int
}

func (r *scriptedReader) FetchTreasury(context.Context) (*ore.Treasury, error) {
	r.mu.Lock()
	defer r.mu.Unlock()
	return r.treasury, r.treasuryErr
}

func (r *scriptedReader) FetchProof(context.Context, solana.PublicKey) (*ore.Proof, error) {
	r.mu.Lock()
	defer r.mu.Unlock()
	r.proofCalls++
	return r.proof, r.proofErr
}

func (r *scriptedReader) FetchTokenSupply(context.Context, solana.PublicKey) (*chain.TokenSupply, error) {
	r.mu.Lock()
	defer r.mu.Unlock()
	return r.supply, r.supplyErr
}

func (r *scriptedReader) setProofHash(h solana.Hash) {
	r.mu.Lock()
	r.proof = &ore.Proof{Hash: h}
	r.proofErr = nil
	r.mu.Unlock()
}

func newTestPoller(r chain.Reader) *Poller {
	return NewPoller(PollerConfig{Authority: solana.NewWallet().PublicKey()}, r, zerolog.Nop())
}

func TestPoller_InitialSlotsLoading(t *testing.T) {
	p := newTestPoller(&scriptedReader{})
	snap := p.Snapshot()
	assert.True(t, snap.Treasury.IsLoading())
	assert.True(t, snap.Proof.IsLoading())
	assert.True(t, snap.Supply.IsLoading())
	assert.Zero(t, snap.Timer)
}

func TestPoller_TimerResetsOnNewProof(t *testing.T) {
	r := &scriptedReader{}
	r.setProofHash(solana.Hash{1})
	p := newTestPoller(r)
	ctx := context.Background()

	p.refresh(ctx)
	p.wait()
	assert.Zero(t, p.Snapshot().Timer, "first proof is not a change")

	p.tick(ctx)
	p.wait()
	assert.Equal(t, uint64(1), p.Snapshot().Timer)
	p.tick(ctx)
	p.wait()
	assert.Equal(t, uint64(2), p.Snapshot().Timer)

	r.setProofHash(solana.Hash{2})
	p.tick(ctx)
	p.wait()
	assert.Zero(t, p.Snapshot().Timer, "reset on the tick the new hash appears")

	p.tick(ctx)
	p.wait()
	p.tick(ctx)
	p.wait()
	assert.Equal(t, uint64(2), p.Snapshot().Timer)
}

func TestPoller_ProofErrorDoesNotReset(t *testing.T) {
	r := &scriptedReader{}
	r.setProofHash(solana.Hash{1})
	p := newTestPoller(r)
	ctx := context.Background()

	p.refresh(ctx)
	p.wait()
	p.tick(ctx)
	p.wait()

	r.mu.Lock()
	r.proofErr = errors.New("timeout")
	r.mu.Unlock()
	p.tick(ctx)
	p.wait()
	assert.True(t, p.Snapshot().Proof.IsError())
	assert.Equal(t, uint64(2), p.Snapshot().Timer)

	r.setProofHash(solana.Hash{1})
	p.tick(ctx)
	p.wait()
	assert.Equal(t, uint64(3), p.Snapshot().Timer)
}

func TestPoller_SlotsIndependent(t *testing.T) {
	ui := 5.0
	r := &scriptedReader{
		treasuryErr: errors.New("decode"),
		supply:      &chain.TokenSupply{UIAmount: &ui},
	}
	r.setProofHash(solana.Hash{3})
	p := newTestPoller(r)

	p.refresh(context.Background())
	p.wait()
	snap := p.Snapshot()
	assert.True(t, snap.Treasury.IsError())
	assert.True(t, snap.Proof.IsOk())
	assert.True(t, snap.Supply.IsOk())
}

func TestPoller_TreasuryFailsThenRecovers(t *testing.T) {
	r := &scriptedReader{treasuryErr: errors.New("503")}
	r.setProofHash(solana.Hash{1})
	p := newTestPoller(r)
	ctx := context.Background()

	p.refresh(ctx)
	p.wait()
	assert.Equal(t, 0.0, Derive(p.Snapshot()).RewardRate)

	r.mu.Lock()
	r.treasury = &ore.Treasury{RewardRate: 3_000_000_000}
	r.treasuryErr = nil
	r.mu.Unlock()

	p.tick(ctx)
	p.wait()
	assert.Equal(t, 3.0, Derive(p.Snapshot()).RewardRate)
}

func TestPoller_FetchHook(t *testing.T) {
	r := &scriptedReader{supplyErr: errors.New("x")}
	r.setProofHash(solana.Hash{1})
	p := newTestPoller(r)

	var mu sync.Mutex
	failed := map[string]int{}
	p.OnFetch(func(source string, err error) {
		if err != nil {
			mu.Lock()
			failed[source]++
			mu.Unlock()
		}
	})
	p.refresh(context.Background())
	p.wait()

	mu.Lock()
	defer mu.Unlock()
	assert.Equal(t, map[string]int{chain.SourceTreasury: 1, chain.SourceTokenSupply: 1}, failed,
		"a treasury read with no value and no error is a failure")
}

func TestPoller_StartStopWithInjectedTicks(t *testing.T) {
	r := &scriptedReader{}
	r.setProofHash(solana.Hash{1})
	ticks := make(chan time.Time)
	p := NewPoller(PollerConfig{Authority: solana.NewWallet().PublicKey(), Ticks: ticks}, r, zerolog.Nop())

	p.Start()
	require.Eventually(t, func() bool { return p.Snapshot().Proof.IsOk() }, time.Second, 5*time.Millisecond)
	assert.Zero(t, p.Snapshot().Timer)

	ticks <- time.Now()
	require.Eventually(t, func() bool { return p.Snapshot().Ticks == 1 }, time.Second, 5*time.Millisecond)
	assert.Equal(t, uint64(1), p.Snapshot().Timer)

	p.Stop()
	p.Stop()

	r.mu.Lock()
	calls := r.proofCalls
	r.mu.Unlock()
	select {
	case ticks <- time.Now():
		t.Fatal("tick accepted after Stop")
	case <-time.After(20 * time.Millisecond):
	}
	r.mu.Lock()
	assert.Equal(t, calls, r.proofCalls)
	r.mu.Unlock()
}

// stallingReader blocks every treasury read until released or cancelled.
type stallingReader struct {
	scriptedReader
	release       chan struct{}
	treasuryCalls atomic.Int32
}

func (r *stallingReader) FetchTreasury(ctx context.Context) (*ore.Treasury, error) {
	r.treasuryCalls.Add(1)
	select {
	case <-r.release:
		return &ore.Treasury{RewardRate: 1_000_000_000}, nil
	case <-ctx.Done():
		return nil, ctx.Err()
	}
}

func (r *stallingReader) calls() int {
	r.mu.Lock()
	defer r.mu.Unlock()
	return r.proofCalls
}

func (p *Poller) idle(s slot) bool {
	p.mu.RLock()
	defer p.mu.RUnlock()
	return !p.busy[s]
}

func TestPoller_SlowFetchDoesNotStallTimerOrOtherSlots(t *testing.T) {
	ui := 7.0
	r := &stallingReader{release: make(chan struct{})}
	r.supply = &chain.TokenSupply{UIAmount: &ui}
	r.setProofHash(solana.Hash{1})
	ticks := make(chan time.Time)
	p := NewPoller(PollerConfig{
		Authority:    solana.NewWallet().PublicKey(),
		FetchTimeout: time.Minute,
		Ticks:        ticks,
	}, r, zerolog.Nop())

	p.Start()
	defer p.Stop()
	require.Eventually(t, func() bool { return p.Snapshot().Proof.IsOk() }, time.Second, time.Millisecond)

	for i := 1; i <= 5; i++ {
		require.Eventually(t, func() bool { return p.idle(slotProof) }, time.Second, time.Millisecond)
		before := r.calls()
		ticks <- time.Now()
		require.Eventually(t, func() bool { return r.calls() > before }, time.Second, time.Millisecond,
			"proof refetched on tick %d while treasury hangs", i)
		assert.Equal(t, uint64(i), p.Snapshot().Timer)
	}

	snap := p.Snapshot()
	assert.Equal(t, uint64(5), snap.Ticks)
	assert.True(t, snap.Treasury.IsLoading())
	assert.True(t, snap.Supply.IsOk())
	assert.Equal(t, int32(1), r.treasuryCalls.Load(), "a slot with a read in flight is skipped")

	close(r.release)
	require.Eventually(t, func() bool {
		return p.Snapshot().Treasury.IsOk() && p.idle(slotTreasury)
	}, time.Second, time.Millisecond)

	ticks <- time.Now()
	require.Eventually(t, func() bool { return r.treasuryCalls.Load() == 2 }, time.Second, time.Millisecond)
	assert.Equal(t, uint64(6), p.Snapshot().Timer)
}

func TestPoller_StopCancelsHungFetch(t *testing.T) {
	r := &stallingReader{release: make(chan struct{})}
	r.setProofHash(solana.Hash{1})
	p := NewPoller(PollerConfig{
		Authority:    solana.NewWallet().PublicKey(),
		FetchTimeout: time.Minute,
		Ticks:        make(chan time.Time),
	}, r, zerolog.Nop())

	p.Start()
	require.Eventually(t, func() bool { return r.treasuryCalls.Load() == 1 }, time.Second, time.Millisecond)

	done := make(chan struct{})
	go func() {
		p.Stop()
		close(done)
	}()
	select {
	case <-done:
	case <-time.After(time.Second):
		t.Fatal("Stop blocked on a hung fetch")
	}
	assert.True(t, p.Snapshot().Treasury.IsLoading(), "cancelled read is discarded")
}

func TestPoller_StopWithoutStart(t *testing.T) {
	p := newTestPoller(&scriptedReader{})
	done := make(chan struct{})
	go func() {
		p.Stop()
		close(done)
	}()
	select {
	case <-done:
	case <-time.After(time.Second):
		t.Fatal("Stop blocked on a poller that never started")
	}
}
