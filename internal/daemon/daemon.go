package daemon

import (
	"context"
	"fmt"
	"net/http"
	"sync"
	"time"

	"github.com/gagliardetto/solana-go"
	"github.com/rs/zerolog"

	"github.com/b0ase/path402/apps/oreminer/internal/chain"
	"github.com/b0ase/path402/apps/oreminer/internal/config"
	"github.com/b0ase/path402/apps/oreminer/internal/db"
	"github.com/b0ase/path402/apps/oreminer/internal/mining"
	"github.com/b0ase/path402/apps/oreminer/internal/server"
	"github.com/b0ase/path402/apps/oreminer/internal/telemetry"
	"github.com/b0ase/path402/apps/oreminer/internal/toolbar"
	"github.com/b0ase/path402/apps/oreminer/internal/wallet"
)

// Daemon wires the chain client, wallet, toolbar orchestrator and APIs.
type Daemon struct {
	cfg       *config.Config
	base      zerolog.Logger
	log       zerolog.Logger
	nodeID    string
	startTime time.Time

	rpc     *chain.RPCClient
	wallet  *wallet.Local
	prov    *toolbar.Provisioner
	orch    *toolbar.Orchestrator
	metrics *telemetry.Metrics
	httpSrv *server.Server

	stopCh chan struct{}
	wg     sync.WaitGroup
}

// New creates a new daemon instance.
func New(cfg *config.Config, logger zerolog.Logger) (*Daemon, error) {
	return &Daemon{
		cfg:    cfg,
		base:   logger,
		log:    logger.With().Str("component", "daemon").Logger(),
		stopCh: make(chan struct{}),
	}, nil
}

// Start initializes and starts all subsystems in order.
func (d *Daemon) Start() error {
	d.startTime = time.Now()

	// 1. Open database
	if err := db.Open(d.cfg.DBPath()); err != nil {
		return fmt.Errorf("db open: %w", err)
	}

	// 2. Get/set node ID
	nodeID, err := db.GetNodeID()
	if err != nil {
		return fmt.Errorf("get node id: %w", err)
	}
	d.nodeID = nodeID
	d.log.Info().Str("node_id", nodeID[:8]).Msg("Node identity loaded")

	// 3. Chain client
	d.rpc = chain.NewRPCClient(chain.RPCConfig{
		URL:        d.cfg.RPC.URL,
		Commitment: d.cfg.RPC.Commitment,
		Timeout:    d.cfg.RPC.Timeout,
	})

	// 4. Load wallet
	//    keypair file → base58 key (config/env) → DB-saved key → auto-generate
	kp, err := d.loadKeypair()
	if err != nil {
		return fmt.Errorf("load wallet: %w", err)
	}
	d.wallet = wallet.NewLocal(kp, d.rpc, d.cfg.Wallet.AutoApprove, d.base)
	d.log.Info().Str("address", kp.Address).Bool("auto_approve", d.cfg.Wallet.AutoApprove).Msg("Wallet ready")

	// 5. Telemetry
	d.metrics = telemetry.New()

	// 6. Toolbar orchestrator
	d.prov = toolbar.NewProvisioner(d.wallet, d.wallet, d.rpc, d.base)
	d.orch = toolbar.New(toolbar.Config{
		ConfirmAttempts: d.cfg.Mining.ConfirmAttempts,
		ConfirmInterval: d.cfg.Mining.ConfirmInterval,
	}, d.wallet, d.rpc, d.prov, d.newSession, d.base)
	d.orch.OnInvocation(d.recordAttempt)

	initCtx, cancel := context.WithTimeout(context.Background(), d.cfg.RPC.Timeout)
	if err := d.orch.Init(initCtx); err != nil {
		d.log.Warn().Err(err).Msg("Initial account lookup failed (provisioning will be offered)")
	}
	cancel()
	d.log.Info().Str("state", d.orch.State().String()).Msg("Toolbar initialized")

	if d.cfg.Mining.AutoStart && d.orch.State() == toolbar.StateIdle {
		if err := d.orch.StartMining(context.Background()); err != nil {
			d.log.Warn().Err(err).Msg("Auto-start mining failed")
		}
	}

	// 7. Start periodic telemetry and sampling
	d.wg.Add(1)
	go d.sampleLoop()

	// 8. Start HTTP API
	d.httpSrv = server.New(d.cfg.API.Bind, d.cfg.API.Port, d, d.base)
	if port, err := d.httpSrv.Start(); err != nil {
		d.log.Warn().Err(err).Msg("HTTP API failed to start (mining continues)")
	} else {
		d.log.Info().Int("port", port).Msg("HTTP API started")
	}

	d.log.Info().Msg("All systems online")
	return nil
}

// loadKeypair resolves the signing key in priority order and persists a
// freshly generated one.
func (d *Daemon) loadKeypair() (*wallet.Keypair, error) {
	if p := d.cfg.Wallet.KeypairPath; p != "" {
		kp, err := wallet.LoadFile(p)
		if err == nil {
			return kp, nil
		}
		d.log.Warn().Err(err).Str("path", p).Msg("Keypair file load failed")
	}
	if k := d.cfg.Wallet.PrivateKey; k != "" {
		kp, err := wallet.Load(k)
		if err == nil {
			return kp, nil
		}
		d.log.Warn().Err(err).Msg("Configured private key load failed")
	}
	if saved, err := db.GetWalletKey(); err == nil && saved != "" {
		kp, err := wallet.Load(saved)
		if err == nil {
			d.log.Info().Str("address", kp.Address).Msg("Loaded persisted wallet")
			return kp, nil
		}
		d.log.Warn().Err(err).Msg("DB wallet load failed (will regenerate)")
	}

	kp, err := wallet.Generate()
	if err != nil {
		return nil, err
	}
	if err := db.SetWalletKey(kp.PrivateKey.String()); err != nil {
		d.log.Warn().Err(err).Msg("Failed to persist generated wallet")
	}
	d.log.Info().Str("address", kp.Address).Msg("Generated and saved new wallet")
	return kp, nil
}

func (d *Daemon) newSession(authority solana.PublicKey) toolbar.Session {
	p := mining.NewPoller(mining.PollerConfig{
		Authority:    authority,
		TickInterval: d.cfg.Mining.PollInterval,
		FetchTimeout: d.cfg.Mining.FetchTimeout,
	}, d.rpc, d.base)
	p.OnFetch(d.metrics.ObserveFetch)
	return p
}

func (d *Daemon) recordAttempt(s wallet.InvocationSnapshot) {
	a := &db.ProvisioningAttempt{
		ID:        s.ID,
		Authority: d.wallet.Address(),
		State:     s.State,
	}
	if s.Signature != "" {
		a.Signature = &s.Signature
	}
	if s.Error != "" {
		kind := string(s.ErrorKind)
		a.Error = &s.Error
		a.ErrorKind = &kind
	}
	if err := db.UpsertAttempt(a); err != nil {
		d.log.Warn().Err(err).Str("invocation", s.ID).Msg("Failed to record provisioning attempt")
	}
}

func (d *Daemon) sampleLoop() {
	defer d.wg.Done()

	gauges := time.NewTicker(d.cfg.Mining.PollInterval)
	defer gauges.Stop()
	samples := time.NewTicker(d.cfg.Mining.SampleInterval)
	defer samples.Stop()

	for {
		select {
		case <-d.stopCh:
			return
		case <-gauges.C:
			v := d.orch.View()
			d.metrics.ObserveMetrics(v.Metrics)
			d.metrics.ObserveState(d.orch.State())
		case <-samples.C:
			d.sample()
		}
	}
}

// sample persists one metrics row while mining and prunes old rows.
func (d *Daemon) sample() {
	if d.orch.State() != toolbar.StateActive {
		return
	}
	v := d.orch.View()
	s := &db.MetricSample{
		Authority:         v.Address,
		RewardRate:        v.Metrics.RewardRate,
		ClaimableRewards:  v.Metrics.ClaimableRewards,
		CirculatingSupply: v.Metrics.CirculatingSupply,
		TotalSupply:       v.Metrics.TotalSupply,
		ProofHash:         v.Metrics.Hash,
		SessionTimer:      v.Metrics.SessionTimer,
	}
	if err := db.InsertSample(s); err != nil {
		d.log.Warn().Err(err).Msg("Failed to store metric sample")
		return
	}
	if d.cfg.Mining.SampleRetention > 0 {
		if n, err := db.PruneSamples(time.Now().Add(-d.cfg.Mining.SampleRetention)); err != nil {
			d.log.Warn().Err(err).Msg("Failed to prune metric samples")
		} else if n > 0 {
			d.log.Debug().Int64("removed", n).Msg("Pruned metric samples")
		}
	}
}

// Stop shuts down all subsystems.
func (d *Daemon) Stop() {
	d.log.Info().Msg("Shutting down...")
	close(d.stopCh)
	d.wg.Wait()

	if d.httpSrv != nil {
		d.httpSrv.Stop()
	}
	if d.orch != nil {
		d.orch.Close()
	}
	db.Close()

	d.log.Info().Msg("Shutdown complete")
}

// --- Status accessors (used by HTTP API, MCP and mobile) ---

func (d *Daemon) NodeID() string        { return d.nodeID }
func (d *Daemon) Uptime() time.Duration { return time.Since(d.startTime) }

func (d *Daemon) Toolbar() toolbar.View { return d.orch.View() }

func (d *Daemon) OpenToolbar(ctx context.Context) error { return d.orch.OpenToolbar(ctx) }

func (d *Daemon) CloseToolbar() { d.orch.CloseToolbar() }

func (d *Daemon) ProvisionAccount(ctx context.Context) error {
	return d.orch.RequestAccountProvisioning(ctx)
}

func (d *Daemon) StartMining(ctx context.Context) error { return d.orch.StartMining(ctx) }

func (d *Daemon) StopMining() error { return d.orch.StopMining() }

func (d *Daemon) WalletStatus() map[string]interface{} {
	result := map[string]interface{}{
		"connected":    d.wallet.IsConnected(),
		"auto_approve": d.cfg.Wallet.AutoApprove,
	}
	if addr := d.wallet.Address(); addr != "" {
		result["address"] = addr
	}
	return result
}

// History returns the most recent metric samples, newest first.
func (d *Daemon) History(limit int) ([]db.MetricSample, error) {
	return db.GetRecentSamples(limit)
}

// Attempts returns the most recent provisioning attempts, newest first.
func (d *Daemon) Attempts(limit int) ([]db.ProvisioningAttempt, error) {
	return db.GetRecentAttempts(limit)
}

func (d *Daemon) MetricsHandler() http.Handler { return d.metrics.Handler() }
