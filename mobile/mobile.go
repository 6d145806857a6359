// Package mobile provides gomobile-bindable functions for the ORE miner
// daemon. All complex data is returned as JSON strings since gomobile cannot
// export maps, slices, or structs with unexported fields.
package mobile

import (
	"context"
	"encoding/json"
	"fmt"
	"os"
	"sync"
	"time"

	"github.com/b0ase/path402/apps/oreminer/internal/config"
	"github.com/b0ase/path402/apps/oreminer/internal/daemon"
	"github.com/b0ase/path402/apps/oreminer/internal/logging"

	// Required by gomobile bind at build time
	_ "golang.org/x/mobile/bind"
)

const callTimeout = 30 * time.Second

var (
	mu      sync.Mutex
	d       *daemon.Daemon
	running bool
	version = "0.1.0"
)

// Start initialises and starts the daemon.
// configYAML may be empty to use defaults. dataDir is the path to the app's
// private files directory (e.g. Context.getFilesDir() + "/oreminer").
func Start(configYAML string, dataDir string) error {
	mu.Lock()
	defer mu.Unlock()

	if running {
		return fmt.Errorf("already running")
	}

	cfg, err := config.LoadFromBytes([]byte(configYAML))
	if err != nil {
		return fmt.Errorf("parse config: %w", err)
	}
	if dataDir != "" {
		cfg.DataDir = dataDir
	}
	if err := os.MkdirAll(cfg.DataDir, 0700); err != nil {
		return fmt.Errorf("create data dir: %w", err)
	}

	logger := logging.Init("oreminer-mobile", cfg.Log.Level, cfg.Log.Format)
	d, err = daemon.New(cfg, logger)
	if err != nil {
		return fmt.Errorf("create daemon: %w", err)
	}
	if err := d.Start(); err != nil {
		d = nil
		return fmt.Errorf("start daemon: %w", err)
	}

	running = true
	return nil
}

// Stop gracefully shuts down the daemon.
func Stop() {
	mu.Lock()
	defer mu.Unlock()

	if d != nil {
		d.Stop()
		d = nil
	}
	running = false
}

// IsRunning returns true if the daemon is currently running.
func IsRunning() bool {
	mu.Lock()
	defer mu.Unlock()
	return running
}

// GetVersion returns the version string.
func GetVersion() string {
	return version
}

// GetToolbar returns the toolbar view as a JSON string.
func GetToolbar() string {
	mu.Lock()
	defer mu.Unlock()

	if d == nil {
		return `{"running":false}`
	}
	data, _ := json.Marshal(d.Toolbar())
	return string(data)
}

// GetWallet returns wallet status as a JSON string.
func GetWallet() string {
	mu.Lock()
	defer mu.Unlock()

	if d == nil {
		return `{"connected":false}`
	}
	data, _ := json.Marshal(d.WalletStatus())
	return string(data)
}

// GetHistory returns recent metric samples as a JSON array.
func GetHistory(limit int) string {
	mu.Lock()
	defer mu.Unlock()

	if d == nil {
		return `[]`
	}
	if limit <= 0 {
		limit = 20
	}
	if limit > 1000 {
		limit = 1000
	}
	samples, err := d.History(limit)
	if err != nil {
		return `[]`
	}
	data, _ := json.Marshal(samples)
	return string(data)
}

// OpenToolbar expands the toolbar.
// Returns the toolbar view JSON or {"error":"..."}.
func OpenToolbar() string {
	return call(func(ctx context.Context) error { return d.OpenToolbar(ctx) })
}

// CloseToolbar collapses the toolbar and returns the toolbar view JSON.
func CloseToolbar() string {
	return call(func(context.Context) error {
		d.CloseToolbar()
		return nil
	})
}

// ProvisionAccount requests the open-account signature.
// Returns the toolbar view JSON or {"error":"..."}.
func ProvisionAccount() string {
	return call(func(ctx context.Context) error { return d.ProvisionAccount(ctx) })
}

// StartMining confirms the account and starts mining.
// Returns the toolbar view JSON or {"error":"..."}.
func StartMining() string {
	return call(func(ctx context.Context) error { return d.StartMining(ctx) })
}

// StopMining stops mining and returns the toolbar view JSON.
func StopMining() string {
	return call(func(context.Context) error { return d.StopMining() })
}

func call(fn func(ctx context.Context) error) string {
	mu.Lock()
	defer mu.Unlock()

	if d == nil {
		return `{"error":"daemon not running"}`
	}
	ctx, cancel := context.WithTimeout(context.Background(), callTimeout)
	defer cancel()
	if err := fn(ctx); err != nil {
		data, _ := json.Marshal(map[string]string{"error": err.Error()})
		return string(data)
	}
	data, _ := json.Marshal(d.Toolbar())
	return string(data)
}
