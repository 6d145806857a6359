package config

import (
	"fmt"
	"os"
	"path/filepath"
	"time"

	"github.com/caarlos0/env/v10"
	"github.com/joho/godotenv"
	"gopkg.in/yaml.v3"
)

// EnvPrefix is prepended to every environment override, e.g. OREMINER_RPC_URL.
const EnvPrefix = "OREMINER_"

type RPCConfig struct {
	URL        string        `yaml:"url" env:"URL"`
	Commitment string        `yaml:"commitment" env:"COMMITMENT"`
	Timeout    time.Duration `yaml:"timeout" env:"TIMEOUT"`
}

type WalletConfig struct {
	KeypairPath string `yaml:"keypair_path" env:"KEYPAIR_PATH"` // solana-keygen JSON file
	PrivateKey  string `yaml:"private_key" env:"PRIVATE_KEY"`   // base58
	AutoApprove bool   `yaml:"auto_approve" env:"AUTO_APPROVE"`
}

type MiningConfig struct {
	PollInterval    time.Duration `yaml:"poll_interval" env:"POLL_INTERVAL"`
	FetchTimeout    time.Duration `yaml:"fetch_timeout" env:"FETCH_TIMEOUT"`
	ConfirmAttempts int           `yaml:"confirm_attempts" env:"CONFIRM_ATTEMPTS"`
	ConfirmInterval time.Duration `yaml:"confirm_interval" env:"CONFIRM_INTERVAL"`
	SampleInterval  time.Duration `yaml:"sample_interval" env:"SAMPLE_INTERVAL"`
	SampleRetention time.Duration `yaml:"sample_retention" env:"SAMPLE_RETENTION"`
	AutoStart       bool          `yaml:"auto_start" env:"AUTO_START"` // start mining at boot when the account exists
}

type APIConfig struct {
	Port int    `yaml:"port" env:"PORT"`
	Bind string `yaml:"bind" env:"BIND"`
}

type LogConfig struct {
	Level  string `yaml:"level" env:"LEVEL"`
	Format string `yaml:"format" env:"FORMAT"`
}

type Config struct {
	DataDir string       `yaml:"data_dir" env:"DATA_DIR"`
	RPC     RPCConfig    `yaml:"rpc" envPrefix:"RPC_"`
	Wallet  WalletConfig `yaml:"wallet" envPrefix:"WALLET_"`
	Mining  MiningConfig `yaml:"mining" envPrefix:"MINING_"`
	API     APIConfig    `yaml:"api" envPrefix:"API_"`
	Log     LogConfig    `yaml:"log" envPrefix:"LOG_"`
}

func DefaultConfig() *Config {
	home, _ := os.UserHomeDir()
	return &Config{
		DataDir: filepath.Join(home, ".oreminer"),
		RPC: RPCConfig{
			URL:        "https://api.mainnet-beta.solana.com",
			Commitment: "confirmed",
			Timeout:    10 * time.Second,
		},
		Wallet: WalletConfig{
			AutoApprove: true,
		},
		Mining: MiningConfig{
			PollInterval:    time.Second,
			FetchTimeout:    5 * time.Second,
			ConfirmAttempts: 10,
			ConfirmInterval: 2 * time.Second,
			SampleInterval:  30 * time.Second,
			SampleRetention: 7 * 24 * time.Hour,
		},
		API: APIConfig{
			Port: 8403,
			Bind: "127.0.0.1",
		},
		Log: LogConfig{
			Level:  "info",
			Format: "text",
		},
	}
}

// Load reads a YAML config file and merges it with defaults, then applies
// .env and OREMINER_* environment overrides.
func Load(path string) (*Config, error) {
	cfg := DefaultConfig()

	data, err := os.ReadFile(path)
	if err != nil && !os.IsNotExist(err) {
		return nil, err
	}
	if err == nil {
		if err := yaml.Unmarshal(data, cfg); err != nil {
			return nil, fmt.Errorf("parse %s: %w", path, err)
		}
	}

	if err := cfg.applyEnv(); err != nil {
		return nil, err
	}
	cfg.expandHome()
	return cfg, cfg.Validate()
}

// LoadFromBytes parses YAML config from bytes and merges with defaults.
// Used by the mobile package where there's no config file on disk.
func LoadFromBytes(data []byte) (*Config, error) {
	cfg := DefaultConfig()
	if len(data) > 0 {
		if err := yaml.Unmarshal(data, cfg); err != nil {
			return nil, err
		}
	}
	if err := cfg.applyEnv(); err != nil {
		return nil, err
	}
	cfg.expandHome()
	return cfg, cfg.Validate()
}

// applyEnv overlays environment variables on top of config values. A .env
// file in the working directory is loaded first when present.
func (c *Config) applyEnv() error {
	_ = godotenv.Load()
	if err := env.ParseWithOptions(c, env.Options{Prefix: EnvPrefix}); err != nil {
		return fmt.Errorf("parse env: %w", err)
	}
	return nil
}

// Expand ~ in data_dir
func (c *Config) expandHome() {
	if len(c.DataDir) > 0 && c.DataDir[0] == '~' {
		home, _ := os.UserHomeDir()
		c.DataDir = filepath.Join(home, c.DataDir[1:])
	}
}

// Validate rejects values the daemon cannot run with.
func (c *Config) Validate() error {
	if c.Mining.PollInterval <= 0 {
		return fmt.Errorf("mining.poll_interval must be positive")
	}
	if c.Mining.FetchTimeout <= 0 {
		return fmt.Errorf("mining.fetch_timeout must be positive")
	}
	if c.Mining.ConfirmAttempts < 1 {
		return fmt.Errorf("mining.confirm_attempts must be at least 1")
	}
	if c.API.Port < 0 || c.API.Port > 65535 {
		return fmt.Errorf("api.port %d out of range", c.API.Port)
	}
	switch c.RPC.Commitment {
	case "processed", "confirmed", "finalized":
	default:
		return fmt.Errorf("rpc.commitment %q must be processed, confirmed or finalized", c.RPC.Commitment)
	}
	return nil
}

// DBPath returns the full path to the SQLite database file.
func (c *Config) DBPath() string {
	return filepath.Join(c.DataDir, "oreminer.db")
}
