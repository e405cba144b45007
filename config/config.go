// Package config loads the YAML configuration of the CMT ledger.
package config

import (
	"bytes"
	"errors"
	"fmt"
	"io/fs"
	"os"
	"path/filepath"
	"time"

	"gopkg.in/yaml.v3"
)

// Environment overrides applied by LoadConfig.
const (
	EnvDataDir  = "CMT_DATA_DIR"
	EnvLogLevel = "CMT_LOG_LEVEL"
)

// Config is the complete configuration.
type Config struct {
	DataDir  string `yaml:"data_dir"`
	LogLevel string `yaml:"log_level"`
	LogFile  string `yaml:"log_file"`

	Token   TokenConfig   `yaml:"token"`
	Fees    FeeConfig     `yaml:"fees"`
	Staking StakingConfig `yaml:"staking"`
	Rewards RewardConfig  `yaml:"rewards"`
}

// TokenConfig describes the token, its pair and its privileged accounts.
// Addresses are hex or "@label".
type TokenConfig struct {
	Address         string    `yaml:"address"`
	QuoteToken      string    `yaml:"quote_token"`
	Pair            string    `yaml:"pair"`
	PairFeeBps      uint64    `yaml:"pair_fee_bps"`
	Decimals        int32     `yaml:"decimals"`
	Launch          time.Time `yaml:"launch"`
	NormalFeeDelay  string    `yaml:"normal_fee_delay"`
	Owner           string    `yaml:"owner"`
	PositionManager string    `yaml:"position_manager"`
	Whitelist       []string  `yaml:"whitelist,omitempty"`
	Special         []string  `yaml:"special,omitempty"`
}

// Rates are basis points out of 10000.
type Rates struct {
	Normal  uint64 `yaml:"normal,omitempty"`
	Node    uint64 `yaml:"node"`
	Cluster uint64 `yaml:"cluster"`
	Market  uint64 `yaml:"market"`
	Tech    uint64 `yaml:"tech"`
	Sub     uint64 `yaml:"sub"`
}

// Sum returns the total of all rates.
func (r Rates) Sum() uint64 {
	return r.Normal + r.Node + r.Cluster + r.Market + r.Tech + r.Sub
}

// Destinations are the fee receiving accounts.
type Destinations struct {
	Normal  string `yaml:"normal"`
	Node    string `yaml:"node"`
	Cluster string `yaml:"cluster"`
	Market  string `yaml:"market"`
	Tech    string `yaml:"tech"`
	Sub     string `yaml:"sub"`
}

// FeeConfig holds the transaction and profit fee schedule.
type FeeConfig struct {
	Transaction  Rates        `yaml:"transaction"`
	Profit       Rates        `yaml:"profit"`
	Destinations Destinations `yaml:"destinations"`
}

// Tier is one staking tier; Amount is in whole quote units, e.g. "200".
type Tier struct {
	Amount string `yaml:"amount"`
	Lock   string `yaml:"lock"`
}

// StakingConfig holds the staking tier table.
type StakingConfig struct {
	RequireReferrer bool   `yaml:"require_referrer"`
	Tiers           []Tier `yaml:"tiers"`
}

// RewardConfig holds the reward accountant settings.
type RewardConfig struct {
	CapMultiplier   uint64   `yaml:"cap_multiplier"`
	WithholdPercent uint64   `yaml:"withhold_percent"`
	CapScope        string   `yaml:"cap_scope"`
	TeamValuation   string   `yaml:"team_valuation"`
	Operators       []string `yaml:"operators"`
	DAOPool         string   `yaml:"dao_pool"`
}

// DefaultDataDir returns the default data directory (~/.cmt).
func DefaultDataDir() string {
	home, err := os.UserHomeDir()
	if err != nil {
		return ".cmt"
	}
	return filepath.Join(home, ".cmt")
}

// ConfigPath returns the configuration file path inside dataDir.
func ConfigPath(dataDir string) string {
	return filepath.Join(dataDir, "config.yaml")
}

// DefaultConfig returns the reference deployment: 3% transaction fees, a
// 46% profit fee, six tiers from 200 to 14000 locked 2 to 7 days and a 3x
// team cap.
func DefaultConfig() Config {
	return Config{
		DataDir:  DefaultDataDir(),
		LogLevel: "info",
		Token: TokenConfig{
			Address:         "@cmt",
			QuoteToken:      "@usdt",
			Pair:            "@pair",
			PairFeeBps:      25,
			Decimals:        6,
			Launch:          time.Date(2026, 1, 1, 0, 0, 0, 0, time.UTC),
			NormalFeeDelay:  "1440h",
			Owner:           "@owner",
			PositionManager: "@position-manager",
			Special:         []string{"@dao-pool"},
		},
		Fees: FeeConfig{
			Transaction: Rates{Node: 50, Cluster: 50, Market: 50, Tech: 100, Sub: 50},
			Profit:      Rates{Normal: 1600, Node: 1000, Cluster: 500, Market: 500, Tech: 500, Sub: 500},
			Destinations: Destinations{
				Normal:  "@fee-normal",
				Node:    "@fee-node",
				Cluster: "@fee-cluster",
				Market:  "@fee-market",
				Tech:    "@fee-tech",
				Sub:     "@fee-sub",
			},
		},
		Staking: StakingConfig{
			Tiers: []Tier{
				{Amount: "200", Lock: "48h"},
				{Amount: "600", Lock: "72h"},
				{Amount: "1200", Lock: "96h"},
				{Amount: "2500", Lock: "120h"},
				{Amount: "6000", Lock: "144h"},
				{Amount: "14000", Lock: "168h"},
			},
		},
		Rewards: RewardConfig{
			CapMultiplier:   3,
			WithholdPercent: 20,
			CapScope:        "category",
			TeamValuation:   "pool",
			Operators:       []string{"@operator"},
			DAOPool:         "@dao-pool",
		},
	}
}

// LoadConfig reads the YAML file at path over DefaultConfig, so missing
// keys keep their defaults, then applies environment overrides.
func LoadConfig(path string) (Config, error) {
	cfg := DefaultConfig()

	data, err := os.ReadFile(path)
	if err != nil {
		if errors.Is(err, fs.ErrNotExist) {
			return cfg, fmt.Errorf("%w: %s", ErrConfigNotFound, path)
		}
		return cfg, fmt.Errorf("config: read: %w", err)
	}
	if err := yaml.Unmarshal(data, &cfg); err != nil {
		return cfg, fmt.Errorf("%w: %s: %w", ErrInvalidYAML, path, err)
	}

	applyEnv(&cfg)
	return cfg, nil
}

func applyEnv(cfg *Config) {
	if v := os.Getenv(EnvDataDir); v != "" {
		cfg.DataDir = v
	}
	if v := os.Getenv(EnvLogLevel); v != "" {
		cfg.LogLevel = v
	}
}

// SaveConfig writes cfg to path as YAML, creating parent directories.
func SaveConfig(path string, cfg Config) error {
	if err := os.MkdirAll(filepath.Dir(path), 0700); err != nil {
		return fmt.Errorf("config: create directory: %w", err)
	}

	var buf bytes.Buffer
	buf.WriteString("# CMT ledger configuration\n")
	enc := yaml.NewEncoder(&buf)
	enc.SetIndent(2)
	if err := enc.Encode(&cfg); err != nil {
		return fmt.Errorf("config: encode: %w", err)
	}
	if err := enc.Close(); err != nil {
		return fmt.Errorf("config: encode: %w", err)
	}
	return os.WriteFile(path, buf.Bytes(), 0600)
}
