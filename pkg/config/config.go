// Package config provides configuration management for the cascade service.
package config

import (
	"encoding/json"
	"fmt"
	"os"
	"strconv"

	"github.com/jonasrmichel/solcascade/pkg/jupiter"
	"github.com/jonasrmichel/solcascade/pkg/risk"
	"github.com/jonasrmichel/solcascade/pkg/solana"
	"github.com/jonasrmichel/solcascade/pkg/types"
)

// Config holds the complete service configuration. All SOL amounts are
// decimal strings and converted to lamports with exact arithmetic at load
// time, never through floats.
type Config struct {
	Listen   string `json:"listen"`
	LogLevel string `json:"log_level"`

	// Ledger settings
	SolanaRPCURL     string `json:"solana_rpc_url"`
	WalletPrivateKey string `json:"-"` // Env only, never serialized
	WalletAddress    string `json:"wallet_address,omitempty"`

	// Quote gateway settings
	JupiterBaseURL string `json:"jupiter_base_url,omitempty"`
	JupiterAPIKey  string `json:"-"` // Env only

	// HomeMint is the cascade's home asset.
	HomeMint string `json:"home_mint"`

	// Optional integrations
	DatabaseURL     string `json:"database_url,omitempty"`
	SlackWebhookURL string `json:"-"` // Env only

	ScoreRefreshSecs   int `json:"score_refresh_secs"`
	DefaultSlippageBps int `json:"default_slippage_bps"`

	Risk  RiskSettings   `json:"risk"`
	Pairs []PairSettings `json:"pairs"`
}

// RiskSettings holds the global risk limits as decimal SOL strings.
type RiskSettings struct {
	MaxTradeSOL string `json:"max_trade_sol"`
	MaxDailySOL string `json:"max_daily_sol"`
	MinTradeSOL string `json:"min_trade_sol"`
}

// PairSettings holds the configuration for one trading pair.
type PairSettings struct {
	ID           string `json:"id"`
	StableMint   string `json:"stable_mint"`
	TargetMint   string `json:"target_mint"`
	Rank         int    `json:"rank"`
	Enabled      bool   `json:"enabled"`
	MaxTradeSOL  string `json:"max_trade_sol,omitempty"` // Override of the global limit
	SlippageBps  int    `json:"slippage_bps,omitempty"`
	MinWalletSOL string `json:"min_wallet_sol,omitempty"`
}

// DefaultConfig returns a default configuration.
func DefaultConfig() *Config {
	return &Config{
		Listen:             ":8080",
		LogLevel:           "info",
		SolanaRPCURL:       "https://api.mainnet-beta.solana.com",
		HomeMint:           jupiter.SOLMint,
		ScoreRefreshSecs:   300,
		DefaultSlippageBps: 50,

		Risk: RiskSettings{
			MaxTradeSOL: "5",
			MaxDailySOL: "50",
			MinTradeSOL: "0.01",
		},

		Pairs: []PairSettings{
			{ID: "sol-usdc", StableMint: jupiter.SOLMint, TargetMint: jupiter.USDCMint, Rank: 1, Enabled: true, MinWalletSOL: "0.05"},
			{ID: "sol-bonk", StableMint: jupiter.SOLMint, TargetMint: jupiter.BONKMint, Rank: 2, Enabled: false, MinWalletSOL: "0.05"},
		},
	}
}

// LoadFromFile loads configuration from a JSON file, then applies environment
// variable overrides.
func LoadFromFile(path string) (*Config, error) {
	data, err := os.ReadFile(path)
	if err != nil {
		return nil, fmt.Errorf("failed to read config file: %w", err)
	}

	cfg := DefaultConfig()
	if err := json.Unmarshal(data, cfg); err != nil {
		return nil, fmt.Errorf("failed to parse config: %w", err)
	}

	cfg.applyEnvOverrides()
	return cfg, nil
}

// LoadFromEnv loads configuration from environment variables over defaults.
func LoadFromEnv() *Config {
	cfg := DefaultConfig()
	cfg.applyEnvOverrides()
	return cfg
}

func (c *Config) applyEnvOverrides() {
	if v := os.Getenv("LISTEN_ADDR"); v != "" {
		c.Listen = v
	}
	if v := os.Getenv("LOG_LEVEL"); v != "" {
		c.LogLevel = v
	}
	if v := os.Getenv("SOLANA_RPC_URL"); v != "" {
		c.SolanaRPCURL = v
	}
	if v := os.Getenv("WALLET_PRIVATE_KEY"); v != "" {
		c.WalletPrivateKey = v
	}
	if v := os.Getenv("WALLET_ADDRESS"); v != "" {
		c.WalletAddress = v
	}
	if v := os.Getenv("JUPITER_BASE_URL"); v != "" {
		c.JupiterBaseURL = v
	}
	if v := os.Getenv("JUPITER_API_KEY"); v != "" {
		c.JupiterAPIKey = v
	}
	if v := os.Getenv("HOME_MINT"); v != "" {
		c.HomeMint = v
	}
	if v := os.Getenv("DATABASE_URL"); v != "" {
		c.DatabaseURL = v
	}
	if v := os.Getenv("SLACK_WEBHOOK_URL"); v != "" {
		c.SlackWebhookURL = v
	}
	if v := os.Getenv("SCORE_REFRESH_SECS"); v != "" {
		if val, err := strconv.Atoi(v); err == nil {
			c.ScoreRefreshSecs = val
		}
	}
	if v := os.Getenv("DEFAULT_SLIPPAGE_BPS"); v != "" {
		if val, err := strconv.Atoi(v); err == nil {
			c.DefaultSlippageBps = val
		}
	}
	if v := os.Getenv("RISK_MAX_TRADE_SOL"); v != "" {
		c.Risk.MaxTradeSOL = v
	}
	if v := os.Getenv("RISK_MAX_DAILY_SOL"); v != "" {
		c.Risk.MaxDailySOL = v
	}
	if v := os.Getenv("RISK_MIN_TRADE_SOL"); v != "" {
		c.Risk.MinTradeSOL = v
	}
}

// RiskLimits converts the configured SOL amounts to lamport limits.
func (c *Config) RiskLimits() (risk.Limits, error) {
	maxTrade, err := solana.ParseSOL(c.Risk.MaxTradeSOL)
	if err != nil {
		return risk.Limits{}, fmt.Errorf("risk.max_trade_sol: %w", err)
	}
	maxDaily, err := solana.ParseSOL(c.Risk.MaxDailySOL)
	if err != nil {
		return risk.Limits{}, fmt.Errorf("risk.max_daily_sol: %w", err)
	}
	minTrade, err := solana.ParseSOL(c.Risk.MinTradeSOL)
	if err != nil {
		return risk.Limits{}, fmt.Errorf("risk.min_trade_sol: %w", err)
	}

	return risk.Limits{
		MaxTradeLamports: maxTrade,
		MaxDailyLamports: maxDaily,
		MinTradeLamports: minTrade,
	}, nil
}

// TradingPairs converts the configured pairs to the domain model.
func (c *Config) TradingPairs() ([]types.TradingPair, error) {
	out := make([]types.TradingPair, 0, len(c.Pairs))
	for _, p := range c.Pairs {
		pair := types.TradingPair{
			ID:                p.ID,
			StableMint:        p.StableMint,
			TargetMint:        p.TargetMint,
			ProfitabilityRank: p.Rank,
			Enabled:           p.Enabled,
			Risk: types.PairRiskConfig{
				SlippageBps: p.SlippageBps,
			},
		}
		if pair.Risk.SlippageBps == 0 {
			pair.Risk.SlippageBps = c.DefaultSlippageBps
		}
		if p.MaxTradeSOL != "" {
			v, err := solana.ParseSOL(p.MaxTradeSOL)
			if err != nil {
				return nil, fmt.Errorf("pair %s max_trade_sol: %w", p.ID, err)
			}
			pair.Risk.MaxTradeLamports = v
		}
		if p.MinWalletSOL != "" {
			v, err := solana.ParseSOL(p.MinWalletSOL)
			if err != nil {
				return nil, fmt.Errorf("pair %s min_wallet_sol: %w", p.ID, err)
			}
			pair.Risk.MinWalletLamports = v
		}
		out = append(out, pair)
	}
	return out, nil
}

// Validate checks that required settings are present.
func (c *Config) Validate() error {
	if c.WalletPrivateKey == "" {
		return fmt.Errorf("WALLET_PRIVATE_KEY is required")
	}
	if c.SolanaRPCURL == "" {
		return fmt.Errorf("solana_rpc_url is required")
	}
	if len(c.Pairs) == 0 {
		return fmt.Errorf("at least one trading pair is required")
	}
	return nil
}
