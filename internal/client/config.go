package client

import (
	"fmt"
	"math/big"
	"net/url"
	"os"
	"path/filepath"
	"time"

	"github.com/ethereum/go-ethereum/common"
	"github.com/hashicorp/hcl/v2/gohcl"
	"github.com/hashicorp/hcl/v2/hclparse"
	"github.com/lox/chainpoker/internal/gate"
)

// Config represents the complete client configuration
type Config struct {
	Chain   ChainSettings
	Wallet  WalletSettings
	Table   TableSettings
	Session SessionSettings
	UI      UISettings
}

// fileConfig mirrors Config with every block optional.
type fileConfig struct {
	Chain   *ChainSettings   `hcl:"chain,block"`
	Wallet  *WalletSettings  `hcl:"wallet,block"`
	Table   *TableSettings   `hcl:"table,block"`
	Session *SessionSettings `hcl:"session,block"`
	UI      *UISettings      `hcl:"ui,block"`
}

// ChainSettings contains RPC and contract settings
type ChainSettings struct {
	RPCURL         string `hcl:"rpc_url,optional"`
	Contract       string `hcl:"contract,optional"`
	ChainID        int64  `hcl:"chain_id,optional"`
	ConfirmTimeout string `hcl:"confirm_timeout,optional"`
	PollInterval   string `hcl:"poll_interval,optional"`
	// HistoryFromBlock is the first block replayed when a table is opened,
	// usually the contract's deployment block.
	HistoryFromBlock int64 `hcl:"history_from_block,optional"`
}

// WalletSettings locates the signing key
type WalletSettings struct {
	KeyFile string `hcl:"key_file,optional"`
}

// TableSettings contains amounts in wei. They are strings because they
// routinely exceed int64.
type TableSettings struct {
	MinRaise     string `hcl:"min_raise,optional"`
	MaxRaise     string `hcl:"max_raise,optional"`
	SmallBlind   string `hcl:"small_blind,optional"`
	MinBuyIn     string `hcl:"min_buy_in,optional"`
	MaxBuyIn     string `hcl:"max_buy_in,optional"`
	DefaultBuyIn string `hcl:"default_buy_in,optional"`
}

// SessionSettings locates the persisted session
type SessionSettings struct {
	File string `hcl:"file,optional"`
}

// UISettings contains user interface settings
type UISettings struct {
	LogLevel string `hcl:"log_level,optional"`
	LogFile  string `hcl:"log_file,optional"`
	NoColor  bool   `hcl:"no_color,optional"`
}

// DefaultConfig returns default client configuration
func DefaultConfig() *Config {
	dir := defaultDir()
	return &Config{
		Chain: ChainSettings{
			RPCURL:         "ws://127.0.0.1:8545",
			ChainID:        31337,
			ConfirmTimeout: "2m",
			PollInterval:   "1s",
		},
		Wallet: WalletSettings{
			KeyFile: filepath.Join(dir, "key"),
		},
		Table: TableSettings{
			MinRaise:     "1",
			MaxRaise:     "1000000000000000000",
			SmallBlind:   "1000",
			MinBuyIn:     "100000",
			MaxBuyIn:     "1000000",
			DefaultBuyIn: "100000",
		},
		Session: SessionSettings{
			File: filepath.Join(dir, "session.json"),
		},
		UI: UISettings{
			LogLevel: "warn",
			LogFile:  "chainpoker.log",
		},
	}
}

func defaultDir() string {
	home, err := os.UserHomeDir()
	if err != nil {
		return ".chainpoker"
	}
	return filepath.Join(home, ".chainpoker")
}

// LoadConfig loads configuration from an HCL file. A missing file yields
// the defaults.
func LoadConfig(filename string) (*Config, error) {
	config := DefaultConfig()

	if _, err := os.Stat(filename); os.IsNotExist(err) {
		return config, nil
	}

	parser := hclparse.NewParser()
	file, diags := parser.ParseHCLFile(filename)
	if diags.HasErrors() {
		return nil, fmt.Errorf("failed to parse HCL file: %s", diags.Error())
	}

	var fc fileConfig
	diags = gohcl.DecodeBody(file.Body, nil, &fc)
	if diags.HasErrors() {
		return nil, fmt.Errorf("failed to decode HCL: %s", diags.Error())
	}

	config.merge(fc)
	return config, nil
}

// merge overlays the non-zero values from fc onto c.
func (c *Config) merge(fc fileConfig) {
	if ch := fc.Chain; ch != nil {
		setString(&c.Chain.RPCURL, ch.RPCURL)
		setString(&c.Chain.Contract, ch.Contract)
		setString(&c.Chain.ConfirmTimeout, ch.ConfirmTimeout)
		setString(&c.Chain.PollInterval, ch.PollInterval)
		if ch.ChainID != 0 {
			c.Chain.ChainID = ch.ChainID
		}
		if ch.HistoryFromBlock != 0 {
			c.Chain.HistoryFromBlock = ch.HistoryFromBlock
		}
	}
	if w := fc.Wallet; w != nil {
		setString(&c.Wallet.KeyFile, w.KeyFile)
	}
	if t := fc.Table; t != nil {
		setString(&c.Table.MinRaise, t.MinRaise)
		setString(&c.Table.MaxRaise, t.MaxRaise)
		setString(&c.Table.SmallBlind, t.SmallBlind)
		setString(&c.Table.MinBuyIn, t.MinBuyIn)
		setString(&c.Table.MaxBuyIn, t.MaxBuyIn)
		setString(&c.Table.DefaultBuyIn, t.DefaultBuyIn)
	}
	if s := fc.Session; s != nil {
		setString(&c.Session.File, s.File)
	}
	if ui := fc.UI; ui != nil {
		setString(&c.UI.LogLevel, ui.LogLevel)
		setString(&c.UI.LogFile, ui.LogFile)
		c.UI.NoColor = c.UI.NoColor || ui.NoColor
	}
}

func setString(dst *string, v string) {
	if v != "" {
		*dst = v
	}
}

// Validate validates the client configuration
func (c *Config) Validate() error {
	u, err := url.Parse(c.Chain.RPCURL)
	if err != nil || u.Host == "" {
		return fmt.Errorf("invalid rpc url: %q", c.Chain.RPCURL)
	}
	switch u.Scheme {
	case "ws", "wss", "http", "https":
	default:
		return fmt.Errorf("unsupported rpc url scheme: %q", u.Scheme)
	}

	if c.Chain.Contract == "" {
		return fmt.Errorf("contract address is required")
	}
	if !common.IsHexAddress(c.Chain.Contract) {
		return fmt.Errorf("invalid contract address: %q", c.Chain.Contract)
	}
	if c.Chain.ChainID <= 0 {
		return fmt.Errorf("chain id must be positive")
	}
	if c.Chain.HistoryFromBlock < 0 {
		return fmt.Errorf("history from block must not be negative")
	}

	for name, v := range map[string]string{
		"confirm timeout": c.Chain.ConfirmTimeout,
		"poll interval":   c.Chain.PollInterval,
	} {
		d, err := time.ParseDuration(v)
		if err != nil {
			return fmt.Errorf("invalid %s: %w", name, err)
		}
		if d <= 0 {
			return fmt.Errorf("%s must be positive", name)
		}
	}

	if c.Wallet.KeyFile == "" {
		return fmt.Errorf("wallet key file is required")
	}
	if c.Session.File == "" {
		return fmt.Errorf("session file is required")
	}

	for name, v := range map[string]string{
		"min raise":      c.Table.MinRaise,
		"max raise":      c.Table.MaxRaise,
		"small blind":    c.Table.SmallBlind,
		"min buy-in":     c.Table.MinBuyIn,
		"max buy-in":     c.Table.MaxBuyIn,
		"default buy-in": c.Table.DefaultBuyIn,
	} {
		if _, err := ParseAmount(v); err != nil {
			return fmt.Errorf("invalid %s: %w", name, err)
		}
	}
	if err := c.RaiseLimits().Validate(); err != nil {
		return err
	}
	if amount(c.Table.MinBuyIn).Cmp(amount(c.Table.MaxBuyIn)) > 0 {
		return fmt.Errorf("min buy-in %s exceeds max buy-in %s", c.Table.MinBuyIn, c.Table.MaxBuyIn)
	}

	validLogLevels := map[string]bool{
		"debug": true,
		"info":  true,
		"warn":  true,
		"error": true,
	}
	if !validLogLevels[c.UI.LogLevel] {
		return fmt.Errorf("invalid log level: %s", c.UI.LogLevel)
	}

	return nil
}

// ParseAmount parses a non-negative decimal wei amount.
func ParseAmount(s string) (*big.Int, error) {
	v, ok := new(big.Int).SetString(s, 10)
	if !ok {
		return nil, fmt.Errorf("%q is not a decimal amount", s)
	}
	if v.Sign() < 0 {
		return nil, fmt.Errorf("%q is negative", s)
	}
	return v, nil
}

// amount parses a value that Validate has already checked.
func amount(s string) *big.Int {
	v, err := ParseAmount(s)
	if err != nil {
		return nil
	}
	return v
}

// ContractAddress returns the configured contract address
func (c *Config) ContractAddress() common.Address {
	return common.HexToAddress(c.Chain.Contract)
}

// ChainID returns the configured chain id
func (c *Config) ChainID() *big.Int {
	return big.NewInt(c.Chain.ChainID)
}

// ConfirmTimeout returns how long to wait for a receipt
func (c *Config) ConfirmTimeout() time.Duration {
	d, _ := time.ParseDuration(c.Chain.ConfirmTimeout)
	return d
}

// PollInterval returns how often receipts are polled
func (c *Config) PollInterval() time.Duration {
	d, _ := time.ParseDuration(c.Chain.PollInterval)
	return d
}

// HistoryFrom returns the first block replayed for a table
func (c *Config) HistoryFrom() uint64 {
	return uint64(c.Chain.HistoryFromBlock)
}

// RaiseLimits returns the inclusive raise bounds
func (c *Config) RaiseLimits() gate.Limits {
	return gate.Limits{MinRaise: amount(c.Table.MinRaise), MaxRaise: amount(c.Table.MaxRaise)}
}

// GameTerms returns the small blind and buy-in bounds used to create games
func (c *Config) GameTerms() (smallBlind, minBuyIn, maxBuyIn *big.Int) {
	return amount(c.Table.SmallBlind), amount(c.Table.MinBuyIn), amount(c.Table.MaxBuyIn)
}

// DefaultBuyIn returns the buy-in used when none is given
func (c *Config) DefaultBuyIn() *big.Int {
	return amount(c.Table.DefaultBuyIn)
}
