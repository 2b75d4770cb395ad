package config

import (
	"errors"
	"fmt"
	"os"
	"time"

	"github.com/creasty/defaults"
	"github.com/go-playground/validator/v10"
	"github.com/joho/godotenv"
	"gopkg.in/yaml.v3"
)

// Environment variables that override the chain section of the harness config.
const (
	EnvChainID  = "CHAIN_ID"
	EnvRPCURL   = "RPC_URL"
	EnvMnemonic = "MNEMONIC"
)

// HarnessConfig represents the scenario harness configuration
type HarnessConfig struct {
	Chain      ChainConfig      `yaml:"chain"`
	Contracts  ContractsConfig  `yaml:"contracts"`
	Scenario   ScenarioConfig   `yaml:"scenario"`
	Database   DatabaseConfig   `yaml:"database"`
	Monitoring MonitoringConfig `yaml:"monitoring"`
	Logging    LoggingConfig    `yaml:"logging"`
}

// ChainConfig contains chain client and wallet settings
type ChainConfig struct {
	ChainID      string `yaml:"chain_id" validate:"required"`
	RPCURL       string `yaml:"rpc_url" validate:"omitempty,url"`
	Mnemonic     string `yaml:"mnemonic" validate:"required"`
	Bech32Prefix string `yaml:"bech32_prefix" default:"secret" validate:"required"`
	CoinType     uint32 `yaml:"coin_type" default:"529"`
	JWTSecret    string `yaml:"jwt_secret"`

	// Simulate runs the scenario against an in-process simulated chain.
	Simulate bool `yaml:"simulate"`
	// DevResolve settles the contest through the gateway's dev_resolveContest method.
	// Only the devchain gateway serves it.
	DevResolve bool `yaml:"dev_resolve"`
}

// ContractsConfig contains the two contracts driven by the scenario
type ContractsConfig struct {
	Token   TokenContractConfig   `yaml:"token"`
	Contest ContestContractConfig `yaml:"contest"`
}

// ContractSource describes where a contract comes from: either bytecode to deploy,
// or an already running instance to attach to.
type ContractSource struct {
	CodePath string `yaml:"code_path"`
	Address  string `yaml:"address"`
	CodeHash string `yaml:"code_hash" validate:"required_with=Address"`
}

// Attached reports whether the source points at an existing instance.
func (s ContractSource) Attached() bool {
	return s.Address != "" && s.CodeHash != ""
}

// TokenContractConfig contains SNIP-20 token settings
type TokenContractConfig struct {
	ContractSource `yaml:",inline"`
	Name           string `yaml:"name" default:"USDC"`
	Symbol         string `yaml:"symbol" default:"USDC"`
	Decimals       uint8  `yaml:"decimals" default:"18"`
	PRNGSeed       string `yaml:"prng_seed" default:"VGhpcyBpcyBhIGJhc2UgNjQgZW5jb2RlZCBzdHJpbmcK"`
}

// ContestContractConfig contains contest contract settings
type ContestContractConfig struct {
	ContractSource `yaml:",inline"`
	OracleContract string `yaml:"oracle_contract" default:"ABCDEFGH"`
	// OraclePublicKey is the uncompressed hex key the contest verifies creations against.
	// It is replaced by the key of scenario.oracle_key when that is set.
	OraclePublicKey string `yaml:"oracle_public_key" default:"04eec6a876668ffb7031f9b9ade7c0c4bc47681ac27fec532bfd5c94fb3dd71d675a363d7036ba8d831a499b12e4f04c8741b90e3c4f3c6b64dd1104132d49498c" validate:"omitempty,hexadecimal"`
}

// ScenarioConfig contains the amounts and contest terms used by the scenario
type ScenarioConfig struct {
	MintAmount     string            `yaml:"mint_amount" default:"10000000000" validate:"numeric"`
	CreationAmount string            `yaml:"creation_amount" default:"1000" validate:"numeric"`
	BetAmount      string            `yaml:"bet_amount" default:"1000" validate:"numeric"`
	Contest        ContestInfoConfig `yaml:"contest"`
	OutcomeID      uint8             `yaml:"outcome_id"`
	BetOutcomeID   uint8             `yaml:"bet_outcome_id"`

	// ResolveOutcomeID is the result set through the chain's resolver, when it has one.
	// Outcome 0 voids the contest and refunds every bet.
	ResolveOutcomeID uint8 `yaml:"resolve_outcome_id"`

	// SignatureHex is a precomputed oracle signature over the contest info.
	// When empty, OracleKey signs the contest info at runtime.
	SignatureHex string `yaml:"signature_hex" validate:"omitempty,hexadecimal"`
	OracleKey    string `yaml:"oracle_key" validate:"omitempty,hexadecimal"`

	// ReuseDeployments attaches to contracts recorded by a previous run instead of deploying.
	ReuseDeployments bool `yaml:"reuse_deployments"`
}

// ContestInfoConfig holds the terms of the contest created by the scenario
type ContestInfoConfig struct {
	ID            uint32          `yaml:"id" default:"1"`
	Options       []OutcomeConfig `yaml:"options" validate:"omitempty,min=2,dive"`
	TimeOfClose   uint64          `yaml:"time_of_close"`
	TimeOfResolve uint64          `yaml:"time_of_resolve" validate:"omitempty,gtefield=TimeOfClose"`
	EventDetails  string          `yaml:"event_details" default:"NFL game 1"`
}

// OutcomeConfig is a single outcome a bettor can choose
type OutcomeConfig struct {
	ID   uint8  `yaml:"id"`
	Name string `yaml:"name" validate:"required"`
}

// DatabaseConfig contains database connection settings
type DatabaseConfig struct {
	Enabled  bool   `yaml:"enabled"`
	Host     string `yaml:"host" default:"localhost" validate:"required_if=Enabled true"`
	Port     int    `yaml:"port" default:"5432"`
	User     string `yaml:"user"`
	Password string `yaml:"password"`
	Database string `yaml:"database" default:"contest_harness"`
	SSLMode  string `yaml:"ssl_mode" default:"disable"`
}

// MonitoringConfig contains monitoring and metrics settings
type MonitoringConfig struct {
	Enabled     bool `yaml:"enabled"`
	MetricsPort int  `yaml:"metrics_port" default:"9090"`
}

// LoggingConfig contains logging settings
type LoggingConfig struct {
	Level      string `yaml:"level" default:"info"`
	Format     string `yaml:"format" default:"console" validate:"oneof=json console"`
	OutputPath string `yaml:"output_path" default:"stdout"`
}

// =============================================================================
// DEVCHAIN CONFIG
// =============================================================================

// DevchainConfig represents the simulated chain gateway configuration
type DevchainConfig struct {
	Server       ServerConfig     `yaml:"server"`
	ChainID      string           `yaml:"chain_id" default:"secretdev-1" validate:"required"`
	Bech32Prefix string           `yaml:"bech32_prefix" default:"secret" validate:"required"`
	JWTSecret    string           `yaml:"jwt_secret"`
	StartTime    uint64           `yaml:"start_time"`
	Programs     []ProgramBinding `yaml:"programs" validate:"dive"`
	Monitoring   MonitoringConfig `yaml:"monitoring"`
	Logging      LoggingConfig    `yaml:"logging"`
	Shutdown     ShutdownConfig   `yaml:"shutdown"`
}

// ServerConfig contains HTTP server settings
type ServerConfig struct {
	Host string `yaml:"host" default:"0.0.0.0"`
	Port int    `yaml:"port" default:"26657" validate:"min=1,max=65535"`
}

// ProgramBinding maps a bytecode file to the simulated program that executes it
type ProgramBinding struct {
	CodePath string `yaml:"code_path" validate:"required"`
	Program  string `yaml:"program" validate:"required,oneof=snip20 contest"`
}

// ShutdownConfig contains graceful shutdown settings
type ShutdownConfig struct {
	Timeout time.Duration `yaml:"timeout" default:"30s"`
}

// LoadEnv loads .env style files into the process environment.
// Missing files are ignored, other errors are returned.
func LoadEnv(files ...string) error {
	for _, f := range files {
		if f == "" {
			continue
		}
		if _, err := os.Stat(f); errors.Is(err, os.ErrNotExist) {
			continue
		}
		if err := godotenv.Load(f); err != nil {
			return fmt.Errorf("failed to load env file %s: %w", f, err)
		}
	}
	return nil
}

// LoadHarness loads harness configuration from file and environment variables.
// An empty configPath uses defaults and the environment only.
func LoadHarness(configPath string) (*HarnessConfig, error) {
	var cfg HarnessConfig
	if err := read(configPath, &cfg); err != nil {
		return nil, err
	}

	applyChainEnv(&cfg.Chain)
	setScenarioDefaults(&cfg.Scenario)

	if err := validateHarness(&cfg); err != nil {
		return nil, fmt.Errorf("config validation failed: %w", err)
	}
	return &cfg, nil
}

// LoadDevchain loads devchain configuration from file
func LoadDevchain(configPath string) (*DevchainConfig, error) {
	var cfg DevchainConfig
	if err := read(configPath, &cfg); err != nil {
		return nil, err
	}
	if err := validator.New().Struct(&cfg); err != nil {
		return nil, fmt.Errorf("config validation failed: %w", err)
	}
	return &cfg, nil
}

func read(configPath string, cfg any) error {
	if err := defaults.Set(cfg); err != nil {
		return fmt.Errorf("failed to set config defaults: %w", err)
	}
	if configPath == "" {
		return nil
	}

	b, err := os.ReadFile(configPath)
	if err != nil {
		return fmt.Errorf("failed to read config file: %w", err)
	}
	if err := yaml.Unmarshal(b, cfg); err != nil {
		return fmt.Errorf("failed to unmarshal config: %w", err)
	}
	return nil
}

func applyChainEnv(c *ChainConfig) {
	if v := os.Getenv(EnvChainID); v != "" {
		c.ChainID = v
	}
	if v := os.Getenv(EnvRPCURL); v != "" {
		c.RPCURL = v
	}
	if v := os.Getenv(EnvMnemonic); v != "" {
		c.Mnemonic = v
	}
}

func setScenarioDefaults(s *ScenarioConfig) {
	if len(s.Contest.Options) == 0 {
		s.Contest.Options = []OutcomeConfig{
			{ID: 0, Name: "Arizona Cardinals"},
			{ID: 1, Name: "Atlanta Falcons"},
		}
	}
	if s.Contest.TimeOfClose == 0 {
		s.Contest.TimeOfClose = 1384759
	}
	if s.Contest.TimeOfResolve == 0 {
		s.Contest.TimeOfResolve = 1385509
	}
}

func validateHarness(cfg *HarnessConfig) error {
	if err := validator.New().Struct(cfg); err != nil {
		return err
	}
	if cfg.Chain.RPCURL == "" && !cfg.Chain.Simulate {
		return fmt.Errorf("chain.rpc_url is required unless chain.simulate is set")
	}
	if cfg.Contracts.Token.CodePath == "" && !cfg.Contracts.Token.Attached() {
		return fmt.Errorf("contracts.token requires code_path or address and code_hash")
	}
	if cfg.Contracts.Contest.CodePath == "" && !cfg.Contracts.Contest.Attached() {
		return fmt.Errorf("contracts.contest requires code_path or address and code_hash")
	}
	if cfg.Scenario.SignatureHex == "" && cfg.Scenario.OracleKey == "" && !cfg.Chain.Simulate {
		return fmt.Errorf("scenario.signature_hex or scenario.oracle_key is required")
	}
	return nil
}

// Address returns the metrics listen address
func (m MonitoringConfig) Address() string {
	return fmt.Sprintf(":%d", m.MetricsPort)
}

// Address returns the HTTP listen address
func (s ServerConfig) Address() string {
	return fmt.Sprintf("%s:%d", s.Host, s.Port)
}
