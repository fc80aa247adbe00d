package daemon

import (
	"fmt"
	"os"
	"path/filepath"
	"time"

	flags "github.com/jessevdk/go-flags"
)

const (
	defaultDataDirname    = "data"
	defaultLogDirname     = "logs"
	defaultLogFilename    = "swapd.log"
	defaultConfigFile     = "swapd.conf"
	defaultDebugLevel     = "info"
	defaultMaxLogFiles    = 3
	defaultMaxLogFileSize = 10
	defaultHTTPListen     = "localhost:8080"
	defaultRPCTimeout     = 10 * time.Second
)

// BitcoinConfig is the connector configuration for one Bitcoin-family
// ledger kind (connector contract, reduced to what a single RPC
// backend needs to be reached).
type BitcoinConfig struct {
	Network string `long:"network" description:"bitcoin/testnet/regtest"`
	RPCHost string `long:"rpchost" description:"btcd/bitcoind RPC host:port"`
	RPCUser string `long:"rpcuser"`
	RPCPass string `long:"rpcpass"`
	RPCCert string `long:"rpccert" description:"path to the RPC server's TLS certificate, if any"`
}

// EthereumConfig is the connector configuration for one Ethereum-family
// ledger kind.
type EthereumConfig struct {
	ChainID uint64 `long:"chainid"`
	RPCURL  string `long:"rpcurl" description:"JSON-RPC endpoint, e.g. an Infura/Alchemy URL or local geth"`
}

// Config is the top-level swapd configuration, loaded from a config file
// and overridden by command-line flags (redesign recommendation
// to make every ledger-specific endpoint and poll interval configurable
// rather than hardcoded).
//
// Grounded on cmd/lnd/main.go's flags.Error/ErrHelp handling and
// daemon/lnd.go's config field access (cfg.DataDir, cfg.Profile,
// cfg.CPUProfile). Library: jessevdk/go-flags.
type Config struct {
	ConfigFile string `long:"configfile" description:"path to configuration file"`
	DataDir    string `long:"datadir" description:"directory to store swapd's state"`
	LogDir     string `long:"logdir" description:"directory to log output"`
	DebugLevel string `long:"debuglevel" description:"logging level: trace, debug, info, warn, error, critical"`

	MaxLogFiles    int `long:"maxlogfiles" description:"maximum log files to keep"`
	MaxLogFileSize int `long:"maxlogfilesize" description:"maximum log file size in MB"`

	Profile    string `long:"profile" description:"enable HTTP profiling on this port"`
	CPUProfile string `long:"cpuprofile" description:"write CPU profile to this file"`

	HTTPListen string `long:"httplisten" description:"address the swap coordination HTTP surface listens on"`

	PeerListen string `long:"peerlisten" description:"address the swap peer wire protocol listens on"`

	Bitcoin  BitcoinConfig  `group:"Bitcoin" namespace:"bitcoin"`
	Ethereum EthereumConfig `group:"Ethereum" namespace:"ethereum"`
}

func defaultConfig() Config {
	return Config{
		ConfigFile:     defaultConfigFile,
		DebugLevel:     defaultDebugLevel,
		MaxLogFiles:    defaultMaxLogFiles,
		MaxLogFileSize: defaultMaxLogFileSize,
		HTTPListen:     defaultHTTPListen,
	}
}

// LoadConfig parses args, applying defaults and a config file if present,
// and validates the result. It also initializes the log rotator, matching
// daemon/lnd.go's loadConfig contract ("This function will also set up
// logging properly").
func LoadConfig(args []string) (*Config, error) {
	cfg := defaultConfig()

	preParser := flags.NewParser(&cfg, flags.Default)
	if _, err := preParser.ParseArgs(args); err != nil {
		if e, ok := err.(*flags.Error); ok && e.Type == flags.ErrHelp {
			return nil, err
		}
		return nil, fmt.Errorf("daemon: parse flags: %w", err)
	}

	if cfg.DataDir == "" {
		homeDir, err := os.UserHomeDir()
		if err != nil {
			return nil, fmt.Errorf("daemon: resolve home directory: %w", err)
		}
		cfg.DataDir = filepath.Join(homeDir, ".swapd", defaultDataDirname)
	}
	if cfg.LogDir == "" {
		cfg.LogDir = filepath.Join(cfg.DataDir, defaultLogDirname)
	}

	if err := os.MkdirAll(cfg.DataDir, 0700); err != nil {
		return nil, fmt.Errorf("daemon: create data directory: %w", err)
	}

	logFile := filepath.Join(cfg.LogDir, defaultLogFilename)
	if err := initLogRotator(logFile, cfg.MaxLogFileSize, cfg.MaxLogFiles); err != nil {
		return nil, err
	}
	setLogLevels(cfg.DebugLevel)

	if err := cfg.validate(); err != nil {
		return nil, err
	}

	return &cfg, nil
}

func (c *Config) validate() error {
	if c.Bitcoin.RPCHost == "" {
		return fmt.Errorf("daemon: bitcoin.rpchost is required")
	}
	if c.Ethereum.RPCURL == "" {
		return fmt.Errorf("daemon: ethereum.rpcurl is required")
	}
	if c.Ethereum.ChainID == 0 {
		return fmt.Errorf("daemon: ethereum.chainid is required")
	}
	return nil
}
