// This code is available on the terms of the project LICENSE.md file,
// also available online at https://blueoakcouncil.org/license/1.0.0.

package main

import (
	"fmt"
	"os"
	"path/filepath"
	"strings"
	"time"

	"github.com/decred/dcrd/dcrutil/v4"
	"github.com/jessevdk/go-flags"
	"xrplink.org/xrplink/xrp"
	"xrplink.org/xrplink/xrp/config"
)

const (
	configFilename  = "xrplink.conf"
	logFilename     = "xrplink.log"
	dbFilename      = "history.db"
	defaultLogLevel = "info"

	defaultMainnetURL = "wss://xrplcluster.com"
	defaultTestnetURL = "wss://s.altnet.rippletest.net:51233"
)

var defaultApplicationDirectory = dcrutil.AppDataDir("xrplink", false)

// Config is the application configuration, fillable from the CLI (go-flags
// tags) and from the ini config file (ini tags). CLI values win.
type Config struct {
	AppData    string `long:"appdata" ini:"appdata" description:"Path to application directory."`
	ConfigPath string `long:"config" description:"Path to an INI configuration file."`

	URL        string `long:"url" ini:"url" description:"Websocket URL of the ledger server."`
	Cert       string `long:"cert" ini:"cert" description:"Path to the server's TLS certificate, if self-signed."`
	Testnet    bool   `long:"testnet" ini:"testnet" description:"Use the public testnet server when no URL is set."`
	Credential string `long:"credential" ini:"credential" description:"Signing credential: mnemonic, family seed, or hex secret."`

	DebugLevel string `long:"log" ini:"log" description:"Logging level {trace, debug, info, warn, error, critical}, or per-subsystem as COMMS=debug,CORE=trace."`
	LocalLogs  bool   `long:"loglocal" ini:"loglocal" description:"Use local time zone time stamps in log entries."`
	NoHistory  bool   `long:"nohistory" ini:"nohistory" description:"Disable the local transaction history db."`

	Timeout time.Duration `long:"timeout" ini:"timeout" description:"Submission wait timeout."`

	Memo        string  `long:"memo" ini:"-" description:"Free-text memo to attach to a payment."`
	Slippage    float64 `long:"slippage" ini:"-" default:"0.5" description:"Maximum slippage percent for swap quotes."`
	Condition   string  `long:"condition" ini:"-" description:"Hex crypto-condition for escrow create/finish."`
	Fulfillment string  `long:"fulfillment" ini:"-" description:"Hex fulfillment for escrow finish."`
	FinishAfter string  `long:"finishafter" ini:"-" description:"Escrow finish gate as a duration from now, e.g. 24h."`
	CancelAfter string  `long:"cancelafter" ini:"-" description:"Escrow cancel gate as a duration from now, e.g. 72h."`

	ShowVer bool `short:"V" long:"version" description:"Display version information and exit."`

	Args struct {
		Command string   `positional-arg-name:"command"`
		Rest    []string `positional-arg-name:"args"`
	} `positional-args:"true"`
}

// configure parses the CLI and the config file, CLI taking precedence, and
// resolves derived paths.
func configure() (*Config, error) {
	cfg := &Config{
		AppData:    defaultApplicationDirectory,
		DebugLevel: defaultLogLevel,
	}

	// A pre-parse determines the config file location.
	preCfg := *cfg
	preParser := flags.NewParser(&preCfg, flags.HelpFlag|flags.PassDoubleDash|flags.IgnoreUnknown)
	if _, err := preParser.Parse(); err != nil {
		if e, ok := err.(*flags.Error); ok && e.Type == flags.ErrHelp {
			preParser.WriteHelp(os.Stdout)
			os.Exit(0)
		}
		return nil, err
	}
	if preCfg.AppData != defaultApplicationDirectory {
		cfg.AppData = cleanAndExpandPath(preCfg.AppData)
	}
	configPath := preCfg.ConfigPath
	if configPath == "" {
		configPath = filepath.Join(cfg.AppData, configFilename)
	}

	// File values first, then the CLI over them.
	if fileExists(configPath) {
		if err := config.Parse(configPath, cfg); err != nil {
			return nil, fmt.Errorf("error parsing config file %s: %w", configPath, err)
		}
	}
	parser := flags.NewParser(cfg, flags.HelpFlag|flags.PassDoubleDash)
	if _, err := parser.Parse(); err != nil {
		if e, ok := err.(*flags.Error); ok && e.Type == flags.ErrHelp {
			parser.WriteHelp(os.Stdout)
			os.Exit(0)
		}
		return nil, err
	}

	if cfg.URL == "" {
		if cfg.Testnet {
			cfg.URL = defaultTestnetURL
		} else {
			cfg.URL = defaultMainnetURL
		}
	}
	return cfg, nil
}

func (cfg *Config) logPath() string {
	return filepath.Join(cfg.AppData, logFilename)
}

func (cfg *Config) dbPath() string {
	if cfg.NoHistory {
		return ""
	}
	return filepath.Join(cfg.AppData, dbFilename)
}

func fileExists(name string) bool {
	_, err := os.Stat(name)
	return !os.IsNotExist(err)
}

// cleanAndExpandPath expands environment variables and leading ~ in the
// passed path, cleans the result, and returns it.
func cleanAndExpandPath(path string) string {
	if path == "" {
		return ""
	}
	path = os.ExpandEnv(path)
	if !strings.HasPrefix(path, "~") {
		return filepath.Clean(path)
	}
	homeDir, err := os.UserHomeDir()
	if err != nil {
		return filepath.Clean(path)
	}
	return filepath.Clean(filepath.Join(homeDir, path[1:]))
}

// parseAsset decodes a CLI asset spec: "XRP", "USD" (known issuer), or
// "USD:rIssuer...".
func parseAsset(s string) (xrp.Asset, error) {
	currency, issuer, _ := strings.Cut(s, ":")
	return xrp.NewAsset(currency, issuer)
}
