// This code is available on the terms of the project LICENSE.md file,
// also available online at https://blueoakcouncil.org/license/1.0.0.

package main

import (
	"context"
	"fmt"
	"os"
	"os/signal"
	"path/filepath"
	"strconv"
	"strings"
	"syscall"
	"time"

	"github.com/jrick/logrotate/rotator"
	"xrplink.org/xrplink/client/core"
	"xrplink.org/xrplink/xrp"
	"xrplink.org/xrplink/xrp/wire"
)

const (
	appVersion  = "0.1.0"
	maxLogRolls = 16
)

var log = xrp.Disabled

// logWriter outputs to the rotating log file and stderr.
type logWriter struct {
	*rotator.Rotator
}

func (w logWriter) Write(p []byte) (n int, err error) {
	os.Stderr.Write(p)
	return w.Rotator.Write(p)
}

// initLogging sets up rotating file logging and hands subsystem loggers to
// the client packages.
func initLogging(logFilename, lvl string, utc bool) (func(), error) {
	if err := os.MkdirAll(filepath.Dir(logFilename), 0700); err != nil {
		return nil, fmt.Errorf("failed to create log directory: %w", err)
	}
	logRotator, err := rotator.New(logFilename, 32*1024, false, maxLogRolls)
	if err != nil {
		return nil, fmt.Errorf("failed to create file rotator: %w", err)
	}
	lm, err := xrp.NewLoggerMaker(logWriter{logRotator}, lvl, utc)
	if err != nil {
		logRotator.Close()
		return nil, fmt.Errorf("failed to create logger: %w", err)
	}
	log = lm.Logger("APP")
	core.UseLoggerMaker(lm)
	return func() { logRotator.Close() }, nil
}

func main() {
	if err := run(); err != nil {
		fmt.Fprintln(os.Stderr, err)
		os.Exit(1)
	}
}

func run() error {
	cfg, err := configure()
	if err != nil {
		return err
	}
	if cfg.ShowVer {
		fmt.Printf("xrplink version %s\n", appVersion)
		return nil
	}
	if cfg.Args.Command == "" {
		return fmt.Errorf("no command specified. commands: balance, send, batch, " +
			"escrow-create, escrow-finish, escrow-cancel, pool, quote, swap, history")
	}

	closeLogs, err := initLogging(cfg.logPath(), cfg.DebugLevel, !cfg.LocalLogs)
	if err != nil {
		return err
	}
	defer closeLogs()

	c, err := core.New(&core.Config{
		URL:           cfg.URL,
		Cert:          cfg.Cert,
		DBPath:        cfg.dbPath(),
		SubmitTimeout: cfg.Timeout,
	})
	if err != nil {
		return err
	}

	ctx, cancel := context.WithCancel(context.Background())
	defer cancel()
	killChan := make(chan os.Signal, 1)
	signal.Notify(killChan, os.Interrupt, syscall.SIGTERM)
	go func() {
		<-killChan
		log.Infof("shutting down...")
		cancel()
	}()

	coreDone := make(chan struct{})
	go func() {
		c.Run(ctx)
		close(coreDone)
	}()
	defer func() {
		cancel()
		<-coreDone
	}()

	if cfg.Credential != "" {
		if err := c.SetWallet(strings.TrimSpace(cfg.Credential)); err != nil {
			return fmt.Errorf("bad credential: %w", err)
		}
	}

	return dispatch(ctx, c, cfg)
}

func dispatch(ctx context.Context, c *core.Core, cfg *Config) error {
	args := cfg.Args.Rest
	need := func(n int, usage string) error {
		if len(args) < n {
			return fmt.Errorf("usage: xrplink %s %s", cfg.Args.Command, usage)
		}
		return nil
	}

	switch cfg.Args.Command {
	case "balance":
		account := c.WalletAddress()
		if len(args) > 0 {
			account = args[0]
		}
		if account == "" {
			return fmt.Errorf("no account: set a credential or pass an address")
		}
		bals, err := c.AccountBalances(ctx, account)
		if err != nil {
			return err
		}
		fmt.Printf("%s XRP\n", xrp.FormatXRP(bals.XRPDrops))
		for _, line := range bals.Lines {
			fmt.Printf("%s %s (issuer %s)\n", line.Balance, line.Currency, line.Account)
		}
		return nil

	case "send":
		if err := need(2, "<destination> <amount> [currency[:issuer]]"); err != nil {
			return err
		}
		asset := xrp.XRP
		if len(args) > 2 {
			var err error
			asset, err = parseAsset(args[2])
			if err != nil {
				return err
			}
		}
		res := c.SendTransfer(ctx, &core.PaymentIntent{
			Destination: args[0],
			Amount:      args[1],
			Asset:       asset,
			Memo:        cfg.Memo,
		})
		return printTxResult(res)

	case "batch":
		if err := need(2, "<independent|allornothing|untilfailure> <dest:amount> ..."); err != nil {
			return err
		}
		mode, err := wire.ParseBatchMode(args[0])
		if err != nil {
			return err
		}
		set := &core.BatchPaymentSet{Mode: mode}
		for _, spec := range args[1:] {
			dest, amount, ok := strings.Cut(spec, ":")
			if !ok {
				return fmt.Errorf("bad payment spec %q, want dest:amount", spec)
			}
			set.Payments = append(set.Payments, &core.PaymentIntent{
				Destination: dest,
				Amount:      amount,
				Asset:       xrp.XRP,
			})
		}
		if check := c.ValidateBalances(ctx, set); !check.Valid {
			return fmt.Errorf("pre-flight failed: %s", check.Err)
		}
		res := c.ExecuteBatchPayments(ctx, set)
		if res.TxHash != "" {
			fmt.Printf("batch tx %s (%s)\n", res.TxHash, res.EngineResult)
		}
		for i, item := range res.Items {
			status := "ok"
			if !item.Success {
				status = "failed: " + item.Err
			}
			fmt.Printf("  %d. %s -> %s\n", i+1, item.Destination, status)
		}
		if !res.Success {
			return fmt.Errorf("batch failed: %s", res.Err)
		}
		return nil

	case "escrow-create":
		if err := need(2, "<destination> <amount> [--finishafter 24h] [--cancelafter 72h] [--condition hex]"); err != nil {
			return err
		}
		ag := &core.EscrowAgreement{
			Destination: args[0],
			Amount:      args[1],
			Asset:       xrp.XRP,
			Condition:   cfg.Condition,
			Memo:        cfg.Memo,
		}
		if cfg.FinishAfter != "" {
			d, err := time.ParseDuration(cfg.FinishAfter)
			if err != nil {
				return fmt.Errorf("bad finishafter: %w", err)
			}
			ag.FinishAfter = time.Now().Add(d)
		}
		if cfg.CancelAfter != "" {
			d, err := time.ParseDuration(cfg.CancelAfter)
			if err != nil {
				return fmt.Errorf("bad cancelafter: %w", err)
			}
			ag.CancelAfter = time.Now().Add(d)
		}
		res := c.CreateEscrow(ctx, ag)
		if !res.Success {
			return fmt.Errorf("escrow create failed: %s", res.Err)
		}
		fmt.Printf("escrow created, tx %s, offer sequence %d\n", res.TxHash, res.OfferSequence)
		return nil

	case "escrow-finish":
		if err := need(2, "<owner> <offer-sequence> [--condition hex --fulfillment hex]"); err != nil {
			return err
		}
		seq, err := strconv.ParseUint(args[1], 10, 32)
		if err != nil {
			return fmt.Errorf("bad offer sequence %q", args[1])
		}
		res := c.FinishEscrow(ctx, args[0], uint32(seq), cfg.Condition, cfg.Fulfillment)
		if !res.Success {
			return fmt.Errorf("escrow finish failed: %s", res.Err)
		}
		fmt.Printf("escrow finished, tx %s\n", res.TxHash)
		return nil

	case "escrow-cancel":
		if err := need(2, "<owner> <offer-sequence>"); err != nil {
			return err
		}
		seq, err := strconv.ParseUint(args[1], 10, 32)
		if err != nil {
			return fmt.Errorf("bad offer sequence %q", args[1])
		}
		res := c.CancelEscrow(ctx, args[0], uint32(seq))
		if !res.Success {
			return fmt.Errorf("escrow cancel failed: %s", res.Err)
		}
		fmt.Printf("escrow cancelled, tx %s\n", res.TxHash)
		return nil

	case "pool":
		if err := need(2, "<asset> <asset2>"); err != nil {
			return err
		}
		pool, err := fetchPool(ctx, c, args[0], args[1])
		if err != nil {
			return err
		}
		fmt.Printf("pool %s\n  %v %s\n  %v %s\n  fee %v%%\n", pool.Account,
			pool.Reserve1, pool.Asset1, pool.Reserve2, pool.Asset2,
			pool.TradingFeeRate*100)
		return nil

	case "quote":
		if err := need(3, "<input-asset> <output-asset> <amount>"); err != nil {
			return err
		}
		quote, _, err := fetchQuote(ctx, c, cfg, args)
		if err != nil {
			return err
		}
		fmt.Printf("in: %v\nout: %v\nprice: %v\nimpact: %v%%\nfee: %v\nmin output (%v%% slippage): %v\n",
			quote.InputAmount, quote.OutputAmount, quote.EffectivePrice,
			quote.PriceImpactPercent, quote.FeeAmount, quote.MaxSlippagePercent,
			quote.MinimumOutput)
		return nil

	case "swap":
		if err := need(3, "<input-asset> <output-asset> <amount>"); err != nil {
			return err
		}
		quote, assets, err := fetchQuote(ctx, c, cfg, args)
		if err != nil {
			return err
		}
		res := c.ExecuteSwap(ctx, &core.SwapRequest{
			InputAsset:  assets[0],
			OutputAsset: assets[1],
			InputAmount: quote.InputAmount,
			MinOutput:   quote.MinimumOutput,
		})
		if !res.Success {
			return fmt.Errorf("swap failed: %s", res.Err)
		}
		delivered := ""
		if res.Delivered != nil {
			delivered = ", delivered " + res.Delivered.String()
		}
		fmt.Printf("swap executed, tx %s%s\n", res.TxHash, delivered)
		return nil

	case "history":
		account := c.WalletAddress()
		if account == "" {
			return fmt.Errorf("no credential set")
		}
		n := 20
		if len(args) > 0 {
			v, err := strconv.Atoi(args[0])
			if err != nil || v <= 0 {
				return fmt.Errorf("bad count %q", args[0])
			}
			n = v
		}
		recs, err := c.TxHistory(account, n)
		if err != nil {
			return err
		}
		for _, rec := range recs {
			fmt.Printf("%s  %-12s  %s  %s  %s\n", rec.Stamp.Format(time.RFC3339),
				rec.Type, rec.Hash, rec.Destination, rec.Amount)
		}
		return nil

	default:
		return fmt.Errorf("unknown command %q", cfg.Args.Command)
	}
}

func printTxResult(res *core.TxResult) error {
	if !res.Success {
		return fmt.Errorf("payment failed: %s", res.Err)
	}
	fmt.Printf("payment validated, tx %s\n", res.TxHash)
	if res.BalanceDrops > 0 {
		fmt.Printf("balance: %s XRP\n", xrp.FormatXRP(res.BalanceDrops))
	}
	return nil
}

func fetchPool(ctx context.Context, c *core.Core, spec1, spec2 string) (*core.PoolInfo, error) {
	asset1, err := parseAsset(spec1)
	if err != nil {
		return nil, err
	}
	asset2, err := parseAsset(spec2)
	if err != nil {
		return nil, err
	}
	pool, err := c.GetPoolInfo(ctx, asset1, asset2)
	if err != nil {
		return nil, err
	}
	if pool == nil {
		return nil, fmt.Errorf("no pool exists for %s/%s", asset1, asset2)
	}
	return pool, nil
}

func fetchQuote(ctx context.Context, c *core.Core, cfg *Config, args []string) (*core.SwapQuote, [2]xrp.Asset, error) {
	var assets [2]xrp.Asset
	pool, err := fetchPool(ctx, c, args[0], args[1])
	if err != nil {
		return nil, assets, err
	}
	inputAsset, err := parseAsset(args[0])
	if err != nil {
		return nil, assets, err
	}
	outputAsset, err := parseAsset(args[1])
	if err != nil {
		return nil, assets, err
	}
	amount, err := strconv.ParseFloat(args[2], 64)
	if err != nil {
		return nil, assets, fmt.Errorf("bad amount %q", args[2])
	}
	quote, err := c.CalculateSwapQuote(&core.SwapQuoteRequest{
		Pool:               pool,
		InputAsset:         inputAsset,
		InputAmount:        amount,
		MaxSlippagePercent: cfg.Slippage,
	})
	if err != nil {
		return nil, assets, err
	}
	assets[0], assets[1] = inputAsset, outputAsset
	return quote, assets, nil
}
