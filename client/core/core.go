// This code is available on the terms of the project LICENSE.md file,
// also available online at https://blueoakcouncil.org/license/1.0.0.

package core

import (
	"context"
	"errors"
	"fmt"
	"strconv"
	"sync"
	"time"

	"xrplink.org/xrplink/client/comms"
	"xrplink.org/xrplink/client/db"
	"xrplink.org/xrplink/client/wallet"
	"xrplink.org/xrplink/xrp"
	"xrplink.org/xrplink/xrp/wait"
	"xrplink.org/xrplink/xrp/wire"
)

const (
	// defaultSubmitTimeout bounds the wait for a submitted transaction to
	// be validated or rejected.
	defaultSubmitTimeout = time.Minute

	// txRecheckInterval is how often pending submissions are re-polled.
	txRecheckInterval = 2 * time.Second

	// ledgerBuffer is added to the last closed ledger index to form a
	// transaction's LastLedgerSequence expiry.
	ledgerBuffer = 20
)

// Gateway is the server connection consumed by Core. *comms.WsConn
// satisfies it.
type Gateway interface {
	Connect(ctx context.Context) error
	Disconnect()
	IsConnected() bool
	Request(ctx context.Context, cmd string, params map[string]any, result any) error
	LastLedgerSequence() uint32
}

// Config is the configuration for Core.
type Config struct {
	// URL is the websocket endpoint of the ledger server.
	URL string
	// Cert is an optional TLS root certificate file.
	Cert string
	// DBPath enables the local transaction history store when set.
	DBPath string
	// SubmitTimeout bounds submit-and-wait calls. Zero means the default
	// of one minute.
	SubmitTimeout time.Duration
	// Logger is the core logger.
	Logger xrp.Logger
}

// Core orchestrates payments, batches, escrows and AMM swaps against a
// single ledger server connection. One Core carries at most one signing
// identity at a time; use one Core per session.
type Core struct {
	cfg     *Config
	conn    Gateway
	waiters *wait.TickerQueue
	db      *db.DB

	ctxMtx sync.RWMutex
	ctx    context.Context

	walletMtx sync.RWMutex
	keys      *wallet.KeyPair

	// seqMtx guards the per-account locks that serialize the
	// fetch-sequence/build/sign/submit window.
	seqMtx   sync.Mutex
	seqLocks map[string]*sync.Mutex
}

// New constructs a Core. The connection is not established until Run.
func New(cfg *Config) (*Core, error) {
	if cfg.Logger != nil {
		UseLogger(cfg.Logger)
	}
	conn, err := comms.NewWsConn(&comms.WsCfg{
		URL:  cfg.URL,
		Cert: cfg.Cert,
	})
	if err != nil {
		return nil, fmt.Errorf("error creating server connection: %w", err)
	}
	c := &Core{
		cfg:      cfg,
		conn:     conn,
		waiters:  wait.NewTickerQueue(txRecheckInterval),
		seqLocks: make(map[string]*sync.Mutex),
	}
	if cfg.DBPath != "" {
		boltDB, err := db.Open(cfg.DBPath)
		if err != nil {
			return nil, fmt.Errorf("error opening history db: %w", err)
		}
		c.db = boltDB
	}
	return c, nil
}

// Run starts the Core, blocking until ctx is canceled. The initial
// connection attempt is made here; a failure is logged, not fatal, since
// the connection retries in the background and every operation checks
// connectivity first.
func (c *Core) Run(ctx context.Context) {
	c.ctxMtx.Lock()
	c.ctx = ctx
	c.ctxMtx.Unlock()

	var wg sync.WaitGroup
	wg.Add(1)
	go func() {
		defer wg.Done()
		c.waiters.Run(ctx)
	}()

	if err := c.conn.Connect(ctx); err != nil {
		log.Errorf("initial connection to %s failed: %v", c.cfg.URL, err)
	}

	<-ctx.Done()
	c.conn.Disconnect()
	wg.Wait()
	if c.db != nil {
		if err := c.db.Close(); err != nil {
			log.Errorf("error closing history db: %v", err)
		}
	}
	log.Infof("core shut down")
}

// IsConnected reports whether the server connection is established.
func (c *Core) IsConnected() bool {
	return c.conn.IsConnected()
}

// SetWallet parses the credential string, a mnemonic, family seed or raw
// hex secret, and installs the derived signing identity, replacing any
// previous one.
func (c *Core) SetWallet(credential string) error {
	cred, err := wallet.ParseCredential(credential)
	if err != nil {
		return err
	}
	keys, err := cred.KeyPair()
	if err != nil {
		return err
	}
	c.walletMtx.Lock()
	c.keys = keys
	c.walletMtx.Unlock()
	log.Infof("signing identity set to %s (%s)", keys.Address(), cred.Kind())
	return nil
}

// WalletAddress is the active signing identity's address, empty when no
// wallet is set.
func (c *Core) WalletAddress() string {
	c.walletMtx.RLock()
	defer c.walletMtx.RUnlock()
	if c.keys == nil {
		return ""
	}
	return c.keys.Address()
}

// keyPair returns the active signing identity.
func (c *Core) keyPair() (*wallet.KeyPair, error) {
	c.walletMtx.RLock()
	defer c.walletMtx.RUnlock()
	if c.keys == nil {
		return nil, ErrWalletNotSet
	}
	return c.keys, nil
}

// ensureConnected makes a single connection attempt if the connection is
// down. Operations abort with ErrNotConnected before building anything.
func (c *Core) ensureConnected(ctx context.Context) error {
	if c.conn.IsConnected() {
		return nil
	}
	if err := c.conn.Connect(ctx); err != nil {
		return xrp.NewError(ErrNotConnected, err.Error())
	}
	if !c.conn.IsConnected() {
		return ErrNotConnected
	}
	return nil
}

// sequenceLock returns the mutex serializing sequence acquisition for the
// account. Two operations signing from the same account cannot interleave
// their fetch-sequence/submit windows.
func (c *Core) sequenceLock(account string) *sync.Mutex {
	c.seqMtx.Lock()
	defer c.seqMtx.Unlock()
	mtx := c.seqLocks[account]
	if mtx == nil {
		mtx = new(sync.Mutex)
		c.seqLocks[account] = mtx
	}
	return mtx
}

// accountInfo fetches validated account data for the account.
func (c *Core) accountInfo(ctx context.Context, account string) (*wire.AccountData, error) {
	var res wire.AccountInfoResult
	err := c.conn.Request(ctx, "account_info", map[string]any{
		"account":      account,
		"ledger_index": "validated",
	}, &res)
	if err != nil {
		return nil, err
	}
	return &res.AccountData, nil
}

// baseFee fetches the server's current base transaction fee in drops.
func (c *Core) baseFee(ctx context.Context) (uint64, error) {
	var res wire.FeeResult
	if err := c.conn.Request(ctx, "fee", nil, &res); err != nil {
		return 0, err
	}
	fee, err := strconv.ParseUint(res.Drops.BaseFee, 10, 64)
	if err != nil {
		return 0, fmt.Errorf("unparseable base fee %q: %w", res.Drops.BaseFee, err)
	}
	return fee, nil
}

// lastLedgerSequence is the expiry ledger index for a transaction built
// now, zero when no ledger stream data is available yet.
func (c *Core) lastLedgerSequence() uint32 {
	idx := c.conn.LastLedgerSequence()
	if idx == 0 {
		return 0
	}
	return idx + ledgerBuffer
}

func (c *Core) submitTimeout() time.Duration {
	if c.cfg.SubmitTimeout > 0 {
		return c.cfg.SubmitTimeout
	}
	return defaultSubmitTimeout
}

// txOutcome is the resolved fate of a submitted transaction.
type txOutcome struct {
	validated    bool
	engineResult string
	delivered    *wire.Amount
}

// submitAndWait submits a signed transaction and blocks until it is
// validated by consensus, rejected outright, or the submission timeout
// elapses. A rejection returns the engine result in the outcome with a nil
// error; a timeout returns ErrTimedOut.
func (c *Core) submitAndWait(ctx context.Context, signed *wallet.SignedTx) (*txOutcome, error) {
	var sub wire.SubmitResult
	err := c.conn.Request(ctx, "submit", map[string]any{
		"tx_blob": signed.BlobHex(),
	}, &sub)
	if err != nil {
		return nil, err
	}

	if !wire.EngineSuccess(sub.EngineResult) && !wire.EngineQueued(sub.EngineResult) {
		// Rejected at submission. Terminal for this sequence number.
		log.Debugf("tx %s rejected at submission: %s", signed.Hash, sub.EngineResult)
		return &txOutcome{engineResult: sub.EngineResult}, nil
	}

	outcomeCh := make(chan *txOutcome, 1)
	c.waiters.Wait(&wait.Waiter{
		Expiration: time.Now().Add(c.submitTimeout()),
		TryFunc: func() wait.TryDirective {
			var tx wire.TxData
			err := c.conn.Request(ctx, "tx", map[string]any{
				"transaction": signed.Hash,
			}, &tx)
			if err != nil {
				if wire.IsNotFound(err) {
					return wait.TryAgain
				}
				log.Debugf("tx %s poll error: %v", signed.Hash, err)
				return wait.TryAgain
			}
			if !tx.Validated {
				return wait.TryAgain
			}
			outcome := &txOutcome{validated: true}
			if tx.Meta != nil {
				outcome.engineResult = tx.Meta.TransactionResult
				outcome.delivered = tx.Meta.DeliveredAmount
			}
			outcomeCh <- outcome
			return wait.DontTryAgain
		},
		ExpireFunc: func() {
			outcomeCh <- nil
		},
	})

	select {
	case outcome := <-outcomeCh:
		if outcome == nil {
			return nil, xrp.NewError(ErrTimedOut, signed.Hash)
		}
		return outcome, nil
	case <-ctx.Done():
		return nil, ctx.Err()
	}
}

// recordTx stores a transaction record in the local history db, when one
// is configured.
func (c *Core) recordTx(rec *db.TxRecord) {
	if c.db == nil {
		return
	}
	if err := c.db.StoreTx(rec); err != nil {
		log.Errorf("error recording tx %s: %v", rec.Hash, err)
	}
}

// TxHistory returns up to n most recent locally recorded transactions for
// the account, newest first.
func (c *Core) TxHistory(account string, n int) ([]*db.TxRecord, error) {
	if c.db == nil {
		return nil, errors.New("no history db configured")
	}
	return c.db.Txs(account, n)
}

// resultErr folds an internal error into the diagnostic string form used
// by structured results.
func resultErr(err error) string {
	if err == nil {
		return ""
	}
	return err.Error()
}
