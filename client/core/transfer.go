// This code is available on the terms of the project LICENSE.md file,
// also available online at https://blueoakcouncil.org/license/1.0.0.

package core

import (
	"context"
	"fmt"
	"strconv"
	"time"

	"xrplink.org/xrplink/client/db"
	"xrplink.org/xrplink/xrp"
	"xrplink.org/xrplink/xrp/wire"
)

// intentAmount shapes a PaymentIntent's amount for the wire: native amounts
// become integer drop strings, issued amounts keep their decimal value with
// the issuer defaulted from the known-issuer table when unset.
func intentAmount(intent *PaymentIntent) (wire.Amount, error) {
	if intent.Asset.IsNative() {
		drops, err := xrp.ParseXRP(intent.Amount)
		if err != nil {
			return wire.Amount{}, err
		}
		return wire.XRPAmount(drops), nil
	}
	asset, err := xrp.NewAsset(intent.Asset.Currency, intent.Asset.Issuer)
	if err != nil {
		return wire.Amount{}, err
	}
	return wire.AssetAmount(asset, intent.Amount)
}

// buildPayment constructs an unsigned Payment from an intent. Sequence, fee
// and expiry are left for the caller to fill.
func buildPayment(account string, intent *PaymentIntent) (*wire.Payment, error) {
	if !xrp.IsValidAddress(intent.Destination) {
		return nil, fmt.Errorf("invalid destination address %q", intent.Destination)
	}
	amt, err := intentAmount(intent)
	if err != nil {
		return nil, err
	}
	pmt := &wire.Payment{
		TransactionType: wire.TxTypePayment,
		Account:         account,
		Destination:     intent.Destination,
		Amount:          amt,
		DestinationTag:  intent.DestinationTag,
	}
	if intent.Memo != "" {
		pmt.Memos = []wire.MemoWrapper{wire.TextMemo(intent.Memo)}
	}
	return pmt, nil
}

// SendTransfer builds, signs and submits a single payment, blocking until
// the ledger validates or rejects it, or the submission times out.
func (c *Core) SendTransfer(ctx context.Context, intent *PaymentIntent) *TxResult {
	kp, err := c.keyPair()
	if err != nil {
		return &TxResult{Err: resultErr(err)}
	}
	if err := c.ensureConnected(ctx); err != nil {
		return &TxResult{Err: resultErr(err)}
	}

	pmt, err := buildPayment(kp.Address(), intent)
	if err != nil {
		return &TxResult{Err: resultErr(err)}
	}

	seqLock := c.sequenceLock(kp.Address())
	seqLock.Lock()
	defer seqLock.Unlock()

	acct, err := c.accountInfo(ctx, kp.Address())
	if err != nil {
		return &TxResult{Err: resultErr(err)}
	}
	fee, err := c.baseFee(ctx)
	if err != nil {
		return &TxResult{Err: resultErr(err)}
	}
	pmt.Sequence = acct.Sequence
	pmt.Fee = strconv.FormatUint(fee, 10)
	pmt.LastLedgerSequence = c.lastLedgerSequence()

	signed, err := kp.SignTx(pmt)
	if err != nil {
		return &TxResult{Err: resultErr(err)}
	}

	outcome, err := c.submitAndWait(ctx, signed)
	if err != nil {
		return &TxResult{TxHash: signed.Hash, Err: resultErr(err)}
	}

	res := &TxResult{
		TxHash:       signed.Hash,
		EngineResult: outcome.engineResult,
	}
	if !outcome.validated || !wire.EngineSuccess(outcome.engineResult) {
		res.Err = fmt.Sprintf("payment rejected: %s", outcome.engineResult)
		return res
	}
	res.Success = true

	c.recordTx(&db.TxRecord{
		Hash:         signed.Hash,
		Type:         wire.TxTypePayment,
		Account:      kp.Address(),
		Destination:  intent.Destination,
		Amount:       pmt.Amount.String(),
		EngineResult: outcome.engineResult,
		Success:      true,
		Stamp:        time.Now(),
	})

	// Refresh the signer's balance for the caller's display.
	if acct, err := c.accountInfo(ctx, kp.Address()); err == nil {
		if drops, err := strconv.ParseUint(acct.Balance, 10, 64); err == nil {
			res.BalanceDrops = drops
		}
	}
	return res
}

// Balances fetches the signer's XRP balance and issued-currency trust
// lines.
type Balances struct {
	XRPDrops uint64
	Lines    []wire.TrustLine
}

// AccountBalances fetches the XRP balance and trust lines for an account.
func (c *Core) AccountBalances(ctx context.Context, account string) (*Balances, error) {
	if err := c.ensureConnected(ctx); err != nil {
		return nil, err
	}
	acct, err := c.accountInfo(ctx, account)
	if err != nil {
		return nil, err
	}
	drops, err := strconv.ParseUint(acct.Balance, 10, 64)
	if err != nil {
		return nil, fmt.Errorf("unparseable balance %q: %w", acct.Balance, err)
	}
	var lines wire.AccountLinesResult
	err = c.conn.Request(ctx, "account_lines", map[string]any{
		"account":      account,
		"ledger_index": "validated",
	}, &lines)
	if err != nil {
		return nil, err
	}
	return &Balances{XRPDrops: drops, Lines: lines.Lines}, nil
}
