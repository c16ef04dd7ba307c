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
	"xrplink.org/xrplink/xrp/stcodec"
	"xrplink.org/xrplink/xrp/wire"
)

// failAll marks every item of a batch result failed with the same
// diagnostic. Used when the outer transaction never validated, so no inner
// payment can have had any effect worth distinguishing.
func failAll(set *BatchPaymentSet, engineResult, errStr string) *BatchResult {
	res := &BatchResult{
		EngineResult: engineResult,
		Err:          errStr,
		Items:        make([]*BatchItemResult, len(set.Payments)),
	}
	for i, intent := range set.Payments {
		res.Items[i] = &BatchItemResult{
			Destination:  intent.Destination,
			EngineResult: engineResult,
			Err:          errStr,
		}
	}
	return res
}

// buildBatch constructs the outer Batch transaction for the set. The outer
// transaction carries sequence outerSeq, and the i-th inner payment carries
// outerSeq+1+i, contiguous in set order. Inner payments are fee-less and
// unsigned; authorization flows from the outer signature.
func buildBatch(account string, set *BatchPaymentSet, outerSeq uint32) (*wire.Batch, error) {
	modeFlag, err := set.Mode.Flag()
	if err != nil {
		return nil, err
	}
	inner := make([]wire.RawTransaction, 0, len(set.Payments))
	for i, intent := range set.Payments {
		pmt, err := buildPayment(account, intent)
		if err != nil {
			return nil, fmt.Errorf("payment %d: %w", i, err)
		}
		pmt.Sequence = outerSeq + 1 + uint32(i)
		pmt.Fee = "0"
		pmt.Flags = wire.TfInnerBatchTxn
		inner = append(inner, wire.RawTransaction{RawTransaction: pmt})
	}
	return &wire.Batch{
		TransactionType: wire.TxTypeBatch,
		Account:         account,
		Flags:           modeFlag,
		RawTransactions: inner,
		Sequence:        outerSeq,
	}, nil
}

// innerTxID computes the identifying hash of an inner batch payment, used
// to look up per-item outcomes after the outer transaction validates.
func innerTxID(pmt *wire.Payment) (string, error) {
	b, err := stcodec.Serialize(pmt)
	if err != nil {
		return "", err
	}
	return stcodec.TxID(b), nil
}

// ExecuteBatchPayments submits every payment of the set as one ledger-level
// Batch transaction under the set's execution mode, blocking until the
// outer transaction is validated or rejected. Per-item outcomes are
// reported in the result: a rejected outer transaction fails every item;
// a validated AllOrNothing batch succeeds every item; for Independent and
// UntilFailure the inner transactions' own metadata decides each item.
func (c *Core) ExecuteBatchPayments(ctx context.Context, set *BatchPaymentSet) *BatchResult {
	kp, err := c.keyPair()
	if err != nil {
		return failAll(set, "", resultErr(err))
	}
	if err := c.ensureConnected(ctx); err != nil {
		return failAll(set, "", resultErr(err))
	}
	if len(set.Payments) == 0 {
		return failAll(set, "", "empty batch")
	}

	seqLock := c.sequenceLock(kp.Address())
	seqLock.Lock()
	defer seqLock.Unlock()

	acct, err := c.accountInfo(ctx, kp.Address())
	if err != nil {
		return failAll(set, "", resultErr(err))
	}
	batch, err := buildBatch(kp.Address(), set, acct.Sequence)
	if err != nil {
		return failAll(set, "", resultErr(err))
	}

	fee, err := c.baseFee(ctx)
	if err != nil {
		return failAll(set, "", resultErr(err))
	}
	// The outer fee covers the container and its inner transactions.
	batch.Fee = strconv.FormatUint(fee*uint64(len(set.Payments)+2), 10)
	batch.LastLedgerSequence = c.lastLedgerSequence()

	signed, err := kp.SignTx(batch)
	if err != nil {
		return failAll(set, "", resultErr(err))
	}

	outcome, err := c.submitAndWait(ctx, signed)
	if err != nil {
		res := failAll(set, "", resultErr(err))
		res.TxHash = signed.Hash
		return res
	}
	if !outcome.validated || !wire.EngineSuccess(outcome.engineResult) {
		res := failAll(set, outcome.engineResult,
			fmt.Sprintf("batch rejected: %s", outcome.engineResult))
		res.TxHash = signed.Hash
		return res
	}

	res := &BatchResult{
		Success:      true,
		TxHash:       signed.Hash,
		EngineResult: outcome.engineResult,
		Items:        make([]*BatchItemResult, len(set.Payments)),
	}
	for i, rt := range batch.RawTransactions {
		res.Items[i] = c.innerOutcome(ctx, set, i, rt.RawTransaction)
	}

	c.recordTx(&db.TxRecord{
		Hash:         signed.Hash,
		Type:         wire.TxTypeBatch,
		Account:      kp.Address(),
		Destination:  fmt.Sprintf("%d recipients", len(set.Payments)),
		Amount:       set.Mode.String(),
		EngineResult: outcome.engineResult,
		Success:      true,
		Stamp:        time.Now(),
	})
	return res
}

// innerOutcome resolves the fate of one inner payment of a validated batch.
// AllOrNothing needs no lookup: validation of the outer transaction implies
// every inner succeeded. The other modes admit individual inner failures,
// so each inner transaction's own metadata is consulted.
func (c *Core) innerOutcome(ctx context.Context, set *BatchPaymentSet, i int, pmt *wire.Payment) *BatchItemResult {
	item := &BatchItemResult{Destination: pmt.Destination}

	hash, err := innerTxID(pmt)
	if err != nil {
		item.Err = resultErr(err)
		return item
	}
	item.TxHash = hash

	if set.Mode == wire.AllOrNothing {
		item.Success = true
		item.EngineResult = "tesSUCCESS"
		return item
	}

	var tx wire.TxData
	err = c.conn.Request(ctx, "tx", map[string]any{"transaction": hash}, &tx)
	if err != nil {
		if wire.IsNotFound(err) {
			// Not applied: a prior failure stopped the batch (UntilFailure)
			// or this inner was individually dropped.
			item.Err = "inner payment not applied"
			return item
		}
		item.Err = resultErr(err)
		return item
	}
	if tx.Meta != nil {
		item.EngineResult = tx.Meta.TransactionResult
	}
	if tx.Validated && wire.EngineSuccess(item.EngineResult) {
		item.Success = true
	} else if item.EngineResult != "" {
		item.Err = fmt.Sprintf("inner payment failed: %s", item.EngineResult)
	} else {
		item.Err = "inner payment not validated"
	}
	return item
}

// ValidateBalances checks, without submitting anything, that the signer's
// XRP balance covers the sum of the set's native payments plus an estimated
// fee of baseFee×(N+1).
func (c *Core) ValidateBalances(ctx context.Context, set *BatchPaymentSet) *BalanceCheck {
	kp, err := c.keyPair()
	if err != nil {
		return &BalanceCheck{Err: resultErr(err)}
	}
	if err := c.ensureConnected(ctx); err != nil {
		return &BalanceCheck{Err: resultErr(err)}
	}

	var totalDrops uint64
	for i, intent := range set.Payments {
		if !intent.Asset.IsNative() {
			continue
		}
		drops, err := xrp.ParseXRP(intent.Amount)
		if err != nil {
			return &BalanceCheck{Err: fmt.Sprintf("payment %d: invalid amount %q", i, intent.Amount)}
		}
		totalDrops += drops
	}

	fee, err := c.baseFee(ctx)
	if err != nil {
		return &BalanceCheck{Err: resultErr(err)}
	}
	required := totalDrops + fee*uint64(len(set.Payments)+1)

	acct, err := c.accountInfo(ctx, kp.Address())
	if err != nil {
		return &BalanceCheck{Err: resultErr(err)}
	}
	available, err := strconv.ParseUint(acct.Balance, 10, 64)
	if err != nil {
		return &BalanceCheck{Err: fmt.Sprintf("unparseable balance %q", acct.Balance)}
	}

	check := &BalanceCheck{
		RequiredDrops:  required,
		AvailableDrops: available,
	}
	if available < required {
		check.Err = fmt.Sprintf("insufficient balance: have %s XRP, need %s XRP",
			xrp.FormatXRP(available), xrp.FormatXRP(required))
		return check
	}
	check.Valid = true
	return check
}
