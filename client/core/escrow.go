// This code is available on the terms of the project LICENSE.md file,
// also available online at https://blueoakcouncil.org/license/1.0.0.

package core

import (
	"context"
	"fmt"
	"strconv"
	"strings"
	"time"

	"xrplink.org/xrplink/client/db"
	"xrplink.org/xrplink/client/wallet"
	"xrplink.org/xrplink/xrp"
	"xrplink.org/xrplink/xrp/wire"
)

// buildEscrowCreate constructs an unsigned EscrowCreate from an agreement.
// Timestamps are converted to the ledger epoch. A finishAfter in the past
// is allowed; the ledger enforces time gates at finish and cancel time, not
// at creation. The relative ordering of the two gates, though, is checked
// here: an escrow with finishAfter at or past cancelAfter could never be
// finished.
func buildEscrowCreate(account string, ag *EscrowAgreement) (*wire.EscrowCreate, error) {
	if !xrp.IsValidAddress(ag.Destination) {
		return nil, fmt.Errorf("invalid destination address %q", ag.Destination)
	}
	if !ag.FinishAfter.IsZero() && !ag.CancelAfter.IsZero() && !ag.FinishAfter.Before(ag.CancelAfter) {
		return nil, fmt.Errorf("finishAfter %s must precede cancelAfter %s",
			ag.FinishAfter, ag.CancelAfter)
	}

	var amt wire.Amount
	var err error
	if ag.Asset.IsNative() {
		var drops uint64
		drops, err = xrp.ParseXRP(ag.Amount)
		if err == nil {
			amt = wire.XRPAmount(drops)
		}
	} else {
		amt, err = wire.AssetAmount(ag.Asset, ag.Amount)
	}
	if err != nil {
		return nil, err
	}

	esc := &wire.EscrowCreate{
		TransactionType: wire.TxTypeEscrowCreate,
		Account:         account,
		Destination:     ag.Destination,
		Amount:          amt,
		Condition:       strings.ToUpper(ag.Condition),
	}
	if !ag.FinishAfter.IsZero() {
		esc.FinishAfter = xrp.ToRippleTime(ag.FinishAfter)
	}
	if !ag.CancelAfter.IsZero() {
		esc.CancelAfter = xrp.ToRippleTime(ag.CancelAfter)
	}
	if ag.Memo != "" {
		esc.Memos = []wire.MemoWrapper{wire.TextMemo(ag.Memo)}
	}
	return esc, nil
}

// CreateEscrow locks funds for the agreement's destination behind its time
// and condition gates. The result's OfferSequence identifies the escrow for
// a later finish or cancel.
func (c *Core) CreateEscrow(ctx context.Context, ag *EscrowAgreement) *EscrowResult {
	kp, err := c.keyPair()
	if err != nil {
		return &EscrowResult{Err: resultErr(err)}
	}
	if err := c.ensureConnected(ctx); err != nil {
		return &EscrowResult{Err: resultErr(err)}
	}

	esc, err := buildEscrowCreate(kp.Address(), ag)
	if err != nil {
		return &EscrowResult{Err: resultErr(err)}
	}

	res := c.submitEscrowTx(ctx, kp, esc, func(seq uint32) uint32 { return seq })
	if res.Success {
		c.recordTx(&db.TxRecord{
			Hash:         res.TxHash,
			Type:         wire.TxTypeEscrowCreate,
			Account:      kp.Address(),
			Destination:  ag.Destination,
			Amount:       ag.Amount + " " + ag.Asset.Currency,
			EngineResult: res.EngineResult,
			Success:      true,
			Stamp:        time.Now(),
		})
	}
	return res
}

// FinishEscrow releases an escrow's funds to its destination. owner and
// offerSeq identify the escrow: the creator's address and the sequence
// number of its EscrowCreate. For a conditioned escrow, the original
// condition and its fulfillment must both be supplied.
func (c *Core) FinishEscrow(ctx context.Context, owner string, offerSeq uint32, condition, fulfillment string) *EscrowResult {
	kp, err := c.keyPair()
	if err != nil {
		return &EscrowResult{Err: resultErr(err)}
	}
	if err := c.ensureConnected(ctx); err != nil {
		return &EscrowResult{Err: resultErr(err)}
	}
	if !xrp.IsValidAddress(owner) {
		return &EscrowResult{Err: fmt.Sprintf("invalid owner address %q", owner)}
	}

	fin := &wire.EscrowFinish{
		TransactionType: wire.TxTypeEscrowFinish,
		Account:         kp.Address(),
		Owner:           owner,
		OfferSequence:   offerSeq,
		Condition:       strings.ToUpper(condition),
		Fulfillment:     strings.ToUpper(fulfillment),
	}
	res := c.submitEscrowTx(ctx, kp, fin, func(uint32) uint32 { return offerSeq })
	if res.Success {
		c.recordTx(&db.TxRecord{
			Hash:         res.TxHash,
			Type:         wire.TxTypeEscrowFinish,
			Account:      kp.Address(),
			Destination:  owner,
			Amount:       fmt.Sprintf("offer %d", offerSeq),
			EngineResult: res.EngineResult,
			Success:      true,
			Stamp:        time.Now(),
		})
	}
	return res
}

// CancelEscrow returns an escrow's funds to its creator. The ledger rejects
// the cancel before the escrow's cancelAfter has passed, or when the escrow
// was already finished.
func (c *Core) CancelEscrow(ctx context.Context, owner string, offerSeq uint32) *EscrowResult {
	kp, err := c.keyPair()
	if err != nil {
		return &EscrowResult{Err: resultErr(err)}
	}
	if err := c.ensureConnected(ctx); err != nil {
		return &EscrowResult{Err: resultErr(err)}
	}
	if !xrp.IsValidAddress(owner) {
		return &EscrowResult{Err: fmt.Sprintf("invalid owner address %q", owner)}
	}

	cancel := &wire.EscrowCancel{
		TransactionType: wire.TxTypeEscrowCancel,
		Account:         kp.Address(),
		Owner:           owner,
		OfferSequence:   offerSeq,
	}
	res := c.submitEscrowTx(ctx, kp, cancel, func(uint32) uint32 { return offerSeq })
	if res.Success {
		c.recordTx(&db.TxRecord{
			Hash:         res.TxHash,
			Type:         wire.TxTypeEscrowCancel,
			Account:      kp.Address(),
			Destination:  owner,
			Amount:       fmt.Sprintf("offer %d", offerSeq),
			EngineResult: res.EngineResult,
			Success:      true,
			Stamp:        time.Now(),
		})
	}
	return res
}

// finishFee computes the fee for an EscrowFinish, in drops. A conditional
// finish carrying a fulfillment pays base × (33 + ceil(fulfillmentBytes/16));
// anything less is rejected with telINSUF_FEE_P. fulfillment is hex.
func finishFee(base uint64, fulfillment string) uint64 {
	if fulfillment == "" {
		return base
	}
	fulBytes := uint64(len(fulfillment)) / 2
	return base * (33 + (fulBytes+15)/16)
}

// submitEscrowTx autofills, signs and submits an escrow transaction under
// the signer's sequence lock, mapping the outcome to an EscrowResult.
// offerSeq maps the transaction's own assigned sequence to the result's
// OfferSequence: the create's own sequence identifies the new escrow, while
// finish and cancel echo the target escrow's sequence.
func (c *Core) submitEscrowTx(ctx context.Context, kp *wallet.KeyPair, tx any, offerSeq func(seq uint32) uint32) *EscrowResult {
	seqLock := c.sequenceLock(kp.Address())
	seqLock.Lock()
	defer seqLock.Unlock()

	acct, err := c.accountInfo(ctx, kp.Address())
	if err != nil {
		return &EscrowResult{Err: resultErr(err)}
	}
	fee, err := c.baseFee(ctx)
	if err != nil {
		return &EscrowResult{Err: resultErr(err)}
	}
	feeStr := strconv.FormatUint(fee, 10)
	lls := c.lastLedgerSequence()

	switch esc := tx.(type) {
	case *wire.EscrowCreate:
		esc.Sequence, esc.Fee, esc.LastLedgerSequence = acct.Sequence, feeStr, lls
	case *wire.EscrowFinish:
		esc.Sequence, esc.LastLedgerSequence = acct.Sequence, lls
		esc.Fee = strconv.FormatUint(finishFee(fee, esc.Fulfillment), 10)
	case *wire.EscrowCancel:
		esc.Sequence, esc.Fee, esc.LastLedgerSequence = acct.Sequence, feeStr, lls
	default:
		return &EscrowResult{Err: fmt.Sprintf("unknown escrow tx type %T", tx)}
	}

	signed, err := kp.SignTx(tx)
	if err != nil {
		return &EscrowResult{Err: resultErr(err)}
	}

	outcome, err := c.submitAndWait(ctx, signed)
	if err != nil {
		return &EscrowResult{TxHash: signed.Hash, Err: resultErr(err)}
	}

	res := &EscrowResult{
		TxHash:        signed.Hash,
		OfferSequence: offerSeq(acct.Sequence),
		EngineResult:  outcome.engineResult,
	}
	if !outcome.validated || !wire.EngineSuccess(outcome.engineResult) {
		res.Err = fmt.Sprintf("escrow transaction rejected: %s", outcome.engineResult)
		return res
	}
	res.Success = true
	return res
}
