// This code is available on the terms of the project LICENSE.md file,
// also available online at https://blueoakcouncil.org/license/1.0.0.

package core

import (
	"context"
	"fmt"
	"math"
	"strconv"
	"strings"
	"time"

	"xrplink.org/xrplink/client/db"
	"xrplink.org/xrplink/xrp"
	"xrplink.org/xrplink/xrp/wire"
)

// GetPoolInfo fetches the AMM pool for the asset pair. A pair with no pool
// returns (nil, nil): absent liquidity is a valid state, not an error.
func (c *Core) GetPoolInfo(ctx context.Context, asset1, asset2 xrp.Asset) (*PoolInfo, error) {
	if err := c.ensureConnected(ctx); err != nil {
		return nil, err
	}

	var res wire.AMMInfoResult
	err := c.conn.Request(ctx, "amm_info", map[string]any{
		"asset":  wire.AssetParam(asset1),
		"asset2": wire.AssetParam(asset2),
	}, &res)
	if err != nil {
		if wire.IsNotFound(err) {
			return nil, nil
		}
		return nil, err
	}

	reserve1, err := res.AMM.Amount.Float()
	if err != nil {
		return nil, fmt.Errorf("unparseable pool reserve: %w", err)
	}
	reserve2, err := res.AMM.Amount2.Float()
	if err != nil {
		return nil, fmt.Errorf("unparseable pool reserve: %w", err)
	}

	return &PoolInfo{
		Account:  res.AMM.Account,
		Asset1:   res.AMM.Amount.Asset(),
		Asset2:   res.AMM.Amount2.Asset(),
		Reserve1: reserve1,
		Reserve2: reserve2,
		// trading_fee is in units of 1/100000.
		TradingFeeRate: float64(res.AMM.TradingFee) / 100_000,
	}, nil
}

// CalculateSwapQuote computes a constant-product quote against the pool
// snapshot in the request. Pure: identical inputs give identical outputs,
// and no state is read or written. Errors rather than dividing by zero when
// the request has no pool or the pool is empty.
func (c *Core) CalculateSwapQuote(req *SwapQuoteRequest) (*SwapQuote, error) {
	pool := req.Pool
	if pool == nil {
		return nil, xrp.NewError(ErrNoPool, "no pool in quote request")
	}
	if pool.Reserve1 <= 0 || pool.Reserve2 <= 0 {
		return nil, xrp.NewError(ErrNoPool, "pool has no liquidity")
	}
	if req.InputAmount <= 0 {
		return nil, fmt.Errorf("input amount must be positive, got %v", req.InputAmount)
	}

	reserveIn, reserveOut := pool.Reserve1, pool.Reserve2
	switch req.InputAsset {
	case pool.Asset1:
	case pool.Asset2:
		reserveIn, reserveOut = pool.Reserve2, pool.Reserve1
	default:
		return nil, fmt.Errorf("asset %s is not in the pool", req.InputAsset)
	}

	inputAfterFee := req.InputAmount * (1 - pool.TradingFeeRate)
	k := reserveIn * reserveOut
	newReserveIn := reserveIn + inputAfterFee
	newReserveOut := k / newReserveIn
	outputAmount := reserveOut - newReserveOut

	priceImpact := ((newReserveIn / newReserveOut) / (reserveIn / reserveOut) - 1) * 100

	quote := &SwapQuote{
		InputAmount:        req.InputAmount,
		OutputAmount:       outputAmount,
		EffectivePrice:     req.InputAmount / outputAmount,
		PriceImpactPercent: priceImpact,
		FeeAmount:          req.InputAmount * pool.TradingFeeRate,
		MaxSlippagePercent: req.MaxSlippagePercent,
		MinimumOutput:      outputAmount * (1 - req.MaxSlippagePercent/100),
	}
	return quote, nil
}

// swapAmount shapes a whole-unit amount of an asset for the wire, flooring
// native amounts to drops.
func swapAmount(asset xrp.Asset, v float64) (wire.Amount, error) {
	if v <= 0 || math.IsNaN(v) || math.IsInf(v, 0) {
		return wire.Amount{}, fmt.Errorf("invalid swap amount %v", v)
	}
	if asset.IsNative() {
		return wire.XRPAmount(uint64(math.Floor(v * xrp.DropsPerXRP))), nil
	}
	return wire.AssetAmount(asset, issuedValueString(v))
}

// issuedValueString renders v as a plain decimal string with at most 15
// significant digits. The ledger's issued-amount encoding caps values at 16
// significant digits, while a float64's shortest round-trip form can carry
// 17, so quote-derived outputs must be rounded before hitting the wire.
func issuedValueString(v float64) string {
	mant := strconv.FormatFloat(v, 'e', 14, 64)
	numPart, expPart, _ := strings.Cut(mant, "e")
	exp, _ := strconv.Atoi(expPart)
	neg := strings.HasPrefix(numPart, "-")
	numPart = strings.TrimPrefix(numPart, "-")
	digits := strings.TrimRight(strings.Replace(numPart, ".", "", 1), "0")
	if digits == "" {
		return "0"
	}
	var b strings.Builder
	if neg {
		b.WriteByte('-')
	}
	// exp is the decimal exponent of the leading digit.
	switch {
	case exp >= len(digits)-1:
		b.WriteString(digits)
		b.WriteString(strings.Repeat("0", exp-len(digits)+1))
	case exp >= 0:
		b.WriteString(digits[:exp+1])
		b.WriteByte('.')
		b.WriteString(digits[exp+1:])
	default:
		b.WriteString("0.")
		b.WriteString(strings.Repeat("0", -exp-1))
		b.WriteString(digits)
	}
	return b.String()
}

// ExecuteSwap submits a path-based swap: a Payment to self with Amount set
// to the requested output, SendMax capping the input, and partial payment
// allowed down to DeliverMin. Path discovery and AMM execution are the
// ledger's job. The issuer of any issued asset involved is checked for
// existence first, a cheap pre-flight that avoids burning a fee on a
// doomed swap.
func (c *Core) ExecuteSwap(ctx context.Context, req *SwapRequest) *SwapResult {
	kp, err := c.keyPair()
	if err != nil {
		return &SwapResult{Err: resultErr(err)}
	}
	if err := c.ensureConnected(ctx); err != nil {
		return &SwapResult{Err: resultErr(err)}
	}

	for _, asset := range []xrp.Asset{req.InputAsset, req.OutputAsset} {
		if asset.IsNative() {
			continue
		}
		if _, err := c.accountInfo(ctx, asset.Issuer); err != nil {
			if wire.IsNotFound(err) {
				return &SwapResult{Err: fmt.Sprintf("issuer %s does not exist on the ledger", asset.Issuer)}
			}
			return &SwapResult{Err: resultErr(err)}
		}
	}

	sendMax, err := swapAmount(req.InputAsset, req.InputAmount)
	if err != nil {
		return &SwapResult{Err: resultErr(err)}
	}
	deliverMin, err := swapAmount(req.OutputAsset, req.MinOutput)
	if err != nil {
		return &SwapResult{Err: resultErr(err)}
	}

	pmt := &wire.Payment{
		TransactionType: wire.TxTypePayment,
		Account:         kp.Address(),
		Destination:     kp.Address(),
		Amount:          deliverMin,
		SendMax:         &sendMax,
		DeliverMin:      &deliverMin,
		Flags:           wire.TfPartialPayment,
	}

	seqLock := c.sequenceLock(kp.Address())
	seqLock.Lock()
	defer seqLock.Unlock()

	acct, err := c.accountInfo(ctx, kp.Address())
	if err != nil {
		return &SwapResult{Err: resultErr(err)}
	}
	fee, err := c.baseFee(ctx)
	if err != nil {
		return &SwapResult{Err: resultErr(err)}
	}
	pmt.Sequence = acct.Sequence
	pmt.Fee = strconv.FormatUint(fee, 10)
	pmt.LastLedgerSequence = c.lastLedgerSequence()

	signed, err := kp.SignTx(pmt)
	if err != nil {
		return &SwapResult{Err: resultErr(err)}
	}

	outcome, err := c.submitAndWait(ctx, signed)
	if err != nil {
		return &SwapResult{TxHash: signed.Hash, Err: resultErr(err)}
	}

	res := &SwapResult{
		TxHash:       signed.Hash,
		EngineResult: outcome.engineResult,
		Delivered:    outcome.delivered,
	}
	if !outcome.validated || !wire.EngineSuccess(outcome.engineResult) {
		res.Err = fmt.Sprintf("swap rejected: %s", outcome.engineResult)
		return res
	}
	res.Success = true

	delivered := deliverMin.String()
	if res.Delivered != nil {
		delivered = res.Delivered.String()
	}
	c.recordTx(&db.TxRecord{
		Hash:         signed.Hash,
		Type:         wire.TxTypePayment,
		Account:      kp.Address(),
		Destination:  kp.Address(),
		Amount:       delivered,
		EngineResult: outcome.engineResult,
		Success:      true,
		Stamp:        time.Now(),
	})
	return res
}
