// This code is available on the terms of the project LICENSE.md file,
// also available online at https://blueoakcouncil.org/license/1.0.0.

package core

import (
	"time"

	"xrplink.org/xrplink/xrp"
	"xrplink.org/xrplink/xrp/wire"
)

// Operation precondition and outcome error kinds. Public operations fold
// these into their structured results; internal helpers return them
// directly.
const (
	// ErrWalletNotSet means no signing identity has been installed with
	// SetWallet.
	ErrWalletNotSet = xrp.ErrorKind("wallet not set")
	// ErrNotConnected means the server connection could not be established
	// before the operation started. No transaction was built or submitted.
	ErrNotConnected = xrp.ErrorKind("not connected")
	// ErrTimedOut means a submitted transaction was neither validated nor
	// rejected before the submission timeout elapsed. Its final state is
	// unknown.
	ErrTimedOut = xrp.ErrorKind("submission timed out")
	// ErrValidation is a pre-flight failure detected locally, before any
	// transaction was submitted.
	ErrValidation = xrp.ErrorKind("validation error")
	// ErrNoPool means no AMM pool exists for the requested asset pair.
	ErrNoPool = xrp.ErrorKind("no AMM pool")
)

// PaymentIntent describes a single payment. Amount is a decimal string in
// whole units of the asset, XRP for the native asset.
type PaymentIntent struct {
	Destination    string
	Amount         string
	Asset          xrp.Asset
	Memo           string
	DestinationTag *uint32
}

// TxResult is the outcome of a single-transaction operation.
type TxResult struct {
	Success bool
	// TxHash is the transaction's identifying hash, set whenever the
	// transaction was submitted, including rejections and timeouts.
	TxHash string
	// EngineResult is the ledger's result code, e.g. tesSUCCESS or
	// tecUNFUNDED_PAYMENT.
	EngineResult string
	// Err is a diagnostic string, empty on success.
	Err string
	// BalanceDrops is the signer's XRP balance after a successful native
	// send, zero otherwise.
	BalanceDrops uint64
}

// BatchPaymentSet is an ordered set of payments executed as one ledger-level
// Batch transaction under a single execution mode.
type BatchPaymentSet struct {
	Payments []*PaymentIntent
	Mode     wire.BatchMode
}

// BatchItemResult is the outcome of one inner payment of a batch.
type BatchItemResult struct {
	Destination  string
	Success      bool
	TxHash       string
	EngineResult string
	Err          string
}

// BatchResult is the outcome of a batch submission. Success reflects the
// outer transaction; per-item outcomes are in Items.
type BatchResult struct {
	Success      bool
	TxHash       string
	EngineResult string
	Err          string
	Items        []*BatchItemResult
}

// BalanceCheck is the outcome of a pre-flight batch balance validation. No
// transaction is submitted.
type BalanceCheck struct {
	Valid          bool
	RequiredDrops  uint64
	AvailableDrops uint64
	Err            string
}

// EscrowAgreement describes an escrow to create. A zero FinishAfter or
// CancelAfter means the gate is not set. Condition is the hex-encoded
// crypto-condition the finisher must satisfy, empty for none.
type EscrowAgreement struct {
	Destination string
	Amount      string
	Asset       xrp.Asset
	Condition   string
	FinishAfter time.Time
	CancelAfter time.Time
	Memo        string
}

// EscrowResult is the outcome of an escrow operation. OfferSequence is the
// sequence number assigned to the EscrowCreate, required later to finish or
// cancel.
type EscrowResult struct {
	Success       bool
	TxHash        string
	OfferSequence uint32
	EngineResult  string
	Err           string
}

// PoolInfo is a snapshot of an AMM pool's reserves. Reserves are in whole
// units of each asset.
type PoolInfo struct {
	Account        string
	Asset1         xrp.Asset
	Asset2         xrp.Asset
	Reserve1       float64
	Reserve2       float64
	TradingFeeRate float64
}

// SwapQuoteRequest asks for a constant-product quote against a pool
// snapshot.
type SwapQuoteRequest struct {
	Pool               *PoolInfo
	InputAsset         xrp.Asset
	InputAmount        float64
	MaxSlippagePercent float64
}

// SwapQuote is a derived quote, valid as of the pool snapshot it was
// computed from.
type SwapQuote struct {
	InputAmount        float64
	OutputAmount       float64
	EffectivePrice     float64
	PriceImpactPercent float64
	FeeAmount          float64
	MaxSlippagePercent float64
	// MinimumOutput is OutputAmount reduced by the slippage allowance, the
	// DeliverMin floor for execution.
	MinimumOutput float64
}

// SwapRequest describes a swap to execute. MinOutput is the least
// acceptable delivery in whole units of the output asset, typically a
// quote's MinimumOutput.
type SwapRequest struct {
	InputAsset  xrp.Asset
	OutputAsset xrp.Asset
	InputAmount float64
	MinOutput   float64
}

// SwapResult is the outcome of a swap execution. Delivered is the actual
// delivered amount from transaction metadata, which may be less than the
// quoted output down to MinOutput.
type SwapResult struct {
	Success      bool
	TxHash       string
	Delivered    *wire.Amount
	EngineResult string
	Err          string
}
