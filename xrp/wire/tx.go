// This code is available on the terms of the project LICENSE.md file,
// also available online at https://blueoakcouncil.org/license/1.0.0.

package wire

import "fmt"

// Transaction type names.
const (
	TxTypePayment      = "Payment"
	TxTypeEscrowCreate = "EscrowCreate"
	TxTypeEscrowFinish = "EscrowFinish"
	TxTypeEscrowCancel = "EscrowCancel"
	TxTypeBatch        = "Batch"
)

// Transaction flags. The Batch flag values are the XLS-56 assignments used by
// rippled; exactly one of the four execution-mode flags must be set on a
// Batch transaction.
const (
	// TfAllOrNothing commits the batch only if every inner transaction
	// succeeds.
	TfAllOrNothing uint32 = 0x00010000
	// TfOnlyOne applies inner transactions until the first success, then
	// stops.
	TfOnlyOne uint32 = 0x00020000
	// TfUntilFailure applies inner transactions in order until the first
	// failure; prior successes stay committed.
	TfUntilFailure uint32 = 0x00040000
	// TfIndependent applies every inner transaction regardless of individual
	// failures.
	TfIndependent uint32 = 0x00080000
	// TfInnerBatchTxn marks a transaction as an inner member of a Batch. Inner
	// transactions carry a zero fee and an empty signing key; authorization
	// comes from the outer signature.
	TfInnerBatchTxn uint32 = 0x40000000

	// TfPartialPayment allows a Payment to deliver less than Amount, down to
	// DeliverMin, which is how path-based AMM swaps are executed.
	TfPartialPayment uint32 = 0x00020000
)

// BatchMode selects the execution semantics of a Batch transaction.
type BatchMode uint8

const (
	// Independent: every inner payment is attempted; failures don't stop the
	// rest.
	Independent BatchMode = iota
	// AllOrNothing: the batch commits atomically or not at all.
	AllOrNothing
	// UntilFailure: inner payments execute in order, stopping at the first
	// failure.
	UntilFailure
)

// Flag returns the ledger flag bit for the mode.
func (m BatchMode) Flag() (uint32, error) {
	switch m {
	case Independent:
		return TfIndependent, nil
	case AllOrNothing:
		return TfAllOrNothing, nil
	case UntilFailure:
		return TfUntilFailure, nil
	}
	return 0, fmt.Errorf("unknown batch mode %d", m)
}

func (m BatchMode) String() string {
	switch m {
	case Independent:
		return "independent"
	case AllOrNothing:
		return "allornothing"
	case UntilFailure:
		return "untilfailure"
	}
	return fmt.Sprintf("batchmode(%d)", m)
}

// ParseBatchMode decodes a mode name as used in config files and the CLI.
func ParseBatchMode(s string) (BatchMode, error) {
	switch s {
	case "independent":
		return Independent, nil
	case "allornothing":
		return AllOrNothing, nil
	case "untilfailure":
		return UntilFailure, nil
	}
	return 0, fmt.Errorf("unknown batch mode %q", s)
}

// Payment is the Payment transaction shape. Field names are ledger-exact.
type Payment struct {
	TransactionType    string        `json:"TransactionType"`
	Account            string        `json:"Account"`
	Destination        string        `json:"Destination"`
	Amount             Amount        `json:"Amount"`
	SendMax            *Amount       `json:"SendMax,omitempty"`
	DeliverMin         *Amount       `json:"DeliverMin,omitempty"`
	Sequence           uint32        `json:"Sequence,omitempty"`
	Fee                string        `json:"Fee,omitempty"`
	Flags              uint32        `json:"Flags,omitempty"`
	LastLedgerSequence uint32        `json:"LastLedgerSequence,omitempty"`
	DestinationTag     *uint32       `json:"DestinationTag,omitempty"`
	Memos              []MemoWrapper `json:"Memos,omitempty"`
	SigningPubKey      string        `json:"SigningPubKey"`
	TxnSignature       string        `json:"TxnSignature,omitempty"`
}

// EscrowCreate locks funds until a time or crypto-condition gate is met.
type EscrowCreate struct {
	TransactionType    string        `json:"TransactionType"`
	Account            string        `json:"Account"`
	Destination        string        `json:"Destination"`
	Amount             Amount        `json:"Amount"`
	Condition          string        `json:"Condition,omitempty"`
	FinishAfter        uint32        `json:"FinishAfter,omitempty"`
	CancelAfter        uint32        `json:"CancelAfter,omitempty"`
	Sequence           uint32        `json:"Sequence,omitempty"`
	Fee                string        `json:"Fee,omitempty"`
	Flags              uint32        `json:"Flags,omitempty"`
	LastLedgerSequence uint32        `json:"LastLedgerSequence,omitempty"`
	DestinationTag     *uint32       `json:"DestinationTag,omitempty"`
	Memos              []MemoWrapper `json:"Memos,omitempty"`
	SigningPubKey      string        `json:"SigningPubKey"`
	TxnSignature       string        `json:"TxnSignature,omitempty"`
}

// EscrowFinish releases escrowed funds to the destination. OfferSequence is
// the sequence number the EscrowCreate was submitted with.
type EscrowFinish struct {
	TransactionType    string `json:"TransactionType"`
	Account            string `json:"Account"`
	Owner              string `json:"Owner"`
	OfferSequence      uint32 `json:"OfferSequence"`
	Condition          string `json:"Condition,omitempty"`
	Fulfillment        string `json:"Fulfillment,omitempty"`
	Sequence           uint32 `json:"Sequence,omitempty"`
	Fee                string `json:"Fee,omitempty"`
	Flags              uint32 `json:"Flags,omitempty"`
	LastLedgerSequence uint32 `json:"LastLedgerSequence,omitempty"`
	SigningPubKey      string `json:"SigningPubKey"`
	TxnSignature       string `json:"TxnSignature,omitempty"`
}

// EscrowCancel returns escrowed funds to the creator once CancelAfter has
// passed.
type EscrowCancel struct {
	TransactionType    string `json:"TransactionType"`
	Account            string `json:"Account"`
	Owner              string `json:"Owner"`
	OfferSequence      uint32 `json:"OfferSequence"`
	Sequence           uint32 `json:"Sequence,omitempty"`
	Fee                string `json:"Fee,omitempty"`
	Flags              uint32 `json:"Flags,omitempty"`
	LastLedgerSequence uint32 `json:"LastLedgerSequence,omitempty"`
	SigningPubKey      string `json:"SigningPubKey"`
	TxnSignature       string `json:"TxnSignature,omitempty"`
}

// RawTransaction wraps an inner Batch transaction.
type RawTransaction struct {
	RawTransaction *Payment `json:"RawTransaction"`
}

// Batch is the outer container transaction wrapping inner payments under one
// execution-mode policy. Only the outer transaction is signed.
type Batch struct {
	TransactionType    string           `json:"TransactionType"`
	Account            string           `json:"Account"`
	Flags              uint32           `json:"Flags"`
	RawTransactions    []RawTransaction `json:"RawTransactions"`
	Sequence           uint32           `json:"Sequence,omitempty"`
	Fee                string           `json:"Fee,omitempty"`
	LastLedgerSequence uint32           `json:"LastLedgerSequence,omitempty"`
	SigningPubKey      string           `json:"SigningPubKey"`
	TxnSignature       string           `json:"TxnSignature,omitempty"`
}
