// This code is available on the terms of the project LICENSE.md file,
// also available online at https://blueoakcouncil.org/license/1.0.0.

package stcodec

// Serialized type codes, from the ledger's binary format definitions.
const (
	stUInt16    = 1
	stUInt32    = 2
	stAmount    = 6
	stBlob      = 7
	stAccountID = 8
	stObject    = 14
	stArray     = 15
)

// fieldDef locates a field in the canonical ordering: fields sort by type
// code, then by field code.
type fieldDef struct {
	typeCode  int
	fieldCode int
}

// fieldDefs mirrors the subset of rippled's definitions.json needed for the
// transactions this client builds. Extend as transaction coverage grows.
var fieldDefs = map[string]fieldDef{
	"TransactionType": {stUInt16, 2},

	"Flags":              {stUInt32, 2},
	"SourceTag":          {stUInt32, 3},
	"Sequence":           {stUInt32, 4},
	"Expiration":         {stUInt32, 10},
	"DestinationTag":     {stUInt32, 14},
	"OfferSequence":      {stUInt32, 25},
	"LastLedgerSequence": {stUInt32, 27},
	"CancelAfter":        {stUInt32, 36},
	"FinishAfter":        {stUInt32, 37},

	"Amount":     {stAmount, 1},
	"Fee":        {stAmount, 8},
	"SendMax":    {stAmount, 9},
	"DeliverMin": {stAmount, 10},

	"SigningPubKey": {stBlob, 3},
	"TxnSignature":  {stBlob, 4},
	"MemoType":      {stBlob, 12},
	"MemoData":      {stBlob, 13},
	"MemoFormat":    {stBlob, 14},
	"Fulfillment":   {stBlob, 16},
	"Condition":     {stBlob, 17},

	"Account":     {stAccountID, 1},
	"Owner":       {stAccountID, 2},
	"Destination": {stAccountID, 3},
	"Issuer":      {stAccountID, 4},

	"Memo":           {stObject, 10},
	"RawTransaction": {stObject, 27},

	"Memos":           {stArray, 9},
	"RawTransactions": {stArray, 13},
}

// txTypeCodes maps TransactionType names to their numeric codes.
var txTypeCodes = map[string]uint16{
	"Payment":      0,
	"EscrowCreate": 1,
	"EscrowFinish": 2,
	"EscrowCancel": 4,
	"Batch":        71,
}

// Object and array end markers: type stObject/stArray, field code 1.
const (
	objectEndMarker = byte(stObject<<4 | 1) // 0xe1
	arrayEndMarker  = byte(stArray<<4 | 1)  // 0xf1
)
