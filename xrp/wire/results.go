// This code is available on the terms of the project LICENSE.md file,
// also available online at https://blueoakcouncil.org/license/1.0.0.

package wire

import "encoding/json"

// AccountData is the account root object from account_info.
type AccountData struct {
	Account    string `json:"Account"`
	Balance    string `json:"Balance"` // drops
	Sequence   uint32 `json:"Sequence"`
	OwnerCount uint32 `json:"OwnerCount"`
	Flags      uint32 `json:"Flags"`
}

// AccountInfoResult is the result of the account_info command.
type AccountInfoResult struct {
	AccountData        AccountData `json:"account_data"`
	LedgerCurrentIndex uint32      `json:"ledger_current_index"`
	LedgerIndex        uint32      `json:"ledger_index"`
	Validated          bool        `json:"validated"`
}

// TrustLine is one entry from account_lines.
type TrustLine struct {
	Account  string `json:"account"`
	Balance  string `json:"balance"`
	Currency string `json:"currency"`
	Limit    string `json:"limit"`
}

// AccountLinesResult is the result of the account_lines command.
type AccountLinesResult struct {
	Account string      `json:"account"`
	Lines   []TrustLine `json:"lines"`
}

// AMMInfo describes one AMM pool instance.
type AMMInfo struct {
	Account string `json:"account"`
	Amount  Amount `json:"amount"`
	Amount2 Amount `json:"amount2"`
	// TradingFee is in units of 1/100000, so 1000 means 1%.
	TradingFee uint32 `json:"trading_fee"`
	LPToken    Amount `json:"lp_token"`
}

// AMMInfoResult is the result of the amm_info command.
type AMMInfoResult struct {
	AMM       AMMInfo `json:"amm"`
	Validated bool    `json:"validated"`
}

// SubmitResult is the preliminary result of the submit command.
type SubmitResult struct {
	EngineResult        string          `json:"engine_result"`
	EngineResultCode    int             `json:"engine_result_code"`
	EngineResultMessage string          `json:"engine_result_message"`
	TxBlob              string          `json:"tx_blob"`
	TxJSON              json.RawMessage `json:"tx_json"`
	Accepted            bool            `json:"accepted"`
	Applied             bool            `json:"applied"`
}

// TxMeta is the subset of transaction metadata consumed by this client.
type TxMeta struct {
	TransactionResult string  `json:"TransactionResult"`
	DeliveredAmount   *Amount `json:"delivered_amount,omitempty"`
}

// TxData is the result of the tx command for a transaction looked up by hash.
type TxData struct {
	Hash        string `json:"hash"`
	Validated   bool   `json:"validated"`
	LedgerIndex uint32 `json:"ledger_index"`
	Meta        *TxMeta
}

// UnmarshalJSON handles the two spellings of the metadata key ("meta" from
// the tx command, "metaData" in ledger data).
func (d *TxData) UnmarshalJSON(b []byte) error {
	type txData struct {
		Hash        string  `json:"hash"`
		Validated   bool    `json:"validated"`
		LedgerIndex uint32  `json:"ledger_index"`
		Meta        *TxMeta `json:"meta"`
		MetaData    *TxMeta `json:"metaData"`
	}
	var raw txData
	if err := json.Unmarshal(b, &raw); err != nil {
		return err
	}
	meta := raw.Meta
	if meta == nil {
		meta = raw.MetaData
	}
	*d = TxData{
		Hash:        raw.Hash,
		Validated:   raw.Validated,
		LedgerIndex: raw.LedgerIndex,
		Meta:        meta,
	}
	return nil
}

// FeeDrops is the drops object of the fee command.
type FeeDrops struct {
	BaseFee       string `json:"base_fee"`
	MedianFee     string `json:"median_fee"`
	MinimumFee    string `json:"minimum_fee"`
	OpenLedgerFee string `json:"open_ledger_fee"`
}

// FeeResult is the result of the fee command.
type FeeResult struct {
	Drops              FeeDrops `json:"drops"`
	CurrentLedgerSize  string   `json:"current_ledger_size"`
	ExpectedLedgerSize string   `json:"expected_ledger_size"`
	LedgerCurrentIndex uint32   `json:"ledger_current_index"`
	MaxQueueSize       string   `json:"max_queue_size"`
	CurrentQueueSize   string   `json:"current_queue_size"`
}

// LedgerStream is a ledgerClosed stream notification.
type LedgerStream struct {
	Type        string `json:"type"`
	LedgerIndex uint32 `json:"ledger_index"`
	LedgerHash  string `json:"ledger_hash"`
	LedgerTime  uint32 `json:"ledger_time"`
	FeeBase     uint32 `json:"fee_base"`
	ReserveBase uint32 `json:"reserve_base"`
	ReserveInc  uint32 `json:"reserve_inc"`
}
