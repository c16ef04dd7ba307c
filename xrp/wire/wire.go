// This code is available on the terms of the project LICENSE.md file,
// also available online at https://blueoakcouncil.org/license/1.0.0.

// Package wire defines the JSON shapes exchanged with a rippled-compatible
// node over the websocket API: amounts, memos, RPC errors, request parameter
// helpers and command results.
package wire

import (
	"encoding/hex"
	"encoding/json"
	"errors"
	"fmt"
	"strconv"
	"strings"

	"xrplink.org/xrplink/xrp"
)

// Amount is a ledger amount. The native asset is represented on the wire as a
// string of integer drops. An issued currency is an object carrying the
// currency code, issuing account and a decimal string value.
type Amount struct {
	// Native is true for XRP, in which case only Drops is meaningful.
	Native bool
	// Drops is the native amount in drops.
	Drops uint64
	// Currency, Issuer and Value describe an issued-currency amount.
	Currency string
	Issuer   string
	Value    string
}

// XRPAmount creates a native Amount.
func XRPAmount(drops uint64) Amount {
	return Amount{Native: true, Drops: drops}
}

// IssuedAmount creates an issued-currency Amount.
func IssuedAmount(currency, issuer, value string) Amount {
	return Amount{Currency: currency, Issuer: issuer, Value: value}
}

// AssetAmount shapes a decimal amount of the given asset, converting to drops
// for the native asset.
func AssetAmount(asset xrp.Asset, value string) (Amount, error) {
	if asset.IsNative() {
		drops, err := xrp.ParseXRP(value)
		if err != nil {
			return Amount{}, err
		}
		return XRPAmount(drops), nil
	}
	return IssuedAmount(asset.Currency, asset.Issuer, value), nil
}

// Asset returns the asset this amount is denominated in.
func (a Amount) Asset() xrp.Asset {
	if a.Native {
		return xrp.XRP
	}
	return xrp.Asset{Currency: a.Currency, Issuer: a.Issuer}
}

// String is a human-readable rendering of the amount.
func (a Amount) String() string {
	if a.Native {
		return xrp.FormatXRP(a.Drops) + " XRP"
	}
	return a.Value + " " + a.Currency + "." + a.Issuer
}

// Float returns the amount as a float64, in XRP for the native asset.
func (a Amount) Float() (float64, error) {
	if a.Native {
		return float64(a.Drops) / xrp.DropsPerXRP, nil
	}
	return strconv.ParseFloat(a.Value, 64)
}

type issuedAmountJSON struct {
	Currency string `json:"currency"`
	Issuer   string `json:"issuer"`
	Value    string `json:"value"`
}

// MarshalJSON satisfies json.Marshaler, emitting a drops string for native
// amounts and a currency object otherwise.
func (a Amount) MarshalJSON() ([]byte, error) {
	if a.Native {
		return json.Marshal(strconv.FormatUint(a.Drops, 10))
	}
	return json.Marshal(issuedAmountJSON{
		Currency: a.Currency,
		Issuer:   a.Issuer,
		Value:    a.Value,
	})
}

// UnmarshalJSON satisfies json.Unmarshaler, accepting either wire shape.
func (a *Amount) UnmarshalJSON(b []byte) error {
	if len(b) > 0 && b[0] == '"' {
		var s string
		if err := json.Unmarshal(b, &s); err != nil {
			return err
		}
		drops, err := strconv.ParseUint(s, 10, 64)
		if err != nil {
			return fmt.Errorf("invalid drops amount %q: %w", s, err)
		}
		*a = Amount{Native: true, Drops: drops}
		return nil
	}
	var iss issuedAmountJSON
	if err := json.Unmarshal(b, &iss); err != nil {
		return err
	}
	*a = Amount{Currency: iss.Currency, Issuer: iss.Issuer, Value: iss.Value}
	return nil
}

// Memo is the inner memo object. All fields are uppercase hex on the wire.
type Memo struct {
	MemoType   string `json:"MemoType,omitempty"`
	MemoData   string `json:"MemoData,omitempty"`
	MemoFormat string `json:"MemoFormat,omitempty"`
}

// MemoWrapper is the Memos array element shape.
type MemoWrapper struct {
	Memo Memo `json:"Memo"`
}

// TextMemo hex-encodes free text into a memo.
func TextMemo(text string) MemoWrapper {
	return MemoWrapper{Memo: Memo{
		MemoData: strings.ToUpper(hex.EncodeToString([]byte(text))),
	}}
}

// Text decodes the memo's data as text.
func (m MemoWrapper) Text() (string, error) {
	b, err := hex.DecodeString(m.Memo.MemoData)
	if err != nil {
		return "", fmt.Errorf("invalid memo data: %w", err)
	}
	return string(b), nil
}

// RPCError is a command failure reported by the node.
type RPCError struct {
	Name    string `json:"error"`
	Code    int    `json:"error_code"`
	Message string `json:"error_message"`
}

// Error satisfies the error interface.
func (e *RPCError) Error() string {
	if e.Message != "" {
		return fmt.Sprintf("%s (%d): %s", e.Name, e.Code, e.Message)
	}
	return e.Name
}

// Well-known RPC error names.
const (
	ErrNameAccountNotFound = "actNotFound"
	ErrNameTxnNotFound     = "txnNotFound"
)

// IsNotFound is true for the "not found" family of RPC errors, wrapped or
// not.
func IsNotFound(err error) bool {
	var rpcErr *RPCError
	return errors.As(err, &rpcErr) &&
		(rpcErr.Name == ErrNameAccountNotFound || rpcErr.Name == ErrNameTxnNotFound)
}

// EngineSuccess reports whether an engine result code is in the success
// family (tes class).
func EngineSuccess(code string) bool {
	return strings.HasPrefix(code, "tes")
}

// EngineQueued reports whether a preliminary engine result indicates the
// transaction was queued for a later ledger rather than rejected.
func EngineQueued(code string) bool {
	return code == "terQUEUED"
}

// AssetParam shapes an asset for request parameters such as amm_info's asset
// and asset2 fields.
func AssetParam(a xrp.Asset) map[string]string {
	if a.IsNative() {
		return map[string]string{"currency": "XRP"}
	}
	return map[string]string{"currency": a.Currency, "issuer": a.Issuer}
}
