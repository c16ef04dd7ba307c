// This code is available on the terms of the project LICENSE.md file,
// also available online at https://blueoakcouncil.org/license/1.0.0.

// Package xrp holds types and utilities common to all xrplink subsystems:
// asset identification, XRP amount conversion, ripple-epoch time handling,
// and the address/seed base58 codec used across the XRP Ledger.
package xrp

import (
	"fmt"
	"strconv"
	"strings"
)

const (
	// DropsPerXRP is the number of indivisible ledger units (drops) in one
	// XRP. All native amounts on the wire are integer drop counts.
	DropsPerXRP = 1_000_000

	// MaxDrops is the drop count of the initial (and maximum) XRP supply,
	// 100 billion XRP.
	MaxDrops = 100_000_000_000 * DropsPerXRP

	// xrpDecimals is the number of decimal places in an XRP amount.
	xrpDecimals = 6
)

// Asset identifies a transactable asset: either the ledger's native XRP or an
// issued currency tracked on trust lines to a specific issuer account.
type Asset struct {
	// Currency is "XRP" for the native asset, otherwise a 3-character ISO-ish
	// currency code or a 40-character hex code.
	Currency string
	// Issuer is the issuing account. Empty for XRP.
	Issuer string
}

// XRP is the native asset.
var XRP = Asset{Currency: "XRP"}

// IsNative is true for the chain's built-in currency.
func (a Asset) IsNative() bool {
	return a.Currency == "XRP" && a.Issuer == ""
}

// String returns "XRP" or "CUR.rIssuer...".
func (a Asset) String() string {
	if a.IsNative() {
		return "XRP"
	}
	return a.Currency + "." + a.Issuer
}

// NewAsset constructs an Asset, resolving an empty issuer for a non-native
// currency from the well-known issuer table.
func NewAsset(currency, issuer string) (Asset, error) {
	currency = strings.ToUpper(strings.TrimSpace(currency))
	if currency == "" {
		return Asset{}, fmt.Errorf("no currency specified")
	}
	if currency == "XRP" {
		if issuer != "" {
			return Asset{}, fmt.Errorf("the native asset has no issuer")
		}
		return XRP, nil
	}
	if issuer == "" {
		var found bool
		issuer, found = DefaultIssuer(currency)
		if !found {
			return Asset{}, fmt.Errorf("no issuer specified for %s and no default known", currency)
		}
	}
	return Asset{Currency: currency, Issuer: issuer}, nil
}

// defaultIssuers maps well-known currency codes to their customary mainnet
// issuing accounts, used when a caller specifies only a currency code.
var defaultIssuers = map[string]string{
	"USD": "rvYAfWj5gh67oV6fW32ZzP3Aw4Eubs59B",  // Bitstamp
	"BTC": "rvYAfWj5gh67oV6fW32ZzP3Aw4Eubs59B",  // Bitstamp
	"EUR": "rhub8VRN55s94qWKDv6jmDy1pUykJzF3wq", // GateHub
	"ETH": "rcA8X3TVMST1n3CJeAdGk1RdRCHii7N2h",  // GateHub
}

// DefaultIssuer returns the well-known issuer account for a currency code, if
// one is registered.
func DefaultIssuer(currency string) (string, bool) {
	issuer, found := defaultIssuers[strings.ToUpper(currency)]
	return issuer, found
}

// ParseXRP converts a decimal XRP amount string to drops. Digits beyond the
// sixth decimal place are discarded (floor), matching the ledger's minimum
// representable increment.
func ParseXRP(s string) (uint64, error) {
	s = strings.TrimSpace(s)
	if s == "" {
		return 0, fmt.Errorf("empty amount")
	}
	if strings.HasPrefix(s, "-") {
		return 0, fmt.Errorf("negative amount %q", s)
	}
	whole, frac, _ := strings.Cut(s, ".")
	if whole == "" {
		whole = "0"
	}
	xrp, err := strconv.ParseUint(whole, 10, 64)
	if err != nil {
		return 0, fmt.Errorf("invalid amount %q: %w", s, err)
	}
	var fracDrops uint64
	if frac != "" {
		if len(frac) > xrpDecimals {
			frac = frac[:xrpDecimals]
		}
		fracDrops, err = strconv.ParseUint(frac, 10, 64)
		if err != nil {
			return 0, fmt.Errorf("invalid amount %q: %w", s, err)
		}
		for i := len(frac); i < xrpDecimals; i++ {
			fracDrops *= 10
		}
	}
	if xrp > (MaxDrops-fracDrops)/DropsPerXRP {
		return 0, fmt.Errorf("amount %q exceeds the XRP supply", s)
	}
	return xrp*DropsPerXRP + fracDrops, nil
}

// FormatXRP converts drops to a decimal XRP string with trailing zeros
// trimmed.
func FormatXRP(drops uint64) string {
	whole := drops / DropsPerXRP
	frac := drops % DropsPerXRP
	if frac == 0 {
		return strconv.FormatUint(whole, 10)
	}
	fracStr := strings.TrimRight(fmt.Sprintf("%06d", frac), "0")
	return strconv.FormatUint(whole, 10) + "." + fracStr
}
