// This code is available on the terms of the project LICENSE.md file,
// also available online at https://blueoakcouncil.org/license/1.0.0.

package stcodec

import (
	"encoding/binary"
	"encoding/hex"
	"fmt"
	"strconv"
	"strings"

	"xrplink.org/xrplink/xrp"
)

const (
	// notXRPBit distinguishes issued-currency amounts from drops.
	notXRPBit = uint64(1) << 63
	// positiveBit is the sign bit. Set for positive amounts of either kind.
	positiveBit = uint64(1) << 62

	minMantissa = 1_000_000_000_000_000  // 1e15
	maxMantissa = 9_999_999_999_999_999  // 1e16 - 1
	minExponent = -96
	maxExponent = 80
)

// encodeNativeAmount encodes a drops string: 64 bits, the positive bit set,
// the not-XRP bit clear.
func encodeNativeAmount(drops string) ([]byte, error) {
	v, err := strconv.ParseUint(drops, 10, 64)
	if err != nil {
		return nil, fmt.Errorf("invalid drops value %q: %w", drops, err)
	}
	if v > xrp.MaxDrops {
		return nil, fmt.Errorf("%d drops exceeds the XRP supply", v)
	}
	b := make([]byte, 8)
	binary.BigEndian.PutUint64(b, v|positiveBit)
	return b, nil
}

// encodeIssuedAmount encodes a {currency, issuer, value} amount: a 64-bit
// mantissa/exponent value, a 160-bit currency code and the 160-bit issuer
// account ID.
func encodeIssuedAmount(currency, issuer, value string) ([]byte, error) {
	valueBits, err := encodeIssuedValue(value)
	if err != nil {
		return nil, fmt.Errorf("amount value %q: %w", value, err)
	}
	currencyBytes, err := encodeCurrency(currency)
	if err != nil {
		return nil, err
	}
	issuerID, err := xrp.DecodeAddress(issuer)
	if err != nil {
		return nil, fmt.Errorf("amount issuer: %w", err)
	}
	out := make([]byte, 0, 48)
	b := make([]byte, 8)
	binary.BigEndian.PutUint64(b, valueBits)
	out = append(out, b...)
	out = append(out, currencyBytes...)
	out = append(out, issuerID...)
	return out, nil
}

// encodeIssuedValue converts a decimal string to the ledger's sign, exponent
// and normalized mantissa representation.
func encodeIssuedValue(value string) (uint64, error) {
	s := strings.TrimSpace(value)
	negative := strings.HasPrefix(s, "-")
	s = strings.TrimPrefix(s, "-")
	s = strings.TrimPrefix(s, "+")
	if s == "" {
		return 0, fmt.Errorf("empty value")
	}
	intPart, fracPart, _ := strings.Cut(s, ".")
	digits := intPart + fracPart
	for _, c := range digits {
		if c < '0' || c > '9' {
			return 0, fmt.Errorf("invalid decimal")
		}
	}
	exponent := -len(fracPart)
	digits = strings.TrimLeft(digits, "0")
	if digits == "" {
		// Canonical zero: just the not-XRP bit.
		return notXRPBit, nil
	}
	// Strip trailing zeros into the exponent before the digits are committed
	// to a mantissa, to keep precision headroom.
	for strings.HasSuffix(digits, "0") {
		digits = digits[:len(digits)-1]
		exponent++
	}
	if len(digits) > 16 {
		return 0, fmt.Errorf("more than 16 significant digits")
	}
	mantissa, err := strconv.ParseUint(digits, 10, 64)
	if err != nil {
		return 0, err
	}
	for mantissa < minMantissa {
		mantissa *= 10
		exponent--
	}
	if mantissa > maxMantissa {
		return 0, fmt.Errorf("mantissa out of range")
	}
	if exponent < minExponent || exponent > maxExponent {
		return 0, fmt.Errorf("exponent %d out of range", exponent)
	}
	bits := notXRPBit | uint64(exponent+97)<<54 | mantissa
	if !negative {
		bits |= positiveBit
	}
	return bits, nil
}

// encodeCurrency produces the 160-bit currency code: a three-character ASCII
// code occupies bytes 12-14, a forty-character hex code is used raw. "XRP"
// is not a legal issued currency.
func encodeCurrency(currency string) ([]byte, error) {
	if len(currency) == 40 {
		b, err := hex.DecodeString(currency)
		if err != nil {
			return nil, fmt.Errorf("invalid hex currency %q: %w", currency, err)
		}
		return b, nil
	}
	if currency == "XRP" {
		return nil, fmt.Errorf("XRP cannot be an issued currency")
	}
	if len(currency) != 3 {
		return nil, fmt.Errorf("currency code %q must be 3 characters or 40 hex characters", currency)
	}
	b := make([]byte, 20)
	copy(b[12:], currency)
	return b, nil
}
