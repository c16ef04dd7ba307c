// This code is available on the terms of the project LICENSE.md file,
// also available online at https://blueoakcouncil.org/license/1.0.0.

package xrp

import (
	"bytes"
	"crypto/sha256"
	"fmt"
	"math/big"
)

// The XRP Ledger uses its own base58 dictionary, chosen so that account
// addresses begin with 'r' and seeds with 's'.
const b58Alphabet = "rpshnaf39wBUDNEGHJKLM4PQRST7VWXYZ2bcdeCg65jkm8oFqi1tuvAxyz"

// addressVersion is the payload version byte for classic account addresses.
const addressVersion byte = 0x00

// AccountIDLen is the length of a raw account ID, the RIPEMD160-SHA256 hash
// of the account's public key.
const AccountIDLen = 20

var b58Values = func() [256]int8 {
	var vals [256]int8
	for i := range vals {
		vals[i] = -1
	}
	for i := 0; i < len(b58Alphabet); i++ {
		vals[b58Alphabet[i]] = int8(i)
	}
	return vals
}()

func b58Encode(b []byte) string {
	x := new(big.Int).SetBytes(b)
	radix := big.NewInt(58)
	mod := new(big.Int)
	// Worst case length estimate, log(256)/log(58) ~ 1.365.
	out := make([]byte, 0, len(b)*137/100+1)
	for x.Sign() > 0 {
		x.DivMod(x, radix, mod)
		out = append(out, b58Alphabet[mod.Int64()])
	}
	for _, c := range b {
		if c != 0 {
			break
		}
		out = append(out, b58Alphabet[0])
	}
	// Reverse.
	for i, j := 0, len(out)-1; i < j; i, j = i+1, j-1 {
		out[i], out[j] = out[j], out[i]
	}
	return string(out)
}

func b58Decode(s string) ([]byte, error) {
	x := new(big.Int)
	radix := big.NewInt(58)
	for i := 0; i < len(s); i++ {
		v := b58Values[s[i]]
		if v < 0 {
			return nil, fmt.Errorf("invalid base58 character %q", s[i])
		}
		x.Mul(x, radix)
		x.Add(x, big.NewInt(int64(v)))
	}
	var zeros int
	for zeros < len(s) && s[zeros] == b58Alphabet[0] {
		zeros++
	}
	return append(make([]byte, zeros), x.Bytes()...), nil
}

func checksum(b []byte) []byte {
	h := sha256.Sum256(b)
	h = sha256.Sum256(h[:])
	return h[:4]
}

// CheckEncode base58-encodes version||payload||checksum using the XRPL
// dictionary, where the checksum is the first four bytes of a double SHA-256.
func CheckEncode(version, payload []byte) string {
	b := make([]byte, 0, len(version)+len(payload)+4)
	b = append(b, version...)
	b = append(b, payload...)
	b = append(b, checksum(b)...)
	return b58Encode(b)
}

// CheckDecode decodes an XRPL base58check string, verifies the trailing
// checksum and returns the versioned payload with the checksum stripped.
func CheckDecode(s string) ([]byte, error) {
	b, err := b58Decode(s)
	if err != nil {
		return nil, err
	}
	if len(b) < 5 {
		return nil, fmt.Errorf("encoded payload too short")
	}
	body, sum := b[:len(b)-4], b[len(b)-4:]
	if !bytes.Equal(checksum(body), sum) {
		return nil, fmt.Errorf("checksum mismatch")
	}
	return body, nil
}

// EncodeAddress converts a 20-byte account ID to a classic "r..." address.
func EncodeAddress(accountID []byte) (string, error) {
	if len(accountID) != AccountIDLen {
		return "", fmt.Errorf("account ID must be %d bytes, got %d", AccountIDLen, len(accountID))
	}
	return CheckEncode([]byte{addressVersion}, accountID), nil
}

// DecodeAddress converts a classic "r..." address to its 20-byte account ID.
func DecodeAddress(addr string) ([]byte, error) {
	b, err := CheckDecode(addr)
	if err != nil {
		return nil, fmt.Errorf("invalid address %q: %w", addr, err)
	}
	if len(b) != 1+AccountIDLen || b[0] != addressVersion {
		return nil, fmt.Errorf("invalid address %q: bad version or length", addr)
	}
	return b[1:], nil
}

// IsValidAddress reports whether addr is a well-formed classic address,
// checksum included.
func IsValidAddress(addr string) bool {
	if len(addr) == 0 || addr[0] != 'r' {
		return false
	}
	_, err := DecodeAddress(addr)
	return err == nil
}
