// This code is available on the terms of the project LICENSE.md file,
// also available online at https://blueoakcouncil.org/license/1.0.0.

// Package wallet turns user-supplied key material into an XRP Ledger signing
// identity. A credential is parsed exactly once at the boundary into one of
// three tagged forms, and the resulting KeyPair signs canonical transaction
// serializations.
package wallet

import (
	"bytes"
	"encoding/hex"
	"fmt"
	"strings"

	"github.com/bisoncraft/go-bip39"
	"xrplink.org/xrplink/xrp"
)

// ErrInvalidCredential is returned when a credential string parses as none of
// the supported forms.
const ErrInvalidCredential = xrp.ErrorKind("invalid credential")

// CredentialKind tags the parsed form of a credential.
type CredentialKind uint8

const (
	// Mnemonic is a BIP-39 word list. Keys derive via the conventional
	// m/44'/144'/0'/0/0 path.
	Mnemonic CredentialKind = iota
	// FamilySeed is a base58 "s..." seed carrying 16 bytes of entropy, for
	// either key type. "sEd..." seeds are ed25519.
	FamilySeed
	// RawSecret is a hex-encoded private key: 64 hex characters for
	// secp256k1, or "ED" followed by 64 hex characters for ed25519.
	RawSecret
)

func (k CredentialKind) String() string {
	switch k {
	case Mnemonic:
		return "mnemonic"
	case FamilySeed:
		return "family seed"
	case RawSecret:
		return "raw secret"
	}
	return fmt.Sprintf("credentialkind(%d)", k)
}

// Family seed payload version bytes.
var (
	secpSeedVersion = []byte{0x21}             // "s..."
	edSeedVersion   = []byte{0x01, 0xe1, 0x4b} // "sEd..."
)

const seedEntropyLen = 16

// Credential is a parsed signing credential. The zero value is not valid;
// use ParseCredential.
type Credential struct {
	kind     CredentialKind
	mnemonic string
	entropy  []byte // FamilySeed
	secret   []byte // RawSecret
	isEd     bool
}

// Kind returns the parsed form.
func (c *Credential) Kind() CredentialKind {
	return c.kind
}

// ParseCredential decides the form of a credential string once, explicitly.
// Word lists must be valid BIP-39 mnemonics, "s..." strings must checksum as
// family seeds, and anything else must be raw hex key material.
func ParseCredential(s string) (*Credential, error) {
	s = strings.TrimSpace(s)
	if s == "" {
		return nil, xrp.NewError(ErrInvalidCredential, "empty credential")
	}

	if strings.ContainsAny(s, " \t\n") {
		mnemonic := strings.Join(strings.Fields(s), " ")
		if !bip39.IsMnemonicValid(mnemonic) {
			return nil, xrp.NewError(ErrInvalidCredential, "not a valid mnemonic word list")
		}
		return &Credential{kind: Mnemonic, mnemonic: mnemonic}, nil
	}

	if s[0] == 's' {
		payload, err := xrp.CheckDecode(s)
		if err != nil {
			return nil, xrp.NewError(ErrInvalidCredential, fmt.Sprintf("bad family seed: %v", err))
		}
		switch {
		case len(payload) == len(secpSeedVersion)+seedEntropyLen &&
			bytes.Equal(payload[:len(secpSeedVersion)], secpSeedVersion):
			return &Credential{kind: FamilySeed, entropy: payload[len(secpSeedVersion):]}, nil
		case len(payload) == len(edSeedVersion)+seedEntropyLen &&
			bytes.Equal(payload[:len(edSeedVersion)], edSeedVersion):
			return &Credential{kind: FamilySeed, entropy: payload[len(edSeedVersion):], isEd: true}, nil
		}
		return nil, xrp.NewError(ErrInvalidCredential, "unrecognized seed version")
	}

	hexKey := s
	var isEd bool
	if strings.HasPrefix(strings.ToUpper(hexKey), "ED") && len(hexKey) == 66 {
		hexKey = hexKey[2:]
		isEd = true
	}
	key, err := hex.DecodeString(hexKey)
	if err != nil || len(key) != 32 {
		return nil, xrp.NewError(ErrInvalidCredential, "not a mnemonic, family seed or hex secret")
	}
	return &Credential{kind: RawSecret, secret: key, isEd: isEd}, nil
}

// KeyPair derives the signing identity for the credential.
func (c *Credential) KeyPair() (*KeyPair, error) {
	switch c.kind {
	case Mnemonic:
		return keyPairFromMnemonic(c.mnemonic)
	case FamilySeed:
		if c.isEd {
			return edKeyPairFromEntropy(c.entropy)
		}
		return secpKeyPairFromEntropy(c.entropy)
	case RawSecret:
		if c.isEd {
			return edKeyPairFromSeed(c.secret)
		}
		return secpKeyPairFromBytes(c.secret)
	}
	return nil, fmt.Errorf("unknown credential kind %d", c.kind)
}

// EncodeFamilySeed renders 16 bytes of entropy as a base58 family seed.
func EncodeFamilySeed(entropy []byte, ed bool) (string, error) {
	if len(entropy) != seedEntropyLen {
		return "", fmt.Errorf("seed entropy must be %d bytes, got %d", seedEntropyLen, len(entropy))
	}
	version := secpSeedVersion
	if ed {
		version = edSeedVersion
	}
	return xrp.CheckEncode(version, entropy), nil
}
