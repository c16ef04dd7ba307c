// This code is available on the terms of the project LICENSE.md file,
// also available online at https://blueoakcouncil.org/license/1.0.0.

package stcodec

import (
	"crypto/sha512"
	"encoding/hex"
	"strings"
)

// Hash prefixes scoping digests to their purpose, per the ledger's hash
// prefix registry.
var (
	signingPrefix = []byte{0x53, 0x54, 0x58, 0x00} // "STX\0", single signer
	txIDPrefix    = []byte{0x54, 0x58, 0x4e, 0x00} // "TXN\0", transaction ID
)

// SHA512Half is the ledger's standard digest: the first half of a SHA-512.
func SHA512Half(chunks ...[]byte) []byte {
	h := sha512.New()
	for _, c := range chunks {
		h.Write(c)
	}
	return h.Sum(nil)[:32]
}

// SigningData prepends the single-signer prefix to a serialization produced
// by SerializeForSigning. ECDSA signers sign SHA512Half of this; ed25519
// signers sign the message itself.
func SigningData(serialized []byte) []byte {
	return append(append([]byte{}, signingPrefix...), serialized...)
}

// SigningDigest is the SHA512Half of the prefixed signing data.
func SigningDigest(serialized []byte) []byte {
	return SHA512Half(signingPrefix, serialized)
}

// TxID computes a transaction's identifying hash from its final serialized
// form, as uppercase hex.
func TxID(serialized []byte) string {
	return strings.ToUpper(hex.EncodeToString(SHA512Half(txIDPrefix, serialized)))
}
