// This code is available on the terms of the project LICENSE.md file,
// also available online at https://blueoakcouncil.org/license/1.0.0.

package wallet

import (
	"encoding/hex"
	"strings"

	"xrplink.org/xrplink/xrp/stcodec"
)

// SignedTx is a fully signed transaction ready for submission.
type SignedTx struct {
	// Blob is the canonical serialization including the signature.
	Blob []byte
	// Hash is the transaction's identifying hash, uppercase hex.
	Hash string
	// Tx is the signed transaction in map form, SigningPubKey and
	// TxnSignature installed.
	Tx map[string]any
}

// BlobHex is the uppercase hex of the signed serialization, the submit
// command's tx_blob parameter.
func (s *SignedTx) BlobHex() string {
	return strings.ToUpper(hex.EncodeToString(s.Blob))
}

// SignTx installs the key pair's public key, signs the canonical
// serialization and returns the submittable blob along with the transaction
// hash.
func (kp *KeyPair) SignTx(tx any) (*SignedTx, error) {
	m, err := stcodec.TxMap(tx)
	if err != nil {
		return nil, err
	}
	m["SigningPubKey"] = kp.PubKeyHex()

	unsigned, err := stcodec.SerializeForSigning(m)
	if err != nil {
		return nil, err
	}
	sig := kp.Sign(stcodec.SigningData(unsigned))
	m["TxnSignature"] = strings.ToUpper(hex.EncodeToString(sig))

	blob, err := stcodec.Serialize(m)
	if err != nil {
		return nil, err
	}
	return &SignedTx{
		Blob: blob,
		Hash: stcodec.TxID(blob),
		Tx:   m,
	}, nil
}
